// Package transport is the reference implementation of server.Caller
// (spec §6's collaborator interface), built on connectrpc.com/connect for
// HTTP/2-multiplexed unary calls and github.com/google/uuid for
// per-request correlation ids. The wire shape of any particular call is
// never interpreted here: bodies are opaque []byte blobs produced and
// consumed by internal/server's per-API Build/Parse pairs (spec §1's
// non-goal "the HTTP transport and JSON shape of the server API").
package transport

import (
	"context"
	"fmt"
	"net/http"
	"sync"

	"connectrpc.com/connect"
	"github.com/google/uuid"

	"github.com/northbridge-labs/cheevos/internal/server"
)

// Transport implements server.Caller against a connect-protocol endpoint.
// One procedure (and therefore one *connect.Client) exists per named API;
// clients are created lazily and cached, since connect.NewClient performs
// some per-procedure setup the caller shouldn't repeat on every call.
type Transport struct {
	httpClient connect.HTTPClient
	baseURL    string

	mu      sync.Mutex
	clients map[server.API]*connect.Client[[]byte, []byte]
}

// New creates a Transport that issues connect-protocol calls to baseURL
// (e.g. "https://retroachievements.example/rpc") using httpClient, or
// http.DefaultClient if nil.
func New(baseURL string, httpClient connect.HTTPClient) *Transport {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Transport{
		httpClient: httpClient,
		baseURL:    baseURL,
		clients:    make(map[server.API]*connect.Client[[]byte, []byte]),
	}
}

func (t *Transport) clientFor(api server.API) *connect.Client[[]byte, []byte] {
	t.mu.Lock()
	defer t.mu.Unlock()

	if c, ok := t.clients[api]; ok {
		return c
	}

	procedure := fmt.Sprintf("%s/cheevos.v1.AchievementService/%s", t.baseURL, api)
	c := connect.NewClient[[]byte, []byte](
		t.httpClient,
		procedure,
		connect.WithCodec(rawCodec{}),
	)
	t.clients[api] = c
	return c
}

// Call implements server.Caller. It stamps every outgoing call with a
// fresh correlation id (spec §9's "carry the effective host inside a
// runtime-configuration struct" note applies to baseURL). A retry is a
// new Call and so carries a new id.
func (t *Transport) Call(ctx context.Context, req server.Request) (server.Response, error) {
	client := t.clientFor(req.API)

	body := req.Body
	creq := connect.NewRequest(&body)
	creq.Header().Set("X-Request-Id", uuid.NewString())

	cresp, err := client.CallUnary(ctx, creq)
	if err != nil {
		return server.Response{}, fmt.Errorf("transport: call %s: %w", req.API, err)
	}

	return server.Response{Status: http.StatusOK, Body: *cresp.Msg}, nil
}
