package transport

import "fmt"

// rawCodec lets connect carry the already-JSON-encoded request/response
// bodies internal/server's per-API Build/Parse functions produce as
// opaque byte payloads, instead of requiring a protobuf message type for
// every API. connect.Codec is a small, name-addressed interface
// (Name/Marshal/Unmarshal) independent of the protobuf codec it ships by
// default, which is exactly the seam this reference transport needs: the
// wire shape of each call is internal/server's concern, connect only
// supplies the RPC framing, multiplexing, and HTTP/2 transport.
type rawCodec struct{}

const rawCodecName = "cheevos-raw"

func (rawCodec) Name() string { return rawCodecName }

func (rawCodec) Marshal(msg any) ([]byte, error) {
	switch v := msg.(type) {
	case *[]byte:
		return *v, nil
	case []byte:
		return v, nil
	default:
		return nil, fmt.Errorf("transport: rawCodec cannot marshal %T", msg)
	}
}

func (rawCodec) Unmarshal(data []byte, msg any) error {
	v, ok := msg.(*[]byte)
	if !ok {
		return fmt.Errorf("transport: rawCodec cannot unmarshal into %T", msg)
	}
	*v = append((*v)[:0], data...)
	return nil
}
