package transport

import (
	"testing"

	"github.com/northbridge-labs/cheevos/internal/server"
)

func TestRawCodecRoundTrip(t *testing.T) {
	c := rawCodec{}
	if c.Name() != rawCodecName {
		t.Fatalf("Name() = %q, want %q", c.Name(), rawCodecName)
	}

	in := []byte(`{"Success":true}`)
	encoded, err := c.Marshal(&in)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	if string(encoded) != string(in) {
		t.Fatalf("Marshal round trip mismatch: got %q, want %q", encoded, in)
	}

	var out []byte
	if err := c.Unmarshal(encoded, &out); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if string(out) != string(in) {
		t.Fatalf("Unmarshal round trip mismatch: got %q, want %q", out, in)
	}
}

func TestRawCodecUnmarshalReusesBacking(t *testing.T) {
	c := rawCodec{}
	out := make([]byte, 0, 64)
	if err := c.Unmarshal([]byte("hello"), &out); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if string(out) != "hello" {
		t.Fatalf("got %q, want %q", out, "hello")
	}
	// A second, shorter payload must not leak the first payload's tail.
	if err := c.Unmarshal([]byte("hi"), &out); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if string(out) != "hi" {
		t.Fatalf("got %q, want %q", out, "hi")
	}
}

func TestRawCodecRejectsWrongTypes(t *testing.T) {
	c := rawCodec{}
	if _, err := c.Marshal("not a []byte"); err == nil {
		t.Fatal("expected Marshal to reject a non-[]byte message")
	}
	var notAPointer []byte
	if err := c.Unmarshal([]byte("x"), notAPointer); err == nil {
		t.Fatal("expected Unmarshal to reject a non-*[]byte destination")
	}
}

func TestTransportCachesClientsPerAPI(t *testing.T) {
	tr := New("https://achievements.example", nil)

	a1 := tr.clientFor(server.APILogin)
	a2 := tr.clientFor(server.APILogin)
	if a1 != a2 {
		t.Fatal("expected clientFor to cache and reuse the same connect.Client for the same API")
	}

	b := tr.clientFor(server.APIPing)
	if a1 == b {
		t.Fatal("expected distinct connect.Client instances for distinct APIs")
	}
}
