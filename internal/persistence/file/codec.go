package file

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/fxamacker/cbor/v2"

	"github.com/example/reservation-engine/internal/persistence"
)

// Codec encodes and decodes snapshots.
type Codec interface {
	Name() string
	Marshal(persistence.Snapshot) ([]byte, error)
	Unmarshal([]byte, *persistence.Snapshot) error
}

// JSONCodec writes indented JSON snapshots.
type JSONCodec struct{}

func (JSONCodec) Name() string { return "json" }

func (JSONCodec) Marshal(s persistence.Snapshot) ([]byte, error) {
	return json.MarshalIndent(s, "", "  ")
}

func (JSONCodec) Unmarshal(data []byte, s *persistence.Snapshot) error {
	return json.Unmarshal(data, s)
}

// CBORCodec writes snapshots using Core Deterministic Encoding, so identical
// booking sets produce identical bytes.
type CBORCodec struct {
	enc cbor.EncMode
	dec cbor.DecMode
}

// NewCBORCodec builds a CBORCodec.
func NewCBORCodec() (*CBORCodec, error) {
	enc, err := cbor.CoreDetEncOptions().EncMode()
	if err != nil {
		return nil, fmt.Errorf("file: cbor encoder: %w", err)
	}
	dec, err := cbor.DecOptions{}.DecMode()
	if err != nil {
		return nil, fmt.Errorf("file: cbor decoder: %w", err)
	}
	return &CBORCodec{enc: enc, dec: dec}, nil
}

func (*CBORCodec) Name() string { return "cbor" }

func (c *CBORCodec) Marshal(s persistence.Snapshot) ([]byte, error) {
	return c.enc.Marshal(s)
}

func (c *CBORCodec) Unmarshal(data []byte, s *persistence.Snapshot) error {
	return c.dec.Unmarshal(data, s)
}

// CodecByName resolves "json" (or empty) and "cbor".
func CodecByName(name string) (Codec, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "json":
		return JSONCodec{}, nil
	case "cbor":
		return NewCBORCodec()
	}
	return nil, fmt.Errorf("file: unknown snapshot codec %q", name)
}
