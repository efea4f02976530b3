// Package jsoncodec is the single JSON codec for the gravity wire format.
// It wraps sonic in its encoding/json-compatible configuration so envelope
// serialization behaves identically to the standard library but faster.
package jsoncodec

import (
	"io"

	"github.com/bytedance/sonic"
)

var defaultConfig = sonic.ConfigStd

func Marshal(v any) ([]byte, error) {
	return defaultConfig.Marshal(v)
}

func Unmarshal(data []byte, v any) error {
	return defaultConfig.Unmarshal(data, v)
}

func Encode(w io.Writer, v any) error {
	enc := defaultConfig.NewEncoder(w)
	return enc.Encode(v)
}

func Decode(r io.Reader, v any) error {
	dec := defaultConfig.NewDecoder(r)
	return dec.Decode(v)
}

// Valid reports whether data is well-formed JSON. Used to gate the opaque
// card/question/form payloads, which are intentionally unvalidated beyond this.
func Valid(data []byte) bool {
	return defaultConfig.Valid(data)
}
