package runstate

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"io"

	"github.com/klauspost/compress/flate"
	"github.com/vmihailenco/msgpack/v5"
)

// Compress serialises v with msgpack, deflates it and base64 encodes the
// result.
func Compress(v any) ([]byte, error) {
	raw, err := msgpack.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encoding snapshot: %w", err)
	}
	var buf bytes.Buffer
	w, err := flate.NewWriter(&buf, flate.DefaultCompression)
	if err != nil {
		return nil, fmt.Errorf("creating deflate writer: %w", err)
	}
	if _, err := w.Write(raw); err != nil {
		return nil, fmt.Errorf("deflating snapshot: %w", err)
	}
	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("deflating snapshot: %w", err)
	}
	out := make([]byte, base64.StdEncoding.EncodedLen(buf.Len()))
	base64.StdEncoding.Encode(out, buf.Bytes())
	return out, nil
}

// Decompress reverses Compress into v.
func Decompress(data []byte, v any) error {
	raw := make([]byte, base64.StdEncoding.DecodedLen(len(data)))
	n, err := base64.StdEncoding.Decode(raw, data)
	if err != nil {
		return fmt.Errorf("decoding snapshot: %w", err)
	}
	r := flate.NewReader(bytes.NewReader(raw[:n]))
	defer r.Close()
	inflated, err := io.ReadAll(r)
	if err != nil {
		return fmt.Errorf("inflating snapshot: %w", err)
	}
	if err := msgpack.Unmarshal(inflated, v); err != nil {
		return fmt.Errorf("decoding snapshot: %w", err)
	}
	return nil
}
