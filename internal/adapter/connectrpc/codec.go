package connectrpc

import (
	"bytes"

	json "github.com/goccy/go-json"
)

// jsonCodec replaces connect's protobuf-only JSON codec so plain structs can be
// used as messages. It serves both application/json and application/connect+json.
type jsonCodec struct{}

func (jsonCodec) Name() string { return "json" }

func (jsonCodec) Marshal(msg any) ([]byte, error) {
	return json.Marshal(msg)
}

// Unmarshal accepts an empty body as an empty message.
func (jsonCodec) Unmarshal(data []byte, msg any) error {
	if len(bytes.TrimSpace(data)) == 0 {
		return nil
	}
	return json.Unmarshal(data, msg)
}
