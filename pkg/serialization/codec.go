package serialization

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/vmihailenco/msgpack/v5"
	"gopkg.in/yaml.v3"
)

// Codec turns values into bytes and back
type Codec interface {
	Encode(v interface{}) ([]byte, error)
	Decode(data []byte, v interface{}) error
	Name() string
}

// JSONCodec implements JSON serialization
type JSONCodec struct {
	// Indent pretty-prints output with two spaces
	Indent bool
}

func (c *JSONCodec) Encode(v interface{}) ([]byte, error) {
	if c.Indent {
		return json.MarshalIndent(v, "", "  ")
	}
	return json.Marshal(v)
}

func (c *JSONCodec) Decode(data []byte, v interface{}) error {
	return json.Unmarshal(data, v)
}

func (c *JSONCodec) Name() string {
	return "json"
}

// MsgPackCodec implements MessagePack serialization
type MsgPackCodec struct{}

func (c *MsgPackCodec) Encode(v interface{}) ([]byte, error) {
	return msgpack.Marshal(v)
}

func (c *MsgPackCodec) Decode(data []byte, v interface{}) error {
	return msgpack.Unmarshal(data, v)
}

func (c *MsgPackCodec) Name() string {
	return "msgpack"
}

// YAMLCodec implements YAML serialization. Flow files written by hand are
// usually YAML.
type YAMLCodec struct{}

func (c *YAMLCodec) Encode(v interface{}) ([]byte, error) {
	return yaml.Marshal(v)
}

func (c *YAMLCodec) Decode(data []byte, v interface{}) error {
	return yaml.Unmarshal(data, v)
}

func (c *YAMLCodec) Name() string {
	return "yaml"
}

// NewJSONCodec creates a new JSON codec
func NewJSONCodec() Codec {
	return &JSONCodec{}
}

// NewMsgPackCodec creates a new MessagePack codec
func NewMsgPackCodec() Codec {
	return &MsgPackCodec{}
}

// NewYAMLCodec creates a new YAML codec
func NewYAMLCodec() Codec {
	return &YAMLCodec{}
}

// CodecByName resolves a codec from its configured name. "yml" is accepted as
// an alias for "yaml".
func CodecByName(name string) (Codec, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "json":
		return NewJSONCodec(), nil
	case "msgpack":
		return NewMsgPackCodec(), nil
	case "yaml", "yml":
		return NewYAMLCodec(), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownCodec, name)
	}
}
