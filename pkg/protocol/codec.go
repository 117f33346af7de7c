package protocol

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/vmihailenco/msgpack/v5"
)

// Common codec errors.
var (
	ErrInvalidMessage = errors.New("invalid message format")
	ErrUnknownCodec   = errors.New("unknown codec type")
)

// Websocket subprotocols understood by the live endpoint.
const (
	SubprotocolJSON    = "intake.json"
	SubprotocolMsgPack = "intake.msgpack"
)

// Codec handles message encoding/decoding.
type Codec interface {
	// Encode serializes a message to bytes.
	Encode(msg *Message) ([]byte, error)

	// Decode deserializes bytes to a message.
	Decode(data []byte) (*Message, error)

	// Name returns the codec name.
	Name() string

	// Subprotocol returns the websocket subprotocol that selects this codec.
	Subprotocol() string

	// Binary reports whether frames are sent as binary rather than text.
	Binary() bool
}

// JSONCodec implements Codec using JSON encoding.
type JSONCodec struct{}

// NewJSONCodec creates a new JSON codec.
func NewJSONCodec() *JSONCodec {
	return &JSONCodec{}
}

// Encode encodes a message to JSON.
func (c *JSONCodec) Encode(msg *Message) ([]byte, error) {
	return json.Marshal(msg)
}

// Decode decodes JSON to a message.
func (c *JSONCodec) Decode(data []byte) (*Message, error) {
	var msg Message
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidMessage, err)
	}
	return &msg, nil
}

// Name returns "json".
func (c *JSONCodec) Name() string {
	return "json"
}

// Subprotocol returns SubprotocolJSON.
func (c *JSONCodec) Subprotocol() string {
	return SubprotocolJSON
}

// Binary returns false.
func (c *JSONCodec) Binary() bool {
	return false
}

// MsgPackCodec implements Codec using MessagePack encoding. Payload structs
// are encoded by their json tags so both codecs expose the same keys, and
// numbers decode loosely into int64 and float64.
type MsgPackCodec struct{}

// NewMsgPackCodec creates a new MsgPack codec.
func NewMsgPackCodec() *MsgPackCodec {
	return &MsgPackCodec{}
}

// Encode encodes a message to MsgPack.
func (c *MsgPackCodec) Encode(msg *Message) ([]byte, error) {
	var buf bytes.Buffer
	enc := msgpack.NewEncoder(&buf)
	enc.SetCustomStructTag("json")
	if err := enc.Encode(msg); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Decode decodes MsgPack to a message.
func (c *MsgPackCodec) Decode(data []byte) (*Message, error) {
	dec := msgpack.NewDecoder(bytes.NewReader(data))
	dec.SetCustomStructTag("json")
	dec.UseLooseInterfaceDecoding(true)

	var msg Message
	if err := dec.Decode(&msg); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidMessage, err)
	}
	return &msg, nil
}

// Name returns "msgpack".
func (c *MsgPackCodec) Name() string {
	return "msgpack"
}

// Subprotocol returns SubprotocolMsgPack.
func (c *MsgPackCodec) Subprotocol() string {
	return SubprotocolMsgPack
}

// Binary returns true.
func (c *MsgPackCodec) Binary() bool {
	return true
}

// CodecRegistry manages available codecs, keyed by subprotocol.
type CodecRegistry struct {
	codecs   map[string]Codec
	order    []string
	fallback Codec
	mu       sync.RWMutex
}

// NewCodecRegistry creates a registry holding the JSON and MsgPack codecs,
// with JSON as the default.
func NewCodecRegistry() *CodecRegistry {
	r := &CodecRegistry{
		codecs: make(map[string]Codec),
	}
	r.Register(NewJSONCodec())
	r.Register(NewMsgPackCodec())
	r.fallback = r.codecs[SubprotocolJSON]
	return r
}

// Register adds a codec to the registry.
func (r *CodecRegistry) Register(codec Codec) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.codecs[codec.Subprotocol()]; !ok {
		r.order = append(r.order, codec.Subprotocol())
	}
	r.codecs[codec.Subprotocol()] = codec
}

// Get retrieves a codec by subprotocol.
func (r *CodecRegistry) Get(subprotocol string) (Codec, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.codecs[subprotocol]
	return c, ok
}

// Subprotocols lists registered subprotocols in registration order.
func (r *CodecRegistry) Subprotocols() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]string(nil), r.order...)
}

// Default returns the codec used when no subprotocol was negotiated.
func (r *CodecRegistry) Default() Codec {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.fallback
}

// SetDefault sets the default codec.
func (r *CodecRegistry) SetDefault(subprotocol string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.codecs[subprotocol]
	if !ok {
		return ErrUnknownCodec
	}
	r.fallback = c
	return nil
}

// Select returns the codec for a negotiated subprotocol, or the default.
func (r *CodecRegistry) Select(subprotocol string) Codec {
	if c, ok := r.Get(subprotocol); ok {
		return c
	}
	return r.Default()
}

func decodeBase64(s string) ([]byte, error) {
	if s == "" {
		return nil, nil
	}
	data, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidMessage, err)
	}
	return data, nil
}
