// Package rpcjson is a connect codec for plain Go structs encoded as JSON.
package rpcjson

import (
	"encoding/json"
	"fmt"

	"connectrpc.com/connect"
)

// Name is registered under the same name as connect's protobuf JSON codec so
// handlers and clients negotiate application/json.
const Name = "json"

// Codec marshals request and response messages with encoding/json.
type Codec struct{}

var _ connect.Codec = Codec{}

func (Codec) Name() string { return Name }

func (Codec) Marshal(msg any) ([]byte, error) {
	data, err := json.Marshal(msg)
	if err != nil {
		return nil, fmt.Errorf("marshal %T: %w", msg, err)
	}
	return data, nil
}

func (Codec) Unmarshal(data []byte, msg any) error {
	if len(data) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, msg); err != nil {
		return fmt.Errorf("unmarshal %T: %w", msg, err)
	}
	return nil
}

// HandlerOptions returns the options every JSON handler is built with.
func HandlerOptions(opts ...connect.HandlerOption) []connect.HandlerOption {
	return append([]connect.HandlerOption{connect.WithCodec(Codec{})}, opts...)
}

// ClientOptions returns the options every JSON client is built with.
func ClientOptions(opts ...connect.ClientOption) []connect.ClientOption {
	return append([]connect.ClientOption{connect.WithCodec(Codec{})}, opts...)
}
