package botjson

import (
	"encoding/json"
	"fmt"
)

// RPCVersion is the JSON-RPC version spoken by the gateway.
const RPCVersion = "2.0"

// RPCErrorCode represents an error code to be used as a part of an RPCError
// which is in turn used in a JSON-RPC Response object.
type RPCErrorCode int

// RPCError represents an error that is used as a part of a JSON-RPC Response
// object.
type RPCError struct {
	Code    RPCErrorCode `json:"code"`
	Message string       `json:"message"`
}

// Guarantee RPCError satisfies the builtin error interface.
var _, _ error = RPCError{}, (*RPCError)(nil)

// Error returns a string describing the RPC error.  This satisfies the
// builtin error interface.
func (e RPCError) Error() string {
	return fmt.Sprintf("%d: %s", e.Code, e.Message)
}

// NewRPCError constructs and returns a new JSON-RPC error that is suitable
// for use in a JSON-RPC Response object.
func NewRPCError(code RPCErrorCode, message string) *RPCError {
	return &RPCError{
		Code:    code,
		Message: message,
	}
}

// WithMessage returns a copy of the error carrying a more specific message.
func (e *RPCError) WithMessage(message string) *RPCError {
	return NewRPCError(e.Code, message)
}

// IsValidIDType checks that the ID field (which can go in any of the JSON-RPC
// requests, responses, or notifications) is valid.  JSON-RPC 2.0 allows
// strings, numbers, and null.
func IsValidIDType(id interface{}) bool {
	switch id.(type) {
	case int, int8, int16, int32, int64,
		uint, uint8, uint16, uint32, uint64,
		float32, float64,
		string,
		nil:
		return true
	default:
		return false
	}
}

// Request is a type for raw JSON-RPC requests.  Params are by-name, an
// object whose members are the fields of the registered command.
type Request struct {
	Jsonrpc string          `json:"jsonrpc"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params"`
	ID      interface{}     `json:"id"`
}

// NewRequest returns a new JSON-RPC request object given the provided id,
// method, and parameters.  The parameters are marshalled into a
// json.RawMessage for the Params field of the returned request object.
func NewRequest(id interface{}, method string, params interface{}) (*Request, error) {
	if !IsValidIDType(id) {
		return nil, fmt.Errorf("%w: the id of type '%T' is invalid", ErrInvalidType, id)
	}

	var rawParams json.RawMessage
	if params != nil {
		marshalled, err := json.Marshal(params)
		if err != nil {
			return nil, err
		}
		rawParams = marshalled
	}

	return &Request{
		Jsonrpc: RPCVersion,
		ID:      id,
		Method:  method,
		Params:  rawParams,
	}, nil
}

// Response is the general form of a JSON-RPC response.  The type of the
// Result field varies from one command to the next, so it is implemented as
// an interface.  The ID field has to be a pointer to allow for a nil value
// when empty.
type Response struct {
	Jsonrpc string          `json:"jsonrpc"`
	Result  json.RawMessage `json:"result"`
	Error   *RPCError       `json:"error"`
	ID      *interface{}    `json:"id"`
}

// NewResponse returns a new JSON-RPC response object given the provided id,
// marshalled result, and RPC error.  This function is only provided in case
// the caller wants to construct raw responses for some reason.
//
// Typically callers will instead want to create the fully marshalled JSON-RPC
// response to send over the wire with the MarshalResponse function.
func NewResponse(id interface{}, marshalledResult []byte, rpcErr *RPCError) (*Response, error) {
	if !IsValidIDType(id) {
		return nil, fmt.Errorf("%w: the id of type '%T' is invalid", ErrInvalidType, id)
	}

	pid := &id
	return &Response{
		Jsonrpc: RPCVersion,
		Result:  marshalledResult,
		Error:   rpcErr,
		ID:      pid,
	}, nil
}

// MarshalResponse marshals the passed id, result, and RPCError to a JSON-RPC
// response byte slice that is suitable for transmission to a JSON-RPC client.
func MarshalResponse(id interface{}, result interface{}, rpcErr *RPCError) ([]byte, error) {
	marshalledResult, err := json.Marshal(result)
	if err != nil {
		return nil, err
	}
	response, err := NewResponse(id, marshalledResult, rpcErr)
	if err != nil {
		return nil, err
	}
	return json.Marshal(&response)
}

// Notification is a server initiated message without an id, pushed to
// websocket clients.
type Notification struct {
	Jsonrpc string          `json:"jsonrpc"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params"`
}

// MarshalNotification marshals a registered notification command.
func MarshalNotification(ntfn interface{}) ([]byte, error) {
	method, err := CmdMethod(ntfn)
	if err != nil {
		return nil, err
	}
	params, err := json.Marshal(ntfn)
	if err != nil {
		return nil, err
	}
	return json.Marshal(&Notification{
		Jsonrpc: RPCVersion,
		Method:  method,
		Params:  params,
	})
}
