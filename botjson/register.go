package botjson

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"sort"
	"sync"
)

var (
	ErrDuplicateMethod    = errors.New("duplicate method")
	ErrInvalidType        = errors.New("invalid type")
	ErrUnregisteredMethod = errors.New("unregistered method")
	ErrInvalidParams      = errors.New("invalid params")
)

// UsageFlag define flags that specify additional properties about the
// circumstances under which a command can be used.
type UsageFlag uint32

const (
	// UFWebsocketOnly indicates that the command can only be used when
	// communicating with the gateway over websockets.
	UFWebsocketOnly UsageFlag = 1 << iota

	// UFNotification indicates that the command is actually a notification.
	// This means when it is marshalled, the ID must be nil.
	UFNotification

	// UFNoDebounce indicates that the command is answered without checking
	// the per user rate limit.
	UFNoDebounce

	// highestUsageFlagBit is the maximum usage flag bit and is used in the
	// stringer and tests to ensure all of the above constants have been
	// tested.
	highestUsageFlagBit
)

// Map of UsageFlag values back to their constant names for pretty printing.
var usageFlagStrings = map[UsageFlag]string{
	UFWebsocketOnly: "UFWebsocketOnly",
	UFNotification:  "UFNotification",
	UFNoDebounce:    "UFNoDebounce",
}

// String returns the UsageFlag in human-readable form.
func (fl UsageFlag) String() string {
	// No flags are set.
	if fl == 0 {
		return "0x0"
	}

	// Add individual bit flags.
	s := ""
	for flag := UFWebsocketOnly; flag < highestUsageFlagBit; flag <<= 1 {
		if fl&flag == flag {
			s += usageFlagStrings[flag] + "|"
			fl -= flag
		}
	}

	// Add remaining value as raw hex.
	s = s[:len(s)-1]
	if fl != 0 {
		s += "|0x" + fmt.Sprintf("%x", uint32(fl))
	}
	return s
}

type methodInfo struct {
	flags UsageFlag
	rt    reflect.Type
}

var (
	registerLock sync.RWMutex

	methodToInfo     = make(map[string]methodInfo)
	concreteToMethod = make(map[reflect.Type]string)
)

// RegisterCmd registers a new command that will automatically marshal to and
// from JSON-RPC with full type checking.  It also accepts usage flags which
// identify the circumstances under which the command can be used.
//
// The command must be a pointer to a struct (or nil pointer of that type).
func RegisterCmd(method string, cmd interface{}, flags UsageFlag) error {
	registerLock.Lock()
	defer registerLock.Unlock()

	if _, ok := methodToInfo[method]; ok {
		return fmt.Errorf("%w: method %q is already registered", ErrDuplicateMethod, method)
	}

	rtp := reflect.TypeOf(cmd)
	if rtp == nil || rtp.Kind() != reflect.Ptr || rtp.Elem().Kind() != reflect.Struct {
		return fmt.Errorf("%w: type must be *struct not '%s'", ErrInvalidType, rtp)
	}
	rt := rtp.Elem()

	methodToInfo[method] = methodInfo{flags: flags, rt: rt}
	concreteToMethod[rtp] = method
	return nil
}

// MustRegisterCmd performs the same function as RegisterCmd except it panics
// if there is an error.  This should only be called from package init
// functions.
func MustRegisterCmd(method string, cmd interface{}, flags UsageFlag) {
	if err := RegisterCmd(method, cmd, flags); err != nil {
		panic(fmt.Sprintf("failed to register type %q: %v\n", method, err))
	}
}

// RegisteredCmdMethods returns a sorted list of methods for all registered
// commands.
func RegisteredCmdMethods() []string {
	registerLock.RLock()
	defer registerLock.RUnlock()

	methods := make([]string, 0, len(methodToInfo))
	for k := range methodToInfo {
		methods = append(methods, k)
	}

	sort.Strings(methods)
	return methods
}

// MethodUsageFlags returns the usage flags for the passed command method.
func MethodUsageFlags(method string) (UsageFlag, error) {
	registerLock.RLock()
	info, ok := methodToInfo[method]
	registerLock.RUnlock()
	if !ok {
		return 0, fmt.Errorf("%w: %q", ErrUnregisteredMethod, method)
	}
	return info.flags, nil
}

// CmdMethod returns the method for the passed command.  The provided command
// type must be a registered type.
func CmdMethod(cmd interface{}) (string, error) {
	rt := reflect.TypeOf(cmd)

	registerLock.RLock()
	method, ok := concreteToMethod[rt]
	registerLock.RUnlock()
	if !ok {
		return "", fmt.Errorf("%w: type %v", ErrUnregisteredMethod, rt)
	}
	return method, nil
}

// UnmarshalCmd unmarshals a JSON-RPC request into a suitable concrete command
// so long as the method type contained within the marshalled request is
// registered.  Unknown members of the params object are rejected.
func UnmarshalCmd(r *Request) (interface{}, error) {
	registerLock.RLock()
	info, ok := methodToInfo[r.Method]
	registerLock.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnregisteredMethod, r.Method)
	}

	rvp := reflect.New(info.rt)
	cmd := rvp.Interface()

	params := bytes.TrimSpace(r.Params)
	if len(params) == 0 || bytes.Equal(params, []byte("null")) {
		return cmd, nil
	}
	if params[0] != '{' {
		return nil, fmt.Errorf("%w: params of %q must be an object", ErrInvalidParams, r.Method)
	}

	dec := json.NewDecoder(bytes.NewReader(params))
	dec.DisallowUnknownFields()
	if err := dec.Decode(cmd); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidParams, err)
	}
	return cmd, nil
}

// MarshalCmd marshals the passed command to a JSON-RPC request byte slice
// that is suitable for transmission to the gateway.
func MarshalCmd(id interface{}, cmd interface{}) ([]byte, error) {
	method, err := CmdMethod(cmd)
	if err != nil {
		return nil, err
	}
	request, err := NewRequest(id, method, cmd)
	if err != nil {
		return nil, err
	}
	return json.Marshal(request)
}
