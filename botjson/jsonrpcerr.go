package botjson

// Standard JSON-RPC 2.0 errors.
var (
	ErrRPCInvalidRequest = &RPCError{
		Code:    -32600,
		Message: "Invalid request",
	}
	ErrRPCMethodNotFound = &RPCError{
		Code:    -32601,
		Message: "Method not found",
	}
	ErrRPCInvalidParams = &RPCError{
		Code:    -32602,
		Message: "Invalid parameters",
	}
	ErrRPCInternal = &RPCError{
		Code:    -32603,
		Message: "Internal error",
	}
	ErrRPCParse = &RPCError{
		Code:    -32700,
		Message: "Parse error",
	}
)

var (
	ErrMissingUser = &RPCError{
		Code:    400,
		Message: "Missing user",
	}
	ErrHashRateParse = &RPCError{
		Code:    401,
		Message: "Unable to parse hash rate, try e.g. 15 TH/s",
	}
	ErrInvalidInput = &RPCError{
		Code:    402,
		Message: "Invalid input",
	}
	ErrInvalidAmount = &RPCError{
		Code:    403,
		Message: "Amount must be positive",
	}
	ErrAddressInvalid = &RPCError{
		Code:    404,
		Message: "Address invalid",
	}
	ErrSelfTip = &RPCError{
		Code:    405,
		Message: "You cannot tip yourself",
	}
	ErrDuplicateTip = &RPCError{
		Code:    406,
		Message: "Tip already processed",
	}
	ErrWalletNotFound = &RPCError{
		Code:    407,
		Message: "No wallet yet, create one first",
	}
	ErrInsufficientBalance = &RPCError{
		Code:    408,
		Message: "Insufficient balance",
	}
	ErrWalletUnavailable = &RPCError{
		Code:    409,
		Message: "Wallet service unavailable",
	}
	ErrRateLimited = &RPCError{
		Code:    429,
		Message: "Rate limited",
	}
	ErrInternal = &RPCError{
		Code:    500,
		Message: "Internal error",
	}
	ErrUpstreamUnavailable = &RPCError{
		Code:    502,
		Message: "Data source unavailable, please try again later",
	}
	ErrServiceDisabled = &RPCError{
		Code:    503,
		Message: "Service disabled",
	}
	ErrExceedClientLimit = &RPCError{
		Code:    504,
		Message: "Client limitation exceed, please try again later",
	}
)
