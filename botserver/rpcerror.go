package botserver

import (
	"context"
	"errors"
	"net"

	"github.com/kasbot/kasbot-server/botjson"
	"github.com/kasbot/kasbot-server/errcode"
)

// internalRPCError is a convenience function to convert an internal error to
// an RPC error with the appropriate code set.  It also logs the error to the
// gateway subsystem since internal errors really should not occur.  The
// context parameter is only used in the log message and may be empty if it's
// not needed.
func internalRPCError(errStr, context string) *botjson.RPCError {
	logStr := errStr
	if context != "" {
		logStr = context + ": " + errStr
	}
	log.Error(logStr)
	return botjson.NewRPCError(botjson.ErrRPCInternal.Code, errStr)
}

// rpcErrorFor converts an error returned by a handler to the RPC error shown
// to the chat user.
func rpcErrorFor(err error, method string) *botjson.RPCError {
	var rpcErr *botjson.RPCError
	if errors.As(err, &rpcErr) {
		return rpcErr
	}

	var netErr net.Error
	switch {
	case errors.Is(err, errcode.ErrHashRateParse):
		return botjson.ErrHashRateParse
	case errors.Is(err, errcode.ErrInvalidAmount):
		return botjson.ErrInvalidAmount
	case errors.Is(err, errcode.ErrInvalidAddress):
		return botjson.ErrAddressInvalid
	case errors.Is(err, errcode.ErrSelfTip):
		return botjson.ErrSelfTip
	case errors.Is(err, errcode.ErrDuplicateTip):
		return botjson.ErrDuplicateTip
	case errors.Is(err, errcode.ErrWalletNotFound):
		return botjson.ErrWalletNotFound
	case errors.Is(err, errcode.ErrWalletInsufficientBalance):
		return botjson.ErrInsufficientBalance
	case errors.Is(err, errcode.ErrWalletPasswordIncorrect),
		errors.Is(err, errcode.ErrWalletCreation),
		errors.Is(err, errcode.ErrWalletTransaction):
		log.Warnf("Wallet service failed <%s>: %v", method, err)
		return botjson.ErrWalletUnavailable
	case errors.Is(err, errcode.ErrInvalidInput):
		return botjson.ErrInvalidInput.WithMessage(err.Error())
	case errors.Is(err, errcode.ErrServiceDisabled):
		return botjson.ErrServiceDisabled
	case errors.Is(err, errcode.ErrRateLimited):
		return botjson.ErrRateLimited
	case errors.Is(err, errcode.ErrUpstreamStatus),
		errors.Is(err, errcode.ErrUpstreamResponse),
		errors.Is(err, context.DeadlineExceeded),
		errors.As(err, &netErr):
		log.Warnf("Data source failed <%s>: %v", method, err)
		return botjson.ErrUpstreamUnavailable
	}
	return internalRPCError(err.Error(), method)
}
