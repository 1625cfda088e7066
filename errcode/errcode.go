package errcode

import "errors"

var (
	ErrNilGormDB = errors.New("nil gorm db")

	// ErrConfiguration is returned when a static configuration such as the
	// emission table fails its load time checks.
	ErrConfiguration = errors.New("configuration error")

	// ErrHashRateParse is returned when a hash rate expression carries no
	// numeric magnitude.
	ErrHashRateParse = errors.New("unable to parse hash rate")

	// ErrInvalidInput is returned for negative or zero values that have no
	// meaningful result, such as a zero network hash rate.
	ErrInvalidInput = errors.New("invalid input")
)

// Errors reported by the custodial wallet service.
var (
	ErrWalletNotFound            = errors.New("wallet not found")
	ErrWalletPasswordIncorrect   = errors.New("wallet password incorrect")
	ErrWalletCreation            = errors.New("unable to create wallet")
	ErrWalletInsufficientBalance = errors.New("insufficient wallet balance")
	ErrWalletTransaction         = errors.New("unable to create transaction")
)

// Errors reported by remote data sources.
var (
	ErrUpstreamStatus   = errors.New("unexpected upstream status")
	ErrUpstreamResponse = errors.New("malformed upstream response")
)

// Errors reported by the tipping flow.
var (
	ErrSelfTip         = errors.New("cannot tip yourself")
	ErrInvalidAmount   = errors.New("amount must be positive")
	ErrInvalidAddress  = errors.New("invalid address")
	ErrDuplicateTip    = errors.New("tip already processed")
	ErrRateLimited     = errors.New("rate limited")
	ErrServiceDisabled = errors.New("service disabled")
)
