package types

import "fmt"

// ErrorKind classifies engine failures. Every rejected operation surfaces
// exactly one kind and leaves state unchanged.
type ErrorKind int

const (
	// KindValidation marks bad input bounds (stake limits, confidence floor).
	KindValidation ErrorKind = iota
	// KindState marks operations invalid for the current lifecycle state.
	KindState
	// KindIdempotency marks double submission (report, claim, refund).
	KindIdempotency
	// KindInsolvency marks operations that would break value conservation.
	KindInsolvency
)

func (k ErrorKind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindState:
		return "state"
	case KindIdempotency:
		return "idempotency"
	case KindInsolvency:
		return "insolvency"
	}
	return "unknown"
}

// Engine error codes.
const (
	CodeMarketClosed          = "MARKET_CLOSED"
	CodeMarketNotFound        = "MARKET_NOT_FOUND"
	CodeMarketNotResolved     = "MARKET_NOT_RESOLVED"
	CodeMarketNotCancelled    = "MARKET_NOT_CANCELLED"
	CodeMarketNotExpired      = "MARKET_NOT_EXPIRED"
	CodeStakeOutOfBounds      = "STAKE_OUT_OF_BOUNDS"
	CodeInvalidPosition       = "INVALID_POSITION"
	CodeInvalidAmount         = "INVALID_AMOUNT"
	CodeSourceNotVerified     = "SOURCE_NOT_VERIFIED"
	CodeSourceNotFound        = "SOURCE_NOT_FOUND"
	CodeConfidenceTooLow      = "CONFIDENCE_TOO_LOW"
	CodeAlreadyReported       = "ALREADY_REPORTED"
	CodeAlreadyFinalized      = "ALREADY_FINALIZED"
	CodeNotFinalized          = "NOT_FINALIZED"
	CodeDisputeWindowClosed   = "DISPUTE_WINDOW_CLOSED"
	CodeDisputePending        = "DISPUTE_PENDING"
	CodeDisputeStakeTooLow    = "DISPUTE_STAKE_TOO_LOW"
	CodeDisputeNotFound       = "DISPUTE_NOT_FOUND"
	CodeDisputeResolved       = "DISPUTE_RESOLVED"
	CodeNotGovernance         = "NOT_GOVERNANCE"
	CodeAlreadyClaimed        = "ALREADY_CLAIMED"
	CodeAlreadyRefunded       = "ALREADY_REFUNDED"
	CodeNoWinningStake        = "NO_WINNING_STAKE"
	CodeNoStake               = "NO_STAKE"
	CodeSlippageExceeded      = "SLIPPAGE_EXCEEDED"
	CodeInsufficientLiquidity = "INSUFFICIENT_LIQUIDITY"
	CodeInsufficientShares    = "INSUFFICIENT_SHARES"
	CodeTransferFailed        = "TRANSFER_FAILED"
)

// Error is the engine error type. Errors with the same code compare equal
// under errors.Is, so callers can match against the sentinel vars below
// while the engine attaches per-call detail messages.
type Error struct {
	Kind    ErrorKind
	Code    string
	Message string
}

func (e *Error) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("%s (%s)", e.Code, e.Kind)
	}
	return fmt.Sprintf("%s: %s (%s)", e.Code, e.Message, e.Kind)
}

// Is matches by code so wrapped instances compare equal to sentinels.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

// NewValidation builds a KindValidation error.
func NewValidation(code, msg string) *Error {
	return &Error{Kind: KindValidation, Code: code, Message: msg}
}

// NewState builds a KindState error.
func NewState(code, msg string) *Error {
	return &Error{Kind: KindState, Code: code, Message: msg}
}

// NewIdempotency builds a KindIdempotency error.
func NewIdempotency(code, msg string) *Error {
	return &Error{Kind: KindIdempotency, Code: code, Message: msg}
}

// NewInsolvency builds a KindInsolvency error.
func NewInsolvency(code, msg string) *Error {
	return &Error{Kind: KindInsolvency, Code: code, Message: msg}
}

// Sentinel errors for errors.Is matching.
var (
	ErrMarketClosed          = NewState(CodeMarketClosed, "")
	ErrMarketNotFound        = NewValidation(CodeMarketNotFound, "")
	ErrMarketNotResolved     = NewState(CodeMarketNotResolved, "")
	ErrMarketNotCancelled    = NewState(CodeMarketNotCancelled, "")
	ErrMarketNotExpired      = NewState(CodeMarketNotExpired, "")
	ErrStakeOutOfBounds      = NewValidation(CodeStakeOutOfBounds, "")
	ErrInvalidAmount         = NewValidation(CodeInvalidAmount, "")
	ErrSourceNotVerified     = NewValidation(CodeSourceNotVerified, "")
	ErrSourceNotFound        = NewValidation(CodeSourceNotFound, "")
	ErrConfidenceTooLow      = NewValidation(CodeConfidenceTooLow, "")
	ErrAlreadyReported       = NewIdempotency(CodeAlreadyReported, "")
	ErrAlreadyFinalized      = NewIdempotency(CodeAlreadyFinalized, "")
	ErrNotFinalized          = NewState(CodeNotFinalized, "")
	ErrDisputeWindowClosed   = NewState(CodeDisputeWindowClosed, "")
	ErrDisputePending        = NewState(CodeDisputePending, "")
	ErrDisputeStakeTooLow    = NewValidation(CodeDisputeStakeTooLow, "")
	ErrDisputeNotFound       = NewValidation(CodeDisputeNotFound, "")
	ErrDisputeResolved       = NewIdempotency(CodeDisputeResolved, "")
	ErrNotGovernance         = NewState(CodeNotGovernance, "")
	ErrAlreadyClaimed        = NewIdempotency(CodeAlreadyClaimed, "")
	ErrAlreadyRefunded       = NewIdempotency(CodeAlreadyRefunded, "")
	ErrNoWinningStake        = NewValidation(CodeNoWinningStake, "")
	ErrNoStake               = NewValidation(CodeNoStake, "")
	ErrSlippageExceeded      = NewValidation(CodeSlippageExceeded, "")
	ErrInsufficientLiquidity = NewInsolvency(CodeInsufficientLiquidity, "")
	ErrInsufficientShares    = NewValidation(CodeInsufficientShares, "")
	ErrTransferFailed        = NewState(CodeTransferFailed, "")
)

// KindOf returns the kind of an engine error, or KindState for foreign errors.
func KindOf(err error) ErrorKind {
	if e, ok := err.(*Error); ok {
		return e.Kind
	}
	return KindState
}
