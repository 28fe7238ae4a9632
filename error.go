package soltoken

import (
	"fmt"
)

var (
	ErrKeyFormat           = fmt.Errorf("invalid secret key format")
	ErrDerivationExhausted = fmt.Errorf("program address derivation exhausted")
	ErrInvalidSeeds        = fmt.Errorf("invalid derivation seeds")
	ErrBuilderUnavailable  = fmt.Errorf("builder service unavailable")
	ErrBuilderRejected     = fmt.Errorf("builder service rejected request")
	ErrMalformedResponse   = fmt.Errorf("malformed builder response")
	ErrSigning             = fmt.Errorf("unable to sign transaction")
	ErrBroadcastRejected   = fmt.Errorf("broadcast rejected")
	ErrTransport           = fmt.Errorf("transport failure")
	ErrQuery               = fmt.Errorf("query failed")
	ErrRpcFailed           = fmt.Errorf("rpc failed")
	ErrNotEnoughFunds      = fmt.Errorf("not enough funds")
	ErrUnknownUser         = fmt.Errorf("unknown user")
	ErrSubmissionNotFound  = fmt.Errorf("submission not found")
)

// AllErrors lets remote error strings be mapped back to their sentinel, so
// callers can test with errors.Is across the service boundary.
var AllErrors = []error{
	ErrKeyFormat,
	ErrDerivationExhausted,
	ErrInvalidSeeds,
	ErrBuilderUnavailable,
	ErrBuilderRejected,
	ErrMalformedResponse,
	ErrSigning,
	ErrBroadcastRejected,
	ErrTransport,
	ErrQuery,
	ErrRpcFailed,
	ErrNotEnoughFunds,
	ErrUnknownUser,
}
