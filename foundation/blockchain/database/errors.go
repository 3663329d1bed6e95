package database

import "errors"

// Set of error variables for validating blocks and transactions. Every
// failure returned by this package wraps one of these so callers can use
// errors.Is to classify the rejection.
var (
	ErrStructural        = errors.New("malformed structure")
	ErrHashMismatch      = errors.New("hash mismatch")
	ErrLinkage           = errors.New("block does not link to the chain")
	ErrConservation      = errors.New("input and output amounts differ")
	ErrInvalidSignature  = errors.New("invalid signature")
	ErrMissingReference  = errors.New("referenced output not found")
	ErrDuplicateSpend    = errors.New("output spent more than once")
	ErrInsufficientFunds = errors.New("insufficient funds")
	ErrInvalidAddress    = errors.New("invalid address")
	ErrDifficulty        = errors.New("invalid difficulty")
	ErrStake             = errors.New("invalid stake")
	ErrChainTooShort     = errors.New("chain is not longer than the current chain")
)
