package games

import (
	"errors"
	"fmt"
)

// Error taxonomy shared by the session, verifier and transport layers.
// Callers classify with errors.Is.
var (
	ErrValidation        = errors.New("validation error")
	ErrInsufficientFunds = errors.New("insufficient funds")
	ErrIllegalAction     = errors.New("illegal action")
	ErrIntegrity         = errors.New("integrity failure")
)

var (
	ErrHashMismatch    = fmt.Errorf("%w: server seed does not match committed hash", ErrIntegrity)
	ErrCardMismatch    = fmt.Errorf("%w: recorded cards do not match recomputed deck", ErrIntegrity)
	ErrSessionNotFound = fmt.Errorf("%w: game not found", ErrIllegalAction)
	ErrNotOwner        = fmt.Errorf("%w: game belongs to another player", ErrValidation)
	ErrDeckExhausted   = errors.New("deck exhausted")
)
