package scan

import (
	"fmt"

	"github.com/MJE43/pf-blackjack/internal/games"
)

var (
	ErrUnknownMetric = fmt.Errorf("%w: unknown metric", games.ErrValidation)
	ErrUnknownOp     = fmt.Errorf("%w: unknown target op", games.ErrValidation)
	ErrInvalidRange  = fmt.Errorf("%w: invalid nonce range", games.ErrValidation)
)
