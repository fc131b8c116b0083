package scripting

import (
	"fmt"
	"math"
	"math/big"

	"github.com/dop251/goja"

	"github.com/MJE43/pf-blackjack/internal/session"
)

// injectConstants sets read-only action constants on the JS runtime.
func injectConstants(vm *goja.Runtime) {
	vm.Set("STAND", string(session.ActionStand))
	vm.Set("HIT", string(session.ActionHit))
	vm.Set("DOUBLE", string(session.ActionDouble))
	vm.Set("SPLIT", string(session.ActionSplit))
	vm.Set("INSURANCE", string(session.ActionInsurance))
}

// Decision is a parsed decide() result.
type Decision struct {
	Action session.Action
	Stake  *big.Int // insurance stake, nil otherwise
}

// handState builds the object passed to decide(). Only information visible
// to the player is included.
func handState(s *session.Session) map[string]any {
	active := s.Active()
	cards := make([]string, len(active.Cards))
	for i, c := range active.Cards {
		cards[i] = c.String()
	}
	actions := make([]string, 0, 5)
	for _, a := range s.Actions() {
		actions = append(actions, string(a))
	}
	up := s.UpCard()

	return map[string]any{
		"hand": map[string]any{
			"cards":     cards,
			"value":     active.Value,
			"soft":      active.IsSoft,
			"blackjack": active.IsBlackjack,
			"pair":      active.CanSplit(),
			"bet":       active.Bet.String(),
		},
		"hand_index": s.CurrentHandIndex,
		"hands":      len(s.Hands),
		"dealer": map[string]any{
			"up":    up.String(),
			"rank":  string(up.Rank),
			"value": up.Value(),
		},
		"actions":    actions,
		"can_double": s.CanDouble(),
		"can_split":  s.CanSplit(),
		"can_insure": s.CanInsure(),
		"bet":        s.TotalBet().String(),
	}
}

// parseDecision accepts either an action name or {action, stake}.
func parseDecision(v goja.Value) (Decision, error) {
	if v == nil || goja.IsUndefined(v) || goja.IsNull(v) {
		return Decision{}, fmt.Errorf("decide() returned nothing")
	}

	switch out := v.Export().(type) {
	case string:
		return decisionFor(out, nil)
	case map[string]any:
		name, _ := out["action"].(string)
		var stake *big.Int
		if raw, ok := out["stake"]; ok && raw != nil {
			var err error
			if stake, err = toWei(raw); err != nil {
				return Decision{}, err
			}
		}
		return decisionFor(name, stake)
	default:
		return Decision{}, fmt.Errorf("decide() returned %T, want string or object", out)
	}
}

func decisionFor(name string, stake *big.Int) (Decision, error) {
	a, ok := session.ParseAction(name)
	if !ok {
		return Decision{}, fmt.Errorf("decide() returned unknown action %q", name)
	}
	return Decision{Action: a, Stake: stake}, nil
}

// toWei converts a JS string or integral number into a wei amount.
func toWei(raw any) (*big.Int, error) {
	switch v := raw.(type) {
	case string:
		n, ok := new(big.Int).SetString(v, 10)
		if !ok {
			return nil, fmt.Errorf("invalid amount %q", v)
		}
		return n, nil
	case int64:
		return big.NewInt(v), nil
	case float64:
		if v != math.Trunc(v) || math.IsInf(v, 0) || math.Abs(v) > 1<<53 {
			return nil, fmt.Errorf("amount %v is not a safe integer, pass a string", v)
		}
		return big.NewInt(int64(v)), nil
	default:
		return nil, fmt.Errorf("invalid amount of type %T", raw)
	}
}
