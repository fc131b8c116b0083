package scripting

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dop251/goja"
	"github.com/rs/zerolog"
)

const (
	scriptInitTimeout = 2 * time.Second
	scriptCallTimeout = 1 * time.Second
)

// errTimedOut is returned when a script is interrupted by its deadline.
var errTimedOut = errors.New("script timed out")

// VM is a sandboxed goja runtime holding one strategy. It is not safe for
// concurrent use; each simulator worker owns one.
type VM struct {
	rt     *goja.Runtime
	logger zerolog.Logger
	stop   bool
}

// NewVM creates a runtime with the strategy globals installed. Script output
// from log() and console.log() goes to logger at debug level.
func NewVM(logger zerolog.Logger) *VM {
	vm := &VM{rt: goja.New(), logger: logger}
	vm.install()
	injectConstants(vm.rt)
	return vm
}

func (vm *VM) install() {
	logFn := func(call goja.FunctionCall) goja.Value {
		parts := make([]string, len(call.Arguments))
		for i, arg := range call.Arguments {
			parts[i] = arg.String()
		}
		vm.logger.Debug().Str("line", strings.Join(parts, " ")).Msg("script_log")
		return goja.Undefined()
	}
	_ = vm.rt.Set("log", logFn)

	console := vm.rt.NewObject()
	_ = console.Set("log", logFn)
	_ = vm.rt.Set("console", console)

	_ = vm.rt.Set("stop", func(goja.FunctionCall) goja.Value {
		vm.stop = true
		return goja.Undefined()
	})

	for _, name := range []string{"require", "fetch", "XMLHttpRequest", "eval", "Function"} {
		_ = vm.rt.Set(name, goja.Undefined())
	}
}

// Execute loads the strategy source. It must define decide(state) and may
// define nextbet(stats).
func (vm *VM) Execute(source string) error {
	err := vm.withDeadline(scriptInitTimeout, func() error {
		_, err := vm.rt.RunString(source)
		return err
	})
	if err != nil {
		return fmt.Errorf("script execution error: %w", err)
	}
	if _, ok := vm.function("decide"); !ok {
		return errors.New("script must define a decide(state) function")
	}
	return nil
}

// CallDecide asks the script for the next action.
func (vm *VM) CallDecide(state map[string]any) (Decision, error) {
	out, err := vm.call("decide", state)
	if err != nil {
		return Decision{}, err
	}
	return parseDecision(out)
}

// HasNextBet reports whether the script sizes its own bets.
func (vm *VM) HasNextBet() bool {
	_, ok := vm.function("nextbet")
	return ok
}

// CallNextBet asks the script for the next stake given the running stats.
func (vm *VM) CallNextBet(stats map[string]any) (goja.Value, error) {
	return vm.call("nextbet", stats)
}

// Stopped reports whether the script has called stop().
func (vm *VM) Stopped() bool {
	return vm.stop
}

func (vm *VM) call(name string, arg map[string]any) (goja.Value, error) {
	fn, ok := vm.function(name)
	if !ok {
		return nil, fmt.Errorf("%s() function is not defined", name)
	}
	var out goja.Value
	err := vm.withDeadline(scriptCallTimeout, func() error {
		v, err := fn(goja.Undefined(), vm.rt.ToValue(arg))
		out = v
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("%s(): %w", name, err)
	}
	return out, nil
}

func (vm *VM) function(name string) (goja.Callable, bool) {
	v := vm.rt.Get(name)
	if v == nil || goja.IsUndefined(v) || goja.IsNull(v) {
		return nil, false
	}
	return goja.AssertFunction(v)
}

// withDeadline runs fn on the calling goroutine and interrupts the runtime
// if it is still running after d.
func (vm *VM) withDeadline(d time.Duration, fn func() error) error {
	timer := time.AfterFunc(d, func() { vm.rt.Interrupt(errTimedOut) })
	err := fn()
	timer.Stop()
	vm.rt.ClearInterrupt()

	var interrupted *goja.InterruptedError
	if errors.As(err, &interrupted) {
		return errTimedOut
	}
	return err
}
