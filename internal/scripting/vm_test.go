package scripting

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MJE43/pf-blackjack/internal/session"
)

func TestExecuteRequiresDecide(t *testing.T) {
	vm := NewVM(zerolog.Nop())
	err := vm.Execute(`var x = 1`)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "decide")
}

func TestSandboxBlocksGlobals(t *testing.T) {
	for _, src := range []string{
		`require("fs"); function decide() { return STAND }`,
		`eval("1"); function decide() { return STAND }`,
		`new Function("return 1")(); function decide() { return STAND }`,
	} {
		vm := NewVM(zerolog.Nop())
		assert.Error(t, vm.Execute(src), src)
	}
}

func TestCallDecide(t *testing.T) {
	var buf bytes.Buffer
	vm := NewVM(zerolog.New(&buf))
	require.NoError(t, vm.Execute(`
		function decide(s) {
			console.log("value", s.hand.value, "up", s.dealer.up)
			if (s.can_insure) return { action: INSURANCE, stake: "5" }
			if (s.hand.value < 17) return HIT
			return STAND
		}
	`))

	d, err := vm.CallDecide(map[string]any{
		"hand":       map[string]any{"value": 12},
		"dealer":     map[string]any{"up": "AS"},
		"can_insure": true,
	})
	require.NoError(t, err)
	assert.Equal(t, session.ActionInsurance, d.Action)
	assert.Equal(t, "5", d.Stake.String())

	d, err = vm.CallDecide(map[string]any{
		"hand":       map[string]any{"value": 12},
		"dealer":     map[string]any{"up": "KS"},
		"can_insure": false,
	})
	require.NoError(t, err)
	assert.Equal(t, session.ActionHit, d.Action)
	assert.Nil(t, d.Stake)

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 2)
	assert.Contains(t, lines[0], `"line":"value 12 up AS"`)
	assert.Contains(t, lines[0], `"message":"script_log"`)
}

func TestCallDecideRejectsBadResults(t *testing.T) {
	tests := []struct {
		name string
		src  string
	}{
		{"unknown action", `function decide() { return "surrender" }`},
		{"nothing", `function decide() {}`},
		{"number", `function decide() { return 3 }`},
		{"fractional stake", `function decide() { return { action: "insurance", stake: 1.5 } }`},
		{"throws", `function decide() { throw new Error("boom") }`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			vm := NewVM(zerolog.Nop())
			require.NoError(t, vm.Execute(tt.src))
			_, err := vm.CallDecide(map[string]any{})
			assert.Error(t, err)
		})
	}
}

func TestRunawayScriptTimesOut(t *testing.T) {
	vm := NewVM(zerolog.Nop())
	require.NoError(t, vm.Execute(`function decide() { while (true) {} }`))

	start := time.Now()
	_, err := vm.CallDecide(map[string]any{})
	require.Error(t, err)
	assert.True(t, strings.Contains(err.Error(), "timed out"), err.Error())
	assert.Less(t, time.Since(start), 3*time.Second)
}

func TestToWei(t *testing.T) {
	v, err := toWei("1000000000000000000000")
	require.NoError(t, err)
	assert.Equal(t, "1000000000000000000000", v.String())

	v, err = toWei(int64(7))
	require.NoError(t, err)
	assert.Equal(t, int64(7), v.Int64())

	_, err = toWei("1e18")
	assert.Error(t, err)
	_, err = toWei(true)
	assert.Error(t, err)
}

func TestStopAndNextBet(t *testing.T) {
	vm := NewVM(zerolog.Nop())
	require.NoError(t, vm.Execute(`
		function nextbet(s) { if (s.hands >= 2) stop(); return "10" }
		function decide() { return STAND }
	`))
	assert.True(t, vm.HasNextBet())
	assert.False(t, vm.Stopped())

	v, err := vm.CallNextBet(map[string]any{"hands": 2})
	require.NoError(t, err)
	assert.Equal(t, "10", v.String())
	assert.True(t, vm.Stopped())
}
