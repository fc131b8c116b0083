package scan

import (
	"context"
	"errors"
	"testing"

	"github.com/MJE43/pf-blackjack/internal/engine"
	"github.com/MJE43/pf-blackjack/internal/games"
)

var testSeeds = engine.Seeds{Server: "s", Client: "c"}

func TestTargetEvaluator(t *testing.T) {
	tests := []struct {
		name     string
		op       TargetOp
		val1     int
		val2     int
		metric   int
		expected bool
	}{
		{"equal", OpEqual, 21, 0, 21, true},
		{"equal_false", OpEqual, 21, 0, 20, false},
		{"greater_than", OpGreater, 17, 0, 18, true},
		{"greater_than_false", OpGreater, 17, 0, 17, false},
		{"greater_equal", OpGreaterEqual, 17, 0, 17, true},
		{"less_than", OpLess, 12, 0, 11, true},
		{"less_equal", OpLessEqual, 12, 0, 12, true},
		{"between_true", OpBetween, 12, 16, 14, true},
		{"between_false", OpBetween, 12, 16, 17, false},
		{"outside_true", OpOutside, 12, 16, 20, true},
		{"outside_false", OpOutside, 12, 16, 12, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			evaluator, err := NewTargetEvaluator(tt.op, tt.val1, tt.val2)
			if err != nil {
				t.Fatal(err)
			}
			if got := evaluator.Matches(tt.metric); got != tt.expected {
				t.Errorf("Expected %v, got %v for metric %d", tt.expected, got, tt.metric)
			}
		})
	}

	if _, err := NewTargetEvaluator("approx", 1, 0); !errors.Is(err, ErrUnknownOp) {
		t.Errorf("expected ErrUnknownOp, got %v", err)
	}
}

func TestMeasure(t *testing.T) {
	deal := games.InitialDeal{
		Player: [2]games.Card(games.MustParseCards("AS KD")),
		Dealer: [2]games.Card(games.MustParseCards("8C 8H")),
	}
	tests := []struct {
		metric Metric
		want   int
	}{
		{MetricPlayerTotal, 21},
		{MetricDealerTotal, 16},
		{MetricDealerUp, 8},
		{MetricPlayerBlackjack, 1},
		{MetricDealerBlackjack, 0},
		{MetricPlayerPair, 0},
	}
	for _, tt := range tests {
		got, err := Measure(tt.metric, deal)
		if err != nil {
			t.Fatalf("%s: %v", tt.metric, err)
		}
		if got != tt.want {
			t.Errorf("%s: expected %d, got %d", tt.metric, tt.want, got)
		}
	}

	if _, err := Measure("luck", deal); !errors.Is(err, games.ErrValidation) {
		t.Errorf("expected validation error, got %v", err)
	}
}

// Nonce 1 deals 4D JD / AC 4S, nonce 2 deals AS 6H / 3C AH.
func TestScanKnownDeals(t *testing.T) {
	scanner := NewScanner()

	res, err := scanner.Scan(context.Background(), Request{
		Seeds: testSeeds, NonceStart: 1, NonceEnd: 2,
		Metric: MetricDealerUp, TargetOp: OpEqual, TargetVal: 11,
	})
	if err != nil {
		t.Fatal(err)
	}
	if len(res.Hits) != 1 || res.Hits[0].Nonce != 1 {
		t.Fatalf("expected only nonce 1, got %+v", res.Hits)
	}
	if got := res.Hits[0].Deal.Player[1].String(); got != "JD" {
		t.Errorf("expected JD as second player card, got %s", got)
	}
	if res.Summary.TotalEvaluated != 2 {
		t.Errorf("expected 2 evaluated, got %d", res.Summary.TotalEvaluated)
	}

	res, err = scanner.Scan(context.Background(), Request{
		Seeds: testSeeds, NonceStart: 1, NonceEnd: 2,
		Metric: MetricPlayerTotal, TargetOp: OpGreaterEqual, TargetVal: 17,
	})
	if err != nil {
		t.Fatal(err)
	}
	if len(res.Hits) != 1 || res.Hits[0].Nonce != 2 || res.Hits[0].Metric != 17 {
		t.Fatalf("expected nonce 2 with soft 17, got %+v", res.Hits)
	}
}

func TestScanMatchesSerialDeal(t *testing.T) {
	scanner := NewScanner()
	scanner.batchSize = 7 // uneven batches

	req := Request{
		Seeds: testSeeds, NonceStart: 10, NonceEnd: 609,
		Metric: MetricPlayerTotal, TargetOp: OpBetween, TargetVal: 19, TargetVal2: 21,
	}
	res, err := scanner.Scan(context.Background(), req)
	if err != nil {
		t.Fatal(err)
	}

	var want []uint64
	for nonce := req.NonceStart; nonce <= req.NonceEnd; nonce++ {
		deal, _, err := games.DealInitial(games.ShuffledDeck(testSeeds, nonce))
		if err != nil {
			t.Fatal(err)
		}
		if v := games.Evaluate(deal.Player[:]).Value; v >= 19 && v <= 21 {
			want = append(want, nonce)
		}
	}

	if res.Summary.TotalEvaluated != 600 {
		t.Errorf("expected 600 evaluated, got %d", res.Summary.TotalEvaluated)
	}
	if len(res.Hits) != len(want) {
		t.Fatalf("expected %d hits, got %d", len(want), len(res.Hits))
	}
	for i, h := range res.Hits {
		if h.Nonce != want[i] {
			t.Fatalf("hit %d: expected nonce %d, got %d", i, want[i], h.Nonce)
		}
	}
	if len(want) > 0 && (res.Summary.MinMetric < 19 || res.Summary.MaxMetric > 21) {
		t.Errorf("summary out of range: %+v", res.Summary)
	}
}

func TestScanLimit(t *testing.T) {
	res, err := NewScanner().Scan(context.Background(), Request{
		Seeds: testSeeds, NonceStart: 1, NonceEnd: 2000,
		Metric: MetricPlayerTotal, TargetOp: OpGreaterEqual, TargetVal: 2,
		Limit: 5,
	})
	if err != nil {
		t.Fatal(err)
	}
	if len(res.Hits) != 5 {
		t.Fatalf("expected 5 hits, got %d", len(res.Hits))
	}
	if !res.Summary.LimitReached {
		t.Error("expected limit_reached")
	}
	for i := 1; i < len(res.Hits); i++ {
		if res.Hits[i-1].Nonce >= res.Hits[i].Nonce {
			t.Fatal("hits not sorted by nonce")
		}
	}
}

func TestScanCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	res, err := NewScanner().Scan(ctx, Request{
		Seeds: testSeeds, NonceStart: 0, NonceEnd: MaxRange - 1,
		Metric: MetricPlayerBlackjack, TargetOp: OpEqual, TargetVal: 1,
	})
	if err != nil {
		t.Fatal(err)
	}
	if !res.Summary.TimedOut {
		t.Error("expected timed_out")
	}
	if res.Summary.TotalEvaluated >= MaxRange {
		t.Errorf("expected an early stop, evaluated %d", res.Summary.TotalEvaluated)
	}
}

func TestScanValidation(t *testing.T) {
	base := Request{Seeds: testSeeds, NonceStart: 1, NonceEnd: 10, Metric: MetricPlayerTotal, TargetOp: OpEqual, TargetVal: 21}

	tests := []struct {
		name string
		mod  func(*Request)
	}{
		{"missing seed", func(r *Request) { r.Seeds.Server = "" }},
		{"reversed range", func(r *Request) { r.NonceStart, r.NonceEnd = 10, 1 }},
		{"range too large", func(r *Request) { r.NonceEnd = r.NonceStart + MaxRange }},
		{"negative limit", func(r *Request) { r.Limit = -1 }},
		{"unknown metric", func(r *Request) { r.Metric = "luck" }},
		{"unknown op", func(r *Request) { r.TargetOp = "near" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := base
			tt.mod(&req)
			if _, err := NewScanner().Scan(context.Background(), req); !errors.Is(err, games.ErrValidation) {
				t.Errorf("expected validation error, got %v", err)
			}
		})
	}

	req := base
	req.NonceEnd = req.NonceStart + MaxRange - 1
	if err := req.Validate(); err != nil {
		t.Errorf("largest range rejected: %v", err)
	}
}

func BenchmarkScan(b *testing.B) {
	scanner := NewScanner()
	req := Request{
		Seeds: testSeeds, NonceStart: 1, NonceEnd: 1000,
		Metric: MetricDealerBlackjack, TargetOp: OpEqual, TargetVal: 1,
	}
	for i := 0; i < b.N; i++ {
		if _, err := scanner.Scan(context.Background(), req); err != nil {
			b.Fatal(err)
		}
	}
}
