// Package scan searches a revealed seed pair across a nonce range for
// opening deals that match a target.
package scan

import (
	"context"
	"fmt"
	"runtime"
	"slices"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/MJE43/pf-blackjack/internal/engine"
	"github.com/MJE43/pf-blackjack/internal/games"
)

// MaxRange bounds the number of nonces one scan may cover.
const MaxRange = 200_000

// TargetOp represents comparison operations for scanning
type TargetOp string

const (
	OpEqual        TargetOp = "eq"
	OpGreater      TargetOp = "gt"
	OpGreaterEqual TargetOp = "ge"
	OpLess         TargetOp = "lt"
	OpLessEqual    TargetOp = "le"
	OpBetween      TargetOp = "between"
	OpOutside      TargetOp = "outside"
)

// Metric is the per-deal quantity a scan compares against its target.
type Metric string

const (
	MetricPlayerTotal     Metric = "player_total"     // best value of the player's two cards
	MetricDealerTotal     Metric = "dealer_total"     // best value of both dealer cards
	MetricDealerUp        Metric = "dealer_up"        // up card value, ace = 11
	MetricPlayerBlackjack Metric = "player_blackjack" // 1 or 0
	MetricDealerBlackjack Metric = "dealer_blackjack" // 1 or 0
	MetricPlayerPair      Metric = "player_pair"      // 1 when the opening hand may split
)

// Metrics lists every supported metric.
var Metrics = []Metric{
	MetricPlayerTotal, MetricDealerTotal, MetricDealerUp,
	MetricPlayerBlackjack, MetricDealerBlackjack, MetricPlayerPair,
}

// Request describes one scan.
type Request struct {
	Seeds      engine.Seeds `json:"seeds"`
	NonceStart uint64       `json:"nonce_start"`
	NonceEnd   uint64       `json:"nonce_end"` // inclusive
	Metric     Metric       `json:"metric"`
	TargetOp   TargetOp     `json:"target_op"`
	TargetVal  int          `json:"target_val"`
	TargetVal2 int          `json:"target_val2,omitempty"` // for "between" and "outside"
	Limit      int          `json:"limit,omitempty"`
	TimeoutMs  int          `json:"timeout_ms,omitempty"`
}

// Hit is one matching nonce with its opening deal.
type Hit struct {
	Nonce  uint64            `json:"nonce"`
	Metric int               `json:"metric"`
	Deal   games.InitialDeal `json:"deal"`
}

// Summary contains aggregate statistics
type Summary struct {
	TotalEvaluated uint64  `json:"total_evaluated"`
	HitsFound      int     `json:"hits_found"`
	MinMetric      int     `json:"min_metric"`
	MaxMetric      int     `json:"max_metric"`
	MeanMetric     float64 `json:"mean_metric"`
	TimedOut       bool    `json:"timed_out,omitempty"`
	LimitReached   bool    `json:"limit_reached,omitempty"`
}

// Result contains the hits, sorted by nonce, and their summary.
type Result struct {
	Hits    []Hit   `json:"hits"`
	Summary Summary `json:"summary"`
}

type job struct {
	start, end uint64
}

// TargetEvaluator handles target condition evaluation
type TargetEvaluator struct {
	op   TargetOp
	val1 int
	val2 int
}

// NewTargetEvaluator validates op and returns an evaluator.
func NewTargetEvaluator(op TargetOp, val1, val2 int) (*TargetEvaluator, error) {
	switch op {
	case OpEqual, OpGreater, OpGreaterEqual, OpLess, OpLessEqual, OpBetween, OpOutside:
	default:
		return nil, fmt.Errorf("%w %q", ErrUnknownOp, op)
	}
	return &TargetEvaluator{op: op, val1: val1, val2: val2}, nil
}

// Matches checks if a metric matches the target criteria
func (te *TargetEvaluator) Matches(metric int) bool {
	switch te.op {
	case OpEqual:
		return metric == te.val1
	case OpGreater:
		return metric > te.val1
	case OpGreaterEqual:
		return metric >= te.val1
	case OpLess:
		return metric < te.val1
	case OpLessEqual:
		return metric <= te.val1
	case OpBetween:
		return metric >= te.val1 && metric <= te.val2
	case OpOutside:
		return metric < te.val1 || metric > te.val2
	default:
		return false
	}
}

// Measure computes m for a deal.
func Measure(m Metric, d games.InitialDeal) (int, error) {
	switch m {
	case MetricPlayerTotal:
		return games.Evaluate(d.Player[:]).Value, nil
	case MetricDealerTotal:
		return games.Evaluate(d.Dealer[:]).Value, nil
	case MetricDealerUp:
		return d.Dealer[0].Value(), nil
	case MetricPlayerBlackjack:
		return flag(games.NewHand(d.Player[:]...).IsBlackjack), nil
	case MetricDealerBlackjack:
		return flag(games.NewHand(d.Dealer[:]...).IsBlackjack), nil
	case MetricPlayerPair:
		return flag(games.NewHand(d.Player[:]...).CanSplit()), nil
	default:
		return 0, fmt.Errorf("%w %q", ErrUnknownMetric, m)
	}
}

func flag(b bool) int {
	if b {
		return 1
	}
	return 0
}

// Scanner performs parallel scans across nonce ranges
type Scanner struct {
	workerCount int
	batchSize   uint64
}

// NewScanner creates a scanner with one worker per usable CPU.
func NewScanner() *Scanner {
	return &Scanner{
		workerCount: runtime.GOMAXPROCS(0),
		batchSize:   512,
	}
}

// Validate checks a request without running it.
func (req Request) Validate() error {
	if req.Seeds.Server == "" || req.Seeds.Client == "" {
		return fmt.Errorf("%w: server and client seeds are required", games.ErrValidation)
	}
	if req.NonceEnd < req.NonceStart {
		return fmt.Errorf("%w: nonce_end before nonce_start", ErrInvalidRange)
	}
	if req.NonceEnd-req.NonceStart >= MaxRange {
		return fmt.Errorf("%w: at most %d nonces per scan", ErrInvalidRange, MaxRange)
	}
	if req.Limit < 0 {
		return fmt.Errorf("%w: limit must not be negative", games.ErrValidation)
	}
	if !slices.Contains(Metrics, req.Metric) {
		return fmt.Errorf("%w %q", ErrUnknownMetric, req.Metric)
	}
	if _, err := NewTargetEvaluator(req.TargetOp, req.TargetVal, req.TargetVal2); err != nil {
		return err
	}
	return nil
}

// Scan deals every nonce in the range and returns the matches. A timeout or
// a reached limit ends the scan early with the hits found so far.
func (s *Scanner) Scan(ctx context.Context, req Request) (*Result, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	evaluator, _ := NewTargetEvaluator(req.TargetOp, req.TargetVal, req.TargetVal2)

	if req.TimeoutMs > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, time.Duration(req.TimeoutMs)*time.Millisecond)
		defer cancel()
	}
	workCtx, stop := context.WithCancel(ctx)
	defer stop()

	jobs := make(chan job, s.workerCount*2)
	hits := make(chan Hit, 256)
	var evaluated uint64
	var wg sync.WaitGroup

	for i := 0; i < s.workerCount; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			s.work(workCtx, req, evaluator, jobs, hits, &evaluated)
		}()
	}
	go s.generateJobs(workCtx, jobs, req.NonceStart, req.NonceEnd)
	go func() {
		wg.Wait()
		close(hits)
	}()

	res := &Result{Hits: make([]Hit, 0, 64)}
	for hit := range hits {
		if req.Limit > 0 && len(res.Hits) >= req.Limit {
			res.Summary.LimitReached = true
			stop()
			continue // drain
		}
		res.Hits = append(res.Hits, hit)
	}

	sort.Slice(res.Hits, func(i, j int) bool { return res.Hits[i].Nonce < res.Hits[j].Nonce })
	summarize(res, atomic.LoadUint64(&evaluated), ctx.Err() != nil)
	return res, nil
}

func (s *Scanner) work(ctx context.Context, req Request, evaluator *TargetEvaluator, jobs <-chan job, hits chan<- Hit, evaluated *uint64) {
	for j := range jobs {
		for nonce := j.start; ; nonce++ {
			if ctx.Err() != nil {
				return
			}
			deal, _, err := games.DealInitial(games.ShuffledDeck(req.Seeds, nonce))
			if err != nil {
				return
			}
			atomic.AddUint64(evaluated, 1)

			metric, _ := Measure(req.Metric, deal)
			if evaluator.Matches(metric) {
				select {
				case hits <- Hit{Nonce: nonce, Metric: metric, Deal: deal}:
				case <-ctx.Done():
					return
				}
			}
			if nonce == j.end {
				break
			}
		}
	}
}

// generateJobs splits [start, end] into batches. The loop is written so an
// end of MaxUint64 cannot wrap.
func (s *Scanner) generateJobs(ctx context.Context, jobs chan<- job, start, end uint64) {
	defer close(jobs)

	for current := start; ; {
		batchEnd := end
		if end-current >= s.batchSize {
			batchEnd = current + s.batchSize - 1
		}
		select {
		case jobs <- job{start: current, end: batchEnd}:
		case <-ctx.Done():
			return
		}
		if batchEnd == end {
			return
		}
		current = batchEnd + 1
	}
}

func summarize(res *Result, evaluated uint64, timedOut bool) {
	res.Summary.TotalEvaluated = evaluated
	res.Summary.HitsFound = len(res.Hits)
	res.Summary.TimedOut = timedOut
	if len(res.Hits) == 0 {
		return
	}

	lo, hi := res.Hits[0].Metric, res.Hits[0].Metric
	sum := 0
	for _, h := range res.Hits {
		lo = min(lo, h.Metric)
		hi = max(hi, h.Metric)
		sum += h.Metric
	}
	res.Summary.MinMetric = lo
	res.Summary.MaxMetric = hi
	res.Summary.MeanMetric = float64(sum) / float64(len(res.Hits))
}
