package main

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/pterm/pterm"

	"github.com/MJE43/pf-blackjack/internal/engine"
	"github.com/MJE43/pf-blackjack/internal/games"
	"github.com/MJE43/pf-blackjack/internal/scan"
)

// ScanCmd searches revealed seeds for opening deals matching a target.
type ScanCmd struct {
	ServerSeed string        `kong:"name='server-seed',required,help='Revealed server seed'"`
	ClientSeed string        `kong:"name='client-seed',required,help='Client seed'"`
	From       uint64        `kong:"default='1',help='First nonce'"`
	To         uint64        `kong:"default='1000',help='Last nonce (inclusive)'"`
	Metric     string        `kong:"default='player_total',enum='player_total,dealer_total,dealer_up,player_blackjack,dealer_blackjack,player_pair',help='Deal metric to compare'"`
	Op         string        `kong:"default='eq',enum='eq,gt,ge,lt,le,between,outside',help='Comparison'"`
	Value      int           `kong:"default='21',help='Target value'"`
	Value2     int           `kong:"name='value2',help='Upper bound for between and outside'"`
	Limit      int           `kong:"default='50',help='Stop after this many hits (0 means no limit)'"`
	Timeout    time.Duration `kong:"default='30s',help='Scan timeout'"`
}

func (c *ScanCmd) Run(g *Globals) error {
	req := scan.Request{
		Seeds:      engine.Seeds{Server: c.ServerSeed, Client: c.ClientSeed},
		NonceStart: c.From,
		NonceEnd:   c.To,
		Metric:     scan.Metric(c.Metric),
		TargetOp:   scan.TargetOp(c.Op),
		TargetVal:  c.Value,
		TargetVal2: c.Value2,
		Limit:      c.Limit,
		TimeoutMs:  int(c.Timeout / time.Millisecond),
	}
	if err := req.Validate(); err != nil {
		return err
	}

	res, err := scan.NewScanner().Scan(context.Background(), req)
	if err != nil {
		return err
	}
	return renderScan(res)
}

func renderScan(res *scan.Result) error {
	rows := pterm.TableData{{"Nonce", "Metric", "Player", "Dealer"}}
	for _, h := range res.Hits {
		rows = append(rows, []string{
			fmt.Sprint(h.Nonce),
			fmt.Sprint(h.Metric),
			joinCards(h.Deal.Player[:]),
			joinCards(h.Deal.Dealer[:]),
		})
	}
	if len(res.Hits) > 0 {
		if err := pterm.DefaultTable.WithHasHeader().WithData(rows).Render(); err != nil {
			return err
		}
	}

	sum := res.Summary
	pterm.Info.Printfln("%d hits in %d deals", sum.HitsFound, sum.TotalEvaluated)
	if sum.TimedOut {
		pterm.Warning.Println("scan timed out; results are partial")
	}
	if sum.LimitReached {
		pterm.Warning.Println("hit limit reached")
	}
	return nil
}

func joinCards(cards []games.Card) string {
	s := make([]string, len(cards))
	for i, c := range cards {
		s[i] = c.String()
	}
	return strings.Join(s, " ")
}
