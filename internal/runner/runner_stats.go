package runner

import (
	"fmt"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"derivefuzz/internal/util"
)

// Early-stop reasons. An early stop abandons the iteration without
// reporting a bug.
const (
	stopCreateTable = "create_table"
	stopValue       = "unsupported_value"
	stopInsert      = "insert"
	stopSelectExpr  = "select_expr"
	stopDerived     = "derived_table"
	stopCatalogType = "catalog_type"
	stopPairBuild   = "pair_build"
)

// Stats aggregates counters across every worker of a run.
type Stats struct {
	Iterations    atomic.Int64
	RejectedDraws atomic.Int64
	Pairs         atomic.Int64
	Blacklisted   atomic.Int64
	Divergences   atomic.Int64
	Crashes       atomic.Int64
	Validated     atomic.Int64
	ParseFailures atomic.Int64

	mu         sync.Mutex
	earlyStops map[string]int64
}

// NewStats returns empty counters.
func NewStats() *Stats {
	return &Stats{earlyStops: make(map[string]int64)}
}

func (s *Stats) earlyStop(reason string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.earlyStops[reason]++
}

// EarlyStops returns a copy of the early-stop counts by reason.
func (s *Stats) EarlyStops() map[string]int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string]int64, len(s.earlyStops))
	for k, v := range s.earlyStops {
		out[k] = v
	}
	return out
}

type statsSnapshot struct {
	iterations    int64
	rejected      int64
	pairs         int64
	blacklisted   int64
	divergences   int64
	crashes       int64
	validated     int64
	parseFailures int64
	earlyStops    map[string]int64
}

func (s *Stats) snapshot() statsSnapshot {
	return statsSnapshot{
		iterations:    s.Iterations.Load(),
		rejected:      s.RejectedDraws.Load(),
		pairs:         s.Pairs.Load(),
		blacklisted:   s.Blacklisted.Load(),
		divergences:   s.Divergences.Load(),
		crashes:       s.Crashes.Load(),
		validated:     s.Validated.Load(),
		parseFailures: s.ParseFailures.Load(),
		earlyStops:    s.EarlyStops(),
	}
}

func formatStats(cur, last statsSnapshot, elapsed time.Duration) string {
	rate := 0.0
	if elapsed > 0 {
		rate = float64(cur.pairs-last.pairs) / elapsed.Seconds()
	}
	line := fmt.Sprintf("stats: iterations=%d(+%d) rejected=%d pairs=%d(+%d, %.1f/s) blacklisted=%d divergences=%d crashes=%d",
		cur.iterations, cur.iterations-last.iterations, cur.rejected,
		cur.pairs, cur.pairs-last.pairs, rate,
		cur.blacklisted, cur.divergences, cur.crashes)
	if cur.validated > 0 {
		line += fmt.Sprintf(" parse_fail=%d/%d", cur.parseFailures, cur.validated)
	}
	if len(cur.earlyStops) > 0 {
		line += " early_stop=" + formatCounts(cur.earlyStops)
	}
	return line
}

func formatCounts(counts map[string]int64) string {
	keys := make([]string, 0, len(counts))
	for k := range counts {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s:%d", k, counts[k]))
	}
	return strings.Join(parts, ",")
}

// StartLogger logs a stats line every interval until the returned func is
// called. A non-positive interval disables it.
func (s *Stats) StartLogger(interval time.Duration) func() {
	if interval <= 0 {
		return func() {}
	}
	ticker := time.NewTicker(interval)
	done := make(chan struct{})
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		last := s.snapshot()
		lastAt := time.Now()
		for {
			select {
			case <-done:
				return
			case now := <-ticker.C:
				cur := s.snapshot()
				util.Infof("%s", formatStats(cur, last, now.Sub(lastAt)))
				last, lastAt = cur, now
			}
		}
	}()
	var once sync.Once
	return func() {
		once.Do(func() {
			ticker.Stop()
			close(done)
			wg.Wait()
			util.Infof("%s", formatStats(s.snapshot(), statsSnapshot{}, 0))
		})
	}
}
