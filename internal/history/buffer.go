package history

import (
	"sort"
	"sync"
	"time"

	"ForexLens/internal/model"
)

// DefaultWindow is the sliding window kept per pair.
const DefaultWindow = 24 * time.Hour

// Buffer keeps realtime observations per pair over a sliding window.
// Append prunes in the same critical section, so readers never see points
// older than the window relative to the newest append.
type Buffer struct {
	mu     sync.RWMutex
	window time.Duration
	points map[model.Pair][]model.HistoryPoint
}

// NewBuffer creates an empty Buffer. A non-positive window uses DefaultWindow.
func NewBuffer(window time.Duration) *Buffer {
	if window <= 0 {
		window = DefaultWindow
	}
	return &Buffer{window: window, points: make(map[model.Pair][]model.HistoryPoint)}
}

// Window returns the configured window.
func (b *Buffer) Window() time.Duration { return b.window }

// Append records a quote, then evicts points at or before the newest point's
// time minus the window. Out-of-order quotes are inserted in time order.
func (b *Buffer) Append(q model.Quote) {
	b.mu.Lock()
	defer b.mu.Unlock()

	pts := b.points[q.Pair]
	p := model.HistoryPoint{Time: q.Time, Rate: q.Rate, Bid: q.Bid, Ask: q.Ask}
	i := sort.Search(len(pts), func(i int) bool { return pts[i].Time.After(q.Time) })
	pts = append(pts, model.HistoryPoint{})
	copy(pts[i+1:], pts[i:])
	pts[i] = p

	b.points[q.Pair] = prune(pts, pts[len(pts)-1].Time.Add(-b.window))
}

func prune(pts []model.HistoryPoint, cutoff time.Time) []model.HistoryPoint {
	start := sort.Search(len(pts), func(i int) bool { return pts[i].Time.After(cutoff) })
	if start == 0 {
		return pts
	}
	return append([]model.HistoryPoint(nil), pts[start:]...)
}

// Points returns a copy of the window for one pair.
func (b *Buffer) Points(pair model.Pair) []model.HistoryPoint {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return append([]model.HistoryPoint(nil), b.points[pair]...)
}

// Snapshot returns a deep copy of all windows.
func (b *Buffer) Snapshot() map[model.Pair][]model.HistoryPoint {
	b.mu.RLock()
	defer b.mu.RUnlock()
	out := make(map[model.Pair][]model.HistoryPoint, len(b.points))
	for p, pts := range b.points {
		out[p] = append([]model.HistoryPoint(nil), pts...)
	}
	return out
}

// Pairs returns the tracked pairs sorted by name.
func (b *Buffer) Pairs() []model.Pair {
	b.mu.RLock()
	defer b.mu.RUnlock()
	out := make([]model.Pair, 0, len(b.points))
	for p := range b.points {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].String() < out[j].String() })
	return out
}

// Rollup summarises one pair's window. Points is 0 when nothing is tracked.
func (b *Buffer) Rollup(pair model.Pair) model.Rollup {
	return Summarize(pair, b.Points(pair))
}

// Rollups summarises every tracked pair, sorted by pair name.
func (b *Buffer) Rollups() []model.Rollup {
	snap := b.Snapshot()
	pairs := make([]model.Pair, 0, len(snap))
	for p := range snap {
		pairs = append(pairs, p)
	}
	sort.Slice(pairs, func(i, j int) bool { return pairs[i].String() < pairs[j].String() })

	out := make([]model.Rollup, 0, len(pairs))
	for _, p := range pairs {
		out = append(out, Summarize(p, snap[p]))
	}
	return out
}

// Summarize computes first/last/min/max, the percentage change and the latest
// bid/ask spread over time-ordered points.
func Summarize(pair model.Pair, pts []model.HistoryPoint) model.Rollup {
	r := model.Rollup{Pair: pair, Points: len(pts)}
	if len(pts) == 0 {
		return r
	}
	first, last := pts[0], pts[len(pts)-1]
	r.From, r.To = first.Time, last.Time
	r.First, r.Last = first.Rate, last.Rate
	r.Min, r.Max = first.Rate, first.Rate
	for _, p := range pts[1:] {
		if p.Rate < r.Min {
			r.Min = p.Rate
		}
		if p.Rate > r.Max {
			r.Max = p.Rate
		}
	}
	if r.First != 0 {
		r.ChangePct = (r.Last/r.First - 1) * 100
	}
	r.SpreadPct = model.Quote{Bid: last.Bid, Ask: last.Ask}.SpreadPct()
	return r
}
