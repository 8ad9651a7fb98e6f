package chat

import (
	"log/slog"
	"math"
	"sort"
	"time"

	"github.com/samsaffron/term-chat/internal/ui"
)

const renderPerfEnv = "TERM_CHAT_DEBUG_RENDER_PERF"

func renderPerfEnabled(getenv func(string) string) bool {
	return ui.EnvBool(getenv, renderPerfEnv, false)
}

type durationCollector struct {
	samplesMicros []int64
	totalMicros   int64
	maxMicros     int64
}

type durationSummary struct {
	Count int
	Total time.Duration
	Mean  time.Duration
	P50   time.Duration
	P95   time.Duration
	Max   time.Duration
}

func (c *durationCollector) Add(d time.Duration) {
	if d < 0 {
		return
	}
	micros := d.Microseconds()
	c.samplesMicros = append(c.samplesMicros, micros)
	c.totalMicros += micros
	if micros > c.maxMicros {
		c.maxMicros = micros
	}
}

func (c durationCollector) Summary() durationSummary {
	if len(c.samplesMicros) == 0 {
		return durationSummary{}
	}

	sorted := append([]int64(nil), c.samplesMicros...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })
	mean := c.totalMicros / int64(len(sorted))

	return durationSummary{
		Count: len(sorted),
		Total: time.Duration(c.totalMicros) * time.Microsecond,
		Mean:  time.Duration(mean) * time.Microsecond,
		P50:   time.Duration(percentileFromSortedMicros(sorted, 0.50)) * time.Microsecond,
		P95:   time.Duration(percentileFromSortedMicros(sorted, 0.95)) * time.Microsecond,
		Max:   time.Duration(c.maxMicros) * time.Microsecond,
	}
}

func percentileFromSortedMicros(sorted []int64, pct float64) int64 {
	if len(sorted) == 0 {
		return 0
	}
	if pct <= 0 {
		return sorted[0]
	}
	if pct >= 1 {
		return sorted[len(sorted)-1]
	}
	rank := int(math.Ceil(pct*float64(len(sorted)))) - 1
	return sorted[max(0, min(rank, len(sorted)-1))]
}

// renderPerf measures how long transcript refreshes take. A nil
// *renderPerf is valid and records nothing.
type renderPerf struct {
	refresh  durationCollector
	markdown durationCollector
	updates  int
}

func newRenderPerf(getenv func(string) string) *renderPerf {
	if !renderPerfEnabled(getenv) {
		return nil
	}
	return &renderPerf{}
}

func (p *renderPerf) recordRefresh(d time.Duration) {
	if p == nil {
		return
	}
	p.updates++
	p.refresh.Add(d)
}

func (p *renderPerf) recordMarkdown(d time.Duration) {
	if p == nil {
		return
	}
	p.markdown.Add(d)
}

func (p *renderPerf) log(logger *slog.Logger) {
	if p == nil || p.updates == 0 {
		return
	}
	r := p.refresh.Summary()
	md := p.markdown.Summary()
	logger.Info("render perf",
		"refreshes", r.Count,
		"refresh_p50", r.P50,
		"refresh_p95", r.P95,
		"refresh_max", r.Max,
		"markdown_renders", md.Count,
		"markdown_p95", md.P95,
		"markdown_total", md.Total,
	)
}
