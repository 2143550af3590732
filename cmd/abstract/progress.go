package main

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/pterm/pterm"
)

// progress reports generated entries to a pterm progress bar and to the
// entries counter.
type progress struct {
	bar     *pterm.ProgressbarPrinter
	counter prometheus.Counter
}

func (a *app) newProgress(title string, total uint64) *progress {
	p := &progress{
		counter: promauto.With(a.reg).NewCounter(prometheus.CounterOpts{
			Name:        "abstraction_ehs_entries_total",
			Help:        "Equity entries generated",
			ConstLabels: prometheus.Labels{"task": title},
		}),
	}
	if a.noProgress {
		return p
	}
	bar, err := pterm.DefaultProgressbar.
		WithTotal(int(total)).
		WithTitle(title).
		WithWriter(a.stderr).
		Start()
	if err != nil {
		a.log.Warn("progress bar unavailable", "error", err)
		return p
	}
	p.bar = bar
	return p
}

// add is safe to pass as ehs.Generator.Progress; the generator serializes
// calls.
func (p *progress) add(n int) {
	p.counter.Add(float64(n))
	if p.bar != nil {
		p.bar.Add(n)
	}
}

func (p *progress) stop() {
	if p.bar != nil {
		p.bar.Stop()
	}
}
