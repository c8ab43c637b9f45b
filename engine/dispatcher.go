package engine

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"time"
)

// Dispatcher coordinates staged escalation across engines. It tries the
// lightest engine first and moves to heavier ones when the current engine
// fails or exceeds its budget. Engines never run concurrently: the next one
// starts only after the previous Fetch has returned, so a page is never
// requested twice at the same time. With a single engine it is a plain
// pass-through.
type Dispatcher struct {
	engines []Engine

	// budgets[i] bounds engines[i]; zero lets it run until it fails.
	budgets []time.Duration
	memory  *DomainMemory
}

// NewDispatcher creates a Dispatcher with the given engines and escalation
// delays. escalationDelays[i] is how long engines[i-1] may run before the
// dispatcher gives up on it and escalates to engines[i]; a zero or missing
// delay waits for engines[i-1] to fail. escalationDelays[0] is unused.
// memory may be nil.
func NewDispatcher(engines []Engine, escalationDelays []time.Duration, memory *DomainMemory) *Dispatcher {
	budgets := make([]time.Duration, len(engines))
	for i := range budgets {
		if i+1 < len(escalationDelays) {
			budgets[i] = escalationDelays[i+1]
		}
	}
	if len(budgets) > 0 {
		// The last engine has nowhere to escalate to.
		budgets[len(budgets)-1] = 0
	}
	return &Dispatcher{
		engines: engines,
		budgets: budgets,
		memory:  memory,
	}
}

// Engines returns the engine names in escalation order.
func (d *Dispatcher) Engines() []string {
	names := make([]string, len(d.engines))
	for i, e := range d.engines {
		names[i] = e.Name()
	}
	return names
}

// Fetch implements Fetcher.
func (d *Dispatcher) Fetch(ctx context.Context, req *FetchRequest) (*FetchResult, error) {
	return d.Dispatch(ctx, req)
}

// Dispatch fetches req with the remembered engine for its domain, falling
// back to escalation through every engine. If all engines fail, it returns
// the error of the last one tried.
func (d *Dispatcher) Dispatch(ctx context.Context, req *FetchRequest) (*FetchResult, error) {
	switch len(d.engines) {
	case 0:
		return nil, fmt.Errorf("dispatcher: no engines configured")
	case 1:
		return d.engines[0].Fetch(ctx, req)
	}

	domain := extractDomain(req.URL)

	var failed string
	if remembered := d.memory.Get(domain); remembered != "" {
		for _, eng := range d.engines {
			if eng.Name() != remembered {
				continue
			}
			slog.Debug("domain memory hit", "domain", domain, "engine", remembered)
			result, err := eng.Fetch(ctx, req)
			if err == nil {
				return result, nil
			}
			if ctx.Err() != nil {
				return nil, categorizeError(err, "fetch "+req.URL)
			}
			slog.Info("domain memory miss (engine failed), escalating",
				"domain", domain, "engine", remembered, "error", err)
			d.memory.Delete(domain)
			failed = remembered
			break
		}
	}

	return d.escalate(ctx, req, domain, failed)
}

// escalate tries the engines in order, one at a time, skipping the engine
// named skip. Each engine runs under its budget; the next one starts only
// after the previous Fetch returned.
func (d *Dispatcher) escalate(ctx context.Context, req *FetchRequest, domain, skip string) (*FetchResult, error) {
	var lastErr error
	for i, eng := range d.engines {
		if eng.Name() == skip {
			continue
		}
		if err := ctx.Err(); err != nil {
			lastErr = err
			break
		}

		attemptCtx, cancel := ctx, context.CancelFunc(func() {})
		if d.budgets[i] > 0 {
			attemptCtx, cancel = context.WithTimeout(ctx, d.budgets[i])
		}
		slog.Debug("engine starting", "engine", eng.Name(), "url", req.URL, "budget", d.budgets[i])
		result, err := eng.Fetch(attemptCtx, req)
		cancel()

		if err == nil {
			slog.Debug("engine succeeded", "engine", result.EngineName, "url", req.URL)
			d.memory.Set(domain, result.EngineName)
			return result, nil
		}
		slog.Debug("engine failed", "engine", eng.Name(), "url", req.URL, "error", err)
		lastErr = err
	}

	if lastErr == nil {
		lastErr = fmt.Errorf("dispatcher: all engines failed for %s", req.URL)
	}
	return nil, categorizeError(lastErr, "all engines failed for "+req.URL)
}

// extractDomain parses the hostname from a URL string.
func extractDomain(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return rawURL
	}
	return u.Hostname()
}
