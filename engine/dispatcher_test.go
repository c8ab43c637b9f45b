package engine

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/use-agent/harvester/models"
)

// inflight tracks how many engine fetches run at once.
type inflight struct {
	mu   sync.Mutex
	now  int
	peak int
}

func (g *inflight) enter() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.now++
	if g.now > g.peak {
		g.peak = g.now
	}
}

func (g *inflight) leave() {
	g.mu.Lock()
	g.now--
	g.mu.Unlock()
}

func (g *inflight) Peak() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.peak
}

type fakeEngine struct {
	name  string
	delay time.Duration
	err   error
	calls atomic.Int32
	gauge *inflight
}

func (f *fakeEngine) Name() string { return f.name }

func (f *fakeEngine) Fetch(ctx context.Context, req *FetchRequest) (*FetchResult, error) {
	f.calls.Add(1)
	if f.gauge != nil {
		f.gauge.enter()
		defer f.gauge.leave()
	}
	if f.delay > 0 {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(f.delay):
		}
	}
	if f.err != nil {
		return nil, f.err
	}
	return &FetchResult{HTML: "<p>" + f.name + "</p>", EngineName: f.name, FinalURL: req.URL}, nil
}

func TestDispatcher_SingleEnginePassThrough(t *testing.T) {
	want := models.NewStatusError(503, "https://example.org/a")
	only := &fakeEngine{name: "http", err: want}
	d := NewDispatcher([]Engine{only}, nil, nil)

	_, err := d.Fetch(context.Background(), &FetchRequest{URL: "https://example.org/a"})
	require.Error(t, err)

	var he *models.HarvestError
	require.True(t, errors.As(err, &he))
	assert.Equal(t, 503, he.StatusCode)
	assert.Equal(t, []string{"http"}, d.Engines())
}

func TestDispatcher_NoEngines(t *testing.T) {
	_, err := NewDispatcher(nil, nil, nil).Fetch(context.Background(), &FetchRequest{URL: "x"})
	assert.Error(t, err)
}

func TestDispatcher_EscalatesOnFailure(t *testing.T) {
	fast := &fakeEngine{name: "http", err: errors.New("blocked")}
	slow := &fakeEngine{name: "rod"}
	memory := NewDomainMemory(time.Hour)
	defer memory.Stop()

	d := NewDispatcher([]Engine{fast, slow}, []time.Duration{0, 10 * time.Millisecond}, memory)

	res, err := d.Fetch(context.Background(), &FetchRequest{URL: "https://example.org/a"})
	require.NoError(t, err)
	assert.Equal(t, "rod", res.EngineName)
	assert.Equal(t, "rod", memory.Get("example.org"))

	// The remembered engine is tried alone next time.
	res, err = d.Fetch(context.Background(), &FetchRequest{URL: "https://example.org/b"})
	require.NoError(t, err)
	assert.Equal(t, "rod", res.EngineName)
	assert.Equal(t, int32(1), fast.calls.Load())
	assert.Equal(t, int32(2), slow.calls.Load())
}

func TestDispatcher_FirstSuccessStops(t *testing.T) {
	first := &fakeEngine{name: "http"}
	second := &fakeEngine{name: "rod"}

	d := NewDispatcher([]Engine{first, second}, []time.Duration{0, 0}, nil)

	res, err := d.Fetch(context.Background(), &FetchRequest{URL: "https://example.org/a"})
	require.NoError(t, err)
	assert.Equal(t, "http", res.EngineName)
	assert.Equal(t, int32(0), second.calls.Load())
}

func TestDispatcher_NeverOverlapsEngines(t *testing.T) {
	gauge := &inflight{}
	slow := &fakeEngine{name: "http", delay: 300 * time.Millisecond, gauge: gauge}
	rod := &fakeEngine{name: "rod", gauge: gauge}

	d := NewDispatcher([]Engine{slow, rod}, []time.Duration{0, 50 * time.Millisecond}, nil)

	start := time.Now()
	res, err := d.Fetch(context.Background(), &FetchRequest{URL: "https://example.org/a"})
	require.NoError(t, err)
	assert.Equal(t, "rod", res.EngineName, "the slow engine is cut off at its budget")
	assert.Less(t, time.Since(start), 300*time.Millisecond)
	assert.Equal(t, 1, gauge.Peak())
}

func TestDispatcher_ZeroDelayWaitsForFailure(t *testing.T) {
	gauge := &inflight{}
	slow := &fakeEngine{name: "http", delay: 30 * time.Millisecond, err: errors.New("blocked"), gauge: gauge}
	rod := &fakeEngine{name: "rod", gauge: gauge}

	d := NewDispatcher([]Engine{slow, rod}, nil, nil)

	start := time.Now()
	res, err := d.Fetch(context.Background(), &FetchRequest{URL: "https://example.org/a"})
	require.NoError(t, err)
	assert.Equal(t, "rod", res.EngineName)
	assert.GreaterOrEqual(t, time.Since(start), 30*time.Millisecond)
	assert.Equal(t, 1, gauge.Peak())
}

func TestDispatcher_FailedMemoryEngineNotRetried(t *testing.T) {
	memory := NewDomainMemory(time.Hour)
	defer memory.Stop()
	memory.Set("example.org", "rod")

	httpEng := &fakeEngine{name: "http"}
	rod := &fakeEngine{name: "rod", err: errors.New("crashed")}
	d := NewDispatcher([]Engine{httpEng, rod}, nil, memory)

	res, err := d.Fetch(context.Background(), &FetchRequest{URL: "https://example.org/a"})
	require.NoError(t, err)
	assert.Equal(t, "http", res.EngineName)
	assert.Equal(t, int32(1), rod.calls.Load())
	assert.Equal(t, "http", memory.Get("example.org"))
}

func TestDispatcher_AllFail(t *testing.T) {
	a := &fakeEngine{name: "http", err: errors.New("a failed")}
	b := &fakeEngine{name: "rod", err: models.NewStatusError(404, "https://example.org/a")}

	d := NewDispatcher([]Engine{a, b}, []time.Duration{0, 5 * time.Millisecond}, nil)

	_, err := d.Fetch(context.Background(), &FetchRequest{URL: "https://example.org/a"})
	require.Error(t, err)

	var he *models.HarvestError
	require.True(t, errors.As(err, &he))
	assert.Equal(t, models.ErrCodeFetchStatus, he.Code)
}

func TestDomainMemory_Expiry(t *testing.T) {
	m := NewDomainMemory(time.Minute)
	defer m.Stop()

	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	m.now = func() time.Time { return now }

	m.Set("www.Example.org", "rod")
	assert.Equal(t, "rod", m.Get("example.org"), "www. and case are folded")

	now = now.Add(2 * time.Minute)
	m.sweep()
	assert.Empty(t, m.Get("example.org"))

	var nilMemory *DomainMemory
	nilMemory.Set("example.org", "rod")
	assert.Empty(t, nilMemory.Get("example.org"))
	nilMemory.Delete("example.org")
	nilMemory.Stop()
}
