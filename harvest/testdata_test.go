package harvest

import (
	"context"
	"sync"
	"time"

	"github.com/use-agent/harvester/engine"
)

const categoryPage = `<html><body>
<div id="mw-pages">
  <h2>Pages in category "Companies"</h2>
  <div class="mw-content-ltr">
    <div class="mw-category">
      <div class="mw-category-group"><h3>A</h3>
        <ul>
          <li><a href="/wiki/Acme" title="Acme Corp">Acme</a></li>
          <li><a href="/wiki/Apex" title="Apex Ltd">Apex</a></li>
        </ul>
      </div>
      <div class="mw-category-group"><h3>B</h3><ul></ul></div>
      <div class="mw-category-group"><h3>C</h3>
        <ul>
          <li><a href="https://other.example/Cobalt">Cobalt  Inc</a></li>
          <li>no link here</li>
          <li><a title="Dangling">missing href</a></li>
        </ul>
      </div>
    </div>
  </div>
</div>
</body></html>`

const acmePage = `<html><head><title>Acme</title></head><body>
<table class="infobox vcard">
  <tr><th colspan="2">Acme Corp</th></tr>
  <tr><th>Type</th><td> Subsidiary </td></tr>
  <tr><td>orphan value</td></tr>
  <tr><th>Founded</th><td>1999</td></tr>
</table>
</body></html>`

const apexPage = `<html><body>
<table class="infobox">
  <tr><th>Headquarters</th><td>Springfield</td></tr>
</table>
</body></html>`

const plainPage = `<html><body><p>No info box here.</p></body></html>`

// fakeFetcher serves canned pages and errors keyed by URL.
type fakeFetcher struct {
	mu     sync.Mutex
	pages  map[string]string
	errs   map[string][]error
	calls  []string
	inside int
	maxIn  int
}

func (f *fakeFetcher) Fetch(ctx context.Context, req *engine.FetchRequest) (*engine.FetchResult, error) {
	f.mu.Lock()
	f.calls = append(f.calls, req.URL)
	f.inside++
	if f.inside > f.maxIn {
		f.maxIn = f.inside
	}
	var err error
	if queue := f.errs[req.URL]; len(queue) > 0 {
		err = queue[0]
		f.errs[req.URL] = queue[1:]
	}
	body, ok := f.pages[req.URL]
	f.mu.Unlock()

	// Give overlapping callers a chance to collide.
	time.Sleep(time.Millisecond)

	f.mu.Lock()
	f.inside--
	f.mu.Unlock()

	if err != nil {
		return nil, err
	}
	if !ok {
		body = plainPage
	}
	return &engine.FetchResult{
		HTML:        body,
		StatusCode:  200,
		FinalURL:    req.URL,
		ContentType: "text/html; charset=utf-8",
		EngineName:  "fake",
	}, nil
}

func (f *fakeFetcher) Calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

// recordingSleep replaces real pauses and records them.
type recordingSleep struct {
	mu     sync.Mutex
	pauses []time.Duration
}

func (r *recordingSleep) sleep(ctx context.Context, d time.Duration) error {
	r.mu.Lock()
	r.pauses = append(r.pauses, d)
	r.mu.Unlock()
	return ctx.Err()
}

func (r *recordingSleep) Pauses() []time.Duration {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]time.Duration(nil), r.pauses...)
}
