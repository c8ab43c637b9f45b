package engine

import (
	"context"
	"log/slog"
	"net/url"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/proto"
	"github.com/go-rod/stealth"
	"github.com/ysmood/gson"

	"github.com/use-agent/harvester/models"
)

// navigationStatusJS reads the HTTP status of the main document from the
// navigation timing entry. Event listeners on the Network domain conflict
// with the hijack router, so this is the only reliable source.
const navigationStatusJS = `() => {
	try {
		const entries = performance.getEntriesByType("navigation");
		if (entries.length > 0) return entries[0].responseStatus || 0;
	} catch(e) {}
	return 0;
}`

// RodEngine renders pages in the shared headless browser. The forceStealth
// flag distinguishes "rod" from "rod-stealth".
type RodEngine struct {
	browser      *Browser
	headers      map[string]string
	forceStealth bool
	name         string
}

// NewRodEngine creates a RodEngine on top of an already launched browser.
// headers are sent with every navigation.
func NewRodEngine(browser *Browser, headers map[string]string, forceStealth bool) *RodEngine {
	name := "rod"
	if forceStealth {
		name = "rod-stealth"
	}
	return &RodEngine{
		browser:      browser,
		headers:      headers,
		forceStealth: forceStealth,
		name:         name,
	}
}

func (e *RodEngine) Name() string { return e.name }

// Fetch navigates a pooled tab to req.URL and returns the rendered HTML.
//
// Stealth scripts and the hijack router are installed before navigation;
// both only affect navigations that start after they are in place.
func (e *RodEngine) Fetch(ctx context.Context, req *FetchRequest) (*FetchResult, error) {
	if req.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, req.Timeout)
		defer cancel()
	}

	page, err := e.browser.acquire()
	if err != nil {
		return nil, err
	}
	// Cleanup uses the page without the request context so it succeeds
	// even after the deadline.
	defer e.browser.release(page)

	if e.forceStealth || req.Stealth {
		if _, err := page.EvalOnNewDocument(stealth.JS); err != nil {
			slog.Warn("stealth injection failed, proceeding without stealth", "error", err)
		}
	}

	if headers := e.mergeHeaders(req); len(headers) > 0 {
		_ = proto.NetworkSetExtraHTTPHeaders{Headers: toHeadersMap(headers)}.Call(page)
	}
	for _, c := range req.Cookies {
		domain := c.Domain
		if domain == "" {
			if u, err := url.Parse(req.URL); err == nil {
				domain = u.Host
			}
		}
		path := c.Path
		if path == "" {
			path = "/"
		}
		_, _ = proto.NetworkSetCookie{Name: c.Name, Value: c.Value, Domain: domain, Path: path}.Call(page)
	}

	if router := setupHijack(page, e.browser.cfg.BlockedResourceTypes); router != nil {
		defer func() { _ = router.Stop() }()
	}

	p := page.Context(ctx)

	if err := p.Navigate(req.URL); err != nil {
		return nil, categorizeError(err, "navigation to "+req.URL+" failed")
	}
	if err := p.WaitDOMStable(300*time.Millisecond, 0.1); err != nil {
		slog.Debug("WaitDOMStable did not converge, proceeding with current DOM", "error", err)
	}

	statusCode := 0
	if res, err := p.Eval(navigationStatusJS); err == nil {
		statusCode = res.Value.Int()
	}
	if statusCode >= 400 {
		return nil, models.NewStatusError(statusCode, req.URL)
	}

	rawHTML, err := p.HTML()
	if err != nil {
		return nil, categorizeError(err, "failed to extract page HTML")
	}

	finalURL := evalStringOrEmpty(p, `() => window.location.href`)
	if finalURL == "" {
		finalURL = req.URL
	}

	return &FetchResult{
		HTML:        rawHTML,
		Title:       evalStringOrEmpty(p, `() => document.title`),
		StatusCode:  statusCode,
		FinalURL:    finalURL,
		ContentType: "text/html; charset=utf-8",
		EngineName:  e.name,
	}, nil
}

func (e *RodEngine) mergeHeaders(req *FetchRequest) map[string]string {
	out := make(map[string]string, len(e.headers)+len(req.Headers))
	for k, v := range e.headers {
		out[k] = v
	}
	for k, v := range req.Headers {
		out[k] = v
	}
	return out
}

// evalStringOrEmpty evaluates a JS expression and returns the string result,
// swallowing any errors.
func evalStringOrEmpty(page *rod.Page, js string) string {
	res, err := page.Eval(js)
	if err != nil {
		return ""
	}
	return res.Value.Str()
}

// toHeadersMap converts a plain string map to proto.NetworkHeaders
// (map[string]gson.JSON).
func toHeadersMap(headers map[string]string) proto.NetworkHeaders {
	m := make(proto.NetworkHeaders, len(headers))
	for k, v := range headers {
		m[k] = gson.New(v)
	}
	return m
}
