package engine

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/use-agent/harvester/config"
)

// domainMemoryTTL is how long a successful engine is remembered per domain.
const domainMemoryTTL = 24 * time.Hour

// New builds the dispatcher for the configured fetch mode:
//
//   - "http": the utls HTTP engine only; no browser is launched.
//   - "browser": the rod engine only (rod-stealth when stealth is enabled).
//   - "auto": http, then rod, then rod-stealth, one at a time; each
//     escalation delay bounds the engine before it.
//
// The returned cleanup function stops the browser and the domain memory; it
// is never nil.
func New(fetch config.FetchConfig, browserCfg config.BrowserConfig) (*Dispatcher, func(), error) {
	httpEngine := NewHTTPEngine(HTTPOptions{
		UserAgent: fetch.UserAgent,
		Headers:   fetch.Headers,
		Proxy:     browserCfg.Proxy,
	})

	switch fetch.Mode {
	case "", "http":
		slog.Info("fetch engines ready", "mode", "http")
		return NewDispatcher([]Engine{httpEngine}, nil, nil), func() {}, nil

	case "browser":
		browser, err := LaunchBrowser(browserCfg)
		if err != nil {
			return nil, func() {}, err
		}
		rod := NewRodEngine(browser, fetch.Headers, browserCfg.Stealth)
		slog.Info("fetch engines ready", "mode", "browser", "engine", rod.Name(),
			"maxPages", browserCfg.MaxPages)
		return NewDispatcher([]Engine{rod}, nil, nil), browser.Close, nil

	case "auto":
		browser, err := LaunchBrowser(browserCfg)
		if err != nil {
			return nil, func() {}, err
		}
		engines := []Engine{
			httpEngine,
			NewRodEngine(browser, fetch.Headers, false),
			NewRodEngine(browser, fetch.Headers, true),
		}
		memory := NewDomainMemory(domainMemoryTTL)
		slog.Info("fetch engines ready", "mode", "auto",
			"engines", len(engines), "delays", fetch.EscalationDelays)

		cleanup := func() {
			memory.Stop()
			browser.Close()
		}
		return NewDispatcher(engines, fetch.EscalationDelays, memory), cleanup, nil

	default:
		return nil, func() {}, fmt.Errorf("engine: unknown fetch mode %q", fetch.Mode)
	}
}
