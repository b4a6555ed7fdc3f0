package main

import (
	"fmt"

	"marketplace-scraper/config"
	"marketplace-scraper/extract"
	"marketplace-scraper/scraper"
	"marketplace-scraper/services"
	"marketplace-scraper/sources"
	"marketplace-scraper/utils"
)

const mobileUserAgent = "Mozilla/5.0 (iPhone; CPU iPhone OS 17_0 like Mac OS X) AppleWebKit/605.1.15 " +
	"(KHTML, like Gecko) Version/17.0 Mobile/15E148 Safari/604.1"

// buildBackends assembles the configured backends in priority order. The
// returned cleanup shuts down the shared browser session, if one was made.
func buildBackends(cfg *config.Config, profile services.Profile, logger *utils.Logger) ([]services.Backend, func(), error) {
	var session *scraper.Session
	cleanup := func() { session.Close() }

	windowMin, windowMax := cfg.WindowDelayRange()
	browserOpts := scraper.BrowserOptions{ChromeBin: cfg.ChromeBin, Headless: cfg.Headless}

	var backends []services.Backend
	for _, name := range cfg.Backends {
		builder, err := sources.ForName(cfg.Source, name == config.BackendMobile)
		if err != nil {
			return nil, cleanup, err
		}
		chain := extract.NewChain(builder.Source(), logger, extract.WithAccumulate(cfg.AccumulateStrategies))

		var (
			fetcher      scraper.Fetcher
			interpolator *services.Interpolator
		)
		switch name {
		case config.BackendRequests:
			fetcher = scraper.NewDocumentFetcher(scraper.CollectorOptions{
				Timeout:     cfg.FetchTimeout(),
				RandomDelay: cfg.RequestDelay(),
			}, logger)
			interpolator = services.NewInterpolator(services.ProfileSingle, nil, logger)
		case config.BackendMobile:
			fetcher = scraper.NewDocumentFetcher(scraper.CollectorOptions{
				Timeout:     cfg.FetchTimeout(),
				RandomDelay: cfg.RequestDelay(),
				UserAgent:   mobileUserAgent,
			}, logger)
			interpolator = services.NewInterpolator(services.ProfileSingle, nil, logger)
		case config.BackendBrowser:
			if session == nil {
				session = scraper.NewSession(browserOpts)
			}
			fetcher = scraper.NewBrowserFetcher(session, browserOpts, cfg.FetchTimeout(), nil, logger)
			interpolator = services.NewInterpolator(profile, utils.NewBackoff(0, windowMin, windowMax, logger), logger)
		case config.BackendProxy:
			if len(cfg.Proxies) == 0 {
				logger.Warn("[main] Skipping proxy backend: PROXIES is empty")
				continue
			}
			fetcher = scraper.NewBrowserFetcher(nil, browserOpts, cfg.FetchTimeout(), cfg.Proxies, logger)
			interpolator = services.NewInterpolator(profile, utils.NewBackoff(0, windowMin, windowMax, logger), logger)
		default:
			return nil, cleanup, fmt.Errorf("unknown backend %q", name)
		}

		backends = append(backends, services.NewPipelineBackend(name, builder, fetcher, chain, interpolator, logger))
	}

	if len(backends) == 0 {
		return nil, cleanup, fmt.Errorf("no usable backends configured")
	}
	return backends, cleanup, nil
}
