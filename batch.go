package main

import (
	"context"
	"crypto/tls"
	"fmt"
	"net/http"
	"sync"

	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"
)

// ProgressFunc is invoked after every completed site with the overall
// percentage, the number of finished sites and the total. It may see the
// same percentage more than once; callers that render it should drop
// identical updates themselves.
type ProgressFunc func(percent, completed, total int)

// Scraper is the batch entry point. One Scraper carries the resources
// shared across every site in a batch: the pooled lightweight client and,
// while a batch runs, the rendering engine.
type Scraper struct {
	cfg    *Config
	fetch  PageFetcher
	render PageFetcher // injected in tests; a real browser otherwise
	check  *http.Client
}

func NewScraper(cfg *Config) *Scraper {
	return &Scraper{
		cfg:   cfg,
		fetch: newHTTPFetcher(cfg),
		check: &http.Client{
			Timeout: cfg.CheckTimeout,
			Transport: &http.Transport{
				TLSClientConfig: &tls.Config{InsecureSkipVerify: true},
			},
		},
	}
}

// ScrapeEmails crawls every URL in urls and returns exactly one CrawlResult
// per input, keyed by the raw input string. Individual site failures become
// statuses, never errors; the only error returned is the caller's own
// cancellation, in which case results for unfinished sites are simply
// absent. banned maps an input URL to links its crawl must skip.
func (s *Scraper) ScrapeEmails(ctx context.Context, urls []string, progress ProgressFunc, banned map[string]map[string]bool) (map[string]CrawlResult, error) {
	results := make(map[string]CrawlResult, len(urls))
	if len(urls) == 0 {
		return results, nil
	}

	render := s.render
	if render == nil {
		browser, err := NewBrowser(ctx)
		if err != nil {
			return nil, fmt.Errorf("start rendering engine: %w", err)
		}
		defer browser.Close()
		render = &renderFetcher{cfg: s.cfg, browser: browser}
	}

	// The semaphore caps how many sites run at once; the token bucket caps
	// how fast new ones may start. Both are needed: a burst of instant
	// failures would otherwise rotate the whole cap every few milliseconds.
	sem := make(chan struct{}, s.cfg.MaxConcurrentSites)
	limiter := rate.NewLimiter(rate.Limit(s.cfg.SiteStartRate), 1)

	type siteResult struct {
		input  string
		result CrawlResult
	}
	out := make(chan siteResult)

	var wg sync.WaitGroup
	for _, raw := range urls {
		wg.Add(1)
		go func(raw string) {
			defer wg.Done()
			if err := limiter.Wait(ctx); err != nil {
				return
			}
			select {
			case sem <- struct{}{}:
			case <-ctx.Done():
				return
			}
			defer func() { <-sem }()

			sc := &siteCrawler{cfg: s.cfg, fetch: s.fetch, render: render, banned: banned[raw]}
			res := sc.Crawl(ctx, raw)
			select {
			case out <- siteResult{raw, res}:
			case <-ctx.Done():
			}
		}(raw)
	}
	go func() {
		wg.Wait()
		close(out)
	}()

	total := len(urls)
	completed := 0
	for sr := range out {
		results[sr.input] = sr.result
		completed++
		notifyProgress(progress, completed, total)
	}

	if err := ctx.Err(); err != nil {
		return results, err
	}
	return results, nil
}

// notifyProgress shields the batch from the callback: whatever it does,
// the aggregation loop keeps going.
func notifyProgress(progress ProgressFunc, completed, total int) {
	if progress == nil {
		return
	}
	defer func() {
		if r := recover(); r != nil {
			logrus.Warnf("progress callback failed: %v", r)
		}
	}()
	progress(completed*100/total, completed, total)
}
