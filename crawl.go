package main

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"
)

// expandedPageLimit caps the fallback crawl when no domain-matching address
// turned up on the home or contact page.
const expandedPageLimit = 2

// siteCrawler walks one site through the three-level strategy: home page,
// then the best contact page, then a small set of secondary pages. Each
// level only runs when the previous one did not already produce a
// high-confidence address, so the cheap outcome is the common one.
type siteCrawler struct {
	cfg    *Config
	fetch  PageFetcher
	render PageFetcher
	banned map[string]bool
}

// Crawl always returns a terminal result; any panic below is converted to
// an error status here so a single broken site cannot take down the batch.
func (sc *siteCrawler) Crawl(ctx context.Context, rawURL string) (res CrawlResult) {
	res = CrawlResult{SiteURL: rawURL}
	defer func() {
		if r := recover(); r != nil {
			logrus.Errorf("[%s] crawl panic: %v", rawURL, r)
			res = CrawlResult{SiteURL: rawURL, Status: StatusError, Detail: fmt.Sprint(r)}
		}
	}()

	normalized := NormalizeURL(rawURL)
	if normalized == "" {
		res.Status = StatusInvalidURL
		return
	}

	html, finalURL, links, err := sc.fetchHome(ctx, normalized)
	if err != nil {
		logrus.Infof("[%s] unreachable: %v", rawURL, err)
		res.Status = StatusUnreachable
		return
	}

	candidates := ExtractEmailCandidates(sc.cfg, html)

	// Level 1: a domain-matching or otherwise overwhelming home-page hit
	// ends the crawl before any further network traffic.
	ranked := RankCandidates(sc.cfg, FilterCandidates(sc.cfg, candidates.list()), normalized)
	if len(ranked) > 0 && ranked[0].TotalScore >= sc.cfg.DomainBonus {
		res.Emails = topAddresses(ranked, sc.cfg.MaxEmailsPerDomain)
		res.ContactPage = HomePageLabel
		res.Status = StatusSuccessOnHomePage
		logrus.Infof("[%s] solved on home page (%d emails)", rawURL, len(res.Emails))
		return
	}

	// Level 2: the single best contact candidate, rendered. Contact pages
	// are exactly where script-built obfuscation concentrates.
	buckets := ClassifyLinks(sc.cfg, links)
	visited := map[string]bool{normalized: true, finalURL: true}
	pagesScanned := 0
	if best := buckets.BestContactLink(); best != "" {
		res.ContactPage = best
		visited[best] = true
		pagesScanned++
		if chtml, _, err := sc.render.Fetch(ctx, best); err == nil {
			candidates.addAll(ExtractEmailCandidates(sc.cfg, chtml))
		} else {
			logrus.Warnf("[%s] contact page %s: %v", rawURL, best, err)
		}
	}

	// Level 3: only when nothing domain-matching has surfaced yet.
	ranked = RankCandidates(sc.cfg, FilterCandidates(sc.cfg, candidates.list()), normalized)
	if !hasDomainMatch(ranked) {
		expanded := 0
		for _, link := range buckets.secondaryPages {
			if expanded == expandedPageLimit || pagesScanned >= sc.cfg.MaxPagesPerDomain {
				break
			}
			if visited[link] {
				continue
			}
			visited[link] = true
			expanded++
			pagesScanned++
			candidates.addAll(sc.scanPage(ctx, link))
		}
		ranked = RankCandidates(sc.cfg, FilterCandidates(sc.cfg, candidates.list()), normalized)
	}

	res.Emails = topAddresses(ranked, sc.cfg.MaxEmailsPerDomain)
	switch {
	case len(res.Emails) > 0:
		res.Status = StatusSuccess
	case res.ContactPage != "":
		res.Status = StatusContactPageNoEmail
	default:
		res.Status = StatusNoEmailFound
	}
	logrus.Infof("[%s] done: %d emails, status %q", rawURL, len(res.Emails), res.Status)
	return
}

// fetchHome applies the escalation policy: lightweight first, full
// rendering only when the cheap fetch failed outright or came back with
// suspiciously few internal links.
func (sc *siteCrawler) fetchHome(ctx context.Context, pageURL string) (string, string, []string, error) {
	rendered := false
	html, finalURL, err := sc.fetch.Fetch(ctx, pageURL)
	if err != nil {
		logrus.Debugf("[%s] lightweight fetch failed, rendering: %v", pageURL, err)
		html, finalURL, err = sc.render.Fetch(ctx, pageURL)
		if err != nil {
			return "", "", nil, err
		}
		rendered = true
	}

	links := ExtractInternalLinks(sc.cfg, html, finalURL, sc.banned)
	if !rendered && len(links) < sc.cfg.MinLinksBeforeRender {
		logrus.Infof("[%s] only %d internal links, escalating to rendered fetch", pageURL, len(links))
		if rhtml, rfinal, rerr := sc.render.Fetch(ctx, pageURL); rerr == nil {
			html, finalURL = rhtml, rfinal
			links = ExtractInternalLinks(sc.cfg, html, finalURL, sc.banned)
		}
	}
	return html, finalURL, links, nil
}

// scanPage is the hybrid used for expanded-search pages: the cheap fetch
// first, the renderer only when it produced nothing.
func (sc *siteCrawler) scanPage(ctx context.Context, pageURL string) *candidateSet {
	if html, _, err := sc.fetch.Fetch(ctx, pageURL); err == nil {
		if set := ExtractEmailCandidates(sc.cfg, html); set.len() > 0 {
			return set
		}
	}
	if html, _, err := sc.render.Fetch(ctx, pageURL); err == nil {
		return ExtractEmailCandidates(sc.cfg, html)
	}
	return newCandidateSet()
}

func hasDomainMatch(ranked []RankedEmail) bool {
	for _, r := range ranked {
		if r.DomainMatch {
			return true
		}
	}
	return false
}
