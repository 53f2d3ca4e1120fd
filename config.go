package main

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config holds all runtime tuning knobs and heuristic word lists.
// Every heuristic the crawl relies on lives here, so locale coverage can be
// extended without touching the crawl logic.
type Config struct {
	MaxPagesPerDomain  int
	MaxConcurrentSites int
	MaxEmailsPerDomain int

	// Sustained rate of new site starts per second. The concurrency cap
	// bounds how many crawls run at once; this bounds how fast they begin.
	SiteStartRate float64

	FetchTimeout  time.Duration
	RenderTimeout time.Duration
	RenderSettle  time.Duration
	CheckTimeout  time.Duration

	UserAgent string

	// A lightweight fetch that reveals fewer internal links than this is
	// considered insufficient and escalates to the rendered fetch.
	MinLinksBeforeRender int

	// Ordered: priority-1 wins over priority-2.
	ContactKeywords   []string
	SecondaryKeywords []string

	// Ordered by descending relevance; the first match scores highest.
	CorporatePrefixes []string

	// Substring denylist for extracted addresses.
	DenyTerms []string

	// Link targets skipped during extraction.
	SkipLinkKeywords   []string
	SkipLinkExtensions []string

	MailtoBonus     int
	StructuralBonus int
	DomainBonus     int
}

// DefaultConfig mirrors the scraper's long-standing defaults; the numeric
// limits can be overridden from the environment.
func DefaultConfig() *Config {
	cfg := &Config{
		MaxPagesPerDomain:    5,
		MaxConcurrentSites:   3,
		MaxEmailsPerDomain:   5,
		SiteStartRate:        3,
		FetchTimeout:         20 * time.Second,
		RenderTimeout:        40 * time.Second,
		RenderSettle:         3 * time.Second,
		CheckTimeout:         10 * time.Second,
		UserAgent:            "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36",
		MinLinksBeforeRender: 5,

		ContactKeywords: []string{"contact", "contacts", "contatti", "kontakt", "kontakty"},
		SecondaryKeywords: []string{
			"about", "team", "staff", "imprint", "legal", "feedback", "company",
			"o-nas", "komanda",
		},
		CorporatePrefixes: []string{
			"info", "contact", "sales", "support", "admin", "hello", "mail",
			"marketing", "press", "jobs", "office", "reception", "billing",
		},
		DenyTerms: []string{
			"example", "test", "sample", "demo", "sentry.io", "wixpress.com",
			".jpg", ".jpeg", ".png", ".gif", ".pdf", ".doc", ".zip",
		},
		SkipLinkKeywords: []string{
			"login", "signin", "register", "cart", "checkout", "my-account",
			"tel:", "mailto:", "javascript:",
		},
		SkipLinkExtensions: []string{
			".jpg", ".jpeg", ".png", ".gif", ".pdf", ".zip", ".rar",
			".css", ".js", ".xml", ".svg", ".webp",
		},

		MailtoBonus:     50,
		StructuralBonus: 30,
		DomainBonus:     100,
	}

	cfg.MaxPagesPerDomain = envInt("MAX_PAGES_PER_DOMAIN", cfg.MaxPagesPerDomain)
	cfg.MaxConcurrentSites = envInt("MAX_CONCURRENT_SITES", cfg.MaxConcurrentSites)
	cfg.MaxEmailsPerDomain = envInt("MAX_EMAILS_PER_DOMAIN", cfg.MaxEmailsPerDomain)
	return cfg
}

// Validate checks that the limits are usable.
func (c *Config) Validate() error {
	if c.MaxConcurrentSites < 1 {
		return fmt.Errorf("MAX_CONCURRENT_SITES must be >= 1, got %d", c.MaxConcurrentSites)
	}
	if c.MaxEmailsPerDomain < 1 {
		return fmt.Errorf("MAX_EMAILS_PER_DOMAIN must be >= 1, got %d", c.MaxEmailsPerDomain)
	}
	if c.MaxPagesPerDomain < 1 {
		return fmt.Errorf("MAX_PAGES_PER_DOMAIN must be >= 1, got %d", c.MaxPagesPerDomain)
	}
	if c.SiteStartRate <= 0 {
		return fmt.Errorf("site start rate must be > 0, got %f", c.SiteStartRate)
	}
	return nil
}

func envInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}
