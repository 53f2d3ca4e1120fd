package main

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"
)

// fakeFetcher serves scripted pages and records every fetch so tests can
// assert how much network activity a crawl generated.
type fakeFetcher struct {
	name  string
	pages map[string]string
	log   *fetchLog
}

type fetchLog struct {
	mu    sync.Mutex
	calls []string
}

func (l *fetchLog) record(entry string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.calls = append(l.calls, entry)
}

func (l *fetchLog) all() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]string(nil), l.calls...)
}

func (f *fakeFetcher) Fetch(ctx context.Context, pageURL string) (string, string, error) {
	if err := ctx.Err(); err != nil {
		return "", "", err
	}
	f.log.record(f.name + " " + pageURL)
	html, ok := f.pages[pageURL]
	if !ok {
		return "", "", fmt.Errorf("%s: no page scripted for %s", f.name, pageURL)
	}
	return html, pageURL, nil
}

func testConfig() *Config {
	cfg := DefaultConfig()
	cfg.SiteStartRate = 1000 // keep batch tests instant
	return cfg
}

func newTestCrawler(light, rendered map[string]string) (*siteCrawler, *fetchLog) {
	log := &fetchLog{}
	return &siteCrawler{
		cfg:    testConfig(),
		fetch:  &fakeFetcher{name: "http", pages: light, log: log},
		render: &fakeFetcher{name: "render", pages: rendered, log: log},
	}, log
}

// fillerLinks keeps the home page above the link threshold so tests only
// trigger the renderer when they mean to.
const fillerLinks = `<a href="/blog">b</a><a href="/products">p</a>
	<a href="/services">s</a><a href="/news">n</a><a href="/pricing">pr</a>`

func TestCrawlEarlyExitOnHomePage(t *testing.T) {
	home := `<html><body>` + fillerLinks +
		`<a href="/contact">contact</a>
		<footer><a href="mailto:info@acme.com">Contact</a></footer></body></html>`
	sc, log := newTestCrawler(map[string]string{"https://acme.com": home}, nil)

	res := sc.Crawl(context.Background(), "https://acme.com")

	if res.Status != StatusSuccessOnHomePage {
		t.Fatalf("status = %v, want SuccessOnHomePage", res.Status)
	}
	if len(res.Emails) != 1 || res.Emails[0] != "info@acme.com" {
		t.Errorf("emails = %v, want [info@acme.com]", res.Emails)
	}
	if res.ContactPage != HomePageLabel {
		t.Errorf("contact page = %q, want %q", res.ContactPage, HomePageLabel)
	}
	if calls := log.all(); len(calls) != 1 {
		t.Errorf("early exit must stop after the home fetch, got %v", calls)
	}
}

func TestCrawlContactPageLevel(t *testing.T) {
	home := `<html><body>` + fillerLinks + `<a href="/contatti">Contatti</a></body></html>`
	contatti := `<html><body><p>Scrivici: sales@acme.it</p></body></html>`
	sc, log := newTestCrawler(
		map[string]string{"https://acme.it": home},
		map[string]string{"https://acme.it/contatti": contatti},
	)

	res := sc.Crawl(context.Background(), "acme.it")

	if res.Status != StatusSuccess {
		t.Fatalf("status = %v, want Success", res.Status)
	}
	if len(res.Emails) != 1 || res.Emails[0] != "sales@acme.it" {
		t.Errorf("emails = %v, want [sales@acme.it]", res.Emails)
	}
	if res.ContactPage != "https://acme.it/contatti" {
		t.Errorf("contact page = %q", res.ContactPage)
	}
	want := []string{"http https://acme.it", "render https://acme.it/contatti"}
	if got := log.all(); len(got) != 2 || got[0] != want[0] || got[1] != want[1] {
		t.Errorf("fetches = %v, want exactly %v", got, want)
	}
}

func TestCrawlEscalatesWhenFewLinks(t *testing.T) {
	thin := `<html><body><a href="/only">one link</a></body></html>`
	full := `<html><body>` + fillerLinks +
		`<footer><a href="mailto:info@acme.com">write</a></footer></body></html>`
	sc, log := newTestCrawler(
		map[string]string{"https://acme.com": thin},
		map[string]string{"https://acme.com": full},
	)

	res := sc.Crawl(context.Background(), "https://acme.com")

	if res.Status != StatusSuccessOnHomePage {
		t.Fatalf("status = %v, want SuccessOnHomePage after escalation", res.Status)
	}
	want := []string{"http https://acme.com", "render https://acme.com"}
	if got := log.all(); len(got) != 2 || got[0] != want[0] || got[1] != want[1] {
		t.Errorf("fetches = %v, want %v", got, want)
	}
}

func TestCrawlExpandedSearch(t *testing.T) {
	home := `<html><body>` + fillerLinks +
		`<a href="/about">about</a><a href="/team">team</a></body></html>`
	about := `<html><body><p>reach us at office@acme.com</p></body></html>`
	sc, log := newTestCrawler(
		map[string]string{
			"https://acme.com":       home,
			"https://acme.com/about": about,
		},
		nil,
	)

	res := sc.Crawl(context.Background(), "https://acme.com")

	if res.Status != StatusSuccess {
		t.Fatalf("status = %v, want Success from expanded search", res.Status)
	}
	if len(res.Emails) != 1 || res.Emails[0] != "office@acme.com" {
		t.Errorf("emails = %v, want [office@acme.com]", res.Emails)
	}
	// Expanded search stops once the page budget is spent: about found the
	// address, team was still scanned (no domain match known beforehand is
	// resolved per level, not per page), but never more than two.
	for _, call := range log.all() {
		if strings.Contains(call, "/blog") || strings.Contains(call, "/products") {
			t.Errorf("expanded search crawled a non-secondary page: %v", log.all())
		}
	}
}

func TestCrawlExpandedSearchSkippedOnDomainMatch(t *testing.T) {
	home := `<html><body>` + fillerLinks +
		`<a href="/contact">contact</a><a href="/about">about</a></body></html>`
	contact := `<html><body><p>support@acme.com</p></body></html>`
	sc, log := newTestCrawler(
		map[string]string{"https://acme.com": home},
		map[string]string{"https://acme.com/contact": contact},
	)

	res := sc.Crawl(context.Background(), "https://acme.com")

	if res.Status != StatusSuccess {
		t.Fatalf("status = %v, want Success", res.Status)
	}
	for _, call := range log.all() {
		if strings.Contains(call, "/about") {
			t.Errorf("domain match on contact page must stop the crawl, got %v", log.all())
		}
	}
}

func TestCrawlInvalidURL(t *testing.T) {
	sc, log := newTestCrawler(nil, nil)
	res := sc.Crawl(context.Background(), "not a url")
	if res.Status != StatusInvalidURL {
		t.Errorf("status = %v, want InvalidUrl", res.Status)
	}
	if calls := log.all(); len(calls) != 0 {
		t.Errorf("invalid input must not fetch, got %v", calls)
	}
}

func TestCrawlUnreachable(t *testing.T) {
	sc, log := newTestCrawler(nil, nil)
	res := sc.Crawl(context.Background(), "https://down.example.com")
	if res.Status != StatusUnreachable {
		t.Errorf("status = %v, want Unreachable", res.Status)
	}
	// Both strategies must have been tried before giving up.
	if calls := log.all(); len(calls) != 2 {
		t.Errorf("fetches = %v, want lightweight then rendered", calls)
	}
}

func TestCrawlContactPageNoEmail(t *testing.T) {
	home := `<html><body>` + fillerLinks + `<a href="/contact">contact</a></body></html>`
	contact := `<html><body><p>Use the form below.</p></body></html>`
	sc, _ := newTestCrawler(
		map[string]string{"https://acme.com": home},
		map[string]string{"https://acme.com/contact": contact},
	)

	res := sc.Crawl(context.Background(), "https://acme.com")
	if res.Status != StatusContactPageNoEmail {
		t.Errorf("status = %v, want ContactPageFound_NoEmail", res.Status)
	}
	if res.ContactPage != "https://acme.com/contact" {
		t.Errorf("contact page = %q", res.ContactPage)
	}
}

func TestCrawlNoEmailFound(t *testing.T) {
	home := `<html><body>` + fillerLinks + `</body></html>`
	sc, _ := newTestCrawler(map[string]string{"https://acme.com": home}, nil)

	res := sc.Crawl(context.Background(), "https://acme.com")
	if res.Status != StatusNoEmailFound {
		t.Errorf("status = %v, want NoEmailFound", res.Status)
	}
}

func TestCrawlDenylistNeverSurfaces(t *testing.T) {
	home := `<html><body>` + fillerLinks + `
		<footer>
			<a href="mailto:test@example.com">t</a>
			<a href="mailto:info@sentry.io">s</a>
			<p>hero@2x.png</p>
			<a href="mailto:info@acme.com">real</a>
		</footer></body></html>`
	sc, _ := newTestCrawler(map[string]string{"https://acme.com": home}, nil)

	res := sc.Crawl(context.Background(), "https://acme.com")
	if len(res.Emails) != 1 || res.Emails[0] != "info@acme.com" {
		t.Errorf("emails = %v, want only info@acme.com", res.Emails)
	}
}
