package main

import (
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/publicsuffix"
)

var (
	emailPattern = regexp.MustCompile(`\b[A-Za-z0-9._%+\-]+@[A-Za-z0-9.\-]+\.[A-Za-z]{2,7}\b`)
	reLocalOK    = regexp.MustCompile(`^[a-z0-9._%+\-]+$`)
	reLabelOK    = regexp.MustCompile(`^[a-z0-9-]+$`)
	reTLDOK      = regexp.MustCompile(`^[a-z]{2,7}$`)
)

// EmailCandidate is one address-shaped string found on a page, together with
// the strongest structural context it was seen in.
type EmailCandidate struct {
	Address      string
	ContextScore int
	ContextTags  map[string]bool
}

// candidateSet merges repeated sightings of the same address (max score,
// union of tags) while preserving the order of first discovery. That order
// is the tie-break for the final ranking, so it must be deterministic.
type candidateSet struct {
	order  []string
	byAddr map[string]*EmailCandidate
}

func newCandidateSet() *candidateSet {
	return &candidateSet{byAddr: make(map[string]*EmailCandidate)}
}

func (s *candidateSet) add(address string, score int, tags ...string) {
	address = strings.ToLower(strings.TrimSpace(address))
	if address == "" {
		return
	}
	c, ok := s.byAddr[address]
	if !ok {
		c = &EmailCandidate{Address: address, ContextScore: score, ContextTags: make(map[string]bool)}
		s.byAddr[address] = c
		s.order = append(s.order, address)
	} else if score > c.ContextScore {
		c.ContextScore = score
	}
	for _, t := range tags {
		c.ContextTags[t] = true
	}
}

func (s *candidateSet) addAll(other *candidateSet) {
	for _, addr := range other.order {
		c := other.byAddr[addr]
		tags := make([]string, 0, len(c.ContextTags))
		for t := range c.ContextTags {
			tags = append(tags, t)
		}
		s.add(c.Address, c.ContextScore, tags...)
	}
}

func (s *candidateSet) len() int { return len(s.order) }

// list returns the candidates in discovery order.
func (s *candidateSet) list() []EmailCandidate {
	out := make([]EmailCandidate, 0, len(s.order))
	for _, addr := range s.order {
		out = append(out, *s.byAddr[addr])
	}
	return out
}

// ExtractEmailCandidates scans a page for address-shaped strings. Two
// sources are unioned: mailto: link targets and the visible text. Context
// is scored additively: a mailto target earns MailtoBonus, an occurrence
// whose nearest ancestor is a footer, header or address element earns
// StructuralBonus once. Plain-text sightings stay at score 0 and remain
// eligible.
func ExtractEmailCandidates(cfg *Config, html string) *candidateSet {
	set := newCandidateSet()

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		for _, m := range emailPattern.FindAllString(html, -1) {
			set.add(m, 0)
		}
		return set
	}

	// Attribute selectors are case-sensitive, so match every anchor and let
	// addressFromMailto reject the non-mailto ones; MAILTO: is rare but real.
	doc.Find("a[href]").Each(func(_ int, sel *goquery.Selection) {
		href, _ := sel.Attr("href")
		addr := addressFromMailto(href)
		if addr == "" {
			return
		}
		score := cfg.MailtoBonus
		tags := []string{"mailto"}
		if sel.Closest("footer, header, address").Length() > 0 {
			score += cfg.StructuralBonus
			tags = append(tags, "structural")
		}
		set.add(addr, score, tags...)
	})

	doc.Find("footer, header, address").Each(func(_ int, sel *goquery.Selection) {
		for _, m := range emailPattern.FindAllString(sel.Text(), -1) {
			set.add(m, cfg.StructuralBonus, "structural")
		}
	})

	for _, m := range emailPattern.FindAllString(doc.Text(), -1) {
		set.add(m, 0)
	}

	return set
}

// addressFromMailto strips the scheme and any query part from a mailto
// target and keeps only the address-shaped portion.
func addressFromMailto(href string) string {
	if !strings.HasPrefix(strings.ToLower(href), "mailto:") {
		return ""
	}
	addr := href[len("mailto:"):]
	if i := strings.Index(addr, "?"); i != -1 {
		addr = addr[:i]
	}
	addr = strings.ReplaceAll(addr, "%40", "@")
	return emailPattern.FindString(strings.TrimSpace(addr))
}

// FilterCandidates drops denylisted and syntactically broken addresses.
// This runs before ranking, never after: nothing that survives the filter
// is removed later, and nothing that fails it may reach a result.
func FilterCandidates(cfg *Config, candidates []EmailCandidate) []EmailCandidate {
	out := candidates[:0:0]
	for _, c := range candidates {
		addr := strings.Trim(strings.ToLower(c.Address), ".")
		if addr == "" || denylisted(cfg, addr) || !validEmail(addr) {
			continue
		}
		c.Address = addr
		out = append(out, c)
	}
	return out
}

func denylisted(cfg *Config, addr string) bool {
	for _, term := range cfg.DenyTerms {
		if strings.Contains(addr, term) {
			return true
		}
	}
	return false
}

func validEmail(addr string) bool {
	parts := strings.SplitN(addr, "@", 2)
	if len(parts) != 2 {
		return false
	}
	if !reLocalOK.MatchString(parts[0]) {
		return false
	}
	return validDomain(parts[1])
}

// validDomain demands well-formed labels, an alphabetic TLD of 2-7
// characters and a determinable eTLD+1, which kills most of the garbage the
// regex scan drags in from minified scripts.
func validDomain(domain string) bool {
	domain = strings.ToLower(strings.TrimSpace(domain))
	labels := strings.Split(domain, ".")
	if len(labels) < 2 {
		return false
	}
	for _, label := range labels {
		if label == "" || len(label) > 63 || !reLabelOK.MatchString(label) {
			return false
		}
		if strings.HasPrefix(label, "-") || strings.HasSuffix(label, "-") {
			return false
		}
	}
	if !reTLDOK.MatchString(labels[len(labels)-1]) {
		return false
	}
	if etld1, err := publicsuffix.EffectiveTLDPlusOne(domain); err != nil || etld1 == "" {
		return false
	}
	return true
}
