// Package enrichment performs live analysis of a URL's hosting: DNS records,
// response security headers, and domain registration age.
package enrichment

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/likexian/whois"
	whoisparser "github.com/likexian/whois-parser"
	"github.com/miekg/dns"
	"golang.org/x/net/publicsuffix"
	"golang.org/x/sync/errgroup"

	"github.com/jonesrussell/url-sentinel/internal/logging"
)

// securityHeaders are the response headers counted toward the hardening
// score.
var securityHeaders = []string{
	"Strict-Transport-Security",
	"Content-Security-Policy",
	"X-Frame-Options",
	"X-XSS-Protection",
	"X-Content-Type-Options",
}

// suspiciousTokens mirror the lexical feature set; their presence in an
// analyzed URL is surfaced as a trust concern.
var suspiciousTokens = []string{
	"login", "signin", "verify", "account", "update", "secure", "webscr",
}

// RecordResolver fetches DNS answer data for a host.
type RecordResolver interface {
	Records(ctx context.Context, host string, qtype uint16) ([]string, error)
}

// WhoisClient fetches raw whois data for a domain.
type WhoisClient interface {
	Whois(domain string) (string, error)
}

// liveWhois adapts the whois package to WhoisClient.
type liveWhois struct{}

func (liveWhois) Whois(domain string) (string, error) {
	return whois.Whois(domain)
}

// Analysis is the full enrichment report for one URL.
type Analysis struct {
	URL             string        `json:"url"`
	Domain          string        `json:"domain"`
	DNS             DNSInfo       `json:"dns"`
	SecurityHeaders HeaderInfo    `json:"security_headers"`
	Registration    Registration  `json:"registration"`
	Trust           TrustAnalysis `json:"trust"`
}

// DNSInfo holds resolved record data.
type DNSInfo struct {
	Resolved    bool     `json:"resolved"`
	Addresses   []string `json:"addresses,omitempty"`
	MailServers []string `json:"mail_servers,omitempty"`
	NameServers []string `json:"name_servers,omitempty"`
	HasSPF      bool     `json:"has_spf"`
	HasDMARC    bool     `json:"has_dmarc"`
}

// HeaderInfo reports which security headers the site serves.
type HeaderInfo struct {
	Checked bool            `json:"checked"`
	Present map[string]bool `json:"present,omitempty"`
	Count   int             `json:"count"`
}

// Registration holds whois-derived registration facts.
type Registration struct {
	Found     bool   `json:"found"`
	Registrar string `json:"registrar,omitempty"`
	CreatedAt string `json:"created_at,omitempty"`
	AgeDays   int    `json:"age_days"`
}

// TrustAnalysis is the human-facing summary.
type TrustAnalysis struct {
	Indicators     []string `json:"indicators"`
	Concerns       []string `json:"concerns"`
	Recommendation string   `json:"recommendation"`
}

// Analyzer runs the enrichment lookups. All lookups are best-effort; a
// failed probe narrows the report instead of failing it.
type Analyzer struct {
	resolver RecordResolver
	client   *http.Client
	whois    WhoisClient
	log      logging.Logger
}

// NewAnalyzer builds an Analyzer using the live whois service.
func NewAnalyzer(resolver RecordResolver, httpTimeout time.Duration, log logging.Logger) *Analyzer {
	return &Analyzer{
		resolver: resolver,
		client:   &http.Client{Timeout: httpTimeout},
		whois:    liveWhois{},
		log:      log,
	}
}

// Analyze probes DNS, security headers, and registration concurrently and
// derives the trust summary.
func (a *Analyzer) Analyze(ctx context.Context, rawURL string) (*Analysis, error) {
	u, err := url.Parse(rawURL)
	if err != nil || u.Hostname() == "" {
		return nil, fmt.Errorf("invalid URL %q", rawURL)
	}
	hostname := u.Hostname()

	analysis := &Analysis{URL: rawURL, Domain: hostname}
	if base, err := publicsuffix.EffectiveTLDPlusOne(hostname); err == nil {
		analysis.Domain = base
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		analysis.DNS = a.lookupDNS(gctx, hostname, analysis.Domain)
		return nil
	})
	g.Go(func() error {
		analysis.SecurityHeaders = a.checkHeaders(gctx, rawURL)
		return nil
	})
	g.Go(func() error {
		analysis.Registration = a.lookupRegistration(analysis.Domain)
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	analysis.Trust = buildTrust(u, analysis)
	return analysis, nil
}

func (a *Analyzer) lookupDNS(ctx context.Context, hostname, domain string) DNSInfo {
	var info DNSInfo
	if addrs, err := a.resolver.Records(ctx, hostname, dns.TypeA); err == nil {
		info.Addresses = addrs
	}
	if mx, err := a.resolver.Records(ctx, hostname, dns.TypeMX); err == nil {
		info.MailServers = mx
	}
	if ns, err := a.resolver.Records(ctx, hostname, dns.TypeNS); err == nil {
		info.NameServers = ns
	}
	if txt, err := a.resolver.Records(ctx, domain, dns.TypeTXT); err == nil {
		for _, rec := range txt {
			if strings.HasPrefix(rec, "v=spf1") {
				info.HasSPF = true
			}
		}
	}
	if txt, err := a.resolver.Records(ctx, "_dmarc."+domain, dns.TypeTXT); err == nil {
		for _, rec := range txt {
			if strings.HasPrefix(rec, "v=DMARC1") {
				info.HasDMARC = true
			}
		}
	}
	info.Resolved = len(info.Addresses) > 0
	return info
}

func (a *Analyzer) checkHeaders(ctx context.Context, rawURL string) HeaderInfo {
	info := HeaderInfo{Present: make(map[string]bool)}

	req, err := http.NewRequestWithContext(ctx, http.MethodHead, rawURL, nil)
	if err != nil {
		return info
	}
	resp, err := a.client.Do(req)
	if err != nil {
		a.log.Debug("security header probe failed", logging.Error(err))
		return info
	}
	defer resp.Body.Close()

	info.Checked = true
	for _, h := range securityHeaders {
		present := resp.Header.Get(h) != ""
		info.Present[h] = present
		if present {
			info.Count++
		}
	}
	return info
}

func (a *Analyzer) lookupRegistration(domain string) Registration {
	var reg Registration
	raw, err := a.whois.Whois(domain)
	if err != nil {
		a.log.Debug("whois lookup failed", logging.String("domain", domain), logging.Error(err))
		return reg
	}
	parsed, err := whoisparser.Parse(raw)
	if err != nil {
		return reg
	}

	reg.Found = true
	if parsed.Registrar != nil {
		reg.Registrar = parsed.Registrar.Name
	}
	if parsed.Domain != nil && parsed.Domain.CreatedDate != "" {
		reg.CreatedAt = parsed.Domain.CreatedDate
		if created, err := time.Parse(time.RFC3339, parsed.Domain.CreatedDate); err == nil {
			reg.AgeDays = int(time.Since(created).Hours() / 24)
		}
	}
	return reg
}

// buildTrust turns the raw probe results into indicators, concerns, and a
// recommendation.
func buildTrust(u *url.URL, analysis *Analysis) TrustAnalysis {
	var trust TrustAnalysis

	if strings.EqualFold(u.Scheme, "https") {
		trust.Indicators = append(trust.Indicators, "uses HTTPS")
	} else {
		trust.Concerns = append(trust.Concerns, "does not use HTTPS")
	}

	if analysis.DNS.Resolved {
		trust.Indicators = append(trust.Indicators, "domain resolves in DNS")
	} else {
		trust.Concerns = append(trust.Concerns, "domain does not resolve")
	}

	if analysis.DNS.HasSPF && analysis.DNS.HasDMARC {
		trust.Indicators = append(trust.Indicators, "publishes SPF and DMARC records")
	}

	switch {
	case analysis.Registration.AgeDays > 365:
		trust.Indicators = append(trust.Indicators, "domain registered over a year ago")
	case analysis.Registration.Found && analysis.Registration.AgeDays < 30:
		trust.Concerns = append(trust.Concerns, "domain registered less than 30 days ago")
	}

	switch {
	case analysis.SecurityHeaders.Count >= 3:
		trust.Indicators = append(trust.Indicators, "serves common security headers")
	case analysis.SecurityHeaders.Checked && analysis.SecurityHeaders.Count == 0:
		trust.Concerns = append(trust.Concerns, "serves no security headers")
	}

	lower := strings.ToLower(u.String())
	for _, tok := range suspiciousTokens {
		if strings.Contains(lower, tok) {
			trust.Concerns = append(trust.Concerns, "URL contains suspicious keyword "+tok)
		}
	}

	switch {
	case len(trust.Concerns) == 0:
		trust.Recommendation = "likely safe"
	case len(trust.Concerns) <= 2:
		trust.Recommendation = "exercise caution"
	default:
		trust.Recommendation = "high risk"
	}
	return trust
}
