package features

import (
	"context"
	"net"
	"net/url"
	"strings"
	"time"

	"github.com/miekg/dns"
	"golang.org/x/net/publicsuffix"

	"github.com/jonesrussell/url-sentinel/internal/domain"
)

// HostResolver answers the DNS questions host-feature extraction needs.
type HostResolver interface {
	HasRecord(ctx context.Context, host string, qtype uint16) bool
}

// DNSResolver resolves against a single upstream server with a hard timeout.
type DNSResolver struct {
	client *dns.Client
	server string
}

// NewDNSResolver builds a resolver for the given "host:port" server.
func NewDNSResolver(server string, timeout time.Duration) *DNSResolver {
	return &DNSResolver{
		client: &dns.Client{Timeout: timeout},
		server: server,
	}
}

// HasRecord reports whether host has at least one record of the given type.
// Any lookup failure reads as false.
func (r *DNSResolver) HasRecord(ctx context.Context, host string, qtype uint16) bool {
	if host == "" {
		return false
	}
	msg := new(dns.Msg)
	msg.SetQuestion(dns.Fqdn(host), qtype)
	resp, _, err := r.client.ExchangeContext(ctx, msg, r.server)
	if err != nil || resp == nil || resp.Rcode != dns.RcodeSuccess {
		return false
	}
	return len(resp.Answer) > 0
}

// Records returns the answer strings for one query, empty on any failure.
func (r *DNSResolver) Records(ctx context.Context, host string, qtype uint16) ([]string, error) {
	msg := new(dns.Msg)
	msg.SetQuestion(dns.Fqdn(host), qtype)
	resp, _, err := r.client.ExchangeContext(ctx, msg, r.server)
	if err != nil {
		return nil, err
	}
	var out []string
	for _, rr := range resp.Answer {
		switch v := rr.(type) {
		case *dns.A:
			out = append(out, v.A.String())
		case *dns.AAAA:
			out = append(out, v.AAAA.String())
		case *dns.MX:
			out = append(out, v.Mx)
		case *dns.NS:
			out = append(out, v.Ns)
		case *dns.TXT:
			out = append(out, strings.Join(v.Txt, ""))
		}
	}
	return out, nil
}

// ExtractHost adds host/DNS features to fv for the given URL. DNS lookups
// are bounded by ctx; failures leave the corresponding features at 0.
func (e *Extractor) ExtractHost(ctx context.Context, raw string, resolver HostResolver, fv domain.FeatureVector) domain.FeatureVector {
	u, err := url.Parse(raw)
	if err != nil {
		u = &url.URL{}
	}
	hostname := u.Hostname()

	fv.SetBool("is_https", strings.EqualFold(u.Scheme, "https"))
	fv.SetBool("domain_in_path", hostname != "" && strings.Contains(u.Path, hostname))
	fv.Set("query_length", float64(len(u.RawQuery)))
	fv.Set("fragment_length", float64(len(u.Fragment)))
	fv.Set("query_params", float64(countQueryParams(u.RawQuery)))
	fv.Set("path_special_chars", float64(countSpecial(u.EscapedPath())))
	fv.Set("subdomain_count", float64(subdomainCount(hostname)))
	fv.Set("domain_hyphens", float64(strings.Count(hostname, "-")))
	fv.Set("domain_underscores", float64(strings.Count(hostname, "_")))
	fv.Set("domain_digits", float64(countDigits(hostname)))
	fv.SetBool("has_port", u.Port() != "")
	fv.SetBool("ip_literal_domain", net.ParseIP(hostname) != nil)

	if resolver != nil && hostname != "" && net.ParseIP(hostname) == nil {
		fv.SetBool("has_dns_record", resolver.HasRecord(ctx, hostname, dns.TypeA))
		fv.SetBool("has_mail_server", resolver.HasRecord(ctx, hostname, dns.TypeMX))
		fv.SetBool("has_txt_record", resolver.HasRecord(ctx, hostname, dns.TypeTXT))
		fv.SetBool("has_ns_record", resolver.HasRecord(ctx, hostname, dns.TypeNS))
	}

	return fv
}

// subdomainCount counts labels left of the registrable domain. The public
// suffix list keeps multi-label suffixes like co.uk from inflating the count.
func subdomainCount(hostname string) int {
	if hostname == "" || net.ParseIP(hostname) != nil {
		return 0
	}
	base, err := publicsuffix.EffectiveTLDPlusOne(hostname)
	if err != nil || base == hostname {
		return 0
	}
	prefix := strings.TrimSuffix(hostname, "."+base)
	if prefix == hostname {
		return 0
	}
	return strings.Count(prefix, ".") + 1
}

func countQueryParams(rawQuery string) int {
	if rawQuery == "" {
		return 0
	}
	return strings.Count(rawQuery, "&") + 1
}

func countSpecial(s string) int {
	n := 0
	for _, r := range s {
		switch r {
		case '@', '%', '=', '&', '~', '+', '$', ',', ';', ':', '!', '*', '\'', '(', ')':
			n++
		}
	}
	return n
}

func countDigits(s string) int {
	n := 0
	for _, r := range s {
		if r >= '0' && r <= '9' {
			n++
		}
	}
	return n
}
