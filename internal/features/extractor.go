// Package features turns URLs into fixed-schema numeric feature vectors.
// Lexical features come from the URL string alone; host features need DNS
// and are optional.
package features

import (
	"net/url"
	"regexp"
	"strings"
	"unicode"

	"github.com/cloudflare/ahocorasick"

	"github.com/jonesrussell/url-sentinel/internal/domain"
)

// suspiciousWords are tokens common in credential-phishing URLs.
var suspiciousWords = []string{
	"paypal", "login", "signin", "bank", "account", "update", "free",
	"lucky", "service", "bonus", "ebayisapi", "webscr",
}

// shorteningServices are known URL-shortener hosts.
var shorteningServices = []string{
	"bit.ly", "goo.gl", "shorte.st", "go2l.ink", "x.co", "ow.ly", "t.co",
	"tinyurl", "tr.im", "is.gd", "cli.gs", "yfrog.com", "migre.me",
	"ff.im", "tiny.cc", "url4.eu", "twit.ac", "su.pr", "twurl.nl",
	"snipurl.com", "short.to", "budurl.com", "ping.fm", "post.ly",
	"just.as", "bkite.com", "snipr.com", "fic.kr", "loopt.us",
	"doiop.com", "short.ie", "kl.am", "wp.me", "rubyurl.com", "om.ly",
	"to.ly", "bit.do", "lnkd.in", "db.tt", "qr.ae", "adf.ly",
	"bitly.com", "cur.lv", "ity.im", "q.gs", "po.st", "bc.vc",
	"twitthis.com", "u.to", "j.mp", "buzurl.com", "cutt.us", "u.bb",
	"yourls.org", "prettylinkpro.com", "scrnch.me", "filoops.info",
	"vzturl.com", "qr.net", "1url.com", "tweez.me", "v.gd",
	"link.zip.net",
}

// securityKeywords feed the kw_* extended features.
var securityKeywords = []string{
	"client", "admin", "server", "login", "signup", "password",
	"security", "verify", "auth",
}

// signupTokens all raise kw_signup.
var signupTokens = []string{"signup", "register", "join"}

var ipPattern = regexp.MustCompile(
	`(?:\d{1,3}\.){3}\d{1,3}(?::\d+)?$|^0x[0-9a-fA-F]+|(?:[0-9a-fA-F]{1,4}:){2,}`)

// Extractor computes feature vectors for URLs. It is safe for concurrent use
// once built; the matchers are immutable after construction.
type Extractor struct {
	suspicious *ahocorasick.Matcher
	shorteners *ahocorasick.Matcher
	keywords   *ahocorasick.Matcher
}

// NewExtractor builds an Extractor with the standard pattern sets.
func NewExtractor() *Extractor {
	return &Extractor{
		suspicious: ahocorasick.NewStringMatcher(suspiciousWords),
		shorteners: ahocorasick.NewStringMatcher(shorteningServices),
		keywords:   ahocorasick.NewStringMatcher(securityKeywords),
	}
}

// Extract computes the lexical feature set for raw. It never fails: any URL
// string maps to some vector, with parse-dependent features defaulting to 0.
func (e *Extractor) Extract(raw string) domain.FeatureVector {
	fv := domain.NewFeatureVector()
	lower := strings.ToLower(raw)

	u, err := url.Parse(raw)
	if err != nil {
		u = &url.URL{}
	}
	hostname := u.Hostname()
	path := u.EscapedPath()

	fv.SetBool("use_of_ip", ipPattern.MatchString(hostname) || ipPattern.MatchString(raw))
	fv.SetBool("abnormal_url", hostname != "" && !strings.Contains(lower, strings.ToLower(hostname)))
	fv.Set("count.", float64(strings.Count(raw, ".")))
	fv.Set("count-www", float64(strings.Count(lower, "www")))
	fv.Set("count@", float64(strings.Count(raw, "@")))
	fv.Set("count_dir", float64(strings.Count(path, "/")))
	fv.Set("count_embed_domain", float64(strings.Count(path, "//")))
	fv.SetBool("sus_url", len(e.suspicious.Match([]byte(lower))) > 0)
	fv.SetBool("short_url", len(e.shorteners.Match([]byte(lower))) > 0)
	fv.Set("count_https", float64(strings.Count(lower, "https")))
	fv.Set("count_http", float64(strings.Count(lower, "http")))
	fv.Set("count%", float64(strings.Count(raw, "%")))
	fv.Set("count?", float64(strings.Count(raw, "?")))
	fv.Set("count-", float64(strings.Count(raw, "-")))
	fv.Set("count=", float64(strings.Count(raw, "=")))
	fv.Set("url_length", float64(len(raw)))
	fv.Set("hostname_length", float64(len(u.Host)))
	fv.Set("fd_length", float64(firstDirLength(path)))

	tld := topLevelDomain(hostname)
	fv.TLD = tld
	if tld == "" {
		fv.Set("tld_length", -1)
	} else {
		fv.Set("tld_length", float64(len(tld)))
	}

	digits, letters := 0, 0
	for _, r := range raw {
		switch {
		case unicode.IsDigit(r):
			digits++
		case unicode.IsLetter(r):
			letters++
		}
	}
	fv.Set("count_digits", float64(digits))
	fv.Set("count_letters", float64(letters))

	for _, kw := range securityKeywords {
		if kw == "signup" {
			fv.SetBool("kw_signup", containsAny(lower, signupTokens))
			continue
		}
		fv.SetBool("kw_"+kw, strings.Contains(lower, kw))
	}

	return fv
}

// ExtractURL validates raw before extraction: empty input or input with no
// recognizable host is a feature-extraction error. Callers that degrade per
// row use Extract directly.
func (e *Extractor) ExtractURL(raw string) (domain.FeatureVector, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return domain.FeatureVector{}, domain.NewError(domain.KindFeatureExtraction, "empty URL")
	}
	withScheme := trimmed
	if !strings.Contains(trimmed, "://") {
		withScheme = "http://" + trimmed
	}
	u, err := url.Parse(withScheme)
	if err != nil {
		return domain.FeatureVector{}, domain.WrapError(domain.KindFeatureExtraction, "unparseable URL", err)
	}
	if u.Hostname() == "" {
		return domain.FeatureVector{}, domain.NewError(domain.KindFeatureExtraction, "URL has no host")
	}
	return e.Extract(raw), nil
}

func containsAny(s string, tokens []string) bool {
	for _, tok := range tokens {
		if strings.Contains(s, tok) {
			return true
		}
	}
	return false
}

// firstDirLength is the length of the first path segment, 0 when absent.
func firstDirLength(path string) int {
	parts := strings.Split(path, "/")
	if len(parts) < 2 {
		return 0
	}
	return len(parts[1])
}

// topLevelDomain returns the final dot-separated label of a hostname, or ""
// for bare and IP-literal hosts.
func topLevelDomain(hostname string) string {
	if hostname == "" || ipPattern.MatchString(hostname) {
		return ""
	}
	idx := strings.LastIndex(hostname, ".")
	if idx < 0 || idx == len(hostname)-1 {
		return ""
	}
	return hostname[idx+1:]
}
