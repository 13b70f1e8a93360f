package domain

// FeatureVector is a fixed-schema numeric summary of a URL. Values are keyed
// by feature name; TLD is the only non-numeric feature and rides alongside.
type FeatureVector struct {
	Values map[string]float64
	TLD    string
}

// NewFeatureVector allocates an empty vector.
func NewFeatureVector() FeatureVector {
	return FeatureVector{Values: make(map[string]float64)}
}

// Get returns the named feature, defaulting to 0 for missing columns.
func (f FeatureVector) Get(name string) float64 {
	return f.Values[name]
}

// Set stores a numeric feature.
func (f FeatureVector) Set(name string, v float64) {
	f.Values[name] = v
}

// SetBool stores a boolean feature as 0/1.
func (f FeatureVector) SetBool(name string, v bool) {
	if v {
		f.Values[name] = 1
	} else {
		f.Values[name] = 0
	}
}

// LexicalColumns is the lexical bulk-extraction CSV schema, in output order.
// The names are load-bearing: persisted datasets and model artifacts refer
// to features by these exact strings.
var LexicalColumns = []string{
	"url", "label", "result", "use_of_ip", "abnormal_url", "count.",
	"count-www", "count@", "count_dir", "count_embed_domain", "sus_url",
	"short_url", "count_https", "count_http", "count%", "count?", "count-",
	"count=", "url_length", "hostname_length", "fd_length", "tld",
	"tld_length", "count_digits", "count_letters",
}

// ModelFeatureColumns is the canonical ordered list of numeric features the
// ingestion step selects for training.
var ModelFeatureColumns = []string{
	"use_of_ip", "abnormal_url", "count.", "count-www", "count@",
	"count_dir", "count_embed_domain", "short_url", "count%", "count?",
	"count-", "count=", "url_length", "count_https", "count_http",
	"hostname_length", "sus_url", "fd_length", "tld_length", "count_digits",
	"count_letters",
}

// HostFeatureColumns extends the schema with host/DNS and security-keyword
// features. Each DNS-backed feature is best-effort: lookup failure reads as 0.
var HostFeatureColumns = []string{
	"has_dns_record", "has_mail_server", "has_txt_record", "has_ns_record",
	"is_https", "domain_in_path", "query_length", "fragment_length",
	"query_params", "path_special_chars", "subdomain_count",
	"domain_hyphens", "domain_underscores", "domain_digits", "has_port",
	"ip_literal_domain",
	"kw_client", "kw_admin", "kw_server", "kw_login", "kw_signup",
	"kw_password", "kw_security", "kw_verify", "kw_auth",
}

// ExtendedColumns is the bulk-extraction CSV schema when host/DNS features
// are enabled.
var ExtendedColumns = append(append([]string{}, LexicalColumns...), HostFeatureColumns...)
