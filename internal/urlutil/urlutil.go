package urlutil

import (
	"errors"
	"net/url"
	"sort"
	"strings"
)

var trackingParams = map[string]struct{}{
	"ref_":         {},
	"utm_source":   {},
	"utm_medium":   {},
	"utm_campaign": {},
	"utm_term":     {},
	"utm_content":  {},
}

// Resolve turns href into an absolute http(s) URL relative to base.
// It returns "" when href is empty or cannot be made absolute, so callers
// never see a bare relative path.
func Resolve(base *url.URL, href string) string {
	href = strings.TrimSpace(href)
	if href == "" {
		return ""
	}
	ref, err := url.Parse(href)
	if err != nil {
		return ""
	}
	if base != nil {
		ref = base.ResolveReference(ref)
	}
	if !IsAbsoluteHTTP(ref) {
		return ""
	}
	ref.Fragment = ""
	ref.Host = strings.ToLower(ref.Host)
	ref.RawQuery = normalizeQuery(ref.RawQuery)
	return ref.String()
}

// ParseBase parses a page URL used as the resolution base.
func ParseBase(raw string) (*url.URL, error) {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return nil, err
	}
	if !IsAbsoluteHTTP(u) {
		return nil, errors.New("base url must be absolute http(s)")
	}
	return u, nil
}

// IsAbsoluteHTTP reports whether u has an http(s) scheme and a host.
func IsAbsoluteHTTP(u *url.URL) bool {
	if u == nil || u.Host == "" {
		return false
	}
	return u.Scheme == "http" || u.Scheme == "https"
}

// Host returns the lower-cased hostname of raw without a leading "www.".
func Host(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return ""
	}
	host := strings.ToLower(u.Hostname())
	return strings.TrimPrefix(host, "www.")
}

func normalizeQuery(raw string) string {
	if raw == "" {
		return ""
	}
	values, err := url.ParseQuery(raw)
	if err != nil {
		return raw
	}
	for key := range values {
		if _, ok := trackingParams[strings.ToLower(key)]; ok {
			values.Del(key)
		}
	}
	if len(values) == 0 {
		return ""
	}
	keys := make([]string, 0, len(values))
	for k := range values {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	var b strings.Builder
	for i, k := range keys {
		vals := values[k]
		sort.Strings(vals)
		for j, v := range vals {
			if i > 0 || j > 0 {
				b.WriteByte('&')
			}
			b.WriteString(url.QueryEscape(k))
			b.WriteByte('=')
			b.WriteString(url.QueryEscape(v))
		}
	}
	return b.String()
}
