// Package fiscalurl validates strings decoded from scanned receipts.
//
// Scanned codes are untrusted input. Only absolute https URLs whose hostname
// exactly matches an allow-listed fiscal portal host are passed on to the
// backend; everything else (ordinary web links, crafted codes aimed at other
// hosts) is rejected before any network call.
package fiscalurl

import (
	"net/url"
	"strings"
)

// DefaultHost is the national fiscal portal host.
const DefaultHost = "suf.purs.gov.rs"

// Validator normalizes raw decoded strings against a host allow-list.
type Validator struct {
	// hosts holds lower-cased allowed hostnames.
	hosts map[string]struct{}
}

// NewValidator builds a validator for the given hosts.
// With no hosts the allow-list contains DefaultHost only.
func NewValidator(hosts ...string) *Validator {
	if len(hosts) == 0 {
		hosts = []string{DefaultHost}
	}

	v := &Validator{
		hosts: make(map[string]struct{}, len(hosts)),
	}

	for _, h := range hosts {
		h = strings.ToLower(strings.TrimSpace(h))
		if h != "" {
			v.hosts[h] = struct{}{}
		}
	}

	return v
}

// Normalize returns the trimmed URL and true when raw is an absolute https
// URL on an allowed host. It never panics on malformed input.
func (v *Validator) Normalize(raw string) (string, bool) {
	candidate := strings.TrimSpace(raw)
	if candidate == "" {
		return "", false
	}

	u, err := url.Parse(candidate)
	if err != nil || !u.IsAbs() {
		return "", false
	}

	// url.Parse lower-cases the scheme.
	if u.Scheme != "https" {
		return "", false
	}

	// Hostname drops the port and brackets; the match is exact, never a substring.
	host := strings.ToLower(u.Hostname())
	if host == "" {
		return "", false
	}

	if _, ok := v.hosts[host]; !ok {
		return "", false
	}

	return candidate, true
}

// Hosts returns the allow-list in no particular order.
func (v *Validator) Hosts() []string {
	out := make([]string, 0, len(v.hosts))
	for h := range v.hosts {
		out = append(out, h)
	}

	return out
}
