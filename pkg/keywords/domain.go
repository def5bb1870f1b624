package keywords

import (
	"net/url"
	"strings"

	"github.com/weppos/publicsuffix-go/publicsuffix"
)

// RootDomain extracts the registrable domain of a ranking URL or bare host.
// e.g., "https://www.example.co.uk/page" -> "example.co.uk", true
func RootDomain(raw string) (string, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", false
	}
	// url.Parse only finds a host when a scheme is present.
	if !strings.Contains(raw, "://") {
		raw = "http://" + raw
	}
	u, err := url.Parse(raw)
	if err != nil || u.Hostname() == "" {
		return "", false
	}
	host := strings.TrimSuffix(strings.ToLower(u.Hostname()), ".")
	if !strings.Contains(host, ".") {
		return "", false
	}
	domain, err := publicsuffix.Domain(host)
	if err != nil {
		return "", false
	}
	return domain, true
}

// OnTarget reports whether the row's ranking URL belongs to target. Rows
// without a ranking URL, or an unparsable target, are never on target.
func (r Row) OnTarget(target string) bool {
	want, ok := RootDomain(target)
	if !ok {
		return false
	}
	got, ok := RootDomain(r.URL)
	return ok && got == want
}
