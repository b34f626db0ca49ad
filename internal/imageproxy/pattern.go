package imageproxy

import (
	"net/url"
	"strings"
)

// RemotePattern restricts which upstream URLs may be proxied. A pattern is
// written as a URL: "https://**", "https://*.example.com/assets/**".
// In the host "*" matches one label and "**" any number of labels; in the
// path "*" matches one segment and "**" any number of segments. An empty
// path matches every path.
type RemotePattern struct {
	Scheme string
	Host   []string
	Path   []string
}

// ParsePattern parses a remote pattern.
func ParsePattern(s string) (RemotePattern, error) {
	scheme, rest, ok := strings.Cut(strings.TrimSpace(s), "://")
	if !ok || scheme == "" || rest == "" {
		return RemotePattern{}, &url.Error{Op: "parse pattern", URL: s, Err: errBadPattern}
	}
	host, p, _ := strings.Cut(rest, "/")
	rp := RemotePattern{
		Scheme: strings.ToLower(scheme),
		Host:   strings.Split(strings.ToLower(host), "."),
	}
	if p != "" {
		rp.Path = strings.Split(strings.Trim(p, "/"), "/")
	}
	return rp, nil
}

// ParsePatterns parses each pattern, failing on the first bad one.
func ParsePatterns(ss []string) ([]RemotePattern, error) {
	out := make([]RemotePattern, 0, len(ss))
	for _, s := range ss {
		if strings.TrimSpace(s) == "" {
			continue
		}
		rp, err := ParsePattern(s)
		if err != nil {
			return nil, err
		}
		out = append(out, rp)
	}
	return out, nil
}

// Match reports whether u is allowed by the pattern.
func (rp RemotePattern) Match(u *url.URL) bool {
	if !strings.EqualFold(u.Scheme, rp.Scheme) {
		return false
	}
	if !matchSegments(rp.Host, strings.Split(strings.ToLower(u.Hostname()), ".")) {
		return false
	}
	if len(rp.Path) == 0 {
		return true
	}
	return matchSegments(rp.Path, strings.Split(strings.Trim(u.EscapedPath(), "/"), "/"))
}

func matchSegments(pat, val []string) bool {
	if len(pat) == 0 {
		return len(val) == 0
	}
	switch pat[0] {
	case "**":
		for i := 0; i <= len(val); i++ {
			if matchSegments(pat[1:], val[i:]) {
				return true
			}
		}
		return false
	case "*":
		return len(val) > 0 && val[0] != "" && matchSegments(pat[1:], val[1:])
	default:
		return len(val) > 0 && pat[0] == val[0] && matchSegments(pat[1:], val[1:])
	}
}
