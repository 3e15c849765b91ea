package ratelimit

import (
	"net/http"
	"strings"
)

// Match returns the rule for method and path, or nil to use the default limit.
// Exact paths win over prefix rules, which are paths ending in "/".
// Preflight requests are never limited.
func Match(method, path string, rules []Rule) *Rule {
	if method == http.MethodOptions {
		return &Rule{}
	}

	for i := range rules {
		if rules[i].Method == method && rules[i].Path == path {
			return &rules[i]
		}
	}

	for i := range rules {
		r := &rules[i]
		if r.Method == method && strings.HasSuffix(r.Path, "/") && r.Path != "/" && strings.HasPrefix(path, r.Path) {
			return r
		}
	}
	return nil
}
