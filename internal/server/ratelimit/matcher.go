package ratelimit

import (
	"net/http"
	"strings"
)

// unlimited is shared by every request to an unmetered route.
var unlimited = EndpointConfig{Path: "/health", Method: http.MethodGet}

// MatchEndpoint picks the configuration governing a request. An exact path wins over
// any prefix; among prefixes (paths ending in "/") the longest wins. An empty Method
// matches every method. Returns nil when the default limit applies.
func MatchEndpoint(path string, method string, configs []EndpointConfig) *EndpointConfig {
	if path == unlimited.Path && method == unlimited.Method {
		u := unlimited
		return &u
	}

	var best *EndpointConfig
	for i := range configs {
		c := &configs[i]
		if c.Method != "" && c.Method != method {
			continue
		}
		if c.Path == path {
			if best == nil || best.Path != path || (best.Method == "" && c.Method != "") {
				best = c
			}
			continue
		}
		if !strings.HasSuffix(c.Path, "/") || !strings.HasPrefix(path, c.Path) {
			continue
		}
		if best == nil || (best.Path != path && len(c.Path) > len(best.Path)) {
			best = c
		}
	}
	return best
}
