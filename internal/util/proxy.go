package util

import (
	"net/http"
	"net/url"
	"strings"
)

// NewProxyFunc builds the proxy resolver for outbound collection and
// provider calls. Explicit proxy URLs take precedence over the environment;
// noProxy is a comma-separated list of host suffixes that bypass both.
func NewProxyFunc(httpProxy, httpsProxy, noProxy string) func(*http.Request) (*url.URL, error) {
	bypass := splitHosts(noProxy)

	if httpProxy == "" && httpsProxy == "" && len(bypass) == 0 {
		return http.ProxyFromEnvironment
	}

	return func(req *http.Request) (*url.URL, error) {
		if hostBypassed(req.URL.Hostname(), bypass) {
			return nil, nil
		}
		if req.URL.Scheme == "https" && httpsProxy != "" {
			return url.Parse(httpsProxy)
		}
		if httpProxy != "" {
			return url.Parse(httpProxy)
		}
		return http.ProxyFromEnvironment(req)
	}
}

func splitHosts(list string) []string {
	var hosts []string
	for _, h := range strings.Split(list, ",") {
		h = strings.TrimSpace(strings.ToLower(h))
		if h != "" {
			hosts = append(hosts, h)
		}
	}
	return hosts
}

// hostBypassed matches a host against the bypass list by exact name or
// dot-boundary suffix, so "corp.example.com" matches "example.com" but
// "notexample.com" does not.
func hostBypassed(host string, bypass []string) bool {
	host = strings.ToLower(host)
	for _, b := range bypass {
		if host == b || strings.HasSuffix(host, "."+b) {
			return true
		}
	}
	return false
}
