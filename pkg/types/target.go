package types

import (
	"fmt"
	"net"
	"net/url"
	"regexp"
	"strconv"
	"strings"
)

// Target is the normalized web application a scan is aimed at.
type Target struct {
	Scheme string `json:"scheme"`
	Host   string `json:"host"`
	Port   int    `json:"port,omitempty"`
	Path   string `json:"path,omitempty"`
}

// ParseTarget accepts a host, host:port, or full http(s) URL and normalizes
// it into a Target. Bare hosts default to https.
func ParseTarget(raw string) (Target, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return Target{}, fmt.Errorf("target cannot be empty")
	}

	if strings.Contains(raw, "://") {
		return parseURL(raw)
	}

	host, portStr, err := net.SplitHostPort(raw)
	if err == nil {
		port, err := parsePort(portStr)
		if err != nil {
			return Target{}, err
		}
		return Target{Scheme: "https", Host: host, Port: port}, nil
	}

	return Target{Scheme: "https", Host: raw}, nil
}

func parseURL(raw string) (Target, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return Target{}, fmt.Errorf("invalid URL %q: %w", raw, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return Target{}, fmt.Errorf("unsupported scheme %q (want http or https)", u.Scheme)
	}
	if u.Hostname() == "" {
		return Target{}, fmt.Errorf("URL %q has no hostname", raw)
	}

	t := Target{Scheme: u.Scheme, Host: u.Hostname(), Path: u.Path}
	if u.Port() != "" {
		port, err := parsePort(u.Port())
		if err != nil {
			return Target{}, err
		}
		t.Port = port
	}
	return t, nil
}

func parsePort(s string) (int, error) {
	port, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("invalid port %q: %w", s, err)
	}
	if port < 1 || port > 65535 {
		return 0, fmt.Errorf("port %d out of range (1-65535)", port)
	}
	return port, nil
}

// Origin returns scheme://host[:port] without any path.
func (t Target) Origin() string {
	host := t.Host
	if t.Port != 0 {
		host = net.JoinHostPort(t.Host, strconv.Itoa(t.Port))
	} else if strings.Contains(host, ":") {
		host = "[" + host + "]"
	}
	return t.Scheme + "://" + host
}

// String returns the full target URL.
func (t Target) String() string {
	return t.Origin() + t.Path
}

// EffectivePort returns the explicit port or the scheme default.
func (t Target) EffectivePort() int {
	if t.Port != 0 {
		return t.Port
	}
	if t.Scheme == "http" {
		return 80
	}
	return 443
}

// ScopePattern returns the regex that places every URL under the target
// into a context. The pattern ends at a path, query or fragment boundary so
// hosts or paths that merely share a prefix stay out of scope.
func (t Target) ScopePattern() string {
	base := t.String()
	if strings.HasSuffix(base, "/") {
		return regexp.QuoteMeta(base) + ".*"
	}
	return regexp.QuoteMeta(base) + "(?:[/?#].*)?"
}
