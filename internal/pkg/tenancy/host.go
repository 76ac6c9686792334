// Package tenancy maps request hosts onto institution subdomains.
package tenancy

import (
	"net"
	"regexp"
	"strings"
)

// HostKind classifies a request host relative to the platform root domain.
type HostKind int

const (
	// HostUnknown is a foreign domain or a nested subdomain.
	HostUnknown HostKind = iota
	// HostRoot is the bare platform domain, its www/app aliases, localhost or an IP.
	HostRoot
	// HostAdmin is the super-admin console host.
	HostAdmin
	// HostTenant is a single-label subdomain naming an institution.
	HostTenant
)

func (k HostKind) String() string {
	switch k {
	case HostRoot:
		return "root"
	case HostAdmin:
		return "admin"
	case HostTenant:
		return "tenant"
	default:
		return "unknown"
	}
}

const adminLabel = "admin"

// Labels that never name an institution.
var reservedSubdomains = map[string]struct{}{
	"www":    {},
	"app":    {},
	"admin":  {},
	"api":    {},
	"static": {},
	"mail":   {},
	"assets": {},
}

var subdomainPattern = regexp.MustCompile(`^[a-z0-9]([a-z0-9-]*[a-z0-9])?$`)

// HostInfo is the outcome of ParseHost.
type HostInfo struct {
	Host      string
	Kind      HostKind
	Subdomain string
}

// NormalizeHost lowercases a host and strips the port and any trailing dot.
func NormalizeHost(host string) string {
	host = strings.TrimSpace(strings.ToLower(host))
	if h, _, err := net.SplitHostPort(host); err == nil {
		host = h
	}
	host = strings.TrimPrefix(host, "[")
	host = strings.TrimSuffix(host, "]")
	return strings.TrimSuffix(host, ".")
}

// ParseHost classifies host against rootDomain.
func ParseHost(host, rootDomain string) HostInfo {
	host = NormalizeHost(host)
	root := NormalizeHost(rootDomain)
	info := HostInfo{Host: host, Kind: HostUnknown}

	if host == "" || host == "localhost" || net.ParseIP(host) != nil {
		info.Kind = HostRoot
		return info
	}

	if host == root {
		info.Kind = HostRoot
		return info
	}

	suffix := "." + root
	if root == "" || !strings.HasSuffix(host, suffix) {
		return info
	}

	label := strings.TrimSuffix(host, suffix)
	if strings.Contains(label, ".") {
		return info
	}

	switch label {
	case "www", "app":
		info.Kind = HostRoot
	case adminLabel:
		info.Kind = HostAdmin
	default:
		if IsValidSubdomain(label) {
			info.Kind = HostTenant
			info.Subdomain = label
		}
	}
	return info
}

// IsValidSubdomain reports whether s can be assigned to an institution.
func IsValidSubdomain(s string) bool {
	if len(s) < 3 || len(s) > 63 {
		return false
	}
	if _, reserved := reservedSubdomains[s]; reserved {
		return false
	}
	return subdomainPattern.MatchString(s)
}

// IsReserved reports whether s is a reserved platform label.
func IsReserved(s string) bool {
	_, ok := reservedSubdomains[strings.ToLower(s)]
	return ok
}

// TenantURL builds the public origin of an institution.
func TenantURL(scheme, subdomain, rootDomain string) string {
	if scheme == "" {
		scheme = "https"
	}
	return scheme + "://" + subdomain + "." + NormalizeHost(rootDomain)
}
