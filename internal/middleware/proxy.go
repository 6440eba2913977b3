package middleware

import (
	"log/slog"
	"net/http"
	"net/netip"
	"strings"

	"github.com/labstack/echo/v4"
)

// TrustedProxies makes c.RealIP() resolve the client address behind the
// reverse proxies in trusted (CIDRs or bare addresses). Forwarding headers
// from any other peer are ignored, so clients cannot spoof their address
// past the upload rate limiter or into the audit log.
func TrustedProxies(e *echo.Echo, trusted []string) {
	e.IPExtractor = buildIPExtractor(trusted)
}

// proxySet is a parsed list of trusted proxy ranges.
type proxySet []netip.Prefix

func parseProxies(entries []string) proxySet {
	var set proxySet
	for _, entry := range entries {
		entry = strings.TrimSpace(entry)
		if p, err := netip.ParsePrefix(entry); err == nil {
			set = append(set, p.Masked())
			continue
		}
		if a, err := netip.ParseAddr(entry); err == nil {
			set = append(set, netip.PrefixFrom(a, a.BitLen()))
			continue
		}
		slog.Warn("ignoring invalid trusted proxy", slog.String("entry", entry))
	}
	return set
}

func (s proxySet) contains(ip string) bool {
	a, err := netip.ParseAddr(strings.TrimSpace(ip))
	if err != nil {
		return false
	}
	a = a.Unmap()
	for _, p := range s {
		if p.Contains(a) {
			return true
		}
	}
	return false
}

// buildIPExtractor returns an extractor that walks X-Forwarded-For from the
// right, skipping trusted hops, and returns the first untrusted address.
// X-Real-IP is only consulted when X-Forwarded-For is absent.
func buildIPExtractor(trusted []string) echo.IPExtractor {
	proxies := parseProxies(trusted)

	return func(req *http.Request) string {
		peer := directIP(req.RemoteAddr)
		if !proxies.contains(peer) {
			return peer
		}

		if xff := req.Header.Get(echo.HeaderXForwardedFor); xff != "" {
			hops := strings.Split(xff, ",")
			for i := len(hops) - 1; i >= 0; i-- {
				hop := strings.TrimSpace(hops[i])
				if hop == "" {
					continue
				}
				if !proxies.contains(hop) {
					return hop
				}
			}
			// Every hop is a proxy; the leftmost is the closest to the client.
			return strings.TrimSpace(hops[0])
		}

		if realIP := strings.TrimSpace(req.Header.Get(echo.HeaderXRealIP)); realIP != "" {
			return realIP
		}
		return peer
	}
}

// directIP strips the port from a RemoteAddr.
func directIP(remoteAddr string) string {
	if ap, err := netip.ParseAddrPort(remoteAddr); err == nil {
		return ap.Addr().Unmap().String()
	}
	return remoteAddr
}
