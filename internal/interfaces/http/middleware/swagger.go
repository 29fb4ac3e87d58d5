package middleware

import (
	"net/http"
	"net/netip"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// SwaggerConfig controls who may read /swagger
type SwaggerConfig struct {
	Enabled bool
	// RequireAuth runs the guard chain (JWT, then admin check) before the docs
	RequireAuth bool
	// AllowedIPs accepts single addresses and CIDR prefixes; empty allows all
	AllowedIPs []string
}

// SwaggerProtection guards the API docs. Disabled docs answer 404, callers
// outside AllowedIPs get 403, and when RequireAuth is set the guards run in
// order until one aborts.
func SwaggerProtection(cfg SwaggerConfig, log *zap.Logger, guards ...gin.HandlerFunc) gin.HandlerFunc {
	allowed := parseAllowList(cfg.AllowedIPs, log)

	return func(c *gin.Context) {
		if !cfg.Enabled {
			abortAuth(c, http.StatusNotFound, "ERR_NOT_FOUND", "API documentation is not available")
			return
		}

		if len(allowed) > 0 && !isAddrAllowed(c.ClientIP(), allowed) {
			abortAuth(c, http.StatusForbidden, "FORBIDDEN", "Access to API documentation is restricted")
			return
		}

		if cfg.RequireAuth {
			for _, guard := range guards {
				guard(c)
				if c.IsAborted() {
					return
				}
			}
		}

		c.Next()
	}
}

// parseAllowList turns addresses into single-host prefixes so one Contains
// check covers both forms. Unparseable entries are logged and skipped.
func parseAllowList(entries []string, log *zap.Logger) []netip.Prefix {
	prefixes := make([]netip.Prefix, 0, len(entries))
	for _, entry := range entries {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}
		if strings.Contains(entry, "/") {
			p, err := netip.ParsePrefix(entry)
			if err == nil {
				prefixes = append(prefixes, p.Masked())
				continue
			}
		} else if addr, err := netip.ParseAddr(entry); err == nil {
			addr = addr.Unmap()
			prefixes = append(prefixes, netip.PrefixFrom(addr, addr.BitLen()))
			continue
		}
		if log != nil {
			log.Warn("Ignoring invalid swagger allow-list entry", zap.String("entry", entry))
		}
	}
	return prefixes
}

func isAddrAllowed(ip string, allowed []netip.Prefix) bool {
	addr, err := netip.ParseAddr(ip)
	if err != nil {
		return false
	}
	addr = addr.Unmap()
	for _, p := range allowed {
		if p.Contains(addr) {
			return true
		}
	}
	return false
}
