package middleware

import (
	"fmt"
	"net/http"
	"net/netip"
	"strings"

	"github.com/gin-gonic/gin"
)

// IPWhitelist returns a middleware that only allows requests from the given
// addresses or CIDR prefixes. If the list is empty, all IPs are allowed.
func IPWhitelist(entries []string) (gin.HandlerFunc, error) {
	prefixes := make([]netip.Prefix, 0, len(entries))
	for _, e := range entries {
		e = strings.TrimSpace(e)
		if e == "" {
			continue
		}
		if strings.Contains(e, "/") {
			p, err := netip.ParsePrefix(e)
			if err != nil {
				return nil, fmt.Errorf("ip allow-list entry %q: %w", e, err)
			}
			prefixes = append(prefixes, p.Masked())
			continue
		}
		a, err := netip.ParseAddr(e)
		if err != nil {
			return nil, fmt.Errorf("ip allow-list entry %q: %w", e, err)
		}
		prefixes = append(prefixes, netip.PrefixFrom(a.Unmap(), a.Unmap().BitLen()))
	}
	return func(c *gin.Context) {
		if len(prefixes) == 0 {
			c.Next()
			return
		}
		addr, err := netip.ParseAddr(c.ClientIP())
		if err == nil {
			addr = addr.Unmap()
			for _, p := range prefixes {
				if p.Contains(addr) {
					c.Next()
					return
				}
			}
		}
		c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "access denied"})
	}, nil
}
