package p2pci

import (
	"context"
	"net"
	"strings"
	"time"

	"github.com/marmos91/p2pci/internal/logger"
)

// Resolver names the host at the other end of a connection. The name is the
// peer's identity in every request, so it must be stable per address.
type Resolver interface {
	LookupHost(ctx context.Context, ip string) string
}

// DNSResolver does a reverse lookup and falls back to the literal IP when
// the address has no PTR record.
type DNSResolver struct {
	Resolver *net.Resolver
	Timeout  time.Duration
}

// NewDNSResolver uses the system resolver with a 2s timeout.
func NewDNSResolver() *DNSResolver {
	return &DNSResolver{Resolver: net.DefaultResolver, Timeout: 2 * time.Second}
}

func (r *DNSResolver) LookupHost(ctx context.Context, ip string) string {
	if r.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.Timeout)
		defer cancel()
	}

	res := r.Resolver
	if res == nil {
		res = net.DefaultResolver
	}
	names, err := res.LookupAddr(ctx, ip)
	if err != nil || len(names) == 0 {
		logger.Debug("Reverse lookup failed, using address", logger.ClientIP(ip), logger.Err(err))
		return ip
	}
	return strings.TrimSuffix(names[0], ".")
}

// StaticResolver answers from a fixed table and falls back to the IP.
type StaticResolver map[string]string

func (r StaticResolver) LookupHost(_ context.Context, ip string) string {
	if name, ok := r[ip]; ok {
		return name
	}
	return ip
}
