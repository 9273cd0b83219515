package scanner

import (
	"context"
	"strings"
	"time"

	"github.com/grandcat/zeroconf"

	"netwarden/logger"
)

// mDNS service types commonly advertised by home devices. Workstations and
// phones typically expose at least one of these.
var mdnsServiceTypes = []string{"_workstation._tcp", "_companion-link._tcp", "_googlecast._tcp", "_airplay._tcp"}

// BrowseMDNSNames browses mDNS/DNS-SD for the given window and returns a
// best-effort map of IPv4 address to advertised hostname. It is an
// enrichment step only: resolver or browse errors yield an empty or
// partial map, never a failure.
func BrowseMDNSNames(ctx context.Context, window time.Duration) map[string]string {
	names := make(map[string]string)
	log := logger.Get()
	perType := window / time.Duration(len(mdnsServiceTypes))

	for _, st := range mdnsServiceTypes {
		resolver, err := zeroconf.NewResolver(nil)
		if err != nil {
			log.Debug("mdns: resolver unavailable: " + err.Error())
			return names
		}

		browseCtx, cancel := context.WithTimeout(ctx, perType)
		entries := make(chan *zeroconf.ServiceEntry)
		done := make(chan struct{})
		go func() {
			defer close(done)
			for e := range entries {
				host := strings.TrimSuffix(e.HostName, ".")
				host = strings.TrimSuffix(host, ".local")
				if host == "" {
					continue
				}
				for _, ip := range e.AddrIPv4 {
					if _, seen := names[ip.String()]; !seen {
						names[ip.String()] = host
					}
				}
			}
		}()

		// Browse runs until browseCtx expires and then closes entries.
		if err := resolver.Browse(browseCtx, st, "local.", entries); err != nil {
			log.Debug("mdns: browse error: " + err.Error())
			close(entries)
		}
		<-done
		cancel()
	}
	return names
}
