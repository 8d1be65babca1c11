package mqtt

import (
	"context"
	"fmt"
	"net"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/go-logr/logr"
	"github.com/grandcat/zeroconf"
	"github.com/k1sta/wakebot/internal/mynet"
)

const ZeroconfService = "_mqtt._tcp"

const PrivatePort = 1883

// BrowseTimeout bounds the mDNS lookup of a broker.
var BrowseTimeout = 5 * time.Second

// LookupBroker turns where into a broker URL. where is a URL, host[:port],
// "me" for the main local address, or empty to browse mDNS.
func LookupBroker(ctx context.Context, log logr.Logger, where string) (*url.URL, error) {
	log.Info("Looking up MQTT broker", "where", where)

	if where == "me" {
		_, nw, err := mynet.MainInterface(log)
		if err != nil {
			return nil, fmt.Errorf("could not get local IP: %w", err)
		}
		return tcpURL(nw.IP.String(), PrivatePort), nil
	}
	if where != "" {
		return parseBroker(where)
	}
	return lookupBrokerViaZeroConf(ctx, log)
}

func parseBroker(where string) (*url.URL, error) {
	if strings.Contains(where, "://") {
		u, err := url.Parse(where)
		if err != nil {
			return nil, fmt.Errorf("invalid broker URL %q: %w", where, err)
		}
		if u.Port() == "" {
			u.Host = net.JoinHostPort(u.Hostname(), strconv.Itoa(PrivatePort))
		}
		return u, nil
	}

	host, port := where, PrivatePort
	if h, p, err := net.SplitHostPort(where); err == nil {
		n, err := strconv.Atoi(p)
		if err != nil {
			return nil, fmt.Errorf("invalid broker port %q: %w", p, err)
		}
		host, port = h, n
	}
	return tcpURL(host, port), nil
}

func tcpURL(host string, port int) *url.URL {
	return &url.URL{
		Scheme: "tcp",
		Host:   net.JoinHostPort(host, strconv.Itoa(port)),
	}
}

func lookupBrokerViaZeroConf(ctx context.Context, log logr.Logger) (*url.URL, error) {
	resolver, err := zeroconf.NewResolver(nil)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize zeroconf resolver: %w", err)
	}

	entries := make(chan *zeroconf.ServiceEntry)
	found := make(chan *url.URL, 1)

	go func() {
		for entry := range entries {
			// Filter-out spurious candidates
			if !strings.Contains(entry.Service, ZeroconfService) {
				continue
			}
			for _, ip := range entry.AddrIPv4 {
				log.Info("Found MQTT broker", "ip", ip, "port", entry.Port, "instance", entry.Instance)
				select {
				case found <- tcpURL(ip.String(), entry.Port):
				default:
				}
			}
		}
	}()

	ctx, cancel := context.WithTimeout(ctx, BrowseTimeout)
	defer cancel()
	if err := resolver.Browse(ctx, ZeroconfService, "local.", entries); err != nil {
		return nil, fmt.Errorf("failed to browse %s: %w", ZeroconfService, err)
	}

	select {
	case u := <-found:
		log.Info("Using MQTT broker", "url", u.String(), "service", ZeroconfService)
		return u, nil
	case <-ctx.Done():
		return nil, fmt.Errorf("no MQTT broker found for %s", ZeroconfService)
	}
}
