package mynet

import (
	"fmt"
	"net"

	"github.com/go-logr/logr"
	"github.com/jackpal/gateway"
)

// MainInterface returns the interface and address on the same network as the
// default gateway.
func MainInterface(log logr.Logger) (*net.Interface, *net.IPNet, error) {
	gw, err := gateway.DiscoverGateway()
	if err != nil {
		log.Error(err, "finding network gateway")
		return nil, nil, err
	}
	log.V(1).Info("net gw", "addr", gw.String())

	ifaces, err := net.Interfaces()
	if err != nil {
		log.Error(err, "listing interfaces")
		return nil, nil, err
	}
	for _, iface := range ifaces {
		addrs, err := iface.Addrs()
		if err != nil {
			log.Error(err, "finding adresses", "interface", iface.Name)
			continue
		}
		for _, addr := range addrs {
			ip, nw, err := net.ParseCIDR(addr.String())
			if err != nil {
				log.Error(err, "reading CIDR notation", "iface_addr", addr.String())
				continue
			}
			if ip.To4() == nil || !nw.Contains(gw) {
				continue
			}
			log.V(1).Info("selecting iface: contains gw ip", "iface", iface.Name, "iface_ip", ip, "gw_ip", gw)
			iface := iface
			return &iface, &net.IPNet{IP: ip.To4(), Mask: nw.Mask}, nil
		}
	}
	return nil, nil, fmt.Errorf("did not find any interface on the same network as the network gateway IP %v", gw)
}

// BroadcastAddr computes the directed broadcast address of an IPv4 network.
func BroadcastAddr(nw *net.IPNet) net.IP {
	ip := nw.IP.To4()
	if ip == nil {
		return nil
	}
	mask := nw.Mask
	if len(mask) == net.IPv6len {
		mask = mask[12:]
	}
	if len(mask) != net.IPv4len {
		return nil
	}
	bcast := make(net.IP, net.IPv4len)
	for i := range ip {
		bcast[i] = ip[i] | ^mask[i]
	}
	return bcast
}

// LocalBroadcast returns the broadcast address of the LAN the default gateway
// is on, or the limited broadcast address when it cannot be determined.
func LocalBroadcast(log logr.Logger) net.IP {
	_, nw, err := MainInterface(log)
	if err != nil {
		log.Info("Using limited broadcast address", "reason", err.Error())
		return net.IPv4bcast
	}
	if b := BroadcastAddr(nw); b != nil {
		return b
	}
	return net.IPv4bcast
}
