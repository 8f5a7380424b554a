package deploy

import (
	"fmt"
	"log"
	"net"
)

// loopbackAlias is the degraded-mode fallback when no externally reachable
// address can be found. Downstream services may then only work from the
// local machine.
const loopbackAlias = "localhost"

// ResolveHostAddress returns the machine's externally reachable IPv4
// address: the first interface address that is neither loopback nor inside
// one of the excluded cluster-internal CIDRs. When nothing qualifies it
// falls back to the loopback alias with a warning.
func ResolveHostAddress(excludedCIDRs []string) (string, error) {
	excluded, err := parseCIDRs(excludedCIDRs)
	if err != nil {
		return "", err
	}

	addrs, err := net.InterfaceAddrs()
	if err != nil {
		return "", fmt.Errorf("failed to enumerate interface addresses: %w", err)
	}

	if host, ok := selectAddress(addrs, excluded); ok {
		return host, nil
	}

	log.Printf("[hostaddr] WARNING: no externally reachable address found, falling back to %s", loopbackAlias)
	return loopbackAlias, nil
}

// selectAddress picks the first non-loopback IPv4 address outside the
// excluded ranges.
func selectAddress(addrs []net.Addr, excluded []*net.IPNet) (string, bool) {
	for _, addr := range addrs {
		ipNet, ok := addr.(*net.IPNet)
		if !ok {
			continue
		}
		ip := ipNet.IP.To4()
		if ip == nil || ip.IsLoopback() {
			continue
		}
		if containedIn(ip, excluded) {
			continue
		}
		return ip.String(), true
	}
	return "", false
}

func containedIn(ip net.IP, nets []*net.IPNet) bool {
	for _, n := range nets {
		if n.Contains(ip) {
			return true
		}
	}
	return false
}

func parseCIDRs(cidrs []string) ([]*net.IPNet, error) {
	nets := make([]*net.IPNet, 0, len(cidrs))
	for _, cidr := range cidrs {
		_, n, err := net.ParseCIDR(cidr)
		if err != nil {
			return nil, fmt.Errorf("invalid excluded CIDR %q: %w", cidr, err)
		}
		nets = append(nets, n)
	}
	return nets, nil
}
