package cluster

import (
	"fmt"
	"net"
	"strconv"
	"strings"
)

// NormalizeNodes validates the configured node addresses and returns them in
// canonical host:port form. Deployment configs sometimes carry a redis://
// scheme on each entry; it is stripped here so both forms stay accepted.
func NormalizeNodes(nodes []string) ([]string, error) {
	if len(nodes) == 0 {
		return nil, fmt.Errorf("%w: empty node list", ErrConfig)
	}
	out := make([]string, 0, len(nodes))
	for _, n := range nodes {
		addr := strings.TrimPrefix(strings.TrimSpace(n), "redis://")
		host, port, err := net.SplitHostPort(addr)
		if err != nil || host == "" {
			return nil, fmt.Errorf("%w: node %q is not in host:port form", ErrConfig, n)
		}
		p, err := strconv.Atoi(port)
		if err != nil || p < 1 || p > 65535 {
			return nil, fmt.Errorf("%w: node %q has an invalid port", ErrConfig, n)
		}
		out = append(out, net.JoinHostPort(host, port))
	}
	return out, nil
}
