package utils

import (
	"fmt"
	"net"
	"sort"
)

// PrimaryMAC returns the MAC of the first non-loopback interface that is up,
// in canonical form. Interfaces are ordered by index so the result is stable
// across restarts.
func PrimaryMAC() (string, error) {
	ifaces, err := net.Interfaces()
	if err != nil {
		return "", fmt.Errorf("failed to list interfaces: %w", err)
	}
	sort.Slice(ifaces, func(i, j int) bool { return ifaces[i].Index < ifaces[j].Index })

	for _, iface := range ifaces {
		if iface.Flags&net.FlagLoopback != 0 || iface.Flags&net.FlagUp == 0 {
			continue
		}
		if len(iface.HardwareAddr) != 6 {
			continue
		}
		return NormalizeMAC(iface.HardwareAddr.String())
	}

	return "", fmt.Errorf("no usable network interface found")
}
