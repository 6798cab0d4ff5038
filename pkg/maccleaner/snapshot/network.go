package snapshot

import (
	"bufio"
	"bytes"
	"context"
	"strings"

	"github.com/g4youu/MacCleaner/pkg/maccleaner/types"
)

// NetworkPorts lists the hardware network ports.
func (r *CommandReader) NetworkPorts(ctx context.Context) []types.NetworkPort {
	cctx, cancel := context.WithTimeout(ctx, infoTimeout)
	defer cancel()

	out, err := r.run.Output(cctx, "networksetup", "-listallhardwareports")
	if err != nil {
		r.log.Warn("networksetup failed", "error", err)
		return nil
	}

	return ParseHardwarePorts(out)
}

// ParseHardwarePorts parses `networksetup -listallhardwareports`
// output, which lists ports in blocks:
//
//	Hardware Port: Wi-Fi
//	Device: en0
//	Ethernet Address: aa:bb:cc:dd:ee:ff
//
// A port is emitted once both its name and device are seen.
func ParseHardwarePorts(out []byte) []types.NetworkPort {
	var ports []types.NetworkPort
	var current types.NetworkPort

	scanner := bufio.NewScanner(bytes.NewReader(out))
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())

		switch {
		case strings.HasPrefix(line, "Hardware Port:"):
			current = types.NetworkPort{
				Name: strings.TrimSpace(strings.TrimPrefix(line, "Hardware Port:")),
			}
		case strings.HasPrefix(line, "Device:"):
			current.Device = strings.TrimSpace(strings.TrimPrefix(line, "Device:"))
			if current.Name != "" && current.Device != "" {
				ports = append(ports, current)
				current = types.NetworkPort{}
			}
		}
	}

	return ports
}
