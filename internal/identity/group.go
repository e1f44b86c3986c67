package identity

import (
	"fmt"
	"sort"
)

// Group is a set of ports sharing (vid, pid, serial, usb_path), sorted by
// interface index ascending. Used only by the identification report.
type Group struct {
	Key   string
	Ports []Port
}

// GroupPorts partitions ports by their (vid, pid, serial, usb_path) key and
// sorts each group by interface index.
func GroupPorts(ports []Port) []Group {
	index := map[string]int{}
	var groups []Group
	for _, p := range ports {
		key := groupKey(p)
		if i, ok := index[key]; ok {
			groups[i].Ports = append(groups[i].Ports, p)
			continue
		}
		index[key] = len(groups)
		groups = append(groups, Group{Key: key, Ports: []Port{p}})
	}
	for i := range groups {
		sort.Slice(groups[i].Ports, func(a, b int) bool {
			return groups[i].Ports[a].InterfaceIndex < groups[i].Ports[b].InterfaceIndex
		})
	}
	return groups
}

func groupKey(p Port) string {
	return fmt.Sprintf("%04x:%04x:%s:%s", p.VID, p.PID, p.SerialString, p.USBPath)
}
