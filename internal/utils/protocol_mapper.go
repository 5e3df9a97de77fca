package utils

import (
	"fmt"
	"net"
)

// wellKnown lists exact L2 destinations worth naming in a frame dump.
var wellKnown = map[string]string{
	"ff:ff:ff:ff:ff:ff": "Broadcast",
	"01:80:c2:00:00:00": "STP",
	"01:80:c2:00:00:01": "Pause",
	"01:80:c2:00:00:0e": "LLDP",
	"01:00:0c:cc:cc:cc": "Cisco Discovery",
	"01:00:5e:00:00:01": "IPv4 All-Hosts",
	"01:00:5e:00:00:02": "IPv4 All-Routers",
	"01:00:5e:00:00:fb": "mDNS",
	"01:00:5e:7f:ff:fa": "SSDP",
}

// MACRole names what a destination MAC is used for: a well-known control
// address, a multicast range, a first-hop redundancy gateway, or plain
// unicast.
func MACRole(mac net.HardwareAddr) string {
	if len(mac) != 6 {
		return "Invalid"
	}
	if role, ok := wellKnown[mac.String()]; ok {
		return role
	}

	switch {
	case mac[0] == 0x01 && mac[1] == 0x00 && mac[2] == 0x5e:
		return "IPv4 Multicast"
	case mac[0] == 0x33 && mac[1] == 0x33:
		return "IPv6 Multicast"
	case mac[0] == 0x00 && mac[1] == 0x00 && mac[2] == 0x5e && mac[3] == 0x00 && (mac[4] == 0x01 || mac[4] == 0x02):
		return fmt.Sprintf("VRRP (VRID %d)", mac[5])
	case mac[0] == 0x00 && mac[1] == 0x00 && mac[2] == 0x0c && mac[3] == 0x07 && mac[4] == 0xac:
		return fmt.Sprintf("HSRP (Group %d)", mac[5])
	case mac[0]&0x01 == 0:
		return "Unicast"
	}
	return "Multicast"
}
