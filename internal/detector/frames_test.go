package detector

import (
	"net"
	"testing"
	"time"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
	"github.com/stretchr/testify/require"
)

var (
	macA = net.HardwareAddr{0x00, 0x11, 0x22, 0x33, 0x44, 0x55}
	macB = net.HardwareAddr{0xAA, 0xBB, 0xCC, 0xDD, 0xEE, 0xFF}
)

func serialize(t testing.TB, ls ...gopacket.SerializableLayer) []byte {
	t.Helper()
	buf := gopacket.NewSerializeBuffer()
	opts := gopacket.SerializeOptions{FixLengths: true, ComputeChecksums: true}
	require.NoError(t, gopacket.SerializeLayers(buf, opts, ls...))
	return append([]byte(nil), buf.Bytes()...)
}

// tcpFrame builds Ethernet/IPv4/TCP from src to dstPort; setFlags picks
// the TCP flag set.
func tcpFrame(t testing.TB, src string, dstPort uint16, setFlags func(*layers.TCP), payload string) []byte {
	t.Helper()
	eth := &layers.Ethernet{SrcMAC: macA, DstMAC: macB, EthernetType: layers.EthernetTypeIPv4}
	ip := &layers.IPv4{
		Version:  4,
		IHL:      5,
		TTL:      64,
		Protocol: layers.IPProtocolTCP,
		SrcIP:    net.ParseIP(src).To4(),
		DstIP:    net.IPv4(192, 168, 1, 10).To4(),
	}
	tcp := &layers.TCP{SrcPort: 40000, DstPort: layers.TCPPort(dstPort), Seq: 1, Window: 1024}
	if setFlags != nil {
		setFlags(tcp)
	}
	require.NoError(t, tcp.SetNetworkLayerForChecksum(ip))

	if payload == "" {
		return serialize(t, eth, ip, tcp)
	}
	return serialize(t, eth, ip, tcp, gopacket.Payload(payload))
}

// ipInIPFrame wraps an IPv4/TCP SYN to port 80 carrying an HTTP GET inside
// an outer IPv4 header of protocol 4.
func ipInIPFrame(t testing.TB) []byte {
	t.Helper()
	eth := &layers.Ethernet{SrcMAC: macA, DstMAC: macB, EthernetType: layers.EthernetTypeIPv4}
	outer := &layers.IPv4{
		Version: 4, IHL: 5, TTL: 64, Protocol: layers.IPProtocolIPv4,
		SrcIP: net.IPv4(172, 16, 0, 1).To4(), DstIP: net.IPv4(172, 16, 0, 2).To4(),
	}
	inner := &layers.IPv4{
		Version: 4, IHL: 5, TTL: 64, Protocol: layers.IPProtocolTCP,
		SrcIP: net.IPv4(10, 9, 9, 9).To4(), DstIP: net.IPv4(192, 168, 1, 10).To4(),
	}
	tcp := &layers.TCP{SrcPort: 40000, DstPort: 80, Seq: 1, Window: 1024, SYN: true}
	require.NoError(t, tcp.SetNetworkLayerForChecksum(inner))
	return serialize(t, eth, outer, inner, tcp, gopacket.Payload("GET / www.google.co.uk"))
}

// fragmentFrame builds an IPv4 fragment whose payload starts with a SYN-only
// TCP header to port 80.
func fragmentFrame(t testing.TB, src string, flags layers.IPv4Flag, offset uint16) []byte {
	t.Helper()
	eth := &layers.Ethernet{SrcMAC: macA, DstMAC: macB, EthernetType: layers.EthernetTypeIPv4}
	ip := &layers.IPv4{
		Version: 4, IHL: 5, TTL: 64, Protocol: layers.IPProtocolTCP,
		Flags: flags, FragOffset: offset, Id: 7,
		SrcIP: net.ParseIP(src).To4(), DstIP: net.IPv4(192, 168, 1, 10).To4(),
	}
	tcp := &layers.TCP{SrcPort: 40000, DstPort: 80, Seq: 1, Window: 1024, SYN: true}
	require.NoError(t, tcp.SetNetworkLayerForChecksum(ip))
	return serialize(t, eth, ip, tcp)
}

func synOnly(t *layers.TCP) { t.SYN = true }

func synAck(t *layers.TCP) { t.SYN, t.ACK = true, true }

func pshAck(t *layers.TCP) { t.PSH, t.ACK = true, true }

func httpGet(t testing.TB, src, host string) []byte {
	return tcpFrame(t, src, 80, pshAck, "GET /index.html HTTP/1.1\r\nHost: "+host+"\r\n")
}

func arpFrame(t testing.TB, op uint16) []byte {
	t.Helper()
	eth := &layers.Ethernet{SrcMAC: macA, DstMAC: layers.EthernetBroadcast, EthernetType: layers.EthernetTypeARP}
	arp := &layers.ARP{
		AddrType:          layers.LinkTypeEthernet,
		Protocol:          layers.EthernetTypeIPv4,
		HwAddressSize:     6,
		ProtAddressSize:   4,
		Operation:         op,
		SourceHwAddress:   macA,
		SourceProtAddress: []byte{192, 168, 1, 1},
		DstHwAddress:      macB,
		DstProtAddress:    []byte{192, 168, 1, 10},
	}
	return serialize(t, eth, arp)
}

func udpFrame(t testing.TB) []byte {
	t.Helper()
	eth := &layers.Ethernet{SrcMAC: macA, DstMAC: macB, EthernetType: layers.EthernetTypeIPv4}
	ip := &layers.IPv4{
		Version: 4, IHL: 5, TTL: 64, Protocol: layers.IPProtocolUDP,
		SrcIP: net.IPv4(10, 0, 0, 9).To4(), DstIP: net.IPv4(10, 0, 0, 1).To4(),
	}
	udp := &layers.UDP{SrcPort: 5353, DstPort: 80}
	require.NoError(t, udp.SetNetworkLayerForChecksum(ip))
	return serialize(t, eth, ip, udp, gopacket.Payload("GET www.google.co.uk"))
}

func ipv6Frame(t testing.TB) []byte {
	t.Helper()
	eth := &layers.Ethernet{SrcMAC: macA, DstMAC: macB, EthernetType: layers.EthernetTypeIPv6}
	ip := &layers.IPv6{
		Version: 6, HopLimit: 64, NextHeader: layers.IPProtocolTCP,
		SrcIP: net.ParseIP("fe80::1"), DstIP: net.ParseIP("fe80::2"),
	}
	tcp := &layers.TCP{SrcPort: 40000, DstPort: 80, SYN: true}
	require.NoError(t, tcp.SetNetworkLayerForChecksum(ip))
	return serialize(t, eth, ip, tcp)
}

func captureInfo(data []byte) gopacket.CaptureInfo {
	return gopacket.CaptureInfo{Timestamp: time.Now(), CaptureLength: len(data), Length: len(data)}
}
