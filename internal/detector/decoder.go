package detector

import (
	"fmt"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
)

// packetView is the decoded form of one frame handed to the rules. A nil
// layer pointer means the layer is absent, truncated or malformed.
type packetView struct {
	etherType layers.EthernetType
	ip4       *layers.IPv4
	tcp       *layers.TCP
	arp       *layers.ARP
}

// decoder owns preallocated layers and is reused for every frame a single
// worker analyses. Not safe for concurrent use.
// Layers are decoded one by one, never chained through NextLayerType:
// only the outermost IPv4 header gates TCP and IP-in-IP is not unwrapped.
type decoder struct {
	eth layers.Ethernet
	ip4 layers.IPv4
	tcp layers.TCP
	arp layers.ARP

	hasEth bool
	view   packetView
}

func newDecoder() *decoder {
	return &decoder{}
}

// decode parses data and returns nil when not even the Ethernet header is
// present. Every layer decoder checks its own length before reading a
// field, so a short capture only yields fewer layers.
func (d *decoder) decode(data []byte) *packetView {
	d.view = packetView{}
	d.hasEth = false
	// A decode error keeps the layers decoded so far; only a panic or a
	// missing Ethernet header discards the whole frame.
	if err := d.decodeLayers(data); err != nil && isPanic(err) {
		return nil
	}
	if !d.hasEth {
		return nil
	}
	return &d.view
}

func (d *decoder) decodeFrame(data []byte) error {
	df := gopacket.NilDecodeFeedback
	if err := d.eth.DecodeFromBytes(data, df); err != nil {
		return err
	}
	d.hasEth = true
	d.view.etherType = d.eth.EthernetType

	switch d.eth.EthernetType {
	case layers.EthernetTypeIPv4:
		if err := d.ip4.DecodeFromBytes(d.eth.Payload, df); err != nil {
			return err
		}
		d.view.ip4 = &d.ip4
		// TCP only counts when the outer datagram itself is protocol 6 and
		// starts at offset 0; later fragments carry no TCP header.
		if d.ip4.Protocol != layers.IPProtocolTCP || d.ip4.FragOffset != 0 {
			return nil
		}
		if err := d.tcp.DecodeFromBytes(d.ip4.Payload, df); err != nil {
			return err
		}
		d.view.tcp = &d.tcp
	case layers.EthernetTypeARP:
		if err := d.arp.DecodeFromBytes(d.eth.Payload, df); err != nil {
			return err
		}
		d.view.arp = &d.arp
	}
	return nil
}

type decodePanic struct{ v any }

func (p decodePanic) Error() string { return fmt.Sprintf("decoder panic: %v", p.v) }

func isPanic(err error) bool {
	_, ok := err.(decodePanic)
	return ok
}

// decodeLayers shields the worker from a layer decoder that trips over
// hostile bytes.
func (d *decoder) decodeLayers(data []byte) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = decodePanic{r}
		}
	}()
	return d.decodeFrame(data)
}
