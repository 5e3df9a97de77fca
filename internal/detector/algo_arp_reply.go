package detector

import "github.com/google/gopacket/layers"

// ArpReply counts every ARP reply as a potential cache-poisoning attempt.
// Requests and any other opcode are ignored.
type ArpReply struct{}

func NewArpReply() *ArpReply { return &ArpReply{} }

func (a *ArpReply) Name() string { return RuleArpReply }

func (a *ArpReply) Inspect(p *packetView, v *Verdict) {
	if p.etherType != layers.EthernetTypeARP || p.arp == nil {
		return
	}
	if p.arp.Operation == layers.ARPReply {
		v.ArpReply = true
	}
}
