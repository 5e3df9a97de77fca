package detector

import "github.com/google/gopacket/layers"

// SynFlood flags TCP segments carrying SYN and nothing else among
// SYN/ACK/URG/PSH/RST/FIN. A SYN+ACK is a legitimate handshake reply and
// is not counted.
type SynFlood struct{}

func NewSynFlood() *SynFlood { return &SynFlood{} }

func (s *SynFlood) Name() string { return RuleSynFlood }

func (s *SynFlood) Inspect(p *packetView, v *Verdict) {
	if p.etherType != layers.EthernetTypeIPv4 || p.tcp == nil {
		return
	}
	if !isSynOnly(p.tcp) {
		return
	}
	src, ok := AddrToUint32(p.ip4.SrcIP.To4())
	if !ok {
		return
	}
	v.Syn = true
	v.SynSource = src
}

func isSynOnly(t *layers.TCP) bool {
	return t.SYN && !t.ACK && !t.URG && !t.PSH && !t.RST && !t.FIN
}
