package detector

import (
	"bytes"

	"github.com/google/gopacket/layers"

	"github.com/soyunomas/sniffguard/internal/config"
)

// Blacklist looks for monitored domains in HTTP requests sent to the
// configured port. The payload must contain the method marker ("GET")
// before any domain is searched; domains match independently of each
// other.
type Blacklist struct {
	port    layers.TCPPort
	marker  []byte
	domains [][]byte
}

func NewBlacklist(cfg *config.BlacklistConfig) *Blacklist {
	b := &Blacklist{
		port:    layers.TCPPort(cfg.HTTPPort),
		marker:  []byte(cfg.MethodMarker),
		domains: make([][]byte, len(cfg.Domains)),
	}
	for i, d := range cfg.Domains {
		b.domains[i] = []byte(d)
	}
	return b
}

func (b *Blacklist) Name() string { return RuleBlacklist }

func (b *Blacklist) Inspect(p *packetView, v *Verdict) {
	if p.etherType != layers.EthernetTypeIPv4 || p.tcp == nil {
		return
	}
	if p.tcp.DstPort != b.port {
		return
	}
	// Payload starts after DataOffset*4 bytes of TCP header.
	payload := p.tcp.LayerPayload()
	if !bytes.Contains(payload, b.marker) {
		return
	}
	for i, d := range b.domains {
		if bytes.Contains(payload, d) {
			v.Blacklist = append(v.Blacklist, i)
		}
	}
}
