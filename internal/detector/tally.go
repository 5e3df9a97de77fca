package detector

import (
	"net/netip"
	"slices"
	"sync"

	"github.com/soyunomas/sniffguard/internal/telemetry"
)

// Verdict is everything one frame contributes to the shared tally.
type Verdict struct {
	Syn       bool
	SynSource uint32
	ArpReply  bool
	// Blacklist lists indices into the configured domain list.
	Blacklist []int
}

func (v *Verdict) Empty() bool {
	return !v.Syn && !v.ArpReply && len(v.Blacklist) == 0
}

func (v *Verdict) reset() {
	v.Syn = false
	v.SynSource = 0
	v.ArpReply = false
	v.Blacklist = v.Blacklist[:0]
}

// Tally is the aggregation state shared by every worker: the attack
// counters plus the set of SYN sources. All updates from one frame are
// applied under a single lock hold, so the final state always equals some
// sequential replay of the analysed frames.
type Tally struct {
	mu            sync.Mutex
	synPackets    uint64
	arpReplies    uint64
	blacklistHits []uint64
	sources       *AddressSet
	domains       []string
}

func NewTally(domains []string) *Tally {
	return &Tally{
		blacklistHits: make([]uint64, len(domains)),
		sources:       NewAddressSet(),
		domains:       slices.Clone(domains),
	}
}

// Apply folds v into the tally and reports whether the SYN source was
// seen for the first time.
func (t *Tally) Apply(v *Verdict) (newSource bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if v.Syn {
		t.synPackets++
		newSource = t.sources.Insert(v.SynSource)
		if newSource {
			telemetry.SynSources.Set(float64(t.sources.Len()))
		}
	}
	if v.ArpReply {
		t.arpReplies++
	}
	for _, i := range v.Blacklist {
		if i >= 0 && i < len(t.blacklistHits) {
			t.blacklistHits[i]++
		}
	}
	return newSource
}

type DomainHits struct {
	Domain string
	Hits   uint64
}

// Snapshot is a point-in-time copy of the tally used for reporting.
type Snapshot struct {
	SynPackets uint64
	Sources    []netip.Addr
	ArpReplies uint64
	Blacklist  []DomainHits
}

func (s Snapshot) DistinctSources() int { return len(s.Sources) }

func (s Snapshot) BlacklistTotal() uint64 {
	var total uint64
	for _, d := range s.Blacklist {
		total += d.Hits
	}
	return total
}

// Hits returns the counter for domain, 0 if it is not monitored.
func (s Snapshot) Hits(domain string) uint64 {
	for _, d := range s.Blacklist {
		if d.Domain == domain {
			return d.Hits
		}
	}
	return 0
}

func (t *Tally) Snapshot() Snapshot {
	t.mu.Lock()
	defer t.mu.Unlock()

	snap := Snapshot{
		SynPackets: t.synPackets,
		ArpReplies: t.arpReplies,
		Blacklist:  make([]DomainHits, len(t.domains)),
	}
	for _, a := range t.sources.Members() {
		snap.Sources = append(snap.Sources, Uint32ToAddr(a))
	}
	for i, d := range t.domains {
		snap.Blacklist[i] = DomainHits{Domain: d, Hits: t.blacklistHits[i]}
	}
	return snap
}

