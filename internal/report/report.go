package report

import (
	"fmt"
	"io"
	"strings"

	"github.com/soyunomas/sniffguard/internal/detector"
	"github.com/soyunomas/sniffguard/internal/dispatch"
)

// Summary is everything printed once the pipeline has shut down.
type Summary struct {
	Tally    detector.Snapshot
	Captured uint64
	Pool     dispatch.Stats
}

func (s Summary) String() string {
	var b strings.Builder
	t := s.Tally

	b.WriteString("\nIntrusion Detection Report:\n")
	fmt.Fprintf(&b, "%d SYN packets detected from %d different IPs (syn attack)\n",
		t.SynPackets, t.DistinctSources())
	fmt.Fprintf(&b, "%d ARP responses (cache poisoning)\n", t.ArpReplies)

	if len(t.Blacklist) == 0 {
		fmt.Fprintf(&b, "%d Blacklist violations\n", t.BlacklistTotal())
	} else {
		parts := make([]string, len(t.Blacklist))
		for i, d := range t.Blacklist {
			parts[i] = fmt.Sprintf("%d %s", d.Hits, DomainLabel(d.Domain))
		}
		fmt.Fprintf(&b, "%d Blacklist violations (%s)\n", t.BlacklistTotal(), joinAnd(parts))
	}

	fmt.Fprintf(&b, "%d frames captured, %d analysed, %d dropped, %d discarded\n",
		s.Captured, s.Pool.Processed, s.Pool.Dropped, s.Pool.Discarded)
	return b.String()
}

func (s Summary) WriteTo(w io.Writer) (int64, error) {
	n, err := io.WriteString(w, s.String())
	return int64(n), err
}

// DomainLabel shortens a monitored host to its organisation name:
// "www.google.co.uk" -> "google".
func DomainLabel(domain string) string {
	d := strings.TrimPrefix(strings.ToLower(domain), "www.")
	if i := strings.IndexByte(d, '.'); i > 0 {
		return d[:i]
	}
	return d
}

func joinAnd(parts []string) string {
	switch len(parts) {
	case 0:
		return ""
	case 1:
		return parts[0]
	}
	return strings.Join(parts[:len(parts)-1], ", ") + " and " + parts[len(parts)-1]
}
