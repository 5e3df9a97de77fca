package detector

import (
	"encoding/binary"
	"net/netip"
	"slices"
)

const initialSetCapacity = 100

// AddressSet holds unique IPv4 addresses in host-independent form (the
// four address bytes read big-endian). It is not safe for concurrent use;
// Tally serialises access to it.
type AddressSet struct {
	members map[uint32]struct{}
}

func NewAddressSet() *AddressSet {
	return &AddressSet{members: make(map[uint32]struct{}, initialSetCapacity)}
}

// Insert adds addr and reports whether it was new. Re-inserting a known
// address is a no-op.
func (s *AddressSet) Insert(addr uint32) bool {
	if _, ok := s.members[addr]; ok {
		return false
	}
	s.members[addr] = struct{}{}
	return true
}

func (s *AddressSet) Contains(addr uint32) bool {
	_, ok := s.members[addr]
	return ok
}

func (s *AddressSet) Len() int { return len(s.members) }

// Members returns the addresses in ascending order.
func (s *AddressSet) Members() []uint32 {
	out := make([]uint32, 0, len(s.members))
	for a := range s.members {
		out = append(out, a)
	}
	slices.Sort(out)
	return out
}

// AddrToUint32 normalises a 4-byte IPv4 address. ok is false for anything
// that is not exactly four bytes.
func AddrToUint32(ip []byte) (uint32, bool) {
	if len(ip) != 4 {
		return 0, false
	}
	return binary.BigEndian.Uint32(ip), true
}

func Uint32ToAddr(n uint32) netip.Addr {
	var b [4]byte
	binary.BigEndian.PutUint32(b[:], n)
	return netip.AddrFrom4(b)
}
