package cluster

import "github.com/nao1215/addrcluster/internal/model"

// AddressIndex is a bijection between the distinct addresses of a record
// stream and the handles [0, N). Handles are assigned in order of first
// appearance, so replaying the same records yields the same index.
type AddressIndex struct {
	handles   map[string]int
	addresses []string
}

// NewAddressIndex scans records once and indexes every address.
func NewAddressIndex(records []model.TransactionRecord) *AddressIndex {
	idx := &AddressIndex{
		handles:   make(map[string]int),
		addresses: make([]string, 0),
	}
	for _, r := range records {
		if _, ok := idx.handles[r.Address]; ok {
			continue
		}
		idx.handles[r.Address] = len(idx.addresses)
		idx.addresses = append(idx.addresses, r.Address)
	}
	return idx
}

// Len returns the number of distinct addresses.
func (idx *AddressIndex) Len() int {
	return len(idx.addresses)
}

// Handle returns the handle of an address.
func (idx *AddressIndex) Handle(address string) (int, bool) {
	h, ok := idx.handles[address]
	return h, ok
}

// Address returns the address of a handle. It panics if h is out of range.
func (idx *AddressIndex) Address(h int) string {
	return idx.addresses[h]
}
