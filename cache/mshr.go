package cache

import "github.com/sarchlab/arches/transaction"

// mshrEntry is one miss-status holding register: a pending fill for a
// single line address, with the list of waiters (the original requests)
// that are parked on it (spec.md §3, §4.3).
type mshrEntry struct {
	inUse    bool
	lineAddr uint64
	waiters  []transaction.Request
}

// mshrFile is the small fixed-size set of MSHRs owned by one
// non-blocking bank. At most M concurrent line-misses are tracked; a
// miss with no free MSHR back-pressures the bank's input port (soft
// failure, not an error — spec.md §7).
type mshrFile struct {
	entries []mshrEntry
	byLine  map[uint64]int // lineAddr -> index into entries, for in-use entries only
}

func newMSHRFile(capacity int) *mshrFile {
	return &mshrFile{
		entries: make([]mshrEntry, capacity),
		byLine:  make(map[uint64]int),
	}
}

// lookup returns the index of the in-use MSHR tracking lineAddr, if any.
func (f *mshrFile) lookup(lineAddr uint64) (int, bool) {
	idx, ok := f.byLine[lineAddr]
	return idx, ok
}

// allocOrMerge installs req as a waiter on the MSHR for lineAddr,
// allocating a fresh entry if none exists yet. ok is false if lineAddr
// has no existing entry and none is free — the caller must
// back-pressure.
func (f *mshrFile) allocOrMerge(lineAddr uint64, req transaction.Request) (merged bool, ok bool) {
	if idx, exists := f.byLine[lineAddr]; exists {
		f.entries[idx].waiters = append(f.entries[idx].waiters, req)
		return true, true
	}

	for i := range f.entries {
		if !f.entries[i].inUse {
			f.entries[i] = mshrEntry{
				inUse:    true,
				lineAddr: lineAddr,
				waiters:  []transaction.Request{req},
			}
			f.byLine[lineAddr] = i
			return false, true
		}
	}

	return false, false
}

// retire frees the MSHR for lineAddr and returns its waiter list. The
// tag array insert (line goes from "absent" to "present") must happen
// atomically with this call at the bank level, preserving the invariant
// that a line address is in the tag array XOR an MSHR, never both.
func (f *mshrFile) retire(lineAddr uint64) []transaction.Request {
	idx, ok := f.byLine[lineAddr]
	if !ok {
		return nil
	}
	waiters := f.entries[idx].waiters
	f.entries[idx] = mshrEntry{}
	delete(f.byLine, lineAddr)
	return waiters
}

// has reports whether lineAddr is currently tracked by an MSHR — used
// to enforce the tag-array-XOR-MSHR invariant (spec.md §8, property 4).
func (f *mshrFile) has(lineAddr uint64) bool {
	_, ok := f.byLine[lineAddr]
	return ok
}
