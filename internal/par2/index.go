package par2

import "sort"

// IndexEntry locates one validated packet inside a stream.
type IndexEntry struct {
	Offset int64
	Length int64
	Type   PacketType
}

func (e IndexEntry) End() int64 {
	return e.Offset + e.Length
}

// Index keeps packet locations ordered by offset.
type Index struct {
	entries []IndexEntry
}

func (ix *Index) Add(e IndexEntry) {
	i := sort.Search(len(ix.entries), func(i int) bool { return ix.entries[i].Offset >= e.Offset })
	if i < len(ix.entries) && ix.entries[i].Offset == e.Offset {
		ix.entries[i] = e
		return
	}

	ix.entries = append(ix.entries, IndexEntry{})
	copy(ix.entries[i+1:], ix.entries[i:])
	ix.entries[i] = e
}

// Drop removes every entry overlapping [off, off+length).
func (ix *Index) Drop(off, length int64) {
	end := off + length
	kept := ix.entries[:0]
	for _, e := range ix.entries {
		if e.Offset < end && off < e.End() {
			continue
		}
		kept = append(kept, e)
	}
	ix.entries = kept
}

func (ix *Index) Len() int {
	return len(ix.entries)
}

// Entries returns a copy of the entries in offset order.
func (ix *Index) Entries() []IndexEntry {
	return append([]IndexEntry(nil), ix.entries...)
}

// Lookup returns the type of the packet starting at off.
func (ix *Index) Lookup(off int64) (PacketType, bool) {
	i := sort.Search(len(ix.entries), func(i int) bool { return ix.entries[i].Offset >= off })
	if i < len(ix.entries) && ix.entries[i].Offset == off {
		return ix.entries[i].Type, true
	}
	return PacketType{}, false
}
