// SPDX-License-Identifier: Unlicense OR MIT

package bundle

// Entry is a named region inside a bundle holding one payload. Entries are
// owned exclusively by their Bundle; callers receive a borrowed *Entry that
// is only valid for the lifetime of the owning Bundle (see the "opaque
// handles with back-references" design note: an Entry must never outlive
// its Bundle).
type Entry struct {
	bundle *Bundle

	key []byte

	offset    uint64
	size      uint64
	allocated uint64
	mtime     uint32

	open    bool
	touched bool
}

// Key returns the entry's key bytes. The returned slice must not be
// mutated by the caller.
func (e *Entry) Key() []byte { return e.key }

// Size returns the number of payload bytes written to the entry.
func (e *Entry) Size() int64 { return int64(e.size) }

// AllocatedSize returns the number of bytes reserved for the entry.
func (e *Entry) AllocatedSize() int64 { return int64(e.allocated) }

// Mtime returns the entry's stored modification time, in Unix seconds.
func (e *Entry) Mtime() int64 { return int64(e.mtime) }

// Touch marks the entry as touched during the current session, exempting
// it from a subsequent DeleteUntouched sweep.
func (e *Entry) Touch() { e.touched = true }

// Touched reports whether the entry has been touched this session.
func (e *Entry) Touched() bool { return e.touched }

// directory is the in-memory table of entries for one Bundle. Linear key
// lookup is used (acceptable at the scale this format targets; the spec
// explicitly permits upgrading to a hash index without changing external
// behaviour). first/last are cached on every mutation so the allocator can
// query the endpoints in O(1).
type directory struct {
	entries []*Entry
	first   *Entry // entry with the minimum offset, or nil if empty
	last    *Entry // entry with the maximum offset, or nil if empty

	headerBytes int64 // sum of per-entry directory-record bytes
}

func (d *directory) findKey(key []byte) *Entry {
	for _, e := range d.entries {
		if byteEqual(e.key, key) {
			return e
		}
	}
	return nil
}

func byteEqual(a, b []byte) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// prevOf returns the entry with the greatest offset strictly less than
// e's, or nil if e has no predecessor.
func (d *directory) prevOf(e *Entry) *Entry {
	var prev *Entry
	for _, c := range d.entries {
		if c.offset < e.offset && (prev == nil || c.offset > prev.offset) {
			prev = c
		}
	}
	return prev
}

// nextOf returns the entry with the smallest offset strictly greater than
// e's, or nil if e has no successor.
func (d *directory) nextOf(e *Entry) *Entry {
	var next *Entry
	for _, c := range d.entries {
		if c.offset > e.offset && (next == nil || c.offset < next.offset) {
			next = c
		}
	}
	return next
}

// add links e into the directory's entry list. It does not touch
// first/last: e's offset may not be meaningful yet (a brand new entry is
// linked before allocateFile picks its placement), so that bookkeeping is
// the responsibility of whoever does know e's final offset — readHeader's
// recomputeBounds call for entries loaded off disk, allocateFile itself
// for newly placed entries.
func (d *directory) add(e *Entry) {
	d.entries = append(d.entries, e)
	d.headerBytes += entryRecordLen + int64(len(e.key))
}

// recomputeBounds rescans every entry and resets first/last to the
// minimum/maximum-offset entry, or nil if the directory is empty. Used
// after bulk-loading entries whose offsets are already known (readHeader).
func (d *directory) recomputeBounds() {
	d.first = nil
	d.last = nil
	for _, e := range d.entries {
		if d.first == nil || e.offset < d.first.offset {
			d.first = e
		}
		if d.last == nil || e.offset > d.last.offset {
			d.last = e
		}
	}
}

// remove deletes e from the directory by swapping in the last slot,
// moving the current last directory slot into the freed one. It does
// not adjust any entry's allocation or offsets; callers
// (Bundle.deleteEntry) are responsible for that bookkeeping first.
func (d *directory) remove(e *Entry) {
	d.headerBytes -= entryRecordLen + int64(len(e.key))
	for i, c := range d.entries {
		if c == e {
			last := len(d.entries) - 1
			d.entries[i] = d.entries[last]
			d.entries = d.entries[:last]
			break
		}
	}
}
