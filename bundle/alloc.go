// SPDX-License-Identifier: Unlicense OR MIT

package bundle

import "github.com/pkg/errors"

// padded returns the allocated size to reserve for actualSize bytes of
// payload. Loose mode reserves slack so repeated small appends don't
// constantly relocate; precise mode (used by `strip`) reserves none.
func padded(precise bool, actualSize int64) int64 {
	if precise {
		return actualSize
	}
	return 2*actualSize + 8192
}

// allocateFile picks an offset and finalizes the allocated size for
// entry, which must already be linked into b.dir. allocatedSize is the
// (already-padded) number of bytes to reserve.
func (b *Bundle) allocateFile(entry *Entry, allocatedSize int64, precise bool) {
	entry.allocated = uint64(allocatedSize)

	wantedHeaderBytes := padded(precise, b.dir.headerBytes)
	var wantedHeadersEnd uint64
	if precise {
		wantedHeadersEnd = b.firstFileOffset
	} else {
		wantedHeadersEnd = b.firstHeaderOffset + uint64(wantedHeaderBytes)
	}

	// 1. Gap before the first entry.
	if b.dir.first != nil && b.dir.first != entry {
		extra := int64(b.dir.first.offset) - int64(wantedHeadersEnd)
		if extra >= allocatedSize {
			entry.offset = b.dir.first.offset - uint64(allocatedSize)
			b.dir.first = entry
			b.firstFileOffset = entry.offset
			return
		}
	}

	// 2. Shrink a slack entry and place the new one in the freed tail.
	for _, e := range b.dir.entries {
		if e.open || e == entry {
			continue
		}
		if e.offset < wantedHeadersEnd {
			continue
		}
		neededAlloc := padded(precise, int64(e.size))
		extra := int64(e.allocated) - neededAlloc
		if extra < allocatedSize {
			continue
		}
		newOffset := e.offset + uint64(neededAlloc)
		if newOffset < wantedHeadersEnd {
			continue
		}
		entry.offset = newOffset
		entry.allocated = uint64(extra)
		e.allocated = uint64(neededAlloc)
		if e == b.dir.last {
			b.dir.last = entry
		}
		return
	}

	// 3. Append after the last entry.
	if b.dir.last != nil && b.dir.last != entry {
		if !b.dir.last.open {
			b.dir.last.allocated = uint64(padded(precise, int64(b.dir.last.size)))
		}
		offset := b.dir.last.offset + b.dir.last.allocated
		if offset < wantedHeadersEnd {
			offset = wantedHeadersEnd
		}
		entry.offset = offset
		b.dir.last = entry
		return
	}

	// This is the first entry in the bundle.
	thisEntryHeaderLen := entryRecordLen + int64(len(entry.key))
	var minOffset int64
	if precise {
		minOffset = int64(b.firstHeaderOffset) + thisEntryHeaderLen
	} else {
		minOffset = int64(b.firstHeaderOffset) + padded(false, thisEntryHeaderLen*10)
	}
	if int64(b.firstFileOffset) < minOffset {
		b.firstFileOffset = uint64(minOffset)
	}
	entry.offset = b.firstFileOffset
	b.dir.first = entry
	b.dir.last = entry
}

// resizeEntry grows (or shrinks) entry to a new allocated size, relocating
// its payload if it isn't the last entry in file-offset order.
func (b *Bundle) resizeEntry(entry *Entry, size int64, precise bool) error {
	if entry == b.dir.last {
		entry.allocated = uint64(size)
		return nil
	}
	if entry == b.dir.first {
		next := b.dir.nextOf(entry)
		b.dir.first = next
		b.firstFileOffset = next.offset
	} else {
		prev := b.dir.prevOf(entry)
		prev.allocated += entry.allocated
	}

	oldOffset := entry.offset
	b.allocateFile(entry, size, precise)
	return b.copyData(int64(oldOffset), int64(entry.offset), int64(entry.size))
}

// copyData streams size bytes from source to dest within the bundle file,
// through a bounded scratch buffer, so relocating very large payloads
// doesn't require buffering the whole payload in memory.
func (b *Bundle) copyData(source, dest, size int64) error {
	if source == dest {
		return nil
	}
	const maxBufSize = 1 << 20
	bufSize := size
	if bufSize > maxBufSize {
		bufSize = maxBufSize
	}
	if bufSize <= 0 {
		return nil
	}
	buf := make([]byte, bufSize)
	for size > 0 {
		amt := bufSize
		if amt > size {
			amt = size
		}
		if _, err := b.file.ReadAt(buf[:amt], source); err != nil {
			return errors.Wrap(ErrFileAccess, "copy entry payload (read)")
		}
		if _, err := b.file.WriteAt(buf[:amt], dest); err != nil {
			return errors.Wrap(ErrFileAccess, "copy entry payload (write)")
		}
		size -= amt
		source += amt
		dest += amt
	}
	return nil
}
