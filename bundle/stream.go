// SPDX-License-Identifier: Unlicense OR MIT

package bundle

import "github.com/pkg/errors"

// OutStream is a handle for writing an entry's payload incrementally. It is
// returned by Bundle.AddStream and must be closed before the entry's data
// is considered final.
type OutStream struct {
	bundle  *Bundle
	entry   *Entry
	precise bool
}

// Write appends p to the stream, growing and relocating the entry's
// allocation as needed.
func (s *OutStream) Write(p []byte) (int, error) {
	e := s.entry
	end := int64(e.size) + int64(len(p))
	if end > int64(e.allocated) {
		newSize := padded(s.precise, end)
		if err := s.bundle.resizeEntry(e, newSize, s.precise); err != nil {
			return 0, err
		}
	}
	n, err := s.bundle.file.WriteAt(p, int64(e.offset)+int64(e.size))
	e.size += uint64(n)
	if err != nil {
		return n, errors.Wrap(ErrFileAccess, "write entry payload")
	}
	return n, nil
}

// Close finalizes the stream. The entry remains readable through the
// owning Bundle after Close returns.
func (s *OutStream) Close() error {
	s.entry.open = false
	return nil
}
