// SPDX-License-Identifier: Unlicense OR MIT

// Package bundle implements the append-friendly, random-access binary
// container format: an in-file directory of variable-length entries with
// in-place resize, hole reuse, and a precise/loose allocation mode.
package bundle

import (
	"io"
	"os"

	"github.com/pkg/errors"
)

const (
	mainHeaderLen  = 28
	entryRecordLen = 36 // per-entry directory record, not counting key bytes

	// FormatVersion is the bundle wire-format version this package reads
	// and writes.
	FormatVersion = 1
)

// Version reports this package's semantic version, for embedders that
// want to surface it to their own callers.
func Version() (major, minor, patch int) {
	return 1, 0, 0
}

var bundleMagic = [16]byte{
	0x60, 0x70, 0xc8, 0x99, 0x82, 0xa1, 0x41, 0x84,
	0x89, 0x51, 0x08, 0xc9, 0x1c, 0xc9, 0xb6, 0x20,
}

// Bundle owns the backing file handle and the entry directory for one
// open bundle. A Bundle must be closed exactly once; Entry and OutStream
// handles obtained from it are only valid until Close.
type Bundle struct {
	file *os.File
	dir  directory

	firstHeaderOffset uint64
	firstFileOffset   uint64

	readOnly bool
	// precise selects zero-slack allocation for new/resized entries
	// ("precise mode"), used by the strip operation to emit a
	// minimum-size bundle.
	precise bool
}

// OpenReadWrite opens path for reading and writing, creating a fresh empty
// bundle if the file is missing or empty.
func OpenReadWrite(path string) (*Bundle, error) {
	return open(path, false, false, 0)
}

// OpenReadOnly opens path read-only. It is an error for the file to be
// missing or empty.
func OpenReadOnly(path string) (*Bundle, error) {
	return open(path, true, false, 0)
}

// OpenPrecise opens path for reading and writing in precise allocation
// mode, reserving headerBytes of directory space up front when creating a
// fresh bundle. This is the mode the `strip` operation uses to produce a
// byte-minimal bundle.
func OpenPrecise(path string, headerBytes int64) (*Bundle, error) {
	return open(path, false, true, headerBytes)
}

func open(path string, readOnly, precise bool, headerBytesReservation int64) (*Bundle, error) {
	b := &Bundle{readOnly: readOnly, precise: precise}
	b.initNewBundle(headerBytesReservation)

	flag := os.O_RDWR
	if readOnly {
		flag = os.O_RDONLY
	}
	f, err := os.OpenFile(path, flag, 0o644)
	openForWriting := false
	if err != nil {
		if readOnly || !os.IsNotExist(err) {
			if readOnly {
				return nil, errors.Wrap(ErrFileAccess, "open bundle read-only")
			}
		}
		if readOnly {
			return nil, errors.Wrap(ErrFileAccess, "open bundle")
		}
		openForWriting = true
	} else {
		b.file = f
		rerr := b.readHeader()
		if rerr == ErrEmptyFile {
			openForWriting = true
		} else if rerr != nil {
			f.Close()
			return nil, rerr
		}
	}

	if openForWriting {
		if readOnly {
			if b.file != nil {
				b.file.Close()
			}
			return nil, ErrEmptyFile
		}
		f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0o644)
		if err != nil {
			return nil, errors.Wrap(ErrFileAccess, "create bundle")
		}
		b.file = f
	}

	return b, nil
}

func (b *Bundle) initNewBundle(headerBytesReservation int64) {
	b.firstHeaderOffset = mainHeaderLen
	allocated := headerBytesReservation
	if allocated <= 0 {
		allocated = padded(false, entryRecordLen*10)
	}
	b.firstFileOffset = b.firstHeaderOffset + uint64(allocated)
}

func (b *Bundle) readHeader() error {
	buf := make([]byte, mainHeaderLen)
	n, err := io.ReadFull(b.file, buf)
	if err == io.EOF || n == 0 {
		return ErrEmptyFile
	}
	if err != nil || n != mainHeaderLen {
		return ErrInvalidFormat
	}
	var magic [16]byte
	copy(magic[:], buf[:16])
	if magic != bundleMagic {
		return ErrInvalidFormat
	}
	version := uint32At(buf[16:20])
	if version != FormatVersion {
		return ErrWrongVersion
	}
	b.firstHeaderOffset = uint64(uint32At(buf[20:24]))
	count := uint32At(buf[24:28])

	headerOffset := int64(b.firstHeaderOffset)
	recBuf := make([]byte, entryRecordLen)
	for i := uint32(0); i < count; i++ {
		if _, err := b.file.ReadAt(recBuf, headerOffset); err != nil {
			return ErrInvalidFormat
		}
		recSize := int64(uint32At(recBuf[0:4]))
		e := &Entry{bundle: b}
		e.offset = uint64At(recBuf[4:12])
		e.size = uint64At(recBuf[12:20])
		e.allocated = uint64At(recBuf[20:28])
		e.mtime = uint32At(recBuf[28:32])
		keySize := uint32At(recBuf[32:36])
		e.key = make([]byte, keySize)
		if _, err := b.file.ReadAt(e.key, headerOffset+entryRecordLen); err != nil {
			return ErrInvalidFormat
		}
		headerOffset += recSize
		b.dir.add(e)
	}
	b.dir.recomputeBounds()
	return nil
}

// Close flushes the directory (in read-write modes) and closes the
// backing file handle.
func (b *Bundle) Close() error {
	var writeErr error
	if !b.readOnly {
		writeErr = b.writeHeader()
	}
	closeErr := b.file.Close()
	if writeErr != nil {
		return writeErr
	}
	if closeErr != nil {
		return errors.Wrap(ErrFileAccess, "close bundle file")
	}
	return nil
}

func (b *Bundle) writeHeader() error {
	allocatedHeaderBytes := int64(b.firstFileOffset) - int64(b.firstHeaderOffset)
	if b.dir.headerBytes > allocatedHeaderBytes {
		wantedEntryBytes := padded(false, b.dir.headerBytes)
		wantedOffsetEnd := int64(b.firstHeaderOffset) + wantedEntryBytes
		for _, e := range append([]*Entry(nil), b.dir.entries...) {
			if int64(e.offset) < wantedOffsetEnd {
				if err := b.resizeEntry(e, padded(false, int64(e.size)), false); err != nil {
					return err
				}
			}
		}
	}

	buf := make([]byte, mainHeaderLen)
	copy(buf[:16], bundleMagic[:])
	putUint32(buf[16:20], FormatVersion)
	putUint32(buf[20:24], uint32(b.firstHeaderOffset))
	putUint32(buf[24:28], uint32(len(b.dir.entries)))
	if _, err := b.file.WriteAt(buf, 0); err != nil {
		return errors.Wrap(ErrFileAccess, "write main header")
	}

	recBuf := make([]byte, entryRecordLen)
	offset := int64(b.firstHeaderOffset)
	for _, e := range b.dir.entries {
		putUint32(recBuf[0:4], uint32(entryRecordLen+len(e.key)))
		putUint64(recBuf[4:12], e.offset)
		putUint64(recBuf[12:20], e.size)
		putUint64(recBuf[20:28], e.allocated)
		putUint32(recBuf[28:32], e.mtime)
		putUint32(recBuf[32:36], uint32(len(e.key)))
		if _, err := b.file.WriteAt(recBuf, offset); err != nil {
			return errors.Wrap(ErrFileAccess, "write directory record")
		}
		if _, err := b.file.WriteAt(e.key, offset+entryRecordLen); err != nil {
			return errors.Wrap(ErrFileAccess, "write directory key")
		}
		offset += entryRecordLen + int64(len(e.key))
	}
	return nil
}

// Find returns the entry matching key, or nil if none exists.
func (b *Bundle) Find(key []byte) *Entry {
	return b.dir.findKey(key)
}

// FindString is Find for a string key.
func (b *Bundle) FindString(key string) *Entry {
	return b.dir.findKey([]byte(key))
}

// Entries returns every entry currently in the directory, in unspecified
// order. The returned slice is a fresh copy; the *Entry values are still
// borrowed from the bundle.
func (b *Bundle) Entries() []*Entry {
	out := make([]*Entry, len(b.dir.entries))
	copy(out, b.dir.entries)
	return out
}

// HeaderBytes returns the number of bytes currently needed to store the
// directory, not counting the 28-byte main header.
func (b *Bundle) HeaderBytes() int64 { return b.dir.headerBytes }

// ReadAll reads an entry's full payload.
func (b *Bundle) ReadAll(e *Entry) ([]byte, error) {
	buf := make([]byte, e.size)
	if e.size == 0 {
		return buf, nil
	}
	if _, err := b.file.ReadAt(buf, int64(e.offset)); err != nil {
		return nil, errors.Wrap(ErrFileAccess, "read entry payload")
	}
	return buf, nil
}

// ReadAt reads len(p) bytes of an entry's payload starting at the given
// byte offset within the entry, for reading a sub-range (such as a
// texture's pixel data) without loading the whole payload.
func (b *Bundle) ReadAt(e *Entry, p []byte, off int64) (int, error) {
	n, err := b.file.ReadAt(p, int64(e.offset)+off)
	if err != nil && err != io.EOF {
		return n, errors.Wrap(ErrFileAccess, "read entry range")
	}
	return n, nil
}

// AddFile writes all of data as a new (or replaced) entry under key, with
// the given mtime (Unix seconds).
func (b *Bundle) AddFile(key []byte, data []byte, mtime int64) (*Entry, error) {
	s, err := b.AddStream(key, int64(len(data)), mtime)
	if err != nil {
		return nil, err
	}
	if _, err := s.Write(data); err != nil {
		return nil, err
	}
	return s.entry, s.Close()
}

// AddStream begins writing a new (or replacing an existing) entry under
// key. sizeGuess is used to size the initial allocation; the entry grows
// automatically on overflow. Only one stream may be open on an entry at a
// time.
func (b *Bundle) AddStream(key []byte, sizeGuess int64, mtime int64) (*OutStream, error) {
	return b.addStream(key, sizeGuess, mtime, b.precise)
}

func (b *Bundle) addStream(key []byte, sizeGuess, mtime int64, precise bool) (*OutStream, error) {
	e := b.dir.findKey(key)
	streamSize := padded(precise, sizeGuess)
	if e != nil {
		if e.open {
			return nil, ErrStreamOpen
		}
		if int64(e.allocated) < streamSize {
			if err := b.resizeEntry(e, streamSize, precise); err != nil {
				return nil, err
			}
		}
	} else {
		e = &Entry{bundle: b, key: append([]byte(nil), key...)}
		b.dir.add(e)
		b.allocateFile(e, streamSize, precise)
	}
	e.open = true
	e.size = 0
	e.mtime = uint32(mtime)
	e.touched = true
	return &OutStream{bundle: b, entry: e, precise: precise}, nil
}

// Delete removes an entry. It fails with ErrStreamOpen if the entry has
// an open OutStream, and ErrNotFound if no entry has that key.
func (b *Bundle) Delete(key []byte) error {
	e := b.dir.findKey(key)
	if e == nil {
		return ErrNotFound
	}
	if e.open {
		return ErrStreamOpen
	}
	b.deleteEntry(e)
	return nil
}

// DeleteUntouched repeatedly removes one untouched entry until none
// remain. Entries are "touched" by AddFile/AddStream and Entry.Touch.
func (b *Bundle) DeleteUntouched() {
	for {
		deleted := false
		for _, e := range b.dir.entries {
			if !e.touched {
				b.deleteEntry(e)
				deleted = true
				break
			}
		}
		if !deleted {
			return
		}
	}
}

func (b *Bundle) deleteEntry(e *Entry) {
	allocated := e.allocated
	prev := b.dir.prevOf(e)
	next := b.dir.nextOf(e)
	wasLast := e == b.dir.last
	b.dir.remove(e)
	if wasLast {
		// prev, computed before removal, is by definition the entry with
		// the next-largest offset, i.e. the new last entry (or nil).
		b.dir.last = prev
	}
	switch {
	case prev != nil:
		prev.allocated += allocated
	case next != nil:
		b.dir.first = next
		b.firstFileOffset = next.offset
	default:
		b.initNewBundle(0)
		b.dir.first = nil
		b.dir.last = nil
	}
}
