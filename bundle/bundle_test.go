// SPDX-License-Identifier: Unlicense OR MIT

package bundle

import (
	"bytes"
	"path/filepath"
	"testing"
)

func TestOpenCloseEmptyBundle(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty.bundle")
	b, err := OpenReadWrite(path)
	if err != nil {
		t.Fatal(err)
	}
	if len(b.Entries()) != 0 {
		t.Fatalf("fresh bundle has %d entries, want 0", len(b.Entries()))
	}
	if err := b.Close(); err != nil {
		t.Fatal(err)
	}

	b2, err := OpenReadWrite(path)
	if err != nil {
		t.Fatal(err)
	}
	if len(b2.Entries()) != 0 {
		t.Fatalf("reopened empty bundle has %d entries, want 0", len(b2.Entries()))
	}
	if err := b2.Close(); err != nil {
		t.Fatal(err)
	}
}

func TestFileRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rt.bundle")
	payload := []byte("aoeu\n1234\n")

	b, err := OpenReadWrite(path)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := b.AddFile([]byte("greeting"), payload, 1000); err != nil {
		t.Fatal(err)
	}
	if err := b.Close(); err != nil {
		t.Fatal(err)
	}

	b2, err := OpenReadOnly(path)
	if err != nil {
		t.Fatal(err)
	}
	e := b2.FindString("greeting")
	if e == nil {
		t.Fatal("entry not found after reopen")
	}
	if e.Mtime() != 1000 {
		t.Fatalf("mtime = %d, want 1000", e.Mtime())
	}
	got, err := b2.ReadAll(e)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(got, payload) {
		t.Fatalf("payload = %q, want %q", got, payload)
	}
	if err := b2.Close(); err != nil {
		t.Fatal(err)
	}
}

func TestRebuildIdempotence(t *testing.T) {
	path := filepath.Join(t.TempDir(), "idem.bundle")
	b, err := OpenReadWrite(path)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := b.AddFile([]byte("a"), []byte("one"), 5); err != nil {
		t.Fatal(err)
	}
	if _, err := b.AddFile([]byte("b"), []byte("two"), 5); err != nil {
		t.Fatal(err)
	}
	if err := b.Close(); err != nil {
		t.Fatal(err)
	}

	for i := 0; i < 2; i++ {
		b, err := OpenReadWrite(path)
		if err != nil {
			t.Fatal(err)
		}
		if _, err := b.AddFile([]byte("a"), []byte("one"), 5); err != nil {
			t.Fatal(err)
		}
		if _, err := b.AddFile([]byte("b"), []byte("two"), 5); err != nil {
			t.Fatal(err)
		}
		if err := b.Close(); err != nil {
			t.Fatal(err)
		}
	}

	b2, err := OpenReadOnly(path)
	if err != nil {
		t.Fatal(err)
	}
	if len(b2.Entries()) != 2 {
		t.Fatalf("entries = %d, want 2", len(b2.Entries()))
	}
	for _, key := range []string{"a", "b"} {
		if b2.FindString(key) == nil {
			t.Fatalf("missing entry %q after repeated rebuild", key)
		}
	}
	if err := b2.Close(); err != nil {
		t.Fatal(err)
	}
}

func TestDeleteUntouchedSweep(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sweep.bundle")
	b, err := OpenReadWrite(path)
	if err != nil {
		t.Fatal(err)
	}
	for _, key := range []string{"keep-a", "keep-b", "stale"} {
		if _, err := b.AddFile([]byte(key), []byte(key+" payload"), 1); err != nil {
			t.Fatal(err)
		}
	}
	if err := b.Close(); err != nil {
		t.Fatal(err)
	}

	b2, err := OpenReadWrite(path)
	if err != nil {
		t.Fatal(err)
	}
	// Simulate a manifest run that only touches two of the three keys.
	for _, e := range b2.Entries() {
		e.touched = false
	}
	b2.FindString("keep-a").Touch()
	b2.FindString("keep-b").Touch()
	b2.DeleteUntouched()
	if len(b2.Entries()) != 2 {
		t.Fatalf("entries after sweep = %d, want 2", len(b2.Entries()))
	}
	if b2.FindString("stale") != nil {
		t.Fatal("untouched entry survived DeleteUntouched")
	}
	if b2.FindString("keep-a") == nil || b2.FindString("keep-b") == nil {
		t.Fatal("touched entries were removed by DeleteUntouched")
	}
	if err := b2.Close(); err != nil {
		t.Fatal(err)
	}
}

func TestStripPreciseMode(t *testing.T) {
	path := filepath.Join(t.TempDir(), "loose.bundle")
	payload := bytes.Repeat([]byte("m"), 23875)

	b, err := OpenReadWrite(path)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := b.AddFile([]byte("monkey.obj"), payload, 42); err != nil {
		t.Fatal(err)
	}
	if err := b.Close(); err != nil {
		t.Fatal(err)
	}

	b2, err := OpenReadOnly(path)
	if err != nil {
		t.Fatal(err)
	}
	e := b2.FindString("monkey.obj")
	if e.AllocatedSize() <= e.Size() {
		t.Fatalf("loose entry allocated %d, size %d: expected slack", e.AllocatedSize(), e.Size())
	}
	if err := b2.Close(); err != nil {
		t.Fatal(err)
	}

	strippedPath := filepath.Join(t.TempDir(), "precise.bundle")
	src, err := OpenReadOnly(path)
	if err != nil {
		t.Fatal(err)
	}
	dst, err := OpenPrecise(strippedPath, 0)
	if err != nil {
		t.Fatal(err)
	}
	for _, se := range src.Entries() {
		data, err := src.ReadAll(se)
		if err != nil {
			t.Fatal(err)
		}
		if _, err := dst.AddFile(se.Key(), data, se.Mtime()); err != nil {
			t.Fatal(err)
		}
	}
	if err := src.Close(); err != nil {
		t.Fatal(err)
	}
	if err := dst.Close(); err != nil {
		t.Fatal(err)
	}

	dst2, err := OpenReadOnly(strippedPath)
	if err != nil {
		t.Fatal(err)
	}
	se := dst2.FindString("monkey.obj")
	if se == nil {
		t.Fatal("missing entry in stripped bundle")
	}
	if se.AllocatedSize() != se.Size() {
		t.Fatalf("precise entry allocated %d, size %d: want equal", se.AllocatedSize(), se.Size())
	}
	got, err := dst2.ReadAll(se)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(got, payload) {
		t.Fatal("payload mismatch after strip")
	}
	if err := dst2.Close(); err != nil {
		t.Fatal(err)
	}
}

func TestFindMissingKeyReturnsNil(t *testing.T) {
	path := filepath.Join(t.TempDir(), "missing.bundle")
	b, err := OpenReadWrite(path)
	if err != nil {
		t.Fatal(err)
	}
	if e := b.FindString("nope"); e != nil {
		t.Fatalf("found entry for absent key: %v", e)
	}
	if err := b.Delete([]byte("nope")); err != ErrNotFound {
		t.Fatalf("Delete on absent key = %v, want ErrNotFound", err)
	}
	if err := b.Close(); err != nil {
		t.Fatal(err)
	}
}

func TestStreamOpenBlocksDelete(t *testing.T) {
	path := filepath.Join(t.TempDir(), "open.bundle")
	b, err := OpenReadWrite(path)
	if err != nil {
		t.Fatal(err)
	}
	s, err := b.AddStream([]byte("k"), 16, 1)
	if err != nil {
		t.Fatal(err)
	}
	if err := b.Delete([]byte("k")); err != ErrStreamOpen {
		t.Fatalf("Delete on open entry = %v, want ErrStreamOpen", err)
	}
	if _, err := b.AddStream([]byte("k"), 16, 1); err != ErrStreamOpen {
		t.Fatalf("second AddStream on open entry = %v, want ErrStreamOpen", err)
	}
	if err := s.Close(); err != nil {
		t.Fatal(err)
	}
	if err := b.Close(); err != nil {
		t.Fatal(err)
	}
}

func TestDeleteFirstAndLastEntryInvariants(t *testing.T) {
	path := filepath.Join(t.TempDir(), "invariants.bundle")
	b, err := OpenReadWrite(path)
	if err != nil {
		t.Fatal(err)
	}
	keys := []string{"first", "second", "third"}
	for _, k := range keys {
		if _, err := b.AddFile([]byte(k), bytes.Repeat([]byte{'x'}, 64), 1); err != nil {
			t.Fatal(err)
		}
	}

	first := b.dir.first
	last := b.dir.last
	if first == nil || last == nil {
		t.Fatal("directory has no first/last after adding entries")
	}
	if err := b.Delete(last.key); err != nil {
		t.Fatal(err)
	}
	if b.dir.last == nil {
		t.Fatal("last became nil after deleting one of three entries")
	}
	if b.dir.last.offset >= last.offset {
		t.Fatal("new last entry does not have a smaller offset than the deleted one")
	}

	for _, e := range append([]*Entry(nil), b.dir.entries...) {
		if err := b.Delete(e.key); err != nil {
			t.Fatal(err)
		}
	}
	if b.dir.first != nil || b.dir.last != nil {
		t.Fatal("directory first/last not nil after deleting every entry")
	}
	if err := b.Close(); err != nil {
		t.Fatal(err)
	}
}

func TestFirstEntryCacheSurvivesSequentialAddsAndDelete(t *testing.T) {
	path := filepath.Join(t.TempDir(), "firstcache.bundle")
	b, err := OpenReadWrite(path)
	if err != nil {
		t.Fatal(err)
	}
	for _, k := range []string{"a", "b", "c"} {
		if _, err := b.AddFile([]byte(k), bytes.Repeat([]byte{'q'}, 32), 1); err != nil {
			t.Fatal(err)
		}
	}

	trueFirst := b.dir.entries[0]
	for _, e := range b.dir.entries {
		if e.offset < trueFirst.offset {
			trueFirst = e
		}
	}
	if b.dir.first != trueFirst {
		t.Fatalf("dir.first = %q (offset %d), want %q (offset %d)",
			b.dir.first.key, b.dir.first.offset, trueFirst.key, trueFirst.offset)
	}

	if err := b.Delete(trueFirst.key); err != nil {
		t.Fatal(err)
	}

	if _, err := b.AddFile([]byte("d"), bytes.Repeat([]byte{'z'}, 32), 1); err != nil {
		t.Fatal(err)
	}

	entries := append([]*Entry(nil), b.dir.entries...)
	for i := range entries {
		for j := range entries {
			if i == j {
				continue
			}
			x, y := entries[i], entries[j]
			xEnd := x.offset + x.allocated
			yEnd := y.offset + y.allocated
			if x.offset < yEnd && y.offset < xEnd {
				t.Fatalf("entries %q and %q overlap after delete+add: [%d,%d) vs [%d,%d)",
					x.key, y.key, x.offset, xEnd, y.offset, yEnd)
			}
		}
	}
	if err := b.Close(); err != nil {
		t.Fatal(err)
	}
}

func TestAllocationsDoNotOverlap(t *testing.T) {
	path := filepath.Join(t.TempDir(), "disjoint.bundle")
	b, err := OpenReadWrite(path)
	if err != nil {
		t.Fatal(err)
	}
	sizes := []int{10, 5000, 1, 200}
	for i, n := range sizes {
		key := []byte{byte('a' + i)}
		if _, err := b.AddFile(key, bytes.Repeat([]byte{'z'}, n), 1); err != nil {
			t.Fatal(err)
		}
	}
	entries := append([]*Entry(nil), b.dir.entries...)
	for i := range entries {
		for j := range entries {
			if i == j {
				continue
			}
			a, c := entries[i], entries[j]
			aEnd := a.offset + a.allocated
			cEnd := c.offset + c.allocated
			if a.offset < cEnd && c.offset < aEnd {
				t.Fatalf("entries %q and %q overlap: [%d,%d) vs [%d,%d)",
					a.key, c.key, a.offset, aEnd, c.offset, cEnd)
			}
		}
	}
	if err := b.Close(); err != nil {
		t.Fatal(err)
	}
}
