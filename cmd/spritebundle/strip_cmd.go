// SPDX-License-Identifier: Unlicense OR MIT

package main

import (
	"crypto/rand"
	"flag"
	"fmt"
	"os"
	"path/filepath"

	"spritebundle.dev/spritebundle/bundle"
)

const stripUsage = `usage: spritebundle strip <bundle>

strip rewrites bundle in precise allocation mode, removing the slack
space each entry normally carries for cheap in-place growth, then
atomically replaces the original file with the minimal one.
`

func runStrip(args []string) error {
	fs := flag.NewFlagSet("strip", flag.ContinueOnError)
	fs.Usage = func() { fmt.Fprint(os.Stderr, stripUsage) }
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		fs.Usage()
		return fmt.Errorf("expected a bundle path")
	}
	path := fs.Arg(0)

	src, err := bundle.OpenReadOnly(path)
	if err != nil {
		return err
	}

	tmpPath, err := tempSibling(path)
	if err != nil {
		src.Close()
		return err
	}
	dst, err := bundle.OpenPrecise(tmpPath, src.HeaderBytes())
	if err != nil {
		src.Close()
		return err
	}

	for _, e := range src.Entries() {
		data, err := src.ReadAll(e)
		if err != nil {
			src.Close()
			dst.Close()
			os.Remove(tmpPath)
			return err
		}
		if _, err := dst.AddFile(e.Key(), data, e.Mtime()); err != nil {
			src.Close()
			dst.Close()
			os.Remove(tmpPath)
			return err
		}
	}

	if err := src.Close(); err != nil {
		dst.Close()
		os.Remove(tmpPath)
		return err
	}
	if err := dst.Close(); err != nil {
		os.Remove(tmpPath)
		return err
	}
	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return err
	}
	return nil
}

// tempSibling returns an unused path in the same directory as path, so
// the final rename in runStrip stays on one filesystem and is atomic.
func tempSibling(path string) (string, error) {
	dir, base := filepath.Split(path)
	var suffix [4]byte
	if _, err := rand.Read(suffix[:]); err != nil {
		return "", err
	}
	name := fmt.Sprintf(".%s.%x.tmp", base, suffix)
	return filepath.Join(dir, name), nil
}
