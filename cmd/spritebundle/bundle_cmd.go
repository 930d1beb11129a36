// SPDX-License-Identifier: Unlicense OR MIT

package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"

	"spritebundle.dev/spritebundle/bundle"
	"spritebundle.dev/spritebundle/manifest"
)

const bundleUsage = `usage: spritebundle bundle [-prefix dir] [-verbose] [-deps file] <manifest.json> <out.bundle>

bundle reads a JSON manifest, packs every texture it names and writes
every file it names into out.bundle. Entries whose sources are already
up to date are left untouched; entries the manifest no longer mentions
are removed.
`

func runBundle(args []string) error {
	fs := flag.NewFlagSet("bundle", flag.ContinueOnError)
	fs.Usage = func() { fmt.Fprint(os.Stderr, bundleUsage) }
	prefix := fs.String("prefix", "", "directory manifest paths are relative to (default: the manifest's own directory)")
	verbose := fs.Bool("verbose", false, "log each entry as it is built or skipped")
	depsPath := fs.String("deps", "", "write a make-style dependency file to this path")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 2 {
		fs.Usage()
		return fmt.Errorf("expected a manifest path and a bundle path")
	}
	manifestPath, bundlePath := fs.Arg(0), fs.Arg(1)

	f, err := os.Open(manifestPath)
	if err != nil {
		return err
	}
	m, err := manifest.Parse(f)
	f.Close()
	if err != nil {
		return err
	}

	base := *prefix
	if base == "" {
		base = filepath.Dir(manifestPath)
	}

	b, err := bundle.OpenReadWrite(bundlePath)
	if err != nil {
		return err
	}
	d := &manifest.Driver{Bundle: b, Prefix: base, Verbose: *verbose}
	if buildErr := d.Build(m); buildErr != nil {
		b.Close()
		return buildErr
	}
	b.DeleteUntouched()
	if err := b.Close(); err != nil {
		return err
	}

	if *depsPath != "" {
		out, err := os.Create(*depsPath)
		if err != nil {
			return err
		}
		defer out.Close()
		if err := manifest.WriteDeps(out, bundlePath, d.Deps); err != nil {
			return err
		}
	}
	return nil
}

