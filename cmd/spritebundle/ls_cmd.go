// SPDX-License-Identifier: Unlicense OR MIT

package main

import (
	"flag"
	"fmt"
	"os"
	"sort"

	"spritebundle.dev/spritebundle/bundle"
)

const lsUsage = `usage: spritebundle ls <bundle>

ls lists every entry in bundle, one per line, as:

	<key>	<size>	<mtime>
`

func runLs(args []string) error {
	fs := flag.NewFlagSet("ls", flag.ContinueOnError)
	fs.Usage = func() { fmt.Fprint(os.Stderr, lsUsage) }
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		fs.Usage()
		return fmt.Errorf("expected a bundle path")
	}

	b, err := bundle.OpenReadOnly(fs.Arg(0))
	if err != nil {
		return err
	}
	defer b.Close()

	entries := b.Entries()
	sort.Slice(entries, func(i, j int) bool {
		return string(entries[i].Key()) < string(entries[j].Key())
	})
	for _, e := range entries {
		fmt.Printf("%s\t%d\t%d\n", e.Key(), e.Size(), e.Mtime())
	}
	return nil
}
