// SPDX-License-Identifier: Unlicense OR MIT

// Command spritebundle builds and inspects sprite bundles: binary
// containers holding packed textures and opaque asset files, described
// by a JSON manifest.
package main

import (
	"fmt"
	"os"
)

const progName = "spritebundle"

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(1)
	}

	var err error
	switch os.Args[1] {
	case "bundle":
		err = runBundle(os.Args[2:])
	case "cat":
		err = runCat(os.Args[2:])
	case "ls":
		err = runLs(os.Args[2:])
	case "strip":
		err = runStrip(os.Args[2:])
	case "help", "-h", "-help", "--help":
		if len(os.Args) > 2 {
			helpFor(os.Args[2])
			os.Exit(0)
		}
		usage()
		os.Exit(0)
	default:
		fmt.Fprintf(os.Stderr, "%s: unknown command %q\n", progName, os.Args[1])
		usage()
		os.Exit(1)
	}

	if err != nil {
		fmt.Fprintf(os.Stderr, "%s: %v\n", progName, err)
		os.Exit(1)
	}
}

func usage() {
	fmt.Fprint(os.Stderr, mainUsage)
}

func helpFor(cmd string) {
	switch cmd {
	case "bundle":
		fmt.Fprint(os.Stderr, bundleUsage)
	case "cat":
		fmt.Fprint(os.Stderr, catUsage)
	case "ls":
		fmt.Fprint(os.Stderr, lsUsage)
	case "strip":
		fmt.Fprint(os.Stderr, stripUsage)
	default:
		usage()
	}
}

const mainUsage = `spritebundle builds and inspects sprite bundles.

Usage:

	spritebundle <command> [arguments]

Commands:

	bundle   pack a manifest's textures and files into a bundle
	cat      print one entry's payload to stdout
	ls       list a bundle's entries
	strip    rewrite a bundle to its minimum size

Use "spritebundle help <command>" for details on a specific command.
`
