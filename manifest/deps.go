// SPDX-License-Identifier: Unlicense OR MIT

package manifest

import (
	"fmt"
	"io"
	"sort"
)

const depsLineWidth = 80

// WriteDeps emits a makefile fragment recording every input path the
// build consulted, so an external build system can know to re-run the
// bundle step when any of them changes. The dependency list is sorted
// and deduplicated for reproducible output.
func WriteDeps(w io.Writer, bundlePath string, deps []string) error {
	seen := make(map[string]bool, len(deps))
	unique := make([]string, 0, len(deps))
	for _, d := range deps {
		if !seen[d] {
			seen[d] = true
			unique = append(unique, d)
		}
	}
	deps = unique
	sort.Strings(deps)

	if err := writeWrapped(w, bundlePath+":", deps); err != nil {
		return err
	}
	for _, d := range deps {
		if _, err := fmt.Fprintf(w, "%s:\n", d); err != nil {
			return err
		}
	}
	return nil
}

// writeWrapped writes "prefix dep dep dep" wrapped at depsLineWidth
// columns using backslash-newline continuations, the way make recipes
// conventionally wrap long dependency lists.
func writeWrapped(w io.Writer, prefix string, deps []string) error {
	line := prefix
	first := true
	flush := func(cont bool) error {
		suffix := "\n"
		if cont {
			suffix = " \\\n"
		}
		_, err := fmt.Fprint(w, line, suffix)
		return err
	}
	for _, d := range deps {
		piece := " " + d
		if !first && len(line)+len(piece) > depsLineWidth {
			if err := flush(true); err != nil {
				return err
			}
			line = ""
			piece = d
		}
		line += piece
		first = false
	}
	return flush(false)
}
