// SPDX-License-Identifier: Unlicense OR MIT

package manifest

import (
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// globHit is one regular file matched by a glob record, with the key it
// should be stored under (prefix prepended to its path relative to the
// joined base directory) and the resolved path to read it from.
type globHit struct {
	key  string
	path string
}

// expandGlob joins basePrefix and path to locate the glob's search root,
// matches pattern beneath it, filters out anything but regular files,
// and derives each hit's bundle key from its path relative to that root
// with the record's own prefix prepended. Matches are returned in a
// stable, sorted order so repeated builds are reproducible.
func expandGlob(basePrefix, path, pattern, keyPrefix string) ([]globHit, error) {
	base := filepath.Join(basePrefix, path)
	matches, err := filepath.Glob(filepath.Join(base, pattern))
	if err != nil {
		return nil, err
	}
	sort.Strings(matches)

	var hits []globHit
	for _, m := range matches {
		info, err := os.Stat(m)
		if err != nil || !info.Mode().IsRegular() {
			continue
		}
		rel, err := filepath.Rel(base, m)
		if err != nil {
			continue
		}
		key := keyPrefix + filepath.ToSlash(rel)
		hits = append(hits, globHit{key: strings.TrimPrefix(key, "/"), path: m})
	}
	return hits, nil
}
