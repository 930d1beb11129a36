// SPDX-License-Identifier: Unlicense OR MIT

package manifest

import (
	"strings"
	"testing"
)

func TestWriteDepsSortsAndDedups(t *testing.T) {
	var buf strings.Builder
	deps := []string{"b.png", "a.png", "b.png", "c.png"}
	if err := WriteDeps(&buf, "out.bundle", deps); err != nil {
		t.Fatal(err)
	}
	out := buf.String()
	if !strings.Contains(out, "out.bundle: a.png b.png c.png") {
		t.Fatalf("expected sorted deduped dep line, got:\n%s", out)
	}
	for _, d := range []string{"a.png:", "b.png:", "c.png:"} {
		if !strings.Contains(out, d) {
			t.Fatalf("missing empty rule for %s in:\n%s", d, out)
		}
	}
}

func TestWriteDepsWrapsLongLines(t *testing.T) {
	var buf strings.Builder
	var deps []string
	for i := 0; i < 20; i++ {
		deps = append(deps, strings.Repeat("x", 10)+string(rune('a'+i))+".png")
	}
	if err := WriteDeps(&buf, "out.bundle", deps); err != nil {
		t.Fatal(err)
	}
	for _, line := range strings.Split(buf.String(), "\n") {
		if len(line) > depsLineWidth+2 {
			t.Fatalf("line exceeds wrap width: %q", line)
		}
	}
}
