// SPDX-License-Identifier: Unlicense OR MIT

package manifest

import (
	"strings"
	"testing"
)

func TestParseValidManifest(t *testing.T) {
	const doc = `{
		"textures": {
			"cockpit": {
				"maxWidth": 256, "maxHeight": 256,
				"pow2": true, "allowRotate90": true,
				"images": {"radar": {"path": "radar-circle.png", "anchor": "center"}}
			}
		},
		"files": {"license": {"path": "LICENSE"}}
	}`
	m, err := Parse(strings.NewReader(doc))
	if err != nil {
		t.Fatal(err)
	}
	if len(m.Textures) != 1 || len(m.Files) != 1 {
		t.Fatalf("unexpected manifest shape: %+v", m)
	}
}

func TestParseSyntaxErrorReportsPosition(t *testing.T) {
	const doc = "{\n  \"files\": ,\n}"
	_, err := Parse(strings.NewReader(doc))
	if err == nil {
		t.Fatal("expected a parse error")
	}
	pe, ok := err.(*ParseError)
	if !ok {
		t.Fatalf("expected *ParseError, got %T: %v", err, err)
	}
	if pe.Line < 1 {
		t.Fatalf("expected a positive line number, got %d", pe.Line)
	}
}
