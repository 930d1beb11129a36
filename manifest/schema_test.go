// SPDX-License-Identifier: Unlicense OR MIT

package manifest

import (
	"encoding/json"
	"errors"
	"testing"

	"spritebundle.dev/spritebundle/bundle"
	"spritebundle.dev/spritebundle/pack"
)

func TestAnchorUnmarshalNamed(t *testing.T) {
	var a Anchor
	if err := json.Unmarshal([]byte(`"topright"`), &a); err != nil {
		t.Fatal(err)
	}
	if a.Kind != pack.AnchorTopRight {
		t.Fatalf("got kind %v", a.Kind)
	}
}

func TestAnchorUnmarshalExplicit(t *testing.T) {
	var a Anchor
	if err := json.Unmarshal([]byte(`{"x": 3.5, "y": 4}`), &a); err != nil {
		t.Fatal(err)
	}
	if a.Kind != pack.AnchorExplicit {
		t.Fatalf("got kind %v", a.Kind)
	}
	if a.X != 3.5 || a.Y != 4 {
		t.Fatalf("anchor coords wrong: got (%v, %v), want (3.5, 4)", a.X, a.Y)
	}
}

func TestAnchorUnmarshalInvalidName(t *testing.T) {
	var a Anchor
	err := json.Unmarshal([]byte(`"diagonal"`), &a)
	if err == nil {
		t.Fatal("expected error for unrecognized anchor name")
	}
	if !errors.Is(err, bundle.ErrInvalidAnchor) {
		t.Fatalf("error %v does not wrap bundle.ErrInvalidAnchor", err)
	}
}

func TestAnchorUnmarshalMissingCoordinate(t *testing.T) {
	var a Anchor
	err := json.Unmarshal([]byte(`{"x": 1}`), &a)
	if err == nil {
		t.Fatal("expected error for explicit anchor missing y")
	}
	if !errors.Is(err, bundle.ErrInvalidAnchor) {
		t.Fatalf("error %v does not wrap bundle.ErrInvalidAnchor", err)
	}
}
