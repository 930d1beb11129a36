// SPDX-License-Identifier: Unlicense OR MIT

// Package manifest implements the incremental-build driver: it consumes
// an assets manifest (JSON) and materialises its textures and files into
// a bundle, skipping entries whose sources haven't changed and touching
// every entry it covers, so that the caller's Bundle.DeleteUntouched
// sweep removes the ones no longer referenced.
package manifest

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
)

// ParseError carries the 1-based line and column of a manifest syntax
// error, JSON type mismatch or trailing data after the top-level object,
// reported as "line L, col C: <msg>".
type ParseError struct {
	Line, Column int
	Err          error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("line %d, col %d: %s", e.Line, e.Column, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// Parse reads an entire manifest from r and decodes it into a Manifest.
// Syntax errors and JSON type mismatches are reported as a *ParseError
// with line/column position. Other schema errors (an unknown property,
// an unrecognized or incomplete anchor) are returned as-is, without a
// position.
func Parse(r io.Reader) (*Manifest, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}

	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()

	var m Manifest
	if err := dec.Decode(&m); err != nil {
		return nil, wrapParseError(data, err)
	}
	if dec.More() {
		line, col := lineCol(data, dec.InputOffset())
		return nil, &ParseError{Line: line, Column: col, Err: fmt.Errorf("expected EOF after top-level object")}
	}
	return &m, nil
}

func wrapParseError(data []byte, err error) error {
	var offset int64
	switch e := err.(type) {
	case *json.SyntaxError:
		offset = e.Offset
	case *json.UnmarshalTypeError:
		offset = e.Offset
	default:
		return err
	}
	line, col := lineCol(data, offset)
	return &ParseError{Line: line, Column: col, Err: err}
}

// lineCol converts a 0-based byte offset into a 1-based (line, column)
// pair, scanning for newlines the way a streaming tokenizer would track
// its own position as it consumes bytes.
func lineCol(data []byte, offset int64) (line, col int) {
	line, col = 1, 1
	for i := int64(0); i < offset && i < int64(len(data)); i++ {
		if data[i] == '\n' {
			line++
			col = 1
		} else {
			col++
		}
	}
	return line, col
}
