package parser

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"
)

// Transform converts a raw cell into a typed value.
type Transform func(string) (any, error)

// CSVOptions controls header mapping and per-field coercion.
type CSVOptions struct {
	// Rename maps source header names to output field names.
	Rename map[string]string
	// Transform is keyed by output field name.
	Transform map[string]Transform
	// Comma defaults to ','.
	Comma rune
	// KeepSpace disables trimming of string values.
	KeepSpace bool
}

// ParseCSV reads a header row followed by data rows and builds one T per row.
// Empty lines are skipped.
func ParseCSV[T any](r io.Reader, opts CSVOptions, build func(Row) (T, error)) ([]T, error) {
	cr := csv.NewReader(r)
	cr.LazyQuotes = true
	cr.FieldsPerRecord = -1
	if opts.Comma != 0 {
		cr.Comma = opts.Comma
	}

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	fields := make([]string, len(header))
	for i, h := range header {
		h = strings.TrimSpace(strings.TrimPrefix(h, "\ufeff"))
		if to, ok := opts.Rename[h]; ok {
			h = to
		}
		fields[i] = h
	}

	var out []T
	line := 1
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		line++
		if err != nil {
			return nil, fmt.Errorf("read line %d: %w", line, err)
		}
		if blank(rec) {
			continue
		}
		row := make(Row, len(fields))
		for i, name := range fields {
			var cell string
			if i < len(rec) {
				cell = rec[i]
			}
			if !opts.KeepSpace {
				cell = strings.TrimSpace(cell)
			}
			if tf, ok := opts.Transform[name]; ok {
				v, err := tf(cell)
				if err != nil {
					return nil, fmt.Errorf("line %d field %s: %w", line, name, err)
				}
				row[name] = v
				continue
			}
			row[name] = cell
		}
		v, err := build(row)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		out = append(out, v)
	}
	return out, nil
}

func blank(rec []string) bool {
	for _, c := range rec {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}
