package parser

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

// Placeholder marks an intentionally blank value in nullable columns.
const Placeholder = "-"

var monthAbbrev = map[string]string{
	"jan": "01", "feb": "02", "mar": "03", "apr": "04", "may": "05", "jun": "06",
	"jul": "07", "aug": "08", "sep": "09", "oct": "10", "nov": "11", "dec": "12",
}

// ResolvePeriod converts a sheet name like "Jan 2024" to "2024-01".
func ResolvePeriod(sheetName string) (string, error) {
	tok := strings.Fields(sheetName)
	if len(tok) != 2 {
		return "", fmt.Errorf("sheet name %q: want \"<Mon> <YYYY>\"", sheetName)
	}
	mm, ok := monthAbbrev[strings.ToLower(tok[0])]
	if !ok {
		return "", fmt.Errorf("sheet name %q: unknown month %q", sheetName, tok[0])
	}
	year := tok[1]
	if len(year) != 4 || strings.Trim(year, "0123456789") != "" {
		return "", fmt.Errorf("sheet name %q: bad year %q", sheetName, year)
	}
	return year + "-" + mm, nil
}

// SheetLayout is the fixed shape of a statistical spreadsheet.
type SheetLayout struct {
	HeaderRows int
	// Columns maps column positions to output field names.
	Columns         []string
	TextColumns     []string
	NullableColumns []string
	EntityColumn    string
	MaxEntityLen    int
}

// SheetResult holds the data rows of one sheet.
type SheetResult struct {
	Period  string
	Rows    []Row
	Skipped int
}

// ParseSheet keeps rows whose first cell is a serial number and whose entity
// cell is a short non-empty value. Footnotes and legends fail one of the two.
func ParseSheet(sheetName string, rows [][]string, l SheetLayout) (SheetResult, error) {
	period, err := ResolvePeriod(sheetName)
	if err != nil {
		return SheetResult{}, err
	}
	text := set(l.TextColumns)
	nullable := set(l.NullableColumns)
	entityIdx := -1
	for i, c := range l.Columns {
		if c == l.EntityColumn {
			entityIdx = i
		}
	}
	if entityIdx < 0 {
		return SheetResult{}, fmt.Errorf("entity column %q not in layout", l.EntityColumn)
	}

	res := SheetResult{Period: period}
	for i, raw := range rows {
		if i < l.HeaderRows {
			continue
		}
		if !dataRow(raw, entityIdx, l.MaxEntityLen) {
			if !blank(raw) {
				res.Skipped++
			}
			continue
		}
		row := make(Row, len(l.Columns)+1)
		for pos, name := range l.Columns {
			cell, present := cellAt(raw, pos)
			switch {
			case text[name]:
				if cell == "" {
					row[name] = nil
				} else {
					row[name] = cell
				}
			case nullable[name]:
				if !present || cell == "" || cell == Placeholder {
					row[name] = nil
				} else {
					v, _ := Int(cell)
					row[name] = v
				}
			default:
				v, _ := Int(cell)
				row[name] = v
			}
		}
		row["month"] = period
		res.Rows = append(res.Rows, row)
	}
	return res, nil
}

func dataRow(raw []string, entityIdx, maxLen int) bool {
	first, _ := cellAt(raw, 0)
	if _, ok := number(first); !ok {
		return false
	}
	entity, _ := cellAt(raw, entityIdx)
	if entity == "" {
		return false
	}
	return maxLen <= 0 || utf8.RuneCountInString(entity) < maxLen
}

func cellAt(raw []string, i int) (string, bool) {
	if i >= len(raw) {
		return "", false
	}
	return strings.TrimSpace(raw[i]), true
}

func set(xs []string) map[string]bool {
	m := make(map[string]bool, len(xs))
	for _, x := range xs {
		m[x] = true
	}
	return m
}
