package parser

import (
	"bytes"
	"fmt"

	"github.com/extrame/xls"
	"github.com/xuri/excelize/v2"
)

// Workbook is a read-only view of a spreadsheet held in memory.
type Workbook interface {
	SheetNames() []string
	Rows(sheet string) ([][]string, error)
}

var oleMagic = []byte{0xD0, 0xCF, 0x11, 0xE0}

// OpenWorkbook reads an XLSX or legacy XLS workbook.
func OpenWorkbook(data []byte) (Workbook, error) {
	if bytes.HasPrefix(data, oleMagic) {
		return openXLS(data)
	}
	return openXLSX(data)
}

type memWorkbook struct {
	names []string
	rows  map[string][][]string
}

func (w *memWorkbook) SheetNames() []string { return w.names }

func (w *memWorkbook) Rows(sheet string) ([][]string, error) {
	r, ok := w.rows[sheet]
	if !ok {
		return nil, fmt.Errorf("sheet %q not found", sheet)
	}
	return r, nil
}

func openXLSX(data []byte) (Workbook, error) {
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("open xlsx: %w", err)
	}
	defer f.Close()
	wb := &memWorkbook{rows: map[string][][]string{}}
	for _, name := range f.GetSheetList() {
		rows, err := f.GetRows(name)
		if err != nil {
			return nil, fmt.Errorf("read sheet %q: %w", name, err)
		}
		wb.names = append(wb.names, name)
		wb.rows[name] = rows
	}
	return wb, nil
}

func openXLS(data []byte) (Workbook, error) {
	book, err := xls.OpenReader(bytes.NewReader(data), "utf-8")
	if err != nil {
		return nil, fmt.Errorf("open xls: %w", err)
	}
	wb := &memWorkbook{rows: map[string][][]string{}}
	for i := 0; i < book.NumSheets(); i++ {
		sheet := book.GetSheet(i)
		if sheet == nil {
			continue
		}
		rows := make([][]string, 0, int(sheet.MaxRow)+1)
		for r := 0; r <= int(sheet.MaxRow); r++ {
			row := xlsRow(sheet, r)
			if row == nil {
				rows = append(rows, nil)
				continue
			}
			cells := make([]string, row.LastCol())
			for c := range cells {
				cells[c] = row.Col(c)
			}
			rows = append(rows, cells)
		}
		wb.names = append(wb.names, sheet.Name)
		wb.rows[sheet.Name] = rows
	}
	return wb, nil
}

// xlsRow returns nil for rows absent from the sheet; the library panics on them.
func xlsRow(s *xls.WorkSheet, i int) (row *xls.Row) {
	defer func() {
		if recover() != nil {
			row = nil
		}
	}()
	return s.Row(i)
}
