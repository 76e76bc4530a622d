package ingest

import (
	"context"
	"errors"
	"fmt"

	"github.com/KaramelBytes/intellidash-cli/internal/table"
	"github.com/xuri/excelize/v2"
)

type xlsxLoader struct {
	// Sheet selects a worksheet by name; empty means the first sheet.
	Sheet string
}

func (xlsxLoader) CanLoad(path string) bool { return hasExt(path, ".xlsx") }

func (l xlsxLoader) Load(ctx context.Context, path string) (*table.Table, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("open xlsx: %w", err)
	}
	defer f.Close()

	sheet := l.Sheet
	if sheet == "" {
		sheets := f.GetSheetList()
		if len(sheets) == 0 {
			return nil, errors.New("workbook has no sheets")
		}
		sheet = sheets[0]
	}
	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("read sheet %q: %w", sheet, err)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("sheet %q is empty", sheet)
	}
	return table.FromRows(headerNames(rows[0]), dropBlankRows(rows[1:]))
}

func dropBlankRows(rows [][]string) [][]string {
	out := rows[:0:0]
	for _, r := range rows {
		blank := true
		for _, c := range r {
			if c != "" {
				blank = false
				break
			}
		}
		if !blank {
			out = append(out, r)
		}
	}
	return out
}
