// Package export renders tariff tables as Excel workbooks for the
// property manager, who maintains prices in a spreadsheet before they
// land in the tariff store.
package export

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"

	"villabook/internal/tariff"
)

var columns = []string{"Data Inizio", "Data Fine", "Costo"}

// Writer builds an xlsx workbook with one sheet per room.
type Writer struct {
	file         *excelize.File
	currentSheet string
	currentRow   int
}

// NewWriter creates an empty workbook.
func NewWriter() *Writer {
	return &Writer{file: excelize.NewFile()}
}

// AddRoom adds a sheet named after the room and fills it with the
// table's legacy rows (inclusive boundary dates, as the manager edits
// them).
func (w *Writer) AddRoom(room string, table *tariff.Table) error {
	if err := w.addSheet(room); err != nil {
		return err
	}
	if err := w.writeHeader(); err != nil {
		return err
	}
	for _, row := range table.ToRows() {
		if err := w.writeRow([]interface{}{row.Start, row.End, row.Rate}); err != nil {
			return err
		}
	}
	return nil
}

func (w *Writer) addSheet(name string) error {
	// Excel caps sheet names at 31 chars.
	if len(name) > 31 {
		name = name[:31]
	}

	if w.currentSheet == "" {
		w.file.SetSheetName("Sheet1", name)
	} else {
		if _, err := w.file.NewSheet(name); err != nil {
			return fmt.Errorf("create sheet %s: %w", name, err)
		}
	}

	w.currentSheet = name
	w.currentRow = 1
	return nil
}

func (w *Writer) writeHeader() error {
	for i, col := range columns {
		cell, err := excelize.CoordinatesToCellName(i+1, w.currentRow)
		if err != nil {
			return err
		}
		if err := w.file.SetCellValue(w.currentSheet, cell, col); err != nil {
			return err
		}
	}

	style, err := w.file.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
	})
	if err == nil {
		startCell, _ := excelize.CoordinatesToCellName(1, w.currentRow)
		endCell, _ := excelize.CoordinatesToCellName(len(columns), w.currentRow)
		_ = w.file.SetCellStyle(w.currentSheet, startCell, endCell, style)
	}

	w.currentRow++
	return nil
}

func (w *Writer) writeRow(row []interface{}) error {
	for i, val := range row {
		cell, err := excelize.CoordinatesToCellName(i+1, w.currentRow)
		if err != nil {
			return err
		}
		if err := w.file.SetCellValue(w.currentSheet, cell, val); err != nil {
			return err
		}
	}
	w.currentRow++
	return nil
}

// Save writes the workbook to wr.
func (w *Writer) Save(wr io.Writer) error {
	return w.file.Write(wr)
}

// Close releases resources.
func (w *Writer) Close() error {
	return w.file.Close()
}
