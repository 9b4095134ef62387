package export

import (
	"io"

	"github.com/pkg/errors"
	"github.com/xuri/excelize/v2"

	"asistenciaqr/internal/models"
)

// Excel writes rep as a single sheet workbook.
func Excel(w io.Writer, rep *models.Report) error {
	if rep == nil || len(rep.Rows) == 0 {
		return ErrEmptyReport
	}
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", SheetName); err != nil {
		return errors.Wrap(err, "rename sheet")
	}
	header := make([]interface{}, len(Headers))
	for i, h := range Headers {
		header[i] = h
	}
	if err := f.SetSheetRow(SheetName, "A1", &header); err != nil {
		return errors.Wrap(err, "write header")
	}
	for i, row := range Table(rep) {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		values := make([]interface{}, len(row))
		values[0] = i + 1
		for j := 1; j < len(row); j++ {
			values[j] = row[j]
		}
		if err := f.SetSheetRow(SheetName, cell, &values); err != nil {
			return errors.Wrapf(err, "write row %d", i+1)
		}
	}

	style, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true, Color: "FFFFFF"},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"4E54C8"}, Pattern: 1},
	})
	if err != nil {
		return errors.Wrap(err, "header style")
	}
	if err := f.SetCellStyle(SheetName, "A1", "G1", style); err != nil {
		return errors.Wrap(err, "apply header style")
	}
	f.SetColWidth(SheetName, "B", "C", 24)
	f.SetColWidth(SheetName, "G", "G", 18)

	if err := f.Write(w); err != nil {
		return errors.Wrap(err, "write workbook")
	}
	return nil
}
