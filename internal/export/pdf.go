package export

import (
	"fmt"
	"io"

	"github.com/go-pdf/fpdf"
	"github.com/pkg/errors"

	"asistenciaqr/internal/models"
)

var pdfWidths = []float64{12, 60, 60, 30, 22, 28, 45}

// PDF writes rep as an A4 landscape table with a title and the filter line.
func PDF(w io.Writer, rep *models.Report) error {
	if rep == nil || len(rep.Rows) == 0 {
		return ErrEmptyReport
	}
	pdf := fpdf.New("L", "mm", "A4", "")
	pdf.SetMargins(10, 10, 10)
	pdf.SetAutoPageBreak(true, 10)
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	pdf.AddPage()

	pdf.SetFont("Helvetica", "B", 16)
	pdf.SetTextColor(0x4e, 0x54, 0xc8)
	pdf.CellFormat(0, 10, tr("Reporte de Asistencia"), "", 1, "C", false, 0, "")

	f := rep.Filtros
	pdf.SetFont("Helvetica", "B", 10)
	pdf.SetTextColor(0, 0, 0)
	pdf.CellFormat(0, 8, tr(fmt.Sprintf("Grado: %s | Fecha: %s | Turno: %s", f.Grado, f.Fecha, models.ShiftLabel(f.Turno))), "", 1, "L", false, 0, "")

	header := func() {
		pdf.SetFont("Helvetica", "B", 9)
		pdf.SetFillColor(0x4e, 0x54, 0xc8)
		pdf.SetTextColor(255, 255, 255)
		for i, h := range Headers {
			pdf.CellFormat(pdfWidths[i], 7, tr(h), "1", 0, "C", true, 0, "")
		}
		pdf.Ln(-1)
		pdf.SetFont("Helvetica", "", 9)
		pdf.SetTextColor(0, 0, 0)
	}
	header()
	_, pageH := pdf.GetPageSize()
	_, _, _, bottom := pdf.GetMargins()
	for _, row := range Table(rep) {
		if pdf.GetY()+6 > pageH-bottom {
			pdf.AddPage()
			header()
		}
		for i, cell := range row {
			align := "L"
			if i == 0 || i == 4 || i == 5 {
				align = "C"
			}
			pdf.CellFormat(pdfWidths[i], 6, tr(cell), "1", 0, align, false, 0, "")
		}
		pdf.Ln(-1)
	}

	if err := pdf.Output(w); err != nil {
		return errors.Wrap(err, "write pdf")
	}
	return nil
}
