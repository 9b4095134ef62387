// Package export writes attendance reports as Excel workbooks and PDF
// documents.
package export

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/pkg/errors"

	"asistenciaqr/internal/models"
)

// ErrEmptyReport is returned when a report has no rows to export.
var ErrEmptyReport = errors.New("el reporte no tiene filas")

// Formats accepted by Write.
const (
	FormatExcel = "xlsx"
	FormatPDF   = "pdf"
)

// SheetName is the worksheet holding the report.
const SheetName = "Reporte Asistencia"

// Headers are the report columns in order.
var Headers = []string{"#", "Apellidos", "Nombres", "DNI", "Asistió", "Hora", "Tipo de Registro"}

// FileName is reporte_asistencia_{grado}_{fecha}_{turno}.{ext}.
func FileName(f models.Filter, ext string) string {
	grado := strings.Map(func(r rune) rune {
		switch r {
		case '/', '\\', ':', '*', '?', '"', '<', '>', '|':
			return '_'
		}
		return r
	}, f.Grado)
	return fmt.Sprintf("reporte_asistencia_%s_%s_%s.%s", grado, f.Fecha, f.Turno, ext)
}

// Table returns the report as rows of cells, without the header.
func Table(rep *models.Report) [][]string {
	out := make([][]string, 0, len(rep.Rows))
	for i, r := range rep.Rows {
		asistio := "No"
		if r.Asistio {
			asistio = "Sí"
		}
		hora := r.Hora
		if hora == "" {
			hora = "-"
		}
		out = append(out, []string{strconv.Itoa(i + 1), r.Apellidos, r.Nombres, r.DNI, asistio, hora, r.Tipo})
	}
	return out
}

// Write encodes rep in the given format.
func Write(w io.Writer, rep *models.Report, format string) error {
	if rep == nil || len(rep.Rows) == 0 {
		return ErrEmptyReport
	}
	switch format {
	case FormatExcel:
		return Excel(w, rep)
	case FormatPDF:
		return PDF(w, rep)
	}
	return errors.Errorf("unknown export format %q", format)
}

// WriteFile saves rep into dir under its report file name and returns the path.
func WriteFile(dir string, rep *models.Report, format string) (string, error) {
	if rep == nil || len(rep.Rows) == 0 {
		return "", ErrEmptyReport
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", errors.Wrapf(err, "create %s", dir)
	}
	path := filepath.Join(dir, FileName(rep.Filtros, format))
	f, err := os.Create(path)
	if err != nil {
		return "", errors.Wrapf(err, "create %s", path)
	}
	if err := Write(f, rep, format); err != nil {
		f.Close()
		os.Remove(path)
		return "", err
	}
	return path, f.Close()
}
