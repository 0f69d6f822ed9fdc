package report

import (
	"bytes"
	"fmt"
	"time"

	"github.com/Koyo-os/docusurvey/internal/entity"
	"github.com/go-pdf/fpdf"
	"golang.org/x/image/font/gofont/gobold"
	"golang.org/x/image/font/gofont/goregular"
)

const (
	fontFamily = "Go"
	tableWidth = 182.0
)

var headFill = [3]int{78, 205, 196}

// Render draws the export and returns the PDF bytes.
func Render(survey *entity.Survey, responses []entity.Response, stats *entity.Stats, generatedAt time.Time, loc *time.Location) ([]byte, error) {
	return Draw(Layout(survey, responses, stats, generatedAt, loc), generatedAt)
}

// Draw writes a laid out document with the embedded Go fonts, so answers keep
// their Latin, Greek and Cyrillic text as typed.
func Draw(doc *Document, createdAt time.Time) ([]byte, error) {
	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetCreationDate(createdAt)
	pdf.SetTitle(doc.Title, true)
	pdf.SetCreator("docusurvey", true)
	pdf.SetAutoPageBreak(false, 0)
	pdf.AddUTF8FontFromBytes(fontFamily, "", goregular.TTF)
	pdf.AddUTF8FontFromBytes(fontFamily, "B", gobold.TTF)

	for i, lines := range doc.Pages {
		pdf.AddPage()

		if i == 0 && doc.Table != nil {
			drawTable(pdf, doc.Table)
		}

		for _, l := range lines {
			style := ""
			if l.Bold {
				style = "B"
			}
			pdf.SetFont(fontFamily, style, l.FontSize)
			pdf.Text(l.X, l.Y, l.Text)
		}
	}

	if err := pdf.Error(); err != nil {
		return nil, fmt.Errorf("error render pdf: %w", err)
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("error write pdf: %w", err)
	}

	return buf.Bytes(), nil
}

func drawTable(pdf *fpdf.Fpdf, table *Table) {
	col := tableWidth / 2

	pdf.SetXY(MarginLeft, table.Y)
	pdf.SetFont(fontFamily, "B", 11)
	pdf.SetFillColor(headFill[0], headFill[1], headFill[2])
	pdf.SetTextColor(255, 255, 255)
	pdf.CellFormat(col, RowHeight, table.Head[0], "1", 0, "L", true, 0, "")
	pdf.CellFormat(col, RowHeight, table.Head[1], "1", 1, "L", true, 0, "")

	pdf.SetFont(fontFamily, "", 11)
	pdf.SetTextColor(0, 0, 0)
	for _, row := range table.Rows {
		pdf.SetX(MarginLeft)
		pdf.CellFormat(col, RowHeight, row[0], "1", 0, "L", false, 0, "")
		pdf.CellFormat(col, RowHeight, row[1], "1", 1, "L", false, 0, "")
	}
}
