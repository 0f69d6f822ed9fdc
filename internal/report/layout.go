// Package report lays out and renders the PDF export of a survey.
package report

import (
	"fmt"
	"strconv"
	"time"

	"github.com/Koyo-os/docusurvey/internal/entity"
	"github.com/google/uuid"
)

// Page geometry in millimetres on A4 portrait.
const (
	MarginLeft   = 14.0
	AnswerIndent = 20.0
	TitleY       = 22.0
	SurveyIDY    = 30.0
	GeneratedY   = 38.0
	TableY       = 45.0
	RowHeight    = 8.0
	LineStep     = 10.0
	DetailOffset = 6.0
	PageBottom   = 280.0
	PageTop      = 20.0

	// MaxAnswerRunes is where answers are cut in the export.
	MaxAnswerRunes = 100
)

const (
	dateTimeLayout = "2006-01-02 15:04:05"
	dateLayout     = "2006-01-02"
)

type (
	// Line is one text run placed at an absolute position.
	Line struct {
		X, Y     float64
		FontSize float64
		Bold     bool
		Text     string
	}

	// Table is the metric/value grid on the first page.
	Table struct {
		Y    float64
		Head [2]string
		Rows [][2]string
	}

	// Document is the positioned content of an export, one slice per page.
	Document struct {
		Title string
		Table *Table
		Pages [][]Line
	}
)

// End returns the y coordinate below the last table row.
func (t *Table) End() float64 {
	return t.Y + RowHeight*float64(len(t.Rows)+1)
}

// Layout positions the export content. Dates are shown in loc.
func Layout(survey *entity.Survey, responses []entity.Response, stats *entity.Stats, generatedAt time.Time, loc *time.Location) *Document {
	if loc == nil {
		loc = time.Local
	}

	doc := &Document{Title: "Survey Report"}
	page := []Line{
		{X: MarginLeft, Y: TitleY, FontSize: 20, Bold: true, Text: doc.Title},
		{X: MarginLeft, Y: SurveyIDY, FontSize: 12, Text: "Survey ID: " + surveyID(survey)},
		{X: MarginLeft, Y: GeneratedY, FontSize: 12, Text: "Generated: " + generatedAt.In(loc).Format(dateTimeLayout)},
	}

	y := 80.0
	if stats != nil {
		doc.Table = statsTable(stats, loc)
		y = doc.Table.End() + LineStep
	}

	page = append(page, Line{X: MarginLeft, Y: y, FontSize: 16, Bold: true, Text: "Individual Responses"})

	advance := func() {
		y += LineStep
		if y > PageBottom {
			doc.Pages = append(doc.Pages, page)
			page = nil
			y = PageTop
		}
	}

	for n, r := range responses {
		advance()
		page = append(page,
			Line{X: MarginLeft, Y: y, FontSize: 12, Text: fmt.Sprintf("Response #%d (ID: %s)", n+1, r.ID)},
			Line{X: MarginLeft, Y: y + DetailOffset, FontSize: 12, Text: fmt.Sprintf("Source: %s | Date: %s",
				r.Source, r.SubmittedAt.In(loc).Format(dateTimeLayout))},
		)

		for _, idx := range r.Answers.Indexes() {
			advance()
			page = append(page, Line{
				X:        AnswerIndent,
				Y:        y,
				FontSize: 12,
				Text:     fmt.Sprintf("Q%d: %s", idx+1, entity.Truncate(r.Answers[idx], MaxAnswerRunes)),
			})
		}

		y += LineStep
	}

	doc.Pages = append(doc.Pages, page)

	return doc
}

func statsTable(stats *entity.Stats, loc *time.Location) *Table {
	return &Table{
		Y:    TableY,
		Head: [2]string{"Metric", "Value"},
		Rows: [][2]string{
			{"Total Responses", strconv.Itoa(stats.TotalResponses)},
			{"Digital Submissions", strconv.Itoa(stats.Sources.Digital)},
			{"Physical Submissions", strconv.Itoa(stats.Sources.PhysicalUpload)},
			{"Questions per Survey", strconv.Itoa(stats.QuestionCount)},
			{"Date Range", stats.DateRange.Start.In(loc).Format(dateLayout) + " - " +
				stats.DateRange.End.In(loc).Format(dateLayout)},
		},
	}
}

func surveyID(s *entity.Survey) string {
	if s == nil {
		return ""
	}
	return s.ID.String()
}

// Filename is the download name of an export generated at t.
func Filename(surveyID uuid.UUID, t time.Time) string {
	return fmt.Sprintf("survey-report-%s-%d.pdf", surveyID, t.UnixMilli())
}
