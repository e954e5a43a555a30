package coursegrader

import (
	"fmt"
	"io"
	"sort"
	"time"

	"codeberg.org/go-pdf/fpdf"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// PDFConfig controls the printable work summary layout.
type PDFConfig struct {
	PageSize   string
	MarginsMM  float64
	FontFamily string
}

// DefaultPDFConfig is an A4 page with the core Helvetica font.
var DefaultPDFConfig = PDFConfig{
	PageSize:   "A4",
	MarginsMM:  15,
	FontFamily: "Helvetica",
}

// ExportWorkPDF writes a printable summary of the session to w.
func (s *LearnerSession) ExportWorkPDF(w io.Writer, course *Course, cfg PDFConfig, now time.Time) error {
	summary := s.Summary(now)
	title := cases.Title(language.English)

	pdf := fpdf.New("P", "mm", cfg.PageSize, "")
	pdf.SetMargins(cfg.MarginsMM, cfg.MarginsMM, cfg.MarginsMM)
	// core fonts are cp1252; map what we can and drop the rest
	tr := pdf.UnicodeTranslatorFromDescriptor("")

	pdf.SetTitle(tr(course.Title), false)
	pdf.AddPage()

	pdf.SetFont(cfg.FontFamily, "B", 18)
	pdf.MultiCell(0, 9, tr(course.Title), "", "C", false)
	pdf.SetFont(cfg.FontFamily, "", 10)
	pdf.CellFormat(0, 6, fmt.Sprintf("Exported %s", now.Format("2006-01-02 15:04")), "", 1, "C", false, 0, "")
	pdf.Ln(6)

	heading := func(text string) {
		pdf.SetFont(cfg.FontFamily, "B", 14)
		pdf.CellFormat(0, 8, tr(title.String(text)), "", 1, "L", false, 0, "")
		pdf.SetFont(cfg.FontFamily, "", 11)
	}
	entry := func(label, text string) {
		pdf.SetFont(cfg.FontFamily, "B", 11)
		pdf.MultiCell(0, 6, tr(label), "", "L", false)
		pdf.SetFont(cfg.FontFamily, "", 11)
		pdf.MultiCell(0, 6, tr(text), "", "L", false)
		pdf.Ln(2)
	}

	heading("discussion responses")
	responses := s.DiscussionResponses()
	if len(responses) == 0 {
		pdf.MultiCell(0, 6, "No discussion responses yet.", "", "L", false)
	}
	for _, slideID := range sortedKeys(responses) {
		label := slideID
		if slide := course.SlideByID(slideID); slide != nil {
			label = slide.Title
		}
		entry("Response to: "+label, responses[slideID])
	}
	pdf.Ln(4)

	heading("reflections")
	for _, r := range course.Reflections {
		if text, ok := summary.Reflections[r.Key]; ok && text != "" {
			entry(r.Prompt, text)
		}
	}
	pdf.Ln(4)

	heading("quizzes")
	for _, q := range course.Quizzes {
		attempts := summary.QuizAttempts[q.ID]
		line := fmt.Sprintf("%s: not attempted", q.Title)
		if attempts > 0 {
			line = fmt.Sprintf("%s: %.0f%% (%d attempt(s))", q.Title, summary.QuizScores[q.ID], attempts)
		}
		pdf.MultiCell(0, 6, tr(line), "", "L", false)
	}
	pdf.Ln(4)

	heading("short answers")
	for _, sa := range summary.ShortAnswers {
		verdict := "not yet"
		if sa.Result.Passed {
			verdict = "passed"
		}
		entry(fmt.Sprintf("%s: %d/%d terms, %s", sa.RubricID, sa.Result.MatchedCount, sa.Result.TotalCount, verdict), sa.Answer)
	}

	if err := pdf.Output(w); err != nil {
		return fmt.Errorf("failed to write pdf: %w", err)
	}
	return nil
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
