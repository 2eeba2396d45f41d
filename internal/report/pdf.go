// Package report renders focus statistics as a printable PDF.
package report

import (
	"fmt"
	"io"
	"time"

	"github.com/go-pdf/fpdf"

	"flowtimer/internal/model"
	"flowtimer/internal/stats"
)

// Input is everything a report shows.
type Input struct {
	Owner     string
	Dashboard stats.Dashboard
	Sessions  []model.SessionRecord
	Location  *time.Location
}

const maxSessionRows = 40

// Write renders the report for in to w.
func Write(w io.Writer, in Input) error {
	loc := in.Location
	if loc == nil {
		loc = time.UTC
	}
	d := in.Dashboard
	generated := d.GeneratedAt.In(loc)

	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetTitle("Focus report", false)
	pdf.SetAuthor(in.Owner, false)
	pdf.SetCreationDate(generated)
	pdf.AddPage()

	pdf.SetFont("Arial", "B", 16)
	pdf.Cell(0, 10, fmt.Sprintf("Focus Report: last %d days", d.RangeDays))
	pdf.Ln(8)
	pdf.SetFont("Arial", "", 10)
	owner := in.Owner
	if owner == "" {
		owner = "local user"
	}
	pdf.Cell(0, 6, fmt.Sprintf("%s, generated %s", owner, generated.Format("2006-01-02 15:04")))
	pdf.Ln(10)

	section(pdf, "Summary")
	rows := [][2]string{
		{"Total focus", formatMinutes(d.TotalFocusMinutes)},
		{"Today", fmt.Sprintf("%d pomodoros, %s of %s goal", d.TodayPomodoros, formatMinutes(d.TodayFocusMinutes), formatMinutes(d.DailyGoalMinutes))},
		{"Current streak", fmt.Sprintf("%d days", d.Streak)},
		{"Longest streak", fmt.Sprintf("%d days", d.LongestStreak)},
		{"Consistency", fmt.Sprintf("%d%%", d.Consistency)},
		{"Average pomodoro", formatMinutes(d.AverageLengthMinutes)},
		{"Focus ratio", fmt.Sprintf("%d%%", d.FocusRatio)},
		{"Level", fmt.Sprintf("%d (%d/%d min)", d.Level.Level, d.Level.Current, d.Level.Needed)},
	}
	for _, row := range rows {
		pdf.SetFont("Arial", "B", 11)
		pdf.CellFormat(55, 7, row[0], "", 0, "L", false, 0, "")
		pdf.SetFont("Arial", "", 11)
		pdf.CellFormat(0, 7, row[1], "", 1, "L", false, 0, "")
	}
	if len(d.Badges) > 0 {
		labels := ""
		for i, badge := range d.Badges {
			if i > 0 {
				labels += ", "
			}
			labels += badge.Label
		}
		pdf.SetFont("Arial", "", 11)
		pdf.MultiCell(0, 7, "Badges: "+labels, "", "L", false)
	}
	pdf.Ln(4)

	section(pdf, "Daily focus")
	dailyChart(pdf, d.Timeline)
	pdf.Ln(4)

	section(pdf, "Recent sessions")
	sessionTable(pdf, in.Sessions, loc)

	if err := pdf.Error(); err != nil {
		return fmt.Errorf("render report: %w", err)
	}
	if err := pdf.Output(w); err != nil {
		return fmt.Errorf("write report: %w", err)
	}
	return nil
}

func section(pdf *fpdf.Fpdf, title string) {
	pdf.SetFont("Arial", "B", 13)
	pdf.Cell(0, 9, title)
	pdf.Ln(9)
}

// dailyChart draws one bar per day scaled to the busiest day.
func dailyChart(pdf *fpdf.Fpdf, timeline []model.DailyAggregate) {
	if len(timeline) == 0 {
		pdf.SetFont("Arial", "I", 10)
		pdf.Cell(0, 6, "No days in range.")
		pdf.Ln(6)
		return
	}
	peak := 0
	for _, day := range timeline {
		peak = max(peak, day.FocusSeconds)
	}

	const chartHeight = 40.0
	left, top := pdf.GetX(), pdf.GetY()
	pageWidth, _ := pdf.GetPageSize()
	_, _, right, _ := pdf.GetMargins()
	barWidth := (pageWidth - left - right) / float64(len(timeline))

	pdf.SetFillColor(220, 80, 60)
	for i, day := range timeline {
		if peak == 0 || day.FocusSeconds == 0 {
			continue
		}
		height := chartHeight * float64(day.FocusSeconds) / float64(peak)
		pdf.Rect(left+float64(i)*barWidth+0.5, top+chartHeight-height, barWidth-1, height, "F")
	}
	pdf.SetDrawColor(120, 120, 120)
	pdf.Line(left, top+chartHeight, pageWidth-right, top+chartHeight)

	pdf.SetY(top + chartHeight + 1)
	pdf.SetFont("Arial", "", 8)
	pdf.CellFormat(0, 5, fmt.Sprintf("%s to %s, peak %s", timeline[0].Day, timeline[len(timeline)-1].Day, formatMinutes(peak/60)), "", 1, "L", false, 0, "")
}

func sessionTable(pdf *fpdf.Fpdf, sessions []model.SessionRecord, loc *time.Location) {
	if len(sessions) == 0 {
		pdf.SetFont("Arial", "I", 10)
		pdf.Cell(0, 6, "No sessions recorded.")
		pdf.Ln(6)
		return
	}

	widths := []float64{40, 28, 20, 16, 0}
	headers := []string{"Started", "Mode", "Length", "Rating", "Intention"}
	pdf.SetFont("Arial", "B", 10)
	for i, header := range headers {
		pdf.CellFormat(widths[i], 7, header, "B", 0, "L", false, 0, "")
	}
	pdf.Ln(-1)

	pdf.SetFont("Arial", "", 10)
	for i, session := range sessions {
		if i == maxSessionRows {
			pdf.CellFormat(0, 6, fmt.Sprintf("... %d more", len(sessions)-maxSessionRows), "", 1, "L", false, 0, "")
			break
		}
		rating := "-"
		if session.Rating != nil {
			rating = fmt.Sprintf("%d/5", *session.Rating)
		}
		intention := ""
		if session.Intention != nil {
			intention = *session.Intention
		}
		pdf.CellFormat(widths[0], 6, session.StartedAt.In(loc).Format("2006-01-02 15:04"), "", 0, "L", false, 0, "")
		pdf.CellFormat(widths[1], 6, modeLabel(session.Mode), "", 0, "L", false, 0, "")
		pdf.CellFormat(widths[2], 6, formatMinutes(session.DurationSeconds/60), "", 0, "L", false, 0, "")
		pdf.CellFormat(widths[3], 6, rating, "", 0, "L", false, 0, "")
		pdf.CellFormat(widths[4], 6, truncate(intention, 48), "", 1, "L", false, 0, "")
	}
}

func modeLabel(mode model.Mode) string {
	switch mode {
	case model.ModePomodoro:
		return "Pomodoro"
	case model.ModeShortBreak:
		return "Short break"
	case model.ModeLongBreak:
		return "Long break"
	default:
		return string(mode)
	}
}

func formatMinutes(minutes int) string {
	if minutes < 60 {
		return fmt.Sprintf("%dm", minutes)
	}
	return fmt.Sprintf("%dh %02dm", minutes/60, minutes%60)
}

func truncate(s string, limit int) string {
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit-3]) + "..."
}
