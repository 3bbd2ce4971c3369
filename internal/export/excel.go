// Package export builds the downloadable Excel collection report: a summary
// sheet, a sponsorship sheet and one sheet per tower.
package export

import (
	"context"
	"fmt"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/iliyamo/donation-tracker/internal/model"
	"github.com/iliyamo/donation-tracker/internal/repository"
)

// Exporter assembles the report from the reporting queries.
type Exporter struct {
	Donations    *repository.DonationRepo
	Sponsorships *repository.SponsorshipRepo
}

func NewExporter(donations *repository.DonationRepo, sponsorships *repository.SponsorshipRepo) *Exporter {
	if donations == nil || sponsorships == nil {
		panic("nil repository passed to NewExporter")
	}
	return &Exporter{Donations: donations, Sponsorships: sponsorships}
}

// Build produces the workbook. The caller owns the returned file and should
// stream it to the client with WriteTo.
func (e *Exporter) Build(ctx context.Context) (*excelize.File, error) {
	f := excelize.NewFile()

	styles, err := newStyleSet(f)
	if err != nil {
		return nil, err
	}

	if err := e.summarySheet(ctx, f, styles); err != nil {
		return nil, err
	}
	if err := e.sponsorshipSheet(ctx, f, styles); err != nil {
		return nil, err
	}
	for t := 1; t <= model.TowerCount; t++ {
		if err := e.towerSheet(ctx, f, styles, t); err != nil {
			return nil, err
		}
	}

	// The default sheet was renamed into the summary; show it first.
	idx, err := f.GetSheetIndex("Summary")
	if err != nil {
		return nil, err
	}
	f.SetActiveSheet(idx)
	return f, nil
}

type styleSet struct {
	title  int
	header int
	cell   int
	money  int
}

func newStyleSet(f *excelize.File) (styleSet, error) {
	var s styleSet
	var err error

	s.title, err = f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true, Size: 14},
	})
	if err != nil {
		return s, err
	}
	thin := []excelize.Border{
		{Type: "left", Style: 1, Color: "000000"},
		{Type: "right", Style: 1, Color: "000000"},
		{Type: "top", Style: 1, Color: "000000"},
		{Type: "bottom", Style: 1, Color: "000000"},
	}
	s.header, err = f.NewStyle(&excelize.Style{
		Font:   &excelize.Font{Bold: true, Color: "FFFFFF"},
		Fill:   excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{"4472C4"}},
		Border: thin,
		Alignment: &excelize.Alignment{
			Horizontal: "center", Vertical: "center",
		},
	})
	if err != nil {
		return s, err
	}
	s.cell, err = f.NewStyle(&excelize.Style{Border: thin})
	if err != nil {
		return s, err
	}
	s.money, err = f.NewStyle(&excelize.Style{
		Border: thin,
		NumFmt: 3, // #,##0
	})
	return s, err
}

func (e *Exporter) summarySheet(ctx context.Context, f *excelize.File, st styleSet) error {
	const sheet = "Summary"
	if err := f.SetSheetName("Sheet1", sheet); err != nil {
		return err
	}

	stats, err := e.Donations.GetStats(ctx)
	if err != nil {
		return err
	}

	f.SetCellValue(sheet, "A1", "Donation Collection Report")
	f.SetCellStyle(sheet, "A1", "A1", st.title)
	f.SetCellValue(sheet, "A2", "Generated")
	f.SetCellValue(sheet, "B2", time.Now().UTC().Format("2006-01-02 15:04 MST"))

	meta := [][2]any{
		{"Total donations", stats.TotalDonations},
		{"Total collected", stats.TotalAmount},
		{"Completed", stats.CompletedCount},
		{"Follow-ups", stats.FollowUpCount},
		{"Skipped", stats.SkippedCount},
		{"Towers covered", stats.TowersCovered},
	}
	row := 4
	for _, kv := range meta {
		f.SetCellValue(sheet, fmt.Sprintf("A%d", row), kv[0])
		f.SetCellValue(sheet, fmt.Sprintf("B%d", row), kv[1])
		row++
	}

	row += 1
	headers := []string{"Tower", "Collected", "Completed", "Follow-ups", "Skipped", "Visited", "Total Units", "Completion %"}
	if err := writeHeaderRow(f, sheet, row, headers, st); err != nil {
		return err
	}
	row++

	const unitsPerTower = model.FloorsPerTower * model.UnitsPerFloor
	for t := 1; t <= model.TowerCount; t++ {
		ts, err := e.Donations.GetTowerStats(ctx, t)
		if err != nil {
			return err
		}
		pct := float64(ts.Visited()) * 100 / unitsPerTower
		values := []any{
			model.TowerLabel(t), ts.TotalAmount, ts.Completed, ts.FollowUps,
			ts.Skipped, ts.Visited(), unitsPerTower, fmt.Sprintf("%.1f%%", pct),
		}
		if err := writeDataRow(f, sheet, row, values, st); err != nil {
			return err
		}
		row++
	}

	for col, width := range map[string]float64{"A": 22, "B": 14, "C": 12, "D": 12, "E": 10, "F": 10, "G": 12, "H": 14} {
		if err := f.SetColWidth(sheet, col, col, width); err != nil {
			return err
		}
	}
	return nil
}

func (e *Exporter) sponsorshipSheet(ctx context.Context, f *excelize.File, st styleSet) error {
	const sheet = "Sponsorship Summary"
	if _, err := f.NewSheet(sheet); err != nil {
		return err
	}

	slots, err := e.Sponsorships.List(ctx)
	if err != nil {
		return err
	}

	var booked, closed int
	var committedAmount int64
	for _, s := range slots {
		booked += s.Booked
		if s.IsClosed {
			closed++
		}
		committedAmount += s.Amount * int64(s.Booked)
	}

	f.SetCellValue(sheet, "A1", "Sponsorships")
	f.SetCellStyle(sheet, "A1", "A1", st.title)
	meta := [][2]any{
		{"Slots offered", len(slots)},
		{"Bookings", booked},
		{"Fully booked", closed},
		{"Amount committed", committedAmount},
	}
	row := 3
	for _, kv := range meta {
		f.SetCellValue(sheet, fmt.Sprintf("A%d", row), kv[0])
		f.SetCellValue(sheet, fmt.Sprintf("B%d", row), kv[1])
		row++
	}

	row++
	headers := []string{"Name", "Amount", "Max", "Booked", "Available", "Status"}
	if err := writeHeaderRow(f, sheet, row, headers, st); err != nil {
		return err
	}
	tableTop := row
	row++
	for _, s := range slots {
		status := "open"
		if s.IsClosed {
			status = "closed"
		}
		values := []any{s.Name, s.Amount, s.MaxCount, s.Booked, s.Available(), status}
		if err := writeDataRow(f, sheet, row, values, st); err != nil {
			return err
		}
		row++
	}
	if len(slots) > 0 {
		ref := fmt.Sprintf("A%d:F%d", tableTop, row-1)
		if err := f.AutoFilter(sheet, ref, nil); err != nil {
			return err
		}
	}

	donations, err := e.Donations.WithSponsorship(ctx)
	if err != nil {
		return err
	}
	row += 2
	f.SetCellValue(sheet, fmt.Sprintf("A%d", row), "Sponsored donations")
	f.SetCellStyle(sheet, fmt.Sprintf("A%d", row), fmt.Sprintf("A%d", row), st.title)
	row++
	headers = []string{"Date", "Apartment", "Donor", "Sponsorship", "Amount", "Payment"}
	if err := writeHeaderRow(f, sheet, row, headers, st); err != nil {
		return err
	}
	row++
	for _, d := range donations {
		values := []any{
			d.CreatedAt.Format("2006-01-02"),
			model.ApartmentLabel(d.Tower, d.Floor, d.Unit),
			donorDisplayName(d),
			strDeref(d.Sponsorship),
			d.Amount,
			strDeref(d.PaymentMethod),
		}
		if err := writeDataRow(f, sheet, row, values, st); err != nil {
			return err
		}
		row++
	}

	for col, width := range map[string]float64{"A": 24, "B": 13, "C": 22, "D": 24, "E": 12, "F": 12} {
		if err := f.SetColWidth(sheet, col, col, width); err != nil {
			return err
		}
	}
	return nil
}

func (e *Exporter) towerSheet(ctx context.Context, f *excelize.File, st styleSet, tower int) error {
	sheet := "Tower " + model.TowerLabel(tower)
	if _, err := f.NewSheet(sheet); err != nil {
		return err
	}

	donations, err := e.Donations.ByTower(ctx, tower)
	if err != nil {
		return err
	}

	headers := []string{"Apartment", "Floor", "Unit", "Donor", "Amount", "Status", "Payment", "Volunteer", "Notes", "Date"}
	if err := writeHeaderRow(f, sheet, 1, headers, st); err != nil {
		return err
	}
	row := 2
	for _, d := range donations {
		values := []any{
			model.ApartmentLabel(d.Tower, d.Floor, d.Unit),
			d.Floor,
			d.Unit,
			donorDisplayName(d),
			d.Amount,
			d.Status,
			strDeref(d.PaymentMethod),
			strDeref(d.VolunteerName),
			strDeref(d.Notes),
			d.CreatedAt.Format("2006-01-02"),
		}
		if err := writeDataRow(f, sheet, row, values, st); err != nil {
			return err
		}
		row++
	}

	for col, width := range map[string]float64{"A": 11, "B": 7, "C": 7, "D": 22, "E": 10, "F": 11, "G": 11, "H": 18, "I": 28, "J": 12} {
		if err := f.SetColWidth(sheet, col, col, width); err != nil {
			return err
		}
	}
	return nil
}

func writeHeaderRow(f *excelize.File, sheet string, row int, headers []string, st styleSet) error {
	for i, h := range headers {
		cell, err := excelize.CoordinatesToCellName(i+1, row)
		if err != nil {
			return err
		}
		if err := f.SetCellValue(sheet, cell, h); err != nil {
			return err
		}
	}
	first, _ := excelize.CoordinatesToCellName(1, row)
	last, _ := excelize.CoordinatesToCellName(len(headers), row)
	return f.SetCellStyle(sheet, first, last, st.header)
}

func writeDataRow(f *excelize.File, sheet string, row int, values []any, st styleSet) error {
	for i, v := range values {
		cell, err := excelize.CoordinatesToCellName(i+1, row)
		if err != nil {
			return err
		}
		if err := f.SetCellValue(sheet, cell, v); err != nil {
			return err
		}
		style := st.cell
		if _, ok := v.(int64); ok {
			style = st.money
		}
		if err := f.SetCellStyle(sheet, cell, cell, style); err != nil {
			return err
		}
	}
	return nil
}

func donorDisplayName(d model.Donation) string {
	if d.IsAnonymous {
		return "Anonymous"
	}
	return d.DonorName
}

func strDeref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
