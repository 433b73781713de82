package renderer

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/phpdave11/gofpdf"
	"github.com/prohmpiriya/rail-booking/internal/domain"
)

// Config holds configuration for the ticket renderer
type Config struct {
	// OutputDir receives one PDF per confirmation
	OutputDir string
}

// TicketRenderer turns confirmed bookings into PDF tickets
type TicketRenderer struct {
	outputDir string
}

// NewTicketRenderer creates a new ticket renderer
func NewTicketRenderer(cfg *Config) *TicketRenderer {
	dir := "tickets"
	if cfg != nil && cfg.OutputDir != "" {
		dir = cfg.OutputDir
	}
	return &TicketRenderer{outputDir: dir}
}

// FileName is the ticket file name for a confirmation
func FileName(c *domain.Confirmation) string {
	return fmt.Sprintf("ticket-%s.pdf", c.PNR)
}

// RenderToFile renders the ticket and writes it under the output directory.
// Rendering the same PNR twice overwrites the file.
func (r *TicketRenderer) RenderToFile(c *domain.Confirmation) (string, error) {
	data, err := r.Render(c)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(r.outputDir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create output dir: %w", err)
	}

	path := filepath.Join(r.outputDir, FileName(c))
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return "", fmt.Errorf("failed to write ticket: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return "", fmt.Errorf("failed to move ticket into place: %w", err)
	}
	return path, nil
}

// Render builds the PDF ticket in memory
func (r *TicketRenderer) Render(c *domain.Confirmation) ([]byte, error) {
	if c == nil || c.PNR == "" {
		return nil, fmt.Errorf("confirmation with a PNR is required")
	}

	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetTitle("E-Ticket "+c.PNR, false)
	pdf.AddPage()

	pdf.SetFont("Helvetica", "B", 18)
	pdf.Cell(0, 10, "RAIL E-TICKET")
	pdf.Ln(12)

	pdf.SetFont("Helvetica", "", 12)
	lines := []string{
		"PNR          : " + c.PNR,
		"Booking ID   : " + c.BookingID,
		"Payment ID   : " + c.PaymentID,
		fmt.Sprintf("Train        : %s %s", c.Train.TrainNumber, c.Train.Name),
		fmt.Sprintf("Route        : %s -> %s", c.Train.Source, c.Train.Destination),
		fmt.Sprintf("Departure    : %s %s  Arrival: %s", safe(c.JourneyDate, "-"), c.Train.DepartureTime, c.Train.ArrivalTime),
		"Class        : " + c.SelectedClass,
	}
	for _, s := range lines {
		pdf.Cell(0, 7, s)
		pdf.Ln(7)
	}
	pdf.Ln(4)

	pdf.SetFont("Helvetica", "B", 11)
	widths := []float64{10, 60, 15, 20, 25, 25, 25}
	headers := []string{"#", "Name", "Age", "Gender", "Category", "Seat", "Berth"}
	for i, h := range headers {
		pdf.CellFormat(widths[i], 8, h, "1", 0, "C", false, 0, "")
	}
	pdf.Ln(-1)

	pdf.SetFont("Helvetica", "", 11)
	for i, p := range c.Passengers {
		seat := "-"
		if p.SeatNumber != nil {
			seat = strconv.Itoa(*p.SeatNumber)
		}
		row := []string{
			strconv.Itoa(i + 1),
			p.Name,
			p.Age,
			titleCase(string(p.Gender)),
			titleCase(string(p.AgeCategory)),
			seat,
			safe(string(p.Berth), "-"),
		}
		for j, v := range row {
			align := "C"
			if j == 1 {
				align = "L"
			}
			pdf.CellFormat(widths[j], 7, v, "1", 0, align, false, 0, "")
		}
		pdf.Ln(-1)
	}
	pdf.Ln(6)

	pdf.SetFont("Helvetica", "", 12)
	fare := []struct {
		label  string
		amount int64
	}{
		{"Base fare", c.Fare.TotalBaseFare},
		{"After discounts", c.Fare.DiscountedFare},
		{"GST (5%)", c.Fare.GSTAmount},
	}
	for _, f := range fare {
		pdf.CellFormat(60, 7, f.label, "", 0, "L", false, 0, "")
		pdf.CellFormat(40, 7, FormatRupees(f.amount), "", 1, "R", false, 0, "")
	}
	pdf.SetFont("Helvetica", "B", 12)
	pdf.CellFormat(60, 8, "Total paid", "T", 0, "L", false, 0, "")
	pdf.CellFormat(40, 8, FormatRupees(c.Amount), "T", 1, "R", false, 0, "")
	pdf.Ln(8)

	pdf.SetFont("Helvetica", "I", 10)
	pdf.MultiCell(0, 6, fmt.Sprintf("Paid by %s on %s UTC. Carry a valid photo ID while travelling.",
		strings.ToUpper(string(c.Method)), c.ConfirmedAt.Format("2006-01-02 15:04")), "", "", false)

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("failed to render ticket: %w", err)
	}
	return buf.Bytes(), nil
}

// FormatRupees formats whole rupees with thousands separators
func FormatRupees(amount int64) string {
	sign := ""
	if amount < 0 {
		sign = "-"
		amount = -amount
	}
	s := strconv.FormatInt(amount, 10)
	var b strings.Builder
	for i, ch := range s {
		if i > 0 && (len(s)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(ch)
	}
	return "Rs. " + sign + b.String()
}

func safe(s, def string) string {
	if strings.TrimSpace(s) == "" {
		return def
	}
	return s
}

func titleCase(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
