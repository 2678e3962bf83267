package payments

import (
	"bytes"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/phpdave11/gofpdf"
	"github.com/shopspring/decimal"

	"github.com/freightdesk/freightdesk-backend/pkg/db/models"
	"github.com/freightdesk/freightdesk-backend/pkg/ledger"
)

// StatementHeader identifies the trip on a printed statement.
type StatementHeader struct {
	TripID        uuid.UUID
	TripShortID   string
	IndentShortID string
	Route         string
	VehicleNumber string
	DriverPhone   string
}

type statementLine struct {
	label  string
	amount decimal.Decimal
}

// renderStatement prints the ledger as a one page A4 PDF.
func renderStatement(h StatementHeader, p *models.TripPayment, mode ledger.HaltingMode, printedAt time.Time) ([]byte, error) {
	summary := ledger.Summarize(p.Ledger(), mode)

	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetTitle("Trip Payment Statement", false)
	pdf.AddPage()
	pdf.SetFont("Helvetica", "B", 18)
	pdf.Cell(0, 10, "TRIP PAYMENT STATEMENT")
	pdf.Ln(12)

	pdf.SetFont("Helvetica", "", 11)
	header := []string{
		"Trip      : " + orDash(h.TripShortID, h.TripID.String()),
		"Indent    : " + orDash(h.IndentShortID, ""),
		"Route     : " + orDash(h.Route, ""),
		"Vehicle   : " + orDash(h.VehicleNumber, ""),
		"Driver    : " + orDash(h.DriverPhone, ""),
		"Status    : " + p.PaymentStatus.String(),
		"Printed   : " + printedAt.UTC().Format("2006-01-02 15:04 MST"),
	}
	for _, line := range header {
		pdf.Cell(0, 7, line)
		pdf.Ln(7)
	}
	pdf.Ln(4)

	pdf.SetFont("Helvetica", "B", 12)
	pdf.Cell(0, 7, "Ledger")
	pdf.Ln(8)

	pdf.SetFont("Helvetica", "", 11)
	lines := []statementLine{
		{"Trip cost", p.TripCost},
		{"Client cost", p.ClientCost},
		{"Advance payment", p.AdvancePayment},
		{"Final payment", p.FinalPayment},
		{"Toll charges", p.TollCharges},
		{fmt.Sprintf("Halting charges (%s)", mode), p.HaltingCharges},
		{"Traffic fines", p.TrafficFines},
		{"Handling charges", p.HandlingCharges},
		{"Platform fees", p.PlatformFees},
		{"Platform fines", p.PlatformFines},
	}
	for _, line := range lines {
		pdf.CellFormat(100, 7, line.label, "", 0, "L", false, 0, "")
		pdf.CellFormat(0, 7, pdfAmount(line.amount), "", 1, "R", false, 0, "")
	}
	pdf.Ln(4)

	pdf.SetFont("Helvetica", "B", 12)
	totals := []statementLine{
		{"Cleared", summary.Cleared},
		{"Balance", summary.Balance},
		{"Gross profit", summary.GrossProfit},
		{"Net earnings", summary.NetEarnings},
	}
	for _, line := range totals {
		pdf.CellFormat(100, 8, line.label, "", 0, "L", false, 0, "")
		pdf.CellFormat(0, 8, pdfAmount(line.amount), "", 1, "R", false, 0, "")
	}

	if p.Notes != nil && *p.Notes != "" {
		pdf.Ln(6)
		pdf.SetFont("Helvetica", "I", 10)
		pdf.MultiCell(0, 6, "Notes: "+*p.Notes, "", "", false)
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// pdfAmount swaps the rupee sign for "Rs. " since the core PDF fonts lack the glyph.
func pdfAmount(amount decimal.Decimal) string {
	return strings.Replace(ledger.FormatINR(amount), "₹", "Rs. ", 1)
}

func orDash(value, fallback string) string {
	if strings.TrimSpace(value) != "" {
		return value
	}
	if fallback != "" {
		return fallback
	}
	return "-"
}
