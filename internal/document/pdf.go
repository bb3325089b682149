/**
 * @description
 * This package renders a stored receipt as a printable PDF document. Rendering
 * is a pure projection of the record: it touches no store and no clock (the
 * PDF creation date is pinned), so the same receipt always produces the same
 * bytes.
 *
 * Each lifecycle status maps to a visual style (header colour plus a rotated
 * watermark); unknown or future statuses fall back to a neutral default so
 * document generation never fails for a stored record.
 *
 * @dependencies
 * - bytes, fmt, time: Standard Go libraries.
 * - github.com/jung-kurt/gofpdf: PDF generation.
 */

package document

import (
	"bytes"
	"fmt"
	"strings"
	"time"

	"github.com/jung-kurt/gofpdf"
	"github.com/swiftloan/collection-service/internal/domain"
)

type rgb struct{ r, g, b int }

type style struct {
	header    rgb
	watermark string
	wmColor   rgb
}

var (
	blue   = rgb{33, 150, 243}
	red    = rgb{244, 67, 54}
	orange = rgb{255, 152, 0}
	green  = rgb{76, 175, 80}
	gray   = rgb{128, 128, 128}
)

var statusStyles = map[string]style{
	domain.StatusSuccess:      {header: blue, watermark: "PAID", wmColor: green},
	domain.StatusCancelled:    {header: red, watermark: "FAILED", wmColor: red},
	domain.StatusError:        {header: red, watermark: "FAILED", wmColor: red},
	domain.StatusSTKFailed:    {header: red, watermark: "FAILED", wmColor: red},
	domain.StatusPending:      {header: orange, watermark: "PENDING", wmColor: gray},
	domain.StatusProcessing:   {header: blue, watermark: "PROCESSING - FUNDS RESERVED", wmColor: blue},
	domain.StatusLoanReleased: {header: green, watermark: "RELEASED", wmColor: green},
}

var defaultStyle = style{header: blue}

// Render produces the printable PDF for a receipt.
func Render(receipt domain.Receipt) ([]byte, error) {
	st, ok := statusStyles[receipt.Status]
	if !ok {
		st = defaultStyle
	}

	pdf := gofpdf.New("P", "mm", "A4", "")
	// Pin the metadata clock so identical records render identical bytes.
	pdf.SetCreationDate(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC))
	pdf.AddPage()

	// Header band
	pageWidth, _ := pdf.GetPageSize()
	pdf.SetFillColor(st.header.r, st.header.g, st.header.b)
	pdf.Rect(0, 0, pageWidth, 30, "F")
	pdf.SetTextColor(255, 255, 255)
	pdf.SetFont("Helvetica", "B", 20)
	pdf.SetXY(12, 8)
	pdf.CellFormat(0, 10, "SWIFTLOAN KENYA LOAN RECEIPT", "", 1, "L", false, 0, "")
	pdf.SetFont("Helvetica", "", 11)
	pdf.SetXY(12, 19)
	pdf.CellFormat(0, 6, "Loan & Payment Receipt", "", 1, "L", false, 0, "")

	// Details
	pdf.SetTextColor(0, 0, 0)
	pdf.SetFont("Helvetica", "BU", 13)
	pdf.SetXY(12, 42)
	pdf.CellFormat(0, 8, "Receipt Details", "", 1, "L", false, 0, "")
	pdf.Ln(2)

	details := [][2]string{
		{"Reference", naIfEmpty(receipt.Reference)},
		{"Transaction ID", valueOrNA(receipt.TransactionID)},
		{"Transaction Code", valueOrNA(receipt.TransactionCode)},
		{"Fee Amount", fmt.Sprintf("KSH %d", receipt.FeeAmount)},
		{"Loan Amount", "KSH " + naIfEmpty(receipt.LoanAmount)},
		{"Phone", naIfEmpty(receipt.Phone)},
		{"Customer Name", naIfEmpty(receipt.CustomerName)},
		{"Status", strings.ToUpper(naIfEmpty(receipt.Status))},
		{"Time", receipt.Timestamp.UTC().Format("02 Jan 2006 15:04:05 UTC")},
	}
	for _, row := range details {
		pdf.SetX(12)
		pdf.SetFont("Helvetica", "B", 11)
		pdf.CellFormat(45, 7, row[0]+":", "", 0, "L", false, 0, "")
		pdf.SetFont("Helvetica", "", 11)
		pdf.CellFormat(0, 7, row[1], "", 1, "L", false, 0, "")
	}

	if receipt.StatusNote != "" {
		pdf.Ln(4)
		pdf.SetX(12)
		pdf.SetTextColor(85, 85, 85)
		pdf.SetFont("Helvetica", "BU", 11)
		pdf.CellFormat(0, 7, "Note:", "", 1, "L", false, 0, "")
		pdf.SetX(12)
		pdf.SetFont("Helvetica", "", 10)
		pdf.MultiCell(pageWidth-24, 5, receipt.StatusNote, "", "L", false)
	}

	if st.watermark != "" {
		pdf.SetFont("Helvetica", "B", 48)
		pdf.SetTextColor(st.wmColor.r, st.wmColor.g, st.wmColor.b)
		pdf.SetAlpha(0.2, "Normal")
		pdf.TransformBegin()
		pdf.TransformRotate(30, pageWidth/2, 160)
		pdf.SetXY(0, 150)
		pdf.CellFormat(pageWidth, 20, st.watermark, "", 0, "C", false, 0, "")
		pdf.TransformEnd()
		pdf.SetAlpha(1, "Normal")
	}

	// Footer
	pdf.SetY(282)
	pdf.SetTextColor(gray.r, gray.g, gray.b)
	pdf.SetFont("Helvetica", "", 9)
	pdf.CellFormat(0, 5, "SwiftLoan Kenya (c) 2024", "", 0, "C", false, 0, "")

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("render receipt %s: %w", receipt.Reference, err)
	}
	return buf.Bytes(), nil
}

func valueOrNA(value *string) string {
	if value == nil || *value == "" {
		return "N/A"
	}
	return *value
}

func naIfEmpty(value string) string {
	if value == "" {
		return "N/A"
	}
	return value
}
