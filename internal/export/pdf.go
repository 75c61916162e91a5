// Package export writes cutting plans to CSV, Excel and PDF files.
package export

import (
	"fmt"
	"math"

	"github.com/go-pdf/fpdf"

	"github.com/piwi3910/CutFrame/internal/model"
)

// pieceColor represents an RGB color for a cut piece.
type pieceColor struct {
	R, G, B int
}

var pieceColors = []pieceColor{
	{R: 76, G: 175, B: 80},  // green
	{R: 33, G: 150, B: 243}, // blue
	{R: 255, G: 152, B: 0},  // orange
	{R: 156, G: 39, B: 176}, // purple
	{R: 0, G: 188, B: 212},  // cyan
	{R: 255, G: 235, B: 59}, // yellow
	{R: 121, G: 85, B: 72},  // brown
}

// Page layout constants (A4 landscape in mm).
const (
	pageWidth    = 297.0
	pageHeight   = 210.0
	marginLeft   = 15.0
	marginRight  = 15.0
	marginTop    = 15.0
	marginBottom = 15.0
	headerHeight = 12.0
	drawAreaTop  = marginTop + headerHeight + 5.0

	barLabelWidth = 18.0 // Left column holding the cutting id
	barInfoWidth  = 42.0 // Right column holding offcut and efficiency
	barHeight     = 7.0
	barSpacing    = 4.0
)

// ExportPDF generates the cutting report: bar diagrams grouped by material,
// followed by a summary page.
func ExportPDF(path string, result model.AllocationResult, summary model.Summary, settings model.CutSettings) error {
	if len(result.Bars) == 0 {
		return fmt.Errorf("no bars to export")
	}

	pdf := fpdf.New("L", "mm", "A4", "")
	pdf.SetAutoPageBreak(false, marginBottom)

	for _, material := range result.Materials() {
		renderMaterialPages(pdf, material, result.BarsFor(material), result.PlanID)
	}

	pdf.AddPage()
	renderSummaryPage(pdf, result, summary, settings)

	return pdf.OutputFileAndClose(path)
}

// barsPerPage is how many bar rows fit below the page header.
func barsPerPage() int {
	avail := pageHeight - drawAreaTop - marginBottom
	return int(avail / (barHeight + barSpacing))
}

// renderMaterialPages draws the bars of one material, starting a new page
// whenever the current one is full.
func renderMaterialPages(pdf *fpdf.Fpdf, material string, bars []model.Bar, planID string) {
	perPage := barsPerPage()
	pages := (len(bars) + perPage - 1) / perPage

	for page := 0; page < pages; page++ {
		pdf.AddPage()

		pdf.SetFont("Helvetica", "B", 14)
		pdf.SetTextColor(0, 0, 0)
		pdf.SetXY(marginLeft, marginTop)
		title := fmt.Sprintf("%s (stock %.0f mm)", material, bars[0].StockLength)
		if pages > 1 {
			title += fmt.Sprintf(" - page %d/%d", page+1, pages)
		}
		pdf.CellFormat(pageWidth-marginLeft-marginRight, headerHeight, title, "", 0, "L", false, 0, "")

		pdf.SetFont("Helvetica", "", 8)
		pdf.SetTextColor(100, 100, 100)
		pdf.SetXY(marginLeft, marginTop+headerHeight-2)
		pdf.CellFormat(pageWidth-marginLeft-marginRight, 4, "Plan "+planID, "", 0, "L", false, 0, "")
		pdf.SetTextColor(0, 0, 0)

		start := page * perPage
		end := start + perPage
		if end > len(bars) {
			end = len(bars)
		}
		y := drawAreaTop
		for _, bar := range bars[start:end] {
			renderBar(pdf, bar, y)
			y += barHeight + barSpacing
		}
	}
}

// renderBar draws one stock bar as a horizontal strip: pieces in cutting
// order, a kerf gap after each, the offcut and the end trim at the far end.
func renderBar(pdf *fpdf.Fpdf, bar model.Bar, y float64) {
	drawWidth := pageWidth - marginLeft - marginRight - barLabelWidth - barInfoWidth
	length := math.Max(bar.StockLength, bar.Consumed())
	if length <= 0 {
		return
	}
	scale := drawWidth / length
	x0 := marginLeft + barLabelWidth

	// Cutting id
	pdf.SetFont("Helvetica", "B", 9)
	pdf.SetXY(marginLeft, y)
	pdf.CellFormat(barLabelWidth, barHeight, fmt.Sprintf("#%d", bar.CuttingID), "", 0, "L", false, 0, "")

	// Stock background
	pdf.SetFillColor(220, 220, 220)
	pdf.SetDrawColor(100, 100, 100)
	pdf.SetLineWidth(0.3)
	pdf.Rect(x0, y, bar.StockLength*scale, barHeight, "FD")

	x := x0
	for i, l := range bar.Lengths {
		col := pieceColors[i%len(pieceColors)]
		w := l * scale
		pdf.SetFillColor(col.R, col.G, col.B)
		pdf.SetDrawColor(30, 30, 30)
		pdf.Rect(x, y, w, barHeight, "FD")

		text := fmt.Sprintf("%d: %g", i+1, l)
		pdf.SetFont("Helvetica", "", 6)
		if tw := pdf.GetStringWidth(text); tw < w-1 {
			pdf.SetXY(x+(w-tw)/2, y+(barHeight-3)/2)
			pdf.CellFormat(tw, 3, text, "", 0, "C", false, 0, "")
		}
		x += w + bar.KerfWidth*scale
	}

	// End trim
	if bar.EndTrim > 0 {
		tw := bar.EndTrim * scale
		tx := x0 + bar.StockLength*scale - tw
		pdf.SetFillColor(255, 200, 200)
		pdf.SetDrawColor(200, 0, 0)
		pdf.Rect(tx, y, tw, barHeight, "FD")
	}

	// Overrun past the stock end
	if bar.Oversize {
		pdf.SetDrawColor(200, 0, 0)
		pdf.SetLineWidth(0.6)
		end := x0 + bar.StockLength*scale
		pdf.Line(end, y-1, end, y+barHeight+1)
		pdf.SetLineWidth(0.3)
	}

	info := fmt.Sprintf("offcut %.1f | %.1f%%", bar.Offcut(), bar.Efficiency())
	if bar.Oversize {
		info = fmt.Sprintf("OVERSIZE %.1f", -bar.Offcut())
		pdf.SetTextColor(200, 0, 0)
	}
	pdf.SetFont("Helvetica", "", 7)
	pdf.SetXY(pageWidth-marginRight-barInfoWidth+2, y)
	pdf.CellFormat(barInfoWidth-2, barHeight, info, "", 0, "L", false, 0, "")
	pdf.SetTextColor(0, 0, 0)
}

// renderSummaryPage draws the final summary page with overall statistics.
func renderSummaryPage(pdf *fpdf.Fpdf, result model.AllocationResult, summary model.Summary, settings model.CutSettings) {
	// Title
	pdf.SetFont("Helvetica", "B", 16)
	pdf.SetXY(marginLeft, marginTop)
	pdf.CellFormat(pageWidth-marginLeft-marginRight, 10, "Cutting Plan Summary", "", 0, "L", false, 0, "")

	// Separator line
	pdf.SetDrawColor(0, 0, 0)
	pdf.SetLineWidth(0.5)
	pdf.Line(marginLeft, marginTop+12, pageWidth-marginRight, marginTop+12)

	y := marginTop + 18

	pdf.SetFont("Helvetica", "B", 12)
	pdf.SetXY(marginLeft, y)
	pdf.CellFormat(100, 7, "Overall Statistics", "", 0, "L", false, 0, "")
	y += 9

	offcuts := model.DetectOffcuts(result, settings.MinOffcut)
	summaryItems := []struct {
		label string
		value string
	}{
		{"Plan", result.PlanID},
		{"Total Pieces", fmt.Sprintf("%d", summary.TotalPieces)},
		{"Assigned / Unassigned", fmt.Sprintf("%d / %d", summary.AssignedPieces, summary.UnassignedPieces)},
		{"Bars Used", fmt.Sprintf("%d", summary.TotalCuts)},
		{"Material Usage", fmt.Sprintf("%.2f%%", summary.MaterialUsage)},
		{"Total Piece Length", fmt.Sprintf("%.2f mm", summary.TotalLength)},
		{"Usable Offcuts", fmt.Sprintf("%d (%.2f mm, min %g mm)", len(offcuts), model.TotalOffcutLength(offcuts), settings.MinOffcut)},
		{"Short Remnants", fmt.Sprintf("%.2f mm", model.Waste(result, settings.MinOffcut))},
		{"No-Fit Pieces", fmt.Sprintf("%d", summary.NoFit)},
	}

	pdf.SetFont("Helvetica", "", 10)
	for _, item := range summaryItems {
		pdf.SetXY(marginLeft+5, y)
		pdf.CellFormat(60, 6, item.label+":", "", 0, "L", false, 0, "")
		pdf.SetFont("Helvetica", "B", 10)
		pdf.CellFormat(60, 6, item.value, "", 0, "L", false, 0, "")
		pdf.SetFont("Helvetica", "", 10)
		y += 7
	}

	y += 5

	// Per-material breakdown table
	pdf.SetFont("Helvetica", "B", 12)
	pdf.SetXY(marginLeft, y)
	pdf.CellFormat(100, 7, "Material Breakdown", "", 0, "L", false, 0, "")
	y += 9

	colWidths := []float64{70, 25, 25, 45, 45, 30, 25}
	headers := []string{"Material", "Bars", "Pieces", "Piece Length", "Stock Length", "Usage", "Oversize"}

	pdf.SetFont("Helvetica", "B", 9)
	pdf.SetFillColor(230, 230, 230)
	xPos := marginLeft
	for i, header := range headers {
		pdf.SetXY(xPos, y)
		pdf.CellFormat(colWidths[i], 6, header, "1", 0, "C", true, 0, "")
		xPos += colWidths[i]
	}
	y += 6

	pdf.SetFont("Helvetica", "", 9)
	for i, m := range summary.Materials {
		if y > pageHeight-marginBottom-20 {
			pdf.AddPage()
			y = marginTop
		}
		xPos = marginLeft
		rowData := []string{
			m.Material,
			fmt.Sprintf("%d", m.Bars),
			fmt.Sprintf("%d", m.Pieces),
			fmt.Sprintf("%.2f mm", m.PieceLength),
			fmt.Sprintf("%.2f mm", m.StockLength),
			fmt.Sprintf("%.2f%%", m.Usage),
			fmt.Sprintf("%d", m.Oversize),
		}

		// Alternate row background
		if i%2 == 0 {
			pdf.SetFillColor(245, 245, 245)
		} else {
			pdf.SetFillColor(255, 255, 255)
		}

		for j, cell := range rowData {
			pdf.SetXY(xPos, y)
			pdf.CellFormat(colWidths[j], 6, cell, "1", 0, "C", true, 0, "")
			xPos += colWidths[j]
		}
		y += 6
	}

	if len(result.Unassigned) > 0 {
		y += 8
		pdf.SetFont("Helvetica", "B", 11)
		pdf.SetTextColor(200, 0, 0)
		pdf.SetXY(marginLeft, y)
		pdf.CellFormat(200, 7, "WARNING: Unassigned Pieces", "", 0, "L", false, 0, "")
		y += 8

		pdf.SetFont("Helvetica", "", 9)
		pdf.SetTextColor(0, 0, 0)
		for _, p := range result.Unassigned {
			if y > pageHeight-marginBottom-10 {
				pdf.AddPage()
				y = marginTop
			}
			pdf.SetXY(marginLeft+5, y)
			text := fmt.Sprintf("- row %d: %s %g mm (order %s, bin %s)", p.Position+1, p.Material, p.Length, p.OrderNo, p.BinNo)
			pdf.CellFormat(250, 5, text, "", 0, "L", false, 0, "")
			y += 5
		}
	}

	if y > pageHeight-marginBottom-40 {
		pdf.AddPage()
		y = marginTop
	}

	// Cut settings summary
	y += 8
	pdf.SetFont("Helvetica", "B", 12)
	pdf.SetTextColor(0, 0, 0)
	pdf.SetXY(marginLeft, y)
	pdf.CellFormat(100, 7, "Cut Settings", "", 0, "L", false, 0, "")
	y += 9

	settingsItems := []struct {
		label string
		value string
	}{
		{"Kerf Width", fmt.Sprintf("%.1f mm", settings.KerfWidth)},
		{"End Trim", fmt.Sprintf("%.1f mm", settings.EndTrim)},
		{"Min Offcut", fmt.Sprintf("%.1f mm", settings.MinOffcut)},
		{"No-fit Policy", string(settings.NoFitPolicy)},
	}

	pdf.SetFont("Helvetica", "", 9)
	for _, item := range settingsItems {
		pdf.SetXY(marginLeft+5, y)
		pdf.CellFormat(50, 5, item.label+":", "", 0, "L", false, 0, "")
		pdf.CellFormat(30, 5, item.value, "", 0, "L", false, 0, "")
		y += 5
	}

	// Footer
	pdf.SetFont("Helvetica", "I", 8)
	pdf.SetTextColor(120, 120, 120)
	pdf.SetXY(marginLeft, pageHeight-marginBottom)
	pdf.CellFormat(pageWidth-marginLeft-marginRight, 4, "Generated by CutFrame - Door and Window Cutting Planner", "", 0, "C", false, 0, "")
}
