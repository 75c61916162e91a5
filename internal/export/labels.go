package export

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/go-pdf/fpdf"
	qrcode "github.com/skip2/go-qrcode"

	"github.com/piwi3910/CutFrame/internal/model"
)

// LabelInfo holds the data encoded into each piece label's QR code.
type LabelInfo struct {
	PlanID    string  `json:"plan"`
	Material  string  `json:"material"`
	Length    float64 `json:"length_mm"`
	OrderNo   string  `json:"order_no"`
	BinNo     string  `json:"bin_no"`
	CuttingID int     `json:"cutting_id"`
	PiecesID  int     `json:"pieces_id"`
	Row       int     `json:"row"` // 1-based input row
}

// Label layout constants for Avery 5160-compatible labels (3 columns, 10 rows per page).
// Each label cell is approximately 66.7mm x 25.4mm on US Letter paper.
const (
	labelMarginTop  = 12.7 // mm
	labelMarginLeft = 4.8  // mm
	labelWidth      = 66.7 // mm per label
	labelHeight     = 25.4 // mm per label
	labelCols       = 3
	labelRows       = 10
	labelsPerPage   = labelCols * labelRows
	qrSize          = 20.0 // QR code size in mm
	labelPadding    = 2.0  // mm internal padding
)

// CollectLabelInfos lists one label per assigned piece, bar by bar in
// cutting order. pieces supplies order and bin numbers by position.
func CollectLabelInfos(result model.AllocationResult, pieces []model.PieceRequirement) []LabelInfo {
	byPosition := make(map[int]model.PieceRequirement, len(pieces))
	for _, p := range pieces {
		byPosition[p.Position] = p
	}

	var labels []LabelInfo
	for _, bar := range result.Bars {
		for i, pos := range bar.Positions {
			p := byPosition[pos]
			labels = append(labels, LabelInfo{
				PlanID:    result.PlanID,
				Material:  bar.Material,
				Length:    bar.Lengths[i],
				OrderNo:   p.OrderNo,
				BinNo:     p.BinNo,
				CuttingID: bar.CuttingID,
				PiecesID:  i + 1,
				Row:       pos + 1,
			})
		}
	}
	return labels
}

// ExportLabels generates a PDF of QR-coded labels for all assigned pieces.
// Labels are laid out on a standard label sheet format (Avery 5160 /
// 3 columns x 10 rows on US Letter).
func ExportLabels(path string, result model.AllocationResult, pieces []model.PieceRequirement) error {
	labels := CollectLabelInfos(result, pieces)
	if len(labels) == 0 {
		return fmt.Errorf("no assigned pieces to generate labels for")
	}

	pdf := fpdf.New("P", "mm", "Letter", "")
	pdf.SetAutoPageBreak(false, 0)

	for i, label := range labels {
		if i%labelsPerPage == 0 {
			pdf.AddPage()
		}

		posOnPage := i % labelsPerPage
		col := posOnPage % labelCols
		row := posOnPage / labelCols

		x := labelMarginLeft + float64(col)*labelWidth
		y := labelMarginTop + float64(row)*labelHeight

		if err := renderLabel(pdf, x, y, label); err != nil {
			return fmt.Errorf("failed to render label for row %d: %w", label.Row, err)
		}
	}

	return pdf.OutputFileAndClose(path)
}

// renderLabel draws a single label at the given position.
func renderLabel(pdf *fpdf.Fpdf, x, y float64, info LabelInfo) error {
	// Light border as a cutting guide
	pdf.SetDrawColor(200, 200, 200)
	pdf.SetLineWidth(0.1)
	pdf.Rect(x, y, labelWidth, labelHeight, "D")

	qrData, err := json.Marshal(info)
	if err != nil {
		return fmt.Errorf("failed to marshal label info: %w", err)
	}

	qrPNG, err := qrcode.Encode(string(qrData), qrcode.Medium, 256)
	if err != nil {
		return fmt.Errorf("failed to generate QR code: %w", err)
	}

	// Input rows are unique, so the row number names the image.
	imgName := fmt.Sprintf("qr_%d", info.Row)
	pdf.RegisterImageOptionsReader(imgName, fpdf.ImageOptions{ImageType: "PNG"}, bytes.NewReader(qrPNG))

	qrX := x + labelWidth - qrSize - labelPadding
	qrY := y + (labelHeight-qrSize)/2
	pdf.ImageOptions(imgName, qrX, qrY, qrSize, qrSize, false, fpdf.ImageOptions{ImageType: "PNG"}, 0, "")

	textX := x + labelPadding
	textW := labelWidth - qrSize - 3*labelPadding

	// Material (bold, truncated to fit)
	pdf.SetFont("Helvetica", "B", 9)
	pdf.SetTextColor(0, 0, 0)
	pdf.SetXY(textX, y+labelPadding)
	material := info.Material
	if pdf.GetStringWidth(material) > textW {
		for len(material) > 0 && pdf.GetStringWidth(material+"...") > textW {
			material = material[:len(material)-1]
		}
		material += "..."
	}
	pdf.CellFormat(textW, 4.5, material, "", 1, "L", false, 0, "")

	pdf.SetFont("Helvetica", "B", 8)
	pdf.SetXY(textX, y+labelPadding+5)
	pdf.CellFormat(textW, 3.5, fmt.Sprintf("%g mm", info.Length), "", 1, "L", false, 0, "")

	pdf.SetFont("Helvetica", "", 7)
	pdf.SetXY(textX, y+labelPadding+9)
	pdf.CellFormat(textW, 3, fmt.Sprintf("Cut %d / Piece %d", info.CuttingID, info.PiecesID), "", 1, "L", false, 0, "")

	pdf.SetFont("Helvetica", "", 6)
	pdf.SetTextColor(100, 100, 100)
	pdf.SetXY(textX, y+labelPadding+12.5)
	pdf.CellFormat(textW, 3, fmt.Sprintf("Order %s  Bin %s", info.OrderNo, info.BinNo), "", 1, "L", false, 0, "")

	pdf.SetTextColor(0, 0, 0)
	return nil
}
