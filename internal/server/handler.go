package server

import (
	"bytes"
	"errors"
	"fmt"
	"net/http"
	"sort"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/piwi3910/CutFrame/internal/engine"
	"github.com/piwi3910/CutFrame/internal/export"
	"github.com/piwi3910/CutFrame/internal/importer"
	"github.com/piwi3910/CutFrame/internal/model"
)

const (
	contentTypeXLSX = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	contentTypeCSV  = "text/csv; charset=utf-8"
)

type processData struct {
	Rows        []map[string]string `json:"rows"`
	Columns     []string            `json:"columns"`
	Stats       model.Summary       `json:"stats"`
	Diagnostics []model.Diagnostic  `json:"diagnostics"`
	Bars        []model.Bar         `json:"bars"`
	PlanID      string              `json:"plan_id"`
}

type processResponse struct {
	Success  bool        `json:"success"`
	Data     processData `json:"data"`
	Filename string      `json:"filename"`
	Warnings []string    `json:"warnings,omitempty"`
}

// process imports an uploaded piece list and returns it with cutting ids.
func (s *Server) process(c *gin.Context) {
	e := newAPIError(c)

	header, err := c.FormFile("file")
	if err != nil {
		s.fail(c, http.StatusBadRequest, e.wrap(err, "read form file"), "No file uploaded")
		return
	}
	if header.Filename == "" {
		s.fail(c, http.StatusBadRequest, e.text("empty filename"), "No file selected")
		return
	}
	if header.Size > s.maxUpload {
		s.fail(c, http.StatusRequestEntityTooLarge, e.text("upload too large"),
			fmt.Sprintf("File exceeds %d MB", s.maxUpload>>20))
		return
	}

	f, err := header.Open()
	if err != nil {
		s.fail(c, http.StatusInternalServerError, e.wrap(err, "open upload"), "Cannot read uploaded file")
		return
	}
	defer f.Close()

	imported := importer.ImportReader(header.Filename, f)
	if !imported.OK() {
		msg := strings.Join(imported.Errors, "; ")
		s.fail(c, http.StatusBadRequest, e.text(msg), msg)
		return
	}

	lengths, err := s.materials.Lengths(c.Request.Context())
	if err != nil {
		s.fail(c, http.StatusInternalServerError, e.wrap(err, "load material lengths"), "Cannot load material settings")
		return
	}

	alloc := engine.New(s.settings, lengths, s.logger)
	out, result, err := alloc.AllocateTable(imported.Table)
	if err != nil {
		var schemaErr *model.SchemaError
		if errors.As(err, &schemaErr) {
			s.fail(c, http.StatusBadRequest, e.wrap(err, "validate table"), schemaErr.Error())
			return
		}
		s.fail(c, http.StatusInternalServerError, e.wrap(err, "allocate"), "Allocation failed")
		return
	}

	pieces, _, _ := model.PiecesFromTable(imported.Table)
	summary := model.Summarize(result, pieces)

	s.logger.Info("Processed upload",
		zap.String("request_id", c.GetString(requestIDKey)),
		zap.String("filename", header.Filename),
		zap.String("plan_id", result.PlanID),
		zap.Int("pieces", summary.TotalPieces),
		zap.Int("bars", summary.TotalCuts))

	c.JSON(http.StatusOK, processResponse{
		Success: true,
		Data: processData{
			Rows:        tableRecords(out),
			Columns:     out.Columns,
			Stats:       summary,
			Diagnostics: result.Diagnostics,
			Bars:        result.Bars,
			PlanID:      result.PlanID,
		},
		Filename: header.Filename,
		Warnings: imported.Warnings,
	})
}

type downloadRequest struct {
	Data struct {
		Rows    []map[string]interface{} `json:"rows"`
		Columns []string                 `json:"columns"`
	} `json:"data"`
	Format   string `json:"format"`
	Filename string `json:"filename"`
}

// download converts processed rows back into a CSV or Excel attachment.
func (s *Server) download(c *gin.Context) {
	e := newAPIError(c)

	var req downloadRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.fail(c, http.StatusBadRequest, e.wrap(err, "decode download request"), "Invalid JSON data")
		return
	}
	if len(req.Data.Rows) == 0 {
		s.fail(c, http.StatusBadRequest, e.text("no rows"), "No data provided")
		return
	}
	if req.Format == "" {
		req.Format = export.FormatExcel
	}
	if req.Filename == "" {
		req.Filename = "processed_data"
	}

	ext, err := export.FormatExtension(req.Format)
	if err != nil {
		s.fail(c, http.StatusBadRequest, e.wrap(err, "download format"), "Unsupported file format")
		return
	}

	table := recordsTable(req.Data.Columns, req.Data.Rows)
	var buf bytes.Buffer
	contentType := contentTypeXLSX
	if ext == "csv" {
		contentType = contentTypeCSV
		err = export.WriteCSV(&buf, table)
	} else {
		err = export.WriteExcel(&buf, table)
	}
	if err != nil {
		s.fail(c, http.StatusInternalServerError, e.wrap(err, "render download"), "Cannot generate file")
		return
	}

	filename := export.OutputFilename(req.Filename, ext)
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	c.Data(http.StatusOK, contentType, buf.Bytes())
}

type settingsRequest struct {
	Lengths map[string]float64 `json:"lengths"`
	Default float64            `json:"default"`
}

type settingsResponse struct {
	Success   bool                  `json:"success"`
	Materials model.MaterialLengths `json:"materials"`
	Cutting   model.CutSettings     `json:"cutting"`
}

func (s *Server) getSettings(c *gin.Context) {
	lengths, err := s.materials.Lengths(c.Request.Context())
	if err != nil {
		s.fail(c, http.StatusInternalServerError, newAPIError(c).wrap(err, "load material lengths"), "Cannot load material settings")
		return
	}
	c.JSON(http.StatusOK, settingsResponse{Success: true, Materials: lengths, Cutting: s.settings})
}

// updateSettings merges the posted lengths into the material table.
func (s *Server) updateSettings(c *gin.Context) {
	e := newAPIError(c)

	var req settingsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.fail(c, http.StatusBadRequest, e.wrap(err, "decode settings"), "Invalid JSON data")
		return
	}
	if req.Default < 0 {
		s.fail(c, http.StatusBadRequest, e.text("negative default"), "Default length must be positive")
		return
	}
	for key, length := range req.Lengths {
		if strings.TrimSpace(key) == "" || length <= 0 {
			msg := fmt.Sprintf("Invalid length %g for material %q", length, key)
			s.fail(c, http.StatusBadRequest, e.text(msg), msg)
			return
		}
	}

	lengths, err := s.materials.Update(c.Request.Context(), req.Lengths, req.Default)
	if err != nil {
		s.fail(c, http.StatusInternalServerError, e.wrap(err, "update material lengths"), "Cannot save material settings")
		return
	}
	s.logger.Info("Material settings updated",
		zap.String("request_id", c.GetString(requestIDKey)),
		zap.Int("changed", len(req.Lengths)),
		zap.Float64("default", lengths.Default))
	c.JSON(http.StatusOK, settingsResponse{Success: true, Materials: lengths, Cutting: s.settings})
}

// tableRecords converts rows into column-keyed records for the front end.
func tableRecords(t model.Table) []map[string]string {
	records := make([]map[string]string, len(t.Rows))
	for i, row := range t.Rows {
		rec := make(map[string]string, len(t.Columns))
		for j, col := range t.Columns {
			if j < len(row) {
				rec[col] = row[j]
			} else {
				rec[col] = ""
			}
		}
		records[i] = rec
	}
	return records
}

// recordsTable is the inverse of tableRecords. Without an explicit column
// list the schema columns come first, then the remaining keys sorted.
func recordsTable(columns []string, records []map[string]interface{}) model.Table {
	if len(columns) == 0 {
		columns = recordColumns(records)
	}
	t := model.Table{Columns: columns, Rows: make([][]string, len(records))}
	for i, rec := range records {
		row := make([]string, len(columns))
		for j, col := range columns {
			row[j] = formatValue(rec[col])
		}
		t.Rows[i] = row
	}
	return t
}

func recordColumns(records []map[string]interface{}) []string {
	seen := make(map[string]bool)
	var columns []string
	for _, col := range append(append([]string{}, model.RequiredColumns...), model.ColCuttingID, model.ColPiecesID) {
		for _, rec := range records {
			if _, ok := rec[col]; ok {
				columns = append(columns, col)
				seen[col] = true
				break
			}
		}
	}
	var rest []string
	for _, rec := range records {
		for k := range rec {
			if !seen[k] {
				seen[k] = true
				rest = append(rest, k)
			}
		}
	}
	sort.Strings(rest)
	return append(columns, rest...)
}

func formatValue(v interface{}) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(x)
	default:
		return fmt.Sprint(x)
	}
}
