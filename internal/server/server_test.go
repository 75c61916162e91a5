package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/piwi3910/CutFrame/internal/model"
)

type memStore struct {
	lengths model.MaterialLengths
	err     error
}

func (m *memStore) Lengths(context.Context) (model.MaterialLengths, error) {
	return m.lengths, m.err
}

func (m *memStore) Update(_ context.Context, updates map[string]float64, defaultLength float64) (model.MaterialLengths, error) {
	if m.err != nil {
		return model.MaterialLengths{}, m.err
	}
	m.lengths = m.lengths.Merge(updates)
	if defaultLength > 0 {
		m.lengths.Default = defaultLength
	}
	return m.lengths, nil
}

func setupServer(t *testing.T, store MaterialStore) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	if store == nil {
		store = &memStore{lengths: model.MaterialLengths{Lengths: map[string]float64{}, Default: 2000}}
	}
	return New(Options{Settings: model.DefaultSettings(), Materials: store}).Router()
}

func uploadRequest(t *testing.T, filename string, content []byte) *http.Request {
	t.Helper()
	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	part, err := w.CreateFormFile("file", filename)
	require.NoError(t, err)
	_, err = part.Write(content)
	require.NoError(t, err)
	require.NoError(t, w.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/process", &body)
	req.Header.Set("Content-Type", w.FormDataContentType())
	return req
}

func TestHealthz(t *testing.T) {
	r := setupServer(t, nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.NotEmpty(t, w.Header().Get("X-Request-ID"))
}

func TestRequestID_Propagated(t *testing.T) {
	r := setupServer(t, nil)
	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req.Header.Set("X-Request-ID", "abc-123")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, "abc-123", w.Header().Get("X-Request-ID"))
}

func TestCORS_Preflight(t *testing.T) {
	r := setupServer(t, nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodOptions, "/api/process", nil))

	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
}

func TestProcess_CSV(t *testing.T) {
	r := setupServer(t, nil)
	csv := "Material Name,Qty,Length,Order No,Bin No,Color\n" +
		"M,1,1000,O1,B1,white\n" +
		"M,1,1000,O2,B2,white\n" +
		"M,1,500,O3,B3,grey\n"

	w := httptest.NewRecorder()
	r.ServeHTTP(w, uploadRequest(t, "orders.csv", []byte(csv)))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var resp processResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))

	assert.True(t, resp.Success)
	assert.Equal(t, "orders.csv", resp.Filename)
	assert.Equal(t, []string{"Material Name", "Qty", "Length", "Order No", "Bin No", "Color", "Cutting ID", "Pieces ID"}, resp.Data.Columns)
	require.Len(t, resp.Data.Rows, 3)

	assert.Equal(t, "1", resp.Data.Rows[0]["Cutting ID"])
	assert.Equal(t, "1", resp.Data.Rows[0]["Pieces ID"])
	assert.Equal(t, "2", resp.Data.Rows[1]["Cutting ID"])
	assert.Equal(t, "1", resp.Data.Rows[2]["Cutting ID"])
	assert.Equal(t, "2", resp.Data.Rows[2]["Pieces ID"])
	assert.Equal(t, "grey", resp.Data.Rows[2]["Color"])

	assert.Equal(t, 3, resp.Data.Stats.TotalPieces)
	assert.Equal(t, 2, resp.Data.Stats.TotalCuts)
	assert.Len(t, resp.Data.Bars, 2)
	assert.Empty(t, resp.Data.Diagnostics)
	assert.Len(t, resp.Data.PlanID, 8)
}

func TestProcess_Excel(t *testing.T) {
	f := excelize.NewFile()
	rows := [][]interface{}{
		{"material", "qty", "length", "order", "bin"},
		{"M", 1, 700, "O1", "B1"},
		{"M", 1, 600, "O1", "B2"},
	}
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		require.NoError(t, err)
		require.NoError(t, f.SetSheetRow("Sheet1", cell, &row))
	}
	buf, err := f.WriteToBuffer()
	require.NoError(t, err)
	require.NoError(t, f.Close())

	r := setupServer(t, nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, uploadRequest(t, "orders.xlsx", buf.Bytes()))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var resp processResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, 1, resp.Data.Stats.TotalCuts)
	assert.Equal(t, "1", resp.Data.Rows[0]["Cutting ID"])
	assert.Equal(t, "1", resp.Data.Rows[1]["Cutting ID"])
}

func TestProcess_MissingColumns(t *testing.T) {
	r := setupServer(t, nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, uploadRequest(t, "bad.csv", []byte("Material Name,Qty,Length,Order No\nM,1,100,O1\n")))

	require.Equal(t, http.StatusBadRequest, w.Code)
	var resp errorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.False(t, resp.Success)
	assert.Contains(t, resp.Message, "Bin No")
	assert.NotEmpty(t, resp.RequestID)
}

func TestProcess_NoFile(t *testing.T) {
	r := setupServer(t, nil)
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	require.NoError(t, mw.WriteField("processType", "Windows"))
	require.NoError(t, mw.Close())
	req := httptest.NewRequest(http.MethodPost, "/api/process", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())

	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "No file uploaded")
}

func TestProcess_UnsupportedFile(t *testing.T) {
	r := setupServer(t, nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, uploadRequest(t, "drawing.dxf", []byte("0\nSECTION\n")))

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "Unsupported file type")
}

func TestProcess_StoreFailure(t *testing.T) {
	r := setupServer(t, &memStore{err: errors.New("connection refused")})
	w := httptest.NewRecorder()
	r.ServeHTTP(w, uploadRequest(t, "orders.csv", []byte("Material Name,Qty,Length,Order No,Bin No\nM,1,100,O1,B1\n")))

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.NotContains(t, w.Body.String(), "connection refused")
}

func TestDownload_CSV(t *testing.T) {
	r := setupServer(t, nil)
	body := `{"format":"csv","filename":"orders.xlsx","data":{"columns":["Material Name","Length","Cutting ID"],` +
		`"rows":[{"Material Name":"M","Length":1000,"Cutting ID":1},{"Material Name":"M","Length":500.5,"Cutting ID":1}]}}`
	req := httptest.NewRequest(http.MethodPost, "/api/download", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")

	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	assert.Equal(t, `attachment; filename="orders_CutFrame.csv"`, w.Header().Get("Content-Disposition"))
	assert.Equal(t, "\ufeffMaterial Name,Length,Cutting ID\nM,1000,1\nM,500.5,1\n", w.Body.String())
}

func TestDownload_ExcelDefault(t *testing.T) {
	r := setupServer(t, nil)
	body := `{"data":{"rows":[{"Qty":1,"Material Name":"M","Note":"x"}]}}`
	req := httptest.NewRequest(http.MethodPost, "/api/download", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")

	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, `attachment; filename="processed_data_CutFrame.xlsx"`, w.Header().Get("Content-Disposition"))

	f, err := excelize.OpenReader(bytes.NewReader(w.Body.Bytes()))
	require.NoError(t, err)
	defer f.Close()
	rows, err := f.GetRows("CutFrame")
	require.NoError(t, err)
	assert.Equal(t, []string{"Material Name", "Qty", "Note"}, rows[0])
	assert.Equal(t, []string{"M", "1", "x"}, rows[1])
}

func TestDownload_Errors(t *testing.T) {
	r := setupServer(t, nil)
	tests := []struct {
		name, body, want string
	}{
		{"invalid json", `{"data":`, "Invalid JSON data"},
		{"no rows", `{"data":{"rows":[]}}`, "No data provided"},
		{"bad format", `{"format":"pdf","data":{"rows":[{"a":1}]}}`, "Unsupported file format"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/api/download", strings.NewReader(tt.body))
			req.Header.Set("Content-Type", "application/json")
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)

			assert.Equal(t, http.StatusBadRequest, w.Code)
			assert.Contains(t, w.Body.String(), tt.want)
		})
	}
}

func TestSettings_FileStore(t *testing.T) {
	path := filepath.Join(t.TempDir(), "materials.json")
	materials := NewFileMaterials(path)
	r := setupServer(t, materials)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/settings", nil))
	require.Equal(t, http.StatusOK, w.Code)

	var got settingsResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
	assert.Equal(t, model.DefaultMaterialLengths(), got.Materials)
	assert.Equal(t, model.DefaultSettings(), got.Cutting)

	req := httptest.NewRequest(http.MethodPut, "/api/settings",
		strings.NewReader(`{"lengths":{"HMST-82-01":240,"HMST-99-01":300},"default":250}`))
	req.Header.Set("Content-Type", "application/json")
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
	assert.Equal(t, 240.0, got.Materials.Lengths["HMST-82-01"])
	assert.Equal(t, 300.0, got.Materials.Lengths["HMST-99-01"])
	assert.Equal(t, 257.0, got.Materials.Lengths["HMST-82-04"])
	assert.Equal(t, 250.0, got.Materials.Default)

	stored, err := materials.Lengths(context.Background())
	require.NoError(t, err)
	assert.Equal(t, got.Materials, stored)
}

func TestFileMaterials_ConcurrentUpdates(t *testing.T) {
	path := filepath.Join(t.TempDir(), "materials.json")
	materials := NewFileMaterials(path)
	r := setupServer(t, materials)

	const writers = 20
	var wg sync.WaitGroup
	codes := make([]int, writers)
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			body := fmt.Sprintf(`{"lengths":{"HMST-C%d":%d}}`, i, 100+i)
			req := httptest.NewRequest(http.MethodPut, "/api/settings", strings.NewReader(body))
			req.Header.Set("Content-Type", "application/json")
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)
			codes[i] = w.Code
		}(i)
	}
	wg.Wait()

	for i, code := range codes {
		assert.Equal(t, http.StatusOK, code, "writer %d", i)
	}
	stored, err := materials.Lengths(context.Background())
	require.NoError(t, err)
	for i := 0; i < writers; i++ {
		assert.Equal(t, float64(100+i), stored.Lengths[fmt.Sprintf("HMST-C%d", i)], "writer %d", i)
	}
}

func TestSettings_RejectsInvalidLength(t *testing.T) {
	r := setupServer(t, nil)
	req := httptest.NewRequest(http.MethodPut, "/api/settings", strings.NewReader(`{"lengths":{"M":-1}}`))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestRecordsTable(t *testing.T) {
	records := []map[string]interface{}{
		{"Zeta": "z", "Length": 120.5, "Material Name": "M", "Cutting ID": float64(3)},
		{"Alpha": true, "Length": nil},
	}

	table := recordsTable(nil, records)

	assert.Equal(t, []string{"Material Name", "Length", "Cutting ID", "Alpha", "Zeta"}, table.Columns)
	assert.Equal(t, []string{"M", "120.5", "3", "", "z"}, table.Rows[0])
	assert.Equal(t, []string{"", "", "", "true", ""}, table.Rows[1])
}

func TestAPIError(t *testing.T) {
	e := apiError{reqid: "r1"}
	cause := errors.New("boom")
	err := e.wrap(cause, "allocate")

	assert.Equal(t, "r1: allocate: boom", err.Error())
	assert.True(t, errors.Is(err, cause))
}
