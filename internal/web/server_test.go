package web

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/ciclogistica/retiros/internal/config"
	"github.com/ciclogistica/retiros/internal/engine"
	"github.com/ciclogistica/retiros/internal/sheet"
)

// fakeCarrier registers every unit successfully unless its remito appears
// in fail.
type fakeCarrier struct {
	fail map[int64]string
}

func (c *fakeCarrier) Register(_ context.Context, unit engine.Unit) ([]string, string, error) {
	if msg, ok := c.fail[unit.Remito]; ok {
		return nil, "", &engine.CarrierError{Remito: unit.Remito, Message: msg}
	}
	return []string{fmt.Sprintf("9%d", unit.Remito)}, fmt.Sprintf("4%d", unit.Remito), nil
}

type fakeLabels struct {
	pdf []byte
	err error
}

func (f *fakeLabels) Label(context.Context, string) ([]byte, error) {
	return f.pdf, f.err
}

func testServerConfig() *config.Config {
	return &config.Config{
		Server: config.ServerConfig{
			Host: "127.0.0.1",
			Port: 0,
		},
		Batch: config.BatchConfig{
			Workers:       1,
			CoercePolicy:  "zero",
			MaxConcurrent: 2,
			MaxWaitTime:   time.Second,
			MaxFileSize:   10 << 20,
			ResultTTL:     time.Minute,
		},
	}
}

func newTestServer(t *testing.T, carrier engine.Carrier, labels engine.LabelFetcher, cfg *config.Config) *Server {
	t.Helper()
	if cfg == nil {
		cfg = testServerConfig()
	}
	eng := engine.New(carrier, engine.Config{
		Policy:  engine.ParseCoercePolicy(cfg.Batch.CoercePolicy),
		Workers: cfg.Batch.Workers,
	})
	return NewServer(eng, labels, cfg)
}

func testTable() engine.Table {
	return engine.Table{
		Headers: []string{"obs", "Nombre", "Direccion", "Numero", "localidad", "provincia", "cp", "telefono", "mail", "Referencia", "cantidad"},
		Rows: [][]string{
			{"500", "Perez, Juan", "Mitre", "100", "Escobar", "Buenos Aires", "1625", "1144440000", "juan@example.com", "R-1", "1"},
			{"501", "Gomez, Ana", "Belgrano", "200", "Pilar", "Buenos Aires", "1629", "1155550000", "ana@example.com", "R-2", "2"},
		},
	}
}

// uploadWorkbook posts an xlsx rendering of t to /api/batches and returns
// the recorder.
func uploadWorkbook(t *testing.T, s *Server, table engine.Table, apiKey string) *httptest.ResponseRecorder {
	t.Helper()

	workbook, err := sheet.Write(table)
	if err != nil {
		t.Fatalf("sheet.Write: %v", err)
	}

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, err := mw.CreateFormFile("file", "retiros.xlsx")
	if err != nil {
		t.Fatalf("CreateFormFile: %v", err)
	}
	if _, err := part.Write(workbook); err != nil {
		t.Fatalf("write workbook: %v", err)
	}
	mw.Close()

	req := httptest.NewRequest(http.MethodPost, "/api/batches", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	if apiKey != "" {
		req.Header.Set("X-API-Key", apiKey)
	}
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	return rec
}

func TestHealthz(t *testing.T) {
	s := newTestServer(t, &fakeCarrier{}, &fakeLabels{}, nil)

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
}

func TestCreateBatchSuccess(t *testing.T) {
	s := newTestServer(t, &fakeCarrier{}, &fakeLabels{}, nil)

	rec := uploadWorkbook(t, s, testTable(), "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}

	var resp batchResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal response: %v", err)
	}
	if resp.BatchID == "" {
		t.Error("expected a batch id")
	}
	if !resp.Success {
		t.Error("expected success")
	}
	if resp.Units != 2 || resp.Processed != 2 || resp.Failed != 0 {
		t.Errorf("counts = %d/%d/%d, want 2/2/0", resp.Units, resp.Processed, resp.Failed)
	}
	if len(resp.TrackingNumbers) != 2 {
		t.Errorf("tracking numbers = %v, want 2", resp.TrackingNumbers)
	}
	if resp.FileURL != "/api/batches/"+resp.BatchID+"/file" {
		t.Errorf("fileUrl = %q", resp.FileURL)
	}

	// The summary stays fetchable.
	req := httptest.NewRequest(http.MethodGet, "/api/batches/"+resp.BatchID, nil)
	getRec := httptest.NewRecorder()
	s.Handler().ServeHTTP(getRec, req)
	if getRec.Code != http.StatusOK {
		t.Fatalf("GET batch status = %d", getRec.Code)
	}

	// And the annotated workbook downloads as a valid sheet.
	req = httptest.NewRequest(http.MethodGet, resp.FileURL, nil)
	fileRec := httptest.NewRecorder()
	s.Handler().ServeHTTP(fileRec, req)
	if fileRec.Code != http.StatusOK {
		t.Fatalf("download status = %d", fileRec.Code)
	}
	if ct := fileRec.Header().Get("Content-Type"); !strings.Contains(ct, "spreadsheetml") {
		t.Errorf("content type = %q", ct)
	}
	out, err := sheet.Read(bytes.NewReader(fileRec.Body.Bytes()))
	if err != nil {
		t.Fatalf("reading annotated workbook: %v", err)
	}
	if got := out.Headers[len(out.Headers)-1]; got != engine.ColStatus {
		t.Errorf("last column = %q, want %q", got, engine.ColStatus)
	}
}

func TestCreateBatchPartialFailure(t *testing.T) {
	carrier := &fakeCarrier{fail: map[int64]string{501: "IdCodPostal inválido"}}
	s := newTestServer(t, carrier, &fakeLabels{}, nil)

	rec := uploadWorkbook(t, s, testTable(), "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}

	var resp batchResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal response: %v", err)
	}
	if resp.Processed != 1 || resp.Failed != 1 {
		t.Errorf("processed/failed = %d/%d, want 1/1", resp.Processed, resp.Failed)
	}
	if len(resp.Failures) != 1 {
		t.Fatalf("failures = %+v, want one", resp.Failures)
	}
	if resp.Failures[0].Remito != 501 {
		t.Errorf("failed remito = %d, want 501", resp.Failures[0].Remito)
	}
	if !strings.Contains(resp.Failures[0].Error, "IdCodPostal") {
		t.Errorf("failure error = %q", resp.Failures[0].Error)
	}
}

func TestCreateBatchMissingColumns(t *testing.T) {
	s := newTestServer(t, &fakeCarrier{}, &fakeLabels{}, nil)

	table := engine.Table{
		Headers: []string{"obs", "Nombre"},
		Rows:    [][]string{{"500", "Perez, Juan"}},
	}
	rec := uploadWorkbook(t, s, table, "")
	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("status = %d, want 422; body = %s", rec.Code, rec.Body.String())
	}
}

func TestCreateBatchNoFile(t *testing.T) {
	s := newTestServer(t, &fakeCarrier{}, &fakeLabels{}, nil)

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	mw.WriteField("note", "no file here")
	mw.Close()

	req := httptest.NewRequest(http.MethodPost, "/api/batches", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestCreateBatchUnreadableWorkbook(t *testing.T) {
	s := newTestServer(t, &fakeCarrier{}, &fakeLabels{}, nil)

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, _ := mw.CreateFormFile("file", "retiros.xlsx")
	part.Write([]byte("this is not a workbook"))
	mw.Close()

	req := httptest.NewRequest(http.MethodPost, "/api/batches", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestGetBatchUnknown(t *testing.T) {
	s := newTestServer(t, &fakeCarrier{}, &fakeLabels{}, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/batches/does-not-exist", nil)
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
}

func TestAPIKeyAuth(t *testing.T) {
	cfg := testServerConfig()
	cfg.Server.APIKeys = []string{"secret"}
	s := newTestServer(t, &fakeCarrier{}, &fakeLabels{}, cfg)

	// Health is public.
	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("healthz status = %d, want 200", rec.Code)
	}

	// API routes are not.
	req = httptest.NewRequest(http.MethodGet, "/api/batches/some-id", nil)
	rec = httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("unauthenticated status = %d, want 401", rec.Code)
	}

	if rec := uploadWorkbook(t, s, testTable(), "secret"); rec.Code != http.StatusOK {
		t.Fatalf("authenticated upload status = %d", rec.Code)
	}
	if rec := uploadWorkbook(t, s, testTable(), "wrong"); rec.Code != http.StatusForbidden {
		t.Fatalf("wrong-key upload status = %d, want 403", rec.Code)
	}
}

func TestLabelDownload(t *testing.T) {
	pdf := []byte("%PDF-1.4 fake")
	s := newTestServer(t, &fakeCarrier{}, &fakeLabels{pdf: pdf}, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/labels/4500123", nil)
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/pdf" {
		t.Errorf("content type = %q, want application/pdf", ct)
	}
	if !bytes.Equal(rec.Body.Bytes(), pdf) {
		t.Error("body does not match the fetched PDF")
	}
}

func TestLabelUpstreamFailure(t *testing.T) {
	labels := &fakeLabels{err: &engine.TransportError{
		Op:  "fetch labels",
		Err: errors.New("connection refused"),
	}}
	s := newTestServer(t, &fakeCarrier{}, labels, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/labels/4500123", nil)
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusBadGateway {
		t.Fatalf("status = %d, want 502", rec.Code)
	}
}

func TestResultStoreExpiry(t *testing.T) {
	store := newResultStore(20 * time.Millisecond)
	store.Put(&storedBatch{ID: "b1", CreatedAt: time.Now()})

	if store.Get("b1") == nil {
		t.Fatal("batch missing right after Put")
	}
	time.Sleep(60 * time.Millisecond)
	if store.Get("b1") != nil {
		t.Error("batch still present after TTL")
	}
}
