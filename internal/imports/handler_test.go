package imports_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"

	"github.com/JaimeStill/tally/internal/imports"
	"github.com/JaimeStill/tally/internal/profiles"
	"github.com/JaimeStill/tally/pkg/mapping"
	"github.com/JaimeStill/tally/pkg/tabular"
)

type mockSystem struct {
	inspectFn func(ctx context.Context, cmd imports.InspectCommand) (*imports.InspectResult, error)
	commitFn  func(ctx context.Context, cmd imports.CommitCommand) (*imports.CommitResult, error)
}

func (m *mockSystem) Handler(maxUploadSize int64) *imports.Handler {
	return newTestHandler(m, maxUploadSize)
}

func (m *mockSystem) Inspect(ctx context.Context, cmd imports.InspectCommand) (*imports.InspectResult, error) {
	return m.inspectFn(ctx, cmd)
}

func (m *mockSystem) Commit(ctx context.Context, cmd imports.CommitCommand) (*imports.CommitResult, error) {
	return m.commitFn(ctx, cmd)
}

func newTestHandler(sys imports.System, maxUploadSize int64) *imports.Handler {
	return imports.NewHandler(sys, slog.New(slog.NewTextHandler(io.Discard, nil)), maxUploadSize)
}

func setupMux(h *imports.Handler) *http.ServeMux {
	mux := http.NewServeMux()
	group := h.Routes()
	for _, route := range group.Routes {
		pattern := route.Method + " " + group.Prefix + route.Pattern
		mux.HandleFunc(pattern, route.Handler)
	}
	return mux
}

type formFile struct {
	name string
	data []byte
}

func multipartBody(t *testing.T, fields map[string]string, file *formFile) (*bytes.Buffer, string) {
	t.Helper()

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	for k, v := range fields {
		if err := w.WriteField(k, v); err != nil {
			t.Fatalf("write field: %v", err)
		}
	}

	if file != nil {
		part, err := w.CreateFormFile("file", file.name)
		if err != nil {
			t.Fatalf("create file part: %v", err)
		}
		if _, err := part.Write(file.data); err != nil {
			t.Fatalf("write file: %v", err)
		}
	}

	if err := w.Close(); err != nil {
		t.Fatalf("close writer: %v", err)
	}
	return &buf, w.FormDataContentType()
}

func TestHandlerInspect(t *testing.T) {
	var captured imports.InspectCommand
	importID := uuid.New()

	sys := &mockSystem{
		inspectFn: func(_ context.Context, cmd imports.InspectCommand) (*imports.InspectResult, error) {
			captured = cmd
			return &imports.InspectResult{
				ImportID:     importID,
				RowCount:     2,
				SchemaStatus: imports.ColdStartWillLearn,
			}, nil
		},
	}

	body, contentType := multipartBody(t,
		map[string]string{"entity": "inventory", "sheet": "Sheet1"},
		&formFile{name: "items.csv", data: []byte(itemsCSV)},
	)

	req := httptest.NewRequest("POST", "/imports/inspect", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()

	setupMux(sys.Handler(1<<20)).ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d: %s", rec.Code, http.StatusOK, rec.Body.String())
	}

	if captured.Entity != "inventory" || captured.Sheet != "Sheet1" || captured.Filename != "items.csv" {
		t.Errorf("command = %+v", captured)
	}
	if string(captured.Data) != itemsCSV {
		t.Errorf("data = %q, want uploaded bytes", captured.Data)
	}

	var result imports.InspectResult
	if err := json.NewDecoder(rec.Body).Decode(&result); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if result.ImportID != importID || result.SchemaStatus != imports.ColdStartWillLearn {
		t.Errorf("result = %+v", result)
	}
}

func TestHandlerInspectMissingFile(t *testing.T) {
	sys := &mockSystem{
		inspectFn: func(context.Context, imports.InspectCommand) (*imports.InspectResult, error) {
			t.Fatal("Inspect should not be called without a file")
			return nil, nil
		},
	}
	mux := setupMux(sys.Handler(1 << 20))

	t.Run("no file part", func(t *testing.T) {
		body, contentType := multipartBody(t, map[string]string{"entity": "inventory"}, nil)
		req := httptest.NewRequest("POST", "/imports/inspect", body)
		req.Header.Set("Content-Type", contentType)
		rec := httptest.NewRecorder()

		mux.ServeHTTP(rec, req)

		if rec.Code != http.StatusBadRequest {
			t.Errorf("status = %d, want %d", rec.Code, http.StatusBadRequest)
		}
	})

	t.Run("not multipart", func(t *testing.T) {
		req := httptest.NewRequest("POST", "/imports/inspect", strings.NewReader("entity=inventory"))
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		rec := httptest.NewRecorder()

		mux.ServeHTTP(rec, req)

		if rec.Code != http.StatusBadRequest {
			t.Errorf("status = %d, want %d", rec.Code, http.StatusBadRequest)
		}
	})
}

func TestHandlerInspectError(t *testing.T) {
	sys := &mockSystem{
		inspectFn: func(context.Context, imports.InspectCommand) (*imports.InspectResult, error) {
			return nil, fmt.Errorf("%w: %q", imports.ErrUnknownEntity, "invoices")
		},
	}

	body, contentType := multipartBody(t,
		map[string]string{"entity": "invoices"},
		&formFile{name: "items.csv", data: []byte(itemsCSV)},
	)
	req := httptest.NewRequest("POST", "/imports/inspect", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()

	setupMux(sys.Handler(1<<20)).ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusBadRequest)
	}
}

func TestHandlerCommitJSON(t *testing.T) {
	var captured imports.CommitCommand
	importID := uuid.New()

	sys := &mockSystem{
		commitFn: func(_ context.Context, cmd imports.CommitCommand) (*imports.CommitResult, error) {
			captured = cmd
			return &imports.CommitResult{OK: true, ImportID: importID, Inserted: 1, Skipped: 1, Total: 2}, nil
		},
	}

	body := fmt.Sprintf(`{
		"entity": "inventory",
		"importId": %q,
		"mapping": [{"incoming": "SKU", "mapTo": "sku"}],
		"dupDecisions": [{"rowIndex": 0, "action": "skip"}],
		"adoptAsStandard": true
	}`, importID)

	req := httptest.NewRequest("POST", "/imports/commit", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json; charset=utf-8")
	rec := httptest.NewRecorder()

	setupMux(sys.Handler(1<<20)).ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d: %s", rec.Code, http.StatusOK, rec.Body.String())
	}

	if captured.ImportID == nil || *captured.ImportID != importID {
		t.Errorf("importId = %v, want %s", captured.ImportID, importID)
	}
	if len(captured.Mapping) != 1 || captured.Mapping[0] != (mapping.Column{Incoming: "SKU", MapTo: "sku"}) {
		t.Errorf("mapping = %+v", captured.Mapping)
	}
	if len(captured.DupDecisions) != 1 || captured.DupDecisions[0].Action != imports.ActionSkip {
		t.Errorf("dupDecisions = %+v", captured.DupDecisions)
	}
	if !captured.AdoptAsStandard {
		t.Error("adoptAsStandard = false, want true")
	}

	var result imports.CommitResult
	if err := json.NewDecoder(rec.Body).Decode(&result); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !result.OK || result.Inserted != 1 || result.Skipped != 1 {
		t.Errorf("result = %+v", result)
	}
}

func TestHandlerCommitForm(t *testing.T) {
	var captured imports.CommitCommand

	sys := &mockSystem{
		commitFn: func(_ context.Context, cmd imports.CommitCommand) (*imports.CommitResult, error) {
			captured = cmd
			return &imports.CommitResult{OK: true, Total: 2, Inserted: 2}, nil
		},
	}

	body, contentType := multipartBody(t,
		map[string]string{
			"entity":          "inventory",
			"mapping":         `[{"incoming":"SKU","mapTo":"sku"},{"incoming":"Price","mapTo":"price"}]`,
			"dupDecisions":    `[{"rowIndex":1,"action":"insert"}]`,
			"adoptAsStandard": "true",
		},
		&formFile{name: "items.csv", data: []byte(itemsCSV)},
	)

	req := httptest.NewRequest("POST", "/imports/commit", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()

	setupMux(sys.Handler(1<<20)).ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d: %s", rec.Code, http.StatusOK, rec.Body.String())
	}

	if captured.Entity != "inventory" || captured.Filename != "items.csv" || string(captured.Data) != itemsCSV {
		t.Errorf("command file = %s %q", captured.Filename, captured.Data)
	}
	if captured.ImportID != nil {
		t.Errorf("importId = %v, want nil", captured.ImportID)
	}
	if len(captured.Mapping) != 2 || captured.Mapping[1].MapTo != "price" {
		t.Errorf("mapping = %+v", captured.Mapping)
	}
	if len(captured.DupDecisions) != 1 || captured.DupDecisions[0].RowIndex != 1 {
		t.Errorf("dupDecisions = %+v", captured.DupDecisions)
	}
	if !captured.AdoptAsStandard {
		t.Error("adoptAsStandard = false, want true")
	}
}

func TestHandlerCommitRejects(t *testing.T) {
	sys := &mockSystem{
		commitFn: func(context.Context, imports.CommitCommand) (*imports.CommitResult, error) {
			t.Fatal("Commit should not be called for a malformed request")
			return nil, nil
		},
	}
	mux := setupMux(sys.Handler(256))

	tests := []struct {
		name        string
		contentType string
		body        func() io.Reader
		status      int
	}{
		{
			name:        "malformed json",
			contentType: "application/json",
			body:        func() io.Reader { return strings.NewReader(`{"entity":`) },
			status:      http.StatusBadRequest,
		},
		{
			name:        "oversized json",
			contentType: "application/json",
			body: func() io.Reader {
				return strings.NewReader(`{"entity":"inventory","filename":"` + strings.Repeat("x", 512) + `"}`)
			},
			status: http.StatusRequestEntityTooLarge,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest("POST", "/imports/commit", tt.body())
			req.Header.Set("Content-Type", tt.contentType)
			rec := httptest.NewRecorder()

			mux.ServeHTTP(rec, req)

			if rec.Code != tt.status {
				t.Errorf("status = %d, want %d", rec.Code, tt.status)
			}
		})
	}

	formTests := []struct {
		name   string
		fields map[string]string
		status int
	}{
		{"bad import id", map[string]string{"entity": "inventory", "importId": "nope"}, http.StatusNotFound},
		{"bad mapping", map[string]string{"entity": "inventory", "mapping": "{"}, http.StatusBadRequest},
		{"bad decisions", map[string]string{"entity": "inventory", "dupDecisions": "[1]"}, http.StatusBadRequest},
		{"bad adopt flag", map[string]string{"entity": "inventory", "adoptAsStandard": "maybe"}, http.StatusBadRequest},
	}

	formMux := setupMux(sys.Handler(1 << 20))
	for _, tt := range formTests {
		t.Run(tt.name, func(t *testing.T) {
			body, contentType := multipartBody(t, tt.fields, nil)
			req := httptest.NewRequest("POST", "/imports/commit", body)
			req.Header.Set("Content-Type", contentType)
			rec := httptest.NewRecorder()

			formMux.ServeHTTP(rec, req)

			if rec.Code != tt.status {
				t.Errorf("status = %d, want %d", rec.Code, tt.status)
			}
		})
	}
}

func TestHandlerCommitConflict(t *testing.T) {
	sys := &mockSystem{
		commitFn: func(context.Context, imports.CommitCommand) (*imports.CommitResult, error) {
			return nil, imports.ErrAlreadyCommitted
		},
	}

	req := httptest.NewRequest("POST", "/imports/commit", strings.NewReader(`{"entity":"inventory","importId":"`+uuid.NewString()+`"}`))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()

	setupMux(sys.Handler(1<<20)).ServeHTTP(rec, req)

	if rec.Code != http.StatusConflict {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusConflict)
	}
}

func TestMapHTTPStatus(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"no file", tabular.ErrNoFile, http.StatusBadRequest},
		{"empty sheet", tabular.ErrEmptySheet, http.StatusBadRequest},
		{"unsupported", tabular.ErrUnsupportedFile, http.StatusBadRequest},
		{"sheet not found", tabular.ErrSheetNotFound, http.StatusBadRequest},
		{"unknown entity", fmt.Errorf("%w: %q", imports.ErrUnknownEntity, "x"), http.StatusBadRequest},
		{"invalid decision", imports.ErrInvalidDecision, http.StatusBadRequest},
		{"invalid mapping", imports.ErrInvalidMapping, http.StatusBadRequest},
		{"file required", imports.ErrFileRequired, http.StatusBadRequest},
		{"hash mismatch", imports.ErrHashMismatch, http.StatusBadRequest},
		{"invalid profile", fmt.Errorf("adopt profile: %w", profiles.ErrInvalidProfile), http.StatusBadRequest},
		{"session not found", imports.ErrSessionNotFound, http.StatusNotFound},
		{"already committed", imports.ErrAlreadyCommitted, http.StatusConflict},
		{"too large", imports.ErrFileTooLarge, http.StatusRequestEntityTooLarge},
		{"unknown", errors.New("boom"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := imports.MapHTTPStatus(tt.err); got != tt.want {
				t.Errorf("MapHTTPStatus(%v) = %d, want %d", tt.err, got, tt.want)
			}
		})
	}
}
