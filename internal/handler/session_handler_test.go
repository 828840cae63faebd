package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"image/png"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"pdf-view-session/internal/domain"
	"pdf-view-session/internal/session"
	apperrors "pdf-view-session/pkg/errors"
)

func serve(t *testing.T, router http.Handler, method, path string, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	return rr
}

func decodeState(t *testing.T, rr *httptest.ResponseRecorder) session.State {
	t.Helper()
	var state session.State
	if err := json.NewDecoder(rr.Body).Decode(&state); err != nil {
		t.Fatalf("failed to decode state: %v", err)
	}
	return state
}

func openMock(t *testing.T, ctrl *MockSessionController) {
	t.Helper()
	if err := ctrl.OpenDocument(context.Background(), strings.NewReader("%PDF")); err != nil {
		t.Fatalf("failed to open mock document: %v", err)
	}
}

func multipartUpload(t *testing.T, filename string, content []byte) (*bytes.Buffer, string) {
	t.Helper()
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	part, err := writer.CreateFormFile("file", filename)
	if err != nil {
		t.Fatalf("failed to create form file: %v", err)
	}
	if _, err := part.Write(content); err != nil {
		t.Fatalf("failed to write form file: %v", err)
	}
	if err := writer.Close(); err != nil {
		t.Fatalf("failed to close writer: %v", err)
	}
	return body, writer.FormDataContentType()
}

func TestSessionHandler_UploadDocument(t *testing.T) {
	tests := []struct {
		name       string
		filename   string
		content    []byte
		openErr    error
		wantStatus int
	}{
		{"valid pdf", "report.pdf", []byte("%PDF-1.7"), nil, http.StatusOK},
		{"wrong extension", "notes.txt", []byte("hello"), nil, http.StatusBadRequest},
		{"malformed pdf", "broken.pdf", []byte("garbage"), apperrors.NewDocumentOpenError(nil), http.StatusUnprocessableEntity},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctrl := NewMockSessionController("a", "b", "c")
			ctrl.openErr = tt.openErr
			router := newTestRouter(ctrl, stubConfig{}, "")

			body, contentType := multipartUpload(t, tt.filename, tt.content)
			req := httptest.NewRequest(http.MethodPost, "/api/v1/session/document", body)
			req.Header.Set("Content-Type", contentType)
			rr := httptest.NewRecorder()
			router.ServeHTTP(rr, req)

			if rr.Code != tt.wantStatus {
				t.Fatalf("expected status %d, got %d: %s", tt.wantStatus, rr.Code, rr.Body.String())
			}
			if tt.wantStatus == http.StatusOK {
				state := decodeState(t, rr)
				if !state.DocumentOpen || state.PageCount != 3 || state.DisplayedPage != 1 {
					t.Fatalf("unexpected state after upload: %+v", state)
				}
				if !bytes.Equal(ctrl.opened, tt.content) {
					t.Fatalf("controller received %q", ctrl.opened)
				}
			}
		})
	}
}

func TestSessionHandler_UploadDocumentMissingFile(t *testing.T) {
	router := newTestRouter(NewMockSessionController(), stubConfig{}, "")

	rr := serve(t, router, http.MethodPost, "/api/v1/session/document", "")
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected status %d, got %d", http.StatusBadRequest, rr.Code)
	}
}

func TestSessionHandler_OpenFromStorage(t *testing.T) {
	ctrl := NewMockSessionController("a")
	router := newTestRouter(ctrl, stubConfig{}, "")

	rr := serve(t, router, http.MethodPost, "/api/v1/session/document/storage", `{"path":"reports/q1.pdf"}`)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d: %s", http.StatusOK, rr.Code, rr.Body.String())
	}
	if string(ctrl.opened) != "%PDF-1.7" {
		t.Fatalf("unexpected document bytes: %q", ctrl.opened)
	}

	rr = serve(t, router, http.MethodPost, "/api/v1/session/document/storage", `{"path":"missing.pdf"}`)
	if rr.Code != http.StatusNotFound {
		t.Fatalf("expected status %d, got %d", http.StatusNotFound, rr.Code)
	}
}

func TestSessionHandler_Navigation(t *testing.T) {
	ctrl := NewMockSessionController(make([]string, 10)...)
	openMock(t, ctrl)
	router := newTestRouter(ctrl, stubConfig{}, "")

	for i := 0; i < 3; i++ {
		serve(t, router, http.MethodPost, "/api/v1/session/page/next", "")
	}
	if got := ctrl.State().DisplayedPage; got != 4 {
		t.Fatalf("expected page 4 after three next steps, got %d", got)
	}

	rr := serve(t, router, http.MethodPut, "/api/v1/session/page", `{"page":42}`)
	if state := decodeState(t, rr); state.DisplayedPage != 10 {
		t.Fatalf("expected page clamped to 10, got %d", state.DisplayedPage)
	}

	rr = serve(t, router, http.MethodPost, "/api/v1/session/page/previous", "")
	if state := decodeState(t, rr); state.DisplayedPage != 9 {
		t.Fatalf("expected page 9, got %d", state.DisplayedPage)
	}

	rr = serve(t, router, http.MethodPut, "/api/v1/session/page", `{"page":`)
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected status %d for malformed body, got %d", http.StatusBadRequest, rr.Code)
	}
}

func TestSessionHandler_ViewSettings(t *testing.T) {
	ctrl := NewMockSessionController("a")
	router := newTestRouter(ctrl, stubConfig{}, "")

	tests := []struct {
		name       string
		method     string
		path       string
		body       string
		wantStatus int
	}{
		{"zoom mode", http.MethodPut, "/api/v1/session/zoom", `{"mode":"fit_height"}`, http.StatusOK},
		{"unknown zoom mode", http.MethodPut, "/api/v1/session/zoom", `{"mode":"huge"}`, http.StatusBadRequest},
		{"zoom in", http.MethodPost, "/api/v1/session/zoom/in", "", http.StatusOK},
		{"rotate", http.MethodPost, "/api/v1/session/rotate", `{"direction":"clockwise"}`, http.StatusOK},
		{"unknown direction", http.MethodPost, "/api/v1/session/rotate", `{"direction":"up"}`, http.StatusBadRequest},
		{"display mode", http.MethodPut, "/api/v1/session/display-mode", `{"mode":"book"}`, http.StatusOK},
		{"unknown display mode", http.MethodPut, "/api/v1/session/display-mode", `{"mode":"scroll"}`, http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := serve(t, router, tt.method, tt.path, tt.body)
			if rr.Code != tt.wantStatus {
				t.Fatalf("expected status %d, got %d: %s", tt.wantStatus, rr.Code, rr.Body.String())
			}
		})
	}

	state := ctrl.State()
	if state.ZoomMode != domain.ZoomCustom || state.Rotation != 90 || state.DisplayMode != domain.DisplayBook {
		t.Fatalf("unexpected view state: %+v", state)
	}
}

func TestSessionHandler_ToggleRenderFlag(t *testing.T) {
	ctrl := NewMockSessionController("a")
	router := newTestRouter(ctrl, stubConfig{}, "")

	rr := serve(t, router, http.MethodPost, "/api/v1/session/render-flags/transparent/toggle", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, rr.Code)
	}
	var resp renderFlagsResponse
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp.Value != uint32(domain.RenderTransparent) || len(resp.Flags) != 1 || resp.Flags[0] != "transparent" {
		t.Fatalf("unexpected flags response: %+v", resp)
	}

	serve(t, router, http.MethodPost, "/api/v1/session/render-flags/transparent/toggle", "")
	if ctrl.RenderFlags() != domain.RenderNone {
		t.Fatalf("expected toggling twice to restore flags, got %v", ctrl.RenderFlags())
	}

	rr = serve(t, router, http.MethodPost, "/api/v1/session/render-flags/sparkles/toggle", "")
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected status %d, got %d", http.StatusBadRequest, rr.Code)
	}
}

func TestSessionHandler_Sweep(t *testing.T) {
	ctrl := NewMockSessionController(make([]string, 5)...)
	router := newTestRouter(ctrl, stubConfig{}, "")

	rr := serve(t, router, http.MethodPost, "/api/v1/session/sweep", "")
	if rr.Code != http.StatusConflict {
		t.Fatalf("expected status %d without a document, got %d", http.StatusConflict, rr.Code)
	}

	openMock(t, ctrl)
	rr = serve(t, router, http.MethodPost, "/api/v1/session/sweep", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, rr.Code)
	}
	var resp sweepResponse
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp.Steps != 4 || resp.LastPage != 5 || resp.PageCount != 5 {
		t.Fatalf("unexpected sweep response: %+v", resp)
	}

	ctrl.sweepErr = apperrors.NewSweepAbortedError(2, 2, apperrors.NewInternalError("render failed", nil))
	rr = serve(t, router, http.MethodPost, "/api/v1/session/sweep", "")
	if rr.Code != http.StatusInternalServerError || !strings.Contains(rr.Body.String(), "sweep_aborted") {
		t.Fatalf("unexpected response for aborted sweep: %d %s", rr.Code, rr.Body.String())
	}

	rr = serve(t, router, http.MethodDelete, "/api/v1/session/sweep", "")
	if rr.Code != http.StatusAccepted || ctrl.cancelled != 1 {
		t.Fatalf("expected cancel to be accepted, got %d (cancelled %d)", rr.Code, ctrl.cancelled)
	}
	rr = serve(t, router, http.MethodPost, "/api/v1/session/sweep/reset", "")
	if state := decodeState(t, rr); state.SweepCancelled || ctrl.resets != 1 {
		t.Fatalf("expected reset to clear cancellation, got %+v", state)
	}
}

func TestSessionHandler_MetadataAndText(t *testing.T) {
	ctrl := NewMockSessionController("first page", "second")
	router := newTestRouter(ctrl, stubConfig{}, "")

	rr := serve(t, router, http.MethodGet, "/api/v1/session/metadata", "")
	if rr.Code != http.StatusConflict {
		t.Fatalf("expected status %d without a document, got %d", http.StatusConflict, rr.Code)
	}

	openMock(t, ctrl)
	rr = serve(t, router, http.MethodGet, "/api/v1/session/metadata", "")
	var meta metadataResponse
	if err := json.NewDecoder(rr.Body).Decode(&meta); err != nil {
		t.Fatalf("failed to decode metadata: %v", err)
	}
	if !strings.Contains(meta.Report, "Title: Mock Title") {
		t.Fatalf("unexpected metadata report: %q", meta.Report)
	}

	ctrl.NextPage()
	rr = serve(t, router, http.MethodGet, "/api/v1/session/pages/current/text", "")
	var text pageTextResponse
	if err := json.NewDecoder(rr.Body).Decode(&text); err != nil {
		t.Fatalf("failed to decode text: %v", err)
	}
	if text.Page != 2 || text.Text != "second" || text.Caption != "Page 2 contains 6 character(s):" {
		t.Fatalf("unexpected page text: %+v", text)
	}

	rr = serve(t, router, http.MethodGet, "/api/v1/session/pages/9/text", "")
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected status %d for out of range page, got %d", http.StatusBadRequest, rr.Code)
	}
}

func TestSessionHandler_PageImage(t *testing.T) {
	ctrl := NewMockSessionController("a", "b")
	openMock(t, ctrl)
	router := newTestRouter(ctrl, stubConfig{}, "")

	rr := serve(t, router, http.MethodGet, "/api/v1/session/pages/1/image?width=10", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d: %s", http.StatusOK, rr.Code, rr.Body.String())
	}
	if ct := rr.Header().Get("Content-Type"); ct != "image/png" {
		t.Fatalf("expected image/png, got %s", ct)
	}
	img, err := png.Decode(rr.Body)
	if err != nil {
		t.Fatalf("failed to decode png: %v", err)
	}
	if b := img.Bounds(); b.Dx() != 10 || b.Dy() != 5 {
		t.Fatalf("expected 10x5 thumbnail, got %v", b)
	}

	rr = serve(t, router, http.MethodGet, "/api/v1/session/pages/1/image?width=-3", "")
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected status %d for invalid width, got %d", http.StatusBadRequest, rr.Code)
	}
}

func TestSessionHandler_Search(t *testing.T) {
	ctrl := NewMockSessionController("alpha", "has needle", "gamma", "delta", "needle again")
	router := newTestRouter(ctrl, stubConfig{}, "")

	rr := serve(t, router, http.MethodPost, "/api/v1/session/search", `{"term":"needle"}`)
	if rr.Code != http.StatusConflict {
		t.Fatalf("expected status %d without a document, got %d", http.StatusConflict, rr.Code)
	}

	openMock(t, ctrl)
	rr = serve(t, router, http.MethodPost, "/api/v1/session/search", `{"term":"needle","match_case":false,"whole_word":false}`)
	var report domain.SearchReport
	if err := json.NewDecoder(rr.Body).Decode(&report); err != nil {
		t.Fatalf("failed to decode report: %v", err)
	}
	want := []string{`Found "needle" in page: 2`, `Found "needle" in page: 5`}
	if len(report.Lines) != len(want) || report.Lines[0] != want[0] || report.Lines[1] != want[1] {
		t.Fatalf("unexpected report lines: %v", report.Lines)
	}

	rr = serve(t, router, http.MethodPost, "/api/v1/session/search", `{"term":""}`)
	if !strings.Contains(rr.Body.String(), `"matches":[]`) {
		t.Fatalf("expected empty matches array, got %s", rr.Body.String())
	}

	rr = serve(t, router, http.MethodPost, "/api/v1/session/search/panel/toggle", "")
	if state := decodeState(t, rr); !state.IsSearchOpen {
		t.Fatal("expected search panel to be open")
	}
}
