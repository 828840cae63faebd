// Package handler exposes the viewing session over HTTP.
package handler

import (
	"bytes"
	"context"
	"image"
	"image/png"
	"io"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"

	"pdf-view-session/internal/domain"
	"pdf-view-session/internal/engine"
	"pdf-view-session/internal/session"
	apperrors "pdf-view-session/pkg/errors"

	"github.com/gorilla/mux"
)

// SessionController is the part of the session controller the HTTP surface drives.
type SessionController interface {
	State() session.State
	Subscribe(fn func(session.State)) (unsubscribe func())

	OpenDocument(ctx context.Context, r io.Reader) error
	SetDisplayedPage(n int)
	NextPage()
	PreviousPage()
	SetZoomMode(mode domain.ZoomMode)
	ZoomIn()
	ZoomOut()
	Rotate(dir domain.RotateDirection)
	SetDisplayMode(mode domain.DisplayMode)
	ToggleRenderFlag(flag domain.RenderFlags)
	RenderFlags() domain.RenderFlags

	RunFullSweepRender(ctx context.Context) (domain.SweepResult, error)
	CancelSweep()
	ResetSweep()

	FetchMetadata() (domain.Metadata, error)
	FetchPageText(pageIndex int) (string, error)
	CurrentPageText() (domain.PageText, error)
	RenderPage(pageIndex int) (image.Image, error)
	RunSearch(term string, matchCase, wholeWord bool) (domain.SearchReport, error)
	ToggleSearchPanel()
}

// SessionHandler handles session-related HTTP requests
type SessionHandler struct {
	session     SessionController
	source      domain.DocumentSource
	maxFileSize int64
	logger      domain.Logger
}

// NewSessionHandler creates a new session handler
func NewSessionHandler(ctrl SessionController, source domain.DocumentSource, maxFileSize int64, logger domain.Logger) *SessionHandler {
	return &SessionHandler{
		session:     ctrl,
		source:      source,
		maxFileSize: maxFileSize,
		logger:      logger,
	}
}

// GetState returns the current view state.
func (h *SessionHandler) GetState(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.session.State())
}

// UploadDocument opens the multipart "file" field as the session document.
func (h *SessionHandler) UploadDocument(w http.ResponseWriter, r *http.Request) {
	if h.maxFileSize > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, h.maxFileSize+(1<<20))
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "File is required")
		return
	}
	defer file.Close()

	name := strings.TrimSpace(filepath.Base(header.Filename))
	if ext := strings.ToLower(filepath.Ext(name)); ext != ".pdf" {
		writeError(w, http.StatusBadRequest, "Unsupported file type. Only PDF (.pdf) documents can be opened.")
		return
	}
	if h.maxFileSize > 0 && header.Size > h.maxFileSize {
		writeError(w, http.StatusBadRequest, "File too large")
		return
	}

	if err := h.session.OpenDocument(r.Context(), file); err != nil {
		h.logger.Warn("Document upload rejected", "file", name, "error", err)
		writeAppError(w, err)
		return
	}
	h.logger.Info("Document opened from upload", "file", name, "bytes", header.Size)
	writeJSON(w, http.StatusOK, h.session.State())
}

type storageRequest struct {
	Path string `json:"path"`
}

// OpenFromStorage downloads a document from the configured bucket and opens it.
func (h *SessionHandler) OpenFromStorage(w http.ResponseWriter, r *http.Request) {
	var req storageRequest
	if err := decodeJSON(r, &req); err != nil {
		writeAppError(w, err)
		return
	}
	if h.source == nil {
		writeAppError(w, apperrors.NewUnavailableError("document storage is not configured", nil))
		return
	}

	data, err := h.source.Fetch(r.Context(), req.Path)
	if err != nil {
		writeAppError(w, err)
		return
	}
	if err := h.session.OpenDocument(r.Context(), bytes.NewReader(data)); err != nil {
		writeAppError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, h.session.State())
}

type pageRequest struct {
	Page int `json:"page"`
}

// SetPage moves to a one-based page number, clamped to the document.
func (h *SessionHandler) SetPage(w http.ResponseWriter, r *http.Request) {
	var req pageRequest
	if err := decodeJSON(r, &req); err != nil {
		writeAppError(w, err)
		return
	}
	h.session.SetDisplayedPage(req.Page)
	writeJSON(w, http.StatusOK, h.session.State())
}

func (h *SessionHandler) NextPage(w http.ResponseWriter, r *http.Request) {
	h.session.NextPage()
	writeJSON(w, http.StatusOK, h.session.State())
}

func (h *SessionHandler) PreviousPage(w http.ResponseWriter, r *http.Request) {
	h.session.PreviousPage()
	writeJSON(w, http.StatusOK, h.session.State())
}

type modeRequest struct {
	Mode string `json:"mode"`
}

func (h *SessionHandler) SetZoomMode(w http.ResponseWriter, r *http.Request) {
	var req modeRequest
	if err := decodeJSON(r, &req); err != nil {
		writeAppError(w, err)
		return
	}
	mode, ok := domain.ParseZoomMode(req.Mode)
	if !ok {
		writeError(w, http.StatusBadRequest, "Unknown zoom mode")
		return
	}
	h.session.SetZoomMode(mode)
	writeJSON(w, http.StatusOK, h.session.State())
}

func (h *SessionHandler) ZoomIn(w http.ResponseWriter, r *http.Request) {
	h.session.ZoomIn()
	writeJSON(w, http.StatusOK, h.session.State())
}

func (h *SessionHandler) ZoomOut(w http.ResponseWriter, r *http.Request) {
	h.session.ZoomOut()
	writeJSON(w, http.StatusOK, h.session.State())
}

type rotateRequest struct {
	Direction string `json:"direction"`
}

func (h *SessionHandler) Rotate(w http.ResponseWriter, r *http.Request) {
	var req rotateRequest
	if err := decodeJSON(r, &req); err != nil {
		writeAppError(w, err)
		return
	}
	dir, ok := domain.ParseRotateDirection(req.Direction)
	if !ok {
		writeError(w, http.StatusBadRequest, "Unknown rotate direction")
		return
	}
	h.session.Rotate(dir)
	writeJSON(w, http.StatusOK, h.session.State())
}

func (h *SessionHandler) SetDisplayMode(w http.ResponseWriter, r *http.Request) {
	var req modeRequest
	if err := decodeJSON(r, &req); err != nil {
		writeAppError(w, err)
		return
	}
	mode, ok := domain.ParseDisplayMode(req.Mode)
	if !ok {
		writeError(w, http.StatusBadRequest, "Unknown display mode")
		return
	}
	h.session.SetDisplayMode(mode)
	writeJSON(w, http.StatusOK, h.session.State())
}

type renderFlagsResponse struct {
	Value uint32   `json:"value"`
	Flags []string `json:"flags"`
}

func flagsResponse(flags domain.RenderFlags) renderFlagsResponse {
	return renderFlagsResponse{Value: uint32(flags), Flags: flags.Names()}
}

// ToggleRenderFlag flips the flag named in the path.
func (h *SessionHandler) ToggleRenderFlag(w http.ResponseWriter, r *http.Request) {
	flag, ok := domain.ParseRenderFlag(mux.Vars(r)["flag"])
	if !ok {
		writeError(w, http.StatusBadRequest, "Unknown render flag")
		return
	}
	h.session.ToggleRenderFlag(flag)
	writeJSON(w, http.StatusOK, flagsResponse(h.session.RenderFlags()))
}

func (h *SessionHandler) GetRenderFlags(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, flagsResponse(h.session.RenderFlags()))
}

type sweepResponse struct {
	Steps      int   `json:"steps"`
	PageStep   int   `json:"page_step"`
	LastPage   int   `json:"last_page"`
	PageCount  int   `json:"page_count"`
	DurationMS int64 `json:"duration_ms"`
}

// RunSweep renders every page of the document and reports when done. A client
// that disconnects stops the sweep without latching cancellation.
func (h *SessionHandler) RunSweep(w http.ResponseWriter, r *http.Request) {
	result, err := h.session.RunFullSweepRender(r.Context())
	if err != nil {
		if r.Context().Err() != nil {
			return
		}
		writeAppError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sweepResponse{
		Steps:      result.Steps,
		PageStep:   result.PageStep,
		LastPage:   result.LastPage + 1,
		PageCount:  result.PageCount,
		DurationMS: result.Duration.Milliseconds(),
	})
}

func (h *SessionHandler) CancelSweep(w http.ResponseWriter, r *http.Request) {
	h.session.CancelSweep()
	writeJSON(w, http.StatusAccepted, h.session.State())
}

func (h *SessionHandler) ResetSweep(w http.ResponseWriter, r *http.Request) {
	h.session.ResetSweep()
	writeJSON(w, http.StatusOK, h.session.State())
}

type metadataResponse struct {
	Metadata domain.Metadata `json:"metadata"`
	Report   string          `json:"report"`
}

func (h *SessionHandler) GetMetadata(w http.ResponseWriter, r *http.Request) {
	meta, err := h.session.FetchMetadata()
	if err != nil {
		writeAppError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, metadataResponse{Metadata: meta, Report: meta.Report()})
}

type pageTextResponse struct {
	Page    int    `json:"page"`
	Caption string `json:"caption"`
	Text    string `json:"text"`
}

func textResponse(p domain.PageText) pageTextResponse {
	return pageTextResponse{Page: p.PageIndex + 1, Caption: p.Caption(), Text: p.Text}
}

func (h *SessionHandler) GetCurrentPageText(w http.ResponseWriter, r *http.Request) {
	page, err := h.session.CurrentPageText()
	if err != nil {
		writeAppError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, textResponse(page))
}

func (h *SessionHandler) GetPageText(w http.ResponseWriter, r *http.Request) {
	index, err := pageIndexFromPath(r)
	if err != nil {
		writeAppError(w, err)
		return
	}
	text, err := h.session.FetchPageText(index)
	if err != nil {
		writeAppError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, textResponse(domain.PageText{PageIndex: index, Text: text}))
}

// GetPageImage streams the rendered page as PNG. An optional width query
// parameter downsizes it to a thumbnail.
func (h *SessionHandler) GetPageImage(w http.ResponseWriter, r *http.Request) {
	index, err := pageIndexFromPath(r)
	if err != nil {
		writeAppError(w, err)
		return
	}
	width := 0
	if raw := r.URL.Query().Get("width"); raw != "" {
		width, err = strconv.Atoi(raw)
		if err != nil || width <= 0 {
			writeError(w, http.StatusBadRequest, "Invalid width")
			return
		}
	}

	img, err := h.session.RenderPage(index)
	if err != nil {
		writeAppError(w, err)
		return
	}
	if width > 0 {
		img = engine.Thumbnail(img, width)
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		h.logger.Error("Failed to encode page image", err, "page", index+1)
		writeError(w, http.StatusInternalServerError, "Failed to encode image")
		return
	}
	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(buf.Bytes())
}

type searchRequest struct {
	Term      string `json:"term"`
	MatchCase bool   `json:"match_case"`
	WholeWord bool   `json:"whole_word"`
}

func (h *SessionHandler) Search(w http.ResponseWriter, r *http.Request) {
	var req searchRequest
	if err := decodeJSON(r, &req); err != nil {
		writeAppError(w, err)
		return
	}
	report, err := h.session.RunSearch(req.Term, req.MatchCase, req.WholeWord)
	if err != nil {
		writeAppError(w, err)
		return
	}
	if report.Matches == nil {
		report.Matches = make([]domain.SearchMatch, 0)
	}
	if report.Lines == nil {
		report.Lines = make([]string, 0)
	}
	writeJSON(w, http.StatusOK, report)
}

func (h *SessionHandler) ToggleSearchPanel(w http.ResponseWriter, r *http.Request) {
	h.session.ToggleSearchPanel()
	writeJSON(w, http.StatusOK, h.session.State())
}
