package handler

import (
	"net/http"
	"time"

	"pdf-view-session/internal/domain"

	"github.com/go-chi/httprate"
	"github.com/gorilla/mux"
	"github.com/rs/cors"
)

// NewRouter creates a new HTTP router with all routes configured
func NewRouter(
	config domain.Config,
	sessionHandler *SessionHandler,
	streamHandler *StreamHandler,
	authMiddleware func(http.Handler) http.Handler,
) http.Handler {
	router := mux.NewRouter()

	// Health check endpoint (no auth required)
	router.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok","service":"pdf-view-session"}`))
	}).Methods("GET")

	// API prefix
	api := router.PathPrefix("/api/v1/session").Subrouter()
	if limit := config.GetRateLimitPerMinute(); limit > 0 {
		api.Use(httprate.LimitByIP(limit, time.Minute))
	}
	api.Use(authMiddleware)

	api.HandleFunc("", sessionHandler.GetState).Methods("GET")
	api.Handle("/stream", streamHandler).Methods("GET")

	// Document
	api.HandleFunc("/document", sessionHandler.UploadDocument).Methods("POST")
	api.HandleFunc("/document/storage", sessionHandler.OpenFromStorage).Methods("POST")

	// Navigation and view
	api.HandleFunc("/page", sessionHandler.SetPage).Methods("PUT")
	api.HandleFunc("/page/next", sessionHandler.NextPage).Methods("POST")
	api.HandleFunc("/page/previous", sessionHandler.PreviousPage).Methods("POST")
	api.HandleFunc("/zoom", sessionHandler.SetZoomMode).Methods("PUT")
	api.HandleFunc("/zoom/in", sessionHandler.ZoomIn).Methods("POST")
	api.HandleFunc("/zoom/out", sessionHandler.ZoomOut).Methods("POST")
	api.HandleFunc("/rotate", sessionHandler.Rotate).Methods("POST")
	api.HandleFunc("/display-mode", sessionHandler.SetDisplayMode).Methods("PUT")
	api.HandleFunc("/render-flags", sessionHandler.GetRenderFlags).Methods("GET")
	api.HandleFunc("/render-flags/{flag}/toggle", sessionHandler.ToggleRenderFlag).Methods("POST")

	// Sweep
	api.HandleFunc("/sweep", sessionHandler.RunSweep).Methods("POST")
	api.HandleFunc("/sweep", sessionHandler.CancelSweep).Methods("DELETE")
	api.HandleFunc("/sweep/reset", sessionHandler.ResetSweep).Methods("POST")

	// Content
	api.HandleFunc("/metadata", sessionHandler.GetMetadata).Methods("GET")
	api.HandleFunc("/pages/current/text", sessionHandler.GetCurrentPageText).Methods("GET")
	api.HandleFunc("/pages/{page:[0-9]+}/text", sessionHandler.GetPageText).Methods("GET")
	api.HandleFunc("/pages/{page:[0-9]+}/image", sessionHandler.GetPageImage).Methods("GET")

	// Search
	api.HandleFunc("/search", sessionHandler.Search).Methods("POST")
	api.HandleFunc("/search/panel/toggle", sessionHandler.ToggleSearchPanel).Methods("POST")

	// Configure CORS
	c := cors.New(cors.Options{
		AllowedOrigins: config.GetAllowedOrigins(),
		AllowedMethods: []string{
			http.MethodGet,
			http.MethodPost,
			http.MethodPut,
			http.MethodDelete,
			http.MethodOptions,
		},
		AllowedHeaders: []string{
			"Accept",
			"Authorization",
			"Content-Type",
		},
		AllowCredentials: true,
		MaxAge:           300, // Maximum value not ignored by any of major browsers
	})

	return c.Handler(router)
}
