package handler

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"strconv"

	"pipenet/internal/codec"
	"pipenet/internal/domain"
	"pipenet/internal/loader"
	"pipenet/internal/service"
)

// DefaultMaxUploadBytes bounds design uploads when no limit is configured
const DefaultMaxUploadBytes = 10 << 20

// DesignHandler handles design run API requests
type DesignHandler struct {
	svc       *service.DesignService
	maxUpload int64
}

// NewDesignHandler creates a new design handler. A non-positive maxUpload
// uses DefaultMaxUploadBytes.
func NewDesignHandler(svc *service.DesignService, maxUpload int64) *DesignHandler {
	if maxUpload <= 0 {
		maxUpload = DefaultMaxUploadBytes
	}
	return &DesignHandler{svc: svc, maxUpload: maxUpload}
}

// Register adds the design routes to mux
func (h *DesignHandler) Register(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/designs", h.CreateDesign)
	mux.HandleFunc("GET /api/designs", h.ListDesigns)
	mux.HandleFunc("GET /api/designs/{id}", h.GetDesign)
	mux.HandleFunc("DELETE /api/designs/{id}", h.DeleteDesign)
	mux.HandleFunc("GET /api/designs/{id}/export/{format}", h.ExportDesign)
	mux.HandleFunc("GET /api/formats", h.ListFormats)
	mux.HandleFunc("GET /healthz", h.Health)
}

// ErrorResponse is the body of every failed request
type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
	RunID   string `json:"run_id,omitempty"`
}

// CreateDesign loads the uploaded design document, solves it and stores
// the run. The document format follows the Content-Type header.
func (h *DesignHandler) CreateDesign(w http.ResponseWriter, r *http.Request) {
	req, err := parseDesignRequest(r)
	if err != nil {
		h.writeError(w, "Invalid request", err.Error(), http.StatusBadRequest)
		return
	}

	data, err := io.ReadAll(http.MaxBytesReader(w, r.Body, h.maxUpload))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			h.writeError(w, "Design too large", fmt.Sprintf("limit is %d bytes", tooLarge.Limit), http.StatusRequestEntityTooLarge)
			return
		}
		h.writeError(w, "Failed to read request body", err.Error(), http.StatusBadRequest)
		return
	}

	design, err := loader.Parse(data, loader.Format(req.Format))
	if err != nil {
		h.writeError(w, "Failed to parse design", err.Error(), http.StatusBadRequest)
		return
	}

	run, err := h.svc.Run(r.Context(), design, req.runOptions())
	if err != nil {
		log.Printf("Failed to run design %q: %v", design.Name, err)
		switch {
		case run != nil:
			h.writeError(w, "Design could not be solved", err.Error(), http.StatusUnprocessableEntity, run.ID)
		case errors.Is(err, domain.ErrCycleDetected), errors.Is(err, domain.ErrNoData):
			h.writeError(w, "Design could not be solved", err.Error(), http.StatusUnprocessableEntity)
		default:
			h.writeError(w, "Failed to run design", err.Error(), http.StatusInternalServerError)
		}
		return
	}

	w.Header().Set("Location", "/api/designs/"+run.ID)
	h.writeJSON(w, run, http.StatusCreated)
}

// ListDesigns returns stored runs newest first
func (h *DesignHandler) ListDesigns(w http.ResponseWriter, r *http.Request) {
	limit, err := parseLimit(r)
	if err != nil {
		h.writeError(w, "Invalid request", err.Error(), http.StatusBadRequest)
		return
	}

	runs, err := h.svc.ListRuns(r.Context(), limit)
	if err != nil {
		log.Printf("Failed to list runs: %v", err)
		h.writeError(w, "Failed to list designs", err.Error(), http.StatusInternalServerError)
		return
	}

	h.writeJSON(w, runs, http.StatusOK)
}

// GetDesign returns a stored run with its snapshot
func (h *DesignHandler) GetDesign(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	run, err := h.svc.GetRun(r.Context(), id)
	if err != nil {
		h.writeLookupError(w, "Failed to get design", err)
		return
	}

	h.writeJSON(w, run, http.StatusOK)
}

// DeleteDesign removes a stored run
func (h *DesignHandler) DeleteDesign(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	if err := h.svc.DeleteRun(r.Context(), id); err != nil {
		h.writeLookupError(w, "Failed to delete design", err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// ExportDesign writes a stored run in the requested format
func (h *DesignHandler) ExportDesign(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	format := r.PathValue("format")

	if _, err := codec.ForFormat(format); err != nil {
		h.writeError(w, "Unsupported export format", err.Error(), http.StatusBadRequest)
		return
	}

	// Buffer so a failed export still gets a JSON error response
	var buf bytes.Buffer
	contentType, err := h.svc.Export(r.Context(), id, format, &buf)
	if err != nil {
		h.writeLookupError(w, "Failed to export design", err)
		return
	}

	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", id+"."+format))
	w.WriteHeader(http.StatusOK)
	if _, err := buf.WriteTo(w); err != nil {
		log.Printf("Failed to write export of %s: %v", id, err)
	}
}

// ListFormats returns the supported export formats
func (h *DesignHandler) ListFormats(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, map[string][]string{"formats": codec.Formats()}, http.StatusOK)
}

// Health reports that the server is up
func (h *DesignHandler) Health(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, map[string]string{"status": "ok"}, http.StatusOK)
}

func (h *DesignHandler) writeLookupError(w http.ResponseWriter, msg string, err error) {
	if errors.Is(err, domain.ErrNotFound) {
		h.writeError(w, "Design not found", err.Error(), http.StatusNotFound)
		return
	}
	log.Printf("%s: %v", msg, err)
	h.writeError(w, msg, err.Error(), http.StatusInternalServerError)
}

func (h *DesignHandler) writeJSON(w http.ResponseWriter, data interface{}, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		log.Printf("Failed to encode JSON: %v", err)
	}
}

func (h *DesignHandler) writeError(w http.ResponseWriter, error, details string, statusCode int, runID ...string) {
	resp := ErrorResponse{Error: error, Details: details}
	if len(runID) > 0 {
		resp.RunID = runID[0]
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		log.Printf("Failed to encode error response: %v", err)
	}
}

func parseLimit(r *http.Request) (int, error) {
	raw := r.URL.Query().Get("limit")
	if raw == "" {
		return 0, nil
	}
	limit, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("limit: %q is not an integer", raw)
	}
	if err := validateRequest(listRequest{Limit: limit}); err != nil {
		return 0, err
	}
	return limit, nil
}
