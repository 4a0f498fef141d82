package handlers

import (
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/moevm/nosql1h25-mldata/pkg/middleware"
	"github.com/moevm/nosql1h25-mldata/pkg/models"
	"github.com/moevm/nosql1h25-mldata/pkg/services"
)

// maxUploadBytes caps the in-memory portion of multipart parsing.
const maxUploadBytes = 64 << 20

// ============================================================================
// Request/Response Types
// ============================================================================

// DatasetListResponse for GET /api/datasets
type DatasetListResponse struct {
	Datasets []models.DatasetBrief `json:"datasets"`
	Total    int                   `json:"total"`
}

// DatasetResponse for single-dataset endpoints.
type DatasetResponse struct {
	Dataset *models.Dataset `json:"dataset"`
	Warning string          `json:"warning,omitempty"`
}

// GraphsResponse for GET /api/datasets/{id}/graphs
type GraphsResponse struct {
	Graphs []models.Graph `json:"graphs"`
}

// ============================================================================
// Handler
// ============================================================================

// DatasetHandler handles dataset HTTP requests.
type DatasetHandler struct {
	datasetService  services.DatasetService
	activityService services.ActivityService
	logger          *zap.Logger
}

// NewDatasetHandler creates a new dataset handler.
func NewDatasetHandler(
	datasetService services.DatasetService,
	activityService services.ActivityService,
	logger *zap.Logger,
) *DatasetHandler {
	return &DatasetHandler{
		datasetService:  datasetService,
		activityService: activityService,
		logger:          logger,
	}
}

// RegisterRoutes registers the dataset handler's routes on the given mux.
func (h *DatasetHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/datasets", h.List)
	mux.HandleFunc("POST /api/datasets", h.Create)
	mux.HandleFunc("GET /api/datasets/{id}", h.Get)
	mux.HandleFunc("PUT /api/datasets/{id}", h.Update)
	mux.HandleFunc("DELETE /api/datasets/{id}", h.Delete)
	mux.HandleFunc("GET /api/datasets/{id}/download", h.Download)
	mux.HandleFunc("GET /api/datasets/{id}/preview", h.Preview)
	mux.HandleFunc("GET /api/datasets/{id}/activity", h.Activity)
	mux.HandleFunc("GET /api/datasets/{id}/graphs", h.Graphs)
}

// List handles GET /api/datasets
func (h *DatasetHandler) List(w http.ResponseWriter, r *http.Request) {
	fv, err := models.ParseFilterValues(r.URL.Query(), time.Now())
	if err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid_filter", err.Error())
		return
	}

	briefs, err := h.datasetService.ListBriefs(r.Context(), fv)
	if err != nil {
		h.logger.Error("Failed to list datasets", zap.Error(err))
		h.respondServiceError(w, err)
		return
	}

	h.writeJSON(w, http.StatusOK, DatasetListResponse{Datasets: briefs, Total: len(briefs)})
}

// Create handles POST /api/datasets
func (h *DatasetHandler) Create(w http.ResponseWriter, r *http.Request) {
	form, ok := h.parseForm(w, r, true)
	if !ok {
		return
	}

	actor := middleware.ActorFromContext(r.Context())
	dataset, err := h.datasetService.Create(r.Context(), form, actor)
	if err != nil {
		h.logger.Error("Failed to create dataset",
			zap.String("name", form.Name),
			zap.Error(err))
		h.respondServiceError(w, err)
		return
	}

	h.writeJSON(w, http.StatusCreated, DatasetResponse{Dataset: dataset})
}

// Get handles GET /api/datasets/{id}
func (h *DatasetHandler) Get(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	dataset, err := h.datasetService.Get(r.Context(), id)
	if err != nil {
		h.respondServiceError(w, err)
		return
	}

	// Viewing the detail page counts as activity. Best effort: a
	// failed increment must not break the page.
	if err := h.activityService.RegisterView(r.Context(), id); err != nil {
		h.logger.Warn("Failed to register view",
			zap.String("dataset_id", id),
			zap.Error(err))
	}

	h.writeJSON(w, http.StatusOK, DatasetResponse{Dataset: dataset})
}

// Update handles PUT /api/datasets/{id}
func (h *DatasetHandler) Update(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	form, ok := h.parseForm(w, r, false)
	if !ok {
		return
	}

	actor := middleware.ActorFromContext(r.Context())
	result, err := h.datasetService.Update(r.Context(), id, form, actor)
	if err != nil {
		h.logger.Error("Failed to update dataset",
			zap.String("dataset_id", id),
			zap.Error(err))
		h.respondServiceError(w, err)
		return
	}

	h.writeJSON(w, http.StatusOK, DatasetResponse{Dataset: result.Dataset, Warning: result.Warning})
}

// Delete handles DELETE /api/datasets/{id}
func (h *DatasetHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	if err := h.datasetService.Delete(r.Context(), id); err != nil {
		h.respondServiceError(w, err)
		return
	}

	h.writeJSON(w, http.StatusOK, nil)
}

// Download handles GET /api/datasets/{id}/download
func (h *DatasetHandler) Download(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	data, filename, err := h.datasetService.Download(r.Context(), id)
	if err != nil {
		h.respondServiceError(w, err)
		return
	}

	if err := h.activityService.RegisterDownload(r.Context(), id); err != nil {
		h.logger.Warn("Failed to register download",
			zap.String("dataset_id", id),
			zap.Error(err))
	}

	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	if _, err := w.Write(data); err != nil {
		h.logger.Error("Failed to write download", zap.Error(err))
	}
}

// Preview handles GET /api/datasets/{id}/preview
func (h *DatasetHandler) Preview(w http.ResponseWriter, r *http.Request) {
	preview, err := h.datasetService.Preview(r.Context(), r.PathValue("id"))
	if err != nil {
		h.respondServiceError(w, err)
		return
	}

	h.writeJSON(w, http.StatusOK, preview)
}

// Activity handles GET /api/datasets/{id}/activity
func (h *DatasetHandler) Activity(w http.ResponseWriter, r *http.Request) {
	series, err := h.activityService.GetSeries(r.Context(), r.PathValue("id"))
	if err != nil {
		h.respondServiceError(w, err)
		return
	}

	h.writeJSON(w, http.StatusOK, series)
}

// Graphs handles GET /api/datasets/{id}/graphs
func (h *DatasetHandler) Graphs(w http.ResponseWriter, r *http.Request) {
	graphs, err := h.datasetService.Graphs(r.Context(), r.PathValue("id"))
	if err != nil {
		h.respondServiceError(w, err)
		return
	}

	h.writeJSON(w, http.StatusOK, GraphsResponse{Graphs: graphs})
}

// ============================================================================
// Helpers
// ============================================================================

// parseForm reads the multipart upload form. The file part is
// required on create and optional on edit.
func (h *DatasetHandler) parseForm(w http.ResponseWriter, r *http.Request, fileRequired bool) (*models.DatasetFormValues, bool) {
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid_request", "Invalid multipart form")
		return nil, false
	}

	form := &models.DatasetFormValues{
		Name:        strings.TrimSpace(r.FormValue("name")),
		Description: strings.TrimSpace(r.FormValue("description")),
	}
	if form.Name == "" {
		h.writeError(w, http.StatusBadRequest, "invalid_request", "Dataset name is required")
		return nil, false
	}

	file, _, err := r.FormFile("file")
	if err != nil {
		if fileRequired {
			h.writeError(w, http.StatusBadRequest, "invalid_request", "CSV file is required")
			return nil, false
		}
		return form, true
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid_request", "Failed to read uploaded file")
		return nil, false
	}
	form.Data = string(data)

	return form, true
}

func (h *DatasetHandler) respondServiceError(w http.ResponseWriter, err error) {
	status, code := StatusForError(err)
	h.writeError(w, status, code, err.Error())
}

func (h *DatasetHandler) writeError(w http.ResponseWriter, status int, code, message string) {
	if err := ErrorResponse(w, status, code, message); err != nil {
		h.logger.Error("Failed to write error response", zap.Error(err))
	}
}

func (h *DatasetHandler) writeJSON(w http.ResponseWriter, status int, data any) {
	if err := WriteJSON(w, status, ApiResponse{Success: true, Data: data}); err != nil {
		h.logger.Error("Failed to write response", zap.Error(err))
	}
}
