package handlers

import (
	"fmt"
	"net/http"

	"go.uber.org/zap"

	"github.com/moevm/nosql1h25-mldata/pkg/services"
)

// ArchiveHandler handles whole-database export and import.
type ArchiveHandler struct {
	archiveService services.ArchiveService
	logger         *zap.Logger
}

// NewArchiveHandler creates a new archive handler.
func NewArchiveHandler(archiveService services.ArchiveService, logger *zap.Logger) *ArchiveHandler {
	return &ArchiveHandler{
		archiveService: archiveService,
		logger:         logger,
	}
}

// RegisterRoutes registers the archive handler's routes on the given mux.
func (h *ArchiveHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/export", h.Export)
	mux.HandleFunc("POST /api/import", h.Import)
}

// Export handles GET /api/export
func (h *ArchiveHandler) Export(w http.ResponseWriter, r *http.Request) {
	filename, data, err := h.archiveService.Export(r.Context())
	if err != nil {
		h.logger.Error("Export failed", zap.Error(err))
		if err := ErrorResponse(w, http.StatusInternalServerError, "export_failed", err.Error()); err != nil {
			h.logger.Error("Failed to write error response", zap.Error(err))
		}
		return
	}

	w.Header().Set("Content-Type", "application/gzip")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	if _, err := w.Write(data); err != nil {
		h.logger.Error("Failed to write export", zap.Error(err))
	}
}

// Import handles POST /api/import. The uploaded archive replaces the
// whole store, so failures are reported as-is and nothing is applied
// partially.
func (h *ArchiveHandler) Import(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		if err := ErrorResponse(w, http.StatusBadRequest, "invalid_request", "Invalid multipart form"); err != nil {
			h.logger.Error("Failed to write error response", zap.Error(err))
		}
		return
	}

	file, _, err := r.FormFile("archive")
	if err != nil {
		if err := ErrorResponse(w, http.StatusBadRequest, "invalid_request", "Archive file is required"); err != nil {
			h.logger.Error("Failed to write error response", zap.Error(err))
		}
		return
	}
	defer file.Close()

	if err := h.archiveService.Import(r.Context(), file); err != nil {
		h.logger.Error("Import failed", zap.Error(err))
		if err := ErrorResponse(w, http.StatusBadRequest, "import_failed", err.Error()); err != nil {
			h.logger.Error("Failed to write error response", zap.Error(err))
		}
		return
	}

	if err := WriteJSON(w, http.StatusOK, ApiResponse{Success: true}); err != nil {
		h.logger.Error("Failed to write response", zap.Error(err))
	}
}
