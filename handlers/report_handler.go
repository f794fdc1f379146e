package handlers

import (
	"net/http"

	"github.com/avery-hart/librarysysbackend/database"
)

type ReportHandler struct {
	Reports *database.ReportStore
}

func NewReportHandler(reports *database.ReportStore) *ReportHandler {
	return &ReportHandler{Reports: reports}
}

// Overview serves library-wide aggregate counts and the most borrowed titles.
func (h *ReportHandler) Overview(w http.ResponseWriter, r *http.Request) {
	overview, err := h.Reports.Overview()
	if err != nil {
		WriteAPIError(w, http.StatusInternalServerError, ErrCodeInternal, "Failed to generate overview report")
		return
	}
	writeJSON(w, http.StatusOK, overview)
}

// Catalog serves per-title copy and availability counts.
func (h *ReportHandler) Catalog(w http.ResponseWriter, r *http.Request) {
	entries, err := h.Reports.CatalogSummary()
	if err != nil {
		WriteAPIError(w, http.StatusInternalServerError, ErrCodeInternal, "Failed to generate catalog report")
		return
	}
	writeJSON(w, http.StatusOK, ListResponse{Data: entries, Count: int64(len(entries))})
}
