package handlers

import (
	"net/http"

	"trip-expense-service/internal/auth"
	"trip-expense-service/internal/services"
)

const maxUploadBytes = 16 << 20

// BudgetHandler accepts the fixed-column budget upload as a multipart file,
// CSV or workbook.
type BudgetHandler struct {
	uploadService *services.BudgetUploadService
}

func NewBudgetHandler(uploadService *services.BudgetUploadService) *BudgetHandler {
	return &BudgetHandler{uploadService: uploadService}
}

func (h *BudgetHandler) Upload(w http.ResponseWriter, r *http.Request) {
	principal, err := auth.PrincipalFromContext(r.Context())
	if err != nil {
		respondWithError(w, http.StatusUnauthorized, err.Error())
		return
	}

	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid multipart payload")
		return
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "A file field named 'file' is required")
		return
	}
	defer file.Close()

	rows, err := services.ParseBudgetRows(file, header.Filename)
	if err != nil {
		respondWithError(w, http.StatusBadRequest, err.Error())
		return
	}

	result, err := h.uploadService.Upload(r.Context(), principal, rows)
	if err != nil {
		respondWithServiceError(w, err)
		return
	}

	status := http.StatusOK
	if !result.Success {
		status = http.StatusUnprocessableEntity
	}
	respondWithJSON(w, status, result)
}
