package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"trip-expense-service/internal/auth"
	"trip-expense-service/internal/models"
	"trip-expense-service/internal/services"
)

type ExpenseHandler struct {
	expenseService *services.ExpenseService
	costService    *services.CostService
	cashService    *services.CashService
}

func NewExpenseHandler(expenseService *services.ExpenseService, costService *services.CostService, cashService *services.CashService) *ExpenseHandler {
	return &ExpenseHandler{
		expenseService: expenseService,
		costService:    costService,
		cashService:    cashService,
	}
}

func (h *ExpenseHandler) Create(w http.ResponseWriter, r *http.Request) {
	principal, err := auth.PrincipalFromContext(r.Context())
	if err != nil {
		respondWithError(w, http.StatusUnauthorized, err.Error())
		return
	}

	var input services.ExpenseInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request payload")
		return
	}

	created, err := h.expenseService.Create(r.Context(), principal, input)
	if err != nil {
		respondWithServiceError(w, err)
		return
	}
	respondWithJSON(w, http.StatusCreated, created)
}

func (h *ExpenseHandler) ListByAccount(w http.ResponseWriter, r *http.Request) {
	accountID, err := strconv.ParseInt(r.URL.Query().Get("accountId"), 10, 64)
	if err != nil || accountID <= 0 {
		respondWithError(w, http.StatusBadRequest, "accountId query parameter is required")
		return
	}
	expenses, err := h.expenseService.GetByAccount(r.Context(), accountID)
	if err != nil {
		respondWithServiceError(w, err)
		return
	}
	respondWithJSON(w, http.StatusOK, expenses)
}

func (h *ExpenseHandler) GetByID(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		respondWithServiceError(w, err)
		return
	}
	expense, err := h.expenseService.GetByID(r.Context(), id)
	if err != nil {
		respondWithServiceError(w, err)
		return
	}
	respondWithJSON(w, http.StatusOK, expense)
}

func (h *ExpenseHandler) Update(w http.ResponseWriter, r *http.Request) {
	principal, err := auth.PrincipalFromContext(r.Context())
	if err != nil {
		respondWithError(w, http.StatusUnauthorized, err.Error())
		return
	}
	id, err := pathID(r)
	if err != nil {
		respondWithServiceError(w, err)
		return
	}

	var input services.ExpenseInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request payload")
		return
	}

	updated, err := h.expenseService.Update(r.Context(), principal, id, input)
	if err != nil {
		respondWithServiceError(w, err)
		return
	}
	respondWithJSON(w, http.StatusOK, updated)
}

func (h *ExpenseHandler) Delete(w http.ResponseWriter, r *http.Request) {
	principal, err := auth.PrincipalFromContext(r.Context())
	if err != nil {
		respondWithError(w, http.StatusUnauthorized, err.Error())
		return
	}
	id, err := pathID(r)
	if err != nil {
		respondWithServiceError(w, err)
		return
	}
	if err := h.expenseService.Delete(r.Context(), principal, id); err != nil {
		respondWithServiceError(w, err)
		return
	}
	respondWithJSON(w, http.StatusOK, SuccessResponse{Message: "Deleted"})
}

func (h *ExpenseHandler) AttachReceipt(w http.ResponseWriter, r *http.Request) {
	principal, err := auth.PrincipalFromContext(r.Context())
	if err != nil {
		respondWithError(w, http.StatusUnauthorized, err.Error())
		return
	}
	id, err := pathID(r)
	if err != nil {
		respondWithServiceError(w, err)
		return
	}

	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid multipart payload")
		return
	}
	file, _, err := r.FormFile("file")
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "A file field named 'file' is required")
		return
	}
	defer file.Close()

	key, err := h.expenseService.AttachReceipt(r.Context(), principal, id, file)
	if err != nil {
		respondWithServiceError(w, err)
		return
	}
	respondWithJSON(w, http.StatusOK, map[string]string{"receiptKey": key})
}

func (h *ExpenseHandler) DownloadReceipt(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		respondWithServiceError(w, err)
		return
	}

	key, body, err := h.expenseService.DownloadReceipt(r.Context(), id)
	if err != nil {
		respondWithServiceError(w, err)
		return
	}
	defer body.Close()

	w.Header().Set("Content-Type", "application/octet-stream")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", key))
	w.WriteHeader(http.StatusOK)
	if _, err := io.Copy(w, body); err != nil && !errors.Is(err, models.ErrNotFound) {
		// Headers are gone; nothing useful left to send.
		return
	}
}

func (h *ExpenseHandler) DeleteReceipt(w http.ResponseWriter, r *http.Request) {
	principal, err := auth.PrincipalFromContext(r.Context())
	if err != nil {
		respondWithError(w, http.StatusUnauthorized, err.Error())
		return
	}
	id, err := pathID(r)
	if err != nil {
		respondWithServiceError(w, err)
		return
	}
	if err := h.expenseService.DeleteReceipt(r.Context(), principal, id); err != nil {
		respondWithServiceError(w, err)
		return
	}
	respondWithJSON(w, http.StatusOK, SuccessResponse{Message: "Deleted"})
}

func (h *ExpenseHandler) CreateCost(w http.ResponseWriter, r *http.Request) {
	principal, err := auth.PrincipalFromContext(r.Context())
	if err != nil {
		respondWithError(w, http.StatusUnauthorized, err.Error())
		return
	}

	var input services.CostInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request payload")
		return
	}

	created, err := h.costService.Create(r.Context(), principal, input)
	if err != nil {
		respondWithServiceError(w, err)
		return
	}
	respondWithJSON(w, http.StatusCreated, created)
}

func (h *ExpenseHandler) ListCostsByBudget(w http.ResponseWriter, r *http.Request) {
	budgetID, err := strconv.ParseInt(r.URL.Query().Get("budgetId"), 10, 64)
	if err != nil || budgetID <= 0 {
		respondWithError(w, http.StatusBadRequest, "budgetId query parameter is required")
		return
	}
	costs, err := h.costService.GetByBudget(r.Context(), budgetID)
	if err != nil {
		respondWithServiceError(w, err)
		return
	}
	respondWithJSON(w, http.StatusOK, costs)
}

func (h *ExpenseHandler) UpdateCost(w http.ResponseWriter, r *http.Request) {
	principal, err := auth.PrincipalFromContext(r.Context())
	if err != nil {
		respondWithError(w, http.StatusUnauthorized, err.Error())
		return
	}
	id, err := pathID(r)
	if err != nil {
		respondWithServiceError(w, err)
		return
	}

	var input services.CostInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request payload")
		return
	}

	updated, err := h.costService.Update(r.Context(), principal, id, input)
	if err != nil {
		respondWithServiceError(w, err)
		return
	}
	respondWithJSON(w, http.StatusOK, updated)
}

func (h *ExpenseHandler) DeleteCost(w http.ResponseWriter, r *http.Request) {
	principal, err := auth.PrincipalFromContext(r.Context())
	if err != nil {
		respondWithError(w, http.StatusUnauthorized, err.Error())
		return
	}
	id, err := pathID(r)
	if err != nil {
		respondWithServiceError(w, err)
		return
	}
	if err := h.costService.Delete(r.Context(), principal, id); err != nil {
		respondWithServiceError(w, err)
		return
	}
	respondWithJSON(w, http.StatusOK, SuccessResponse{Message: "Deleted"})
}

func (h *ExpenseHandler) CashBalances(w http.ResponseWriter, r *http.Request) {
	principal, err := auth.PrincipalFromContext(r.Context())
	if err != nil {
		respondWithError(w, http.StatusUnauthorized, err.Error())
		return
	}
	balances, err := h.cashService.AvailableBalances(r.Context(), principal)
	if err != nil {
		respondWithServiceError(w, err)
		return
	}
	respondWithJSON(w, http.StatusOK, balances)
}
