package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"
	"sync"

	"github.com/gorilla/mux"

	"trip-expense-service/internal/synccache"
)

// SyncHandler exposes the offline cache: record reads/writes against the
// cache plus the replay endpoint that drains the queues into the database.
// Only one replay runs at a time.
type SyncHandler struct {
	syncService  *synccache.SyncService
	replayMutex  sync.Mutex
	replayActive bool
}

func NewSyncHandler(syncService *synccache.SyncService) *SyncHandler {
	return &SyncHandler{syncService: syncService}
}

type syncRecordRequest struct {
	Payload json.RawMessage `json:"payload"`
}

func (h *SyncHandler) CreateRecord(w http.ResponseWriter, r *http.Request) {
	collection := mux.Vars(r)["collection"]

	var request syncRecordRequest
	if err := json.NewDecoder(r.Body).Decode(&request); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request payload")
		return
	}
	if len(request.Payload) == 0 {
		respondWithError(w, http.StatusBadRequest, "A payload is required")
		return
	}

	id, err := h.syncService.RecordCreate(r.Context(), collection, request.Payload)
	if err != nil {
		respondWithServiceError(w, err)
		return
	}
	respondWithJSON(w, http.StatusCreated, map[string]int64{"id": id})
}

func (h *SyncHandler) GetRecord(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	collection := vars["collection"]
	id, err := strconv.ParseInt(vars["id"], 10, 64)
	if err != nil || id <= 0 {
		respondWithError(w, http.StatusBadRequest, "Invalid id")
		return
	}

	payload, err := h.syncService.GetRecord(r.Context(), collection, id)
	if err != nil {
		respondWithServiceError(w, err)
		return
	}
	respondWithJSON(w, http.StatusOK, map[string]json.RawMessage{"payload": payload})
}

func (h *SyncHandler) UpdateRecord(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	collection := vars["collection"]
	id, err := strconv.ParseInt(vars["id"], 10, 64)
	if err != nil || id <= 0 {
		respondWithError(w, http.StatusBadRequest, "Invalid id")
		return
	}

	var request syncRecordRequest
	if err := json.NewDecoder(r.Body).Decode(&request); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request payload")
		return
	}
	if len(request.Payload) == 0 {
		respondWithError(w, http.StatusBadRequest, "A payload is required")
		return
	}

	if err := h.syncService.RecordUpdate(r.Context(), collection, id, request.Payload); err != nil {
		respondWithServiceError(w, err)
		return
	}
	respondWithJSON(w, http.StatusOK, SuccessResponse{Message: "Updated"})
}

func (h *SyncHandler) DeleteRecord(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	collection := vars["collection"]
	id, err := strconv.ParseInt(vars["id"], 10, 64)
	if err != nil || id <= 0 {
		respondWithError(w, http.StatusBadRequest, "Invalid id")
		return
	}

	if err := h.syncService.RecordDelete(r.Context(), collection, id); err != nil {
		respondWithServiceError(w, err)
		return
	}
	respondWithJSON(w, http.StatusOK, SuccessResponse{Message: "Deleted"})
}

func (h *SyncHandler) Replay(w http.ResponseWriter, r *http.Request) {
	h.replayMutex.Lock()
	if h.replayActive {
		h.replayMutex.Unlock()
		respondWithError(w, http.StatusConflict, "A replay is already in progress")
		return
	}
	h.replayActive = true
	h.replayMutex.Unlock()

	defer func() {
		h.replayMutex.Lock()
		h.replayActive = false
		h.replayMutex.Unlock()
	}()

	result, err := h.syncService.Replay(r.Context())
	if err != nil {
		respondWithServiceError(w, err)
		return
	}
	respondWithJSON(w, http.StatusOK, result)
}
