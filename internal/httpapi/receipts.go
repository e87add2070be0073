package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/kparnell/intentd/internal/executor"
	"github.com/kparnell/intentd/internal/model"
	"github.com/kparnell/intentd/internal/receipts"
)

type executeRequest struct {
	Text           string  `json:"text"`
	RoutingProfile string  `json:"routing_profile"`
	ProfileID      *string `json:"profile_id"`
}

// handleExecute answers 200 with a Receipt, including failure receipts. The
// non-200 cases are 503 when the executor is not initialized and 400 when
// the request body cannot be decoded.
func (h *handler) handleExecute(w http.ResponseWriter, r *http.Request) {
	if h.deps.Executor == nil {
		writeError(w, http.StatusServiceUnavailable, "executor not initialized")
		return
	}

	var req executeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	profile := model.RoutingProfile(req.RoutingProfile)
	switch profile {
	case model.ProfileOffline, model.ProfileBalanced, model.ProfileAccuracy:
	default:
		profile = model.ProfileBalanced
	}

	receipt := h.deps.Executor.Execute(r.Context(), executor.Request{
		UserInput:      req.Text,
		RoutingProfile: profile,
		ProfileID:      req.ProfileID,
	})

	if h.deps.Receipts != nil {
		if err := h.deps.Receipts.Create(r.Context(), receipt); err != nil {
			h.deps.Logger.Error(r.Context(), "persist receipt failed", "receipt_id", receipt.ReceiptID, "error", err)
		}
	}

	writeJSON(w, http.StatusOK, receipt)
}

func (h *handler) handleListReceipts(w http.ResponseWriter, r *http.Request) {
	if h.deps.Receipts == nil {
		writeError(w, http.StatusServiceUnavailable, "receipts store not initialized")
		return
	}

	q := r.URL.Query()
	filter := receipts.ListFilter{
		Status: model.ReceiptStatus(q.Get("status")),
		Limit:  parseIntOr(q.Get("limit"), 50),
		Offset: parseIntOr(q.Get("offset"), 0),
	}
	if filter.Limit <= 0 || filter.Limit > 200 {
		filter.Limit = 200
	}
	if filter.Offset < 0 {
		filter.Offset = 0
	}

	list, err := h.deps.Receipts.List(r.Context(), filter)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "list receipts failed")
		return
	}
	total, err := h.deps.Receipts.Count(r.Context(), filter.Status)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "count receipts failed")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"receipts": list, "total": total})
}

func (h *handler) handleGetReceipt(w http.ResponseWriter, r *http.Request) {
	if h.deps.Receipts == nil {
		writeError(w, http.StatusServiceUnavailable, "receipts store not initialized")
		return
	}
	id := r.PathValue("id")
	receipt, err := h.deps.Receipts.Get(r.Context(), id)
	if err != nil {
		if errors.Is(err, receipts.ErrNotFound) {
			writeError(w, http.StatusNotFound, "receipt not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "get receipt failed")
		return
	}
	writeJSON(w, http.StatusOK, receipt)
}

func (h *handler) handleUndo(w http.ResponseWriter, r *http.Request) {
	if h.deps.Receipts == nil || h.deps.Executor == nil {
		writeError(w, http.StatusServiceUnavailable, "engine not initialized")
		return
	}
	id := r.PathValue("id")
	original, err := h.deps.Receipts.Get(r.Context(), id)
	if err != nil {
		if errors.Is(err, receipts.ErrNotFound) {
			writeError(w, http.StatusNotFound, "receipt not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "get receipt failed")
		return
	}

	synthetic := h.deps.Executor.Undo(r.Context(), original)
	if err := h.deps.Receipts.Create(r.Context(), synthetic); err != nil {
		h.deps.Logger.Error(r.Context(), "persist undo receipt failed", "receipt_id", synthetic.ReceiptID, "error", err)
	}
	writeJSON(w, http.StatusOK, synthetic)
}

type resumeRequest struct {
	ApprovedToolCallIndices []int `json:"approved_tool_call_indices"`
}

func (h *handler) handleResume(w http.ResponseWriter, r *http.Request) {
	if h.deps.Receipts == nil || h.deps.Executor == nil {
		writeError(w, http.StatusServiceUnavailable, "engine not initialized")
		return
	}
	id := r.PathValue("id")
	receipt, err := h.deps.Receipts.Get(r.Context(), id)
	if err != nil {
		if errors.Is(err, receipts.ErrNotFound) {
			writeError(w, http.StatusNotFound, "receipt not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "get receipt failed")
		return
	}

	var req resumeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	updated, err := h.deps.Executor.Resume(r.Context(), receipt, req.ApprovedToolCallIndices)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := h.deps.Receipts.Update(r.Context(), updated); err != nil {
		writeError(w, http.StatusInternalServerError, "update receipt failed")
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

func parseIntOr(s string, defaultVal int) int {
	if s == "" {
		return defaultVal
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return defaultVal
	}
	return n
}
