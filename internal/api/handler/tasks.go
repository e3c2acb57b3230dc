package handler

import (
	"errors"
	"io"
	"net/http"

	"github.com/hankstank/mlb-data/internal/api/respond"
	"github.com/hankstank/mlb-data/internal/collect"
)

// maxTaskBody bounds a task payload.
const maxTaskBody = 64 << 10

// CollectSeason fans a season of pitch collection out into month tasks.
// @Summary Collect a season of pitch data
// @Description Enqueues one task per season month (one in test mode) and returns without waiting.
// @Tags collect
// @Produce json
// @Param year query int true "Season"
// @Param testMode query bool false "Collect a single month"
// @Success 202 {object} collect.Report
// @Failure 400 {object} respond.ErrorResponse
// @Router /api/v1/collect/season [post]
func (h *Handler) CollectSeason(w http.ResponseWriter, r *http.Request) {
	year, err := yearParam(r, "year")
	if err != nil {
		h.writeErr(w, r, err)
		return
	}
	rep, err := h.FanOut.CreateSeasonCollectionTasks(r.Context(), year, boolParam(r, "testMode"))
	if err != nil {
		h.writeErr(w, r, err)
		return
	}
	respond.WriteJSONObject(w, http.StatusAccepted, rep)
}

// ProcessMonth is the task queue's delivery endpoint. 200 means processed
// (including an empty range), 400 means the payload can never succeed and
// 500 asks the queue to redeliver.
// @Summary Process a collection task
// @Tags collect
// @Accept json
// @Produce json
// @Param task body collect.Task true "Task payload"
// @Success 200 {object} collect.Outcome
// @Failure 400 {object} respond.ErrorResponse
// @Failure 500 {object} respond.ErrorResponse
// @Router /tasks/process-month [post]
func (h *Handler) ProcessMonth(w http.ResponseWriter, r *http.Request) {
	payload, err := io.ReadAll(io.LimitReader(r.Body, maxTaskBody))
	if err != nil {
		respond.WriteError(w, http.StatusInternalServerError, "PROCESSING_FAILED", "Could not read task payload")
		return
	}

	out, err := h.Processor.Handle(r.Context(), payload)
	switch {
	case errors.Is(err, collect.ErrInvalidPayload):
		respond.WriteErrorDetail(w, http.StatusBadRequest, "INVALID_PAYLOAD", "Task payload is invalid", err.Error())
	case err != nil:
		respond.WriteErrorDetail(w, http.StatusInternalServerError, "PROCESSING_FAILED", "Task processing failed, retry", err.Error())
	default:
		respond.WriteJSONObject(w, http.StatusOK, out)
	}
}
