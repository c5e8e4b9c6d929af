package competitionhandlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	competitionservice "github.com/beatclash/beatclash/app/modules/competition/application"
	competitionscheduler "github.com/beatclash/beatclash/app/modules/competition/infrastructure/scheduler"
	bcjwt "github.com/beatclash/beatclash/pkg/jwt"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

const maxBodyBytes = 1 << 20

func decodeBody(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return badRequest(fmt.Sprintf("invalid request body: %v", err))
	}
	return nil
}

func pathID(r *http.Request) (uuid.UUID, error) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		return uuid.Nil, badRequest("invalid competition id")
	}
	return id, nil
}

func queryInt(r *http.Request, key string, def int) (int, error) {
	v := r.URL.Query().Get(key)
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 1 {
		return 0, badRequest(fmt.Sprintf("%s must be a positive integer", key))
	}
	return n, nil
}

type healthResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks,omitempty"`
}

func (h *CompetitionHandlers) HandleHealth(w http.ResponseWriter, r *http.Request) {
	resp := healthResponse{Status: "ok"}
	code := http.StatusOK
	if len(h.checks) > 0 {
		resp.Checks = make(map[string]string, len(h.checks))
	}
	for name, check := range h.checks {
		if err := check(r.Context()); err != nil {
			h.logger.WarnContext(r.Context(), "Health check failed", slog.String("check", name), slog.Any("error", err))
			resp.Checks[name] = err.Error()
			resp.Status = "unhealthy"
			code = http.StatusServiceUnavailable
			continue
		}
		resp.Checks[name] = "ok"
	}
	writeJSON(w, code, resp)
}

func (h *CompetitionHandlers) HandleListCompetitions(w http.ResponseWriter, r *http.Request) {
	ctx, span := h.tracer.Start(r.Context(), "CompetitionHandlers.HandleListCompetitions")
	defer span.End()

	status := r.URL.Query().Get("status")
	if status == "" {
		writeError(w, badRequest("status is required"))
		return
	}
	page, err := queryInt(r, "page", 1)
	if err != nil {
		writeError(w, err)
		return
	}
	pageSize, err := queryInt(r, "page_size", 50)
	if err != nil {
		writeError(w, err)
		return
	}

	list, err := h.service.ListCompetitionsByStatus(ctx, status, page, pageSize)
	if err != nil {
		h.fail(w, r, "List competitions failed", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"competitions": list,
		"page":         page,
		"page_size":    pageSize,
	})
}

func (h *CompetitionHandlers) HandleGetCompetition(w http.ResponseWriter, r *http.Request) {
	ctx, span := h.tracer.Start(r.Context(), "CompetitionHandlers.HandleGetCompetition")
	defer span.End()

	id, err := pathID(r)
	if err != nil {
		writeError(w, err)
		return
	}
	c, err := h.service.GetCompetition(ctx, id)
	if err != nil {
		h.fail(w, r, "Get competition failed", err)
		return
	}
	writeJSON(w, http.StatusOK, c)
}

type statusRequest struct {
	Status string `json:"status"`
}

func (h *CompetitionHandlers) HandleUpdateStatus(w http.ResponseWriter, r *http.Request) {
	ctx, span := h.tracer.Start(r.Context(), "CompetitionHandlers.HandleUpdateStatus")
	defer span.End()

	id, err := pathID(r)
	if err != nil {
		writeError(w, err)
		return
	}
	var req statusRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, err)
		return
	}

	result, err := h.service.UpdateCompetitionStatus(ctx, id, req.Status)
	if err != nil {
		apiErr := h.logFailure(r, "Status update failed", err)
		if result == nil {
			writeJSON(w, apiErr.Status, apiErr)
			return
		}
		writeJSON(w, apiErr.Status, statusFailureResponse{APIError: apiErr, StatusUpdateResult: result})
		return
	}
	p, _ := PrincipalFromContext(ctx)
	h.logger.InfoContext(ctx, "Competition status updated by admin",
		slog.String("competition_id", id.String()),
		slog.String("admin_id", p.UserID.String()),
		slog.String("from", result.OldStatus.String()),
		slog.String("to", result.NewStatus.String()),
	)
	writeJSON(w, http.StatusOK, result)
}

func (h *CompetitionHandlers) HandleSubmitJudgment(w http.ResponseWriter, r *http.Request) {
	ctx, span := h.tracer.Start(r.Context(), "CompetitionHandlers.HandleSubmitJudgment")
	defer span.End()

	id, err := pathID(r)
	if err != nil {
		writeError(w, err)
		return
	}
	var req competitionservice.JudgmentRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, err)
		return
	}
	req.CompetitionID = id

	// Admins may file a judgment for another judge; everyone else judges as themselves.
	p, _ := PrincipalFromContext(ctx)
	if p.Role != bcjwt.RoleAdmin || req.JudgeID == uuid.Nil {
		req.JudgeID = p.UserID
	}

	result, err := h.service.SubmitJudgment(ctx, req)
	if err != nil {
		h.fail(w, r, "Submit judgment failed", err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

type convertRequest struct {
	JudgeID uuid.UUID `json:"judge_id"`
	Round   int       `json:"round"`
}

func (h *CompetitionHandlers) HandleConvertJudgments(w http.ResponseWriter, r *http.Request) {
	ctx, span := h.tracer.Start(r.Context(), "CompetitionHandlers.HandleConvertJudgments")
	defer span.End()

	id, err := pathID(r)
	if err != nil {
		writeError(w, err)
		return
	}
	var req convertRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, err)
		return
	}
	if req.JudgeID == uuid.Nil {
		writeError(w, badRequest("judge_id is required"))
		return
	}

	result, err := h.service.ConvertJudgments(ctx, id, req.JudgeID, req.Round)
	if err != nil {
		h.fail(w, r, "Convert judgments failed", err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

type votesRequest struct {
	Round   int         `json:"round"`
	Ranking []uuid.UUID `json:"ranking"`
}

func (h *CompetitionHandlers) HandleSubmitVotes(w http.ResponseWriter, r *http.Request) {
	ctx, span := h.tracer.Start(r.Context(), "CompetitionHandlers.HandleSubmitVotes")
	defer span.End()

	id, err := pathID(r)
	if err != nil {
		writeError(w, err)
		return
	}
	var req votesRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, err)
		return
	}
	p, _ := PrincipalFromContext(ctx)

	result, err := h.service.SubmitVotes(ctx, competitionservice.VoteRequest{
		CompetitionID: id,
		VoterID:       p.UserID,
		Round:         req.Round,
		Ranking:       req.Ranking,
	})
	if err != nil {
		h.fail(w, r, "Submit votes failed", err)
		return
	}
	writeJSON(w, http.StatusCreated, result)
}

type picksRequest struct {
	Picks []competitionservice.Pick `json:"picks"`
}

func (h *CompetitionHandlers) HandleRecordPicks(w http.ResponseWriter, r *http.Request) {
	ctx, span := h.tracer.Start(r.Context(), "CompetitionHandlers.HandleRecordPicks")
	defer span.End()

	id, err := pathID(r)
	if err != nil {
		writeError(w, err)
		return
	}
	var req picksRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, err)
		return
	}
	p, _ := PrincipalFromContext(ctx)

	result, err := h.service.RecordSongCreatorPicks(ctx, competitionservice.PicksRequest{
		CompetitionID: id,
		PickedBy:      p.UserID,
		Admin:         p.Role == bcjwt.RoleAdmin,
		Picks:         req.Picks,
	})
	if err != nil {
		h.fail(w, r, "Record picks failed", err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (h *CompetitionHandlers) HandleListJobs(w http.ResponseWriter, r *http.Request) {
	resp := map[string]any{"reports": h.jobs.LastReports()}
	if h.history != nil {
		limit, err := queryInt(r, "limit", 20)
		if err != nil {
			writeError(w, err)
			return
		}
		recent, err := h.history.RecentJobs(r.Context(), limit)
		if err != nil {
			h.fail(w, r, "Failed to list recent jobs", err)
			return
		}
		resp["recent"] = recent
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *CompetitionHandlers) HandleRunJob(w http.ResponseWriter, r *http.Request) {
	ctx, span := h.tracer.Start(r.Context(), "CompetitionHandlers.HandleRunJob")
	defer span.End()

	name := competitionscheduler.JobName(chi.URLParam(r, "job"))
	report, err := h.jobs.Run(ctx, name)
	switch {
	case errors.Is(err, competitionscheduler.ErrUnknownJob):
		writeJSON(w, http.StatusNotFound, &APIError{Code: ErrCodeNotFound, Message: err.Error()})
	case err != nil:
		h.logger.ErrorContext(ctx, "Manual job run failed", slog.String("job", string(name)), slog.Any("error", err))
		writeJSON(w, http.StatusInternalServerError, report)
	case report.Skipped:
		writeJSON(w, http.StatusConflict, report)
	default:
		writeJSON(w, http.StatusOK, report)
	}
}

// fail logs err at a level matching its class and writes the mapped response.
func (h *CompetitionHandlers) fail(w http.ResponseWriter, r *http.Request, msg string, err error) {
	apiErr := h.logFailure(r, msg, err)
	writeJSON(w, apiErr.Status, apiErr)
}

func (h *CompetitionHandlers) logFailure(r *http.Request, msg string, err error) *APIError {
	apiErr := apiErrorFor(err)
	attrs := []any{slog.String("path", r.URL.Path), slog.Any("error", err)}
	if apiErr.Status >= http.StatusInternalServerError {
		h.logger.ErrorContext(r.Context(), msg, attrs...)
	} else {
		h.logger.WarnContext(r.Context(), msg, attrs...)
	}
	return apiErr
}
