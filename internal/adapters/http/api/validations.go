package api

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/tricktrack/tricktrack/internal/adapters/repository"
	"github.com/tricktrack/tricktrack/internal/domain/model"
	"github.com/tricktrack/tricktrack/internal/domain/types"
)

type createValidationRequest struct {
	SkaterID  string `json:"skaterId"`
	TrickType string `json:"trickType"`
	VideoURL  string `json:"videoUrl"`
}

// submitScoreRequest uses pointers so that a missing sub-score is rejected
// instead of read as zero.
type submitScoreRequest struct {
	ValidatorID string `json:"validatorId"`
	Landing     *int   `json:"landing"`
	Style       *int   `json:"style"`
	Difficulty  *int   `json:"difficulty"`
	Feedback    string `json:"feedback"`
}

func (r submitScoreRequest) score() (model.Score, error) {
	var missing []string
	if r.Landing == nil {
		missing = append(missing, "landing")
	}
	if r.Style == nil {
		missing = append(missing, "style")
	}
	if r.Difficulty == nil {
		missing = append(missing, "difficulty")
	}
	if len(missing) > 0 {
		return model.Score{}, fmt.Errorf("%w: missing %s", ErrBadRequest, strings.Join(missing, ", "))
	}
	return model.Score{
		ValidatorID: r.ValidatorID,
		Landing:     *r.Landing,
		Style:       *r.Style,
		Difficulty:  *r.Difficulty,
		Feedback:    r.Feedback,
	}, nil
}

type failRequest struct {
	Reason string `json:"reason"`
}

type listResponse struct {
	Items []model.Validation `json:"items"`
	Count int                `json:"count"`
}

// handleCreate handles POST /api/v1/validations.
func (s *Server) handleCreate(w http.ResponseWriter, r *http.Request) {
	var req createValidationRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	v, err := s.deps.Create(r.Context(), req.SkaterID, req.TrickType, req.VideoURL)
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	w.Header().Set("Location", BasePath+"/validations/"+v.ID)
	s.writeData(w, http.StatusCreated, v)
}

// handleList handles GET /api/v1/validations?status=&skaterId=&limit=.
func (s *Server) handleList(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	f := repository.Filter{
		SkaterID: strings.TrimSpace(q.Get("skaterId")),
		Limit:    s.maxListLimit,
	}
	if raw := q.Get("status"); raw != "" {
		st, ok := types.ParseStatus(raw)
		if !ok {
			s.writeDomainError(w, r, fmt.Errorf("%w: unknown status %q", ErrBadRequest, raw))
			return
		}
		f.Status = st
	}
	if raw := q.Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			s.writeDomainError(w, r, fmt.Errorf("%w: limit must be a positive integer", ErrBadRequest))
			return
		}
		f.Limit = min(n, s.maxListLimit)
	}

	items, err := s.deps.List(r.Context(), f)
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	if items == nil {
		items = []model.Validation{}
	}
	s.writeData(w, http.StatusOK, listResponse{Items: items, Count: len(items)})
}

// handleGet handles GET /api/v1/validations/{id}.
func (s *Server) handleGet(w http.ResponseWriter, r *http.Request) {
	v, err := s.deps.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	s.writeData(w, http.StatusOK, v)
}

// handleSubmitScore handles POST /api/v1/validations/{id}/scores.
func (s *Server) handleSubmitScore(w http.ResponseWriter, r *http.Request) {
	var req submitScoreRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	score, err := req.score()
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	v, err := s.deps.SubmitScore(r.Context(), chi.URLParam(r, "id"), score)
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	s.writeData(w, http.StatusOK, v)
}

// handleFinalize handles POST /api/v1/validations/{id}/finalize.
func (s *Server) handleFinalize(w http.ResponseWriter, r *http.Request) {
	v, err := s.deps.Finalize(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	s.writeData(w, http.StatusOK, v)
}

// handleFail handles POST /api/v1/validations/{id}/fail. The body is optional.
func (s *Server) handleFail(w http.ResponseWriter, r *http.Request) {
	var req failRequest
	if err := decodeJSON(w, r, &req); err != nil && !errors.Is(err, io.EOF) {
		s.writeDomainError(w, r, err)
		return
	}
	v, err := s.deps.Fail(r.Context(), chi.URLParam(r, "id"), req.Reason)
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	s.writeData(w, http.StatusOK, v)
}
