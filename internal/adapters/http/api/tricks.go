package api

import (
	"net/http"

	"github.com/tricktrack/tricktrack/internal/domain/types"
)

type scoreLimits struct {
	Landing    int `json:"landing"`
	Style      int `json:"style"`
	Difficulty int `json:"difficulty"`
}

type tricksResponse struct {
	Tricks        []types.TrickType `json:"tricks"`
	ScoreLimits   scoreLimits       `json:"scoreLimits"`
	MinValidators int               `json:"minValidators"`
}

// handleTricks handles GET /api/v1/tricks.
func (s *Server) handleTricks(w http.ResponseWriter, _ *http.Request) {
	s.writeData(w, http.StatusOK, tricksResponse{
		Tricks:        types.Tricks(),
		ScoreLimits:   scoreLimits{Landing: types.MaxLanding, Style: types.MaxStyle, Difficulty: types.MaxDifficulty},
		MinValidators: s.deps.MinValidators(),
	})
}
