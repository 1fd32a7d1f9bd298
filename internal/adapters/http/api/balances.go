package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/tricktrack/tricktrack/internal/domain/model"
)

type balanceResponse struct {
	model.TokenBalance
	Transactions []model.TokenTransaction `json:"transactions"`
	Badges       []model.Badge            `json:"badges"`
}

// handleBalance handles GET /api/v1/balances/{userId}.
func (s *Server) handleBalance(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userId")
	b, err := s.deps.Balance(r.Context(), userID)
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	txs, err := s.deps.Transactions(r.Context(), userID)
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	badges, err := s.deps.Badges(r.Context(), userID)
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	s.writeData(w, http.StatusOK, balanceResponse{TokenBalance: b, Transactions: txs, Badges: badges})
}
