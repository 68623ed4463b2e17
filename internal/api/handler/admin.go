package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/mcoot/minesgame/internal/api/apierr"
	"github.com/mcoot/minesgame/internal/api/request"
	"github.com/mcoot/minesgame/internal/api/response"
	"github.com/mcoot/minesgame/internal/model"
	"github.com/mcoot/minesgame/internal/settlement"
	"github.com/mcoot/minesgame/internal/transport/ws"
)

// AdminHandler handles operator endpoints
type AdminHandler struct {
	sink   settlement.Sink
	auth   *ws.Authenticator
	logger *slog.Logger
}

// NewAdminHandler creates a new admin handler
func NewAdminHandler(sink settlement.Sink, auth *ws.Authenticator, logger *slog.Logger) *AdminHandler {
	return &AdminHandler{
		sink:   sink,
		auth:   auth,
		logger: logger.With(slog.String("component", "admin")),
	}
}

// ListCreditFailures handles GET /api/v1/admin/credit-failures
func (h *AdminHandler) ListCreditFailures(w http.ResponseWriter, r *http.Request) {
	failures, err := h.sink.PendingCreditFailures(r.Context())
	if err != nil {
		h.logger.Error("failed to list credit failures", slog.String("error", err.Error()))
		apierr.WriteError(w, err)
		return
	}
	response.JSON(w, http.StatusOK, response.CreditFailuresFromModel(failures))
}

// ResolveCreditFailure handles POST /api/v1/admin/credit-failures/{round_id}/resolve
func (h *AdminHandler) ResolveCreditFailure(w http.ResponseWriter, r *http.Request) {
	roundID := model.RoundID(mux.Vars(r)["round_id"])

	if err := h.sink.ResolveCreditFailure(r.Context(), roundID); err != nil {
		apierr.WriteError(w, err)
		return
	}

	h.logger.Info("credit failure resolved", slog.String("round_id", string(roundID)))
	response.NoContent(w)
}

// IssueToken handles POST /api/v1/admin/tokens
func (h *AdminHandler) IssueToken(w http.ResponseWriter, r *http.Request) {
	if h.auth == nil {
		apierr.WriteError(w, apierr.NewInternalError())
		return
	}

	var req request.IssueTokenRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		apierr.WriteError(w, apierr.NewInvalidRequestError("Invalid JSON body"))
		return
	}
	if req.OperatorID == "" || req.UserID == "" {
		apierr.WriteError(w, apierr.NewInvalidRequestError("operator_id and user_id are required"))
		return
	}

	player := model.PlayerID{OperatorID: req.OperatorID, UserID: req.UserID}
	token, err := h.auth.IssueToken(player, time.Now())
	if err != nil {
		h.logger.Error("failed to issue token", slog.String("error", err.Error()))
		apierr.WriteError(w, err)
		return
	}

	response.JSON(w, http.StatusCreated, response.Token{
		Token:      token,
		OperatorID: player.OperatorID,
		UserID:     player.UserID,
	})
}
