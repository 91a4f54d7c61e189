package chat

import (
	"context"

	"broker-backend/internal/catalog"
	"broker-backend/internal/listings"
	"broker-backend/internal/memory"
	"broker-backend/internal/middleware"
	"broker-backend/internal/negotiations"
	"broker-backend/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

type Handlers struct {
	Orchestrator *Orchestrator
	Memory       *memory.Client
	Catalog      *catalog.Service
	Listings     *listings.Service
	Negotiations *negotiations.Service
}

type turnRequest struct {
	Message   string    `json:"message"`
	SessionID string    `json:"session_id"`
	History   []Message `json:"history"`
}

type turnResponse struct {
	Reply     string `json:"reply"`
	SessionID string `json:"session_id,omitempty"`
}

// Turn POST /api/v1/chat
//
// Runs one broker conversation turn for the signed-in user. A session id from
// a previous turn keeps the conversation in the same memory session; without
// one a fresh session is opened against the memory provider.
func (h *Handlers) Turn(c *fiber.Ctx) error {
	var req turnRequest
	if err := c.BodyParser(&req); err != nil {
		return response.Error(c, "Invalid request body", fiber.StatusBadRequest, nil)
	}
	if req.Message == "" {
		return response.Error(c, "Message is required", fiber.StatusBadRequest, nil)
	}
	userID := middleware.GetUserID(c)
	if userID == uuid.Nil {
		return response.Unauthorized(c, "Unauthorized")
	}

	session := h.resolveSession(c.Context(), userID, req.SessionID)

	tools := Toolset(h.Catalog, h.Listings, h.Negotiations, userID)
	reply, err := h.Orchestrator.Turn(c.Context(), session, req.History, req.Message, tools)
	if err != nil {
		return response.DomainError(c, err)
	}
	return response.Success(c, "Turn completed", turnResponse{Reply: reply, SessionID: session.ID}, nil)
}

// resolveSession finds or opens the memory session for this turn. Memory is
// best-effort: provider failures are logged and the turn proceeds without
// mirroring.
func (h *Handlers) resolveSession(ctx context.Context, userID uuid.UUID, sessionID string) memory.Session {
	if sessionID != "" {
		return memory.Session{ID: sessionID}
	}
	if h.Memory == nil {
		return memory.Session{}
	}
	peer, err := h.Memory.GetOrCreatePeer(ctx, userID.String())
	if err != nil {
		log.Warn().Err(err).Str("user_id", userID.String()).Msg("memory peer lookup failed")
		return memory.Session{}
	}
	session, err := h.Memory.CreateSession(ctx, peer.ID)
	if err != nil {
		log.Warn().Err(err).Str("peer_id", peer.ID).Msg("memory session creation failed")
		return memory.Session{}
	}
	return *session
}
