package handler

import (
	"errors"
	"net/http"

	"gramseva/backend/internal/grievance"
	"gramseva/backend/internal/realtime"
	"gramseva/backend/internal/storage"

	"github.com/gin-gonic/gin"
)

// Handler wires the HTTP surface to the lifecycle service.
type Handler struct {
	Grievances *grievance.Service
	Storage    *storage.Service
	Hub        *realtime.Hub
}

func NewHandler(svc *grievance.Service, s *storage.Service, hub *realtime.Hub) *Handler {
	return &Handler{Grievances: svc, Storage: s, Hub: hub}
}

// respondServiceError maps the service error taxonomy to HTTP codes:
// validation and state-machine violations are 4xx ("nothing happened, fix
// your input"), ledger failures are 502 ("retry later").
func respondServiceError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, grievance.ErrNotFound), errors.Is(err, grievance.ErrUserNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, grievance.ErrLocked):
		c.JSON(http.StatusForbidden, gin.H{"error": "This grievance has been locked for admin review"})
	case errors.Is(err, grievance.ErrInvalidTransition),
		errors.Is(err, grievance.ErrInvalidState),
		errors.Is(err, grievance.ErrWindowExpired),
		errors.Is(err, grievance.ErrReasonTooShort),
		errors.Is(err, grievance.ErrInvalidVoteType),
		errors.Is(err, grievance.ErrInvalidTimeline):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, grievance.ErrLedger):
		c.JSON(http.StatusBadGateway, gin.H{"error": "Ledger transaction failed, retry later"})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
	}
}
