package handler

import (
	"net/http"
	"time"

	"gramseva/backend/internal/config"
	"gramseva/backend/internal/grievance"
	"gramseva/backend/internal/models"

	"github.com/gin-gonic/gin"
)

func actorFrom(c *gin.Context) grievance.Actor {
	return grievance.Actor{ID: c.GetString("userID"), Role: c.GetString("role")}
}

type submitRequest struct {
	Title         string   `json:"title" binding:"required"`
	Description   string   `json:"description" binding:"required"`
	Category      string   `json:"category" binding:"required"`
	VillageName   string   `json:"villageName"`
	Priority      string   `json:"priority"`
	EvidenceFiles []string `json:"evidenceFiles"`
}

// SubmitGrievance creates a new grievance for the authenticated citizen.
func (h *Handler) SubmitGrievance(c *gin.Context) {
	var req submitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "title, description and category are required"})
		return
	}
	g, err := h.Grievances.Submit(c.Request.Context(), grievance.SubmitInput{
		Title:         req.Title,
		Description:   req.Description,
		Category:      req.Category,
		VillageName:   req.VillageName,
		Priority:      req.Priority,
		EvidenceFiles: req.EvidenceFiles,
	}, c.GetString("userID"))
	if err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusCreated, g)
}

func (h *Handler) ListGrievances(c *gin.Context) {
	list, err := h.Storage.GetAllGrievances()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch grievances"})
		return
	}
	c.JSON(http.StatusOK, list)
}

func (h *Handler) ListMyGrievances(c *gin.Context) {
	list, err := h.Storage.GetGrievancesByUser(c.GetString("userID"))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch your grievances"})
		return
	}
	c.JSON(http.StatusOK, list)
}

func (h *Handler) ListAssignedGrievances(c *gin.Context) {
	list, err := h.Storage.GetAssignedGrievances(c.GetString("userID"))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch assigned grievances"})
		return
	}
	c.JSON(http.StatusOK, list)
}

// GetGrievance returns one grievance with its votes, escalation history and
// ledger records.
func (h *Handler) GetGrievance(c *gin.Context) {
	detail, err := h.Grievances.GetDetail(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, detail)
}

type acceptRequest struct {
	ResolutionTimeline int `json:"resolutionTimeline" binding:"required"`
}

func (h *Handler) AcceptGrievance(c *gin.Context) {
	var req acceptRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Resolution timeline is required"})
		return
	}
	g, err := h.Grievances.Accept(c.Request.Context(), c.Param("id"), c.GetString("userID"), req.ResolutionTimeline)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, g)
}

type resolveRequest struct {
	ResolutionNotes    string   `json:"resolutionNotes" binding:"required"`
	ResolutionEvidence []string `json:"resolutionEvidence"`
}

func (h *Handler) ResolveGrievance(c *gin.Context) {
	var req resolveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Resolution notes are required"})
		return
	}
	g, err := h.Grievances.Resolve(c.Request.Context(), c.Param("id"), req.ResolutionNotes, req.ResolutionEvidence, actorFrom(c))
	if err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, g)
}

type voteRequest struct {
	VoteType string  `json:"voteType" binding:"required"`
	Comments *string `json:"comments"`
}

// CommunityVote casts the authenticated user's verify/dispute vote.
func (h *Handler) CommunityVote(c *gin.Context) {
	var req voteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Valid vote type required"})
		return
	}
	g, err := h.Grievances.CastVote(c.Request.Context(), c.Param("id"), c.GetString("userID"), req.VoteType, req.Comments)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, g)
}

// OwnerVerify lets the original submitter confirm their own resolution.
func (h *Handler) OwnerVerify(c *gin.Context) {
	userID := c.GetString("userID")
	g, err := h.Storage.GetGrievance(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to verify grievance"})
		return
	}
	if g == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Grievance not found"})
		return
	}
	if g.UserID != userID {
		c.JSON(http.StatusForbidden, gin.H{"error": "Only the original submitter can perform owner-verify"})
		return
	}
	comment := "Owner verified"
	updated, err := h.Grievances.CastVote(c.Request.Context(), g.ID, userID, models.VoteVerify, &comment)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, updated)
}

type satisfactionRequest struct {
	Satisfaction string `json:"satisfaction" binding:"required"`
}

func (h *Handler) UserSatisfaction(c *gin.Context) {
	var req satisfactionRequest
	if err := c.ShouldBindJSON(&req); err != nil ||
		(req.Satisfaction != models.SatisfactionSatisfied && req.Satisfaction != models.SatisfactionNotSatisfied) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Valid satisfaction status required"})
		return
	}
	g, err := h.Grievances.SubmitUserSatisfaction(c.Request.Context(), c.Param("id"), req.Satisfaction == models.SatisfactionSatisfied)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, g)
}

type escalateRequest struct {
	Reason string `json:"reason" binding:"required"`
}

func (h *Handler) EscalateGrievance(c *gin.Context) {
	var req escalateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Escalation reason is required"})
		return
	}
	g, err := h.Grievances.Escalate(c.Request.Context(), c.Param("id"), req.Reason, c.GetString("userID"))
	if err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, g)
}

func (h *Handler) CannotResolve(c *gin.Context) {
	var req escalateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Reason is required"})
		return
	}
	g, err := h.Grievances.CannotResolve(c.Request.Context(), c.Param("id"), req.Reason, c.GetString("userID"))
	if err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, g)
}

// ListPendingVerification lists grievances awaiting community verification,
// excluding the caller's own.
func (h *Handler) ListPendingVerification(c *gin.Context) {
	list, err := h.Storage.GetPendingVerificationGrievances(c.GetString("userID"))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch pending verification grievances"})
		return
	}
	c.JSON(http.StatusOK, list)
}

func (h *Handler) ListDisputed(c *gin.Context) {
	list, err := h.Storage.GetDisputedGrievances(config.AdminLockThreshold())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch disputed grievances"})
		return
	}
	c.JSON(http.StatusOK, list)
}

func (h *Handler) ListOverdue(c *gin.Context) {
	list, err := h.Storage.GetOverdueGrievances(time.Now())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch overdue grievances"})
		return
	}
	c.JSON(http.StatusOK, list)
}

// AdminManualVerify finalizes a grievance out of pending_verification or
// admin_review. The only way out of an admin lock.
func (h *Handler) AdminManualVerify(c *gin.Context) {
	g, err := h.Grievances.AdminManualVerify(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"grievance": g, "txHash": g.BlockchainTxHash})
}

func (h *Handler) GetEscalationHistory(c *gin.Context) {
	history, err := h.Storage.GetEscalationHistory(c.Param("grievanceId"))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch escalation history"})
		return
	}
	c.JSON(http.StatusOK, history)
}

func (h *Handler) GetLedgerRecords(c *gin.Context) {
	records, err := h.Storage.GetLedgerRecordsByGrievance(c.Param("grievanceId"))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch ledger records"})
		return
	}
	c.JSON(http.StatusOK, records)
}
