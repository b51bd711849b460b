package http

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/aona/duolink/internal/app"
	"github.com/aona/duolink/internal/domain"
)

type handlers struct {
	deps Deps
}

// statusFor maps typed domain rejections onto HTTP statuses. Anything
// unrecognized is an infrastructure failure.
func statusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrNotMember), errors.Is(err, domain.ErrNotOwner):
		return http.StatusForbidden
	case errors.Is(err, domain.ErrUnavailable),
		errors.Is(err, domain.ErrBlocked),
		errors.Is(err, domain.ErrAlreadyInRoom),
		errors.Is(err, domain.ErrDuplicateFeedback),
		errors.Is(err, domain.ErrAlreadyBlocked):
		return http.StatusConflict
	case errors.Is(err, domain.ErrDuplicateRecent):
		return http.StatusTooManyRequests
	case errors.Is(err, domain.ErrSelfJoin),
		errors.Is(err, domain.ErrAlreadyRequested),
		errors.Is(err, domain.ErrSelfFeedback),
		errors.Is(err, domain.ErrRoomNotActive),
		errors.Is(err, domain.ErrRoomNotClosed),
		errors.Is(err, domain.ErrOpenRecruitmentExists),
		errors.Is(err, domain.ErrSelfBlock),
		errors.Is(err, domain.ErrInvalidGame),
		errors.Is(err, domain.ErrInvalidRegion),
		errors.Is(err, domain.ErrInvalidMessage):
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}

func abortWith(c *gin.Context, err error) {
	status := statusFor(err)
	detail := err.Error()
	if status == http.StatusInternalServerError {
		detail = "internal error"
	}
	c.JSON(status, gin.H{"detail": detail})
}

func pathID(c *gin.Context, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"detail": "invalid id"})
		return uuid.Nil, false
	}
	return id, true
}

func (h *handlers) listRecruitments(c *gin.Context) {
	recs, err := h.deps.Recruiting.List(c.Request.Context())
	if err != nil {
		abortWith(c, err)
		return
	}
	if recs == nil {
		recs = []domain.Recruitment{}
	}
	c.JSON(http.StatusOK, recs)
}

type createRecruitmentRequest struct {
	Game          string           `json:"game" binding:"required,max=50"`
	Region        string           `json:"region" binding:"required,max=20"`
	StartTime     time.Time        `json:"start_time" binding:"required"`
	DesiredRole   string           `json:"desired_role" binding:"max=50"`
	Memo          string           `json:"memo" binding:"max=200"`
	PlayStyle     domain.PlayStyle `json:"play_style"`
	HasMicrophone bool             `json:"has_microphone"`
}

func (h *handlers) createRecruitment(c *gin.Context) {
	var req createRecruitmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"detail": err.Error()})
		return
	}
	if !domain.ValidPlayStyle(req.PlayStyle) {
		c.JSON(http.StatusBadRequest, gin.H{"detail": "invalid play_style"})
		return
	}
	rec, err := h.deps.Recruiting.Create(c.Request.Context(), currentUser(c), app.CreateRecruitmentInput{
		Game:          req.Game,
		Region:        req.Region,
		StartTime:     req.StartTime,
		DesiredRole:   req.DesiredRole,
		Memo:          req.Memo,
		PlayStyle:     req.PlayStyle,
		HasMicrophone: req.HasMicrophone,
		IPHash:        app.HashAddr(c.ClientIP()),
	})
	if err != nil {
		abortWith(c, err)
		return
	}
	c.JSON(http.StatusCreated, rec)
}

func (h *handlers) joinRecruitment(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	room, err := h.deps.Matcher.AttemptMatch(c.Request.Context(), id, currentUser(c))
	if err != nil {
		abortWith(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"detail": "Matched", "room_id": room.ID.String()})
}

func (h *handlers) cancelRecruitment(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	if err := h.deps.Recruiting.Cancel(c.Request.Context(), id, currentUser(c)); err != nil {
		abortWith(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"detail": "Cancelled"})
}

func (h *handlers) getRoom(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	view, err := h.deps.Rooms.Room(c.Request.Context(), id, currentUser(c))
	if err != nil {
		abortWith(c, err)
		return
	}
	c.JSON(http.StatusOK, view)
}

func (h *handlers) listMessages(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	msgs, err := h.deps.Rooms.Messages(c.Request.Context(), id, currentUser(c))
	if err != nil {
		abortWith(c, err)
		return
	}
	if msgs == nil {
		msgs = []domain.Message{}
	}
	c.JSON(http.StatusOK, msgs)
}

type sendMessageRequest struct {
	Content string `json:"content" binding:"required,max=500"`
}

func (h *handlers) sendMessage(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req sendMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"detail": err.Error()})
		return
	}
	msg, err := h.deps.Rooms.SendMessage(c.Request.Context(), id, currentUser(c), req.Content)
	if err != nil {
		abortWith(c, err)
		return
	}
	c.JSON(http.StatusCreated, msg)
}

func (h *handlers) closeRoom(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	outcome, err := h.deps.Rooms.RequestClose(c.Request.Context(), id, currentUser(c))
	if err != nil {
		abortWith(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": string(outcome)})
}

type feedbackRequest struct {
	ToUserID uuid.UUID     `json:"to_user_id" binding:"required"`
	Rating   domain.Rating `json:"rating" binding:"required"`
}

func (h *handlers) submitFeedback(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req feedbackRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"detail": err.Error()})
		return
	}
	if !domain.ValidRating(req.Rating) {
		c.JSON(http.StatusBadRequest, gin.H{"detail": "invalid rating"})
		return
	}
	err := h.deps.Rooms.SubmitFeedback(c.Request.Context(), id, currentUser(c), req.ToUserID, req.Rating)
	if err != nil {
		abortWith(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"detail": "Feedback submitted"})
}

func (h *handlers) pendingFeedback(c *gin.Context) {
	ids, err := h.deps.Rooms.PendingFeedback(c.Request.Context(), currentUser(c))
	if err != nil {
		abortWith(c, err)
		return
	}
	out := make([]gin.H, 0, len(ids))
	for _, id := range ids {
		out = append(out, gin.H{"room_id": id.String()})
	}
	c.JSON(http.StatusOK, out)
}

func (h *handlers) listBlocks(c *gin.Context) {
	blocks, err := h.deps.Blocks.List(c.Request.Context(), currentUser(c))
	if err != nil {
		abortWith(c, err)
		return
	}
	if blocks == nil {
		blocks = []domain.Block{}
	}
	c.JSON(http.StatusOK, blocks)
}

type createBlockRequest struct {
	BlockedID uuid.UUID `json:"blocked_id" binding:"required"`
}

func (h *handlers) createBlock(c *gin.Context) {
	var req createBlockRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"detail": err.Error()})
		return
	}
	block, err := h.deps.Blocks.Create(c.Request.Context(), currentUser(c), req.BlockedID)
	if err != nil {
		abortWith(c, err)
		return
	}
	c.JSON(http.StatusCreated, block)
}

func (h *handlers) deleteBlock(c *gin.Context) {
	id, ok := pathID(c, "blocked_id")
	if !ok {
		return
	}
	if err := h.deps.Blocks.Delete(c.Request.Context(), currentUser(c), id); err != nil {
		abortWith(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"detail": "Unblocked"})
}

func (h *handlers) createTicket(c *gin.Context) {
	ticket := h.deps.Tickets.Issue(currentUser(c))
	c.JSON(http.StatusOK, gin.H{"ticket": ticket})
}
