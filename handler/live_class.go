package handler

import (
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"live-class/dto"
	"live-class/errs"
	"live-class/repository"
	"live-class/service"
)

// LiveClassHandler serves the /live-classes REST surface.
type LiveClassHandler struct {
	svc       service.LiveClassService
	recording service.RecordingService
}

// NewLiveClassHandler builds the handler. recording may be nil when no object
// store is configured.
func NewLiveClassHandler(svc service.LiveClassService, recording service.RecordingService) *LiveClassHandler {
	return &LiveClassHandler{svc: svc, recording: recording}
}

// Create
// POST /live-classes
func (h *LiveClassHandler) Create(c *gin.Context) {
	var req dto.CreateLiveClassRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, fmt.Errorf("%w: %v", errs.ErrValidation, err))
		return
	}
	session, err := h.svc.Create(c.Request.Context(), identity(c).UserID, req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, dto.NewLiveClassResponse(session, identity(c).UserID))
}

// List
// GET /live-classes
func (h *LiveClassHandler) List(c *gin.Context) {
	var q dto.ListLiveClassesQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		respondError(c, fmt.Errorf("%w: %v", errs.ErrValidation, err))
		return
	}
	sessions, err := h.svc.List(c.Request.Context(), identity(c).UserID, repository.SessionFilter{
		CourseId: q.CourseId,
		Status:   q.Status,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.NewLiveClassResponses(sessions, identity(c).UserID))
}

// Get
// GET /live-classes/:id
func (h *LiveClassHandler) Get(c *gin.Context) {
	id, ok := sessionID(c)
	if !ok {
		return
	}
	session, err := h.svc.Get(c.Request.Context(), identity(c).UserID, id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.NewLiveClassResponse(session, identity(c).UserID))
}

// Start
// POST /live-classes/:id/start
func (h *LiveClassHandler) Start(c *gin.Context) {
	id, ok := sessionID(c)
	if !ok {
		return
	}
	var req dto.StartLiveClassRequest
	// the body is optional
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
			respondError(c, fmt.Errorf("%w: %v", errs.ErrValidation, err))
			return
		}
	}
	session, err := h.svc.Start(c.Request.Context(), identity(c).UserID, id, req.StreamURL)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.NewLiveClassResponse(session, identity(c).UserID))
}

// End
// POST /live-classes/:id/end
func (h *LiveClassHandler) End(c *gin.Context) {
	id, ok := sessionID(c)
	if !ok {
		return
	}
	session, err := h.svc.End(c.Request.Context(), identity(c).UserID, id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.NewLiveClassResponse(session, identity(c).UserID))
}

// Cancel
// POST /live-classes/:id/cancel
func (h *LiveClassHandler) Cancel(c *gin.Context) {
	id, ok := sessionID(c)
	if !ok {
		return
	}
	session, err := h.svc.Cancel(c.Request.Context(), identity(c).UserID, id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.NewLiveClassResponse(session, identity(c).UserID))
}

// Join
// POST /live-classes/:id/join
func (h *LiveClassHandler) Join(c *gin.Context) {
	id, ok := sessionID(c)
	if !ok {
		return
	}
	cred, session, err := h.svc.Join(c.Request.Context(), identity(c).UserID, id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.JoinResponse{
		SessionId:  session.ID,
		Status:     session.Status,
		Credential: cred,
	})
}

// Leave
// POST /live-classes/:id/leave
func (h *LiveClassHandler) Leave(c *gin.Context) {
	id, ok := sessionID(c)
	if !ok {
		return
	}
	left, err := h.svc.Leave(c.Request.Context(), identity(c).UserID, id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.LeaveResponse{SessionId: id, Left: left})
}

// Participants
// GET /live-classes/:id/participants
func (h *LiveClassHandler) Participants(c *gin.Context) {
	id, ok := sessionID(c)
	if !ok {
		return
	}
	roster, err := h.svc.Roster(c.Request.Context(), identity(c).UserID, id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.ParticipantsResponse{SessionId: id, Participants: roster})
}

// RecordingChunk
// POST /live-classes/:id/recording/chunks
func (h *LiveClassHandler) RecordingChunk(c *gin.Context) {
	if h.recording == nil {
		c.AbortWithStatusJSON(http.StatusNotImplemented, ErrorResponse{Error: "not_configured", Message: "recording storage is not configured"})
		return
	}
	id, ok := sessionID(c)
	if !ok {
		return
	}
	var req dto.ChunkUploadRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, fmt.Errorf("%w: %v", errs.ErrValidation, err))
		return
	}
	resp, err := h.recording.ChunkUploadURL(c.Request.Context(), identity(c).UserID, id, *req.ChunkIndex)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func sessionID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		// ids that cannot exist are reported like unknown ones
		respondError(c, fmt.Errorf("%w: live session %q", errs.ErrNotFound, c.Param("id")))
		return uuid.Nil, false
	}
	return id, true
}
