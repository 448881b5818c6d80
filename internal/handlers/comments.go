package handlers

import (
	"net/http"

	"task-tracker/backend/internal/middleware"
	"task-tracker/backend/internal/services"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

type CommentHandler struct {
	commentService services.CommentService
	logger         zerolog.Logger
}

type CommentRequest struct {
	Body string `json:"body"`
}

func NewCommentHandler(commentService services.CommentService, logger zerolog.Logger) *CommentHandler {
	return &CommentHandler{commentService: commentService, logger: logger}
}

func (h *CommentHandler) AddComment(c *gin.Context) {
	taskID, ok := taskIDParam(c)
	if !ok {
		return
	}

	identity, ok := middleware.CurrentIdentity(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "authentication required"})
		return
	}

	var req CommentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request body")
		return
	}

	comment, err := h.commentService.AddComment(c.Request.Context(), taskID, identity.UserID, req.Body)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"comment": comment})
}
