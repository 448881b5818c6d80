package handlers

import (
	"net/http"

	"task-tracker/backend/internal/middleware"
	"task-tracker/backend/internal/models"

	"github.com/gin-gonic/gin"
)

const (
	authPageTitle     = "Sign Up / Login"
	boardPageTitle    = "Task Board"
	taskViewPageTitle = "Task Details"
)

// PageHandler serves the data behind the browser pages. Markup is left to
// the frontend.
type PageHandler struct{}

func NewPageHandler() *PageHandler {
	return &PageHandler{}
}

func (h *PageHandler) Auth(c *gin.Context) {
	h.render(c, authPageTitle)
}

func (h *PageHandler) Board(c *gin.Context) {
	h.render(c, boardPageTitle)
}

func (h *PageHandler) TaskView(c *gin.Context) {
	h.render(c, taskViewPageTitle)
}

func (h *PageHandler) render(c *gin.Context, title string) {
	page := gin.H{"title": title}
	if identity, ok := middleware.CurrentIdentity(c); ok {
		page["user"] = models.UserSummary{ID: identity.UserID, Email: identity.Email}
	}
	c.JSON(http.StatusOK, page)
}
