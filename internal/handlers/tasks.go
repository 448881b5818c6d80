package handlers

import (
	"net/http"
	"strconv"

	"task-tracker/backend/internal/models"
	"task-tracker/backend/internal/services"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

type TaskHandler struct {
	taskService services.TaskService
	logger      zerolog.Logger
}

func NewTaskHandler(taskService services.TaskService, logger zerolog.Logger) *TaskHandler {
	return &TaskHandler{taskService: taskService, logger: logger}
}

func (h *TaskHandler) ListTasks(c *gin.Context) {
	var filter models.TaskFilter

	if raw := c.Query("assigneeId"); raw != "" {
		assigneeID, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			badRequest(c, "assigneeId must be an integer")
			return
		}
		filter.AssigneeID = &assigneeID
	}
	if priority := c.Query("priority"); priority != "" {
		filter.Priority = &priority
	}

	tasks, err := h.taskService.ListTasks(c.Request.Context(), filter)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	if tasks == nil {
		tasks = []models.Task{}
	}

	c.JSON(http.StatusOK, gin.H{"tasks": tasks})
}

func (h *TaskHandler) GetTask(c *gin.Context) {
	id, ok := taskIDParam(c)
	if !ok {
		return
	}

	task, comments, err := h.taskService.GetTask(c.Request.Context(), id)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	if comments == nil {
		comments = []models.Comment{}
	}

	c.JSON(http.StatusOK, gin.H{"task": task, "comments": comments})
}

func (h *TaskHandler) CreateTask(c *gin.Context) {
	var input models.NewTask
	if err := c.ShouldBindJSON(&input); err != nil {
		badRequest(c, "invalid request body")
		return
	}

	task, err := h.taskService.CreateTask(c.Request.Context(), input)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"task": task})
}

func (h *TaskHandler) UpdateTask(c *gin.Context) {
	id, ok := taskIDParam(c)
	if !ok {
		return
	}

	var patch models.TaskPatch
	if err := c.ShouldBindJSON(&patch); err != nil {
		badRequest(c, "invalid request body")
		return
	}

	task, err := h.taskService.UpdateTask(c.Request.Context(), id, patch)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"task": task})
}

func (h *TaskHandler) DeleteTask(c *gin.Context) {
	id, ok := taskIDParam(c)
	if !ok {
		return
	}

	if err := h.taskService.DeleteTask(c.Request.Context(), id); err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.Status(http.StatusNoContent)
}

// taskIDParam parses :id. An id that cannot name a task is answered as a
// missing task.
func taskIDParam(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": "task not found"})
		return 0, false
	}
	return id, true
}
