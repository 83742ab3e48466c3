package handlers

import (
	"errors"
	"net/http"

	dom "Tasklist/internal/domain"
	"Tasklist/internal/dto"
	"Tasklist/internal/service"

	"github.com/gin-gonic/gin"
)

// SaveErrorHeader is set on mutation responses when the snapshot could not be saved.
// The mutation itself still stands.
const SaveErrorHeader = "X-Save-Error"

type TaskHandler struct {
	store *service.TaskStore
}

func NewTaskHandler(store *service.TaskStore) *TaskHandler {
	return &TaskHandler{store: store}
}

// List godoc
// @Summary      List tasks under the current filter
// @Tags         tasks
// @Produce      json
// @Param        filter  query     string  false  "Evaluate another filter without switching (all, active, completed)"
// @Success      200     {object}  dto.ListTasksResponse
// @Failure      400     {object}  map[string]string
// @Router       /tasks [get]
func (h *TaskHandler) List(c *gin.Context) {
	var filter dom.Filter
	if q := c.Query("filter"); q != "" {
		f, err := dom.ParseFilter(q)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		filter = f
	}
	snap := h.store.Snapshot(filter)

	resp := dto.ListTasksResponse{
		Filter: string(snap.Filter),
		Counts: dto.NewCountsResponse(snap.Counts),
		Items:  make([]dto.TaskResponse, len(snap.Items)),
	}
	for i, t := range snap.Items {
		resp.Items[i] = dto.NewTaskResponse(t, snap.Editing && snap.EditID == t.ID)
	}
	if snap.Editing {
		resp.Editing = &snap.EditID
	}
	c.JSON(http.StatusOK, resp)
}

// Create godoc
// @Summary      Create a task
// @Tags         tasks
// @Accept       json
// @Produce      json
// @Param        body  body      dto.TaskRequest  true  "Task text and due date (YYYY-MM-DD)"
// @Success      201   {object}  dto.TaskResponse
// @Failure      400   {object}  map[string]string
// @Router       /tasks [post]
func (h *TaskHandler) Create(c *gin.Context) {
	var req dto.TaskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	m, err := h.store.Create(c.Request.Context(), req.Text, req.Date)
	if err != nil {
		h.writeError(c, err)
		return
	}
	markSaveError(c, m.SaveErr)
	c.JSON(http.StatusCreated, mutationToResponse(m))
}

// Submit godoc
// @Summary      Submit the task form
// @Description  Updates the task being edited (200), or creates a new one when nothing is being edited (201).
// @Tags         tasks
// @Accept       json
// @Produce      json
// @Param        body  body      dto.TaskRequest  true  "Task text and due date (YYYY-MM-DD)"
// @Success      200   {object}  dto.TaskResponse
// @Success      201   {object}  dto.TaskResponse
// @Failure      400   {object}  map[string]string
// @Failure      404   {object}  map[string]string
// @Router       /tasks/submit [post]
func (h *TaskHandler) Submit(c *gin.Context) {
	var req dto.TaskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	m, err := h.store.Submit(c.Request.Context(), req.Text, req.Date)
	if err != nil {
		h.writeError(c, err)
		return
	}
	markSaveError(c, m.SaveErr)
	status := http.StatusOK
	if m.Created {
		status = http.StatusCreated
	}
	c.JSON(status, mutationToResponse(m))
}

// GetByID godoc
// @Summary      Get a task by ID
// @Tags         tasks
// @Produce      json
// @Param        id   path      int  true  "Task ID"
// @Success      200  {object}  dto.TaskResponse
// @Failure      400  {object}  map[string]string
// @Failure      404  {object}  map[string]string
// @Router       /tasks/{id} [get]
func (h *TaskHandler) GetByID(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	t, err := h.store.Get(id)
	if err != nil {
		h.writeError(c, err)
		return
	}
	editID, editing := h.store.EditTarget()
	c.JSON(http.StatusOK, dto.NewTaskResponse(t, editing && editID == t.ID))
}

// Update godoc
// @Summary      Update a task's text and due date
// @Tags         tasks
// @Accept       json
// @Produce      json
// @Param        id    path      int              true  "Task ID"
// @Param        body  body      dto.TaskRequest  true  "New text and due date"
// @Success      200   {object}  dto.TaskResponse
// @Failure      400   {object}  map[string]string
// @Failure      404   {object}  map[string]string
// @Router       /tasks/{id} [put]
func (h *TaskHandler) Update(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	var req dto.TaskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	m, err := h.store.Update(c.Request.Context(), id, req.Text, req.Date)
	if err != nil {
		h.writeError(c, err)
		return
	}
	markSaveError(c, m.SaveErr)
	c.JSON(http.StatusOK, mutationToResponse(m))
}

// Toggle godoc
// @Summary      Flip a task between active and completed
// @Tags         tasks
// @Produce      json
// @Param        id   path      int  true  "Task ID"
// @Success      200  {object}  dto.TaskResponse
// @Failure      400  {object}  map[string]string
// @Failure      404  {object}  map[string]string
// @Router       /tasks/{id}/toggle [post]
func (h *TaskHandler) Toggle(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	m, err := h.store.Toggle(c.Request.Context(), id)
	if err != nil {
		h.writeError(c, err)
		return
	}
	markSaveError(c, m.SaveErr)
	c.JSON(http.StatusOK, mutationToResponse(m))
}

// Delete godoc
// @Summary      Delete a task
// @Tags         tasks
// @Param        id   path  int  true  "Task ID"
// @Success      204
// @Failure      400  {object}  map[string]string
// @Failure      404  {object}  map[string]string
// @Router       /tasks/{id} [delete]
func (h *TaskHandler) Delete(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	m, err := h.store.Remove(c.Request.Context(), id)
	if err != nil {
		h.writeError(c, err)
		return
	}
	markSaveError(c, m.SaveErr)
	c.Status(http.StatusNoContent)
}

// Clear godoc
// @Summary      Delete all tasks
// @Tags         tasks
// @Produce      json
// @Success      200  {object}  dto.ClearResponse
// @Router       /tasks [delete]
func (h *TaskHandler) Clear(c *gin.Context) {
	n, saveErr := h.store.Clear(c.Request.Context())
	markSaveError(c, saveErr)
	c.JSON(http.StatusOK, dto.ClearResponse{Removed: n})
}

// BeginEdit godoc
// @Summary      Start editing a task
// @Tags         edit
// @Produce      json
// @Param        id   path      int  true  "Task ID"
// @Success      200  {object}  dto.TaskResponse
// @Failure      400  {object}  map[string]string
// @Failure      404  {object}  map[string]string
// @Router       /tasks/{id}/edit [post]
func (h *TaskHandler) BeginEdit(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	t, err := h.store.BeginEdit(id)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.NewTaskResponse(t, true))
}

// CancelEdit godoc
// @Summary      Stop editing
// @Tags         edit
// @Success      204
// @Router       /edit [delete]
func (h *TaskHandler) CancelEdit(c *gin.Context) {
	h.store.CancelEdit()
	c.Status(http.StatusNoContent)
}

// GetFilter godoc
// @Summary      Current filter
// @Tags         filter
// @Produce      json
// @Success      200  {object}  dto.FilterResponse
// @Router       /filter [get]
func (h *TaskHandler) GetFilter(c *gin.Context) {
	c.JSON(http.StatusOK, dto.FilterResponse{Filter: string(h.store.Filter())})
}

// SetFilter godoc
// @Summary      Switch the filter
// @Tags         filter
// @Accept       json
// @Produce      json
// @Param        body  body      dto.FilterRequest  true  "all, active or completed"
// @Success      200   {object}  dto.FilterResponse
// @Failure      400   {object}  map[string]string
// @Router       /filter [put]
func (h *TaskHandler) SetFilter(c *gin.Context) {
	var req dto.FilterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := h.store.SetFilter(req.Filter); err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.FilterResponse{Filter: string(h.store.Filter())})
}

// Counts godoc
// @Summary      Task counts
// @Tags         tasks
// @Produce      json
// @Success      200  {object}  dto.CountsResponse
// @Router       /counts [get]
func (h *TaskHandler) Counts(c *gin.Context) {
	c.JSON(http.StatusOK, dto.NewCountsResponse(h.store.Counts()))
}

func (h *TaskHandler) writeError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrValidation):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, service.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
	default:
		_ = c.Error(err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	}
}

// markSaveError reports the save attempt that followed this request's own mutation.
func markSaveError(c *gin.Context, saveErr error) {
	if saveErr != nil {
		c.Header(SaveErrorHeader, saveErr.Error())
	}
}

func mutationToResponse(m service.Mutation) dto.TaskResponse {
	return dto.NewTaskResponse(m.Task, m.Editing)
}

func parseID(c *gin.Context, name string) (dom.TaskID, bool) {
	id, err := dom.ParseTaskID(c.Param(name))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return 0, false
	}
	return id, true
}
