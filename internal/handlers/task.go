package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/yukikurage/team-task-api/internal/access"
	"github.com/yukikurage/team-task-api/internal/dto"
	apierrors "github.com/yukikurage/team-task-api/internal/errors"
	"github.com/yukikurage/team-task-api/internal/middleware"
	"github.com/yukikurage/team-task-api/internal/models"
	"github.com/yukikurage/team-task-api/internal/services"
	"github.com/yukikurage/team-task-api/internal/utils"
)

type TaskHandler struct {
	taskService *services.TaskService
}

func NewTaskHandler(taskService *services.TaskService) *TaskHandler {
	return &TaskHandler{
		taskService: taskService,
	}
}

// listInput reads filters, pagination and sort from the query string
func listInput(c *gin.Context) (services.ListTasksInput, error) {
	userID, err := queryID(c, "userId")
	if err != nil {
		return services.ListTasksInput{}, err
	}

	return services.ListTasksInput{
		Filter: access.Filter{
			UserID:   userID,
			Status:   models.TaskStatus(c.Query("status")),
			Priority: models.TaskPriority(c.Query("priority")),
			Search:   c.Query("search"),
		},
		Page: utils.GetPaginationParams(c),
		Sort: c.Query("sort"),
	}, nil
}

func respondTaskPage(c *gin.Context, items []*models.Task, page utils.PaginationResponse) {
	c.JSON(http.StatusOK, dto.Page(dto.ToTaskDTOs(items), page))
}

// ListTasks returns the tasks visible to the current user
//
// @Summary   List tasks
// @Tags      Tasks
// @Produce   json
// @Security  BearerAuth
// @Param     status    query     string  false  "pending, in-progress, completed or cancelled"
// @Param     priority  query     string  false  "low, medium, high or urgent"
// @Param     search    query     string  false  "Substring of title or description"
// @Param     userId    query     int     false  "Tasks created by or assigned to this user"
// @Param     page      query     int     false  "Page number"
// @Param     limit     query     int     false  "Page size"
// @Param     sort      query     string  false  "e.g. -createdAt, dueDate"
// @Success   200       {object}  dto.Response{data=[]dto.TaskDTO}
// @Router    /api/tasks [get]
func (h *TaskHandler) ListTasks(c *gin.Context) {
	who, ok := caller(c)
	if !ok {
		return
	}

	input, err := listInput(c)
	if err != nil {
		apierrors.Respond(c, err)
		return
	}

	result, err := h.taskService.ListTasks(c.Request.Context(), who, input)
	if err != nil {
		apierrors.Respond(c, err)
		return
	}

	respondTaskPage(c, result.Items, result.Pagination)
}

// MyTasks returns tasks the current user created or is assigned to
//
// @Summary   My tasks
// @Tags      Tasks
// @Produce   json
// @Security  BearerAuth
// @Success   200  {object}  dto.Response{data=[]dto.TaskDTO}
// @Router    /api/tasks/my-tasks [get]
func (h *TaskHandler) MyTasks(c *gin.Context) {
	who, ok := caller(c)
	if !ok {
		return
	}

	input, err := listInput(c)
	if err != nil {
		apierrors.Respond(c, err)
		return
	}

	result, err := h.taskService.MyTasks(c.Request.Context(), who, input)
	if err != nil {
		apierrors.Respond(c, err)
		return
	}

	respondTaskPage(c, result.Items, result.Pagination)
}

// AssignedTasks returns assigned tasks within the current user's reach
//
// @Summary   Assigned tasks
// @Tags      Tasks
// @Produce   json
// @Security  BearerAuth
// @Success   200  {object}  dto.Response{data=[]dto.TaskDTO}
// @Router    /api/tasks/assigned [get]
func (h *TaskHandler) AssignedTasks(c *gin.Context) {
	who, ok := caller(c)
	if !ok {
		return
	}

	result, err := h.taskService.AssignedTasks(c.Request.Context(), who, services.ListTasksInput{
		Page: utils.GetPaginationParams(c),
		Sort: c.Query("sort"),
	})
	if err != nil {
		apierrors.Respond(c, err)
		return
	}

	respondTaskPage(c, result.Items, result.Pagination)
}

// GetTask returns a specific task by ID
//
// @Summary   Get a task
// @Tags      Tasks
// @Produce   json
// @Security  BearerAuth
// @Param     id   path      int  true  "Task ID"
// @Success   200  {object}  dto.Response{data=dto.TaskDTO}
// @Failure   404  {object}  apierrors.APIError
// @Router    /api/tasks/{id} [get]
func (h *TaskHandler) GetTask(c *gin.Context) {
	who, ok := caller(c)
	if !ok {
		return
	}

	taskID, err := pathID(c, "id", "task")
	if err != nil {
		apierrors.Respond(c, err)
		return
	}

	task, err := h.taskService.GetTask(c.Request.Context(), who, taskID)
	if err != nil {
		apierrors.Respond(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.OK(dto.ToTaskDTO(task)))
}

// CreateTask creates a new task
//
// @Summary   Create a task
// @Tags      Tasks
// @Accept    json
// @Produce   json
// @Security  BearerAuth
// @Param     body  body      dto.CreateTaskRequest  true  "Task"
// @Success   201   {object}  dto.Response{data=dto.TaskDTO}
// @Failure   400   {object}  apierrors.APIError
// @Router    /api/tasks [post]
func (h *TaskHandler) CreateTask(c *gin.Context) {
	who, ok := caller(c)
	if !ok {
		return
	}

	var req dto.CreateTaskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.Respond(c, bindingError(err))
		return
	}

	task, err := h.taskService.CreateTask(c.Request.Context(), who, services.CreateTaskInput{
		Title:       req.Title,
		Description: req.Description,
		DueDate:     *req.DueDate,
		Priority:    req.Priority,
		Status:      req.Status,
		AssignedTo:  req.AssignedTo,
		Tags:        req.Tags,
	})
	if err != nil {
		apierrors.Respond(c, err)
		return
	}

	c.JSON(http.StatusCreated, dto.Message("Task created successfully", dto.ToTaskDTO(task)))
}

// UpdateTask updates a task. Access is checked by RequireTaskAccess.
//
// @Summary   Update a task
// @Tags      Tasks
// @Accept    json
// @Produce   json
// @Security  BearerAuth
// @Param     id    path      int                    true  "Task ID"
// @Param     body  body      dto.UpdateTaskRequest  true  "Fields to change"
// @Success   200   {object}  dto.Response{data=dto.TaskDTO}
// @Failure   403   {object}  apierrors.APIError
// @Router    /api/tasks/{id} [put]
func (h *TaskHandler) UpdateTask(c *gin.Context) {
	who, ok := caller(c)
	if !ok {
		return
	}
	task, _ := middleware.GetTask(c)

	var req dto.UpdateTaskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.Respond(c, bindingError(err))
		return
	}

	updated, err := h.taskService.UpdateTask(c.Request.Context(), who, task.ID, services.UpdateTaskInput{
		Title:       req.Title,
		Description: req.Description,
		DueDate:     req.DueDate,
		Priority:    req.Priority,
		Status:      req.Status,
		AssignedTo:  req.AssignedTo,
		Tags:        req.Tags,
	})
	if err != nil {
		apierrors.Respond(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.Message("Task updated successfully", dto.ToTaskDTO(updated)))
}

// DeleteTask permanently removes a task
//
// @Summary   Delete a task
// @Tags      Tasks
// @Produce   json
// @Security  BearerAuth
// @Param     id   path      int  true  "Task ID"
// @Success   200  {object}  dto.Response
// @Router    /api/tasks/{id} [delete]
func (h *TaskHandler) DeleteTask(c *gin.Context) {
	task, _ := middleware.GetTask(c)

	if err := h.taskService.DeleteTask(c.Request.Context(), task.ID); err != nil {
		apierrors.Respond(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.Message("Task deleted successfully", nil))
}

// AssignTask sets the assignee of a task
//
// @Summary   Assign a task
// @Tags      Tasks
// @Accept    json
// @Produce   json
// @Security  BearerAuth
// @Param     id    path      int                    true  "Task ID"
// @Param     body  body      dto.AssignTaskRequest  true  "Assignee"
// @Success   200   {object}  dto.Response{data=dto.TaskDTO}
// @Router    /api/tasks/{id}/assign [post]
func (h *TaskHandler) AssignTask(c *gin.Context) {
	who, ok := caller(c)
	if !ok {
		return
	}
	task, _ := middleware.GetTask(c)

	var req dto.AssignTaskRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.AssignedTo == nil {
		apierrors.Respond(c, apierrors.Validation("assignedTo field is required", nil))
		return
	}

	assigned, err := h.taskService.AssignTask(c.Request.Context(), who, task.ID, *req.AssignedTo)
	if err != nil {
		apierrors.Respond(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.Message("Task assigned successfully", dto.ToTaskDTO(assigned)))
}

// GenerateTasks drafts tasks from free text using OpenAI. Drafts are returned
// for review and never saved.
//
// @Summary   Draft tasks from text
// @Tags      Tasks
// @Accept    json
// @Produce   json
// @Security  BearerAuth
// @Param     body  body      dto.GenerateTasksRequest  true  "Text to analyze"
// @Success   200   {object}  dto.Response{data=[]dto.TaskDraftDTO}
// @Failure   503   {object}  apierrors.APIError
// @Router    /api/tasks/generate [post]
func (h *TaskHandler) GenerateTasks(c *gin.Context) {
	var req dto.GenerateTasksRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.Respond(c, bindingError(err))
		return
	}

	drafts, err := h.taskService.GenerateTasks(c.Request.Context(), req.Text)
	if err != nil {
		apierrors.Respond(c, err)
		return
	}

	items := make([]dto.TaskDraftDTO, len(drafts))
	for i, d := range drafts {
		items[i] = dto.TaskDraftDTO{
			Title:       d.Title,
			Description: d.Description,
			DueDate:     d.DueDate,
			Priority:    d.Priority,
		}
	}
	c.JSON(http.StatusOK, dto.OK(items))
}
