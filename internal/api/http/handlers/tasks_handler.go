package handlers

import (
	"strconv"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/field-service/internal/api/dto"
	"github.com/spec-kit/field-service/internal/assignment"
	apperrors "github.com/spec-kit/field-service/pkg/util/errorutil"
)

// TasksHandler exposes per-task assignment endpoints.
type TasksHandler struct {
	service AssignmentService
}

// NewTasksHandler constructs handler.
func NewTasksHandler(assignmentService AssignmentService) *TasksHandler {
	return &TasksHandler{service: assignmentService}
}

// Suggestions GET /tasks/:id/suggestions.
func (h *TasksHandler) Suggestions(c *fiber.Ctx) error {
	actor, err := staffActor(c)
	if err != nil {
		return err
	}
	limit := 0
	if val := c.Query("limit"); val != "" {
		parsed, err := strconv.Atoi(val)
		if err != nil {
			return apperrors.NewValidationError("invalid limit", map[string]any{"limit": "must be an integer"})
		}
		limit = parsed
	}

	ranked, err := h.service.SuggestAssignees(c.UserContext(), actor, c.Params("id"), limit)
	if err != nil {
		return err
	}
	items := make([]dto.SuggestionResponse, 0, len(ranked))
	for i := range ranked {
		items = append(items, suggestionResponse(&ranked[i]))
	}
	return c.JSON(fiber.Map{"data": items})
}

// Reassign PATCH /tasks/:id/assignee.
func (h *TasksHandler) Reassign(c *fiber.Ctx) error {
	actor, err := staffActor(c)
	if err != nil {
		return err
	}
	var req dto.ReassignRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	task, err := h.service.ReassignTask(c.UserContext(), actor, c.Params("id"), req.WorkerID)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": taskResponse(task)})
}

func suggestionResponse(s *assignment.RankedSuggestion) dto.SuggestionResponse {
	return dto.SuggestionResponse{
		WorkerID:           s.ID,
		Name:               s.Name,
		Role:               s.Role,
		Specialties:        s.Specialties,
		Experience:         s.Experience,
		Availability:       s.Availability,
		CurrentTaskCount:   s.CurrentTaskCount,
		EligibilityScore:   s.EligibilityScore,
		EligibilityReasons: s.EligibilityReasons,
		Eligible:           s.Eligible,
	}
}
