package handlers

import (
	"context"
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/field-service/internal/api/dto"
	"github.com/spec-kit/field-service/internal/assignment"
	"github.com/spec-kit/field-service/internal/auth"
	"github.com/spec-kit/field-service/internal/domain"
	"github.com/spec-kit/field-service/internal/service"
	apperrors "github.com/spec-kit/field-service/pkg/util/errorutil"
)

// AssignmentService is the part of service.AssignmentService the HTTP layer calls.
type AssignmentService interface {
	AssignNewTasks(ctx context.Context, actor *domain.Actor, missionID string, inputs []service.TaskInput) (*service.AssignmentOutcome, error)
	AutoAssignPending(ctx context.Context, actor *domain.Actor, missionID string) (*service.AssignmentOutcome, error)
	SuggestAssignees(ctx context.Context, actor *domain.Actor, taskID string, limit int) ([]assignment.RankedSuggestion, error)
	ReassignTask(ctx context.Context, actor *domain.Actor, taskID, workerID string) (*domain.Task, error)
}

// MissionTasksHandler plans tasks on missions.
type MissionTasksHandler struct {
	service AssignmentService
}

// NewMissionTasksHandler constructs handler.
func NewMissionTasksHandler(assignmentService AssignmentService) *MissionTasksHandler {
	return &MissionTasksHandler{service: assignmentService}
}

// CreateTasks POST /missions/:id/tasks.
func (h *MissionTasksHandler) CreateTasks(c *fiber.Ctx) error {
	actor, err := staffActor(c)
	if err != nil {
		return err
	}
	var req dto.CreateTasksRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}

	inputs := make([]service.TaskInput, 0, len(req.Tasks))
	for _, t := range req.Tasks {
		inputs = append(inputs, service.TaskInput{
			Title:            t.Title,
			Description:      t.Description,
			Category:         t.Category,
			Type:             t.Type,
			EstimatedMinutes: t.EstimatedMinutes,
		})
	}
	outcome, err := h.service.AssignNewTasks(c.UserContext(), actor, c.Params("id"), inputs)
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": outcomeResponse(outcome)})
}

// AutoAssign POST /missions/:id/tasks/auto-assign.
func (h *MissionTasksHandler) AutoAssign(c *fiber.Ctx) error {
	actor, err := staffActor(c)
	if err != nil {
		return err
	}
	outcome, err := h.service.AutoAssignPending(c.UserContext(), actor, c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": outcomeResponse(outcome)})
}

func staffActor(c *fiber.Ctx) (*domain.Actor, error) {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return nil, apperrors.NewUnauthorized("staff required")
	}
	return principal.Actor(), nil
}

func outcomeResponse(o *service.AssignmentOutcome) dto.AssignmentOutcomeResponse {
	resp := dto.AssignmentOutcomeResponse{
		MissionID:       o.MissionID,
		Tasks:           make([]dto.TaskResponse, 0, len(o.Tasks)),
		AssignedCount:   o.AssignedCount,
		UnassignedCount: o.UnassignedCount,
	}
	for _, p := range o.Tasks {
		item := taskResponse(&p.Task)
		item.Tier = string(p.Tier)
		if p.Task.AssigneeID != nil {
			score := p.Score
			item.Score = &score
		}
		resp.Tasks = append(resp.Tasks, item)
	}
	return resp
}

func taskResponse(t *domain.Task) dto.TaskResponse {
	return dto.TaskResponse{
		ID:               t.ID,
		MissionID:        t.MissionID,
		Title:            t.Title,
		Description:      t.Description,
		Category:         t.Category,
		Type:             t.Type,
		EstimatedMinutes: t.EstimatedMinutes,
		Status:           t.Status,
		AssigneeID:       t.AssigneeID,
		CreatedAt:        t.CreatedAt,
		UpdatedAt:        t.UpdatedAt,
	}
}
