package service

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/spec-kit/field-service/internal/assignment"
	"github.com/spec-kit/field-service/internal/domain"
	"github.com/spec-kit/field-service/internal/events"
	"github.com/spec-kit/field-service/internal/observability"
	"github.com/spec-kit/field-service/internal/repository"
	apperrors "github.com/spec-kit/field-service/pkg/util/errorutil"
)

// ErrWorkerNotFoundOrInactive is wrapped by the reassignment errors for unknown or
// deactivated members.
var ErrWorkerNotFoundOrInactive = errors.New("worker not found or inactive")

const (
	maxSuggestionLimit = 100
	maxTasksPerRun     = 200
)

// TaskInput describes one task to plan on a mission.
type TaskInput struct {
	Title            string
	Description      string
	Category         domain.TaskCategory
	Type             domain.TaskType
	EstimatedMinutes int
}

// PlannedTask is a persisted task with the tier and score that placed it.
type PlannedTask struct {
	Task  domain.Task
	Tier  assignment.Tier
	Score int
}

// AssignmentOutcome summarises one bulk run.
type AssignmentOutcome struct {
	MissionID       string
	Tasks           []PlannedTask
	AssignedCount   int
	UnassignedCount int
}

// AssignmentService plans mission tasks onto team members.
type AssignmentService struct {
	missions        repository.MissionRepository
	teams           repository.TeamRepository
	members         repository.TeamMemberRepository
	tasks           repository.TaskRepository
	uow             repository.UnitOfWork
	rosterCache     repository.RosterCache
	engine          *assignment.Engine
	ranker          *assignment.Ranker
	dispatcher      events.Dispatcher
	metrics         *observability.Metrics
	logger          *zap.Logger
	suggestionLimit int
}

// AssignmentDependencies bundles repositories and collaborators.
type AssignmentDependencies struct {
	MissionRepo     repository.MissionRepository
	TeamRepo        repository.TeamRepository
	MemberRepo      repository.TeamMemberRepository
	TaskRepo        repository.TaskRepository
	UnitOfWork      repository.UnitOfWork
	RosterCache     repository.RosterCache
	Rules           assignment.RuleSet
	Dispatcher      events.Dispatcher
	Metrics         *observability.Metrics
	Logger          *zap.Logger
	SuggestionLimit int
}

// NewAssignmentService creates the service.
func NewAssignmentService(deps AssignmentDependencies) *AssignmentService {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	cache := deps.RosterCache
	if cache == nil {
		cache = repository.NewRosterCache(nil, 0)
	}
	limit := deps.SuggestionLimit
	if limit <= 0 || limit > maxSuggestionLimit {
		limit = 10
	}
	return &AssignmentService{
		missions:        deps.MissionRepo,
		teams:           deps.TeamRepo,
		members:         deps.MemberRepo,
		tasks:           deps.TaskRepo,
		uow:             deps.UnitOfWork,
		rosterCache:     cache,
		engine:          assignment.NewEngine(deps.Rules),
		ranker:          assignment.NewRanker(deps.Rules),
		dispatcher:      deps.Dispatcher,
		metrics:         deps.Metrics,
		logger:          logger,
		suggestionLimit: limit,
	}
}

// AssignNewTasks creates tasks on the mission and assigns each one in a single locked
// transaction.
func (s *AssignmentService) AssignNewTasks(ctx context.Context, actor *domain.Actor, missionID string, inputs []TaskInput) (*AssignmentOutcome, error) {
	if err := requireAssignPriv(actor); err != nil {
		return nil, err
	}
	if err := validateTaskInputs(inputs); err != nil {
		return nil, err
	}
	mission, team, err := s.loadPlanningScope(ctx, missionID)
	if err != nil {
		return nil, err
	}

	descriptors := make([]domain.TaskDescriptor, len(inputs))
	for i, in := range inputs {
		descriptors[i] = domain.TaskDescriptor{
			Title:            strings.TrimSpace(in.Title),
			Description:      strings.TrimSpace(in.Description),
			Category:         in.Category,
			Type:             in.Type,
			EstimatedMinutes: in.EstimatedMinutes,
		}
	}

	outcome := &AssignmentOutcome{MissionID: mission.ID}
	err = s.uow.WithTeamLock(ctx, team.ID, func(ctx context.Context, repos repository.TxRepositories) error {
		roster, err := repos.Members.ListRoster(ctx, team.ID)
		if err != nil {
			return err
		}
		results, err := s.engine.Assign(descriptors, roster)
		if err != nil {
			return err
		}
		for _, r := range results {
			task := domain.Task{
				MissionID:        mission.ID,
				Title:            r.Task.Title,
				Description:      r.Task.Description,
				Category:         r.Task.Category,
				Type:             r.Task.Type,
				EstimatedMinutes: r.Task.EstimatedMinutes,
				Status:           domain.TaskStatusPending,
				AssigneeID:       r.AssignedWorkerID,
			}
			if r.Assigned() {
				task.Status = domain.TaskStatusAssigned
			}
			if err := repos.Tasks.Create(ctx, &task); err != nil {
				return err
			}
			if err := repos.History.Create(ctx, assignmentHistory(actor, &task, r)); err != nil {
				return err
			}
			outcome.add(task, r)
		}
		return nil
	})
	if err != nil {
		return nil, s.mapRunError(err, team.ID)
	}

	s.afterRun(ctx, actor, team.ID, outcome)
	return outcome, nil
}

// AutoAssignPending re-runs the engine over the mission's PENDING tasks that have no
// assignee. With nothing pending it returns an empty outcome without reading the roster.
func (s *AssignmentService) AutoAssignPending(ctx context.Context, actor *domain.Actor, missionID string) (*AssignmentOutcome, error) {
	if err := requireAssignPriv(actor); err != nil {
		return nil, err
	}
	mission, team, err := s.loadPlanningScope(ctx, missionID)
	if err != nil {
		return nil, err
	}

	outcome := &AssignmentOutcome{MissionID: mission.ID}
	err = s.uow.WithTeamLock(ctx, team.ID, func(ctx context.Context, repos repository.TxRepositories) error {
		pending, err := repos.Tasks.List(ctx, repository.TaskFilter{
			MissionID:  &mission.ID,
			Unassigned: true,
			Statuses:   []domain.TaskStatus{domain.TaskStatusPending},
		})
		if err != nil {
			return err
		}
		if len(pending) == 0 {
			return nil
		}
		roster, err := repos.Members.ListRoster(ctx, team.ID)
		if err != nil {
			return err
		}

		byID := make(map[string]*domain.Task, len(pending))
		descriptors := make([]domain.TaskDescriptor, len(pending))
		for i := range pending {
			byID[pending[i].ID] = &pending[i]
			descriptors[i] = pending[i].Descriptor()
		}

		results, err := s.engine.Assign(descriptors, roster)
		if err != nil {
			return err
		}
		for _, r := range results {
			task := byID[r.Task.ID]
			if r.Assigned() {
				task.AssigneeID = r.AssignedWorkerID
				task.Status = domain.TaskStatusAssigned
				if err := repos.Tasks.UpdateAssignment(ctx, task); err != nil {
					return err
				}
			}
			if err := repos.History.Create(ctx, assignmentHistory(actor, task, r)); err != nil {
				return err
			}
			outcome.add(*task, r)
		}
		return nil
	})
	if err != nil {
		return nil, s.mapRunError(err, team.ID)
	}
	if len(outcome.Tasks) == 0 {
		return outcome, nil
	}

	s.afterRun(ctx, actor, team.ID, outcome)
	return outcome, nil
}

// SuggestAssignees ranks the mission team for one task. It never writes.
func (s *AssignmentService) SuggestAssignees(ctx context.Context, actor *domain.Actor, taskID string, limit int) ([]assignment.RankedSuggestion, error) {
	if actor == nil {
		return nil, apperrors.NewUnauthorized("staff required")
	}
	if limit < 0 || limit > maxSuggestionLimit {
		return nil, apperrors.NewValidationError("invalid limit", map[string]any{"limit": fmt.Sprintf("must be between 1 and %d", maxSuggestionLimit)})
	}
	if limit == 0 {
		limit = s.suggestionLimit
	}

	task, err := s.tasks.GetByID(ctx, taskID)
	if err != nil {
		return nil, notFoundOr(err, "task", map[string]any{"task_id": taskID})
	}
	mission, err := s.missions.GetByID(ctx, task.MissionID)
	if err != nil {
		return nil, notFoundOr(err, "mission", map[string]any{"mission_id": task.MissionID})
	}
	roster, err := s.loadRoster(ctx, mission.TeamID)
	if err != nil {
		return nil, apperrors.MapError(err)
	}

	ranked := s.ranker.Rank(task.Descriptor(), roster)
	if len(ranked) > limit {
		ranked = ranked[:limit]
	}
	return ranked, nil
}

// ReassignTask overwrites a task's assignee without consulting the engine.
func (s *AssignmentService) ReassignTask(ctx context.Context, actor *domain.Actor, taskID, workerID string) (*domain.Task, error) {
	if err := requireAssignPriv(actor); err != nil {
		return nil, err
	}
	workerID = strings.TrimSpace(workerID)
	if workerID == "" {
		return nil, apperrors.NewValidationError("worker_id required", map[string]any{"worker_id": "required"})
	}

	var (
		task        *domain.Task
		member      *domain.TeamMember
		oldAssignee *string
		staleTeams  []string
	)
	err := s.uow.WithinTx(ctx, func(ctx context.Context, repos repository.TxRepositories) error {
		var err error
		task, err = repos.Tasks.GetByID(ctx, taskID)
		if err != nil {
			return notFoundOr(err, "task", map[string]any{"task_id": taskID})
		}
		if task.Status == domain.TaskStatusCompleted || task.Status == domain.TaskStatusCancelled {
			return apperrors.NewConflict("task closed", map[string]any{"task_id": taskID, "status": task.Status})
		}

		member, err = repos.Members.GetByID(ctx, workerID)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return workerUnavailable(http.StatusNotFound, workerID)
			}
			return err
		}
		if !member.Active {
			return workerUnavailable(http.StatusConflict, workerID)
		}

		mission, err := repos.Missions.GetByID(ctx, task.MissionID)
		if err != nil {
			return err
		}
		staleTeams = []string{mission.TeamID, member.TeamID}
		if task.AssigneeID != nil {
			previous, err := repos.Members.GetByID(ctx, *task.AssigneeID)
			switch {
			case err == nil:
				staleTeams = append(staleTeams, previous.TeamID)
			case !errors.Is(err, pgx.ErrNoRows):
				return err
			}
		}

		oldAssignee = task.AssigneeID
		task.AssigneeID = &member.ID
		if task.Status == domain.TaskStatusPending {
			task.Status = domain.TaskStatusAssigned
		}
		if err := repos.Tasks.UpdateAssignment(ctx, task); err != nil {
			return err
		}
		return repos.History.Create(ctx, &domain.TaskHistory{
			TaskID:      task.ID,
			ChangedByID: &actor.UserID,
			ChangeType:  domain.ChangeTypeReassigned,
			Note:        "Manual reassignment",
			OldValue:    map[string]any{"assignee_id": oldAssignee},
			NewValue:    map[string]any{"assignee_id": member.ID},
		})
	})
	if err != nil {
		return nil, apperrors.MapError(err)
	}

	// Every roster whose derived load changed: the mission's team and both assignees' teams.
	seen := make(map[string]struct{}, len(staleTeams))
	for _, teamID := range staleTeams {
		if _, dup := seen[teamID]; dup {
			continue
		}
		seen[teamID] = struct{}{}
		s.invalidateRoster(ctx, teamID)
	}
	s.publish(ctx, events.New(events.EventTaskReassigned, task.MissionID, task.ID, *actor, events.TaskReassignedPayload{
		OldAssigneeID: oldAssignee,
		NewAssigneeID: member.ID,
	}))
	s.logger.Info("task reassigned",
		zap.String("task_id", task.ID),
		zap.String("worker_id", member.ID),
		zap.String("actor", actor.UserID))
	return task, nil
}

func (o *AssignmentOutcome) add(task domain.Task, r assignment.Result) {
	o.Tasks = append(o.Tasks, PlannedTask{Task: task, Tier: r.Tier, Score: r.Score})
	if r.Assigned() {
		o.AssignedCount++
	} else {
		o.UnassignedCount++
	}
}

func (s *AssignmentService) loadPlanningScope(ctx context.Context, missionID string) (*domain.Mission, *domain.Team, error) {
	mission, err := s.missions.GetByID(ctx, missionID)
	if err != nil {
		return nil, nil, notFoundOr(err, "mission", map[string]any{"mission_id": missionID})
	}
	if !mission.AcceptsTasks() {
		return nil, nil, apperrors.NewConflict("mission does not accept tasks", map[string]any{"mission_id": missionID, "status": mission.Status})
	}
	team, err := s.teams.GetByID(ctx, mission.TeamID)
	if err != nil {
		return nil, nil, notFoundOr(err, "team", map[string]any{"team_id": mission.TeamID})
	}
	if !team.IsActive {
		return nil, nil, apperrors.NewConflict("team inactive", map[string]any{"team_id": team.ID})
	}
	return mission, team, nil
}

func (s *AssignmentService) loadRoster(ctx context.Context, teamID string) ([]domain.TeamMember, error) {
	roster, ok, err := s.rosterCache.Get(ctx, teamID)
	if err != nil {
		s.logger.Warn("roster cache read failed", zap.String("team_id", teamID), zap.Error(err))
	}
	if ok {
		return roster, nil
	}
	roster, err = s.members.ListRoster(ctx, teamID)
	if err != nil {
		return nil, err
	}
	if err := s.rosterCache.Set(ctx, teamID, roster); err != nil {
		s.logger.Warn("roster cache write failed", zap.String("team_id", teamID), zap.Error(err))
	}
	return roster, nil
}

func (s *AssignmentService) invalidateRoster(ctx context.Context, teamID string) {
	if err := s.rosterCache.Invalidate(ctx, teamID); err != nil {
		s.logger.Warn("roster cache invalidation failed", zap.String("team_id", teamID), zap.Error(err))
	}
}

func (s *AssignmentService) mapRunError(err error, teamID string) error {
	if errors.Is(err, assignment.ErrEmptyRoster) {
		return apperrors.NewDomainError("EMPTY_ROSTER", "team has no active members", http.StatusConflict,
			map[string]any{"team_id": teamID}).Wrap(err)
	}
	return apperrors.MapError(err)
}

// afterRun runs once the transaction has committed.
func (s *AssignmentService) afterRun(ctx context.Context, actor *domain.Actor, teamID string, outcome *AssignmentOutcome) {
	s.invalidateRoster(ctx, teamID)

	tiers := make([]string, len(outcome.Tasks))
	for i, planned := range outcome.Tasks {
		tiers[i] = string(planned.Tier)
		t := planned.Task
		if t.AssigneeID != nil {
			s.publish(ctx, events.New(events.EventTaskAssigned, t.MissionID, t.ID, *actor, events.TaskAssignedPayload{
				AssigneeID: *t.AssigneeID,
				Tier:       string(planned.Tier),
				Score:      planned.Score,
			}))
		} else {
			s.publish(ctx, events.New(events.EventTaskUnassigned, t.MissionID, t.ID, *actor, events.TaskUnassignedPayload{
				Category: t.Category,
				Type:     t.Type,
			}))
		}
	}
	s.metrics.RecordAssignmentRun(tiers)

	s.publish(ctx, events.New(events.EventMissionTasksAssigned, outcome.MissionID, "", *actor, events.MissionTasksAssignedPayload{
		TeamID:          teamID,
		TaskCount:       len(outcome.Tasks),
		AssignedCount:   outcome.AssignedCount,
		UnassignedCount: outcome.UnassignedCount,
	}))

	s.logger.Info("mission tasks assigned",
		zap.String("mission_id", outcome.MissionID),
		zap.String("team_id", teamID),
		zap.Int("tasks", len(outcome.Tasks)),
		zap.Int("assigned", outcome.AssignedCount),
		zap.Int("unassigned", outcome.UnassignedCount))
}

func (s *AssignmentService) publish(ctx context.Context, event events.Event) {
	if s.dispatcher == nil {
		return
	}
	if err := s.dispatcher.Publish(ctx, event); err != nil {
		s.logger.Warn("event handler failed", zap.String("event_type", string(event.Type)), zap.String("event_id", event.ID), zap.Error(err))
	}
}

func assignmentHistory(actor *domain.Actor, task *domain.Task, r assignment.Result) *domain.TaskHistory {
	entry := &domain.TaskHistory{
		TaskID:      task.ID,
		ChangedByID: &actor.UserID,
		OldValue:    map[string]any{"assignee_id": nil},
		NewValue:    map[string]any{"assignee_id": r.AssignedWorkerID, "tier": r.Tier},
	}
	if r.Assigned() {
		entry.ChangeType = domain.ChangeTypeAutoAssigned
		entry.Note = fmt.Sprintf("Auto-assigned (%s, score %d)", r.Tier, r.Score)
	} else {
		entry.ChangeType = domain.ChangeTypeUnassigned
		entry.Note = "No qualified worker found"
	}
	return entry
}

func requireAssignPriv(actor *domain.Actor) error {
	if actor == nil {
		return apperrors.NewUnauthorized("staff required")
	}
	if !actor.CanAssign() {
		return apperrors.NewForbidden("insufficient role for assignment")
	}
	return nil
}

func workerUnavailable(status int, workerID string) error {
	return apperrors.NewDomainError("WORKER_NOT_FOUND_OR_INACTIVE", ErrWorkerNotFoundOrInactive.Error(), status,
		map[string]any{"worker_id": workerID}).Wrap(ErrWorkerNotFoundOrInactive)
}

func notFoundOr(err error, resource string, details map[string]any) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return apperrors.NewNotFound(resource, details)
	}
	return apperrors.MapError(err)
}

func validateTaskInputs(inputs []TaskInput) error {
	if len(inputs) == 0 {
		return apperrors.NewValidationError("at least one task required", map[string]any{"tasks": "required"})
	}
	if len(inputs) > maxTasksPerRun {
		return apperrors.NewValidationError("too many tasks", map[string]any{"tasks": fmt.Sprintf("at most %d per request", maxTasksPerRun)})
	}
	details := map[string]any{}
	for i, in := range inputs {
		prefix := fmt.Sprintf("tasks[%d].", i)
		if strings.TrimSpace(in.Title) == "" {
			details[prefix+"title"] = "required"
		}
		if !in.Category.Valid() {
			details[prefix+"category"] = "unknown category"
		}
		if !in.Type.Valid() {
			details[prefix+"type"] = "unknown type"
		}
		if in.EstimatedMinutes <= 0 {
			details[prefix+"estimated_minutes"] = "must be positive"
		}
	}
	if len(details) > 0 {
		return apperrors.NewValidationError("invalid tasks", details)
	}
	return nil
}
