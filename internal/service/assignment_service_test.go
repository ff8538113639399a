package service

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/spec-kit/field-service/internal/assignment"
	"github.com/spec-kit/field-service/internal/domain"
	"github.com/spec-kit/field-service/internal/events"
	"github.com/spec-kit/field-service/internal/observability"
	apperrors "github.com/spec-kit/field-service/pkg/util/errorutil"
)

type harness struct {
	store    *memStore
	cache    *fakeRosterCache
	recorder *eventRecorder
	metrics  *observability.Metrics
	svc      *AssignmentService
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	store := newMemStore()
	store.addTeam("team-1", true)
	store.addMission("mission-1", "team-1", domain.MissionStatusScheduled)

	h := &harness{
		store:    store,
		cache:    newFakeRosterCache(),
		recorder: &eventRecorder{},
		metrics:  observability.NewMetrics(),
	}
	dispatcher := events.NewInMemoryDispatcher()
	events.SubscribeAll(dispatcher, h.recorder.handle)

	h.svc = NewAssignmentService(AssignmentDependencies{
		MissionRepo:     fakeMissionRepo{store},
		TeamRepo:        fakeTeamRepo{store},
		MemberRepo:      fakeMemberRepo{store},
		TaskRepo:        fakeTaskRepo{store},
		UnitOfWork:      fakeUnitOfWork{store},
		RosterCache:     h.cache,
		Dispatcher:      dispatcher,
		Metrics:         h.metrics,
		Logger:          zap.NewNop(),
		SuggestionLimit: 2,
	})
	return h
}

var (
	lead  = &domain.Actor{UserID: "user-lead", Role: domain.StaffRoleTeamLead}
	admin = &domain.Actor{UserID: "user-admin", Role: domain.StaffRoleAdmin}
	agent = &domain.Actor{UserID: "user-agent", Role: domain.StaffRoleAgent}
)

func worker(id string, specialties []domain.Specialty, exp domain.ExperienceLevel, avail domain.Availability) domain.TeamMember {
	return domain.TeamMember{
		ID:           id,
		UserID:       "user-" + id,
		TeamID:       "team-1",
		Name:         id,
		Role:         domain.StaffRoleTeamLead,
		Specialties:  specialties,
		Experience:   exp,
		Availability: avail,
		Active:       true,
	}
}

func windowsAndKitchen() []TaskInput {
	return []TaskInput{
		{Title: "Vitres séjour", Category: domain.CategoryWindowsJoinery, Type: domain.TaskTypeCleanup, EstimatedMinutes: 60},
		{Title: "Cuisine", Category: domain.CategoryKitchen, Type: domain.TaskTypeCleanup, EstimatedMinutes: 45},
	}
}

func requireDomainError(t *testing.T, err error, code string, status int) *apperrors.DomainError {
	t.Helper()
	require.Error(t, err)
	var de *apperrors.DomainError
	require.True(t, errors.As(err, &de), "expected DomainError, got %T: %v", err, err)
	assert.Equal(t, code, de.Code)
	assert.Equal(t, status, de.HTTPStatus)
	return de
}

// ── AssignNewTasks ────────────────────────────────────────────────────────────

func TestAssignNewTasks_AssignsAndPersists(t *testing.T) {
	h := newHarness(t)
	h.store.addMember(worker("W1", []domain.Specialty{domain.SpecialtyWindow}, domain.ExperienceSenior, domain.AvailabilityAvailable))
	h.store.addMember(worker("W2", []domain.Specialty{domain.SpecialtyGeneralCleaning}, domain.ExperienceJunior, domain.AvailabilityAvailable))

	outcome, err := h.svc.AssignNewTasks(context.Background(), lead, "mission-1", windowsAndKitchen())
	require.NoError(t, err)

	assert.Equal(t, 2, outcome.AssignedCount)
	assert.Zero(t, outcome.UnassignedCount)
	require.Len(t, outcome.Tasks, 2)

	assignees := map[string]string{}
	for _, p := range outcome.Tasks {
		require.NotNil(t, p.Task.AssigneeID)
		assert.NotEmpty(t, p.Task.ID)
		assert.Equal(t, domain.TaskStatusAssigned, p.Task.Status)
		assignees[p.Task.Title] = *p.Task.AssigneeID

		stored := h.store.task(p.Task.ID)
		require.NotNil(t, stored)
		assert.Equal(t, "mission-1", stored.MissionID)

		hist := h.store.historyFor(p.Task.ID)
		require.Len(t, hist, 1)
		assert.Equal(t, domain.ChangeTypeAutoAssigned, hist[0].ChangeType)
		assert.Contains(t, hist[0].Note, "Auto-assigned")
		assert.Equal(t, "user-lead", *hist[0].ChangedByID)
	}
	assert.Equal(t, "W1", assignees["Vitres séjour"])
	assert.Equal(t, "W2", assignees["Cuisine"])

	assert.Equal(t, []string{"team-1"}, h.store.lockedTeams)
	assert.Equal(t, []string{"team-1"}, h.cache.invalidated)
	assert.Len(t, h.recorder.ofType(events.EventTaskAssigned), 2)
	summary := h.recorder.ofType(events.EventMissionTasksAssigned)
	require.Len(t, summary, 1)
	assert.Equal(t, events.MissionTasksAssignedPayload{TeamID: "team-1", TaskCount: 2, AssignedCount: 2}, summary[0].Payload)

	snap := h.metrics.Snapshot()
	assert.Equal(t, int64(1), snap.AssignmentRuns)
	assert.Equal(t, int64(2), snap.AssignmentsByTier[string(assignment.TierStrict)])
}

func TestAssignNewTasks_NoAvailableWorkerLeavesTaskPending(t *testing.T) {
	h := newHarness(t)
	h.store.addMember(worker("W1", []domain.Specialty{domain.SpecialtyGeneralCleaning}, domain.ExperienceExpert, domain.AvailabilityBusy))

	outcome, err := h.svc.AssignNewTasks(context.Background(), admin, "mission-1", []TaskInput{
		{Title: "Général", Category: domain.CategoryGeneral, Type: domain.TaskTypeCleanup, EstimatedMinutes: 30},
	})
	require.NoError(t, err)

	assert.Zero(t, outcome.AssignedCount)
	assert.Equal(t, 1, outcome.UnassignedCount)
	task := outcome.Tasks[0].Task
	assert.Nil(t, task.AssigneeID)
	assert.Equal(t, domain.TaskStatusPending, task.Status)
	assert.Equal(t, assignment.TierNone, outcome.Tasks[0].Tier)

	hist := h.store.historyFor(task.ID)
	require.Len(t, hist, 1)
	assert.Equal(t, domain.ChangeTypeUnassigned, hist[0].ChangeType)
	assert.Equal(t, "No qualified worker found", hist[0].Note)
	assert.Len(t, h.recorder.ofType(events.EventTaskUnassigned), 1)
}

func TestAssignNewTasks_CountsExistingWorkload(t *testing.T) {
	h := newHarness(t)
	h.store.addMember(worker("expert", nil, domain.ExperienceExpert, domain.AvailabilityAvailable))
	h.store.addMember(worker("junior", nil, domain.ExperienceJunior, domain.AvailabilityAvailable))
	expert := "expert"
	h.store.addTask(domain.Task{MissionID: "mission-1", Status: domain.TaskStatusInProgress, AssigneeID: &expert})

	outcome, err := h.svc.AssignNewTasks(context.Background(), lead, "mission-1", []TaskInput{
		{Title: "Cuisine", Category: domain.CategoryKitchen, Type: domain.TaskTypeCleanup, EstimatedMinutes: 20},
	})
	require.NoError(t, err)
	assert.Equal(t, "junior", *outcome.Tasks[0].Task.AssigneeID)
}

func TestAssignNewTasks_EmptyRoster(t *testing.T) {
	h := newHarness(t)
	inactive := worker("gone", nil, domain.ExperienceExpert, domain.AvailabilityAvailable)
	inactive.Active = false
	h.store.addMember(inactive)

	_, err := h.svc.AssignNewTasks(context.Background(), lead, "mission-1", windowsAndKitchen())
	de := requireDomainError(t, err, "EMPTY_ROSTER", http.StatusConflict)
	assert.ErrorIs(t, de, assignment.ErrEmptyRoster)
	assert.Empty(t, h.store.tasks, "nothing persisted")
	assert.Empty(t, h.recorder.events)
}

func TestAssignNewTasks_RollsBackOnWriteFailure(t *testing.T) {
	h := newHarness(t)
	h.store.addMember(worker("W1", nil, domain.ExperienceSenior, domain.AvailabilityAvailable))
	h.store.failAfter = 1

	_, err := h.svc.AssignNewTasks(context.Background(), lead, "mission-1", windowsAndKitchen())
	requireDomainError(t, err, "INTERNAL_ERROR", http.StatusInternalServerError)
	assert.Empty(t, h.store.tasks)
	assert.Empty(t, h.store.history)
	assert.Empty(t, h.cache.invalidated)
}

func TestAssignNewTasks_Rejections(t *testing.T) {
	tests := []struct {
		name    string
		setup   func(*memStore)
		actor   *domain.Actor
		mission string
		inputs  []TaskInput
		code    string
		status  int
	}{
		{name: "anonymous", actor: nil, mission: "mission-1", inputs: windowsAndKitchen(), code: "UNAUTHORIZED", status: http.StatusUnauthorized},
		{name: "agent", actor: agent, mission: "mission-1", inputs: windowsAndKitchen(), code: "FORBIDDEN", status: http.StatusForbidden},
		{name: "no tasks", actor: lead, mission: "mission-1", code: "VALIDATION_FAILED", status: http.StatusBadRequest},
		{
			name:    "invalid task",
			actor:   lead,
			mission: "mission-1",
			inputs:  []TaskInput{{Title: " ", Category: "GARDEN", Type: domain.TaskTypeCleanup, EstimatedMinutes: 0}},
			code:    "VALIDATION_FAILED",
			status:  http.StatusBadRequest,
		},
		{name: "unknown mission", actor: lead, mission: "nope", inputs: windowsAndKitchen(), code: "NOT_FOUND", status: http.StatusNotFound},
		{
			name:    "completed mission",
			setup:   func(s *memStore) { s.addMission("done", "team-1", domain.MissionStatusCompleted) },
			actor:   lead,
			mission: "done",
			inputs:  windowsAndKitchen(),
			code:    "CONFLICT",
			status:  http.StatusConflict,
		},
		{
			name: "inactive team",
			setup: func(s *memStore) {
				s.addTeam("team-off", false)
				s.addMission("m-off", "team-off", domain.MissionStatusScheduled)
			},
			actor:   lead,
			mission: "m-off",
			inputs:  windowsAndKitchen(),
			code:    "CONFLICT",
			status:  http.StatusConflict,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t)
			h.store.addMember(worker("W1", nil, domain.ExperienceSenior, domain.AvailabilityAvailable))
			if tt.setup != nil {
				tt.setup(h.store)
			}
			_, err := h.svc.AssignNewTasks(context.Background(), tt.actor, tt.mission, tt.inputs)
			requireDomainError(t, err, tt.code, tt.status)
			assert.Empty(t, h.store.lockedTeams)
		})
	}
}

func TestValidateTaskInputs_Details(t *testing.T) {
	err := validateTaskInputs([]TaskInput{
		{Title: "ok", Category: domain.CategoryFloors, Type: domain.TaskTypeCleanup, EstimatedMinutes: 10},
		{Title: "", Category: "GARDEN", Type: "POLISH", EstimatedMinutes: -5},
	})
	de := requireDomainError(t, err, "VALIDATION_FAILED", http.StatusBadRequest)
	assert.Equal(t, map[string]any{
		"tasks[1].title":             "required",
		"tasks[1].category":          "unknown category",
		"tasks[1].type":              "unknown type",
		"tasks[1].estimated_minutes": "must be positive",
	}, de.Details)
}

// ── AutoAssignPending ─────────────────────────────────────────────────────────

func TestAutoAssignPending(t *testing.T) {
	h := newHarness(t)
	h.store.addMember(worker("W1", []domain.Specialty{domain.SpecialtyFloor}, domain.ExperienceIntermediate, domain.AvailabilityAvailable))

	w1 := "W1"
	pendingID := h.store.addTask(domain.Task{MissionID: "mission-1", Title: "Sols", Category: domain.CategoryFloors, Type: domain.TaskTypeCleanup, EstimatedMinutes: 30, Status: domain.TaskStatusPending}).ID
	assignedID := h.store.addTask(domain.Task{MissionID: "mission-1", Title: "Déjà pris", Category: domain.CategoryKitchen, Type: domain.TaskTypeCleanup, EstimatedMinutes: 30, Status: domain.TaskStatusAssigned, AssigneeID: &w1}).ID
	h.store.addTask(domain.Task{MissionID: "other", Title: "Ailleurs", Category: domain.CategoryKitchen, Type: domain.TaskTypeCleanup, EstimatedMinutes: 30, Status: domain.TaskStatusPending})

	outcome, err := h.svc.AutoAssignPending(context.Background(), lead, "mission-1")
	require.NoError(t, err)

	require.Len(t, outcome.Tasks, 1)
	assert.Equal(t, pendingID, outcome.Tasks[0].Task.ID)
	assert.Equal(t, 1, outcome.AssignedCount)

	stored := h.store.task(pendingID)
	require.NotNil(t, stored.AssigneeID)
	assert.Equal(t, "W1", *stored.AssigneeID)
	assert.Equal(t, domain.TaskStatusAssigned, stored.Status)
	assert.Len(t, h.store.historyFor(pendingID), 1)
	assert.Empty(t, h.store.historyFor(assignedID))
}

func TestAutoAssignPending_NothingPending(t *testing.T) {
	h := newHarness(t)
	h.store.addMember(worker("W1", nil, domain.ExperienceJunior, domain.AvailabilityAvailable))

	outcome, err := h.svc.AutoAssignPending(context.Background(), admin, "mission-1")
	require.NoError(t, err)
	assert.Empty(t, outcome.Tasks)
	assert.Zero(t, outcome.AssignedCount+outcome.UnassignedCount)
	assert.Empty(t, h.recorder.events)
	assert.Zero(t, h.metrics.Snapshot().AssignmentRuns)
}

func TestAutoAssignPending_NothingPendingOnEmptyRoster(t *testing.T) {
	h := newHarness(t)
	w1 := "W1"
	h.store.addTask(domain.Task{MissionID: "mission-1", Title: "Sols", Status: domain.TaskStatusAssigned, AssigneeID: &w1})

	outcome, err := h.svc.AutoAssignPending(context.Background(), lead, "mission-1")
	require.NoError(t, err)
	assert.Empty(t, outcome.Tasks)
	assert.Zero(t, h.store.rosterLoads)
}

func TestAutoAssignPending_StillUnassignedIsAudited(t *testing.T) {
	h := newHarness(t)
	h.store.addMember(worker("W1", nil, domain.ExperienceJunior, domain.AvailabilityVacation))
	id := h.store.addTask(domain.Task{MissionID: "mission-1", Title: "Sols", Category: domain.CategoryFloors, Type: domain.TaskTypeCleanup, EstimatedMinutes: 30, Status: domain.TaskStatusPending}).ID

	outcome, err := h.svc.AutoAssignPending(context.Background(), lead, "mission-1")
	require.NoError(t, err)
	assert.Equal(t, 1, outcome.UnassignedCount)
	assert.Nil(t, h.store.task(id).AssigneeID)
	hist := h.store.historyFor(id)
	require.Len(t, hist, 1)
	assert.Equal(t, domain.ChangeTypeUnassigned, hist[0].ChangeType)
}

// ── SuggestAssignees ──────────────────────────────────────────────────────────

func TestSuggestAssignees(t *testing.T) {
	h := newHarness(t)
	h.store.addMember(worker("busy", []domain.Specialty{domain.SpecialtyFloor}, domain.ExperienceJunior, domain.AvailabilityBusy))
	h.store.addMember(worker("floor", []domain.Specialty{domain.SpecialtyFloor, domain.SpecialtyEquipmentHandling}, domain.ExperienceSenior, domain.AvailabilityAvailable))
	h.store.addMember(worker("cleaner", []domain.Specialty{domain.SpecialtyGeneralCleaning}, domain.ExperienceIntermediate, domain.AvailabilityAvailable))
	taskID := h.store.addTask(domain.Task{MissionID: "mission-1", Title: "Sols", Category: domain.CategoryFloors, Type: domain.TaskTypeCleanup, EstimatedMinutes: 30, Status: domain.TaskStatusPending}).ID

	ranked, err := h.svc.SuggestAssignees(context.Background(), agent, taskID, 0)
	require.NoError(t, err)
	require.Len(t, ranked, 2, "default limit applies")
	assert.Equal(t, "floor", ranked[0].ID)
	assert.True(t, ranked[0].Eligible)

	all, err := h.svc.SuggestAssignees(context.Background(), agent, taskID, 10)
	require.NoError(t, err)
	assert.Len(t, all, 3)
	assert.Equal(t, 1, h.store.rosterLoads, "second call served from cache")
	assert.Empty(t, h.store.lockedTeams)
}

func TestSuggestAssignees_CacheFailureFallsBackToDatabase(t *testing.T) {
	h := newHarness(t)
	h.cache.failGet = true
	h.store.addMember(worker("W1", nil, domain.ExperienceJunior, domain.AvailabilityAvailable))
	taskID := h.store.addTask(domain.Task{MissionID: "mission-1", Category: domain.CategoryKitchen, Type: domain.TaskTypeCleanup, EstimatedMinutes: 10, Status: domain.TaskStatusPending}).ID

	ranked, err := h.svc.SuggestAssignees(context.Background(), lead, taskID, 5)
	require.NoError(t, err)
	assert.Len(t, ranked, 1)
}

func TestSuggestAssignees_Errors(t *testing.T) {
	h := newHarness(t)

	_, err := h.svc.SuggestAssignees(context.Background(), nil, "task-x", 0)
	requireDomainError(t, err, "UNAUTHORIZED", http.StatusUnauthorized)

	_, err = h.svc.SuggestAssignees(context.Background(), agent, "task-x", 500)
	requireDomainError(t, err, "VALIDATION_FAILED", http.StatusBadRequest)

	_, err = h.svc.SuggestAssignees(context.Background(), agent, "task-x", 3)
	requireDomainError(t, err, "NOT_FOUND", http.StatusNotFound)
}

// ── ReassignTask ──────────────────────────────────────────────────────────────

func TestReassignTask(t *testing.T) {
	h := newHarness(t)
	h.store.addMember(worker("W1", nil, domain.ExperienceJunior, domain.AvailabilityAvailable))
	h.store.addMember(worker("W2", nil, domain.ExperienceJunior, domain.AvailabilityBusy))
	w1 := "W1"
	assignedID := h.store.addTask(domain.Task{MissionID: "mission-1", Title: "Vitres", Status: domain.TaskStatusInProgress, AssigneeID: &w1}).ID
	pendingID := h.store.addTask(domain.Task{MissionID: "mission-1", Title: "Sols", Status: domain.TaskStatusPending}).ID

	task, err := h.svc.ReassignTask(context.Background(), lead, assignedID, "W2")
	require.NoError(t, err)
	assert.Equal(t, "W2", *task.AssigneeID)
	assert.Equal(t, domain.TaskStatusInProgress, task.Status, "non-pending status is kept")

	hist := h.store.historyFor(assignedID)
	require.Len(t, hist, 1)
	assert.Equal(t, domain.ChangeTypeReassigned, hist[0].ChangeType)
	assert.Equal(t, "W1", *(hist[0].OldValue["assignee_id"].(*string)))

	reassigned := h.recorder.ofType(events.EventTaskReassigned)
	require.Len(t, reassigned, 1)
	assert.Equal(t, events.TaskReassignedPayload{OldAssigneeID: &w1, NewAssigneeID: "W2"}, reassigned[0].Payload)
	assert.Equal(t, []string{"team-1"}, h.cache.invalidated)

	task, err = h.svc.ReassignTask(context.Background(), admin, pendingID, "W1")
	require.NoError(t, err)
	assert.Equal(t, domain.TaskStatusAssigned, task.Status)
	assert.Equal(t, domain.TaskStatusAssigned, h.store.task(pendingID).Status)
}

func TestReassignTask_WorkerNotFoundOrInactive(t *testing.T) {
	h := newHarness(t)
	off := worker("W-off", nil, domain.ExperienceSenior, domain.AvailabilityAvailable)
	off.Active = false
	h.store.addMember(off)
	taskID := h.store.addTask(domain.Task{MissionID: "mission-1", Status: domain.TaskStatusPending}).ID

	_, err := h.svc.ReassignTask(context.Background(), lead, taskID, "ghost")
	de := requireDomainError(t, err, "WORKER_NOT_FOUND_OR_INACTIVE", http.StatusNotFound)
	assert.ErrorIs(t, de, ErrWorkerNotFoundOrInactive)

	_, err = h.svc.ReassignTask(context.Background(), lead, taskID, "W-off")
	de = requireDomainError(t, err, "WORKER_NOT_FOUND_OR_INACTIVE", http.StatusConflict)
	assert.ErrorIs(t, de, ErrWorkerNotFoundOrInactive)

	assert.Nil(t, h.store.task(taskID).AssigneeID)
	assert.Empty(t, h.store.history)
	assert.Empty(t, h.recorder.events)
}

func TestReassignTask_Rejections(t *testing.T) {
	h := newHarness(t)
	h.store.addMember(worker("W1", nil, domain.ExperienceSenior, domain.AvailabilityAvailable))
	doneID := h.store.addTask(domain.Task{MissionID: "mission-1", Status: domain.TaskStatusCompleted}).ID

	_, err := h.svc.ReassignTask(context.Background(), agent, doneID, "W1")
	requireDomainError(t, err, "FORBIDDEN", http.StatusForbidden)

	_, err = h.svc.ReassignTask(context.Background(), lead, doneID, "  ")
	requireDomainError(t, err, "VALIDATION_FAILED", http.StatusBadRequest)

	_, err = h.svc.ReassignTask(context.Background(), lead, "missing", "W1")
	requireDomainError(t, err, "NOT_FOUND", http.StatusNotFound)

	_, err = h.svc.ReassignTask(context.Background(), lead, doneID, "W1")
	requireDomainError(t, err, "CONFLICT", http.StatusConflict)
}

func TestReassignTask_CrossTeamRefreshesMissionRoster(t *testing.T) {
	h := newHarness(t)
	h.store.addTeam("team-2", true)
	h.store.addMember(worker("W1", nil, domain.ExperienceJunior, domain.AvailabilityAvailable))
	outsider := worker("X9", nil, domain.ExperienceSenior, domain.AvailabilityAvailable)
	outsider.TeamID = "team-2"
	h.store.addMember(outsider)
	w1 := "W1"
	taskID := h.store.addTask(domain.Task{MissionID: "mission-1", Category: domain.CategoryKitchen, Type: domain.TaskTypeCleanup, EstimatedMinutes: 20, Status: domain.TaskStatusAssigned, AssigneeID: &w1}).ID

	before, err := h.svc.SuggestAssignees(context.Background(), lead, taskID, 10)
	require.NoError(t, err)
	require.Len(t, before, 1)
	assert.Equal(t, 1, before[0].CurrentTaskCount)

	_, err = h.svc.ReassignTask(context.Background(), lead, taskID, "X9")
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"team-1", "team-2"}, h.cache.invalidated)

	after, err := h.svc.SuggestAssignees(context.Background(), lead, taskID, 10)
	require.NoError(t, err)
	require.Len(t, after, 1)
	assert.Equal(t, "W1", after[0].ID)
	assert.Zero(t, after[0].CurrentTaskCount, "roster reloaded after reassignment")
	assert.Equal(t, 2, h.store.rosterLoads)
}

func TestReassignTask_InvalidatesPreviousAssigneeTeam(t *testing.T) {
	h := newHarness(t)
	h.store.addTeam("team-3", true)
	h.store.addMember(worker("W1", nil, domain.ExperienceJunior, domain.AvailabilityAvailable))
	loaned := worker("L7", nil, domain.ExperienceJunior, domain.AvailabilityAvailable)
	loaned.TeamID = "team-3"
	h.store.addMember(loaned)
	l7 := "L7"
	taskID := h.store.addTask(domain.Task{MissionID: "mission-1", Status: domain.TaskStatusAssigned, AssigneeID: &l7}).ID

	_, err := h.svc.ReassignTask(context.Background(), admin, taskID, "W1")
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"team-1", "team-3"}, h.cache.invalidated)
}
