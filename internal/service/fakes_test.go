package service

import (
	"context"
	"fmt"
	"slices"
	"sync"

	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/field-service/internal/domain"
	"github.com/spec-kit/field-service/internal/events"
	"github.com/spec-kit/field-service/internal/repository"
)

// memStore backs every fake repository so that transactional fakes can snapshot and
// restore state.
type memStore struct {
	mu        sync.Mutex
	missions  map[string]*domain.Mission
	teams     map[string]*domain.Team
	members   []domain.TeamMember
	tasks     []domain.Task
	history   []domain.TaskHistory
	nextID    int
	failAfter int // Tasks.Create fails once this many creates succeeded; 0 disables.
	creates   int

	rosterLoads int
	lockedTeams []string
}

func newMemStore() *memStore {
	return &memStore{
		missions: map[string]*domain.Mission{},
		teams:    map[string]*domain.Team{},
	}
}

func (s *memStore) id(prefix string) string {
	s.nextID++
	return fmt.Sprintf("%s-%d", prefix, s.nextID)
}

func (s *memStore) addTeam(id string, active bool) *domain.Team {
	t := &domain.Team{ID: id, Name: id, IsActive: active}
	s.teams[id] = t
	return t
}

func (s *memStore) addMission(id, teamID string, status domain.MissionStatus) *domain.Mission {
	m := &domain.Mission{ID: id, Reference: "REF-" + id, TeamID: teamID, Title: id, Status: status}
	s.missions[id] = m
	return m
}

func (s *memStore) addMember(m domain.TeamMember) {
	s.members = append(s.members, m)
}

func (s *memStore) addTask(t domain.Task) *domain.Task {
	if t.ID == "" {
		t.ID = s.id("task")
	}
	s.tasks = append(s.tasks, t)
	return &s.tasks[len(s.tasks)-1]
}

func (s *memStore) task(id string) *domain.Task {
	for i := range s.tasks {
		if s.tasks[i].ID == id {
			return &s.tasks[i]
		}
	}
	return nil
}

func (s *memStore) historyFor(taskID string) []domain.TaskHistory {
	var out []domain.TaskHistory
	for _, h := range s.history {
		if h.TaskID == taskID {
			out = append(out, h)
		}
	}
	return out
}

func (s *memStore) repos() repository.TxRepositories {
	return repository.TxRepositories{
		Missions: fakeMissionRepo{s},
		Members:  fakeMemberRepo{s},
		Tasks:    fakeTaskRepo{s},
		History:  fakeHistoryRepo{s},
	}
}

// ── missions / teams ──────────────────────────────────────────────────────────

type fakeMissionRepo struct{ s *memStore }

func (r fakeMissionRepo) Create(_ context.Context, m *domain.Mission) error {
	r.s.missions[m.ID] = m
	return nil
}

func (r fakeMissionRepo) GetByID(_ context.Context, id string) (*domain.Mission, error) {
	m, ok := r.s.missions[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	cp := *m
	return &cp, nil
}

type fakeTeamRepo struct{ s *memStore }

func (r fakeTeamRepo) Create(_ context.Context, t *domain.Team) error {
	r.s.teams[t.ID] = t
	return nil
}

func (r fakeTeamRepo) GetByID(_ context.Context, id string) (*domain.Team, error) {
	t, ok := r.s.teams[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	cp := *t
	return &cp, nil
}

// ── members ───────────────────────────────────────────────────────────────────

type fakeMemberRepo struct{ s *memStore }

func (r fakeMemberRepo) Create(_ context.Context, m *domain.TeamMember) error {
	r.s.members = append(r.s.members, *m)
	return nil
}

func (r fakeMemberRepo) GetByID(_ context.Context, id string) (*domain.TeamMember, error) {
	for _, m := range r.s.members {
		if m.ID == id {
			m.CurrentTaskCount = r.load(id)
			return &m, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (r fakeMemberRepo) ListRoster(_ context.Context, teamID string) ([]domain.TeamMember, error) {
	r.s.rosterLoads++
	var out []domain.TeamMember
	for _, m := range r.s.members {
		if m.TeamID != teamID || !m.Active {
			continue
		}
		m.Specialties = slices.Clone(m.Specialties)
		m.CurrentTaskCount = r.load(m.ID)
		out = append(out, m)
	}
	return out, nil
}

func (r fakeMemberRepo) load(memberID string) int {
	n := 0
	for _, t := range r.s.tasks {
		if t.AssigneeID != nil && *t.AssigneeID == memberID && t.Status.CountsAsWorkload() {
			n++
		}
	}
	return n
}

// ── tasks / history ───────────────────────────────────────────────────────────

type fakeTaskRepo struct{ s *memStore }

func (r fakeTaskRepo) Create(_ context.Context, t *domain.Task) error {
	if r.s.failAfter > 0 && r.s.creates >= r.s.failAfter {
		return fmt.Errorf("insert task: connection reset")
	}
	r.s.creates++
	t.ID = r.s.id("task")
	r.s.tasks = append(r.s.tasks, *t)
	return nil
}

func (r fakeTaskRepo) UpdateAssignment(_ context.Context, t *domain.Task) error {
	stored := r.s.task(t.ID)
	if stored == nil {
		return pgx.ErrNoRows
	}
	stored.AssigneeID = t.AssigneeID
	stored.Status = t.Status
	return nil
}

func (r fakeTaskRepo) GetByID(_ context.Context, id string) (*domain.Task, error) {
	t := r.s.task(id)
	if t == nil {
		return nil, pgx.ErrNoRows
	}
	cp := *t
	return &cp, nil
}

func (r fakeTaskRepo) List(_ context.Context, f repository.TaskFilter) ([]domain.Task, error) {
	var out []domain.Task
	for _, t := range r.s.tasks {
		if f.MissionID != nil && t.MissionID != *f.MissionID {
			continue
		}
		if f.Unassigned && t.AssigneeID != nil {
			continue
		}
		if len(f.Statuses) > 0 && !slices.Contains(f.Statuses, t.Status) {
			continue
		}
		out = append(out, t)
	}
	return out, nil
}

type fakeHistoryRepo struct{ s *memStore }

func (r fakeHistoryRepo) Create(_ context.Context, h *domain.TaskHistory) error {
	h.ID = r.s.id("history")
	r.s.history = append(r.s.history, *h)
	return nil
}

func (r fakeHistoryRepo) ListByTask(_ context.Context, taskID string) ([]domain.TaskHistory, error) {
	return r.s.historyFor(taskID), nil
}

// ── unit of work ──────────────────────────────────────────────────────────────

type fakeUnitOfWork struct{ s *memStore }

func (u fakeUnitOfWork) WithTeamLock(ctx context.Context, teamID string, fn func(context.Context, repository.TxRepositories) error) error {
	u.s.mu.Lock()
	defer u.s.mu.Unlock()
	u.s.lockedTeams = append(u.s.lockedTeams, teamID)
	return u.run(ctx, fn)
}

func (u fakeUnitOfWork) WithinTx(ctx context.Context, fn func(context.Context, repository.TxRepositories) error) error {
	u.s.mu.Lock()
	defer u.s.mu.Unlock()
	return u.run(ctx, fn)
}

// run restores the task and history tables when fn fails.
func (u fakeUnitOfWork) run(ctx context.Context, fn func(context.Context, repository.TxRepositories) error) error {
	tasks := slices.Clone(u.s.tasks)
	history := slices.Clone(u.s.history)
	if err := fn(ctx, u.s.repos()); err != nil {
		u.s.tasks = tasks
		u.s.history = history
		return err
	}
	return nil
}

// ── cache / events ────────────────────────────────────────────────────────────

type fakeRosterCache struct {
	entries     map[string][]domain.TeamMember
	invalidated []string
	failGet     bool
}

func newFakeRosterCache() *fakeRosterCache {
	return &fakeRosterCache{entries: map[string][]domain.TeamMember{}}
}

func (c *fakeRosterCache) Get(_ context.Context, teamID string) ([]domain.TeamMember, bool, error) {
	if c.failGet {
		return nil, false, fmt.Errorf("redis: connection refused")
	}
	r, ok := c.entries[teamID]
	return r, ok, nil
}

func (c *fakeRosterCache) Set(_ context.Context, teamID string, roster []domain.TeamMember) error {
	c.entries[teamID] = roster
	return nil
}

func (c *fakeRosterCache) Invalidate(_ context.Context, teamID string) error {
	delete(c.entries, teamID)
	c.invalidated = append(c.invalidated, teamID)
	return nil
}

type eventRecorder struct {
	events []events.Event
}

func (r *eventRecorder) handle(_ context.Context, e events.Event) error {
	r.events = append(r.events, e)
	return nil
}

func (r *eventRecorder) ofType(t events.EventType) []events.Event {
	var out []events.Event
	for _, e := range r.events {
		if e.Type == t {
			out = append(out, e)
		}
	}
	return out
}
