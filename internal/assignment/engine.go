// Package assignment places mission tasks on team members. Both entry points are pure
// functions of their inputs: no I/O, no locking, no state kept between calls.
package assignment

import (
	"errors"
	"sort"

	"github.com/spec-kit/field-service/internal/domain"
)

// ErrEmptyRoster is returned when Assign receives no workers at all.
var ErrEmptyRoster = errors.New("assignment: roster is empty")

// Result is the outcome for one task. AssignedWorkerID is nil only when the roster had
// no available member.
type Result struct {
	Task             domain.TaskDescriptor `json:"task"`
	AssignedWorkerID *string               `json:"assigned_worker_id"`
	Tier             Tier                  `json:"tier"`
	Score            int                   `json:"score"`
}

// Assigned reports whether a worker was picked.
func (r Result) Assigned() bool {
	return r.AssignedWorkerID != nil
}

// Engine runs greedy, priority-ordered, workload-aware assignment over a rule table.
type Engine struct {
	rules RuleSet
}

// NewEngine builds an engine. A nil rule set falls back to DefaultRules.
func NewEngine(rules RuleSet) *Engine {
	if rules == nil {
		rules = DefaultRules()
	}
	return &Engine{rules: rules}
}

type plannedTask struct {
	task domain.TaskDescriptor
	rule *Rule
}

func (p plannedTask) weight() int {
	if p.rule == nil {
		return 0
	}
	return len(p.rule.RequiredSpecialties)
}

// prioritize orders tasks by how many required specialties their rule lists, most
// first. Equal weights keep input order.
func (e *Engine) prioritize(tasks []domain.TaskDescriptor) []plannedTask {
	planned := make([]plannedTask, len(tasks))
	for i, t := range tasks {
		rule, _ := e.rules.Match(t.Category, t.Type)
		planned[i] = plannedTask{task: t, rule: rule}
	}
	sort.SliceStable(planned, func(i, j int) bool {
		return planned[i].weight() > planned[j].weight()
	})
	return planned
}

// Assign returns one result per task in priority order. Workers are read, never
// modified; the running workload lives in a map local to the call.
func (e *Engine) Assign(tasks []domain.TaskDescriptor, workers []domain.TeamMember) ([]Result, error) {
	if len(workers) == 0 {
		return nil, ErrEmptyRoster
	}

	load := make(map[string]int, len(workers))
	for _, w := range workers {
		load[w.ID] = w.CurrentTaskCount
	}

	planned := e.prioritize(tasks)
	results := make([]Result, 0, len(planned))
	for _, p := range planned {
		candidates, tier := selectCandidates(p.rule, workers)
		result := Result{Task: p.task, Tier: tier}

		if winner, score, ok := pickBest(candidates, p.rule, load); ok {
			id := winner.ID
			result.AssignedWorkerID = &id
			result.Score = score
			load[id]++
		}
		results = append(results, result)
	}
	return results, nil
}

// pickBest returns the highest bulk score; the earliest candidate wins ties.
func pickBest(candidates []*domain.TeamMember, rule *Rule, load map[string]int) (*domain.TeamMember, int, bool) {
	var (
		best      *domain.TeamMember
		bestScore int
	)
	for _, c := range candidates {
		score := bulkScore(c, rule, load[c.ID])
		if best == nil || score > bestScore {
			best, bestScore = c, score
		}
	}
	return best, bestScore, best != nil
}

// CountUnassigned is a convenience for callers reporting partial placement.
func CountUnassigned(results []Result) int {
	n := 0
	for _, r := range results {
		if !r.Assigned() {
			n++
		}
	}
	return n
}
