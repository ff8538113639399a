package assignment

import "github.com/spec-kit/field-service/internal/domain"

// Tier records which eligibility filter produced the candidate pool.
type Tier string

const (
	TierStrict       Tier = "STRICT"
	TierGeneral      Tier = "GENERAL_FALLBACK"
	TierAnyAvailable Tier = "ANY_AVAILABLE"
	TierNone         Tier = "NONE"
)

// strictCandidates keeps available members that satisfy the rule. A nil rule, or a rule
// without requirements, only demands availability.
func strictCandidates(rule *Rule, workers []domain.TeamMember) []*domain.TeamMember {
	var out []*domain.TeamMember
	for i := range workers {
		w := &workers[i]
		if w.IsAvailable() && meetsRule(w, rule) {
			out = append(out, w)
		}
	}
	return out
}

func meetsRule(w *domain.TeamMember, rule *Rule) bool {
	if rule == nil {
		return true
	}
	return hasRequiredSpecialty(w, rule) && meetsExperienceFloor(w, rule)
}

func hasRequiredSpecialty(w *domain.TeamMember, rule *Rule) bool {
	if rule == nil || len(rule.RequiredSpecialties) == 0 {
		return true
	}
	return w.HasAnySpecialty(rule.RequiredSpecialties)
}

func meetsExperienceFloor(w *domain.TeamMember, rule *Rule) bool {
	if rule == nil || rule.MinimumExperience == nil {
		return true
	}
	return w.Experience.AtLeast(*rule.MinimumExperience)
}

// generalCandidates keeps available generalists: GENERAL_CLEANING holders or AGENT role.
func generalCandidates(workers []domain.TeamMember) []*domain.TeamMember {
	var out []*domain.TeamMember
	for i := range workers {
		w := &workers[i]
		if !w.IsAvailable() {
			continue
		}
		if w.HasSpecialty(domain.SpecialtyGeneralCleaning) || w.Role == domain.StaffRoleAgent {
			out = append(out, w)
		}
	}
	return out
}

func availableCandidates(workers []domain.TeamMember) []*domain.TeamMember {
	var out []*domain.TeamMember
	for i := range workers {
		if workers[i].IsAvailable() {
			out = append(out, &workers[i])
		}
	}
	return out
}

// selectCandidates walks strict -> general -> any available and returns the first
// non-empty pool. Candidates keep the roster order.
func selectCandidates(rule *Rule, workers []domain.TeamMember) ([]*domain.TeamMember, Tier) {
	if c := strictCandidates(rule, workers); len(c) > 0 {
		return c, TierStrict
	}
	if c := generalCandidates(workers); len(c) > 0 {
		return c, TierGeneral
	}
	if c := availableCandidates(workers); len(c) > 0 {
		return c, TierAnyAvailable
	}
	return nil, TierNone
}
