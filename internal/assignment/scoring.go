package assignment

import "github.com/spec-kit/field-service/internal/domain"

// Scoring weights. The workload penalty outweighs the largest experience bonus
// (ExperienceWeight * EXPERT = 15), so one extra task beats any seniority gap.
const (
	PreferredSpecialtyWeight = 10
	ExperienceWeight         = 5
	WorkloadPenalty          = 20

	IdleBonus             = 15
	ModerateLoadBonus     = 5
	HighLoadPenalty       = 10
	ModerateLoadThreshold = 3
)

func preferredMatches(w *domain.TeamMember, rule *Rule) []domain.Specialty {
	if rule == nil {
		return nil
	}
	var held []domain.Specialty
	for _, s := range rule.PreferredSpecialties {
		if w.HasSpecialty(s) {
			held = append(held, s)
		}
	}
	return held
}

// bulkScore ranks candidates during Assign, with load being the running count.
func bulkScore(w *domain.TeamMember, rule *Rule, load int) int {
	score := PreferredSpecialtyWeight * len(preferredMatches(w, rule))
	score += ExperienceWeight * int(w.Experience)
	score -= WorkloadPenalty * load
	return score
}

// loadAdjustment is the readability term added on top of bulkScore by the ranker.
func loadAdjustment(load int) int {
	switch {
	case load == 0:
		return IdleBonus
	case load < ModerateLoadThreshold:
		return ModerateLoadBonus
	default:
		return -HighLoadPenalty
	}
}

// suggestionScore is the ranker's score for a member with its stored load.
func suggestionScore(w *domain.TeamMember, rule *Rule) int {
	return bulkScore(w, rule, w.CurrentTaskCount) + loadAdjustment(w.CurrentTaskCount)
}
