package assignment

import (
	"fmt"
	"slices"
	"sort"

	"github.com/spec-kit/field-service/internal/domain"
)

// Reason strings shown next to each suggestion.
const (
	ReasonAvailable          = "Disponible"
	ReasonUnavailable        = "Indisponible"
	ReasonHasRequired        = "Possède les spécialités requises"
	ReasonMissingRequired    = "Manque les spécialités requises"
	ReasonInsufficientLevel  = "Expérience insuffisante"
	ReasonFullyAvailable     = "Entièrement disponible"
	ReasonModerateLoad       = "Charge modérée"
	ReasonHighLoad           = "Charge élevée"
	reasonPreferredSpecialty = "Spécialité appréciée : %s"
	reasonExperience         = "Expérience : %s"
)

// RankedSuggestion is a roster member annotated for a manual assignment picker.
// Eligible mirrors the engine's strict filter for the task.
type RankedSuggestion struct {
	domain.TeamMember
	EligibilityScore   int      `json:"eligibility_score"`
	EligibilityReasons []string `json:"eligibility_reasons"`
	Eligible           bool     `json:"eligible"`
}

// Ranker scores every member for a single task. It never assigns.
type Ranker struct {
	rules RuleSet
}

func NewRanker(rules RuleSet) *Ranker {
	if rules == nil {
		rules = DefaultRules()
	}
	return &Ranker{rules: rules}
}

// Rank returns all workers sorted by descending score; equal scores keep roster order.
func (r *Ranker) Rank(task domain.TaskDescriptor, workers []domain.TeamMember) []RankedSuggestion {
	rule, _ := r.rules.Match(task.Category, task.Type)

	out := make([]RankedSuggestion, 0, len(workers))
	for i := range workers {
		member := workers[i]
		member.Specialties = slices.Clone(member.Specialties)
		out = append(out, annotate(member, rule))
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].EligibilityScore > out[j].EligibilityScore
	})
	return out
}

func annotate(member domain.TeamMember, rule *Rule) RankedSuggestion {
	w := &member
	eligible := true
	var reasons []string

	if w.IsAvailable() {
		reasons = append(reasons, ReasonAvailable)
	} else {
		eligible = false
		reasons = append(reasons, fmt.Sprintf("%s (%s)", ReasonUnavailable, w.Availability))
	}

	if rule != nil && len(rule.RequiredSpecialties) > 0 {
		if hasRequiredSpecialty(w, rule) {
			reasons = append(reasons, ReasonHasRequired)
		} else {
			eligible = false
			reasons = append(reasons, ReasonMissingRequired)
		}
	}
	if !meetsExperienceFloor(w, rule) {
		eligible = false
		reasons = append(reasons, ReasonInsufficientLevel)
	}

	for _, s := range preferredMatches(w, rule) {
		reasons = append(reasons, fmt.Sprintf(reasonPreferredSpecialty, s))
	}
	if w.Experience > domain.ExperienceJunior {
		reasons = append(reasons, fmt.Sprintf(reasonExperience, w.Experience))
	}

	switch load := w.CurrentTaskCount; {
	case load == 0:
		reasons = append(reasons, ReasonFullyAvailable)
	case load < ModerateLoadThreshold:
		reasons = append(reasons, fmt.Sprintf("%s (%d)", ReasonModerateLoad, load))
	default:
		reasons = append(reasons, fmt.Sprintf("%s (%d)", ReasonHighLoad, load))
	}

	return RankedSuggestion{
		TeamMember:         member,
		EligibilityScore:   suggestionScore(w, rule),
		EligibilityReasons: reasons,
		Eligible:           eligible,
	}
}
