package assignment

import (
	"errors"
	"fmt"

	"github.com/spec-kit/field-service/internal/domain"
)

// Rule declares who may take tasks of a category, optionally narrowed to one task type.
// A rule with an empty Type matches every type of its category.
type Rule struct {
	Category             domain.TaskCategory     `yaml:"category"`
	Type                 domain.TaskType         `yaml:"type,omitempty"`
	RequiredSpecialties  []domain.Specialty      `yaml:"required,omitempty"`
	MinimumExperience    *domain.ExperienceLevel `yaml:"minimum_experience,omitempty"`
	PreferredSpecialties []domain.Specialty      `yaml:"preferred,omitempty"`
}

func (r Rule) matches(category domain.TaskCategory, taskType domain.TaskType) bool {
	if r.Category != category {
		return false
	}
	return r.Type == "" || r.Type == taskType
}

func (r Rule) String() string {
	if r.Type == "" {
		return string(r.Category)
	}
	return string(r.Category) + "/" + string(r.Type)
}

// RuleSet is an ordered rule table; the first matching rule wins.
type RuleSet []Rule

// Match returns the first rule for the category/type pair.
func (rs RuleSet) Match(category domain.TaskCategory, taskType domain.TaskType) (*Rule, bool) {
	for i := range rs {
		if rs[i].matches(category, taskType) {
			return &rs[i], true
		}
	}
	return nil, false
}

var ErrInvalidRule = errors.New("invalid assignment rule")

// Validate rejects unknown enum values, duplicate keys and typed rules that an earlier
// category-only rule of the same category would always shadow.
func (rs RuleSet) Validate() error {
	seen := make(map[string]int, len(rs))
	catchAll := make(map[domain.TaskCategory]int, len(rs))
	for i, r := range rs {
		if !r.Category.Valid() {
			return fmt.Errorf("%w: rule %d: unknown category %q", ErrInvalidRule, i, r.Category)
		}
		if r.Type != "" && !r.Type.Valid() {
			return fmt.Errorf("%w: rule %d: unknown task type %q", ErrInvalidRule, i, r.Type)
		}
		if r.MinimumExperience != nil && !r.MinimumExperience.Valid() {
			return fmt.Errorf("%w: rule %d: minimum experience out of range", ErrInvalidRule, i)
		}
		for _, s := range r.RequiredSpecialties {
			if !s.Valid() {
				return fmt.Errorf("%w: rule %d: unknown required specialty %q", ErrInvalidRule, i, s)
			}
		}
		for _, s := range r.PreferredSpecialties {
			if !s.Valid() {
				return fmt.Errorf("%w: rule %d: unknown preferred specialty %q", ErrInvalidRule, i, s)
			}
		}
		if prev, dup := seen[r.String()]; dup {
			return fmt.Errorf("%w: rule %d duplicates rule %d (%s)", ErrInvalidRule, i, prev, r)
		}
		seen[r.String()] = i
		if r.Type == "" {
			catchAll[r.Category] = i
			continue
		}
		if prev, shadowed := catchAll[r.Category]; shadowed {
			return fmt.Errorf("%w: rule %d (%s) is unreachable behind category rule %d", ErrInvalidRule, i, r, prev)
		}
	}
	return nil
}

func minExperience(level domain.ExperienceLevel) *domain.ExperienceLevel {
	return &level
}

// DefaultRules is the rule table compiled into the service. Typed rules precede the
// category-only rule of the same category. KITCHEN has no rule: any available member
// may take it.
func DefaultRules() RuleSet {
	return RuleSet{
		{
			Category:             domain.CategoryWindowsJoinery,
			RequiredSpecialties:  []domain.Specialty{domain.SpecialtyWindow},
			MinimumExperience:    minExperience(domain.ExperienceIntermediate),
			PreferredSpecialties: []domain.Specialty{domain.SpecialtyEquipmentHandling},
		},
		{
			Category:             domain.CategoryFloors,
			RequiredSpecialties:  []domain.Specialty{domain.SpecialtyFloor},
			PreferredSpecialties: []domain.Specialty{domain.SpecialtyEquipmentHandling},
		},
		{
			Category:             domain.CategoryLivingSpaces,
			Type:                 domain.TaskTypeDetailFinishing,
			RequiredSpecialties:  []domain.Specialty{domain.SpecialtyLuxurySurfaces},
			MinimumExperience:    minExperience(domain.ExperienceSenior),
			PreferredSpecialties: []domain.Specialty{domain.SpecialtyQualityControl},
		},
		{
			Category:             domain.CategoryLivingSpaces,
			RequiredSpecialties:  []domain.Specialty{domain.SpecialtyGeneralCleaning},
			PreferredSpecialties: []domain.Specialty{domain.SpecialtyLuxurySurfaces},
		},
		{
			Category:             domain.CategoryBathroomSanitary,
			RequiredSpecialties:  []domain.Specialty{domain.SpecialtyGeneralCleaning},
			PreferredSpecialties: []domain.Specialty{domain.SpecialtyQualityControl},
		},
		{
			Category:             domain.CategoryLogisticsAccess,
			RequiredSpecialties:  []domain.Specialty{domain.SpecialtyEquipmentHandling},
			PreferredSpecialties: []domain.Specialty{domain.SpecialtyTeamManagement},
		},
		{
			Category:            domain.CategoryGeneral,
			Type:                domain.TaskTypeQualityCheck,
			RequiredSpecialties: []domain.Specialty{domain.SpecialtyQualityControl, domain.SpecialtyTeamManagement},
			MinimumExperience:   minExperience(domain.ExperienceSenior),
		},
		{
			Category:             domain.CategoryGeneral,
			PreferredSpecialties: []domain.Specialty{domain.SpecialtyGeneralCleaning},
		},
	}
}
