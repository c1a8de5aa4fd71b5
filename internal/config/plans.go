package config

import (
	"fmt"
	"os"

	"github.com/Marga-Ghale/teamhub-backend/internal/types"
	"gopkg.in/yaml.v3"
)

// Unlimited marks a plan without a member cap.
const Unlimited = 0

// PlanLimits describes what a plan allows.
type PlanLimits struct {
	MaxMembers int `yaml:"max_members"`
}

// PlanCatalog maps plan ids to their limits.
type PlanCatalog map[string]PlanLimits

// plansFile models the optional PLANS_FILE document.
type plansFile struct {
	Plans map[string]PlanLimits `yaml:"plans"`
}

// DefaultPlans returns the built-in catalog.
func DefaultPlans() PlanCatalog {
	return PlanCatalog{
		types.PlanFree:       {MaxMembers: 3},
		types.PlanPro:        {MaxMembers: 25},
		types.PlanEnterprise: {MaxMembers: Unlimited},
	}
}

// LoadPlans returns the default catalog overridden by the YAML file at path, if any.
func LoadPlans(path string) (PlanCatalog, error) {
	catalog := DefaultPlans()
	if path == "" {
		return catalog, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read plans file: %w", err)
	}
	return ParsePlans(data)
}

// ParsePlans applies a YAML plan document on top of the defaults.
func ParsePlans(data []byte) (PlanCatalog, error) {
	catalog := DefaultPlans()

	var doc plansFile
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse plans file: %w", err)
	}
	for id, limits := range doc.Plans {
		if !types.IsValidPlan(id) {
			return nil, fmt.Errorf("plans file: unknown plan %q", id)
		}
		if limits.MaxMembers < 0 {
			return nil, fmt.Errorf("plans file: plan %q has negative max_members", id)
		}
		catalog[id] = limits
	}
	return catalog, nil
}

// MemberCap returns the member limit for a plan and whether one applies.
// Unknown plans fall back to the free tier.
func (c PlanCatalog) MemberCap(planID string) (int, bool) {
	limits, ok := c[planID]
	if !ok {
		limits = c[types.PlanFree]
	}
	if limits.MaxMembers == Unlimited {
		return 0, false
	}
	return limits.MaxMembers, true
}
