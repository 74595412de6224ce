// Package service implements automation matching and schedule evaluation
package service

import (
	"context"
	"sort"
	"strconv"
	"strings"

	"fanflow/internal/platform/logger"
	dom "fanflow/internal/services/automations/domain"
)

// Matcher selects at most one winning automation per interaction.
// Automations are evaluated strictly in ascending priority order, so the
// reserved system band [1,2] can never be preempted by a custom rule.
type Matcher struct {
	eval dom.ConditionEvaluator
}

// NewMatcher constructs a Matcher around the external condition evaluator
func NewMatcher(eval dom.ConditionEvaluator) *Matcher {
	return &Matcher{eval: eval}
}

// Match returns the first automation, in priority order, whose scope covers
// the interaction and whose conditions all hold. nil means nothing matched.
func (m *Matcher) Match(
	ctx context.Context,
	in dom.MatchInput,
	automations []dom.Automation,
) (*dom.Automation, error) {
	log := logger.C(ctx)

	candidates := make([]dom.Automation, 0, len(automations))
	for _, a := range automations {
		if !a.Active() || !inScope(a, in) {
			continue
		}
		candidates = append(candidates, a)
	}
	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].Priority < candidates[j].Priority
	})

	for i := range candidates {
		a := candidates[i]
		ok, err := m.conditionsHold(ctx, a, in)
		if err != nil {
			// fail closed: this automation sits out the cycle, the rest
			// are still considered
			log.Warn().Err(err).
				Str("automation_id", a.ID).
				Msg("condition evaluation failed, skipping automation")
			continue
		}
		if ok {
			return &a, nil
		}
	}
	return nil, nil
}

func inScope(a dom.Automation, in dom.MatchInput) bool {
	if len(a.Platforms) > 0 && !containsString(a.Platforms, in.Platform) {
		return false
	}
	if len(a.Kinds) > 0 && !containsKind(a.Kinds, in.Kind) {
		return false
	}
	if a.ContentID != "" && a.ContentID != in.ContentID {
		return false
	}
	return true
}

// conditionsHold evaluates the ordered condition set; all must pass.
// An empty set matches everything in scope.
func (m *Matcher) conditionsHold(ctx context.Context, a dom.Automation, in dom.MatchInput) (bool, error) {
	for _, c := range a.Conditions {
		ok, err := m.condition(ctx, c, in)
		if err != nil {
			return false, err
		}
		if !ok {
			return false, nil
		}
	}
	return true, nil
}

func (m *Matcher) condition(ctx context.Context, c dom.Condition, in dom.MatchInput) (bool, error) {
	switch c.Kind {
	case dom.CondCategoryIs:
		return string(in.Category) == c.Value, nil
	case dom.CondKeywordContains:
		return strings.Contains(strings.ToLower(in.Text), strings.ToLower(c.Value)), nil
	case dom.CondAuthorIsOwner:
		return in.AuthorIsOwner, nil
	case dom.CondPriorityAtLeast:
		min, err := strconv.Atoi(strings.TrimSpace(c.Value))
		if err != nil {
			return false, nil // malformed threshold never matches
		}
		return in.Priority >= min, nil
	case dom.CondAI:
		if m.eval == nil {
			return false, nil
		}
		return m.eval.Evaluate(ctx, c.Value, in)
	default:
		return false, nil
	}
}

func containsString(xs []string, v string) bool {
	for _, x := range xs {
		if x == v {
			return true
		}
	}
	return false
}

func containsKind(xs []dom.InteractionKind, v dom.InteractionKind) bool {
	for _, x := range xs {
		if x == v {
			return true
		}
	}
	return false
}
