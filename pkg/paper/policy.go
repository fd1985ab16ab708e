package paper

import (
	"context"
	"fmt"
	"slices"
	"strings"
)

// Rule restricts who may perform an action and on which papers.
// An empty list places no restriction.
type Rule struct {
	// Principals lists the callers allowed to perform the action
	Principals []string `yaml:"principals,omitempty" json:"principals,omitempty"`

	// Exporters lists the exporters whose papers the action may touch
	Exporters []string `yaml:"exporters,omitempty" json:"exporters,omitempty"`
}

// Policy maps actions to their rules. Actions without a rule are open to
// every caller.
type Policy map[Action]Rule

// DefaultPolicy returns a policy that permits every action.
func DefaultPolicy() Policy {
	return Policy{}
}

// Validate checks that the policy only names known actions and holds no
// blank entries.
func (p Policy) Validate() error {
	for action, rule := range p {
		if err := action.Validate(); err != nil {
			return fmt.Errorf("policy: %w", err)
		}
		for _, name := range rule.Principals {
			if strings.TrimSpace(name) == "" {
				return fmt.Errorf("policy: %s: principals cannot contain blank names", action)
			}
		}
		for _, name := range rule.Exporters {
			if strings.TrimSpace(name) == "" {
				return fmt.Errorf("policy: %s: exporters cannot contain blank names", action)
			}
		}
	}
	return nil
}

// Authorize checks whether caller may perform action on p.
// Returns *PermissionDeniedError when the rule rejects it.
func (p Policy) Authorize(caller string, action Action, paper *ImportPaper) error {
	rule, ok := p[action]
	if !ok {
		return nil
	}

	if len(rule.Principals) > 0 && !slices.Contains(rule.Principals, caller) {
		return &PermissionDeniedError{
			Caller: caller,
			Key:    paper.Key(),
			Action: action,
			Reason: fmt.Sprintf("caller is not one of %s", strings.Join(rule.Principals, ", ")),
		}
	}

	if len(rule.Exporters) > 0 && !slices.Contains(rule.Exporters, paper.exporter) {
		return &PermissionDeniedError{
			Caller: caller,
			Key:    paper.Key(),
			Action: action,
			Reason: fmt.Sprintf("exporter %s is not one of %s", paper.exporter, strings.Join(rule.Exporters, ", ")),
		}
	}

	return nil
}

type callerKey struct{}

// WithCaller returns a context carrying the calling principal.
func WithCaller(ctx context.Context, principal string) context.Context {
	return context.WithValue(ctx, callerKey{}, principal)
}

// CallerFrom returns the principal stored by WithCaller, or "".
func CallerFrom(ctx context.Context) string {
	principal, _ := ctx.Value(callerKey{}).(string)
	return principal
}
