package core

import (
	"context"
	"regexp"
	"strings"
	"time"
)

const groupFilterMatchTimeout = 5 * time.Second

// GroupFilter restricts which directory groups take part in a run by
// matching a regular expression against a named string property.
type GroupFilter struct {
	Property string `koanf:"property" mapstructure:"property"`
	Pattern  string `koanf:"pattern" mapstructure:"pattern"`

	// MatchTimeout bounds a single pattern evaluation. Zero means the
	// package default.
	MatchTimeout time.Duration `koanf:"match_timeout" mapstructure:"match_timeout"`
}

func (f GroupFilter) matchTimeout() time.Duration {
	if f.MatchTimeout != 0 {
		return f.MatchTimeout
	}
	return groupFilterMatchTimeout
}

func (f GroupFilter) Configured() bool {
	return strings.TrimSpace(f.Property) != "" && strings.TrimSpace(f.Pattern) != ""
}

// Expression renders the filter in the directory service's query syntax.
func (f GroupFilter) Expression() string {
	if !f.Configured() {
		return ""
	}
	return strings.TrimSpace(f.Property) + " matches " + strings.TrimSpace(f.Pattern)
}

// Validate checks the filter both structurally (pattern compiles, property
// is an existing string property) and against the directory service, which
// must accept the expression. Any failure is fatal for the run.
func (f GroupFilter) Validate(ctx context.Context, directory DirectoryClient) error {
	if !f.Configured() {
		return nil
	}
	if _, err := regexp.Compile(f.Pattern); err != nil {
		return InvalidGroupFilterError("pattern does not compile: " + err.Error())
	}
	accessor, ok := GroupAccessors().Resolve(f.Property)
	if !ok {
		return InvalidGroupFilterError("property " + f.Property + " does not exist on groups")
	}
	if accessor.Kind != PropertyKindString {
		return InvalidGroupFilterError("property " + f.Property + " is not a string property")
	}
	if directory != nil {
		if err := directory.ValidateGroupFilter(ctx, f.Expression()); err != nil {
			return InvalidGroupFilterError("directory rejected filter: " + err.Error())
		}
	}
	return nil
}

// IsMatch applies the pattern to the group's property value, bounded by a
// fixed timeout. A timeout, an invalid pattern, or an unresolvable or empty
// property all count as "no match"; errors never propagate.
func (f GroupFilter) IsMatch(ctx context.Context, group DirectoryGroup) bool {
	if !f.Configured() {
		return true
	}
	accessor, ok := GroupAccessors().Resolve(f.Property)
	if !ok || accessor.Kind != PropertyKindString {
		return false
	}
	raw := accessor.Get(group)
	value, ok := raw.(string)
	if !ok || value == "" {
		return false
	}

	matchCtx, cancel := context.WithTimeout(ctx, f.matchTimeout())
	defer cancel()

	// An already expired budget never reaches the matcher.
	select {
	case <-matchCtx.Done():
		return false
	default:
	}

	result := make(chan bool, 1)
	go func() {
		pattern, err := regexp.Compile(f.Pattern)
		if err != nil {
			result <- false
			return
		}
		result <- pattern.MatchString(value)
	}()

	select {
	case matched := <-result:
		return matched
	case <-matchCtx.Done():
		return false
	}
}
