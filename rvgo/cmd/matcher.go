package cmd

import (
	"fmt"
	"strconv"
	"strings"
)

const patternHelp = "'never' (default), 'always', '=123' at exactly step 123, '%123' for every 123 steps"

// StepMatcher reports whether an action applies at the given step.
type StepMatcher func(step uint64) bool

// StepMatcherFlag is a cli.Generic flag value holding a step pattern.
type StepMatcherFlag struct {
	repr    string
	matcher StepMatcher
}

func MustStepMatcherFlag(pattern string) *StepMatcherFlag {
	out := new(StepMatcherFlag)
	if err := out.Set(pattern); err != nil {
		panic(err)
	}
	return out
}

func (m *StepMatcherFlag) Set(value string) error {
	m.repr = value
	switch {
	case value == "" || value == "never":
		m.matcher = func(step uint64) bool { return false }
	case value == "always":
		m.matcher = func(step uint64) bool { return true }
	case strings.HasPrefix(value, "="):
		at, err := strconv.ParseUint(value[1:], 0, 64)
		if err != nil {
			return fmt.Errorf("failed to parse step number: %w", err)
		}
		m.matcher = func(step uint64) bool { return step == at }
	case strings.HasPrefix(value, "%"):
		every, err := strconv.ParseUint(value[1:], 0, 64)
		if err != nil {
			return fmt.Errorf("failed to parse step interval: %w", err)
		}
		if every == 0 {
			return fmt.Errorf("step interval must be non-zero")
		}
		m.matcher = func(step uint64) bool { return step%every == 0 }
	default:
		return fmt.Errorf("unrecognized step matcher: %q", value)
	}
	return nil
}

func (m *StepMatcherFlag) String() string {
	return m.repr
}

func (m *StepMatcherFlag) Matcher() StepMatcher {
	if m.matcher == nil {
		return func(step uint64) bool { return false }
	}
	return m.matcher
}
