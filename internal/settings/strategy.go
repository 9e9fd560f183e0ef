package settings

import (
	"fmt"
	"strings"
)

// CommitStrategy decides when a parameter writes to its store.
type CommitStrategy int

const (
	// AutoCommit writes as soon as the value changes. Best for values that
	// change rarely (not every frame).
	AutoCommit CommitStrategy = iota

	// ManualCommit writes only when Commit is called.
	ManualCommit
)

// String returns the strategy name.
func (s CommitStrategy) String() string {
	switch s {
	case AutoCommit:
		return "auto"
	case ManualCommit:
		return "manual"
	default:
		return fmt.Sprintf("CommitStrategy(%d)", int(s))
	}
}

func (s CommitStrategy) validate() error {
	switch s {
	case AutoCommit, ManualCommit:
		return nil
	}
	return fmt.Errorf("%w: %d", ErrUnsupportedCommitStrategy, int(s))
}

// ParseCommitStrategy parses "auto" or "manual" (case-insensitive).
func ParseCommitStrategy(s string) (CommitStrategy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "auto", "autocommit":
		return AutoCommit, nil
	case "manual", "manualcommit":
		return ManualCommit, nil
	}
	return 0, fmt.Errorf("%w: %q", ErrUnsupportedCommitStrategy, s)
}
