package settings_test

import (
	"errors"
	"testing"

	"github.com/micro-nova/amplipi-prefs/internal/settings"
)

func TestCommitStrategy_String(t *testing.T) {
	tests := []struct {
		s    settings.CommitStrategy
		want string
	}{
		{settings.AutoCommit, "auto"},
		{settings.ManualCommit, "manual"},
		{settings.CommitStrategy(9), "CommitStrategy(9)"},
	}
	for _, tt := range tests {
		if got := tt.s.String(); got != tt.want {
			t.Errorf("String() = %q, want %q", got, tt.want)
		}
	}
}

func TestParseCommitStrategy(t *testing.T) {
	for in, want := range map[string]settings.CommitStrategy{
		"auto":         settings.AutoCommit,
		" AutoCommit ": settings.AutoCommit,
		"manual":       settings.ManualCommit,
		"MANUALCOMMIT": settings.ManualCommit,
	} {
		got, err := settings.ParseCommitStrategy(in)
		if err != nil {
			t.Errorf("ParseCommitStrategy(%q) error = %v", in, err)
			continue
		}
		if got != want {
			t.Errorf("ParseCommitStrategy(%q) = %v, want %v", in, got, want)
		}
	}

	if _, err := settings.ParseCommitStrategy("sometimes"); !errors.Is(err, settings.ErrUnsupportedCommitStrategy) {
		t.Errorf("unknown strategy: error = %v, want ErrUnsupportedCommitStrategy", err)
	}
}
