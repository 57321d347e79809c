package testutil

import (
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
)

// AssertPlanText compares two rendered plan trees line by line and reports
// a diff on mismatch. Leading and trailing blank lines are ignored.
func AssertPlanText(t testing.TB, expected, actual string) {
	t.Helper()
	if diff := cmp.Diff(planLines(expected), planLines(actual)); diff != "" {
		t.Errorf("plan mismatch (-expected +actual):\n%s", diff)
	}
}

// Tree builds the expected rendering of a plan from one line per node,
// already indented.
func Tree(lines ...string) string {
	return strings.Join(lines, "\n") + "\n"
}

func planLines(s string) []string {
	s = strings.Trim(s, "\n")
	if s == "" {
		return nil
	}
	return strings.Split(s, "\n")
}
