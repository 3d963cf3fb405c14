// Package tt holds shared test helpers.
package tt

import (
	"testing"

	"github.com/pmezard/go-difflib/difflib"
)

// RequireEqualText fails the test with a unified diff when got differs
// from want. Much easier to read than two multi-line dumps.
func RequireEqualText(t *testing.T, want, got string) {
	t.Helper()
	if want == got {
		return
	}
	diff, err := difflib.GetUnifiedDiffString(difflib.UnifiedDiff{
		A:        difflib.SplitLines(want),
		B:        difflib.SplitLines(got),
		FromFile: "want",
		ToFile:   "got",
		Context:  3,
	})
	if err != nil {
		t.Fatalf("want != got and diff failed: %v\nwant: %q\ngot:  %q", err, want, got)
	}
	t.Fatalf("text mismatch:\n%s", diff)
}
