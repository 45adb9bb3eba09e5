package util

import "testing"

func TestPatternSet(t *testing.T) {
	t.Parallel()

	set, err := CompilePatterns([]string{"spec/factories/**", "./vendor", "app/*/concerns"})
	if err != nil {
		t.Fatalf("compile failed: %v", err)
	}

	cases := []struct {
		path     string
		expected bool
	}{
		{path: "spec/factories/orders.rb", expected: true},
		{path: "spec/factories/nested/items.rb", expected: true},
		{path: "spec/models/order_spec.rb", expected: false},
		{path: "vendor/bundle/gem.rb", expected: true},
		{path: "vendors/x.rb", expected: false},
		{path: "app/models/concerns", expected: true},
		{path: "app/models/concerns/x.rb", expected: false},
	}
	for _, tc := range cases {
		if got := set.Match(tc.path); got != tc.expected {
			t.Errorf("Match(%q): expected %v, got %v", tc.path, tc.expected, got)
		}
	}
	if got := len(set.Patterns()); got != 3 {
		t.Fatalf("expected 3 patterns, got %d", got)
	}
}

func TestCompilePatternsRejectsInvalidGlob(t *testing.T) {
	t.Parallel()

	if _, err := CompilePatterns([]string{"app/[models"}); err == nil {
		t.Fatal("expected error for unterminated character class")
	}
	set, err := CompilePatterns(nil)
	if err != nil || !set.Empty() {
		t.Fatalf("expected empty set, got %v / %v", set, err)
	}
}

func TestPatternSetMatchExact(t *testing.T) {
	t.Parallel()

	set := MustCompilePatterns("app/models/collapsed", "components/*/app/models/internal")
	if !set.MatchExact("app/models/collapsed") {
		t.Error("expected literal pattern to match itself")
	}
	if set.MatchExact("app/models/collapsed/nested") {
		t.Error("expected literal pattern not to match below itself")
	}
	if !set.MatchExact("components/sales/app/models/internal") {
		t.Error("expected wildcard pattern to match")
	}
}
