package lesson

import (
	"strings"
	"testing"
)

func TestParseDifficulty(t *testing.T) {
	t.Parallel()

	cases := []struct {
		in   string
		want Difficulty
		ok   bool
	}{
		{"beginner", DifficultyBeginner, true},
		{" Advanced ", DifficultyAdvanced, true},
		{"INTERMEDIATE", DifficultyIntermediate, true},
		{"expert", "", false},
		{"", "", false},
	}
	for _, tc := range cases {
		got, ok := ParseDifficulty(tc.in)
		if got != tc.want || ok != tc.ok {
			t.Fatalf("ParseDifficulty(%q) = (%q, %v), want (%q, %v)", tc.in, got, ok, tc.want, tc.ok)
		}
	}
}

func TestApplyToPrompt(t *testing.T) {
	t.Parallel()

	out := ApplyToPrompt("You are a teacher.", DifficultyBeginner)
	if !strings.HasPrefix(out, "You are a teacher.") {
		t.Fatalf("base prompt not preserved: %q", out)
	}
	if !strings.Contains(out, "VOCABULARY LEVEL - BEGINNER") {
		t.Fatalf("beginner instruction missing: %q", out)
	}
}

func TestInstructionFallsBackToIntermediate(t *testing.T) {
	t.Parallel()

	if got := Difficulty("bogus").Instruction(); got != DifficultyIntermediate.Instruction() {
		t.Fatalf("unknown difficulty did not fall back to intermediate")
	}
}

func TestSuggestionsAlwaysThree(t *testing.T) {
	t.Parallel()

	for _, d := range []Difficulty{DifficultyBeginner, DifficultyIntermediate, DifficultyAdvanced, Difficulty("bogus")} {
		if n := len(InitialSuggestions(d)); n != 3 {
			t.Fatalf("InitialSuggestions(%q) = %d entries", d, n)
		}
		if n := len(FallbackSuggestions(d)); n != 3 {
			t.Fatalf("FallbackSuggestions(%q) = %d entries", d, n)
		}
	}
}
