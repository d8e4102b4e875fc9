package pipeline

import "testing"

func TestPreserveNumbersMultiGroupSkipped(t *testing.T) {
	got := preserveNumbers("it was the year 1,234,567", "era anul 1.234.567")
	if got != "it was the year 1,234,567" {
		t.Errorf("multi-group thousands should pass through, got %q", got)
	}
}

func TestPreserveNumbersMatchingCounts(t *testing.T) {
	got := preserveNumbers("chapter 14 verse 3", "capitolul 14 versetul 3")
	if got != "chapter 14 verse 3" {
		t.Errorf("matching digits should stay put, got %q", got)
	}
}

func TestPreserveNumbersSpelledOut(t *testing.T) {
	got := preserveNumbers("chapter fourteen verse three", "capitolul 14 versetul 3")
	if got != "chapter 14 verse 3" {
		t.Errorf("spelled-out numbers should be re-substituted, got %q", got)
	}
}

func TestPreserveNumbersKeepsTrailingPunctuation(t *testing.T) {
	got := preserveNumbers("verse three.", "versetul 3")
	if got != "verse 3." {
		t.Errorf("trailing punctuation lost: %q", got)
	}
}

func TestPreserveNumbersNoSourceNumbers(t *testing.T) {
	in := "no numbers here at all"
	if got := preserveNumbers(in, "fără numere aici"); got != in {
		t.Errorf("output changed without source numbers: %q", got)
	}
}

func TestPreserveDatesInjectsMonth(t *testing.T) {
	got := preserveDates("on 14 2023 we met", "pe 14 aprilie 2023 ne-am întâlnit")
	if got != "on 14 April 2023 we met" {
		t.Errorf("month not injected: %q", got)
	}
}

func TestPreserveDatesMonthAlreadyPresent(t *testing.T) {
	in := "on 14 April 2023 we met"
	if got := preserveDates(in, "pe 14 aprilie 2023 ne-am întâlnit"); got != in {
		t.Errorf("date with month should pass through: %q", got)
	}
}

func TestSingleWordFallback(t *testing.T) {
	if got := singleWordFallback("pâine", "pâine"); got != "bread" {
		t.Errorf("fallback = %q, want bread", got)
	}
	// Diacritic-stripped comparison still counts as untranslated.
	if got := singleWordFallback("paine", "pâine"); got != "bread" {
		t.Errorf("diacritic fold fallback = %q, want bread", got)
	}
	// A real translation is left alone.
	if got := singleWordFallback("bread", "pâine"); got != "bread" {
		t.Errorf("translated word modified: %q", got)
	}
	// Unknown untranslated words pass through.
	if got := singleWordFallback("xyzzy", "xyzzy"); got != "xyzzy" {
		t.Errorf("unknown word modified: %q", got)
	}
}

func TestFoldDiacritics(t *testing.T) {
	tests := []struct{ in, out string }{
		{"Pâine", "paine"},
		{"hrănește", "hraneste"},
		{"plain", "plain"},
	}
	for _, tt := range tests {
		if got := foldDiacritics(tt.in); got != tt.out {
			t.Errorf("foldDiacritics(%q) = %q, want %q", tt.in, got, tt.out)
		}
	}
}

func TestApplyTermMappingsSourceConditioned(t *testing.T) {
	// "watchtower" is only capitalized when the source mentions the magazine.
	got := applyTermMappings("reading the watchtower today", "citim turnul de veghe astăzi")
	if got != "reading the Watchtower today" {
		t.Errorf("source-conditioned mapping missed: %q", got)
	}

	got = applyTermMappings("a watchtower on the hill", "un turn pe deal")
	if got != "a watchtower on the hill" {
		t.Errorf("mapping applied without source trigger: %q", got)
	}
}

func TestNormalizeReligiousNouns(t *testing.T) {
	got := normalizeReligiousNouns("cartea lui Abdia ne învață", "the book of Obadiah teaches us")
	if got != "cartea lui Obadia ne învață" {
		t.Errorf("noun not canonicalized: %q", got)
	}

	// No trigger in source → variants untouched.
	got = normalizeReligiousNouns("cartea lui Abdia", "an unrelated source text")
	if got != "cartea lui Abdia" {
		t.Errorf("noun changed without trigger: %q", got)
	}
}

func TestPostProcessTargetGate(t *testing.T) {
	// Religious normalization only runs for Romanian targets.
	got := postProcess("the book of Abdia", "the book of Obadiah", "the book of Obadiah", "en")
	if got != "the book of Abdia" {
		t.Errorf("normalization ran for non-ro target: %q", got)
	}
}
