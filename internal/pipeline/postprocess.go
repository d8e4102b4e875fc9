package pipeline

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

// termMapping rewrites an MT output pattern. When SourceContains is set the
// rule only applies if the source transcript contains that substring.
type termMapping struct {
	pattern        *regexp.Regexp
	replacement    string
	sourceContains string // lowercase substring of the source text, optional
}

func mustMapping(pattern, replacement, sourceContains string) termMapping {
	return termMapping{
		pattern:        regexp.MustCompile(`(?i)` + pattern),
		replacement:    replacement,
		sourceContains: strings.ToLower(sourceContains),
	}
}

// termMappings is the ordered domain vocabulary correction list. The set is
// deployment configuration; these are the defaults shipped with the server.
var termMappings = []termMapping{
	mustMapping(`\bJW broadcasting\b`, "JW Broadcasting", ""),
	mustMapping(`\bkingdom hall\b`, "Kingdom Hall", ""),
	mustMapping(`\bsala regatului\b`, "Sala Regatului", ""),
	mustMapping(`\bwatchtower\b`, "Watchtower", "turnul de veghe"),
	mustMapping(`\bturnul de veghe\b`, "Turnul de veghe", ""),
	mustMapping(`\bmemorial\b`, "Memorial", "comemorarea"),
}

// religiousNoun canonicalizes variant spellings of a proper noun in Romanian
// output when its English trigger appears in the source.
type religiousNoun struct {
	trigger   string // lowercase substring of the English source
	variants  []string
	canonical string
}

var religiousNouns = []religiousNoun{
	{"jehovah", []string{"Iehova", "Yehova", "Jehova"}, "Iehova"},
	{"jesus", []string{"Iisus", "Isus Hristos"}, "Isus"},
	{"obadiah", []string{"Obadia", "Abdia"}, "Obadia"},
	{"psalm", []string{"psalm", "Salm"}, "Psalmul"},
}

// postProcess applies the ordered correction chain to an emitted translation.
func postProcess(emitted, newText, fullText, targetLang string) string {
	emitted = applyTermMappings(emitted, fullText)
	if targetLang == "ro" || strings.HasPrefix(targetLang, "ro-") {
		emitted = normalizeReligiousNouns(emitted, fullText)
	}
	emitted = preserveNumbers(emitted, newText)
	emitted = preserveDates(emitted, newText)
	emitted = singleWordFallback(emitted, newText)
	return emitted
}

func applyTermMappings(emitted, fullText string) string {
	sourceLower := strings.ToLower(fullText)
	for _, m := range termMappings {
		if m.sourceContains != "" && !strings.Contains(sourceLower, m.sourceContains) {
			continue
		}
		emitted = m.pattern.ReplaceAllString(emitted, m.replacement)
	}
	return emitted
}

func normalizeReligiousNouns(emitted, fullText string) string {
	sourceLower := strings.ToLower(fullText)
	for _, n := range religiousNouns {
		if !strings.Contains(sourceLower, n.trigger) {
			continue
		}
		for _, v := range n.variants {
			if v == n.canonical {
				continue
			}
			emitted = regexp.MustCompile(`(?i)\b`+regexp.QuoteMeta(v)+`\b`).ReplaceAllString(emitted, n.canonical)
		}
	}
	return emitted
}

var (
	// Ordered by specificity: multi-group thousands, then decimal/thousand
	// pairs, then bare integers.
	multiGroupRe = regexp.MustCompile(`\d+(?:\.\d{3})+`)
	numberRe     = regexp.MustCompile(`\d+(?:\.\d{3})+|\d+(?:[.,]\d+)?`)
)

type numToken struct {
	text       string
	digits     string
	multiGroup bool
}

func extractNumbers(s string) []numToken {
	var out []numToken
	for _, m := range numberRe.FindAllString(s, -1) {
		out = append(out, numToken{
			text:       m,
			digits:     digitsOnly(m),
			multiGroup: multiGroupRe.MatchString(m) && multiGroupRe.FindString(m) == m,
		})
	}
	return out
}

func digitsOnly(s string) string {
	var b strings.Builder
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// numberWords maps spelled-out English numbers to digit strings so that an MT
// output like "chapter fourteen" can be restored to the source digits.
var numberWords = map[string]string{
	"zero": "0", "one": "1", "two": "2", "three": "3", "four": "4",
	"five": "5", "six": "6", "seven": "7", "eight": "8", "nine": "9",
	"ten": "10", "eleven": "11", "twelve": "12", "thirteen": "13",
	"fourteen": "14", "fifteen": "15", "sixteen": "16", "seventeen": "17",
	"eighteen": "18", "nineteen": "19", "twenty": "20", "thirty": "30",
	"forty": "40", "fifty": "50", "sixty": "60", "seventy": "70",
	"eighty": "80", "ninety": "90", "hundred": "100", "thousand": "1000",
}

// preserveNumbers restores the source's numeric tokens in the MT output.
// Multi-group thousands tokens are left to MT, which converts separators
// correctly. When token counts match, substitution is positional; otherwise
// contiguous numeric runs (digit tokens or spelled-out number words) whose
// digits equal a source number are replaced.
func preserveNumbers(emitted, newText string) string {
	src := extractNumbers(newText)
	if len(src) == 0 {
		return emitted
	}

	words := strings.Fields(emitted)

	// Locate numeric-ish tokens in the output: digit tokens and spelled-out
	// number words, with their word index.
	type outToken struct {
		index  int
		digits string
	}
	var out []outToken
	for i, w := range words {
		bare := strings.Trim(w, ".,!?;:")
		if numberRe.MatchString(bare) && numberRe.FindString(bare) == bare {
			out = append(out, outToken{i, digitsOnly(bare)})
			continue
		}
		if d, ok := numberWords[strings.ToLower(bare)]; ok {
			out = append(out, outToken{i, d})
		}
	}

	if len(out) == len(src) {
		for i, tok := range out {
			if src[i].multiGroup {
				continue
			}
			words[tok.index] = replaceToken(words[tok.index], src[i].text)
		}
		return strings.Join(words, " ")
	}

	// Counts differ: match contiguous output runs whose concatenated digits
	// equal one source number.
	for _, s := range src {
		if s.multiGroup {
			continue
		}
		matched := false
		for start := 0; start < len(out) && !matched; start++ {
			digits := ""
			for end := start; end < len(out) && out[end].index == out[start].index+(end-start); end++ {
				digits += out[end].digits
				if digits == s.digits {
					words[out[start].index] = replaceToken(words[out[start].index], s.text)
					for k := start + 1; k <= end; k++ {
						words[out[k].index] = ""
					}
					out = append(out[:start], out[end+1:]...)
					matched = true
					break
				}
				if len(digits) > len(s.digits) {
					break
				}
			}
		}
	}

	var kept []string
	for _, w := range words {
		if w != "" {
			kept = append(kept, w)
		}
	}
	return strings.Join(kept, " ")
}

// replaceToken swaps the numeric core of a word while keeping any trailing
// punctuation.
func replaceToken(word, replacement string) string {
	trailing := ""
	trimmed := strings.TrimRight(word, ".,!?;:")
	if len(trimmed) < len(word) {
		trailing = word[len(trimmed):]
	}
	return replacement + trailing
}

// monthNames maps Romanian month names to their English renderings. The
// reverse mapping serves en→ro sessions.
var monthNames = map[string]string{
	"ianuarie": "January", "februarie": "February", "martie": "March",
	"aprilie": "April", "mai": "May", "iunie": "June", "iulie": "July",
	"august": "August", "septembrie": "September", "octombrie": "October",
	"noiembrie": "November", "decembrie": "December",
}

var dateRe = regexp.MustCompile(`(?i)\b(\d{1,2})\s+(\p{L}+)\s+(\d{4})\b`)

// preserveDates re-injects the month name when MT emitted the day and year of
// a source date but dropped the month between them.
func preserveDates(emitted, newText string) string {
	for _, m := range dateRe.FindAllStringSubmatch(newText, -1) {
		day, month, year := m[1], strings.ToLower(m[2]), m[3]
		target, known := monthNames[month]
		if !known {
			// en→ro direction: look the name up in reverse.
			for ro, en := range monthNames {
				if strings.EqualFold(en, month) {
					target, known = ro, true
					break
				}
			}
		}
		if !known {
			continue
		}
		if containsMonthName(emitted) {
			continue
		}
		gap := regexp.MustCompile(`\b` + regexp.QuoteMeta(day) + `\s+` + regexp.QuoteMeta(year) + `\b`)
		if gap.MatchString(emitted) {
			emitted = gap.ReplaceAllString(emitted, day+" "+target+" "+year)
		}
	}
	return emitted
}

func containsMonthName(s string) bool {
	lower := strings.ToLower(s)
	for ro, en := range monthNames {
		if strings.Contains(lower, ro) || strings.Contains(lower, strings.ToLower(en)) {
			return true
		}
	}
	return false
}

// singleWordTranslations covers words MT tends to return untranslated when
// they arrive as a one-word utterance.
var singleWordTranslations = map[string]string{
	"pâine":    "bread",
	"frate":    "brother",
	"soră":     "sister",
	"cântarea": "song",
	"rugăciune": "prayer",
}

// singleWordFallback substitutes from a small fixed map when MT returned the
// source unchanged (compared under NFD + diacritic strip + lowercase).
func singleWordFallback(emitted, newText string) string {
	src := strings.TrimSpace(newText)
	out := strings.TrimSpace(emitted)
	if src == "" || out == "" {
		return emitted
	}
	if foldDiacritics(src) != foldDiacritics(out) {
		return emitted
	}
	if repl, ok := singleWordTranslations[strings.ToLower(src)]; ok {
		return repl
	}
	return emitted
}

// foldDiacritics lowercases and strips combining marks after NFD
// decomposition.
func foldDiacritics(s string) string {
	decomposed := norm.NFD.String(s)
	var b strings.Builder
	for _, r := range decomposed {
		if unicode.Is(unicode.Mn, r) {
			continue
		}
		b.WriteRune(unicode.ToLower(r))
	}
	return b.String()
}
