package nlp

import (
	"encoding/json"
	"regexp"
	"strings"
)

var (
	fenceRe      = regexp.MustCompile("(?i)```json")
	whitespaceRe = regexp.MustCompile(`\s{2,}`)
	newlineRe    = regexp.MustCompile(`[\r\n]+`)
)

// RepairAndParse runs the model output through a three-tier recovery ladder,
// each tier attempted only if the previous failed:
//
//  1. strip code-fence markers and surrounding whitespace, parse directly;
//  2. parse only the first-{ to last-} substring, which tolerates prose the
//     model added around the object despite instructions;
//  3. collapse whitespace runs and newline escapes to single spaces and parse
//     once more, which tolerates unescaped control characters inside strings.
//
// If all three fail the raw text and the last attempted substring are
// returned inside an ExtractError so nothing is lost.
func RepairAndParse(raw string) (*BusinessExtract, *ExtractError) {
	cleaned := stripFences(raw)

	// Tier 1: direct parse of the cleaned text.
	if out, ok := parseExtract(cleaned); ok {
		return out, nil
	}

	// Tier 2: isolate the JSON object.
	attempted := cleaned
	if start, end := strings.Index(cleaned, "{"), strings.LastIndex(cleaned, "}"); start != -1 && end > start {
		attempted = cleaned[start : end+1]
		if out, ok := parseExtract(attempted); ok {
			return out, nil
		}
	}

	// Tier 3: flatten whitespace and escaped newlines.
	flattened := newlineRe.ReplaceAllString(attempted, " ")
	flattened = strings.ReplaceAll(flattened, `\n`, " ")
	flattened = strings.TrimSpace(whitespaceRe.ReplaceAllString(flattened, " "))
	if out, ok := parseExtract(flattened); ok {
		return out, nil
	}

	return nil, &ExtractError{
		Error:     "Invalid JSON from Groq",
		Raw:       raw,
		Attempted: attempted,
	}
}

func stripFences(s string) string {
	s = fenceRe.ReplaceAllString(s, "")
	s = strings.ReplaceAll(s, "```", "")
	return strings.TrimSpace(s)
}

func parseExtract(s string) (*BusinessExtract, bool) {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "{") {
		return nil, false
	}
	var out BusinessExtract
	if err := json.Unmarshal([]byte(s), &out); err != nil {
		return nil, false
	}
	return &out, true
}
