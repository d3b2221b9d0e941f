package ai

import (
	"context"
	"encoding/json"
	"regexp"
	"strings"
	"unicode/utf8"
)

const (
	// Prompt budgets in characters. Context chunks can make user prompts
	// arbitrarily large; the model's own limits are much higher, so these
	// exist to keep request size and token spend bounded.
	systemPromptLimit = 8000
	userPromptLimit   = 24000

	// Raw model output attached to a failed result is capped so error
	// payloads stay loggable.
	rawResponseLimit = 500

	truncationMarker = "\n...[content truncated]...\n"
)

// StructuredResult is the outcome of a structured generation call. Failures
// are carried as values: Err is set and RawResponse holds a capped copy of
// the model output that could not be parsed. A structured call never panics
// into its caller.
type StructuredResult struct {
	Object      map[string]any
	Err         string
	RawResponse string
}

func (r *StructuredResult) Failed() bool {
	return r.Err != ""
}

// GenerateStructured asks the model for a JSON object. It first requests
// strict JSON output; if the backend rejects that call it retries once in
// plain-text mode with an explicit JSON-only instruction appended to both
// prompts. The reply then goes through lenient extraction before being
// returned as a parsed object.
func (gc *GenerationClient) GenerateStructured(ctx context.Context, systemPrompt, userPrompt string) *StructuredResult {
	systemPrompt = capPrompt(systemPrompt, systemPromptLimit)
	userPrompt = truncateMiddle(userPrompt, userPromptLimit)

	raw, err := gc.generate(ctx, systemPrompt, userPrompt, true)
	if err != nil {
		jsonOnly := "\nRespond with a single JSON object only. Do not include any text outside the JSON."
		raw, err = gc.generate(ctx, systemPrompt+jsonOnly, userPrompt+jsonOnly, false)
		if err != nil {
			return &StructuredResult{Err: "generation failed: " + err.Error()}
		}
	}

	obj, ok := ExtractJSONObject(raw)
	if !ok {
		return &StructuredResult{
			Err:         "model response was not valid JSON",
			RawResponse: capRaw(raw),
		}
	}

	return &StructuredResult{Object: obj}
}

var fencedBlockRe = regexp.MustCompile("(?s)```(?:json)?\\s*(.*?)```")

// ExtractJSONObject recovers a JSON object from model output. Attempts, in
// order: the whole text, the contents of a fenced code block, and the region
// between the first '{' and the last '}' (retried with single quotes
// normalized to double quotes, a common model slip).
func ExtractJSONObject(text string) (map[string]any, bool) {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return nil, false
	}

	if obj := tryParseObject(trimmed); obj != nil {
		return obj, true
	}

	if m := fencedBlockRe.FindStringSubmatch(trimmed); m != nil {
		if obj := tryParseObject(strings.TrimSpace(m[1])); obj != nil {
			return obj, true
		}
	}

	start := strings.Index(trimmed, "{")
	end := strings.LastIndex(trimmed, "}")
	if start >= 0 && end > start {
		candidate := trimmed[start : end+1]
		if obj := tryParseObject(candidate); obj != nil {
			return obj, true
		}
		if obj := tryParseObject(strings.ReplaceAll(candidate, "'", "\"")); obj != nil {
			return obj, true
		}
	}

	return nil, false
}

func tryParseObject(candidate string) map[string]any {
	var obj map[string]any
	if err := json.Unmarshal([]byte(candidate), &obj); err != nil {
		return nil
	}
	return obj
}

// capPrompt keeps the head of an oversized prompt.
func capPrompt(s string, limit int) string {
	if len(s) <= limit {
		return s
	}
	return s[:runeFloor(s, limit)]
}

// truncateMiddle keeps the head and tail of an oversized prompt with a
// marker in between, so both the instructions up front and the trailing
// question survive.
func truncateMiddle(s string, limit int) string {
	if len(s) <= limit {
		return s
	}
	budget := limit - len(truncationMarker)
	head := runeFloor(s, budget*2/3)
	tail := runeCeil(s, len(s)-(budget-head))
	return s[:head] + truncationMarker + s[tail:]
}

func capRaw(s string) string {
	if len(s) <= rawResponseLimit {
		return s
	}
	return s[:runeFloor(s, rawResponseLimit)]
}

// runeFloor moves a byte offset back to the nearest rune boundary so cuts
// never split a multibyte character.
func runeFloor(s string, i int) int {
	for i > 0 && !utf8.RuneStart(s[i]) {
		i--
	}
	return i
}

// runeCeil moves a byte offset forward to the nearest rune boundary.
func runeCeil(s string, i int) int {
	for i < len(s) && !utf8.RuneStart(s[i]) {
		i++
	}
	return i
}
