package ai

import (
	"strings"
	"testing"
	"unicode/utf8"
)

func TestExtractJSONObjectWholeText(t *testing.T) {
	obj, ok := ExtractJSONObject(`{"questions": [], "topic": "biology"}`)
	if !ok {
		t.Fatalf("expected parse to succeed")
	}
	if obj["topic"] != "biology" {
		t.Errorf("expected topic biology, got %v", obj["topic"])
	}
}

func TestExtractJSONObjectFencedBlock(t *testing.T) {
	text := "Here is your quiz:\n```json\n{\"questions\": [{\"question\": \"Q1\"}]}\n```\nEnjoy!"
	obj, ok := ExtractJSONObject(text)
	if !ok {
		t.Fatalf("expected parse to succeed")
	}
	if _, found := obj["questions"]; !found {
		t.Errorf("expected questions key in %v", obj)
	}
}

func TestExtractJSONObjectBracketBounded(t *testing.T) {
	text := "Sure! {\"answer\": \"42\"} Hope that helps."
	obj, ok := ExtractJSONObject(text)
	if !ok {
		t.Fatalf("expected parse to succeed")
	}
	if obj["answer"] != "42" {
		t.Errorf("expected answer 42, got %v", obj["answer"])
	}
}

func TestExtractJSONObjectSingleQuotes(t *testing.T) {
	obj, ok := ExtractJSONObject("{'key': 'value'}")
	if !ok {
		t.Fatalf("expected single-quote normalization to recover the object")
	}
	if obj["key"] != "value" {
		t.Errorf("expected value, got %v", obj["key"])
	}
}

func TestExtractJSONObjectGarbage(t *testing.T) {
	for _, text := range []string{"", "not json at all", "{broken", "[1, 2, 3]"} {
		if _, ok := ExtractJSONObject(text); ok {
			t.Errorf("expected failure for %q", text)
		}
	}
}

func TestTruncateMiddleShortInputUntouched(t *testing.T) {
	s := "short prompt"
	if got := truncateMiddle(s, 100); got != s {
		t.Errorf("expected unchanged prompt, got %q", got)
	}
}

func TestTruncateMiddleKeepsHeadAndTail(t *testing.T) {
	s := strings.Repeat("a", 500) + "MIDDLE" + strings.Repeat("z", 500)
	got := truncateMiddle(s, 200)

	if len(got) > 200 {
		t.Fatalf("expected result within limit, got %d chars", len(got))
	}
	if !strings.HasPrefix(got, "aaa") {
		t.Errorf("expected head preserved, got %q", got[:10])
	}
	if !strings.HasSuffix(got, "zzz") {
		t.Errorf("expected tail preserved, got %q", got[len(got)-10:])
	}
	if !strings.Contains(got, strings.TrimSpace(truncationMarker)) {
		t.Errorf("expected truncation marker in result")
	}
}

func TestTruncationNeverSplitsRunes(t *testing.T) {
	multibyte := strings.Repeat("日本語テキスト", 4000)

	for _, got := range []string{
		capPrompt(multibyte, systemPromptLimit),
		truncateMiddle(multibyte, userPromptLimit),
		capRaw(multibyte),
	} {
		if !utf8.ValidString(got) {
			t.Errorf("expected valid UTF-8 after truncation, got invalid string of %d bytes", len(got))
		}
	}

	if got := capPrompt(multibyte, systemPromptLimit); len(got) > systemPromptLimit {
		t.Errorf("expected capped prompt within %d bytes, got %d", systemPromptLimit, len(got))
	}
	if got := truncateMiddle(multibyte, userPromptLimit); len(got) > userPromptLimit {
		t.Errorf("expected truncated prompt within %d bytes, got %d", userPromptLimit, len(got))
	}
}

func TestCapRaw(t *testing.T) {
	long := strings.Repeat("x", rawResponseLimit*2)
	if got := capRaw(long); len(got) != rawResponseLimit {
		t.Errorf("expected raw capped at %d, got %d", rawResponseLimit, len(got))
	}
	if got := capRaw("tiny"); got != "tiny" {
		t.Errorf("expected short raw unchanged, got %q", got)
	}
}

func TestStructuredResultFailed(t *testing.T) {
	ok := &StructuredResult{Object: map[string]any{}}
	if ok.Failed() {
		t.Errorf("result with object should not be failed")
	}

	bad := &StructuredResult{Err: "model response was not valid JSON", RawResponse: "not json"}
	if !bad.Failed() {
		t.Errorf("result with error should be failed")
	}
	if bad.RawResponse != "not json" {
		t.Errorf("raw response should be preserved for diagnostics")
	}
}
