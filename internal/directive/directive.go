// Package directive extracts embedded control tags from model output. Models
// request capability switches by emitting tags of the form <TAG>payload</TAG>
// in their text; the orchestrator scans each loop iteration's output once and
// honors at most one directive per iteration.
package directive

import "strings"

// Kind identifies which capability a directive requests.
type Kind int

const (
	None Kind = iota
	DeepSearch
	Search
	Think
	Image
	Project
	Canvas
	Study
)

// String returns the tag name for the kind.
func (k Kind) String() string {
	switch k {
	case DeepSearch:
		return "DEEP"
	case Search:
		return "SEARCH"
	case Think:
		return "THINK"
	case Image:
		return "IMAGE"
	case Project:
		return "PROJECT"
	case Canvas:
		return "CANVAS"
	case Study:
		return "STUDY"
	default:
		return "NONE"
	}
}

// Directive is one parsed control tag. An empty payload means the caller
// should fall back to the original user prompt.
type Directive struct {
	Kind    Kind
	Payload string
}

// scanOrder is the fixed tie-break precedence. Models may emit several tags
// in one iteration and only the first match is honored, so reordering this
// table changes observable routing behavior.
var scanOrder = []struct {
	kind Kind
	tag  string
}{
	{DeepSearch, "DEEP"},
	{Search, "SEARCH"},
	{Think, "THINK"},
	{Image, "IMAGE"},
	{Project, "PROJECT"},
	{Canvas, "CANVAS"},
	{Study, "STUDY"},
}

// Scan inspects one iteration's text for a control directive. Re-routing
// requires a closed tag so the payload can be extracted; the single
// exception is a bare unterminated <THINK>, which routes to THINK with an
// empty payload.
func Scan(text string) (Directive, bool) {
	for _, entry := range scanOrder {
		payload, ok := closedTagPayload(text, entry.tag)
		if !ok {
			if entry.kind == Think && strings.Contains(text, "<THINK>") {
				return Directive{Kind: Think}, true
			}
			continue
		}

		kind := entry.kind
		// A SEARCH whose payload leads with the word "deep" is a deep
		// research request.
		if kind == Search && strings.HasPrefix(strings.ToLower(payload), "deep") {
			kind = DeepSearch
		}
		return Directive{Kind: kind, Payload: payload}, true
	}
	return Directive{}, false
}

// ScanInitial is the relaxed form used on classifier output, where the
// closing tag is optional: an unterminated tag claims the rest of the text
// as its payload.
func ScanInitial(text string) (Directive, bool) {
	if d, ok := Scan(text); ok {
		return d, true
	}

	for _, entry := range scanOrder {
		open := "<" + entry.tag + ">"
		idx := strings.Index(text, open)
		if idx < 0 {
			continue
		}

		kind := entry.kind
		payload := strings.TrimSpace(text[idx+len(open):])
		if kind == Search && strings.HasPrefix(strings.ToLower(payload), "deep") {
			kind = DeepSearch
		}
		return Directive{Kind: kind, Payload: payload}, true
	}
	return Directive{}, false
}

func closedTagPayload(text, tag string) (string, bool) {
	open := "<" + tag + ">"
	close := "</" + tag + ">"

	start := strings.Index(text, open)
	if start < 0 {
		return "", false
	}
	rest := text[start+len(open):]

	end := strings.Index(rest, close)
	if end < 0 {
		return "", false
	}
	return strings.TrimSpace(rest[:end]), true
}
