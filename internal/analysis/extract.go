package analysis

import (
	"encoding/json"
	"regexp"
	"strings"

	"github.com/KaramelBytes/intellidash-cli/internal/errs"
)

var trailingComma = regexp.MustCompile(`,\s*([\]}])`)

// ExtractJSON pulls a JSON object out of a free-form model response. It
// prefers the first ```json fence, else the first untagged one. None maps to
// null, whitespace is flattened and a failed parse is retried once without
// trailing commas. On failure it returns an empty map and a collaborator
// error describing why.
func ExtractJSON(content string) (map[string]any, error) {
	body := strings.TrimSpace(content)
	if fenced, ok := fencedBlock(content); ok {
		body = fenced
	}

	body = strings.ReplaceAll(body, "None", "null")
	body = strings.NewReplacer("\n", " ", "\r", " ").Replace(body)
	body = strings.Join(strings.Fields(body), " ")

	var out map[string]any
	err := json.Unmarshal([]byte(body), &out)
	if err == nil && out != nil {
		return out, nil
	}

	body = trailingComma.ReplaceAllString(body, "$1")
	out = nil
	if err2 := json.Unmarshal([]byte(body), &out); err2 == nil && out != nil {
		return out, nil
	}
	if err == nil {
		return map[string]any{}, errs.Collaborator("extract json", nil, "response is not a JSON object")
	}
	return map[string]any{}, errs.Collaborator("extract json", err, "unparseable response")
}

// fencedBlock returns the body of the first ```json fence, or of the first
// untagged ``` fence when no json fence exists. An unclosed fence runs to
// the end of content.
func fencedBlock(content string) (string, bool) {
	tag := "```json"
	start := strings.Index(content, tag)
	if start == -1 {
		tag = "```"
		start = strings.Index(content, tag)
		if start == -1 {
			return "", false
		}
		// a fence tagged with another language is not ours
		if nl := strings.IndexByte(content[start+len(tag):], '\n'); nl > 0 &&
			strings.TrimSpace(content[start+len(tag):start+len(tag)+nl]) != "" {
			return "", false
		}
	}
	rest := content[start+len(tag):]
	if end := strings.Index(rest, "```"); end != -1 {
		rest = rest[:end]
	}
	return strings.TrimSpace(rest), true
}
