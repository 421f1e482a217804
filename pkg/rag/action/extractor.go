package action

import (
	"encoding/json"
	"regexp"
	"strings"
)

// Action is a structured directive optionally embedded at the end of an
// assistant response.
type Action struct {
	Action string                 `json:"action"`
	Target string                 `json:"target"`
	Args   map[string]interface{} `json:"args"`
}

var fencedJSON = regexp.MustCompile("(?s)```json\\s*(\\{.*?\\})\\s*```")

// Extract splits a fully-accumulated assistant response into display text and
// an optional action. It never fails: any parse or format problem degrades to
// (original text, nil).
func Extract(text string) (string, *Action) {
	candidate, full := findCandidate(text)
	if candidate == "" {
		return text, nil
	}

	var parsed Action
	if err := json.Unmarshal([]byte(candidate), &parsed); err != nil {
		return text, nil
	}

	cleaned := strings.TrimSpace(strings.Replace(text, full, "", 1))
	return cleaned, &parsed
}

// findCandidate returns the JSON blob to parse and the full substring to
// strip from the display text (fence markers included).
func findCandidate(text string) (candidate, full string) {
	if m := fencedJSON.FindStringSubmatch(text); m != nil {
		return m[1], m[0]
	}

	lines := strings.Split(text, "\n")
	for i := len(lines) - 1; i >= 0; i-- {
		line := strings.TrimSpace(lines[i])
		if line == "" {
			continue
		}
		if strings.HasPrefix(line, "{") && strings.HasSuffix(line, "}") {
			return line, line
		}
		break // last non-empty line is not an action
	}
	return "", ""
}
