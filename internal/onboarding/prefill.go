// Package onboarding provides the pre-fill pass that mines session metadata
// and conversation history before any prompting happens.
package onboarding

import (
	"strings"

	"github.com/voxa-labs/voxa-agent/internal/models"
)

// prefill fills field slots from (1) normalized session metadata and (2) a
// newest-to-oldest scan of the conversation history. First match wins per
// field; scanning stops independently per field once found.
//
// The history heuristics are deliberately crude substring checks carried
// over from the production behavior; they can false-positive on unrelated
// chat content.
func prefill(meta models.SessionMeta, turns []models.Turn, fields []Field) map[Field]string {
	found := make(map[Field]string)

	for _, f := range fields {
		switch f {
		case FieldName:
			if ValidName(meta.Name) {
				found[f] = strings.TrimSpace(meta.Name)
			}
		case FieldEmail:
			if ValidEmail(meta.Email) {
				found[f] = strings.TrimSpace(meta.Email)
			}
		}
	}

	for i := len(turns) - 1; i >= 0; i-- {
		content := turns[i].Content
		for _, f := range fields {
			if _, ok := found[f]; ok {
				continue
			}
			if v, ok := scanTurn(f, content); ok {
				found[f] = v
			}
		}
	}
	return found
}

// scanTurn applies the per-field heuristic to a single turn's content.
func scanTurn(f Field, content string) (string, bool) {
	switch f {
	case FieldName:
		lower := strings.ToLower(content)
		if idx := strings.Index(lower, "name:"); idx >= 0 {
			candidate := strings.TrimSpace(content[idx+len("name:"):])
			if ValidName(candidate) {
				return candidate, true
			}
		}
		if strings.HasPrefix(lower, "my name") {
			candidate := strings.TrimSpace(content[len("my name"):])
			candidate = strings.TrimPrefix(candidate, "is ")
			candidate = strings.TrimSpace(candidate)
			if ValidName(candidate) {
				return candidate, true
			}
		}
	case FieldEmail:
		for _, token := range strings.Fields(content) {
			token = strings.Trim(token, ".,;:!?")
			if ValidEmail(token) {
				return token, true
			}
		}
	case FieldPhone:
		if ValidPhone(content) {
			return strings.TrimSpace(content), true
		}
	}
	return "", false
}
