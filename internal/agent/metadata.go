package agent

import (
	"encoding/json"
	"log/slog"
	"strings"

	"github.com/voxa-labs/voxa-agent/internal/models"
)

// NormalizeMetadata folds the frontend's raw room metadata, participant
// attributes, and room name into a strict SessionMeta. The frontend has
// shipped several metadata shapes over time; all legacy key spellings are
// resolved here, exactly once, so nothing downstream sees raw maps.
func NormalizeMetadata(raw string, attrs map[string]string, roomName string) models.SessionMeta {
	var fields map[string]interface{}
	if raw != "" {
		if err := json.Unmarshal([]byte(raw), &fields); err != nil {
			slog.Warn("NormalizeMetadata: unparseable room metadata", "room", roomName, "error", err)
			fields = nil
		}
	}

	meta := models.SessionMeta{
		Role:       models.CallerRole(strings.ToLower(firstString(fields, "role", "userRole"))),
		BusinessID: firstString(fields, "businessId", "business_id", "business"),
		Email:      firstString(fields, "userEmail", "ownerEmail", "email"),
		Name:       firstString(fields, "name", "userName"),
		Slug:       firstString(fields, "slug"),
	}

	if !models.IsValidCallerRole(meta.Role) {
		meta.Role = models.CallerRole(strings.ToLower(attrs["role"]))
	}
	if !models.IsValidCallerRole(meta.Role) {
		meta.Role = roleFromRoomName(roomName)
	}
	if !models.IsValidCallerRole(meta.Role) {
		meta.Role = models.CallerGeneral
	}
	return meta
}

// firstString returns the first non-empty string value among the keys.
func firstString(fields map[string]interface{}, keys ...string) string {
	for _, key := range keys {
		if v, ok := fields[key].(string); ok && strings.TrimSpace(v) != "" {
			return strings.TrimSpace(v)
		}
	}
	return ""
}

// roleFromRoomName resolves the role from the room naming convention
// ("owner-", "customer-", "general-" prefixes).
func roleFromRoomName(roomName string) models.CallerRole {
	switch {
	case strings.HasPrefix(roomName, "owner-"):
		return models.CallerOwner
	case strings.HasPrefix(roomName, "customer-"):
		return models.CallerCustomer
	case strings.HasPrefix(roomName, "general-"):
		return models.CallerGeneral
	default:
		return ""
	}
}
