package tools

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/shared"

	"github.com/voxa-labs/voxa-agent/internal/models"
)

// MeetingService is the slice of the backend API the meeting tool needs.
type MeetingService interface {
	CreateMeeting(ctx context.Context, m models.Meeting) (models.Meeting, error)
}

// ScheduleMeetingTool books a meeting through the backend.
type ScheduleMeetingTool struct {
	svc MeetingService
}

// NewScheduleMeetingTool creates the meeting tool.
func NewScheduleMeetingTool(svc MeetingService) *ScheduleMeetingTool {
	return &ScheduleMeetingTool{svc: svc}
}

// GetToolDefinition returns the OpenAI tool definition for scheduling.
func (mt *ScheduleMeetingTool) GetToolDefinition() openai.ChatCompletionToolParam {
	return openai.ChatCompletionToolParam{
		Type: "function",
		Function: shared.FunctionDefinitionParam{
			Name:        "schedule_meeting",
			Description: openai.String("Schedule a meeting or appointment"),
			Parameters: shared.FunctionParameters{
				"type": "object",
				"properties": map[string]interface{}{
					"title": map[string]interface{}{
						"type":        "string",
						"description": "Meeting title",
					},
					"start_time": map[string]interface{}{
						"type":        "string",
						"description": "Meeting start time (ISO format)",
					},
					"duration_minutes": map[string]interface{}{
						"type":        "integer",
						"description": "Meeting duration in minutes",
					},
					"attendees": map[string]interface{}{
						"type":        "string",
						"description": "Comma-separated list of attendee emails",
					},
				},
				"required": []string{"title", "start_time"},
			},
		},
	}
}

// Execute books the meeting.
func (mt *ScheduleMeetingTool) Execute(ctx context.Context, args map[string]interface{}) (string, error) {
	title := stringArg(args, "title")
	startTime := stringArg(args, "start_time")
	duration := intArg(args, "duration_minutes", 30)

	var attendees []string
	if raw := stringArg(args, "attendees"); raw != "" {
		for _, a := range strings.Split(raw, ",") {
			if a = strings.TrimSpace(a); a != "" {
				attendees = append(attendees, a)
			}
		}
	}

	meeting, err := mt.svc.CreateMeeting(ctx, models.Meeting{
		Title:     title,
		StartTime: startTime,
		Duration:  duration,
		Attendees: attendees,
		Status:    "confirmed",
	})
	if err != nil {
		slog.Warn("ScheduleMeetingTool.Execute: creation failed", "title", title, "error", err)
		return "Failed to schedule meeting", nil
	}
	slog.Info("ScheduleMeetingTool.Execute: meeting created", "meetingID", meeting.ID)
	return fmt.Sprintf("Meeting scheduled successfully: %s at %s", title, startTime), nil
}
