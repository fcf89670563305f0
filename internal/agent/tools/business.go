package tools

import (
	"context"
	"log/slog"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/shared"

	"github.com/voxa-labs/voxa-agent/internal/models"
)

// BusinessService is the slice of the backend API the context and analytics
// tools need.
type BusinessService interface {
	GetBusinessContext(ctx context.Context, idOrSlug string) (models.BusinessContext, error)
	GetAnalytics(ctx context.Context, metric, businessID string) (models.AnalyticsReport, error)
}

// BusinessContextTool fetches the business description, products, and
// policies.
type BusinessContextTool struct {
	svc BusinessService
}

// NewBusinessContextTool creates the business context tool.
func NewBusinessContextTool(svc BusinessService) *BusinessContextTool {
	return &BusinessContextTool{svc: svc}
}

// GetToolDefinition returns the OpenAI tool definition for business context.
func (bt *BusinessContextTool) GetToolDefinition() openai.ChatCompletionToolParam {
	return openai.ChatCompletionToolParam{
		Type: "function",
		Function: shared.FunctionDefinitionParam{
			Name:        "get_business_context",
			Description: openai.String("Fetch business description, products, and policies"),
			Parameters: shared.FunctionParameters{
				"type": "object",
				"properties": map[string]interface{}{
					"business_id": map[string]interface{}{
						"type":        "string",
						"description": "Business identifier or slug",
					},
				},
				"required": []string{"business_id"},
			},
		},
	}
}

// Execute fetches the business context as JSON.
func (bt *BusinessContextTool) Execute(ctx context.Context, args map[string]interface{}) (string, error) {
	businessID := stringArg(args, "business_id")
	biz, err := bt.svc.GetBusinessContext(ctx, businessID)
	if err != nil {
		slog.Warn("BusinessContextTool.Execute: fetch failed", "businessID", businessID, "error", err)
		return "{}", nil
	}
	return marshalJSON(biz), nil
}

// AnalyticsTool reports business metrics for owner sessions.
type AnalyticsTool struct {
	svc BusinessService
}

// NewAnalyticsTool creates the analytics tool.
func NewAnalyticsTool(svc BusinessService) *AnalyticsTool {
	return &AnalyticsTool{svc: svc}
}

// GetToolDefinition returns the OpenAI tool definition for analytics.
func (at *AnalyticsTool) GetToolDefinition() openai.ChatCompletionToolParam {
	return openai.ChatCompletionToolParam{
		Type: "function",
		Function: shared.FunctionDefinitionParam{
			Name:        "get_analytics",
			Description: openai.String("Get business metrics: 'overview'|'tickets'|'customers'"),
			Parameters: shared.FunctionParameters{
				"type": "object",
				"properties": map[string]interface{}{
					"metric": map[string]interface{}{
						"type":        "string",
						"description": "Metric to report",
						"enum":        []string{"overview", "tickets", "customers"},
					},
					"business_id": map[string]interface{}{
						"type":        "string",
						"description": "Business identifier",
					},
				},
				"required": []string{"metric", "business_id"},
			},
		},
	}
}

// Execute fetches the metric payload as JSON.
func (at *AnalyticsTool) Execute(ctx context.Context, args map[string]interface{}) (string, error) {
	metric := stringArg(args, "metric")
	businessID := stringArg(args, "business_id")
	report, err := at.svc.GetAnalytics(ctx, metric, businessID)
	if err != nil {
		slog.Warn("AnalyticsTool.Execute: fetch failed", "metric", metric, "businessID", businessID, "error", err)
		return "{}", nil
	}
	if len(report.Payload) > 0 {
		return string(report.Payload), nil
	}
	return marshalJSON(report), nil
}
