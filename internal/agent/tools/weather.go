package tools

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/shared"
)

// DefaultWeatherBaseURL is the wttr.in endpoint used for one-line reports.
const DefaultWeatherBaseURL = "https://wttr.in"

// WeatherTool reports the current weather for a city via wttr.in.
type WeatherTool struct {
	baseURL string
	http    *http.Client
}

// NewWeatherTool creates a weather tool with the default endpoint.
func NewWeatherTool() *WeatherTool {
	return &WeatherTool{
		baseURL: DefaultWeatherBaseURL,
		http:    &http.Client{Timeout: 10 * time.Second},
	}
}

// GetToolDefinition returns the OpenAI tool definition for weather lookups.
func (wt *WeatherTool) GetToolDefinition() openai.ChatCompletionToolParam {
	return openai.ChatCompletionToolParam{
		Type: "function",
		Function: shared.FunctionDefinitionParam{
			Name:        "get_weather",
			Description: openai.String("Get the current weather for a given city"),
			Parameters: shared.FunctionParameters{
				"type": "object",
				"properties": map[string]interface{}{
					"city": map[string]interface{}{
						"type":        "string",
						"description": "City name to get the weather for",
					},
				},
				"required": []string{"city"},
			},
		},
	}
}

// Execute fetches the one-line weather report for the requested city.
func (wt *WeatherTool) Execute(ctx context.Context, args map[string]interface{}) (string, error) {
	city := strings.TrimSpace(stringArg(args, "city"))
	if city == "" {
		return "Could not retrieve weather: no city provided.", nil
	}

	reqURL := fmt.Sprintf("%s/%s?format=3", wt.baseURL, url.PathEscape(city))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return "", fmt.Errorf("build weather request: %w", err)
	}
	resp, err := wt.http.Do(req)
	if err != nil {
		slog.Warn("WeatherTool.Execute: request failed", "city", city, "error", err)
		return fmt.Sprintf("An error occurred while retrieving weather for %s.", city), nil
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		slog.Warn("WeatherTool.Execute: non-OK status", "city", city, "status", resp.StatusCode)
		return fmt.Sprintf("Could not retrieve weather for %s.", city), nil
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Sprintf("An error occurred while retrieving weather for %s.", city), nil
	}
	report := strings.TrimSpace(string(body))
	slog.Debug("WeatherTool.Execute: report fetched", "city", city, "report", report)
	return report, nil
}
