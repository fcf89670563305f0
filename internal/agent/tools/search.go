package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/shared"
)

// DefaultSearchBaseURL is the DuckDuckGo instant-answer endpoint.
const DefaultSearchBaseURL = "https://api.duckduckgo.com"

// SearchTool answers web queries through the DuckDuckGo instant-answer API.
type SearchTool struct {
	baseURL string
	http    *http.Client
}

// NewSearchTool creates a search tool with the default endpoint.
func NewSearchTool() *SearchTool {
	return &SearchTool{
		baseURL: DefaultSearchBaseURL,
		http:    &http.Client{Timeout: 10 * time.Second},
	}
}

// GetToolDefinition returns the OpenAI tool definition for web search.
func (st *SearchTool) GetToolDefinition() openai.ChatCompletionToolParam {
	return openai.ChatCompletionToolParam{
		Type: "function",
		Function: shared.FunctionDefinitionParam{
			Name:        "search_web",
			Description: openai.String("Search the web using DuckDuckGo"),
			Parameters: shared.FunctionParameters{
				"type": "object",
				"properties": map[string]interface{}{
					"query": map[string]interface{}{
						"type":        "string",
						"description": "Search query",
					},
				},
				"required": []string{"query"},
			},
		},
	}
}

// instantAnswer is the subset of the DuckDuckGo response we surface.
type instantAnswer struct {
	AbstractText  string `json:"AbstractText"`
	Answer        string `json:"Answer"`
	RelatedTopics []struct {
		Text string `json:"Text"`
	} `json:"RelatedTopics"`
}

// Execute runs the query and flattens the instant answer to plain text.
func (st *SearchTool) Execute(ctx context.Context, args map[string]interface{}) (string, error) {
	query := strings.TrimSpace(stringArg(args, "query"))
	if query == "" {
		return "An error occurred while searching the web: empty query.", nil
	}

	params := url.Values{}
	params.Set("q", query)
	params.Set("format", "json")
	params.Set("no_html", "1")
	reqURL := fmt.Sprintf("%s/?%s", st.baseURL, params.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return "", fmt.Errorf("build search request: %w", err)
	}
	resp, err := st.http.Do(req)
	if err != nil {
		slog.Warn("SearchTool.Execute: request failed", "query", query, "error", err)
		return fmt.Sprintf("An error occurred while searching the web for '%s'.", query), nil
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		slog.Warn("SearchTool.Execute: non-OK status", "query", query, "status", resp.StatusCode)
		return fmt.Sprintf("An error occurred while searching the web for '%s'.", query), nil
	}

	var answer instantAnswer
	if err := json.NewDecoder(resp.Body).Decode(&answer); err != nil {
		return fmt.Sprintf("An error occurred while searching the web for '%s'.", query), nil
	}

	var parts []string
	if answer.Answer != "" {
		parts = append(parts, answer.Answer)
	}
	if answer.AbstractText != "" {
		parts = append(parts, answer.AbstractText)
	}
	for i, topic := range answer.RelatedTopics {
		if i >= 3 {
			break
		}
		if topic.Text != "" {
			parts = append(parts, topic.Text)
		}
	}
	if len(parts) == 0 {
		return fmt.Sprintf("No results found for '%s'.", query), nil
	}
	slog.Debug("SearchTool.Execute: results returned", "query", query, "parts", len(parts))
	return strings.Join(parts, "\n"), nil
}
