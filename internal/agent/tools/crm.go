package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/shared"

	"github.com/voxa-labs/voxa-agent/internal/models"
)

// CRMService is the slice of the backend API the CRM tools need.
type CRMService interface {
	LookupCustomer(ctx context.Context, email string) (models.Customer, error)
	UpsertCustomer(ctx context.Context, cust models.Customer) (models.Customer, error)
	SearchCustomers(ctx context.Context, q, businessID string) ([]models.Customer, error)
	ListTickets(ctx context.Context, businessID string) ([]models.Ticket, error)
}

// CRMLookupTool looks a customer up by email.
type CRMLookupTool struct {
	crm CRMService
}

// NewCRMLookupTool creates the lookup tool.
func NewCRMLookupTool(crm CRMService) *CRMLookupTool {
	return &CRMLookupTool{crm: crm}
}

// GetToolDefinition returns the OpenAI tool definition for CRM lookup.
func (ct *CRMLookupTool) GetToolDefinition() openai.ChatCompletionToolParam {
	return openai.ChatCompletionToolParam{
		Type: "function",
		Function: shared.FunctionDefinitionParam{
			Name:        "crm_lookup",
			Description: openai.String("Look up customer information in the CRM system by email address"),
			Parameters: shared.FunctionParameters{
				"type": "object",
				"properties": map[string]interface{}{
					"email": map[string]interface{}{
						"type":        "string",
						"description": "Customer email address",
					},
				},
				"required": []string{"email"},
			},
		},
	}
}

// Execute fetches and formats the customer record.
func (ct *CRMLookupTool) Execute(ctx context.Context, args map[string]interface{}) (string, error) {
	email := strings.TrimSpace(stringArg(args, "email"))
	cust, err := ct.crm.LookupCustomer(ctx, email)
	if err != nil {
		slog.Warn("CRMLookupTool.Execute: lookup failed", "email", email, "error", err)
		return fmt.Sprintf("Customer not found for email: %s", email), nil
	}
	return formatCustomer(cust), nil
}

func formatCustomer(cust models.Customer) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Customer: %s\n", orNA(cust.Name))
	fmt.Fprintf(&b, "Email: %s\n", orNA(cust.Email))
	fmt.Fprintf(&b, "Phone: %s\n", orNA(cust.Phone))
	fmt.Fprintf(&b, "Company: %s\n", orNA(cust.Company))
	return b.String()
}

func orNA(s string) string {
	if s == "" {
		return "N/A"
	}
	return s
}

// CustomerHistoryTool summarizes a customer's record and open tickets.
type CustomerHistoryTool struct {
	crm CRMService
}

// NewCustomerHistoryTool creates the history tool.
func NewCustomerHistoryTool(crm CRMService) *CustomerHistoryTool {
	return &CustomerHistoryTool{crm: crm}
}

// GetToolDefinition returns the OpenAI tool definition for customer history.
func (ht *CustomerHistoryTool) GetToolDefinition() openai.ChatCompletionToolParam {
	return openai.ChatCompletionToolParam{
		Type: "function",
		Function: shared.FunctionDefinitionParam{
			Name:        "get_customer_history",
			Description: openai.String("Get customer history including their profile and support tickets"),
			Parameters: shared.FunctionParameters{
				"type": "object",
				"properties": map[string]interface{}{
					"email": map[string]interface{}{
						"type":        "string",
						"description": "Customer email address",
					},
				},
				"required": []string{"email"},
			},
		},
	}
}

// Execute fetches the customer and their tickets.
func (ht *CustomerHistoryTool) Execute(ctx context.Context, args map[string]interface{}) (string, error) {
	email := strings.TrimSpace(stringArg(args, "email"))
	cust, err := ht.crm.LookupCustomer(ctx, email)
	if err != nil {
		return fmt.Sprintf("Customer not found for email: %s", email), nil
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Customer: %s\n\n", orNA(cust.Name))

	tickets, err := ht.crm.ListTickets(ctx, cust.BusinessID)
	if err != nil {
		slog.Warn("CustomerHistoryTool.Execute: ticket listing failed", "email", email, "error", err)
		return b.String(), nil
	}
	var owned []models.Ticket
	for _, t := range tickets {
		if t.CustomerID == cust.ID {
			owned = append(owned, t)
		}
	}
	fmt.Fprintf(&b, "Tickets (%d):\n", len(owned))
	for i, t := range owned {
		if i >= 5 {
			break
		}
		fmt.Fprintf(&b, "- [%s] %s (%s)\n", t.Status, t.Title, t.Priority)
	}
	return b.String(), nil
}

// ManageCustomerTool performs CRM mutations: upsert and search.
type ManageCustomerTool struct {
	crm CRMService
}

// NewManageCustomerTool creates the management tool.
func NewManageCustomerTool(crm CRMService) *ManageCustomerTool {
	return &ManageCustomerTool{crm: crm}
}

// GetToolDefinition returns the OpenAI tool definition for customer
// management.
func (mt *ManageCustomerTool) GetToolDefinition() openai.ChatCompletionToolParam {
	return openai.ChatCompletionToolParam{
		Type: "function",
		Function: shared.FunctionDefinitionParam{
			Name:        "manage_customer",
			Description: openai.String("CRM: 'upsert' or 'search' customers, returns the full customer record(s) as JSON"),
			Parameters: shared.FunctionParameters{
				"type": "object",
				"properties": map[string]interface{}{
					"action": map[string]interface{}{
						"type":        "string",
						"description": "Action to perform",
						"enum":        []string{"upsert", "search"},
					},
					"business_id": map[string]interface{}{
						"type":        "string",
						"description": "Business the customer belongs to",
					},
					"email": map[string]interface{}{
						"type":        "string",
						"description": "Customer email (upsert)",
					},
					"name": map[string]interface{}{
						"type":        "string",
						"description": "Customer name (upsert)",
					},
					"phone": map[string]interface{}{
						"type":        "string",
						"description": "Customer phone (upsert)",
					},
					"query": map[string]interface{}{
						"type":        "string",
						"description": "Search query (search)",
					},
				},
				"required": []string{"action", "business_id"},
			},
		},
	}
}

// Execute dispatches the requested CRM action.
func (mt *ManageCustomerTool) Execute(ctx context.Context, args map[string]interface{}) (string, error) {
	action := stringArg(args, "action")
	businessID := stringArg(args, "business_id")

	switch action {
	case "upsert":
		cust, err := mt.crm.UpsertCustomer(ctx, models.Customer{
			BusinessID: businessID,
			Email:      stringArg(args, "email"),
			Name:       stringArg(args, "name"),
			Phone:      stringArg(args, "phone"),
		})
		if err != nil {
			slog.Warn("ManageCustomerTool.Execute: upsert failed", "businessID", businessID, "error", err)
			return "{}", nil
		}
		return marshalJSON(cust), nil
	case "search":
		results, err := mt.crm.SearchCustomers(ctx, stringArg(args, "query"), businessID)
		if err != nil {
			slog.Warn("ManageCustomerTool.Execute: search failed", "businessID", businessID, "error", err)
			return "[]", nil
		}
		return marshalJSON(results), nil
	default:
		return "{}", nil
	}
}

func marshalJSON(v interface{}) string {
	data, err := json.Marshal(v)
	if err != nil {
		return "{}"
	}
	return string(data)
}
