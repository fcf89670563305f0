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

// TicketService is the slice of the backend API the ticket tools need.
type TicketService interface {
	CreateTicket(ctx context.Context, t models.Ticket) (models.Ticket, error)
	UpdateTicketStatus(ctx context.Context, ticketID, status string) (models.Ticket, error)
	AddTicketNote(ctx context.Context, ticketID, note string) error
	ListTickets(ctx context.Context, businessID string) ([]models.Ticket, error)
	UpsertCustomer(ctx context.Context, cust models.Customer) (models.Customer, error)
}

// CreateTicketTool opens a support ticket, upserting the customer first when
// enough identity is known.
type CreateTicketTool struct {
	svc TicketService
}

// NewCreateTicketTool creates the ticket creation tool.
func NewCreateTicketTool(svc TicketService) *CreateTicketTool {
	return &CreateTicketTool{svc: svc}
}

// GetToolDefinition returns the OpenAI tool definition for ticket creation.
func (tt *CreateTicketTool) GetToolDefinition() openai.ChatCompletionToolParam {
	return openai.ChatCompletionToolParam{
		Type: "function",
		Function: shared.FunctionDefinitionParam{
			Name:        "create_ticket",
			Description: openai.String("Create a support ticket for an issue that needs tracking"),
			Parameters: shared.FunctionParameters{
				"type": "object",
				"properties": map[string]interface{}{
					"title": map[string]interface{}{
						"type":        "string",
						"description": "Short ticket title",
					},
					"description": map[string]interface{}{
						"type":        "string",
						"description": "Detailed issue description",
					},
					"priority": map[string]interface{}{
						"type":        "string",
						"description": "Ticket priority",
						"enum":        []string{"low", "medium", "high"},
					},
					"customer_email": map[string]interface{}{
						"type":        "string",
						"description": "Customer email, when known",
					},
					"customer_name": map[string]interface{}{
						"type":        "string",
						"description": "Customer name, when known",
					},
					"business_id": map[string]interface{}{
						"type":        "string",
						"description": "Business the ticket belongs to",
					},
				},
				"required": []string{"title", "description"},
			},
		},
	}
}

// Execute creates the ticket, attaching a customer record when possible.
func (tt *CreateTicketTool) Execute(ctx context.Context, args map[string]interface{}) (string, error) {
	title := stringArg(args, "title")
	priority := stringArg(args, "priority")
	if priority == "" {
		priority = "medium"
	}
	businessID := stringArg(args, "business_id")
	customerEmail := strings.TrimSpace(stringArg(args, "customer_email"))

	var customerID string
	if customerEmail != "" && businessID != "" {
		cust, err := tt.svc.UpsertCustomer(ctx, models.Customer{
			BusinessID: businessID,
			Email:      customerEmail,
			Name:       stringArg(args, "customer_name"),
		})
		if err != nil {
			slog.Warn("CreateTicketTool.Execute: customer upsert failed", "email", customerEmail, "error", err)
		} else {
			customerID = cust.ID
		}
	}

	ticket, err := tt.svc.CreateTicket(ctx, models.Ticket{
		Title:       title,
		Description: stringArg(args, "description"),
		Priority:    priority,
		Status:      "open",
		BusinessID:  businessID,
		CustomerID:  customerID,
	})
	if err != nil {
		slog.Warn("CreateTicketTool.Execute: creation failed", "title", title, "error", err)
		return "Failed to create support ticket", nil
	}
	slog.Info("CreateTicketTool.Execute: ticket created", "ticketID", ticket.ID)
	return fmt.Sprintf("Support ticket created successfully. Ticket ID: %s", orNA(ticket.ID)), nil
}

// UpdateTicketTool changes a ticket's status and optionally appends a note.
type UpdateTicketTool struct {
	svc TicketService
}

// NewUpdateTicketTool creates the ticket update tool.
func NewUpdateTicketTool(svc TicketService) *UpdateTicketTool {
	return &UpdateTicketTool{svc: svc}
}

// GetToolDefinition returns the OpenAI tool definition for ticket updates.
func (ut *UpdateTicketTool) GetToolDefinition() openai.ChatCompletionToolParam {
	return openai.ChatCompletionToolParam{
		Type: "function",
		Function: shared.FunctionDefinitionParam{
			Name:        "update_ticket",
			Description: openai.String("Update a support ticket's status and optionally add a note (owner only)"),
			Parameters: shared.FunctionParameters{
				"type": "object",
				"properties": map[string]interface{}{
					"ticket_id": map[string]interface{}{
						"type":        "string",
						"description": "Ticket identifier",
					},
					"status": map[string]interface{}{
						"type":        "string",
						"description": "New status",
						"enum":        []string{"open", "in-progress", "resolved", "closed"},
					},
					"notes": map[string]interface{}{
						"type":        "string",
						"description": "Optional note to append",
					},
				},
				"required": []string{"ticket_id", "status"},
			},
		},
	}
}

// Execute applies the status change and note.
func (ut *UpdateTicketTool) Execute(ctx context.Context, args map[string]interface{}) (string, error) {
	ticketID := stringArg(args, "ticket_id")
	status := stringArg(args, "status")

	ticket, err := ut.svc.UpdateTicketStatus(ctx, ticketID, status)
	if err != nil {
		slog.Warn("UpdateTicketTool.Execute: status update failed", "ticketID", ticketID, "error", err)
		return "Failed to update ticket", nil
	}
	if notes := stringArg(args, "notes"); notes != "" {
		if err := ut.svc.AddTicketNote(ctx, ticketID, notes); err != nil {
			slog.Warn("UpdateTicketTool.Execute: note append failed", "ticketID", ticketID, "error", err)
		}
	}
	return fmt.Sprintf("Ticket %s updated to %s", ticket.ID, ticket.Status), nil
}

// ListTicketsTool lists a business's tickets with an optional status filter.
type ListTicketsTool struct {
	svc TicketService
}

// NewListTicketsTool creates the ticket listing tool.
func NewListTicketsTool(svc TicketService) *ListTicketsTool {
	return &ListTicketsTool{svc: svc}
}

// GetToolDefinition returns the OpenAI tool definition for ticket listing.
func (lt *ListTicketsTool) GetToolDefinition() openai.ChatCompletionToolParam {
	return openai.ChatCompletionToolParam{
		Type: "function",
		Function: shared.FunctionDefinitionParam{
			Name:        "list_tickets",
			Description: openai.String("List support tickets for a business. Optional status filter: open|in-progress|resolved|closed"),
			Parameters: shared.FunctionParameters{
				"type": "object",
				"properties": map[string]interface{}{
					"business_id": map[string]interface{}{
						"type":        "string",
						"description": "Business identifier",
					},
					"status": map[string]interface{}{
						"type":        "string",
						"description": "Optional status filter",
					},
				},
				"required": []string{"business_id"},
			},
		},
	}
}

// Execute lists and filters tickets, returning them as JSON.
func (lt *ListTicketsTool) Execute(ctx context.Context, args map[string]interface{}) (string, error) {
	businessID := stringArg(args, "business_id")
	tickets, err := lt.svc.ListTickets(ctx, businessID)
	if err != nil {
		slog.Warn("ListTicketsTool.Execute: listing failed", "businessID", businessID, "error", err)
		return "[]", nil
	}
	if status := stringArg(args, "status"); status != "" {
		filtered := tickets[:0]
		for _, t := range tickets {
			if t.Status == status {
				filtered = append(filtered, t)
			}
		}
		tickets = filtered
	}
	return marshalJSON(tickets), nil
}
