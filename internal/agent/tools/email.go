package tools

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"strings"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/shared"
	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"

	"github.com/voxa-labs/voxa-agent/internal/models"
)

// CredentialsProvider resolves per-business sending credentials.
type CredentialsProvider interface {
	GetEmailCredentials(ctx context.Context, businessID string) (models.EmailCredentials, error)
	GetFullEmailCredentials(ctx context.Context, businessID string) (models.EmailCredentials, error)
}

// mailSender delivers a built message; swapped out in tests.
type mailSender func(apiKey string, m *mail.SGMailV3) (int, error)

func sendgridSend(apiKey string, m *mail.SGMailV3) (int, error) {
	resp, err := sendgrid.NewSendClient(apiKey).Send(m)
	if err != nil {
		return 0, err
	}
	return resp.StatusCode, nil
}

// EmailTool sends email through SendGrid. The business-stored API key is
// preferred; the server-wide SEND_GRID environment variable is the fallback.
type EmailTool struct {
	creds CredentialsProvider
	send  mailSender
}

// NewEmailTool creates an email tool backed by the given credentials source.
func NewEmailTool(creds CredentialsProvider) *EmailTool {
	return &EmailTool{creds: creds, send: sendgridSend}
}

// GetToolDefinition returns the OpenAI tool definition for sending email.
func (et *EmailTool) GetToolDefinition() openai.ChatCompletionToolParam {
	return openai.ChatCompletionToolParam{
		Type: "function",
		Function: shared.FunctionDefinitionParam{
			Name:        "send_email",
			Description: openai.String("Send an email on behalf of the business using SendGrid"),
			Parameters: shared.FunctionParameters{
				"type": "object",
				"properties": map[string]interface{}{
					"to_email": map[string]interface{}{
						"type":        "string",
						"description": "Recipient email address",
					},
					"subject": map[string]interface{}{
						"type":        "string",
						"description": "Email subject line",
					},
					"message": map[string]interface{}{
						"type":        "string",
						"description": "Plain-text body of the email",
					},
					"business_id": map[string]interface{}{
						"type":        "string",
						"description": "Business whose sending identity to use",
					},
					"cc_email": map[string]interface{}{
						"type":        "string",
						"description": "Optional CC recipient",
					},
				},
				"required": []string{"to_email", "subject", "message", "business_id"},
			},
		},
	}
}

// Execute resolves credentials and delivers the message.
func (et *EmailTool) Execute(ctx context.Context, args map[string]interface{}) (string, error) {
	toEmail := strings.TrimSpace(stringArg(args, "to_email"))
	subject := stringArg(args, "subject")
	message := stringArg(args, "message")
	businessID := stringArg(args, "business_id")
	ccEmail := strings.TrimSpace(stringArg(args, "cc_email"))

	creds, err := et.creds.GetEmailCredentials(ctx, businessID)
	if err != nil {
		slog.Warn("EmailTool.Execute: failed to fetch email credentials", "businessID", businessID, "error", err)
		return "Email sending failed: Could not retrieve email credentials.", nil
	}
	fromEmail := creds.Email
	if fromEmail == "" {
		fromEmail = os.Getenv("DEFAULT_FROM_EMAIL")
	}

	var apiKey string
	if full, err := et.creds.GetFullEmailCredentials(ctx, businessID); err == nil {
		apiKey = full.SendGridAPIKey
	}
	if apiKey == "" {
		apiKey = os.Getenv("SEND_GRID")
	}
	if apiKey == "" {
		slog.Warn("EmailTool.Execute: no SendGrid API key available", "businessID", businessID)
		return "Email sending failed: No SendGrid API key available.", nil
	}
	if fromEmail == "" {
		slog.Warn("EmailTool.Execute: no from email configured", "businessID", businessID)
		return "Email sending failed: No from email configured.", nil
	}

	m := mail.NewV3Mail()
	m.SetFrom(mail.NewEmail("", fromEmail))
	m.Subject = subject
	p := mail.NewPersonalization()
	p.AddTos(mail.NewEmail("", toEmail))
	if ccEmail != "" {
		p.AddCCs(mail.NewEmail("", ccEmail))
	}
	m.AddPersonalizations(p)
	m.AddContent(mail.NewContent("text/plain", message))

	status, err := et.send(apiKey, m)
	if err != nil {
		slog.Warn("EmailTool.Execute: send failed", "to", toEmail, "error", err)
		return fmt.Sprintf("An error occurred while sending email: %v", err), nil
	}
	if status != http.StatusOK && status != http.StatusAccepted {
		slog.Warn("EmailTool.Execute: SendGrid rejected message", "to", toEmail, "status", status)
		return fmt.Sprintf("Email sending failed: SendGrid error %d", status), nil
	}
	slog.Debug("EmailTool.Execute: email sent", "to", toEmail)
	return fmt.Sprintf("Email sent successfully to %s", toEmail), nil
}
