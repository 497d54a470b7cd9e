// internal/adapter/drafting/openai.go

package drafting

import (
	"context"
	"fmt"
	"strings"

	"github.com/sashabaranov/go-openai"

	"github.com/kartik-kumar-pandey/Naagrik-Nivedan/internal/domain/complaint"
)

const systemPrompt = "You write formal civic complaint letters addressed to municipal departments. " +
	"Keep them professional and specific, and never invent facts that are not in the report."

// Config holds drafting model settings
type Config struct {
	APIKey string
	Model  string
	// BaseURL overrides the API endpoint, e.g. for a compatible gateway
	BaseURL   string
	MaxTokens int
}

// OpenAIDrafter writes complaint letters with a chat completion model
type OpenAIDrafter struct {
	client    *openai.Client
	model     string
	maxTokens int
}

// NewOpenAIDrafter creates a new drafter
func NewOpenAIDrafter(cfg Config) *OpenAIDrafter {
	clientConfig := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientConfig.BaseURL = cfg.BaseURL
	}
	if cfg.Model == "" {
		cfg.Model = openai.GPT4oMini
	}
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = 600
	}

	return &OpenAIDrafter{
		client:    openai.NewClientWithConfig(clientConfig),
		model:     cfg.Model,
		maxTokens: cfg.MaxTokens,
	}
}

// Draft implements complaint.Drafter
func (d *OpenAIDrafter) Draft(ctx context.Context, c complaint.Complaint) (string, error) {
	resp, err := d.client.CreateChatCompletion(
		ctx,
		openai.ChatCompletionRequest{
			Model: d.model,
			Messages: []openai.ChatCompletionMessage{
				{
					Role:    openai.ChatMessageRoleSystem,
					Content: systemPrompt,
				},
				{
					Role:    openai.ChatMessageRoleUser,
					Content: Prompt(c),
				},
			},
			MaxTokens:   d.maxTokens,
			N:           1,
			Temperature: 0.4,
		},
	)
	if err != nil {
		return "", fmt.Errorf("openai chat completion error: %w", err)
	}

	if len(resp.Choices) == 0 || strings.TrimSpace(resp.Choices[0].Message.Content) == "" {
		return "", fmt.Errorf("openai returned empty response")
	}

	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}

// Prompt describes the complaint for the drafting model
func Prompt(c complaint.Complaint) string {
	description := strings.TrimSpace(c.Description)
	if description == "" {
		description = "No description provided"
	}

	var b strings.Builder
	b.WriteString("Write a formal complaint letter for a civic issue with these details:\n")
	fmt.Fprintf(&b, "- Issue type: %s\n", c.IssueType.Label())
	fmt.Fprintf(&b, "- Department: %s\n", c.Department)
	fmt.Fprintf(&b, "- Priority: %s\n", c.Priority)
	fmt.Fprintf(&b, "- Location: %s\n", c.Location.Address)
	fmt.Fprintf(&b, "- Description: %s\n\n", description)
	b.WriteString("The letter must assess urgency, mention any safety concerns and request prompt action. ")
	b.WriteString("Use a subject line, a salutation to the department and a closing signed by the Naagrik Nivedan platform.")
	return b.String()
}
