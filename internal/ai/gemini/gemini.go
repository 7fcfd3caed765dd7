package gemini

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"
)

var ErrNoContent = errors.New("no content returned from AI")

type GeminiClient struct {
	Client     *genai.Client
	FlashModel *genai.GenerativeModel
	ModelName  string
}

func NewGenAIClient(ctx context.Context, apiKey, flashModelName string) (*GeminiClient, error) {
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("genai client init failed: %w", err)
	}

	return &GeminiClient{
		Client:     client,
		FlashModel: client.GenerativeModel(flashModelName),
		ModelName:  flashModelName,
	}, nil
}

// NewGenAIClients builds one client per API key. Keys that fail to
// initialise are skipped and logged.
func NewGenAIClients(ctx context.Context, apiKeys []string, flashModelName string) []*GeminiClient {
	clients := make([]*GeminiClient, 0, len(apiKeys))
	for i, key := range apiKeys {
		if strings.TrimSpace(key) == "" {
			continue
		}
		client, err := NewGenAIClient(ctx, strings.TrimSpace(key), flashModelName)
		if err != nil {
			slog.Error("Failed to initialise Gemini client", "key_index", i, "error", err)
			continue
		}
		clients = append(clients, client)
	}
	return clients
}

// GenerateText sends a text-only prompt and returns the model's text as-is.
func (g *GeminiClient) GenerateText(ctx context.Context, prompt string) (string, error) {
	resp, err := g.FlashModel.GenerateContent(ctx, genai.Text(prompt))
	if err != nil {
		return "", fmt.Errorf("failed to generate content: %w", err)
	}
	return extractText(resp)
}

func (g *GeminiClient) Close() error {
	return g.Client.Close()
}

// extractText checks the response envelope only. The text itself is not
// inspected or trimmed.
func extractText(resp *genai.GenerateContentResponse) (string, error) {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0] == nil ||
		resp.Candidates[0].Content == nil || len(resp.Candidates[0].Content.Parts) == 0 {
		return "", ErrNoContent
	}

	var sb strings.Builder
	for i, part := range resp.Candidates[0].Content.Parts {
		textPart, ok := part.(genai.Text)
		if !ok {
			if i == 0 {
				return "", fmt.Errorf("response part is not text, received %T", part)
			}
			continue
		}
		sb.WriteString(string(textPart))
	}
	if sb.Len() == 0 {
		return "", ErrNoContent
	}
	return sb.String(), nil
}
