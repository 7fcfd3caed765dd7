package gemini

import (
	"context"
	"errors"
	"log/slog"
	"sync"
)

var ErrNoClients = errors.New("no Gemini clients available")

// TextGenerator is one configured model endpoint.
type TextGenerator interface {
	GenerateText(ctx context.Context, prompt string) (string, error)
}

// GeminiClientSelector spreads requests round-robin across several API keys.
// Each request is attempted once, on one client.
type GeminiClientSelector struct {
	clients      []TextGenerator
	currentIndex int
	mutex        sync.Mutex
}

func NewGeminiClientSelector(clients []TextGenerator) *GeminiClientSelector {
	return &GeminiClientSelector{
		clients:      clients,
		currentIndex: 0,
	}
}

// NewSelectorFromClients adapts concrete clients to the selector.
func NewSelectorFromClients(clients []*GeminiClient) *GeminiClientSelector {
	generators := make([]TextGenerator, 0, len(clients))
	for _, c := range clients {
		generators = append(generators, c)
	}
	return NewGeminiClientSelector(generators)
}

// GetNextClient returns the next client in round-robin order
func (s *GeminiClientSelector) GetNextClient() (TextGenerator, int) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	if len(s.clients) == 0 {
		return nil, -1
	}

	client := s.clients[s.currentIndex]
	index := s.currentIndex
	s.currentIndex = (s.currentIndex + 1) % len(s.clients)

	return client, index
}

func (s *GeminiClientSelector) GetClientCount() int {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	return len(s.clients)
}

// GenerateText forwards the prompt to the next client. Failures are returned
// to the caller; the next client is not tried.
func (s *GeminiClientSelector) GenerateText(ctx context.Context, prompt string) (string, error) {
	client, clientIdx := s.GetNextClient()
	if client == nil {
		return "", ErrNoClients
	}

	slog.Info("Sending Gemini request",
		"client_index", clientIdx,
		"prompt_length", len(prompt))

	text, err := client.GenerateText(ctx, prompt)
	if err != nil {
		slog.Warn("Gemini request failed",
			"client_index", clientIdx,
			"error", err)
		return "", err
	}

	slog.Info("Gemini request succeeded",
		"client_index", clientIdx,
		"response_length", len(text))
	return text, nil
}
