package textgen

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"
)

// GeminiOptions configures a Gemini backend.
type GeminiOptions struct {
	Model string
	// CredentialsFile takes precedence over APIKey.
	CredentialsFile string
	APIKey          string
}

// Gemini calls the Gemini API through generative-ai-go.
type Gemini struct {
	client *genai.Client
	model  string
}

// NewGemini creates a Gemini backend. Close releases the client.
func NewGemini(ctx context.Context, opts GeminiOptions) (*Gemini, error) {
	if opts.Model == "" {
		return nil, errors.New("gemini model is required")
	}
	clientOpts, err := geminiClientOptions(opts)
	if err != nil {
		return nil, err
	}

	client, err := genai.NewClient(ctx, clientOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize Gemini AI client: %w", err)
	}
	return &Gemini{client: client, model: opts.Model}, nil
}

// geminiClientOptions picks the credentials file when present, else the API key.
func geminiClientOptions(opts GeminiOptions) ([]option.ClientOption, error) {
	switch {
	case opts.CredentialsFile != "":
		return []option.ClientOption{option.WithCredentialsFile(opts.CredentialsFile)}, nil
	case opts.APIKey != "":
		return []option.ClientOption{option.WithAPIKey(opts.APIKey)}, nil
	default:
		return nil, errors.New("no authentication method available: set a credentials file or an API key for gemini")
	}
}

// Complete sends one system + user exchange and returns the trimmed reply.
func (g *Gemini) Complete(ctx context.Context, system, user string, maxTokens int) (string, error) {
	model := g.client.GenerativeModel(g.model)
	model.SystemInstruction = &genai.Content{Parts: []genai.Part{genai.Text(system)}}
	if maxTokens > 0 {
		model.SetMaxOutputTokens(int32(maxTokens))
	}

	resp, err := model.GenerateContent(ctx, genai.Text(user))
	if err != nil {
		return "", fmt.Errorf("gemini request failed: %w", err)
	}
	text := strings.TrimSpace(extractTextFromResponse(resp))
	if text == "" {
		return "", errors.New("could not extract text content from gemini response")
	}
	return text, nil
}

// Close releases the underlying client.
func (g *Gemini) Close() error { return g.client.Close() }

// extractTextFromResponse concatenates the text parts of every candidate.
func extractTextFromResponse(resp *genai.GenerateContentResponse) string {
	if resp == nil {
		return ""
	}
	var builder strings.Builder
	for _, cand := range resp.Candidates {
		if cand.Content == nil {
			continue
		}
		for _, part := range cand.Content.Parts {
			if textPart, ok := part.(genai.Text); ok {
				builder.WriteString(string(textPart))
			}
		}
	}
	return builder.String()
}
