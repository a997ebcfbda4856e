package llm

import (
	"context"
	"errors"
	"os"

	"google.golang.org/genai"
)

// GeminiAPI talks to the public Gemini API with an API key. The API answers in
// one piece, so the stream carries a single chunk.
type GeminiAPI struct {
	client *genai.Client
	model  string
}

func NewGeminiAPI(ctx context.Context, apiKey, model string) (*GeminiAPI, error) {
	if apiKey == "" {
		return nil, errors.New("gemini api key is required")
	}
	c, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, err
	}
	if model == "" {
		model = "gemini-2.5-flash"
	}
	return &GeminiAPI{client: c, model: model}, nil
}

func init() {
	Register("gemini", func(ctx context.Context) (Provider, error) {
		return NewGeminiAPI(ctx, os.Getenv("GEMINI_API_KEY"), os.Getenv("GEMINI_MODEL"))
	})
}

func (g *GeminiAPI) Close() error { return nil }

func (g *GeminiAPI) StreamAnswer(ctx context.Context, prompt string) (<-chan string, <-chan error) {
	out := make(chan string, 1)
	errs := make(chan error, 1)

	go func() {
		defer close(out)
		defer close(errs)

		result, err := g.client.Models.GenerateContent(ctx, g.model, genai.Text(prompt), nil)
		if err != nil {
			errs <- err
			return
		}
		if result == nil {
			errs <- ErrEmptyResponse
			return
		}
		text, err := result.Text()
		if err != nil {
			errs <- err
			return
		}
		if text != "" {
			out <- text
		}
	}()

	return out, errs
}
