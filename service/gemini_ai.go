package service

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"
)

// GeminiService implements AIService against the Gemini API. Multiple API
// keys can be supplied; on a quota error the service rotates to the next key
// and retries once per key.
type GeminiService struct {
	apiKeys        []string
	currentKey     int
	client         *genai.Client
	modelName      string
	embeddingModel string
	mu             sync.Mutex
}

func NewGeminiService(apiKeys []string, modelName, embeddingModel string) (*GeminiService, error) {
	if len(apiKeys) == 0 {
		return nil, errors.New("no API keys provided")
	}

	service := &GeminiService{
		apiKeys:        apiKeys,
		currentKey:     0,
		modelName:      modelName,
		embeddingModel: embeddingModel,
	}

	if err := service.initClient(); err != nil {
		return nil, err
	}
	return service, nil
}

func (s *GeminiService) initClient() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	client, err := genai.NewClient(context.Background(), option.WithAPIKey(s.apiKeys[s.currentKey]))
	if err != nil {
		return err
	}
	s.client = client
	return nil
}

func (s *GeminiService) rotateAPIKey() error {
	s.mu.Lock()
	s.currentKey = (s.currentKey + 1) % len(s.apiKeys)
	if err := s.client.Close(); err != nil {
		s.mu.Unlock()
		return err
	}
	s.mu.Unlock()
	return s.initClient()
}

func (s *GeminiService) Generate(ctx context.Context, prompt string, opts GenerateOptions) (string, error) {
	var lastErr error
	for attempt := 0; attempt < len(s.apiKeys); attempt++ {
		model := s.client.GenerativeModel(s.modelName)
		model.SetTemperature(opts.Temperature)
		if opts.JSONResponse {
			model.ResponseMIMEType = "application/json"
		}

		resp, err := model.GenerateContent(ctx, genai.Text(prompt))
		if err != nil {
			lastErr = err
			if IsQuotaError(err) && len(s.apiKeys) > 1 {
				if rerr := s.rotateAPIKey(); rerr != nil {
					return "", rerr
				}
				continue
			}
			return "", err
		}
		if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
			return "", errors.New("no response generated")
		}
		var out string
		for _, part := range resp.Candidates[0].Content.Parts {
			if text, ok := part.(genai.Text); ok {
				out += string(text)
			}
		}
		return out, nil
	}
	return "", lastErr
}

func (s *GeminiService) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	em := s.client.EmbeddingModel(s.embeddingModel)
	batch := em.NewBatch()
	for _, text := range texts {
		batch = batch.AddContent(genai.Text(text))
	}
	resp, err := em.BatchEmbedContents(ctx, batch)
	if err != nil {
		return nil, err
	}
	if len(resp.Embeddings) != len(texts) {
		return nil, fmt.Errorf("expected %d embeddings, got %d", len(texts), len(resp.Embeddings))
	}
	embeddings := make([][]float32, len(texts))
	for i, emb := range resp.Embeddings {
		embeddings[i] = emb.Values
	}
	return embeddings, nil
}
