package service

import (
	"context"
	"errors"

	"github.com/sashabaranov/go-openai"
)

type OpenAIService struct {
	client         *openai.Client
	model          string
	embeddingModel string
}

func NewOpenAIService(baseURL string, apiKey, model, embeddingModel string) *OpenAIService {
	config := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		config.BaseURL = baseURL // Set this to your local LLM server URL
	}
	client := openai.NewClientWithConfig(config)
	return &OpenAIService{
		client:         client,
		model:          model,
		embeddingModel: embeddingModel,
	}
}

func (s *OpenAIService) Generate(ctx context.Context, prompt string, opts GenerateOptions) (string, error) {
	req := openai.ChatCompletionRequest{
		Model: s.model,
		Messages: []openai.ChatCompletionMessage{
			{
				Role:    openai.ChatMessageRoleUser,
				Content: prompt,
			},
		},
		Temperature: opts.Temperature,
	}
	if opts.JSONResponse {
		req.ResponseFormat = &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		}
	}

	resp, err := s.client.CreateChatCompletion(ctx, req)
	if err != nil {
		return "", err
	}
	if len(resp.Choices) == 0 {
		return "", errors.New("no response generated")
	}
	return resp.Choices[0].Message.Content, nil
}

// EmbedBatch issues a single bulk call; the response is re-ordered by the
// API's index field so outputs stay aligned with inputs.
func (s *OpenAIService) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	resp, err := s.client.CreateEmbeddings(ctx, openai.EmbeddingRequest{
		Input: texts,
		Model: openai.EmbeddingModel(s.embeddingModel),
	})
	if err != nil {
		return nil, err
	}
	if len(resp.Data) != len(texts) {
		return nil, errors.New("embedding count does not match input count")
	}
	embeddings := make([][]float32, len(texts))
	for _, data := range resp.Data {
		if data.Index < 0 || data.Index >= len(embeddings) {
			return nil, errors.New("embedding index out of range")
		}
		embeddings[data.Index] = data.Embedding
	}
	return embeddings, nil
}
