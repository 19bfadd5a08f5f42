package service

import (
	"context"
	"errors"
	"strings"

	"github.com/sashabaranov/go-openai"
	"google.golang.org/api/googleapi"
)

// GenerateOptions tunes a single text-generation call.
type GenerateOptions struct {
	Temperature  float32
	JSONResponse bool
}

// AIService is the language-model client used by every extractor and by the
// dedup engine. Generate returns raw text which callers parse as JSON when
// JSONResponse was requested. EmbedBatch returns vectors index-aligned with
// the input texts; the embedding model is expected to L2-normalize them.
type AIService interface {
	Generate(ctx context.Context, prompt string, opts GenerateOptions) (string, error)
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
}

var quotaPatterns = []string{
	"quota",
	"rate limit",
	"rate_limit",
	"resource exhausted",
	"resource_exhausted",
	"too many requests",
	"insufficient_quota",
}

// IsQuotaError reports whether an LLM-layer failure is a rate-limit or quota
// condition the client should retry later, as opposed to a document that
// failed to parse.
func IsQuotaError(err error) bool {
	if err == nil {
		return false
	}
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		if apiErr.HTTPStatusCode == 429 {
			return true
		}
	}
	var gErr *googleapi.Error
	if errors.As(err, &gErr) {
		if gErr.Code == 429 {
			return true
		}
	}
	msg := strings.ToLower(err.Error())
	for _, pattern := range quotaPatterns {
		if strings.Contains(msg, pattern) {
			return true
		}
	}
	return false
}
