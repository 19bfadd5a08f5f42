package service

import (
	"context"
	"errors"
	"testing"

	"github.com/sashabaranov/go-openai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/edumate-ai/tutor-be/types"
)

func TestExtractStructure(t *testing.T) {
	ai := &fakeAI{
		generateFunc: func(prompt string) (string, error) {
			return "```json\n" + `{"subject": "Calculus", "document_type": "lecture", "sections": [
				{"title": "Limits", "start_page": 1, "end_page": 3, "content_type": "definitions"},
				{"title": "Derivatives", "start_page": 4, "end_page": 6, "content_type": "mixed"}
			]}` + "\n```", nil
		},
	}
	svc := NewStructureService(ai)

	structure, err := svc.ExtractStructure(context.Background(), testPages(6))
	require.NoError(t, err)
	assert.Equal(t, "Calculus", structure.Subject)
	require.Len(t, structure.Sections, 2)
	assert.Equal(t, "Limits", structure.Sections[0].Title)
}

func TestExtractStructureClampsPageRanges(t *testing.T) {
	ai := &fakeAI{
		generateFunc: func(prompt string) (string, error) {
			return `{"subject": "Physics", "sections": [
				{"title": "Out of range", "start_page": -2, "end_page": 99},
				{"title": "", "start_page": 1, "end_page": 2},
				{"title": "Inverted", "start_page": 5, "end_page": 2, "content_type": "mixed"},
				{"title": "No type", "start_page": 2, "end_page": 3}
			]}`, nil
		},
	}
	svc := NewStructureService(ai)

	structure, err := svc.ExtractStructure(context.Background(), testPages(4))
	require.NoError(t, err)
	// The empty title and the inverted range are dropped.
	require.Len(t, structure.Sections, 2)
	assert.Equal(t, 1, structure.Sections[0].StartPage)
	assert.Equal(t, 4, structure.Sections[0].EndPage)
	assert.Equal(t, types.ContentTypeMixed, structure.Sections[1].ContentType)
}

func TestExtractStructureFallbackSection(t *testing.T) {
	ai := &fakeAI{
		generateFunc: func(prompt string) (string, error) {
			return `{"subject": "Unknown", "sections": []}`, nil
		},
	}
	svc := NewStructureService(ai)

	structure, err := svc.ExtractStructure(context.Background(), testPages(5))
	require.NoError(t, err)
	require.Len(t, structure.Sections, 1)
	assert.Equal(t, "Document", structure.Sections[0].Title)
	assert.Equal(t, 1, structure.Sections[0].StartPage)
	assert.Equal(t, 5, structure.Sections[0].EndPage)
}

func TestExtractStructureNoPages(t *testing.T) {
	svc := NewStructureService(&fakeAI{})
	_, err := svc.ExtractStructure(context.Background(), nil)
	require.Error(t, err)
}

func TestIsQuotaError(t *testing.T) {
	assert.False(t, IsQuotaError(nil))
	assert.False(t, IsQuotaError(errors.New("document failed to parse")))
	assert.True(t, IsQuotaError(errors.New("Rate limit exceeded, retry later")))
	assert.True(t, IsQuotaError(errors.New("RESOURCE_EXHAUSTED: out of tokens")))
	assert.True(t, IsQuotaError(&openai.APIError{HTTPStatusCode: 429, Message: "slow down"}))
	assert.False(t, IsQuotaError(&openai.APIError{HTTPStatusCode: 500, Message: "server blew up"}))
}
