package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/edumate-ai/tutor-be/types"
)

// StructureService splits a document's page text into logical sections via
// LLM structural analysis. The result is built once per document and treated
// as immutable by everything downstream.
type StructureService struct {
	ai AIService
}

func NewStructureService(ai AIService) *StructureService {
	return &StructureService{
		ai: ai,
	}
}

func (s *StructureService) ExtractStructure(ctx context.Context, pages []types.PageContent) (*types.DocumentStructure, error) {
	if len(pages) == 0 {
		return nil, fmt.Errorf("no pages to analyze")
	}

	prompt := buildStructurePrompt(pages)
	raw, err := s.ai.Generate(ctx, prompt, GenerateOptions{Temperature: 0.1, JSONResponse: true})
	if err != nil {
		return nil, fmt.Errorf("structure analysis failed: %w", err)
	}

	var parsed struct {
		Subject      string `json:"subject"`
		DocumentType string `json:"document_type"`
		Sections     []struct {
			Title       string `json:"title"`
			StartPage   int    `json:"start_page"`
			EndPage     int    `json:"end_page"`
			ContentType string `json:"content_type"`
		} `json:"sections"`
	}
	if err := decodeModelJSON(raw, &parsed); err != nil {
		return nil, err
	}

	lastPage := pages[len(pages)-1].Page
	structure := &types.DocumentStructure{
		Subject:      parsed.Subject,
		DocumentType: parsed.DocumentType,
	}
	for _, sec := range parsed.Sections {
		if strings.TrimSpace(sec.Title) == "" {
			continue
		}
		// Clamp model-reported ranges to the real page span.
		if sec.StartPage < 1 {
			sec.StartPage = 1
		}
		if sec.EndPage > lastPage {
			sec.EndPage = lastPage
		}
		if sec.EndPage < sec.StartPage {
			continue
		}
		if sec.ContentType == "" {
			sec.ContentType = types.ContentTypeMixed
		}
		structure.Sections = append(structure.Sections, types.SectionInfo{
			Title:       strings.TrimSpace(sec.Title),
			StartPage:   sec.StartPage,
			EndPage:     sec.EndPage,
			ContentType: sec.ContentType,
		})
	}
	if len(structure.Sections) == 0 {
		// Fall back to a single section over the whole document so a
		// structure the model could not discern still gets extracted.
		structure.Sections = []types.SectionInfo{
			{
				Title:       "Document",
				StartPage:   pages[0].Page,
				EndPage:     lastPage,
				ContentType: types.ContentTypeMixed,
			},
		}
	}
	return structure, nil
}

func buildStructurePrompt(pages []types.PageContent) string {
	var b strings.Builder
	b.WriteString("Analyze the structure of the following lecture document. ")
	b.WriteString("Identify the subject, the document type, and the logical sections with their page ranges.\n")
	b.WriteString("Respond with JSON only, in this shape:\n")
	b.WriteString(`{"subject": "...", "document_type": "...", "sections": [{"title": "...", "start_page": 1, "end_page": 3, "content_type": "definitions|examples|overview|mixed"}]}`)
	b.WriteString("\n\nDocument pages:\n")
	for _, page := range pages {
		// Structural analysis only needs the head of each page.
		text := page.Text
		if len(text) > 600 {
			text = text[:600]
		}
		fmt.Fprintf(&b, "--- Page %d ---\n%s\n", page.Page, text)
	}
	return b.String()
}
