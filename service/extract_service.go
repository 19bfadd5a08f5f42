package service

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/edumate-ai/tutor-be/config"
	"github.com/edumate-ai/tutor-be/types"
)

// ProgressFunc reports granular extraction progress back to the pipeline.
type ProgressFunc func(current, total int, detail string)

// ExtractService turns a document structure into knowledge points by
// prompting the LLM section by section. Sections run in waves of bounded
// concurrency with a settle-all policy: one section's failure never aborts
// its wave-mates, and results are merged only after a wave has fully settled
// so no mutation crosses goroutines.
type ExtractService struct {
	ai  AIService
	cfg config.IngestConfig
}

func NewExtractService(ai AIService, cfg config.IngestConfig) *ExtractService {
	cfg.Normalize()
	return &ExtractService{
		ai:  ai,
		cfg: cfg,
	}
}

// ExtractSections extracts knowledge points for every extractable section.
// Returned warnings describe sections that failed without sinking the run.
// Only when every section fails is the first captured error returned.
// Cancellation is checked between waves; in-flight work finishes.
func (s *ExtractService) ExtractSections(ctx context.Context, pages []types.PageContent, structure *types.DocumentStructure, onProgress ProgressFunc) ([]types.KnowledgePoint, []string, error) {
	var extractable []int
	for i, sec := range structure.Sections {
		// Overview sections carry no extractable facts.
		if sec.ContentType == types.ContentTypeOverview {
			continue
		}
		extractable = append(extractable, i)
	}
	if len(extractable) == 0 {
		return nil, nil, nil
	}

	var (
		points    []types.KnowledgePoint
		index     = make(map[string]int)
		warnings  []string
		firstErr  error
		succeeded int
		done      int
	)
	total := len(extractable)

	type sectionResult struct {
		section int
		points  []types.KnowledgePoint
		err     error
	}

	for waveStart := 0; waveStart < total; waveStart += s.cfg.Concurrency {
		if ctx.Err() != nil {
			// Abort requested: no further waves are started.
			break
		}
		waveEnd := waveStart + s.cfg.Concurrency
		if waveEnd > total {
			waveEnd = total
		}

		results := make([]sectionResult, waveEnd-waveStart)
		var wg sync.WaitGroup
		for i := waveStart; i < waveEnd; i++ {
			wg.Add(1)
			go func(slot, secIdx int) {
				defer wg.Done()
				pts, err := s.extractSection(ctx, pages, structure, secIdx)
				results[slot] = sectionResult{section: secIdx, points: pts, err: err}
			}(i-waveStart, extractable[i])
		}
		wg.Wait()

		// The wave has settled; merge serially.
		for _, r := range results {
			done++
			sec := structure.Sections[r.section]
			if r.err != nil {
				if firstErr == nil {
					firstErr = r.err
				}
				warnings = append(warnings, fmt.Sprintf("section %q failed: %v", sec.Title, r.err))
			} else {
				succeeded++
				points = mergeKnowledgePoints(points, index, r.points)
			}
			if onProgress != nil {
				onProgress(done, total, sec.Title)
			}
		}
	}

	if succeeded == 0 && firstErr != nil {
		return nil, warnings, firstErr
	}
	return points, warnings, nil
}

func (s *ExtractService) extractSection(ctx context.Context, pages []types.PageContent, structure *types.DocumentStructure, secIdx int) ([]types.KnowledgePoint, error) {
	sec := structure.Sections[secIdx]
	slice := slicePages(pages, sec.StartPage-s.cfg.PageOverlap, sec.EndPage+s.cfg.PageOverlap)
	if len(slice) == 0 {
		return nil, fmt.Errorf("section %q covers no pages", sec.Title)
	}
	prev, next := neighborTitles(structure, secIdx)

	if len(slice) <= s.cfg.MaxSectionPages {
		return s.extractPageBatch(ctx, slice, structure, sec, prev, next)
	}

	// Oversized section: extract in overlapping page batches and merge with
	// title-based dedup, exactly like the cross-section merge.
	var out []types.KnowledgePoint
	index := make(map[string]int)
	step := s.cfg.BatchPageSize - s.cfg.BatchPageOverlap
	if step <= 0 {
		step = s.cfg.BatchPageSize
	}
	for start := 0; start < len(slice); start += step {
		end := start + s.cfg.BatchPageSize
		if end > len(slice) {
			end = len(slice)
		}
		pts, err := s.extractPageBatch(ctx, slice[start:end], structure, sec, prev, next)
		if err != nil {
			return nil, fmt.Errorf("pages %d-%d of section %q: %w", slice[start].Page, slice[end-1].Page, sec.Title, err)
		}
		out = mergeKnowledgePoints(out, index, pts)
		if end == len(slice) {
			break
		}
	}
	return out, nil
}

func (s *ExtractService) extractPageBatch(ctx context.Context, slice []types.PageContent, structure *types.DocumentStructure, sec types.SectionInfo, prev, next string) ([]types.KnowledgePoint, error) {
	prompt := buildExtractionPrompt(slice, structure, sec, prev, next)
	raw, err := s.ai.Generate(ctx, prompt, GenerateOptions{Temperature: 0.2, JSONResponse: true})
	if err != nil {
		return nil, err
	}

	var parsed struct {
		KnowledgePoints []rawKnowledgePoint `json:"knowledge_points"`
	}
	if err := decodeModelJSON(raw, &parsed); err != nil {
		return nil, err
	}

	points := make([]types.KnowledgePoint, 0, len(parsed.KnowledgePoints))
	for _, kp := range parsed.KnowledgePoints {
		point, ok := kp.validate()
		if !ok {
			// Invalid items are dropped, never fatal.
			continue
		}
		points = append(points, point)
	}
	return points, nil
}

type rawKnowledgePoint struct {
	Title       string   `json:"title"`
	Definition  string   `json:"definition"`
	KeyFormulas []string `json:"key_formulas"`
	KeyConcepts []string `json:"key_concepts"`
	Examples    []string `json:"examples"`
	SourcePages []int    `json:"source_pages"`
}

// validate enforces the item schema: title and definition are required,
// optional arrays are coerced to non-nil form only when present, and source
// pages are normalized (sorted, unique, defaulting to empty).
func (kp rawKnowledgePoint) validate() (types.KnowledgePoint, bool) {
	title := strings.TrimSpace(kp.Title)
	definition := strings.TrimSpace(kp.Definition)
	if title == "" || definition == "" {
		return types.KnowledgePoint{}, false
	}
	return types.KnowledgePoint{
		Title:       title,
		Definition:  definition,
		KeyFormulas: trimStrings(kp.KeyFormulas),
		KeyConcepts: trimStrings(kp.KeyConcepts),
		Examples:    trimStrings(kp.Examples),
		SourcePages: uniqueSortedPages(kp.SourcePages),
	}, true
}

// mergeKnowledgePoints appends src into dst with case-insensitive title
// dedup. On collision the longer definition wins and page sets are unioned.
// index maps lowercased titles to positions in dst and must be owned by the
// caller for the lifetime of dst.
func mergeKnowledgePoints(dst []types.KnowledgePoint, index map[string]int, src []types.KnowledgePoint) []types.KnowledgePoint {
	for _, kp := range src {
		key := strings.ToLower(strings.TrimSpace(kp.Title))
		pos, exists := index[key]
		if !exists {
			index[key] = len(dst)
			dst = append(dst, kp)
			continue
		}
		existing := &dst[pos]
		if len(kp.Definition) > len(existing.Definition) {
			existing.Definition = kp.Definition
		}
		existing.KeyFormulas = unionStrings(existing.KeyFormulas, kp.KeyFormulas)
		existing.KeyConcepts = unionStrings(existing.KeyConcepts, kp.KeyConcepts)
		existing.Examples = unionStrings(existing.Examples, kp.Examples)
		existing.SourcePages = uniqueSortedPages(append(existing.SourcePages, kp.SourcePages...))
	}
	return dst
}

// slicePages returns the pages whose number falls in [from, to], inclusive.
func slicePages(pages []types.PageContent, from, to int) []types.PageContent {
	var slice []types.PageContent
	for _, page := range pages {
		if page.Page >= from && page.Page <= to {
			slice = append(slice, page)
		}
	}
	return slice
}

func neighborTitles(structure *types.DocumentStructure, secIdx int) (prev, next string) {
	if secIdx > 0 {
		prev = structure.Sections[secIdx-1].Title
	}
	if secIdx < len(structure.Sections)-1 {
		next = structure.Sections[secIdx+1].Title
	}
	return prev, next
}

func buildExtractionPrompt(slice []types.PageContent, structure *types.DocumentStructure, sec types.SectionInfo, prev, next string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "You are extracting study material for the subject %q.\n", structure.Subject)
	fmt.Fprintf(&b, "Extract every distinct knowledge point (definitions, formulas, worked examples) from the section %q (content type: %s).\n", sec.Title, sec.ContentType)
	if prev != "" {
		fmt.Fprintf(&b, "The preceding section is %q.\n", prev)
	}
	if next != "" {
		fmt.Fprintf(&b, "The following section is %q.\n", next)
	}
	b.WriteString("Respond with JSON only, in this shape:\n")
	b.WriteString(`{"knowledge_points": [{"title": "...", "definition": "...", "key_formulas": [], "key_concepts": [], "examples": [], "source_pages": [1]}]}`)
	b.WriteString("\n\nSection pages:\n")
	for _, page := range slice {
		fmt.Fprintf(&b, "--- Page %d ---\n%s\n", page.Page, page.Text)
	}
	return b.String()
}

func trimStrings(in []string) []string {
	var out []string
	for _, s := range in {
		if trimmed := strings.TrimSpace(s); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

func unionStrings(dst, src []string) []string {
	seen := make(map[string]bool, len(dst))
	for _, s := range dst {
		seen[s] = true
	}
	for _, s := range src {
		if !seen[s] {
			seen[s] = true
			dst = append(dst, s)
		}
	}
	return dst
}
