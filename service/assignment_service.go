package service

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/edumate-ai/tutor-be/config"
	"github.com/edumate-ai/tutor-be/types"
)

// AssignmentService extracts assignment items, which unlike exam questions
// may nest: an item can declare a parent by position within its own parsed
// window. When window results are appended to the global candidate list the
// positional references are rebased onto global indices, so downstream code
// sees one coherent index space.
type AssignmentService struct {
	ai  AIService
	cfg config.IngestConfig
}

func NewAssignmentService(ai AIService, cfg config.IngestConfig) *AssignmentService {
	cfg.Normalize()
	return &AssignmentService{
		ai:  ai,
		cfg: cfg,
	}
}

func (s *AssignmentService) ParseAssignmentItems(ctx context.Context, pages []types.PageContent, onProgress ProgressFunc) ([]types.AssignmentItem, []string, error) {
	windows := pageWindows(pages, s.cfg.BatchPageSize, s.cfg.BatchPageOverlap)
	if len(windows) == 0 {
		return nil, nil, nil
	}

	type windowResult struct {
		items []types.AssignmentItem
		err   error
	}

	var (
		items     []types.AssignmentItem
		warnings  []string
		firstErr  error
		succeeded int
		done      int
	)
	total := len(windows)

	for waveStart := 0; waveStart < total; waveStart += s.cfg.Concurrency {
		if ctx.Err() != nil {
			break
		}
		waveEnd := waveStart + s.cfg.Concurrency
		if waveEnd > total {
			waveEnd = total
		}

		results := make([]windowResult, waveEnd-waveStart)
		var wg sync.WaitGroup
		for i := waveStart; i < waveEnd; i++ {
			wg.Add(1)
			go func(slot int, window []types.PageContent) {
				defer wg.Done()
				parsed, err := s.parseWindow(ctx, window)
				results[slot] = windowResult{items: parsed, err: err}
			}(i-waveStart, windows[i])
		}
		wg.Wait()

		for slot, r := range results {
			done++
			window := windows[waveStart+slot]
			if r.err != nil {
				if firstErr == nil {
					firstErr = r.err
				}
				warnings = append(warnings, fmt.Sprintf("pages %d-%d failed: %v", window[0].Page, window[len(window)-1].Page, r.err))
			} else {
				succeeded++
				items = appendRebased(items, r.items)
			}
			if onProgress != nil {
				onProgress(done, total, fmt.Sprintf("pages %d-%d", window[0].Page, window[len(window)-1].Page))
			}
		}
	}

	if succeeded == 0 && firstErr != nil {
		return nil, warnings, firstErr
	}
	return collapseDuplicateItems(items), warnings, nil
}

// appendRebased appends a window's items to the global list, shifting each
// positional parent reference by the window's offset. References outside the
// window are dropped: the item becomes a root rather than pointing at an
// arbitrary sibling.
func appendRebased(dst, src []types.AssignmentItem) []types.AssignmentItem {
	offset := len(dst)
	for _, item := range src {
		if item.ParentIndex != nil {
			local := *item.ParentIndex
			if local < 0 || local >= len(src) {
				item.ParentIndex = nil
			} else {
				global := offset + local
				item.ParentIndex = &global
			}
		}
		dst = append(dst, item)
	}
	return dst
}

// collapseDuplicateItems drops items whose normalized content already
// appeared earlier in the run. Overlapping windows re-extract the items on
// their shared boundary pages, so cross-window duplicates are expected.
// Parent references are remapped onto the surviving copy; a reference that
// would end up pointing at the item itself is cleared instead.
func collapseDuplicateItems(items []types.AssignmentItem) []types.AssignmentItem {
	seen := make(map[string]int, len(items))
	remap := make([]int, len(items))
	kept := make([]types.AssignmentItem, 0, len(items))
	for i, item := range items {
		key := strings.ToLower(strings.TrimSpace(item.Content))
		if at, ok := seen[key]; ok {
			remap[i] = at
			continue
		}
		seen[key] = len(kept)
		remap[i] = len(kept)
		kept = append(kept, item)
	}
	if len(kept) == len(items) {
		return kept
	}
	for i := range kept {
		if kept[i].ParentIndex == nil {
			continue
		}
		mapped := remap[*kept[i].ParentIndex]
		if mapped == i {
			kept[i].ParentIndex = nil
			continue
		}
		kept[i].ParentIndex = &mapped
	}
	return kept
}

func (s *AssignmentService) parseWindow(ctx context.Context, window []types.PageContent) ([]types.AssignmentItem, error) {
	prompt := buildAssignmentPrompt(window)
	raw, err := s.ai.Generate(ctx, prompt, GenerateOptions{Temperature: 0.1, JSONResponse: true})
	if err != nil {
		return nil, err
	}

	var parsed struct {
		Items []rawAssignmentItem `json:"items"`
	}
	if err := decodeModelJSON(raw, &parsed); err != nil {
		return nil, err
	}

	items := make([]types.AssignmentItem, 0, len(parsed.Items))
	remap := make([]int, len(parsed.Items))
	for i, raw := range parsed.Items {
		item, ok := raw.validate()
		if !ok {
			remap[i] = -1
			continue
		}
		remap[i] = len(items)
		items = append(items, item)
	}

	// The model's parent references are positions in ITS items array.
	// Dropping an invalid item shifts every later position, so surviving
	// references are remapped onto the filtered slice. A reference to a
	// dropped or out-of-range position clears to a root.
	for i := range items {
		if items[i].ParentIndex == nil {
			continue
		}
		local := *items[i].ParentIndex
		if local < 0 || local >= len(remap) || remap[local] < 0 {
			items[i].ParentIndex = nil
			continue
		}
		mapped := remap[local]
		items[i].ParentIndex = &mapped
	}
	return items, nil
}

type rawAssignmentItem struct {
	OrderNum    int      `json:"order_num"`
	Content     string   `json:"content"`
	Options     []string `json:"options"`
	Answer      string   `json:"answer"`
	Explanation string   `json:"explanation"`
	Score       float64  `json:"score"`
	Difficulty  string   `json:"difficulty"`
	SourcePages []int    `json:"source_pages"`
	ParentIndex *int     `json:"parent_index"`
}

func (item rawAssignmentItem) validate() (types.AssignmentItem, bool) {
	content := strings.TrimSpace(item.Content)
	if content == "" {
		return types.AssignmentItem{}, false
	}
	if item.Score < 0 {
		item.Score = 0
	}
	return types.AssignmentItem{
		OrderNum:    item.OrderNum,
		Content:     content,
		Options:     trimStrings(item.Options),
		Answer:      strings.TrimSpace(item.Answer),
		Explanation: strings.TrimSpace(item.Explanation),
		Score:       item.Score,
		Difficulty:  strings.TrimSpace(item.Difficulty),
		SourcePages: uniqueSortedPages(item.SourcePages),
		ParentIndex: item.ParentIndex,
	}, true
}

func buildAssignmentPrompt(window []types.PageContent) string {
	var b strings.Builder
	b.WriteString("Extract every assignment question from the following pages. Questions may contain sub-questions (e.g. question 1 containing 1a and 1b).\n")
	b.WriteString("For a sub-question, set parent_index to the 0-based position of its parent within your returned items array; omit it for top-level questions.\n")
	b.WriteString("Respond with JSON only, in this shape:\n")
	b.WriteString(`{"items": [{"order_num": 1, "content": "...", "options": [], "answer": "...", "explanation": "...", "score": 5, "difficulty": "easy|medium|hard", "source_pages": [1], "parent_index": null}]}`)
	b.WriteString("\n\nPages:\n")
	for _, page := range window {
		fmt.Fprintf(&b, "--- Page %d ---\n%s\n", page.Page, page.Text)
	}
	return b.String()
}
