package service

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/edumate-ai/tutor-be/config"
	"github.com/edumate-ai/tutor-be/types"
)

// QuestionService extracts discrete exam questions from page text. Pages
// are processed in overlapping windows, windows in waves of bounded
// concurrency with the same settle-all policy as section extraction.
type QuestionService struct {
	ai  AIService
	cfg config.IngestConfig
}

func NewQuestionService(ai AIService, cfg config.IngestConfig) *QuestionService {
	cfg.Normalize()
	return &QuestionService{
		ai:  ai,
		cfg: cfg,
	}
}

func (s *QuestionService) ParseExamQuestions(ctx context.Context, pages []types.PageContent, onProgress ProgressFunc) ([]types.ParsedQuestion, []string, error) {
	windows := pageWindows(pages, s.cfg.BatchPageSize, s.cfg.BatchPageOverlap)
	if len(windows) == 0 {
		return nil, nil, nil
	}

	type windowResult struct {
		questions []types.ParsedQuestion
		err       error
	}

	var (
		questions []types.ParsedQuestion
		seen      = make(map[string]bool)
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
				qs, err := s.parseWindow(ctx, window)
				results[slot] = windowResult{questions: qs, err: err}
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
				for _, q := range r.questions {
					key := normalizeContent(q.Content)
					if seen[key] {
						// Window overlap re-extracts boundary questions.
						continue
					}
					seen[key] = true
					questions = append(questions, q)
				}
			}
			if onProgress != nil {
				onProgress(done, total, fmt.Sprintf("pages %d-%d", window[0].Page, window[len(window)-1].Page))
			}
		}
	}

	if succeeded == 0 && firstErr != nil {
		return nil, warnings, firstErr
	}
	return questions, warnings, nil
}

func (s *QuestionService) parseWindow(ctx context.Context, window []types.PageContent) ([]types.ParsedQuestion, error) {
	prompt := buildExamPrompt(window)
	raw, err := s.ai.Generate(ctx, prompt, GenerateOptions{Temperature: 0.1, JSONResponse: true})
	if err != nil {
		return nil, err
	}

	var parsed struct {
		Questions []rawQuestion `json:"questions"`
	}
	if err := decodeModelJSON(raw, &parsed); err != nil {
		return nil, err
	}

	questions := make([]types.ParsedQuestion, 0, len(parsed.Questions))
	for _, q := range parsed.Questions {
		question, ok := q.validate()
		if !ok {
			continue
		}
		questions = append(questions, question)
	}
	return questions, nil
}

type rawQuestion struct {
	QuestionNumber  int      `json:"question_number"`
	Content         string   `json:"content"`
	Options         []string `json:"options"`
	ReferenceAnswer string   `json:"reference_answer"`
	Explanation     string   `json:"explanation"`
	Points          float64  `json:"points"`
	Difficulty      string   `json:"difficulty"`
	SourcePage      int      `json:"source_page"`
}

func (q rawQuestion) validate() (types.ParsedQuestion, bool) {
	content := strings.TrimSpace(q.Content)
	if content == "" {
		return types.ParsedQuestion{}, false
	}
	if q.Points < 0 {
		q.Points = 0
	}
	if q.SourcePage < 0 {
		q.SourcePage = 0
	}
	return types.ParsedQuestion{
		QuestionNumber:  q.QuestionNumber,
		Content:         content,
		Options:         trimStrings(q.Options),
		ReferenceAnswer: strings.TrimSpace(q.ReferenceAnswer),
		Explanation:     strings.TrimSpace(q.Explanation),
		Points:          q.Points,
		Difficulty:      strings.TrimSpace(q.Difficulty),
		SourcePage:      q.SourcePage,
	}, true
}

// pageWindows splits pages into overlapping windows of at most size pages.
func pageWindows(pages []types.PageContent, size, overlap int) [][]types.PageContent {
	if len(pages) == 0 {
		return nil
	}
	if size <= 0 || len(pages) <= size {
		return [][]types.PageContent{pages}
	}
	step := size - overlap
	if step <= 0 {
		step = size
	}
	var windows [][]types.PageContent
	for start := 0; start < len(pages); start += step {
		end := start + size
		if end > len(pages) {
			end = len(pages)
		}
		windows = append(windows, pages[start:end])
		if end == len(pages) {
			break
		}
	}
	return windows
}

func buildExamPrompt(window []types.PageContent) string {
	var b strings.Builder
	b.WriteString("Extract every exam question from the following pages, including multiple choice options, reference answers, point values and difficulty when present.\n")
	b.WriteString("Respond with JSON only, in this shape:\n")
	b.WriteString(`{"questions": [{"question_number": 1, "content": "...", "options": [], "reference_answer": "...", "explanation": "...", "points": 2, "difficulty": "easy|medium|hard", "source_page": 1}]}`)
	b.WriteString("\n\nPages:\n")
	for _, page := range window {
		fmt.Fprintf(&b, "--- Page %d ---\n%s\n", page.Page, page.Text)
	}
	return b.String()
}
