package service

import (
	"context"
	"fmt"

	"github.com/edumate-ai/tutor-be/database"
	"github.com/edumate-ai/tutor-be/types"
)

func (s *IngestService) ingestExam(ctx context.Context, req types.IngestRequest, send types.EventSender) error {
	send(types.StatusEvent(types.StageExtracting, "Extracting exam questions"))

	questions, warnings, err := s.questions.ParseExamQuestions(ctx, req.Pages,
		func(current, total int, detail string) {
			send(types.ProgressEvent(current, total, detail))
		})
	emitWarnings(send, warnings)
	if err != nil {
		return s.failLLM(send, err, "question extraction failed")
	}
	if len(questions) == 0 {
		send(types.StatusEvent(types.StageComplete, "No questions found in this document"))
		return nil
	}

	send(types.StatusEvent(types.StageDedup, "Checking for duplicates"))
	existing, err := s.questionRepo.FindExistingWithEmbeddings(ctx, req.DocumentID)
	if err != nil {
		send(types.ErrorEvent(types.ErrCodeDedupFetchFailed,
			fmt.Sprintf("failed to load existing questions: %v", err)))
		return err
	}

	candidates := make([]DedupCandidate, len(questions))
	for i, q := range questions {
		candidates[i] = DedupCandidate{
			Index:   i,
			Key:     q.Content,
			Content: q.Content,
		}
	}
	result, err := s.dedup.Filter(ctx, candidates, existing)
	if err != nil {
		return s.failLLM(send, err, "deduplication failed")
	}
	emitSkipCounts(send, result.Stats)
	if len(result.Survivors) == 0 {
		send(types.StatusEvent(types.StageComplete, "No new questions to save"))
		return nil
	}

	for i, c := range result.Survivors {
		send(types.ItemEvent(i, "question", questions[c.Index]))
	}

	send(types.StatusEvent(types.StageSaving,
		fmt.Sprintf("Saving %d new questions", len(result.Survivors))))

	total := len(result.Survivors)
	saved := 0
	batchNum := 0
	mirror := make([]database.KnowledgeChunk, 0, total)
	mirrorEmb := make([][]float32, 0, total)

	for start := 0; start < total; start += s.cfg.SaveBatchSize {
		if err := ctx.Err(); err != nil {
			send(types.ErrorEvent(types.ErrCodeSaveFailed, "ingestion canceled"))
			return err
		}
		end := start + s.cfg.SaveBatchSize
		if end > total {
			end = total
		}
		batch := make([]*types.ExamQuestion, 0, end-start)
		for i := start; i < end; i++ {
			q := questions[result.Survivors[i].Index]
			batch = append(batch, &types.ExamQuestion{
				PaperID:         req.DocumentID,
				QuestionNumber:  q.QuestionNumber,
				Content:         q.Content,
				Options:         q.Options,
				ReferenceAnswer: q.ReferenceAnswer,
				Explanation:     q.Explanation,
				Points:          q.Points,
				Difficulty:      q.Difficulty,
				SourcePage:      q.SourcePage,
				Embedding:       result.Embeddings[i],
			})
		}
		ids, err := s.questionRepo.InsertBatch(ctx, batch)
		if err != nil {
			send(types.ErrorEvent(types.ErrCodeSaveFailed,
				fmt.Sprintf("failed to save batch %d: %v", batchNum+1, err)))
			return err
		}
		saved += len(ids)
		batchNum++
		send(types.BatchSavedEvent(ids, batchNum, saved, total))

		for i, q := range batch {
			pages := []int{}
			if q.SourcePage > 0 {
				pages = append(pages, q.SourcePage)
			}
			mirror = append(mirror, database.KnowledgeChunk{
				Content:    q.Content,
				Title:      fmt.Sprintf("Question %d", q.QuestionNumber),
				DocumentID: req.DocumentID,
				Kind:       types.DocumentKindExam,
				Pages:      pages,
			})
			mirrorEmb = append(mirrorEmb, result.Embeddings[start+i])
		}
	}

	s.mirrorChunks(ctx, mirror, mirrorEmb, send)
	s.saveContentHash(ctx, req, send)

	send(types.StatusEvent(types.StageComplete,
		fmt.Sprintf("Saved %d new questions", saved)))
	return nil
}
