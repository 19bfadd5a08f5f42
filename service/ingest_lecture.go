package service

import (
	"context"
	"fmt"
	"log"

	"github.com/edumate-ai/tutor-be/database"
	"github.com/edumate-ai/tutor-be/types"
)

func (s *IngestService) ingestLecture(ctx context.Context, req types.IngestRequest, send types.EventSender) error {
	send(types.StatusEvent(types.StageExtracting, "Analyzing document structure"))

	structure, err := s.structure.ExtractStructure(ctx, req.Pages)
	if err != nil {
		return s.failLLM(send, err, "structure analysis failed")
	}
	send(types.LogEvent(types.LogLevelInfo,
		fmt.Sprintf("Found %d sections (%s)", len(structure.Sections), structure.Subject)))

	points, warnings, err := s.extractor.ExtractSections(ctx, req.Pages, structure,
		func(current, total int, detail string) {
			send(types.ProgressEvent(current, total, detail))
		})
	emitWarnings(send, warnings)
	if err != nil {
		return s.failLLM(send, err, "knowledge extraction failed")
	}
	if len(points) == 0 {
		send(types.StatusEvent(types.StageComplete, "No knowledge points found in this document"))
		return nil
	}

	// Outline write is advisory; a metadata failure never aborts an
	// otherwise successful ingestion.
	if err := s.documents.SaveOutline(ctx, req.DocumentID, structure); err != nil {
		log.Printf("failed to save outline for document %s: %v", req.DocumentID, err)
		send(types.LogEvent(types.LogLevelWarning, "failed to save document outline"))
	}

	send(types.StatusEvent(types.StageDedup, "Checking for duplicates"))
	existing, err := s.chunks.FindExistingWithEmbeddings(ctx, req.DocumentID)
	if err != nil {
		send(types.ErrorEvent(types.ErrCodeDedupFetchFailed,
			fmt.Sprintf("failed to load existing knowledge points: %v", err)))
		return err
	}

	candidates := make([]DedupCandidate, len(points))
	for i, kp := range points {
		candidates[i] = DedupCandidate{
			Index:   i,
			Key:     kp.Title,
			Content: kp.Title + "\n" + kp.Definition,
		}
	}
	result, err := s.dedup.Filter(ctx, candidates, existing)
	if err != nil {
		return s.failLLM(send, err, "deduplication failed")
	}
	emitSkipCounts(send, result.Stats)
	if len(result.Survivors) == 0 {
		send(types.StatusEvent(types.StageComplete, "No new knowledge points to save"))
		return nil
	}

	for i, c := range result.Survivors {
		send(types.ItemEvent(i, "knowledge_point", points[c.Index]))
	}

	send(types.StatusEvent(types.StageSaving,
		fmt.Sprintf("Saving %d new knowledge points", len(result.Survivors))))

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
		batch := make([]*types.LectureChunk, 0, end-start)
		for i := start; i < end; i++ {
			kp := points[result.Survivors[i].Index]
			batch = append(batch, &types.LectureChunk{
				DocumentID:  req.DocumentID,
				Title:       kp.Title,
				Definition:  kp.Definition,
				KeyFormulas: kp.KeyFormulas,
				KeyConcepts: kp.KeyConcepts,
				Examples:    kp.Examples,
				SourcePages: kp.SourcePages,
				Embedding:   result.Embeddings[i],
			})
		}
		ids, err := s.chunks.InsertBatch(ctx, batch)
		if err != nil {
			send(types.ErrorEvent(types.ErrCodeSaveFailed,
				fmt.Sprintf("failed to save batch %d: %v", batchNum+1, err)))
			return err
		}
		saved += len(ids)
		batchNum++
		send(types.BatchSavedEvent(ids, batchNum, saved, total))

		for i, chunk := range batch {
			mirror = append(mirror, database.KnowledgeChunk{
				Content:    chunk.Title + "\n" + chunk.Definition,
				Title:      chunk.Title,
				DocumentID: req.DocumentID,
				Kind:       types.DocumentKindLecture,
				Pages:      chunk.SourcePages,
			})
			mirrorEmb = append(mirrorEmb, result.Embeddings[start+i])
		}
	}

	s.mirrorChunks(ctx, mirror, mirrorEmb, send)
	s.saveContentHash(ctx, req, send)

	send(types.StatusEvent(types.StageComplete,
		fmt.Sprintf("Saved %d new knowledge points", saved)))
	return nil
}
