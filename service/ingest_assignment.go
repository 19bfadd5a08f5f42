package service

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/edumate-ai/tutor-be/database"
	"github.com/edumate-ai/tutor-be/types"
)

func (s *IngestService) ingestAssignment(ctx context.Context, req types.IngestRequest, send types.EventSender) error {
	send(types.StatusEvent(types.StageExtracting, "Extracting assignment items"))

	items, warnings, err := s.assignments.ParseAssignmentItems(ctx, req.Pages,
		func(current, total int, detail string) {
			send(types.ProgressEvent(current, total, detail))
		})
	emitWarnings(send, warnings)
	if err != nil {
		return s.failLLM(send, err, "assignment extraction failed")
	}
	if len(items) == 0 {
		send(types.StatusEvent(types.StageComplete, "No assignment items found in this document"))
		return nil
	}

	send(types.StatusEvent(types.StageDedup, "Checking for duplicates"))
	existing, err := s.assignmentRepo.FindExistingWithEmbeddings(ctx, req.DocumentID)
	if err != nil {
		send(types.ErrorEvent(types.ErrCodeDedupFetchFailed,
			fmt.Sprintf("failed to load existing assignment items: %v", err)))
		return err
	}

	candidates := make([]DedupCandidate, len(items))
	for i, item := range items {
		candidates[i] = DedupCandidate{
			Index:   i,
			Key:     item.Content,
			Content: item.Content,
		}
	}
	result, err := s.dedup.Filter(ctx, candidates, existing)
	if err != nil {
		return s.failLLM(send, err, "deduplication failed")
	}
	emitSkipCounts(send, result.Stats)
	if len(result.Survivors) == 0 {
		send(types.StatusEvent(types.StageComplete, "No new assignment items to save"))
		return nil
	}

	for i, c := range result.Survivors {
		send(types.ItemEvent(i, "assignment_item", items[c.Index]))
	}

	send(types.StatusEvent(types.StageSaving,
		fmt.Sprintf("Saving %d new assignment items", len(result.Survivors))))

	// Parent references are positional indices into the parsed item list.
	// Every survivor is assigned a synthetic ID up front; parents are then
	// resolved through that map, and insertion is ordered in passes so a
	// child is only written after its parent exists.
	inRun := make(map[int]bool, len(result.Survivors))
	assignedID := make(map[int]string, len(result.Survivors))
	embedding := make(map[int][]float32, len(result.Survivors))
	for slot, c := range result.Survivors {
		inRun[c.Index] = true
		assignedID[c.Index] = uuid.NewString()
		embedding[c.Index] = result.Embeddings[slot]
	}

	total := len(result.Survivors)
	saved := 0
	batchNum := 0
	persisted := make(map[int]bool, total)
	mirror := make([]database.KnowledgeChunk, 0, total)
	mirrorEmb := make([][]float32, 0, total)

	insertBatches := func(ready []DedupCandidate) error {
		for start := 0; start < len(ready); start += s.cfg.SaveBatchSize {
			if err := ctx.Err(); err != nil {
				send(types.ErrorEvent(types.ErrCodeSaveFailed, "ingestion canceled"))
				return err
			}
			end := start + s.cfg.SaveBatchSize
			if end > len(ready) {
				end = len(ready)
			}
			batch := make([]*types.AssignmentRecord, 0, end-start)
			for _, c := range ready[start:end] {
				item := items[c.Index]
				parentID := ""
				if item.ParentIndex != nil && inRun[*item.ParentIndex] {
					parentID = assignedID[*item.ParentIndex]
				}
				batch = append(batch, &types.AssignmentRecord{
					ID:           assignedID[c.Index],
					AssignmentID: req.DocumentID,
					ParentID:     parentID,
					OrderNum:     item.OrderNum,
					Content:      item.Content,
					Options:      item.Options,
					Answer:       item.Answer,
					Explanation:  item.Explanation,
					Score:        item.Score,
					Difficulty:   item.Difficulty,
					SourcePages:  item.SourcePages,
					Embedding:    embedding[c.Index],
				})
			}
			ids, err := s.assignmentRepo.InsertBatch(ctx, batch)
			if err != nil {
				send(types.ErrorEvent(types.ErrCodeSaveFailed,
					fmt.Sprintf("failed to save batch %d: %v", batchNum+1, err)))
				return err
			}
			for _, c := range ready[start:end] {
				persisted[c.Index] = true
			}
			saved += len(ids)
			batchNum++
			send(types.BatchSavedEvent(ids, batchNum, saved, total))

			for i, record := range batch {
				mirror = append(mirror, database.KnowledgeChunk{
					Content:    record.Content,
					Title:      fmt.Sprintf("Item %d", record.OrderNum),
					DocumentID: req.DocumentID,
					Kind:       types.DocumentKindAssignment,
					Pages:      record.SourcePages,
				})
				mirrorEmb = append(mirrorEmb, embedding[ready[start+i].Index])
			}
		}
		return nil
	}

	pending := result.Survivors
	for pass := 0; pass < s.cfg.MaxParentPasses && len(pending) > 0; pass++ {
		var ready, rest []DedupCandidate
		for _, c := range pending {
			item := items[c.Index]
			switch {
			case item.ParentIndex == nil:
				ready = append(ready, c)
			case !inRun[*item.ParentIndex]:
				// Parent was deduped away: the child is promoted to root.
				ready = append(ready, c)
			case persisted[*item.ParentIndex]:
				ready = append(ready, c)
			default:
				rest = append(rest, c)
			}
		}
		if len(ready) == 0 {
			break
		}
		if err := insertBatches(ready); err != nil {
			return err
		}
		pending = rest
	}

	// Anything still pending has a parent that never resolved (a cycle, or
	// the pass bound was hit). Promote to root instead of dropping.
	if len(pending) > 0 {
		send(types.LogEvent(types.LogLevelWarning,
			fmt.Sprintf("promoting %d item%s with unresolved parents to root", len(pending), pluralSuffix(len(pending)))))
		for _, c := range pending {
			items[c.Index].ParentIndex = nil
		}
		if err := insertBatches(pending); err != nil {
			return err
		}
	}

	s.mirrorChunks(ctx, mirror, mirrorEmb, send)
	s.saveContentHash(ctx, req, send)

	send(types.StatusEvent(types.StageComplete,
		fmt.Sprintf("Saved %d new assignment items", saved)))
	return nil
}
