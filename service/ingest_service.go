package service

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log"

	"github.com/edumate-ai/tutor-be/config"
	"github.com/edumate-ai/tutor-be/database"
	"github.com/edumate-ai/tutor-be/repository"
	"github.com/edumate-ai/tutor-be/types"
)

// IngestService orchestrates the ingestion pipelines. All collaborators are
// injected at construction; nothing is resolved lazily or held in package
// state. The vector mirror may be nil, in which case mirroring is skipped.
type IngestService struct {
	structure   *StructureService
	extractor   *ExtractService
	questions   *QuestionService
	assignments *AssignmentService
	dedup       *DedupService

	documents      repository.DocumentRepo
	chunks         repository.ChunkRepo
	questionRepo   repository.QuestionRepo
	assignmentRepo repository.AssignmentRepo
	vector         database.VectorDatabase

	cfg config.IngestConfig
}

func NewIngestService(
	ai AIService,
	documents repository.DocumentRepo,
	chunks repository.ChunkRepo,
	questionRepo repository.QuestionRepo,
	assignmentRepo repository.AssignmentRepo,
	vector database.VectorDatabase,
	cfg config.IngestConfig,
) *IngestService {
	cfg.Normalize()
	return &IngestService{
		structure:      NewStructureService(ai),
		extractor:      NewExtractService(ai, cfg),
		questions:      NewQuestionService(ai, cfg),
		assignments:    NewAssignmentService(ai, cfg),
		dedup:          NewDedupService(ai, cfg.SimilarityThreshold),
		documents:      documents,
		chunks:         chunks,
		questionRepo:   questionRepo,
		assignmentRepo: assignmentRepo,
		vector:         vector,
		cfg:            cfg,
	}
}

// Ingest runs the pipeline matching the request kind. Exactly one terminal
// event (complete or error) is emitted per run; the returned error mirrors
// the error event for callers that log.
func (s *IngestService) Ingest(ctx context.Context, req types.IngestRequest, send types.EventSender) error {
	switch req.Kind {
	case types.DocumentKindLecture:
		return s.ingestLecture(ctx, req, send)
	case types.DocumentKindExam:
		return s.ingestExam(ctx, req, send)
	case types.DocumentKindAssignment:
		return s.ingestAssignment(ctx, req, send)
	default:
		err := fmt.Errorf("unknown document kind: %q", req.Kind)
		send(types.ErrorEvent(types.ErrCodeExtractionFailed, err.Error()))
		return err
	}
}

// failLLM classifies an LLM-layer failure into quota versus generic
// extraction failure and emits the matching error event.
func (s *IngestService) failLLM(send types.EventSender, err error, context string) error {
	code := types.ErrCodeExtractionFailed
	if IsQuotaError(err) {
		code = types.ErrCodeQuotaExceeded
	}
	send(types.ErrorEvent(code, fmt.Sprintf("%s: %v", context, err)))
	return err
}

func emitWarnings(send types.EventSender, warnings []string) {
	for _, w := range warnings {
		send(types.LogEvent(types.LogLevelWarning, w))
	}
}

func emitSkipCounts(send types.EventSender, stats DedupStats) {
	if stats.ContentMatches > 0 {
		send(types.LogEvent(types.LogLevelInfo,
			fmt.Sprintf("%d duplicate%s skipped (content match)", stats.ContentMatches, pluralSuffix(stats.ContentMatches))))
	}
	if stats.SimilarityMatches > 0 {
		send(types.LogEvent(types.LogLevelInfo,
			fmt.Sprintf("%d duplicate%s skipped (semantic match)", stats.SimilarityMatches, pluralSuffix(stats.SimilarityMatches))))
	}
}

func pluralSuffix(n int) string {
	if n == 1 {
		return ""
	}
	return "s"
}

// saveContentHash is advisory: a failed write never fails a run.
func (s *IngestService) saveContentHash(ctx context.Context, req types.IngestRequest, send types.EventSender) {
	if err := s.documents.SaveContentHash(ctx, req.DocumentID, pagesHash(req.Pages)); err != nil {
		log.Printf("failed to save content hash for document %s: %v", req.DocumentID, err)
		send(types.LogEvent(types.LogLevelWarning, "failed to record document content hash"))
	}
}

// mirrorChunks pushes saved items into the search index. Also advisory.
func (s *IngestService) mirrorChunks(ctx context.Context, chunks []database.KnowledgeChunk, embeddings [][]float32, send types.EventSender) {
	if s.vector == nil || len(chunks) == 0 {
		return
	}
	if err := s.vector.BatchUpsertChunks(ctx, chunks, embeddings); err != nil {
		log.Printf("failed to mirror %d chunks into search index: %v", len(chunks), err)
		send(types.LogEvent(types.LogLevelWarning, "failed to update search index"))
	}
}

func pagesHash(pages []types.PageContent) string {
	h := sha256.New()
	for _, page := range pages {
		fmt.Fprintf(h, "%d\x00%s\x00", page.Page, page.Text)
	}
	return hex.EncodeToString(h.Sum(nil))
}
