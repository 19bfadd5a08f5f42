package service

import (
	"context"
	"fmt"
	"sync"

	"github.com/edumate-ai/tutor-be/database"
	"github.com/edumate-ai/tutor-be/types"
)

// fakeAI is a scriptable AIService. Generate and EmbedBatch delegate to the
// configured funcs; calls are recorded under a mutex because extraction runs
// them from wave goroutines.
type fakeAI struct {
	mu            sync.Mutex
	generateFunc  func(prompt string) (string, error)
	embedFunc     func(texts []string) ([][]float32, error)
	generateCalls []string
	embedCalls    [][]string
}

func (f *fakeAI) Generate(ctx context.Context, prompt string, opts GenerateOptions) (string, error) {
	f.mu.Lock()
	f.generateCalls = append(f.generateCalls, prompt)
	f.mu.Unlock()
	if f.generateFunc == nil {
		return "{}", nil
	}
	return f.generateFunc(prompt)
}

func (f *fakeAI) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	f.mu.Lock()
	f.embedCalls = append(f.embedCalls, texts)
	f.mu.Unlock()
	if f.embedFunc == nil {
		// One distinct unit vector per text, orthogonal to everything the
		// corpus fixtures use.
		out := make([][]float32, len(texts))
		for i := range texts {
			out[i] = []float32{0, 0, 1}
		}
		return out, nil
	}
	return f.embedFunc(texts)
}

func (f *fakeAI) embedCallCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.embedCalls)
}

type fakeDocumentRepo struct {
	outlines   map[string]*types.DocumentStructure
	hashes     map[string]string
	outlineErr error
	hashErr    error
	documents  map[string]*types.TutorDocument
	createErr  error
}

func newFakeDocumentRepo() *fakeDocumentRepo {
	return &fakeDocumentRepo{
		outlines:  make(map[string]*types.DocumentStructure),
		hashes:    make(map[string]string),
		documents: make(map[string]*types.TutorDocument),
	}
}

func (f *fakeDocumentRepo) CreateDocument(ctx context.Context, doc *types.TutorDocument) error {
	if f.createErr != nil {
		return f.createErr
	}
	if doc.ID == "" {
		doc.ID = fmt.Sprintf("doc-%d", len(f.documents)+1)
	}
	f.documents[doc.ID] = doc
	return nil
}

func (f *fakeDocumentRepo) GetDocument(ctx context.Context, id string) (*types.TutorDocument, error) {
	doc, ok := f.documents[id]
	if !ok {
		return nil, fmt.Errorf("document %s not found", id)
	}
	return doc, nil
}

func (f *fakeDocumentRepo) DeleteDocument(ctx context.Context, id string) error {
	if _, ok := f.documents[id]; !ok {
		return fmt.Errorf("document %s not found", id)
	}
	delete(f.documents, id)
	return nil
}

func (f *fakeDocumentRepo) SaveOutline(ctx context.Context, id string, outline *types.DocumentStructure) error {
	if f.outlineErr != nil {
		return f.outlineErr
	}
	f.outlines[id] = outline
	return nil
}

func (f *fakeDocumentRepo) SaveContentHash(ctx context.Context, id string, hash string) error {
	if f.hashErr != nil {
		return f.hashErr
	}
	f.hashes[id] = hash
	return nil
}

type fakeChunkRepo struct {
	existing  []types.StoredRecord
	fetchErr  error
	insertErr error
	batches   [][]*types.LectureChunk
	nextID    int
}

func (f *fakeChunkRepo) FindExistingWithEmbeddings(ctx context.Context, documentID string) ([]types.StoredRecord, error) {
	if f.fetchErr != nil {
		return nil, f.fetchErr
	}
	return f.existing, nil
}

func (f *fakeChunkRepo) InsertBatch(ctx context.Context, chunks []*types.LectureChunk) ([]string, error) {
	if f.insertErr != nil {
		return nil, f.insertErr
	}
	ids := make([]string, len(chunks))
	for i, chunk := range chunks {
		if chunk.ID == "" {
			f.nextID++
			chunk.ID = fmt.Sprintf("chunk-%d", f.nextID)
		}
		ids[i] = chunk.ID
	}
	f.batches = append(f.batches, chunks)
	return ids, nil
}

func (f *fakeChunkRepo) FindByDocumentID(ctx context.Context, documentID string) ([]types.LectureChunk, error) {
	var out []types.LectureChunk
	for _, batch := range f.batches {
		for _, chunk := range batch {
			out = append(out, *chunk)
		}
	}
	return out, nil
}

func (f *fakeChunkRepo) saved() []*types.LectureChunk {
	var out []*types.LectureChunk
	for _, batch := range f.batches {
		out = append(out, batch...)
	}
	return out
}

type fakeQuestionRepo struct {
	existing  []types.StoredRecord
	fetchErr  error
	insertErr error
	batches   [][]*types.ExamQuestion
	nextID    int
}

func (f *fakeQuestionRepo) FindExistingWithEmbeddings(ctx context.Context, paperID string) ([]types.StoredRecord, error) {
	if f.fetchErr != nil {
		return nil, f.fetchErr
	}
	return f.existing, nil
}

func (f *fakeQuestionRepo) InsertBatch(ctx context.Context, questions []*types.ExamQuestion) ([]string, error) {
	if f.insertErr != nil {
		return nil, f.insertErr
	}
	ids := make([]string, len(questions))
	for i, q := range questions {
		if q.ID == "" {
			f.nextID++
			q.ID = fmt.Sprintf("question-%d", f.nextID)
		}
		ids[i] = q.ID
	}
	f.batches = append(f.batches, questions)
	return ids, nil
}

func (f *fakeQuestionRepo) FindByPaperID(ctx context.Context, paperID string) ([]types.ExamQuestion, error) {
	var out []types.ExamQuestion
	for _, batch := range f.batches {
		for _, q := range batch {
			out = append(out, *q)
		}
	}
	return out, nil
}

type fakeAssignmentRepo struct {
	existing  []types.StoredRecord
	fetchErr  error
	insertErr error
	batches   [][]*types.AssignmentRecord
	nextID    int
}

func (f *fakeAssignmentRepo) FindExistingWithEmbeddings(ctx context.Context, assignmentID string) ([]types.StoredRecord, error) {
	if f.fetchErr != nil {
		return nil, f.fetchErr
	}
	return f.existing, nil
}

func (f *fakeAssignmentRepo) InsertBatch(ctx context.Context, items []*types.AssignmentRecord) ([]string, error) {
	if f.insertErr != nil {
		return nil, f.insertErr
	}
	ids := make([]string, len(items))
	for i, item := range items {
		if item.ID == "" {
			f.nextID++
			item.ID = fmt.Sprintf("item-%d", f.nextID)
		}
		ids[i] = item.ID
	}
	f.batches = append(f.batches, items)
	return ids, nil
}

func (f *fakeAssignmentRepo) FindByAssignmentID(ctx context.Context, assignmentID string) ([]types.AssignmentRecord, error) {
	var out []types.AssignmentRecord
	for _, batch := range f.batches {
		for _, item := range batch {
			out = append(out, *item)
		}
	}
	return out, nil
}

func (f *fakeAssignmentRepo) saved() []*types.AssignmentRecord {
	var out []*types.AssignmentRecord
	for _, batch := range f.batches {
		out = append(out, batch...)
	}
	return out
}

type fakeVectorDB struct {
	upserted  []database.KnowledgeChunk
	upsertErr error
}

func (f *fakeVectorDB) BatchUpsertChunks(ctx context.Context, chunks []database.KnowledgeChunk, embeddings [][]float32) error {
	if f.upsertErr != nil {
		return f.upsertErr
	}
	f.upserted = append(f.upserted, chunks...)
	return nil
}

func (f *fakeVectorDB) SearchSimilar(ctx context.Context, query string, documentID string, limit int) ([]database.KnowledgeChunk, []float32, error) {
	return nil, nil, nil
}

func (f *fakeVectorDB) DeleteByDocument(ctx context.Context, documentID string) error {
	return nil
}

// eventRecorder collects pipeline events for assertions.
type eventRecorder struct {
	mu     sync.Mutex
	events []types.IngestEvent
}

func (r *eventRecorder) send(event types.IngestEvent) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
}

func (r *eventRecorder) byType(eventType string) []types.IngestEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []types.IngestEvent
	for _, e := range r.events {
		if e.Type == eventType {
			out = append(out, e)
		}
	}
	return out
}

func (r *eventRecorder) lastStatus() (types.StatusPayload, bool) {
	statuses := r.byType(types.EventStatus)
	if len(statuses) == 0 {
		return types.StatusPayload{}, false
	}
	payload, ok := statuses[len(statuses)-1].Payload.(types.StatusPayload)
	return payload, ok
}

func (r *eventRecorder) logMessages() []string {
	var out []string
	for _, e := range r.byType(types.EventLog) {
		if payload, ok := e.Payload.(types.LogPayload); ok {
			out = append(out, payload.Message)
		}
	}
	return out
}
