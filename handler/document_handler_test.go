package handler

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/edumate-ai/tutor-be/database"
	"github.com/edumate-ai/tutor-be/types"
)

type fakeDocumentStore struct {
	documents map[string]*types.TutorDocument
}

func (f *fakeDocumentStore) CreateDocument(ctx context.Context, doc *types.TutorDocument) error {
	if doc.ID == "" {
		doc.ID = "doc-1"
	}
	f.documents[doc.ID] = doc
	return nil
}

func (f *fakeDocumentStore) GetDocument(ctx context.Context, id string) (*types.TutorDocument, error) {
	doc, ok := f.documents[id]
	if !ok {
		return nil, errors.New("not found")
	}
	return doc, nil
}

func (f *fakeDocumentStore) DeleteDocument(ctx context.Context, id string) error {
	if _, ok := f.documents[id]; !ok {
		return errors.New("not found")
	}
	delete(f.documents, id)
	return nil
}

func (f *fakeDocumentStore) SaveOutline(ctx context.Context, id string, outline *types.DocumentStructure) error {
	return nil
}

func (f *fakeDocumentStore) SaveContentHash(ctx context.Context, id string, hash string) error {
	return nil
}

type fakeMirror struct {
	deleted   []string
	deleteErr error
}

func (f *fakeMirror) BatchUpsertChunks(ctx context.Context, chunks []database.KnowledgeChunk, embeddings [][]float32) error {
	return nil
}

func (f *fakeMirror) SearchSimilar(ctx context.Context, query string, documentID string, limit int) ([]database.KnowledgeChunk, []float32, error) {
	return nil, nil, nil
}

func (f *fakeMirror) DeleteByDocument(ctx context.Context, documentID string) error {
	if f.deleteErr != nil {
		return f.deleteErr
	}
	f.deleted = append(f.deleted, documentID)
	return nil
}

func documentRouter(mirror database.VectorDatabase) (*gin.Engine, *fakeDocumentStore) {
	gin.SetMode(gin.TestMode)
	store := &fakeDocumentStore{documents: map[string]*types.TutorDocument{
		"doc-1": {ID: "doc-1", Title: "Geometry", Kind: types.DocumentKindLecture},
	}}
	h := NewDocumentHandler(store, mirror)
	router := gin.New()
	router.POST("/documents/delete", h.HandleDeleteDocument)
	return router, store
}

func TestHandleDeleteDocumentClearsMirror(t *testing.T) {
	mirror := &fakeMirror{}
	router, store := documentRouter(mirror)

	req := httptest.NewRequest(http.MethodPost, "/documents/delete?id=doc-1", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.NotContains(t, store.documents, "doc-1")
	assert.Equal(t, []string{"doc-1"}, mirror.deleted)
}

func TestHandleDeleteDocumentMirrorFailureIsAdvisory(t *testing.T) {
	mirror := &fakeMirror{deleteErr: errors.New("weaviate down")}
	router, store := documentRouter(mirror)

	req := httptest.NewRequest(http.MethodPost, "/documents/delete?id=doc-1", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.NotContains(t, store.documents, "doc-1")
}

func TestHandleDeleteDocumentNotFound(t *testing.T) {
	router, _ := documentRouter(nil)

	req := httptest.NewRequest(http.MethodPost, "/documents/delete?id=missing", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestHandleDeleteDocumentWithoutMirror(t *testing.T) {
	router, store := documentRouter(nil)

	req := httptest.NewRequest(http.MethodPost, "/documents/delete?id=doc-1", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.NotContains(t, store.documents, "doc-1")
}
