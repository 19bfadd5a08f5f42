package handler

import (
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/edumate-ai/tutor-be/database"
	"github.com/edumate-ai/tutor-be/repository"
	"github.com/edumate-ai/tutor-be/types"
)

type DocumentHandler struct {
	documents repository.DocumentRepo
	vectorDB  database.VectorDatabase
}

// NewDocumentHandler wires the document CRUD endpoints. vectorDB may be nil
// when no search mirror is configured; deletes then skip the mirror cleanup.
func NewDocumentHandler(documents repository.DocumentRepo, vectorDB database.VectorDatabase) *DocumentHandler {
	return &DocumentHandler{
		documents: documents,
		vectorDB:  vectorDB,
	}
}

func (h *DocumentHandler) HandleCreateDocument(c *gin.Context) {
	var doc types.TutorDocument
	if err := c.ShouldBindJSON(&doc); err != nil {
		c.JSON(http.StatusBadRequest, types.DataResponse{
			Status:  false,
			Message: "Invalid request body",
		})
		return
	}
	if doc.Title == "" {
		c.JSON(http.StatusBadRequest, types.DataResponse{
			Status:  false,
			Message: "title is required",
		})
		return
	}
	switch doc.Kind {
	case types.DocumentKindLecture, types.DocumentKindExam, types.DocumentKindAssignment:
	default:
		c.JSON(http.StatusBadRequest, types.DataResponse{
			Status:  false,
			Message: "kind must be lecture, exam or assignment",
		})
		return
	}

	if err := h.documents.CreateDocument(c.Request.Context(), &doc); err != nil {
		c.JSON(http.StatusInternalServerError, types.DataResponse{
			Status:  false,
			Message: err.Error(),
		})
		return
	}
	c.JSON(http.StatusOK, types.DataResponse{
		Status: true,
		Data:   doc,
	})
}

// HandleDeleteDocument removes the document record and clears its entries
// from the search mirror. Mirror cleanup is advisory, matching the pipeline
// writes that populated it.
func (h *DocumentHandler) HandleDeleteDocument(c *gin.Context) {
	id := c.Query("id")
	if id == "" {
		c.JSON(http.StatusBadRequest, types.DataResponse{
			Status:  false,
			Message: "id is required",
		})
		return
	}
	if err := h.documents.DeleteDocument(c.Request.Context(), id); err != nil {
		c.JSON(http.StatusNotFound, types.DataResponse{
			Status:  false,
			Message: "Document not found",
		})
		return
	}
	if h.vectorDB != nil {
		if err := h.vectorDB.DeleteByDocument(c.Request.Context(), id); err != nil {
			log.Printf("failed to clear search mirror for document %s: %v", id, err)
		}
	}
	c.JSON(http.StatusOK, types.DataResponse{
		Status: true,
	})
}

func (h *DocumentHandler) HandleGetDocument(c *gin.Context) {
	id := c.Query("id")
	if id == "" {
		c.JSON(http.StatusBadRequest, types.DataResponse{
			Status:  false,
			Message: "id is required",
		})
		return
	}
	doc, err := h.documents.GetDocument(c.Request.Context(), id)
	if err != nil {
		c.JSON(http.StatusNotFound, types.DataResponse{
			Status:  false,
			Message: "Document not found",
		})
		return
	}
	c.JSON(http.StatusOK, types.DataResponse{
		Status: true,
		Data:   doc,
	})
}
