package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/edumate-ai/tutor-be/database"
	"github.com/edumate-ai/tutor-be/types"
)

type SearchHandler struct {
	vectorDB database.VectorDatabase
}

func NewSearchHandler(vectorDB database.VectorDatabase) *SearchHandler {
	return &SearchHandler{
		vectorDB: vectorDB,
	}
}

type searchResult struct {
	Chunks []database.KnowledgeChunk `json:"chunks"`
	Scores []float32                 `json:"scores"`
}

func (h *SearchHandler) HandleSearch(c *gin.Context) {
	var req types.SearchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, types.DataResponse{
			Status:  false,
			Message: "Invalid request body",
		})
		return
	}
	if req.Query == "" {
		c.JSON(http.StatusBadRequest, types.DataResponse{
			Status:  false,
			Message: "query is required",
		})
		return
	}
	// Set default limit if not provided
	if req.Limit == 0 {
		req.Limit = 5
	}

	chunks, scores, err := h.vectorDB.SearchSimilar(c.Request.Context(), req.Query, req.DocumentID, req.Limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, types.DataResponse{
			Status:  false,
			Message: "Search failed: " + err.Error(),
		})
		return
	}
	c.JSON(http.StatusOK, types.DataResponse{
		Status: true,
		Data: searchResult{
			Chunks: chunks,
			Scores: scores,
		},
	})
}
