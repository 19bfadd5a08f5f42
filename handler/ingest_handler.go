package handler

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/gin-gonic/gin"
	services "github.com/edumate-ai/tutor-be/service"
	"github.com/edumate-ai/tutor-be/types"
)

type IngestHandler struct {
	ingestService *services.IngestService
}

func NewIngestHandler(ingestService *services.IngestService) *IngestHandler {
	return &IngestHandler{
		ingestService: ingestService,
	}
}

// IngestDocumentHandler runs the ingestion pipeline and streams its events
// to the client as SSE messages. A client disconnect cancels the run.
func (h *IngestHandler) IngestDocumentHandler(c *gin.Context) {
	var req types.IngestRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, types.DataResponse{
			Status:  false,
			Message: "Invalid request",
		})
		return
	}
	if req.DocumentID == "" || len(req.Pages) == 0 {
		c.JSON(http.StatusBadRequest, types.DataResponse{
			Status:  false,
			Message: "document_id and pages are required",
		})
		return
	}

	ctx, cancel := context.WithCancel(c.Request.Context())
	defer cancel()

	eventChan := make(chan types.IngestEvent)
	errChan := make(chan error, 1)
	go func() {
		err := h.ingestService.Ingest(ctx, req, func(event types.IngestEvent) {
			select {
			case eventChan <- event:
			case <-ctx.Done():
			}
		})
		errChan <- err
	}()

	clientGone := c.Writer.CloseNotify()
	for {
		select {
		case <-clientGone:
			cancel()
			<-errChan
			return
		case event := <-eventChan:
			jsonEvent, err := json.Marshal(event)
			if err != nil {
				continue
			}
			c.SSEvent("message", string(jsonEvent))
			c.Writer.Flush()
		case <-errChan:
			// The pipeline already reported failures as error events.
			return
		}
	}
}
