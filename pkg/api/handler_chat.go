package api

import (
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/fusionworks/fusionai/pkg/workflow"
)

// chatStreamHandler handles POST /api/chat/stream.
//
// 1. Bind and normalize the request body.
// 2. Start a workflow bound to the request context, so a client disconnect
//    cancels the engine.
// 3. Forward every workflow event as one SSE event until the stream closes.
func (s *Server) chatStreamHandler(c *gin.Context) {
	var req ChatStreamRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	ch, err := s.workflows.Run(c.Request.Context(), toLLMMessages(req.Messages), workflow.Options{
		Debug:                req.Debug,
		DeepThinking:         req.DeepThinkingMode,
		SearchBeforePlanning: req.SearchBeforePlanning,
	})
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	h := c.Writer.Header()
	h.Set("Content-Type", "text/event-stream")
	h.Set("Cache-Control", "no-cache")
	h.Set("Connection", "keep-alive")
	h.Set("X-Accel-Buffering", "no")

	c.Stream(func(_ io.Writer) bool {
		ev, ok := <-ch
		if !ok {
			return false
		}
		c.SSEvent(string(ev.Type), ev.Data)
		return true
	})

	// On disconnect c.Stream returns with events still in flight; the request
	// context is already cancelled, so consume the remainder until the
	// workflow closes the channel.
	go func() {
		for range ch {
		}
	}()
}
