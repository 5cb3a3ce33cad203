package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/tieubaoca/contract-analyzer/service"
)

type WebSocketHandler struct {
	ws *service.WebSocketService
}

func NewWebSocketHandler(ws *service.WebSocketService) *WebSocketHandler {
	return &WebSocketHandler{ws: ws}
}

// WatchJobHandler streams progress for one job over a websocket.
func (h *WebSocketHandler) WatchJobHandler(c *gin.Context) {
	h.ws.WatchJob(c.Writer, c.Request, c.Param("id"))
}
