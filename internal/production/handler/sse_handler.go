package handler

import (
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sanventru/odoomegastock-sub001/internal/production/sse"
)

const (
	sseClientBuffer = 64
	sseHeartbeat    = 30 * time.Second
)

// SSEHandler 排产、工单与工序事件推送
type SSEHandler struct {
	hub       *sse.Hub
	heartbeat time.Duration
}

func NewSSEHandler(hub *sse.Hub) *SSEHandler {
	return &SSEHandler{hub: hub, heartbeat: sseHeartbeat}
}

// parseTopics events=stage_finished,work_order_completed
func parseTopics(raw string) map[string]bool {
	topics := make(map[string]bool)
	for _, t := range strings.Split(raw, ",") {
		if t = strings.TrimSpace(t); t != "" {
			topics[t] = true
		}
	}
	return topics
}

// Stream GET /api/v1/events?token=xxx&events=a,b
func (h *SSEHandler) Stream(c *gin.Context) {
	if h.hub == nil {
		Error(c, 50300, "事件推送未启用")
		return
	}
	client := &sse.Client{
		ID:     uuid.New().String(),
		UserID: GetUserID(c),
		Events: make(chan sse.Event, sseClientBuffer),
		Topics: parseTopics(c.Query("events")),
	}
	h.hub.Register(client)
	defer h.hub.Unregister(client.ID)

	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no")
	c.SSEvent("connected", gin.H{"client_id": client.ID})
	c.Writer.Flush()

	heartbeat := time.NewTicker(h.heartbeat)
	defer heartbeat.Stop()

	for {
		select {
		case <-c.Request.Context().Done():
			return
		case ev, ok := <-client.Events:
			if !ok {
				return
			}
			// Data 已是 JSON 文本
			c.SSEvent(ev.EventType, ev.Data)
		case <-heartbeat.C:
			if _, err := c.Writer.WriteString(": keepalive\n\n"); err != nil {
				return
			}
		}
		c.Writer.Flush()
	}
}
