package handler

import (
	"net/http"

	"github.com/bytedance/sonic"
	"github.com/gin-gonic/gin"

	"github.com/ohfdesk/ohfdesk/internal/modules/serializer"
	"github.com/ohfdesk/ohfdesk/internal/modules/service"
	"github.com/ohfdesk/ohfdesk/internal/pkg/chat"
)

// SSE event names of the chat stream.
const (
	EventDelta = "delta"
	EventDone  = "done"
	EventError = "error"
)

type AIHandler struct {
	svc service.ChatService
}

func NewAIHandler(s service.ChatService) *AIHandler {
	return &AIHandler{svc: s}
}

type ChatReq struct {
	Messages []chat.Message `json:"messages" binding:"required,min=1,dive"`
}

type ChatDelta struct {
	Chunk string `json:"chunk"`
}

type TranscribeResp struct {
	Text string `json:"text"`
}

// Chat godoc
//
//	@Summary		Stream AI chat reply
//	@Description	Stream the assistant reply as Server-Sent Events. Each delta event carries one chunk; the final done event carries the complete message. Validation failures before the first chunk are returned as a JSON error.
//	@Tags			ai
//	@Accept			json
//	@Produce		text/event-stream
//	@Param			payload	body	handler.ChatReq	true	"Chat payload"
//	@Security		BearerAuth
//	@Success		200	{object}	chat.Message	"done event payload"
//	@Router			/ai/chat [post]
func (h *AIHandler) Chat(c *gin.Context) {
	req := ChatReq{}
	if err := c.ShouldBind(&req); err != nil {
		c.JSON(http.StatusBadRequest, serializer.ParamErr("", err))
		return
	}

	started := false
	msg, err := h.svc.Stream(c.Request.Context(), req.Messages, func(chunk string, _ chat.Message) error {
		if !started {
			sseHeaders(c)
			started = true
		}
		return writeEvent(c, EventDelta, ChatDelta{Chunk: chunk})
	})
	if err != nil {
		if !started {
			respondErr(c, err)
			return
		}
		_ = writeEvent(c, EventError, serializer.Err(http.StatusBadGateway, "stream interrupted", err))
		return
	}
	if !started {
		sseHeaders(c)
	}
	_ = writeEvent(c, EventDone, msg)
}

// Transcribe godoc
//
//	@Summary		Transcribe audio
//	@Tags			ai
//	@Accept			multipart/form-data
//	@Produce		json
//	@Param			audio	formData	file	true	"Recording"
//	@Security		BearerAuth
//	@Success		200	{object}	serializer.Response{data=handler.TranscribeResp}
//	@Router			/ai/transcribe [post]
func (h *AIHandler) Transcribe(c *gin.Context) {
	fh, err := c.FormFile("audio")
	if err != nil {
		c.JSON(http.StatusBadRequest, serializer.ParamErr("audio is required", err))
		return
	}
	data, err := readFormFile(fh)
	if err != nil {
		c.JSON(http.StatusBadRequest, serializer.ParamErr("unreadable audio", err))
		return
	}

	text, err := h.svc.Transcribe(c.Request.Context(), fh.Filename, data)
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, serializer.Response{Data: TranscribeResp{Text: text}})
}

func sseHeaders(c *gin.Context) {
	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no")
	c.Status(http.StatusOK)
}

// writeEvent sends one SSE frame and flushes it.
func writeEvent(c *gin.Context, event string, v any) error {
	payload, err := sonic.MarshalString(v)
	if err != nil {
		return err
	}
	c.SSEvent(event, payload)
	c.Writer.Flush()
	return c.Request.Context().Err()
}
