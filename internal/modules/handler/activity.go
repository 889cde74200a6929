package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/ohfdesk/ohfdesk/internal/modules/serializer"
	"github.com/ohfdesk/ohfdesk/internal/modules/service"
)

type ActivityHandler struct {
	svc service.ActivityService
}

func NewActivityHandler(s service.ActivityService) *ActivityHandler {
	return &ActivityHandler{svc: s}
}

// GetActivities godoc
//
//	@Summary		List activities
//	@Description	List the activity timeline of a ticket, oldest first.
//	@Tags			activity
//	@Produce		json
//	@Param			id	path	string	true	"Ticket ID"	format(uuid)
//	@Security		BearerAuth
//	@Success		200	{object}	serializer.Response{data=[]model.Activity}
//	@Router			/tickets/{id}/activities [get]
func (h *ActivityHandler) GetActivities(c *gin.Context) {
	ticketID, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	p, ok := actor(c)
	if !ok {
		return
	}

	items, err := h.svc.List(c.Request.Context(), p, ticketID)
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, serializer.Response{Data: items})
}

type ActivityReq struct {
	Type     string         `json:"type" binding:"required,activity_type" example:"comment"`
	Content  *string        `json:"content" example:"Restarted the print spooler."`
	MediaURL *string        `json:"media_url" binding:"omitempty,url"`
	Metadata map[string]any `json:"metadata"`
}

func (r ActivityReq) input() service.CreateActivityInput {
	return service.CreateActivityInput{
		Type:     r.Type,
		Content:  r.Content,
		MediaURL: r.MediaURL,
		Metadata: r.Metadata,
	}
}

// CreateActivity godoc
//
//	@Summary		Create activity
//	@Description	Append a comment or media reference to a ticket timeline.
//	@Tags			activity
//	@Accept			json
//	@Produce		json
//	@Param			id		path	string				true	"Ticket ID"	format(uuid)
//	@Param			payload	body	handler.ActivityReq	true	"CreateActivity payload"
//	@Security		BearerAuth
//	@Success		201	{object}	serializer.Response{data=model.Activity}
//	@Router			/tickets/{id}/activities [post]
func (h *ActivityHandler) CreateActivity(c *gin.Context) {
	ticketID, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	req := ActivityReq{}
	if err := c.ShouldBind(&req); err != nil {
		c.JSON(http.StatusBadRequest, serializer.ParamErr("", err))
		return
	}
	p, ok := actor(c)
	if !ok {
		return
	}

	a, err := h.svc.Create(c.Request.Context(), p, ticketID, req.input())
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusCreated, serializer.Response{Data: a})
}

type UploadMediaReq struct {
	Type  string `form:"type" binding:"required,oneof=audio video screen" example:"screen"`
	Draft bool   `form:"draft"`
}

// UploadMedia godoc
//
//	@Summary		Upload media
//	@Description	Store an audio, video or screen recording and record it as an activity. With draft=true the activity is returned unsaved so it can be submitted in a work session.
//	@Tags			activity
//	@Accept			multipart/form-data
//	@Produce		json
//	@Param			id		path		string	true	"Ticket ID"	format(uuid)
//	@Param			type	formData	string	true	"Recording kind"	Enums(audio, video, screen)
//	@Param			draft	formData	boolean	false	"Return the activity without saving it"
//	@Param			file	formData	file	true	"Recording"
//	@Security		BearerAuth
//	@Success		201	{object}	serializer.Response{data=model.Activity}
//	@Router			/tickets/{id}/activities/media [post]
func (h *ActivityHandler) UploadMedia(c *gin.Context) {
	ticketID, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	req := UploadMediaReq{}
	if err := c.ShouldBind(&req); err != nil {
		c.JSON(http.StatusBadRequest, serializer.ParamErr("", err))
		return
	}
	fh, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, serializer.ParamErr("file is required", err))
		return
	}
	p, ok := actor(c)
	if !ok {
		return
	}
	data, err := readFormFile(fh)
	if err != nil {
		c.JSON(http.StatusBadRequest, serializer.ParamErr("unreadable file", err))
		return
	}

	a, err := h.svc.UploadMedia(c.Request.Context(), p, ticketID, service.UploadMediaInput{
		Type:     req.Type,
		Filename: fh.Filename,
		Data:     data,
		Draft:    req.Draft,
	})
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusCreated, serializer.Response{Data: a})
}

// DeleteActivity godoc
//
//	@Summary		Delete activity
//	@Tags			activity
//	@Produce		json
//	@Param			id	path	string	true	"Activity ID"	format(uuid)
//	@Security		BearerAuth
//	@Success		200	{object}	serializer.Response{}
//	@Router			/activities/{id} [delete]
func (h *ActivityHandler) DeleteActivity(c *gin.Context) {
	id, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	p, ok := actor(c)
	if !ok {
		return
	}

	if err := h.svc.Delete(c.Request.Context(), p, id); err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, serializer.Response{})
}

type WorkSessionReq struct {
	Activities      []ActivityReq `json:"activities" binding:"required,min=1,max=200,dive"`
	GenerateSummary bool          `json:"generate_summary" example:"true"`
	Notes           string        `json:"notes" binding:"max=10000"`
}

// SaveWorkSession godoc
//
//	@Summary		Save work session
//	@Description	Persist the activities of one work session, and optionally an AI summary of them, in a single transaction. Nothing is saved on failure.
//	@Tags			activity
//	@Accept			json
//	@Produce		json
//	@Param			id		path	string					true	"Ticket ID"	format(uuid)
//	@Param			payload	body	handler.WorkSessionReq	true	"WorkSession payload"
//	@Security		BearerAuth
//	@Success		201	{object}	serializer.Response{data=service.WorkSessionOutput}
//	@Router			/tickets/{id}/work_sessions [post]
func (h *ActivityHandler) SaveWorkSession(c *gin.Context) {
	ticketID, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	req := WorkSessionReq{}
	if err := c.ShouldBind(&req); err != nil {
		c.JSON(http.StatusBadRequest, serializer.ParamErr("", err))
		return
	}
	p, ok := actor(c)
	if !ok {
		return
	}

	in := service.WorkSessionInput{
		GenerateSummary: req.GenerateSummary,
		Notes:           req.Notes,
		Activities:      make([]service.CreateActivityInput, 0, len(req.Activities)),
	}
	for _, a := range req.Activities {
		in.Activities = append(in.Activities, a.input())
	}

	out, err := h.svc.SaveWorkSession(c.Request.Context(), p, ticketID, in)
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusCreated, serializer.Response{Data: out})
}

// GetSummaries godoc
//
//	@Summary		List summaries
//	@Tags			activity
//	@Produce		json
//	@Param			id	path	string	true	"Ticket ID"	format(uuid)
//	@Security		BearerAuth
//	@Success		200	{object}	serializer.Response{data=[]model.Summary}
//	@Router			/tickets/{id}/summaries [get]
func (h *ActivityHandler) GetSummaries(c *gin.Context) {
	ticketID, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	p, ok := actor(c)
	if !ok {
		return
	}

	items, err := h.svc.ListSummaries(c.Request.Context(), p, ticketID)
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, serializer.Response{Data: items})
}

type SummaryReq struct {
	Content string `json:"content" binding:"required" example:"Replaced the toner and confirmed printing works."`
}

// CreateSummary godoc
//
//	@Summary		Create summary
//	@Description	Add a human-written summary. Summaries are append-only.
//	@Tags			activity
//	@Accept			json
//	@Produce		json
//	@Param			id		path	string				true	"Ticket ID"	format(uuid)
//	@Param			payload	body	handler.SummaryReq	true	"CreateSummary payload"
//	@Security		BearerAuth
//	@Success		201	{object}	serializer.Response{data=model.Summary}
//	@Router			/tickets/{id}/summaries [post]
func (h *ActivityHandler) CreateSummary(c *gin.Context) {
	ticketID, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	req := SummaryReq{}
	if err := c.ShouldBind(&req); err != nil {
		c.JSON(http.StatusBadRequest, serializer.ParamErr("", err))
		return
	}
	p, ok := actor(c)
	if !ok {
		return
	}

	s, err := h.svc.CreateSummary(c.Request.Context(), p, ticketID, req.Content)
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusCreated, serializer.Response{Data: s})
}
