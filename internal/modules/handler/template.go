package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/ohfdesk/ohfdesk/internal/modules/serializer"
	"github.com/ohfdesk/ohfdesk/internal/modules/service"
)

type TemplateHandler struct {
	svc service.TemplateService
}

func NewTemplateHandler(s service.TemplateService) *TemplateHandler {
	return &TemplateHandler{svc: s}
}

type ListTemplatesReq struct {
	Category string `form:"category" json:"category" example:"billing"`
	Query    string `form:"q" json:"q" binding:"max=200"`
}

// GetTemplates godoc
//
//	@Summary		List response templates
//	@Tags			template
//	@Produce		json
//	@Param			category	query	string	false	"Filter by category"
//	@Param			q			query	string	false	"Search title and content"
//	@Security		BearerAuth
//	@Success		200	{object}	serializer.Response{data=[]model.ResponseTemplate}
//	@Router			/templates [get]
func (h *TemplateHandler) GetTemplates(c *gin.Context) {
	req := ListTemplatesReq{}
	if err := c.ShouldBindQuery(&req); err != nil {
		c.JSON(http.StatusBadRequest, serializer.ParamErr("", err))
		return
	}

	items, err := h.svc.List(c.Request.Context(), req.Category, req.Query)
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, serializer.Response{Data: items})
}

type TemplateReq struct {
	Title    string `json:"title" binding:"required,max=200" example:"Password reset"`
	Content  string `json:"content" binding:"required" example:"Hi {{client_name}}, your password has been reset."`
	Category string `json:"category" binding:"max=100" example:"account"`
}

func (r TemplateReq) input() service.TemplateInput {
	return service.TemplateInput{Title: r.Title, Content: r.Content, Category: r.Category}
}

// CreateTemplate godoc
//
//	@Summary		Create response template
//	@Tags			template
//	@Accept			json
//	@Produce		json
//	@Param			payload	body	handler.TemplateReq	true	"Template payload"
//	@Security		BearerAuth
//	@Success		201	{object}	serializer.Response{data=model.ResponseTemplate}
//	@Router			/templates [post]
func (h *TemplateHandler) CreateTemplate(c *gin.Context) {
	req := TemplateReq{}
	if err := c.ShouldBind(&req); err != nil {
		c.JSON(http.StatusBadRequest, serializer.ParamErr("", err))
		return
	}
	p, ok := actor(c)
	if !ok {
		return
	}

	t, err := h.svc.Create(c.Request.Context(), p, req.input())
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusCreated, serializer.Response{Data: t})
}

// GetTemplate godoc
//
//	@Summary		Get response template
//	@Tags			template
//	@Produce		json
//	@Param			id	path	string	true	"Template ID"	format(uuid)
//	@Security		BearerAuth
//	@Success		200	{object}	serializer.Response{data=model.ResponseTemplate}
//	@Router			/templates/{id} [get]
func (h *TemplateHandler) GetTemplate(c *gin.Context) {
	id, ok := uuidParam(c, "id")
	if !ok {
		return
	}

	t, err := h.svc.Get(c.Request.Context(), id)
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, serializer.Response{Data: t})
}

// UpdateTemplate godoc
//
//	@Summary		Replace response template
//	@Tags			template
//	@Accept			json
//	@Produce		json
//	@Param			id		path	string				true	"Template ID"	format(uuid)
//	@Param			payload	body	handler.TemplateReq	true	"Template payload"
//	@Security		BearerAuth
//	@Success		200	{object}	serializer.Response{data=model.ResponseTemplate}
//	@Router			/templates/{id} [put]
func (h *TemplateHandler) UpdateTemplate(c *gin.Context) {
	id, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	req := TemplateReq{}
	if err := c.ShouldBind(&req); err != nil {
		c.JSON(http.StatusBadRequest, serializer.ParamErr("", err))
		return
	}

	t, err := h.svc.Update(c.Request.Context(), id, req.input())
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, serializer.Response{Data: t})
}

// DeleteTemplate godoc
//
//	@Summary		Delete response template
//	@Tags			template
//	@Produce		json
//	@Param			id	path	string	true	"Template ID"	format(uuid)
//	@Security		BearerAuth
//	@Success		200	{object}	serializer.Response{}
//	@Router			/templates/{id} [delete]
func (h *TemplateHandler) DeleteTemplate(c *gin.Context) {
	id, ok := uuidParam(c, "id")
	if !ok {
		return
	}

	if err := h.svc.Delete(c.Request.Context(), id); err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, serializer.Response{})
}

type RenderTemplateReq struct {
	Vars map[string]string `json:"vars"`
}

// RenderTemplate godoc
//
//	@Summary		Render response template
//	@Description	Substitute {{name}} placeholders with the given values. Placeholders without a value are kept and listed in missing.
//	@Tags			template
//	@Accept			json
//	@Produce		json
//	@Param			id		path	string						true	"Template ID"	format(uuid)
//	@Param			payload	body	handler.RenderTemplateReq	true	"Render payload"
//	@Security		BearerAuth
//	@Success		200	{object}	serializer.Response{data=service.RenderedTemplate}
//	@Router			/templates/{id}/render [post]
func (h *TemplateHandler) RenderTemplate(c *gin.Context) {
	id, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	req := RenderTemplateReq{}
	if err := c.ShouldBind(&req); err != nil {
		c.JSON(http.StatusBadRequest, serializer.ParamErr("", err))
		return
	}

	out, err := h.svc.Render(c.Request.Context(), id, req.Vars)
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, serializer.Response{Data: out})
}
