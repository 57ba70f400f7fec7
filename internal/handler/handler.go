// Package handler exposes the questionnaire editor and submission endpoint
// over HTTP.
package handler

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/url"

	"github.com/Koyo-os/questionnaire-service/internal/editor"
	"github.com/Koyo-os/questionnaire-service/internal/entity"
	"github.com/Koyo-os/questionnaire-service/internal/errortree"
	"github.com/Koyo-os/questionnaire-service/internal/listctl"
	"github.com/Koyo-os/questionnaire-service/internal/presentation"
	"github.com/Koyo-os/questionnaire-service/internal/service"
	"github.com/Koyo-os/questionnaire-service/pkg/logger"
	"github.com/gin-gonic/gin"
	gojson "github.com/goccy/go-json"
	"go.uber.org/zap"
)

const maxBodyBytes = 1 << 20

type Service interface {
	LoadTemplate(ctx context.Context) (entity.QuestionnaireForm, error)
	Submit(ctx context.Context, values url.Values) (service.Outcome, error)
	SubmitValue(ctx context.Context, raw any) (service.Outcome, error)
	Get(ctx context.Context, id string) (entity.OutputQuestionnaire, error)
}

type Handler struct {
	service  Service
	renderer *presentation.Renderer
	logger   *logger.Logger
	keys     []listctl.Option
}

// New builds the handler. keys configure identity generation of rendered
// drafts.
func New(service Service, renderer *presentation.Renderer, logger *logger.Logger, keys ...listctl.Option) *Handler {
	return &Handler{
		service:  service,
		renderer: renderer,
		logger:   logger,
		keys:     keys,
	}
}

func (h *Handler) Register(r gin.IRouter) {
	r.GET("/questionnaires/new", h.NewForm)
	r.POST("/questionnaires/new", h.PostForm)
	r.GET("/questionnaires/:id", h.GetQuestionnaire)
}

// NewForm renders the editor for the configured template
func (h *Handler) NewForm(c *gin.Context) {
	form, err := h.service.LoadTemplate(c.Request.Context())
	if err != nil {
		h.fail(c, err)
		return
	}

	h.render(c, http.StatusOK, editor.FromForm(form, h.keys...), errortree.Tree{})
}

// PostForm handles every button of the editor. Add and refresh intents
// re-render the posted draft without validating it; anything else is a
// submission.
func (h *Handler) PostForm(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBodyBytes)

	if c.ContentType() == gin.MIMEJSON {
		h.submitJSON(c)
		return
	}

	if err := c.Request.ParseForm(); err != nil {
		c.String(http.StatusBadRequest, "invalid form body")
		return
	}

	values := make(url.Values, len(c.Request.PostForm))
	for key, vs := range c.Request.PostForm {
		values[key] = vs
	}
	intent := presentation.ParseIntent(values.Get(presentation.IntentField))
	values.Del(presentation.IntentField)

	switch intent.Action {
	case presentation.ActionAddQuestion:
		draft := editor.FromValues(values, h.keys...)
		t := intent.QuestionType()
		if !t.Valid() {
			t = entity.TypeText
		}
		draft.AppendQuestion(t)
		h.render(c, http.StatusOK, draft, errortree.Tree{})

	case presentation.ActionRefresh:
		h.render(c, http.StatusOK, editor.FromValues(values, h.keys...), errortree.Tree{})

	case presentation.ActionAddOption:
		draft := editor.FromValues(values, h.keys...)
		if _, ok := draft.AppendOption(intent.Question()); !ok {
			h.logger.Debug("add option ignored", zap.String("question", intent.Arg))
		}
		h.render(c, http.StatusOK, draft, errortree.Tree{})

	default:
		outcome, err := h.service.Submit(c.Request.Context(), values)
		if err != nil {
			h.fail(c, err)
			return
		}
		h.respond(c, outcome, wantsJSON(c))
	}
}

func (h *Handler) submitJSON(c *gin.Context) {
	var raw any
	if err := gojson.NewDecoder(c.Request.Body).Decode(&raw); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json body"})
		return
	}

	outcome, err := h.service.SubmitValue(c.Request.Context(), raw)
	if err != nil {
		h.fail(c, err)
		return
	}
	h.respond(c, outcome, true)
}

func (h *Handler) respond(c *gin.Context, outcome service.Outcome, asJSON bool) {
	if outcome.Status == service.Accepted {
		c.Redirect(http.StatusSeeOther, outcome.Redirect)
		return
	}

	if asJSON {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"errors": outcome.Errors})
		return
	}

	h.render(c, http.StatusUnprocessableEntity, editor.FromValues(outcome.Echo, h.keys...), outcome.Errors)
}

// GetQuestionnaire returns a persisted questionnaire as JSON
func (h *Handler) GetQuestionnaire(c *gin.Context) {
	out, err := h.service.Get(c.Request.Context(), c.Param("id"))
	switch {
	case errors.Is(err, service.ErrInvalidID):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, service.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case err != nil:
		h.fail(c, err)
	default:
		c.JSON(http.StatusOK, out)
	}
}

func (h *Handler) render(c *gin.Context, status int, draft *editor.Draft, errs errortree.Tree) {
	var buf bytes.Buffer
	if err := h.renderer.Render(&buf, presentation.Build(draft, errs)); err != nil {
		h.fail(c, err)
		return
	}

	c.Data(status, "text/html; charset=utf-8", buf.Bytes())
}

func (h *Handler) fail(c *gin.Context, err error) {
	h.logger.Error("request failed",
		zap.String("method", c.Request.Method),
		zap.String("path", c.Request.URL.Path),
		zap.Error(err))

	if wantsJSON(c) {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}
	c.String(http.StatusInternalServerError, "internal error")
}

func wantsJSON(c *gin.Context) bool {
	if c.ContentType() == gin.MIMEJSON {
		return true
	}
	return c.NegotiateFormat(gin.MIMEHTML, gin.MIMEJSON) == gin.MIMEJSON
}
