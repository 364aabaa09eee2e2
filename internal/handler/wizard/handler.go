package wizard

import (
	"context"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"regexp"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/jwalitptl/clinic-console/internal/handler"
	"github.com/jwalitptl/clinic-console/internal/service/commit"
	"github.com/jwalitptl/clinic-console/internal/service/draft"
	"github.com/jwalitptl/clinic-console/internal/service/media"
	apperrors "github.com/jwalitptl/clinic-console/pkg/errors"
)

type Service interface {
	Begin(ctx context.Context, externalUserID, email string) (*draft.Draft, error)
	Get(ctx context.Context, sessionID, operatorID uuid.UUID) (*draft.Draft, error)
	End(ctx context.Context, sessionID, operatorID uuid.UUID) error
	Stage(ctx context.Context, sessionID, operatorID uuid.UUID, input commit.StepInput) (*draft.Draft, error)
	Commit(ctx context.Context, sessionID, operatorID uuid.UUID, step int, req commit.Request) (*commit.Result, error)
}

type Handler struct {
	service   Service
	operators handler.OperatorResolver
}

func NewHandler(service Service, operators handler.OperatorResolver) *Handler {
	return &Handler{service: service, operators: operators}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	sessions := r.Group("/wizard/sessions")
	{
		sessions.POST("", h.BeginSession)
		sessions.GET("/:id", h.GetSession)
		sessions.DELETE("/:id", h.EndSession)
		sessions.PUT("/:id/steps/:step", h.StageStep)
		sessions.POST("/:id/steps/:step/commit", h.CommitStep)
	}
}

func (h *Handler) BeginSession(c *gin.Context) {
	d, err := h.service.Begin(c.Request.Context(),
		c.GetString(handler.ContextExternalUserID),
		c.GetString(handler.ContextEmail))
	if err != nil {
		handler.Fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, handler.NewSuccessResponse(d))
}

func (h *Handler) GetSession(c *gin.Context) {
	sessionID, operatorID, ok := h.session(c)
	if !ok {
		return
	}
	d, err := h.service.Get(c.Request.Context(), sessionID, operatorID)
	if err != nil {
		handler.Fail(c, err)
		return
	}
	c.JSON(http.StatusOK, handler.NewSuccessResponse(d))
}

func (h *Handler) EndSession(c *gin.Context) {
	sessionID, operatorID, ok := h.session(c)
	if !ok {
		return
	}
	if err := h.service.End(c.Request.Context(), sessionID, operatorID); err != nil {
		handler.Fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *Handler) StageStep(c *gin.Context) {
	sessionID, operatorID, ok := h.session(c)
	if !ok {
		return
	}
	step, ok := stepParam(c)
	if !ok {
		return
	}

	input, err := commit.NewInput(step)
	if err != nil {
		handler.Fail(c, err)
		return
	}
	if err := c.ShouldBindJSON(input); err != nil {
		handler.Fail(c, apperrors.Validationf("invalid request body: %v", err))
		return
	}

	d, err := h.service.Stage(c.Request.Context(), sessionID, operatorID, input)
	if err != nil {
		handler.Fail(c, err)
		return
	}
	c.JSON(http.StatusOK, handler.NewSuccessResponse(d))
}

type commitRequest struct {
	Input    json.RawMessage `json:"input"`
	Feedback string          `json:"feedback"`
}

// CommitStep accepts either a JSON body or a multipart form. The form carries
// the step input as a JSON string in "input", the "feedback" text and the
// files "thumbnail", "gallery" (repeated) and "portrait_<position>".
func (h *Handler) CommitStep(c *gin.Context) {
	sessionID, operatorID, ok := h.session(c)
	if !ok {
		return
	}
	step, ok := stepParam(c)
	if !ok {
		return
	}

	var (
		req    commit.Request
		raw    commitRequest
		closer func()
		err    error
	)
	if strings.HasPrefix(c.ContentType(), "multipart/") {
		raw, req, closer, err = readMultipart(c)
		if closer != nil {
			defer closer()
		}
	} else if c.Request.ContentLength != 0 {
		err = c.ShouldBindJSON(&raw)
		if err != nil {
			err = apperrors.Validationf("invalid request body: %v", err)
		}
	}
	if err != nil {
		handler.Fail(c, err)
		return
	}

	req.Feedback = raw.Feedback
	if len(raw.Input) > 0 && string(raw.Input) != "null" {
		input, err := commit.NewInput(step)
		if err != nil {
			handler.Fail(c, err)
			return
		}
		if err := json.Unmarshal(raw.Input, input); err != nil {
			handler.Fail(c, apperrors.Validationf("invalid step input: %v", err))
			return
		}
		req.Input = input
	}

	res, err := h.service.Commit(c.Request.Context(), sessionID, operatorID, step, req)
	if err != nil {
		if res == nil {
			handler.Fail(c, err)
			return
		}
		_ = c.Error(err)
		c.JSON(handler.StatusOf(err), &handler.Response{Status: "error", Message: res.Message, Data: res})
		return
	}
	c.JSON(http.StatusOK, &handler.Response{Status: "success", Message: res.Message, Data: res})
}

// session parses the session id and resolves the caller. It writes the
// failure itself.
func (h *Handler) session(c *gin.Context) (uuid.UUID, uuid.UUID, bool) {
	sessionID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		handler.Fail(c, apperrors.Validation("invalid session ID"))
		return uuid.Nil, uuid.Nil, false
	}
	op, err := handler.Operator(c, h.operators)
	if err != nil {
		handler.Fail(c, err)
		return uuid.Nil, uuid.Nil, false
	}
	return sessionID, op.ID, true
}

func stepParam(c *gin.Context) (int, bool) {
	step, err := strconv.Atoi(c.Param("step"))
	if err != nil || step < 1 || step > draft.LastStep {
		handler.Fail(c, apperrors.Validationf("step must be between 1 and %d", draft.LastStep))
		return 0, false
	}
	return step, true
}

var portraitField = regexp.MustCompile(`^portrait_(\d+)$`)

func readMultipart(c *gin.Context) (commitRequest, commit.Request, func(), error) {
	var (
		raw commitRequest
		req commit.Request
	)
	form, err := c.MultipartForm()
	if err != nil {
		return raw, req, nil, apperrors.Validationf("invalid multipart form: %v", err)
	}

	var opened []multipart.File
	closer := func() {
		for _, f := range opened {
			_ = f.Close()
		}
	}
	open := func(fh *multipart.FileHeader) (media.Asset, error) {
		f, err := fh.Open()
		if err != nil {
			return media.Asset{}, apperrors.Validationf("cannot read file %s: %v", fh.Filename, err)
		}
		opened = append(opened, f)
		return media.Asset{
			Filename:    fh.Filename,
			ContentType: fh.Header.Get("Content-Type"),
			Size:        fh.Size,
			Body:        f,
		}, nil
	}

	if v := form.Value["input"]; len(v) > 0 && v[0] != "" {
		raw.Input = json.RawMessage(v[0])
	}
	if v := form.Value["feedback"]; len(v) > 0 {
		raw.Feedback = v[0]
	}

	if files := form.File["thumbnail"]; len(files) > 0 {
		if len(files) > 1 {
			return raw, req, closer, apperrors.Validation("only one thumbnail can be uploaded")
		}
		a, err := open(files[0])
		if err != nil {
			return raw, req, closer, err
		}
		req.Thumbnail = &a
	}

	for _, fh := range form.File["gallery"] {
		a, err := open(fh)
		if err != nil {
			return raw, req, closer, err
		}
		req.Gallery = append(req.Gallery, a)
	}

	for field, files := range form.File {
		m := portraitField.FindStringSubmatch(field)
		if m == nil {
			continue
		}
		if len(files) != 1 {
			return raw, req, closer, apperrors.Validationf("%s must hold exactly one file", field)
		}
		pos, err := strconv.Atoi(m[1])
		if err != nil {
			return raw, req, closer, apperrors.Validation(fmt.Sprintf("invalid portrait position %q", m[1]))
		}
		a, err := open(files[0])
		if err != nil {
			return raw, req, closer, err
		}
		if req.Portraits == nil {
			req.Portraits = make(map[int]media.Asset)
		}
		req.Portraits[pos] = a
	}

	return raw, req, closer, nil
}
