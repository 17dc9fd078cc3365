package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/Aciila/go-ddd-boilerplate/internal/application"
	"github.com/Aciila/go-ddd-boilerplate/internal/domain"
	"github.com/Aciila/go-ddd-boilerplate/pkg/response"
	"github.com/Aciila/go-ddd-boilerplate/pkg/validation"
)

type UserHandler struct {
	Svc    *application.UserService
	Logger *logrus.Logger
}

func NewUserHandler(svc *application.UserService, logger *logrus.Logger) *UserHandler {
	return &UserHandler{Svc: svc, Logger: logger}
}

func (h *UserHandler) List(c *gin.Context) {
	var q listUsersQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		invalid(c, err)
		return
	}
	res, err := h.Svc.List(c.Request.Context(), intOr(q.Limit, application.DefaultLimit), intOr(q.Offset, 0))
	if err != nil {
		h.fail(c, err)
		return
	}
	response.Success(c, http.StatusOK, toUserListResponse(res), "users", nil)
}

func (h *UserHandler) Get(c *gin.Context) {
	id, ok := bindID(c)
	if !ok {
		return
	}
	u, err := h.Svc.GetByID(c.Request.Context(), id)
	if err != nil {
		h.fail(c, err)
		return
	}
	response.Success(c, http.StatusOK, toUserResponse(u), "user", nil)
}

func (h *UserHandler) Create(c *gin.Context) {
	var req createUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		invalid(c, err)
		return
	}
	u, err := h.Svc.Create(c.Request.Context(), application.CreateUserInput{Email: req.Email, Name: req.Name})
	if err != nil {
		h.fail(c, err)
		return
	}
	c.Header("Location", c.FullPath()+"/"+u.ID)
	response.Success(c, http.StatusCreated, toUserResponse(u), "user created", nil)
}

func (h *UserHandler) Update(c *gin.Context) {
	id, ok := bindID(c)
	if !ok {
		return
	}
	var req updateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		invalid(c, err)
		return
	}
	u, err := h.Svc.Update(c.Request.Context(), id, application.UpdateUserInput{Email: req.Email, Name: req.Name})
	if err != nil {
		h.fail(c, err)
		return
	}
	response.Success(c, http.StatusOK, toUserResponse(u), "user updated", nil)
}

func (h *UserHandler) Delete(c *gin.Context) {
	id, ok := bindID(c)
	if !ok {
		return
	}
	if err := h.Svc.Delete(c.Request.Context(), id); err != nil {
		h.fail(c, err)
		return
	}
	response.NoContent(c)
}

func (h *UserHandler) Activate(c *gin.Context)   { h.setActive(c, true) }
func (h *UserHandler) Deactivate(c *gin.Context) { h.setActive(c, false) }

func (h *UserHandler) setActive(c *gin.Context, active bool) {
	id, ok := bindID(c)
	if !ok {
		return
	}
	u, err := h.Svc.SetActive(c.Request.Context(), id, active)
	if err != nil {
		h.fail(c, err)
		return
	}
	msg := "user deactivated"
	if active {
		msg = "user activated"
	}
	response.Success(c, http.StatusOK, toUserResponse(u), msg, nil)
}

// Search queries the Elasticsearch users index.
func (h *UserHandler) Search(c *gin.Context) {
	var q searchUsersQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		invalid(c, err)
		return
	}
	hits, err := h.Svc.Search(c.Request.Context(), q.Q, intOr(q.Size, application.DefaultSearchSize))
	if err != nil {
		h.fail(c, err)
		return
	}
	response.Success(c, http.StatusOK, hits, "search results", map[string]any{"count": len(hits)})
}

func bindID(c *gin.Context) (string, bool) {
	var p userIDParam
	if err := c.ShouldBindUri(&p); err != nil {
		invalid(c, err)
		return "", false
	}
	return p.ID, true
}

func invalid(c *gin.Context, err error) {
	response.Error[any](c, http.StatusBadRequest, "invalid request", response.APIError{
		Code:    response.CodeValidation,
		Details: validation.ToDetails(err),
	})
}

// fail maps a service error to its HTTP status. Internal causes are logged, never returned.
func (h *UserHandler) fail(c *gin.Context, err error) {
	var derr *domain.Error
	if errors.As(err, &derr) {
		switch derr.Kind {
		case domain.KindValidation:
			response.Error[any](c, http.StatusBadRequest, derr.Message, response.APIError{Code: response.CodeValidation})
			return
		case domain.KindNotFound:
			response.Error[any](c, http.StatusNotFound, derr.Message, response.APIError{Code: response.CodeNotFound})
			return
		case domain.KindAlreadyExists:
			response.Error[any](c, http.StatusConflict, derr.Message, response.APIError{Code: response.CodeAlreadyExists})
			return
		}
	}

	if h.Logger != nil {
		h.Logger.WithError(err).WithFields(logrus.Fields{
			"request_id": c.GetString("request_id"),
			"path":       c.FullPath(),
		}).Error("request failed")
	}
	response.Error[any](c, http.StatusInternalServerError, "internal server error", response.APIError{Code: response.CodeInternal})
}
