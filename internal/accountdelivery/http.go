// Package accountdelivery manages delivery layer of accounts.
package accountdelivery

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/go-petr/pet-ledger/internal/domain"
	"github.com/go-petr/pet-ledger/internal/middleware"
	"github.com/go-petr/pet-ledger/pkg/web"
)

// Service provides service layer interface needed by account delivery layer.
//
//go:generate mockgen -source http.go -destination http_mock.go -package accountdelivery
type Service interface {
	CreateAccount(ctx context.Context, req domain.AccountPayload, userID string) (domain.AccountPayload, error)
	GetAccount(ctx context.Context, accountID, userID string) (domain.AccountPayload, error)
}

// Handler facilitates account delivery layer logic.
type Handler struct {
	service Service
}

// NewHandler returns account handler.
func NewHandler(as Service) Handler {
	return Handler{service: as}
}

type data struct {
	Account domain.AccountPayload `json:"account"`
}

type response struct {
	Data data `json:"data,omitempty"`
}

// ErrBadRequest is returned for request bodies that cannot be decoded.
var ErrBadRequest = errors.New("invalid request body")

func bindErrorMsg(err error) string {
	var ve validator.ValidationErrors
	if errors.As(err, &ve) {
		field := ve[0]
		return field.Field() + web.GetErrorMsg(field)
	}

	return ErrBadRequest.Error()
}

func errorStatus(err error) (int, error) {
	switch {
	case errors.Is(err, domain.ErrNegativeValue), errors.Is(err, domain.ErrUserNotFound):
		return http.StatusBadRequest, err
	case errors.Is(err, domain.ErrAccountNotFound):
		return http.StatusNotFound, err
	case errors.Is(err, domain.ErrVersionConflict):
		return http.StatusConflict, err
	}

	return http.StatusInternalServerError, domain.ErrInternal
}

type createRequest struct {
	Type       string          `json:"type" binding:"required"`
	CurrAmount decimal.Decimal `json:"currAmount" binding:"decimal"`
}

// Create handles http request to create account.
func (h *Handler) Create(gctx *gin.Context) {
	ctx := gctx.Request.Context()
	l := zerolog.Ctx(ctx)

	var req createRequest
	if err := gctx.ShouldBindJSON(&req); err != nil {
		l.Info().Err(err).Send()
		gctx.JSON(http.StatusBadRequest, web.Response{Error: bindErrorMsg(err)})

		return
	}

	payload := domain.AccountPayload{Type: req.Type, CurrAmount: req.CurrAmount}

	created, err := h.service.CreateAccount(ctx, payload, middleware.UserID(gctx))
	if err != nil {
		status, err := errorStatus(err)
		gctx.JSON(status, web.Error(err))

		return
	}

	gctx.JSON(http.StatusCreated, response{Data: data{created}})
}

type getRequest struct {
	AccountID string `uri:"accountId" binding:"required"`
}

// Get handles http request to get account.
func (h *Handler) Get(gctx *gin.Context) {
	ctx := gctx.Request.Context()
	l := zerolog.Ctx(ctx)

	var req getRequest
	if err := gctx.ShouldBindUri(&req); err != nil {
		l.Info().Err(err).Send()
		gctx.JSON(http.StatusBadRequest, web.Response{Error: bindErrorMsg(err)})

		return
	}

	acc, err := h.service.GetAccount(ctx, req.AccountID, middleware.UserID(gctx))
	if err != nil {
		status, err := errorStatus(err)
		gctx.JSON(status, web.Error(err))

		return
	}

	gctx.JSON(http.StatusOK, response{Data: data{acc}})
}
