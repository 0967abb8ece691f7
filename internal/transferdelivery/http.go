// Package transferdelivery manages delivery layer of transfers.
package transferdelivery

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

// Service provides service layer interface needed by transfer delivery layer.
//
//go:generate mockgen -source http.go -destination http_mock.go -package transferdelivery
type Service interface {
	Transfer(ctx context.Context, req domain.TransferPayload, actingUserID string) (domain.TransferPayload, error)
	Transfers(ctx context.Context, accountID, userID string) ([]domain.TransferPayload, error)
}

// Handler facilitates transfer delivery layer logic.
type Handler struct {
	service Service
}

// NewHandler returns transfer handler.
func NewHandler(ts Service) Handler {
	return Handler{service: ts}
}

type data struct {
	Transfer domain.TransferPayload `json:"transfer"`
}

type response struct {
	Data data `json:"data,omitempty"`
}

type dataTransfers struct {
	Transfers []domain.TransferPayload `json:"transfers"`
}

type responseTransfers struct {
	Data dataTransfers `json:"data,omitempty"`
}

type createRequest struct {
	FromAccount string          `json:"fromAccount" binding:"required"`
	ToAccount   string          `json:"toAccount" binding:"required"`
	UserID      string          `json:"userId" binding:"required"`
	Amount      decimal.Decimal `json:"amount" binding:"decimal"`
}

// Create handles http request to transfer money.
func (h *Handler) Create(gctx *gin.Context) {
	ctx := gctx.Request.Context()
	l := zerolog.Ctx(ctx)

	var req createRequest
	if err := gctx.ShouldBindJSON(&req); err != nil {
		var (
			ve     validator.ValidationErrors
			errMsg = "invalid request body"
		)

		if errors.As(err, &ve) {
			field := ve[0]
			errMsg = field.Field() + web.GetErrorMsg(field)
		}

		l.Info().Err(err).Send()
		gctx.JSON(http.StatusBadRequest, web.Response{Error: errMsg})

		return
	}

	payload := domain.TransferPayload{
		FromAccount: req.FromAccount,
		ToAccount:   req.ToAccount,
		UserID:      req.UserID,
		Amount:      req.Amount,
	}

	result, err := h.service.Transfer(ctx, payload, middleware.UserID(gctx))
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrNegativeValue), errors.Is(err, domain.ErrUserNotFound):
			gctx.JSON(http.StatusBadRequest, web.Error(err))
		case errors.Is(err, domain.ErrAccountNotFound):
			gctx.JSON(http.StatusNotFound, web.Error(err))
		case errors.Is(err, domain.ErrVersionConflict):
			gctx.JSON(http.StatusConflict, web.Error(err))
		default:
			gctx.JSON(http.StatusInternalServerError, web.Error(domain.ErrInternal))
		}

		return
	}

	gctx.JSON(http.StatusCreated, response{Data: data{result}})
}

type listRequest struct {
	AccountID string `uri:"accountId" binding:"required"`
}

// List handles http request to list the transfers of an account.
func (h *Handler) List(gctx *gin.Context) {
	ctx := gctx.Request.Context()
	l := zerolog.Ctx(ctx)

	var req listRequest
	if err := gctx.ShouldBindUri(&req); err != nil {
		l.Info().Err(err).Send()
		gctx.JSON(http.StatusBadRequest, web.Response{Error: "invalid account id"})

		return
	}

	transfers, err := h.service.Transfers(ctx, req.AccountID, middleware.UserID(gctx))
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrUserNotFound):
			gctx.JSON(http.StatusBadRequest, web.Error(err))
		case errors.Is(err, domain.ErrAccountNotFound):
			gctx.JSON(http.StatusNotFound, web.Error(err))
		default:
			gctx.JSON(http.StatusInternalServerError, web.Error(domain.ErrInternal))
		}

		return
	}

	gctx.JSON(http.StatusOK, responseTransfers{Data: dataTransfers{transfers}})
}
