package transferdelivery

import (
	"bytes"
	"encoding/json"
	"log"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"github.com/golang/mock/gomock"
	"github.com/stretchr/testify/require"

	"github.com/go-petr/pet-ledger/internal/domain"
	"github.com/go-petr/pet-ledger/internal/middleware"
	"github.com/go-petr/pet-ledger/pkg/moneypkg"
	"github.com/go-petr/pet-ledger/pkg/randompkg"
	"github.com/go-petr/pet-ledger/pkg/tokenpkg"
	"github.com/go-petr/pet-ledger/pkg/web"
)

func TestMain(m *testing.M) {
	gin.SetMode(gin.TestMode)

	if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
		if err := moneypkg.Register(v); err != nil {
			log.Fatalf("moneypkg.Register returned error: %v", err)
		}
	}

	os.Exit(m.Run())
}

func randomTransfer(toUserID string) domain.TransferPayload {
	return domain.TransferPayload{
		TransferID:  randompkg.String(16),
		FromAccount: randompkg.String(10),
		ToAccount:   randompkg.String(10),
		UserID:      toUserID,
		Amount:      randompkg.MoneyAmountBetween(1, 100),
		CreatedAt:   time.Now().UTC().Truncate(time.Second),
	}
}

func decodeTransfer(t *testing.T, recorder *httptest.ResponseRecorder) domain.TransferPayload {
	t.Helper()

	var res struct {
		Data struct {
			Transfer domain.TransferPayload `json:"transfer"`
		} `json:"data"`
	}

	require.NoError(t, json.NewDecoder(recorder.Body).Decode(&res))

	return res.Data.Transfer
}

func decodeError(t *testing.T, recorder *httptest.ResponseRecorder) string {
	t.Helper()

	var res web.Response
	require.NoError(t, json.NewDecoder(recorder.Body).Decode(&res))

	return res.Error
}

func TestCreateTransferAPI(t *testing.T) {
	userID1 := randompkg.UserID()
	userID2 := randompkg.UserID()
	transfer := randomTransfer(userID2)

	tokenMaker, err := tokenpkg.NewPasetoMaker(randompkg.String(32))
	require.NoError(t, err)

	validBody := gin.H{
		"fromAccount": transfer.FromAccount,
		"toAccount":   transfer.ToAccount,
		"userId":      transfer.UserID,
		"amount":      transfer.Amount.String(),
	}

	testCases := []struct {
		name          string
		requestBody   gin.H
		setupAuth     func(t *testing.T, request *http.Request)
		buildStubs    func(transferService *MockService)
		checkResponse func(t *testing.T, recorder *httptest.ResponseRecorder)
	}{
		{
			name:        "OK",
			requestBody: validBody,
			setupAuth: func(t *testing.T, request *http.Request) {
				require.NoError(t, middleware.AddAuthorization(request, tokenMaker, middleware.AuthTypeBearer, userID1, time.Minute))
			},
			buildStubs: func(transferService *MockService) {
				transferService.EXPECT().
					Transfer(gomock.Any(), gomock.Any(), gomock.Eq(userID1)).
					Times(1).
					DoAndReturn(func(_ any, req domain.TransferPayload, _ string) (domain.TransferPayload, error) {
						if req.FromAccount != transfer.FromAccount || !req.Amount.Equal(transfer.Amount) {
							t.Errorf("unexpected transfer request %+v", req)
						}

						return transfer, nil
					})
			},
			checkResponse: func(t *testing.T, recorder *httptest.ResponseRecorder) {
				require.Equal(t, http.StatusCreated, recorder.Code)

				got := decodeTransfer(t, recorder)
				require.Equal(t, transfer.TransferID, got.TransferID)
				require.Equal(t, transfer.UserID, got.UserID)
				require.True(t, got.Amount.Equal(transfer.Amount))
			},
		},
		{
			name:        "NoAuthorization",
			requestBody: validBody,
			setupAuth:   func(t *testing.T, request *http.Request) {},
			buildStubs: func(transferService *MockService) {
				transferService.EXPECT().Transfer(gomock.Any(), gomock.Any(), gomock.Any()).Times(0)
			},
			checkResponse: func(t *testing.T, recorder *httptest.ResponseRecorder) {
				require.Equal(t, http.StatusUnauthorized, recorder.Code)
			},
		},
		{
			name: "MissingToAccount",
			requestBody: gin.H{
				"fromAccount": transfer.FromAccount,
				"userId":      transfer.UserID,
				"amount":      "1",
			},
			setupAuth: func(t *testing.T, request *http.Request) {
				require.NoError(t, middleware.AddAuthorization(request, tokenMaker, middleware.AuthTypeBearer, userID1, time.Minute))
			},
			buildStubs: func(transferService *MockService) {
				transferService.EXPECT().Transfer(gomock.Any(), gomock.Any(), gomock.Any()).Times(0)
			},
			checkResponse: func(t *testing.T, recorder *httptest.ResponseRecorder) {
				require.Equal(t, http.StatusBadRequest, recorder.Code)
				require.Equal(t, "ToAccount field is required", decodeError(t, recorder))
			},
		},
		{
			name:        "InsufficientBalance",
			requestBody: validBody,
			setupAuth: func(t *testing.T, request *http.Request) {
				require.NoError(t, middleware.AddAuthorization(request, tokenMaker, middleware.AuthTypeBearer, userID1, time.Minute))
			},
			buildStubs: func(transferService *MockService) {
				transferService.EXPECT().
					Transfer(gomock.Any(), gomock.Any(), gomock.Eq(userID1)).
					Times(1).
					Return(domain.TransferPayload{}, &domain.NegativeValueError{Value: "transfer result"})
			},
			checkResponse: func(t *testing.T, recorder *httptest.ResponseRecorder) {
				require.Equal(t, http.StatusBadRequest, recorder.Code)
				require.Equal(t, "Negative value transfer result not allowed here", decodeError(t, recorder))
			},
		},
		{
			name:        "FromAccountNotOwned",
			requestBody: validBody,
			setupAuth: func(t *testing.T, request *http.Request) {
				require.NoError(t, middleware.AddAuthorization(request, tokenMaker, middleware.AuthTypeBearer, userID1, time.Minute))
			},
			buildStubs: func(transferService *MockService) {
				transferService.EXPECT().
					Transfer(gomock.Any(), gomock.Any(), gomock.Eq(userID1)).
					Times(1).
					Return(domain.TransferPayload{}, &domain.AccountNotFoundError{AccountID: transfer.FromAccount, UserID: userID1})
			},
			checkResponse: func(t *testing.T, recorder *httptest.ResponseRecorder) {
				require.Equal(t, http.StatusNotFound, recorder.Code)
			},
		},
		{
			name:        "VersionConflict",
			requestBody: validBody,
			setupAuth: func(t *testing.T, request *http.Request) {
				require.NoError(t, middleware.AddAuthorization(request, tokenMaker, middleware.AuthTypeBearer, userID1, time.Minute))
			},
			buildStubs: func(transferService *MockService) {
				transferService.EXPECT().
					Transfer(gomock.Any(), gomock.Any(), gomock.Any()).
					Times(1).
					Return(domain.TransferPayload{}, domain.ErrVersionConflict)
			},
			checkResponse: func(t *testing.T, recorder *httptest.ResponseRecorder) {
				require.Equal(t, http.StatusConflict, recorder.Code)
			},
		},
		{
			name:        "InternalError",
			requestBody: validBody,
			setupAuth: func(t *testing.T, request *http.Request) {
				require.NoError(t, middleware.AddAuthorization(request, tokenMaker, middleware.AuthTypeBearer, userID1, time.Minute))
			},
			buildStubs: func(transferService *MockService) {
				transferService.EXPECT().
					Transfer(gomock.Any(), gomock.Any(), gomock.Any()).
					Times(1).
					Return(domain.TransferPayload{}, &domain.IntegrityError{Op: "transfer", Reason: "unable to complete transfer"})
			},
			checkResponse: func(t *testing.T, recorder *httptest.ResponseRecorder) {
				require.Equal(t, http.StatusInternalServerError, recorder.Code)
				require.Equal(t, domain.ErrInternal.Error(), decodeError(t, recorder))
			},
		},
	}

	for i := range testCases {
		tc := testCases[i]

		t.Run(tc.name, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			defer ctrl.Finish()

			transferService := NewMockService(ctrl)
			tc.buildStubs(transferService)

			transferHandler := NewHandler(transferService)

			server := gin.New()
			server.POST("/transfer", middleware.AuthMiddleware(tokenMaker), transferHandler.Create)

			data, err := json.Marshal(tc.requestBody)
			require.NoError(t, err)

			request, err := http.NewRequest(http.MethodPost, "/transfer", bytes.NewReader(data))
			require.NoError(t, err)

			tc.setupAuth(t, request)

			recorder := httptest.NewRecorder()
			server.ServeHTTP(recorder, request)

			tc.checkResponse(t, recorder)
		})
	}
}

func TestListTransfersAPI(t *testing.T) {
	userID := randompkg.UserID()
	accountID := randompkg.String(10)

	tokenMaker, err := tokenpkg.NewPasetoMaker(randompkg.String(32))
	require.NoError(t, err)

	transfers := []domain.TransferPayload{randomTransfer(userID), randomTransfer(userID)}

	testCases := []struct {
		name          string
		buildStubs    func(transferService *MockService)
		checkResponse func(t *testing.T, recorder *httptest.ResponseRecorder)
	}{
		{
			name: "OK",
			buildStubs: func(transferService *MockService) {
				transferService.EXPECT().
					Transfers(gomock.Any(), gomock.Eq(accountID), gomock.Eq(userID)).
					Times(1).
					Return(transfers, nil)
			},
			checkResponse: func(t *testing.T, recorder *httptest.ResponseRecorder) {
				require.Equal(t, http.StatusOK, recorder.Code)

				var res struct {
					Data struct {
						Transfers []domain.TransferPayload `json:"transfers"`
					} `json:"data"`
				}
				require.NoError(t, json.NewDecoder(recorder.Body).Decode(&res))
				require.Len(t, res.Data.Transfers, 2)
				require.Equal(t, transfers[0].TransferID, res.Data.Transfers[0].TransferID)
				require.Equal(t, transfers[1].TransferID, res.Data.Transfers[1].TransferID)
			},
		},
		{
			name: "Empty",
			buildStubs: func(transferService *MockService) {
				transferService.EXPECT().
					Transfers(gomock.Any(), gomock.Eq(accountID), gomock.Eq(userID)).
					Times(1).
					Return([]domain.TransferPayload{}, nil)
			},
			checkResponse: func(t *testing.T, recorder *httptest.ResponseRecorder) {
				require.Equal(t, http.StatusOK, recorder.Code)
				require.JSONEq(t, `{"data":{"transfers":[]}}`, recorder.Body.String())
			},
		},
		{
			name: "AccountNotOwned",
			buildStubs: func(transferService *MockService) {
				transferService.EXPECT().
					Transfers(gomock.Any(), gomock.Eq(accountID), gomock.Eq(userID)).
					Times(1).
					Return(nil, &domain.AccountNotFoundError{AccountID: accountID, UserID: userID})
			},
			checkResponse: func(t *testing.T, recorder *httptest.ResponseRecorder) {
				require.Equal(t, http.StatusNotFound, recorder.Code)
				require.Equal(t, "Account "+accountID+" not found for user "+userID, decodeError(t, recorder))
			},
		},
		{
			name: "UnknownUser",
			buildStubs: func(transferService *MockService) {
				transferService.EXPECT().
					Transfers(gomock.Any(), gomock.Any(), gomock.Any()).
					Times(1).
					Return(nil, &domain.UserNotFoundError{UserID: userID})
			},
			checkResponse: func(t *testing.T, recorder *httptest.ResponseRecorder) {
				require.Equal(t, http.StatusBadRequest, recorder.Code)
			},
		},
		{
			name: "InternalError",
			buildStubs: func(transferService *MockService) {
				transferService.EXPECT().
					Transfers(gomock.Any(), gomock.Any(), gomock.Any()).
					Times(1).
					Return(nil, domain.ErrInternal)
			},
			checkResponse: func(t *testing.T, recorder *httptest.ResponseRecorder) {
				require.Equal(t, http.StatusInternalServerError, recorder.Code)
			},
		},
	}

	for i := range testCases {
		tc := testCases[i]

		t.Run(tc.name, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			defer ctrl.Finish()

			transferService := NewMockService(ctrl)
			tc.buildStubs(transferService)

			server := gin.New()
			handler := NewHandler(transferService)
			server.GET("/transfers/:accountId", middleware.AuthMiddleware(tokenMaker), handler.List)

			request, err := http.NewRequest(http.MethodGet, "/transfers/"+accountID, nil)
			require.NoError(t, err)
			require.NoError(t, middleware.AddAuthorization(request, tokenMaker, middleware.AuthTypeBearer, userID, time.Minute))

			recorder := httptest.NewRecorder()
			server.ServeHTTP(recorder, request)

			tc.checkResponse(t, recorder)
		})
	}
}
