package handlers_test

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/SscSPs/bank_ledger/internal/apperrors"
	"github.com/SscSPs/bank_ledger/internal/core/domain"
	"github.com/SscSPs/bank_ledger/internal/dto"
	"github.com/SscSPs/bank_ledger/internal/handlers"
	"github.com/SscSPs/bank_ledger/internal/middleware"
	"github.com/SscSPs/bank_ledger/internal/utils"
	"github.com/SscSPs/bank_ledger/internal/validation"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/suite"
)

const (
	testJWTSecret = "test-secret-key-that-is-long-enough"
	testJWTIssuer = "bank-ledger-test"
)

// --- Test Suite ---
type AccountHandlerTestSuite struct {
	suite.Suite
	router             *gin.Engine
	mockAccountService *MockAccountService
	mockLedgerService  *MockLedgerService
	userID             string
	token              string
}

// generateTestToken signs a token the auth middleware accepts.
func generateTestToken(t *testing.T, userID string) string {
	token, err := utils.GenerateJWT(userID, testJWTSecret, time.Hour, testJWTIssuer)
	if err != nil {
		t.Fatalf("failed to sign test token: %v", err)
	}
	return token
}

// newAuthedRouter builds a router with the real auth middleware in front of an /api/v1 group.
func newAuthedRouter(t *testing.T) (*gin.Engine, *gin.RouterGroup) {
	gin.SetMode(gin.TestMode)
	if err := validation.RegisterWithGin(); err != nil {
		t.Fatalf("failed to register validators: %v", err)
	}
	router := gin.New()
	v1 := router.Group("/api/v1", middleware.AuthMiddleware(testJWTSecret, testJWTIssuer))
	return router, v1
}

func (suite *AccountHandlerTestSuite) SetupTest() {
	router, v1 := newAuthedRouter(suite.T())
	suite.router = router
	suite.mockAccountService = new(MockAccountService)
	suite.mockLedgerService = new(MockLedgerService)
	suite.userID = uuid.NewString()
	suite.token = generateTestToken(suite.T(), suite.userID)

	handlers.RegisterAccountRoutes(v1, suite.mockAccountService, suite.mockLedgerService)
}

func (suite *AccountHandlerTestSuite) do(method, url string, body any) *httptest.ResponseRecorder {
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		suite.Require().NoError(err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}
	req, _ := http.NewRequest(method, url, reader)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+suite.token)

	w := httptest.NewRecorder()
	suite.router.ServeHTTP(w, req)
	return w
}

func decodeError(t *testing.T, w *httptest.ResponseRecorder) handlers.ErrorResponse {
	var resp handlers.ErrorResponse
	assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp
}

func (suite *AccountHandlerTestSuite) sampleAccount(balance string) *domain.Account {
	now := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	return &domain.Account{
		AccountID:     uuid.NewString(),
		OwnerID:       suite.userID,
		AccountType:   domain.Savings,
		DisplayDigits: "1234",
		DisplayName:   "Main",
		Balance:       decimal.RequireFromString(balance),
		AuditFields:   domain.AuditFields{CreatedAt: now, UpdatedAt: now},
	}
}

// --- Authentication ---

func (suite *AccountHandlerTestSuite) TestMissingToken() {
	req, _ := http.NewRequest(http.MethodGet, "/api/v1/accounts", nil)
	w := httptest.NewRecorder()
	suite.router.ServeHTTP(w, req)

	suite.Equal(http.StatusUnauthorized, w.Code)
	suite.mockAccountService.AssertNotCalled(suite.T(), "ListAccounts", mock.Anything, mock.Anything)
}

func (suite *AccountHandlerTestSuite) TestWrongIssuerRejected() {
	token, err := utils.GenerateJWT(suite.userID, testJWTSecret, time.Hour, "someone-else")
	suite.Require().NoError(err)
	suite.token = token

	w := suite.do(http.MethodGet, "/api/v1/accounts", nil)

	suite.Equal(http.StatusUnauthorized, w.Code)
}

// --- ListAccounts ---

func (suite *AccountHandlerTestSuite) TestListAccounts_Success() {
	account := suite.sampleAccount("12.5")
	suite.mockAccountService.On("ListAccounts", mock.Anything, suite.userID).
		Return([]domain.Account{*account}, nil).Once()

	w := suite.do(http.MethodGet, "/api/v1/accounts", nil)

	suite.Equal(http.StatusOK, w.Code)
	var body []dto.AccountResponse
	suite.Require().NoError(json.Unmarshal(w.Body.Bytes(), &body))
	suite.Require().Len(body, 1)
	suite.Equal(account.AccountID, body[0].AccountID)
	suite.Equal("1234", body[0].DisplayDigits)
	suite.True(body[0].Balance.Equal(decimal.RequireFromString("12.50")))
	suite.mockAccountService.AssertExpectations(suite.T())
}

func (suite *AccountHandlerTestSuite) TestListAccounts_EmptyIsArray() {
	suite.mockAccountService.On("ListAccounts", mock.Anything, suite.userID).Return([]domain.Account{}, nil).Once()

	w := suite.do(http.MethodGet, "/api/v1/accounts", nil)

	suite.Equal(http.StatusOK, w.Code)
	suite.JSONEq(`[]`, w.Body.String())
}

// --- CreateAccount ---

func (suite *AccountHandlerTestSuite) TestCreateAccount_Success() {
	account := suite.sampleAccount("100")
	suite.mockAccountService.On("CreateAccount", mock.Anything, suite.userID, mock.MatchedBy(func(req dto.CreateAccountRequest) bool {
		return req.AccountType == domain.Savings && req.InitialAmount.Equal(decimal.NewFromInt(100)) && req.Name == "Main"
	})).Return(account, nil).Once()

	w := suite.do(http.MethodPost, "/api/v1/accounts", map[string]any{
		"type":          "savings",
		"initialAmount": 100,
		"name":          "Main",
	})

	suite.Equal(http.StatusCreated, w.Code)
	var body dto.AccountResponse
	suite.Require().NoError(json.Unmarshal(w.Body.Bytes(), &body))
	suite.Equal(account.AccountID, body.AccountID)
	suite.mockAccountService.AssertExpectations(suite.T())
}

func (suite *AccountHandlerTestSuite) TestCreateAccount_InvalidInput() {
	tests := []struct {
		name string
		body map[string]any
	}{
		{"unknown type", map[string]any{"type": "brokerage"}},
		{"missing type", map[string]any{"initialAmount": 5}},
		{"negative initial amount", map[string]any{"type": "debit", "initialAmount": -1}},
		{"too many decimals", map[string]any{"type": "debit", "initialAmount": "1.005"}},
	}

	for _, tt := range tests {
		suite.Run(tt.name, func() {
			w := suite.do(http.MethodPost, "/api/v1/accounts", tt.body)

			suite.Equal(http.StatusBadRequest, w.Code)
			suite.Equal(string(apperrors.KindValidation), decodeError(suite.T(), w).Kind)
		})
	}
	suite.mockAccountService.AssertNotCalled(suite.T(), "CreateAccount", mock.Anything, mock.Anything, mock.Anything)
}

// --- SetFrozen ---

func (suite *AccountHandlerTestSuite) TestSetFrozen_Success() {
	account := suite.sampleAccount("1")
	account.Frozen = true
	suite.mockAccountService.On("SetFrozen", mock.Anything, account.AccountID, suite.userID, true).Return(account, nil).Once()

	w := suite.do(http.MethodPut, fmt.Sprintf("/api/v1/accounts/%s/freeze", account.AccountID), map[string]any{"isFrozen": true})

	suite.Equal(http.StatusOK, w.Code)
	var body dto.AccountResponse
	suite.Require().NoError(json.Unmarshal(w.Body.Bytes(), &body))
	suite.True(body.Frozen)
}

func (suite *AccountHandlerTestSuite) TestSetFrozen_MissingFlag() {
	w := suite.do(http.MethodPut, fmt.Sprintf("/api/v1/accounts/%s/freeze", uuid.NewString()), map[string]any{})

	suite.Equal(http.StatusBadRequest, w.Code)
	suite.mockAccountService.AssertNotCalled(suite.T(), "SetFrozen", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func (suite *AccountHandlerTestSuite) TestSetFrozen_NotFound() {
	accountID := uuid.NewString()
	suite.mockAccountService.On("SetFrozen", mock.Anything, accountID, suite.userID, false).
		Return(nil, apperrors.NewNotFoundError("account")).Once()

	w := suite.do(http.MethodPut, fmt.Sprintf("/api/v1/accounts/%s/freeze", accountID), map[string]any{"isFrozen": false})

	suite.Equal(http.StatusNotFound, w.Code)
	suite.Equal(string(apperrors.KindNotFound), decodeError(suite.T(), w).Kind)
}

// --- DeleteAccount ---

func (suite *AccountHandlerTestSuite) TestDeleteAccount() {
	accountID := uuid.NewString()
	suite.mockAccountService.On("DeleteAccount", mock.Anything, accountID, suite.userID).Return(nil).Once()

	w := suite.do(http.MethodDelete, "/api/v1/accounts/"+accountID, nil)

	suite.Equal(http.StatusNoContent, w.Code)
	suite.Empty(w.Body.String())
	suite.mockAccountService.AssertExpectations(suite.T())
}

// --- Deposit ---

func (suite *AccountHandlerTestSuite) TestDeposit_Success() {
	account := suite.sampleAccount("150")
	suite.mockLedgerService.On("Deposit", mock.Anything, account.AccountID, suite.userID, mock.MatchedBy(func(d decimal.Decimal) bool {
		return d.Equal(decimal.NewFromInt(50))
	})).Return(account, nil).Once()

	w := suite.do(http.MethodPost, fmt.Sprintf("/api/v1/accounts/%s/deposit", account.AccountID), map[string]any{"amount": "50"})

	suite.Equal(http.StatusOK, w.Code)
	var body dto.AccountResponse
	suite.Require().NoError(json.Unmarshal(w.Body.Bytes(), &body))
	suite.True(body.Balance.Equal(decimal.NewFromInt(150)))
}

func (suite *AccountHandlerTestSuite) TestDeposit_ErrorMapping() {
	tests := []struct {
		name   string
		err    error
		status int
		kind   apperrors.Kind
	}{
		{"frozen", apperrors.NewFrozenError("acc"), http.StatusConflict, apperrors.KindFrozen},
		{"not found", apperrors.NewNotFoundError("account"), http.StatusNotFound, apperrors.KindNotFound},
		{"service", apperrors.NewServiceError("boom", assert.AnError), http.StatusInternalServerError, apperrors.KindService},
		{"transient", apperrors.NewTransientServiceError("timeout", assert.AnError), http.StatusServiceUnavailable, apperrors.KindService},
		{"plain error", assert.AnError, http.StatusInternalServerError, apperrors.KindService},
	}

	for _, tt := range tests {
		suite.Run(tt.name, func() {
			accountID := uuid.NewString()
			suite.mockLedgerService.On("Deposit", mock.Anything, accountID, suite.userID, mock.Anything).Return(nil, tt.err).Once()

			w := suite.do(http.MethodPost, fmt.Sprintf("/api/v1/accounts/%s/deposit", accountID), map[string]any{"amount": 1})

			suite.Equal(tt.status, w.Code)
			resp := decodeError(suite.T(), w)
			suite.Equal(string(tt.kind), resp.Kind)
			if tt.status >= http.StatusInternalServerError {
				suite.Equal("internal error", resp.Error)
			}
		})
	}
}

func (suite *AccountHandlerTestSuite) TestDeposit_InvalidAmount() {
	for _, amount := range []any{0, -5, "0.001", "abc"} {
		w := suite.do(http.MethodPost, fmt.Sprintf("/api/v1/accounts/%s/deposit", uuid.NewString()), map[string]any{"amount": amount})
		suite.Equal(http.StatusBadRequest, w.Code, "amount %v", amount)
	}
	suite.mockLedgerService.AssertNotCalled(suite.T(), "Deposit", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func (suite *AccountHandlerTestSuite) TestDeposit_ExtremeExponentRejectedQuickly() {
	for _, amount := range []json.Number{"1e-2000000000", "1e2000000000"} {
		start := time.Now()
		w := suite.do(http.MethodPost, fmt.Sprintf("/api/v1/accounts/%s/deposit", uuid.NewString()), map[string]any{"amount": amount})

		suite.Equal(http.StatusBadRequest, w.Code, "amount %s", amount)
		suite.Less(time.Since(start), time.Second)
	}
	suite.mockLedgerService.AssertNotCalled(suite.T(), "Deposit", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

// --- Run Test Suite ---
func TestAccountHandler(t *testing.T) {
	suite.Run(t, new(AccountHandlerTestSuite))
}
