package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/phrazzld/cards-api/internal/api/shared"
	"github.com/phrazzld/cards-api/internal/config"
	"github.com/phrazzld/cards-api/internal/domain"
	"github.com/phrazzld/cards-api/internal/platform/cardcrypto"
	"github.com/phrazzld/cards-api/internal/platform/logger"
	"github.com/phrazzld/cards-api/internal/platform/memory"
	"github.com/phrazzld/cards-api/internal/service"
	"github.com/phrazzld/cards-api/internal/service/auth"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	testEncryptionKey = "api-test-card-encryption-key-32-chars"
	cardOne           = "4000001234567899"
	cardTwo           = "4000009876543219"
)

type testAPI struct {
	router  chi.Router
	db      *memory.DB
	cipher  *cardcrypto.Cipher
	holder  *domain.User
	other   *domain.User
	capture *logger.Capture
}

func newTestAPI(t *testing.T) *testAPI {
	t.Helper()

	log, capture := logger.NewCapture()
	db := memory.New(log)
	uow := memory.NewUnitOfWork(db, nil)
	cipher, err := cardcrypto.New(testEncryptionKey)
	require.NoError(t, err)

	cards, err := service.NewCardService(db.Cards(), db.Users(), uow, cipher, config.CardsConfig{
		EncryptionKey: testEncryptionKey, ValidityYears: 4, MaxGenerationAttempts: 5,
	}, log)
	require.NoError(t, err)
	ledger, err := service.NewLedgerService(uow, cipher, log)
	require.NoError(t, err)
	users, err := service.NewUserService(db.Users(), auth.NewBcryptVerifier(4), log)
	require.NoError(t, err)

	api := &testAPI{db: db, cipher: cipher, capture: capture}
	api.holder = api.addUser(t, "+79990000001")
	api.other = api.addUser(t, "+79990000002")

	cardHandler := NewCardHandler(cards, ledger, log)
	userHandler := NewUserHandler(users, log)

	r := chi.NewRouter()
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			ctx := logger.WithLogger(req.Context(), log)
			if who := req.Header.Get("X-Test-User"); who != "" {
				user := api.holder
				if who == "other" {
					user = api.other
				}
				ctx = shared.WithUser(ctx, user.ID, user.Role)
			}
			next.ServeHTTP(w, req.WithContext(ctx))
		})
	})
	r.Post("/cards", cardHandler.CreateCard)
	r.Delete("/cards", cardHandler.DeleteCard)
	r.Put("/cards/status", cardHandler.ChangeCardStatus)
	r.Get("/cards", cardHandler.ListCards)
	r.Get("/cards/block-requests", cardHandler.ListBlockRequests)
	r.Get("/cards/me", cardHandler.ListMyCards)
	r.Post("/cards/me/block-request", cardHandler.RequestBlock)
	r.Post("/cards/me/balance", cardHandler.GetBalance)
	r.Post("/cards/me/transfers", cardHandler.Transfer)
	r.Post("/users", userHandler.CreateUser)
	r.Put("/users/status", userHandler.ChangeUserStatus)
	api.router = r
	return api
}

func (a *testAPI) addUser(t *testing.T, phone string) *domain.User {
	t.Helper()
	u, err := domain.NewUser("Ivan", "Ivanov", "Ivanovich", phone, "hash", domain.RoleUser)
	require.NoError(t, err)
	require.NoError(t, a.db.Users().Create(context.Background(), u))
	return u
}

func (a *testAPI) addCard(t *testing.T, owner *domain.User, number, balance string) *domain.Card {
	t.Helper()
	enc, err := a.cipher.Encrypt(number)
	require.NoError(t, err)
	c, err := domain.NewCard(enc, domain.LastFour(number), owner.ID, testNow(), 4)
	require.NoError(t, err)
	c.Balance = decimal.RequireFromString(balance)
	require.NoError(t, a.db.Cards().Create(context.Background(), c))
	return c
}

func (a *testAPI) do(t *testing.T, method, path, user string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if s, ok := body.(string); ok {
			buf.WriteString(s)
		} else {
			require.NoError(t, json.NewEncoder(&buf).Encode(body))
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if user != "" {
		req.Header.Set("X-Test-User", user)
	}
	rec := httptest.NewRecorder()
	a.router.ServeHTTP(rec, req)
	return rec
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) shared.ErrorResponse {
	t.Helper()
	var resp shared.ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return resp
}

func TestCreateCardEndpoint(t *testing.T) {
	t.Parallel()
	a := newTestAPI(t)

	rec := a.do(t, http.MethodPost, "/cards", "", map[string]string{"phone": a.holder.Phone})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var card CardResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &card))
	assert.Regexp(t, `^\*{4} \*{4} \*{4} \d{4}$`, card.MaskedNumber)
	assert.Equal(t, a.holder.ID.String(), card.OwnerID)
	assert.Equal(t, domain.CardStatusActive, card.Status)
	assert.NotContains(t, rec.Body.String(), "encrypted")

	rec = a.do(t, http.MethodPost, "/cards", "", map[string]string{"phone": "+70000000000"})
	assert.Equal(t, http.StatusNotFound, rec.Code)
	rec = a.do(t, http.MethodPost, "/cards", "", map[string]string{"phone": "abc"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Invalid phone: invalid phone number format", decodeError(t, rec).Message)
}

func TestTransferEndpoint(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		user     string
		body     interface{}
		status   int
		message  string
		fromLeft string
	}{
		{
			name:     "success",
			user:     "holder",
			body:     map[string]string{"from_card": "4000 0012 3456 7899", "to_card": cardTwo, "amount": "30"},
			status:   http.StatusNoContent,
			fromLeft: "70.00",
		},
		{
			name:     "numeric amount",
			user:     "holder",
			body:     `{"from_card":"4000-0012-3456-7899","to_card":"4000009876543219","amount":12.5}`,
			status:   http.StatusNoContent,
			fromLeft: "87.50",
		},
		{
			name:     "insufficient funds",
			user:     "holder",
			body:     map[string]string{"from_card": cardOne, "to_card": cardTwo, "amount": "150"},
			status:   http.StatusConflict,
			message:  "insufficient funds",
			fromLeft: "100.00",
		},
		{
			name:     "foreign card",
			user:     "other",
			body:     map[string]string{"from_card": cardOne, "to_card": cardTwo, "amount": "1"},
			status:   http.StatusForbidden,
			message:  "sender card belongs to another user",
			fromLeft: "100.00",
		},
		{
			name:     "same card",
			user:     "holder",
			body:     map[string]string{"from_card": cardOne, "to_card": cardOne, "amount": "1"},
			status:   http.StatusBadRequest,
			message:  "cards are equal",
			fromLeft: "100.00",
		},
		{
			name:     "negative amount",
			user:     "holder",
			body:     map[string]string{"from_card": cardOne, "to_card": cardTwo, "amount": "-5"},
			status:   http.StatusBadRequest,
			fromLeft: "100.00",
		},
		{
			name:     "bad card format",
			user:     "holder",
			body:     map[string]string{"from_card": "1234", "to_card": cardTwo, "amount": "5"},
			status:   http.StatusBadRequest,
			fromLeft: "100.00",
		},
		{
			name:     "anonymous",
			body:     map[string]string{"from_card": cardOne, "to_card": cardTwo, "amount": "5"},
			status:   http.StatusUnauthorized,
			fromLeft: "100.00",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			a := newTestAPI(t)
			from := a.addCard(t, a.holder, cardOne, "100")
			a.addCard(t, a.holder, cardTwo, "0")

			rec := a.do(t, http.MethodPost, "/cards/me/transfers", tt.user, tt.body)
			assert.Equal(t, tt.status, rec.Code, rec.Body.String())
			if tt.message != "" {
				assert.Equal(t, tt.message, decodeError(t, rec).Message)
			}

			stored, err := a.db.Cards().GetByID(context.Background(), from.ID)
			require.NoError(t, err)
			assert.Equal(t, tt.fromLeft, stored.Balance.StringFixed(2))
			assert.NotContains(t, a.capture.String(), cardOne)
		})
	}
}

func TestHolderCardEndpoints(t *testing.T) {
	t.Parallel()
	a := newTestAPI(t)
	a.addCard(t, a.holder, cardOne, "42.10")

	rec := a.do(t, http.MethodPost, "/cards/me/balance", "holder", map[string]string{"card_number": cardOne})
	require.Equal(t, http.StatusOK, rec.Code)
	var bal struct {
		Balance decimal.Decimal `json:"balance"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &bal))
	assert.Equal(t, "42.10", bal.Balance.StringFixed(2))

	rec = a.do(t, http.MethodPost, "/cards/me/balance", "other", map[string]string{"card_number": cardOne})
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = a.do(t, http.MethodGet, "/cards/me?page=0&size=5", "holder", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var mine []service.MyCardInfo
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &mine))
	require.Len(t, mine, 1)
	assert.Equal(t, "**** **** **** 7899", mine[0].MaskedNumber)
	assert.NotContains(t, rec.Body.String(), "owner")

	rec = a.do(t, http.MethodPost, "/cards/me/block-request", "holder", map[string]string{"card_number": cardOne})
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = a.do(t, http.MethodGet, "/cards/block-requests", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var requests []service.CardInfo
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &requests))
	require.Len(t, requests, 1)
	assert.Equal(t, "Ivanov Ivan Ivanovich", requests[0].OwnerName)

	rec = a.do(t, http.MethodPut, "/cards/status", "", map[string]string{"card_number": cardOne, "status": "BLOCKED"})
	assert.Equal(t, http.StatusNoContent, rec.Code)
	rec = a.do(t, http.MethodPost, "/cards/me/block-request", "holder", map[string]string{"card_number": cardOne})
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = a.do(t, http.MethodPut, "/cards/status", "", map[string]string{"card_number": cardOne, "status": "EXPIRED"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAdminCardEndpoints(t *testing.T) {
	t.Parallel()
	a := newTestAPI(t)
	a.addCard(t, a.holder, cardOne, "1")
	a.addCard(t, a.other, cardTwo, "2")

	rec := a.do(t, http.MethodGet, "/cards?page=0&size=1", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var page []service.CardInfo
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &page))
	assert.Len(t, page, 1)

	for _, q := range []string{"page=-1", "size=0", "size=101", "page=x"} {
		rec = a.do(t, http.MethodGet, "/cards?"+q, "", nil)
		assert.Equal(t, http.StatusBadRequest, rec.Code, q)
	}

	rec = a.do(t, http.MethodDelete, "/cards", "", map[string]string{"card_number": cardOne})
	assert.Equal(t, http.StatusNoContent, rec.Code)
	rec = a.do(t, http.MethodDelete, "/cards", "", map[string]string{"card_number": cardOne})
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = a.do(t, http.MethodGet, "/cards", "", nil)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &page))
	assert.Len(t, page, 1)
}

func TestUserEndpoints(t *testing.T) {
	t.Parallel()
	a := newTestAPI(t)

	body := map[string]string{
		"name": "Анна-Мария", "surname": "Шишкина", "patronymic": "Петровна",
		"phone": "+79095550000", "password": "qwertyui",
	}
	rec := a.do(t, http.MethodPost, "/users", "", body)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.NotContains(t, rec.Body.String(), "qwertyui")
	assert.NotContains(t, rec.Body.String(), "password")

	rec = a.do(t, http.MethodPost, "/users", "", body)
	assert.Equal(t, http.StatusConflict, rec.Code)

	body["name"] = "R2D2"
	body["phone"] = "+79095550001"
	rec = a.do(t, http.MethodPost, "/users", "", body)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = a.do(t, http.MethodPut, "/users/status", "", map[string]string{"phone": a.holder.Phone, "status": "BLOCKED"})
	assert.Equal(t, http.StatusNoContent, rec.Code)
	rec = a.do(t, http.MethodPut, "/users/status", "", map[string]string{"phone": "+70000000000", "status": "BLOCKED"})
	assert.Equal(t, http.StatusNotFound, rec.Code)
	rec = a.do(t, http.MethodPut, "/users/status", "", map[string]string{"phone": a.holder.Phone, "status": "GONE"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestMalformedBodies(t *testing.T) {
	t.Parallel()
	a := newTestAPI(t)

	for _, body := range []string{``, `{`, `[]`, `{"phone":"+79990000001","extra":true}`} {
		rec := a.do(t, http.MethodPost, "/cards", "", body)
		assert.Equal(t, http.StatusBadRequest, rec.Code, body)
		assert.Equal(t, "BAD REQUEST", decodeError(t, rec).Code)
	}
}
