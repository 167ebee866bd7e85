package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/pos-ledger/internal/application/dto"
	"github.com/jhoicas/pos-ledger/internal/domain"
	"github.com/jhoicas/pos-ledger/internal/domain/entity"
)

func errorResponse(t *testing.T, err error) (*http.Response, dto.ErrorResponse) {
	t.Helper()
	app := fiber.New()
	app.Get("/", func(c *fiber.Ctx) error { return respondError(c, err) })
	resp, rerr := app.Test(httptest.NewRequest(http.MethodGet, "/", nil), -1)
	require.NoError(t, rerr)
	defer resp.Body.Close()
	var body dto.ErrorResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	return resp, body
}

func TestRespondError_Mapeo(t *testing.T) {
	cases := []struct {
		err    error
		status int
		code   string
	}{
		{fmt.Errorf("%w: cantidad", domain.ErrInvalidInput), 400, "VALIDATION"},
		{domain.ErrUnauthorized, 401, "UNAUTHORIZED"},
		{domain.ErrForbidden, 403, "FORBIDDEN"},
		{fmt.Errorf("%w: producto", domain.ErrNotFound), 404, "NOT_FOUND"},
		{domain.ErrInvariantViolation, 409, "INVARIANT_VIOLATION"},
		{domain.ErrInvalidStateTransition, 409, "INVALID_STATE"},
		{domain.ErrDuplicate, 409, "DUPLICATE"},
		{domain.ErrInactive, 409, "INACTIVE"},
		{errors.New("disco lleno"), 500, "INTERNAL"},
	}
	for _, tc := range cases {
		resp, body := errorResponse(t, tc.err)
		assert.Equal(t, tc.status, resp.StatusCode, tc.code)
		assert.Equal(t, tc.code, body.Code)
		assert.False(t, body.Retryable, tc.code)
		assert.Empty(t, resp.Header.Get(fiber.HeaderRetryAfter), tc.code)
	}
}

func TestRespondError_InternoNoFiltraDetalle(t *testing.T) {
	_, body := errorResponse(t, errors.New("pq: password authentication failed"))
	assert.Equal(t, "error interno", body.Message)
}

func TestRespondError_ContencionEsReintentable(t *testing.T) {
	resp, body := errorResponse(t, fmt.Errorf("%w: p1/b1", domain.ErrContention))
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
	assert.Equal(t, "CONTENTION", body.Code)
	assert.True(t, body.Retryable)
	assert.Equal(t, RetryAfterSeconds, resp.Header.Get(fiber.HeaderRetryAfter))
}

func TestRespondError_StockInsuficienteIncluyeDetalle(t *testing.T) {
	err := fmt.Errorf("línea 2: %w", &domain.StockError{
		Kind: domain.ErrInsufficientStock, Op: "reserve", ProductID: "p1", BranchID: "b1", Requested: 5, Available: 3,
	})
	resp, body := errorResponse(t, err)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	assert.Equal(t, "INSUFFICIENT_STOCK", body.Code)
	require.NotNil(t, body.Stock)
	assert.Equal(t, int64(5), body.Stock.Requested)
	assert.Equal(t, int64(3), body.Stock.Available)
}

func TestScopeBranch(t *testing.T) {
	run := func(role, own, requested string) (string, bool) {
		var got string
		var ok bool
		app := fiber.New()
		app.Get("/", func(c *fiber.Ctx) error {
			c.Locals(LocalRole, role)
			c.Locals(LocalBranchID, own)
			got, ok = scopeBranch(c, requested)
			return nil
		})
		_, err := app.Test(httptest.NewRequest(http.MethodGet, "/", nil), -1)
		require.NoError(t, err)
		return got, ok
	}

	got, ok := run(entity.RoleCashier, "b1", "")
	assert.True(t, ok)
	assert.Equal(t, "b1", got)

	_, ok = run(entity.RoleCashier, "b1", "b2")
	assert.False(t, ok)

	got, ok = run(entity.RoleSupervisor, "b1", "b2")
	assert.True(t, ok)
	assert.Equal(t, "b2", got)
}
