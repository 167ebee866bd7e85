package auth_test

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/pos-ledger/internal/application/auth"
	"github.com/jhoicas/pos-ledger/internal/application/dto"
	"github.com/jhoicas/pos-ledger/internal/application/usecase"
	"github.com/jhoicas/pos-ledger/internal/domain"
	"github.com/jhoicas/pos-ledger/internal/infrastructure/sqlite/sqlitetest"
	"github.com/jhoicas/pos-ledger/pkg/jwt"
)

func TestLogin(t *testing.T) {
	st := sqlitetest.New(t)
	ctx := context.Background()
	branches := usecase.NewBranchUseCase(st.Repositories().Branches, decimal.RequireFromString("0.16"))
	b, err := branches.Create(ctx, dto.CreateBranchRequest{Name: "Centro"})
	require.NoError(t, err)

	users := usecase.NewUserUseCase(st.Users(), st.Repositories().Branches)
	_, err = users.Create(ctx, dto.CreateUserRequest{Username: "Caja1", Password: "secreto123", BranchID: b.ID})
	require.NoError(t, err)

	uc := auth.NewAuthUseCase(st.Users(), auth.JWTConfig{Secret: "k", ExpMinutes: 10, Issuer: "pos-ledger"})

	res, err := uc.Login(ctx, dto.LoginRequest{Username: "caja1", Password: "secreto123"})
	require.NoError(t, err)
	assert.Equal(t, "cashier", res.User.Role)
	claims, err := jwt.Parse("k", res.Token)
	require.NoError(t, err)
	assert.Equal(t, b.ID, claims.BranchID)
	assert.Equal(t, res.User.ID, claims.UserID)

	_, err = uc.Login(ctx, dto.LoginRequest{Username: "caja1", Password: "otra-clave"})
	assert.ErrorIs(t, err, domain.ErrUnauthorized)
	_, err = uc.Login(ctx, dto.LoginRequest{Username: "nadie", Password: "secreto123"})
	assert.ErrorIs(t, err, domain.ErrUnauthorized)
	_, err = uc.Login(ctx, dto.LoginRequest{})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}
