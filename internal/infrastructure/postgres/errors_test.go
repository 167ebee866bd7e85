package postgres

import (
	"errors"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"

	"github.com/jhoicas/pos-ledger/internal/domain"
)

func TestMapError(t *testing.T) {
	cases := []struct {
		code string
		want error
	}{
		{codeUniqueViolation, domain.ErrDuplicate},
		{codeForeignKeyViolation, domain.ErrNotFound},
		{codeCheckViolation, domain.ErrInvariantViolation},
		{codeNotNullViolation, domain.ErrInvalidInput},
		{codeRaiseException, domain.ErrForbidden},
		{codeSerialization, domain.ErrContention},
		{codeDeadlock, domain.ErrContention},
		{codeLockNotAvailable, domain.ErrContention},
		{codeQueryCanceled, domain.ErrContention},
	}
	for _, tc := range cases {
		t.Run(tc.code, func(t *testing.T) {
			err := mapError(&pgconn.PgError{Code: tc.code})
			assert.ErrorIs(t, err, tc.want)
		})
	}
}

func TestMapError_PassThrough(t *testing.T) {
	assert.NoError(t, mapError(nil))
	plain := errors.New("conexión cerrada")
	assert.Equal(t, plain, mapError(plain))
	other := &pgconn.PgError{Code: "42P01"}
	assert.Equal(t, error(other), mapError(other))
}

func TestParamsPage(t *testing.T) {
	args := params{"b1"}
	clause := args.page(0, -3)
	assert.Equal(t, " LIMIT $2 OFFSET $3", clause)
	assert.Nil(t, args[1])
	assert.Equal(t, 0, args[2])

	args = params{}
	assert.Equal(t, "$1", args.add("x"))
	assert.Equal(t, " LIMIT $2 OFFSET $3", args.page(20, 40))
	assert.Equal(t, 20, args[1])
}

func TestEscapeLike(t *testing.T) {
	assert.Equal(t, `50\%\_off\\`, escapeLike(`50%_off\`))
}
