package jwt

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateParse(t *testing.T) {
	tok, err := Generate("s3cret", "u1", "b1", "cashier", "pos-ledger", 5)
	require.NoError(t, err)

	c, err := Parse("s3cret", tok)
	require.NoError(t, err)
	assert.Equal(t, "u1", c.UserID)
	assert.Equal(t, "b1", c.BranchID)
	assert.Equal(t, "cashier", c.Role)
	assert.Equal(t, "pos-ledger", c.Issuer)
}

func TestParse_Rejects(t *testing.T) {
	tok, err := Generate("s3cret", "u1", "b1", "admin", "pos-ledger", 5)
	require.NoError(t, err)

	_, err = Parse("otro", tok)
	assert.Error(t, err)

	expired, err := Generate("s3cret", "u1", "b1", "admin", "pos-ledger", -1)
	require.NoError(t, err)
	_, err = Parse("s3cret", expired)
	assert.Error(t, err)

	_, err = Generate("", "u1", "", "admin", "x", 5)
	assert.ErrorIs(t, err, ErrEmptySecret)
}
