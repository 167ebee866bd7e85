package catalog_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/jhoicas/pos-ledger/internal/domain/catalog"
)

func TestSearchKey(t *testing.T) {
	assert.Equal(t, "cafe molido nandu", catalog.SearchKey("  Café  Molido Ñandú "))
	assert.Equal(t, "azucar", catalog.SearchKey("AZÚCAR"))
	assert.Equal(t, "", catalog.SearchKey("   "))
}

func TestNormalizeCode(t *testing.T) {
	assert.Equal(t, "ABC-001", catalog.NormalizeCode(" abc-001\n"))
}
