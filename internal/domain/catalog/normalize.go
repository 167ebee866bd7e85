// Package catalog contiene reglas puras del catálogo de productos.
package catalog

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// SearchKey normaliza un nombre para búsqueda: minúsculas, sin tildes y con
// espacios colapsados. "Café  Molido Ñandú" -> "cafe molido nandu".
func SearchKey(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, s)
	if err != nil {
		out = s
	}
	return strings.Join(strings.Fields(strings.ToLower(out)), " ")
}

// NormalizeCode limpia un SKU o código de barras leído por escáner.
func NormalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}
