package postgres

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgconn"

	"github.com/jhoicas/pos-ledger/internal/domain"
)

// Códigos SQLSTATE que se traducen a la taxonomía de dominio.
const (
	codeUniqueViolation     = "23505"
	codeForeignKeyViolation = "23503"
	codeCheckViolation      = "23514"
	codeNotNullViolation    = "23502"
	codeRaiseException      = "P0001"
	codeSerialization       = "40001"
	codeDeadlock            = "40P01"
	codeLockNotAvailable    = "55P03"
	codeQueryCanceled       = "57014"
)

// mapError traduce errores del driver a la taxonomía de dominio.
func mapError(err error) error {
	if err == nil {
		return nil
	}
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return err
	}
	switch pgErr.Code {
	case codeUniqueViolation:
		return fmt.Errorf("%w: %s", domain.ErrDuplicate, pgErr.ConstraintName)
	case codeForeignKeyViolation:
		return fmt.Errorf("%w: referencia inexistente (%s)", domain.ErrNotFound, pgErr.ConstraintName)
	case codeCheckViolation:
		return fmt.Errorf("%w: %s", domain.ErrInvariantViolation, pgErr.ConstraintName)
	case codeNotNullViolation:
		return fmt.Errorf("%w: %s requerido", domain.ErrInvalidInput, pgErr.ColumnName)
	case codeRaiseException:
		return fmt.Errorf("%w: %s", domain.ErrForbidden, pgErr.Message)
	case codeSerialization, codeDeadlock, codeLockNotAvailable, codeQueryCanceled:
		return fmt.Errorf("%w: %s", domain.ErrContention, pgErr.Message)
	}
	return err
}

// nullString convierte "" en NULL.
func nullString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func nullTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := t.UTC()
	return &v
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func utcPtr(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := t.UTC()
	return &v
}

// params acumula argumentos posicionales ($1, $2, ...) para consultas con filtros opcionales.
type params []any

func (p *params) add(v any) string {
	*p = append(*p, v)
	return fmt.Sprintf("$%d", len(*p))
}

// page agrega LIMIT/OFFSET; limit <= 0 significa sin límite (LIMIT NULL).
func (p *params) page(limit, offset int) string {
	var lim any
	if limit > 0 {
		lim = limit
	}
	if offset < 0 {
		offset = 0
	}
	return " LIMIT " + p.add(lim) + " OFFSET " + p.add(offset)
}

type rowScanner interface {
	Scan(dest ...any) error
}

// escapeLike escapa comodines de LIKE (el escape por defecto en PostgreSQL es \).
func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
