package sqlite

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/mattn/go-sqlite3"

	"github.com/jhoicas/pos-ledger/internal/domain"
)

// mapError traduce errores del driver a la taxonomía de dominio.
func mapError(err error) error {
	if err == nil {
		return nil
	}
	var se sqlite3.Error
	if !errors.As(err, &se) {
		return err
	}
	switch se.Code {
	case sqlite3.ErrBusy, sqlite3.ErrLocked:
		return fmt.Errorf("%w: %v", domain.ErrContention, err)
	case sqlite3.ErrConstraint:
		switch se.ExtendedCode {
		case sqlite3.ErrConstraintUnique, sqlite3.ErrConstraintPrimaryKey:
			return fmt.Errorf("%w: %v", domain.ErrDuplicate, err)
		case sqlite3.ErrConstraintForeignKey:
			return fmt.Errorf("%w: referencia inexistente: %v", domain.ErrNotFound, err)
		case sqlite3.ErrConstraintCheck:
			return fmt.Errorf("%w: %v", domain.ErrInvariantViolation, err)
		case sqlite3.ErrConstraintTrigger:
			return fmt.Errorf("%w: %v", domain.ErrForbidden, err)
		case sqlite3.ErrConstraintNotNull:
			return fmt.Errorf("%w: %v", domain.ErrInvalidInput, err)
		}
	}
	return err
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: t.UTC(), Valid: true}
}

func timePtr(t sql.NullTime) *time.Time {
	if !t.Valid {
		return nil
	}
	v := t.Time.UTC()
	return &v
}

// likePattern arma un patrón LIKE escapando comodines.
func likePattern(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return "%" + r.Replace(s) + "%"
}

// page normaliza limit/offset; limit <= 0 significa sin límite.
func page(limit, offset int) (int, int) {
	if limit <= 0 {
		limit = -1
	}
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}
