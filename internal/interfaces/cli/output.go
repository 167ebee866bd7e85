package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/jhoicas/pos-ledger/internal/domain"
)

// Códigos de salida.
const (
	ExitSuccess      = 0
	ExitRejected     = 1 // la operación fue rechazada por una regla de inventario o validación
	ExitCommandError = 2 // configuración, almacén o argumentos
	ExitRetryable    = 3 // contención; reintentar
)

// ExitError lleva el código de salida del comando.
type ExitError struct {
	Code    int
	Message string
	Err     error
}

func (e *ExitError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *ExitError) Unwrap() error { return e.Err }

func commandError(message string, err error) *ExitError {
	return &ExitError{Code: ExitCommandError, Message: message, Err: err}
}

// operationError clasifica un error devuelto por los motores.
func operationError(message string, err error) *ExitError {
	if domain.IsRetryable(err) {
		return &ExitError{Code: ExitRetryable, Message: message, Err: err}
	}
	return &ExitError{Code: ExitRejected, Message: message, Err: err}
}

// ExitCode extrae el código de salida; cualquier otro error es ExitRejected.
func ExitCode(err error) int {
	if err == nil {
		return ExitSuccess
	}
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr.Code
	}
	return ExitRejected
}

type response struct {
	Status string `json:"status"`
	Data   any    `json:"data,omitempty"`
	Error  string `json:"error,omitempty"`
	Code   int    `json:"code,omitempty"`
}

// printer escribe resultados como texto o JSON según --format.
type printer struct {
	format string
	w      io.Writer
}

func (p printer) success(text string, data any) error {
	if p.format == "json" {
		return json.NewEncoder(p.w).Encode(response{Status: "ok", Data: data})
	}
	_, err := fmt.Fprintln(p.w, text)
	return err
}

func (p printer) failure(err error) {
	if p.format == "json" {
		_ = json.NewEncoder(p.w).Encode(response{Status: "error", Error: err.Error(), Code: ExitCode(err)})
		return
	}
	fmt.Fprintf(p.w, "error: %v\n", err)
}
