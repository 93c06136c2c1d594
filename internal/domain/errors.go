package domain

import (
	"errors"
	"fmt"
)

// Errores de dominio (sin dependencias externas).
var (
	ErrNotFound           = errors.New("registro de stock no encontrado")
	ErrInvalidInput       = errors.New("entrada inválida")
	ErrUnitCostRequired   = fmt.Errorf("%w: unit cost is required for incoming stock", ErrInvalidInput)
	ErrNegativeStock      = errors.New("el ajuste dejaría el stock en negativo")
	ErrInsufficientLayers = errors.New("capas de compra insuficientes para cubrir la salida")
)

// StorageError envuelve fallos de persistencia que se propagan sin interpretar.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage: %s: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }

// NewStorageError construye un StorageError; devuelve nil si err es nil.
func NewStorageError(op string, err error) error {
	if err == nil {
		return nil
	}
	return &StorageError{Op: op, Err: err}
}
