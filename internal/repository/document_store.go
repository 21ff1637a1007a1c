package repository

import (
	"context"
	"errors"
)

var (
	ErrNotFound        = errors.New("document not found")
	ErrVersionConflict = errors.New("document version conflict")
	ErrExists          = errors.New("document already exists")
)

// Document es un valor JSON con la version que le asigno el store.
// Las versiones son unicas en todo el store: un path borrado y recreado
// nunca repite una version anterior.
type Document struct {
	Value   []byte
	Version int64
}

// DocumentStore define un almacen clave-valor de documentos JSON
// direccionados por path, con compare-and-swap sobre la version.
type DocumentStore interface {
	Get(ctx context.Context, path string) (Document, error)
	// Create escribe solo si el path no existe; si existe devuelve ErrExists.
	Create(ctx context.Context, path string, value []byte) (int64, error)
	// Set escribe sin condiciones y devuelve la nueva version.
	Set(ctx context.Context, path string, value []byte) (int64, error)
	// CompareAndSwap escribe solo si la version actual es version.
	CompareAndSwap(ctx context.Context, path string, version int64, value []byte) (int64, error)
	// CompareAndDelete borra solo si la version actual es version.
	CompareAndDelete(ctx context.Context, path string, version int64) error
}
