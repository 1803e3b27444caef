package storage

import (
	"context"
	"errors"
)

var (
	ErrNoSuchMenu = errors.New("no such command prefix")
	ErrNoSuchItem = errors.New("no such item")
)

// Store holds the menu tables of an emulated device. A menu is addressed by
// its path, e.g. `/ip/address`, and holds rows of string properties. Every row
// has a `.id` property.
type Store interface {
	List(ctx context.Context, menu string) ([]map[string]string, error)
	Add(ctx context.Context, menu string, props map[string]string) (id string, err error)
	Update(ctx context.Context, menu, id string, props map[string]string) error
	Remove(ctx context.Context, menu, id string) error

	Restore(values []byte) error
	Backup() ([]byte, error)

	Close() error
}
