package adapters

import (
	"context"
	"fmt"
	"log"

	"github.com/dgraph-io/badger/v4"

	"kifu_editor/internal/bootstrap"
)

// AdapterBadger opens the embedded store used when no redis or mongo is
// available.
type AdapterBadger struct {
	db  *badger.DB
	cfg *bootstrap.Config
}

func NewAdapterBadger(cfg *bootstrap.Config) *AdapterBadger {
	return &AdapterBadger{
		cfg: cfg,
	}
}

func (a *AdapterBadger) Init(_ context.Context) error {
	opts := badger.DefaultOptions(a.cfg.BadgerDir)
	opts.Logger = nil

	db, err := badger.Open(opts)
	if err != nil {
		return fmt.Errorf("failed to open badger at %s: %w", a.cfg.BadgerDir, err)
	}
	a.db = db

	log.Printf("opened badger at %s", a.cfg.BadgerDir)
	return nil
}

func (a *AdapterBadger) GetDB() *badger.DB {
	return a.db
}

func (a *AdapterBadger) Close(_ context.Context) error {
	if a.db != nil {
		return a.db.Close()
	}
	return nil
}
