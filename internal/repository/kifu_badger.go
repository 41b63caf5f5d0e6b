package repo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/dgraph-io/badger/v4"
	"go.uber.org/zap"

	"kifu_editor/internal/domain/document"
	appErrors "kifu_editor/internal/errors"
)

const (
	badgerSessionPrefix = "session/"
	badgerArchivePrefix = "archive/"
)

// BadgerKifuStorage keeps sessions and the archive in an embedded badger
// database. Sessions expire after ttl, archived records never do.
type BadgerKifuStorage struct {
	db        *badger.DB
	log       *zap.SugaredLogger
	ttl       time.Duration
	pageLimit int
}

func NewBadgerKifuStorage(db *badger.DB, log *zap.SugaredLogger, ttl time.Duration, pageLimit int) *BadgerKifuStorage {
	return &BadgerKifuStorage{
		db:        db,
		log:       log,
		ttl:       ttl,
		pageLimit: pageLimitOrDefault(pageLimit),
	}
}

func (b *BadgerKifuStorage) sessionEntry(session document.Session) (*badger.Entry, error) {
	data, err := json.Marshal(session)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", appErrors.ErrInternal, err)
	}
	e := badger.NewEntry([]byte(badgerSessionPrefix+session.ID), data)
	if b.ttl > 0 {
		e = e.WithTTL(b.ttl)
	}
	return e, nil
}

func (b *BadgerKifuStorage) CreateSession(_ context.Context, session document.Session) error {
	e, err := b.sessionEntry(session)
	if err != nil {
		return err
	}
	return b.update(func(txn *badger.Txn) error {
		_, err := txn.Get(e.Key)
		if err == nil {
			return fmt.Errorf("%w: session %s already exists", appErrors.ErrInternal, session.ID)
		}
		if !errors.Is(err, badger.ErrKeyNotFound) {
			return err
		}
		return txn.SetEntry(e)
	})
}

func (b *BadgerKifuStorage) GetSession(_ context.Context, id string) (document.Session, error) {
	var session document.Session
	err := b.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(badgerSessionPrefix + id))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return appErrors.ErrDocumentNotFound
		}
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &session)
		})
	})
	if err != nil {
		return document.Session{}, b.wrap(err)
	}
	return session, nil
}

func (b *BadgerKifuStorage) SaveSession(_ context.Context, session document.Session) error {
	e, err := b.sessionEntry(session)
	if err != nil {
		return err
	}
	return b.update(func(txn *badger.Txn) error {
		if _, err := txn.Get(e.Key); errors.Is(err, badger.ErrKeyNotFound) {
			return appErrors.ErrDocumentNotFound
		} else if err != nil {
			return err
		}
		return txn.SetEntry(e)
	})
}

func (b *BadgerKifuStorage) DeleteSession(_ context.Context, id string) error {
	key := []byte(badgerSessionPrefix + id)
	return b.update(func(txn *badger.Txn) error {
		if _, err := txn.Get(key); errors.Is(err, badger.ErrKeyNotFound) {
			return appErrors.ErrDocumentNotFound
		} else if err != nil {
			return err
		}
		return txn.Delete(key)
	})
}

func (b *BadgerKifuStorage) ArchiveRecord(_ context.Context, record document.ArchivedRecord) error {
	data, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("%w: %v", appErrors.ErrInternal, err)
	}
	return b.update(func(txn *badger.Txn) error {
		return txn.Set([]byte(badgerArchivePrefix+record.ID), data)
	})
}

func (b *BadgerKifuStorage) GetArchivedRecord(_ context.Context, id string) (document.ArchivedRecord, error) {
	var record document.ArchivedRecord
	err := b.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(badgerArchivePrefix + id))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return appErrors.ErrArchiveNotFound
		}
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &record)
		})
	})
	if err != nil {
		return document.ArchivedRecord{}, b.wrap(err)
	}
	return record, nil
}

func (b *BadgerKifuStorage) ListArchive(_ context.Context, pageNum int) (*document.ArchiveResponse, error) {
	var records []document.ArchivedRecord
	err := b.db.View(func(txn *badger.Txn) error {
		prefix := []byte(badgerArchivePrefix)
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()

		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			var record document.ArchivedRecord
			err := it.Item().Value(func(val []byte) error {
				return json.Unmarshal(val, &record)
			})
			if err != nil {
				return err
			}
			records = append(records, record)
		}
		return nil
	})
	if err != nil {
		return nil, b.wrap(err)
	}

	sortArchive(records)
	return paginate(records, pageNum, b.pageLimit), nil
}

func (b *BadgerKifuStorage) update(fn func(txn *badger.Txn) error) error {
	if err := b.db.Update(fn); err != nil {
		return b.wrap(err)
	}
	return nil
}

// wrap leaves application errors alone and reports everything else as a
// storage failure.
func (b *BadgerKifuStorage) wrap(err error) error {
	switch {
	case errors.Is(err, appErrors.ErrDocumentNotFound),
		errors.Is(err, appErrors.ErrArchiveNotFound),
		errors.Is(err, appErrors.ErrInternal):
		return err
	}
	var syntaxErr *json.SyntaxError
	if errors.As(err, &syntaxErr) {
		return fmt.Errorf("%w: %v", appErrors.ErrInternal, err)
	}
	b.log.Errorf("badger: %v", err)
	return fmt.Errorf("%w: %v", appErrors.ErrStorageUnavailable, err)
}
