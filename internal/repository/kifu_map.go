package repo

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"

	"kifu_editor/internal/domain/document"
	appErrors "kifu_editor/internal/errors"
)

// MapKifuStorage keeps everything in process memory. Sessions are stored
// encoded so that callers never share state with the store.
type MapKifuStorage struct {
	mu        sync.RWMutex
	sessions  map[string][]byte
	archive   map[string]document.ArchivedRecord
	pageLimit int
}

func NewMapKifuStorage(pageLimit int) *MapKifuStorage {
	return &MapKifuStorage{
		sessions:  make(map[string][]byte),
		archive:   make(map[string]document.ArchivedRecord),
		pageLimit: pageLimitOrDefault(pageLimit),
	}
}

func (m *MapKifuStorage) CreateSession(_ context.Context, session document.Session) error {
	data, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("%w: %v", appErrors.ErrInternal, err)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.sessions[session.ID]; ok {
		return fmt.Errorf("%w: session %s already exists", appErrors.ErrInternal, session.ID)
	}
	m.sessions[session.ID] = data
	return nil
}

func (m *MapKifuStorage) GetSession(_ context.Context, id string) (document.Session, error) {
	m.mu.RLock()
	data, ok := m.sessions[id]
	m.mu.RUnlock()
	if !ok {
		return document.Session{}, appErrors.ErrDocumentNotFound
	}
	var session document.Session
	if err := json.Unmarshal(data, &session); err != nil {
		return document.Session{}, fmt.Errorf("%w: %v", appErrors.ErrInternal, err)
	}
	return session, nil
}

func (m *MapKifuStorage) SaveSession(_ context.Context, session document.Session) error {
	data, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("%w: %v", appErrors.ErrInternal, err)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.sessions[session.ID]; !ok {
		return appErrors.ErrDocumentNotFound
	}
	m.sessions[session.ID] = data
	return nil
}

func (m *MapKifuStorage) DeleteSession(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.sessions[id]; !ok {
		return appErrors.ErrDocumentNotFound
	}
	delete(m.sessions, id)
	return nil
}

func (m *MapKifuStorage) ArchiveRecord(_ context.Context, record document.ArchivedRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.archive[record.ID] = record
	return nil
}

func (m *MapKifuStorage) GetArchivedRecord(_ context.Context, id string) (document.ArchivedRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	record, ok := m.archive[id]
	if !ok {
		return document.ArchivedRecord{}, appErrors.ErrArchiveNotFound
	}
	return record, nil
}

func (m *MapKifuStorage) ListArchive(_ context.Context, pageNum int) (*document.ArchiveResponse, error) {
	m.mu.RLock()
	records := make([]document.ArchivedRecord, 0, len(m.archive))
	for _, r := range m.archive {
		records = append(records, r)
	}
	m.mu.RUnlock()

	sortArchive(records)
	return paginate(records, pageNum, m.pageLimit), nil
}

// sortArchive orders records newest first.
func sortArchive(records []document.ArchivedRecord) {
	sort.SliceStable(records, func(i, j int) bool {
		if records[i].ArchivedAt.Equal(records[j].ArchivedAt) {
			return records[i].ID < records[j].ID
		}
		return records[i].ArchivedAt.After(records[j].ArchivedAt)
	})
}
