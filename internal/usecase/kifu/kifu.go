package kifu

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"kifu_editor/internal/domain/document"
	"kifu_editor/internal/errors"
	"kifu_editor/internal/kifu"
)

type KifuStore interface {
	CreateSession(ctx context.Context, session document.Session) error
	GetSession(ctx context.Context, id string) (document.Session, error)
	SaveSession(ctx context.Context, session document.Session) error
	DeleteSession(ctx context.Context, id string) error

	ArchiveRecord(ctx context.Context, record document.ArchivedRecord) error
	GetArchivedRecord(ctx context.Context, id string) (document.ArchivedRecord, error)
	ListArchive(ctx context.Context, pageNum int) (*document.ArchiveResponse, error)
}

type KifuUseCase struct {
	store  KifuStore
	oracle kifu.ReachOracle
	now    func() time.Time

	mu    sync.Mutex
	locks map[string]*docLock
}

// docLock is held by at most one edit of a document; refs counts the edits
// holding or waiting for it so the entry can go once nobody does.
type docLock struct {
	sync.Mutex
	refs int
}

// NewKifuUseCase builds the use case. oracle may be nil, in which case
// records without an origin square are always taken for drops.
func NewKifuUseCase(store KifuStore, oracle kifu.ReachOracle) *KifuUseCase {
	return &KifuUseCase{
		store:  store,
		oracle: oracle,
		now:    time.Now,
		locks:  make(map[string]*docLock),
	}
}

// MutationResult is the session after an edit together with what the edit did.
type MutationResult struct {
	Session      document.Session
	Changed      bool
	UsedExisting bool
	CreatedNew   bool
	Requested    int
}

func (r MutationResult) Response() document.MutationResponse {
	return document.MutationResponse{
		ID:             r.Session.ID,
		Version:        r.Session.Version,
		Cursor:         r.Session.Cursor,
		TesuuPointer:   kifu.Encode(r.Session.Cursor),
		Changed:        r.Changed,
		UsedExisting:   r.UsedExisting,
		CreatedNew:     r.CreatedNew,
		RequestedTesuu: r.Requested,
	}
}

// lock serialises edits of one document. The returned func releases it.
func (k *KifuUseCase) lock(id string) func() {
	k.mu.Lock()
	l, ok := k.locks[id]
	if !ok {
		l = &docLock{}
		k.locks[id] = l
	}
	l.refs++
	k.mu.Unlock()

	l.Lock()
	return func() {
		l.Unlock()
		k.mu.Lock()
		l.refs--
		if l.refs == 0 {
			delete(k.locks, id)
		}
		k.mu.Unlock()
	}
}

func (k *KifuUseCase) Create(ctx context.Context, req document.CreateDocumentRequest) (document.Session, error) {
	var tree kifu.MoveTree
	if req.Document != nil {
		imported, err := kifu.Import(*req.Document)
		if err != nil {
			return document.Session{}, err
		}
		tree = imported
	} else {
		tree = kifu.NewTree(req.Header, req.Initial)
	}

	now := k.now()
	session := document.Session{
		ID:        uuid.New().String(),
		Document:  kifu.Export(tree),
		Version:   1,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := k.store.CreateSession(ctx, session); err != nil {
		return document.Session{}, err
	}
	return session, nil
}

func (k *KifuUseCase) Get(ctx context.Context, id string) (document.Session, error) {
	return k.store.GetSession(ctx, id)
}

// Tree returns the session together with its record as a tree.
func (k *KifuUseCase) Tree(ctx context.Context, id string) (document.Session, kifu.MoveTree, error) {
	session, err := k.store.GetSession(ctx, id)
	if err != nil {
		return document.Session{}, kifu.MoveTree{}, err
	}
	tree, err := kifu.Import(session.Document)
	if err != nil {
		return document.Session{}, kifu.MoveTree{}, fmt.Errorf("%w: stored document %s: %v", errors.ErrInternal, id, err)
	}
	return session, tree, nil
}

type edit func(tree kifu.MoveTree, cursor kifu.Cursor) (kifu.MoveTree, kifu.Cursor, error)

// mutate applies fn to the stored session and saves the result when the
// record or the cursor changed.
func (k *KifuUseCase) mutate(ctx context.Context, id string, expectedVersion int64, fn edit) (MutationResult, error) {
	unlock := k.lock(id)
	defer unlock()

	session, tree, err := k.Tree(ctx, id)
	if err != nil {
		return MutationResult{}, err
	}
	if expectedVersion != 0 && expectedVersion != session.Version {
		return MutationResult{}, fmt.Errorf("%w: have version %d, request expects %d",
			errors.ErrVersionConflict, session.Version, expectedVersion)
	}

	next, cursor, err := fn(tree, session.Cursor)
	if err != nil {
		return MutationResult{}, err
	}

	treeChanged := !kifu.ContentEqual(tree, next)
	if !treeChanged && kifu.Encode(cursor) == kifu.Encode(session.Cursor) {
		return MutationResult{Session: session}, nil
	}
	if treeChanged {
		session.Document = kifu.Export(next)
	}
	session.Cursor = cursor
	session.Version++
	session.UpdatedAt = k.now()
	if err := k.store.SaveSession(ctx, session); err != nil {
		return MutationResult{}, err
	}
	return MutationResult{Session: session, Changed: true}, nil
}

func cursorOr(c *kifu.Cursor, fallback kifu.Cursor) kifu.Cursor {
	if c != nil {
		return *c
	}
	return fallback
}

func (k *KifuUseCase) AppendMove(ctx context.Context, id string, req document.MoveRequest) (MutationResult, error) {
	var res kifu.InsertResult
	out, err := k.mutate(ctx, id, req.ExpectedVersion, func(tree kifu.MoveTree, cursor kifu.Cursor) (kifu.MoveTree, kifu.Cursor, error) {
		var err error
		res, err = kifu.AppendOrMergeMove(tree, cursorOr(req.Cursor, cursor), req.Move, k.oracle)
		return res.Tree, res.Cursor, err
	})
	if err != nil {
		return MutationResult{}, err
	}
	out.UsedExisting, out.CreatedNew = res.UsedExisting, res.CreatedNew
	out.Requested = out.Session.Cursor.Tesuu
	return out, nil
}

func (k *KifuUseCase) AppendSpecial(ctx context.Context, id string, req document.SpecialRequest) (MutationResult, error) {
	var res kifu.InsertResult
	out, err := k.mutate(ctx, id, req.ExpectedVersion, func(tree kifu.MoveTree, cursor kifu.Cursor) (kifu.MoveTree, kifu.Cursor, error) {
		var err error
		res, err = kifu.AppendSpecial(tree, cursorOr(req.Cursor, cursor), req.Special)
		return res.Tree, res.Cursor, err
	})
	if err != nil {
		return MutationResult{}, err
	}
	out.UsedExisting, out.CreatedNew = res.UsedExisting, res.CreatedNew
	out.Requested = out.Session.Cursor.Tesuu
	return out, nil
}

func (k *KifuUseCase) SetComments(ctx context.Context, id string, req document.CommentsRequest) (MutationResult, error) {
	return k.mutate(ctx, id, req.ExpectedVersion, func(tree kifu.MoveTree, cursor kifu.Cursor) (kifu.MoveTree, kifu.Cursor, error) {
		next, c := kifu.SetComments(tree, cursorOr(req.Cursor, cursor), req.Comments)
		return next, c, nil
	})
}

func (k *KifuUseCase) Truncate(ctx context.Context, id string, req document.TruncateRequest) (MutationResult, error) {
	return k.mutate(ctx, id, req.ExpectedVersion, func(tree kifu.MoveTree, cursor kifu.Cursor) (kifu.MoveTree, kifu.Cursor, error) {
		return kifu.TruncateAfter(tree, cursorOr(req.Cursor, cursor))
	})
}

func (k *KifuUseCase) SwapBranches(ctx context.Context, id string, req document.SwapBranchesRequest) (MutationResult, error) {
	return k.mutate(ctx, id, req.ExpectedVersion, func(tree kifu.MoveTree, cursor kifu.Cursor) (kifu.MoveTree, kifu.Cursor, error) {
		return kifu.SwapBranches(tree, cursor, req.BranchPoint, req.A, req.B)
	})
}

func (k *KifuUseCase) DeleteBranch(ctx context.Context, id string, req document.DeleteBranchRequest) (MutationResult, error) {
	return k.mutate(ctx, id, req.ExpectedVersion, func(tree kifu.MoveTree, cursor kifu.Cursor) (kifu.MoveTree, kifu.Cursor, error) {
		return kifu.DeleteBranch(tree, cursor, req.BranchPoint, req.Target)
	})
}

// Navigate moves the session cursor to ply te along its current line.
func (k *KifuUseCase) Navigate(ctx context.Context, id string, req document.NavigateRequest) (MutationResult, error) {
	out, err := k.mutate(ctx, id, 0, func(tree kifu.MoveTree, cursor kifu.Cursor) (kifu.MoveTree, kifu.Cursor, error) {
		return tree, kifu.Navigate(tree, cursor, req.Te), nil
	})
	out.Requested = req.Te
	return out, err
}

// Goto replaces the session cursor. A cursor that does not resolve stops
// at the last reachable ply; the result reports both plies.
func (k *KifuUseCase) Goto(ctx context.Context, id string, req document.GotoRequest) (MutationResult, error) {
	out, err := k.mutate(ctx, id, 0, func(tree kifu.MoveTree, _ kifu.Cursor) (kifu.MoveTree, kifu.Cursor, error) {
		return tree, kifu.Navigate(tree, req.Cursor, req.Cursor.Tesuu), nil
	})
	out.Requested = req.Cursor.Tesuu
	return out, err
}

func (k *KifuUseCase) Rows(ctx context.Context, id string) (document.RowsResponse, error) {
	session, tree, err := k.Tree(ctx, id)
	if err != nil {
		return document.RowsResponse{}, err
	}
	return document.RowsResponse{
		ID:           session.ID,
		Version:      session.Version,
		TesuuPointer: kifu.Encode(session.Cursor),
		Rows:         kifu.BuildRows(tree, session.Cursor),
	}, nil
}

// LiveUpdate returns the snapshot pushed to live subscribers.
func (k *KifuUseCase) LiveUpdate(ctx context.Context, id string) (document.LiveUpdate, error) {
	session, tree, err := k.Tree(ctx, id)
	if err != nil {
		return document.LiveUpdate{}, err
	}
	return document.LiveUpdate{
		ID:           session.ID,
		Version:      session.Version,
		Cursor:       session.Cursor,
		TesuuPointer: kifu.Encode(session.Cursor),
		Rows:         kifu.BuildRows(tree, session.Cursor),
	}, nil
}

// Stream returns the moves from the start to cursor, or to the session
// cursor when cursor is nil, in CSA notation.
func (k *KifuUseCase) Stream(ctx context.Context, id string, cursor *kifu.Cursor) (document.StreamResponse, error) {
	session, tree, err := k.Tree(ctx, id)
	if err != nil {
		return document.StreamResponse{}, err
	}
	c := cursorOr(cursor, session.Cursor)
	nodes := kifu.MaterializeStream(tree, c)
	moves := make([]string, 0, len(nodes)-1)
	for _, n := range nodes[1:] {
		moves = append(moves, kifu.CSAText(n))
	}
	return document.StreamResponse{
		ID:             session.ID,
		Version:        session.Version,
		TesuuPointer:   kifu.Encode(c),
		RequestedTesuu: c.Tesuu,
		ReachedTesuu:   len(nodes) - 1,
		Initial:        tree.Initial(),
		Moves:          moves,
	}, nil
}

// Archive stores a copy of the record for later browsing. The session stays open.
func (k *KifuUseCase) Archive(ctx context.Context, id string) (document.ArchivedRecord, error) {
	session, tree, err := k.Tree(ctx, id)
	if err != nil {
		return document.ArchivedRecord{}, err
	}
	raw, err := json.Marshal(session.Document)
	if err != nil {
		return document.ArchivedRecord{}, fmt.Errorf("%w: %v", errors.ErrInternal, err)
	}

	header := tree.Header()
	record := document.ArchivedRecord{
		ID:         uuid.New().String(),
		SessionID:  session.ID,
		Title:      header["棋戦"],
		Sente:      header["先手"],
		Gote:       header["後手"],
		MoveCount:  len(tree.MainLine()) - 1,
		ForkCount:  countForks(tree),
		ArchivedAt: k.now(),
		KifuJSON:   string(raw),
	}
	if err := k.store.ArchiveRecord(ctx, record); err != nil {
		return document.ArchivedRecord{}, err
	}
	return record, nil
}

func countForks(tree kifu.MoveTree) int {
	var walk func(seq kifu.MoveSequence) int
	walk = func(seq kifu.MoveSequence) int {
		n := 0
		for _, id := range seq {
			for _, fork := range tree.Node(id).Forks {
				n += 1 + walk(fork)
			}
		}
		return n
	}
	return walk(tree.MainLine())
}

func (k *KifuUseCase) ListArchive(ctx context.Context, pageNum int) (*document.ArchiveResponse, error) {
	if pageNum < 1 {
		pageNum = 1
	}
	return k.store.ListArchive(ctx, pageNum)
}

// OpenArchived starts a new session from an archived record.
func (k *KifuUseCase) OpenArchived(ctx context.Context, archiveID string) (document.Session, error) {
	record, err := k.store.GetArchivedRecord(ctx, archiveID)
	if err != nil {
		return document.Session{}, err
	}
	var doc kifu.Document
	if err := json.Unmarshal([]byte(record.KifuJSON), &doc); err != nil {
		return document.Session{}, fmt.Errorf("%w: archived record %s: %v", errors.ErrInternal, archiveID, err)
	}
	return k.Create(ctx, document.CreateDocumentRequest{Document: &doc})
}

func (k *KifuUseCase) Close(ctx context.Context, id string) error {
	unlock := k.lock(id)
	defer unlock()
	return k.store.DeleteSession(ctx, id)
}
