package document

import (
	"time"

	"kifu_editor/internal/kifu"
)

// Session is an open document: the record being edited and where the
// editor stands in it.
type Session struct {
	ID        string        `json:"id"`
	Document  kifu.Document `json:"document"`
	Cursor    kifu.Cursor   `json:"cursor"`
	Version   int64         `json:"version"`
	CreatedAt time.Time     `json:"created_at"`
	UpdatedAt time.Time     `json:"updated_at"`
}

type ArchivedRecord struct {
	ID         string    `json:"id" bson:"_id"`
	SessionID  string    `json:"session_id" bson:"session_id"`
	Title      string    `json:"title" bson:"title"`
	Sente      string    `json:"sente" bson:"sente"`
	Gote       string    `json:"gote" bson:"gote"`
	MoveCount  int       `json:"move_count" bson:"move_count"`
	ForkCount  int       `json:"fork_count" bson:"fork_count"`
	ArchivedAt time.Time `json:"archived_at" bson:"archived_at"`
	KifuJSON   string    `json:"kifu_json,omitempty" bson:"kifu_json"`
}

type ArchiveResponse struct {
	PageNum    int              `json:"page_num"`
	TotalPages int              `json:"total_pages"`
	Records    []ArchivedRecord `json:"records"`
}

type CreateDocumentRequest struct {
	Header   map[string]string `json:"header,omitempty"`
	Initial  *kifu.Initial     `json:"initial,omitempty"`
	Document *kifu.Document    `json:"document,omitempty"`
}

// Requests that edit a document may carry the cursor to edit at. Without
// one the session cursor is used. ExpectedVersion, when set, must match
// the stored version.
type MoveRequest struct {
	Cursor          *kifu.Cursor    `json:"cursor,omitempty"`
	Move            kifu.MoveRecord `json:"move"`
	ExpectedVersion int64           `json:"expected_version,omitempty"`
}

type SpecialRequest struct {
	Cursor          *kifu.Cursor `json:"cursor,omitempty"`
	Special         kifu.Special `json:"special"`
	ExpectedVersion int64        `json:"expected_version,omitempty"`
}

type CommentsRequest struct {
	Cursor          *kifu.Cursor `json:"cursor,omitempty"`
	Comments        []string     `json:"comments"`
	ExpectedVersion int64        `json:"expected_version,omitempty"`
}

type TruncateRequest struct {
	Cursor          *kifu.Cursor `json:"cursor,omitempty"`
	ExpectedVersion int64        `json:"expected_version,omitempty"`
}

type NavigateRequest struct {
	Te int `json:"te"`
}

type GotoRequest struct {
	Cursor kifu.Cursor `json:"cursor"`
}

type SwapBranchesRequest struct {
	BranchPoint     kifu.BranchPoint `json:"branch_point"`
	A               int              `json:"a"`
	B               int              `json:"b"`
	ExpectedVersion int64            `json:"expected_version,omitempty"`
}

type DeleteBranchRequest struct {
	BranchPoint     kifu.BranchPoint `json:"branch_point"`
	Target          int              `json:"target"`
	ExpectedVersion int64            `json:"expected_version,omitempty"`
}

type SessionResponse struct {
	ID           string            `json:"id"`
	Version      int64             `json:"version"`
	Cursor       kifu.Cursor       `json:"cursor"`
	TesuuPointer kifu.TesuuPointer `json:"tesuu_pointer"`
	Document     *kifu.Document    `json:"document,omitempty"`
}

type MutationResponse struct {
	ID           string            `json:"id"`
	Version      int64             `json:"version"`
	Cursor       kifu.Cursor       `json:"cursor"`
	TesuuPointer kifu.TesuuPointer `json:"tesuu_pointer"`
	Changed      bool              `json:"changed"`
	UsedExisting bool              `json:"used_existing"`
	CreatedNew   bool              `json:"created_new"`
	// RequestedTesuu differs from Cursor.Tesuu when navigation stopped early.
	RequestedTesuu int `json:"requested_tesuu"`
}

type RowsResponse struct {
	ID           string            `json:"id"`
	Version      int64             `json:"version"`
	TesuuPointer kifu.TesuuPointer `json:"tesuu_pointer"`
	Rows         []kifu.Row        `json:"rows"`
}

type StreamResponse struct {
	ID             string            `json:"id"`
	Version        int64             `json:"version"`
	TesuuPointer   kifu.TesuuPointer `json:"tesuu_pointer"`
	RequestedTesuu int               `json:"requested_tesuu"`
	ReachedTesuu   int               `json:"reached_tesuu"`
	Initial        *kifu.Initial     `json:"initial,omitempty"`
	Moves          []string          `json:"moves"`
}

// LiveUpdate is pushed to live subscribers after every change.
type LiveUpdate struct {
	ID           string            `json:"id"`
	Version      int64             `json:"version"`
	Cursor       kifu.Cursor       `json:"cursor"`
	TesuuPointer kifu.TesuuPointer `json:"tesuu_pointer"`
	Rows         []kifu.Row        `json:"rows"`
}

// LiveCommand is sent by live subscribers to edit or navigate.
type LiveCommand struct {
	Action string           `json:"action"`
	Te     int              `json:"te,omitempty"`
	Move   *kifu.MoveRecord `json:"move,omitempty"`
}

const (
	LiveActionMove     = "move"
	LiveActionNavigate = "navigate"
)
