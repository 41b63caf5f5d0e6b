package kifu

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"kifu_editor/internal/bootstrap"
	"kifu_editor/internal/domain/document"
	"kifu_editor/internal/kifu"
	repo "kifu_editor/internal/repository"
	kifuuc "kifu_editor/internal/usecase/kifu"
)

type envelope struct {
	Status int             `json:"Status"`
	Body   json.RawMessage `json:"Body"`
}

func newServer(t *testing.T) *httptest.Server {
	t.Helper()
	uc := kifuuc.NewKifuUseCase(repo.NewMapKifuStorage(20), nil)
	h := NewKifuHandler(bootstrap.Config{}, zap.NewNop().Sugar(), uc)
	r := chi.NewRouter()
	h.Routes(r)
	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return srv
}

func call(t *testing.T, srv *httptest.Server, method, path, body string, out any) int {
	t.Helper()
	req, err := http.NewRequest(method, srv.URL+path, strings.NewReader(body))
	if err != nil {
		t.Fatal(err)
	}
	resp, err := srv.Client().Do(req)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()

	var env envelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		t.Fatalf("%s %s: decode: %v", method, path, err)
	}
	if env.Status != resp.StatusCode {
		t.Fatalf("envelope status %d, response status %d", env.Status, resp.StatusCode)
	}
	if out != nil && len(env.Body) > 0 {
		if err := json.Unmarshal(env.Body, out); err != nil {
			t.Fatalf("%s %s: body: %v", method, path, err)
		}
	}
	return resp.StatusCode
}

func createDocument(t *testing.T, srv *httptest.Server) string {
	t.Helper()
	var s document.SessionResponse
	if code := call(t, srv, http.MethodPost, "/documents", `{"header":{"先手":"A"}}`, &s); code != http.StatusCreated {
		t.Fatalf("create: %d", code)
	}
	if s.ID == "" || s.TesuuPointer != "0,[]" {
		t.Fatalf("create response %+v", s)
	}
	return s.ID
}

const (
	move76 = `{"move":{"color":0,"from":{"x":7,"y":7},"to":{"x":7,"y":6},"piece":"FU"}}`
	move26 = `{"cursor":{"tesuu":0,"forkPointers":[]},"move":{"color":0,"from":{"x":2,"y":7},"to":{"x":2,"y":6},"piece":"FU"}}`
)

func TestMovesAndBranches(t *testing.T) {
	srv := newServer(t)
	id := createDocument(t, srv)

	var m document.MutationResponse
	if code := call(t, srv, http.MethodPost, "/documents/"+id+"/moves", move76, &m); code != http.StatusOK {
		t.Fatalf("move: %d", code)
	}
	if !m.Changed || m.Version != 2 || m.TesuuPointer != "1,[]" {
		t.Fatalf("move response %+v", m)
	}

	if code := call(t, srv, http.MethodPost, "/documents/"+id+"/moves", move26, &m); code != http.StatusOK {
		t.Fatalf("fork: %d", code)
	}
	if !m.CreatedNew || m.TesuuPointer != "1,[1:0]" {
		t.Fatalf("fork response %+v", m)
	}

	var rows document.RowsResponse
	if code := call(t, srv, http.MethodGet, "/documents/"+id+"/rows", "", &rows); code != http.StatusOK {
		t.Fatalf("rows: %d", code)
	}
	if len(rows.Rows) != 2 || rows.Rows[1].NotationText != "☗２六歩" {
		t.Fatalf("rows %+v", rows.Rows)
	}

	code := call(t, srv, http.MethodPost, "/documents/"+id+"/branches/delete",
		`{"branch_point":{"te":1,"prefix":[]},"target":0}`, nil)
	if code != http.StatusConflict {
		t.Fatalf("delete main: %d, want 409", code)
	}

	code = call(t, srv, http.MethodPost, "/documents/"+id+"/branches/swap",
		`{"branch_point":{"te":1,"prefix":[]},"a":0,"b":5}`, nil)
	if code != http.StatusBadRequest {
		t.Fatalf("swap out of range: %d, want 400", code)
	}

	if code := call(t, srv, http.MethodPost, "/documents/"+id+"/branches/swap",
		`{"branch_point":{"te":1,"prefix":[]},"a":0,"b":1}`, &m); code != http.StatusOK {
		t.Fatalf("swap: %d", code)
	}
	if m.TesuuPointer != "1,[]" {
		t.Fatalf("swap cursor %s", m.TesuuPointer)
	}

	var stream document.StreamResponse
	if code := call(t, srv, http.MethodGet, "/documents/"+id+"/stream?pointer="+url.QueryEscape("1,[1:0]"), "", &stream); code != http.StatusOK {
		t.Fatalf("stream: %d", code)
	}
	if len(stream.Moves) != 1 || stream.Moves[0] != "+7776FU" {
		t.Fatalf("stream %+v", stream)
	}

	if code := call(t, srv, http.MethodGet, "/documents/"+id+"/stream?pointer=bad", "", nil); code != http.StatusBadRequest {
		t.Fatalf("bad pointer: %d", code)
	}
}

func TestVersionConflictAndNotFound(t *testing.T) {
	srv := newServer(t)
	id := createDocument(t, srv)

	body := `{"move":{"color":0,"from":{"x":7,"y":7},"to":{"x":7,"y":6},"piece":"FU"},"expected_version":5}`
	if code := call(t, srv, http.MethodPost, "/documents/"+id+"/moves", body, nil); code != http.StatusConflict {
		t.Fatalf("stale version: %d, want 409", code)
	}
	if code := call(t, srv, http.MethodGet, "/documents/nope/rows", "", nil); code != http.StatusNotFound {
		t.Fatalf("unknown document: %d, want 404", code)
	}
	if code := call(t, srv, http.MethodPost, "/documents/"+id+"/moves", `{"move":`, nil); code != http.StatusBadRequest {
		t.Fatalf("malformed body: %d, want 400", code)
	}
	invalid := `{"move":{"color":0,"to":{"x":0,"y":6},"piece":"FU"}}`
	if code := call(t, srv, http.MethodPost, "/documents/"+id+"/moves", invalid, nil); code != http.StatusBadRequest {
		t.Fatalf("invalid move: %d, want 400", code)
	}
}

func TestNavigateReportsRequested(t *testing.T) {
	srv := newServer(t)
	id := createDocument(t, srv)
	call(t, srv, http.MethodPost, "/documents/"+id+"/moves", move76, nil)

	var m document.MutationResponse
	if code := call(t, srv, http.MethodPost, "/documents/"+id+"/navigate", `{"te":7}`, &m); code != http.StatusOK {
		t.Fatalf("navigate: %d", code)
	}
	if m.RequestedTesuu != 7 || m.Cursor.Tesuu != 1 {
		t.Fatalf("navigate response %+v", m)
	}
}

func TestTruncateRefusedWithVariations(t *testing.T) {
	srv := newServer(t)
	id := createDocument(t, srv)
	call(t, srv, http.MethodPost, "/documents/"+id+"/moves", move76, nil)
	call(t, srv, http.MethodPost, "/documents/"+id+"/moves", move26, nil)

	code := call(t, srv, http.MethodPost, "/documents/"+id+"/truncate", `{"cursor":{"tesuu":0,"forkPointers":[]}}`, nil)
	if code != http.StatusConflict {
		t.Fatalf("truncate over a branch point: %d, want 409", code)
	}
}

func TestExportFormats(t *testing.T) {
	srv := newServer(t)
	id := createDocument(t, srv)
	call(t, srv, http.MethodPost, "/documents/"+id+"/moves", move76, nil)

	for _, tc := range []struct {
		format      string
		contentType string
		contains    []byte
	}{
		{"kif", "text/plain; charset=utf-8", []byte("   1 ７六歩(77)")},
		{"csa", "text/plain; charset=utf-8", []byte("+7776FU")},
		{"kif-sjis", "text/plain; charset=Shift_JIS", []byte("(77)")},
		{"pdf", "application/pdf", []byte("%PDF-")},
	} {
		t.Run(tc.format, func(t *testing.T) {
			resp, err := srv.Client().Get(srv.URL + "/documents/" + id + "/export?format=" + tc.format)
			if err != nil {
				t.Fatal(err)
			}
			defer resp.Body.Close()
			body, _ := io.ReadAll(resp.Body)
			if resp.StatusCode != http.StatusOK || resp.Header.Get("Content-Type") != tc.contentType {
				t.Fatalf("status %d content type %q", resp.StatusCode, resp.Header.Get("Content-Type"))
			}
			if !bytes.Contains(body, tc.contains) {
				t.Fatalf("body does not contain %q", tc.contains)
			}
		})
	}

	var doc kifu.Document
	if code := call(t, srv, http.MethodGet, "/documents/"+id+"/export", "", &doc); code != http.StatusOK {
		t.Fatalf("json export: %d", code)
	}
	if len(doc.Moves) != 2 {
		t.Fatalf("json export has %d entries", len(doc.Moves))
	}

	if code := call(t, srv, http.MethodGet, "/documents/"+id+"/export?format=sgf", "", nil); code != http.StatusBadRequest {
		t.Fatalf("unknown format: %d", code)
	}
}

func TestExportCSACustomPositionWithoutBoard(t *testing.T) {
	srv := newServer(t)
	var s document.SessionResponse
	if code := call(t, srv, http.MethodPost, "/documents", `{"initial":{"preset":"OTHER"}}`, &s); code != http.StatusCreated {
		t.Fatalf("create: %d", code)
	}
	if code := call(t, srv, http.MethodGet, "/documents/"+s.ID+"/export?format=csa", "", nil); code != http.StatusBadRequest {
		t.Fatalf("csa export of a position without board data: %d", code)
	}
}

func TestArchiveFlow(t *testing.T) {
	srv := newServer(t)
	id := createDocument(t, srv)
	call(t, srv, http.MethodPost, "/documents/"+id+"/moves", move76, nil)

	var rec document.ArchivedRecord
	if code := call(t, srv, http.MethodPost, "/documents/"+id+"/archive", "", &rec); code != http.StatusCreated {
		t.Fatalf("archive: %d", code)
	}
	if rec.Sente != "A" || rec.MoveCount != 1 || rec.KifuJSON != "" {
		t.Fatalf("archive response %+v", rec)
	}

	var page document.ArchiveResponse
	if code := call(t, srv, http.MethodGet, "/archive?page=1", "", &page); code != http.StatusOK {
		t.Fatalf("list: %d", code)
	}
	if page.TotalPages != 1 || len(page.Records) != 1 {
		t.Fatalf("page %+v", page)
	}
	if code := call(t, srv, http.MethodGet, "/archive?page=zero", "", nil); code != http.StatusBadRequest {
		t.Fatalf("bad page: %d", code)
	}

	var s document.SessionResponse
	if code := call(t, srv, http.MethodPost, "/archive/"+rec.ID+"/open", "", &s); code != http.StatusCreated {
		t.Fatalf("open: %d", code)
	}
	if s.ID == id || s.Document == nil || len(s.Document.Moves) != 2 {
		t.Fatalf("open response %+v", s)
	}

	if code := call(t, srv, http.MethodDelete, "/documents/"+id, "", nil); code != http.StatusOK {
		t.Fatalf("close: %d", code)
	}
	if code := call(t, srv, http.MethodGet, "/documents/"+id, "", nil); code != http.StatusNotFound {
		t.Fatalf("closed document: %d", code)
	}
}

func readUpdate(t *testing.T, conn *websocket.Conn) document.LiveUpdate {
	t.Helper()
	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	var u document.LiveUpdate
	if err := conn.ReadJSON(&u); err != nil {
		t.Fatalf("read live update: %v", err)
	}
	return u
}

func TestLiveUpdates(t *testing.T) {
	srv := newServer(t)
	id := createDocument(t, srv)

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/documents/" + id + "/live"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	if u := readUpdate(t, conn); u.Version != 1 || len(u.Rows) != 1 {
		t.Fatalf("snapshot %+v", u)
	}

	call(t, srv, http.MethodPost, "/documents/"+id+"/moves", move76, nil)
	u := readUpdate(t, conn)
	if u.Version != 2 || u.TesuuPointer != "1,[]" || len(u.Rows) != 2 || !u.Rows[1].IsActiveRow {
		t.Fatalf("update after move %+v", u)
	}

	if err := conn.WriteJSON(document.LiveCommand{Action: document.LiveActionNavigate, Te: 0}); err != nil {
		t.Fatal(err)
	}
	u = readUpdate(t, conn)
	if u.Cursor.Tesuu != 0 || !u.Rows[0].IsActiveRow {
		t.Fatalf("update after navigate %+v", u)
	}

	p34 := kifu.MoveRecord{Color: kifu.White, From: &kifu.Square{X: 3, Y: 3}, To: kifu.Square{X: 3, Y: 4}, Piece: kifu.Fu}
	if err := conn.WriteJSON(document.LiveCommand{Action: document.LiveActionMove, Move: &p34}); err != nil {
		t.Fatal(err)
	}
	u = readUpdate(t, conn)
	if u.TesuuPointer != "1,[1:0]" {
		t.Fatalf("update after live move %+v", u)
	}
}
