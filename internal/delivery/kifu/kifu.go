package kifu

import (
	"bytes"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"kifu_editor/internal/bootstrap"
	"kifu_editor/internal/domain/document"
	appErrors "kifu_editor/internal/errors"
	"kifu_editor/internal/export"
	"kifu_editor/internal/httpresponse"
	"kifu_editor/internal/kifu"
	kifuuc "kifu_editor/internal/usecase/kifu"
	"kifu_editor/internal/utils"
)

type KifuHandler struct {
	cfg    bootstrap.Config
	log    *zap.SugaredLogger
	kifuUC *kifuuc.KifuUseCase
	hub    *LiveHub
}

func NewKifuHandler(cfg bootstrap.Config, log *zap.SugaredLogger, kifuUC *kifuuc.KifuUseCase) *KifuHandler {
	return &KifuHandler{
		cfg:    cfg,
		log:    log,
		kifuUC: kifuUC,
		hub:    NewLiveHub(log),
	}
}

func (h *KifuHandler) Routes(r chi.Router) {
	r.Post("/documents", h.HandleCreate)
	r.Route("/documents/{id}", func(r chi.Router) {
		r.Get("/", h.HandleGet)
		r.Delete("/", h.HandleClose)
		r.Post("/moves", h.HandleAppendMove)
		r.Post("/specials", h.HandleAppendSpecial)
		r.Put("/comments", h.HandleSetComments)
		r.Post("/truncate", h.HandleTruncate)
		r.Post("/navigate", h.HandleNavigate)
		r.Post("/goto", h.HandleGoto)
		r.Post("/branches/swap", h.HandleSwapBranches)
		r.Post("/branches/delete", h.HandleDeleteBranch)
		r.Get("/rows", h.HandleRows)
		r.Get("/stream", h.HandleStream)
		r.Get("/export", h.HandleExport)
		r.Post("/archive", h.HandleArchive)
		r.Get("/live", h.HandleLive)
	})
	r.Get("/archive", h.HandleListArchive)
	r.Post("/archive/{id}/open", h.HandleOpenArchived)
}

// statusFor maps use case and core errors to HTTP statuses.
func statusFor(err error) int {
	switch {
	case errors.Is(err, kifu.ErrCannotDeleteMain),
		errors.Is(err, kifu.ErrHasVariations),
		errors.Is(err, appErrors.ErrVersionConflict):
		return http.StatusConflict
	case errors.Is(err, appErrors.ErrDocumentNotFound),
		errors.Is(err, appErrors.ErrArchiveNotFound):
		return http.StatusNotFound
	case errors.Is(err, kifu.ErrInvalidBranchPoint),
		errors.Is(err, kifu.ErrInvalidBranchIndex),
		errors.Is(err, kifu.ErrInvalidForkPath),
		errors.Is(err, kifu.ErrInvalidCursor),
		errors.Is(err, kifu.ErrInvalidMove),
		errors.Is(err, kifu.ErrInvalidDocument),
		errors.Is(err, appErrors.ErrInvalidRequest):
		return http.StatusBadRequest
	case errors.Is(err, appErrors.ErrStorageUnavailable):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func (h *KifuHandler) writeError(w http.ResponseWriter, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		h.log.Errorf("request failed: %v", err)
		httpresponse.WriteErrorResponse(w, status, http.StatusText(status))
		return
	}
	h.log.Debugf("request rejected: %v", err)
	httpresponse.WriteErrorResponse(w, status, err.Error())
}

func (h *KifuHandler) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := utils.DecodeJSONRequest(r, dst); err != nil {
		h.log.Debugf("bad request body: %v", err)
		httpresponse.WriteErrorResponse(w, http.StatusBadRequest, httpresponse.MALFORMEDJSON_errorDesc+": "+err.Error())
		return false
	}
	return true
}

func sessionResponse(s document.Session, withDocument bool) document.SessionResponse {
	resp := document.SessionResponse{
		ID:           s.ID,
		Version:      s.Version,
		Cursor:       s.Cursor,
		TesuuPointer: kifu.Encode(s.Cursor),
	}
	if withDocument {
		doc := s.Document
		resp.Document = &doc
	}
	return resp
}

func (h *KifuHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	var req document.CreateDocumentRequest
	if err := utils.DecodeOptionalJSONRequest(r, &req); err != nil {
		httpresponse.WriteErrorResponse(w, http.StatusBadRequest, httpresponse.MALFORMEDJSON_errorDesc+": "+err.Error())
		return
	}

	session, err := h.kifuUC.Create(r.Context(), req)
	if err != nil {
		h.writeError(w, err)
		return
	}

	h.log.Infof("document created with id: %s", session.ID)
	httpresponse.WriteResponseWithStatus(w, http.StatusCreated, sessionResponse(session, true))
}

func (h *KifuHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	session, err := h.kifuUC.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.writeError(w, err)
		return
	}
	httpresponse.WriteResponseWithStatus(w, http.StatusOK, sessionResponse(session, true))
}

func (h *KifuHandler) HandleClose(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := h.kifuUC.Close(r.Context(), id); err != nil {
		h.writeError(w, err)
		return
	}
	h.hub.CloseDocument(id)
	httpresponse.WriteResponseWithStatus(w, http.StatusOK, nil)
}

// finishMutation answers a mutation and pushes the new state to live
// subscribers when something changed.
func (h *KifuHandler) finishMutation(w http.ResponseWriter, r *http.Request, res kifuuc.MutationResult, err error) {
	if err != nil {
		h.writeError(w, err)
		return
	}
	if res.Changed {
		h.publish(r, res.Session.ID)
	}
	httpresponse.WriteResponseWithStatus(w, http.StatusOK, res.Response())
}

func (h *KifuHandler) publish(r *http.Request, id string) {
	if !h.hub.HasSubscribers(id) {
		return
	}
	update, err := h.kifuUC.LiveUpdate(r.Context(), id)
	if err != nil {
		h.log.Errorf("failed to build live update for %s: %v", id, err)
		return
	}
	h.hub.Publish(id, update)
}

func (h *KifuHandler) HandleAppendMove(w http.ResponseWriter, r *http.Request) {
	var req document.MoveRequest
	if !h.decode(w, r, &req) {
		return
	}
	res, err := h.kifuUC.AppendMove(r.Context(), chi.URLParam(r, "id"), req)
	h.finishMutation(w, r, res, err)
}

func (h *KifuHandler) HandleAppendSpecial(w http.ResponseWriter, r *http.Request) {
	var req document.SpecialRequest
	if !h.decode(w, r, &req) {
		return
	}
	res, err := h.kifuUC.AppendSpecial(r.Context(), chi.URLParam(r, "id"), req)
	h.finishMutation(w, r, res, err)
}

func (h *KifuHandler) HandleSetComments(w http.ResponseWriter, r *http.Request) {
	var req document.CommentsRequest
	if !h.decode(w, r, &req) {
		return
	}
	res, err := h.kifuUC.SetComments(r.Context(), chi.URLParam(r, "id"), req)
	h.finishMutation(w, r, res, err)
}

func (h *KifuHandler) HandleTruncate(w http.ResponseWriter, r *http.Request) {
	var req document.TruncateRequest
	if err := utils.DecodeOptionalJSONRequest(r, &req); err != nil {
		httpresponse.WriteErrorResponse(w, http.StatusBadRequest, httpresponse.MALFORMEDJSON_errorDesc+": "+err.Error())
		return
	}
	res, err := h.kifuUC.Truncate(r.Context(), chi.URLParam(r, "id"), req)
	h.finishMutation(w, r, res, err)
}

func (h *KifuHandler) HandleNavigate(w http.ResponseWriter, r *http.Request) {
	var req document.NavigateRequest
	if !h.decode(w, r, &req) {
		return
	}
	if req.Te < 0 {
		h.writeError(w, appErrors.ErrInvalidRequest)
		return
	}
	res, err := h.kifuUC.Navigate(r.Context(), chi.URLParam(r, "id"), req)
	h.finishMutation(w, r, res, err)
}

func (h *KifuHandler) HandleGoto(w http.ResponseWriter, r *http.Request) {
	var req document.GotoRequest
	if !h.decode(w, r, &req) {
		return
	}
	res, err := h.kifuUC.Goto(r.Context(), chi.URLParam(r, "id"), req)
	h.finishMutation(w, r, res, err)
}

func (h *KifuHandler) HandleSwapBranches(w http.ResponseWriter, r *http.Request) {
	var req document.SwapBranchesRequest
	if !h.decode(w, r, &req) {
		return
	}
	res, err := h.kifuUC.SwapBranches(r.Context(), chi.URLParam(r, "id"), req)
	h.finishMutation(w, r, res, err)
}

func (h *KifuHandler) HandleDeleteBranch(w http.ResponseWriter, r *http.Request) {
	var req document.DeleteBranchRequest
	if !h.decode(w, r, &req) {
		return
	}
	res, err := h.kifuUC.DeleteBranch(r.Context(), chi.URLParam(r, "id"), req)
	h.finishMutation(w, r, res, err)
}

func (h *KifuHandler) HandleRows(w http.ResponseWriter, r *http.Request) {
	rows, err := h.kifuUC.Rows(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.writeError(w, err)
		return
	}
	httpresponse.WriteResponseWithStatus(w, http.StatusOK, rows)
}

// HandleStream returns the moves to the session cursor, or to the cursor
// given as ?pointer=<tesuu pointer>.
func (h *KifuHandler) HandleStream(w http.ResponseWriter, r *http.Request) {
	var cursor *kifu.Cursor
	if p := r.URL.Query().Get("pointer"); p != "" {
		c, err := kifu.ParseTesuuPointer(kifu.TesuuPointer(p))
		if err != nil {
			h.writeError(w, err)
			return
		}
		cursor = &c
	}

	stream, err := h.kifuUC.Stream(r.Context(), chi.URLParam(r, "id"), cursor)
	if err != nil {
		h.writeError(w, err)
		return
	}
	httpresponse.WriteResponseWithStatus(w, http.StatusOK, stream)
}

// HandleExport serves the record as ?format=json (default), kif, kif-sjis,
// csa or pdf.
func (h *KifuHandler) HandleExport(w http.ResponseWriter, r *http.Request) {
	session, tree, err := h.kifuUC.Tree(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.writeError(w, err)
		return
	}

	var (
		body        []byte
		contentType string
		ext         string
	)
	switch format := r.URL.Query().Get("format"); format {
	case "", "json":
		httpresponse.WriteResponseWithStatus(w, http.StatusOK, session.Document)
		return
	case "kif":
		body, contentType, ext = []byte(export.KIF(tree)), "text/plain; charset=utf-8", "kifu"
	case "kif-sjis":
		body, err = export.ShiftJIS(export.KIF(tree))
		if err != nil {
			h.writeError(w, errors.Join(appErrors.ErrInvalidRequest, err))
			return
		}
		contentType, ext = "text/plain; charset=Shift_JIS", "kif"
	case "csa":
		text, err := export.CSA(tree)
		if err != nil {
			h.writeError(w, err)
			return
		}
		body, contentType, ext = []byte(text), "text/plain; charset=utf-8", "csa"
	case "pdf":
		var buf bytes.Buffer
		if err := export.PDF(&buf, tree, h.cfg.PdfFontPath); err != nil {
			h.writeError(w, err)
			return
		}
		body, contentType, ext = buf.Bytes(), "application/pdf", "pdf"
	default:
		httpresponse.WriteErrorResponse(w, http.StatusBadRequest, "unknown format "+strconv.Quote(format))
		return
	}

	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", `attachment; filename="`+session.ID+`.`+ext+`"`)
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(body); err != nil {
		h.log.Errorf("failed to write export: %v", err)
	}
}

func (h *KifuHandler) HandleArchive(w http.ResponseWriter, r *http.Request) {
	record, err := h.kifuUC.Archive(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.writeError(w, err)
		return
	}
	record.KifuJSON = ""
	httpresponse.WriteResponseWithStatus(w, http.StatusCreated, record)
}

func (h *KifuHandler) HandleListArchive(w http.ResponseWriter, r *http.Request) {
	pageNum := 1
	if p := r.URL.Query().Get("page"); p != "" {
		n, err := strconv.Atoi(p)
		if err != nil || n < 1 {
			httpresponse.WriteErrorResponse(w, http.StatusBadRequest, "page must be a positive number")
			return
		}
		pageNum = n
	}

	page, err := h.kifuUC.ListArchive(r.Context(), pageNum)
	if err != nil {
		h.writeError(w, err)
		return
	}
	httpresponse.WriteResponseWithStatus(w, http.StatusOK, page)
}

func (h *KifuHandler) HandleOpenArchived(w http.ResponseWriter, r *http.Request) {
	session, err := h.kifuUC.OpenArchived(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.writeError(w, err)
		return
	}
	httpresponse.WriteResponseWithStatus(w, http.StatusCreated, sessionResponse(session, true))
}
