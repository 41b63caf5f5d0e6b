// Package analysis serves move streams to analysis engines over gRPC.
// Messages are google.protobuf.Struct so no generated code is needed.
package analysis

import (
	"context"
	"errors"

	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"

	"kifu_editor/internal/domain/document"
	appErrors "kifu_editor/internal/errors"
	"kifu_editor/internal/kifu"
	kifuuc "kifu_editor/internal/usecase/kifu"
)

const getStreamMethod = "/kifu.AnalysisSync/GetStream"

type AnalysisSyncServer interface {
	GetStream(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
}

func getStreamHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(structpb.Struct)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(AnalysisSyncServer).GetStream(ctx, in)
	}
	info := &grpc.UnaryServerInfo{
		Server:     srv,
		FullMethod: getStreamMethod,
	}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(AnalysisSyncServer).GetStream(ctx, req.(*structpb.Struct))
	}
	return interceptor(ctx, in, info, handler)
}

var AnalysisSyncServiceDesc = grpc.ServiceDesc{
	ServiceName: "kifu.AnalysisSync",
	HandlerType: (*AnalysisSyncServer)(nil),
	Methods: []grpc.MethodDesc{
		{
			MethodName: "GetStream",
			Handler:    getStreamHandler,
		},
	},
	Streams: []grpc.StreamDesc{},
}

func RegisterAnalysisSyncServer(s grpc.ServiceRegistrar, srv AnalysisSyncServer) {
	s.RegisterService(&AnalysisSyncServiceDesc, srv)
}

// AnalysisHandler answers GetStream with the moves from the start of a
// document to a cursor, in CSA notation.
type AnalysisHandler struct {
	log    *zap.SugaredLogger
	kifuUC *kifuuc.KifuUseCase
}

func NewAnalysisHandler(log *zap.SugaredLogger, kifuUC *kifuuc.KifuUseCase) *AnalysisHandler {
	return &AnalysisHandler{
		log:    log,
		kifuUC: kifuUC,
	}
}

// GetStream expects {"id": string, "pointer"?: string}. Without a pointer
// the session cursor is used.
func (a *AnalysisHandler) GetStream(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	fields := req.GetFields()
	id := fields["id"].GetStringValue()
	if id == "" {
		return nil, status.Error(codes.InvalidArgument, "id is required")
	}

	var cursor *kifu.Cursor
	if p := fields["pointer"].GetStringValue(); p != "" {
		c, err := kifu.ParseTesuuPointer(kifu.TesuuPointer(p))
		if err != nil {
			return nil, status.Error(codes.InvalidArgument, err.Error())
		}
		cursor = &c
	}

	stream, err := a.kifuUC.Stream(ctx, id, cursor)
	if err != nil {
		return nil, a.statusFor(err)
	}

	moves := make([]any, 0, len(stream.Moves))
	for _, m := range stream.Moves {
		moves = append(moves, m)
	}
	out := map[string]any{
		"id":              stream.ID,
		"version":         stream.Version,
		"tesuu_pointer":   string(stream.TesuuPointer),
		"requested_tesuu": stream.RequestedTesuu,
		"reached_tesuu":   stream.ReachedTesuu,
		"moves":           moves,
	}
	if stream.Initial != nil {
		out["preset"] = stream.Initial.Preset
	}
	return structpb.NewStruct(out)
}

func (a *AnalysisHandler) statusFor(err error) error {
	switch {
	case errors.Is(err, appErrors.ErrDocumentNotFound):
		return status.Error(codes.NotFound, err.Error())
	case errors.Is(err, appErrors.ErrStorageUnavailable):
		return status.Error(codes.Unavailable, err.Error())
	default:
		a.log.Errorf("GetStream failed: %v", err)
		return status.Error(codes.Internal, "internal error")
	}
}

// Client calls AnalysisSync on a remote editor.
type Client struct {
	conn grpc.ClientConnInterface
}

func NewClient(conn grpc.ClientConnInterface) *Client {
	return &Client{conn: conn}
}

func (c *Client) GetStream(ctx context.Context, id string, pointer kifu.TesuuPointer) (document.StreamResponse, error) {
	in := map[string]any{"id": id}
	if pointer != "" {
		in["pointer"] = string(pointer)
	}
	req, err := structpb.NewStruct(in)
	if err != nil {
		return document.StreamResponse{}, err
	}

	resp := new(structpb.Struct)
	if err := c.conn.Invoke(ctx, getStreamMethod, req, resp); err != nil {
		return document.StreamResponse{}, err
	}

	fields := resp.GetFields()
	out := document.StreamResponse{
		ID:             fields["id"].GetStringValue(),
		Version:        int64(fields["version"].GetNumberValue()),
		TesuuPointer:   kifu.TesuuPointer(fields["tesuu_pointer"].GetStringValue()),
		RequestedTesuu: int(fields["requested_tesuu"].GetNumberValue()),
		ReachedTesuu:   int(fields["reached_tesuu"].GetNumberValue()),
		Moves:          []string{},
	}
	if preset, ok := fields["preset"]; ok {
		out.Initial = &kifu.Initial{Preset: preset.GetStringValue()}
	}
	for _, v := range fields["moves"].GetListValue().GetValues() {
		out.Moves = append(out.Moves, v.GetStringValue())
	}
	return out, nil
}
