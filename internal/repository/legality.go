package repo

import (
	"context"
	"time"

	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/structpb"

	"kifu_editor/internal/kifu"
)

const legalityCanReachMethod = "/kifu.Legality/CanReach"

// LegalityServer is implemented by shogi engines that can tell whether a
// piece on the board reaches a square.
type LegalityServer interface {
	CanReach(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
}

func canReachHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(structpb.Struct)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(LegalityServer).CanReach(ctx, in)
	}
	info := &grpc.UnaryServerInfo{
		Server:     srv,
		FullMethod: legalityCanReachMethod,
	}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(LegalityServer).CanReach(ctx, req.(*structpb.Struct))
	}
	return interceptor(ctx, in, info, handler)
}

var LegalityServiceDesc = grpc.ServiceDesc{
	ServiceName: "kifu.Legality",
	HandlerType: (*LegalityServer)(nil),
	Methods: []grpc.MethodDesc{
		{
			MethodName: "CanReach",
			Handler:    canReachHandler,
		},
	},
	Streams: []grpc.StreamDesc{},
}

// LegalityClient asks a remote engine whether a record without an origin
// square could be a board move. Any failure is answered with false so the
// record is taken for a drop.
type LegalityClient struct {
	conn    grpc.ClientConnInterface
	log     *zap.SugaredLogger
	timeout time.Duration
}

func NewLegalityClient(conn grpc.ClientConnInterface, log *zap.SugaredLogger, timeout time.Duration) *LegalityClient {
	return &LegalityClient{
		conn:    conn,
		log:     log,
		timeout: timeout,
	}
}

func (l *LegalityClient) CanReach(pos kifu.Position, piece kifu.PieceKind, color kifu.Color, to kifu.Square) bool {
	ctx, cancel := context.WithTimeout(context.Background(), l.timeout)
	defer cancel()

	req, err := structpb.NewStruct(legalityRequest(pos, piece, color, to))
	if err != nil {
		l.log.Errorf("failed to build legality request: %v", err)
		return false
	}

	resp := new(structpb.Struct)
	if err := l.conn.Invoke(ctx, legalityCanReachMethod, req, resp); err != nil {
		l.log.Warnf("legality service unavailable: %v", err)
		return false
	}
	return resp.GetFields()["reachable"].GetBoolValue()
}

func legalityRequest(pos kifu.Position, piece kifu.PieceKind, color kifu.Color, to kifu.Square) map[string]any {
	moves := make([]any, 0, len(pos.Moves))
	for i := range pos.Moves {
		moves = append(moves, kifu.CSAText(kifu.MoveNode{Move: &pos.Moves[i]}))
	}

	req := map[string]any{
		"moves": moves,
		"piece": string(piece),
		"color": color.String(),
		"to_x":  to.X,
		"to_y":  to.Y,
	}
	if pos.Initial != nil {
		req["preset"] = pos.Initial.Preset
		if pos.Initial.Data != nil {
			req["initial"] = pos.Initial.Data
		}
	}
	return req
}
