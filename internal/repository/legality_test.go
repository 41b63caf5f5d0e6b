package repo

import (
	"context"
	"net"
	"testing"
	"time"

	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"
	"google.golang.org/protobuf/types/known/structpb"

	"kifu_editor/internal/kifu"
)

type fakeLegality struct {
	fail bool
	last *structpb.Struct
}

// CanReach says yes for a silver aimed at 5-5.
func (f *fakeLegality) CanReach(_ context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	f.last = req
	if f.fail {
		return nil, status.Error(codes.Unavailable, "engine down")
	}
	fields := req.GetFields()
	reachable := fields["piece"].GetStringValue() == "GI" &&
		fields["to_x"].GetNumberValue() == 5 &&
		fields["to_y"].GetNumberValue() == 5
	return structpb.NewStruct(map[string]any{"reachable": reachable})
}

func dialLegality(t *testing.T, srv LegalityServer) *grpc.ClientConn {
	t.Helper()
	lis := bufconn.Listen(1 << 20)
	server := grpc.NewServer()
	server.RegisterService(&LegalityServiceDesc, srv)
	go server.Serve(lis)
	t.Cleanup(server.Stop)

	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
			return lis.DialContext(ctx)
		}),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func TestLegalityClientCanReach(t *testing.T) {
	fake := &fakeLegality{}
	client := NewLegalityClient(dialLegality(t, fake), zap.NewNop().Sugar(), time.Second)

	pos := kifu.Position{
		Initial: &kifu.Initial{Preset: "HIRATE"},
		Moves: []kifu.MoveRecord{{
			Color: kifu.Black,
			From:  &kifu.Square{X: 7, Y: 7},
			To:    kifu.Square{X: 7, Y: 6},
			Piece: kifu.Fu,
		}},
	}

	if !client.CanReach(pos, kifu.Gi, kifu.White, kifu.Square{X: 5, Y: 5}) {
		t.Fatal("CanReach = false, want true")
	}
	fields := fake.last.GetFields()
	if fields["preset"].GetStringValue() != "HIRATE" || fields["color"].GetStringValue() != "white" {
		t.Fatalf("unexpected request %v", fake.last)
	}
	moves := fields["moves"].GetListValue().GetValues()
	if len(moves) != 1 || moves[0].GetStringValue() != "+7776FU" {
		t.Fatalf("moves = %v", moves)
	}

	if client.CanReach(pos, kifu.Ki, kifu.White, kifu.Square{X: 5, Y: 5}) {
		t.Fatal("CanReach(KI) = true, want false")
	}
}

func TestLegalityClientFailureMeansDrop(t *testing.T) {
	client := NewLegalityClient(dialLegality(t, &fakeLegality{fail: true}), zap.NewNop().Sugar(), time.Second)
	if client.CanReach(kifu.Position{}, kifu.Gi, kifu.Black, kifu.Square{X: 5, Y: 5}) {
		t.Fatal("failed call should report unreachable")
	}
}
