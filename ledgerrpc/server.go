// Package ledgerrpc serves read-only ledger queries over gRPC.
//
// Mutations stay in-process: credentials, proofs and buckets are move-only Go
// values and never cross the wire.
package ledgerrpc

import (
	"context"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"

	"xdao.co/stakeledger/model"
	"xdao.co/stakeledger/snapshot"
)

// Source is the read surface of a ledger. *ledger.Ledger satisfies it.
type Source interface {
	Balance() (decimal.Decimal, error)
	AmountStaked(id uuid.UUID) (decimal.Decimal, error)
	Members() ([]uuid.UUID, error)
	State() (model.LedgerState, error)
	Audit() error
}

// Server exposes a Source over the LedgerQuery service.
type Server struct {
	UnimplementedLedgerQueryServer
	Ledger Source
	Log    *zap.Logger
}

func (s *Server) source() (Source, error) {
	if s == nil || s.Ledger == nil {
		return nil, status.Error(codes.FailedPrecondition, "missing ledger")
	}
	return s.Ledger, nil
}

func (s *Server) logger() *zap.Logger {
	if s == nil || s.Log == nil {
		return zap.NewNop()
	}
	return s.Log
}

func (s *Server) Balance(ctx context.Context, _ *emptypb.Empty) (*wrapperspb.StringValue, error) {
	src, err := s.source()
	if err != nil {
		return nil, err
	}
	bal, err := src.Balance()
	if err != nil {
		return nil, s.fail("Balance", err)
	}
	return wrapperspb.String(bal.String()), nil
}

func (s *Server) AmountStaked(ctx context.Context, in *wrapperspb.StringValue) (*wrapperspb.StringValue, error) {
	src, err := s.source()
	if err != nil {
		return nil, err
	}
	id, err := uuid.Parse(in.GetValue())
	if err != nil {
		return nil, status.Errorf(codes.InvalidArgument, "invalid credential id %q", in.GetValue())
	}
	amt, err := src.AmountStaked(id)
	if err != nil {
		return nil, s.fail("AmountStaked", err)
	}
	return wrapperspb.String(amt.String()), nil
}

func (s *Server) Members(ctx context.Context, _ *emptypb.Empty) (*structpb.ListValue, error) {
	src, err := s.source()
	if err != nil {
		return nil, err
	}
	ids, err := src.Members()
	if err != nil {
		return nil, s.fail("Members", err)
	}
	values := make([]*structpb.Value, 0, len(ids))
	for _, id := range ids {
		values = append(values, structpb.NewStringValue(id.String()))
	}
	return &structpb.ListValue{Values: values}, nil
}

func (s *Server) State(ctx context.Context, _ *emptypb.Empty) (*wrapperspb.BytesValue, error) {
	src, err := s.source()
	if err != nil {
		return nil, err
	}
	st, err := src.State()
	if err != nil {
		return nil, s.fail("State", err)
	}
	b, err := snapshot.Encode(st)
	if err != nil {
		return nil, s.fail("State", err)
	}
	return wrapperspb.Bytes(b), nil
}

func (s *Server) Audit(ctx context.Context, _ *emptypb.Empty) (*emptypb.Empty, error) {
	src, err := s.source()
	if err != nil {
		return nil, err
	}
	if err := src.Audit(); err != nil {
		return nil, s.fail("Audit", err)
	}
	return &emptypb.Empty{}, nil
}

func (s *Server) fail(method string, err error) error {
	st := toStatus(err)
	if st.Code() == codes.Internal {
		s.logger().Error("query failed", zap.String("method", method), zap.Error(err))
	} else {
		s.logger().Debug("query rejected", zap.String("method", method), zap.Error(err))
	}
	return st.Err()
}
