package provider

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/wrapperspb"

	"github.com/idiap/icassp-oov-recognition/internal/fst"
)

// Server exposes a Provider as a wfst.AlgorithmService.
type Server struct {
	UnimplementedAlgorithmServiceServer
	backend Provider
}

func NewServer(backend Provider) *Server {
	return &Server{backend: backend}
}

func operand(in *wrapperspb.BytesValue, keys ...string) ([]*fst.Fst, error) {
	ops, err := decodeOperands(in)
	if err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}
	out := make([]*fst.Fst, len(keys))
	for i, k := range keys {
		f, ok := ops[k]
		if !ok {
			return nil, status.Errorf(codes.InvalidArgument, "missing operand %q", k)
		}
		out[i] = f
	}
	return out, nil
}

func reply(method string, f *fst.Fst, err error) (*wrapperspb.BytesValue, error) {
	if err != nil {
		slog.Warn("algorithm call failed", "method", method, "error", err)
		switch {
		case errors.Is(err, ErrUnsupported):
			return nil, status.Error(codes.Unimplemented, err.Error())
		case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
			return nil, status.FromContextError(err).Err()
		}
		return nil, status.Error(codes.Internal, err.Error())
	}
	out, err := encodeResult(f)
	if err != nil {
		return nil, status.Error(codes.Internal, err.Error())
	}
	return out, nil
}

func badOption(err error) error {
	return status.Error(codes.InvalidArgument, err.Error())
}

// #region handlers
func (s *Server) ArcSort(ctx context.Context, in *wrapperspb.BytesValue) (*wrapperspb.BytesValue, error) {
	ops, err := operand(in, KeyInput)
	if err != nil {
		return nil, err
	}
	by := fst.ILabelSort
	if name, ok := incomingOptions(ctx).str(MDSortType); ok {
		if by, ok = fst.ParseSortType(name); !ok {
			return nil, badOption(fmt.Errorf("option %s: unknown sort type %q", MDSortType, name))
		}
	}
	err = s.backend.ArcSort(ctx, ops[0], by)
	return reply("ArcSort", ops[0], err)
}

func (s *Server) Connect(ctx context.Context, in *wrapperspb.BytesValue) (*wrapperspb.BytesValue, error) {
	ops, err := operand(in, KeyInput)
	if err != nil {
		return nil, err
	}
	err = s.backend.Connect(ctx, ops[0])
	return reply("Connect", ops[0], err)
}

func (s *Server) Determinize(ctx context.Context, in *wrapperspb.BytesValue) (*wrapperspb.BytesValue, error) {
	ops, err := operand(in, KeyInput)
	if err != nil {
		return nil, err
	}
	md := incomingOptions(ctx)
	opts := DefaultDeterminizeOptions()
	if opts.Delta, err = md.floatOpt(MDDelta, opts.Delta); err != nil {
		return nil, badOption(err)
	}
	if opts.WeightThreshold, err = md.floatOpt(MDWeightThreshold, opts.WeightThreshold); err != nil {
		return nil, badOption(err)
	}
	out, err := s.backend.Determinize(ctx, ops[0], opts)
	return reply("Determinize", out, err)
}

func (s *Server) Minimize(ctx context.Context, in *wrapperspb.BytesValue) (*wrapperspb.BytesValue, error) {
	ops, err := operand(in, KeyInput)
	if err != nil {
		return nil, err
	}
	md := incomingOptions(ctx)
	opts := DefaultMinimizeOptions()
	if opts.Delta, err = md.floatOpt(MDDelta, opts.Delta); err != nil {
		return nil, badOption(err)
	}
	if opts.AllowNondet, err = md.boolOpt(MDAllowNondet, opts.AllowNondet); err != nil {
		return nil, badOption(err)
	}
	err = s.backend.Minimize(ctx, ops[0], opts)
	return reply("Minimize", ops[0], err)
}

func (s *Server) Compose(ctx context.Context, in *wrapperspb.BytesValue) (*wrapperspb.BytesValue, error) {
	ops, err := operand(in, KeyInput, KeyRHS)
	if err != nil {
		return nil, err
	}
	out, err := s.backend.Compose(ctx, ops[0], ops[1])
	return reply("Compose", out, err)
}

func (s *Server) ShortestPath(ctx context.Context, in *wrapperspb.BytesValue) (*wrapperspb.BytesValue, error) {
	ops, err := operand(in, KeyInput)
	if err != nil {
		return nil, err
	}
	md := incomingOptions(ctx)
	opts := DefaultShortestPathOptions()
	if opts.NShortest, err = md.intOpt(MDNShortest, opts.NShortest); err != nil {
		return nil, badOption(err)
	}
	if opts.Unique, err = md.boolOpt(MDUnique, opts.Unique); err != nil {
		return nil, badOption(err)
	}
	if opts.Delta, err = md.floatOpt(MDDelta, opts.Delta); err != nil {
		return nil, badOption(err)
	}
	out, err := s.backend.ShortestPath(ctx, ops[0], opts)
	return reply("ShortestPath", out, err)
}

// #endregion handlers
