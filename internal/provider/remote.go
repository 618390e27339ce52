package provider

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/protobuf/types/known/wrapperspb"

	"github.com/idiap/icassp-oov-recognition/internal/codec"
	"github.com/idiap/icassp-oov-recognition/internal/fst"
)

// #region remote-struct
// Remote forwards every operation to a wfst.AlgorithmService over gRPC.
type Remote struct {
	conn    *grpc.ClientConn
	client  AlgorithmServiceClient
	timeout time.Duration
}

// #endregion remote-struct

// #region constructor
// NewRemote connects to the algorithm service at addr. A zero timeout means
// calls are bounded only by the caller's context.
func NewRemote(addr string, timeout time.Duration) (*Remote, error) {
	conn, err := grpc.NewClient(addr, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return nil, fmt.Errorf("grpc dial %s: %w", addr, err)
	}
	return &Remote{
		conn:    conn,
		client:  NewAlgorithmServiceClient(conn),
		timeout: timeout,
	}, nil
}

// NewRemoteWithService creates a Remote over an injected client.
// Used for testing without a real gRPC connection.
func NewRemoteWithService(svc AlgorithmServiceClient) *Remote {
	return &Remote{client: svc}
}

// #endregion constructor

// #region close
// Close shuts down the gRPC connection.
func (r *Remote) Close() error {
	if r.conn == nil {
		return nil
	}
	return r.conn.Close()
}

// #endregion close

type rpc func(context.Context, *wrapperspb.BytesValue, ...grpc.CallOption) (*wrapperspb.BytesValue, error)

func (r *Remote) call(ctx context.Context, name string, method rpc, md []string, operands ...codec.ArkEntry) (*fst.Fst, error) {
	if r.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}
	in, err := encodeOperands(operands...)
	if err != nil {
		return nil, fmt.Errorf("%s rpc: %w", name, err)
	}
	var out *wrapperspb.BytesValue
	for attempt := 1; ; attempt++ {
		out, err = method(withOptions(ctx, md...), in)
		if err == nil {
			break
		}
		retry, backoff := shouldRetry(err, attempt)
		if !retry {
			return nil, fmt.Errorf("%s rpc: %w", name, err)
		}
		slog.Debug("retrying rpc", "method", name, "attempt", attempt, "err", err)
		if werr := wait(ctx, backoff); werr != nil {
			return nil, fmt.Errorf("%s rpc: %w", name, err)
		}
	}
	f, err := decodeResult(out)
	if err != nil {
		return nil, fmt.Errorf("%s rpc: %w", name, err)
	}
	return f, nil
}

// #region operations
func (r *Remote) ArcSort(ctx context.Context, f *fst.Fst, by fst.SortType) error {
	out, err := r.call(ctx, "arc sort", r.client.ArcSort, []string{MDSortType, by.String()},
		codec.ArkEntry{Key: KeyInput, Fst: f})
	if err != nil {
		return err
	}
	f.Assign(out)
	return nil
}

func (r *Remote) Connect(ctx context.Context, f *fst.Fst) error {
	out, err := r.call(ctx, "connect", r.client.Connect, nil, codec.ArkEntry{Key: KeyInput, Fst: f})
	if err != nil {
		return err
	}
	f.Assign(out)
	return nil
}

func (r *Remote) Determinize(ctx context.Context, f *fst.Fst, opts DeterminizeOptions) (*fst.Fst, error) {
	md := []string{
		MDDelta, formatFloat(opts.Delta),
		MDWeightThreshold, formatFloat(opts.WeightThreshold),
	}
	return r.call(ctx, "determinize", r.client.Determinize, md, codec.ArkEntry{Key: KeyInput, Fst: f})
}

func (r *Remote) Minimize(ctx context.Context, f *fst.Fst, opts MinimizeOptions) error {
	md := []string{
		MDDelta, formatFloat(opts.Delta),
		MDAllowNondet, strconv.FormatBool(opts.AllowNondet),
	}
	out, err := r.call(ctx, "minimize", r.client.Minimize, md, codec.ArkEntry{Key: KeyInput, Fst: f})
	if err != nil {
		return err
	}
	f.Assign(out)
	return nil
}

func (r *Remote) Compose(ctx context.Context, a, b *fst.Fst) (*fst.Fst, error) {
	return r.call(ctx, "compose", r.client.Compose, nil,
		codec.ArkEntry{Key: KeyInput, Fst: a},
		codec.ArkEntry{Key: KeyRHS, Fst: b})
}

func (r *Remote) ShortestPath(ctx context.Context, f *fst.Fst, opts ShortestPathOptions) (*fst.Fst, error) {
	md := []string{
		MDNShortest, strconv.Itoa(opts.NShortest),
		MDUnique, strconv.FormatBool(opts.Unique),
		MDDelta, formatFloat(opts.Delta),
	}
	return r.call(ctx, "shortest path", r.client.ShortestPath, md, codec.ArkEntry{Key: KeyInput, Fst: f})
}

// #endregion operations
