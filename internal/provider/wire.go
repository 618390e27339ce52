package provider

import (
	"bytes"
	"context"
	"fmt"
	"strconv"

	"google.golang.org/grpc/metadata"
	"google.golang.org/protobuf/types/known/wrapperspb"

	"github.com/idiap/icassp-oov-recognition/internal/codec"
	"github.com/idiap/icassp-oov-recognition/internal/fst"
)

// Operand keys inside a request archive.
const (
	KeyInput = "input"
	KeyRHS   = "rhs"
)

// Metadata keys carrying operation options.
const (
	MDSortType        = "wfst-sort-type"
	MDDelta           = "wfst-delta"
	MDWeightThreshold = "wfst-weight-threshold"
	MDAllowNondet     = "wfst-allow-nondet"
	MDNShortest       = "wfst-nshortest"
	MDUnique          = "wfst-unique"
)

// #region encode
func encodeOperands(operands ...codec.ArkEntry) (*wrapperspb.BytesValue, error) {
	var buf bytes.Buffer
	for _, op := range operands {
		if err := codec.WriteArkEntry(&buf, op.Key, op.Fst); err != nil {
			return nil, fmt.Errorf("encode operand %s: %w", op.Key, err)
		}
	}
	return wrapperspb.Bytes(buf.Bytes()), nil
}

func decodeOperands(in *wrapperspb.BytesValue) (map[string]*fst.Fst, error) {
	entries, err := codec.ReadArk(bytes.NewReader(in.GetValue()))
	if err != nil {
		return nil, fmt.Errorf("decode operands: %w", err)
	}
	ops := make(map[string]*fst.Fst, len(entries))
	for _, e := range entries {
		ops[e.Key] = e.Fst
	}
	return ops, nil
}

func encodeResult(f *fst.Fst) (*wrapperspb.BytesValue, error) {
	var buf bytes.Buffer
	if err := codec.Write(&buf, f); err != nil {
		return nil, fmt.Errorf("encode result: %w", err)
	}
	return wrapperspb.Bytes(buf.Bytes()), nil
}

func decodeResult(out *wrapperspb.BytesValue) (*fst.Fst, error) {
	f, err := codec.Read(bytes.NewReader(out.GetValue()))
	if err != nil {
		return nil, fmt.Errorf("decode result: %w", err)
	}
	return f, nil
}

// #endregion encode

// #region metadata
func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}

func withOptions(ctx context.Context, kv ...string) context.Context {
	if len(kv) == 0 {
		return ctx
	}
	return metadata.AppendToOutgoingContext(ctx, kv...)
}

type incoming struct {
	md metadata.MD
}

func incomingOptions(ctx context.Context) incoming {
	md, _ := metadata.FromIncomingContext(ctx)
	return incoming{md: md}
}

func (in incoming) str(key string) (string, bool) {
	vals := in.md.Get(key)
	if len(vals) == 0 {
		return "", false
	}
	return vals[0], true
}

func (in incoming) floatOpt(key string, def float64) (float64, error) {
	s, ok := in.str(key)
	if !ok {
		return def, nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("option %s: %w", key, err)
	}
	return v, nil
}

func (in incoming) intOpt(key string, def int) (int, error) {
	s, ok := in.str(key)
	if !ok {
		return def, nil
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("option %s: %w", key, err)
	}
	return v, nil
}

func (in incoming) boolOpt(key string, def bool) (bool, error) {
	s, ok := in.str(key)
	if !ok {
		return def, nil
	}
	v, err := strconv.ParseBool(s)
	if err != nil {
		return false, fmt.Errorf("option %s: %w", key, err)
	}
	return v, nil
}

// #endregion metadata
