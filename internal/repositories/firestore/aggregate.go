package firestore

import (
	"context"
	"fmt"

	"cloud.google.com/go/firestore"
	"cloud.google.com/go/firestore/apiv1/firestorepb"

	pfirestore "github.com/abhirana780/medical-backend/internal/platform/firestore"
)

const (
	countAlias = "count"
	sumAlias   = "sum"
)

// countDocuments runs a server-side COUNT aggregation for the query.
func countDocuments(ctx context.Context, query firestore.Query, op string) (int64, error) {
	result, err := query.NewAggregationQuery().WithCount(countAlias).Get(ctx)
	if err != nil {
		return 0, pfirestore.WrapError(op, err)
	}
	return aggregateInt(result, countAlias, op)
}

// sumField runs a server-side SUM aggregation over path.
func sumField(ctx context.Context, query firestore.Query, path string, op string) (int64, error) {
	result, err := query.NewAggregationQuery().WithSum(path, sumAlias).Get(ctx)
	if err != nil {
		return 0, pfirestore.WrapError(op, err)
	}
	return aggregateInt(result, sumAlias, op)
}

func aggregateInt(result firestore.AggregationResult, alias string, op string) (int64, error) {
	raw, ok := result[alias]
	if !ok {
		return 0, fmt.Errorf("%s: aggregation alias %q missing", op, alias)
	}
	value, ok := raw.(*firestorepb.Value)
	if !ok {
		return 0, fmt.Errorf("%s: unexpected aggregation type %T", op, raw)
	}
	switch v := value.GetValueType().(type) {
	case *firestorepb.Value_IntegerValue:
		return v.IntegerValue, nil
	case *firestorepb.Value_DoubleValue:
		return int64(v.DoubleValue), nil
	case *firestorepb.Value_NullValue:
		return 0, nil
	default:
		return 0, fmt.Errorf("%s: unexpected aggregation value %T", op, v)
	}
}
