package lode

import (
	"context"
	"fmt"

	"github.com/justapithecus/lode/lode"
)

// ReadLatest returns the records of the dataset's most recent snapshot.
func ReadLatest(ctx context.Context, ds lode.Dataset) ([]map[string]any, error) {
	latest, err := ds.Latest(ctx)
	if err != nil {
		return nil, WrapReadError(err, string(ds.ID()))
	}

	data, err := ds.Read(ctx, latest.ID)
	if err != nil {
		return nil, WrapReadError(err, string(ds.ID()))
	}

	records := make([]map[string]any, 0, len(data))
	for i, item := range data {
		rec, ok := item.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("record %d: unexpected type %T", i, item)
		}
		records = append(records, rec)
	}
	return records, nil
}
