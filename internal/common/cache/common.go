package cache

import (
	"context"
	"fmt"
)

const defaultScanBatch = 100

// DeleteByPattern removes every key matching a glob pattern, deleting in batches
// as the SCAN cursor advances so large keyspaces never block the server.
// It returns the number of keys submitted for deletion.
func DeleteByPattern(ctx context.Context, c Cache, match string, batch int) (int, error) {
	if c == nil {
		return 0, fmt.Errorf("cache is nil")
	}
	if batch <= 0 {
		batch = defaultScanBatch
	}

	deleted := 0
	keys := make([]string, 0, batch)
	flush := func() error {
		if len(keys) == 0 {
			return nil
		}
		if err := c.Del(ctx, keys...); err != nil {
			return err
		}
		deleted += len(keys)
		keys = keys[:0]
		return nil
	}

	iter := c.Scan(ctx, match, int64(batch))
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
		if len(keys) >= batch {
			if err := flush(); err != nil {
				return deleted, err
			}
		}
	}
	if err := iter.Err(); err != nil {
		return deleted, err
	}
	if err := flush(); err != nil {
		return deleted, err
	}
	return deleted, nil
}
