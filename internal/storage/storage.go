package storage

import (
	"context"

	"citadelScope/internal/model"
)

// SnapshotSink receives pool snapshots whenever the derived vaults change.
type SnapshotSink interface {
	PutSnapshotBatch(ctx context.Context, snapshots []model.PoolSnapshot) error
}
