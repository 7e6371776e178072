package multisum

import (
	"context"
	"io"
	"time"

	"github.com/hupe1980/multisum/zeroboard"
)

// SaveBoard writes the board for cardinality k to w as a versioned binary
// snapshot, building it first when it is not cached. Large boards are
// expensive to build per process; a snapshot amortizes the build across
// runs of the same atom set and precision.
func (e *Engine) SaveBoard(ctx context.Context, w io.Writer, k int, optFns ...func(o *zeroboard.SaveOptions)) error {
	board, _, err := e.board(ctx, k)
	if err != nil {
		return err
	}

	start := time.Now()
	err = zeroboard.Save(w, board, optFns...)
	duration := time.Since(start)

	e.metrics.RecordSnapshotSave(duration, err)
	e.logger.LogSnapshotSave(ctx, k, err)
	return err
}

// LoadBoard reads a snapshot written by SaveBoard and caches the board. The
// snapshot must have been built from this engine's atom set and precision.
// It returns the board cardinality.
func (e *Engine) LoadBoard(ctx context.Context, r io.Reader) (int, error) {
	start := time.Now()
	board, err := zeroboard.Load(r, e.atoms)
	duration := time.Since(start)

	if err != nil {
		e.metrics.RecordSnapshotLoad(duration, err)
		e.logger.LogSnapshotLoad(ctx, 0, 0, err)
		return 0, err
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return 0, ErrClosed
	}
	e.boards[board.K()] = board

	e.metrics.RecordSnapshotLoad(duration, nil)
	e.logger.LogSnapshotLoad(ctx, board.K(), board.EntriesCount(), nil)
	return board.K(), nil
}
