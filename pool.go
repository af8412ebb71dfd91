package sqlkit

import (
	"context"
	"database/sql"
	"time"

	"golang.org/x/sync/semaphore"
)

// pool bounds concurrent sessions over a sql.DB. database/sql already caps
// open connections, but it queues without a deadline; the weighted
// semaphore in front adds a bounded wait, so a saturated pool surfaces a
// connection error after AcquireTimeout instead of blocking indefinitely.
//
// One-shot calls hold a permit for the duration of the call. Transactions
// additionally check out a dedicated connection that they own until commit
// or rollback.
type pool struct {
	db             *sql.DB
	sem            *semaphore.Weighted
	acquireTimeout time.Duration
}

func newPool(db *sql.DB, cfg Config) *pool {
	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	db.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)

	return &pool{
		db:             db,
		sem:            semaphore.NewWeighted(int64(cfg.MaxOpenConns)),
		acquireTimeout: cfg.AcquireTimeout,
	}
}

// acquire takes one session permit, waiting up to the acquire timeout.
func (p *pool) acquire(ctx context.Context) error {
	acquireCtx := ctx
	if p.acquireTimeout > 0 {
		var cancel context.CancelFunc
		acquireCtx, cancel = context.WithTimeout(ctx, p.acquireTimeout)
		defer cancel()
	}

	if err := p.sem.Acquire(acquireCtx, 1); err != nil {
		if ctx.Err() == nil {
			// The parent context is still live, so the wait hit the
			// pool's own acquire timeout.
			return &Error{
				Code:    CodeConnectionFailed,
				Message: "timed out waiting for a pooled connection",
				Op:      "Acquire",
				Cause:   err,
			}
		}
		return wrapError(err, "Acquire")
	}
	return nil
}

func (p *pool) release() {
	p.sem.Release(1)
}

func (p *pool) stats() sql.DBStats {
	return p.db.Stats()
}

func (p *pool) close() error {
	return p.db.Close()
}

// session is a checked-out dedicated connection plus its pool permit. The
// holder owns both until close.
type session struct {
	conn *sql.Conn
	pool *pool
}

func (p *pool) checkout(ctx context.Context) (*session, error) {
	if err := p.acquire(ctx); err != nil {
		return nil, err
	}

	conn, err := p.db.Conn(ctx)
	if err != nil {
		p.release()
		return nil, &Error{
			Code:    CodeConnectionFailed,
			Message: "failed to obtain a connection",
			Op:      "Acquire",
			Cause:   err,
		}
	}

	return &session{conn: conn, pool: p}, nil
}

func (s *session) close() error {
	err := s.conn.Close()
	s.pool.release()
	return err
}
