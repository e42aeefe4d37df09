package store

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	"miner-submission-server/pkgs/verifier"
)

// ErrNoActiveTask is returned by ActiveTask when the tasks table holds no
// active row; callers fall back to the built-in default task.
var ErrNoActiveTask = errors.New("no active task")

// Task is one unit of work advertised to miners.
type Task struct {
	TaskID               string  `json:"task_id"`
	PerformanceThreshold float64 `json:"performance_threshold"`
	ValidationDataHash   string  `json:"validation_data_hash"`
}

// DB wraps the Postgres pool behind the two roles the pipeline needs from
// durable storage: the miner key directory and the submission ledger.
type DB struct {
	pool *pgxpool.Pool
}

// Compile-time wiring checks.
var (
	_ verifier.KeyDirectory = (*DB)(nil)
	_ verifier.Ledger       = (*DB)(nil)
)

// Connect opens the pool and pings it, retrying with exponential backoff so
// that a database restart during deployment does not kill the boot.
func Connect(ctx context.Context, databaseURL string) (*DB, error) {
	cfg, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, errors.Wrap(err, "parse database url")
	}

	var pool *pgxpool.Pool
	operation := func() error {
		p, err := pgxpool.NewWithConfig(ctx, cfg)
		if err != nil {
			return err
		}
		if err := p.Ping(ctx); err != nil {
			p.Close()
			log.Debugln("postgres not reachable yet: ", err.Error())
			return err
		}
		pool = p
		return nil
	}

	backOff := backoff.NewExponentialBackOff()
	backOff.MaxElapsedTime = 30 * time.Second
	if err := backoff.Retry(operation, backOff); err != nil {
		return nil, errors.Wrap(err, "connect postgres")
	}
	return &DB{pool: pool}, nil
}

// MinerKey returns the hex public key registered for the miner, or
// verifier.ErrMinerNotFound when no such miner exists.
func (db *DB) MinerKey(ctx context.Context, minerID int64) (string, error) {
	var key string
	err := db.pool.QueryRow(ctx,
		`SELECT public_key FROM miners WHERE miner_id = $1`, minerID).Scan(&key)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", verifier.ErrMinerNotFound
	}
	if err != nil {
		return "", errors.Wrap(err, "query miner key")
	}
	return key, nil
}

// Commit inserts the verified submission into the ledger under a freshly
// minted record ID. Each call writes a new row; nothing upstream ever hands
// the same payload to Commit twice because the replay guard has already
// claimed its signature.
func (db *DB) Commit(ctx context.Context, p *verifier.Payload) (string, error) {
	id := uuid.NewString()
	_, err := db.pool.Exec(ctx,
		`INSERT INTO ledger (id, task_id, miner_id, performance, hyperparameters, artifact_hash, submitted_at)
		 VALUES ($1, $2, $3, $4, $5, $6, to_timestamp($7))`,
		id, p.TaskID, p.MinerID, p.Performance, p.Hyperparameters, p.ArtifactHash, float64(p.Timestamp))
	if err != nil {
		return "", errors.Wrap(err, "insert ledger record")
	}
	return id, nil
}

// ActiveTask returns the most recently created active task.
func (db *DB) ActiveTask(ctx context.Context) (*Task, error) {
	var t Task
	err := db.pool.QueryRow(ctx,
		`SELECT task_id, performance_threshold, validation_data_hash
		 FROM tasks WHERE active ORDER BY created_at DESC LIMIT 1`).
		Scan(&t.TaskID, &t.PerformanceThreshold, &t.ValidationDataHash)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNoActiveTask
	}
	if err != nil {
		return nil, errors.Wrap(err, "query active task")
	}
	return &t, nil
}

// Ping reports whether Postgres is reachable.
func (db *DB) Ping(ctx context.Context) error {
	return db.pool.Ping(ctx)
}

// Close releases the pool.
func (db *DB) Close() {
	if db.pool != nil {
		db.pool.Close()
	}
}
