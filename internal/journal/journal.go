// Package journal records non-preview paint commands in SQLite so a session
// can be replayed onto fresh targets later.
package journal

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	_ "modernc.org/sqlite" // pure go sqlite driver

	"github.com/Faultbox/paintcore/internal/paint"
)

// Journal appends commands to a single table, one row per command, grouped
// by session.
type Journal struct {
	db      *sql.DB
	path    string
	log     *zap.Logger
	session uuid.UUID

	mu        sync.Mutex
	seq       int64
	listening bool
	err       error
}

// Option configures a Journal.
type Option func(*Journal)

// WithLogger sets the logger. The default discards everything.
func WithLogger(l *zap.Logger) Option {
	return func(j *Journal) {
		if l != nil {
			j.log = l
		}
	}
}

// WithSession continues an existing session instead of starting a new one.
func WithSession(id uuid.UUID) Option {
	return func(j *Journal) {
		j.session = id
	}
}

// Open opens or creates the journal database at path.
func Open(path string, opts ...Option) (*Journal, error) {
	if path == "" {
		path = "paintcore.db"
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil && !errors.Is(err, os.ErrExist) {
		return nil, fmt.Errorf("create dirs: %w", err)
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	db.SetMaxOpenConns(1)
	if _, err := db.Exec(`CREATE TABLE IF NOT EXISTS commands (
		session TEXT NOT NULL,
		seq INTEGER NOT NULL,
		target INTEGER NOT NULL,
		kind TEXT NOT NULL,
		payload BLOB NOT NULL,
		created_at INTEGER NOT NULL,
		PRIMARY KEY (session, seq)
	)`); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create commands table: %w", err)
	}

	j := &Journal{db: db, path: path, log: zap.NewNop(), session: uuid.New(), listening: true}
	for _, opt := range opts {
		opt(j)
	}
	if err := db.QueryRow(`SELECT COALESCE(MAX(seq), 0) FROM commands WHERE session = ?`, j.session.String()).Scan(&j.seq); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("read session sequence: %w", err)
	}
	return j, nil
}

// Session returns the id new commands are recorded under.
func (j *Journal) Session() uuid.UUID { return j.session }

// Path returns the database path.
func (j *Journal) Path() string { return j.path }

// Err returns the first error hit while recording from Attach.
func (j *Journal) Err() error {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.err
}

// SetListening pauses or resumes recording from Attach.
func (j *Journal) SetListening(v bool) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.listening = v
}

// Attach records every non-preview command queued on pc from now on.
// Commands on targets without a hash cannot be replayed and are skipped.
func (j *Journal) Attach(pc *paint.Context) {
	pc.OnAddCommand(func(t *paint.PaintableTexture, cmd paint.Command) {
		j.mu.Lock()
		listening := j.listening
		j.mu.Unlock()
		if !listening || cmd.Head().Preview {
			return
		}
		if t.Hash() == 0 {
			j.log.Debug("not journaling command for unhashed target", zap.Stringer("kind", cmd.Kind()))
			return
		}
		if err := j.Record(context.Background(), t.Hash(), cmd); err != nil {
			j.log.Error("journal record failed", zap.Error(err))
			j.mu.Lock()
			if j.err == nil {
				j.err = err
			}
			j.mu.Unlock()
		}
	})
}

// Record appends cmd for target to the current session.
func (j *Journal) Record(ctx context.Context, target paint.Hash, cmd paint.Command) error {
	data, err := paint.MarshalCommand(cmd)
	if err != nil {
		return err
	}

	j.mu.Lock()
	defer j.mu.Unlock()
	seq := j.seq + 1
	if _, err := j.db.ExecContext(ctx,
		`INSERT INTO commands(session, seq, target, kind, payload, created_at) VALUES(?,?,?,?,?,?)`,
		j.session.String(), seq, int64(target), cmd.Kind().String(), data, time.Now().UnixNano()); err != nil {
		return fmt.Errorf("insert command: %w", err)
	}
	j.seq = seq
	return nil
}

// Len returns how many commands the session holds.
func (j *Journal) Len(ctx context.Context, session uuid.UUID) (int, error) {
	var n int
	if err := j.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM commands WHERE session = ?`, session.String()).Scan(&n); err != nil {
		return 0, fmt.Errorf("count commands: %w", err)
	}
	return n, nil
}

// Sessions lists the recorded sessions, oldest first.
func (j *Journal) Sessions(ctx context.Context) ([]uuid.UUID, error) {
	rows, err := j.db.QueryContext(ctx, `SELECT session FROM commands GROUP BY session ORDER BY MIN(created_at)`)
	if err != nil {
		return nil, fmt.Errorf("select sessions: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []uuid.UUID
	for rows.Next() {
		var raw string
		if err := rows.Scan(&raw); err != nil {
			return nil, fmt.Errorf("scan: %w", err)
		}
		id, err := uuid.Parse(raw)
		if err != nil {
			return nil, fmt.Errorf("parse session %q: %w", raw, err)
		}
		out = append(out, id)
	}
	return out, rows.Err()
}

// Replay queues the commands of session, in recorded order, on the active
// targets of pc with matching hashes. Commands for unknown targets are
// skipped. Recording is paused while replaying and left as it was found
// afterwards. It returns how many
// commands were queued; the caller ticks to apply them.
func (j *Journal) Replay(ctx context.Context, pc *paint.Context, session uuid.UUID) (int, error) {
	type entry struct {
		target  paint.Hash
		payload []byte
	}
	rows, err := j.db.QueryContext(ctx, `SELECT target, payload FROM commands WHERE session = ? ORDER BY seq`, session.String())
	if err != nil {
		return 0, fmt.Errorf("select commands: %w", err)
	}
	var entries []entry
	for rows.Next() {
		var e entry
		var target int64
		if err := rows.Scan(&target, &e.payload); err != nil {
			_ = rows.Close()
			return 0, fmt.Errorf("scan: %w", err)
		}
		e.target = paint.Hash(target)
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		_ = rows.Close()
		return 0, err
	}
	_ = rows.Close()

	j.mu.Lock()
	wasListening := j.listening
	j.listening = false
	j.mu.Unlock()
	defer j.SetListening(wasListening)

	queued := 0
	for _, e := range entries {
		t, ok := pc.Target(e.target)
		if !ok {
			j.log.Debug("replay target missing", zap.Stringer("target", e.target))
			continue
		}
		cmd, err := pc.UnmarshalCommand(e.payload)
		if err != nil {
			return queued, err
		}
		t.AddCommand(cmd)
		queued++
	}
	j.log.Info("journal replayed",
		zap.String("session", session.String()),
		zap.Int("queued", queued),
		zap.Int("recorded", len(entries)))
	return queued, nil
}

// Close closes the database.
func (j *Journal) Close() error {
	return j.db.Close()
}
