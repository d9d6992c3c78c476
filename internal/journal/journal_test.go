package journal

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Faultbox/paintcore/internal/paint"
	"github.com/Faultbox/paintcore/internal/texture"
	pmath "github.com/Faultbox/paintcore/pkg/math"
)

var canvasHash = paint.StableStringHash("canvas")

func openJournal(t *testing.T, opts ...Option) *Journal {
	t.Helper()
	j, err := Open(filepath.Join(t.TempDir(), "nested", "journal.db"), opts...)
	require.NoError(t, err)
	t.Cleanup(func() { _ = j.Close() })
	return j
}

func newScene(t *testing.T) (*paint.Manager, *paint.PaintableTexture) {
	t.Helper()
	ctx := paint.NewContext()
	m := paint.NewManager(ctx, 0)
	target := ctx.NewPaintableTexture(paint.Options{Hash: canvasHash, Width: 16, Height: 16, Color: texture.Black})
	target.Activate()
	return m, target
}

func TestRecordAndReplay(t *testing.T) {
	j := openJournal(t)
	m, target := newScene(t)
	j.Attach(m.Context())

	sphere := m.Context().NewSphere(texture.White, 0.2)
	sphere.SetPoint(pmath.V3(0.25, 0.25, 0), true)
	m.Submit(sphere, target)
	m.Tick()
	m.Submit(m.Context().NewFill(texture.RGBA(1, 0, 0, 0.5)), target)
	m.Tick()
	require.NoError(t, j.Err())

	n, err := j.Len(context.Background(), j.Session())
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	m2, fresh := newScene(t)
	queued, err := j.Replay(context.Background(), m2.Context(), j.Session())
	require.NoError(t, err)
	assert.Equal(t, 2, queued)
	m2.Tick()

	assert.True(t, fresh.Current().Equal(target.Current()))
}

func TestPreviewAndUnhashedAreSkipped(t *testing.T) {
	j := openJournal(t)
	m, target := newScene(t)
	j.Attach(m.Context())

	preview := m.Context().NewFill(texture.White)
	preview.Preview = true
	m.Submit(preview, target)

	anon := m.Context().NewPaintableTexture(paint.Options{Width: 4, Height: 4})
	anon.Activate()
	m.Submit(m.Context().NewFill(texture.White), anon)
	m.Tick()

	n, err := j.Len(context.Background(), j.Session())
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestReplayDoesNotRecordItself(t *testing.T) {
	j := openJournal(t)
	m, target := newScene(t)
	j.Attach(m.Context())
	m.Submit(m.Context().NewFill(texture.White), target)
	m.Tick()

	_, err := j.Replay(context.Background(), m.Context(), j.Session())
	require.NoError(t, err)

	n, err := j.Len(context.Background(), j.Session())
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestReplayKeepsPausedRecording(t *testing.T) {
	j := openJournal(t)
	m, target := newScene(t)
	j.Attach(m.Context())
	m.Submit(m.Context().NewFill(texture.White), target)
	m.Tick()

	j.SetListening(false)
	_, err := j.Replay(context.Background(), m.Context(), j.Session())
	require.NoError(t, err)
	m.Tick()

	m.Submit(m.Context().NewFill(texture.Black), target)
	m.Tick()

	n, err := j.Len(context.Background(), j.Session())
	require.NoError(t, err)
	assert.Equal(t, 1, n, "recording stays paused after replay")
}

func TestReplaySkipsMissingTargets(t *testing.T) {
	j := openJournal(t)
	m, target := newScene(t)
	j.Attach(m.Context())
	m.Submit(m.Context().NewFill(texture.White), target)
	m.Tick()

	empty := paint.NewContext()
	queued, err := j.Replay(context.Background(), empty, j.Session())
	require.NoError(t, err)
	assert.Zero(t, queued)
}

func TestSessionsPersistAcrossOpen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "journal.db")

	first, err := Open(path)
	require.NoError(t, err)
	m, target := newScene(t)
	require.NoError(t, first.Record(context.Background(), target.Hash(), m.Context().NewFill(texture.White)))
	require.NoError(t, first.Close())

	second, err := Open(path, WithSession(first.Session()))
	require.NoError(t, err)
	defer func() { _ = second.Close() }()
	require.NoError(t, second.Record(context.Background(), target.Hash(), m.Context().NewFill(texture.Black)))

	sessions, err := second.Sessions(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []uuid.UUID{first.Session()}, sessions)

	n, err := second.Len(context.Background(), first.Session())
	require.NoError(t, err)
	assert.Equal(t, 2, n, "continued session appends after the last sequence")
}

func TestReplayUnknownSession(t *testing.T) {
	j := openJournal(t)
	queued, err := j.Replay(context.Background(), paint.NewContext(), uuid.New())
	require.NoError(t, err)
	assert.Zero(t, queued)
}
