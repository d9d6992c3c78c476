package main

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Faultbox/paintcore/internal/config"
	"github.com/Faultbox/paintcore/internal/journal"
	"github.com/Faultbox/paintcore/internal/paint"
	"github.com/Faultbox/paintcore/internal/texture"
)

func writeScript(t *testing.T, dir, body string) *Script {
	t.Helper()
	path := filepath.Join(dir, "script.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	s, err := LoadScript(path)
	require.NoError(t, err)
	return s
}

func runScript(t *testing.T, cfg *config.Config, j *journal.Journal, body string) (*Runner, string) {
	t.Helper()
	dir := t.TempDir()
	s := writeScript(t, dir, body)
	r := NewRunner(cfg, paint.NewContext(), j, dir)
	if j != nil {
		j.Attach(r.ctx)
	}
	require.NoError(t, r.Run(context.Background(), s))
	t.Cleanup(r.Close)
	return r, dir
}

func syncConfig() *config.Config {
	cfg := config.Default()
	cfg.Paint.AsyncReadback = false
	return cfg
}

func TestScriptFillCountUndo(t *testing.T) {
	r, dir := runScript(t, syncConfig(), nil, `
targets:
  - name: canvas
    width: 16
    height: 16
    color: [0, 0, 0]
    output: out/canvas.png
steps:
  - fill: {color: [1, 1, 1]}
  - count:
      target: canvas
      palette:
        - {name: white, color: [1, 1, 1]}
        - {name: black, color: [0, 0, 0]}
  - undo: 1
  - count:
      target: canvas
      palette:
        - {name: white, color: [1, 1, 1]}
        - {name: black, color: [0, 0, 0]}
  - redo: 1
`)

	results := r.Results()
	require.Len(t, results, 2)
	assert.Equal(t, int64(256), results[0].Total)
	assert.Equal(t, int64(256), results[0].Counts["white"])
	assert.Equal(t, int64(256), results[1].Counts["black"])
	assert.Zero(t, results[1].Counts["white"])

	saved, err := texture.Load(filepath.Join(dir, "out", "canvas.png"))
	require.NoError(t, err)
	assert.True(t, saved.Equal(texture.NewFilled(16, 16, texture.White)), "redo restores the fill")
}

func TestScriptMirroredSphere(t *testing.T) {
	r, _ := runScript(t, syncConfig(), nil, `
targets:
  - {name: canvas, width: 16, height: 16, color: [0, 0, 0]}
steps:
  - mirror: {position: [0.5, 0, 0], normal: [1, 0, 0]}
  - sphere: {position: [0.2, 0.5, 0], radius: 0.1}
  - tick: 1
`)

	target, ok := r.Target("canvas")
	require.True(t, ok)
	img := target.Current()
	assert.Greater(t, img.Pixel(3, 8).R, float32(0))
	assert.Greater(t, img.Pixel(12, 8).R, float32(0))
	assert.Zero(t, img.Pixel(8, 8).R)
}

func TestScriptChannelsAndClear(t *testing.T) {
	r, _ := runScript(t, config.Default(), nil, `
targets:
  - {name: canvas, width: 8, height: 8, color: [0, 0, 1]}
steps:
  - fill: {color: [1, 0, 0], blend: replace}
  - clear: canvas
  - count: {target: canvas, channels: true}
`)

	results := r.Results()
	require.Len(t, results, 1)
	assert.Equal(t, int64(64), results[0].Total)
	assert.Zero(t, results[0].Counts["r"])
	assert.Equal(t, int64(64), results[0].Counts["b"])
	assert.Equal(t, int64(64), results[0].Counts["a"])
}

func TestScriptReplayLatest(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "journal.db")
	body := `
targets:
  - {name: canvas, width: 8, height: 8, color: [0, 0, 0]}
steps:
  - sphere: {target: canvas, position: [0.3, 0.3, 0], radius: 0.2, hardness: 2}
  - fill: {target: canvas, color: [0, 1, 0], opacity: 0.5}
`
	first, err := journal.Open(dbPath)
	require.NoError(t, err)
	recorded, _ := runScript(t, syncConfig(), first, body)
	require.NoError(t, first.Close())

	second, err := journal.Open(dbPath)
	require.NoError(t, err)
	defer func() { _ = second.Close() }()
	replayed, _ := runScript(t, syncConfig(), second, `
targets:
  - {name: canvas, width: 8, height: 8, color: [0, 0, 0]}
steps:
  - replay: latest
`)

	a, _ := recorded.Target("canvas")
	b, _ := replayed.Target("canvas")
	assert.True(t, a.Current().Equal(b.Current()))

	n, err := second.Len(context.Background(), second.Session())
	require.NoError(t, err)
	assert.Zero(t, n, "replayed commands are not recorded again")
}

func TestScriptErrors(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"unknown target", "steps:\n  - fill: {target: nope}\n"},
		{"bad color", "targets:\n  - {name: c, color: [1, 1]}\n"},
		{"bad blend", "targets:\n  - {name: c, width: 2, height: 2}\nsteps:\n  - fill: {blend: sparkle}\n"},
		{"empty step", "steps:\n  - {}\n"},
		{"replay without journal", "steps:\n  - replay: latest\n"},
		{"duplicate target", "targets:\n  - {name: c, width: 2, height: 2}\n  - {name: c, width: 2, height: 2}\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			s := writeScript(t, dir, tt.body)
			r := NewRunner(config.Default(), paint.NewContext(), nil, dir)
			defer r.Close()
			assert.Error(t, r.Run(context.Background(), s))
		})
	}
}
