package ingest

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sparklens/internal/logparse"
	"sparklens/internal/store"
)

func newTestService(t *testing.T, workers int) (*Service, *store.Store) {
	t.Helper()
	st, err := store.Open(filepath.Join(t.TempDir(), "ingest.db"))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })
	return NewService(logparse.NewParser(), st, workers), st
}

func TestIngestFile(t *testing.T) {
	svc, st := newTestService(t, 1)
	ctx := context.Background()

	content := "24/01/01 10:00:00 INFO SparkContext: Running Spark version 3.5.0 on yarn\n" +
		"2024-01-01 10:00:01 ERROR Executor: java.lang.OutOfMemoryError: Java heap space\n" +
		"\tat com.foo.Bar.run(Bar.java:10)\n"
	path := writeFile(t, t.TempDir(), "app.log", content)

	files, err := svc.IngestFile(ctx, path)
	require.NoError(t, err)
	require.Len(t, files, 1)

	file := files[0]
	assert.Equal(t, "app.log", file.Filename)
	assert.Equal(t, 2, file.EntryCount)
	assert.Equal(t, 1, file.ErrorCount)

	entries, err := st.GetEntries(ctx, file.ID, store.EntryFilter{})
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, logparse.LevelError, entries[1].Level)
	assert.Contains(t, entries[1].StackTrace, "com.foo.Bar.run")
}

func TestIngestAllParallel(t *testing.T) {
	svc, st := newTestService(t, 4)
	ctx := context.Background()
	dir := t.TempDir()

	var paths []string
	for i := 0; i < 6; i++ {
		content := fmt.Sprintf("2024-01-01 10:00:%02d INFO SparkContext: file %d\n", i, i)
		paths = append(paths, writeFile(t, dir, fmt.Sprintf("app%d.log", i), content))
	}

	files, err := svc.IngestAll(ctx, paths)
	require.NoError(t, err)
	assert.Len(t, files, 6)

	listed, err := st.ListFiles(ctx)
	require.NoError(t, err)
	assert.Len(t, listed, 6)
}

func TestIngestAllPropagatesFailure(t *testing.T) {
	svc, _ := newTestService(t, 2)
	dir := t.TempDir()

	paths := []string{
		writeFile(t, dir, "good.log", "2024-01-01 10:00:00 INFO SparkContext: ok\n"),
		filepath.Join(dir, "missing.log"),
	}

	_, err := svc.IngestAll(context.Background(), paths)
	require.Error(t, err)
}

func TestIngestFileHonorsCancellation(t *testing.T) {
	svc, _ := newTestService(t, 1)
	path := writeFile(t, t.TempDir(), "app.log", "2024-01-01 10:00:00 INFO SparkContext: ok\n")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := svc.IngestFile(ctx, path)
	require.Error(t, err)
}
