package ingest

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"sparklens/internal/logging"
	"sparklens/internal/logparse"
	"sparklens/internal/store"
)

// Service parses log files and persists the results. Each file parse owns a
// private state machine, so files run in parallel with no shared mutable
// state; the store is the only shared sink.
type Service struct {
	parser  *logparse.Parser
	store   *store.Store
	workers int
}

// NewService creates an ingestion service. workers bounds parallel file
// parses; values below 1 fall back to 1.
func NewService(parser *logparse.Parser, st *store.Store, workers int) *Service {
	if workers < 1 {
		workers = 1
	}
	return &Service{parser: parser, store: st, workers: workers}
}

// IngestFile parses one path (plain, .gz, or .zip) and persists every
// contained log file. Returns the stored file records in archive order.
func (s *Service) IngestFile(ctx context.Context, path string) ([]*store.LogFile, error) {
	timer := logging.StartTimer(logging.CategoryIngest, "Service.IngestFile")
	defer timer.Stop()

	sources, err := Open(path)
	if err != nil {
		return nil, err
	}

	var files []*store.LogFile
	for _, src := range sources {
		file, err := s.ingestSource(ctx, src)
		src.Close()
		if err != nil {
			return files, fmt.Errorf("ingest %s: %w", src.Name, err)
		}
		files = append(files, file)
	}
	return files, nil
}

// IngestAll parses multiple paths in parallel, bounded by the worker count.
// The first failure cancels the remaining work.
func (s *Service) IngestAll(ctx context.Context, paths []string) ([]*store.LogFile, error) {
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(s.workers)

	results := make([][]*store.LogFile, len(paths))
	for i, path := range paths {
		g.Go(func() error {
			files, err := s.IngestFile(ctx, path)
			if err != nil {
				return err
			}
			results[i] = files
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	var files []*store.LogFile
	for _, r := range results {
		files = append(files, r...)
	}
	return files, nil
}

func (s *Service) ingestSource(ctx context.Context, src *Source) (*store.LogFile, error) {
	logging.Ingest("parsing %s (%d bytes)", src.Name, src.Size)

	entries, execCtx, stats, err := s.parser.ParseAll(ctx, src.Reader)
	if err != nil {
		return nil, err
	}
	logging.IngestDebug("%s: %d lines -> %d entries (mode=%s, language=%s)",
		src.Name, stats.Lines, stats.Entries, execCtx.Mode, execCtx.DominantLanguage)

	return s.store.SaveFile(ctx, src.Name, src.Size, execCtx, entries)
}
