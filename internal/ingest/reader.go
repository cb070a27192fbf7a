// Package ingest acquires log files for parsing: direct paths, compressed
// archives, and a directory watcher for continuous ingestion.
package ingest

import (
	"archive/zip"
	"compress/gzip"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// Source is one readable log stream with its originating name and size.
// Close releases all underlying handles.
type Source struct {
	// Name is the originating filename. For zip archives this is the inner
	// member name, not the archive path.
	Name string
	// Size is the uncompressed size when known, otherwise the on-disk size.
	Size   int64
	Reader io.Reader

	closers []io.Closer
}

// Close releases the source's file handles in reverse acquisition order.
func (s *Source) Close() error {
	var firstErr error
	for i := len(s.closers) - 1; i >= 0; i-- {
		if err := s.closers[i].Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// Open resolves a path into one or more Sources. Plain files yield one
// source; .gz files are transparently decompressed; .zip archives yield one
// source per non-directory member. Callers must Close every returned source.
func Open(path string) ([]*Source, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".gz":
		src, err := openGzip(path)
		if err != nil {
			return nil, err
		}
		return []*Source{src}, nil
	case ".zip":
		return openZip(path)
	default:
		src, err := openPlain(path)
		if err != nil {
			return nil, err
		}
		return []*Source{src}, nil
	}
}

func openPlain(path string) (*Source, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("stat %s: %w", path, err)
	}
	return &Source{
		Name:    filepath.Base(path),
		Size:    info.Size(),
		Reader:  f,
		closers: []io.Closer{f},
	}, nil
}

func openGzip(path string) (*Source, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	gz, err := gzip.NewReader(f)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("gzip %s: %w", path, err)
	}
	info, err := f.Stat()
	if err != nil {
		gz.Close()
		f.Close()
		return nil, fmt.Errorf("stat %s: %w", path, err)
	}
	return &Source{
		Name:    strings.TrimSuffix(filepath.Base(path), filepath.Ext(path)),
		Size:    info.Size(),
		Reader:  gz,
		closers: []io.Closer{f, gz},
	}, nil
}

func openZip(path string) ([]*Source, error) {
	rc, err := zip.OpenReader(path)
	if err != nil {
		return nil, fmt.Errorf("open zip %s: %w", path, err)
	}

	var sources []*Source
	closeAll := func() {
		for _, s := range sources {
			s.Close()
		}
		rc.Close()
	}

	for _, member := range rc.File {
		if member.FileInfo().IsDir() {
			continue
		}
		f, err := member.Open()
		if err != nil {
			closeAll()
			return nil, fmt.Errorf("open zip member %s: %w", member.Name, err)
		}
		sources = append(sources, &Source{
			Name:    filepath.Base(member.Name),
			Size:    int64(member.UncompressedSize64),
			Reader:  f,
			closers: []io.Closer{f},
		})
	}
	if len(sources) == 0 {
		rc.Close()
		return nil, fmt.Errorf("zip %s contains no files", path)
	}
	// The archive handle must outlive every member reader; it closes with
	// the last source.
	sources[len(sources)-1].closers = append(sources[len(sources)-1].closers, rc)
	return sources, nil
}
