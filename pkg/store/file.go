package store

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/matzehuels/patchy/pkg/errors"
	"github.com/matzehuels/patchy/pkg/observability"
)

// FileStore is a file-based record store for CLI and local training.
//
// Each split lives in one append-only JSONL file (<dir>/<split>.jsonl),
// one record per line. Byte offsets of every line are kept in memory so
// reads are a single seek, and existing files are re-indexed on open so a
// store can be reopened across runs. Metadata goes to <split>.info.json
// and descriptor.json next to the record files.
type FileStore struct {
	mu  sync.RWMutex
	dir string

	// offsets[split][i] is the byte offset of record i in the split file.
	offsets map[string][]int64
}

// NewFileStore opens a file-based store rooted at dir, creating the
// directory if needed and indexing any record files already present.
func NewFileStore(dir string) (*FileStore, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeStore, "create store dir")
	}
	s := &FileStore{dir: dir, offsets: make(map[string][]int64)}
	if err := s.reindex(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *FileStore) splitPath(split string) string {
	return filepath.Join(s.dir, split+".jsonl")
}

func (s *FileStore) infoPath(split string) string {
	return filepath.Join(s.dir, split+".info.json")
}

func (s *FileStore) descriptorPath() string {
	return filepath.Join(s.dir, "descriptor.json")
}

// reindex scans existing split files and rebuilds the offset tables.
func (s *FileStore) reindex() error {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeStore, "read store dir")
	}
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || filepath.Ext(name) != ".jsonl" {
			continue
		}
		split := name[:len(name)-len(".jsonl")]
		offsets, err := indexLines(filepath.Join(s.dir, name))
		if err != nil {
			return errors.Wrap(err, errors.ErrCodeStore, "index split %q", split)
		}
		s.offsets[split] = offsets
	}
	return nil
}

// indexLines returns the starting byte offset of every line in the file.
func indexLines(path string) ([]int64, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var offsets []int64
	var pos int64
	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 0, 64*1024), maxRecordBytes)
	for sc.Scan() {
		offsets = append(offsets, pos)
		pos += int64(len(sc.Bytes())) + 1 // trailing newline
	}
	return offsets, sc.Err()
}

// maxRecordBytes bounds a single encoded record line. Graphs with tens of
// thousands of nodes encode well under this.
const maxRecordBytes = 64 * 1024 * 1024

func (s *FileStore) Append(ctx context.Context, split string, rec *Record) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeStore, "encode record")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	f, err := os.OpenFile(s.splitPath(split), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeStore, "open split file")
	}
	defer f.Close()

	pos, err := f.Seek(0, 2)
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeStore, "seek split file")
	}
	if _, err := f.Write(append(data, '\n')); err != nil {
		return errors.Wrap(err, errors.ErrCodeStore, "write record")
	}

	s.offsets[split] = append(s.offsets[split], pos)
	observability.Store().OnAppend(ctx, split, len(data))
	return nil
}

func (s *FileStore) Read(ctx context.Context, split string, index int) (*Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	offsets := s.offsets[split]
	if index < 0 || index >= len(offsets) {
		return nil, errors.New(errors.ErrCodeRecordNotFound,
			"record %d not in split %q (%d records)", index, split, len(offsets))
	}

	f, err := os.Open(s.splitPath(split))
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeStore, "open split file")
	}
	defer f.Close()

	if _, err := f.Seek(offsets[index], 0); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeStore, "seek record")
	}
	r := bufio.NewReaderSize(f, 64*1024)
	line, err := r.ReadBytes('\n')
	if err != nil && len(line) == 0 {
		return nil, errors.Wrap(err, errors.ErrCodeStore, "read record")
	}

	var rec Record
	if err := json.Unmarshal(line, &rec); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeStore, "decode record")
	}
	observability.Store().OnRead(ctx, split, index)
	return &rec, nil
}

func (s *FileStore) Count(ctx context.Context, split string) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.offsets[split]), nil
}

func (s *FileStore) SaveInfo(ctx context.Context, split string, info SplitInfo) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return writeJSON(s.infoPath(split), info)
}

func (s *FileStore) LoadInfo(ctx context.Context, split string) (SplitInfo, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var info SplitInfo
	data, err := os.ReadFile(s.infoPath(split))
	if err != nil {
		if os.IsNotExist(err) {
			return info, notFound(fmt.Sprintf("info for split %q", split))
		}
		return info, errors.Wrap(err, errors.ErrCodeStore, "read split info")
	}
	if err := json.Unmarshal(data, &info); err != nil {
		return info, errors.Wrap(err, errors.ErrCodeStore, "decode split info")
	}
	return info, nil
}

func (s *FileStore) SaveDescriptor(ctx context.Context, d Descriptor) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return writeJSON(s.descriptorPath(), d)
}

func (s *FileStore) LoadDescriptor(ctx context.Context) (Descriptor, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var d Descriptor
	data, err := os.ReadFile(s.descriptorPath())
	if err != nil {
		if os.IsNotExist(err) {
			return d, notFound("descriptor")
		}
		return d, errors.Wrap(err, errors.ErrCodeStore, "read descriptor")
	}
	if err := json.Unmarshal(data, &d); err != nil {
		return d, errors.Wrap(err, errors.ErrCodeStore, "decode descriptor")
	}
	return d, nil
}

// Reset removes all records and metadata for a split so it can be
// rewritten from scratch.
func (s *FileStore) Reset(ctx context.Context, split string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, path := range []string{s.splitPath(split), s.infoPath(split)} {
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			return errors.Wrap(err, errors.ErrCodeStore, "remove split file")
		}
	}
	delete(s.offsets, split)
	return nil
}

func (s *FileStore) Close() error { return nil }

// Path returns the directory backing the store.
func (s *FileStore) Path() string {
	return s.dir
}

func writeJSON(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeStore, "encode metadata")
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return errors.Wrap(err, errors.ErrCodeStore, "write metadata")
	}
	return nil
}

var _ Store = (*FileStore)(nil)
