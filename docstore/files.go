/*
Copyright © 2024 Acronis International GmbH.

Released under MIT license.
*/

package docstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/jasondb/jasondb/log"
	"github.com/jasondb/jasondb/retry"
)

const (
	documentFileExt = ".json"
	tempFilePattern = ".*.tmp"
)

// fileStorage reads and writes documents of a single collection, one file per document.
type fileStorage struct {
	dir         string
	retryPolicy retry.Policy
	logger      log.FieldLogger
	readFile    func(name string) ([]byte, error) // os.ReadFile if nil
}

func (fst *fileStorage) path(id string) string {
	return filepath.Join(fst.dir, id+documentFileExt)
}

func (fst *fileStorage) exists(ctx context.Context, id string) (bool, error) {
	err := fst.do(ctx, "stat", id, func(ctx context.Context) error {
		_, statErr := os.Stat(fst.path(id))
		return statErr
	})
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	return err == nil, err
}

func (fst *fileStorage) read(ctx context.Context, id string) (Document, error) {
	readFile := fst.readFile
	if readFile == nil {
		readFile = os.ReadFile
	}
	var data []byte
	if err := fst.do(ctx, "read", id, func(ctx context.Context) (readErr error) {
		data, readErr = readFile(fst.path(id))
		return readErr
	}); err != nil {
		return nil, err
	}
	return decodeDocument(id, data)
}

// write stores encoded document data atomically: data goes to a temporary file which is renamed afterwards.
func (fst *fileStorage) write(ctx context.Context, id string, data []byte) error {
	return fst.do(ctx, "write", id, func(ctx context.Context) error {
		return writeFileAtomically(fst.dir, fst.path(id), data)
	})
}

// encodeDocument returns the file contents for the document and the document as it will be read back.
func encodeDocument(id string, doc Document) (data []byte, stored Document, err error) {
	if data, err = json.MarshalIndent(doc, "", "\t"); err != nil {
		return nil, nil, fmt.Errorf("encode document %q: %w", id, err)
	}
	if stored, err = decodeDocument(id, data); err != nil {
		return nil, nil, err
	}
	return data, stored, nil
}

func decodeDocument(id string, data []byte) (Document, error) {
	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("decode document %q: %w", id, err)
	}
	return doc, nil
}

func (fst *fileStorage) remove(ctx context.Context, id string) (bool, error) {
	err := fst.do(ctx, "remove", id, func(ctx context.Context) error {
		return os.Remove(fst.path(id))
	})
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	return err == nil, err
}

// ids returns sorted identifiers of all stored documents.
func (fst *fileStorage) ids(ctx context.Context) ([]string, error) {
	var entries []os.DirEntry
	if err := fst.do(ctx, "list", "", func(ctx context.Context) (readErr error) {
		entries, readErr = os.ReadDir(fst.dir)
		return readErr
	}); err != nil {
		return nil, err
	}
	ids := make([]string, 0, len(entries))
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasSuffix(name, documentFileExt) {
			continue
		}
		ids = append(ids, strings.TrimSuffix(name, documentFileExt))
	}
	sort.Strings(ids)
	return ids, nil
}

func (fst *fileStorage) do(ctx context.Context, op, id string, fn retry.RetryableFunc) error {
	notify := func(err error, delay time.Duration) {
		fst.logger.Warn("file operation failed, will be retried",
			log.String("op", op), log.String("id", id), log.Error(err), log.Duration("delay", delay))
	}
	return retry.DoWithRetry(ctx, fst.retryPolicy, isRetryableFSError, notify, fn)
}

// isRetryableFSError treats missing files and access problems as permanent.
func isRetryableFSError(err error) bool {
	return !errors.Is(err, fs.ErrNotExist) &&
		!errors.Is(err, fs.ErrPermission) &&
		!errors.Is(err, fs.ErrExist) &&
		!errors.Is(err, context.Canceled) &&
		!errors.Is(err, context.DeadlineExceeded)
}

func writeFileAtomically(dir, path string, data []byte) (err error) {
	tmp, err := os.CreateTemp(dir, filepath.Base(path)+tempFilePattern)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = os.Remove(tmp.Name())
		}
	}()
	if _, err = tmp.Write(data); err != nil {
		_ = tmp.Close()
		return err
	}
	if err = tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}
