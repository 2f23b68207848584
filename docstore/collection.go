/*
Copyright © 2024 Acronis International GmbH.

Released under MIT license.
*/

package docstore

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"sync"
	"time"

	"github.com/rs/xid"

	"github.com/jasondb/jasondb/log"
	"github.com/jasondb/jasondb/ttlcache"
)

// SchemaFunc reports whether a document is valid for the collection.
type SchemaFunc func(doc Document) bool

// CollectionOption is a functional option for DB.Collection.
type CollectionOption func(*collectionOptions)

type collectionOptions struct {
	schema       SchemaFunc
	cacheTimeout *time.Duration
}

// WithSchema sets a predicate which every created or updated document must satisfy.
// The document is checked in the form it's stored in, so JSON numbers are float64.
func WithSchema(schema SchemaFunc) CollectionOption {
	return func(o *collectionOptions) {
		o.schema = schema
	}
}

// WithCacheTimeout overrides the database-wide cache timeout for the collection.
func WithCacheTimeout(timeout time.Duration) CollectionOption {
	return func(o *collectionOptions) {
		o.cacheTimeout = &timeout
	}
}

// Collection is a set of JSON documents stored in a directory and cached in memory.
// It's safe for concurrent use.
type Collection struct {
	name    string
	storage *fileStorage
	cache   *ttlcache.Cache[Document]
	schema  SchemaFunc
	logger  log.FieldLogger

	// mu serializes writes; reads which miss the cache hold it for reading,
	// so a document deleted concurrently is never put back into the cache.
	mu sync.RWMutex
}

// Name returns the collection name.
func (c *Collection) Name() string {
	return c.name
}

// Cache returns the cache of the collection. It may be used for tuning the timeout at runtime.
func (c *Collection) Cache() *ttlcache.Cache[Document] {
	return c.cache
}

// Create stores a new document. If the document has no id, a unique one is generated.
// A copy of the stored document (with the id) is returned.
func (c *Collection) Create(ctx context.Context, doc Document) (Document, error) {
	doc = doc.Clone()
	if doc == nil {
		doc = Document{}
	}
	if rawID, ok := doc[FieldID]; !ok || rawID == "" {
		doc[FieldID] = xid.New().String()
	}
	id := doc.ID()
	if id == "" {
		return nil, fmt.Errorf("%w: must be a string", ErrInvalidID)
	}
	if err := validateID(id); err != nil {
		return nil, err
	}
	data, stored, err := encodeDocument(id, doc)
	if err != nil {
		return nil, err
	}
	if err = c.validate(stored); err != nil {
		return nil, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	exists, err := c.storage.exists(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("check document %q: %w", id, err)
	}
	if exists {
		return nil, fmt.Errorf("%w: %q", ErrAlreadyExists, id)
	}
	if err = c.storage.write(ctx, id, data); err != nil {
		return nil, fmt.Errorf("create document %q: %w", id, err)
	}
	c.cache.Update(id, stored)
	c.logger.Debug("document created", log.String("id", id))
	return stored.Clone(), nil
}

// Read returns a document by id. The cache is consulted first, the file is read only on a cache miss.
// Concurrent misses for the same id share a single file read.
func (c *Collection) Read(ctx context.Context, id string) (Document, error) {
	if err := validateID(id); err != nil {
		return nil, err
	}

	c.mu.RLock()
	defer c.mu.RUnlock()
	doc, err := c.get(ctx, id)
	if err != nil {
		return nil, err
	}
	return doc.Clone(), nil
}

// Update merges the patch into the stored document and returns the result.
// The id field can't be changed.
func (c *Collection) Update(ctx context.Context, id string, patch Document) (Document, error) {
	if err := validateID(id); err != nil {
		return nil, err
	}
	if rawID, ok := patch[FieldID]; ok && rawID != id {
		return nil, fmt.Errorf("%w: id can't be changed", ErrInvalidID)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	current, err := c.get(ctx, id)
	if err != nil {
		return nil, err
	}
	updated := current.Clone()
	for k, v := range patch.Clone() {
		updated[k] = v
	}
	data, stored, err := encodeDocument(id, updated)
	if err != nil {
		return nil, err
	}
	if err = c.validate(stored); err != nil {
		return nil, err
	}
	if err = c.storage.write(ctx, id, data); err != nil {
		return nil, fmt.Errorf("update document %q: %w", id, err)
	}
	c.cache.Update(id, stored)
	c.logger.Debug("document updated", log.String("id", id))
	return stored.Clone(), nil
}

// Delete removes a document. It returns false if there was no such document.
func (c *Collection) Delete(ctx context.Context, id string) (bool, error) {
	if err := validateID(id); err != nil {
		return false, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	removed, err := c.storage.remove(ctx, id)
	if err != nil {
		return false, fmt.Errorf("delete document %q: %w", id, err)
	}
	c.cache.Delete(id)
	if removed {
		c.logger.Debug("document deleted", log.String("id", id))
	}
	return removed, nil
}

// ReadAll returns all documents of the collection sorted by id.
func (c *Collection) ReadAll(ctx context.Context) ([]Document, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	ids, err := c.storage.ids(ctx)
	if err != nil {
		return nil, fmt.Errorf("list documents: %w", err)
	}
	docs := make([]Document, 0, len(ids))
	for _, id := range ids {
		doc, getErr := c.get(ctx, id)
		if getErr != nil {
			if errors.Is(getErr, ErrNotFound) {
				continue
			}
			return nil, getErr
		}
		docs = append(docs, doc.Clone())
	}
	return docs, nil
}

// Count returns the number of stored documents.
func (c *Collection) Count(ctx context.Context) (int, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	ids, err := c.storage.ids(ctx)
	if err != nil {
		return 0, fmt.Errorf("list documents: %w", err)
	}
	return len(ids), nil
}

// get returns a cached document or reads it from the file and caches it.
// Must be called with mu held, so a concurrent delete can't be undone by a late cache update.
// The result is shared with the cache and must not be modified.
func (c *Collection) get(ctx context.Context, id string) (Document, error) {
	return c.cache.GetOrLoad(id, func() (Document, error) {
		doc, err := c.storage.read(ctx, id)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return nil, fmt.Errorf("%w: %q", ErrNotFound, id)
			}
			return nil, fmt.Errorf("read document %q: %w", id, err)
		}
		return doc, nil
	})
}

func (c *Collection) validate(doc Document) error {
	if c.schema != nil && !c.schema(doc) {
		return ErrSchemaValidation
	}
	return nil
}
