package indexer

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/hyperjump/ragqa/internal/extract"
	"github.com/hyperjump/ragqa/internal/fileid"
	"github.com/hyperjump/ragqa/internal/models"
	"github.com/hyperjump/ragqa/internal/retrieval"
	"github.com/hyperjump/ragqa/internal/storage"
	"github.com/hyperjump/ragqa/pkg/utils"
	"go.uber.org/zap"
)

// Engine ingests a document source into the retrieval index.
type Engine interface {
	Ingest(ctx context.Context, src retrieval.Source) (*retrieval.IngestResult, error)
}

// Outcome is the record and ingestion result of one document. Result is nil when
// the document was skipped or refused before reaching the engine.
type Outcome struct {
	Document *models.Document
	Result   *retrieval.IngestResult
	Skipped  bool
}

type fileState struct {
	modTime time.Time
	size    int64
}

// Indexer runs documents through the retrieval engine and keeps their records in storage.
type Indexer struct {
	storage    storage.Storage
	files      *storage.FileStore
	engine     Engine
	extensions []string
	logger     *zap.Logger

	mu   sync.Mutex
	seen map[string]fileState // file record ID -> state at last successful ingestion
}

// IndexerOption configures an Indexer.
type IndexerOption func(*Indexer)

// WithLogger sets a logger for debug output (file ingested, document deleted, etc.).
func WithLogger(l *zap.Logger) IndexerOption {
	return func(idx *Indexer) { idx.logger = l }
}

// NewIndexer creates an indexer. files may be nil when uploads are not accepted.
// extensions restricts which files are ingested (empty = every supported format).
func NewIndexer(store storage.Storage, files *storage.FileStore, engine Engine, extensions []string, opts ...IndexerOption) *Indexer {
	idx := &Indexer{
		storage:    store,
		files:      files,
		engine:     engine,
		extensions: extensions,
		seen:       make(map[string]fileState),
	}
	for _, opt := range opts {
		opt(idx)
	}
	idx.logger = utils.OrNop(idx.logger)
	return idx
}

// Allowed reports whether a file name has an accepted extension.
func (idx *Indexer) Allowed(name string) bool {
	ext := filepath.Ext(name)
	if _, err := extract.ParseFormat(ext); err != nil {
		return false
	}
	return len(idx.extensions) == 0 || extensionAllowed(ext, idx.extensions)
}

// IngestFile ingests a file on disk. The record ID is derived from the absolute path,
// so ingesting the same file again updates the same record. A file that has not
// changed since its last successful ingestion in this process is skipped; a changed
// file is ingested again and its earlier chunks stay in the index. Skipping is a
// policy of the indexer; the engine itself never deduplicates and ingesting the same
// text twice stores its chunks twice.
func (idx *Indexer) IngestFile(ctx context.Context, path, source string) (*Outcome, error) {
	idx.logger.Debug("indexer ingesting file", zap.String("path", path), zap.String("source", source))
	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("absolute path: %w", err)
	}
	if !idx.Allowed(absPath) {
		return nil, fmt.Errorf("%w: extension %q not in allowed list", extract.ErrUnsupportedFormat, filepath.Ext(absPath))
	}
	info, err := os.Stat(absPath)
	if err != nil {
		return nil, fmt.Errorf("stat file: %w", err)
	}
	if !info.Mode().IsRegular() {
		return nil, fmt.Errorf("not a regular file: %s", absPath)
	}

	id := fileid.FileDocID(absPath)
	state := fileState{modTime: info.ModTime(), size: info.Size()}
	existing, err := idx.storage.GetDocument(ctx, id)
	if err != nil && !errors.Is(err, storage.ErrNotFound) {
		return nil, err
	}
	if existing != nil && idx.unchanged(id, state) {
		idx.logger.Debug("indexer skipping unchanged file", zap.String("path", absPath))
		return &Outcome{Document: existing, Skipped: true}, nil
	}

	doc := existing
	if doc == nil {
		doc = &models.Document{ID: id, UploadedAt: time.Now().UTC()}
	}
	doc.Title = filepath.Base(absPath)
	doc.Path = absPath
	doc.Format = formatOf(absPath)
	doc.Size = info.Size()
	doc.Source = source

	out, err := idx.run(ctx, doc, existing == nil)
	if err == nil {
		idx.mu.Lock()
		idx.seen[id] = state
		idx.mu.Unlock()
	}
	return out, err
}

func (idx *Indexer) unchanged(id string, state fileState) bool {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	prev, ok := idx.seen[id]
	return ok && prev.size == state.size && prev.modTime.Equal(state.modTime)
}

// IngestUpload stores an uploaded document in the file store and ingests it.
// Every upload gets a new record, even for a file name seen before.
func (idx *Indexer) IngestUpload(ctx context.Context, name string, r io.Reader) (*Outcome, error) {
	if idx.files == nil {
		return nil, errors.New("uploads are not enabled")
	}
	if !idx.Allowed(name) {
		return nil, fmt.Errorf("%w: extension %q not in allowed list", extract.ErrUnsupportedFormat, filepath.Ext(name))
	}
	path, size, err := idx.files.Save(name, r)
	if err != nil {
		return nil, err
	}
	doc := &models.Document{
		ID:         fileid.UploadDocID(),
		Title:      storage.SanitizeName(name),
		Path:       path,
		Format:     formatOf(name),
		Size:       size,
		Source:     models.SourceUpload,
		UploadedAt: time.Now().UTC(),
	}
	idx.logger.Debug("indexer upload saved", zap.String("id", doc.ID), zap.String("path", path), zap.Int64("size", size))
	return idx.run(ctx, doc, true)
}

// run records the document, ingests it and stores the outcome on the record.
func (idx *Indexer) run(ctx context.Context, doc *models.Document, create bool) (*Outcome, error) {
	doc.Processed = false
	doc.ChunkCount = 0
	doc.Error = ""
	if create {
		if err := idx.storage.CreateDocument(ctx, doc); err != nil {
			if doc.Source == models.SourceUpload && idx.files != nil {
				if rmErr := idx.files.Remove(doc.Path); rmErr != nil {
					idx.logger.Warn("failed to remove orphaned upload", zap.String("path", doc.Path), zap.Error(rmErr))
				}
			}
			return nil, fmt.Errorf("failed to store document: %w", err)
		}
	} else if err := idx.storage.UpdateDocument(ctx, doc); err != nil {
		return nil, fmt.Errorf("failed to update document: %w", err)
	}

	res, ingestErr := idx.engine.Ingest(ctx, retrieval.Source{Path: doc.Path, Name: doc.Title})
	if res != nil {
		doc.ChunkCount = res.Chunks
	}
	if ingestErr != nil {
		doc.ChunkCount = 0
		doc.Error = ingestErr.Error()
	} else {
		doc.Processed = true
	}
	// Record the outcome even if ctx was cancelled mid-ingestion.
	if err := idx.storage.UpdateDocument(context.WithoutCancel(ctx), doc); err != nil {
		return &Outcome{Document: doc, Result: res}, errors.Join(ingestErr, fmt.Errorf("failed to update document: %w", err))
	}
	if ingestErr != nil {
		return &Outcome{Document: doc, Result: res}, ingestErr
	}
	idx.logger.Debug("indexer document ingested", zap.String("id", doc.ID), zap.String("title", doc.Title), zap.Int("chunks", doc.ChunkCount))
	return &Outcome{Document: doc, Result: res}, nil
}

// IngestDirectory walks dir recursively and ingests each regular file with an allowed
// extension. A rejected document does not stop the walk. Returns the number of
// documents ingested (skipped unchanged files included) and the joined rejections.
func (idx *Indexer) IngestDirectory(ctx context.Context, dir, source string) (n int, err error) {
	absDir, err := filepath.Abs(dir)
	if err != nil {
		return 0, fmt.Errorf("absolute path: %w", err)
	}
	info, err := os.Stat(absDir)
	if err != nil {
		return 0, fmt.Errorf("stat directory: %w", err)
	}
	if !info.IsDir() {
		return 0, fmt.Errorf("not a directory: %s", absDir)
	}
	var failures []error
	walkErr := filepath.WalkDir(absDir, func(path string, d os.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if d.IsDir() || !idx.Allowed(path) {
			return nil
		}
		// Resolve symlinks so we only ingest regular files
		finfo, statErr := os.Stat(path)
		if statErr != nil || !finfo.Mode().IsRegular() {
			return nil
		}
		if _, ingestErr := idx.IngestFile(ctx, path, source); ingestErr != nil {
			failures = append(failures, fmt.Errorf("%s: %w", path, ingestErr))
			return nil
		}
		n++
		return nil
	})
	if walkErr != nil {
		failures = append(failures, walkErr)
	}
	return n, errors.Join(failures...)
}

// Rebuild re-ingests every processed record whose file is still on disk. The vector
// index lives in memory only, so a restarted server calls this to make earlier
// documents searchable again. Records whose file is gone or no longer ingests are
// marked unprocessed. Returns the number of documents re-ingested.
func (idx *Indexer) Rebuild(ctx context.Context) (int, error) {
	const page = 100
	var docs []*models.Document
	for offset := 0; ; offset += page {
		batch, err := idx.storage.ListDocuments(ctx, offset, page)
		if err != nil {
			return 0, err
		}
		docs = append(docs, batch...)
		if len(batch) < page {
			break
		}
	}
	n := 0
	for i := len(docs) - 1; i >= 0; i-- { // oldest first
		doc := docs[i]
		if !doc.Processed {
			continue
		}
		if err := ctx.Err(); err != nil {
			return n, err
		}
		res, err := idx.engine.Ingest(ctx, retrieval.Source{Path: doc.Path, Name: doc.Title})
		if err != nil {
			idx.logger.Warn("rebuild: document dropped", zap.String("id", doc.ID), zap.String("path", doc.Path), zap.Error(err))
			doc.Processed = false
			doc.ChunkCount = 0
			doc.Error = err.Error()
			if uerr := idx.storage.UpdateDocument(ctx, doc); uerr != nil {
				return n, uerr
			}
			continue
		}
		if doc.ChunkCount != res.Chunks {
			doc.ChunkCount = res.Chunks
			if uerr := idx.storage.UpdateDocument(ctx, doc); uerr != nil {
				return n, uerr
			}
		}
		if info, statErr := os.Stat(doc.Path); statErr == nil && fileid.IsFileDocID(doc.ID) {
			idx.mu.Lock()
			idx.seen[doc.ID] = fileState{modTime: info.ModTime(), size: info.Size()}
			idx.mu.Unlock()
		}
		n++
	}
	idx.logger.Info("retrieval index rebuilt", zap.Int("documents", n))
	return n, nil
}

// DeleteDocument removes a document record and, for uploads, its stored file.
// The document's chunks stay in the retrieval index.
func (idx *Indexer) DeleteDocument(ctx context.Context, id string) error {
	idx.logger.Debug("indexer deleting document", zap.String("id", id))
	doc, err := idx.storage.GetDocument(ctx, id)
	if err != nil {
		return err
	}
	if err := idx.storage.DeleteDocument(ctx, id); err != nil {
		return fmt.Errorf("failed to delete document: %w", err)
	}
	if doc.Source == models.SourceUpload && idx.files != nil {
		if err := idx.files.Remove(doc.Path); err != nil {
			idx.logger.Warn("failed to remove stored file", zap.String("path", doc.Path), zap.Error(err))
		}
	}
	idx.mu.Lock()
	delete(idx.seen, id)
	idx.mu.Unlock()
	idx.logger.Debug("indexer document deleted", zap.String("id", id))
	return nil
}

func formatOf(path string) string {
	f, err := extract.FormatFromPath(path)
	if err != nil {
		return extract.FormatUnknown.String()
	}
	return f.String()
}

func extensionAllowed(ext string, allowed []string) bool {
	extNorm := strings.ToLower(strings.TrimPrefix(ext, "."))
	for _, a := range allowed {
		if strings.ToLower(strings.TrimPrefix(a, ".")) == extNorm {
			return true
		}
	}
	return false
}
