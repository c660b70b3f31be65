package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/poiesic/manualflow/core"
	"github.com/poiesic/manualflow/storage"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// Backend wraps a gorm connection pool and provides the repository set.
type Backend struct {
	db     *gorm.DB
	closed atomic.Bool
	logger *slog.Logger

	docs       *DocumentRepository
	chunks     *ChunkRepository
	images     *ImageRepository
	embeddings *EmbeddingRepository
	links      *LinkRepository
	videos     *VideoRepository
	queue      *QueueRepository
	dedup      *DedupIndex
}

var _ storage.Store = (*Backend)(nil)

// gormLoggerAdapter adapts slog.Logger to the gorm logger interface.
type gormLoggerAdapter struct {
	logger *slog.Logger
}

var _ gormlogger.Interface = (*gormLoggerAdapter)(nil)

func (gl *gormLoggerAdapter) LogMode(gormlogger.LogLevel) gormlogger.Interface {
	return gl
}

func (gl *gormLoggerAdapter) Info(ctx context.Context, msg string, args ...any) {
	gl.logger.Info(fmt.Sprintf(msg, args...))
}

func (gl *gormLoggerAdapter) Warn(ctx context.Context, msg string, args ...any) {
	gl.logger.Warn(fmt.Sprintf(msg, args...))
}

func (gl *gormLoggerAdapter) Error(ctx context.Context, msg string, args ...any) {
	gl.logger.Error(fmt.Sprintf(msg, args...))
}

func (gl *gormLoggerAdapter) Trace(ctx context.Context, begin time.Time, fc func() (string, int64), err error) {
	if err == nil || err == gorm.ErrRecordNotFound {
		return
	}
	sql, rows := fc()
	gl.logger.Debug("query failed", "sql", sql, "rows", rows, "elapsed", time.Since(begin), "err", err)
}

// Open connects to the relational store at the given DSN, runs schema
// migration, and returns the aggregate Store.
//
// The connection is established once here and reused by every repository;
// callers never re-negotiate the access path per call.
func Open(dsn string) (storage.Store, error) {
	return openWithDialector(postgres.Open(dsn))
}

func openWithDialector(dialector gorm.Dialector) (*Backend, error) {
	db, err := gorm.Open(dialector, &gorm.Config{
		Logger:         &gormLoggerAdapter{logger: slog.Default().With("component", "storage")},
		TranslateError: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.AutoMigrate(
		&core.Document{},
		&core.Chunk{},
		&core.Image{},
		&core.Embedding{},
		&core.Link{},
		&core.Video{},
		&core.QueueItem{},
	); err != nil {
		return nil, fmt.Errorf("schema migration failed: %w", err)
	}

	b := &Backend{
		db:     db,
		logger: slog.Default().With("component", "storage"),
	}
	b.docs = &DocumentRepository{db: db}
	b.chunks = &ChunkRepository{db: db}
	b.images = &ImageRepository{db: db}
	b.embeddings = &EmbeddingRepository{db: db}
	b.links = &LinkRepository{db: db}
	b.videos = &VideoRepository{db: db}
	b.queue = &QueueRepository{db: db}
	b.dedup = &DedupIndex{db: db}

	return b, nil
}

// Close closes the underlying connection pool. Closing an already closed
// backend returns ErrStorageClosed.
func (b *Backend) Close() error {
	if !b.closed.CompareAndSwap(false, true) {
		return storage.ErrStorageClosed
	}
	sqlDB, err := b.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func (b *Backend) Documents() storage.DocumentRepository   { return b.docs }
func (b *Backend) Chunks() storage.ChunkRepository         { return b.chunks }
func (b *Backend) Images() storage.ImageRepository         { return b.images }
func (b *Backend) Embeddings() storage.EmbeddingRepository { return b.embeddings }
func (b *Backend) Links() storage.LinkRepository           { return b.links }
func (b *Backend) Videos() storage.VideoRepository         { return b.videos }
func (b *Backend) Queue() storage.QueueRepository          { return b.queue }
func (b *Backend) Dedup() storage.DedupIndex               { return b.dedup }

// translateError converts gorm errors into the package's sentinel errors.
func translateError(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return storage.ErrNotFound
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return storage.ErrDuplicateKey
	default:
		return err
	}
}
