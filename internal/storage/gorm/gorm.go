// Package gormstorage implements storage.Backend on any GORM dialect. The sqlite
// and postgres backends wrap it and only add connection handling.
//
// Save state is written synchronously. History rows (generation runs, probe
// reports) are queued and written in batches by a background goroutine.
package gormstorage

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/kres-mod/kres/internal/model"
	"github.com/kres-mod/kres/internal/queue"
	"github.com/kres-mod/kres/internal/storage"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const (
	defaultFlushInterval = 2 * time.Second
	historyQueueLimit    = 10000
)

// Dependencies holds all dependencies for the GORM storage backend.
type Dependencies struct {
	DB     *gorm.DB
	Logger *slog.Logger
	// FlushInterval is how often queued history is written. Zero uses a default.
	FlushInterval time.Duration
}

type queues struct {
	Runs   *queue.Queue[model.GenerationRun]
	Probes *queue.Queue[model.ProbeReport]
}

// Backend implements storage.Backend and storage.Recorder using GORM.
type Backend struct {
	deps     Dependencies
	queues   *queues
	stopChan chan struct{}
	wg       sync.WaitGroup
}

// New creates a new GORM storage backend.
func New(deps Dependencies) *Backend {
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	if deps.FlushInterval <= 0 {
		deps.FlushInterval = defaultFlushInterval
	}
	return &Backend{deps: deps}
}

// DB exposes the underlying connection.
func (b *Backend) DB() *gorm.DB {
	return b.deps.DB
}

// Init migrates the schema and starts the history writer.
func (b *Backend) Init() error {
	if b.deps.DB == nil {
		return errors.New("gorm backend has no database")
	}
	b.deps.Logger.Info("Migrating schema", "dialect", b.deps.DB.Name())
	if err := b.deps.DB.AutoMigrate(model.DatabaseModels...); err != nil {
		return fmt.Errorf("failed to migrate schema: %w", err)
	}

	b.queues = &queues{
		Runs:   queue.New[model.GenerationRun](historyQueueLimit),
		Probes: queue.New[model.ProbeReport](historyQueueLimit),
	}
	b.stopChan = make(chan struct{})
	b.wg.Add(1)
	go b.historyWriter()
	return nil
}

// Close stops the history writer after a final flush.
func (b *Backend) Close() error {
	if b.stopChan == nil {
		return nil
	}
	close(b.stopChan)
	b.wg.Wait()
	b.stopChan = nil
	return nil
}

func (b *Backend) historyWriter() {
	defer b.wg.Done()
	ticker := time.NewTicker(b.deps.FlushInterval)
	defer ticker.Stop()

	for {
		select {
		case <-b.stopChan:
			b.FlushHistory()
			return
		case <-ticker.C:
			b.FlushHistory()
		}
	}
}

// FlushHistory writes queued history rows. Rows that fail to write are requeued.
func (b *Backend) FlushHistory() {
	if b.queues == nil {
		return
	}
	db := b.deps.DB
	log := b.deps.Logger

	if runs := b.queues.Runs.Drain(); len(runs) > 0 {
		if err := db.Create(&runs).Error; err != nil {
			log.Error("Failed to write generation runs", "count", len(runs), "error", err)
			b.queues.Runs.Requeue(runs)
		}
	}
	if probes := b.queues.Probes.Drain(); len(probes) > 0 {
		if err := db.Create(&probes).Error; err != nil {
			log.Error("Failed to write probe reports", "count", len(probes), "error", err)
			b.queues.Probes.Requeue(probes)
		}
	}
}

func (b *Backend) LoadSaveInfo(ctx context.Context) (*model.SaveInfo, error) {
	var info model.SaveInfo
	err := b.deps.DB.WithContext(ctx).First(&info, model.SaveInfoID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &info, nil
}

func (b *Backend) StoreSaveInfo(ctx context.Context, info *model.SaveInfo) error {
	row := *info
	row.ID = model.SaveInfoID
	return b.deps.DB.WithContext(ctx).Save(&row).Error
}

func (b *Backend) LoadDataBodies(ctx context.Context) ([]model.DataBody, error) {
	var rows []model.DataBody
	err := b.deps.DB.WithContext(ctx).Order("type, body").Find(&rows).Error
	return rows, err
}

func (b *Backend) UpsertDataBodies(ctx context.Context, rows []model.DataBody) error {
	if len(rows) == 0 {
		return nil
	}
	return b.deps.DB.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "type"}, {Name: "body"}},
		DoUpdates: clause.AssignmentColumns([]string{"current_error", "updated_at"}),
	}).Create(&rows).Error
}

func (b *Backend) ReplaceDataBodies(ctx context.Context, rows []model.DataBody) error {
	return b.deps.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Session(&gorm.Session{AllowGlobalUpdate: true}).Delete(&model.DataBody{}).Error; err != nil {
			return fmt.Errorf("clear data bodies: %w", err)
		}
		if len(rows) == 0 {
			return nil
		}
		return tx.Create(&rows).Error
	})
}

func (b *Backend) LoadResourceItems(ctx context.Context) ([]model.ResourceItem, error) {
	var rows []model.ResourceItem
	err := b.deps.DB.WithContext(ctx).Order("type, body, name").Find(&rows).Error
	return rows, err
}

func (b *Backend) UpsertResourceItems(ctx context.Context, rows []model.ResourceItem) error {
	if len(rows) == 0 {
		return nil
	}
	return b.deps.DB.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "type"}, {Name: "body"}, {Name: "name"}},
		DoUpdates: clause.AssignmentColumns([]string{"actual_density", "actual_error", "updated_at"}),
	}).Create(&rows).Error
}

// RecordGenerationRun queues a run for the history writer.
func (b *Backend) RecordGenerationRun(run *model.GenerationRun) error {
	if b.queues == nil {
		return errors.New("backend not initialized")
	}
	b.queues.Runs.Push(*run)
	return nil
}

// RecordProbe queues a probe report for the history writer.
func (b *Backend) RecordProbe(report *model.ProbeReport) error {
	if b.queues == nil {
		return errors.New("backend not initialized")
	}
	b.queues.Probes.Push(*report)
	return nil
}

// QueuedHistory reports how many history rows are waiting to be written.
func (b *Backend) QueuedHistory() int {
	if b.queues == nil {
		return 0
	}
	return b.queues.Runs.Len() + b.queues.Probes.Len()
}
