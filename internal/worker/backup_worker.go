package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"hermes/internal/filestore"
	"hermes/internal/logger"
	"hermes/internal/store"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Exporter - источник снимков данных пользователей
type Exporter interface {
	Owners(ctx context.Context) ([]uuid.UUID, error)
	ExportAll(ctx context.Context, owner uuid.UUID) (*store.Snapshot, error)
}

// BackupWorker периодически выгружает данные каждого пользователя
// в файловое хранилище под backups/<owner>/<время>.json
type BackupWorker struct {
	source    Exporter
	files     filestore.Store
	interval  time.Duration
	batchSize int
	now       func() time.Time

	// cursor - с какого пользователя начнётся следующий проход
	cursor int
}

func NewBackupWorker(source Exporter, files filestore.Store, interval *time.Duration, batchSize *int) *BackupWorker {
	var intervalToSet time.Duration
	if interval == nil || *interval <= 0 {
		intervalToSet = time.Hour
	} else {
		intervalToSet = *interval
	}

	var batchToSet int
	if batchSize == nil {
		batchToSet = 100
	} else {
		batchToSet = *batchSize
	}
	return &BackupWorker{
		source:    source,
		files:     files,
		interval:  intervalToSet,
		batchSize: batchToSet,
		now:       time.Now,
	}
}

func (w *BackupWorker) Start(ctx context.Context) {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			logger.Info("Worker: Фоновое резервное копирование", zap.Time("started_at", time.Now()))
			w.RunOnce(ctx)
		case <-ctx.Done():
			logger.Info("Worker: Резервное копирование останавливается")
			return
		}
	}
}

// RunOnce обрабатывает не более batchSize пользователей, начиная с места, где
// остановился предыдущий проход, и возвращает число сохранённых снимков.
// За ceil(owners/batchSize) проходов каждый пользователь обрабатывается хотя бы раз.
func (w *BackupWorker) RunOnce(ctx context.Context) int {
	start := time.Now()

	owners, err := w.source.Owners(ctx)
	if err != nil {
		logger.Warn("Worker: ошибка получения пользователей", zap.Error(err))
		return 0
	}
	if len(owners) == 0 {
		return 0
	}

	batch := w.batchSize
	if batch <= 0 || batch > len(owners) {
		batch = len(owners)
	}
	first := w.cursor % len(owners)

	saved := 0
	for i := 0; i < batch; i++ {
		if ctx.Err() != nil {
			break
		}
		owner := owners[(first+i)%len(owners)]
		w.cursor = (first + i + 1) % len(owners)
		if err := w.Backup(ctx, owner); err != nil {
			logger.Warn("Worker: Ошибка резервного копирования",
				zap.String("owner", owner.String()),
				zap.Error(err))
			continue
		}
		saved++
	}

	logger.Info(
		"Worker: Завершение резервного копирования",
		zap.Duration("ms", time.Since(start)),
		zap.Int("owners", len(owners)),
		zap.Int("saved", saved),
	)
	return saved
}

func (w *BackupWorker) Backup(ctx context.Context, owner uuid.UUID) error {
	snap, err := w.source.ExportAll(ctx, owner)
	if err != nil {
		return fmt.Errorf("экспорт данных: %w", err)
	}

	data, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("сериализация снимка: %w", err)
	}

	key := BackupKey(owner, w.now())
	if err := w.files.Put(ctx, key, data, "application/json"); err != nil {
		return fmt.Errorf("сохранение %s: %w", key, err)
	}
	return nil
}

func BackupKey(owner uuid.UUID, at time.Time) string {
	return fmt.Sprintf("backups/%s/%s.json", owner, at.UTC().Format("20060102T150405Z"))
}
