package audit

/*
Файл journal.go реализует асинхронный журнал отказов.
Проверка размещения не должна ждать базу: событие кладется в буферизированный канал,
воркер пишет пачками по таймеру или по достижении лимита, при Stop дочитывает всё до конца.
*/

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
)

// StorageInterface определяет, куда физически будут сохраняться события
type StorageInterface interface {
	WriteBatch(ctx context.Context, events []DenialEvent) error
}

type Auditor interface {
	Log(event DenialEvent)
}

// Nop — журнал выключен.
type Nop struct{}

func (Nop) Log(DenialEvent) {}

type Options struct {
	BufferSize    int
	BatchSize     int
	FlushInterval time.Duration
	// OnFill — текущая заполненность буфера, для метрики backpressure. Может быть nil.
	OnFill func(n int)
}

type Journal struct {
	ch       chan DenialEvent
	repo     StorageInterface
	logger   *zap.Logger
	opts     Options
	wg       sync.WaitGroup
	isClosed atomic.Bool
	mu       sync.RWMutex // Log держит RLock, Stop: Lock перед close(ch)
}

func NewJournal(repo StorageInterface, opts Options, logger *zap.Logger) *Journal {
	if opts.BufferSize <= 0 {
		opts.BufferSize = 1000
	}
	if opts.BatchSize <= 0 {
		opts.BatchSize = 100
	}
	if opts.FlushInterval <= 0 {
		opts.FlushInterval = time.Second
	}
	return &Journal{
		ch:     make(chan DenialEvent, opts.BufferSize),
		repo:   repo,
		opts:   opts,
		logger: logger.With(zap.String("mod", "journal")),
	}
}

func (j *Journal) Start() {
	j.wg.Add(1)
	go j.worker()
}

// Stop «запирает» вход в канал и ждет, пока воркер всё допишет.
func (j *Journal) Stop() {
	j.mu.Lock()
	if j.isClosed.Swap(true) {
		j.mu.Unlock()
		return
	}
	j.logger.Info("stopping journal: closing channel and flushing buffer...")
	close(j.ch)
	j.mu.Unlock()

	j.wg.Wait()
	j.logger.Info("journal stopped gracefully")
}

func (j *Journal) Log(event DenialEvent) {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}

	j.mu.RLock()
	defer j.mu.RUnlock()

	if j.isClosed.Load() {
		j.logger.Warn("denial event dropped: journal is stopping", zap.String("id", event.ID))
		return
	}

	// Load Shedding: переполненный буфер не тормозит Hot Path
	select {
	case j.ch <- event:
		if j.opts.OnFill != nil {
			j.opts.OnFill(len(j.ch))
		}
	default:
		j.logger.Error("journal_buffer_overflow",
			zap.String("actor_id", event.ActorID),
			zap.String("trace_id", event.TraceID),
		)
	}
}

func (j *Journal) worker() {
	defer j.wg.Done()

	batch := make([]DenialEvent, 0, j.opts.BatchSize)
	ticker := time.NewTicker(j.opts.FlushInterval)
	defer ticker.Stop()

	flush := func() {
		if len(batch) == 0 {
			return
		}
		// Background, так как основной контекст может быть уже закрыт
		if err := j.repo.WriteBatch(context.Background(), batch); err != nil {
			j.logger.Error("journal flush failed", zap.Int("events", len(batch)), zap.Error(err))
		}
		batch = batch[:0]
		if j.opts.OnFill != nil {
			j.opts.OnFill(len(j.ch))
		}
	}

	for {
		select {
		case event, ok := <-j.ch:
			if !ok {
				flush() // Финальный сброс
				j.logger.Info("journal worker finished")
				return
			}
			batch = append(batch, event)
			if len(batch) >= j.opts.BatchSize {
				flush()
			}
		case <-ticker.C:
			flush()
		}
	}
}
