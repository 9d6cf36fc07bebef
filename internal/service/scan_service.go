package service

import (
	"context"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/qr-attend-api/internal/models"
)

// CodeSource yields the next scanned code, or an empty string when nothing
// was read on this tick.
type CodeSource func(ctx context.Context) (string, error)

// ScanResult reports the outcome of one resolution attempt made by the loop.
type ScanResult struct {
	Code   string
	Record *models.AttendanceRecord
	Err    error
}

// ScanLoopConfig configures the periodic scan loop.
type ScanLoopConfig struct {
	TickInterval time.Duration
	OnResult     func(ScanResult)
	Logger       *zap.Logger
}

// ScanLoop drives the scanning mode: one resolution attempt per tick
// against a code source. Stopping the loop stops issuing new attempts
// immediately; at most one attempt already in flight is allowed to finish.
type ScanLoop struct {
	source   CodeSource
	checkins *CheckinService

	interval time.Duration
	onResult func(ScanResult)
	logger   *zap.Logger

	ctx     context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	mu      sync.Mutex
	started bool
}

// NewScanLoop builds a scan loop over the given source and check-in service.
func NewScanLoop(source CodeSource, checkins *CheckinService, cfg ScanLoopConfig) *ScanLoop {
	if cfg.TickInterval <= 0 {
		cfg.TickInterval = time.Second
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	return &ScanLoop{
		source:   source,
		checkins: checkins,
		interval: cfg.TickInterval,
		onResult: cfg.OnResult,
		logger:   cfg.Logger,
	}
}

// Start begins ticking. Safe to call once per loop instance.
func (l *ScanLoop) Start(ctx context.Context) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.started {
		return
	}
	l.ctx, l.cancel = context.WithCancel(ctx)
	l.wg.Add(1)
	go l.run()
	l.started = true
	l.logger.Sugar().Infow("scan loop started", "interval", l.interval)
}

// Stop cancels the loop and waits for any in-flight attempt to finish.
func (l *ScanLoop) Stop() {
	l.mu.Lock()
	if !l.started {
		l.mu.Unlock()
		return
	}
	l.cancel()
	l.mu.Unlock()
	l.wg.Wait()
	l.logger.Sugar().Infow("scan loop stopped")
}

func (l *ScanLoop) run() {
	defer l.wg.Done()
	ticker := time.NewTicker(l.interval)
	defer ticker.Stop()
	for {
		select {
		case <-l.ctx.Done():
			return
		case <-ticker.C:
			l.attempt()
		}
	}
}

// attempt performs a single read-and-resolve cycle. The loop context is
// checked again before the check-in call so a stop between tick and read
// does not start a new attempt.
func (l *ScanLoop) attempt() {
	code, err := l.source(l.ctx)
	if err != nil {
		l.logger.Warn("scan source read failed", zap.Error(err))
		return
	}
	code = strings.TrimSpace(code)
	if code == "" {
		return
	}
	if l.ctx.Err() != nil {
		return
	}

	record, err := l.checkins.CheckIn(l.ctx, code)
	if l.onResult != nil {
		l.onResult(ScanResult{Code: code, Record: record, Err: err})
	}
}
