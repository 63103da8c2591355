/*
scheduler.go - Background settlement sweep

PURPOSE:
  Payments posted through the API recompute their document right away.
  Transactions that reach the ledger another way (general postings that
  carry a document id as source, imports, a crash between posting and
  recompute) are picked up here: every POSTED document is recomputed on
  an interval.

DESIGN:
  - One goroutine driven by a ticker, first sweep immediately on Start
  - Recompute is idempotent, so overlapping with request handlers is safe
  - A failing document is logged and skipped; the sweep goes on

USAGE:
  sweeper := NewSettlementSweeper(store, engine, 5*time.Minute, logger)
  sweeper.Start()
  // ... later
  sweeper.Stop()

SEE ALSO:
  - ledger/settlement.go: Recompute
  - handlers.go: RecomputeSettlement endpoint (manual recompute)
*/
package api

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/moon/ledger-engine/ledger"
)

// DocumentLister lists documents across books.
type DocumentLister interface {
	ListDocuments(ctx context.Context, bookID ledger.BookID, filter ledger.DocumentFilter) ([]ledger.SourceDocument, error)
}

// SweepResult counts what one sweep did.
type SweepResult struct {
	Checked  int
	Approved int
	Failed   int
}

// SettlementSweeper periodically recomputes POSTED documents.
type SettlementSweeper struct {
	docs     DocumentLister
	engine   *ledger.Engine
	interval time.Duration
	logger   *zap.Logger

	ticker *time.Ticker
	stop   chan struct{}
	wg     sync.WaitGroup
	mu     sync.Mutex
}

// NewSettlementSweeper creates a sweeper. A zero interval disables it.
func NewSettlementSweeper(docs DocumentLister, engine *ledger.Engine, interval time.Duration, logger *zap.Logger) *SettlementSweeper {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SettlementSweeper{
		docs:     docs,
		engine:   engine,
		interval: interval,
		logger:   logger.Named("sweeper"),
	}
}

// Start begins the sweep loop.
func (s *SettlementSweeper) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.interval <= 0 {
		s.logger.Info("disabled, not starting")
		return
	}
	if s.ticker != nil {
		return
	}

	s.ticker = time.NewTicker(s.interval)
	s.stop = make(chan struct{})
	s.wg.Add(1)

	go s.run()

	s.logger.Info("started", zap.Duration("interval", s.interval))
}

// Stop stops the loop and waits for a running sweep to finish.
func (s *SettlementSweeper) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.ticker != nil {
		s.ticker.Stop()
		close(s.stop)
		s.wg.Wait()
		s.ticker = nil
		s.logger.Info("stopped")
	}
}

func (s *SettlementSweeper) run() {
	defer s.wg.Done()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() {
		<-s.stop
		cancel()
	}()

	// Run immediately on start
	s.Sweep(ctx)

	for {
		select {
		case <-s.ticker.C:
			s.Sweep(ctx)
		case <-s.stop:
			return
		}
	}
}

// Sweep recomputes every POSTED document once.
func (s *SettlementSweeper) Sweep(ctx context.Context) SweepResult {
	var res SweepResult
	docs, err := s.docs.ListDocuments(ctx, "", ledger.DocumentFilter{Status: ledger.StatusPosted})
	if err != nil {
		s.logger.Error("list documents", zap.Error(err))
		return res
	}

	for _, doc := range docs {
		if ctx.Err() != nil {
			break
		}
		res.Checked++
		status, err := s.engine.RecomputeSettlement(ctx, doc.ID)
		if err != nil {
			res.Failed++
			s.logger.Warn("recompute failed",
				zap.String("document_id", string(doc.ID)),
				zap.Error(err))
			continue
		}
		if status == ledger.StatusApproved {
			res.Approved++
		}
	}

	if res.Checked > 0 {
		s.logger.Info("sweep done",
			zap.Int("checked", res.Checked),
			zap.Int("approved", res.Approved),
			zap.Int("failed", res.Failed))
	}
	return res
}
