// internal/history/ledger.go
package history

import (
	"context"
	"sort"
	"time"

	apperrors "medsearch-service/internal/common/errors"
	"medsearch-service/internal/common/metrics"
	"medsearch-service/internal/models"
)

const MaxRecent = 50

type Logger interface {
	Debug(msg string, fields map[string]interface{})
	Error(msg string, fields map[string]interface{})
}

// Ledger records every inbound query and replays recent ones.
type Ledger struct {
	store        Store
	writeTimeout time.Duration
	logger       Logger
}

func NewLedger(store Store, writeTimeout time.Duration, logger Logger) *Ledger {
	if writeTimeout <= 0 {
		writeTimeout = 2 * time.Second
	}
	return &Ledger{store: store, writeTimeout: writeTimeout, logger: logger}
}

// Record appends q. It is bounded by the write timeout and never fails the
// caller: errors are logged and counted.
func (l *Ledger) Record(ctx context.Context, q models.Query) {
	writeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), l.writeTimeout)
	defer cancel()

	defer func() {
		if r := recover(); r != nil {
			metrics.HistoryWriteFailures.Inc()
			l.logger.Error("history store panicked on insert", map[string]interface{}{
				"queryId": q.ID,
				"panic":   r,
			})
		}
	}()

	if err := l.store.Insert(writeCtx, q); err != nil {
		metrics.HistoryWriteFailures.Inc()
		stdErr := apperrors.NewHistoryWriteFailedError(err)
		l.logger.Error(stdErr.Message, map[string]interface{}{
			"errorCode": string(stdErr.Code),
			"queryId":   q.ID,
			"category":  string(q.Category),
			"backend":   l.store.Name(),
			"error":     err.Error(),
		})
		return
	}

	l.logger.Debug("search recorded", map[string]interface{}{
		"queryId":  q.ID,
		"category": string(q.Category),
	})
}

// Recent returns up to limit queries, newest first. limit <= 0 means
// MaxRecent; larger values are capped at MaxRecent.
func (l *Ledger) Recent(ctx context.Context, limit int) ([]models.Query, error) {
	if limit <= 0 || limit > MaxRecent {
		limit = MaxRecent
	}

	entries, err := l.store.FindSorted(ctx, limit)
	if err != nil {
		l.logger.Error("failed to read search history", map[string]interface{}{
			"backend": l.store.Name(),
			"error":   err.Error(),
		})
		return nil, apperrors.NewHistoryUnavailableError(err)
	}

	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].Timestamp.After(entries[j].Timestamp)
	})
	if len(entries) > limit {
		entries = entries[:limit]
	}
	if entries == nil {
		entries = []models.Query{}
	}
	return entries, nil
}

func (l *Ledger) Ping(ctx context.Context) error {
	return l.store.Ping(ctx)
}

func (l *Ledger) Backend() string {
	return l.store.Name()
}
