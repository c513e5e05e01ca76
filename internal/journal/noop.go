package journal

import "StopLineTrader/internal/model"

// NoopJournal is a no-op implementation used when SQLite is not configured.
type NoopJournal struct{}

func NewNoopJournal() *NoopJournal { return &NoopJournal{} }

func (n *NoopJournal) RecordOrder(_ *OrderEvent) error                { return nil }
func (n *NoopJournal) RecordCancel(_ *CancelEvent) error              { return nil }
func (n *NoopJournal) RecordSessionEnd(_ *model.SessionSummary) error { return nil }
func (n *NoopJournal) Close() error                                   { return nil }
