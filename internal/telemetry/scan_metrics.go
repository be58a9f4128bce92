// Package telemetry records per-scan metrics. All data is stored locally in
// the session store; nothing is reported externally.
package telemetry

import (
	"context"
	"log/slog"
	"time"

	"github.com/scandex-dev/scandex/internal/store"
)

// DurationBucket is a scan duration histogram bucket.
type DurationBucket string

const (
	BucketFast    DurationBucket = "lt100ms"
	BucketNormal  DurationBucket = "lt1s"
	BucketSlow    DurationBucket = "lt10s"
	BucketCrawl   DurationBucket = "gte10s"
)

// DurationToBucket converts a scan duration to its histogram bucket.
func DurationToBucket(d time.Duration) DurationBucket {
	switch {
	case d < 100*time.Millisecond:
		return BucketFast
	case d < time.Second:
		return BucketNormal
	case d < 10*time.Second:
		return BucketSlow
	default:
		return BucketCrawl
	}
}

// History is the store surface the recorder needs.
type History interface {
	RecordScan(ctx context.Context, rec store.ScanRecord) error
	RecentScans(ctx context.Context, limit int) ([]store.ScanRecord, error)
}

// Recorder persists scan metrics into the session store.
type Recorder struct {
	history History
}

// NewRecorder creates a recorder writing into h.
func NewRecorder(h History) *Recorder {
	return &Recorder{history: h}
}

// Record appends one scan pass. A store failure is logged; metrics loss
// never fails a scan.
func (r *Recorder) Record(ctx context.Context, rec store.ScanRecord) {
	if err := r.history.RecordScan(ctx, rec); err != nil {
		slog.Warn("failed to record scan metrics", slog.String("error", err.Error()))
		return
	}
	slog.Debug("scan recorded",
		slog.Int64("files", rec.Files),
		slog.Int64("indexed", rec.Indexed),
		slog.String("duration_bucket", string(DurationToBucket(rec.Duration))))
}

// Recent returns up to limit scan records, newest first.
func (r *Recorder) Recent(ctx context.Context, limit int) ([]store.ScanRecord, error) {
	return r.history.RecentScans(ctx, limit)
}
