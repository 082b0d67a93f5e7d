package ports

import (
	"context"
	"time"

	"FilingScanner/internal/domain"
)

// Analyzer turns a section of filing text into a structured analysis
// record. Implementations must be side-effect free and idempotent.
type Analyzer interface {
	Analyze(ctx context.Context, text string) (domain.AnalysisResult, error)
}

// Enricher looks up filer metadata used to decide whether a filing is
// worth downloading.
type Enricher interface {
	LookupEntity(ctx context.Context, cik string) (domain.EntityMetadata, error)
}

// Notifier publishes a short run summary to an external channel.
type Notifier interface {
	PublishDigest(ctx context.Context, digest string) error
}

// Scheduler controls when pipeline runs execute.
type Scheduler interface {
	Start(ctx context.Context, job func(time.Time)) error
	Stop(ctx context.Context) error
}
