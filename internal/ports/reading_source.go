package ports

import (
	"context"
	"time"

	"github.com/bnema/mycelium-pulse/internal/domain"
)

// ReadingSource returns the most recent reading for a domain and focus area
// no older than maxAge, or domain.ErrReadingNotFound.
type ReadingSource interface {
	LatestReading(ctx context.Context, domainID domain.DomainID, focusArea string, maxAge time.Duration) (domain.Reading, error)
}
