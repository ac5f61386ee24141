package provision

import (
	"context"
	"errors"
	"math"
	"time"

	"github.com/streamlinelabs/streamline-installer/internal/domain/release"
	"github.com/streamlinelabs/streamline-installer/internal/logger"
	"github.com/streamlinelabs/streamline-installer/internal/service/fetcher"
)

// maxRetryDelay caps the delay between fetch attempts.
const maxRetryDelay = 30 * time.Second

// retryDelay returns the delay before retry number attempt (1-based).
func retryDelay(initial time.Duration, attempt int) time.Duration {
	if initial <= 0 {
		return 0
	}

	if attempt <= 1 {
		return initial
	}

	delay := float64(initial) * math.Pow(2, float64(attempt-1))
	if delay > float64(maxRetryDelay) {
		return maxRetryDelay
	}

	return time.Duration(delay)
}

// fetchWithRetry retries transport failures only. Every other error is final.
func (p *Provisioner) fetchWithRetry(ctx context.Context, desc release.ArtifactDescriptor) (*fetcher.VerifiedArtifact, error) {
	for attempt := 0; ; attempt++ {
		artifact, err := p.fetcher.Fetch(ctx, desc)
		if err == nil {
			return artifact, nil
		}

		if !errors.Is(err, release.ErrFetch) || attempt >= p.retries {
			return nil, err
		}

		delay := retryDelay(p.retryDelay, attempt+1)
		logger.WarnKV(ctx, "Fetch failed, retrying",
			"attempt", attempt+1, "retries", p.retries, "delay", delay.String(), "error", err)

		timer := time.NewTimer(delay)

		select {
		case <-ctx.Done():
			timer.Stop()

			return nil, errors.Join(err, ctx.Err())
		case <-timer.C:
		}
	}
}
