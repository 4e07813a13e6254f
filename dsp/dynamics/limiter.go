package dynamics

import "fmt"

// Limiter is a compressor fixed at 100:1 with a hard knee and a 0.1 ms
// attack. It holds the master bus close to its ceiling.
type Limiter struct {
	*Compressor
}

// NewLimiter returns a limiter with the given ceiling (dBFS) and release.
func NewLimiter(sampleRate, ceilingDB, releaseMs float64) (*Limiter, error) {
	c, err := NewCompressor(sampleRate,
		WithThreshold(ceilingDB),
		WithRatio(maxRatio),
		WithKnee(0),
		WithAttack(0.1),
		WithRelease(releaseMs),
	)
	if err != nil {
		return nil, fmt.Errorf("dynamics: limiter: %w", err)
	}
	return &Limiter{Compressor: c}, nil
}
