package grading

import (
	"errors"
	"math"
)

// Bulk adjustment operations
const (
	BulkSetAll    = "set_all"
	BulkAddPoints = "add_points"
	BulkMultiply  = "multiply"
	BulkCurve     = "curve"
)

// ErrInvalidOperation rejects the whole batch; no partial application.
var ErrInvalidOperation = errors.New("invalid bulk operation")

// ScorePair is one (currentScore, maxScore) pair of a batch.
type ScorePair struct {
	Score    float64 `json:"score"`
	MaxScore float64 `json:"max_score"`
}

// ApplyBulk applies one operation across the batch and returns the
// adjusted copy. After every application each score is clamped to
// [0, maxScore]; that clamp is the only invariant the operator
// guarantees. Repeated application with the same parameters is NOT
// idempotent for add_points and multiply.
func ApplyBulk(op string, value float64, scores []ScorePair) ([]ScorePair, error) {
	if math.IsNaN(value) || math.IsInf(value, 0) {
		return nil, ErrInvalidOperation
	}
	switch op {
	case BulkSetAll, BulkAddPoints, BulkMultiply, BulkCurve:
	default:
		return nil, ErrInvalidOperation
	}

	adjusted := make([]ScorePair, len(scores))
	for i, pair := range scores {
		score := pair.Score
		switch op {
		case BulkSetAll:
			score = value
		case BulkAddPoints:
			score += value
		case BulkMultiply:
			score *= value
		case BulkCurve:
			score += pair.MaxScore * (value / 100)
		}
		adjusted[i] = ScorePair{Score: clamp(score, 0, pair.MaxScore), MaxScore: pair.MaxScore}
	}
	return adjusted, nil
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
