package grading

import (
	"errors"
	"fmt"
	"math"
)

// ErrInvalidGrade rejects a malformed (score, maxScore) pair. It is
// always local to the single entry; callers recover by dropping it.
var ErrInvalidGrade = errors.New("invalid grade: score must be >= 0 and max score > 0")

// Warning records a score that exceeded its max score. It is non-fatal:
// the entry is averaged at its clamped value and the warning is kept
// for audit.
type Warning struct {
	EntryID   string  `json:"entry_id"`
	StudentID string  `json:"student_id"`
	Subject   string  `json:"subject"`
	Score     float64 `json:"score"`
	MaxScore  float64 `json:"max_score"`
}

func (w Warning) String() string {
	return fmt.Sprintf("score %v exceeds max score %v (student=%s subject=%s entry=%s)",
		w.Score, w.MaxScore, w.StudentID, w.Subject, w.EntryID)
}

// Normalize maps a raw score onto the unit interval [0, 1].
// A score above maxScore clamps to 1 and yields a non-nil Warning.
// Pure; no side effects.
func Normalize(score, maxScore float64) (float64, *Warning, error) {
	if math.IsNaN(score) || math.IsInf(score, 0) || math.IsNaN(maxScore) || math.IsInf(maxScore, 0) {
		return 0, nil, ErrInvalidGrade
	}
	if maxScore <= 0 || score < 0 {
		return 0, nil, ErrInvalidGrade
	}
	if score > maxScore {
		return 1, &Warning{Score: score, MaxScore: maxScore}, nil
	}
	return score / maxScore, nil, nil
}
