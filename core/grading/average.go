package grading

import "github.com/volatiletech/null/v8"

// PointScale is the scale subject and overall averages are expressed on.
const PointScale = 20.0

type weightedValue struct {
	value  float64
	weight float64
}

// weightedMean folds n (value, weight) pairs into Σ(value×weight)/Σ(weight).
// It is the single implementation behind both the subject-level and the
// overall-level average so the two can never drift apart.
// The result is invalid when n == 0 or the weight sum is 0; an invalid
// average means "no grade yet", never 0.
func weightedMean(n int, at func(i int) (value, weight float64)) null.Float64 {
	if n == 0 {
		return null.Float64{}
	}
	var sum, weightSum float64
	for i := 0; i < n; i++ {
		value, weight := at(i)
		sum += value * weight
		weightSum += weight
	}
	if weightSum == 0 {
		return null.Float64{}
	}
	return null.Float64From(sum / weightSum)
}

// SubjectAverage folds a student's grade entries for one subject into a
// weighted average on [0, PointScale]. Malformed entries (invalid
// score/max pair or non-positive coefficient) are dropped; entries with
// score > maxScore are averaged at full marks and reported as warnings.
func SubjectAverage(entries []GradeEntry) (null.Float64, []Warning) {
	var warnings []Warning
	values := make([]weightedValue, 0, len(entries))
	for _, entry := range entries {
		if entry.Coefficient <= 0 {
			continue
		}
		norm, warn, err := Normalize(entry.Score, entry.MaxScore)
		if err != nil {
			continue
		}
		if warn != nil {
			warn.EntryID = entry.ID
			warn.StudentID = entry.StudentID
			warn.Subject = entry.Subject
			warnings = append(warnings, *warn)
		}
		values = append(values, weightedValue{value: norm * PointScale, weight: entry.Coefficient})
	}
	avg := weightedMean(len(values), func(i int) (float64, float64) {
		return values[i].value, values[i].weight
	})
	return avg, warnings
}

// SubjectGrades groups one subject's entries with the subject's own
// coefficient for the overall computation.
type SubjectGrades struct {
	Subject     string
	Coefficient float64 // defaults to 1 unless positive
	Entries     []GradeEntry
}

// OverallAverage folds per-subject averages into one overall average for
// a student/term. A subject with no entries (or no valid average) is
// excluded from both numerator and denominator, not counted as 0.
func OverallAverage(subjects []SubjectGrades) (null.Float64, []Warning) {
	var warnings []Warning
	values := make([]weightedValue, 0, len(subjects))
	for _, subj := range subjects {
		avg, warns := SubjectAverage(subj.Entries)
		warnings = append(warnings, warns...)
		if !avg.Valid {
			continue
		}
		coef := subj.Coefficient
		if coef <= 0 {
			coef = DefaultCoefficient
		}
		values = append(values, weightedValue{value: avg.Float64, weight: coef})
	}
	avg := weightedMean(len(values), func(i int) (float64, float64) {
		return values[i].value, values[i].weight
	})
	return avg, warnings
}

// Percent converts an average on [0, PointScale] to the 0-100 scale.
func Percent(avg float64) float64 {
	return avg / PointScale * 100
}

// LetterGrade maps a percentage to its letter. Lower bounds are
// inclusive; callers pre-clamp the input to [0, 100].
func LetterGrade(pct float64) string {
	switch {
	case pct >= 97:
		return "A+"
	case pct >= 93:
		return "A"
	case pct >= 90:
		return "B+"
	case pct >= 87:
		return "B"
	case pct >= 83:
		return "C+"
	case pct >= 80:
		return "C"
	case pct >= 70:
		return "D"
	default:
		return "F"
	}
}
