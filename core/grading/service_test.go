package grading_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pensezy/edutrack/core"
	"github.com/pensezy/edutrack/core/grading"
	dummydb "github.com/pensezy/edutrack/storage/database/dummy"
	testutil "github.com/pensezy/edutrack/tests"
)

func newTestService(t *testing.T) (*grading.Service, grading.Repository, *testutil.Logger) {
	t.Helper()
	db, err := dummydb.Open()
	require.NoError(t, err)
	repo := dummydb.NewGradeEntryRepository(db)
	logger := testutil.NewLogger()
	return grading.NewService(repo, logger), repo, logger
}

func newEntry(studentID, subject, title string, score, max float64) grading.NewGradeEntry {
	return grading.NewGradeEntry{
		StudentID: studentID,
		Subject:   subject,
		TermID:    "term-1",
		Title:     title,
		Kind:      grading.KindExamination,
		Score:     score,
		MaxScore:  max,
	}
}

func TestService_PublishBatch(t *testing.T) {
	ctx := context.Background()
	scope := core.NewSchoolScope("sch-1", "teacher-1")

	t.Run("ok", func(t *testing.T) {
		svc, _, _ := newTestService(t)
		entries, err := svc.PublishBatch(ctx, scope, []grading.NewGradeEntry{
			newEntry("std-1", "Math", "Midterm", 14, 20),
			newEntry("std-2", "Math", "Midterm", 9, 20),
		})
		require.NoError(t, err)
		require.Len(t, entries, 2)
		for _, entry := range entries {
			assert.Equal(t, "sch-1", entry.SchoolID)
			assert.Equal(t, "teacher-1", entry.TeacherID)
			assert.Equal(t, grading.KindWeights[grading.KindExamination], entry.Coefficient)
			assert.False(t, entry.OutOfRange)
		}
	})

	t.Run("one invalid entry rejects the whole batch", func(t *testing.T) {
		svc, _, _ := newTestService(t)
		bad := newEntry("std-2", "Math", "Midterm", 9, 20)
		bad.Kind = "vibes"
		_, err := svc.PublishBatch(ctx, scope, []grading.NewGradeEntry{
			newEntry("std-1", "Math", "Midterm", 14, 20),
			bad,
		})
		require.Error(t, err)

		entries, err := svc.Filter(ctx, scope, grading.QueryFilter{Subject: "Math"})
		require.NoError(t, err)
		assert.Empty(t, entries, "a rejected batch must store nothing")
	})

	t.Run("negative score rejects the batch", func(t *testing.T) {
		svc, _, _ := newTestService(t)
		_, err := svc.PublishBatch(ctx, scope, []grading.NewGradeEntry{
			newEntry("std-1", "Math", "Midterm", -3, 20),
		})
		require.Error(t, err)
	})

	t.Run("out of range entry stores clamped flag and warns", func(t *testing.T) {
		svc, _, logger := newTestService(t)
		entries, err := svc.PublishBatch(ctx, scope, []grading.NewGradeEntry{
			newEntry("std-1", "Math", "Bonus quiz", 22, 20),
		})
		require.NoError(t, err)
		require.Len(t, entries, 1)
		assert.True(t, entries[0].OutOfRange)
		assert.Equal(t, 22.0, entries[0].Score, "the raw score is kept as entered")
		assert.Len(t, logger.Logged("WARN"), 1)
	})

	t.Run("invalid scope", func(t *testing.T) {
		svc, _, _ := newTestService(t)
		_, err := svc.PublishBatch(ctx, core.SchoolScope{}, []grading.NewGradeEntry{
			newEntry("std-1", "Math", "Midterm", 14, 20),
		})
		assert.ErrorIs(t, err, core.ErrTenantIsolation)
	})
}

func TestService_Publish_idempotentRepublish(t *testing.T) {
	ctx := context.Background()
	scope := core.NewSchoolScope("sch-1", "teacher-1")
	svc, _, _ := newTestService(t)

	first, err := svc.Publish(ctx, scope, newEntry("std-1", "Math", "Midterm", 14, 20))
	require.NoError(t, err)

	second, err := svc.Publish(ctx, scope, newEntry("std-1", "Math", "Midterm", 16, 20))
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID, "republishing the same entry updates in place")
	assert.Equal(t, 16.0, second.Score)

	entries, err := svc.Filter(ctx, scope, grading.QueryFilter{StudentID: "std-1"})
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestService_Amend(t *testing.T) {
	ctx := context.Background()
	scope := core.NewSchoolScope("sch-1", "teacher-1")
	score := func(v float64) *float64 { return &v }

	t.Run("author amends score", func(t *testing.T) {
		svc, _, _ := newTestService(t)
		entry, err := svc.Publish(ctx, scope, newEntry("std-1", "Math", "Midterm", 14, 20))
		require.NoError(t, err)

		amended, err := svc.Amend(ctx, scope, entry.ID, grading.AmendGradeEntry{Score: score(17)})
		require.NoError(t, err)
		assert.Equal(t, 17.0, amended.Score)
		assert.Equal(t, entry.ID, amended.ID)
	})

	t.Run("non author is refused", func(t *testing.T) {
		svc, _, _ := newTestService(t)
		entry, err := svc.Publish(ctx, scope, newEntry("std-1", "Math", "Midterm", 14, 20))
		require.NoError(t, err)

		other := core.NewSchoolScope("sch-1", "teacher-2")
		_, err = svc.Amend(ctx, other, entry.ID, grading.AmendGradeEntry{Score: score(20)})
		assert.ErrorIs(t, err, grading.ErrNotAuthor)
	})

	t.Run("another school cannot see the entry", func(t *testing.T) {
		svc, _, _ := newTestService(t)
		entry, err := svc.Publish(ctx, scope, newEntry("std-1", "Math", "Midterm", 14, 20))
		require.NoError(t, err)

		other := core.NewSchoolScope("sch-2", "teacher-1")
		_, err = svc.Amend(ctx, other, entry.ID, grading.AmendGradeEntry{Score: score(20)})
		assert.ErrorIs(t, err, grading.ErrNotFound)
	})

	t.Run("amend above max flags out of range", func(t *testing.T) {
		svc, _, logger := newTestService(t)
		entry, err := svc.Publish(ctx, scope, newEntry("std-1", "Math", "Midterm", 14, 20))
		require.NoError(t, err)

		amended, err := svc.Amend(ctx, scope, entry.ID, grading.AmendGradeEntry{Score: score(23)})
		require.NoError(t, err)
		assert.True(t, amended.OutOfRange)
		assert.Len(t, logger.Logged("WARN"), 1)
	})

	t.Run("retitling onto another entry is a field error", func(t *testing.T) {
		svc, _, _ := newTestService(t)
		_, err := svc.Publish(ctx, scope, newEntry("std-1", "Math", "Midterm", 14, 20))
		require.NoError(t, err)
		final, err := svc.Publish(ctx, scope, newEntry("std-1", "Math", "Final", 16, 20))
		require.NoError(t, err)

		_, err = svc.Amend(ctx, scope, final.ID, grading.AmendGradeEntry{Title: "Midterm"})
		var verr *core.ValidationError
		require.ErrorAs(t, err, &verr)
		require.Len(t, verr.Fields, 1)
		assert.Equal(t, "title", verr.Fields[0].Field)
		assert.ErrorIs(t, err, grading.ErrDuplicateEntry)
	})

	t.Run("unknown entry", func(t *testing.T) {
		svc, _, _ := newTestService(t)
		_, err := svc.Amend(ctx, scope, "nope", grading.AmendGradeEntry{Score: score(10)})
		assert.ErrorIs(t, err, grading.ErrNotFound)
	})
}

func TestService_ApplyAdjustment(t *testing.T) {
	ctx := context.Background()
	scope := core.NewSchoolScope("sch-1", "teacher-1")

	seed := func(t *testing.T, svc *grading.Service) {
		t.Helper()
		_, err := svc.PublishBatch(ctx, scope, []grading.NewGradeEntry{
			newEntry("std-1", "Math", "Midterm", 14, 20),
			newEntry("std-2", "Math", "Midterm", 19, 20),
			newEntry("std-3", "Math", "Midterm", 2, 20),
		})
		require.NoError(t, err)
	}

	t.Run("curve clamps at max", func(t *testing.T) {
		svc, _, _ := newTestService(t)
		seed(t, svc)

		adjusted, err := svc.ApplyAdjustment(ctx, scope, grading.QueryFilter{Subject: "Math"}, grading.BulkCurve, 10)
		require.NoError(t, err)
		require.Len(t, adjusted, 3)

		byStudent := make(map[string]float64, len(adjusted))
		for _, entry := range adjusted {
			byStudent[entry.StudentID] = entry.Score
			assert.False(t, entry.OutOfRange)
		}
		assert.Equal(t, 16.0, byStudent["std-1"])
		assert.Equal(t, 20.0, byStudent["std-2"])
		assert.Equal(t, 4.0, byStudent["std-3"])
	})

	t.Run("unknown operation leaves entries untouched", func(t *testing.T) {
		svc, _, _ := newTestService(t)
		seed(t, svc)

		_, err := svc.ApplyAdjustment(ctx, scope, grading.QueryFilter{Subject: "Math"}, "divide", 2)
		assert.ErrorIs(t, err, grading.ErrInvalidOperation)

		entries, err := svc.Filter(ctx, scope, grading.QueryFilter{Subject: "Math"})
		require.NoError(t, err)
		for _, entry := range entries {
			assert.Contains(t, []float64{14, 19, 2}, entry.Score)
		}
	})

	t.Run("filter narrows the batch", func(t *testing.T) {
		svc, _, _ := newTestService(t)
		seed(t, svc)

		adjusted, err := svc.ApplyAdjustment(ctx, scope, grading.QueryFilter{StudentID: "std-3"}, grading.BulkAddPoints, 3)
		require.NoError(t, err)
		require.Len(t, adjusted, 1)
		assert.Equal(t, 5.0, adjusted[0].Score)
	})
}

func TestService_TermReport(t *testing.T) {
	ctx := context.Background()
	scope := core.NewSchoolScope("sch-1", "teacher-1")
	svc, _, _ := newTestService(t)

	_, err := svc.PublishBatch(ctx, scope, []grading.NewGradeEntry{
		newEntry("std-1", "Math", "Midterm", 16, 20),
		{StudentID: "std-1", Subject: "Math", TermID: "term-1", Title: "HW 1", Kind: grading.KindHomework, Score: 10, MaxScore: 20},
		newEntry("std-1", "Art", "Portrait", 8, 20),
	})
	require.NoError(t, err)
	// another student's grades must not leak into the report
	_, err = svc.Publish(ctx, scope, newEntry("std-2", "Math", "Midterm", 3, 20))
	require.NoError(t, err)

	report, err := svc.TermReport(ctx, scope, "std-1", "term-1", map[string]float64{"Math": 3})
	require.NoError(t, err)

	require.Len(t, report.Subjects, 2)
	art, math := report.Subjects[0], report.Subjects[1]
	assert.Equal(t, "Art", art.Subject)
	assert.Equal(t, "Math", math.Subject)

	// Math: (16*3 + 10*1) / 4 = 14.5
	require.True(t, math.Average.Valid)
	assert.InDelta(t, 14.5, math.Average.Float64, 1e-9)
	assert.Equal(t, "D", math.Letter.String)

	require.True(t, art.Average.Valid)
	assert.InDelta(t, 8.0, art.Average.Float64, 1e-9)
	assert.Equal(t, "F", art.Letter.String)

	// Overall: (14.5*3 + 8*1) / 4 = 12.875
	require.True(t, report.Overall.Valid)
	assert.InDelta(t, 12.875, report.Overall.Float64, 1e-9)
	assert.Equal(t, "F", report.Letter.String)
}

func TestService_TermReport_negativeCoefficient(t *testing.T) {
	ctx := context.Background()
	scope := core.NewSchoolScope("sch-1", "teacher-1")
	svc, _, _ := newTestService(t)

	_, err := svc.PublishBatch(ctx, scope, []grading.NewGradeEntry{
		newEntry("std-1", "Math", "Midterm", 16, 20),
		newEntry("std-1", "Art", "Portrait", 8, 20),
	})
	require.NoError(t, err)

	// a bogus negative coefficient falls back to 1 instead of inverting the mean
	report, err := svc.TermReport(ctx, scope, "std-1", "term-1", map[string]float64{"Math": -5})
	require.NoError(t, err)
	require.True(t, report.Overall.Valid)
	assert.InDelta(t, 12.0, report.Overall.Float64, 1e-9)
	assert.Equal(t, 1.0, report.Subjects[1].Coefficient)
}

func TestService_TermReport_noGrades(t *testing.T) {
	ctx := context.Background()
	scope := core.NewSchoolScope("sch-1", "teacher-1")
	svc, _, _ := newTestService(t)

	report, err := svc.TermReport(ctx, scope, "std-1", "term-1", nil)
	require.NoError(t, err)
	assert.Empty(t, report.Subjects)
	assert.False(t, report.Overall.Valid, "no grades must mean undefined, not zero")
	assert.False(t, report.Letter.Valid)
}

func TestService_Filter_scopedToSchool(t *testing.T) {
	ctx := context.Background()
	svc, repo, _ := newTestService(t)

	testutil.CreateEntry(t, repo, "sch-1", "std-1", "Math", "term-1", "Midterm", grading.KindExamination, 14, 20, 3)
	testutil.CreateEntry(t, repo, "sch-2", "std-1", "Math", "term-1", "Midterm", grading.KindExamination, 9, 20, 3)

	entries, err := svc.Filter(ctx, core.NewSchoolScope("sch-1", "teacher-1"), grading.QueryFilter{StudentID: "std-1"})
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "sch-1", entries[0].SchoolID)

	_, err = svc.Filter(ctx, core.SchoolScope{}, grading.QueryFilter{})
	assert.ErrorIs(t, err, core.ErrTenantIsolation)
}
