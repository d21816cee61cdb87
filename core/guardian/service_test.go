package guardian_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pensezy/edutrack/core"
	"github.com/pensezy/edutrack/core/guardian"
	dummydb "github.com/pensezy/edutrack/storage/database/dummy"
	testutil "github.com/pensezy/edutrack/tests"
)

func newTestService(t *testing.T) (*guardian.Service, guardian.Repository) {
	t.Helper()
	db, err := dummydb.Open()
	require.NoError(t, err)
	repo := dummydb.NewGuardianRepository(db)
	return guardian.NewService(repo, testutil.NewLogger()), repo
}

func TestService_CreateOrGet(t *testing.T) {
	ctx := context.Background()

	t.Run("creates a new identity", func(t *testing.T) {
		svc, _ := newTestService(t)
		g, err := svc.CreateOrGet(ctx, guardian.NewGuardian{
			DisplayName: "Jean Mbarga",
			Contact:     guardian.ContactInfo{Email: "Jean@Example.CM", Phone: "+237 699 00 11 22"},
		})
		require.NoError(t, err)
		assert.NotEmpty(t, g.ID)
		assert.Equal(t, "jean@example.cm", g.Email.String)
		assert.Equal(t, "+237699001122", g.Phone.String)
	})

	t.Run("idempotent on the same contact", func(t *testing.T) {
		svc, _ := newTestService(t)
		first, err := svc.CreateOrGet(ctx, guardian.NewGuardian{
			DisplayName: "Jean Mbarga",
			Contact:     guardian.ContactInfo{Email: "jean@example.cm"},
		})
		require.NoError(t, err)

		// a second school registers the same person, typo'd name and all
		second, err := svc.CreateOrGet(ctx, guardian.NewGuardian{
			DisplayName: "Jean M barga",
			Contact:     guardian.ContactInfo{Email: " JEAN@example.cm "},
		})
		require.NoError(t, err)
		assert.Equal(t, first.ID, second.ID, "same dedup key must resolve to one identity")
		assert.Equal(t, "Jean Mbarga", second.DisplayName, "the existing identity wins")
	})

	t.Run("same name different contact stays separate", func(t *testing.T) {
		svc, _ := newTestService(t)
		first, err := svc.CreateOrGet(ctx, guardian.NewGuardian{
			DisplayName: "Jean Mbarga",
			Contact:     guardian.ContactInfo{Email: "jean@example.cm"},
		})
		require.NoError(t, err)
		second, err := svc.CreateOrGet(ctx, guardian.NewGuardian{
			DisplayName: "Jean Mbarga",
			Contact:     guardian.ContactInfo{Phone: "+237699001122"},
		})
		require.NoError(t, err)
		assert.NotEqual(t, first.ID, second.ID)
	})

	t.Run("contactless guardian is rejected", func(t *testing.T) {
		svc, _ := newTestService(t)
		_, err := svc.CreateOrGet(ctx, guardian.NewGuardian{DisplayName: "Jean Mbarga"})
		require.Error(t, err)
	})
}

func TestService_Link(t *testing.T) {
	ctx := context.Background()
	scope := core.NewSchoolScope("sch-1", "staff-1")

	t.Run("ok", func(t *testing.T) {
		svc, repo := newTestService(t)
		g := testutil.CreateGuardian(t, repo, "Jean Mbarga", "jean@example.cm", "")

		rel, err := svc.Link(ctx, scope, guardian.NewRelationship{
			GuardianID:     g.ID,
			StudentID:      "std-1",
			Kind:           guardian.KindFather,
			PrimaryContact: true,
		})
		require.NoError(t, err)
		assert.Equal(t, "sch-1", rel.SchoolID)
		assert.True(t, rel.PrimaryContact)
	})

	t.Run("relinking updates flags in place", func(t *testing.T) {
		svc, repo := newTestService(t)
		g := testutil.CreateGuardian(t, repo, "Jean Mbarga", "jean@example.cm", "")

		first, err := svc.Link(ctx, scope, guardian.NewRelationship{
			GuardianID: g.ID, StudentID: "std-1", Kind: guardian.KindFather,
		})
		require.NoError(t, err)

		second, err := svc.Link(ctx, scope, guardian.NewRelationship{
			GuardianID: g.ID, StudentID: "std-1", Kind: guardian.KindFather,
			PickupAuthorized: true,
		})
		require.NoError(t, err)
		assert.Equal(t, first.ID, second.ID)
		assert.True(t, second.PickupAuthorized)

		rels, err := svc.ListGuardians(ctx, scope, "std-1")
		require.NoError(t, err)
		assert.Len(t, rels, 1)
	})

	t.Run("unknown guardian", func(t *testing.T) {
		svc, _ := newTestService(t)
		_, err := svc.Link(ctx, scope, guardian.NewRelationship{
			GuardianID: "nope", StudentID: "std-1", Kind: guardian.KindMother,
		})
		assert.ErrorIs(t, err, guardian.ErrNotFound)
	})

	t.Run("invalid kind", func(t *testing.T) {
		svc, repo := newTestService(t)
		g := testutil.CreateGuardian(t, repo, "Jean Mbarga", "jean@example.cm", "")
		_, err := svc.Link(ctx, scope, guardian.NewRelationship{
			GuardianID: g.ID, StudentID: "std-1", Kind: "uncle-ish",
		})
		require.Error(t, err)
	})
}

func TestService_tenantIsolation(t *testing.T) {
	ctx := context.Background()
	schoolA := core.NewSchoolScope("sch-a", "staff-a")
	schoolB := core.NewSchoolScope("sch-b", "staff-b")

	svc, repo := newTestService(t)
	g := testutil.CreateGuardian(t, repo, "Marie Ngo", "marie@example.cm", "")
	relA := testutil.LinkGuardian(t, repo, g.ID, "std-a", "sch-a", guardian.KindMother)
	testutil.LinkGuardian(t, repo, g.ID, "std-b", "sch-b", guardian.KindMother)

	t.Run("listings stay within the school", func(t *testing.T) {
		rels, err := svc.ListGuardians(ctx, schoolA, "std-a")
		require.NoError(t, err)
		require.Len(t, rels, 1)
		assert.Equal(t, "sch-a", rels[0].SchoolID)

		rels, err = svc.ListGuardians(ctx, schoolB, "std-a")
		require.NoError(t, err)
		assert.Empty(t, rels, "another school's student has no rows here")
	})

	t.Run("touching another school's relationship fails loudly", func(t *testing.T) {
		err := svc.Unlink(ctx, schoolB, relA.ID)
		assert.ErrorIs(t, err, core.ErrTenantIsolation)

		// the row survived
		rels, err := svc.ListGuardians(ctx, schoolA, "std-a")
		require.NoError(t, err)
		assert.Len(t, rels, 1)
	})

	t.Run("portal view crosses schools for the guardian alone", func(t *testing.T) {
		links, err := svc.ListChildren(ctx, core.NewPortalScope(g.ID))
		require.NoError(t, err)
		require.Len(t, links, 2)
		schools := []string{links[0].SchoolID, links[1].SchoolID}
		assert.ElementsMatch(t, []string{"sch-a", "sch-b"}, schools)
	})

	t.Run("empty scopes are refused", func(t *testing.T) {
		_, err := svc.ListChildren(ctx, core.PortalScope{})
		assert.ErrorIs(t, err, core.ErrTenantIsolation)
		_, err = svc.ListGuardians(ctx, core.SchoolScope{}, "std-a")
		assert.ErrorIs(t, err, core.ErrTenantIsolation)
	})
}

func TestService_Unlink(t *testing.T) {
	ctx := context.Background()
	scope := core.NewSchoolScope("sch-1", "staff-1")
	svc, repo := newTestService(t)

	g := testutil.CreateGuardian(t, repo, "Jean Mbarga", "jean@example.cm", "")
	rel := testutil.LinkGuardian(t, repo, g.ID, "std-1", "sch-1", guardian.KindFather)

	require.NoError(t, svc.Unlink(ctx, scope, rel.ID))

	rels, err := svc.ListGuardians(ctx, scope, "std-1")
	require.NoError(t, err)
	assert.Empty(t, rels)

	// the identity is cascade-protected, not swept away with the link
	_, err = repo.GetGuardianByID(ctx, g.ID)
	assert.NoError(t, err)

	err = svc.Unlink(ctx, scope, rel.ID)
	assert.ErrorIs(t, err, guardian.ErrRelationshipNotFound)
}

func TestService_Delete(t *testing.T) {
	ctx := context.Background()
	scope := core.NewSchoolScope("sch-1", "staff-1")
	svc, repo := newTestService(t)

	g := testutil.CreateGuardian(t, repo, "Jean Mbarga", "jean@example.cm", "")
	rel := testutil.LinkGuardian(t, repo, g.ID, "std-1", "sch-1", guardian.KindFather)

	err := svc.Delete(ctx, g.ID)
	assert.ErrorIs(t, err, guardian.ErrGuardianInUse)

	require.NoError(t, svc.Unlink(ctx, scope, rel.ID))
	require.NoError(t, svc.Delete(ctx, g.ID))

	_, err = repo.GetGuardianByID(ctx, g.ID)
	assert.ErrorIs(t, err, guardian.ErrNotFound)
}

func TestService_SimilarGuardians(t *testing.T) {
	ctx := context.Background()
	svc, repo := newTestService(t)

	g := testutil.CreateGuardian(t, repo, "Jean Mbarga", "jean@example.cm", "")
	dupe := testutil.CreateGuardian(t, repo, "Jean  Mbarga", "", "+237699001122")
	testutil.CreateGuardian(t, repo, "Aisha Bello", "aisha@example.cm", "")

	matches, err := svc.SimilarGuardians(ctx, g)
	require.NoError(t, err)
	require.Len(t, matches, 1)
	assert.Equal(t, dupe.ID, matches[0].Guardian.ID)
	assert.GreaterOrEqual(t, matches[0].Ratio, 0.85)
}
