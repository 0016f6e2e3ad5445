package integration

import (
	"context"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	appdocument "github.com/bapx/backend/internal/application/document"
	"github.com/bapx/backend/internal/domain/document"
	"github.com/bapx/backend/internal/domain/identity"
	"github.com/bapx/backend/internal/domain/shared"
	"github.com/bapx/backend/internal/infrastructure/migration"
	"github.com/bapx/backend/internal/infrastructure/persistence"
	"github.com/bapx/backend/migrations"
	"github.com/bapx/backend/tests/testutil"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"
	"golang.org/x/text/language"
)

func submittedDocument(t *testing.T, ctx context.Context, repo *persistence.GormDocumentRepository) *document.Document {
	t.Helper()
	vendor := identity.NewActor(uuid.MustParse(seedVendorID), identity.RoleVendor)

	number, err := repo.GenerateNumber(ctx, document.TypeBAPB)
	require.NoError(t, err)
	d := testutil.NewDocument(t, document.TypeBAPB, number, vendor.UserID)
	require.NoError(t, repo.Create(ctx, d))

	tr, err := d.Transition(vendor, document.StatusSubmitted, document.Payload{})
	require.NoError(t, err)
	require.NoError(t, repo.SaveTransition(ctx, d, tr))
	return d
}

func TestDocumentRepository_ConcurrentTransitions(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}
	tdb := NewSharedTestDB(t)
	tdb.CleanTables()
	repo := persistence.NewGormDocumentRepository(tdb.DB)
	ctx := testutil.ContextWithTimeout(t, 30*time.Second)

	d := submittedDocument(t, ctx, repo)

	reviewers := []identity.Actor{
		identity.NewActor(uuid.MustParse(seedPIC1ID), identity.RolePIC),
		identity.NewActor(uuid.MustParse(seedPIC2ID), identity.RolePIC),
	}

	// Both reviewers act on the same snapshot
	var won, lost atomic.Int32
	var g errgroup.Group
	for _, reviewer := range reviewers {
		snapshot, err := repo.FindByID(ctx, d.ID)
		require.NoError(t, err)
		tr, err := snapshot.Transition(reviewer, document.StatusPICChecked, testutil.AllChecked(snapshot))
		require.NoError(t, err)

		g.Go(func() error {
			err := repo.SaveTransition(ctx, snapshot, tr)
			switch {
			case err == nil:
				won.Add(1)
			case shared.IsCode(err, shared.CodeInvalidTransition):
				lost.Add(1)
			default:
				return err
			}
			return nil
		})
	}
	require.NoError(t, g.Wait())

	assert.Equal(t, int32(1), won.Load(), "exactly one transition commits")
	assert.Equal(t, int32(1), lost.Load())

	stored, err := repo.FindByID(ctx, d.ID)
	require.NoError(t, err)
	assert.Equal(t, document.StatusPICChecked, stored.Status)

	history, err := repo.FindTransitions(ctx, d.ID)
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, document.StatusSubmitted, history[0].To)
	assert.Equal(t, document.StatusPICChecked, history[1].To)
}

func TestDocumentRepository_StaleSnapshotNamesCurrentStatus(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}
	tdb := NewSharedTestDB(t)
	tdb.CleanTables()
	repo := persistence.NewGormDocumentRepository(tdb.DB)
	ctx := testutil.ContextWithTimeout(t, 30*time.Second)

	d := submittedDocument(t, ctx, repo)
	stale, err := repo.FindByID(ctx, d.ID)
	require.NoError(t, err)

	pic := identity.NewActor(uuid.MustParse(seedPIC1ID), identity.RolePIC)
	tr, err := d.Transition(pic, document.StatusRejected, document.Payload{Reason: "Barang rusak"})
	require.NoError(t, err)
	require.NoError(t, repo.SaveTransition(ctx, d, tr))

	tr, err = stale.Transition(pic, document.StatusPICChecked, testutil.AllChecked(stale))
	require.NoError(t, err)
	err = repo.SaveTransition(ctx, stale, tr)
	require.Error(t, err)
	assert.True(t, shared.IsCode(err, shared.CodeInvalidTransition))
	assert.Contains(t, err.Error(), string(document.StatusRejected))
}

func TestDocumentRepository_GenerateNumberPerType(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}
	tdb := NewSharedTestDB(t)
	tdb.CleanTables()
	repo := persistence.NewGormDocumentRepository(tdb.DB)
	ctx := testutil.ContextWithTimeout(t, 30*time.Second)
	ownerID := uuid.MustParse(seedVendorID)
	year := time.Now().Year()

	for i := 1; i <= 3; i++ {
		number, err := repo.GenerateNumber(ctx, document.TypeBAPB)
		require.NoError(t, err)
		assert.Equal(t, fmt.Sprintf("BAPB-%d-%04d", year, i), number)
		require.NoError(t, repo.Create(ctx, testutil.NewDocument(t, document.TypeBAPB, number, ownerID)))
	}

	number, err := repo.GenerateNumber(ctx, document.TypeBAPP)
	require.NoError(t, err)
	assert.Equal(t, fmt.Sprintf("BAPP-%d-0001", year), number)
}

func TestDocumentService_ConcurrentCreatesGetDistinctNumbers(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}
	tdb := NewSharedTestDB(t)
	tdb.CleanTables()
	repo := persistence.NewGormDocumentRepository(tdb.DB)
	svc := appdocument.NewService(repo, nil, nil, nil)
	ctx := testutil.ContextWithTimeout(t, 30*time.Second)
	vendor := identity.NewActor(uuid.MustParse(seedVendorID), identity.RoleVendor)

	const creators = 8
	numbers := make([]string, creators)
	var g errgroup.Group
	for i := range creators {
		g.Go(func() error {
			resp, err := svc.Create(ctx, vendor, appdocument.CreateDocumentRequest{
				DocumentType: string(document.TypeBAPB),
				Title:        fmt.Sprintf("Pengiriman %d", i+1),
				LineItems: []appdocument.LineItemRequest{
					{Name: "Semen", Quantity: decimal.NewFromInt(10), Unit: "sak"},
				},
			}, language.Indonesian)
			if err != nil {
				return err
			}
			numbers[i] = resp.DocumentNumber
			return nil
		})
	}
	require.NoError(t, g.Wait())

	year := time.Now().Year()
	seen := make(map[string]bool, creators)
	for _, n := range numbers {
		assert.False(t, seen[n], "number %s handed out twice", n)
		seen[n] = true
	}
	for i := 1; i <= creators; i++ {
		assert.True(t, seen[fmt.Sprintf("BAPB-%d-%04d", year, i)], "sequence has no gaps")
	}
}

func TestMigrations_RoundTrip(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}
	tdb := NewTestDB(t)

	list, err := migration.ListMigrations(migrations.FS)
	require.NoError(t, err)
	require.NotEmpty(t, list)
	for _, m := range list {
		assert.True(t, m.HasDown, "migration %06d_%s has no down file", m.Version, m.Name)
	}
	latest := list[len(list)-1].Version

	m, err := migration.New(tdb.SqlDB, migrations.FS, nil)
	require.NoError(t, err)

	version, dirty, err := m.Version()
	require.NoError(t, err)
	assert.Equal(t, latest, version)
	assert.False(t, dirty)

	var users int64
	require.NoError(t, tdb.DB.Table("users").Count(&users).Error)
	assert.Equal(t, int64(4), users, "seed accounts")

	require.NoError(t, m.Down())
	version, _, err = m.Version()
	require.NoError(t, err)
	assert.Equal(t, uint(0), version)
	assert.False(t, tdb.DB.Migrator().HasTable("documents"))

	require.NoError(t, m.Up())
	version, _, err = m.Version()
	require.NoError(t, err)
	assert.Equal(t, latest, version)
	assert.True(t, tdb.DB.Migrator().HasTable("document_transitions"))
}
