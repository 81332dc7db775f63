package history

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	cerrors "surface/internal/core/errors"
	"surface/internal/engine/diff"
)

func openStore(t *testing.T) *Store {
	t.Helper()
	store, err := Open(filepath.Join(t.TempDir(), "history.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func sampleReport(oldModule string) Report {
	return Report{
		OldModule: oldModule,
		NewModule: oldModule,
		OldPath:   "/cache/" + oldModule + "/1.0.0",
		NewPath:   "/cache/" + oldModule + "/2.0.0",
		Summary:   diff.Summary{Added: 1, Removed: 1, Breaking: 1},
		Changes: []diff.ApiChange{
			{
				Kind:         diff.Removed,
				Category:     diff.CategoryMethod,
				TypeName:     oldModule + ".Widget",
				OldSignature: "void Resize(int width)",
				Breaking:     true,
				Reason:       "method removed",
			},
			{
				Kind:         diff.Added,
				Category:     diff.CategoryMethod,
				TypeName:     oldModule + ".Widget",
				NewSignature: "void Resize(int width, int height)",
			},
		},
	}
}

func TestSaveAndGetReport(t *testing.T) {
	store := openStore(t)

	id, err := store.SaveReport(sampleReport("Acme.Core"))
	require.NoError(t, err)
	require.NotEmpty(t, id)

	report, err := store.GetReport(id)
	require.NoError(t, err)
	assert.Equal(t, "Acme.Core", report.OldModule)
	assert.Equal(t, 1, report.Summary.Breaking)
	assert.False(t, report.CreatedAt.IsZero())
	require.Len(t, report.Changes, 2)
	assert.Equal(t, diff.Removed, report.Changes[0].Kind)
	assert.True(t, report.Changes[0].Breaking)
}

func TestGetReportNotFound(t *testing.T) {
	store := openStore(t)

	_, err := store.GetReport("no-such-id")
	require.Error(t, err)
	assert.True(t, cerrors.IsCode(err, cerrors.CodeNotFound))
}

func TestListReportsNewestFirst(t *testing.T) {
	store := openStore(t)

	first := sampleReport("Acme.Core")
	first.CreatedAt = time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	second := sampleReport("Acme.UI")
	second.CreatedAt = time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)

	_, err := store.SaveReport(first)
	require.NoError(t, err)
	_, err = store.SaveReport(second)
	require.NoError(t, err)

	reports, err := store.ListReports(0)
	require.NoError(t, err)
	require.Len(t, reports, 2)
	assert.Equal(t, "Acme.UI", reports[0].OldModule)
	assert.Equal(t, "Acme.Core", reports[1].OldModule)
	// listings stay lightweight
	assert.Nil(t, reports[0].Changes)

	limited, err := store.ListReports(1)
	require.NoError(t, err)
	require.Len(t, limited, 1)
	assert.Equal(t, "Acme.UI", limited[0].OldModule)
}

func TestReopenKeepsReports(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history.db")

	store, err := Open(path)
	require.NoError(t, err)
	id, err := store.SaveReport(sampleReport("Acme.Core"))
	require.NoError(t, err)
	require.NoError(t, store.Close())

	reopened, err := Open(path)
	require.NoError(t, err)
	defer reopened.Close()

	report, err := reopened.GetReport(id)
	require.NoError(t, err)
	assert.Equal(t, "Acme.Core", report.OldModule)
}
