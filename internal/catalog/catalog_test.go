package catalog

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/jusunglee/itrans/internal/db"
	"github.com/jusunglee/itrans/internal/db/sqlite"
	"github.com/jusunglee/itrans/internal/itrans"
	"github.com/jusunglee/itrans/internal/table"
	"github.com/jusunglee/itrans/internal/tabledata"
)

const smallTSV = "INPUT\tINPUT-TYPE\tCODE-NAME\t#x\nk\tconsonant\tka\tK\n|\t\tdanda\t.\n"

const otherTSV = "INPUT\tINPUT-TYPE\tCODE-NAME\t#y\nk\tconsonant\tka\tQ\n"

const badTSV = "INPUT\tINPUT-TYPE\tCODE-NAME\t#x\nk\t\tka\tK\nq\t\tka\tQ\n"

type mockRepo struct {
	mock.Mock
}

func (m *mockRepo) UpsertTable(ctx context.Context, arg db.UpsertTableParams) (db.StoredTable, error) {
	args := m.Called(ctx, arg)
	return args.Get(0).(db.StoredTable), args.Error(1)
}

func (m *mockRepo) GetTable(ctx context.Context, name string) (db.StoredTable, error) {
	args := m.Called(ctx, name)
	return args.Get(0).(db.StoredTable), args.Error(1)
}

func (m *mockRepo) ListTables(ctx context.Context) ([]db.StoredTable, error) {
	args := m.Called(ctx)
	return args.Get(0).([]db.StoredTable), args.Error(1)
}

func (m *mockRepo) DeleteTable(ctx context.Context, name string) (int64, error) {
	args := m.Called(ctx, name)
	return args.Get(0).(int64), args.Error(1)
}

func (m *mockRepo) CreateTableLoad(ctx context.Context, arg db.CreateTableLoadParams) (db.TableLoad, error) {
	args := m.Called(ctx, arg)
	return args.Get(0).(db.TableLoad), args.Error(1)
}

func (m *mockRepo) ListTableLoads(ctx context.Context, arg db.ListTableLoadsParams) ([]db.TableLoad, error) {
	args := m.Called(ctx, arg)
	return args.Get(0).([]db.TableLoad), args.Error(1)
}

func (m *mockRepo) DeleteOldTableLoads(ctx context.Context, before time.Time) (int64, error) {
	args := m.Called(ctx, before)
	return args.Get(0).(int64), args.Error(1)
}

func (m *mockRepo) WithTx(ctx context.Context, fn func(repo db.Repository) error) error {
	args := m.Called(ctx)
	if err := args.Error(0); err != nil {
		return err
	}
	return fn(m)
}

func (m *mockRepo) Close() error {
	return m.Called().Error(0)
}

func newTestCatalog(t *testing.T) *Catalog {
	t.Helper()
	repo, err := sqlite.New(context.Background(), ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { repo.Close() })

	c := New(repo, nil)
	require.NoError(t, c.InstallDefault())
	return c
}

func TestInstallDefault(t *testing.T) {
	c := New(nil, nil)
	require.NoError(t, c.InstallDefault())

	assert.Equal(t, []string{tabledata.DefaultName}, c.Names())

	langs, err := c.Languages(tabledata.DefaultName)
	require.NoError(t, err)
	assert.Contains(t, langs, "#sanskrit")

	out, err := c.Convert(tabledata.DefaultName, "kha", itrans.Options{Language: "#sanskrit", Format: itrans.FormatHTML7})
	require.NoError(t, err)
	assert.Equal(t, "&#x0916;", out)

	_, err = c.Convert("nope", "kha", itrans.Options{})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestLoadStoresAndInstalls(t *testing.T) {
	c := newTestCatalog(t)
	ctx := context.Background()

	_, err := c.Load(ctx, "small", "upload", smallTSV)
	require.NoError(t, err)

	assert.Equal(t, []string{"default", "small"}, c.Names())
	out, err := c.Convert("small", "k |", itrans.Options{Language: "#x", Format: itrans.FormatHTML7})
	require.NoError(t, err)
	assert.Equal(t, "K .", out)

	loads, err := c.Loads(ctx, "small", 10)
	require.NoError(t, err)
	require.Len(t, loads, 1)
	assert.Equal(t, db.LoadStatusOK, loads[0].Status)
	assert.Equal(t, int32(1), loads[0].Languages)
	assert.Equal(t, Checksum(smallTSV), loads[0].Checksum)

	infos := c.List()
	require.Len(t, infos, 2)
	assert.Equal(t, "small", infos[1].Name)
	assert.Equal(t, "upload", infos[1].Source)
	assert.Equal(t, []string{"#x"}, infos[1].Languages)
}

func TestLoadFailureKeepsPreviousTable(t *testing.T) {
	c := newTestCatalog(t)
	ctx := context.Background()

	first, err := c.Load(ctx, "small", "upload", smallTSV)
	require.NoError(t, err)

	_, err = c.Load(ctx, "small", "upload", badTSV)
	require.Error(t, err)
	assert.ErrorIs(t, err, table.ErrDuplicateName)

	var dataErr *table.DataError
	require.True(t, errors.As(err, &dataErr))
	assert.Equal(t, 3, dataErr.Line)

	current, ok := c.Get("small")
	require.True(t, ok)
	assert.Same(t, first, current)

	loads, err := c.Loads(ctx, "small", 10)
	require.NoError(t, err)
	require.Len(t, loads, 2)
	assert.Equal(t, db.LoadStatusFailed, loads[0].Status)
	assert.Contains(t, loads[0].Error.String, "duplicate code name")
}

func TestLoadRejectsBadNames(t *testing.T) {
	c := New(nil, nil)

	for _, name := range []string{"", "Big", "../etc", "a b", "-x"} {
		_, err := c.Load(context.Background(), name, "upload", smallTSV)
		assert.ErrorIs(t, err, ErrInvalidName, name)
	}
}

func TestLoadStoreFailureDoesNotInstall(t *testing.T) {
	repo := &mockRepo{}
	boom := errors.New("disk full")
	repo.On("WithTx", mock.Anything).Return(nil)
	repo.On("UpsertTable", mock.Anything, mock.MatchedBy(func(p db.UpsertTableParams) bool {
		return p.Name == "small" && p.Checksum == Checksum(smallTSV)
	})).Return(db.StoredTable{}, boom)

	c := New(repo, nil)
	_, err := c.Load(context.Background(), "small", "upload", smallTSV)
	assert.ErrorIs(t, err, boom)

	_, ok := c.Get("small")
	assert.False(t, ok)
	repo.AssertExpectations(t)
}

func TestLoadFailureRecordsEvent(t *testing.T) {
	repo := &mockRepo{}
	repo.On("CreateTableLoad", mock.Anything, mock.MatchedBy(func(p db.CreateTableLoadParams) bool {
		return p.TableName == "small" && p.Status == db.LoadStatusFailed && p.Error.Valid
	})).Return(db.TableLoad{}, nil).Once()

	c := New(repo, nil)
	_, err := c.Load(context.Background(), "small", "upload", badTSV)
	require.Error(t, err)

	repo.AssertExpectations(t)
	repo.AssertNotCalled(t, "WithTx", mock.Anything)
}

func TestRestoreSkipsBrokenTables(t *testing.T) {
	repo := &mockRepo{}
	repo.On("ListTables", mock.Anything).Return([]db.StoredTable{
		{Name: "good", Source: "upload", TSV: smallTSV, Checksum: Checksum(smallTSV)},
		{Name: "broken", Source: "upload", TSV: badTSV, Checksum: Checksum(badTSV)},
	}, nil)

	c := New(repo, nil)
	n, err := c.Restore(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Equal(t, []string{"good"}, c.Names())
}

func TestRefreshPicksUpChanges(t *testing.T) {
	ctx := context.Background()
	repo, err := sqlite.New(ctx, ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { repo.Close() })

	writer := New(repo, nil)
	reader := New(repo, nil)

	_, err = writer.Load(ctx, "small", "upload", smallTSV)
	require.NoError(t, err)

	n, err := reader.Refresh(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	langs, err := reader.Languages("small")
	require.NoError(t, err)
	assert.Equal(t, []string{"#x"}, langs)

	n, err = reader.Refresh(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, n, "unchanged tables are not reloaded")

	_, err = writer.Load(ctx, "small", "upload", otherTSV)
	require.NoError(t, err)
	n, err = reader.Refresh(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	langs, err = reader.Languages("small")
	require.NoError(t, err)
	assert.Equal(t, []string{"#y"}, langs)

	require.NoError(t, writer.Delete(ctx, "small"))
	n, err = reader.Refresh(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	_, ok := reader.Get("small")
	assert.False(t, ok)
}

func TestDelete(t *testing.T) {
	c := newTestCatalog(t)
	ctx := context.Background()

	assert.ErrorIs(t, c.Delete(ctx, tabledata.DefaultName), ErrProtected)
	assert.ErrorIs(t, c.Delete(ctx, "missing"), ErrNotFound)

	_, err := c.Load(ctx, "small", "upload", smallTSV)
	require.NoError(t, err)
	require.NoError(t, c.Delete(ctx, "small"))
	assert.Equal(t, []string{"default"}, c.Names())
}

func TestChecksum(t *testing.T) {
	assert.Equal(t, Checksum("a"), Checksum("a"))
	assert.NotEqual(t, Checksum("a"), Checksum("b"))
	assert.Len(t, Checksum(""), 64)
}
