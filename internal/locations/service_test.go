package locations

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/gaveta-wms/gaveta/internal/shared"
)

type fakeRepo struct {
	locs     []Location
	nextID   int64
	counters map[string]int64
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{counters: map[string]int64{}}
}

func (f *fakeRepo) Create(_ context.Context, loc Location) (Location, error) {
	for _, existing := range f.locs {
		if shared.SameKey(existing.Name, loc.Name) {
			return Location{}, ErrDuplicate
		}
	}
	f.nextID++
	loc.ID = f.nextID
	f.locs = append(f.locs, loc)
	return loc, nil
}

func (f *fakeRepo) GetByName(_ context.Context, name string) (Location, error) {
	for _, loc := range f.locs {
		if shared.SameKey(loc.Name, name) {
			return loc, nil
		}
	}
	return Location{}, ErrNotFound
}

func (f *fakeRepo) List(_ context.Context) ([]Location, error) {
	out := make([]Location, len(f.locs))
	copy(out, f.locs)
	return out, nil
}

func (f *fakeRepo) Rename(_ context.Context, oldName, newName string) error {
	for i := range f.locs {
		if shared.SameKey(f.locs[i].Name, newName) && !shared.SameKey(oldName, newName) {
			return ErrDuplicate
		}
	}
	for i := range f.locs {
		if shared.SameKey(f.locs[i].Name, oldName) {
			f.locs[i].Name = newName
			return nil
		}
	}
	return ErrNotFound
}

func (f *fakeRepo) Delete(_ context.Context, name string) error {
	for i := range f.locs {
		if shared.SameKey(f.locs[i].Name, name) {
			f.locs = append(f.locs[:i], f.locs[i+1:]...)
			return nil
		}
	}
	return ErrNotFound
}

func (f *fakeRepo) SetLifecycle(_ context.Context, name string, state Lifecycle) error {
	for i := range f.locs {
		if shared.SameKey(f.locs[i].Name, name) {
			f.locs[i].Lifecycle = state
			return nil
		}
	}
	return ErrNotFound
}

func (f *fakeRepo) NextSequence(_ context.Context, counter string) (int64, error) {
	f.counters[counter]++
	return f.counters[counter], nil
}

func TestCreateRejectsDuplicateCaseInsensitive(t *testing.T) {
	svc := NewService(newFakeRepo(), nil)
	ctx := context.Background()

	_, err := svc.Create(ctx, CreateInput{Name: "Drawer A"})
	require.NoError(t, err)

	_, err = svc.Create(ctx, CreateInput{Name: "drawer a"})
	require.ErrorIs(t, err, ErrDuplicate)
}

func TestCreateRejectsEmptyName(t *testing.T) {
	svc := NewService(newFakeRepo(), nil)

	_, err := svc.Create(context.Background(), CreateInput{Name: "   "})
	require.ErrorIs(t, err, ErrValidation)
}

func TestEnsureBinCreatesMissingLocation(t *testing.T) {
	svc := NewService(newFakeRepo(), nil)
	ctx := context.Background()

	loc, created, err := svc.EnsureBin(ctx, "ACME Corp")
	require.NoError(t, err)
	require.True(t, created)
	require.Equal(t, "ACME Corp", loc.Name)
	require.Equal(t, KindBin, loc.Kind)
	require.Equal(t, LifecycleOpen, loc.Lifecycle)

	again, created, err := svc.EnsureBin(ctx, "acme corp")
	require.NoError(t, err)
	require.False(t, created)
	require.Equal(t, loc.ID, again.ID)
}

func TestEnsureBinReturnsInvoicedAsIs(t *testing.T) {
	repo := newFakeRepo()
	svc := NewService(repo, nil)
	ctx := context.Background()

	loc, _, err := svc.EnsureBin(ctx, "ACME Corp")
	require.NoError(t, err)
	require.NoError(t, svc.SetLifecycle(ctx, loc.Name, LifecycleInvoiced))

	got, created, err := svc.EnsureBin(ctx, "ACME Corp")
	require.NoError(t, err)
	require.False(t, created)
	require.Equal(t, LifecycleInvoiced, got.Lifecycle)
}

func TestNextBinNameIsSequential(t *testing.T) {
	svc := NewService(newFakeRepo(), nil)
	ctx := context.Background()

	first, err := svc.NextBinName(ctx)
	require.NoError(t, err)
	require.Equal(t, "Bin #1", first)

	second, err := svc.NextBinName(ctx)
	require.NoError(t, err)
	require.Equal(t, "Bin #2", second)
}

func TestSuccessorNameSkipsTakenSuffixes(t *testing.T) {
	repo := newFakeRepo()
	svc := NewService(repo, nil)
	ctx := context.Background()

	_, err := svc.Create(ctx, CreateInput{Name: "ACME Corp"})
	require.NoError(t, err)

	name, err := svc.SuccessorName(ctx, "ACME Corp")
	require.NoError(t, err)
	require.Equal(t, "ACME Corp (2)", name)

	_, err = svc.Create(ctx, CreateInput{Name: "ACME Corp (2)"})
	require.NoError(t, err)

	name, err = svc.SuccessorName(ctx, "ACME Corp")
	require.NoError(t, err)
	require.Equal(t, "ACME Corp (3)", name)
}

func TestRenameNoOpWhenUnchanged(t *testing.T) {
	repo := newFakeRepo()
	svc := NewService(repo, nil)
	ctx := context.Background()

	_, err := svc.Create(ctx, CreateInput{Name: "Drawer A"})
	require.NoError(t, err)

	require.NoError(t, svc.Rename(ctx, "Drawer A", "Drawer A"))

	loc, err := svc.Get(ctx, "Drawer A")
	require.NoError(t, err)
	require.Equal(t, "Drawer A", loc.Name)
}

func TestRecentLocationNamesNewestFirst(t *testing.T) {
	repo := newFakeRepo()
	svc := NewService(repo, nil)
	ctx := context.Background()

	for _, name := range []string{"A", "B", "C"} {
		_, err := svc.Create(ctx, CreateInput{Name: name})
		require.NoError(t, err)
	}

	names, err := svc.RecentLocationNames(ctx, 2)
	require.NoError(t, err)
	require.Equal(t, []string{"C", "B"}, names)
}
