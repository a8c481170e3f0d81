package configcache_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/movement-pass/public-api/internal/platform/configcache"
	"github.com/movement-pass/public-api/internal/ports/out/paramsource"
	"github.com/movement-pass/public-api/internal/ports/out/paramsource/mocks"
)

const root = "/movement-pass/v1"

func TestGet_FetchesAllPagesOnce(t *testing.T) {
	t.Parallel()

	ctrl := gomock.NewController(t)
	src := mocks.NewMockSource(ctrl)

	gomock.InOrder(
		src.EXPECT().FetchPage(gomock.Any(), root, "").Return(paramsource.Page{
			Entries: []paramsource.Entry{
				{Name: root + "/applicantsTable", Value: "applicants"},
				{Name: root + "/passesTable", Value: "passes"},
			},
			NextToken: "page-2",
		}, nil).Times(1),
		src.EXPECT().FetchPage(gomock.Any(), root, "page-2").Return(paramsource.Page{
			Entries: []paramsource.Entry{
				{Name: root + "/jwtSecret", Value: "s3cret"},
			},
		}, nil).Times(1),
	)

	cache := configcache.New(src, root)

	first, err := cache.Get(context.Background())
	require.NoError(t, err)
	second, err := cache.Get(context.Background())
	require.NoError(t, err)

	want := configcache.Values{
		"applicantsTable": "applicants",
		"passesTable":     "passes",
		"jwtSecret":       "s3cret",
	}
	assert.Equal(t, want, first)
	assert.Equal(t, want, second)
}

func TestGet_ConcurrentFirstUseFetchesOnce(t *testing.T) {
	t.Parallel()

	ctrl := gomock.NewController(t)
	src := mocks.NewMockSource(ctrl)
	src.EXPECT().FetchPage(gomock.Any(), root, "").DoAndReturn(
		func(context.Context, string, string) (paramsource.Page, error) {
			time.Sleep(10 * time.Millisecond)
			return paramsource.Page{Entries: []paramsource.Entry{{Name: root + "/k", Value: "v"}}}, nil
		}).Times(1)

	cache := configcache.New(src, root)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			v, err := cache.Get(context.Background())
			assert.NoError(t, err)
			assert.Equal(t, "v", v["k"])
		}()
	}
	wg.Wait()
}

func TestGet_FailurePropagatesAndIsNotCached(t *testing.T) {
	t.Parallel()

	ctrl := gomock.NewController(t)
	src := mocks.NewMockSource(ctrl)
	boom := errors.New("access denied")

	gomock.InOrder(
		src.EXPECT().FetchPage(gomock.Any(), root, "").Return(paramsource.Page{}, boom),
		src.EXPECT().FetchPage(gomock.Any(), root, "").Return(paramsource.Page{
			Entries: []paramsource.Entry{{Name: root + "/passesTable", Value: "passes"}},
		}, nil),
	)

	cache := configcache.New(src, root+"/")

	_, err := cache.Get(context.Background())
	require.ErrorIs(t, err, boom)

	v, err := cache.Get(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "passes", v["passesTable"])
}

func TestValues_Accessors(t *testing.T) {
	t.Parallel()

	v := configcache.Values{
		"name":    "x",
		"seconds": "300",
		"dur":     "12h",
		"bad":     "twelve",
		"empty":   "",
	}

	s, err := v.String("name")
	require.NoError(t, err)
	assert.Equal(t, "x", s)

	_, err = v.String("empty")
	assert.ErrorIs(t, err, configcache.ErrMissingKey)
	_, err = v.String("nope")
	assert.ErrorIs(t, err, configcache.ErrMissingKey)

	n, err := v.Int("seconds")
	require.NoError(t, err)
	assert.Equal(t, 300, n)
	_, err = v.Int("bad")
	assert.Error(t, err)

	d, err := v.Duration("seconds")
	require.NoError(t, err)
	assert.Equal(t, 5*time.Minute, d)
	d, err = v.Duration("dur")
	require.NoError(t, err)
	assert.Equal(t, 12*time.Hour, d)
	_, err = v.Duration("bad")
	assert.Error(t, err)
}
