package audit

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	dErrors "hrcore/pkg/domain-errors"
	audit "hrcore/pkg/platform/audit"
	"hrcore/pkg/platform/audit/mocks"
	"hrcore/pkg/platform/sentinel"
)

func newService(t *testing.T) (*Service, *mocks.MockStore) {
	t.Helper()
	ctrl := gomock.NewController(t)
	store := mocks.NewMockStore(ctrl)
	return NewService(store, slog.New(slog.NewTextHandler(io.Discard, nil))), store
}

func TestServiceList(t *testing.T) {
	t.Run("passes a normalized page to the store", func(t *testing.T) {
		svc, store := newService(t)
		store.EXPECT().
			List(gomock.Any(), audit.Page{Number: 1, Size: audit.DefaultPageSize, EntityType: "salary"}).
			Return(&audit.PageResult{Items: []*audit.Envelope{}}, nil)

		_, err := svc.List(context.Background(), ListRequest{EntityType: "salary"})
		require.NoError(t, err)
	})

	t.Run("store failures are unavailable", func(t *testing.T) {
		svc, store := newService(t)
		store.EXPECT().List(gomock.Any(), gomock.Any()).Return(nil, errors.New("conn reset"))

		_, err := svc.List(context.Background(), ListRequest{})
		assert.True(t, dErrors.HasCode(err, dErrors.CodeUnavailable))
	})
}

func TestServiceGet(t *testing.T) {
	t.Run("not found", func(t *testing.T) {
		svc, store := newService(t)
		store.EXPECT().FindByID(gomock.Any(), "x").Return(nil, sentinel.ErrNotFound)

		_, err := svc.Get(context.Background(), "x")
		assert.True(t, dErrors.HasCode(err, dErrors.CodeNotFound))
		assert.ErrorIs(t, err, sentinel.ErrNotFound)
	})

	t.Run("found", func(t *testing.T) {
		svc, store := newService(t)
		store.EXPECT().FindByID(gomock.Any(), "env-1").Return(&audit.Envelope{ID: "env-1"}, nil)

		env, err := svc.Get(context.Background(), "env-1")
		require.NoError(t, err)
		assert.Equal(t, "env-1", env.ID)
	})

	t.Run("store failure", func(t *testing.T) {
		svc, store := newService(t)
		store.EXPECT().FindByID(gomock.Any(), "env-1").Return(nil, errors.New("timeout"))

		_, err := svc.Get(context.Background(), "env-1")
		assert.True(t, dErrors.HasCode(err, dErrors.CodeUnavailable))
	})
}

func TestParseListRequest(t *testing.T) {
	req, err := ParseListRequest(url.Values{"page": {"3"}, "size": {"10"}, "entityType": {" salary "}})
	require.NoError(t, err)
	assert.Equal(t, ListRequest{Page: 3, Size: 10, EntityType: "salary"}, req)

	req, err = ParseListRequest(url.Values{})
	require.NoError(t, err)
	assert.Equal(t, audit.Page{Number: 1, Size: audit.DefaultPageSize}, req.ToPage())

	for _, bad := range []url.Values{
		{"page": {"0"}},
		{"size": {"x"}},
		{"size": {"500"}},
	} {
		_, err := ParseListRequest(bad)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeValidation), "%v", bad)
	}
}
