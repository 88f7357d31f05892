// Package storetest holds the behaviour every audit.Store implementation must
// share. Backend packages run it against their own store.
package storetest

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	audit "hrcore/pkg/platform/audit"
	"hrcore/pkg/platform/audit/diff"
	"hrcore/pkg/platform/audit/value"
	"hrcore/pkg/platform/sentinel"
)

// Clock is the fixed time backends should be built with.
var Clock = time.Date(2025, 6, 2, 9, 30, 0, 0, time.UTC)

// FixedClock returns Clock; pass it as a store's clock option.
func FixedClock() time.Time { return Clock }

// StoreSuite is embedded by backend suites. NewStore must return an empty store
// whose clock is fixed at Clock.
type StoreSuite struct {
	suite.Suite
	NewStore func() audit.Store

	store audit.Store
	ctx   context.Context
}

func (s *StoreSuite) SetupTest() {
	s.ctx = context.Background()
	s.store = s.NewStore()
}

func updateEnvelope(entityType, entityID string) *audit.Envelope {
	oldData := value.Object(value.NewRecord().
		Set("step", value.Int(1)).
		Set("amount", value.Number(1000)).
		Set("note", value.Null()))
	newData := value.Object(value.NewRecord().
		Set("step", value.Int(1)).
		Set("amount", value.Number(1500.5)).
		Set("note", value.String("raise")))
	changes, _ := diff.Compute(oldData, newData)
	return &audit.Envelope{
		EntityType:  entityType,
		Action:      audit.ActionUpdate,
		EntityID:    entityID,
		OldData:     oldData,
		NewData:     newData,
		Changes:     changes,
		PerformedBy: "hr-admin",
	}
}

func (s *StoreSuite) create(env *audit.Envelope) *audit.Envelope {
	stored, err := s.store.Create(s.ctx, env)
	s.Require().NoError(err)
	return stored
}

func (s *StoreSuite) TestCreateAssignsIdentity() {
	input := updateEnvelope("salary", "sal-1")
	stored := s.create(input)

	_, err := uuid.Parse(stored.ID)
	s.NoError(err)
	s.True(Clock.Equal(stored.CreatedAt))
	s.True(Clock.Equal(stored.UpdatedAt))
	s.Empty(input.ID, "the input envelope is not modified")
}

func (s *StoreSuite) TestFindByIDRoundTrip() {
	stored := s.create(updateEnvelope("salary", "sal-1"))

	found, err := s.store.FindByID(s.ctx, stored.ID)
	s.Require().NoError(err)
	s.Equal(stored.ID, found.ID)
	s.Equal("salary", found.EntityType)
	s.Equal(audit.ActionUpdate, found.Action)
	s.Equal("sal-1", found.EntityID)
	s.Equal("hr-admin", found.PerformedBy)
	s.True(Clock.Equal(found.CreatedAt))
	s.True(value.Equal(stored.OldData, found.OldData), "old data: %s", found.OldData)
	s.True(value.Equal(stored.NewData, found.NewData), "new data: %s", found.NewData)
	s.ElementsMatch([]string{"amount", "note"}, found.Changes.Names())
}

func (s *StoreSuite) TestAbsentPartsStayAbsent() {
	stored := s.create(&audit.Envelope{
		EntityType:  "salary",
		Action:      audit.ActionCreate,
		EntityID:    "sal-2",
		NewData:     value.Object(value.NewRecord().Set("step", value.Int(1))),
		PerformedBy: "system",
	})

	found, err := s.store.FindByID(s.ctx, stored.ID)
	s.Require().NoError(err)
	s.True(found.OldData.IsNull())
	s.Nil(found.Changes)
}

func (s *StoreSuite) TestFindByIDNotFound() {
	for _, id := range []string{uuid.NewString(), "not-a-uuid"} {
		_, err := s.store.FindByID(s.ctx, id)
		s.True(errors.Is(err, sentinel.ErrNotFound), "id %q: %v", id, err)
	}
}

func (s *StoreSuite) TestListNewestFirstWithPaging() {
	var ids []string
	for i := range 5 {
		stored := s.create(updateEnvelope("salary", string(rune('a'+i))))
		ids = append(ids, stored.ID)
	}

	first, err := s.store.List(s.ctx, audit.Page{Number: 1, Size: 2})
	s.Require().NoError(err)
	s.Equal(5, first.Total)
	s.Equal(1, first.Number)
	s.Equal(2, first.Size)
	s.Require().Len(first.Items, 2)
	s.Equal(ids[4], first.Items[0].ID)
	s.Equal(ids[3], first.Items[1].ID)

	last, err := s.store.List(s.ctx, audit.Page{Number: 3, Size: 2})
	s.Require().NoError(err)
	s.Require().Len(last.Items, 1)
	s.Equal(ids[0], last.Items[0].ID)

	beyond, err := s.store.List(s.ctx, audit.Page{Number: 9, Size: 2})
	s.Require().NoError(err)
	s.NotNil(beyond.Items)
	s.Empty(beyond.Items)
	s.Equal(5, beyond.Total)
}

func (s *StoreSuite) TestListFiltersByEntityType() {
	s.create(updateEnvelope("salary", "s1"))
	contract := s.create(updateEnvelope("contract", "c1"))
	s.create(updateEnvelope("salary", "s2"))

	page, err := s.store.List(s.ctx, audit.Page{Number: 1, Size: 10, EntityType: "contract"})
	s.Require().NoError(err)
	s.Equal(1, page.Total)
	s.Require().Len(page.Items, 1)
	s.Equal(contract.ID, page.Items[0].ID)
}

func (s *StoreSuite) TestListNormalizesPage() {
	s.create(updateEnvelope("salary", "s1"))

	page, err := s.store.List(s.ctx, audit.Page{})
	s.Require().NoError(err)
	s.Equal(1, page.Number)
	s.Equal(audit.DefaultPageSize, page.Size)
	s.Len(page.Items, 1)
}

func (s *StoreSuite) TestListClampsHugePageNumber() {
	s.create(updateEnvelope("salary", "s1"))
	s.create(updateEnvelope("salary", "s2"))

	page, err := s.store.List(s.ctx, audit.Page{Number: 92233720368547760, Size: audit.MaxPageSize})
	s.Require().NoError(err)
	s.Equal(audit.MaxPageNumber, page.Number)
	s.Equal(2, page.Total)
	s.Empty(page.Items)
}
