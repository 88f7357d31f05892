package emitter_test

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"math"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	promtest "github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	audit "hrcore/pkg/platform/audit"
	"hrcore/pkg/platform/audit/diff"
	"hrcore/pkg/platform/audit/emitter"
	"hrcore/pkg/platform/audit/mocks"
	"hrcore/pkg/platform/audit/redact"
	"hrcore/pkg/platform/audit/store/memory"
	"hrcore/pkg/platform/audit/value"
	"hrcore/pkg/platform/sentinel"
	"hrcore/pkg/requestcontext"

	dErrors "hrcore/pkg/domain-errors"
)

//go:generate mockgen -source=../models.go -destination=../mocks/store_mock.go -package=mocks Store
type EmitterSuite struct {
	suite.Suite
	ctx     context.Context
	store   *memory.InMemoryStore
	metrics *emitter.Metrics
	logs    *bytes.Buffer
	emitter *emitter.Emitter
}

var fixedNow = time.Date(2025, 6, 2, 9, 30, 0, 0, time.UTC)

func TestEmitterSuite(t *testing.T) {
	suite.Run(t, new(EmitterSuite))
}

func (s *EmitterSuite) SetupTest() {
	s.ctx = requestcontext.WithTime(context.Background(), fixedNow)
	s.ctx = requestcontext.WithRequestID(s.ctx, "req-123")
	s.store = memory.NewInMemoryStore(memory.WithClock(func() time.Time { return fixedNow }))
	s.metrics = emitter.NewMetrics(prometheus.NewRegistry())
	s.logs = &bytes.Buffer{}
	s.emitter = s.newEmitter(s.store)
}

func (s *EmitterSuite) newEmitter(store audit.Store) *emitter.Emitter {
	policy := redact.NewPolicy(redact.NewFieldSet(), map[string]redact.FieldSet{
		"salary": redact.NewFieldSet("id", "salaryData"),
	})
	return emitter.New(store,
		emitter.WithPolicy(policy),
		emitter.WithMetrics(s.metrics),
		emitter.WithLogger(slog.New(slog.NewTextHandler(s.logs, &slog.HandlerOptions{Level: slog.LevelDebug}))),
	)
}

func salary(amount float64) value.Value {
	return value.Object(value.NewRecord().
		Set("id", value.String("sal-1")).
		Set("step", value.Int(1)).
		Set("amount", value.Number(amount)).
		Set("salaryData", value.Sequence(value.Object(value.NewRecord().Set("step", value.Int(1))))))
}

func (s *EmitterSuite) TestEmitCreate() {
	ctx := requestcontext.WithActor(s.ctx, "hr-admin")
	stored, err := s.emitter.Emit(ctx, emitter.Entry{
		Action:     audit.ActionCreate,
		EntityType: "salary",
		EntityID:   "sal-1",
		NewData:    salary(1000),
	})
	s.Require().NoError(err)

	s.NotEmpty(stored.ID)
	s.Equal(fixedNow, stored.CreatedAt)
	s.Equal("hr-admin", stored.PerformedBy)
	s.Equal("sal-1", stored.EntityID)
	s.True(stored.OldData.IsNull())
	s.Nil(stored.Changes)
	s.Equal(`{"id":"****","step":1,"amount":1000,"salaryData":"****"}`, stored.NewData.String())

	found, err := s.store.FindByID(s.ctx, stored.ID)
	s.Require().NoError(err)
	s.Equal(stored.ID, found.ID)
	s.Equal(1.0, promtest.ToFloat64(s.metrics.Emitted.WithLabelValues("CREATE")))
}

func (s *EmitterSuite) TestEmitUpdateRedactsEveryPart() {
	oldData, newData := salary(1000), salary(1500)
	changes, err := diff.Compute(oldData, newData)
	s.Require().NoError(err)
	changes.Set("id", value.String("sal-1"))

	stored, err := s.emitter.Emit(s.ctx, emitter.Entry{
		Action:     audit.ActionUpdate,
		EntityType: "salary",
		OldData:    oldData,
		NewData:    newData,
		Changes:    changes,
	})
	s.Require().NoError(err)

	s.Equal(`{"id":"****","step":1,"amount":1000,"salaryData":"****"}`, stored.OldData.String())
	s.Equal(`{"id":"****","step":1,"amount":1500,"salaryData":"****"}`, stored.NewData.String())
	s.Equal([]string{"amount", "id"}, stored.Changes.Names())
	masked, _ := stored.Changes.Get("id")
	s.True(value.Equal(value.String(redact.Marker), masked))

	s.Run("caller values are not modified", func() {
		rec, _ := oldData.AsRecord()
		id, _ := rec.Get("id")
		s.True(value.Equal(value.String("sal-1"), id))
		raw, _ := changes.Get("id")
		s.True(value.Equal(value.String("sal-1"), raw))
	})
	s.Run("entity id is taken from the data before masking", func() {
		s.Equal("sal-1", stored.EntityID)
	})
}

func (s *EmitterSuite) TestEmitUpdateWithOnlyOldDataIsStored() {
	stored, err := s.emitter.Emit(s.ctx, emitter.Entry{
		Action:     audit.ActionUpdate,
		EntityType: "salary",
		EntityID:   "sal-1",
		OldData:    salary(1000),
	})
	s.Require().NoError(err)
	s.True(stored.NewData.IsNull())
	s.Equal([]string{"update envelope has oldData but no newData"}, stored.ContractWarnings())
}

func (s *EmitterSuite) TestEmitNormalizesActionShape() {
	changes := diff.NewDelta().Set("amount", value.Int(1))
	stored, err := s.emitter.Emit(s.ctx, emitter.Entry{
		Action:     audit.ActionCreate,
		EntityType: "salary",
		EntityID:   "sal-1",
		OldData:    salary(1),
		NewData:    salary(2),
		Changes:    changes,
	})
	s.Require().NoError(err)
	s.True(stored.OldData.IsNull())
	s.Nil(stored.Changes)
	s.Contains(s.logs.String(), "audit envelope normalized")
}

func (s *EmitterSuite) TestEmitDelete() {
	stored, err := s.emitter.Emit(s.ctx, emitter.Entry{
		Action:     audit.ActionDelete,
		EntityType: "contract",
		EntityID:   "c-9",
		OldData:    value.Object(value.NewRecord().Set("id", value.String("c-9"))),
		Actor:      "payroll-bot",
	})
	s.Require().NoError(err)
	s.Equal("payroll-bot", stored.PerformedBy)
	s.Equal(`{"id":"c-9"}`, stored.OldData.String(), "types without a policy entry are not masked")
}

func (s *EmitterSuite) TestEmitDefaultsActorToSystem() {
	stored, err := s.emitter.Emit(s.ctx, emitter.Entry{
		Action:     audit.ActionCreate,
		EntityType: "salary",
		EntityID:   "sal-1",
		NewData:    salary(1),
	})
	s.Require().NoError(err)
	s.Equal(emitter.SystemActor, stored.PerformedBy)
}

func (s *EmitterSuite) TestEmitInfersEntityID() {
	cases := []struct {
		name       string
		entityType string
		data       *value.Record
		want       string
	}{
		{"id field", "salary", value.NewRecord().Set("id", value.String("a1")), "a1"},
		{"numeric id", "contract", value.NewRecord().Set("id", value.Int(42)), "42"},
		{"type-prefixed camel case", "employees", value.NewRecord().Set("employeeId", value.String("e7")), "e7"},
		{"type-prefixed snake case", "contract", value.NewRecord().Set("contract_id", value.String("c3")), "c3"},
		{"no candidate", "contract", value.NewRecord().Set("name", value.String("x")), ""},
	}
	for _, tc := range cases {
		s.Run(tc.name, func() {
			stored, err := s.emitter.Emit(s.ctx, emitter.Entry{
				Action:     audit.ActionCreate,
				EntityType: tc.entityType,
				NewData:    value.Object(tc.data),
			})
			s.Require().NoError(err)
			s.Equal(tc.want, stored.EntityID)
		})
	}
}

func (s *EmitterSuite) TestEmitRejectsInvalidEnvelope() {
	ctrl := gomock.NewController(s.T())
	store := mocks.NewMockStore(ctrl)
	em := s.newEmitter(store)

	_, err := em.Emit(s.ctx, emitter.Entry{Action: "PATCH", EntityType: "salary"})
	s.Error(err)
	_, err = em.Emit(s.ctx, emitter.Entry{Action: audit.ActionCreate})
	s.Error(err)
	s.Equal(2.0, promtest.ToFloat64(s.metrics.Rejected))
}

func (s *EmitterSuite) TestEmitRejectsUnredactableData() {
	ctrl := gomock.NewController(s.T())
	store := mocks.NewMockStore(ctrl)
	em := s.newEmitter(store)

	rec := value.NewRecord()
	rec.Set("self", value.Object(rec))
	_, err := em.Emit(s.ctx, emitter.Entry{
		Action:     audit.ActionCreate,
		EntityType: "salary",
		EntityID:   "x",
		NewData:    value.Object(rec),
	})
	s.ErrorIs(err, audit.ErrUnsupportedShape)
}

func (s *EmitterSuite) TestEmitRejectsNonFiniteNumbers() {
	ctrl := gomock.NewController(s.T())
	store := mocks.NewMockStore(ctrl)
	em := s.newEmitter(store)

	before := value.Object(value.NewRecord().Set("step", value.Int(1)).Set("amount", value.Number(1000)))
	after := value.Object(value.NewRecord().Set("step", value.Int(1)).Set("amount", value.Number(math.NaN())))
	changes, err := diff.Compute(before, after)
	s.Require().NoError(err)

	_, err = em.Emit(s.ctx, emitter.Entry{
		Action:     audit.ActionUpdate,
		EntityType: "salary",
		EntityID:   "sal-1",
		OldData:    before,
		NewData:    after,
		Changes:    changes,
	})
	s.ErrorIs(err, audit.ErrUnsupportedShape)
	s.NotErrorIs(err, audit.ErrStoreUnavailable)
	s.Equal(1.0, promtest.ToFloat64(s.metrics.Rejected))
}

func (s *EmitterSuite) TestEmitFailsClosedOnStoreError() {
	ctrl := gomock.NewController(s.T())
	store := mocks.NewMockStore(ctrl)
	em := s.newEmitter(store)
	cause := errors.New("connection refused")

	store.EXPECT().Create(gomock.Any(), gomock.Any()).Return(nil, cause).Times(1)

	stored, err := em.Emit(s.ctx, emitter.Entry{
		Action:     audit.ActionCreate,
		EntityType: "salary",
		EntityID:   "sal-1",
		NewData:    salary(1),
	})
	s.Nil(stored)
	s.ErrorIs(err, audit.ErrStoreUnavailable)
	s.ErrorIs(err, cause)
	s.Equal(1.0, promtest.ToFloat64(s.metrics.PersistFailures))
	s.Contains(s.logs.String(), "audit persistence failed")
}

func (s *EmitterSuite) TestEmitPassesRedactedEnvelopeToStore() {
	ctrl := gomock.NewController(s.T())
	store := mocks.NewMockStore(ctrl)
	em := s.newEmitter(store)

	store.EXPECT().Create(gomock.Any(), gomock.Any()).DoAndReturn(
		func(_ context.Context, env *audit.Envelope) (*audit.Envelope, error) {
			s.Equal(`{"id":"****","step":1,"amount":5,"salaryData":"****"}`, env.NewData.String())
			s.Empty(env.ID, "ids are assigned by the store")
			out := *env
			out.ID = "env-1"
			return &out, nil
		})

	stored, err := em.Emit(s.ctx, emitter.Entry{
		Action:     audit.ActionCreate,
		EntityType: "salary",
		NewData:    salary(5),
	})
	s.Require().NoError(err)
	s.Equal("env-1", stored.ID)
}

func (s *EmitterSuite) TestEmitView() {
	ctx := requestcontext.WithActor(s.ctx, "auditor")
	stored, err := s.emitter.EmitView(ctx, "sal-1", "salary")
	s.Require().NoError(err)

	s.Equal(audit.ActionView, stored.Action)
	s.Equal("sal-1", stored.EntityID)
	s.Equal("auditor", stored.PerformedBy)
	s.True(stored.OldData.IsNull())
	s.Equal(`{"timestamp":"2025-06-02T09:30:00Z","entity":"salary","requestId":"req-123"}`, stored.NewData.String())
}

func (s *EmitterSuite) TestEmitError() {
	s.Run("coded errors keep code and message", func() {
		desc, err := s.emitter.EmitError(s.ctx, dErrors.New(dErrors.CodeValidation, "amount must be positive"), "update salary")
		s.Require().NoError(err)
		s.Equal(dErrors.CodeValidation, desc.Code)
		s.Equal("amount must be positive", desc.Message)
		s.Equal("update salary", desc.Context)
		s.Equal("req-123", desc.RequestID)
		s.Equal(fixedNow, desc.Timestamp)
		s.Require().NotEmpty(desc.AuditID)

		stored, err := s.store.FindByID(s.ctx, desc.AuditID)
		s.Require().NoError(err)
		s.Equal(audit.ActionError, stored.Action)
		s.Equal(emitter.ErrorEntityType, stored.EntityType)
		s.Equal(string(dErrors.CodeValidation), stored.EntityID)
	})

	s.Run("internal errors hide their message", func() {
		desc, err := s.emitter.EmitError(s.ctx, errors.New("pq: relation missing"), "list salaries")
		s.Require().NoError(err)
		s.Equal(dErrors.CodeInternal, desc.Code)
		s.NotContains(desc.Message, "pq:")

		stored, err := s.store.FindByID(s.ctx, desc.AuditID)
		s.Require().NoError(err)
		s.Contains(stored.NewData.String(), `"cause":"*errors.errorString"`)
	})

	s.Run("raw error text stays out of the trail", func() {
		cause := errors.New(`salaryData "SG-11" rejected by payroll`)
		desc, err := s.emitter.EmitError(s.ctx,
			dErrors.Wrap(cause, dErrors.CodeInternal, "payroll sync failed"), "update salary")
		s.Require().NoError(err)

		stored, err := s.store.FindByID(s.ctx, desc.AuditID)
		s.Require().NoError(err)
		s.NotContains(stored.NewData.String(), "SG-11")
		rec, _ := stored.NewData.AsRecord()
		detail, _ := rec.Get("detail")
		s.Equal(`"payroll sync failed"`, detail.String())
	})

	s.Run("classification of known errors", func() {
		cases := map[error]dErrors.Code{
			sentinel.ErrNotFound:                               dErrors.CodeNotFound,
			context.DeadlineExceeded:                           dErrors.CodeTimeout,
			audit.ErrStoreUnavailable:                          dErrors.CodeUnavailable,
			sentinel.ErrUnavailable:                            dErrors.CodeUnavailable,
			audit.ErrShapeMismatch:                             dErrors.CodeInvariantViolation,
			errors.Join(errors.New("x"), sentinel.ErrConflict): dErrors.CodeConflict,
		}
		for in, want := range cases {
			desc, err := s.emitter.EmitError(s.ctx, in, "")
			s.Require().NoError(err)
			s.Equal(want, desc.Code, in.Error())
		}
	})
}

func (s *EmitterSuite) TestEmitErrorReturnsDescriptorWhenStoreFails() {
	ctrl := gomock.NewController(s.T())
	store := mocks.NewMockStore(ctrl)
	em := s.newEmitter(store)
	store.EXPECT().Create(gomock.Any(), gomock.Any()).Return(nil, errors.New("down"))

	desc, err := em.EmitError(s.ctx, sentinel.ErrNotFound, "get salary")
	s.ErrorIs(err, audit.ErrStoreUnavailable)
	s.Equal(dErrors.CodeNotFound, desc.Code)
	s.Equal("resource not found", desc.Message)
	s.Empty(desc.AuditID)
}
