package handler

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	auditsvc "hrcore/internal/audit"
	"hrcore/internal/audit/handler/mocks"
	"hrcore/internal/platform/metrics"
	dErrors "hrcore/pkg/domain-errors"
	audit "hrcore/pkg/platform/audit"
	"hrcore/pkg/platform/audit/value"
	authmw "hrcore/pkg/platform/middleware/auth"
)

//go:generate mockgen -source=handler.go -destination=mocks/audit-mocks.go -package=mocks Service
type AuditHandlerSuite struct {
	suite.Suite
	service *mocks.MockService
	router  chi.Router
}

func TestAuditHandlerSuite(t *testing.T) {
	suite.Run(t, new(AuditHandlerSuite))
}

type staticValidator struct{}

func (staticValidator) ValidateToken(token string) (*authmw.JWTClaims, error) {
	if token != "valid" {
		return nil, errors.New("invalid")
	}
	return &authmw.JWTClaims{Actor: "auditor"}, nil
}

func (s *AuditHandlerSuite) SetupTest() {
	ctrl := gomock.NewController(s.T())
	s.service = mocks.NewMockService(ctrl)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	h := New(s.service, logger, metrics.New(prometheus.NewRegistry()), staticValidator{})
	s.router = chi.NewRouter()
	h.Register(s.router)
}

func (s *AuditHandlerSuite) do(path string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	req.Header.Set("Authorization", "Bearer valid")
	rr := httptest.NewRecorder()
	s.router.ServeHTTP(rr, req)
	return rr
}

func (s *AuditHandlerSuite) TestList() {
	created := time.Date(2025, 6, 2, 9, 30, 0, 0, time.UTC)
	s.service.EXPECT().
		List(gomock.Any(), auditsvc.ListRequest{Page: 2, Size: 5, EntityType: "salary"}).
		Return(&audit.PageResult{
			Items: []*audit.Envelope{{
				ID:          "env-1",
				EntityType:  "salary",
				Action:      audit.ActionCreate,
				EntityID:    "sal-1",
				NewData:     value.Object(value.NewRecord().Set("step", value.Int(1))),
				PerformedBy: "hr-admin",
				CreatedAt:   created,
				UpdatedAt:   created,
			}},
			Number: 2,
			Size:   5,
			Total:  6,
		}, nil)

	rr := s.do("/audit-logs?page=2&size=5&entityType=salary")

	s.Equal(http.StatusOK, rr.Code)
	s.JSONEq(`{
		"items": [{
			"id": "env-1",
			"entityType": "salary",
			"action": "CREATE",
			"entityId": "sal-1",
			"newData": {"step": 1},
			"performedBy": "hr-admin",
			"createdAt": "2025-06-02T09:30:00Z",
			"updatedAt": "2025-06-02T09:30:00Z"
		}],
		"page": 2,
		"size": 5,
		"total": 6
	}`, rr.Body.String())
}

func (s *AuditHandlerSuite) TestListRejectsBadQuery() {
	for _, q := range []string{"page=0", "size=-1", "size=101", "page=abc", "page=92233720368547760"} {
		rr := s.do("/audit-logs?" + q)
		s.Equal(http.StatusBadRequest, rr.Code, q)
	}
}

func (s *AuditHandlerSuite) TestListStoreUnavailable() {
	s.service.EXPECT().List(gomock.Any(), gomock.Any()).
		Return(nil, dErrors.New(dErrors.CodeUnavailable, "audit store unavailable"))

	rr := s.do("/audit-logs")
	s.Equal(http.StatusServiceUnavailable, rr.Code)
}

func (s *AuditHandlerSuite) TestGet() {
	s.service.EXPECT().Get(gomock.Any(), "env-1").Return(&audit.Envelope{
		ID:         "env-1",
		EntityType: "salary",
		Action:     audit.ActionView,
	}, nil)

	rr := s.do("/audit-logs/env-1")
	s.Equal(http.StatusOK, rr.Code)
	var body map[string]any
	s.Require().NoError(json.Unmarshal(rr.Body.Bytes(), &body))
	s.Equal("VIEW", body["action"])
	s.NotContains(body, "oldData")
	s.NotContains(body, "changes")
}

func (s *AuditHandlerSuite) TestGetNotFound() {
	s.service.EXPECT().Get(gomock.Any(), "missing").
		Return(nil, dErrors.New(dErrors.CodeNotFound, "audit log not found"))

	rr := s.do("/audit-logs/missing")
	s.Equal(http.StatusNotFound, rr.Code)
	s.Contains(rr.Body.String(), "audit log not found")
}

func (s *AuditHandlerSuite) TestRequiresAuth() {
	req := httptest.NewRequest(http.MethodGet, "/audit-logs", nil)
	rr := httptest.NewRecorder()
	s.router.ServeHTTP(rr, req)
	s.Equal(http.StatusUnauthorized, rr.Code)
}
