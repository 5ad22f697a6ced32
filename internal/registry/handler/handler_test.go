package handler

//go:generate mockgen -source=handler.go -destination=mocks/mocks.go -package=mocks Service

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	"ballotgate/internal/registry/handler/mocks"
	"ballotgate/internal/registry/service"
	"ballotgate/pkg/domain"
	dErrors "ballotgate/pkg/domain-errors"
)

type RegistryHandlerSuite struct {
	suite.Suite
	service *mocks.MockService
	router  chi.Router
}

func TestRegistryHandlerSuite(t *testing.T) {
	suite.Run(t, new(RegistryHandlerSuite))
}

func (s *RegistryHandlerSuite) SetupTest() {
	ctrl := gomock.NewController(s.T())
	s.service = mocks.NewMockService(ctrl)
	s.router = chi.NewRouter()
	New(s.service, slog.New(slog.NewTextHandler(io.Discard, nil))).Register(s.router)
}

func (s *RegistryHandlerSuite) get(path string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

func (s *RegistryHandlerSuite) TestStatus() {
	s.Run("voted identity reports cast time", func() {
		castAt := time.Date(2026, 5, 4, 9, 0, 0, 0, time.UTC)
		s.service.EXPECT().Status(gomock.Any(), domain.IdentityToken("A123")).
			Return(&service.Status{HasVoted: true, CastAt: castAt, KioskID: "kiosk-1"}, nil)

		w := s.get("/voters/A123/status")
		s.Equal(http.StatusOK, w.Code)

		var body map[string]any
		s.Require().NoError(json.Unmarshal(w.Body.Bytes(), &body))
		s.Equal(true, body["has_voted"])
		s.Equal("2026-05-04T09:00:00Z", body["cast_at"])
		s.Equal("kiosk-1", body["kiosk_id"])
	})

	s.Run("unknown identity has not voted", func() {
		s.service.EXPECT().Status(gomock.Any(), domain.IdentityToken("Z9")).Return(&service.Status{}, nil)

		w := s.get("/voters/Z9/status")
		s.Equal(http.StatusOK, w.Code)
		s.JSONEq(`{"has_voted":false}`, w.Body.String())
	})

	s.Run("storage failure is 503, never a false answer", func() {
		s.service.EXPECT().Status(gomock.Any(), gomock.Any()).
			Return(nil, dErrors.New(dErrors.CodeStorage, "vote registry unavailable"))

		w := s.get("/voters/C789/status")
		s.Equal(http.StatusServiceUnavailable, w.Code)
		s.NotContains(w.Body.String(), "has_voted")
	})

	s.Run("token with whitespace is rejected before lookup", func() {
		w := s.get("/voters/A%20123/status")
		s.Equal(http.StatusBadRequest, w.Code)
	})
}
