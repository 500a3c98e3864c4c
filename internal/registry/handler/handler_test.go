package handler

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/suite"
	"go.uber.org/zap"

	"strdep/internal/registry/service"
	"strdep/internal/registry/store"
	"strdep/pkg/requestcontext"
	"strdep/pkg/testutil"
)

type HandlerSuite struct {
	suite.Suite
	router http.Handler
	t0     time.Time
}

func TestHandlerSuite(t *testing.T) {
	suite.Run(t, new(HandlerSuite))
}

func (s *HandlerSuite) SetupTest() {
	svc := service.New(store.NewInMemory())
	h := New(svc, zap.NewNop())
	r := chi.NewRouter()
	h.Register(r)
	s.router = r
	s.t0 = time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
}

func (s *HandlerSuite) asAuthority(req *http.Request, ownerID string, at time.Time) *http.Request {
	req = testutil.WithPrincipal(req, requestcontext.Principal{
		OwnerID:     ownerID,
		DisplayName: "Gemeente " + ownerID,
		Role:        requestcontext.RoleAuthority,
	})
	return testutil.WithTime(req, at)
}

func (s *HandlerSuite) asPlatform(req *http.Request, ownerID string, at time.Time) *http.Request {
	req = testutil.WithPrincipal(req, requestcontext.Principal{
		OwnerID:     ownerID,
		DisplayName: "Platform " + ownerID,
		Role:        requestcontext.RolePlatform,
	})
	return testutil.WithTime(req, at)
}

func (s *HandlerSuite) do(req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	return rec
}

func areaBody(areaID string) map[string]any {
	return map[string]any{
		"areaId":   areaID,
		"areaName": "Centrum",
		"filename": "shapes.zip",
		"file":     []byte("geodata"),
	}
}

func activityBody(activityID, areaID string) map[string]any {
	return map[string]any{
		"activityId":         activityID,
		"activityName":       "Canal View Apartment",
		"areaId":             areaID,
		"url":                "http://example.com/listing/1",
		"registrationNumber": "REG123456",
		"address": map[string]any{
			"street":     "Herengracht",
			"number":     12,
			"postalCode": "1015BK",
			"city":       "Amsterdam",
		},
		"numberOfGuests":  4,
		"countryOfGuests": []string{"NL"},
		"temporal": map[string]any{
			"startDateTime": "2025-06-01T14:00:00Z",
			"endDateTime":   "2025-06-08T10:00:00Z",
		},
	}
}

// submitArea seeds an area through the API.
func (s *HandlerSuite) submitArea(ownerID, areaID string, at time.Time) {
	req := s.asAuthority(testutil.NewJSONRequest(s.T(), http.MethodPost, "/areas/", areaBody(areaID)), ownerID, at)
	rec := s.do(req)
	s.Require().Equal(http.StatusCreated, rec.Code, rec.Body.String())
}

func (s *HandlerSuite) TestSubmitAreaCreated() {
	req := s.asAuthority(testutil.NewJSONRequest(s.T(), http.MethodPost, "/areas/", areaBody("a1")), "0363", s.t0)
	rec := s.do(req)
	s.Require().Equal(http.StatusCreated, rec.Code, rec.Body.String())

	var resp struct {
		AreaID    string    `json:"areaId"`
		CreatedAt time.Time `json:"createdAt"`
	}
	testutil.DecodeJSON(s.T(), rec, &resp)
	s.Equal("a1", resp.AreaID)
	s.True(resp.CreatedAt.Equal(s.t0))
}

func (s *HandlerSuite) TestSubmitAreaGeneratesID() {
	body := areaBody("")
	delete(body, "areaId")
	req := s.asAuthority(testutil.NewJSONRequest(s.T(), http.MethodPost, "/areas/", body), "0363", s.t0)
	rec := s.do(req)
	s.Require().Equal(http.StatusCreated, rec.Code, rec.Body.String())

	var resp struct {
		AreaID string `json:"areaId"`
	}
	testutil.DecodeJSON(s.T(), rec, &resp)
	s.NotEmpty(resp.AreaID)
}

func (s *HandlerSuite) TestSubmitAreaUnauthenticated() {
	req := testutil.NewJSONRequest(s.T(), http.MethodPost, "/areas/", areaBody("a1"))
	rec := s.do(testutil.WithTime(req, s.t0))
	s.Equal(http.StatusUnauthorized, rec.Code)
}

func (s *HandlerSuite) TestSubmitAreaWrongRole() {
	req := s.asPlatform(testutil.NewJSONRequest(s.T(), http.MethodPost, "/areas/", areaBody("a1")), "platform01", s.t0)
	rec := s.do(req)
	s.Equal(http.StatusForbidden, rec.Code)

	var resp map[string]string
	testutil.DecodeJSON(s.T(), rec, &resp)
	s.Equal("forbidden", resp["error"])
}

func (s *HandlerSuite) TestSubmitAreaMissingFile() {
	body := areaBody("a1")
	delete(body, "file")
	req := s.asAuthority(testutil.NewJSONRequest(s.T(), http.MethodPost, "/areas/", body), "0363", s.t0)
	rec := s.do(req)
	s.Equal(http.StatusUnprocessableEntity, rec.Code)

	var resp map[string]string
	testutil.DecodeJSON(s.T(), rec, &resp)
	s.Equal("validation_syntax", resp["error"])
}

func (s *HandlerSuite) TestSubmitAreaMalformedBody() {
	req := httptest.NewRequest(http.MethodPost, "/areas/", nil)
	req.Header.Set("Content-Type", "application/json")
	rec := s.do(s.asAuthority(req, "0363", s.t0))
	s.Equal(http.StatusBadRequest, rec.Code)
}

func (s *HandlerSuite) TestDuplicateTimestampConflict() {
	s.submitArea("0363", "a1", s.t0)

	req := s.asAuthority(testutil.NewJSONRequest(s.T(), http.MethodPost, "/areas/", areaBody("a1")), "0363", s.t0)
	rec := s.do(req)
	s.Equal(http.StatusConflict, rec.Code)
}

func (s *HandlerSuite) TestDeactivateAreaLifecycle() {
	s.submitArea("0363", "a1", s.t0)

	del := s.asAuthority(httptest.NewRequest(http.MethodDelete, "/areas/a1", nil), "0363", s.t0.Add(time.Hour))
	s.Equal(http.StatusNoContent, s.do(del).Code)

	// Resubmission of a deactivated chain is rejected.
	req := s.asAuthority(testutil.NewJSONRequest(s.T(), http.MethodPost, "/areas/", areaBody("a1")), "0363", s.t0.Add(2*time.Hour))
	rec := s.do(req)
	s.Equal(http.StatusUnprocessableEntity, rec.Code)

	var resp map[string]string
	testutil.DecodeJSON(s.T(), rec, &resp)
	s.Equal("deactivated", resp["error"])
}

func (s *HandlerSuite) TestDeactivateUnknownArea() {
	del := s.asAuthority(httptest.NewRequest(http.MethodDelete, "/areas/missing", nil), "0363", s.t0)
	s.Equal(http.StatusNotFound, s.do(del).Code)
}

func (s *HandlerSuite) TestListAreasScopedByRole() {
	s.submitArea("0363", "a1", s.t0)
	s.submitArea("0599", "b1", s.t0)

	own := s.asAuthority(httptest.NewRequest(http.MethodGet, "/areas/", nil), "0363", s.t0.Add(time.Hour))
	rec := s.do(own)
	s.Require().Equal(http.StatusOK, rec.Code)

	var page struct {
		Areas []json.RawMessage `json:"areas"`
		Total int               `json:"total"`
	}
	testutil.DecodeJSON(s.T(), rec, &page)
	s.Len(page.Areas, 1)
	s.Equal(1, page.Total)

	all := s.asPlatform(httptest.NewRequest(http.MethodGet, "/areas/", nil), "platform01", s.t0.Add(time.Hour))
	rec = s.do(all)
	s.Require().Equal(http.StatusOK, rec.Code)
	testutil.DecodeJSON(s.T(), rec, &page)
	s.Len(page.Areas, 2)
}

func (s *HandlerSuite) TestCountAreas() {
	s.submitArea("0363", "a1", s.t0)
	s.submitArea("0599", "b1", s.t0)

	req := s.asAuthority(httptest.NewRequest(http.MethodGet, "/areas/count", nil), "0363", s.t0.Add(time.Hour))
	rec := s.do(req)
	s.Require().Equal(http.StatusOK, rec.Code)

	var resp struct {
		Total int `json:"total"`
	}
	testutil.DecodeJSON(s.T(), rec, &resp)
	s.Equal(1, resp.Total)

	all := s.asPlatform(httptest.NewRequest(http.MethodGet, "/areas/count", nil), "platform01", s.t0.Add(time.Hour))
	rec = s.do(all)
	s.Require().Equal(http.StatusOK, rec.Code)
	testutil.DecodeJSON(s.T(), rec, &resp)
	s.Equal(2, resp.Total)
}

func (s *HandlerSuite) TestGetAreaFile() {
	s.submitArea("0363", "a1", s.t0)

	req := s.asPlatform(httptest.NewRequest(http.MethodGet, "/areas/a1/file", nil), "platform01", s.t0.Add(time.Hour))
	rec := s.do(req)
	s.Require().Equal(http.StatusOK, rec.Code)
	s.Equal("application/octet-stream", rec.Header().Get("Content-Type"))
	s.Contains(rec.Header().Get("Content-Disposition"), "shapes.zip")
	s.Equal("geodata", rec.Body.String())
}

func (s *HandlerSuite) TestSubmitActivityCreated() {
	s.submitArea("0363", "a1", s.t0)

	req := s.asPlatform(testutil.NewJSONRequest(s.T(), http.MethodPost, "/activities/", activityBody("act-1", "a1")), "platform01", s.t0.Add(time.Hour))
	rec := s.do(req)
	s.Require().Equal(http.StatusCreated, rec.Code, rec.Body.String())

	var resp struct {
		ActivityID string `json:"activityId"`
	}
	testutil.DecodeJSON(s.T(), rec, &resp)
	s.Equal("act-1", resp.ActivityID)
}

func (s *HandlerSuite) TestSubmitActivityUnknownArea() {
	req := s.asPlatform(testutil.NewJSONRequest(s.T(), http.MethodPost, "/activities/", activityBody("act-1", "nowhere")), "platform01", s.t0)
	rec := s.do(req)
	s.Equal(http.StatusUnprocessableEntity, rec.Code)

	var resp map[string]string
	testutil.DecodeJSON(s.T(), rec, &resp)
	s.Equal("business_rule", resp["error"])
}

func (s *HandlerSuite) TestSubmitActivityInvalidTemporal() {
	s.submitArea("0363", "a1", s.t0)

	body := activityBody("act-1", "a1")
	body["temporal"] = map[string]any{
		"startDateTime": "2025-06-08T10:00:00Z",
		"endDateTime":   "2025-06-01T14:00:00Z",
	}
	req := s.asPlatform(testutil.NewJSONRequest(s.T(), http.MethodPost, "/activities/", body), "platform01", s.t0.Add(time.Hour))
	rec := s.do(req)
	s.Equal(http.StatusUnprocessableEntity, rec.Code)

	var resp map[string]string
	testutil.DecodeJSON(s.T(), rec, &resp)
	s.Equal("validation_semantic", resp["error"])
}

func (s *HandlerSuite) TestSubmitActivityBadPostalCode() {
	s.submitArea("0363", "a1", s.t0)

	body := activityBody("act-1", "a1")
	body["address"] = map[string]any{
		"street":     "Herengracht",
		"number":     12,
		"postalCode": "1015 BK",
		"city":       "Amsterdam",
	}
	req := s.asPlatform(testutil.NewJSONRequest(s.T(), http.MethodPost, "/activities/", body), "platform01", s.t0.Add(time.Hour))
	rec := s.do(req)
	s.Equal(http.StatusUnprocessableEntity, rec.Code)
}

func (s *HandlerSuite) TestListActivitiesWithFilters() {
	s.submitArea("0363", "a1", s.t0)

	first := s.asPlatform(testutil.NewJSONRequest(s.T(), http.MethodPost, "/activities/", activityBody("act-1", "a1")), "platform01", s.t0.Add(time.Hour))
	s.Require().Equal(http.StatusCreated, s.do(first).Code)
	other := activityBody("act-2", "a1")
	other["registrationNumber"] = "OTHER42"
	second := s.asPlatform(testutil.NewJSONRequest(s.T(), http.MethodPost, "/activities/", other), "platform01", s.t0.Add(2*time.Hour))
	s.Require().Equal(http.StatusCreated, s.do(second).Code)

	req := s.asPlatform(httptest.NewRequest(http.MethodGet, "/activities/?registrationNumber=OTHER42", nil), "platform01", s.t0.Add(3*time.Hour))
	rec := s.do(req)
	s.Require().Equal(http.StatusOK, rec.Code)

	var page struct {
		Activities []struct {
			ActivityID string `json:"activityId"`
		} `json:"activities"`
		Total int `json:"total"`
	}
	testutil.DecodeJSON(s.T(), rec, &page)
	s.Require().Len(page.Activities, 1)
	s.Equal("act-2", page.Activities[0].ActivityID)
	s.Equal(1, page.Total)
}

func (s *HandlerSuite) TestCountActivitiesWithFilters() {
	s.submitArea("0363", "a1", s.t0)

	first := s.asPlatform(testutil.NewJSONRequest(s.T(), http.MethodPost, "/activities/", activityBody("act-1", "a1")), "platform01", s.t0.Add(time.Hour))
	s.Require().Equal(http.StatusCreated, s.do(first).Code)
	other := activityBody("act-2", "a1")
	other["registrationNumber"] = "OTHER42"
	second := s.asPlatform(testutil.NewJSONRequest(s.T(), http.MethodPost, "/activities/", other), "platform01", s.t0.Add(2*time.Hour))
	s.Require().Equal(http.StatusCreated, s.do(second).Code)

	req := s.asPlatform(httptest.NewRequest(http.MethodGet, "/activities/count?registrationNumber=OTHER42", nil), "platform01", s.t0.Add(3*time.Hour))
	rec := s.do(req)
	s.Require().Equal(http.StatusOK, rec.Code)

	var resp struct {
		Total int `json:"total"`
	}
	testutil.DecodeJSON(s.T(), rec, &resp)
	s.Equal(1, resp.Total)
}

func (s *HandlerSuite) TestDeactivateActivity() {
	s.submitArea("0363", "a1", s.t0)
	create := s.asPlatform(testutil.NewJSONRequest(s.T(), http.MethodPost, "/activities/", activityBody("act-1", "a1")), "platform01", s.t0.Add(time.Hour))
	s.Require().Equal(http.StatusCreated, s.do(create).Code)

	del := s.asPlatform(httptest.NewRequest(http.MethodDelete, "/activities/act-1", nil), "platform01", s.t0.Add(2*time.Hour))
	s.Equal(http.StatusNoContent, s.do(del).Code)

	list := s.asPlatform(httptest.NewRequest(http.MethodGet, "/activities/", nil), "platform01", s.t0.Add(3*time.Hour))
	rec := s.do(list)
	var page struct {
		Total int `json:"total"`
	}
	testutil.DecodeJSON(s.T(), rec, &page)
	s.Equal(0, page.Total)
}

func (s *HandlerSuite) TestBadPaginationParams() {
	req := s.asPlatform(httptest.NewRequest(http.MethodGet, "/areas/?offset=abc", nil), "platform01", s.t0)
	s.Equal(http.StatusUnprocessableEntity, s.do(req).Code)
}
