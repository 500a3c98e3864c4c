package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"strdep/internal/registry/cache"
	"strdep/internal/registry/events"
	"strdep/internal/registry/store"
	dErrors "strdep/pkg/domain-errors"
	"strdep/pkg/requestcontext"
)

// capturingPublisher records emitted events for assertions.
type capturingPublisher struct {
	mu     sync.Mutex
	events []events.Event
}

func (c *capturingPublisher) Emit(_ context.Context, event events.Event) {
	c.mu.Lock()
	c.events = append(c.events, event)
	c.mu.Unlock()
}

func (c *capturingPublisher) Close() {}

func (c *capturingPublisher) all() []events.Event {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]events.Event(nil), c.events...)
}

type ServiceSuite struct {
	suite.Suite
	store     *store.InMemory
	publisher *capturingPublisher
	blobs     *cache.Memory
	service   *Service
	t0        time.Time
}

func TestServiceSuite(t *testing.T) {
	suite.Run(t, new(ServiceSuite))
}

func (s *ServiceSuite) SetupTest() {
	s.store = store.NewInMemory()
	s.publisher = &capturingPublisher{}
	s.blobs = cache.NewMemory(time.Minute)
	s.service = New(s.store,
		WithEvents(s.publisher),
		WithBlobCache(s.blobs),
	)
	s.t0 = time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
}

// authorityCtx returns a context authenticated as a competent authority at
// the given instant.
func (s *ServiceSuite) authorityCtx(ownerID string, at time.Time) context.Context {
	ctx := requestcontext.WithPrincipal(context.Background(), requestcontext.Principal{
		OwnerID:     ownerID,
		DisplayName: "Gemeente " + ownerID,
		Role:        requestcontext.RoleAuthority,
	})
	return requestcontext.WithTime(ctx, at)
}

func (s *ServiceSuite) platformCtx(ownerID string, at time.Time) context.Context {
	ctx := requestcontext.WithPrincipal(context.Background(), requestcontext.Principal{
		OwnerID:     ownerID,
		DisplayName: "Platform " + ownerID,
		Role:        requestcontext.RolePlatform,
	})
	return requestcontext.WithTime(ctx, at)
}

func areaInput(areaID string) SubmitAreaInput {
	return SubmitAreaInput{
		AreaID:   areaID,
		Name:     "Centrum",
		Filename: "shapes.zip",
		FileData: []byte("geodata"),
	}
}

func activityInput(activityID, areaID string) SubmitActivityInput {
	guests := 4
	return SubmitActivityInput{
		ActivityID:         activityID,
		Name:               "Canal View Apartment",
		AreaID:             areaID,
		URL:                "http://example.com/listing/1",
		RegistrationNumber: "REG123456",
		Address: AddressInput{
			Street:     "Herengracht",
			Number:     12,
			PostalCode: "1015BK",
			City:       "Amsterdam",
		},
		NumberOfGuests:  &guests,
		CountryOfGuests: []string{"NL", "DE"},
		Start:           time.Date(2025, 6, 1, 14, 0, 0, 0, time.UTC),
		End:             time.Date(2025, 6, 8, 10, 0, 0, 0, time.UTC),
	}
}

func (s *ServiceSuite) TestSubmitAreaProvisionsOwner() {
	ctx := s.authorityCtx("0363", s.t0)

	area, err := s.service.SubmitArea(ctx, areaInput("a1"))
	s.Require().NoError(err)
	s.Equal("a1", string(area.AreaID))
	s.True(area.CreatedAt.Equal(s.t0))

	page, err := s.service.ListAreas(ctx, Page{})
	s.Require().NoError(err)
	s.Require().Len(page.Items, 1)
	s.Equal("0363", string(page.Items[0].AuthorityID))
	s.Equal("Gemeente 0363", page.Items[0].AuthorityName)
}

func (s *ServiceSuite) TestSubmitAreaStacksVersions() {
	_, err := s.service.SubmitArea(s.authorityCtx("0363", s.t0), areaInput("a1"))
	s.Require().NoError(err)
	_, err = s.service.SubmitArea(s.authorityCtx("0363", s.t0.Add(time.Hour)), areaInput("a1"))
	s.Require().NoError(err)

	page, err := s.service.ListAreas(s.authorityCtx("0363", s.t0.Add(2*time.Hour)), Page{})
	s.Require().NoError(err)
	s.Len(page.Items, 1, "listing shows current versions only")
	s.Equal(1, page.Total)
}

func (s *ServiceSuite) TestSubmitAreaDuplicateTimestampConflicts() {
	ctx := s.authorityCtx("0363", s.t0)
	_, err := s.service.SubmitArea(ctx, areaInput("a1"))
	s.Require().NoError(err)

	_, err = s.service.SubmitArea(ctx, areaInput("a1"))
	s.True(dErrors.HasCode(err, dErrors.CodeConflict))
}

func (s *ServiceSuite) TestDeactivatedAreaRejectsResubmission() {
	_, err := s.service.SubmitArea(s.authorityCtx("0363", s.t0), areaInput("a1"))
	s.Require().NoError(err)
	err = s.service.DeactivateArea(s.authorityCtx("0363", s.t0.Add(time.Hour)), "a1")
	s.Require().NoError(err)

	_, err = s.service.SubmitArea(s.authorityCtx("0363", s.t0.Add(2*time.Hour)), areaInput("a1"))
	s.True(dErrors.HasCode(err, dErrors.CodeDeactivated))
}

func (s *ServiceSuite) TestDeactivateUnknownAreaNotFound() {
	err := s.service.DeactivateArea(s.authorityCtx("0363", s.t0), "missing")
	s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
}

func (s *ServiceSuite) TestAreaRoleEnforcement() {
	_, err := s.service.SubmitArea(s.platformCtx("platform01", s.t0), areaInput("a1"))
	s.True(dErrors.HasCode(err, dErrors.CodeForbidden))

	_, err = s.service.SubmitArea(requestcontext.WithTime(context.Background(), s.t0), areaInput("a1"))
	s.True(dErrors.HasCode(err, dErrors.CodeUnauthorized))
}

func (s *ServiceSuite) TestSubmitActivityResolvesArea() {
	_, err := s.service.SubmitArea(s.authorityCtx("0363", s.t0), areaInput("a1"))
	s.Require().NoError(err)

	ctx := s.platformCtx("platform01", s.t0.Add(time.Hour))
	activity, err := s.service.SubmitActivity(ctx, activityInput("act-1", "a1"))
	s.Require().NoError(err)
	s.Equal("act-1", string(activity.ActivityID))

	page, err := s.service.ListActivities(ctx, ActivityQuery{})
	s.Require().NoError(err)
	s.Require().Len(page.Items, 1)
	s.Equal("a1", string(page.Items[0].AreaID))
	s.Equal("0363", string(page.Items[0].AuthorityID))
	s.Equal("platform01", string(page.Items[0].PlatformID))
}

func (s *ServiceSuite) TestSubmitActivityUnknownArea() {
	ctx := s.platformCtx("platform01", s.t0)
	_, err := s.service.SubmitActivity(ctx, activityInput("act-1", "nowhere"))
	s.True(dErrors.HasCode(err, dErrors.CodeBusinessRule))
}

func (s *ServiceSuite) TestSubmitActivityAgainstDeactivatedArea() {
	_, err := s.service.SubmitArea(s.authorityCtx("0363", s.t0), areaInput("a1"))
	s.Require().NoError(err)
	s.Require().NoError(s.service.DeactivateArea(s.authorityCtx("0363", s.t0.Add(time.Hour)), "a1"))

	ctx := s.platformCtx("platform01", s.t0.Add(2*time.Hour))
	_, err = s.service.SubmitActivity(ctx, activityInput("act-1", "a1"))
	s.True(dErrors.HasCode(err, dErrors.CodeBusinessRule))
}

func (s *ServiceSuite) TestActivityPinsAreaVersionAtSubmission() {
	_, err := s.service.SubmitArea(s.authorityCtx("0363", s.t0), areaInput("a1"))
	s.Require().NoError(err)

	platCtx := s.platformCtx("platform01", s.t0.Add(time.Hour))
	_, err = s.service.SubmitActivity(platCtx, activityInput("act-1", "a1"))
	s.Require().NoError(err)

	// Deactivating the area afterwards does not drop the activity.
	s.Require().NoError(s.service.DeactivateArea(s.authorityCtx("0363", s.t0.Add(2*time.Hour)), "a1"))

	page, err := s.service.ListActivities(s.platformCtx("platform01", s.t0.Add(3*time.Hour)), ActivityQuery{})
	s.Require().NoError(err)
	s.Len(page.Items, 1)
}

func (s *ServiceSuite) TestSharedAreaIDResolvesNewestAuthority() {
	_, err := s.service.SubmitArea(s.authorityCtx("0363", s.t0), areaInput("park"))
	s.Require().NoError(err)
	_, err = s.service.SubmitArea(s.authorityCtx("0599", s.t0.Add(time.Hour)), areaInput("park"))
	s.Require().NoError(err)

	ctx := s.platformCtx("platform01", s.t0.Add(2*time.Hour))
	_, err = s.service.SubmitActivity(ctx, activityInput("act-1", "park"))
	s.Require().NoError(err)

	page, err := s.service.ListActivities(ctx, ActivityQuery{})
	s.Require().NoError(err)
	s.Require().Len(page.Items, 1)
	s.Equal("0599", string(page.Items[0].AuthorityID), "newest authority's chain wins")
}

func (s *ServiceSuite) TestAuthorityListsActivitiesInItsAreas() {
	_, err := s.service.SubmitArea(s.authorityCtx("0363", s.t0), areaInput("a1"))
	s.Require().NoError(err)
	other := areaInput("b1")
	_, err = s.service.SubmitArea(s.authorityCtx("0599", s.t0), other)
	s.Require().NoError(err)

	platCtx := s.platformCtx("platform01", s.t0.Add(time.Hour))
	_, err = s.service.SubmitActivity(platCtx, activityInput("act-1", "a1"))
	s.Require().NoError(err)
	_, err = s.service.SubmitActivity(platCtx, activityInput("act-2", "b1"))
	s.Require().NoError(err)

	page, err := s.service.ListActivities(s.authorityCtx("0363", s.t0.Add(2*time.Hour)), ActivityQuery{})
	s.Require().NoError(err)
	s.Require().Len(page.Items, 1)
	s.Equal("act-1", string(page.Items[0].ActivityID))
}

func (s *ServiceSuite) TestActivityFilters() {
	_, err := s.service.SubmitArea(s.authorityCtx("0363", s.t0), areaInput("a1"))
	s.Require().NoError(err)

	platCtx := s.platformCtx("platform01", s.t0.Add(time.Hour))
	_, err = s.service.SubmitActivity(platCtx, activityInput("act-1", "a1"))
	s.Require().NoError(err)
	second := activityInput("act-2", "a1")
	second.RegistrationNumber = "OTHER42"
	_, err = s.service.SubmitActivity(platCtx, second)
	s.Require().NoError(err)

	page, err := s.service.ListActivities(platCtx, ActivityQuery{RegistrationNumber: "OTHER42"})
	s.Require().NoError(err)
	s.Require().Len(page.Items, 1)
	s.Equal("act-2", string(page.Items[0].ActivityID))
	s.Equal(1, page.Total)
}

func (s *ServiceSuite) TestCountsFollowListScoping() {
	_, err := s.service.SubmitArea(s.authorityCtx("0363", s.t0), areaInput("a1"))
	s.Require().NoError(err)
	_, err = s.service.SubmitArea(s.authorityCtx("0599", s.t0), areaInput("b1"))
	s.Require().NoError(err)

	own, err := s.service.CountAreas(s.authorityCtx("0363", s.t0.Add(time.Hour)))
	s.Require().NoError(err)
	s.Equal(1, own)

	all, err := s.service.CountAreas(s.platformCtx("platform01", s.t0.Add(time.Hour)))
	s.Require().NoError(err)
	s.Equal(2, all)

	platCtx := s.platformCtx("platform01", s.t0.Add(2*time.Hour))
	_, err = s.service.SubmitActivity(platCtx, activityInput("act-1", "a1"))
	s.Require().NoError(err)
	second := activityInput("act-2", "b1")
	second.RegistrationNumber = "OTHER42"
	_, err = s.service.SubmitActivity(platCtx, second)
	s.Require().NoError(err)

	total, err := s.service.CountActivities(platCtx, ActivityQuery{})
	s.Require().NoError(err)
	s.Equal(2, total)

	filtered, err := s.service.CountActivities(platCtx, ActivityQuery{RegistrationNumber: "OTHER42"})
	s.Require().NoError(err)
	s.Equal(1, filtered)

	scoped, err := s.service.CountActivities(s.authorityCtx("0363", s.t0.Add(3*time.Hour)), ActivityQuery{})
	s.Require().NoError(err)
	s.Equal(1, scoped)
}

func (s *ServiceSuite) TestGetAreaFileCachesBlob() {
	_, err := s.service.SubmitArea(s.authorityCtx("0363", s.t0), areaInput("a1"))
	s.Require().NoError(err)

	ctx := s.platformCtx("platform01", s.t0.Add(time.Hour))
	file, err := s.service.GetAreaFile(ctx, "a1")
	s.Require().NoError(err)
	s.Equal("shapes.zip", file.Filename)
	s.Equal([]byte("geodata"), file.Data)

	blob, err := s.blobs.Get(context.Background(), "a1")
	s.Require().NoError(err)
	s.Equal([]byte("geodata"), blob.Data)
}

func (s *ServiceSuite) TestSubmitInvalidatesCachedBlob() {
	_, err := s.service.SubmitArea(s.authorityCtx("0363", s.t0), areaInput("a1"))
	s.Require().NoError(err)
	_, err = s.service.GetAreaFile(s.platformCtx("platform01", s.t0.Add(time.Hour)), "a1")
	s.Require().NoError(err)

	fresh := areaInput("a1")
	fresh.FileData = []byte("newer geodata")
	_, err = s.service.SubmitArea(s.authorityCtx("0363", s.t0.Add(2*time.Hour)), fresh)
	s.Require().NoError(err)

	file, err := s.service.GetAreaFile(s.platformCtx("platform01", s.t0.Add(3*time.Hour)), "a1")
	s.Require().NoError(err)
	s.Equal([]byte("newer geodata"), file.Data)
}

func (s *ServiceSuite) TestGetAreaFileUnknownArea() {
	_, err := s.service.GetAreaFile(s.platformCtx("platform01", s.t0), "missing")
	s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
}

func (s *ServiceSuite) TestLifecycleEvents() {
	_, err := s.service.SubmitArea(s.authorityCtx("0363", s.t0), areaInput("a1"))
	s.Require().NoError(err)
	s.Require().NoError(s.service.DeactivateArea(s.authorityCtx("0363", s.t0.Add(time.Hour)), "a1"))

	got := s.publisher.all()
	s.Require().Len(got, 2)
	s.Equal(events.ActionSubmitted, got[0].Action)
	s.Equal("a1", string(got[0].FunctionalID))
	s.Equal("0363", string(got[0].OwnerID))
	s.Equal(events.ActionDeactivated, got[1].Action)
	s.True(got[1].OccurredAt.Equal(s.t0.Add(time.Hour)))
}

func (s *ServiceSuite) TestGeneratedIDsStartNewChains() {
	input := areaInput("")
	first, err := s.service.SubmitArea(s.authorityCtx("0363", s.t0), input)
	s.Require().NoError(err)
	second, err := s.service.SubmitArea(s.authorityCtx("0363", s.t0.Add(time.Second)), input)
	s.Require().NoError(err)
	s.NotEqual(first.AreaID, second.AreaID)
}

func (s *ServiceSuite) TestPagination() {
	for i := 0; i < 5; i++ {
		_, err := s.service.SubmitArea(
			s.authorityCtx("0363", s.t0.Add(time.Duration(i)*time.Minute)),
			areaInput(string(rune('a'+i))+"-area"))
		s.Require().NoError(err)
	}

	ctx := s.authorityCtx("0363", s.t0.Add(time.Hour))
	page, err := s.service.ListAreas(ctx, Page{Offset: 0, Limit: 2})
	s.Require().NoError(err)
	s.Len(page.Items, 2)
	s.Equal(5, page.Total)

	last, err := s.service.ListAreas(ctx, Page{Offset: 4, Limit: 2})
	s.Require().NoError(err)
	s.Len(last.Items, 1)

	_, err = s.service.ListAreas(ctx, Page{Offset: -1})
	s.True(dErrors.HasCode(err, dErrors.CodeValidationSyntax))
}
