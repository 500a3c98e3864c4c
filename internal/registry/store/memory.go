package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"strdep/internal/registry/models"
	"strdep/pkg/domain"
	"strdep/pkg/platform/sentinel"
)

type ownerKey struct {
	kind    models.OwnerKind
	ownerID domain.FunctionalID
}

type chainKey struct {
	ownerRef     domain.RecordID
	functionalID domain.FunctionalID
}

// InMemory implements Store with mutex-guarded maps. Chains are slices in
// insertion order; the last element is the current version unless it has been
// explicitly deactivated. Rows are cloned on the way in and out so callers
// never alias store state.
type InMemory struct {
	mu         sync.Mutex
	nextID     domain.RecordID
	owners     map[ownerKey][]*models.Owner
	ownersByID map[domain.RecordID]*models.Owner
	areas      map[chainKey][]*models.Area
	areasByID  map[domain.RecordID]*models.Area
	activities map[chainKey][]*models.Activity
}

// NewInMemory creates an empty in-memory store.
func NewInMemory() *InMemory {
	return &InMemory{
		owners:     make(map[ownerKey][]*models.Owner),
		ownersByID: make(map[domain.RecordID]*models.Owner),
		areas:      make(map[chainKey][]*models.Area),
		areasByID:  make(map[domain.RecordID]*models.Area),
		activities: make(map[chainKey][]*models.Activity),
	}
}

func (s *InMemory) next() domain.RecordID {
	s.nextID++
	return s.nextID
}

// -----------------------------------------------------------------------------
// Owners
// -----------------------------------------------------------------------------

func (s *InMemory) FindCurrentOwner(ctx context.Context, kind models.OwnerKind, ownerID domain.FunctionalID) (*models.Owner, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	chain := s.owners[ownerKey{kind, ownerID}]
	if len(chain) == 0 {
		return nil, sentinel.ErrNotFound
	}
	head := chain[len(chain)-1]
	if head.EndedAt != nil {
		return nil, sentinel.ErrNotFound
	}
	return cloneOwner(head), nil
}

func (s *InMemory) CreateOwner(ctx context.Context, owner *models.Owner) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := ownerKey{owner.Kind, owner.OwnerID}
	chain := s.owners[key]
	if len(chain) > 0 {
		if chain[len(chain)-1].EndedAt != nil {
			return sentinel.ErrDeactivated
		}
		// Owners are provisioned once per claim; a live chain means the
		// caller lost a first-use race.
		return sentinel.ErrConflict
	}

	stored := cloneOwner(owner)
	stored.ID = s.next()
	s.owners[key] = append(chain, stored)
	s.ownersByID[stored.ID] = stored
	owner.ID = stored.ID
	return nil
}

func (s *InMemory) OwnerByRecord(ctx context.Context, kind models.OwnerKind, ref domain.RecordID) (*models.Owner, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	o, ok := s.ownersByID[ref]
	if !ok || o.Kind != kind {
		return nil, sentinel.ErrNotFound
	}
	return cloneOwner(o), nil
}

// endOwnerChain marks every version of an owner chain as ended. Only used by
// tests in this package to set up deactivated-owner scenarios; there is no
// public operation that retires owners.
func (s *InMemory) endOwnerChain(kind models.OwnerKind, ownerID domain.FunctionalID, now time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ended := now.UTC()
	for _, v := range s.owners[ownerKey{kind, ownerID}] {
		if v.EndedAt == nil {
			v.EndedAt = &ended
		}
	}
}

// -----------------------------------------------------------------------------
// Areas
// -----------------------------------------------------------------------------

func (s *InMemory) SubmitArea(ctx context.Context, area *models.Area) (*models.Area, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := chainKey{area.AuthorityRef, area.AreaID}
	chain := s.areas[key]
	if len(chain) > 0 {
		head := chain[len(chain)-1]
		if head.EndedAt != nil {
			return nil, sentinel.ErrDeactivated
		}
		for _, v := range chain {
			if v.CreatedAt.Equal(area.CreatedAt) {
				return nil, sentinel.ErrConflict
			}
		}
		ended := area.CreatedAt
		head.EndedAt = &ended
	}

	stored := cloneArea(area)
	stored.ID = s.next()
	s.areas[key] = append(chain, stored)
	s.areasByID[stored.ID] = stored
	return cloneArea(stored), nil
}

func (s *InMemory) DeactivateArea(ctx context.Context, authorityRef domain.RecordID, areaID domain.FunctionalID, now time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	chain := s.areas[chainKey{authorityRef, areaID}]
	if len(chain) == 0 {
		return sentinel.ErrNotFound
	}
	head := chain[len(chain)-1]
	if head.EndedAt != nil {
		return sentinel.ErrNotFound
	}
	ended := now.UTC()
	head.EndedAt = &ended
	return nil
}

func (s *InMemory) ResolveLatestArea(ctx context.Context, areaID domain.FunctionalID) (*models.Area, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var latest *models.Area
	for key, chain := range s.areas {
		if key.functionalID != areaID || len(chain) == 0 {
			continue
		}
		head := chain[len(chain)-1]
		if head.EndedAt != nil {
			continue
		}
		if latest == nil || after(head, latest) {
			latest = head
		}
	}
	if latest == nil {
		return nil, sentinel.ErrNotFound
	}
	return cloneArea(latest), nil
}

func (s *InMemory) AreaByRecord(ctx context.Context, ref domain.RecordID) (*models.Area, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	a, ok := s.areasByID[ref]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return cloneArea(a), nil
}

func (s *InMemory) ListAreas(ctx context.Context, f AreaFilter) ([]*models.AreaListing, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	current := s.currentAreas(f)
	listings := make([]*models.AreaListing, 0, len(current))
	for _, a := range page(current, f.Offset, f.Limit) {
		listing := &models.AreaListing{
			AreaID:    a.AreaID,
			Name:      a.Name,
			Filename:  a.Filename,
			CreatedAt: a.CreatedAt,
		}
		if owner, ok := s.ownersByID[a.AuthorityRef]; ok {
			listing.AuthorityID = owner.OwnerID
			listing.AuthorityName = owner.Name
		}
		listings = append(listings, listing)
	}
	return listings, nil
}

func (s *InMemory) CountAreas(ctx context.Context, f AreaFilter) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.currentAreas(f)), nil
}

func (s *InMemory) AreaVersions(ctx context.Context, authorityRef domain.RecordID, areaID domain.FunctionalID) ([]*models.Area, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	chain := s.areas[chainKey{authorityRef, areaID}]
	out := make([]*models.Area, 0, len(chain))
	for _, v := range chain {
		out = append(out, cloneArea(v))
	}
	return out, nil
}

func (s *InMemory) currentAreas(f AreaFilter) []*models.Area {
	var current []*models.Area
	for _, chain := range s.areas {
		if len(chain) == 0 {
			continue
		}
		head := chain[len(chain)-1]
		if head.EndedAt != nil {
			continue
		}
		if !f.AuthorityRef.IsZero() && head.AuthorityRef != f.AuthorityRef {
			continue
		}
		current = append(current, head)
	}
	sortAreasNewestFirst(current)
	return current
}

// -----------------------------------------------------------------------------
// Activities
// -----------------------------------------------------------------------------

func (s *InMemory) SubmitActivity(ctx context.Context, activity *models.Activity) (*models.Activity, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := chainKey{activity.PlatformRef, activity.ActivityID}
	chain := s.activities[key]
	if len(chain) > 0 {
		head := chain[len(chain)-1]
		if head.EndedAt != nil {
			return nil, sentinel.ErrDeactivated
		}
		for _, v := range chain {
			if v.CreatedAt.Equal(activity.CreatedAt) {
				return nil, sentinel.ErrConflict
			}
		}
		ended := activity.CreatedAt
		head.EndedAt = &ended
	}

	stored := cloneActivity(activity)
	stored.ID = s.next()
	s.activities[key] = append(chain, stored)
	return cloneActivity(stored), nil
}

func (s *InMemory) DeactivateActivity(ctx context.Context, platformRef domain.RecordID, activityID domain.FunctionalID, now time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	chain := s.activities[chainKey{platformRef, activityID}]
	if len(chain) == 0 {
		return sentinel.ErrNotFound
	}
	head := chain[len(chain)-1]
	if head.EndedAt != nil {
		return sentinel.ErrNotFound
	}
	ended := now.UTC()
	head.EndedAt = &ended
	return nil
}

func (s *InMemory) ListActivities(ctx context.Context, f ActivityFilter) ([]*models.ActivityListing, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	current := s.currentActivities(f)
	listings := make([]*models.ActivityListing, 0, len(current))
	for _, a := range page(current, f.Offset, f.Limit) {
		listings = append(listings, s.activityListing(a))
	}
	return listings, nil
}

func (s *InMemory) CountActivities(ctx context.Context, f ActivityFilter) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.currentActivities(f)), nil
}

func (s *InMemory) ActivityVersions(ctx context.Context, platformRef domain.RecordID, activityID domain.FunctionalID) ([]*models.Activity, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	chain := s.activities[chainKey{platformRef, activityID}]
	out := make([]*models.Activity, 0, len(chain))
	for _, v := range chain {
		out = append(out, cloneActivity(v))
	}
	return out, nil
}

func (s *InMemory) currentActivities(f ActivityFilter) []*models.Activity {
	var current []*models.Activity
	for _, chain := range s.activities {
		if len(chain) == 0 {
			continue
		}
		head := chain[len(chain)-1]
		if head.EndedAt != nil {
			continue
		}
		if !s.matchActivity(head, f) {
			continue
		}
		current = append(current, head)
	}
	sortActivitiesNewestFirst(current)
	return current
}

func (s *InMemory) matchActivity(a *models.Activity, f ActivityFilter) bool {
	if !f.PlatformRef.IsZero() && a.PlatformRef != f.PlatformRef {
		return false
	}
	if f.URL != "" && a.URL != f.URL {
		return false
	}
	if f.RegistrationNumber != "" && a.RegistrationNumber != f.RegistrationNumber {
		return false
	}
	if f.PostalCode != "" && a.Address.PostalCode != f.PostalCode {
		return false
	}
	if !f.AreaID.IsZero() || !f.AuthorityRef.IsZero() {
		area, ok := s.areasByID[a.AreaRef]
		if !ok {
			return false
		}
		if !f.AreaID.IsZero() && area.AreaID != f.AreaID {
			return false
		}
		if !f.AuthorityRef.IsZero() && area.AuthorityRef != f.AuthorityRef {
			return false
		}
	}
	return true
}

func (s *InMemory) activityListing(a *models.Activity) *models.ActivityListing {
	listing := &models.ActivityListing{
		ActivityID:         a.ActivityID,
		Name:               a.Name,
		URL:                a.URL,
		RegistrationNumber: a.RegistrationNumber,
		Address:            a.Address,
		NumberOfGuests:     cloneIntPtr(a.NumberOfGuests),
		CountryOfGuests:    append([]string(nil), a.CountryOfGuests...),
		Temporal:           a.Temporal,
		CreatedAt:          a.CreatedAt,
	}
	if platform, ok := s.ownersByID[a.PlatformRef]; ok {
		listing.PlatformID = platform.OwnerID
		listing.PlatformName = platform.Name
	}
	if area, ok := s.areasByID[a.AreaRef]; ok {
		listing.AreaID = area.AreaID
		if authority, ok := s.ownersByID[area.AuthorityRef]; ok {
			listing.AuthorityID = authority.OwnerID
			listing.AuthorityName = authority.Name
		}
	}
	return listing
}

// -----------------------------------------------------------------------------
// Helpers
// -----------------------------------------------------------------------------

// newerThan orders version rows by creation time with the surrogate id as a
// deterministic tie-break, newest first.
func newerThan(aCreated time.Time, aID domain.RecordID, bCreated time.Time, bID domain.RecordID) bool {
	if !aCreated.Equal(bCreated) {
		return aCreated.After(bCreated)
	}
	return aID > bID
}

func after(a, b *models.Area) bool {
	return newerThan(a.CreatedAt, a.ID, b.CreatedAt, b.ID)
}

func sortAreasNewestFirst(rows []*models.Area) {
	sort.Slice(rows, func(i, j int) bool { return after(rows[i], rows[j]) })
}

func sortActivitiesNewestFirst(rows []*models.Activity) {
	sort.Slice(rows, func(i, j int) bool {
		return newerThan(rows[i].CreatedAt, rows[i].ID, rows[j].CreatedAt, rows[j].ID)
	})
}

func page[T any](rows []T, offset, limit int) []T {
	if offset >= len(rows) {
		return nil
	}
	rows = rows[offset:]
	if limit > 0 && limit < len(rows) {
		rows = rows[:limit]
	}
	return rows
}

func cloneOwner(o *models.Owner) *models.Owner {
	c := *o
	c.EndedAt = cloneTimePtr(o.EndedAt)
	return &c
}

func cloneArea(a *models.Area) *models.Area {
	c := *a
	c.EndedAt = cloneTimePtr(a.EndedAt)
	c.FileData = append([]byte(nil), a.FileData...)
	return &c
}

func cloneActivity(a *models.Activity) *models.Activity {
	c := *a
	c.EndedAt = cloneTimePtr(a.EndedAt)
	c.NumberOfGuests = cloneIntPtr(a.NumberOfGuests)
	c.CountryOfGuests = append([]string(nil), a.CountryOfGuests...)
	return &c
}

func cloneTimePtr(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	c := *t
	return &c
}

func cloneIntPtr(n *int) *int {
	if n == nil {
		return nil
	}
	c := *n
	return &c
}
