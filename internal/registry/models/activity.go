package models

import (
	"time"

	"strdep/pkg/domain"
	dErrors "strdep/pkg/domain-errors"
)

const (
	// MaxURLLen bounds the advertisement URL.
	MaxURLLen = 128
	// MaxRegistrationNumberLen bounds the host registration number.
	MaxRegistrationNumberLen = 32
	// MaxGuests bounds numberOfGuests and the countryOfGuests list length.
	MaxGuests = 1024
)

// Activity is one version row of a rental activity submitted by a platform.
// AreaRef points at the area version that was resolved when the activity was
// submitted; a later area deactivation does not retroactively invalidate it.
type Activity struct {
	ID                 domain.RecordID     `json:"-"`
	ActivityID         domain.FunctionalID `json:"activityId"`
	Name               string              `json:"activityName,omitempty"`
	PlatformRef        domain.RecordID     `json:"-"`
	AreaRef            domain.RecordID     `json:"-"`
	URL                string              `json:"url,omitempty"`
	RegistrationNumber string              `json:"registrationNumber"`
	Address            Address             `json:"address"`
	NumberOfGuests     *int                `json:"numberOfGuests,omitempty"`
	CountryOfGuests    []string            `json:"countryOfGuests,omitempty"`
	Temporal           Temporal            `json:"temporal"`
	CreatedAt          time.Time           `json:"createdAt"`
	EndedAt            *time.Time          `json:"endedAt,omitempty"`
}

// NewActivity builds a new activity version row. Address and Temporal must
// already be validated composites; the references must be resolved surrogate
// ids.
func NewActivity(
	activityID domain.FunctionalID,
	name string,
	platformRef, areaRef domain.RecordID,
	url, registrationNumber string,
	address Address,
	numberOfGuests *int,
	countryOfGuests []string,
	temporal Temporal,
	now time.Time,
) (*Activity, error) {
	if activityID.IsZero() {
		return nil, dErrors.New(dErrors.CodeValidationSyntax, "activity id is required")
	}
	if platformRef.IsZero() {
		return nil, dErrors.New(dErrors.CodeValidationSyntax, "owning platform is required")
	}
	if areaRef.IsZero() {
		return nil, dErrors.New(dErrors.CodeValidationSyntax, "area reference is required")
	}
	if len(name) > MaxNameLen {
		return nil, dErrors.Newf(dErrors.CodeValidationSyntax, "activity name exceeds %d characters", MaxNameLen)
	}
	if len(url) > MaxURLLen {
		return nil, dErrors.Newf(dErrors.CodeValidationSyntax, "url exceeds %d characters", MaxURLLen)
	}
	if registrationNumber == "" {
		return nil, dErrors.New(dErrors.CodeValidationSyntax, "registration number is required")
	}
	if len(registrationNumber) > MaxRegistrationNumberLen {
		return nil, dErrors.Newf(dErrors.CodeValidationSyntax, "registration number exceeds %d characters", MaxRegistrationNumberLen)
	}
	if numberOfGuests != nil && (*numberOfGuests < 1 || *numberOfGuests > MaxGuests) {
		return nil, dErrors.Newf(dErrors.CodeValidationSyntax, "number of guests must be between 1 and %d", MaxGuests)
	}
	if countryOfGuests != nil {
		if len(countryOfGuests) < 1 || len(countryOfGuests) > MaxGuests {
			return nil, dErrors.Newf(dErrors.CodeValidationSyntax, "country of guests must list between 1 and %d entries", MaxGuests)
		}
		for _, c := range countryOfGuests {
			if c == "" || len(c) > 32 {
				return nil, dErrors.New(dErrors.CodeValidationSyntax, "country of guests entries must be 1 to 32 characters")
			}
		}
	}
	return &Activity{
		ActivityID:         activityID,
		Name:               name,
		PlatformRef:        platformRef,
		AreaRef:            areaRef,
		URL:                url,
		RegistrationNumber: registrationNumber,
		Address:            address,
		NumberOfGuests:     numberOfGuests,
		CountryOfGuests:    countryOfGuests,
		Temporal:           temporal,
		CreatedAt:          now.UTC(),
	}, nil
}

// IsCurrent reports whether this version is the open head of its chain.
func (a *Activity) IsCurrent() bool { return a.EndedAt == nil }

// ActivityListing is an activity version joined with its platform, area and
// owning authority, the shape the query service returns.
type ActivityListing struct {
	ActivityID         domain.FunctionalID `json:"activityId"`
	Name               string              `json:"activityName,omitempty"`
	PlatformID         domain.FunctionalID `json:"platformId"`
	PlatformName       string              `json:"platformName,omitempty"`
	AreaID             domain.FunctionalID `json:"areaId"`
	AuthorityID        domain.FunctionalID `json:"competentAuthorityId"`
	AuthorityName      string              `json:"competentAuthorityName,omitempty"`
	URL                string              `json:"url,omitempty"`
	RegistrationNumber string              `json:"registrationNumber"`
	Address            Address             `json:"address"`
	NumberOfGuests     *int                `json:"numberOfGuests,omitempty"`
	CountryOfGuests    []string            `json:"countryOfGuests,omitempty"`
	Temporal           Temporal            `json:"temporal"`
	CreatedAt          time.Time           `json:"createdAt"`
}
