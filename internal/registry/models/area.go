package models

import (
	"time"

	"strdep/pkg/domain"
	dErrors "strdep/pkg/domain-errors"
)

const (
	// MaxNameLen bounds every human-readable name and filename.
	MaxNameLen = 64
	// MaxFileSize is the shapefile blob ceiling (1 MiB).
	MaxFileSize = 1 << 20
)

// Area is one version row of a regulated geographic area. The shapefile blob
// is opaque to the registry; it is stored and returned unmodified.
type Area struct {
	ID           domain.RecordID     `json:"-"`
	AreaID       domain.FunctionalID `json:"areaId"`
	Name         string              `json:"areaName,omitempty"`
	AuthorityRef domain.RecordID     `json:"-"`
	Filename     string              `json:"filename"`
	FileData     []byte              `json:"-"`
	CreatedAt    time.Time           `json:"createdAt"`
	EndedAt      *time.Time          `json:"endedAt,omitempty"`
}

// NewArea builds a new area version row owned by the given authority.
// The functional id must already be parsed or generated by the caller.
func NewArea(areaID domain.FunctionalID, name string, authorityRef domain.RecordID, filename string, fileData []byte, now time.Time) (*Area, error) {
	if areaID.IsZero() {
		return nil, dErrors.New(dErrors.CodeValidationSyntax, "area id is required")
	}
	if authorityRef.IsZero() {
		return nil, dErrors.New(dErrors.CodeValidationSyntax, "owning authority is required")
	}
	if len(name) > MaxNameLen {
		return nil, dErrors.Newf(dErrors.CodeValidationSyntax, "area name exceeds %d characters", MaxNameLen)
	}
	if filename == "" {
		return nil, dErrors.New(dErrors.CodeValidationSyntax, "filename is required")
	}
	if len(filename) > MaxNameLen {
		return nil, dErrors.Newf(dErrors.CodeValidationSyntax, "filename exceeds %d characters", MaxNameLen)
	}
	if len(fileData) == 0 {
		return nil, dErrors.New(dErrors.CodeValidationSyntax, "file data is required")
	}
	if len(fileData) > MaxFileSize {
		return nil, dErrors.Newf(dErrors.CodeValidationSyntax, "file data exceeds %d bytes", MaxFileSize)
	}
	return &Area{
		AreaID:       areaID,
		Name:         name,
		AuthorityRef: authorityRef,
		Filename:     filename,
		FileData:     fileData,
		CreatedAt:    now.UTC(),
	}, nil
}

// IsCurrent reports whether this version is the open head of its chain.
func (a *Area) IsCurrent() bool { return a.EndedAt == nil }

// AreaListing is an area version joined with its owning authority, the shape
// the query service returns. The blob is deliberately absent; it is fetched
// through the file endpoint only.
type AreaListing struct {
	AreaID        domain.FunctionalID `json:"areaId"`
	Name          string              `json:"areaName,omitempty"`
	AuthorityID   domain.FunctionalID `json:"competentAuthorityId"`
	AuthorityName string              `json:"competentAuthorityName,omitempty"`
	Filename      string              `json:"filename"`
	CreatedAt     time.Time           `json:"createdAt"`
}
