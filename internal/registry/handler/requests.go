package handler

import (
	"time"

	"strdep/internal/registry/service"
)

// submitAreaRequest is the wire shape of an area submission. The shapefile
// travels base64-encoded in the JSON body.
type submitAreaRequest struct {
	AreaID   string `json:"areaId" validate:"omitempty,max=64"`
	Name     string `json:"areaName" validate:"omitempty,max=64"`
	Filename string `json:"filename" validate:"required,max=64"`
	File     []byte `json:"file" validate:"required,max=1048576"`
}

func (r submitAreaRequest) toInput() service.SubmitAreaInput {
	return service.SubmitAreaInput{
		AreaID:   r.AreaID,
		Name:     r.Name,
		Filename: r.Filename,
		FileData: r.File,
	}
}

type addressRequest struct {
	Street     string `json:"street" validate:"required,max=64"`
	Number     int    `json:"number" validate:"required,min=1"`
	Letter     string `json:"letter" validate:"omitempty,len=1"`
	Addition   string `json:"addition" validate:"omitempty,max=10"`
	PostalCode string `json:"postalCode" validate:"required,alphanum,max=8"`
	City       string `json:"city" validate:"required,max=64"`
}

type temporalRequest struct {
	Start time.Time `json:"startDateTime" validate:"required"`
	End   time.Time `json:"endDateTime" validate:"required"`
}

type submitActivityRequest struct {
	ActivityID         string          `json:"activityId" validate:"omitempty,max=64"`
	Name               string          `json:"activityName" validate:"omitempty,max=64"`
	AreaID             string          `json:"areaId" validate:"required,max=64"`
	URL                string          `json:"url" validate:"omitempty,url,max=128"`
	RegistrationNumber string          `json:"registrationNumber" validate:"required,max=32"`
	Address            addressRequest  `json:"address" validate:"required"`
	NumberOfGuests     *int            `json:"numberOfGuests" validate:"omitempty,min=1,max=1024"`
	CountryOfGuests    []string        `json:"countryOfGuests" validate:"omitempty,min=1,max=1024,dive,min=1,max=32"`
	Temporal           temporalRequest `json:"temporal" validate:"required"`
}

func (r submitActivityRequest) toInput() service.SubmitActivityInput {
	return service.SubmitActivityInput{
		ActivityID:         r.ActivityID,
		Name:               r.Name,
		AreaID:             r.AreaID,
		URL:                r.URL,
		RegistrationNumber: r.RegistrationNumber,
		Address: service.AddressInput{
			Street:     r.Address.Street,
			Number:     r.Address.Number,
			Letter:     r.Address.Letter,
			Addition:   r.Address.Addition,
			PostalCode: r.Address.PostalCode,
			City:       r.Address.City,
		},
		NumberOfGuests:  r.NumberOfGuests,
		CountryOfGuests: r.CountryOfGuests,
		Start:           r.Temporal.Start,
		End:             r.Temporal.End,
	}
}
