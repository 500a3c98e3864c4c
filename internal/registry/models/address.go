package models

import (
	dErrors "strdep/pkg/domain-errors"
)

// Address is a composite value object embedded in Activity. It has no
// independent lifecycle and no surrogate id.
type Address struct {
	Street     string `json:"street"`
	Number     int    `json:"number"`
	Letter     string `json:"letter,omitempty"`
	Addition   string `json:"addition,omitempty"`
	PostalCode string `json:"postalCode"`
	City       string `json:"city"`
}

// NewAddress validates and builds an address composite.
// Postal codes are alphanumeric without spaces, at most 8 characters.
func NewAddress(street string, number int, letter, addition, postalCode, city string) (Address, error) {
	switch {
	case street == "":
		return Address{}, dErrors.New(dErrors.CodeValidationSyntax, "address street is required")
	case len(street) > MaxNameLen:
		return Address{}, dErrors.Newf(dErrors.CodeValidationSyntax, "address street exceeds %d characters", MaxNameLen)
	case number < 1:
		return Address{}, dErrors.New(dErrors.CodeValidationSyntax, "address number must be at least 1")
	case len(letter) > 1:
		return Address{}, dErrors.New(dErrors.CodeValidationSyntax, "address letter must be a single character")
	case len(addition) > 10:
		return Address{}, dErrors.New(dErrors.CodeValidationSyntax, "address addition exceeds 10 characters")
	case city == "":
		return Address{}, dErrors.New(dErrors.CodeValidationSyntax, "address city is required")
	case len(city) > MaxNameLen:
		return Address{}, dErrors.Newf(dErrors.CodeValidationSyntax, "address city exceeds %d characters", MaxNameLen)
	}
	if !validPostalCode(postalCode) {
		return Address{}, dErrors.New(dErrors.CodeValidationSyntax, "postal code must be alphanumeric without spaces, at most 8 characters")
	}
	return Address{
		Street:     street,
		Number:     number,
		Letter:     letter,
		Addition:   addition,
		PostalCode: postalCode,
		City:       city,
	}, nil
}

func validPostalCode(pc string) bool {
	if pc == "" || len(pc) > 8 {
		return false
	}
	for _, r := range pc {
		ok := (r >= '0' && r <= '9') || (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z')
		if !ok {
			return false
		}
	}
	return true
}
