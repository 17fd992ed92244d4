// Package models holds the records kept by the reference user store.
package models

import (
	"strings"
	"time"

	"userdir/pkg/contracts/userapi"
)

// User is a stored record. DateOfBirth is kept in the store's wire layout.
type User struct {
	ID           string
	FullName     string
	MobileNumber string
	EmailAddress string
	DateOfBirth  string
	AddressLine1 string
	AddressLine2 string
	City         string
	PinCode      string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// EmailKey is the form used for the uniqueness check.
func (u *User) EmailKey() string {
	return NormalizeEmail(u.EmailAddress)
}

// NormalizeEmail lower-cases and trims an address for comparison.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// ToAPI renders u in the wire shape.
func (u *User) ToAPI() userapi.User {
	return userapi.User{
		ID:           u.ID,
		FullName:     u.FullName,
		MobileNumber: u.MobileNumber,
		EmailAddress: u.EmailAddress,
		DateOfBirth:  u.DateOfBirth,
		AddressLine1: u.AddressLine1,
		AddressLine2: u.AddressLine2,
		City:         u.City,
		PinCode:      u.PinCode,
		CreatedAt:    u.CreatedAt,
		UpdatedAt:    u.UpdatedAt,
	}
}

// Apply overwrites the fields set in p.
func (u *User) Apply(p userapi.UserPatch) {
	set := func(dst *string, src *string) {
		if src != nil {
			*dst = *src
		}
	}
	set(&u.FullName, p.FullName)
	set(&u.MobileNumber, p.MobileNumber)
	set(&u.EmailAddress, p.EmailAddress)
	set(&u.DateOfBirth, p.DateOfBirth)
	set(&u.AddressLine1, p.AddressLine1)
	set(&u.AddressLine2, p.AddressLine2)
	set(&u.City, p.City)
	set(&u.PinCode, p.PinCode)
}

// FromInput builds an unsaved record from a create body.
func FromInput(in userapi.UserInput) User {
	return User{
		FullName:     in.FullName,
		MobileNumber: in.MobileNumber,
		EmailAddress: in.EmailAddress,
		DateOfBirth:  in.DateOfBirth,
		AddressLine1: in.AddressLine1,
		AddressLine2: in.AddressLine2,
		City:         in.City,
		PinCode:      in.PinCode,
	}
}
