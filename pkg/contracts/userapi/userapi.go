// Package userapi is the wire contract of the remote user store.
//
//	GET    /users          -> {success, message, data: {users, total, showing}}
//	POST   /users/register -> {success, message, data: <User>}
//	PUT    /users/{id}     -> {success, message, data: <User>}
//	DELETE /users/{id}     -> {success, message}
//
// Failures use a non-2xx status with {success: false, message, errors}.
package userapi

import (
	"encoding/json"
	"time"
)

const (
	PathUsers    = "/users"
	PathRegister = "/users/register"
)

// UserPath returns the item path for id.
func UserPath(id string) string {
	return PathUsers + "/" + id
}

// User is the store's record shape. DateOfBirth is in the store's wire layout.
type User struct {
	ID           string    `json:"_id"`
	FullName     string    `json:"fullName"`
	MobileNumber string    `json:"mobileNumber"`
	EmailAddress string    `json:"emailAddress"`
	DateOfBirth  string    `json:"dateOfBirth"`
	AddressLine1 string    `json:"addressLine1"`
	AddressLine2 string    `json:"addressLine2,omitempty"`
	City         string    `json:"city"`
	PinCode      string    `json:"pinCode"`
	CreatedAt    time.Time `json:"createdAt,omitzero"`
	UpdatedAt    time.Time `json:"updatedAt,omitzero"`
}

// UserInput is the create body: a record minus identifier and timestamps.
type UserInput struct {
	FullName     string `json:"fullName"`
	MobileNumber string `json:"mobileNumber"`
	EmailAddress string `json:"emailAddress"`
	DateOfBirth  string `json:"dateOfBirth"`
	AddressLine1 string `json:"addressLine1"`
	AddressLine2 string `json:"addressLine2"`
	City         string `json:"city"`
	PinCode      string `json:"pinCode"`
}

// UserPatch is the update body; nil fields are left unchanged by the store.
type UserPatch struct {
	FullName     *string `json:"fullName,omitempty"`
	MobileNumber *string `json:"mobileNumber,omitempty"`
	EmailAddress *string `json:"emailAddress,omitempty"`
	DateOfBirth  *string `json:"dateOfBirth,omitempty"`
	AddressLine1 *string `json:"addressLine1,omitempty"`
	AddressLine2 *string `json:"addressLine2,omitempty"`
	City         *string `json:"city,omitempty"`
	PinCode      *string `json:"pinCode,omitempty"`
}

// PatchFrom builds a patch that sets every field of in.
func PatchFrom(in UserInput) UserPatch {
	return UserPatch{
		FullName:     &in.FullName,
		MobileNumber: &in.MobileNumber,
		EmailAddress: &in.EmailAddress,
		DateOfBirth:  &in.DateOfBirth,
		AddressLine1: &in.AddressLine1,
		AddressLine2: &in.AddressLine2,
		City:         &in.City,
		PinCode:      &in.PinCode,
	}
}

// Envelope wraps every response body.
type Envelope struct {
	Success bool            `json:"success"`
	Message string          `json:"message,omitempty"`
	Data    json.RawMessage `json:"data,omitempty"`
	Errors  json.RawMessage `json:"errors,omitempty"`
}

// ListData is the data payload of GET /users.
type ListData struct {
	Users   []User `json:"users"`
	Total   int    `json:"total"`
	Showing int    `json:"showing"`
}

// FieldError is the object form of an entry in the errors array.
type FieldError struct {
	Field   string `json:"field,omitempty"`
	Message string `json:"message"`
}
