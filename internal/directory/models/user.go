package models

import (
	"sort"
	"time"

	"userdir/internal/directory/dateformat"
)

// UserID is the store-assigned identifier. It never changes once assigned.
type UserID string

// User is a record as held by the client. DateOfBirth is always in display form.
//
// Invariants:
//   - ID is empty until the store has persisted the record
//   - ID is never regenerated by an update
type User struct {
	ID           UserID
	FullName     string
	MobileNumber string
	EmailAddress string
	DateOfBirth  dateformat.DisplayDate
	AddressLine1 string
	AddressLine2 string
	City         string
	PinCode      string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// IsPersisted reports whether the store has assigned an identifier.
func (u User) IsPersisted() bool {
	return u.ID != ""
}

// Draft projects the editable fields of u.
func (u User) Draft() Draft {
	return Draft{
		FullName:     u.FullName,
		MobileNumber: u.MobileNumber,
		EmailAddress: u.EmailAddress,
		DateOfBirth:  string(u.DateOfBirth),
		AddressLine1: u.AddressLine1,
		AddressLine2: u.AddressLine2,
		City:         u.City,
		PinCode:      u.PinCode,
	}
}

// Field names an editable field. Values match the store's JSON keys.
type Field string

const (
	FieldFullName     Field = "fullName"
	FieldMobileNumber Field = "mobileNumber"
	FieldEmailAddress Field = "emailAddress"
	FieldDateOfBirth  Field = "dateOfBirth"
	FieldAddressLine1 Field = "addressLine1"
	FieldAddressLine2 Field = "addressLine2"
	FieldCity         Field = "city"
	FieldPinCode      Field = "pinCode"
)

// Fields lists the editable fields in form order.
var Fields = []Field{
	FieldFullName,
	FieldMobileNumber,
	FieldEmailAddress,
	FieldDateOfBirth,
	FieldAddressLine1,
	FieldAddressLine2,
	FieldCity,
	FieldPinCode,
}

// Draft holds form input exactly as typed; DateOfBirth is expected in display form.
type Draft struct {
	FullName     string
	MobileNumber string
	EmailAddress string
	DateOfBirth  string
	AddressLine1 string
	AddressLine2 string
	City         string
	PinCode      string
}

// Get returns the value of field f.
func (d Draft) Get(f Field) string {
	switch f {
	case FieldFullName:
		return d.FullName
	case FieldMobileNumber:
		return d.MobileNumber
	case FieldEmailAddress:
		return d.EmailAddress
	case FieldDateOfBirth:
		return d.DateOfBirth
	case FieldAddressLine1:
		return d.AddressLine1
	case FieldAddressLine2:
		return d.AddressLine2
	case FieldCity:
		return d.City
	case FieldPinCode:
		return d.PinCode
	}
	return ""
}

// Set assigns value to field f. Unknown fields are ignored.
func (d *Draft) Set(f Field, value string) {
	switch f {
	case FieldFullName:
		d.FullName = value
	case FieldMobileNumber:
		d.MobileNumber = value
	case FieldEmailAddress:
		d.EmailAddress = value
	case FieldDateOfBirth:
		d.DateOfBirth = value
	case FieldAddressLine1:
		d.AddressLine1 = value
	case FieldAddressLine2:
		d.AddressLine2 = value
	case FieldCity:
		d.City = value
	case FieldPinCode:
		d.PinCode = value
	}
}

// ValidationErrors maps a field to its single error message. A missing key
// means the field is valid.
type ValidationErrors map[Field]string

func (v ValidationErrors) Empty() bool {
	return len(v) == 0
}

func (v ValidationErrors) Get(f Field) (string, bool) {
	msg, ok := v[f]
	return msg, ok
}

// Fields returns the invalid fields in form order.
func (v ValidationErrors) Fields() []Field {
	order := make(map[Field]int, len(Fields))
	for i, f := range Fields {
		order[f] = i
	}
	out := make([]Field, 0, len(v))
	for f := range v {
		out = append(out, f)
	}
	sort.Slice(out, func(i, j int) bool {
		oi, iok := order[out[i]]
		oj, jok := order[out[j]]
		if iok != jok {
			return iok
		}
		if oi != oj {
			return oi < oj
		}
		return out[i] < out[j]
	})
	return out
}
