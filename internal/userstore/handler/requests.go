package handler

import (
	"unicode/utf8"

	"userdir/internal/directory/models"
	"userdir/pkg/contracts/userapi"
	dErrors "userdir/pkg/domain-errors"
)

// maxFieldLength bounds every text field before it reaches the service.
const maxFieldLength = 256

type RegisterRequest struct {
	userapi.UserInput
}

// Validate only checks sizes; the service applies the form rules.
func (r *RegisterRequest) Validate() error {
	in := r.UserInput
	return checkLengths(map[models.Field]*string{
		models.FieldFullName:     &in.FullName,
		models.FieldMobileNumber: &in.MobileNumber,
		models.FieldEmailAddress: &in.EmailAddress,
		models.FieldDateOfBirth:  &in.DateOfBirth,
		models.FieldAddressLine1: &in.AddressLine1,
		models.FieldAddressLine2: &in.AddressLine2,
		models.FieldCity:         &in.City,
		models.FieldPinCode:      &in.PinCode,
	})
}

type UpdateRequest struct {
	userapi.UserPatch
}

func (r *UpdateRequest) Validate() error {
	p := r.UserPatch
	fields := map[models.Field]*string{
		models.FieldFullName:     p.FullName,
		models.FieldMobileNumber: p.MobileNumber,
		models.FieldEmailAddress: p.EmailAddress,
		models.FieldDateOfBirth:  p.DateOfBirth,
		models.FieldAddressLine1: p.AddressLine1,
		models.FieldAddressLine2: p.AddressLine2,
		models.FieldCity:         p.City,
		models.FieldPinCode:      p.PinCode,
	}
	empty := true
	for _, v := range fields {
		if v != nil {
			empty = false
			break
		}
	}
	if empty {
		return dErrors.New(dErrors.CodeBadRequest, "No fields to update")
	}
	return checkLengths(fields)
}

func checkLengths(fields map[models.Field]*string) error {
	var details []dErrors.FieldDetail
	for _, f := range models.Fields {
		v := fields[f]
		if v != nil && utf8.RuneCountInString(*v) > maxFieldLength {
			details = append(details, dErrors.FieldDetail{Field: string(f), Message: "Value is too long"})
		}
	}
	if len(details) > 0 {
		return dErrors.New(dErrors.CodeValidation, "Validation failed").WithDetails(details...)
	}
	return nil
}
