// Package validation checks a user draft field by field before it may be submitted.
package validation

import (
	"errors"
	"regexp"
	"strings"
	"unicode/utf8"

	"userdir/internal/directory/dateformat"
	"userdir/internal/directory/models"
)

const (
	MsgFullNameRequired = "Full Name is required"
	MsgFullNameTooShort = "Full Name must be at least 2 characters long"
	MsgMobileRequired   = "Mobile number is required"
	MsgMobileDigits     = "Mobile number must be 10 digits"
	MsgEmailRequired    = "Email is required"
	MsgEmailInvalid     = "Please enter a valid email address"
	MsgDOBRequired      = "Date of birth is required"
	MsgDOBFormat        = "Please enter date in DD/MM/YYYY format"
	MsgDOBInvalid       = "Please enter a valid date"
	MsgAddressRequired  = "Address Line 1 is required"
	MsgCityRequired     = "City is required"
	MsgPinRequired      = "Pin code is required"
	MsgPinDigits        = "Pin code must be 6 digits"
)

const minFullNameLength = 2

var (
	mobileRe = regexp.MustCompile(`^[0-9]{10}$`)
	emailRe  = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)
	pinRe    = regexp.MustCompile(`^[0-9]{6}$`)
)

type rule func(models.Draft) (string, bool)

var rules = map[models.Field]rule{
	models.FieldFullName:     checkFullName,
	models.FieldMobileNumber: checkMobile,
	models.FieldEmailAddress: checkEmail,
	models.FieldDateOfBirth:  checkDateOfBirth,
	models.FieldAddressLine1: required(models.FieldAddressLine1, MsgAddressRequired),
	models.FieldCity:         required(models.FieldCity, MsgCityRequired),
	models.FieldPinCode:      checkPin,
}

// Validate runs every rule and collects one message per failing field.
func Validate(d models.Draft) models.ValidationErrors {
	errs := models.ValidationErrors{}
	for field, check := range rules {
		if msg, bad := check(d); bad {
			errs[field] = msg
		}
	}
	return errs
}

// ValidateField runs the rule for a single field. Fields without a rule are valid.
func ValidateField(f models.Field, d models.Draft) (string, bool) {
	check, ok := rules[f]
	if !ok {
		return "", false
	}
	return check(d)
}

func checkFullName(d models.Draft) (string, bool) {
	name := strings.TrimSpace(d.FullName)
	if name == "" {
		return MsgFullNameRequired, true
	}
	if utf8.RuneCountInString(name) < minFullNameLength {
		return MsgFullNameTooShort, true
	}
	return "", false
}

// Mobile, email and pin are checked untrimmed: surrounding spaces are a format error.
func checkMobile(d models.Draft) (string, bool) {
	if d.MobileNumber == "" {
		return MsgMobileRequired, true
	}
	if !mobileRe.MatchString(d.MobileNumber) {
		return MsgMobileDigits, true
	}
	return "", false
}

func checkEmail(d models.Draft) (string, bool) {
	if d.EmailAddress == "" {
		return MsgEmailRequired, true
	}
	if !emailRe.MatchString(d.EmailAddress) {
		return MsgEmailInvalid, true
	}
	return "", false
}

func checkDateOfBirth(d models.Draft) (string, bool) {
	if d.DateOfBirth == "" {
		return MsgDOBRequired, true
	}
	if _, err := dateformat.ParseDisplay(d.DateOfBirth); err != nil {
		if errors.Is(err, dateformat.ErrNotCalendarDate) {
			return MsgDOBInvalid, true
		}
		return MsgDOBFormat, true
	}
	return "", false
}

func checkPin(d models.Draft) (string, bool) {
	if d.PinCode == "" {
		return MsgPinRequired, true
	}
	if !pinRe.MatchString(d.PinCode) {
		return MsgPinDigits, true
	}
	return "", false
}

func required(f models.Field, msg string) rule {
	return func(d models.Draft) (string, bool) {
		if strings.TrimSpace(d.Get(f)) == "" {
			return msg, true
		}
		return "", false
	}
}
