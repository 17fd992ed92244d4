package validation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"userdir/internal/directory/models"
)

func validDraft() models.Draft {
	return models.Draft{
		FullName:     "Jo Doe",
		MobileNumber: "1234567890",
		EmailAddress: "a@b.co",
		DateOfBirth:  "15/06/1990",
		AddressLine1: "1 Main St",
		City:         "Springfield",
		PinCode:      "123456",
	}
}

func TestValidate_AcceptsCompleteDraft(t *testing.T) {
	errs := Validate(validDraft())
	assert.True(t, errs.Empty(), "unexpected errors: %v", errs)
}

func TestValidate_EmptyDraftReportsEveryRequiredField(t *testing.T) {
	errs := Validate(models.Draft{})

	require.Len(t, errs, 7)
	assert.Equal(t, models.ValidationErrors{
		models.FieldFullName:     MsgFullNameRequired,
		models.FieldMobileNumber: MsgMobileRequired,
		models.FieldEmailAddress: MsgEmailRequired,
		models.FieldDateOfBirth:  MsgDOBRequired,
		models.FieldAddressLine1: MsgAddressRequired,
		models.FieldCity:         MsgCityRequired,
		models.FieldPinCode:      MsgPinRequired,
	}, errs)
	_, ok := errs.Get(models.FieldAddressLine2)
	assert.False(t, ok, "address line 2 is optional")
}

func TestValidate_FieldRules(t *testing.T) {
	tests := []struct {
		name  string
		field models.Field
		value string
		want  string
	}{
		{"blank name", models.FieldFullName, "   ", MsgFullNameRequired},
		{"one letter name", models.FieldFullName, " J ", MsgFullNameTooShort},
		{"two rune name", models.FieldFullName, "Ÿo", ""},
		{"short mobile", models.FieldMobileNumber, "12345", MsgMobileDigits},
		{"mobile with separators", models.FieldMobileNumber, "123-456-7890", MsgMobileDigits},
		{"mobile with spaces only", models.FieldMobileNumber, " ", MsgMobileDigits},
		{"eleven digit mobile", models.FieldMobileNumber, "12345678901", MsgMobileDigits},
		{"email without domain dot", models.FieldEmailAddress, "a@b", MsgEmailInvalid},
		{"email with space", models.FieldEmailAddress, "a b@c.de", MsgEmailInvalid},
		{"email without at", models.FieldEmailAddress, "ab.co", MsgEmailInvalid},
		{"iso date", models.FieldDateOfBirth, "1990-06-15", MsgDOBFormat},
		{"month thirteen", models.FieldDateOfBirth, "13/13/2020", MsgDOBFormat},
		{"february thirty first", models.FieldDateOfBirth, "31/02/2020", MsgDOBInvalid},
		{"leap day", models.FieldDateOfBirth, "29/02/2024", ""},
		{"blank address", models.FieldAddressLine1, "\t", MsgAddressRequired},
		{"blank city", models.FieldCity, "  ", MsgCityRequired},
		{"five digit pin", models.FieldPinCode, "12345", MsgPinDigits},
		{"alpha pin", models.FieldPinCode, "12a456", MsgPinDigits},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := validDraft()
			d.Set(tt.field, tt.value)
			errs := Validate(d)

			if tt.want == "" {
				assert.True(t, errs.Empty(), "unexpected errors: %v", errs)
				return
			}
			require.Len(t, errs, 1, "rules are independent: only %s should fail", tt.field)
			msg, ok := errs.Get(tt.field)
			require.True(t, ok)
			assert.Equal(t, tt.want, msg)
		})
	}
}

func TestValidate_IsDeterministic(t *testing.T) {
	d := models.Draft{FullName: "J", PinCode: "1"}
	first := Validate(d)
	for i := 0; i < 10; i++ {
		assert.Equal(t, first, Validate(d))
	}
}

func TestValidateField(t *testing.T) {
	d := validDraft()
	d.City = ""

	msg, bad := ValidateField(models.FieldCity, d)
	assert.True(t, bad)
	assert.Equal(t, MsgCityRequired, msg)

	_, bad = ValidateField(models.FieldFullName, d)
	assert.False(t, bad)

	_, bad = ValidateField(models.FieldAddressLine2, d)
	assert.False(t, bad)
}

func TestValidationErrors_FieldsInFormOrder(t *testing.T) {
	errs := Validate(models.Draft{})
	assert.Equal(t, []models.Field{
		models.FieldFullName,
		models.FieldMobileNumber,
		models.FieldEmailAddress,
		models.FieldDateOfBirth,
		models.FieldAddressLine1,
		models.FieldCity,
		models.FieldPinCode,
	}, errs.Fields())
}
