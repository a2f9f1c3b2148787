package validation

import (
	"errors"
	"testing"
)

type sample struct {
	Email    string   `json:"email" validate:"required,email"`
	IDNumber string   `json:"id_number" validate:"required,idnumber"`
	Date     string   `json:"date" validate:"required,datetime=2006-01-02"`
	Start    string   `json:"start_time" validate:"required,datetime=15:04"`
	People   []string `json:"participants" validate:"max=3,dive,idnumber"`
}

func TestStruct(t *testing.T) {
	ok := sample{Email: "a@b.edu", IDNumber: "2021-0001", Date: "2025-06-03", Start: "09:30", People: []string{"2021-0002"}}
	if err := Struct(ok); err != nil {
		t.Fatalf("valid struct rejected: %v", err)
	}

	bad := sample{Email: "nope", IDNumber: "!", Date: "03/06/2025", Start: "9am", People: []string{"x"}}
	err := Struct(bad)
	var verr *Error
	if !errors.As(err, &verr) {
		t.Fatalf("expected *Error, got %v", err)
	}
	fields := map[string]string{}
	for _, f := range verr.Fields {
		fields[f.Field] = f.Message
	}
	want := map[string]string{
		"email":      "email must be a valid email address",
		"id_number":  "id_number must be a valid id number",
		"date":       "date must be a date in YYYY-MM-DD format",
		"start_time": "start_time must be a time in HH:MM format",
	}
	for field, msg := range want {
		if fields[field] != msg {
			t.Errorf("%s: got %q, want %q", field, fields[field], msg)
		}
	}
	if _, ok := fields["participants[0]"]; !ok {
		t.Errorf("participant entry not validated: %v", fields)
	}
}
