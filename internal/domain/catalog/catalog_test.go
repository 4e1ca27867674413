package catalog

import (
	"errors"
	"testing"
)

func TestServiceValidate(t *testing.T) {
	cases := []struct {
		name string
		svc  Service
		want error
	}{
		{"valid", Service{Type: TypeConsultation, DurationMins: 30, PriceCents: 45000}, nil},
		{"free and instant", Service{Type: TypeOther}, nil},
		{"empty type", Service{DurationMins: 10}, ErrInvalidServiceType},
		{"unknown type", Service{Type: "spa", DurationMins: 10}, ErrInvalidServiceType},
		{"negative duration", Service{Type: TypeVaccine, DurationMins: -1}, ErrInvalidDuration},
		{"negative price", Service{Type: TypeSurgery, DurationMins: 60, PriceCents: -1}, ErrInvalidPrice},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if err := tc.svc.Validate(); !errors.Is(err, tc.want) {
				t.Errorf("Validate() = %v, want %v", err, tc.want)
			}
		})
	}
}

func TestServiceTypeIsValid(t *testing.T) {
	for _, st := range Types {
		if !st.IsValid() {
			t.Errorf("%q should be valid", st)
		}
	}
	if ServiceType("Consultation").IsValid() {
		t.Error("type matching is case sensitive")
	}
}
