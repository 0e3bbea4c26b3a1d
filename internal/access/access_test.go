package access

import (
	"context"
	"testing"

	"github.com/google/uuid"
)

func TestAllowed(t *testing.T) {
	tests := []struct {
		role Role
		cap  Capability
		want bool
	}{
		{RoleReceptionist, CapBookAppointment, true},
		{RoleDoctor, CapBookAppointment, false},
		{RoleDoctor, CapCreatePrescription, true},
		{RolePharmacist, CapDispensePrescription, true},
		{RoleNurse, CapDispensePrescription, false},
		{RoleAdmin, CapPayInvoice, true},
		{Role("janitor"), CapBookAppointment, false},
		{RoleAdmin, Capability("made:up"), false},
	}

	for _, tc := range tests {
		if got := Allowed(tc.role, tc.cap); got != tc.want {
			t.Errorf("Allowed(%s, %s) = %t, want %t", tc.role, tc.cap, got, tc.want)
		}
	}
}

func TestPrincipalContextRoundTrip(t *testing.T) {
	ctx := context.Background()

	if _, ok := PrincipalFromContext(ctx); ok {
		t.Fatal("expected no principal in empty context")
	}

	p := Principal{UserID: uuid.New(), Role: RoleDoctor}
	ctx = WithPrincipal(ctx, p)

	got, ok := PrincipalFromContext(ctx)
	if !ok {
		t.Fatal("expected principal in context")
	}
	if got != p {
		t.Errorf("got %+v, want %+v", got, p)
	}
}
