// Package access carries the authenticated principal and the
// capability-to-role table. Authentication itself happens upstream; this
// package only answers "may this role perform this operation type".
package access

import (
	"context"

	"github.com/google/uuid"
)

type Role string

const (
	RoleAdmin        Role = "admin"
	RoleDoctor       Role = "doctor"
	RoleNurse        Role = "nurse"
	RoleReceptionist Role = "receptionist"
	RolePharmacist   Role = "pharmacist"
)

type Capability string

const (
	CapBookAppointment       Capability = "appointment:book"
	CapTransitionAppointment Capability = "appointment:transition"
	CapViewAppointment       Capability = "appointment:view"
	CapCreatePrescription    Capability = "prescription:create"
	CapDispensePrescription  Capability = "prescription:dispense"
	CapCreateInvoice         Capability = "invoice:create"
	CapPayInvoice            Capability = "invoice:pay"
)

// grants is the single source of truth for role gating, consulted once per
// operation type instead of ad hoc checks in each handler.
var grants = map[Capability][]Role{
	CapBookAppointment:       {RoleAdmin, RoleReceptionist, RoleNurse},
	CapTransitionAppointment: {RoleAdmin, RoleReceptionist, RoleNurse, RoleDoctor},
	CapViewAppointment:       {RoleAdmin, RoleReceptionist, RoleNurse, RoleDoctor},
	CapCreatePrescription:    {RoleAdmin, RoleDoctor},
	CapDispensePrescription:  {RoleAdmin, RolePharmacist},
	CapCreateInvoice:         {RoleAdmin, RoleReceptionist},
	CapPayInvoice:            {RoleAdmin, RoleReceptionist},
}

func Allowed(role Role, cap Capability) bool {
	for _, r := range grants[cap] {
		if r == role {
			return true
		}
	}
	return false
}

// Principal is the authenticated caller attached to each inbound
// operation by the upstream gateway.
type Principal struct {
	UserID uuid.UUID
	Role   Role
}

type contextKey string

const principalKey contextKey = "principal"

func WithPrincipal(ctx context.Context, p Principal) context.Context {
	return context.WithValue(ctx, principalKey, p)
}

func PrincipalFromContext(ctx context.Context) (Principal, bool) {
	p, ok := ctx.Value(principalKey).(Principal)
	return p, ok
}
