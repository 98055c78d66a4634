package auth

import (
	"testing"

	"github.com/google/uuid"

	"github.com/omarashraf/dokkan-backend/pkg/enums"
)

func TestPrincipalCapabilities(t *testing.T) {
	tests := []struct {
		role enums.Role
		cap  Capability
		want bool
	}{
		{enums.RoleCustomer, CapManageOrders, false},
		{enums.RoleCustomer, CapMarkDelivered, false},
		{enums.RoleTransporter, CapMarkDelivered, true},
		{enums.RoleTransporter, CapAssignTransporter, false},
		{enums.RoleModerator, CapAssignTransporter, true},
		{enums.RoleModerator, CapManagePromos, true},
		{enums.RoleAdmin, CapManageOrders, true},
	}

	for _, tt := range tests {
		p := Principal{UserID: uuid.New(), Role: tt.role}
		if got := p.Can(tt.cap); got != tt.want {
			t.Fatalf("role %s cap %s: got %v want %v", tt.role, tt.cap, got, tt.want)
		}
	}
}

func TestIsTransporter(t *testing.T) {
	if !(Principal{Role: enums.RoleTransporter}).IsTransporter() {
		t.Fatalf("transporter principal should report IsTransporter")
	}
	if (Principal{Role: enums.RoleAdmin}).IsTransporter() {
		t.Fatalf("admin principal should not report IsTransporter")
	}
}
