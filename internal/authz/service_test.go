package authz

import (
	"fmt"
	"strings"
	"testing"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
)

func setupAuthzServiceTest(t *testing.T) *Service {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite failed: %v", err)
	}
	svc, err := NewService(db)
	if err != nil {
		t.Fatalf("new authz service failed: %v", err)
	}
	return svc
}

func TestEnforceAdminWithRolePolicy(t *testing.T) {
	svc := setupAuthzServiceTest(t)
	if err := svc.GrantRolePolicy("ops", "/admin/programs/:id", "GET"); err != nil {
		t.Fatalf("grant role policy failed: %v", err)
	}
	if err := svc.SetAdminRoles(1, []string{"ops"}); err != nil {
		t.Fatalf("set admin roles failed: %v", err)
	}

	allow, err := svc.EnforceAdmin(1, "/api/v1/admin/programs/42", "get")
	if err != nil {
		t.Fatalf("enforce allow failed: %v", err)
	}
	if !allow {
		t.Fatalf("expected allow=true")
	}

	allow, err = svc.EnforceAdmin(1, "/api/v1/admin/programs/42", "POST")
	if err != nil {
		t.Fatalf("enforce deny failed: %v", err)
	}
	if allow {
		t.Fatalf("expected allow=false")
	}
}

func TestSetAdminRolesOverride(t *testing.T) {
	svc := setupAuthzServiceTest(t)
	if err := svc.GrantRolePolicy("ops", "/admin/programs", "GET"); err != nil {
		t.Fatalf("grant ops policy failed: %v", err)
	}
	if err := svc.GrantRolePolicy("finance", "/admin/payouts", "GET"); err != nil {
		t.Fatalf("grant finance policy failed: %v", err)
	}

	if err := svc.SetAdminRoles(2, []string{"ops"}); err != nil {
		t.Fatalf("set first role failed: %v", err)
	}
	roles, err := svc.GetAdminRoles(2)
	if err != nil {
		t.Fatalf("get roles failed: %v", err)
	}
	if len(roles) != 1 || roles[0] != "role:ops" {
		t.Fatalf("roles want [role:ops], got=%v", roles)
	}

	if err := svc.SetAdminRoles(2, []string{"finance"}); err != nil {
		t.Fatalf("set second role failed: %v", err)
	}
	roles, err = svc.GetAdminRoles(2)
	if err != nil {
		t.Fatalf("get roles failed: %v", err)
	}
	if len(roles) != 1 || roles[0] != "role:finance" {
		t.Fatalf("roles want [role:finance], got=%v", roles)
	}

	allow, err := svc.EnforceAdmin(2, "/admin/programs", "GET")
	if err != nil {
		t.Fatalf("enforce old role failed: %v", err)
	}
	if allow {
		t.Fatalf("expected old role permission removed")
	}

	allow, err = svc.EnforceAdmin(2, "/admin/payouts", "GET")
	if err != nil {
		t.Fatalf("enforce new role failed: %v", err)
	}
	if !allow {
		t.Fatalf("expected new role permission granted")
	}
}

func TestNormalizeObject(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{in: "/api/v1/admin/programs/:id", want: "/admin/programs/:id"},
		{in: "/admin/programs/:id", want: "/admin/programs/:id"},
		{in: "admin/programs", want: "/admin/programs"},
		{in: "/api/v1", want: "/"},
		{in: "", want: "/"},
	}
	for _, item := range cases {
		got := NormalizeObject(item.in)
		if got != item.want {
			t.Fatalf("normalize object failed, in=%q want=%q got=%q", item.in, item.want, got)
		}
	}
}

func TestBootstrapBuiltinRoles(t *testing.T) {
	svc := setupAuthzServiceTest(t)
	if err := svc.BootstrapBuiltinRoles(); err != nil {
		t.Fatalf("bootstrap builtin roles failed: %v", err)
	}

	roles, err := svc.ListRoles()
	if err != nil {
		t.Fatalf("list roles failed: %v", err)
	}
	wantRoles := map[string]bool{
		"role:readonly_auditor": true,
		"role:operations":       true,
		"role:support":          true,
		"role:finance":          true,
	}
	for _, role := range roles {
		delete(wantRoles, role)
	}
	if len(wantRoles) != 0 {
		t.Fatalf("builtin roles missing: %v", wantRoles)
	}

	if err := svc.SetAdminRoles(3, []string{"operations"}); err != nil {
		t.Fatalf("set admin roles failed: %v", err)
	}

	allow, err := svc.EnforceAdmin(3, "/admin/settings", "GET")
	if err != nil {
		t.Fatalf("enforce inherited readonly failed: %v", err)
	}
	if !allow {
		t.Fatalf("expected inherited readonly permission")
	}

	allow, err = svc.EnforceAdmin(3, "/admin/settings", "PUT")
	if err != nil {
		t.Fatalf("enforce readonly write failed: %v", err)
	}
	if allow {
		t.Fatalf("expected readonly inherited role deny write")
	}
}

func TestBootstrapBuiltinRolesCoverAdminSurface(t *testing.T) {
	svc := setupAuthzServiceTest(t)
	if err := svc.BootstrapBuiltinRoles(); err != nil {
		t.Fatalf("bootstrap builtin roles failed: %v", err)
	}

	if err := svc.SetAdminRoles(10, []string{"operations"}); err != nil {
		t.Fatalf("set operations roles failed: %v", err)
	}
	if err := svc.SetAdminRoles(11, []string{"finance"}); err != nil {
		t.Fatalf("set finance roles failed: %v", err)
	}
	if err := svc.SetAdminRoles(12, []string{"support"}); err != nil {
		t.Fatalf("set support roles failed: %v", err)
	}

	cases := []struct {
		name    string
		adminID uint
		path    string
		method  string
		allow   bool
	}{
		{"operations creates program", 10, "/api/v1/admin/programs", "POST", true},
		{"operations updates program", 10, "/api/v1/admin/programs/42", "PUT", true},
		{"operations disables influencer", 10, "/api/v1/admin/influencers/42/status", "PUT", true},
		{"operations deactivates link", 10, "/api/v1/admin/links/42/deactivate", "POST", true},
		{"operations cannot approve commission", 10, "/api/v1/admin/commissions/42/approve", "POST", false},
		{"finance approves commission", 11, "/api/v1/admin/commissions/42/approve", "POST", true},
		{"finance refunds commission", 11, "/api/v1/admin/commissions/42/refund", "POST", true},
		{"finance executes payout", 11, "/api/v1/admin/payouts/42/execute", "POST", true},
		{"finance marks payout paid", 11, "/api/v1/admin/payouts/42/mark-paid", "POST", true},
		{"finance cannot create program", 11, "/api/v1/admin/programs", "POST", false},
		{"finance reads commissions", 11, "/api/v1/admin/commissions", "GET", true},
		{"support reviews conversion", 12, "/api/v1/admin/conversions/42/approve", "POST", true},
		{"support disputes commission", 12, "/api/v1/admin/commissions/42/dispute", "POST", true},
		{"support cannot pay out", 12, "/api/v1/admin/payouts/42/execute", "POST", false},
		{"no role grants unknown write", 10, "/api/v1/admin/card-secrets", "POST", false},
		{"no role grants unknown delete", 11, "/api/v1/admin/coupons/42", "DELETE", false},
	}
	for _, tc := range cases {
		allow, err := svc.EnforceAdmin(tc.adminID, tc.path, tc.method)
		if err != nil {
			t.Fatalf("%s: enforce failed: %v", tc.name, err)
		}
		if allow != tc.allow {
			t.Fatalf("%s: want allow=%v got %v", tc.name, tc.allow, allow)
		}
	}
}
