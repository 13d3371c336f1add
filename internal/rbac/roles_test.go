package rbac

import "testing"

func TestMatrixIsExact(t *testing.T) {
	expected := map[Role]map[Permission]bool{
		RoleAdmin: {
			PermCreate: true, PermRead: true, PermUpdate: true,
			PermDelete: true, PermManageUsers: true, PermViewReports: true,
		},
		RoleDonor: {
			PermCreate: true, PermRead: true, PermUpdate: true,
			PermDelete: false, PermManageUsers: false, PermViewReports: false,
		},
		RoleHospital: {
			PermCreate: false, PermRead: true, PermUpdate: true,
			PermDelete: false, PermManageUsers: false, PermViewReports: true,
		},
		RoleNGO: {
			PermCreate: false, PermRead: true, PermUpdate: false,
			PermDelete: false, PermManageUsers: false, PermViewReports: true,
		},
	}

	if len(expected) != len(Roles) {
		t.Fatalf("expected table covers %d roles, package declares %d", len(expected), len(Roles))
	}
	for _, role := range Roles {
		row, ok := expected[role]
		if !ok {
			t.Fatalf("no expectations for role %s", role)
		}
		if len(row) != len(Permissions) {
			t.Fatalf("expectations for %s cover %d permissions, package declares %d", role, len(row), len(Permissions))
		}
		for _, perm := range Permissions {
			if got := HasPermission(role, perm); got != row[perm] {
				t.Errorf("HasPermission(%s, %s) = %v, want %v", role, perm, got, row[perm])
			}
		}
	}
}

func TestUnknownRoleHoldsNothing(t *testing.T) {
	for _, perm := range Permissions {
		if HasPermission(Role("INTERN"), perm) {
			t.Fatalf("unknown role granted %s", perm)
		}
	}
	if Role("INTERN").Valid() {
		t.Fatal("unknown role reported valid")
	}
}

func TestParseRole(t *testing.T) {
	cases := []struct {
		in   string
		want Role
		ok   bool
	}{
		{"ADMIN", RoleAdmin, true},
		{"admin", RoleAdmin, true},
		{"  hospital ", RoleHospital, true},
		{"ngo", RoleNGO, true},
		{"donor", RoleDonor, true},
		{"", "", false},
		{"root", "", false},
	}
	for _, tc := range cases {
		got, ok := ParseRole(tc.in)
		if ok != tc.ok || got != tc.want {
			t.Errorf("ParseRole(%q) = (%q, %v), want (%q, %v)", tc.in, got, ok, tc.want, tc.ok)
		}
	}
}

func TestHasAllAndAny(t *testing.T) {
	if !HasAllPermissions(RoleAdmin, PermCreate, PermDelete, PermManageUsers) {
		t.Fatal("admin should hold all listed permissions")
	}
	if HasAllPermissions(RoleDonor, PermCreate, PermDelete) {
		t.Fatal("donor lacks delete")
	}
	if !HasAnyPermission(RoleNGO, PermDelete, PermViewReports) {
		t.Fatal("ngo holds view_reports")
	}
	if HasAnyPermission(RoleNGO, PermDelete, PermManageUsers) {
		t.Fatal("ngo holds neither delete nor manage_users")
	}
}

func TestPermissionsForOrdering(t *testing.T) {
	got := PermissionsFor(RoleHospital)
	want := []Permission{PermRead, PermUpdate, PermViewReports}
	if len(got) != len(want) {
		t.Fatalf("PermissionsFor(HOSPITAL) = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("PermissionsFor(HOSPITAL) = %v, want %v", got, want)
		}
	}
}
