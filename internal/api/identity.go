package api

import "net/http"

// Role names injected by the auth proxy.
const (
	RoleResident     = "RESIDENT"
	RoleLaundryAdmin = "LAUNDRY_ADMIN"
	RoleRooftopAdmin = "ROOFTOP_ADMIN"
	RoleMasterAdmin  = "MASTER_ADMIN"
)

// Identity is the caller as asserted by the fronting proxy.
type Identity struct {
	Room string
	Role string
}

func identityFrom(r *http.Request) (Identity, bool) {
	room := r.Header.Get("X-Room-Number")
	if room == "" {
		return Identity{}, false
	}
	role := r.Header.Get("X-Role")
	if role == "" {
		role = RoleResident
	}
	return Identity{Room: room, Role: role}, true
}

// LaundryAdmin reports whether the caller may manage machines and
// overrides.
func (id Identity) LaundryAdmin() bool {
	return id.Role == RoleLaundryAdmin || id.Role == RoleMasterAdmin
}

// RooftopAdmin reports whether the caller may decide rooftop requests
// and manage rooftop bookings.
func (id Identity) RooftopAdmin() bool {
	return id.Role == RoleRooftopAdmin || id.Role == RoleMasterAdmin
}

// Admin reports whether the caller holds any administrative role.
func (id Identity) Admin() bool {
	return id.LaundryAdmin() || id.RooftopAdmin()
}

// identity authenticates the request or writes 401.
func (s *HTTPServer) identity(w http.ResponseWriter, r *http.Request) (Identity, bool) {
	id, ok := identityFrom(r)
	if !ok {
		writeError(w, http.StatusUnauthorized, "missing X-Room-Number header")
	}
	return id, ok
}
