package api

import (
	"crypto/subtle"
	"net/http"
	"strings"

	"clinicbot/internal/config"
	"clinicbot/internal/models"
)

const staffKeyHeader = "x-staff-key"

// StaffAuth resolves the staff role from the x-staff-key header. Keys are
// compared in constant time; the admin role subsumes receptionist access.
type StaffAuth struct {
	receptionistKey string
	adminKey        string
}

func NewStaffAuth(cfg config.DashboardConfig) *StaffAuth {
	return &StaffAuth{
		receptionistKey: cfg.ReceptionistKey,
		adminKey:        cfg.AdminKey,
	}
}

// Role returns the staff role for the request, or "" when the key is
// missing or unknown.
func (a *StaffAuth) Role(r *http.Request) string {
	key := strings.TrimSpace(r.Header.Get(staffKeyHeader))
	if key == "" {
		return ""
	}
	if a.adminKey != "" && subtle.ConstantTimeCompare([]byte(key), []byte(a.adminKey)) == 1 {
		return models.RoleAdmin
	}
	if a.receptionistKey != "" && subtle.ConstantTimeCompare([]byte(key), []byte(a.receptionistKey)) == 1 {
		return models.RoleReceptionist
	}
	return ""
}

// Require wraps a handler so it only runs for the listed roles. A missing
// or unknown key gets 401, a known key without the needed role gets 403.
func (a *StaffAuth) Require(next func(w http.ResponseWriter, r *http.Request, role string), roles ...string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		role := a.Role(r)
		if role == "" {
			writeError(w, http.StatusUnauthorized, "missing or invalid staff key")
			return
		}
		for _, allowed := range roles {
			if role == allowed {
				next(w, r, role)
				return
			}
		}
		writeError(w, http.StatusForbidden, "insufficient role")
	}
}
