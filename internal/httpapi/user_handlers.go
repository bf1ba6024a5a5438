package httpapi

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/gatherly/apiserver/internal/audit"
	"github.com/gatherly/apiserver/internal/auth"
	"github.com/gatherly/apiserver/internal/user"
)

type createAccountRequest struct {
	Email    string `json:"email"`
	Name     string `json:"name"`
	Password string `json:"password"`
	Role     string `json:"role"`
}

type updateAccountRequest struct {
	Email    *string `json:"email"`
	Name     *string `json:"name"`
	Password *string `json:"password"`
}

type changePasswordRequest struct {
	CurrentPassword string `json:"current_password"`
	NewPassword     string `json:"new_password"`
}

type assignRoleRequest struct {
	Role string `json:"role"`
}

func (a *API) handleUsers(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		a.listUsers(w, r)
	case http.MethodPost:
		a.createUser(w, r)
	default:
		methodNotAllowed(w, r, http.MethodGet, http.MethodPost)
	}
}

func (a *API) listUsers(w http.ResponseWriter, r *http.Request) {
	if !a.ensurePermission(w, r, auth.PermGetUsers) {
		return
	}
	q := r.URL.Query()
	var f user.Filter
	if raw := strings.TrimSpace(q.Get("role")); raw != "" {
		role := user.Role(raw)
		if !role.Valid() {
			writeError(w, r, http.StatusBadRequest, "unknown role")
			return
		}
		f.Role = &role
	}
	switch strings.TrimSpace(q.Get("status")) {
	case "":
	case "enabled":
		status := user.StatusEnabled
		f.Status = &status
	case "disabled":
		status := user.StatusDisabled
		f.Status = &status
	default:
		writeError(w, r, http.StatusBadRequest, "status must be enabled or disabled")
		return
	}
	f.Search = strings.TrimSpace(q.Get("search"))
	limit, err := parsePositiveInt("limit", q.Get("limit"), 20, 1, 100)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	page, err := parsePositiveInt("page", q.Get("page"), 1, 1, 100)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	f.Limit, f.Page = limit, page

	accounts, err := a.users.List(r.Context(), f)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	if accounts == nil {
		accounts = []*user.User{}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"items": accounts,
		"page":  page,
		"limit": limit,
	})
}

func (a *API) createUser(w http.ResponseWriter, r *http.Request) {
	if !a.ensurePermission(w, r, auth.PermManageUsers) {
		return
	}
	var req createAccountRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	role := user.Role(strings.TrimSpace(req.Role))
	if req.Role != "" && !role.Valid() {
		writeError(w, r, http.StatusBadRequest, "unknown role")
		return
	}
	account, err := a.users.Create(r.Context(), user.CreateInput{
		Email:    req.Email,
		Name:     req.Name,
		Password: req.Password,
		Role:     role,
	})
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	_ = audit.LogEvent(r.Context(), "user.create", map[string]any{
		"target_id": account.ID,
		"role":      string(account.Role),
	})
	w.Header().Set("Location", fmt.Sprintf("/v1/users/%s", account.ID))
	writeJSON(w, http.StatusCreated, account)
}

func (a *API) handleUserResource(w http.ResponseWriter, r *http.Request) {
	path := strings.Trim(strings.TrimPrefix(r.URL.Path, "/v1/users/"), "/")
	if path == "" {
		writeError(w, r, http.StatusNotFound, "resource not found")
		return
	}
	parts := strings.Split(path, "/")

	if parts[0] == "me" {
		a.handleOwnProfile(w, r, parts[1:])
		return
	}

	id := parts[0]
	switch {
	case len(parts) == 1:
		a.handleUserByID(w, r, id)
	case len(parts) == 2 && parts[1] == "role":
		a.assignUserRole(w, r, id)
	case len(parts) == 2 && (parts[1] == "enable" || parts[1] == "disable"):
		a.setUserStatus(w, r, id, parts[1])
	default:
		writeError(w, r, http.StatusNotFound, "resource not found")
	}
}

func (a *API) handleOwnProfile(w http.ResponseWriter, r *http.Request, rest []string) {
	if !a.ensurePermission(w, r, auth.PermProfile) {
		return
	}
	userID, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		writeError(w, r, http.StatusUnauthorized, "please authenticate")
		return
	}

	if len(rest) == 1 && rest[0] == "password" {
		if r.Method != http.MethodPost {
			methodNotAllowed(w, r, http.MethodPost)
			return
		}
		var req changePasswordRequest
		if err := decodeJSON(w, r, &req); err != nil {
			writeError(w, r, http.StatusBadRequest, err.Error())
			return
		}
		if req.NewPassword == "" {
			writeError(w, r, http.StatusBadRequest, "new_password is required")
			return
		}
		if err := a.users.ChangePassword(r.Context(), userID, req.CurrentPassword, req.NewPassword); err != nil {
			handleServiceError(w, r, err)
			return
		}
		_ = audit.LogEvent(r.Context(), "user.password.change", nil)
		w.WriteHeader(http.StatusNoContent)
		return
	}
	if len(rest) != 0 {
		writeError(w, r, http.StatusNotFound, "resource not found")
		return
	}

	switch r.Method {
	case http.MethodGet:
		account, err := a.users.GetByID(r.Context(), userID)
		if err != nil {
			handleServiceError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, account)
	case http.MethodPatch:
		var req updateAccountRequest
		if err := decodeJSON(w, r, &req); err != nil {
			writeError(w, r, http.StatusBadRequest, err.Error())
			return
		}
		if req.Password != nil {
			writeError(w, r, http.StatusBadRequest, "use the password endpoint to change your password")
			return
		}
		account, err := a.users.Update(r.Context(), userID, user.Update{Email: req.Email, Name: req.Name})
		if err != nil {
			handleServiceError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, account)
	default:
		methodNotAllowed(w, r, http.MethodGet, http.MethodPatch)
	}
}

func (a *API) handleUserByID(w http.ResponseWriter, r *http.Request, id string) {
	switch r.Method {
	case http.MethodGet:
		if !a.ensurePermission(w, r, auth.PermGetUsers) {
			return
		}
		account, err := a.users.GetByID(r.Context(), id)
		if err != nil {
			handleServiceError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, account)
	case http.MethodPatch:
		if !a.ensurePermission(w, r, auth.PermManageUsers) {
			return
		}
		var req updateAccountRequest
		if err := decodeJSON(w, r, &req); err != nil {
			writeError(w, r, http.StatusBadRequest, err.Error())
			return
		}
		account, err := a.users.Update(r.Context(), id, user.Update{Email: req.Email, Name: req.Name})
		if err != nil {
			handleServiceError(w, r, err)
			return
		}
		// managers may rotate a password without knowing the current one
		if req.Password != nil {
			if err := a.users.SetPassword(r.Context(), id, *req.Password); err != nil {
				handleServiceError(w, r, err)
				return
			}
		}
		_ = audit.LogEvent(r.Context(), "user.update", map[string]any{"target_id": id})
		writeJSON(w, http.StatusOK, account)
	case http.MethodDelete:
		if !a.ensurePermission(w, r, auth.PermManageUsers) {
			return
		}
		if err := a.users.Delete(r.Context(), id); err != nil {
			handleServiceError(w, r, err)
			return
		}
		_ = audit.LogEvent(r.Context(), "user.delete", map[string]any{"target_id": id})
		w.WriteHeader(http.StatusNoContent)
	default:
		methodNotAllowed(w, r, http.MethodGet, http.MethodPatch, http.MethodDelete)
	}
}

func (a *API) assignUserRole(w http.ResponseWriter, r *http.Request, id string) {
	if r.Method != http.MethodPut {
		methodNotAllowed(w, r, http.MethodPut)
		return
	}
	if !a.ensurePermission(w, r, auth.PermAssignRole) {
		return
	}
	var req assignRoleRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	role := user.Role(strings.TrimSpace(req.Role))
	if !role.Valid() {
		writeError(w, r, http.StatusBadRequest, "unknown role")
		return
	}
	account, err := a.users.AssignRole(r.Context(), id, role)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	_ = audit.LogEvent(r.Context(), "user.role.assign", map[string]any{
		"target_id": id,
		"role":      string(role),
	})
	writeJSON(w, http.StatusOK, account)
}

func (a *API) setUserStatus(w http.ResponseWriter, r *http.Request, id, action string) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, r, http.MethodPost)
		return
	}
	if !a.ensurePermission(w, r, auth.PermManageUsers) {
		return
	}
	status := user.StatusEnabled
	if action == "disable" {
		status = user.StatusDisabled
	}
	account, err := a.users.SetStatus(r.Context(), id, status)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	_ = audit.LogEvent(r.Context(), "user."+action, map[string]any{"target_id": id})
	writeJSON(w, http.StatusOK, account)
}
