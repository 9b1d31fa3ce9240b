package fakeapi

import (
	"context"
	"errors"
	"net/http"

	chimw "github.com/go-chi/chi/v5/middleware"

	"safeshift/internal/api"
	dErrors "safeshift/pkg/domain-errors"
	"safeshift/pkg/platform/sentinel"
	"safeshift/pkg/requestcontext"
)

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var req api.LoginRequest
	if err := decodeJSON(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}

	acct, err := s.store.AccountByEmail(req.Email)
	if err == nil {
		err = verifyPassword(req.Password, acct.PasswordHash)
	}
	if err != nil {
		s.countLogin(false)
		if errors.Is(err, sentinel.ErrNotFound) || dErrors.HasCode(err, dErrors.CodeUnauthorized) {
			s.logger.InfoContext(ctx, "login rejected", "request_id", chimw.GetReqID(ctx))
			writeJSON(w, http.StatusUnauthorized, map[string]string{"detail": "Invalid email or password"})
			return
		}
		s.writeError(w, r, err)
		return
	}
	if !acct.IsActive {
		s.countLogin(false)
		s.writeError(w, r, dErrors.New(dErrors.CodeForbidden, "Account is deactivated"))
		return
	}

	token, err := s.tokens.Issue(acct.ID, string(acct.Role))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.countLogin(true)
	s.recordActivity(ctx, acct.ID, activityLogin)

	writeJSON(w, http.StatusOK, api.LoginResponse{
		AccessToken: token,
		TokenType:   "bearer",
		User:        acct.User,
	})
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	s.tokens.Revoke(requestcontext.TokenID(ctx))
	s.recordActivity(ctx, requestcontext.UserID(ctx), activityLogout)
	writeJSON(w, http.StatusOK, map[string]string{"message": "Logged out successfully"})
}

func (s *Server) handleMe(w http.ResponseWriter, r *http.Request) {
	acct, err := s.currentAccount(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, acct.User)
}

func (s *Server) handleChangePassword(w http.ResponseWriter, r *http.Request) {
	var req api.ChangePasswordRequest
	if err := decodeJSON(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	acct, err := s.currentAccount(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	// a wrong current password is a 400, never a 401: the session is fine
	if err := verifyPassword(req.CurrentPassword, acct.PasswordHash); err != nil {
		s.writeError(w, r, dErrors.New(dErrors.CodeBadRequest, "Current password is incorrect"))
		return
	}
	hash, err := hashPassword(req.NewPassword, s.bcryptCost)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if err := s.store.SetPasswordHash(acct.ID, hash); err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "Password changed successfully"})
}

func (s *Server) handleHeartbeat(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	acct, err := s.currentAccount(ctx)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if !acct.ActivityTracking {
		writeJSON(w, http.StatusOK, map[string]string{"message": "Activity tracking disabled"})
		return
	}
	s.recordActivity(ctx, acct.ID, activityHeartbeat)
	writeJSON(w, http.StatusOK, map[string]string{"message": "Activity logged"})
}

// currentAccount loads the authenticated principal's account. A token for
// an account that no longer exists is treated as unauthenticated.
func (s *Server) currentAccount(ctx context.Context) (account, error) {
	acct, err := s.store.Account(requestcontext.UserID(ctx))
	if errors.Is(err, sentinel.ErrNotFound) {
		return account{}, dErrors.New(dErrors.CodeUnauthorized, "Not authenticated")
	}
	return acct, err
}

// Activity kinds. A heartbeat is recorded as "active".
const (
	activityLogin     = "login"
	activityLogout    = "logout"
	activityHeartbeat = "active"
)

func (s *Server) recordActivity(ctx context.Context, userID, kind string) {
	if userID == "" {
		return
	}
	s.store.RecordActivity(api.ActivityEntry{
		EmployeeID:   userID,
		ActivityType: kind,
		Status:       "active",
		Device:       ParseUserAgent(requestcontext.UserAgent(ctx)),
		Timestamp:    s.now(),
	})
}

func (s *Server) countLogin(ok bool) {
	if s.metrics != nil {
		s.metrics.IncLogin(ok)
	}
}
