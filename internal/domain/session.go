package domain

import "strings"

type Session struct {
	IsLoggedIn bool    `json:"isLoggedIn"`
	Username   *string `json:"username"`
	UserID     *int64  `json:"userId"`
}

func LoggedOut() Session {
	return Session{}
}

func NewSession(username string, userID int64) Session {
	return Session{
		IsLoggedIn: true,
		Username:   &username,
		UserID:     &userID,
	}
}

// ActingUserID returns the user id votes and answers are attributed to.
func (s Session) ActingUserID() (int64, bool) {
	if !s.IsLoggedIn || s.UserID == nil || *s.UserID <= 0 {
		return 0, false
	}
	return *s.UserID, true
}

func (s Session) Name() (string, bool) {
	if !s.IsLoggedIn || s.Username == nil {
		return "", false
	}
	return *s.Username, true
}

// Normalize drops identity fields from a session that is not logged in so
// that stale ids never leak into attribution.
func (s Session) Normalize() Session {
	if !s.IsLoggedIn {
		return LoggedOut()
	}
	return s
}

type Credentials struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

func (c Credentials) Validate() error {
	if strings.TrimSpace(c.Username) == "" {
		return NewValidationError("username", "must not be empty")
	}
	if c.Password == "" {
		return NewValidationError("password", "must not be empty")
	}
	return nil
}
