package models

// Session is the persisted auth state of the logged-in field agent. One row
// at a time; replaced on login, removed on logout.
type Session struct {
	Username    string
	AccessToken string
	ExpiresAt   int64
	CreatedAt   int64
}
