package activity

import "time"

// Type identifies what happened.
type Type string

const (
	TypeSignInAnonymous Type = "sign_in_anonymous"
	TypeSignInToken     Type = "sign_in_token"
	TypeSignInResumed   Type = "sign_in_resumed"
	TypeSignOut         Type = "sign_out"
	TypeSeedWritten     Type = "seed_written"
	TypeProjectUpserted Type = "project_upserted"
)

// Entry is one event in a user's activity log
type Entry struct {
	ID        int64     `json:"id"`
	UID       string    `json:"uid"`
	SessionID *string   `json:"session_id,omitempty"`
	Type      Type      `json:"type"`
	Summary   string    `json:"summary"`
	Details   string    `json:"details,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}
