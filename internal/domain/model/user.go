package model

import "time"

// Preference keys stored per user. The engine treats the store as opaque
// key-value; these are the keys it actually consults.
const (
	PrefCaption      = "caption"           // extra caption appended to transfers
	PrefTargetChat   = "chat_id"           // "<chat>" or "<chat>/<reply_to>" override
	PrefReplaceRules = "replacement_words" // JSON object old->new
	PrefDeleteWords  = "delete_words"      // JSON array of words
	PrefRenameTag    = "rename_tag"        // suffix appended to file names
)

// UserSession carries a user's relay identities. Credentials are opaque and
// encrypted at rest; live client handles never touch this struct.
type UserSession struct {
	UserID           int64     `json:"user_id"`
	BotToken         string    `json:"bot_token,omitempty"`         // owned relay-bot credential
	SessionEncrypted string    `json:"session_encrypted,omitempty"` // owned user-session credential
	Premium          bool      `json:"premium"`
	UpdatedAt        time.Time `json:"updated_at"`
}

func (u *UserSession) HasBot() bool     { return u != nil && u.BotToken != "" }
func (u *UserSession) HasSession() bool { return u != nil && u.SessionEncrypted != "" }
