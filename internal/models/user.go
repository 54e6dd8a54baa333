package models

// User represents an account that can own live sessions.
//
// New accounts start unapproved; an admin must approve a user before any
// of their sessions may transition to running.
type User struct {
	BaseModel

	// Username is the unique login name.
	Username string `gorm:"uniqueIndex;not null;size:150" json:"username"`

	// Email is the unique contact address, used for notifications.
	Email string `gorm:"uniqueIndex;not null;size:254" json:"email"`

	// PasswordHash is the bcrypt hash of the user's password.
	// Never serialized in API responses.
	PasswordHash string `gorm:"not null;size:128" json:"-"`

	// IsAdmin indicates the user may manage other accounts.
	IsAdmin bool `gorm:"default:false" json:"is_admin"`

	// IsApproved gates whether this user's sessions may ever start.
	IsApproved bool `gorm:"default:false" json:"is_approved"`
}

// TableName overrides the table name.
func (User) TableName() string {
	return "users"
}

// Validate checks the user for required fields.
func (u *User) Validate() error {
	if u.Username == "" {
		return ErrUsernameRequired
	}
	if u.Email == "" {
		return ErrEmailRequired
	}
	return nil
}
