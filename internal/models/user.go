package models

import (
	"time"

	"github.com/lib/pq"
)

// User is a registered account with the skill lists used for matching.
type User struct {
	ID             int64          `db:"id" json:"_id"`
	Name           string         `db:"name" json:"name"`
	Email          string         `db:"email" json:"email"`
	PasswordHash   string         `db:"password_hash" json:"-"`
	ProfilePicture string         `db:"profile_picture" json:"profilePicture"`
	SkillsHave     pq.StringArray `db:"skills_have" json:"skillsHave"`
	SkillsWant     pq.StringArray `db:"skills_want" json:"skillsWant"`
	CreatedAt      time.Time      `db:"created_at" json:"createdAt"`
}

// UserProfile is the display-safe projection sent to other users. It never
// carries credentials.
type UserProfile struct {
	ID             int64  `json:"_id"`
	Name           string `json:"name"`
	Email          string `json:"email"`
	ProfilePicture string `json:"profilePicture"`
}

// Profile projects the user to its display-safe form.
func (u User) Profile() UserProfile {
	return UserProfile{
		ID:             u.ID,
		Name:           u.Name,
		Email:          u.Email,
		ProfilePicture: u.ProfilePicture,
	}
}
