package domain

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type User struct {
	ID uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	// Subject is the identity provider uid.
	Subject         string `gorm:"uniqueIndex;not null;column:subject" json:"-"`
	Email           string `gorm:"column:email;index" json:"email"`
	FirstName       string `gorm:"column:first_name" json:"first_name"`
	LastName        string `gorm:"column:last_name" json:"last_name"`
	LinkedInProfile string `gorm:"column:linkedin_profile" json:"linkedin_profile"`
	GitHubProfile   string `gorm:"column:github_profile" json:"github_profile"`

	CreatedAt time.Time      `gorm:"not null" json:"created_at"`
	UpdatedAt time.Time      `gorm:"not null" json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`
}

func (User) TableName() string { return "users" }

func (u *User) BeforeCreate(tx *gorm.DB) error {
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	return nil
}

// ProfileText is the stored profile as free text for prompts. Empty when the
// user has not filled in any profile links.
func (u *User) ProfileText() string {
	if u == nil {
		return ""
	}
	if strings.TrimSpace(u.LinkedInProfile) == "" && strings.TrimSpace(u.GitHubProfile) == "" {
		return ""
	}
	var lines []string
	if name := strings.TrimSpace(u.FirstName + " " + u.LastName); name != "" {
		lines = append(lines, "Name: "+name)
	}
	if v := strings.TrimSpace(u.LinkedInProfile); v != "" {
		lines = append(lines, "LinkedIn: "+v)
	}
	if v := strings.TrimSpace(u.GitHubProfile); v != "" {
		lines = append(lines, "GitHub: "+v)
	}
	return strings.Join(lines, "\n")
}

// UserProfileUpdate is a partial profile patch. Nil fields are left unchanged.
type UserProfileUpdate struct {
	FirstName       *string
	LastName        *string
	LinkedInProfile *string
	GitHubProfile   *string
}

func (p UserProfileUpdate) Columns() map[string]any {
	out := map[string]any{}
	if p.FirstName != nil {
		out["first_name"] = strings.TrimSpace(*p.FirstName)
	}
	if p.LastName != nil {
		out["last_name"] = strings.TrimSpace(*p.LastName)
	}
	if p.LinkedInProfile != nil {
		out["linkedin_profile"] = strings.TrimSpace(*p.LinkedInProfile)
	}
	if p.GitHubProfile != nil {
		out["github_profile"] = strings.TrimSpace(*p.GitHubProfile)
	}
	return out
}
