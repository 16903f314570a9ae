package types

import (
	"net/mail"
	"strings"
)

// Preferences are per-user application settings.
type Preferences struct {
	Units         string `json:"units"`
	Notifications bool   `json:"notifications"`
	Theme         string `json:"theme"`
}

// User is an application account. Credentials live outside this engine.
type User struct {
	Base
	Email       string       `json:"email"`
	Name        string       `json:"name"`
	Phone       string       `json:"phone"`
	AvatarURL   string       `json:"avatarUrl"`
	Timezone    string       `json:"timezone"`
	Preferences *Preferences `json:"preferences"`

	// DisplayName is computed for display and never leaves the device.
	DisplayName string `json:"displayName,omitempty"`
}

func (u *User) Kind() Kind { return KindUser }

// Owner of a user is the user itself.
func (u *User) Owner() string { return u.ID }

func (u *User) Normalize() {
	u.Email = strings.TrimSpace(u.Email)
	u.Name = strings.TrimSpace(u.Name)
	u.Phone = strings.TrimSpace(u.Phone)
	if u.Preferences == nil {
		u.Preferences = &Preferences{}
	}
	u.Preferences.Units = strings.TrimSpace(u.Preferences.Units)
	if u.Preferences.Units == "" {
		u.Preferences.Units = "metric"
	}
	u.Preferences.Theme = strings.TrimSpace(u.Preferences.Theme)
	if u.Preferences.Theme == "" {
		u.Preferences.Theme = "system"
	}
}

func (u *User) Validate() error {
	if err := required(KindUser, "email", u.Email); err != nil {
		return err
	}
	if _, err := mail.ParseAddress(u.Email); err != nil {
		return invalid(KindUser, "email", "is not a valid address")
	}
	if err := required(KindUser, "name", u.Name); err != nil {
		return err
	}
	if u.Preferences != nil {
		if err := oneOf(KindUser, "preferences.units", u.Preferences.Units, setOf("metric", "imperial")); err != nil {
			return err
		}
		if err := oneOf(KindUser, "preferences.theme", u.Preferences.Theme, setOf("light", "dark", "system")); err != nil {
			return err
		}
	}
	return nil
}
