// Package user defines the domain model for a registered author or reader.
package user

// User is keyed by the opaque caller identity supplied by the hosting layer;
// there is no serial id for users.
type User struct {
	Identity        string `json:"identity"`
	PenName         string `json:"pen_name"`
	Bio             string `json:"bio,omitempty"`
	WelcomeRewarded bool   `json:"welcome_rewarded"`
	CreatedAt       int64  `json:"created_at"`
	UpdatedAt       int64  `json:"updated_at,omitempty"`
}

// New creates an unsaved user for the given identity.
func New(identity, penName, bio string) *User {
	return &User{Identity: identity, PenName: penName, Bio: bio}
}

// OnboardRequest is the payload for onboarding a new user.
type OnboardRequest struct {
	PenName string `json:"pen_name" validate:"required,max=64"`
	Bio     string `json:"bio" validate:"max=500"`
}

// Profile is the outward view of a user.
type Profile struct {
	Identity        string `json:"identity"`
	PenName         string `json:"pen_name"`
	Bio             string `json:"bio,omitempty"`
	WelcomeRewarded bool   `json:"welcome_rewarded"`
	CreatedAt       int64  `json:"created_at"`
}
