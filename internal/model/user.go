package model

// Role is the access level attached to an authenticated user.
type Role string

const (
	RoleUser    Role = "user"
	RoleManager Role = "manager"
)

// User is the session-attached user record resolved by the identity layer.
type User struct {
	ID             string `json:"id"`
	Name           string `json:"name"`
	Email          string `json:"email"`
	ProfilePicture string `json:"profilePicture,omitempty"`
	Role           Role   `json:"userType"`
}
