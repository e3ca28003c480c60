package models

// Roles are an open set; these are the two the API gives meaning to.
// Comparison is exact and case-sensitive.
const (
	RoleUser  = "User"
	RoleAdmin = "Admin"
)

// NewAdmin creates a user model with Role preset to Admin.
func NewAdmin(username, passwordHash string) *User {
	return &User{Username: username, PasswordHash: passwordHash, Role: RoleAdmin}
}
