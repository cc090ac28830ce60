package model

// UserRole is the role assigned to an account at signup.
type UserRole string

const (
	RoleUser  UserRole = "user"
	RoleAdmin UserRole = "admin"
)
