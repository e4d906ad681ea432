package models

// User is an operator account of the control panel. Usernames are stored lowercase.
type User struct {
	ID           int    `json:"id"`
	Username     string `json:"username"`
	PasswordHash string `json:"-"`
}
