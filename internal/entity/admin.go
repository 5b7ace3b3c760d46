package entity

const RoleAdmin = "admin"

// Admin is the single operator account allowed to edit the catalog.
type Admin struct {
	Username     string
	PasswordHash string
}

type AdminLoginData struct {
	ID       string
	Username string
	Role     string
}
