package domain

type Role string

const (
	RoleAdmin  Role = "ADMIN"
	RoleVendor Role = "VENDOR"
)

type User struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
	Role  Role   `json:"role"`
}

// CanEditPrices reports whether the user may override unit prices in a cart.
func (u User) CanEditPrices() bool {
	return u.Role == RoleAdmin
}

// CanManageCatalog reports whether the user may mutate products and categories.
func (u User) CanManageCatalog() bool {
	return u.Role == RoleAdmin
}
