package models

type Role string

const (
	RoleCustomer Role = "Customer"
	RoleProvider Role = "Provider"
	RoleAdmin    Role = "Admin"
)

// CanSignUp reports whether accounts of this role may be created through registration.
func (r Role) CanSignUp() bool {
	return r == RoleCustomer || r == RoleProvider
}

type User struct {
	ID               string     `json:"id"`
	Name             string     `json:"name"`
	Email            string     `json:"email"`
	Role             Role       `json:"role"`
	Image            string     `json:"image"`
	Active           bool       `json:"active"`
	HasAcceptedTerms bool       `json:"hasAcceptedTerms"`
	IsOnline         bool       `json:"isOnline"`
	LastSeen         *Timestamp `json:"lastSeen,omitempty"`
	CreatedAt        *Timestamp `json:"createdAt,omitempty"`
}
