package entity

import "time"

// Employee roles.
const (
	RoleEmployee = "employee"
	RoleManager  = "manager"
)

// Employee is a resolved caller identity. Credential verification happens at
// the HTTP boundary; everything below it works with this struct.
type Employee struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Role      string    `json:"role"`
	ManagerID *int64    `json:"manager_id,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// IsManager returns true if the employee can review submitted lines.
func (e *Employee) IsManager() bool {
	return e.Role == RoleManager
}
