package userservice

// Роли, которые отдаёт UserService
const (
	RoleAdmin      = "admin"
	RoleSpecialist = "specialist"
	RoleClient     = "client"
)

// User идентичность пользователя из UserService
type User struct {
	ID   int64  `json:"id"`
	Role string `json:"role"`
}
