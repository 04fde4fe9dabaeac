package domain

// Role роль пользователя, определяется внешним сервисом пользователей
type Role string

const (
	RoleAdmin      Role = "admin"
	RoleSpecialist Role = "specialist"
	RoleClient     Role = "client"
)

// Requester кто выполняет запрос
type Requester struct {
	UserID int64
	Role   Role
}

func (r Requester) IsAdmin() bool      { return r.Role == RoleAdmin }
func (r Requester) IsSpecialist() bool { return r.Role == RoleSpecialist }
