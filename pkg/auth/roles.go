package auth

// Роли пользователей, известные системе уведомлений
const (
	RoleAdmin   = "admin"
	RoleManager = "manager"
	RoleMember  = "member"
)

// RoleChecker проверяет наличие у пользователя одной из ролей.
// Единая точка авторизационных решений для этого сервиса.
type RoleChecker interface {
	HasRole(userRole string, roles ...string) bool
}

// ClaimsRoleChecker реализует RoleChecker на основе роли из JWT claims
type ClaimsRoleChecker struct{}

// NewRoleChecker создает новый экземпляр ClaimsRoleChecker
func NewRoleChecker() *ClaimsRoleChecker {
	return &ClaimsRoleChecker{}
}

// HasRole возвращает true, если роль пользователя входит в список
func (c *ClaimsRoleChecker) HasRole(userRole string, roles ...string) bool {
	for _, role := range roles {
		if userRole == role {
			return true
		}
	}
	return false
}
