package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/nurlyy/task_notifier/pkg/auth"
	"github.com/nurlyy/task_notifier/pkg/logger"
)

// AuthMiddleware предоставляет middleware для аутентификации пользователей.
// Токены выпускает внешний сервис аутентификации, здесь они только
// проверяются. Проверка ролей выполняется в обработчиках.
type AuthMiddleware struct {
	jwtManager *auth.JWTManager
	logger     logger.Logger
}

// NewAuthMiddleware создает новый экземпляр AuthMiddleware
func NewAuthMiddleware(jwtManager *auth.JWTManager, logger logger.Logger) *AuthMiddleware {
	return &AuthMiddleware{
		jwtManager: jwtManager,
		logger:     logger,
	}
}

// Authenticate проверяет наличие и валидность JWT токена
// и кладет идентификатор, почту и роль пользователя в контекст запроса
func (m *AuthMiddleware) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		authHeader := r.Header.Get("Authorization")
		if authHeader == "" {
			http.Error(w, "Authorization header required", http.StatusUnauthorized)
			return
		}

		token, ok := bearerToken(authHeader)
		if !ok {
			http.Error(w, "Invalid Authorization header format", http.StatusUnauthorized)
			return
		}

		claims, err := m.jwtManager.VerifyToken(token)
		if err != nil {
			m.logger.Warn("Invalid JWT token", map[string]interface{}{"error": err.Error()})
			http.Error(w, "Invalid or expired token", http.StatusUnauthorized)
			return
		}

		// Refresh-токены для доступа к API не годятся
		if claims.Type != string(auth.AccessToken) {
			http.Error(w, "Invalid token type", http.StatusUnauthorized)
			return
		}

		ctx := context.WithValue(r.Context(), "user_id", claims.UserID)
		ctx = context.WithValue(ctx, "user_email", claims.Email)
		ctx = context.WithValue(ctx, "user_role", claims.Role)

		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// bearerToken извлекает токен из заголовка вида "Bearer <token>"
func bearerToken(header string) (string, bool) {
	parts := strings.Split(header, " ")
	if len(parts) != 2 || parts[0] != "Bearer" {
		return "", false
	}
	return parts[1], true
}
