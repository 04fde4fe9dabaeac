package middleware

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/m04kA/SMC-AppointmentService/internal/api/handlers"
	"github.com/m04kA/SMC-AppointmentService/internal/domain"
	"github.com/m04kA/SMC-AppointmentService/internal/integrations/userservice"
)

// UserIDHeader заголовок с ID пользователя, проставляется шлюзом после аутентификации
const UserIDHeader = "X-User-ID"

const (
	msgMissingUserID = "отсутствует ID пользователя"
	msgUnknownUser   = "пользователь не найден"
	msgForbidden     = "доступ запрещен"
)

type requesterKey struct{}

// WithRequester кладёт пользователя в контекст
func WithRequester(ctx context.Context, requester domain.Requester) context.Context {
	return context.WithValue(ctx, requesterKey{}, requester)
}

// GetRequester достаёт пользователя, положенного Auth
func GetRequester(ctx context.Context) (domain.Requester, bool) {
	requester, ok := ctx.Value(requesterKey{}).(domain.Requester)
	return requester, ok
}

// Auth читает X-User-ID, узнаёт роль в UserService и кладёт domain.Requester в контекст.
// 401, если заголовка нет или пользователь неизвестен.
func Auth(users UserResolver, logger Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw := r.Header.Get(UserIDHeader)
			userID, err := strconv.ParseInt(raw, 10, 64)
			if raw == "" || err != nil || userID <= 0 {
				logger.Warn("Auth: missing or invalid %s header: %q", UserIDHeader, raw)
				handlers.RespondUnauthorized(w, msgMissingUserID)
				return
			}

			user, err := users.GetUser(r.Context(), userID)
			if err != nil {
				if errors.Is(err, userservice.ErrUserNotFound) {
					logger.Warn("Auth: user id=%d not found", userID)
					handlers.RespondUnauthorized(w, msgUnknownUser)
					return
				}
				if errors.Is(err, userservice.ErrUnknownRole) {
					logger.Warn("Auth: user id=%d has no usable role: %v", userID, err)
					handlers.RespondForbidden(w, msgForbidden)
					return
				}
				logger.Error("Auth: failed to resolve user id=%d: %v", userID, err)
				handlers.RespondInternalError(w)
				return
			}

			requester := domain.Requester{UserID: user.ID, Role: domain.Role(user.Role)}
			next.ServeHTTP(w, r.WithContext(WithRequester(r.Context(), requester)))
		})
	}
}

// RequireRoles пропускает только перечисленные роли, остальным 403
func RequireRoles(logger Logger, roles ...domain.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			requester, ok := GetRequester(r.Context())
			if !ok {
				handlers.RespondUnauthorized(w, msgMissingUserID)
				return
			}
			for _, role := range roles {
				if requester.Role == role {
					next.ServeHTTP(w, r)
					return
				}
			}
			logger.Warn("RequireRoles: user=%d with role=%s denied for %s %s", requester.UserID, requester.Role, r.Method, r.URL.Path)
			handlers.RespondForbidden(w, msgForbidden)
		})
	}
}
