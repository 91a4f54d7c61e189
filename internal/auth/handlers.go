package auth

import (
	"context"

	"broker-backend/internal/middleware"
	"broker-backend/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

const userSessionsPrefix = "user_sessions:"

// Handlers holds dependencies for auth endpoints.
type Handlers struct {
	DB         *gorm.DB
	UserFinder UserFinder
	Rdb        *redis.Client
	Config     middleware.SessionConfig
}

// Login POST /api/v1/auth/login — authenticate, create session, set cookie.
func (h *Handlers) Login(c *fiber.Ctx) error {
	if h.UserFinder == nil {
		return response.Error(c, "Internal Server Error", fiber.StatusInternalServerError, nil)
	}
	var req LoginInput
	if err := c.BodyParser(&req); err != nil {
		return response.Error(c, ErrEmailPasswordRequired.Error(), fiber.StatusBadRequest, nil)
	}
	if req.Email == "" || req.Password == "" {
		return response.Error(c, ErrEmailPasswordRequired.Error(), fiber.StatusBadRequest, nil)
	}

	user, err := h.UserFinder.FindByEmailAndPassword(req.Email, req.Password)
	if err != nil {
		switch err {
		case ErrEmailPasswordRequired:
			return response.Error(c, err.Error(), fiber.StatusBadRequest, nil)
		case ErrInvalidEmail, ErrIncorrectPassword:
			return response.Error(c, err.Error(), fiber.StatusUnauthorized, nil)
		default:
			return response.Error(c, "Internal Server Error", fiber.StatusInternalServerError, nil)
		}
	}

	sessionID := middleware.RegenerateSessionID(c)
	middleware.SetSessionUser(c, middleware.SessionUser{
		UserID:   user.UserID.String(),
		Fullname: user.Fullname,
		Email:    user.Email,
		Role:     user.Role,
	})

	if h.Rdb != nil {
		if err := h.Rdb.SAdd(context.Background(), userSessionsPrefix+user.UserID.String(), sessionID).Err(); err != nil {
			return response.Error(c, "Internal Server Error", fiber.StatusInternalServerError, nil)
		}
	}

	cookie := middleware.SessionCookieConfig(h.Config)
	cookie.Value = "s:" + sessionID
	c.Cookie(&cookie)

	return response.Success(c, "Login successful", fiber.Map{
		"user_id":  user.UserID,
		"fullname": user.Fullname,
		"email":    user.Email,
		"role":     user.Role,
	}, nil)
}

// Register POST /api/v1/auth/register — create the account, then behave like
// login (fresh session + cookie).
func (h *Handlers) Register(c *fiber.Ctx) error {
	if h.DB == nil {
		return response.Error(c, "Internal Server Error", fiber.StatusInternalServerError, nil)
	}
	var req RegisterInput
	if err := c.BodyParser(&req); err != nil {
		return response.Error(c, "Invalid request body", fiber.StatusBadRequest, nil)
	}
	user, err := RegisterUser(h.DB, req)
	if err != nil {
		switch err {
		case ErrBadEmail, ErrWeakPassword, ErrBadFullname:
			return response.Error(c, err.Error(), fiber.StatusBadRequest, nil)
		case ErrEmailTaken:
			return response.Error(c, err.Error(), fiber.StatusConflict, nil)
		default:
			return response.Error(c, "Internal Server Error", fiber.StatusInternalServerError, nil)
		}
	}

	sessionID := middleware.RegenerateSessionID(c)
	middleware.SetSessionUser(c, middleware.SessionUser{
		UserID:   user.UserID.String(),
		Fullname: user.Fullname,
		Email:    user.Email,
		Role:     user.Role,
	})
	if h.Rdb != nil {
		_ = h.Rdb.SAdd(context.Background(), userSessionsPrefix+user.UserID.String(), sessionID).Err()
	}
	cookie := middleware.SessionCookieConfig(h.Config)
	cookie.Value = "s:" + sessionID
	c.Cookie(&cookie)

	return response.SuccessCreated(c, "Account created", fiber.Map{
		"user_id":  user.UserID,
		"fullname": user.Fullname,
		"email":    user.Email,
		"role":     user.Role,
	}, nil)
}

// Me GET /api/v1/auth/me — returns the session user.
func (h *Handlers) Me(c *fiber.Ctx) error {
	user, err := VerifyUser(middleware.GetUser(c))
	if err != nil {
		return response.Unauthorized(c, err.Error())
	}
	return response.Success(c, "Authenticated", user, nil)
}

// Logout DELETE /api/v1/auth/logout — drop the Redis session and clear the
// cookie.
func (h *Handlers) Logout(c *fiber.Ctx) error {
	sessionID := middleware.GetSessionID(c)
	if sessionID != "" && h.Rdb != nil {
		_ = h.Rdb.Del(context.Background(), middleware.SessionRedisPrefix+sessionID).Err()
	}
	middleware.ClearSessionUser(c)

	cookie := middleware.SessionCookieConfig(h.Config)
	cookie.Value = ""
	cookie.MaxAge = -1
	c.Cookie(&cookie)

	return response.Success(c, "Logged out", nil, nil)
}
