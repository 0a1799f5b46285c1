package server

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/aquawaran/Clon-Official/internal/middleware"
	"github.com/aquawaran/Clon-Official/internal/models"
	"github.com/aquawaran/Clon-Official/internal/service"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const (
	tokenIssuer   = "clon-api"
	tokenAudience = "clon-client"
	tokenTTL      = 7 * 24 * time.Hour

	wsTicketTTL = 30 * time.Second
	// A consumed ticket stays valid in-process this long so a handshake
	// that passes through the middleware more than once still succeeds.
	consumedTicketTTL = 10 * time.Second
)

type consumedTicketEntry struct {
	userID  string
	expires time.Time
}

// generateToken creates a JWT for the given user.
func (s *Server) generateToken(user *models.User) (string, error) {
	if s.config.JWTSecret == "" {
		return "", fmt.Errorf("JWT secret not configured")
	}

	now := time.Now()
	claims := jwt.MapClaims{
		"sub":       user.ID,
		"public_id": fmt.Sprintf("%d", user.PublicID),
		"iss":       tokenIssuer,
		"aud":       tokenAudience,
		"exp":       now.Add(tokenTTL).Unix(),
		"iat":       now.Unix(),
		"nbf":       now.Unix(),
		"jti":       s.generateJTI(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(s.config.JWTSecret))
}

func (s *Server) generateJTI() string {
	return fmt.Sprintf("%d-%s", time.Now().Unix(), uuid.New().String()[:8])
}

func (s *Server) parseToken(tokenString string) (jwt.MapClaims, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fiber.NewError(fiber.StatusUnauthorized, "Invalid signing method")
		}
		return []byte(s.config.JWTSecret), nil
	},
		jwt.WithIssuer(tokenIssuer),
		jwt.WithAudience(tokenAudience),
		jwt.WithExpirationRequired(),
	)
	if err != nil || !token.Valid {
		return nil, models.NewUnauthorizedError("Invalid or expired token")
	}
	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return nil, models.NewUnauthorizedError("Invalid token claims")
	}
	return claims, nil
}

func (s *Server) setUser(c *fiber.Ctx, userID string) {
	c.Locals("userID", userID)
	c.SetUserContext(middleware.WithUserID(c.UserContext(), userID))
}

// AuthRequired returns the authentication middleware
func (s *Server) AuthRequired() fiber.Handler {
	return func(c *fiber.Ctx) error {
		isWSPath := c.Path() == "/api/ws"

		// WebSocket upgrades authenticate with a short-lived, single-use ticket.
		if isWSPath {
			ticket := c.Query("ticket")
			if ticket == "" {
				return models.Respond(c, models.NewUnauthorizedError("WebSocket ticket required"))
			}
			userID, ok := s.consumeTicket(c, ticket)
			if !ok {
				return models.Respond(c, models.NewUnauthorizedError("Invalid or expired WebSocket ticket"))
			}
			s.setUser(c, userID)
			c.Locals("wsTicket", ticket)
			return c.Next()
		}

		tokenString := ""
		if parts := strings.Split(c.Get("Authorization"), " "); len(parts) == 2 && parts[0] == "Bearer" {
			tokenString = parts[1]
		}
		if tokenString == "" {
			return models.Respond(c, models.NewUnauthorizedError("Authorization required"))
		}

		claims, err := s.parseToken(tokenString)
		if err != nil {
			return models.Respond(c, err)
		}

		sub, _ := claims["sub"].(string)
		if sub == "" {
			return models.Respond(c, models.NewUnauthorizedError("Invalid subject claim"))
		}

		if jti, _ := claims["jti"].(string); jti != "" {
			if s.redis != nil {
				revoked, err := s.redis.Exists(c.UserContext(), "blacklist:"+jti).Result()
				if err == nil && revoked > 0 {
					return models.Respond(c, models.NewUnauthorizedError("Token has been revoked"))
				}
			}
			c.Locals("jti", jti)
		}
		if exp, err := claims.GetExpirationTime(); err == nil && exp != nil {
			c.Locals("tokenExp", exp.Time)
		}

		s.setUser(c, sub)
		return c.Next()
	}
}

// consumeTicket resolves a websocket ticket to its user. The Redis entry is
// removed on first use.
func (s *Server) consumeTicket(c *fiber.Ctx, ticket string) (string, bool) {
	now := time.Now()

	s.consumedTicketsMu.Lock()
	for t, e := range s.consumedTickets {
		if now.After(e.expires) {
			delete(s.consumedTickets, t)
		}
	}
	if e, ok := s.consumedTickets[ticket]; ok {
		s.consumedTicketsMu.Unlock()
		return e.userID, true
	}
	s.consumedTicketsMu.Unlock()

	if s.redis == nil {
		return "", false
	}
	userID, err := s.redis.GetDel(c.UserContext(), "ws_ticket:"+ticket).Result()
	if err != nil || userID == "" {
		if err != nil && !errors.Is(err, redis.Nil) {
			middleware.Logger.WarnContext(c.UserContext(), "ws ticket lookup failed", "error", err.Error())
		}
		return "", false
	}

	s.consumedTicketsMu.Lock()
	s.consumedTickets[ticket] = consumedTicketEntry{userID: userID, expires: now.Add(consumedTicketTTL)}
	s.consumedTicketsMu.Unlock()
	return userID, true
}

// CreatorRequired rejects everyone except the creator. Must run after
// AuthRequired.
func (s *Server) CreatorRequired() fiber.Handler {
	return func(c *fiber.Ctx) error {
		user, err := s.userRepo.GetByID(c.UserContext(), currentUserID(c))
		if err != nil {
			return models.Respond(c, err)
		}
		if !user.IsCreator {
			return models.Respond(c, models.NewForbiddenError("Creator access required"))
		}
		return c.Next()
	}
}

func (s *Server) requireUpgrade(c *fiber.Ctx) error {
	if websocket.IsWebSocketUpgrade(c) {
		return c.Next()
	}
	return fiber.ErrUpgradeRequired
}

type loginRequest struct {
	Email    string `json:"email" validate:"required"`
	Password string `json:"password" validate:"required"`
}

// Register handles POST /api/register
func (s *Server) Register(c *fiber.Ctx) error {
	var req service.RegisterInput
	if err := c.BodyParser(&req); err != nil {
		return models.Respond(c, models.NewValidationError("Invalid request body"))
	}

	user, err := s.userService.Register(c.UserContext(), req)
	if err != nil {
		return models.Respond(c, err)
	}

	token, err := s.generateToken(user)
	if err != nil {
		return models.Respond(c, models.NewInternalError(err))
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"token": token,
		"user":  ownProfile(user),
	})
}

// Login handles POST /api/login
func (s *Server) Login(c *fiber.Ctx) error {
	var req loginRequest
	if err := c.BodyParser(&req); err != nil {
		return models.Respond(c, models.NewValidationError("Invalid request body"))
	}
	if err := validateRequest(req); err != nil {
		return models.Respond(c, err)
	}

	user, err := s.userService.Authenticate(c.UserContext(), req.Email, req.Password)
	if err != nil {
		return models.Respond(c, err)
	}

	token, err := s.generateToken(user)
	if err != nil {
		return models.Respond(c, models.NewInternalError(err))
	}

	return c.JSON(fiber.Map{
		"token": token,
		"user":  ownProfile(user),
	})
}

// Logout revokes the presented token until it would have expired anyway.
func (s *Server) Logout(c *fiber.Ctx) error {
	jti, _ := c.Locals("jti").(string)
	exp, _ := c.Locals("tokenExp").(time.Time)
	if jti != "" && s.redis != nil {
		ttl := time.Until(exp)
		if ttl <= 0 {
			ttl = time.Minute
		}
		if err := s.redis.Set(c.UserContext(), "blacklist:"+jti, "1", ttl).Err(); err != nil {
			return models.Respond(c, models.NewUnavailableError(err))
		}
	}
	return c.JSON(fiber.Map{"message": "Logged out"})
}

// IssueWSTicket handles POST /api/ws/ticket
func (s *Server) IssueWSTicket(c *fiber.Ctx) error {
	if s.redis == nil {
		return models.Respond(c, models.NewUnavailableError(errors.New("redis not configured")))
	}

	ticket := uuid.NewString()
	if err := s.redis.Set(c.UserContext(), "ws_ticket:"+ticket, currentUserID(c), wsTicketTTL).Err(); err != nil {
		return models.Respond(c, models.NewUnavailableError(err))
	}

	return c.JSON(fiber.Map{
		"ticket":     ticket,
		"expires_in": int(wsTicketTTL.Seconds()),
	})
}
