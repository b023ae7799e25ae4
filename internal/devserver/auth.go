package devserver

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"

	"deskline.app/chatsync/common/id"
	"deskline.app/chatsync/internal/model"
)

const currentUserKey = "current_user"

type devClaims struct {
	Name  string `json:"name"`
	Email string `json:"email"`
	Role  string `json:"role"`
	jwt.RegisteredClaims
}

// mintToken registers the employee and signs an HS256 dev token carrying
// the same claims shape the production auth service issues.
func mintToken(store *memStore, secret string, req mintTokenRequest) (string, string, error) {
	userID := id.NewString()
	store.upsertEmployee(model.Employee{
		ID:         userID,
		Name:       req.Name,
		Email:      req.Email,
		Role:       model.Role(req.Role),
		Department: req.Department,
	})

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, devClaims{
		Name:  req.Name,
		Email: req.Email,
		Role:  req.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			Issuer:    "chatsync-devserver",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(24 * time.Hour)),
		},
	})
	signed, err := token.SignedString([]byte(secret))
	if err != nil {
		return "", "", fmt.Errorf("signing token: %w", err)
	}
	return signed, userID, nil
}

// authMiddleware verifies the bearer token and resolves the caller.
func authMiddleware(store *memStore, secret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		tokenString, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || tokenString == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing bearer token"})
			return
		}

		var claims devClaims
		_, err := jwt.ParseWithClaims(tokenString, &claims, func(t *jwt.Token) (any, error) {
			if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
			}
			return []byte(secret), nil
		})
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			return
		}

		user, ok := store.employee(claims.Subject)
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unknown user"})
			return
		}

		c.Set(currentUserKey, user)
		c.Next()
	}
}

func currentUser(c *gin.Context) model.Employee {
	return c.MustGet(currentUserKey).(model.Employee)
}
