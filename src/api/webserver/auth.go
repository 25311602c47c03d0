package webserver

import (
	"crypto/subtle"
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/crypto/bcrypt"
)

type Auth struct {
	user         string
	passwordHash []byte
	jwtSecret    []byte
	ttl          time.Duration
}

func NewAuth(user, passwordHash string, secret []byte, ttl time.Duration) Auth {
	return Auth{user: user, passwordHash: []byte(passwordHash), jwtSecret: secret, ttl: ttl}
}

// Login exchanges the dashboard admin credentials for a bearer token.
func (a Auth) Login(c *gin.Context) {
	if a.user == "" || len(a.passwordHash) == 0 || len(a.jwtSecret) == 0 {
		c.JSON(http.StatusServiceUnavailable, gin.H{"err": "login is not configured"})
		return
	}

	var req struct {
		Username string `json:"username" binding:"required,max=64"`
		Password string `json:"password" binding:"required,max=128"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"err": err.Error()})
		return
	}

	userOK := subtle.ConstantTimeCompare([]byte(req.Username), []byte(a.user)) == 1
	passErr := bcrypt.CompareHashAndPassword(a.passwordHash, []byte(req.Password))
	if !userOK || passErr != nil {
		log.Printf("api: failed login for %q from %s", req.Username, c.ClientIP())
		c.JSON(http.StatusUnauthorized, gin.H{"err": "invalid credentials"})
		return
	}

	token, expires, err := issueJWT(req.Username, a.jwtSecret, a.ttl)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"err": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"token": token, "expiresAt": expires.UTC()})
}
