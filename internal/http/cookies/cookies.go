package cookies

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

// TokenName carries the signed access token.
const TokenName = "token"

// Get returns the named cookie's value; empty values count as absent.
func Get(c *gin.Context, name string) (string, bool) {
	v, err := c.Cookie(name)
	if err != nil || v == "" {
		return "", false
	}
	return v, true
}

// Jar writes cookies with the app's attributes: HttpOnly, SameSite=Strict,
// path "/", Secure when configured.
type Jar struct {
	maxAge time.Duration
	secure bool
}

func NewJar(maxAge time.Duration, secure bool) *Jar {
	return &Jar{maxAge: maxAge, secure: secure}
}

func (j *Jar) Set(c *gin.Context, name, value string) {
	c.SetSameSite(http.SameSiteStrictMode)
	c.SetCookie(name, value, int(j.maxAge.Seconds()), "/", "", j.secure, true)
}

func (j *Jar) Clear(c *gin.Context, name string) {
	c.SetSameSite(http.SameSiteStrictMode)
	c.SetCookie(name, "", -1, "/", "", j.secure, true)
}
