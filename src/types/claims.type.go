package types

import "github.com/golang-jwt/jwt/v4"

type Claims struct {
	Username    string   `json:"username"`
	Roles       []string `json:"roles"`
	Permissions []string `json:"permissions"`
	SiteID      string   `json:"site_id"`
	UID         string   `json:"uid"`
	jwt.RegisteredClaims
}

// AuthContext resolves the caller identity. The uid claim wins over sub.
func (c Claims) AuthContext() AuthContext {
	uid := c.UID
	if uid == "" {
		uid = c.Subject
	}
	return AuthContext{
		UID:         uid,
		SiteID:      c.SiteID,
		Roles:       c.Roles,
		Permissions: c.Permissions,
	}
}
