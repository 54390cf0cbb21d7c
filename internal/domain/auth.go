package domain

import (
	"github.com/golang-jwt/jwt/v5"
)

// Scopes, которые хост-шелл получает в токене.
const (
	ScopePlacementCheck = "placement.check"
	ScopeRulesAdmin     = "rules.admin"
)

// CustomClaims — токен хоста (игрового сервера или его админки), подписанный RS256.
type CustomClaims struct {
	ServerID string          `json:"server_id"`
	Scopes   map[string]bool `json:"scopes"` // "placement.check": true, "rules.admin": true
	jwt.RegisteredClaims
}
