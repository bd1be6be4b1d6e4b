package auth

import "github.com/golang-jwt/jwt/v5"

// HorosClaims defines the unified JWT claims structure for HOROS services.
// It embeds jwt.RegisteredClaims for standard fields (exp, iat, etc.) and
// adds the fields miroir needs for user identity and ownership scoping.
type HorosClaims struct {
	jwt.RegisteredClaims
	UserID      string `json:"user_id"`
	Email       string `json:"email,omitempty"`
	DisplayName string `json:"display_name,omitempty"`
	Role        string `json:"role"`
}
