package jwttoken

import (
	authmw "siren/internal/platform/middleware"
)

// Middleware returns the validator RequireAuth expects. The middleware only
// sees the caller id and token id, never the registered claims.
func (s *JWTService) Middleware() authmw.JWTValidator {
	return middlewareValidator{service: s}
}

type middlewareValidator struct {
	service *JWTService
}

func (v middlewareValidator) ValidateToken(tokenString string) (*authmw.JWTClaims, error) {
	claims, err := v.service.ValidateToken(tokenString)
	if err != nil {
		return nil, err
	}
	return &authmw.JWTClaims{UserID: claims.UserID, JTI: claims.ID}, nil
}
