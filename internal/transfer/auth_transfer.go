package transfer

import "github.com/golang-jwt/jwt/v5"

type CustomClaims struct {
	UserID       string `json:"user_id"`
	WorkspaceID  string `json:"workspace_id"`
	CodeVerifier string `json:"code_verifier,omitempty"`
	jwt.RegisteredClaims
}

type GoogleUserInfo struct {
	ID      string `json:"id"`
	Email   string `json:"email"`
	Name    string `json:"name"`
	Picture string `json:"picture"`
}
