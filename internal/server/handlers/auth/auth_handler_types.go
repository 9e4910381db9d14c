package auth

type OTPRequest struct {
	Email string `json:"email" binding:"required"`
}

type OTPRequestResponse struct {
	Email            string `json:"email"`
	ExpiresInSeconds int    `json:"expiresInSeconds"`
}

type OTPVerifyRequest struct {
	Email string `json:"email" binding:"required"`
	Code  string `json:"code" binding:"required"`
}

type RefreshRequest struct {
	RefreshToken string `json:"refreshToken" binding:"required"`
}

// TokenResponse answers both a verified code and a refresh.
type TokenResponse struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
	TokenType    string `json:"tokenType"`
}

func tokenResponse(access, refresh string) *TokenResponse {
	return &TokenResponse{AccessToken: access, RefreshToken: refresh, TokenType: "Bearer"}
}
