package access

type VerifyPasswordResponse struct {
	Success   bool   `json:"success"`
	Token     string `json:"token,omitempty"`
	ExpiresIn int64  `json:"expires_in,omitempty"`
}

type PublicKeyResponse struct {
	PublicKey string `json:"publicKey"`
}
