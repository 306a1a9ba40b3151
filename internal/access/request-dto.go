package access

type VerifyPasswordRequest struct {
	Password string `json:"password" binding:"required"`
}
