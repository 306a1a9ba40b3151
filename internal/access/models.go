package access

import "github.com/golang-jwt/jwt/v4"

const (
	RoleOperator    = "OPERATOR"
	TokenTypeAccess = "access"
)

// Claims of the operator token issued by /verify_password
type Claims struct {
	Role string `json:"role"`
	Type string `json:"type"`
	jwt.RegisteredClaims
}
