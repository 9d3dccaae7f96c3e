package security

import (
	"errors"
	"time"

	"github.com/go-chi/jwtauth/v5"
	"github.com/golang-jwt/jwt/v5"
)

const dispatchSubject = "solve-dispatch"

var (
	TokenAuth *jwtauth.JWTAuth
	tokenTTL  time.Duration
)

// InitJWT configures the HS256 signer shared by the job dispatcher and the worker endpoint.
func InitJWT(secret []byte, ttl time.Duration) {
	TokenAuth = jwtauth.New("HS256", secret, nil)
	tokenTTL = ttl
}

// GenerateDispatchToken signs a short-lived token that authorizes running exactly one job.
func GenerateDispatchToken(jobID string) (string, error) {
	if TokenAuth == nil {
		return "", errors.New("jwt signer not initialized")
	}
	now := time.Now()
	claims := jwt.MapClaims{
		"job_id": jobID,
		"sub":    dispatchSubject,
		"exp":    now.Add(tokenTTL).Unix(),
		"iat":    now.Unix(),
	}
	_, tokenString, err := TokenAuth.Encode(claims)
	return tokenString, err
}

func GetJobIDFromClaims(claims jwt.MapClaims) (string, error) {
	if sub, _ := claims["sub"].(string); sub != dispatchSubject {
		return "", errors.New("token is not a dispatch token")
	}
	id, ok := claims["job_id"].(string)
	if !ok || id == "" {
		return "", errors.New("job_id claim is missing or not a string")
	}
	return id, nil
}
