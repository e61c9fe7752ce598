package auth

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"errors"
	"strings"
	"time"
)

var ErrInvalidToken = errors.New("invalid token")

const (
	RoleAdmin    = "admin"
	RoleStaff    = "staff"
	RoleCustomer = "customer"
)

// Issuer is stamped on every token this package signs.
const Issuer = "glowstudio"

// clockSkew tolerates small drift between the issuing and verifying hosts.
const clockSkew = 30 * time.Second

type Claims struct {
	Sub  string `json:"sub"`
	Role string `json:"role"`
	Iss  string `json:"iss,omitempty"`
	Exp  int64  `json:"exp"`
	Iat  int64  `json:"iat"`
}

type header struct {
	Alg string `json:"alg"`
	Typ string `json:"typ"`
}

// Issue signs a token for subject/role valid for ttl from now.
func Issue(subject, role string, ttl time.Duration, secret string) (string, error) {
	now := time.Now()
	return SignHS256(Claims{
		Sub:  subject,
		Role: role,
		Iss:  Issuer,
		Iat:  now.Unix(),
		Exp:  now.Add(ttl).Unix(),
	}, secret)
}

func SignHS256(claims Claims, secret string) (string, error) {
	if secret == "" {
		return "", errors.New("auth: empty signing secret")
	}
	headerJSON, err := json.Marshal(header{Alg: "HS256", Typ: "JWT"})
	if err != nil {
		return "", err
	}
	payloadJSON, err := json.Marshal(claims)
	if err != nil {
		return "", err
	}

	unsigned := base64.RawURLEncoding.EncodeToString(headerJSON) + "." + base64.RawURLEncoding.EncodeToString(payloadJSON)
	return unsigned + "." + sign(unsigned, secret), nil
}

// ParseAndVerifyHS256 checks the signature, the declared algorithm, expiry and
// issue time. Any failure is reported as ErrInvalidToken.
func ParseAndVerifyHS256(token, secret string) (*Claims, error) {
	if secret == "" {
		return nil, ErrInvalidToken
	}
	parts := strings.Split(token, ".")
	if len(parts) != 3 {
		return nil, ErrInvalidToken
	}
	if !hmac.Equal([]byte(parts[2]), []byte(sign(parts[0]+"."+parts[1], secret))) {
		return nil, ErrInvalidToken
	}

	var h header
	if err := decodeSegment(parts[0], &h); err != nil || h.Alg != "HS256" {
		return nil, ErrInvalidToken
	}
	var claims Claims
	if err := decodeSegment(parts[1], &claims); err != nil {
		return nil, ErrInvalidToken
	}

	now := time.Now()
	if claims.Exp > 0 && now.After(time.Unix(claims.Exp, 0).Add(clockSkew)) {
		return nil, ErrInvalidToken
	}
	if claims.Iat > 0 && time.Unix(claims.Iat, 0).After(now.Add(clockSkew)) {
		return nil, ErrInvalidToken
	}
	return &claims, nil
}

func decodeSegment(seg string, v any) error {
	raw, err := base64.RawURLEncoding.DecodeString(seg)
	if err != nil {
		return err
	}
	return json.Unmarshal(raw, v)
}

func sign(data, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	_, _ = mac.Write([]byte(data))
	return base64.RawURLEncoding.EncodeToString(mac.Sum(nil))
}
