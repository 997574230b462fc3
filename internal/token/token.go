// Package token はベアラートークン（HS256署名のJWT）の発行と検証を提供する。
// 検証はステートレスで、ユーザーストアへの問い合わせを行わない。
package token

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/hitoshi/todoman/internal/model"
)

// ErrUnauthenticated はトークンが受け入れられない場合に返される。
// 拒否理由はReasonで取り出せるが、クライアントには返さないこと。
var ErrUnauthenticated = errors.New("unauthenticated")

// 拒否理由。ログとメトリクスのラベルに使用する。
const (
	ReasonMissing      = "missing"
	ReasonMalformed    = "malformed"
	ReasonSignature    = "signature"
	ReasonExpired      = "expired"
	ReasonNotYetValid  = "not_yet_valid"
	ReasonInvalidClaim = "invalid_claim"
)

// signingMethod は発行・検証で唯一許可する署名アルゴリズム。
var signingMethod = jwt.SigningMethodHS256

// verifyError は拒否理由を保持するErrUnauthenticated。
type verifyError struct {
	reason string
	cause  error
}

func (e *verifyError) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("unauthenticated (%s): %v", e.reason, e.cause)
	}
	return fmt.Sprintf("unauthenticated (%s)", e.reason)
}

func (e *verifyError) Is(target error) bool { return target == ErrUnauthenticated }

func (e *verifyError) Unwrap() error { return e.cause }

// Reason はVerifyが返したエラーから拒否理由を取り出す。
// 検証エラーでない場合は空文字を返す。
func Reason(err error) string {
	var ve *verifyError
	if errors.As(err, &ve) {
		return ve.reason
	}
	return ""
}

// Config は発行・検証に共通の設定。
type Config struct {
	Secret []byte
	Issuer string
	TTL    time.Duration
	Leeway time.Duration
	// Now は現在時刻の取得関数。nilの場合はtime.Nowを使用する。
	Now func() time.Time
}

func (c Config) now() time.Time {
	if c.Now != nil {
		return c.Now()
	}
	return time.Now()
}

// Issuer はベアラートークンを発行する。
type Issuer struct {
	cfg Config
}

// NewIssuer はIssuerを生成する。
func NewIssuer(cfg Config) *Issuer {
	return &Issuer{cfg: cfg}
}

// Issue はuserIDを主体とするトークンを発行する。
// iatは秒単位に切り捨て、expはiat+TTLとする。
func (i *Issuer) Issue(userID string) (*model.IssuedToken, error) {
	if userID == "" {
		return nil, errors.New("subject is required")
	}

	issuedAt := i.cfg.now().UTC().Truncate(time.Second)
	expiresAt := issuedAt.Add(i.cfg.TTL)

	claims := jwt.RegisteredClaims{
		ID:        uuid.NewString(),
		Subject:   userID,
		Issuer:    i.cfg.Issuer,
		IssuedAt:  jwt.NewNumericDate(issuedAt),
		ExpiresAt: jwt.NewNumericDate(expiresAt),
	}

	signed, err := jwt.NewWithClaims(signingMethod, claims).SignedString(i.cfg.Secret)
	if err != nil {
		return nil, fmt.Errorf("failed to sign token: %w", err)
	}

	return &model.IssuedToken{Token: signed, ExpiresAt: expiresAt}, nil
}

// Verifier はベアラートークンを検証する。副作用を持たない。
type Verifier struct {
	cfg    Config
	parser *jwt.Parser
}

// NewVerifier はVerifierを生成する。
func NewVerifier(cfg Config) *Verifier {
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{signingMethod.Alg()}),
		jwt.WithIssuedAt(),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(cfg.now),
	}
	if cfg.Issuer != "" {
		opts = append(opts, jwt.WithIssuer(cfg.Issuer))
	}
	if cfg.Leeway > 0 {
		opts = append(opts, jwt.WithLeeway(cfg.Leeway))
	}
	return &Verifier{cfg: cfg, parser: jwt.NewParser(opts...)}
}

// Verify は生のトークン文字列を検証し、主張を返す。
// 失敗した場合は常にErrUnauthenticatedとして扱えるエラーを返す。
func (v *Verifier) Verify(raw string) (*model.TokenClaims, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, &verifyError{reason: ReasonMissing}
	}

	var claims jwt.RegisteredClaims
	_, err := v.parser.ParseWithClaims(raw, &claims, func(*jwt.Token) (any, error) {
		return v.cfg.Secret, nil
	})
	if err != nil {
		return nil, &verifyError{reason: classify(err), cause: err}
	}

	if strings.TrimSpace(claims.Subject) == "" {
		return nil, &verifyError{reason: ReasonInvalidClaim, cause: errors.New("subject is empty")}
	}
	if claims.IssuedAt == nil {
		return nil, &verifyError{reason: ReasonInvalidClaim, cause: errors.New("iat is required")}
	}

	return &model.TokenClaims{
		ID:        claims.ID,
		Subject:   claims.Subject,
		Issuer:    claims.Issuer,
		IssuedAt:  claims.IssuedAt.Time.UTC(),
		ExpiresAt: claims.ExpiresAt.Time.UTC(),
	}, nil
}

func classify(err error) string {
	switch {
	case errors.Is(err, jwt.ErrTokenMalformed):
		return ReasonMalformed
	case errors.Is(err, jwt.ErrTokenSignatureInvalid), errors.Is(err, jwt.ErrTokenUnverifiable):
		return ReasonSignature
	case errors.Is(err, jwt.ErrTokenExpired):
		return ReasonExpired
	case errors.Is(err, jwt.ErrTokenUsedBeforeIssued), errors.Is(err, jwt.ErrTokenNotValidYet):
		return ReasonNotYetValid
	default:
		return ReasonInvalidClaim
	}
}
