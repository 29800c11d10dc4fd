package invitee

import (
	"crypto/hmac"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base32"
	"strconv"
	"strings"
	"unicode"

	"github.com/pkg/errors"
)

var (
	tokenSalt = []byte("bed.core.invitee.token")
	b32       = base32.StdEncoding.WithPadding(base32.NoPadding)

	ErrInvalidToken = errors.New("invalid QR code")
)

const sigLen = 8

// TokenSigner derives the QR token shared by the invitees of one student item.
type TokenSigner struct {
	key []byte
}

func NewTokenSigner(signingKey string) *TokenSigner {
	key := sha256.Sum256(append(append([]byte{}, tokenSalt...), signingKey...))
	return &TokenSigner{key: key[:]}
}

// Make returns "<eventID>-<studentItemID>-<NAME>-<SIG>".
// The result only depends on its arguments and the signing key.
func (ts *TokenSigner) Make(eventID, studentItemID int, studentName string) string {
	payload := strconv.Itoa(eventID) + "-" + strconv.Itoa(studentItemID) + "-" + tokenName(studentName)
	return payload + "-" + ts.sign(payload)
}

// Verify checks the token structure and signature.
func (ts *TokenSigner) Verify(token string) error {
	parts := strings.Split(token, "-")
	if len(parts) != 4 {
		return ErrInvalidToken
	}
	for _, p := range parts[:2] {
		if _, err := strconv.Atoi(p); err != nil {
			return ErrInvalidToken
		}
	}
	payload := strings.Join(parts[:3], "-")
	if subtle.ConstantTimeCompare([]byte(ts.sign(payload)), []byte(parts[3])) == 0 {
		return ErrInvalidToken
	}
	return nil
}

func (ts *TokenSigner) sign(payload string) string {
	h := hmac.New(sha256.New, ts.key)
	_, _ = h.Write([]byte(payload))
	return b32.EncodeToString(h.Sum(nil))[:sigLen]
}

// tokenName upper-cases name and collapses every run of other characters than letters and digits to "_".
func tokenName(name string) string {
	var sb strings.Builder
	sep := false
	for _, r := range strings.TrimSpace(name) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			if sep && sb.Len() > 0 {
				sb.WriteByte('_')
			}
			sb.WriteRune(unicode.ToUpper(r))
			sep = false
			continue
		}
		sep = true
	}
	if sb.Len() == 0 {
		return "STUDENT"
	}
	return sb.String()
}
