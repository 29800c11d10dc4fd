package invitee

import (
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTokenSigner_Make(t *testing.T) {
	ts := NewTokenSigner("secret")

	token := ts.Make(12, 34, "  sara al-ahmed ")
	assert.Regexp(t, regexp.MustCompile(`^12-34-SARA_AL_AHMED-[A-Z2-7]{8}$`), token)
	assert.Equal(t, token, ts.Make(12, 34, "  sara al-ahmed "), "tokens must be deterministic")
	assert.Equal(t, token, NewTokenSigner("secret").Make(12, 34, "  sara al-ahmed "))

	assert.NotEqual(t, token, ts.Make(12, 35, "  sara al-ahmed "))
	assert.NotEqual(t, token, NewTokenSigner("other secret").Make(12, 34, "  sara al-ahmed "))
}

func Test_tokenName(t *testing.T) {
	tests := []struct {
		name string
		want string
	}{
		{name: "Sara", want: "SARA"},
		{name: "  sara al-ahmed ", want: "SARA_AL_AHMED"},
		{name: "O'Brien,  Jr.", want: "O_BRIEN_JR"},
		{name: "Ali!!", want: "ALI"},
		{name: "student 42", want: "STUDENT_42"},
		{name: "أحمد علي", want: "أحمد_علي"},
		{name: "--", want: "STUDENT"},
		{name: "", want: "STUDENT"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tokenName(tt.name))
		})
	}
}

func TestTokenSigner_Verify(t *testing.T) {
	ts := NewTokenSigner("secret")
	token := ts.Make(1, 2, "Sara")
	sig := token[len(token)-sigLen:]

	assert.NoError(t, ts.Verify(token))

	tests := []struct {
		name  string
		token string
	}{
		{name: "empty", token: ""},
		{name: "missing signature", token: "1-2-SARA"},
		{name: "too many parts", token: "1-2-SARA-X-" + sig},
		{name: "non numeric event", token: "a-2-SARA-" + sig},
		{name: "non numeric item", token: "1-b-SARA-" + sig},
		{name: "tampered item", token: "1-3-SARA-" + sig},
		{name: "tampered name", token: "1-2-SAMI-" + sig},
		{name: "other secret", token: NewTokenSigner("other").Make(1, 2, "Sara")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, ErrInvalidToken, ts.Verify(tt.token))
		})
	}
}
