package user

import (
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Mohammed01doitesky/bed/core"
)

func TestPasswordSimilarity(t *testing.T) {
	assert.Equal(t, float64(0), PasswordSimilarity("Sup3r!Secret", ""))
	assert.Equal(t, float64(1), PasswordSimilarity("abcd", "ABCD"))
	assert.Equal(t, .75, PasswordSimilarity("Johnny2024", "johnny"))
	assert.Less(t, PasswordSimilarity("Sup3r!Secret", "boss"), pwdMaxSim)
}

func Test_userStructValidation(t *testing.T) {
	translator := core.NewTranslator()
	validate := validator.New()
	core.InitValidators(validate, translator)
	InitValidators(validate, translator)

	fieldErrors := func(t *testing.T, err error) map[string]string {
		if err == nil {
			return nil
		}
		vErrs, ok := err.(validator.ValidationErrors)
		require.True(t, ok, "unexpected error %v", err)
		errs := make(map[string]string, len(vErrs))
		for _, e := range vErrs {
			errs[e.Field()] = e.Translate(translator)
		}
		return errs
	}

	newUser := func(uname, pwd, role string) NewUser {
		return NewUser{Username: uname, Email: uname + "@bed.test", Password: pwd, Role: role}
	}

	tests := []struct {
		name string
		usr  interface{}
		want map[string]string
	}{
		{name: "valid", usr: newUser("jdoe", "Sup3r!Secret", RoleUser)},
		{name: "too short", usr: newUser("jdoe", "Ab1!", RoleUser), want: map[string]string{"password": pwdMinLenText}},
		{name: "whitespace", usr: newUser("jdoe", "pass word1", RoleUser), want: map[string]string{"password": pwdNoSpaceText}},
		{name: "all numeric", usr: newUser("jdoe", "1234567890", RoleUser), want: map[string]string{"password": pwdNotAllNumText}},
		{name: "like the username", usr: newUser("johnny", "Johnny2024", RoleUser), want: map[string]string{"password": pwdAttrSimText}},
		{name: "like the email", usr: newUser("jdoe", "JDoe@Bed", RoleUser), want: map[string]string{"password": pwdAttrSimText}},
		{name: "invalid username", usr: newUser("j doe", "Sup3r!Secret", RoleUser), want: map[string]string{
			"username": "only alphanumeric characters and underscores are allowed",
			"email":    "invalid email format",
		}},
		{name: "invalid role", usr: newUser("jdoe", "Sup3r!Secret", "root"), want: map[string]string{"role": roleText}},
		{name: "update without password", usr: UpdateUser{Username: "jdoe", Email: "jdoe@bed.test"}},
		{name: "update with weak password", usr: UpdateUser{Username: "jdoe", Email: "jdoe@bed.test", Password: "short"},
			want: map[string]string{"password": pwdMinLenText}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, fieldErrors(t, validate.Struct(tt.usr)))
		})
	}
}
