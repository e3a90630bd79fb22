package user

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"natours/errors"
)

func testHasher() *Hasher {
	return NewHasher(4)
}

func TestSignup_NewUser(t *testing.T) {
	s := Signup{
		Name:            " Jonas ",
		Email:           "Hello@Jonas.IO",
		Password:        "pass1234",
		PasswordConfirm: "pass1234",
	}
	u, err := s.NewUser(testHasher())
	require.NoError(t, err)

	assert.Equal(t, "Jonas", u.Name)
	assert.Equal(t, "hello@jonas.io", u.Email)
	assert.NotEqual(t, "pass1234", u.Password)
	assert.True(t, testHasher().Compare(u.Password, "pass1234"))
	assert.False(t, testHasher().Compare(u.Password, "wrong"))
}

func TestSignup_Validation(t *testing.T) {
	tests := []struct {
		name string
		in   Signup
		want []string
	}{
		{"全部缺失", Signup{}, []string{MsgNameRequired, MsgEmailRequired, MsgPasswordRequired, MsgConfirmRequired}},
		{"邮箱格式", Signup{Name: "a", Email: "nope", Password: "pass1234", PasswordConfirm: "pass1234"}, []string{MsgEmailInvalid}},
		{"密码过短", Signup{Name: "a", Email: "a@b.io", Password: "short", PasswordConfirm: "short"}, []string{MsgPasswordMin}},
		{"确认不一致", Signup{Name: "a", Email: "a@b.io", Password: "pass1234", PasswordConfirm: "pass4321"}, []string{MsgConfirmMismatch}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tt.in.NewUser(testHasher())
			require.Error(t, err)
			appErr, ok := errors.AsAppError(err)
			require.True(t, ok)
			assert.Equal(t, tt.want, appErr.Details()["errors"])
		})
	}
}

func TestUser_DocumentHidesPassword(t *testing.T) {
	u := &User{Name: "Jonas", Email: "a@b.io", Password: "hash"}
	u.ID = 1
	doc, err := u.Document(nil)
	require.NoError(t, err)
	assert.NotContains(t, doc, "password")
	assert.Equal(t, "Jonas", doc["name"])
}

func TestPatch_Apply(t *testing.T) {
	u := &User{Name: "Jonas", Email: "a@b.io"}
	email := " NEW@B.IO"
	require.NoError(t, Patch{Email: &email}.Apply(u))
	assert.Equal(t, "new@b.io", u.Email)

	empty := ""
	assert.Error(t, Patch{Name: &empty}.Apply(u))
}

func TestSchemas(t *testing.T) {
	assert.NoError(t, PatchSchema.Validate([]byte(`{"name":"x"}`)))
	assert.Error(t, PatchSchema.Validate([]byte(`{"password":"x"}`)))
	assert.Error(t, SignupSchema.Validate([]byte(`{"name":5}`)))
}

func TestNewHasher_ClampsCost(t *testing.T) {
	assert.Equal(t, DefaultCost, NewHasher(0).cost)
	assert.Equal(t, 4, NewHasher(4).cost)
}
