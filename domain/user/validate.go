package user

import (
	"natours/validation"
)

// 校验信息
const (
	MsgNameRequired     = "Please tell us your name"
	MsgEmailRequired    = "Please provide your email"
	MsgEmailInvalid     = "Please provide a valid email"
	MsgPasswordRequired = "Please provide a password"
	MsgPasswordMin      = "Password must have at least 8 characters"
	MsgConfirmRequired  = "Please confirm your password"
	MsgConfirmMismatch  = "Passwords are not the same!"
)

// PasswordMinLen 密码最少字符数
const PasswordMinLen = 8

func (u *User) check(c *validation.Collector) {
	c.Required(u.Name, MsgNameRequired)
	if c.Required(u.Email, MsgEmailRequired) {
		c.Email(u.Email, MsgEmailInvalid)
	}
}

// Validate 校验已存在的用户
func (u *User) Validate() error {
	var c validation.Collector
	u.check(&c)
	return c.Err()
}

func (s Signup) validate(u *User) error {
	var c validation.Collector
	u.check(&c)
	if c.Check(s.Password != "", MsgPasswordRequired) {
		c.Length(s.Password, PasswordMinLen, 0, MsgPasswordMin, "")
	}
	if c.Check(s.PasswordConfirm != "", MsgConfirmRequired) {
		c.Check(s.PasswordConfirm == s.Password, MsgConfirmMismatch)
	}
	return c.Err()
}

// SignupSchema 注册请求体结构
var SignupSchema = validation.MustCompile(`{
	"type": "object",
	"properties": {
		"name":            {"type": "string"},
		"email":           {"type": "string"},
		"photo":           {"type": "string"},
		"password":        {"type": "string"},
		"passwordConfirm": {"type": "string"}
	}
}`)

// PatchSchema 更新请求体结构，不接受密码字段
var PatchSchema = validation.MustCompile(`{
	"type": "object",
	"minProperties": 1,
	"properties": {
		"name":  {"type": "string"},
		"email": {"type": "string"},
		"photo": {"type": "string"}
	},
	"not": {"anyOf": [{"required": ["password"]}, {"required": ["passwordConfirm"]}]}
}`)
