package account

import (
	"time"

	"golang.org/x/crypto/bcrypt"
)

func init() {
	hashCost = bcrypt.MinCost
}

var PasswordPolicyViolation = passwordPolicyViolation

func SetNowFunc(f func() time.Time) (reset func()) {
	nowFunc = f
	return func() { nowFunc = time.Now }
}
