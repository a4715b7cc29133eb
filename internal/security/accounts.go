package security

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	"golang.org/x/crypto/bcrypt"

	"github.com/BotCoder254/projects254/configs"
)

// Permissions carried in admin tokens.
const (
	PermOrdersRead    = "orders.read"
	PermOrdersManage  = "orders.manage"
	PermDashboardRead = "dashboard.read"
	PermOrdersReadOwn = "orders.read.own"
)

var rolePerms = map[string][]string{
	"admin":    {PermOrdersRead, PermOrdersManage, PermDashboardRead},
	"staff":    {PermOrdersRead, PermOrdersManage},
	"customer": {PermOrdersReadOwn},
}

var ErrInvalidCredentials = errors.New("invalid credentials")

// PermsFor returns the permissions granted to role, or nil for an unknown role.
func PermsFor(role string) []string {
	perms := rolePerms[role]
	out := make([]string, len(perms))
	copy(out, perms)
	return out
}

type Principal struct {
	Subject string
	Role    string
	Perms   []string
}

// Accounts is the staff login registry loaded from configuration.
type Accounts struct {
	byEmail map[string]configs.Account
}

func NewAccounts(list []configs.Account) (*Accounts, error) {
	a := &Accounts{byEmail: make(map[string]configs.Account, len(list))}
	for _, acc := range list {
		email := normalizeEmail(acc.Email)
		if email == "" || acc.PasswordHash == "" {
			return nil, fmt.Errorf("account %q: email and password_hash required", acc.Email)
		}
		if _, ok := rolePerms[acc.Role]; !ok {
			return nil, fmt.Errorf("account %q: unknown role %q", acc.Email, acc.Role)
		}
		if _, dup := a.byEmail[email]; dup {
			return nil, fmt.Errorf("account %q listed twice", acc.Email)
		}
		a.byEmail[email] = acc
	}
	return a, nil
}

// Authenticate checks the password. Unknown emails cost the same bcrypt
// comparison as known ones.
func (a *Accounts) Authenticate(email, password string) (Principal, error) {
	acc, ok := a.byEmail[normalizeEmail(email)]
	hash := []byte(acc.PasswordHash)
	if !ok {
		hash = dummyHash()
	}
	if err := bcrypt.CompareHashAndPassword(hash, []byte(password)); err != nil || !ok {
		return Principal{}, ErrInvalidCredentials
	}
	return Principal{Subject: normalizeEmail(acc.Email), Role: acc.Role, Perms: PermsFor(acc.Role)}, nil
}

func HashPassword(password string) (string, error) {
	b, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	return string(b), err
}

var (
	dummyOnce sync.Once
	dummy     []byte
)

func dummyHash() []byte {
	dummyOnce.Do(func() {
		dummy, _ = bcrypt.GenerateFromPassword([]byte("not-a-real-password"), bcrypt.DefaultCost)
	})
	return dummy
}

func normalizeEmail(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
