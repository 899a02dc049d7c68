package services

import (
	"crypto/tls"
	"fmt"

	"github.com/go-ldap/ldap/v3"
	"gorm.io/gorm"
)

// LDAPService authenticates against a directory configured at runtime via
// system config. Accounts are looked up by mail attribute since email is
// the login identity.
type LDAPService struct {
	configSvc *SystemConfigService
}

func NewLDAPService(db *gorm.DB) *LDAPService {
	return &LDAPService{configSvc: NewSystemConfigService(db)}
}

func (s *LDAPService) IsEnabled() bool {
	return s.configSvc.GetLDAPConfig().Enabled
}

// Authenticate verifies credentials against LDAP and returns the directory
// entry's identity fields.
func (s *LDAPService) Authenticate(email, password string) (*LDAPUser, error) {
	cfg := s.configSvc.GetLDAPConfig()
	if !cfg.Enabled {
		return nil, fmt.Errorf("LDAP is not enabled")
	}

	// Connect to LDAP server
	addr := fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)
	var conn *ldap.Conn
	var err error

	if cfg.UseSSL {
		conn, err = ldap.DialTLS("tcp", addr, &tls.Config{InsecureSkipVerify: true})
	} else {
		conn, err = ldap.Dial("tcp", addr)
	}

	if err != nil {
		return nil, fmt.Errorf("failed to connect to LDAP server: %w", err)
	}
	defer conn.Close()

	// Bind with service account (if configured)
	if cfg.BindDN != "" {
		bindPassword := s.configSvc.GetWithDefault("ldap_bind_password", "")
		err = conn.Bind(cfg.BindDN, bindPassword)
		if err != nil {
			return nil, fmt.Errorf("failed to bind with service account: %w", err)
		}
	}

	// Search for user
	searchFilter := fmt.Sprintf(cfg.UserFilter, ldap.EscapeFilter(email))
	searchRequest := ldap.NewSearchRequest(
		cfg.BaseDN,
		ldap.ScopeWholeSubtree, ldap.NeverDerefAliases, 0, 0, false,
		searchFilter,
		[]string{"dn", "cn", "mail", "uid", "sAMAccountName"},
		nil,
	)

	result, err := conn.Search(searchRequest)
	if err != nil {
		return nil, fmt.Errorf("LDAP search failed: %w", err)
	}

	if len(result.Entries) == 0 {
		return nil, ErrUnauthenticated
	}

	if len(result.Entries) > 1 {
		return nil, fmt.Errorf("multiple users found in LDAP")
	}

	userDN := result.Entries[0].DN

	// Bind as user to verify password
	err = conn.Bind(userDN, password)
	if err != nil {
		return nil, ErrUnauthenticated
	}

	// Extract user info
	entry := result.Entries[0]
	user := &LDAPUser{
		DN:    userDN,
		Email: entry.GetAttributeValue("mail"),
		Name:  entry.GetAttributeValue("cn"),
	}
	if user.Email == "" {
		user.Email = email
	}

	return user, nil
}

type LDAPUser struct {
	DN    string
	Email string
	Name  string
}
