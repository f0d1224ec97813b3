package topology

import (
	"fmt"
	"strings"
)

// Accounts holds the configured account IDs of the OU.
type Accounts struct {
	Shared string
	Prod   string
	Dev    string
}

// ID returns the account ID configured for role.
func (a Accounts) ID(role Role) string {
	switch role {
	case RoleShared:
		return a.Shared
	case RoleProd:
		return a.Prod
	case RoleDev:
		return a.Dev
	default:
		return ""
	}
}

// ConfigError is a fatal configuration problem. Parameters names the
// offending settings.
type ConfigError struct {
	Parameters []string
	Reason     string
}

func (e *ConfigError) Error() string {
	if len(e.Parameters) == 0 {
		return "configuration error: " + e.Reason
	}
	return fmt.Sprintf("configuration error (%s): %s", strings.Join(e.Parameters, ", "), e.Reason)
}

// ResolveRole maps accountID to the single role configured with that ID.
func ResolveRole(accountID string, accounts Accounts) (Role, error) {
	if accountID == "" {
		return 0, &ConfigError{Reason: "deploying account ID is empty"}
	}
	var matches []Role
	for _, role := range Roles {
		if accounts.ID(role) == accountID {
			matches = append(matches, role)
		}
	}
	switch len(matches) {
	case 1:
		return matches[0], nil
	case 0:
		return 0, &ConfigError{
			Parameters: []string{"SHARED_ACCOUNT_ID", "PROD_ACCOUNT_ID", "DEV_ACCOUNT_ID"},
			Reason:     fmt.Sprintf("account %s matches none of the configured accounts", accountID),
		}
	default:
		params := make([]string, len(matches))
		for i, role := range matches {
			params[i] = strings.ToUpper(role.String()) + "_ACCOUNT_ID"
		}
		return 0, &ConfigError{
			Parameters: params,
			Reason:     fmt.Sprintf("account %s is configured for more than one role", accountID),
		}
	}
}

// ExpectRole fails unless accountID resolves to want.
func ExpectRole(accountID string, accounts Accounts, want Role) error {
	role, err := ResolveRole(accountID, accounts)
	if err != nil {
		return err
	}
	if role != want {
		return &ConfigError{
			Parameters: []string{strings.ToUpper(want.String()) + "_ACCOUNT_ID"},
			Reason:     fmt.Sprintf("account %s is the %s account, expected the %s account", accountID, role, want),
		}
	}
	return nil
}
