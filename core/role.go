package core

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Role identifies the author of a conversation message.
type Role string

const (
	// RoleSystem carries instructions for the model.
	RoleSystem Role = "system"
	// RoleUser carries end-user input.
	RoleUser Role = "user"
	// RoleAssistant carries model output, text and tool calls alike.
	RoleAssistant Role = "assistant"
	// RoleTool carries tool results keyed by call id.
	RoleTool Role = "tool"
)

var roleAliases = map[string]Role{
	"system":    RoleSystem,
	"developer": RoleSystem,
	"user":      RoleUser,
	"human":     RoleUser,
	"assistant": RoleAssistant,
	"model":     RoleAssistant,
	"ai":        RoleAssistant,
	"tool":      RoleTool,
	"function":  RoleTool,
}

// NormalizeRole maps any accepted spelling of a role onto its canonical
// value. Strings are compared case-insensitively after trimming whitespace and
// a leading colon, so "User", " user " and ":user" all yield RoleUser.
func NormalizeRole(v any) (Role, error) {
	var s string

	switch r := v.(type) {
	case Role:
		s = string(r)
	case string:
		s = r
	case fmt.Stringer:
		s = r.String()
	default:
		return "", fmt.Errorf("%w: unsupported role value %T", ErrInvalidHistory, v)
	}

	key := strings.ToLower(strings.TrimPrefix(strings.TrimSpace(s), ":"))
	if role, ok := roleAliases[key]; ok {
		return role, nil
	}

	return "", fmt.Errorf("%w: unknown role %q", ErrInvalidHistory, s)
}

// String implements fmt.Stringer.
func (r Role) String() string { return string(r) }

// UnmarshalJSON normalizes the decoded role.
func (r *Role) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}

	if s == "" {
		*r = ""
		return nil
	}

	role, err := NormalizeRole(s)
	if err != nil {
		return err
	}

	*r = role

	return nil
}
