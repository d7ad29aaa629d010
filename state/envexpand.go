package state

import (
	"fmt"
	"os"
	"regexp"
	"strings"
)

// envRefPattern matches ${VAR}, ${VAR:-default} and ${VAR:?message}.
var envRefPattern = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)(?:(:-|:\?)([^}]*))?\}`)

// ExpandEnv replaces environment references in input.
//
//   - ${VAR} expands to the value of VAR, or "" when unset
//   - ${VAR:-default} expands to "default" when VAR is unset or empty
//   - ${VAR:?message} fails with message when VAR is unset or empty
//
// All missing required variables are reported together.
func ExpandEnv(input string) (string, error) {
	var missing []string
	out := envRefPattern.ReplaceAllStringFunc(input, func(match string) string {
		groups := envRefPattern.FindStringSubmatch(match)
		name, op, arg := groups[1], groups[2], groups[3]

		if value := os.Getenv(name); value != "" {
			return value
		}
		switch op {
		case ":-":
			return arg
		case ":?":
			if arg == "" {
				arg = "required"
			}
			missing = append(missing, name+": "+arg)
		}
		return ""
	})
	if len(missing) > 0 {
		return "", fmt.Errorf("unset environment variables: %s", strings.Join(missing, "; "))
	}
	return out, nil
}
