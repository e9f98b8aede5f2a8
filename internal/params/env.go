package params

import "strings"

// PathToEnvVar converts a dotted path to an environment variable name.
// e.g., "db.url" -> "DB_URL", "payments.mode" -> "PAYMENTS_MODE"
func PathToEnvVar(path string) string {
	if path == "" {
		return ""
	}
	return strings.ToUpper(strings.ReplaceAll(path, ".", "_"))
}

// parseEnviron converts an environ slice (["KEY=VALUE", ...]) into a map.
// Handles edge cases like empty values ("KEY=") and values containing "=" ("KEY=a=b").
func parseEnviron(environ []string) map[string]string {
	result := make(map[string]string)
	for _, entry := range environ {
		// Split on first "=" only - values can contain "="
		idx := strings.Index(entry, "=")
		if idx == -1 {
			continue
		}
		result[entry[:idx]] = entry[idx+1:]
	}
	return result
}

// lookupEnv finds name in env, trying the name as written first and then
// its dotted-path form ("db.url" -> "DB_URL").
func lookupEnv(env map[string]string, name string) (string, bool) {
	if v, ok := env[name]; ok {
		return v, true
	}
	v, ok := env[PathToEnvVar(name)]
	return v, ok
}
