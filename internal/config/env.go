package config

import (
	"fmt"
	"os"
	"strings"
)

// resolveRef resolves values of the form "env(VAR_NAME)" from the process
// environment. Any other value is returned unchanged as a literal.
func resolveRef(ref string) (string, error) {
	if !strings.HasPrefix(ref, "env(") || !strings.HasSuffix(ref, ")") {
		return ref, nil
	}
	name := ref[4 : len(ref)-1]
	value, ok := os.LookupEnv(name)
	if !ok {
		return "", fmt.Errorf("environment variable %q not set", name)
	}
	return value, nil
}
