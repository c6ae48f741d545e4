package enums

import (
	"fmt"
	"strings"
)

// Environment identifies which App Store environment produced a signed payload.
type Environment string

const (
	EnvironmentSandbox    Environment = "Sandbox"
	EnvironmentProduction Environment = "Production"
)

var validEnvironments = []Environment{
	EnvironmentSandbox,
	EnvironmentProduction,
}

// String implements fmt.Stringer.
func (e Environment) String() string {
	return string(e)
}

// IsValid reports whether the value is known.
func (e Environment) IsValid() bool {
	for _, candidate := range validEnvironments {
		if candidate == e {
			return true
		}
	}
	return false
}

// ParseEnvironment converts raw input into an Environment.
func ParseEnvironment(value string) (Environment, error) {
	for _, candidate := range validEnvironments {
		if strings.EqualFold(string(candidate), value) {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid environment %q", value)
}
