// Package env reads the handful of process-level overrides that live
// outside the STOREBRIDGE_* configuration surface, such as the
// platform-assigned PORT and the logger's LOG_FORMAT switch.
package env

import "os"

// Get returns the value of the given environment variable, or the fallback
// when it is unset or empty.
func Get(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}
