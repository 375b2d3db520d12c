package config

import (
	"os"
	"strconv"
	"time"
)

const (
	serviceURLVar     = "CODESHARE_SERVICE_URL"
	serviceKeyVar     = "CODESHARE_SERVICE_KEY"
	rootHandleVar     = "CODESHARE_ROOT_HANDLE"
	stateDirVar       = "CODESHARE_STATE_DIR"
	requestTimeoutVar = "CODESHARE_REQUEST_TIMEOUT_SECONDS"
	requestRateVar    = "CODESHARE_REQUEST_RATE"
)

// Config holds the settings the client core needs from its host. Everything
// has a working default so an embedding application can start with zero
// configuration against a local service.
type Config struct {
	// ServiceURL is the base URL of the remote identity & data service.
	ServiceURL string
	// ServiceKey is the public API key sent with every request. It identifies
	// the application, not the user, and is not a secret.
	ServiceKey string
	// RootHandle is the handle of the distinguished root profile that can
	// never be demoted or deleted.
	RootHandle string
	// StateDir is where small pieces of local client state live (currently
	// only the first-visit flag).
	StateDir string
	// RequestTimeout bounds individual calls to the remote service.
	RequestTimeout time.Duration
	// RequestsPerSecond limits outbound traffic to the remote service.
	RequestsPerSecond float64
}

// FromEnv builds a Config from environment variables, falling back to
// defaults for anything unset.
func FromEnv() Config {
	return Config{
		ServiceURL:        GetEnv(serviceURLVar, "http://localhost:8090"),
		ServiceKey:        GetEnv(serviceKeyVar, ""),
		RootHandle:        GetEnv(rootHandleVar, "root@example.com"),
		StateDir:          GetEnv(stateDirVar, defaultStateDir()),
		RequestTimeout:    time.Duration(getEnvInt(requestTimeoutVar, 15)) * time.Second,
		RequestsPerSecond: getEnvFloat(requestRateVar, 20),
	}
}

// GetEnv returns the value of an environment variable or a default when the
// variable is unset or empty.
func GetEnv(key, defaultValue string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	v := os.Getenv(key)
	if v == "" {
		return defaultValue
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return defaultValue
	}
	return n
}

func getEnvFloat(key string, defaultValue float64) float64 {
	v := os.Getenv(key)
	if v == "" {
		return defaultValue
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return defaultValue
	}
	return f
}

func defaultStateDir() string {
	dir, err := os.UserCacheDir()
	if err != nil {
		return os.TempDir()
	}
	return dir + string(os.PathSeparator) + "codeshare"
}
