package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

const (
	appNameVar         = "APP_NAME"
	envVar             = "ENV"
	logLevelVar        = "LOG_LEVEL"
	apiBaseURLVar      = "API_BASE_URL"
	credentialsFileVar = "CREDENTIALS_FILE"
	requestTimeoutVar  = "REQUEST_TIMEOUT"
	logoutTimeoutVar   = "LOGOUT_TIMEOUT"
	groupCacheTTLVar   = "GROUP_CACHE_TTL"
	portEnvVar         = "PORT"
	tokenSecretVar     = "TOKEN_SECRET"
	tokenTTLVar        = "TOKEN_TTL"
	corsOriginsVar     = "CORS_ALLOWED_ORIGINS"
	seedVar            = "SEED"
)

func (c *Config) applyEnv() error {
	c.App.Name = GetEnv(appNameVar, c.App.Name)
	c.App.Env = strings.ToUpper(GetEnv(envVar, c.App.Env))
	c.App.LogLevel = GetEnv(logLevelVar, c.App.LogLevel)

	c.Client.APIBaseURL = strings.TrimRight(GetEnv(apiBaseURLVar, c.Client.APIBaseURL), "/")
	c.Client.CredentialsFile = GetEnv(credentialsFileVar, c.Client.CredentialsFile)

	var err error
	if c.Client.RequestTimeout, err = GetEnvDuration(requestTimeoutVar, c.Client.RequestTimeout); err != nil {
		return err
	}
	if c.Client.LogoutTimeout, err = GetEnvDuration(logoutTimeoutVar, c.Client.LogoutTimeout); err != nil {
		return err
	}
	if c.Client.GroupCacheTTL, err = GetEnvDuration(groupCacheTTLVar, c.Client.GroupCacheTTL); err != nil {
		return err
	}

	c.MockAPI.Port = GetEnv(portEnvVar, c.MockAPI.Port)
	c.MockAPI.TokenSecret = GetEnv(tokenSecretVar, c.MockAPI.TokenSecret)
	if c.MockAPI.TokenTTL, err = GetEnvDuration(tokenTTLVar, c.MockAPI.TokenTTL); err != nil {
		return err
	}
	if origins := os.Getenv(corsOriginsVar); origins != "" {
		c.MockAPI.AllowedOrigins = splitList(origins)
	}
	if v := os.Getenv(seedVar); v != "" {
		seed, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("config: %s: %w", seedVar, err)
		}
		c.MockAPI.Seed = seed
	}
	return nil
}

// GetEnv returns the value of envVar, or defaultValue when it is unset or empty.
func GetEnv(envVar, defaultValue string) string {
	value := os.Getenv(envVar)
	if value == "" {
		return defaultValue
	}
	return value
}

// GetEnvDuration parses envVar as a time.Duration ("15s", "2m").
func GetEnvDuration(envVar string, defaultValue time.Duration) (time.Duration, error) {
	value := os.Getenv(envVar)
	if value == "" {
		return defaultValue, nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("config: %s: %w", envVar, err)
	}
	return d, nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
