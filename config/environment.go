package config

import (
	"os"
	"strings"
)

const (
	appEnvVar              = "APP_ENV"
	environmentDevelopment = "development"
	environmentProduction  = "production"
	environmentStaging     = "staging"
)

var environmentAliases = map[string]string{
	"dev":  environmentDevelopment,
	"prod": environmentProduction,
	"stag": environmentStaging,
}

// AppEnvironment reads the application environment from APP_ENV, normalising
// common aliases. It defaults to development.
func AppEnvironment() string {
	env := strings.ToLower(strings.TrimSpace(os.Getenv(appEnvVar)))
	if env == "" {
		return environmentDevelopment
	}
	if canonical, ok := environmentAliases[env]; ok {
		return canonical
	}
	return env
}

// ResolvePath selects an environment specific configuration file
// ("config.production.yaml" for APP_ENV=production) when one exists next to
// the default path, otherwise the provided path is returned unchanged.
func ResolvePath(path string) string {
	if path == "" {
		path = "config.yaml"
	}

	env := AppEnvironment()
	if env == environmentDevelopment {
		return path
	}

	idx := strings.LastIndex(path, ".yaml")
	if idx < 0 {
		return path
	}
	envPath := path[:idx] + "." + env + ".yaml"
	if _, err := os.Stat(envPath); err == nil {
		return envPath
	}
	return path
}
