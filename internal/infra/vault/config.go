package vault

import "time"

const (
	DefaultBaseURL = "https://basin.tableland.xyz"
	DevBaseURL     = "http://localhost:8080"
)

// Config holds vault settings.
type Config struct {
	BaseURL string `yaml:"base_url"`
	// Env picks the default base URL when BaseURL is empty: "dev" targets a
	// local vault service, anything else production.
	Env  string `yaml:"env"`
	Name string `yaml:"name"`
	// CacheTTLMinutes is used when the vault has to be created. Keep it
	// above twice the poll interval so a fresh snapshot is still cached
	// when the next run reads it back.
	CacheTTLMinutes int           `yaml:"cache_ttl_minutes"`
	Timeout         time.Duration `yaml:"timeout"`
}

// BaseURLFor returns the dev gateway for env "dev" and production otherwise.
func BaseURLFor(env string) string {
	if env == "dev" {
		return DevBaseURL
	}
	return DefaultBaseURL
}
