package config

// Config holds runtime configuration for the hub server.
type Config struct {
	Port           string
	Endpoint       string
	LocalFilesDir  string
	LocalURLPrefix string
	UpdateKey      string
	Metrics        MetricsConfig
}

// Load reads configuration from environment variables with sensible defaults.
func Load() Config {
	return Config{
		Port:           envOrDefault(envPort, defaultPort),
		Endpoint:       envOrDefault(envEndpoint, defaultEndpoint),
		LocalFilesDir:  localFilesDirOrDefault(),
		LocalURLPrefix: envOrDefault(envLocalURLPrefix, defaultLocalURLPrefix),
		UpdateKey:      envOrDefault(envUpdateKey, ""),
		Metrics:        loadMetrics(),
	}
}
