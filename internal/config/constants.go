package config

const (
	envPort           = "PORT"
	envEndpoint       = "WS_ENDPOINT"
	envLocalFilesDir  = "LOCAL_FILES_DIR"
	envLocalURLPrefix = "LOCAL_URL_PREFIX"
	envUpdateKey      = "UPDATE_KEY"

	envMetricsEnabled      = "METRICS_ENABLED"
	envMetricsPort         = "METRICS_PORT"
	envMetricsOtlpEndpoint = "METRICS_OTLP_ENDPOINT"
	envMetricsOtlpInsecure = "METRICS_OTLP_INSECURE"

	defaultPort           = "8096"
	defaultEndpoint       = "/ws"
	defaultLocalURLPrefix = "/local"
	defaultMetricsPort    = "9464"
)
