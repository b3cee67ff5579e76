package config

const (
	defaultStateDir      = "~/.local/share/uplink"
	defaultLogDir        = "~/.local/share/uplink/logs"
	defaultProvider      = ProviderS3
	defaultRegion        = "us-east-1"
	defaultPartSizeMiB   = 8
	defaultConcurrency   = 4
	defaultQueueBackend  = BackendSQLite
	defaultSnapshotKey   = "uploadList"
	defaultLogFormat     = "console"
	defaultLogLevel      = "info"
	defaultConfigPath    = "~/.config/uplink/config.toml"
	minimumPartSizeMiB   = 5
	maximumPartSizeMiB   = 5 * 1024
	maximumConcurrency   = 64
	projectConfigName    = "uplink.toml"
	envAccessKeyID       = "UPLINK_ACCESS_KEY_ID"
	envSecretAccessKey   = "UPLINK_SECRET_ACCESS_KEY"
	envBucket            = "UPLINK_BUCKET"
	envEndpoint          = "UPLINK_ENDPOINT"
	bytesPerMiB          = 1024 * 1024
	defaultUseSSL        = true
	defaultUsePathStyle  = false
	defaultLogToFileName = "uplink.log"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			StateDir: defaultStateDir,
			LogDir:   defaultLogDir,
		},
		Storage: Storage{
			Provider:     defaultProvider,
			Region:       defaultRegion,
			UseSSL:       defaultUseSSL,
			UsePathStyle: defaultUsePathStyle,
			PartSizeMiB:  defaultPartSizeMiB,
			Concurrency:  defaultConcurrency,
		},
		Queue: Queue{
			Backend:     defaultQueueBackend,
			SnapshotKey: defaultSnapshotKey,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
