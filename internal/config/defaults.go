package config

const (
	defaultDataDir       = "~/.local/share/pixelpress/data"
	defaultLogDir        = "~/.local/share/pixelpress/logs"
	defaultExportDir     = "~/.local/share/pixelpress/exports"
	defaultFormat        = "jpeg"
	defaultQuality       = 0.7
	defaultEncodeTimeout = 0
	defaultStoreTimeout  = 30
	defaultNotifyTimeout = 10
	defaultLogFormat     = "console"
	defaultLogLevel      = "info"
)

var defaultProductIDs = []string{
	"pixelpress_weekly",
	"pixelpress_monthly",
	"pixelpress_lifetime",
}

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			DataDir:   defaultDataDir,
			LogDir:    defaultLogDir,
			ExportDir: defaultExportDir,
		},
		Conversion: Conversion{
			DefaultFormat:  defaultFormat,
			DefaultQuality: defaultQuality,
			EncodeTimeout:  defaultEncodeTimeout,
		},
		Store: Store{
			ProductIDs:     append([]string(nil), defaultProductIDs...),
			RequestTimeout: defaultStoreTimeout,
		},
		Notifications: Notifications{
			RequestTimeout: defaultNotifyTimeout,
			Conversion:     true,
			Purchases:      true,
			Errors:         true,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
