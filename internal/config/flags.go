package config

import "flag"

var (
	flagConfig   = flag.String("config", "", "Path to config file")
	flagDebug    = flag.Bool("debug", false, "Enable debug logging")
	flagDB       = flag.String("db", "", "Path to the SQLite attribute store")
	flagMaxDepth = flag.Int("max-depth", -1, "Spatial index maximum depth")
	flagMinLeaf  = flag.Int("min-leaf", -1, "Spatial index minimum leaf size")
	flagCharset  = flag.String("charset", "", "Target name encoding (utf-8, shift_jis, euc-kr)")
	flagNoRebase = flag.Bool("no-rebase", false, "Do not follow rigid moves of the mesh")
)

// ParseFlags parses command-line flags. Call this early in main().
func ParseFlags() {
	flag.Parse()
}

// ConfigPath returns the explicit config path if provided via --config flag.
func ConfigPath() string {
	return *flagConfig
}

// applyFlags applies CLI flag overrides to the config.
func applyFlags(cfg *Config) {
	if *flagDebug {
		cfg.Logging.Level = "debug"
	}
	if *flagDB != "" {
		cfg.Storage.Path = *flagDB
	}
	if *flagMaxDepth >= 0 {
		cfg.Index.MaxDepth = *flagMaxDepth
	}
	if *flagMinLeaf >= 0 {
		cfg.Index.MinLeafSize = *flagMinLeaf
	}
	if *flagCharset != "" {
		cfg.Storage.NameCharset = *flagCharset
	}
	if *flagNoRebase {
		cfg.Rebase.Enabled = false
	}
}
