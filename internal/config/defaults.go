package config

// Default config values. Booleans default to off so a minimal
// depfence.toml declares modules and nothing else.
const (
	DefaultExact                      = false
	DefaultForbidCircularDependencies = false
	DefaultIgnoreTypeCheckingImports  = false
)

// Scan defaults.
const (
	DefaultScanWorkers     = 0 // 0 selects runtime.NumCPU at scan time.
	DefaultScanMaxFileSize = "1 MiB"
	DefaultScanCache       = true
)

// DefaultMaxFileSizeBytes mirrors DefaultScanMaxFileSize.
const DefaultMaxFileSizeBytes = 1 << 20 // 1 MiB.
