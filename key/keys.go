// Package key defines the canonical set of configuration identifiers used for centralized settings management.
package key

// Marketplace API - these keys configure connectivity with the course marketplace backend.
const (
	APIURL           = "api.url"
	APICacheLifetime = "api.cache_lifetime_minutes"
	AccountID        = "account.id"
)

// Media Playback - these keys maintain the state and configuration for the external video player.
const (
	Player               = "player.default"
	PlayerReportInterval = "player.report_interval_seconds"
	PlayerAdvanceDelay   = "player.advance_delay_ms"
)

// Progress Synchronization - these keys govern how playback time reports become durable writes.
const (
	SyncDebounce         = "sync.debounce_seconds"
	SyncFlushInterval    = "sync.flush_interval_seconds"
	SyncFailureThreshold = "sync.failure_threshold"
)

// History Tracking - these keys configure the persistence of local resume state.
const (
	HistorySaveOnWatch = "history.save_on_watch"
)

// Iconography - these keys manage the visual rendering of UI symbols.
const (
	IconsVariant = "icons.variant"
)

// Logging Infrastructure - these keys manage the application's internal diagnostics and auditing system.
const (
	LogsWrite = "logs.write"
	LogsLevel = "logs.level"
	LogsJson  = "logs.json"
)

// CLI Execution Environment - these flags and settings govern general application behavior.
const (
	CliColored      = "cli.colored"
	CliVersionCheck = "cli.version_check"
)
