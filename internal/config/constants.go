package config

import "time"

// AppVersion is overridden at release time with
// -ldflags "-X github.com/jonxmitchell/ark-asa-shop-config-generator/internal/config.AppVersion=...".
var AppVersion = "1.4.0"

// Application constants
const (
	// Application Info
	AppName   = "ARK Shop Config Generator"
	AppVendor = "jonxmitchell"

	DefaultPort = 1421

	// File Paths (relative to BaseDir)
	DefaultDataDir      = "data"
	DefaultDatabaseFile = "data/settings.db"
	DefaultArkDataFile  = "data/ark_data.json"
	DefaultExportDir    = "exports"
	DefaultLogsDir      = "logs"
	DefaultCrashFile    = "logs/crash.log"

	// ExportFileName is the document the game server plugin reads
	ExportFileName = "ShopConfig.json"

	// License
	LicenseSubmitRPS   = 0.5
	LicenseSubmitBurst = 5

	// Settings defaults
	DefaultAutoSaveInterval = 5 // minutes
	MinAutoSaveInterval     = 1
	MaxAutoSaveInterval     = 120
	AutosaveConfigName      = "Autosave"

	// Store
	DatabaseOpenTimeout = time.Second
)
