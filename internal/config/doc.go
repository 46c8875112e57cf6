// Package config provides configuration loading for the shop config generator.
//
// # Configuration Sources
//
// Configuration is assembled from the following sources, later ones winning:
//
//  1. Default values (Default)
//  2. A YAML file: $SHOPCFG_CONFIG_FILE, ./config.yaml or ./configs/config.yaml
//  3. Environment variables prefixed with SHOPCFG_, after an optional .env
//     file in the working directory has been loaded
//
// # Environment Variables
//
//	SHOPCFG_SERVER_PORT=1421
//	SHOPCFG_LOGGING_LEVEL=debug
//	SHOPCFG_PATHS_BASE_DIR=/opt/shopcfg
//	SHOPCFG_TELEMETRY_TRACE_EXPORTER=stdout
//
// # Paths
//
// Relative paths are anchored at Paths.BaseDir, which defaults to the
// directory of the executable so a portable install keeps its database,
// logs and exports next to the binary.
package config
