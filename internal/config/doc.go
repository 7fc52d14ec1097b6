// Package config provides configuration loading and validation for the TBSK receiver service.
// It handles YAML-based configuration with struct validation and exposes typed
// getters for the duration-valued options.
package config
