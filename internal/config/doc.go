// Package config loads process configuration from defaults, an optional YAML
// file, a .env file and the environment, in that order of precedence.
package config
