// Package config loads and validates service configuration.
//
// Configuration is YAML with ${VAR} environment expansion, so secrets
// (provider API key, database password) can live in the environment or a
// .env file rather than the config file itself.
package config
