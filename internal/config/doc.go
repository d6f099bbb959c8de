// Package config handles configuration loading, parsing, and validation
// from environment variables and an optional YAML file. It provides type-safe
// access to the settings of the server, the database, the scoring model and
// the rescheduling runner.
package config
