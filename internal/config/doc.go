// Package config assembles runtime configuration for gitbook-qa.
//
// Secrets and endpoints come from the environment, optionally seeded from a
// .env file via godotenv. Non-secret tuning (chunk sizes, retrieval k,
// suggestion keywords) comes from the TOML ConfigStore. Environment values
// win over TOML values where both exist.
package config
