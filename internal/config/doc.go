// Package config loads and validates application settings from environment
// variables and optional .env files, exposing them as typed structs.
package config
