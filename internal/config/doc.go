// Package config defines the receipt-scan settings and provides helpers to
// load, validate and save them in YAML format.
//
// Settings hold the receipt backend location and credentials, the fiscal
// host allow-list, timeouts, the backend rate limit and the telemetry sink.
// Environment variables (optionally read from a .env file) override the
// backend URL and API token so secrets can stay out of the YAML file.
package config
