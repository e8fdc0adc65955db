// Package config handles configuration loading, parsing, and validation
// from environment variables and an optional .env file. Variable names
// follow the deployment contract (PG_*, REDIS_*, SCRAPER_*, ...) so the
// same environment drives the server, worker and scheduler containers.
package config
