// Package api exposes the trading query endpoints, the database check and
// the scraper trigger over HTTP. Handlers translate query parameters into
// service calls and map service errors to status codes without leaking
// internal details.
package api
