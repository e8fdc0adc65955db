// Package postgres provides the PostgreSQL implementation of the
// store.TradingResultStore interface, the connection helper used by the
// binaries, and the embedded goose migrations that create the
// spimex_trading_results table.
package postgres
