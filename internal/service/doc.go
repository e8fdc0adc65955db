// Package service answers trading queries on top of store.TradingResultStore.
//
// TradingService validates request filters, reads through the response
// cache and reports database state for the health endpoints. Filter errors
// are returned as the sentinels in errors.go so the API layer can map them
// to status codes with errors.Is.
package service
