// Package store defines interfaces for data persistence operations.
// These interfaces abstract the underlying data storage mechanism from
// the application's core logic, allowing query services and the scraper
// to remain independent of specific database technologies.
package store
