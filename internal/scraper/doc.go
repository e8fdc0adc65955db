// Package scraper downloads daily oil product bulletins from the exchange
// website, extracts the metric ton section of each bulletin and stores
// the rows through a store.TradingResultStore.
//
// A scrape walks the paginated listing newest first and stops at the first
// bulletin that is already stored, so repeated runs only fetch new days.
package scraper
