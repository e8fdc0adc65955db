// Package events lets the scraper announce stored results without
// depending on the task broker. Handlers registered on an emitter run
// synchronously in registration order.
package events
