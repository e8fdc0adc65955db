// Package domain contains the core business entities of the application:
// trading results parsed from exchange bulletins, their validation rules
// and the date formats used at the system boundaries.
package domain
