// Package page renders the stop clock's index page and reads the initial
// timestamp back out of it.
package page
