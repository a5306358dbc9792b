// Package attackconfig holds the configuration every suite package embeds:
// target, HTTP client, session, routes, pacing and observers.
package attackconfig
