// Package api serves the send form, the send and webhook endpoints, the
// history read endpoints and the live change stream.
package api
