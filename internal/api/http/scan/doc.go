// Package scan exposes the decode and validate operations over HTTP with gin.
// Nothing here talks to the receipts backend: clients submit the returned
// URL through the regular receipt API.
package scan
