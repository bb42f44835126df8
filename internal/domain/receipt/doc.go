// Package receipt contains the receipt record returned by the expense
// backend and the payload used to create one from a scanned fiscal code.
package receipt
