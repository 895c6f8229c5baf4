// Package client is a Go client for the thumbnailer intake API, plus the
// job id and destination naming scheme shared by every caller.
package client
