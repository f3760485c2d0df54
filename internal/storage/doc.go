// Package storage keeps a JSON report of every segment update run, either
// in S3 or on the local filesystem.
package storage
