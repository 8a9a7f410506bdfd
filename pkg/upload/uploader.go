// Package upload exports session artifacts to object storage.
package upload

import "io"

type Uploader interface {
	// Key is a unique identifier for the archive object.
	Upload(key string, body io.Reader) error
	GetDirectory() string
}
