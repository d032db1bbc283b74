package saver

import (
	"io"
	"os"
	"path/filepath"

	"github.com/pkg/errors"
)

// LocalFileLoader loads file from local disk
type LocalFileLoader struct {
	StoragePath string
}

// NewLocalFileLoader creates LocalFileLoader instance
func NewLocalFileLoader(storagePath string) (*LocalFileLoader, error) {
	if storagePath == "" {
		return nil, errors.New("No storage path provided")
	}
	return &LocalFileLoader{StoragePath: storagePath}, nil
}

// Load opens the stored file for reading
func (fl LocalFileLoader) Load(name string) (io.ReadCloser, error) {
	fileName := filepath.Join(fl.StoragePath, name)
	f, err := os.Open(fileName)
	if err != nil {
		return nil, errors.Wrap(err, "Can not open file "+fileName)
	}
	return f, nil
}
