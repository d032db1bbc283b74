package saver

import (
	"io"
	"os"
	"path/filepath"
	"strconv"

	"github.com/pkg/errors"

	"github.com/welltold/storygo/internal/pkg/cmdapp"
)

// WriterCloser keeps Writer interface and close function
type WriterCloser interface {
	io.Writer
	Close() error
}

// OpenFileFunc declares function to open file by name and return Writer
type OpenFileFunc func(fileName string) (WriterCloser, error)

// LocalFileSaver saves file on local disk
type LocalFileSaver struct {
	// StoragePath is the main folder to save into
	StoragePath  string
	OpenFileFunc OpenFileFunc
}

// NewLocalFileSaver creates LocalFileSaver instance
func NewLocalFileSaver(storagePath string) (*LocalFileSaver, error) {
	if storagePath == "" {
		return nil, errors.New("No storage path provided")
	}
	return &LocalFileSaver{StoragePath: storagePath, OpenFileFunc: openFile}, nil
}

// Save saves file to disk. Name may contain a subdirectory
func (fs LocalFileSaver) Save(name string, reader io.Reader) error {
	fileName := filepath.Join(fs.StoragePath, name)
	f, err := fs.OpenFileFunc(fileName)
	if err != nil {
		return errors.Wrap(err, "Can not create file "+fileName)
	}
	defer f.Close()
	savedBytes, err := io.Copy(f, reader)
	if err != nil {
		return errors.Wrap(err, "Can not save file "+fileName)
	}
	cmdapp.Log.Info("Saved file " + fileName + ". Size = " + strconv.FormatInt(savedBytes, 10) + " b")
	return nil
}

func openFile(fileName string) (WriterCloser, error) {
	err := os.MkdirAll(filepath.Dir(fileName), 0755)
	if err != nil {
		return nil, err
	}
	return os.OpenFile(fileName, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0644)
}
