package config

import (
	"path/filepath"

	"github.com/fsnotify/fsnotify"
	"github.com/pkg/errors"
	"github.com/spf13/viper"

	"github.com/welltold/storygo/internal/pkg/cmdapp"
)

//ErrPromptNotFound indicates missing prompt key in the map file
var ErrPromptNotFound = errors.New("Prompt not found")

// FilePromptMap loads analysis prompts from a yml file
// and reloads on file change
type FilePromptMap struct {
	Path string
	v    *viper.Viper
}

//NewFilePromptMap creates FilePromptMap instance
func NewFilePromptMap(path string) (*FilePromptMap, error) {
	cmdapp.Log.Infof("Init Prompt Map from: %s", path)
	if path == "" {
		return nil, errors.New("No path provided")
	}
	file := filepath.Join(path, "prompts.map.yml")
	return newFilePromptMap(file)
}

func newFilePromptMap(file string) (*FilePromptMap, error) {
	if file == "" {
		return nil, errors.New("No prompt map file provided")
	}
	f := FilePromptMap{Path: file}
	f.v = viper.New()
	f.v.SetConfigFile(file)
	f.v.SetConfigType("yml")
	err := f.v.ReadInConfig()
	if err != nil {
		return nil, errors.Wrap(err, "Can't read prompts map file: "+file)
	}

	f.v.WatchConfig()
	f.v.OnConfigChange(func(e fsnotify.Event) {
		cmdapp.Log.Infof("Config reloaded from: %s", file)
	})
	return &f, nil
}

// Get returns prompt text by provided key, falling back to 'default'
func (fs *FilePromptMap) Get(name string) (string, error) {
	var p string
	if name != "" {
		p = fs.v.GetString(name)
	}
	if p == "" {
		p = fs.v.GetString("default")
	}
	if p == "" {
		return "", ErrPromptNotFound
	}
	return p, nil
}
