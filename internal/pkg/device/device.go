package device

import (
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/welltold/storygo/internal/pkg/cmdapp"
)

// Context is the locally persisted device state.
// ID is generated once per install. PendingContext keeps the
// background text entered before a recording is uploaded
type Context struct {
	ID             string `json:"deviceId"`
	PendingContext string `json:"pendingContext,omitempty"`
}

// Provider loads and saves the device context file
type Provider struct {
	// Path of the context file
	Path string
}

//NewProvider creates Provider with file in the user config dir
func NewProvider() (*Provider, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return nil, errors.Wrap(err, "Can't locate user config dir")
	}
	return &Provider{Path: filepath.Join(dir, "welltold", "device.json")}, nil
}

// Get loads the context, generating and saving a new device ID on first use
func (p *Provider) Get() (*Context, error) {
	res := &Context{}
	data, err := os.ReadFile(p.Path)
	if err == nil {
		if err := json.Unmarshal(data, res); err != nil {
			cmdapp.Log.Warn("Corrupted device file " + p.Path + ". Recreating")
			res = &Context{}
		}
	} else if !os.IsNotExist(err) {
		return nil, errors.Wrap(err, "Can't read "+p.Path)
	}
	if res.ID == "" {
		res.ID = uuid.New().String()
		if err := p.Save(res); err != nil {
			return nil, err
		}
		cmdapp.Log.Infof("Created device ID %s", res.ID)
	}
	return res, nil
}

// Save persists the context
func (p *Provider) Save(c *Context) error {
	if err := os.MkdirAll(filepath.Dir(p.Path), 0755); err != nil {
		return errors.Wrap(err, "Can't create dir for "+p.Path)
	}
	data, err := json.Marshal(c)
	if err != nil {
		return errors.Wrap(err, "Can't marshal device context")
	}
	if err := os.WriteFile(p.Path, data, 0600); err != nil {
		return errors.Wrap(err, "Can't write "+p.Path)
	}
	return nil
}

// SetPendingContext stores text to attach to the next upload
func (p *Provider) SetPendingContext(text string) error {
	c, err := p.Get()
	if err != nil {
		return err
	}
	c.PendingContext = text
	return p.Save(c)
}

// TakePendingContext returns the stored text and clears it
func (p *Provider) TakePendingContext() (string, error) {
	c, err := p.Get()
	if err != nil {
		return "", err
	}
	res := c.PendingContext
	if res != "" {
		c.PendingContext = ""
		if err := p.Save(c); err != nil {
			return "", err
		}
	}
	return res, nil
}
