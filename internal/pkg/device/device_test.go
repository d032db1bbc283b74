package device

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCreatesID(t *testing.T) {
	p := newTestProvider(t)
	c, err := p.Get()
	assert.Nil(t, err)
	assert.NotEmpty(t, c.ID)

	c2, err := p.Get()
	assert.Nil(t, err)
	assert.Equal(t, c.ID, c2.ID)
}

func TestRecreates_Corrupted(t *testing.T) {
	p := newTestProvider(t)
	assert.Nil(t, os.MkdirAll(filepath.Dir(p.Path), 0755))
	assert.Nil(t, os.WriteFile(p.Path, []byte("olia"), 0600))
	c, err := p.Get()
	assert.Nil(t, err)
	assert.NotEmpty(t, c.ID)
}

func TestPendingContext(t *testing.T) {
	p := newTestProvider(t)
	err := p.SetPendingContext("about grandma")
	assert.Nil(t, err)

	txt, err := p.TakePendingContext()
	assert.Nil(t, err)
	assert.Equal(t, "about grandma", txt)

	txt, err = p.TakePendingContext()
	assert.Nil(t, err)
	assert.Equal(t, "", txt)
}

func TestPendingContext_KeepsID(t *testing.T) {
	p := newTestProvider(t)
	c, err := p.Get()
	assert.Nil(t, err)
	assert.Nil(t, p.SetPendingContext("olia"))
	c2, err := p.Get()
	assert.Nil(t, err)
	assert.Equal(t, c.ID, c2.ID)
	assert.Equal(t, "olia", c2.PendingContext)
}

func newTestProvider(t *testing.T) *Provider {
	t.Helper()
	return &Provider{Path: filepath.Join(t.TempDir(), "device.json")}
}
