package config

import (
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func createTempFile(t *testing.T) *os.File {
	f, err := os.CreateTemp("", "test")
	assert.Nil(t, err)
	return f
}

func load(t *testing.T) (*FilePromptMap, *os.File) {
	f := createTempFile(t)
	fmt.Fprint(f, "structure: analyse the structure")
	r, err := newFilePromptMap(f.Name())
	assert.Nil(t, err)
	return r, f
}

func Test_Load(t *testing.T) {
	r, f := load(t)
	defer os.Remove(f.Name())
	assert.NotNil(t, r)
}

func Test_Get(t *testing.T) {
	r, f := load(t)
	defer os.Remove(f.Name())
	v, _ := r.Get("structure")
	assert.Equal(t, "analyse the structure", v)
}

func Test_GetFails(t *testing.T) {
	r, f := load(t)
	defer os.Remove(f.Name())
	v, err := r.Get("creative")
	assert.Equal(t, "", v)
	assert.Equal(t, ErrPromptNotFound, err)
	v, err = r.Get("")
	assert.Equal(t, "", v)
	assert.Equal(t, ErrPromptNotFound, err)
}

func Test_Reload(t *testing.T) {
	f := createTempFile(t)
	defer os.Remove(f.Name())

	fmt.Fprint(f, "structure: p1\n")
	pMap, err := newFilePromptMap(f.Name())
	assert.Nil(t, err)
	v, _ := pMap.Get("creative")
	assert.Equal(t, "", v)

	fmt.Fprint(f, "creative: p2")
	time.Sleep(time.Millisecond * 20)
	v, _ = pMap.Get("creative")
	assert.Equal(t, "p2", v)
}

func Test_ChecksPathOnInit(t *testing.T) {
	_, err := NewFilePromptMap("")
	assert.NotNil(t, err)
}

func Test_ReturnDefault(t *testing.T) {
	f := createTempFile(t)
	fmt.Fprint(f, "default: p1\n")
	defer os.Remove(f.Name())
	pMap, err := newFilePromptMap(f.Name())
	assert.Nil(t, err)
	v, err := pMap.Get("")
	assert.Equal(t, "p1", v)
	assert.Nil(t, err)
	v, err = pMap.Get("creative")
	assert.Equal(t, "p1", v)
	assert.Nil(t, err)
}
