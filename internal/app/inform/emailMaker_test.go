package inform

import (
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
)

func newTestMakerConfig() *viper.Viper {
	v := viper.New()
	v.Set("mail.url", "https://app.welltold.app/story/{{ID}}")
	v.Set("mail.ready.subject", "Your story is ready")
	v.Set("mail.ready.text", "Story {{ID}} finished at {{DATE}}. See {{URL}}")
	v.Set("mail.failed.subject", "We could not process your story")
	v.Set("mail.failed.text", "Story {{ID}} failed at {{DATE}}")
	v.Set("smtp.username", "noreply@welltold.app")
	return v
}

func newMakerData() *Data {
	return &Data{UserID: "u1", ID: "id1", Email: "a@a.a", MsgType: "ready",
		MsgTime: time.Date(2026, 8, 1, 10, 30, 0, 0, time.UTC)}
}

func TestMakesEmail(t *testing.T) {
	maker, err := newSimpleEmailMaker(newTestMakerConfig())
	assert.Nil(t, err)

	m, err := maker.Make(newMakerData())
	assert.Nil(t, err)
	assert.Equal(t, "Your story is ready", m.Subject)
	assert.Equal(t, []string{"a@a.a"}, m.To)
	assert.Equal(t, "noreply@welltold.app", m.From)
	assert.Equal(t, "Story id1 finished at 2026-08-01 10:30:00. See https://app.welltold.app/story/u1/id1",
		string(m.Text))
}

func TestMakesFailureEmail(t *testing.T) {
	maker, err := newSimpleEmailMaker(newTestMakerConfig())
	assert.Nil(t, err)

	data := newMakerData()
	data.MsgType = "failed"
	m, err := maker.Make(data)
	assert.Nil(t, err)
	assert.Equal(t, "We could not process your story", m.Subject)
}

func TestFails_NoURL(t *testing.T) {
	v := newTestMakerConfig()
	v.Set("mail.url", "")
	_, err := newSimpleEmailMaker(v)
	assert.NotNil(t, err)
}

func TestFails_NoSubject(t *testing.T) {
	v := newTestMakerConfig()
	v.Set("mail.ready.subject", "")
	maker, err := newSimpleEmailMaker(v)
	assert.Nil(t, err)
	_, err = maker.Make(newMakerData())
	assert.NotNil(t, err)
}

func TestFails_NoText(t *testing.T) {
	v := newTestMakerConfig()
	v.Set("mail.ready.text", "")
	maker, err := newSimpleEmailMaker(v)
	assert.Nil(t, err)
	_, err = maker.Make(newMakerData())
	assert.NotNil(t, err)
}
