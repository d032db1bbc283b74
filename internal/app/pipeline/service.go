package pipeline

import (
	"context"
	"encoding/json"
	"io"
	"time"

	"github.com/pkg/errors"
	"github.com/streadway/amqp"

	"github.com/welltold/storygo/internal/pkg/cmdapp"
	"github.com/welltold/storygo/internal/pkg/messages"
	"github.com/welltold/storygo/internal/pkg/record"
	"github.com/welltold/storygo/internal/pkg/status"
	"github.com/welltold/storygo/internal/pkg/utils"
)

// Transcriber converts story audio to text
type Transcriber interface {
	Transcribe(ctx context.Context, name string, audio io.Reader) (string, error)
}

// FeedbackMaker builds the storytelling feedback for a transcribed record
type FeedbackMaker interface {
	Make(ctx context.Context, rec *record.Record) (*record.Feedback, error)
}

// FileLoader loads the uploaded audio file
type FileLoader interface {
	Load(name string) (io.ReadCloser, error)
}

// RecordGetter retrieves the story record from db
type RecordGetter interface {
	Get(userID string, id string) (*record.Record, bool, error)
}

// ServiceData keeps data required for service work
type ServiceData struct {
	StatusSaver   status.Saver
	RecordGetter  RecordGetter
	FileLoader    FileLoader
	Transcriber   Transcriber
	FeedbackMaker FeedbackMaker
	Publisher     messages.Publisher
	InformSender  messages.InformSender

	// PublicURL is the base the stored audio is served from
	PublicURL string
	ProcessCh <-chan amqp.Delivery
}

//StartWorkerService starts the process queue listener
func StartWorkerService(data *ServiceData) error {
	if data.ProcessCh == nil {
		return errors.New("No process channel provided")
	}
	cmdapp.Log.Infof("Starting listen for messages")

	fc := make(chan bool)

	go listenQueue(data.ProcessCh, data, fc)

	<-fc
	cmdapp.Log.Infof("Exiting service")
	return nil
}

func listenQueue(q <-chan amqp.Delivery, data *ServiceData, fc chan<- bool) {
	for d := range q {
		redeliver, err := processMsg(&d, data)
		if err != nil {
			cmdapp.Log.Errorf("Can't process message %s\n%s", d.MessageId, string(d.Body))
			cmdapp.Log.Error(err)
			d.Nack(false, redeliver && !d.Redelivered) // redeliver for first time
		} else {
			d.Ack(false)
		}
	}
	cmdapp.Log.Infof("Stopped listening queue")
	fc <- true
}

//processMsg return true if message can be retried
func processMsg(d *amqp.Delivery, data *ServiceData) (bool, error) {
	var message messages.StoryMessage
	if err := json.Unmarshal(d.Body, &message); err != nil {
		return false, errors.Wrap(err, "Can't unmarshal message "+string(d.Body))
	}
	return true, work(&message, data)
}

//work leads the story through the processing steps
// workflow:
// 1. set status to transcribing, publish the change
// 2. transcribe the audio, save the transcript
// 3. set status to analyzing, publish the change
// 4. make the feedback, save it with the public recording URL
// 5. set status to ready, publish the change, ask to inform the user
// a step failure marks the story failed and informs the user
func work(message *messages.StoryMessage, data *ServiceData) error {
	key := messages.StoryKey(message.UserID, message.ID)
	cmdapp.Log.Infof("Got process msg: %s", key)
	rec, found, err := data.RecordGetter.Get(message.UserID, message.ID)
	if err != nil {
		return errors.Wrap(err, "Can't load record "+key)
	}
	if !found {
		cmdapp.Log.Warnf("No record %s. Dropping msg", key)
		return nil
	}

	if err := setStatus(message, data, status.Transcribing); err != nil {
		return err
	}
	transcript, err := transcribe(message, data, rec)
	if err != nil {
		return markFailed(message, data, err)
	}
	if err := data.StatusSaver.SaveF(message.UserID, message.ID,
		map[string]interface{}{"transcript": transcript}); err != nil {
		return err
	}
	if err := setStatus(message, data, status.Analyzing); err != nil {
		return err
	}
	rec.Transcript = record.Transcript{Text: transcript}
	feedback, err := data.FeedbackMaker.Make(context.Background(), rec)
	if err != nil {
		return markFailed(message, data, err)
	}
	set := map[string]interface{}{
		"feedback": map[string]interface{}{"structure": feedback.Structure, "creative": feedback.Creative},
	}
	if data.PublicURL != "" && rec.RecordingURL != "" {
		set["recordingUrl"] = utils.URLJoin(data.PublicURL, rec.RecordingURL)
	}
	if err := data.StatusSaver.SaveF(message.UserID, message.ID, set); err != nil {
		return err
	}
	if err := setStatus(message, data, status.Ready); err != nil {
		return err
	}
	sendInform(message, data, messages.InformTypeReady)
	return nil
}

func transcribe(message *messages.StoryMessage, data *ServiceData, rec *record.Record) (string, error) {
	if rec.RecordingURL == "" {
		return "", errors.New("No recording file for " + messages.StoryKey(message.UserID, message.ID))
	}
	file, err := data.FileLoader.Load(rec.RecordingURL)
	if err != nil {
		return "", errors.Wrap(err, "Can't load audio")
	}
	defer file.Close()
	return data.Transcriber.Transcribe(context.Background(), rec.RecordingURL, file)
}

func setStatus(message *messages.StoryMessage, data *ServiceData, st status.Status) error {
	cmdapp.Log.Infof("Setting status %s for %s", status.Name(st), message.ID)
	err := data.StatusSaver.Save(message.UserID, message.ID, st)
	if err != nil {
		return errors.Wrap(err, "Can't save status")
	}
	publishStatusChange(message, data)
	return nil
}

func markFailed(message *messages.StoryMessage, data *ServiceData, cause error) error {
	cmdapp.Log.Error(cause)
	err := data.StatusSaver.SaveError(message.UserID, message.ID, cause.Error())
	if err != nil {
		return errors.Wrap(err, "Can't save failure")
	}
	publishStatusChange(message, data)
	sendInform(message, data, messages.InformTypeFailed)
	return nil
}

func publishStatusChange(message *messages.StoryMessage, data *ServiceData) {
	err := data.Publisher.Publish(messages.StoryKey(message.UserID, message.ID), messages.StatusChange)
	cmdapp.LogIf(err)
}

func sendInform(message *messages.StoryMessage, data *ServiceData, informType string) {
	if data.InformSender == nil {
		return
	}
	err := data.InformSender.SendInform(
		messages.NewInformMessage(message.ID, message.UserID, informType, time.Now().UTC()), messages.Inform)
	cmdapp.LogIf(err)
}
