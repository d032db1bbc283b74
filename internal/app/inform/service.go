package inform

import (
	"encoding/json"
	"time"

	"github.com/jordan-wright/email"
	"github.com/pkg/errors"
	"github.com/streadway/amqp"

	"github.com/welltold/storygo/internal/pkg/cmdapp"
	"github.com/welltold/storygo/internal/pkg/messages"
	"github.com/welltold/storygo/internal/pkg/utils"
)

// Data keeps the values needed to construct one email
type Data struct {
	UserID  string
	ID      string
	Email   string
	MsgType string
	MsgTime time.Time
}

//Sender send emails
type Sender interface {
	Send(email *email.Email) error
}

//EmailMaker prepares the email
type EmailMaker interface {
	Make(data *Data) (*email.Email, error)
}

//EmailRetriever returns the email address for the story owner
type EmailRetriever interface {
	Get(userID string, id string) (string, error)
}

//Locker tracks email sending process
//It is used to quarantee not to send the emails twice
type Locker interface {
	Lock(id string, lockKey string) error
	UnLock(id string, lockKey string, value *int) error
}

// ServiceData keeps data required for service work
type ServiceData struct {
	WorkCh         <-chan amqp.Delivery
	EmailSender    Sender
	EmailMaker     EmailMaker
	EmailRetriever EmailRetriever
	Locker         Locker
	Location       *time.Location

	fc *utils.MultiCloseChannel
}

//StartWorkerService starts the inform queue listener service
func StartWorkerService(data *ServiceData) error {
	cmdapp.Log.Infof("Starting listen for messages")
	if data.EmailMaker == nil {
		return errors.New("No email maker")
	}
	if data.EmailRetriever == nil {
		return errors.New("No email retriever")
	}
	if data.EmailSender == nil {
		return errors.New("No sender")
	}
	if data.Locker == nil {
		return errors.New("No locker")
	}
	if data.WorkCh == nil {
		return errors.New("No work channel")
	}
	if data.fc == nil {
		return errors.New("No close channel")
	}

	go listenQueue(data)
	return nil
}

//work is main method to send the message
func work(data *ServiceData, message *messages.InformMessage) error {
	key := messages.StoryKey(message.UserID, message.ID)
	cmdapp.Log.Infof("Got inform %s for: %s", message.Type, key)

	mailData := Data{}
	mailData.UserID = message.UserID
	mailData.ID = message.ID
	mailData.MsgTime = toLocalTime(data, message.At)
	mailData.MsgType = message.Type

	var err error
	mailData.Email, err = data.EmailRetriever.Get(message.UserID, message.ID)
	if err != nil {
		cmdapp.Log.Error(err)
		return errors.Wrap(err, "Can't retrieve email")
	}
	if mailData.Email == "" {
		cmdapp.Log.Infof("No email for %s. Skipping", key)
		return nil
	}

	email, err := data.EmailMaker.Make(&mailData)
	if err != nil {
		cmdapp.Log.Error(err)
		return errors.Wrap(err, "Can't prepare email")
	}

	err = data.Locker.Lock(key, mailData.MsgType)
	if err != nil {
		cmdapp.Log.Error(err)
		return errors.Wrap(err, "Can't lock mail table")
	}
	var unlockValue = 0
	defer data.Locker.UnLock(key, mailData.MsgType, &unlockValue)

	err = data.EmailSender.Send(email)
	if err != nil {
		cmdapp.Log.Error(err)
		return errors.Wrap(err, "Can't send email")
	}
	unlockValue = 2
	return nil
}

func listenQueue(data *ServiceData) {
	for d := range data.WorkCh {
		redeliver, err := processMsg(&d, data)
		if err != nil {
			cmdapp.Log.Error("Message error. ", err)
			d.Nack(false, redeliver && !d.Redelivered) // try redeliver for the first time
			continue
		}
		d.Ack(false)
	}
	cmdapp.Log.Infof("Stopped listening queue")
	data.fc.Close()
}

func toLocalTime(data *ServiceData, t time.Time) time.Time {
	if data.Location != nil {
		return t.In(data.Location)
	}
	return t
}

//processMsg returns true if it needs to retry on error again
func processMsg(d *amqp.Delivery, data *ServiceData) (bool, error) {
	var message messages.InformMessage
	if err := json.Unmarshal(d.Body, &message); err != nil {
		return false, errors.Wrap(err, "Can't unmarshal message "+string(d.Body))
	}
	err := work(data, &message)
	cmdapp.Log.Infof("Msg processed")
	return true, err
}
