package vault

import (
	"time"

	"github.com/cenkalti/backoff"
	"github.com/pkg/errors"
	"github.com/streadway/amqp"

	"github.com/welltold/storygo/internal/pkg/cmdapp"
)

func listenEvents(channel <-chan amqp.Delivery, data *ServiceData, fc chan<- bool) {
	for d := range channel {
		err := processEvent(&d, data)
		if err != nil {
			cmdapp.Log.Errorf("Can't process event %s\n%s", d.MessageId, string(d.Body))
			cmdapp.Log.Error(err)
		}
	}
	cmdapp.Log.Infof("Stopped listening events")
	close(fc)
}

func registerQueue(data *ServiceData, quitChan <-chan bool, initialWait time.Duration) {
	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = initialWait
	bo.MaxInterval = time.Minute
	bo.MaxElapsedTime = 0
	for {
		select {
		case <-quitChan:
			cmdapp.Log.Infof("Quit listening events")
			return
		default:
			fc := make(chan bool)
			cmdapp.Log.Infof("Trying listening events")
			msgs, err := data.EventChannelFunc()
			if err != nil {
				cmdapp.Log.Error(err)
				wait := bo.NextBackOff()
				cmdapp.Log.Infof("Wait before reconnect %v", wait)
				time.Sleep(wait)
				continue
			}
			bo.Reset()
			go listenEvents(msgs, data, fc)
			<-fc
		}
	}
}

// processEvent pushes a fresh snapshot to every connection
// subscribed to the changed story
func processEvent(d *amqp.Delivery, data *ServiceData) error {
	key := string(d.Body)
	cmdapp.Log.Infof("processEvent " + key)
	conns, found := getConnections(key)
	if !found {
		cmdapp.Log.Infof("No connections found for " + key)
		return nil
	}
	snap, err := makeSnapshot(data, key)
	if err != nil {
		return errors.Wrap(err, "Cannot get record for key: "+key)
	}
	for c := range conns {
		err := c.WriteJSON(snap)
		cmdapp.LogIf(err)
	}
	return nil
}
