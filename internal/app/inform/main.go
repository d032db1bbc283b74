package inform

import (
	"time"

	"github.com/spf13/cobra"

	"github.com/welltold/storygo/internal/pkg/cmdapp"
	"github.com/welltold/storygo/internal/pkg/messages"
	"github.com/welltold/storygo/internal/pkg/mongo"
	"github.com/welltold/storygo/internal/pkg/rabbit"
	"github.com/welltold/storygo/internal/pkg/utils"
)

var appName = "WellTold Email Inform Service"

var rootCmd = &cobra.Command{
	Use:   "informService",
	Short: appName,
	Long:  `Service listens for the information events from the queue and informs user`,
	Run:   run,
}

func init() {
	cmdapp.InitApplication(rootCmd)
}

//Execute starts the server
func Execute() {
	cmdapp.Execute(rootCmd)
}

func run(cmd *cobra.Command, args []string) {
	cmdapp.Log.Info("Starting " + appName)
	data := ServiceData{}
	data.fc = utils.NewSignalChannel()

	msgChannelProvider, err := rabbit.NewChannelProvider()
	cmdapp.CheckOrPanic(err, "Can't init rabbit provider")
	defer msgChannelProvider.Close()

	ch, err := msgChannelProvider.Channel()
	cmdapp.CheckOrPanic(err, "Can't open channel")
	err = ch.Qos(1, 0, false)
	cmdapp.CheckOrPanic(err, "Can't set Qos")

	qName := msgChannelProvider.QueueName(messages.Inform)
	_, err = rabbit.Declare(ch, qName)
	cmdapp.CheckOrPanic(err, "Can't declare queue "+qName)
	data.WorkCh, err = rabbit.NewChannel(ch, qName)
	cmdapp.CheckOrPanic(err, "Can't listen to "+qName+" channel")

	data.EmailMaker, err = newSimpleEmailMaker(cmdapp.Config)
	cmdapp.CheckOrPanic(err, "Can't init email maker")

	location := cmdapp.Config.GetString("worker.location")
	if location != "" {
		data.Location, err = time.LoadLocation(location)
		cmdapp.CheckOrPanic(err, "Can't init location")
	}

	data.EmailSender, err = newSimpleEmailSender()
	cmdapp.CheckOrPanic(err, "Can't init email sender")

	mongoSessionProvider, err := mongo.NewSessionProvider()
	cmdapp.CheckOrPanic(err, "Can't init mongo provider")
	defer mongoSessionProvider.Close()

	data.Locker, err = mongo.NewLocker(mongoSessionProvider)
	cmdapp.CheckOrPanic(err, "Can't init mongo locker")

	data.EmailRetriever, err = mongo.NewEmailRetriever(mongoSessionProvider)
	cmdapp.CheckOrPanic(err, "Can't init mongo email retriever")

	err = StartWorkerService(&data)
	cmdapp.CheckOrPanic(err, "Can't start service")
	<-data.fc.C
	cmdapp.Log.Infof("Exiting service")
}
