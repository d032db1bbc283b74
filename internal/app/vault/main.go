package vault

import (
	"time"

	"github.com/heptiolabs/healthcheck"
	"github.com/spf13/cobra"
	"github.com/streadway/amqp"

	"github.com/welltold/storygo/internal/pkg/cmdapp"
	"github.com/welltold/storygo/internal/pkg/messages"
	"github.com/welltold/storygo/internal/pkg/mongo"
	"github.com/welltold/storygo/internal/pkg/rabbit"
)

var rootCmd = &cobra.Command{
	Use:   "vaultService",
	Short: "WellTold Story Vault Service",
	Long:  `HTTP server to provide story records and live status updates`,
	Run:   run,
}

func init() {
	cmdapp.InitApplication(rootCmd)
	rootCmd.PersistentFlags().Int32P("port", "", 8000, "Default service port")
	cmdapp.Config.BindPFlag("port", rootCmd.PersistentFlags().Lookup("port"))
	cmdapp.Config.SetDefault("port", 8080)
}

//Execute starts the server
func Execute() {
	cmdapp.Execute(rootCmd)
}

func run(cmd *cobra.Command, args []string) {
	cmdapp.Log.Info("Starting vaultService")
	var data ServiceData
	var err error
	data.health = healthcheck.NewHandler()

	mongoSessionProvider, err := mongo.NewSessionProvider()
	cmdapp.CheckOrPanic(err, "Can't init mongo")
	defer mongoSessionProvider.Close()
	data.health.AddLivenessCheck("mongo", healthcheck.Async(mongoSessionProvider.Healthy, 10*time.Second))

	data.RecordProvider, err = mongo.NewRecordProvider(mongoSessionProvider)
	cmdapp.CheckOrPanic(err, "Can't init record provider")
	data.RecordKeeper, err = mongo.NewRecordSaver(mongoSessionProvider)
	cmdapp.CheckOrPanic(err, "Can't init record saver")
	data.RecordDeleter, err = mongo.NewRecordDeleter(mongoSessionProvider)
	cmdapp.CheckOrPanic(err, "Can't init record deleter")

	msgChannelProvider, err := rabbit.NewChannelProvider()
	cmdapp.CheckOrPanic(err, "Can't init rabbit channel")
	defer msgChannelProvider.Close()
	data.health.AddLivenessCheck("rabbit", healthcheck.Async(msgChannelProvider.Healthy, 10*time.Second))

	data.EventChannelFunc = func() (<-chan amqp.Delivery, error) {
		ch, err := msgChannelProvider.Channel()
		if err != nil {
			return nil, err
		}
		return rabbit.NewEventChannel(ch, msgChannelProvider.QueueName(messages.StatusChange))
	}

	data.Port = cmdapp.Config.GetInt("port")

	err = StartWebServer(&data)
	cmdapp.CheckOrPanic(err, "Can't start web server")
}
