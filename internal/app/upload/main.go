package upload

import (
	"time"

	"github.com/heptiolabs/healthcheck"
	"github.com/spf13/cobra"
	"github.com/streadway/amqp"

	"github.com/welltold/storygo/internal/pkg/cmdapp"
	"github.com/welltold/storygo/internal/pkg/messages"
	"github.com/welltold/storygo/internal/pkg/mongo"
	"github.com/welltold/storygo/internal/pkg/rabbit"
	"github.com/welltold/storygo/internal/pkg/saver"
)

var rootCmd = &cobra.Command{
	Use:   "uploadService",
	Short: "WellTold Story Upload Service",
	Long:  `HTTP server to listen and upload recorded stories for processing`,
	Run:   run,
}

func init() {
	cmdapp.InitApplication(rootCmd)
	rootCmd.PersistentFlags().Int32P("port", "", 8000, "Default service port")
	cmdapp.Config.BindPFlag("port", rootCmd.PersistentFlags().Lookup("port"))
	cmdapp.Config.SetDefault("port", 8080)
	cmdapp.Config.SetDefault("fileStorage.path", "/data/audio.in/")
	cmdapp.Config.SetDefault("upload.maxAudioSeconds", DefaultMaxAudioSeconds)
	cmdapp.Config.SetDefault("upload.maxBodyBytes", DefaultMaxBodyBytes)
	cmdapp.Config.SetDefault("upload.busyLimit", 16)
}

//Execute starts the server
func Execute() {
	cmdapp.Execute(rootCmd)
}

func run(cmd *cobra.Command, args []string) {
	cmdapp.Log.Info("Starting uploadService")
	var data ServiceData
	var err error
	data.health = healthcheck.NewHandler()
	fs, err := saver.NewLocalFileSaver(cmdapp.Config.GetString("fileStorage.path"))
	cmdapp.CheckOrPanic(err, "Can't init file storage")
	data.FileSaver = fs

	msgChannelProvider, err := rabbit.NewChannelProvider()
	cmdapp.CheckOrPanic(err, "Can't init rabbit channel")
	defer msgChannelProvider.Close()
	data.health.AddLivenessCheck("rabbit", healthcheck.Async(msgChannelProvider.Healthy, 10*time.Second))

	err = initQueues(msgChannelProvider)
	cmdapp.CheckOrPanic(err, "Can't init queues")

	data.MessageSender = rabbit.NewSender(msgChannelProvider)

	mongoSessionProvider, err := mongo.NewSessionProvider()
	cmdapp.CheckOrPanic(err, "Can't init mongo")
	defer mongoSessionProvider.Close()
	data.health.AddLivenessCheck("mongo", healthcheck.Async(mongoSessionProvider.Healthy, 10*time.Second))

	data.RecordKeeper, err = mongo.NewRecordSaver(mongoSessionProvider)
	cmdapp.CheckOrPanic(err, "Can't init record saver")

	data.Secret = cmdapp.Config.GetString("upload.secret")
	if data.Secret == "" {
		cmdapp.Log.Warn("No upload.secret provided. Endpoint is open")
	}
	data.MaxAudioSeconds = cmdapp.Config.GetInt("upload.maxAudioSeconds")
	data.MaxBodyBytes = cmdapp.Config.GetInt64("upload.maxBodyBytes")
	data.SetBusyLimit(cmdapp.Config.GetInt("upload.busyLimit"))
	data.Port = cmdapp.Config.GetInt("port")

	err = StartWebServer(&data)
	cmdapp.CheckOrPanic(err, "Can't start web server")
}

func initQueues(prv *rabbit.ChannelProvider) error {
	cmdapp.Log.Info("Initializing queues")
	return prv.RunOnChannelWithRetry(func(ch *amqp.Channel) error {
		_, err := rabbit.Declare(ch, prv.QueueName(messages.Process))
		return err
	})
}
