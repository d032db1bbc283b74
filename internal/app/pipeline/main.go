package pipeline

import (
	"github.com/spf13/cobra"

	"github.com/welltold/storygo/internal/pkg/cmdapp"
	"github.com/welltold/storygo/internal/pkg/config"
	"github.com/welltold/storygo/internal/pkg/messages"
	"github.com/welltold/storygo/internal/pkg/mongo"
	"github.com/welltold/storygo/internal/pkg/rabbit"
	"github.com/welltold/storygo/internal/pkg/saver"
)

var rootCmd = &cobra.Command{
	Use:   "pipelineService",
	Short: "WellTold Story Pipeline Service",
	Long:  `Worker to transcribe and analyse uploaded stories`,
	Run:   run,
}

func init() {
	cmdapp.InitApplication(rootCmd)
	cmdapp.Config.SetDefault("fileStorage.path", "/data/audio.in/")
	cmdapp.Config.SetDefault("pipeline.fakeDelay", "3s")
}

//Execute starts the server
func Execute() {
	cmdapp.Execute(rootCmd)
}

func run(cmd *cobra.Command, args []string) {
	cmdapp.Log.Info("Starting pipelineService")
	var data ServiceData
	var err error

	fl, err := saver.NewLocalFileLoader(cmdapp.Config.GetString("fileStorage.path"))
	cmdapp.CheckOrPanic(err, "Can't init file storage")
	data.FileLoader = fl

	mongoSessionProvider, err := mongo.NewSessionProvider()
	cmdapp.CheckOrPanic(err, "Can't init mongo")
	defer mongoSessionProvider.Close()

	data.StatusSaver, err = mongo.NewStatusSaver(mongoSessionProvider)
	cmdapp.CheckOrPanic(err, "Can't init status saver")
	data.RecordGetter, err = mongo.NewRecordProvider(mongoSessionProvider)
	cmdapp.CheckOrPanic(err, "Can't init record provider")

	msgChannelProvider, err := rabbit.NewChannelProvider()
	cmdapp.CheckOrPanic(err, "Can't init rabbit channel")
	defer msgChannelProvider.Close()

	ch, err := msgChannelProvider.Channel()
	cmdapp.CheckOrPanic(err, "Can't open channel")
	err = ch.Qos(1, 0, false)
	cmdapp.CheckOrPanic(err, "Can't set Qos")

	qName := msgChannelProvider.QueueName(messages.Process)
	_, err = rabbit.Declare(ch, qName)
	cmdapp.CheckOrPanic(err, "Can't declare queue "+qName)
	data.ProcessCh, err = rabbit.NewChannel(ch, qName)
	cmdapp.CheckOrPanic(err, "Can't listen queue "+qName)

	sender := rabbit.NewSender(msgChannelProvider)
	data.InformSender = sender
	data.Publisher = rabbit.NewPublisher(msgChannelProvider)
	data.PublicURL = cmdapp.Config.GetString("fileStorage.publicUrl")

	if cmdapp.Config.GetBool("pipeline.fake") {
		cmdapp.Log.Warn("Using fake transcriber and feedback maker")
		delay := cmdapp.Config.GetDuration("pipeline.fakeDelay")
		data.Transcriber = &FakeTranscriber{Delay: delay}
		data.FeedbackMaker = &FakeFeedbackMaker{Delay: delay}
	} else {
		data.Transcriber, err = NewWhisperTranscriber()
		cmdapp.CheckOrPanic(err, "Can't init transcriber")
		prompts, err := config.NewFilePromptMap(cmdapp.Config.GetString("promptConfig.path"))
		cmdapp.CheckOrPanic(err, "Can't init prompt config")
		data.FeedbackMaker, err = NewClaudeFeedbackMaker(prompts)
		cmdapp.CheckOrPanic(err, "Can't init feedback maker")
	}

	err = StartWorkerService(&data)
	cmdapp.CheckOrPanic(err, "Can't start worker service")
}
