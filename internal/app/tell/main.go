package tell

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/welltold/storygo/internal/pkg/audio"
	"github.com/welltold/storygo/internal/pkg/cmdapp"
	"github.com/welltold/storygo/internal/pkg/device"
	"github.com/welltold/storygo/internal/pkg/messages"
)

var rootCmd = &cobra.Command{
	Use:   "storyCmd",
	Short: "WellTold Story Client",
	Long:  `Command line client to record, upload and follow spoken stories`,
}

var tellCmd = &cobra.Command{
	Use:   "tell <title>",
	Short: "Record a story and send it for processing",
	Args:  cobra.ExactArgs(1),
	Run:   runTell,
}

var sendCmd = &cobra.Command{
	Use:   "send <file> <title>",
	Short: "Send an already recorded file for processing",
	Args:  cobra.ExactArgs(2),
	Run:   runSend,
}

var watchCmd = &cobra.Command{
	Use:   "watch <storyID>",
	Short: "Follow the processing status of a story",
	Args:  cobra.ExactArgs(1),
	Run:   runWatch,
}

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List the user's stories, newest first",
	Run:   runList,
}

var showCmd = &cobra.Command{
	Use:   "show <storyID>",
	Short: "Print a story record with transcript and feedback",
	Args:  cobra.ExactArgs(1),
	Run:   runShow,
}

var deleteCmd = &cobra.Command{
	Use:   "delete <storyID>",
	Short: "Delete a story record",
	Args:  cobra.ExactArgs(1),
	Run:   runDelete,
}

var contextCmd = &cobra.Command{
	Use:   "context <text>",
	Short: "Keep background text to attach to the next story",
	Args:  cobra.ExactArgs(1),
	Run:   runContext,
}

func init() {
	cmdapp.InitApplication(rootCmd)
	rootCmd.PersistentFlags().StringP("user", "u", "", "User ID")
	cmdapp.Config.BindPFlag("user.id", rootCmd.PersistentFlags().Lookup("user"))
	rootCmd.PersistentFlags().StringP("email", "e", "", "Email for ready/failed notifications")
	cmdapp.Config.BindPFlag("user.email", rootCmd.PersistentFlags().Lookup("email"))
	cmdapp.Config.SetDefault("recorder.dir", os.TempDir())
	rootCmd.AddCommand(tellCmd, sendCmd, watchCmd, listCmd, showCmd, deleteCmd, contextCmd)
}

//Execute runs the client command
func Execute() {
	cmdapp.Execute(rootCmd)
}

func initData(needUser bool) *ServiceData {
	data := &ServiceData{}
	data.UserID = cmdapp.Config.GetString("user.id")
	if needUser && data.UserID == "" {
		cmdapp.CheckOrPanic(fmt.Errorf("no user ID. Pass --user or set user.id"), "")
	}
	data.Email = cmdapp.Config.GetString("user.email")
	var err error
	data.Devices, err = device.NewProvider()
	cmdapp.CheckOrPanic(err, "Can't init device context")
	data.Store, err = NewVaultClient()
	cmdapp.CheckOrPanic(err, "Can't init vault client")
	data.Uploader, err = NewHTTPUploader()
	cmdapp.CheckOrPanic(err, "Can't init uploader")
	return data
}

func runTell(cmd *cobra.Command, args []string) {
	data := initData(true)
	var err error
	data.Recorder, err = audio.NewRecorder(cmdapp.Config.GetString("recorder.dir"))
	cmdapp.CheckOrPanic(err, "Can't init recorder")

	err = data.Recorder.Start(strings.ReplaceAll(args[0], " ", "_"))
	cmdapp.CheckOrPanic(err, "Can't start recording")
	fmt.Println("Recording. Press Enter to stop")
	fmt.Scanln()
	capture, err := data.Recorder.Stop()
	cmdapp.CheckOrPanic(err, "Can't stop recording")
	cmdapp.Log.Infof("Recorded %d s to %s", capture.DurationSec, capture.Path)

	submitAndWatch(data, capture, args[0])
}

func runSend(cmd *cobra.Command, args []string) {
	data := initData(true)
	st, err := os.Stat(args[0])
	cmdapp.CheckOrPanic(err, "Can't read "+args[0])
	capture := &audio.Capture{Path: args[0], Size: st.Size()}
	submitAndWatch(data, capture, args[1])
}

func submitAndWatch(data *ServiceData, capture *audio.Capture, title string) {
	res, err := data.Submit(capture, title)
	cmdapp.CheckOrPanic(err, "Can't upload story")
	fmt.Println("Story ID: " + res.StoryID)
	watch(data, res.StoryID)
}

func runWatch(cmd *cobra.Command, args []string) {
	watch(initData(true), args[0])
}

func watch(data *ServiceData, id string) {
	done := make(chan State, 1)
	obs := NewObserver(data.UserID, id, data.Store)
	obs.OnChange = func(st State) {
		fmt.Println("Status: " + st.String())
		if st == StateReady || st == StateFailed || st == StateListenerError {
			done <- st
		}
	}
	obs.Navigate = func(userID string, id string) {
		fmt.Println("Story is ready: " + messages.StoryKey(userID, id))
	}
	err := obs.Start()
	cmdapp.CheckOrPanic(err, "Can't subscribe to story")
	defer obs.Stop()
	st := <-done
	if st == StateFailed {
		fmt.Println("Processing failed: " + obs.ErrMsg())
	}
	if st == StateListenerError {
		fmt.Println("Lost connection. Run watch again")
	}
}

func runList(cmd *cobra.Command, args []string) {
	data := initData(true)
	records, err := data.Store.List(data.UserID)
	cmdapp.CheckOrPanic(err, "Can't list stories")
	for _, r := range records {
		fmt.Printf("%s\t%s\t%s\n", r.ID, r.Status, r.Title)
	}
}

func runShow(cmd *cobra.Command, args []string) {
	data := initData(true)
	snap, err := data.Store.Get(messages.StoryKey(data.UserID, args[0]))
	cmdapp.CheckOrPanic(err, "Can't get story")
	if !snap.Exists {
		fmt.Println("No story " + args[0])
		return
	}
	r := snap.Record
	fmt.Printf("%s\t%s\t%s\n", r.ID, r.Status, r.Title)
	if r.Transcript.Text != "" {
		fmt.Println("\nTranscript:\n" + r.Transcript.Text)
	}
	if r.Feedback.Structured() {
		fmt.Println("\nStructure:\n" + r.Feedback.Structure)
		fmt.Println("\nCreative:\n" + r.Feedback.Creative)
	} else if r.Feedback.Text != "" {
		fmt.Println("\nFeedback:\n" + r.Feedback.Text)
	}
	if r.Error != "" {
		fmt.Println("\nError: " + r.Error)
	}
}

func runDelete(cmd *cobra.Command, args []string) {
	data := initData(true)
	err := data.Store.Delete(messages.StoryKey(data.UserID, args[0]))
	cmdapp.CheckOrPanic(err, "Can't delete story")
	fmt.Println("Deleted " + args[0])
}

func runContext(cmd *cobra.Command, args []string) {
	data := initData(false)
	err := data.Devices.SetPendingContext(args[0])
	cmdapp.CheckOrPanic(err, "Can't save context")
	fmt.Println("Saved. It will be attached to the next story")
}
