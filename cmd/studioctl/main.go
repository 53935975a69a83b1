// Package main provides the studio control CLI entry point.
package main

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/alecthomas/kingpin/v2"
	"github.com/joho/godotenv"

	apiconnect "github.com/osa030/hifzbox/internal/api/connect"
)

var (
	app    = kingpin.New("studioctl", "hifzbox studio control client")
	server = app.Flag("server", "Server address").Default("http://localhost:8080").String()
	token  = app.Flag("token", "Control token (or set HIFZBOX_CONTROL_TOKEN env)").Envar("HIFZBOX_CONTROL_TOKEN").String()

	// playback commands
	statusCmd = app.Command("status", "Show studio status")
	toggleCmd = app.Command("toggle", "Play or pause the current verse")
	stopCmd   = app.Command("stop", "Stop playback")
	nextCmd   = app.Command("next", "Play the next verse")
	prevCmd   = app.Command("prev", "Play the previous verse")

	// selection commands
	chaptersCmd = app.Command("chapters", "List chapters")

	chapterCmd    = app.Command("chapter", "Open a chapter")
	chapterNumber = chapterCmd.Arg("number", "Chapter number (1-114)").Required().Int()

	rangeCmd   = app.Command("range", "Select a verse range")
	rangeStart = rangeCmd.Arg("start", "First verse").Required().Int()
	rangeEnd   = rangeCmd.Arg("end", "Last verse").Required().Int()

	positionCmd   = app.Command("position", "Move to a verse in the range")
	positionVerse = positionCmd.Arg("verse", "Verse number").Required().Int()

	repeatCmd   = app.Command("repeat", "Set the repeat count (0 repeats forever)")
	repeatCount = repeatCmd.Arg("count", "Repeat count").Required().Int()

	voiceCmd     = app.Command("voice", "Select the reciter")
	voiceReciter = voiceCmd.Arg("reciter", "Reciter name").Required().String()

	languageCmd  = app.Command("language", "Select the translation language")
	languageCode = languageCmd.Arg("code", "Language code, e.g. en, fr, id").Required().String()

	modeCmd  = app.Command("mode", "Switch between student and teacher mode")
	modeName = modeCmd.Arg("mode", "student or teacher").Required().Enum("student", "teacher")

	// marks
	markCmd     = app.Command("mark", "Comment on a verse of the open chapter (empty comment clears)")
	markVerse   = markCmd.Arg("verse", "Verse number").Required().Int()
	markComment = markCmd.Arg("comment", "Comment").Default("").String()

	marksCmd = app.Command("marks", "List verse marks")

	// sessions
	saveCmd  = app.Command("save", "Save the current session")
	saveName = saveCmd.Arg("name", "Session name").Required().String()

	loadCmd  = app.Command("load", "Load a saved session")
	loadName = loadCmd.Arg("name", "Session name").Required().String()

	deleteCmd  = app.Command("delete", "Delete a saved session")
	deleteName = deleteCmd.Arg("name", "Session name").Required().String()

	sessionsCmd = app.Command("sessions", "List saved sessions").Alias("list")

	exportCmd  = app.Command("export", "Export a session as JSON")
	exportName = exportCmd.Arg("name", "Session name (current state if omitted)").Default("").String()
	exportOut  = exportCmd.Flag("output", "Write to file instead of stdout").Short('o').String()

	importCmd  = app.Command("import", "Import a session from a JSON file (- for stdin)")
	importFile = importCmd.Arg("file", "JSON file").Required().String()

	shareCmd = app.Command("share", "Print a share link for the current session")

	openCmd  = app.Command("open", "Open a shared session link")
	openLink = openCmd.Arg("url", "Share link").Required().String()

	subscribeCmd   = app.Command("subscribe", "Stream studio notifications")
	subscribeTypes = subscribeCmd.Flag("type", "Only show this notification type (repeatable)").Short('t').Strings()
)

func main() {
	// Load .env file if it exists (errors are ignored)
	_ = godotenv.Load()

	// Parse command
	command := kingpin.MustParse(app.Parse(os.Args[1:]))

	// Check control token
	if *token == "" {
		fmt.Println("Error: control token is required (use --token or HIFZBOX_CONTROL_TOKEN env)")
		os.Exit(1)
	}

	// Create client
	client := apiconnect.NewClient(http.DefaultClient, *server, *token)

	ctx := context.Background()

	// Execute command
	switch command {
	case statusCmd.FullCommand():
		resp, err := client.GetStatus(ctx)
		exitOnError(err)
		printStatus(resp)
	case toggleCmd.FullCommand():
		result(client.PlayPause(ctx))
	case stopCmd.FullCommand():
		result(client.Stop(ctx))
	case nextCmd.FullCommand():
		result(client.SkipNext(ctx))
	case prevCmd.FullCommand():
		result(client.SkipPrevious(ctx))
	case chaptersCmd.FullCommand():
		listChapters(ctx, client)
	case chapterCmd.FullCommand():
		result(client.SelectChapter(ctx, *chapterNumber))
	case rangeCmd.FullCommand():
		result(client.SetRange(ctx, *rangeStart, *rangeEnd))
	case positionCmd.FullCommand():
		result(client.SetPosition(ctx, *positionVerse))
	case repeatCmd.FullCommand():
		result(client.SetRepeat(ctx, *repeatCount))
	case voiceCmd.FullCommand():
		result(client.SetVoice(ctx, *voiceReciter))
	case languageCmd.FullCommand():
		result(client.SetLanguage(ctx, *languageCode))
	case modeCmd.FullCommand():
		result(client.SetMode(ctx, *modeName))
	case markCmd.FullCommand():
		result(client.MarkVerse(ctx, *markVerse, *markComment))
	case marksCmd.FullCommand():
		listMarks(ctx, client)
	case saveCmd.FullCommand():
		result(client.SaveSession(ctx, *saveName))
	case loadCmd.FullCommand():
		result(client.LoadSession(ctx, *loadName))
	case deleteCmd.FullCommand():
		result(client.DeleteSession(ctx, *deleteName))
	case sessionsCmd.FullCommand():
		listSessions(ctx, client)
	case exportCmd.FullCommand():
		exportSession(ctx, client, *exportName, *exportOut)
	case importCmd.FullCommand():
		importSession(ctx, client, *importFile)
	case shareCmd.FullCommand():
		resp, err := client.ShareSession(ctx)
		exitOnError(err)
		if resp["success"] == true {
			fmt.Println(str(resp["url"]))
		} else {
			fmt.Printf("Failed: %s\n", str(resp["message"]))
		}
	case openCmd.FullCommand():
		result(client.OpenShared(ctx, *openLink))
	case subscribeCmd.FullCommand():
		subscribe(ctx, client)
	}
}

func exitOnError(err error) {
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		os.Exit(1)
	}
}

// result prints the outcome of a command and the status line that follows it.
func result(resp map[string]any, err error) {
	exitOnError(err)

	if resp["success"] != true {
		if code := str(resp["code"]); code != "" {
			fmt.Printf("Rejected [%s]: %s\n", code, str(resp["message"]))
		} else {
			fmt.Printf("Failed: %s\n", str(resp["message"]))
		}
		os.Exit(1)
	}

	fmt.Println(str(resp["message"]))
	if status, ok := resp["status"].(map[string]any); ok {
		fmt.Println(statusLine(status))
	}
}

func statusLine(s map[string]any) string {
	if num(s["chapter"]) == 0 {
		return fmt.Sprintf("%s | no chapter selected", formatState(str(s["state"])))
	}
	return fmt.Sprintf("%s | %d:%d (range %d-%d) | repeat %s (%d) | %s",
		formatState(str(s["state"])),
		num(s["chapter"]), num(s["position"]),
		num(s["range_start"]), num(s["range_end"]),
		formatRepeat(num(s["repeat"])), num(s["repeat_progress"]),
		str(s["reciter"]))
}

func printStatus(s map[string]any) {
	fmt.Println("\n=== STUDIO STATUS ===")
	fmt.Printf("State: %s\n", formatState(str(s["state"])))
	fmt.Printf("Mode: %s\n", str(s["mode"]))
	fmt.Printf("Language: %s\n", str(s["language"]))
	if name := str(s["session"]); name != "" {
		fmt.Printf("Session: %s\n", name)
	}

	if num(s["chapter"]) == 0 {
		fmt.Println("\nNo chapter selected")
		fmt.Println()
		return
	}

	fmt.Println("\nSelection:")
	fmt.Printf("  Chapter: %d %s (%d verses)\n", num(s["chapter"]), str(s["chapter_name"]), num(s["verse_count"]))
	fmt.Printf("  Range: %d-%d\n", num(s["range_start"]), num(s["range_end"]))
	fmt.Printf("  Position: %d (global %d)\n", num(s["position"]), num(s["global_verse"]))
	fmt.Printf("  Repeat: %s (progress %d)\n", formatRepeat(num(s["repeat"])), num(s["repeat_progress"]))
	fmt.Printf("  %s\n", str(s["repeat_mode"]))
	fmt.Printf("  Reciter: %s\n", str(s["reciter"]))

	if text := str(s["verse_text"]); text != "" {
		fmt.Println("\nCurrent Verse:")
		fmt.Printf("  %s\n", text)
		if tr := str(s["verse_transliteration"]); tr != "" {
			fmt.Printf("  %s\n", tr)
		}
		if tr := str(s["verse_translation"]); tr != "" {
			fmt.Printf("  %s\n", tr)
		}
	}
	if mark := str(s["verse_mark"]); mark != "" {
		fmt.Printf("  Mark: %s\n", mark)
	}
	fmt.Println()
}

func formatState(state string) string {
	switch state {
	case "idle":
		return "⏹  Idle"
	case "loading":
		return "⏳ Loading"
	case "playing":
		return "▶️  Playing"
	case "paused":
		return "⏸  Paused"
	case "stopped":
		return "⏹  Stopped"
	default:
		return "❓ Unknown"
	}
}

func listSessions(ctx context.Context, client *apiconnect.Client) {
	resp, err := client.ListSessions(ctx)
	exitOnError(err)

	sessions, _ := resp["sessions"].([]any)
	if len(sessions) == 0 {
		fmt.Println("No saved sessions")
		return
	}
	fmt.Println(renderTable(
		[]string{"Name", "Chapter", "Verses", "Repeat", "Reciter", "Updated"},
		sessionRows(sessions, time.Now()),
		[]columnAlignment{alignLeft, alignRight, alignRight, alignRight, alignLeft, alignLeft},
	))
}

func listChapters(ctx context.Context, client *apiconnect.Client) {
	resp, err := client.ListChapters(ctx)
	exitOnError(err)

	chapters, _ := resp["chapters"].([]any)
	fmt.Println(renderTable(
		[]string{"#", "Name", "Transliteration", "Translation", "Type", "Verses"},
		chapterRows(chapters),
		[]columnAlignment{alignRight, alignRight, alignLeft, alignLeft, alignLeft, alignRight},
	))
}

func listMarks(ctx context.Context, client *apiconnect.Client) {
	resp, err := client.ListMarks(ctx)
	exitOnError(err)

	marks, _ := resp["marks"].(map[string]any)
	rows := markRows(marks)
	if len(rows) == 0 {
		fmt.Println("No marked verses")
		return
	}
	fmt.Println(renderTable([]string{"Verse", "Comment"}, rows, nil))
}

func exportSession(ctx context.Context, client *apiconnect.Client, name, output string) {
	resp, err := client.ExportSession(ctx, name)
	exitOnError(err)
	if resp["success"] != true {
		fmt.Printf("Failed: %s\n", str(resp["message"]))
		os.Exit(1)
	}

	payload := str(resp["payload"])
	if output == "" {
		fmt.Println(payload)
		return
	}
	if err := os.WriteFile(output, []byte(payload+"\n"), 0o644); err != nil {
		exitOnError(err)
	}
	fmt.Printf("Session exported to %s\n", output)
}

func importSession(ctx context.Context, client *apiconnect.Client, file string) {
	var (
		data []byte
		err  error
	)
	if file == "-" {
		data, err = io.ReadAll(os.Stdin)
	} else {
		data, err = os.ReadFile(file)
	}
	exitOnError(err)

	resp, err := client.ImportSession(ctx, strings.TrimSpace(string(data)))
	exitOnError(err)
	if resp["success"] != true {
		fmt.Printf("Rejected [%s]: %s\n", str(resp["code"]), str(resp["message"]))
		os.Exit(1)
	}
	if s, ok := resp["session"].(map[string]any); ok {
		fmt.Printf("Imported as %q\n", str(s["name"]))
	}
}

func subscribe(ctx context.Context, client *apiconnect.Client) {
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	fmt.Println("Subscribed to notifications. Press Ctrl+C to exit.")

	err := client.Subscribe(ctx, *subscribeTypes, printNotification)
	if err != nil && ctx.Err() == nil {
		fmt.Printf("Stream error: %v\n", err)
		os.Exit(1)
	}
	fmt.Println("\nUnsubscribing...")
}

func printNotification(n map[string]any) {
	fmt.Printf("\n[Sequence: %d] === %s ===\n", num(n["sequence_no"]), strings.ToUpper(str(n["type"])))
	if msg := str(n["message"]); msg != "" {
		fmt.Println(msg)
	}
	if fields, ok := n["fields"].(map[string]any); ok {
		fmt.Println(statusLine(fields))
		if text := str(fields["verse_translation"]); text != "" && str(n["type"]) == "verse_started" {
			fmt.Printf("  %s\n", text)
		}
	}
}
