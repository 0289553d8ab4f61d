// Command capture records a cry clip from the default microphone, uploads it
// for analysis and prints the diagnosis. It also renders cry history
// statistics and submits ratings.
package main

import (
	"bufio"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"letbabytalk/internal/capture"
	"letbabytalk/internal/client"
	"letbabytalk/internal/history"
	"letbabytalk/internal/model"
)

func usage() {
	fmt.Fprintln(os.Stderr, `usage: capture [flags] <command>

commands:
  record    record a clip (max 30s), upload it and print the diagnosis
  history   show per-category statistics over your recordings
  rate      rate a recording as good or bad

flags:`)
	flag.PrintDefaults()
}

func main() {
	serverURL := flag.String("server", "http://localhost:8080", "API server base URL")
	email := flag.String("email", "", "account email (a guest account is created when empty)")
	password := flag.String("password", "", "account password")
	flag.Usage = usage
	flag.Parse()

	if flag.NArg() < 1 {
		usage()
		os.Exit(2)
	}

	api := client.New(*serverURL)
	if err := login(api, *email, *password); err != nil {
		fatal(err)
	}

	var err error
	switch flag.Arg(0) {
	case "record":
		err = runRecord(api, flag.Args()[1:])
	case "history":
		err = runHistory(api, flag.Args()[1:])
	case "rate":
		err = runRate(api, flag.Args()[1:])
	default:
		usage()
		os.Exit(2)
	}
	if err != nil {
		fatal(err)
	}
}

func fatal(err error) {
	fmt.Fprintln(os.Stderr, "error:", err)
	os.Exit(1)
}

func login(api *client.Client, email, password string) error {
	if email == "" {
		user, err := api.Guest()
		if err != nil {
			return fmt.Errorf("guest login: %w", err)
		}
		fmt.Printf("logged in as guest (user %d); history will be empty on the next run\n", user.ID)
		return nil
	}
	if _, err := api.Login(email, password); err != nil {
		return fmt.Errorf("login: %w", err)
	}
	return nil
}

func runRecord(api *client.Client, args []string) error {
	fs := flag.NewFlagSet("record", flag.ExitOnError)
	babyID := fs.Uint("baby", 0, "baby profile id to attach the recording to")
	if err := fs.Parse(args); err != nil {
		return err
	}

	deviceCtx, err := capture.NewMalgoContext()
	if err != nil {
		return err
	}
	defer deviceCtx.Close()

	player, err := capture.NewMalgoPlayer()
	if err != nil {
		return err
	}
	defer player.Close()

	autoStopped := make(chan struct{})
	session := capture.NewSession(deviceCtx, player)
	session.OnAutoStop = func() { close(autoStopped) }

	if err := session.Start(); err != nil {
		return err
	}
	fmt.Println("recording (30s max), p: pause, r: resume, s: stop")

	lines := make(chan string)
	go func() {
		scanner := bufio.NewScanner(os.Stdin)
		for scanner.Scan() {
			lines <- strings.TrimSpace(scanner.Text())
		}
		close(lines)
	}()

loop:
	for {
		select {
		case <-autoStopped:
			fmt.Println("30 seconds reached, recording stopped")
			break loop
		case line, ok := <-lines:
			if !ok {
				if _, err := session.Stop(); err != nil {
					return err
				}
				break loop
			}
			switch line {
			case "p":
				if err := session.Pause(); err != nil {
					fmt.Println(err)
				} else {
					fmt.Printf("paused at %.0fs\n", session.Elapsed().Seconds())
				}
			case "r":
				if err := session.Resume(); err != nil {
					fmt.Println(err)
				}
			case "s", "":
				if _, err := session.Stop(); err != nil {
					return err
				}
				break loop
			}
		}
	}

	clip := session.Clip()
	duration := int(session.Elapsed().Seconds())
	fmt.Printf("captured %.1fs of audio\n", session.Elapsed().Seconds())

	path := filepath.Join(os.TempDir(), uuid.NewString()+".wav")
	if err := capture.WriteWAV(path, clip); err != nil {
		return err
	}
	defer os.Remove(path)

	var babyProfileID *uint
	if *babyID != 0 {
		id := uint(*babyID)
		babyProfileID = &id
	}

	fmt.Println("uploading…")
	recording, err := api.UploadRecording(path, duration, babyProfileID)
	if err != nil {
		// The local file stays in place so the clip is not lost.
		fmt.Printf("upload failed; clip kept at %s\n", path)
		return err
	}

	printDiagnosis(api, recording)
	return nil
}

func printDiagnosis(api *client.Client, recording *model.Recording) {
	result := recording.AnalysisResult
	fmt.Printf("\nrecording #%d\n", recording.ID)
	fmt.Printf("diagnosis:  %s (%.0f%% confidence)\n", result.CryType, result.Confidence*100)

	printed := false
	if reasons, err := api.CryReasons(); err == nil {
		for _, r := range reasons {
			if r.ClassName != result.CryType {
				continue
			}
			fmt.Printf("%s: %s\n", r.Title, r.Description)
			for _, rec := range r.Recommendations {
				fmt.Println("  -", rec)
			}
			printed = true
		}
	}
	if !printed {
		for _, rec := range result.Recommendations {
			fmt.Println("  -", rec)
		}
	}
	fmt.Printf("\nrate this diagnosis with: capture rate -id %d -state good|bad\n", recording.ID)
}

func runHistory(api *client.Client, args []string) error {
	fs := flag.NewFlagSet("history", flag.ExitOnError)
	rangeName := fs.String("range", "week", "time range: day, week, month or custom")
	from := fs.String("from", "", "custom range start (YYYY-MM-DD)")
	to := fs.String("to", "", "custom range end (YYYY-MM-DD)")
	babyID := fs.Uint("baby", 0, "restrict to one baby profile id (0 = all)")
	if err := fs.Parse(args); err != nil {
		return err
	}

	filter := history.Filter{Range: history.Range(*rangeName)}
	if !filter.Range.Valid() {
		return fmt.Errorf("invalid -range %q: must be day, week, month or custom", *rangeName)
	}
	if filter.Range == history.RangeCustom {
		var err error
		filter.From, err = time.ParseInLocation("2006-01-02", *from, time.Local)
		if err != nil {
			return fmt.Errorf("invalid -from date: %w", err)
		}
		if *to != "" {
			filter.To, err = time.ParseInLocation("2006-01-02", *to, time.Local)
			if err != nil {
				return fmt.Errorf("invalid -to date: %w", err)
			}
		}
	}
	if *babyID != 0 {
		id := uint(*babyID)
		filter.BabyProfileID = &id
	}

	recordings, err := api.Recordings()
	if err != nil {
		return err
	}

	titles := map[string]string{}
	if reasons, err := api.CryReasons(); err == nil {
		for _, r := range reasons {
			titles[r.ClassName] = r.Title
		}
	}

	summary := history.Aggregate(recordings, filter, titles)

	fmt.Printf("%d recording(s) in range %q\n\n", summary.Total, *rangeName)
	for _, cat := range summary.Categories {
		fmt.Printf("%-20s %3d  %5.1f%%\n", cat.Title, cat.Count, cat.Percentage)
	}
	if summary.Total > 0 {
		fmt.Printf("\ntop category:      %s\n", summary.TopCategory)
		fmt.Printf("categories used:   %d of %d\n", summary.CategoriesUsed, summary.TotalCategories)
		fmt.Printf("avg per category:  %.1f\n", summary.AveragePerActive)
	}
	return nil
}

func runRate(api *client.Client, args []string) error {
	fs := flag.NewFlagSet("rate", flag.ExitOnError)
	id := fs.Uint("id", 0, "recording id")
	state := fs.String("state", "", "good or bad")
	reason := fs.String("reason", "", "optional free-text reason / corrected label")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *id == 0 {
		return fmt.Errorf("-id is required")
	}

	recording, err := api.Rate(uint(*id), *state, *reason)
	if err != nil {
		return err
	}
	fmt.Printf("recording #%d rated %q\n", recording.ID, *state)
	return nil
}
