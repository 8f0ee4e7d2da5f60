package main

import (
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/example/exit-interview/internal/apiclient"
	"github.com/example/exit-interview/internal/tui"
)

type options struct {
	apiURL      string
	interviewID string
}

func main() {
	opts, err := parseArgs(os.Args[1:], os.Stderr)
	if err != nil {
		os.Exit(2)
	}

	program := tea.NewProgram(tui.New(apiclient.New(opts.apiURL, nil), opts.interviewID))
	if _, err := program.Run(); err != nil {
		fmt.Fprintln(os.Stderr, "chat:", err)
		os.Exit(1)
	}
}

// parseArgs reads flags, falling back to EXIT_INTERVIEW_API_URL for the API
// address. The interview id may also be given as the only positional argument.
func parseArgs(args []string, stderr io.Writer) (options, error) {
	fs := flag.NewFlagSet("exitinterview-chat", flag.ContinueOnError)
	fs.SetOutput(stderr)

	defaultURL := os.Getenv("EXIT_INTERVIEW_API_URL")
	if defaultURL == "" {
		defaultURL = "http://localhost:8080"
	}

	var opts options
	fs.StringVar(&opts.apiURL, "api", defaultURL, "exit interview API base URL")
	fs.StringVar(&opts.interviewID, "interview", "", "interview identifier from the invitation link")
	if err := fs.Parse(args); err != nil {
		return options{}, err
	}
	if opts.interviewID == "" && fs.NArg() == 1 {
		opts.interviewID = fs.Arg(0)
	}
	opts.interviewID = strings.TrimSpace(opts.interviewID)
	if opts.interviewID == "" {
		fmt.Fprintln(stderr, "an interview id is required (-interview)")
		return options{}, fmt.Errorf("missing interview id")
	}
	return opts, nil
}
