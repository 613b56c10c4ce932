package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"strings"

	"github.com/franckalain/riceguard/internal/api"
	"github.com/franckalain/riceguard/internal/history"
	"github.com/franckalain/riceguard/internal/imaging"
	"github.com/franckalain/riceguard/internal/scan"
)

// errUsage means the command line was rejected and help was already printed
var errUsage = errors.New("usage")

// userMessage is an error whose text is shown to the user as is
type userMessage string

func (m userMessage) Error() string { return string(m) }

const (
	notLoggedIn     userMessage = "You must be logged in to scan."
	historyLocked   userMessage = "You must be logged in to view your history."
	noImage         userMessage = "Please select an image first!"
	nothingSelected userMessage = "Select at least one scan to delete."
)

// userText picks the message to show for a failed command
func userText(err error) string {
	var upErr *scan.UploadFailedError
	if errors.As(err, &upErr) {
		return upErr.Message
	}
	return api.Detail(err)
}

type command func(ctx context.Context, a *app, args []string) error

var commands = map[string]command{
	"register": runRegister,
	"login":    runLogin,
	"logout":   runLogout,
	"whoami":   runWhoami,
	"scan":     runScan,
	"history":  runHistory,
}

func newFlagSet(a *app, name string) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(a.out)
	return fs
}

func parse(fs *flag.FlagSet, args []string) error {
	if err := fs.Parse(args); err != nil {
		return errUsage
	}
	return nil
}

func runRegister(ctx context.Context, a *app, args []string) error {
	fs := newFlagSet(a, "register")
	email := fs.String("email", "", "account email")
	password := fs.String("password", "", "password, at least 6 characters")
	confirm := fs.String("confirm", "", "password confirmation")
	if err := parse(fs, args); err != nil {
		return err
	}

	user, err := a.shell.Signup(ctx, *email, *password, *confirm)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Signed up and logged in as %s <%s>\n", user.Name, user.Email)
	return nil
}

func runLogin(ctx context.Context, a *app, args []string) error {
	fs := newFlagSet(a, "login")
	email := fs.String("email", "", "account email")
	password := fs.String("password", "", "password")
	if err := parse(fs, args); err != nil {
		return err
	}

	user, err := a.shell.Login(ctx, *email, *password)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Logged in as %s <%s>\n", user.Name, user.Email)
	return nil
}

func runLogout(ctx context.Context, a *app, _ []string) error {
	if err := a.shell.Logout(ctx); err != nil {
		return err
	}
	fmt.Fprintln(a.out, "Logged out.")
	return nil
}

func runWhoami(_ context.Context, a *app, _ []string) error {
	user, ok := a.session.User()
	if !a.session.Authenticated() {
		fmt.Fprintln(a.out, "Not logged in.")
		return nil
	}
	if !ok {
		fmt.Fprintln(a.out, "Logged in.")
		return nil
	}
	fmt.Fprintf(a.out, "%s <%s>\n", user.Name, user.Email)
	return nil
}

func connectivityMessage(contract string) string {
	if contract == api.ContractLegacy {
		return scan.LegacyConnectivityMessage
	}
	return scan.ScansConnectivityMessage
}

func runScan(ctx context.Context, a *app, args []string) error {
	fs := newFlagSet(a, "scan")
	path := fs.String("image", "", "path to the leaf photo")
	notes := fs.String("notes", "", "optional notes stored with the scan")
	if err := parse(fs, args); err != nil {
		return err
	}
	if !a.session.Authenticated() {
		return notLoggedIn
	}
	if *path == "" {
		return noImage
	}

	img, err := imaging.Load(*path)
	if err != nil {
		return err
	}

	wf := scan.New(a.backend, a.session, scan.Options{
		PreviewDimension:    a.cfg.Upload.PreviewDimension,
		UploadMaxDimension:  a.cfg.Upload.MaxDimension,
		ModelVersion:        a.cfg.API.ModelVersion,
		ConnectivityMessage: connectivityMessage(a.cfg.API.Contract),
	})
	defer wf.Close()

	if err := wf.SelectImage(img); err != nil {
		return err
	}
	if p := wf.Preview(); p != nil {
		fmt.Fprintf(a.out, "Preview: %s\n", p.Path)
	}
	fs.Visit(func(f *flag.Flag) {
		if f.Name == "notes" {
			wf.SetNotes(notes)
		}
	})

	fmt.Fprintln(a.out, "Analyzing...")
	res, err := wf.Submit(ctx)
	if errors.Is(err, scan.ErrNotAuthenticated) {
		return notLoggedIn
	}
	if err != nil {
		return err
	}

	timestamp := res.Timestamp
	if timestamp == "" {
		timestamp = "-"
	}
	fmt.Fprintln(a.out, "Result")
	fmt.Fprintf(a.out, "  Disease:        %s\n", res.Disease)
	fmt.Fprintf(a.out, "  Confidence:     %s%%\n", res.Confidence)
	fmt.Fprintf(a.out, "  Recommendation: %s\n", res.Recommendation)
	fmt.Fprintf(a.out, "  Analyzed On:    %s\n", timestamp)
	return nil
}

func runHistory(ctx context.Context, a *app, args []string) error {
	fs := newFlagSet(a, "history")
	query := fs.String("q", "", "search disease, recommendation and timestamp")
	selectTS := fs.String("select", "", "comma-separated timestamps to toggle")
	selectAll := fs.Bool("select-all", false, "toggle selection of every visible entry")
	deleteSelected := fs.Bool("delete-selected", false, "delete the selected entries")
	deleteAll := fs.Bool("delete-all", false, "delete every entry")
	yes := fs.Bool("yes", false, "do not ask for confirmation")
	if err := parse(fs, args); err != nil {
		return err
	}
	if !a.session.Authenticated() {
		return historyLocked
	}

	view := history.New(a.backend, a.session)
	defer view.Close()
	if err := view.Load(ctx); err != nil {
		fmt.Fprintf(a.out, "Could not load history: %s\n", api.Detail(err))
	}

	view.SetQuery(*query)
	for _, ts := range strings.Split(*selectTS, ",") {
		if ts = strings.TrimSpace(ts); ts != "" {
			view.ToggleSelect(ts)
		}
	}
	if *selectAll {
		view.ToggleSelectAllVisible()
	}

	switch {
	case *deleteAll:
		if len(view.Entries()) == 0 {
			fmt.Fprintln(a.out, "Nothing to delete.")
			break
		}
		if !*yes && !confirm(a, "This will permanently delete all scans.") {
			fmt.Fprintln(a.out, "Cancelled.")
			break
		}
		n := view.DeleteAll(ctx)
		fmt.Fprintf(a.out, "Deleted %d scan(s).\n", n)
	case *deleteSelected:
		selected := len(view.Selected())
		if selected == 0 {
			return nothingSelected
		}
		if !*yes && !confirm(a, fmt.Sprintf("Delete %d selected scan(s)?", selected)) {
			fmt.Fprintln(a.out, "Cancelled.")
			break
		}
		n, err := view.DeleteSelected(ctx)
		if err != nil {
			return err
		}
		fmt.Fprintf(a.out, "Deleted %d scan(s).\n", n)
	}

	printHistory(a.out, view)
	return nil
}

func printHistory(w io.Writer, view *history.View) {
	visible := view.Visible()
	if len(visible) == 0 {
		fmt.Fprintln(w, "No scans yet.")
		return
	}
	if view.AllVisibleSelected() {
		fmt.Fprintln(w, "[x] all visible selected")
	}
	for _, e := range visible {
		mark := " "
		if view.IsSelected(e.Timestamp) {
			mark = "x"
		}
		fmt.Fprintf(w, "[%s] %s  %s  %s%%\n", mark, e.Timestamp, e.Disease, e.Confidence)
		if e.Recommendation != "" {
			fmt.Fprintf(w, "      %s\n", e.Recommendation)
		}
		if e.ImagePath != "" {
			fmt.Fprintf(w, "      %s\n", e.ImagePath)
		}
	}
}

func confirm(a *app, prompt string) bool {
	fmt.Fprintf(a.out, "%s [y/N]: ", prompt)
	line, err := a.in.ReadString('\n')
	if err != nil && line == "" {
		return false
	}
	switch strings.ToLower(strings.TrimSpace(line)) {
	case "y", "yes":
		return true
	}
	return false
}
