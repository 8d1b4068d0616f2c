// Command workoutctl lists and creates workouts from the terminal.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"text/tabwriter"
	"time"

	"example.com/gymplanner/internal/config"
	"example.com/gymplanner/pkg/client"
	"example.com/gymplanner/pkg/contract"
)

const (
	exitOK         = 0
	exitFailure    = 1
	exitValidation = 2
)

const usage = `Usage: workoutctl [flags] <command>

Commands:
  list             show all workouts, newest first
  create <name>    create a workout with the given name

Flags:
`

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	defaultURL := client.DefaultBaseURL
	if cfg, err := config.LoadClient(); err == nil && cfg.APIURL != "" {
		defaultURL = cfg.APIURL
	}

	fs := flag.NewFlagSet("workoutctl", flag.ContinueOnError)
	fs.SetOutput(stderr)
	apiURL := fs.String("api-url", defaultURL, "base URL of the workout API")
	timeout := fs.Duration("timeout", 10*time.Second, "request timeout")
	fs.Usage = func() {
		fmt.Fprint(stderr, usage)
		fs.PrintDefaults()
	}
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return exitOK
		}
		return exitValidation
	}

	rest := fs.Args()
	if len(rest) == 0 {
		fs.Usage()
		return exitValidation
	}

	ctx, cancel := context.WithTimeout(ctx, *timeout)
	defer cancel()

	c := client.New(*apiURL)

	switch rest[0] {
	case "list":
		return listWorkouts(ctx, c, stdout, stderr)
	case "create":
		return createWorkout(ctx, c, strings.Join(rest[1:], " "), stdout, stderr)
	default:
		fmt.Fprintf(stderr, "unknown command %q\n\n", rest[0])
		fs.Usage()
		return exitValidation
	}
}

func listWorkouts(ctx context.Context, c *client.Client, stdout, stderr io.Writer) int {
	workouts, err := c.GetWorkouts(ctx)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %s\n", err)
		return exitFailure
	}
	if len(workouts) == 0 {
		fmt.Fprintln(stdout, "No workouts yet. Create one!")
		return exitOK
	}

	tw := tabwriter.NewWriter(stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "NAME\tCREATED\tID")
	for _, w := range workouts {
		fmt.Fprintf(tw, "%s\t%s\t%s\n", w.Name, formatTime(w.CreatedAt), w.ID)
	}
	if err := tw.Flush(); err != nil {
		fmt.Fprintf(stderr, "Error: %s\n", err)
		return exitFailure
	}
	return exitOK
}

func createWorkout(ctx context.Context, c *client.Client, rawName string, stdout, stderr io.Writer) int {
	req := contract.CreateWorkoutRequest{Name: strings.TrimSpace(rawName)}
	if err := req.Validate(); err != nil {
		return reportValidation(err, stderr)
	}

	workout, err := c.CreateWorkout(ctx, req)
	if err != nil {
		var cerr *client.Error
		if errors.As(err, &cerr) && len(cerr.Issues) > 0 {
			fmt.Fprintln(stderr, cerr.Issues[0].Message)
			return exitValidation
		}
		fmt.Fprintf(stderr, "Error: %s\n", err)
		return exitFailure
	}

	fmt.Fprintf(stdout, "Created %q (%s) at %s\n", workout.Name, workout.ID, formatTime(workout.CreatedAt))
	return exitOK
}

func reportValidation(err error, stderr io.Writer) int {
	var verr *contract.ValidationError
	if errors.As(err, &verr) {
		fmt.Fprintln(stderr, verr.First().Message)
		return exitValidation
	}
	fmt.Fprintf(stderr, "Error: %s\n", err)
	return exitFailure
}

func formatTime(t time.Time) string {
	return t.Local().Format("Jan 2, 2006 15:04")
}
