package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"

	"github.com/spf13/cobra"

	"hreq/internal/format"
	"hreq/internal/model"
	"hreq/internal/session"
	"hreq/internal/storage"
)

var sendFlags requestFlags

func init() {
	sendCmd := &cobra.Command{
		Use:   "send",
		Short: "Send the request described by the flags",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			rec, err := sendFlags.record(model.MethodGet, model.ContentPlain)
			if err == nil {
				err = sendRequest(rec, !sendFlags.noHistory)
			}
			if err != nil {
				fail(err)
			}
		},
	}
	sendFlags.register(sendCmd, true)
	addHistoryFlag(sendCmd)
	rootCmd.AddCommand(sendCmd)

	for _, method := range model.Methods {
		methodCmd := &cobra.Command{
			Use:   strings.ToLower(method.String()) + " <url>",
			Short: fmt.Sprintf("Send a %s request", method),
			Args:  cobra.ExactArgs(1),
			Run:   runMethod(method),
		}
		sendFlags.register(methodCmd, false)
		addHistoryFlag(methodCmd)
		rootCmd.AddCommand(methodCmd)
	}
}

func addHistoryFlag(cmd *cobra.Command) {
	cmd.Flags().BoolVar(&sendFlags.noHistory, "no-history", false, "Don't save to history")
}

func runMethod(method model.Method) func(cmd *cobra.Command, args []string) {
	return func(cmd *cobra.Command, args []string) {
		sendFlags.url = args[0]
		rec, err := sendFlags.record(method, model.ContentPlain)
		if err == nil {
			err = sendRequest(rec, !sendFlags.noHistory)
		}
		if err != nil {
			fail(err)
		}
	}
}

// sendRequest sends rec against the working history and, when record is
// set, persists the new entry.
func sendRequest(rec model.RequestRecord, record bool) error {
	return withHistory(func(w *workspace) error {
		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
		defer stop()
		return send(ctx, w.sess, w.db, rec, record, w.cfg.Highlight, os.Stdout, os.Stderr)
	})
}

// send runs one request through sess, printing the response to out and
// notices to errOut.
func send(ctx context.Context, sess *session.Session, db *storage.SQLiteStorage, rec model.RequestRecord,
	record, highlight bool, out, errOut io.Writer) error {
	if record && rec.Method.CarriesBody() && looksSensitive(rec.Body) {
		format.PrintWarning(errOut, "Request body may contain sensitive data (e.g., passwords, tokens). This will be stored in history.")
		format.PrintWarning(errOut, "Use --no-history flag to skip storing this request.")
	}

	result, err := sess.Send(ctx, rec)
	if err != nil {
		return err
	}

	for _, w := range result.Warnings {
		format.PrintWarning(errOut, w)
	}
	format.PrintOutcome(out, result.Outcome, highlight)

	if !record {
		return nil
	}
	if _, err := db.AppendRecord(result.Entry.Record); err != nil {
		return err
	}
	format.PrintEntry(errOut, result.Entry)
	return nil
}
