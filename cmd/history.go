package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strconv"

	"github.com/spf13/cobra"

	"hreq/internal/errdef"
	"hreq/internal/format"
	"hreq/internal/history"
	"hreq/internal/model"
	"hreq/internal/session"
	"hreq/internal/storage"
)

var (
	loadMerge       bool
	resendNoHistory bool
)

func init() {
	historyCmd := &cobra.Command{
		Use:   "history",
		Short: "View request history",
		Args:  cobra.NoArgs,
		Run:   runHistory(historyList),
	}

	showCmd := &cobra.Command{
		Use:   "show <method> <n>",
		Short: "Show full details of a history entry",
		Args:  cobra.ExactArgs(2),
		Run:   runHistory(historyShow),
	}

	deleteCmd := &cobra.Command{
		Use:   "delete <method> <n>",
		Short: "Delete a history entry; later entries are renumbered",
		Args:  cobra.ExactArgs(2),
		Run:   runHistory(historyDelete),
	}

	resendCmd := &cobra.Command{
		Use:   "resend <method> <n>",
		Short: "Send a history entry again",
		Args:  cobra.ExactArgs(2),
		Run:   runHistory(historyResend),
	}
	resendCmd.Flags().BoolVar(&resendNoHistory, "no-history", false, "Don't save to history")

	saveCmd := &cobra.Command{
		Use:   "save <file>",
		Short: "Save history to a JSON file",
		Args:  cobra.ExactArgs(1),
		Run:   runHistory(historySave),
	}

	loadCmd := &cobra.Command{
		Use:   "load <file>",
		Short: "Load history from a JSON file",
		Long:  "Load history from a JSON file. The current history is replaced unless --merge is given.",
		Args:  cobra.ExactArgs(1),
		Run:   runHistory(historyLoad),
	}
	loadCmd.Flags().BoolVar(&loadMerge, "merge", false, "Append the file's entries to the current history")

	clearCmd := &cobra.Command{
		Use:   "clear",
		Short: "Clear all history",
		Args:  cobra.NoArgs,
		Run:   runHistory(historyClear),
	}

	historyCmd.AddCommand(showCmd, deleteCmd, resendCmd, saveCmd, loadCmd, clearCmd)
	rootCmd.AddCommand(historyCmd)
}

// workspace is an open working-history database with a session over it.
type workspace struct {
	*app
	db   *storage.SQLiteStorage
	sess *session.Session
}

func withHistory(fn func(w *workspace) error) error {
	a, err := setup(false)
	if err != nil {
		return err
	}
	defer a.Close()

	db, err := storage.NewStorage(a.cfg.DataDir)
	if err != nil {
		return errdef.Wrap(errdef.CodeFilesystem, err, "failed to open history")
	}
	defer db.Close()

	store, err := db.LoadStore()
	if err != nil {
		return errdef.Wrap(errdef.CodeHistory, err, "failed to load history")
	}

	return fn(&workspace{
		app:  a,
		db:   db,
		sess: session.NewWithStore(store, a.client, a.log.Logger),
	})
}

func runHistory(fn func(w *workspace, args []string) error) func(cmd *cobra.Command, args []string) {
	return func(cmd *cobra.Command, args []string) {
		err := withHistory(func(w *workspace) error {
			return fn(w, args)
		})
		if err != nil {
			fail(err)
		}
	}
}

// parseEntry reads the "<method> <n>" argument pair.
func parseEntry(args []string) (model.Method, int, error) {
	method, ok := model.ParseMethod(args[0])
	if !ok {
		return "", 0, errdef.New(errdef.CodeParse, "unknown method %q", args[0])
	}
	n, err := strconv.Atoi(args[1])
	if err != nil || n < 1 {
		return "", 0, errdef.New(errdef.CodeParse, "entry number must be a positive integer, got %q", args[1])
	}
	return method, n, nil
}

func historyList(w *workspace, args []string) error {
	format.PrintHistoryTree(os.Stdout, w.sess.Store())
	return nil
}

func historyShow(w *workspace, args []string) error {
	method, n, err := parseEntry(args)
	if err != nil {
		return err
	}
	entry, err := w.sess.Select(method, n)
	if err != nil {
		return err
	}
	format.PrintRecordDetail(os.Stdout, entry)
	return nil
}

func historyDelete(w *workspace, args []string) error {
	method, n, err := parseEntry(args)
	if err != nil {
		return err
	}
	rec, err := w.sess.Delete(method, n)
	if err != nil {
		return err
	}
	if _, err := w.db.DeleteRecord(rec.ID); err != nil {
		return errdef.Wrap(errdef.CodeHistory, err, "failed to delete %s", history.Label(method, n))
	}
	format.PrintSuccess(os.Stdout, "Deleted "+history.Label(method, n))
	return nil
}

func historyResend(w *workspace, args []string) error {
	method, n, err := parseEntry(args)
	if err != nil {
		return err
	}
	entry, err := w.sess.Select(method, n)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	rec := entry.Record
	rec.ID = ""
	return send(ctx, w.sess, w.db, rec, !resendNoHistory, w.cfg.Highlight, os.Stdout, os.Stderr)
}

func historySave(w *workspace, args []string) error {
	saved, err := w.sess.Save(args[0])
	if err != nil {
		return err
	}
	if saved {
		format.PrintSuccess(os.Stdout, fmt.Sprintf("Saved %d entries to %s", w.sess.Store().Len(), args[0]))
	}
	return nil
}

func historyLoad(w *workspace, args []string) error {
	mode := history.LoadReplace
	if loadMerge {
		mode = history.LoadMerge
	}

	loaded, err := w.sess.Load(args[0], mode)
	if err != nil || !loaded {
		return err
	}
	if err := w.db.SaveStore(w.sess.Store()); err != nil {
		return errdef.Wrap(errdef.CodeHistory, err, "failed to store loaded history")
	}
	format.PrintSuccess(os.Stdout, fmt.Sprintf("Loaded %s (%s), %d entries", args[0], mode, w.sess.Store().Len()))
	return nil
}

func historyClear(w *workspace, args []string) error {
	if err := w.db.ClearHistory(); err != nil {
		return errdef.Wrap(errdef.CodeHistory, err, "failed to clear history")
	}
	format.PrintSuccess(os.Stdout, "History cleared")
	return nil
}
