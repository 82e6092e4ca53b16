package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/storyloom/storyloom/config"
	"github.com/storyloom/storyloom/editor"
	"github.com/storyloom/storyloom/feed"
	"github.com/storyloom/storyloom/logbuf"
	"github.com/storyloom/storyloom/session"
	"github.com/storyloom/storyloom/store"
)

var writeChapterID int

var writeCmd = &cobra.Command{
	Use:   "write",
	Short: "Open the interactive co-writing session",
	Long: `Open the full-screen co-writing session for the configured project.

Shortcuts:
  1-5      Accept the numbered suggestion
  R        Regenerate suggestions
  E        Type a line manually (Esc cancels, Enter commits)
  Tab      Cycle chapter focus, Enter selects
  N        Create a new draft chapter
  P        Pause ledger auto-scroll
  ?        Toggle help
  Q        Quit`,
	RunE: runWrite,
}

func init() {
	writeCmd.Flags().IntVar(&writeChapterID, "chapter", 0, "Chapter ID to open initially (default: first chapter)")
}

func runWrite(cmd *cobra.Command, args []string) error {
	if !isInteractiveTerminal() {
		return fmt.Errorf("storyloom write needs an interactive terminal")
	}
	return runWriteForegroundUI()
}

func runWriteForegroundUI() error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)
	go func() {
		select {
		case <-sigCh:
			cancel()
		case <-ctx.Done():
		}
	}()

	root, err := config.FindProjectRoot()
	if err != nil {
		return err
	}
	cfg, err := config.Load(root)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	logs := logbuf.New(cfg.Log.Limit)
	restoreLogs := captureSessionUILogs(logs)
	defer restoreLogs()

	editorClient := editor.New(cfg.Server.URL, cfg.Project.ID)
	storeClient := store.New(cfg.Server.URL)

	// The session and feed client exist before the tea program does, so
	// notifications go through a buffered relay instead of p.Send directly.
	relay := make(chan tea.Msg, 256)
	send := func(m tea.Msg) { relaySend(ctx, relay, m) }

	sess := session.New(editorClient, logs, sessionConfig(cfg), session.Hooks{
		OnChange: func() { send(sessionChangedMsg{}) },
	})

	feedClient, err := feed.NewClient(cfg.Server.URL, cfg.Project.ID, feed.Options{
		Logs:           logs,
		BackoffInitial: cfg.Feed.ReconnectInitial(),
		BackoffMax:     cfg.Feed.ReconnectMax(),
		OnChange:       func() { send(sessionChangedMsg{}) },
		OnComplete:     func(ev feed.CompleteEvent) { send(generationCompleteMsg{ev: ev}) },
	})
	if err != nil {
		return err
	}

	model := newSessionUIModel(ctx, cancel, cfg, sess, feedClient, storeClient, logs)
	p := tea.NewProgram(model, tea.WithAltScreen())

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		for {
			select {
			case <-gctx.Done():
				return gctx.Err()
			case m := <-relay:
				p.Send(m)
			}
		}
	})
	g.Go(func() error {
		return config.Watch(gctx, root, func(fresh *config.Config) {
			sess.ApplyConfig(sessionConfig(fresh))
			send(configReloadedMsg{})
		})
	})
	g.Go(func() error {
		return runSessionWorker(gctx, p, cfg, sess, feedClient, storeClient)
	})

	_, runErr := p.Run()
	cancel()
	workerErr := g.Wait()

	feedClient.Disconnect()
	sess.Close()

	if runErr != nil {
		return runErr
	}
	if workerErr != nil && !errors.Is(workerErr, context.Canceled) {
		return workerErr
	}
	return nil
}

// relaySend forwards a message to the relay channel. Change notifications
// are coalescable: any queued one triggers a full state mirror, so dropping
// them when the relay is saturated loses nothing. Everything else is a
// one-shot event (generation complete, config reloaded) and must not be
// dropped; wait for a slot unless the session is shutting down.
func relaySend(ctx context.Context, relay chan tea.Msg, msg tea.Msg) {
	switch msg.(type) {
	case sessionChangedMsg:
		select {
		case relay <- msg:
		default:
		}
	default:
		select {
		case relay <- msg:
		case <-ctx.Done():
		}
	}
}

func sessionConfig(cfg *config.Config) session.Config {
	return session.Config{
		SuggestCount: cfg.Suggest.Count,
		ContextHint:  cfg.Suggest.Hint,
		RegenDelay:   cfg.Suggest.RegenDelay(),
	}
}

// runSessionWorker connects the progress feed and loads the chapter list,
// then idles until the session ends.
func runSessionWorker(ctx context.Context, p *tea.Program, cfg *config.Config, sess *session.Session, feedClient *feed.Client, storeClient *store.Client) error {
	if err := feedClient.Connect(ctx); err != nil {
		return err
	}

	loadCtx, loadCancel := context.WithTimeout(ctx, 30*time.Second)
	chapters, err := storeClient.ListChapters(loadCtx, cfg.Project.ID)
	loadCancel()
	if err != nil {
		p.Send(chaptersErrMsg{err: err})
	} else {
		p.Send(chaptersMsg{chapters: chapters, initial: true})
	}

	<-ctx.Done()
	return ctx.Err()
}
