package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dekarrin/jellog"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

var flagShutdownTimeout time.Duration

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the server",
	Long: `Run the server until it gets SIGINT or SIGTERM, at which point it is shut
down gracefully. A second signal during shutdown exits immediately.`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().DurationVar(&flagShutdownTimeout, "shutdown-timeout", 30*time.Second, "Time to wait for requests to finish when stopping")
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger.Info("Starting server...")
	srv, err := env.NewServer(ctx, &cfg)
	if err != nil {
		return err
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		err := srv.ServeForever()
		if errors.Is(err, http.ErrServerClosed) {
			logger.Info("Server shutdown by request")
			return nil
		}
		return fmt.Errorf("server encountered a problem: %w", err)
	})

	g.Go(func() error {
		<-gctx.Done()

		if ctx.Err() != nil {
			// further signals are no longer caught by ctx; a second one is a
			// hard exit.
			stop()
			hardExitOnSignal()

			// ctrl-C likes to write "^C" or similar in some console output,
			// so insert a break right after that.
			logger.InsertBreak(jellog.LvAll)
			logger.Info("Signal received; cleaning up server...")
		}

		shutdownCtx, cancel := context.WithTimeout(context.Background(), flagShutdownTimeout)
		defer cancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Warn(err.Error())
		}
		logger.Info("Server shutdown complete")
		return nil
	})

	cfgUsed := srv.Config()
	logger.Infof("Potluck server started on %s:%d; Ctrl-C (SIGINT) to stop", cfgUsed.Globals.Address, cfgUsed.Globals.Port)

	return g.Wait()
}

func hardExitOnSignal() {
	signalChan := make(chan os.Signal, 1)
	signal.Notify(signalChan, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-signalChan
		os.Exit(exitInterrupt)
	}()
}
