package main

import (
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"handteleop/internal/app"
	"handteleop/internal/pipeline"
	"handteleop/internal/server"
	"handteleop/internal/tray"
)

func newRunCommand(configFlag *string) *cobra.Command {
	var noTray bool

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the teleoperation pipeline",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(*configFlag)
			if err != nil {
				return err
			}

			// The server needs the camera the app builds, and the app needs
			// the server's overlay sink; the indirection breaks the cycle.
			var (
				srv *server.Server
				t   *tray.Tray
			)
			a, err := app.New(cfg, app.Options{
				Overlay: func(o pipeline.Overlay) {
					srv.Overlay().Publish(o)
					if t != nil {
						t.SetStatus(o.Status)
					}
				},
			})
			if err != nil {
				return fmt.Errorf("assemble pipeline: %w", err)
			}

			srv = server.New(server.Config{
				Camera: a.Camera(),
				Sender: a.Sender(),
			})
			if !noTray {
				t = tray.New()
			}

			if err := a.Start(); err != nil {
				return fmt.Errorf("start pipeline: %w", err)
			}
			defer a.Stop()

			go func() {
				log.Printf("overlay server listening on %s", cfg.Server.Listen)
				if err := srv.ListenAndServe(cfg.Server.Listen); err != nil {
					log.Printf("server: %v", err)
				}
			}()

			if noTray {
				waitForSignal()
				return nil
			}

			t.OnToggle(a.SetEnabled)
			t.OnQuit(func() {})
			t.Run() // blocks until quit
			return nil
		},
	}

	cmd.Flags().BoolVar(&noTray, "no-tray", false, "Run headless without the system tray")

	return cmd
}

func waitForSignal() {
	ch := make(chan os.Signal, 1)
	signal.Notify(ch, os.Interrupt, syscall.SIGTERM)
	<-ch
	log.Println("shutting down")
}
