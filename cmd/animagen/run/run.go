package run

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/FabienDubin/AppsByMci-V2-sub002/internal/app"
	"github.com/FabienDubin/AppsByMci-V2-sub002/internal/config"
	"github.com/FabienDubin/AppsByMci-V2-sub002/internal/server"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

var Cmd = &cobra.Command{
	Use:   "run",
	Short: "Start the animagen server",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := config.GetConfig()

		application, err := app.NewApp(cfg,
			app.WithMQ(),
			app.WithDBInitialization(),
			app.WithFileStorage(),
			app.WithEmailNotifier(),
			app.WithPipelineEngine(),
		)
		if err != nil {
			return err
		}
		defer application.Close()

		application.StartNotificationWorker()

		srv, err := server.NewServer(cfg)
		if err != nil {
			return err
		}
		srv.SetupRoutes(application)

		errc := make(chan error, 1)
		go func() {
			errc <- srv.Start()
		}()

		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

		select {
		case err := <-errc:
			return err
		case sig := <-quit:
			application.Logger.Info("shutting down", zap.String("signal", sig.String()))
			return srv.Stop(context.Background())
		}
	},
}

func init() {
	Cmd.Flags().Int("port", 8188, "Port to run the server on")
	Cmd.Flags().String("host", "localhost", "Host to run the server on")
	Cmd.Flags().String("environment", "dev", "Environment configuration; affects default behavior")

	viper.BindPFlag("port", Cmd.Flags().Lookup("port"))
	viper.BindPFlag("host", Cmd.Flags().Lookup("host"))
	viper.BindPFlag("environment", Cmd.Flags().Lookup("environment"))
}
