package cmd

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/pflag"
	"github.com/urfave/cli/v2"

	"github.com/boq-project/notify-dispatch/config"
)

const (
	ServiceName      = "notify-dispatch"
	ServiceNamespace = "boq"
)

var (
	version        = "0.0.0"
	commit         = "hash"
	commitDate     = time.Now().String()
	branch         = "branch"
	buildTimestamp = ""
)

// Run parses os.Args and executes the resolved command.
func Run() error {
	app := &cli.App{
		Name:  ServiceName,
		Usage: "Real-time event dispatch service",
		Commands: []*cli.Command{
			serverCmd(),
		},
	}
	return app.Run(os.Args)
}

func serverCmd() *cli.Command {
	return &cli.Command{
		Name:    "server",
		Aliases: []string{"s"},
		Usage:   "Run the notice consumer and HTTP surface",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "rabbitmq-host"},
			&cli.IntFlag{Name: "rabbitmq-port"},
			&cli.StringFlag{Name: "rabbitmq-user"},
			&cli.StringFlag{Name: "http-addr"},
			&cli.StringFlag{Name: "secrets-file"},
			&cli.IntFlag{Name: "avatar-cache-size"},
			&cli.BoolFlag{Name: "gravatar-enabled"},
			&cli.StringFlag{Name: "default-gravatar-uri"},
			&cli.BoolFlag{Name: "avatar-medium"},
		},
		Action: func(c *cli.Context) error {
			fs := pflag.NewFlagSet(ServiceName, pflag.ContinueOnError)
			config.Flags(fs)
			args := make([]string, 0, c.NArg())
			for _, name := range c.FlagNames() {
				if c.IsSet(name) {
					args = append(args, "--"+name+"="+c.String(name))
				}
			}
			if err := fs.Parse(args); err != nil {
				return err
			}

			cfg, err := config.Load(fs)
			if err != nil {
				return err
			}

			app := NewApp(cfg)
			if err := app.Start(c.Context); err != nil {
				return err
			}

			stop := make(chan os.Signal, 1)
			signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
			<-stop

			slog.Info("shutting down")
			return app.Stop(context.Background())
		},
	}
}
