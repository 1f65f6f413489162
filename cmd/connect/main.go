package connect

import (
	"context"
	"os"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/alpacahq/recordstore/cmd/connect/session"
	"github.com/alpacahq/recordstore/internal/di"
	"github.com/alpacahq/recordstore/utils"
	"github.com/alpacahq/recordstore/utils/log"
)

const (
	// Command
	// -------------.
	usage   = "connect"
	short   = "Run a record store node with an interactive session attached"
	long    = "This command starts a master or slave node in-process and opens an interactive session on its records"
	example = "recordstore connect --config <path>"

	configDesc = "set the path for the recordstore YAML configuration file"
)

var (
	// Cmd is the connect command.
	Cmd = &cobra.Command{
		Use:        usage,
		Short:      short,
		Long:       long,
		SuggestFor: []string{"open", "conn", "shell"},
		Example:    example,
		RunE:       executeConnect,
	}

	// configFilePath set flag for a path to the config file.
	configFilePath string
)

// nolint:gochecknoinits // cobra's standard way to initialize flags
func init() {
	Cmd.Flags().StringVarP(&configFilePath, "config", "c", utils.DefaultConfigPath, configDesc)
}

// executeConnect implements the connect command.
func executeConnect(cmd *cobra.Command, _ []string) error {
	data, err := os.ReadFile(configFilePath)
	if err != nil {
		return errors.Wrap(err, "failed to read configuration file")
	}
	config, err := utils.ParseConfig(data)
	if err != nil {
		return err
	}
	cmd.SilenceUsage = true

	c := di.NewContainer(config)
	svc, err := c.GetService()
	if err != nil {
		return err
	}
	if config.Role == utils.RoleMaster {
		// resolve connectors before Run so that the container is not shared half-built
		if _, err = c.GetConnectors(); err != nil {
			return err
		}
	} else {
		c.GetMonitor()
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- c.Run(ctx) }()

	// Enter command loop
	err = session.NewClient(svc, config.Role, os.Stdout).Read()

	cancel()
	if runErr := <-done; runErr != nil {
		log.Error("node stopped with error: %v", runErr)
	}
	log.Info("closed session")
	return err
}
