package start

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"runtime/pprof"
	"syscall"
	"time"

	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/alpacahq/recordstore/internal/di"
	"github.com/alpacahq/recordstore/metrics"
	"github.com/alpacahq/recordstore/utils"
	"github.com/alpacahq/recordstore/utils/log"
)

const (
	usage      = "start"
	short      = "Start a record store node"
	long       = "This command starts a master or slave record store node as configured"
	example    = "recordstore start --config <path>"
	configDesc = "set the path for the recordstore YAML configuration file"

	snapshotSizeMonitorInterval = time.Minute
)

var (
	// Cmd is the start command.
	Cmd = &cobra.Command{
		Use:        usage,
		Short:      short,
		Long:       long,
		Aliases:    []string{"s"},
		SuggestFor: []string{"boot", "up"},
		Example:    example,
		RunE:       executeStart,
	}
	// configFilePath set flag for a path to the config file.
	configFilePath string
)

// nolint:gochecknoinits // cobra's standard way to initialize flags
func init() {
	Cmd.Flags().StringVarP(&configFilePath, "config", "c", utils.DefaultConfigPath, configDesc)
}

// executeStart implements the start command.
func executeStart(cmd *cobra.Command, _ []string) error {
	globalCtx, globalCancel := context.WithCancel(context.Background())
	defer globalCancel()

	// Attempt to read config file.
	data, err := os.ReadFile(configFilePath)
	if err != nil {
		return errors.Wrap(err, "failed to read configuration file")
	}

	// Don't output command usage if args(=only the filepath to recordstore.yml at the moment) are correct
	cmd.SilenceUsage = true

	log.Info("using %v for configuration", configFilePath)

	config, err := utils.ParseConfig(data)
	if err != nil {
		return errors.Wrap(err, "failed to parse configuration file")
	}

	start := time.Now()
	c := di.NewContainer(config)
	log.Info("initializing %s node...", config.Role)

	// the master store restores its snapshot here; a corrupt snapshot stops the startup
	if _, err = c.GetService(); err != nil {
		return err
	}
	if config.Role == utils.RoleMaster {
		if _, err = c.GetConnectors(); err != nil {
			return err
		}
		go metrics.StartSnapshotSizeMonitor(globalCtx, metrics.SnapshotSizeBytes, config.DataPath,
			snapshotSizeMonitorInterval)
	} else {
		c.GetMonitor()
	}

	startupTime := time.Since(start)
	metrics.StartupTime.Set(startupTime.Seconds())
	log.Info("startup time: %s", startupTime)

	if config.MetricsListenURL != "" {
		log.Info("launching prometheus metrics server on %s...", config.MetricsListenURL)
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.Handler())
		go func() {
			if err2 := http.ListenAndServe(config.MetricsListenURL, mux); err2 != nil {
				log.Error("metrics server error: %v", err2)
			}
		}()
	}

	// Spawn a goroutine and listen for a signal.
	const defaultSignalChanLen = 10
	signalChan := make(chan os.Signal, defaultSignalChanLen)
	go func() {
		for s := range signalChan {
			switch s {
			case syscall.SIGUSR1:
				log.Info("dumping stack traces due to SIGUSR1 request")
				if err2 := pprof.Lookup("goroutine").WriteTo(os.Stdout, 1); err2 != nil {
					log.Error("failed to write goroutine pprof: %v", err2)
				}
			case syscall.SIGINT, syscall.SIGTERM:
				log.Info("initiating graceful shutdown due to '%v' request", s)
				globalCancel()
				return
			}
		}
	}()
	signal.Notify(signalChan, syscall.SIGUSR1, syscall.SIGINT, syscall.SIGTERM)

	if err = c.Run(globalCtx); err != nil {
		return err
	}
	log.Info("exiting...")
	_ = log.Default().Sync()
	return nil
}
