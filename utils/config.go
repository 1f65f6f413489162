package utils

import (
	"strings"
	"time"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v2"

	"github.com/alpacahq/recordstore/utils/log"
)

// DefaultConfigPath is used when no --config flag is given.
const DefaultConfigPath = "./recordstore.yml"

const (
	RoleMaster = "master"
	RoleSlave  = "slave"
)

// ReplicationSetting tunes connectors, the receiver and the monitor.
type ReplicationSetting struct {
	RetryInterval     time.Duration
	RetryMaxInterval  time.Duration
	RetryBackoffCoeff int
	PollInterval      time.Duration
	WriteTimeout      time.Duration
	MonitorInterval   time.Duration
}

type Config struct {
	Role             string
	DataPath         string
	Slaves           []string
	ListenAddress    string
	LogLevel         log.Level
	MetricsListenURL string
	Replication      ReplicationSetting
}

// ParseConfig reads a YAML config document and fills in defaults.
func ParseConfig(data []byte) (*Config, error) {
	var aux struct {
		Role             string   `yaml:"role"`
		DataPath         string   `yaml:"data_path"`
		Slaves           []string `yaml:"slaves"`
		ListenAddress    string   `yaml:"listen_address"`
		LogLevel         string   `yaml:"log_level"`
		MetricsListenURL string   `yaml:"metrics_listen_url"`
		Replication      struct {
			RetryInterval     string `yaml:"retry_interval"`
			RetryMaxInterval  string `yaml:"retry_max_interval"`
			RetryBackoffCoeff int    `yaml:"retry_backoff_coeff"`
			PollInterval      string `yaml:"poll_interval"`
			WriteTimeout      string `yaml:"write_timeout"`
			MonitorInterval   string `yaml:"monitor_interval"`
		} `yaml:"replication"`
	}

	if err := yaml.Unmarshal(data, &aux); err != nil {
		return nil, errors.Wrap(err, "failed to parse config")
	}

	m := &Config{
		Role:             strings.ToLower(aux.Role),
		DataPath:         aux.DataPath,
		Slaves:           aux.Slaves,
		ListenAddress:    aux.ListenAddress,
		LogLevel:         log.ParseLevel(aux.LogLevel),
		MetricsListenURL: aux.MetricsListenURL,
	}

	switch m.Role {
	case RoleMaster:
		if m.DataPath == "" {
			return nil, errors.New("data_path is required for a master")
		}
		for i, addr := range m.Slaves {
			if addr == "" {
				return nil, errors.Errorf("slaves[%d] is empty", i)
			}
		}
	case RoleSlave:
		if m.ListenAddress == "" {
			return nil, errors.New("listen_address is required for a slave")
		}
	default:
		return nil, errors.Errorf("invalid role %q, expected %q or %q", aux.Role, RoleMaster, RoleSlave)
	}

	r := &m.Replication
	durations := []struct {
		name  string
		value string
		def   time.Duration
		dst   *time.Duration
	}{
		{"retry_interval", aux.Replication.RetryInterval, 100 * time.Millisecond, &r.RetryInterval},
		{"retry_max_interval", aux.Replication.RetryMaxInterval, 5 * time.Second, &r.RetryMaxInterval},
		{"poll_interval", aux.Replication.PollInterval, 200 * time.Millisecond, &r.PollInterval},
		{"write_timeout", aux.Replication.WriteTimeout, 5 * time.Second, &r.WriteTimeout},
		{"monitor_interval", aux.Replication.MonitorInterval, time.Second, &r.MonitorInterval},
	}
	for _, d := range durations {
		if d.value == "" {
			*d.dst = d.def
			continue
		}
		v, err := time.ParseDuration(d.value)
		if err != nil || v <= 0 {
			return nil, errors.Errorf("invalid replication.%s: %q", d.name, d.value)
		}
		*d.dst = v
	}

	r.RetryBackoffCoeff = aux.Replication.RetryBackoffCoeff
	if r.RetryBackoffCoeff == 0 {
		r.RetryBackoffCoeff = 2
	}
	if r.RetryBackoffCoeff < 1 {
		return nil, errors.Errorf("invalid replication.retry_backoff_coeff: %d", r.RetryBackoffCoeff)
	}

	return m, nil
}
