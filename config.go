package main

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

type Config struct {
	bind          string
	playerTimeout time.Duration
	port          int
	prefix        string
	profile       bool
	roomTimeout   time.Duration
	tickRate      int
	tlsCert       string
	tlsKey        string
	validateFood  bool
	verbose       bool
	version       bool

	// play subcommand
	server         string
	matches        int
	clientTickRate int
}

func (c *Config) validate() error {
	if (c.tlsCert == "") != (c.tlsKey == "") {
		return errors.New("both --tls-cert and --tls-key must be provided together")
	}
	if c.port < 1 || c.port > 65535 {
		return fmt.Errorf("invalid port (must be between 1-65535 inclusive): %d", c.port)
	}
	if c.tickRate < 1 || c.tickRate > 60 {
		return fmt.Errorf("invalid tick rate (must be between 1-60 inclusive): %d", c.tickRate)
	}
	if c.playerTimeout < 0 || c.roomTimeout < 0 {
		return errors.New("timeouts must not be negative")
	}
	return nil
}

func (c *Config) validatePlay() error {
	u, err := url.Parse(c.server)
	if err != nil {
		return fmt.Errorf("invalid server url %q: %w", c.server, err)
	}
	if u.Scheme != "ws" && u.Scheme != "wss" {
		return fmt.Errorf("server url must use ws:// or wss://, got %q", c.server)
	}
	if c.matches < 0 {
		return fmt.Errorf("invalid match count: %d", c.matches)
	}
	if c.clientTickRate < 0 || c.clientTickRate > 60 {
		return fmt.Errorf("invalid client tick rate (must be between 0-60 inclusive): %d", c.clientTickRate)
	}
	return nil
}

func (c *Config) scheme() string {
	if c.tlsCert != "" && c.tlsKey != "" {
		return "https"
	}
	return "http"
}

// bindEnv lets every flag in fs fall back to a SNAKEBOX_* environment variable.
func bindEnv(v *viper.Viper, fs *pflag.FlagSet) {
	fs.SetNormalizeFunc(func(_ *pflag.FlagSet, name string) pflag.NormalizedName {
		return pflag.NormalizedName(strings.ReplaceAll(name, "_", "-"))
	})

	fs.VisitAll(func(f *pflag.Flag) {
		_ = v.BindPFlag(f.Name, f)
		_ = v.BindEnv(f.Name)
		if !f.Changed && v.IsSet(f.Name) {
			_ = fs.Set(f.Name, fmt.Sprintf("%v", v.Get(f.Name)))
		}
	})
}

func newCmd(cfg *Config) *cobra.Command {
	v := viper.New()
	v.SetEnvPrefix("SNAKEBOX")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	cmd := &cobra.Command{
		Use:           "snakebox",
		Short:         "A two-player real-time snake server.",
		Args:          cobra.ExactArgs(0),
		SilenceErrors: true,
		Version:       releaseVersion,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := cfg.validate(); err != nil {
				return err
			}
			return ServePage(cmd.Context(), cfg, args)
		},
	}

	fs := cmd.Flags()

	fs.StringVarP(&cfg.bind, "bind", "b", "0.0.0.0", "address to bind to (env: SNAKEBOX_BIND)")
	fs.DurationVar(&cfg.playerTimeout, "player-timeout", 60*time.Second, "time before unresponsive connections are dropped (env: SNAKEBOX_PLAYER_TIMEOUT)")
	fs.IntVarP(&cfg.port, "port", "p", 8080, "port to listen on (env: SNAKEBOX_PORT)")
	fs.StringVar(&cfg.prefix, "prefix", "", "path to prepend to all URLs, for use behind reverse proxy (env: SNAKEBOX_PREFIX)")
	fs.BoolVar(&cfg.profile, "profile", false, "register net/http/pprof handlers (env: SNAKEBOX_PROFILE)")
	fs.DurationVar(&cfg.roomTimeout, "room-timeout", 10*time.Minute, "time before rooms that never started are closed, 0 to disable (env: SNAKEBOX_ROOM_TIMEOUT)")
	fs.IntVar(&cfg.tickRate, "tick-rate", 4, "client simulation ticks per second announced at game start (env: SNAKEBOX_TICK_RATE)")
	fs.StringVar(&cfg.tlsCert, "tls-cert", "", "path to tls certificate (env: SNAKEBOX_TLS_CERT)")
	fs.StringVar(&cfg.tlsKey, "tls-key", "", "path to tls keyfile (env: SNAKEBOX_TLS_KEY)")
	fs.BoolVar(&cfg.validateFood, "validate-food", true, "only credit food claims naming the current food cell (env: SNAKEBOX_VALIDATE_FOOD)")
	fs.BoolVarP(&cfg.version, "version", "V", false, "display version and exit (env: SNAKEBOX_VERSION)")

	pfs := cmd.PersistentFlags()
	pfs.BoolVarP(&cfg.verbose, "verbose", "v", false, "display additional output (env: SNAKEBOX_VERBOSE)")

	bindEnv(v, fs)
	bindEnv(v, pfs)

	cmd.AddCommand(newPlayCmd(cfg, v))

	cmd.CompletionOptions.HiddenDefaultCmd = true
	cmd.SetHelpCommand(&cobra.Command{Hidden: true})
	cmd.SetVersionTemplate("snakebox v{{.Version}}\n")

	cmd.SilenceErrors = true
	cmd.SilenceUsage = true

	return cmd
}

func newPlayCmd(cfg *Config, v *viper.Viper) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "play",
		Short: "Join a server as an autopiloted player.",
		Args:  cobra.ExactArgs(0),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := cfg.validatePlay(); err != nil {
				return err
			}
			return Play(cmd.Context(), cfg)
		},
	}

	fs := cmd.Flags()

	fs.StringVar(&cfg.server, "server", "ws://localhost:8080/snake/ws", "websocket url of the game server (env: SNAKEBOX_SERVER)")
	fs.IntVar(&cfg.matches, "matches", 1, "number of matches to play before exiting, 0 for unlimited (env: SNAKEBOX_MATCHES)")
	fs.IntVar(&cfg.clientTickRate, "client-tick-rate", 0, "override the tick rate announced by the server (env: SNAKEBOX_CLIENT_TICK_RATE)")

	bindEnv(v, fs)

	return cmd
}
