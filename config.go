package main

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

type Config struct {
	bind              string
	challengeDuration time.Duration
	introDuration     time.Duration
	maxPlayers        int
	playerTimeout     time.Duration
	port              int
	prefix            string
	profile           bool
	resultsDuration   time.Duration
	sessionTimeout    time.Duration
	snakeDuration     time.Duration
	snakeTick         time.Duration
	tlsCert           string
	tlsKey            string
	turnTimeout       time.Duration
	verbose           bool
	version           bool

	log zerolog.Logger
}

func (c *Config) validate() error {
	if (c.tlsCert == "") != (c.tlsKey == "") {
		return errors.New("both --tls-cert and --tls-key must be provided together")
	}
	if c.port < 1 || c.port > 65535 {
		return fmt.Errorf("invalid port (must be between 1-65535 inclusive): %d", c.port)
	}
	if c.maxPlayers < 1 || c.maxPlayers > 16 {
		return fmt.Errorf("invalid max-players (must be between 1-16 inclusive): %d", c.maxPlayers)
	}
	if c.challengeDuration < 5*time.Second {
		return fmt.Errorf("challenge-duration too short (minimum 5s): %s", c.challengeDuration)
	}
	if c.snakeDuration < 10*time.Second {
		return fmt.Errorf("snake-duration too short (minimum 10s): %s", c.snakeDuration)
	}
	if c.snakeTick < 50*time.Millisecond {
		return fmt.Errorf("snake-tick too short (minimum 50ms): %s", c.snakeTick)
	}
	if c.turnTimeout < time.Second {
		return fmt.Errorf("turn-timeout too short (minimum 1s): %s", c.turnTimeout)
	}
	return nil
}

func (c *Config) scheme() string {
	if c.tlsCert != "" && c.tlsKey != "" {
		return "https"
	}
	return "http"
}

func newLogger(verbose bool) zerolog.Logger {
	level := zerolog.InfoLevel
	if verbose {
		level = zerolog.DebugLevel
	}
	return zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}).
		Level(level).
		With().
		Timestamp().
		Logger()
}

func newCmd(cfg *Config) *cobra.Command {
	v := viper.New()
	v.SetEnvPrefix("QUESTPARTY")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	cmd := &cobra.Command{
		Use:           "questparty",
		Short:         "A real-time party quest for one screen and a handful of phones.",
		Args:          cobra.ExactArgs(0),
		SilenceErrors: true,
		Version:       releaseVersion,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := cfg.validate(); err != nil {
				return err
			}
			cfg.log = newLogger(cfg.verbose)
			return ServePage(cmd.Context(), cfg, args)
		},
	}

	fs := cmd.Flags()

	fs.SetNormalizeFunc(func(_ *pflag.FlagSet, name string) pflag.NormalizedName {
		return pflag.NormalizedName(strings.ReplaceAll(name, "_", "-"))
	})

	fs.StringVarP(&cfg.bind, "bind", "b", "0.0.0.0", "address to bind to (env: QUESTPARTY_BIND)")
	fs.DurationVar(&cfg.challengeDuration, "challenge-duration", 30*time.Second, "time players have to answer each quiz round (env: QUESTPARTY_CHALLENGE_DURATION)")
	fs.DurationVar(&cfg.introDuration, "intro-duration", 8*time.Second, "length of the opening introduction screen (env: QUESTPARTY_INTRO_DURATION)")
	fs.IntVar(&cfg.maxPlayers, "max-players", 8, "maximum players per room (env: QUESTPARTY_MAX_PLAYERS)")
	fs.DurationVar(&cfg.playerTimeout, "player-timeout", 30*time.Second, "grace period for disconnected players to reconnect (env: QUESTPARTY_PLAYER_TIMEOUT)")
	fs.IntVarP(&cfg.port, "port", "p", 8080, "port to listen on (env: QUESTPARTY_PORT)")
	fs.StringVar(&cfg.prefix, "prefix", "", "path to prepend to all URLs, for use behind reverse proxy (env: QUESTPARTY_PREFIX)")
	fs.BoolVar(&cfg.profile, "profile", false, "register net/http/pprof handlers (env: QUESTPARTY_PROFILE)")
	fs.DurationVar(&cfg.resultsDuration, "results-duration", 8*time.Second, "time round results stay on screen (env: QUESTPARTY_RESULTS_DURATION)")
	fs.DurationVar(&cfg.sessionTimeout, "session-timeout", 60*time.Minute, "time before idle rooms are ended (env: QUESTPARTY_SESSION_TIMEOUT)")
	fs.DurationVar(&cfg.snakeDuration, "snake-duration", 45*time.Second, "length of each snake arena round (env: QUESTPARTY_SNAKE_DURATION)")
	fs.DurationVar(&cfg.snakeTick, "snake-tick", 150*time.Millisecond, "snake arena tick interval (env: QUESTPARTY_SNAKE_TICK)")
	fs.StringVar(&cfg.tlsCert, "tls-cert", "", "path to tls certificate (env: QUESTPARTY_TLS_CERT)")
	fs.StringVar(&cfg.tlsKey, "tls-key", "", "path to tls keyfile (env: QUESTPARTY_TLS_KEY)")
	fs.DurationVar(&cfg.turnTimeout, "turn-timeout", 15*time.Second, "time before a stalled mini-game turn is auto-played (env: QUESTPARTY_TURN_TIMEOUT)")
	fs.BoolVarP(&cfg.verbose, "verbose", "v", false, "display additional output (env: QUESTPARTY_VERBOSE)")
	fs.BoolVarP(&cfg.version, "version", "V", false, "display version and exit (env: QUESTPARTY_VERSION)")

	fs.VisitAll(func(f *pflag.Flag) {
		_ = v.BindPFlag(f.Name, f)
		_ = v.BindEnv(f.Name)
		if !f.Changed && v.IsSet(f.Name) {
			_ = fs.Set(f.Name, fmt.Sprintf("%v", v.Get(f.Name)))
		}
	})

	cmd.CompletionOptions.HiddenDefaultCmd = true
	cmd.SetHelpCommand(&cobra.Command{Hidden: true})
	cmd.SetVersionTemplate("questparty v{{.Version}}\n")

	cmd.SilenceErrors = true
	cmd.SilenceUsage = true

	return cmd
}
