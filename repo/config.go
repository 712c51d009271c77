package repo

import (
	"fmt"
	"github.com/btcsuite/btcutil"
	"github.com/jessevdk/go-flags"
	"github.com/natefinch/lumberjack"
	"github.com/op/go-logging"
	"io/ioutil"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"
)

const (
	defaultConfigFilename      = "colorswap.conf"
	defaultRelayConfigFilename = "relay.conf"
	defaultLogDirname          = "logs"
	defaultLogFilename         = "colorswap.log"
)

var (
	// DefaultHomeDir is the data directory used when none is configured.
	DefaultHomeDir = defaultHomeDir

	defaultHomeDir    = btcutil.AppDataDir("colorswap", false)
	defaultConfigFile = filepath.Join(defaultHomeDir, defaultConfigFilename)
	defaultLogDir     = filepath.Join(defaultHomeDir, defaultLogDirname)

	defaultRelayHomeDir    = btcutil.AppDataDir("colorswap-relay", false)
	defaultRelayConfigFile = filepath.Join(defaultRelayHomeDir, defaultRelayConfigFilename)

	fileLogFormat   = logging.MustStringFormatter(`%{time:2006-01-02T15:04:05} [%{level}] [%{module}] %{message}`)
	stdoutLogFormat = logging.MustStringFormatter(`%{color:reset}%{color}%{time:15:04:05.000} [%{level}] [%{module}] %{message}`)
)

// Config defines the configuration options for the swap agent.
//
// See LoadConfig for details on the configuration load process.
type Config struct {
	ConfigFile         string        `short:"C" long:"configfile" description:"Path to configuration file"`
	DataDir            string        `short:"b" long:"datadir" description:"Directory to store data"`
	LogDir             string        `long:"logdir" description:"Directory to log output."`
	LogLevel           string        `short:"l" long:"loglevel" description:"set the logging level [debug, info, notice, warning, error, critical]" default:"info"`
	RelayURL           string        `long:"relayurl" description:"URL of the message relay" default:"http://127.0.0.1:8090"`
	GatewayAddr        string        `long:"gatewayaddr" description:"Address the API gateway listens on" default:"127.0.0.1:8080"`
	LedgerURL          string        `long:"ledgerurl" description:"URL of the ledger daemon RPC. If empty a mock ledger funded with test coins is used."`
	OfferTTL           time.Duration `long:"offerttl" description:"How long an announced offer stays valid before it is reposted" default:"60s"`
	OfferGrace         time.Duration `long:"offergrace" description:"How long past its expiration a foreign offer is kept" default:"15s"`
	ProposalTTL        time.Duration `long:"proposalttl" description:"How long a proposal may stay active without completing" default:"30s"`
	ProposalRetransmit time.Duration `long:"proposalretransmit" description:"How often the active proposal is re-sent" default:"10s"`
	TickInterval       time.Duration `long:"tickinterval" description:"How often the negotiation state machine runs" default:"1s"`
	PollInterval       time.Duration `long:"pollinterval" description:"How often the relay is polled" default:"2s"`
	BootstrapWindow    time.Duration `long:"bootstrapwindow" description:"How far back the first relay poll looks" default:"60s"`
	MaxFee             uint64        `long:"maxfee" description:"Largest fee in uncolored base units we accept paying on a swap" default:"10000"`

	APIAllowedIPs []string `long:"allowedip" description:"Allowed IPs for connecting to the API. If none are set all IPs are allowed."`
	APINoCors     bool     `long:"nocors" description:"Disable CORS on the API"`
	APIUsername   string   `long:"apiusername" description:"Username for basic authentication on the API"`
	APIPassword   string   `long:"apipassword" description:"Hex encoded SHA256 hash of the basic authentication password"`
	APICookie     string   `long:"apicookie" description:"Cookie value required to access the API"`
}

// RelayConfig defines the configuration options for the relay server.
type RelayConfig struct {
	ConfigFile     string        `short:"C" long:"configfile" description:"Path to configuration file"`
	DataDir        string        `short:"b" long:"datadir" description:"Directory to store data"`
	LogDir         string        `long:"logdir" description:"Directory to log output."`
	LogLevel       string        `short:"l" long:"loglevel" description:"set the logging level [debug, info, notice, warning, error, critical]" default:"info"`
	ListenAddr     string        `long:"listenaddr" description:"Address the relay listens on" default:"0.0.0.0:8090"`
	Retention      time.Duration `long:"retention" description:"How long messages are kept" default:"10m"`
	MaxMessageSize int64         `long:"maxmessagesize" description:"Largest accepted message body in bytes" default:"65536"`
}

// LoadConfig initializes and parses the config using a config file and command
// line options.
//
// The configuration proceeds as follows:
// 	1) Start with a default config with sane settings
// 	2) Pre-parse the command line to check for an alternative config file
// 	3) Load configuration file overwriting defaults with any specified options
// 	4) Parse CLI options and overwrite/add any specified options
//
// The above results in the agent functioning properly without any config settings
// while still allowing the user to override settings with config files and
// command line options.  Command line options always take precedence.
func LoadConfig() (*Config, []string, error) {
	// Default config.
	cfg := Config{
		DataDir:    defaultHomeDir,
		ConfigFile: defaultConfigFile,
		LogDir:     defaultLogDir,
	}
	args, err := loadConfig(&cfg, &cfg.ConfigFile, sampleConfig)
	if err != nil {
		return nil, nil, err
	}

	cfg.DataDir = cleanAndExpandPath(cfg.DataDir)
	cfg.LogDir = cleanAndExpandPath(cfg.LogDir)

	SetupLogging(cfg.LogDir, cfg.LogLevel)
	return &cfg, args, nil
}

// LoadRelayConfig does for the relay server what LoadConfig does for
// the agent.
func LoadRelayConfig() (*RelayConfig, []string, error) {
	cfg := RelayConfig{
		DataDir:    defaultRelayHomeDir,
		ConfigFile: defaultRelayConfigFile,
		LogDir:     filepath.Join(defaultRelayHomeDir, defaultLogDirname),
	}
	args, err := loadConfig(&cfg, &cfg.ConfigFile, sampleRelayConfig)
	if err != nil {
		return nil, nil, err
	}

	cfg.DataDir = cleanAndExpandPath(cfg.DataDir)
	cfg.LogDir = cleanAndExpandPath(cfg.LogDir)

	SetupLogging(cfg.LogDir, cfg.LogLevel)
	return &cfg, args, nil
}

// DefaultConfig returns a Config holding only the default values of
// every option. No config file is read or written.
func DefaultConfig() (*Config, error) {
	cfg := Config{
		DataDir:    defaultHomeDir,
		ConfigFile: defaultConfigFile,
		LogDir:     defaultLogDir,
	}
	if _, err := flags.NewParser(&cfg, flags.None).ParseArgs(nil); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func loadConfig(cfg interface{}, configFile *string, sample string) ([]string, error) {
	// Pre-parse the command line options to see if an alternative config
	// file was specified.  Any errors aside from the help message error
	// can be ignored here since they will be caught by the final parse
	// below.
	preParser := flags.NewParser(cfg, flags.HelpFlag|flags.IgnoreUnknown)
	_, err := preParser.Parse()
	if err != nil {
		if e, ok := err.(*flags.Error); ok && e.Type == flags.ErrHelp {
			return nil, err
		}
	}
	preConfigFile := *configFile

	appName := filepath.Base(os.Args[0])
	appName = strings.TrimSuffix(appName, filepath.Ext(appName))
	usageMessage := fmt.Sprintf("Use %s -h to show usage", appName)

	// Load additional config from file.
	var configFileError error
	parser := flags.NewParser(cfg, flags.Default|flags.IgnoreUnknown)
	if _, err := os.Stat(preConfigFile); os.IsNotExist(err) {
		err := createDefaultConfigFile(preConfigFile, sample)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error creating a "+
				"default config file: %v\n", err)
		}
	}

	err = flags.NewIniParser(parser).ParseFile(preConfigFile)
	if err != nil {
		if _, ok := err.(*os.PathError); !ok {
			fmt.Fprintf(os.Stderr, "Error parsing config "+
				"file: %v\n", err)
			fmt.Fprintln(os.Stderr, usageMessage)
			return nil, err
		}
		configFileError = err
	}

	// Parse command line options again to ensure they take precedence.
	remainingArgs, err := parser.Parse()
	if err != nil {
		if e, ok := err.(*flags.Error); !ok || e.Type != flags.ErrHelp {
			fmt.Fprintln(os.Stderr, usageMessage)
		}
		return nil, err
	}

	// Warn about missing config file only after all other configuration is
	// done.  This prevents the warning on help messages and invalid
	// options.  Note this should go directly before the return.
	if configFileError != nil {
		fmt.Fprintf(os.Stderr, "%v\n", configFileError)
	}
	return remainingArgs, nil
}

// createDefaultConfigFile writes the sample config to the given
// destination path.
func createDefaultConfigFile(destinationPath, sample string) error {
	// Create the destination directory if it does not exists
	err := os.MkdirAll(filepath.Dir(destinationPath), 0700)
	if err != nil {
		return err
	}
	return ioutil.WriteFile(destinationPath, []byte(sample), 0600)
}

// cleanAndExpandPath expands environment variables and leading ~ in the
// passed path, cleans the result, and returns it.
func cleanAndExpandPath(path string) string {
	if path == "" {
		return path
	}
	// Expand initial ~ to OS specific home directory.
	if strings.HasPrefix(path, "~") {
		homeDir := filepath.Dir(defaultHomeDir)
		path = strings.Replace(path, "~", homeDir, 1)
	}

	// NOTE: The os.ExpandEnv doesn't work with Windows-style %VARIABLE%,
	// but they variables can still be expanded via POSIX-style $VARIABLE.
	return filepath.Clean(os.ExpandEnv(path))
}

// SetupLogging installs a colored stdout backend and, if logDir is not
// empty, a rotating file backend.
func SetupLogging(logDir, logLevel string) {
	backendStdout := logging.NewLogBackend(os.Stdout, "", 0)
	backendStdoutFormatter := logging.NewBackendFormatter(backendStdout, stdoutLogFormat)

	if logDir != "" {
		rotator := &lumberjack.Logger{
			Filename:   path.Join(logDir, defaultLogFilename),
			MaxSize:    10, // Megabytes
			MaxBackups: 3,
			MaxAge:     30, // Days
		}

		backendFile := logging.NewLogBackend(rotator, "", 0)
		backendFileFormatter := logging.NewBackendFormatter(backendFile, fileLogFormat)
		logging.SetBackend(backendStdoutFormatter, backendFileFormatter)
	} else {
		logging.SetBackend(backendStdoutFormatter)
	}

	logging.SetLevel(parseLogLevel(logLevel), "")
}

func parseLogLevel(logLevel string) logging.Level {
	switch strings.ToLower(logLevel) {
	case "debug":
		return logging.DEBUG
	case "info":
		return logging.INFO
	case "notice":
		return logging.NOTICE
	case "warning":
		return logging.WARNING
	case "error":
		return logging.ERROR
	case "critical":
		return logging.CRITICAL
	default:
		return logging.INFO
	}
}

const sampleConfig = `[Application Options]

; URL of the message relay.
; relayurl=http://127.0.0.1:8090

; Address the API gateway listens on.
; gatewayaddr=127.0.0.1:8080

; URL of the ledger daemon RPC. Leave empty to run against a mock ledger.
; ledgerurl=

; Negotiation timings.
; offerttl=60s
; offergrace=15s
; proposalttl=30s
; proposalretransmit=10s
; tickinterval=1s
; pollinterval=2s
; bootstrapwindow=60s

; Largest fee in uncolored base units we accept paying on a swap.
; maxfee=10000

; API access control. Leave empty to allow all local requests.
; allowedip=127.0.0.1
; apiusername=
; apipassword=
; apicookie=

; loglevel=info
`

const sampleRelayConfig = `[Application Options]

; Address the relay listens on.
; listenaddr=0.0.0.0:8090

; How long messages are kept.
; retention=10m

; Largest accepted message body in bytes.
; maxmessagesize=65536

; loglevel=info
`
