package main

import (
	"bufio"
	"crypto/rand"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"io"
	"net"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/kasbot/kasbot-server/chaincfg"
	"github.com/kasbot/kasbot-server/dal"
	"github.com/kasbot/kasbot-server/emission"
	"github.com/kasbot/kasbot-server/utils"

	"github.com/btcsuite/btcd/btcutil"
	"github.com/google/uuid"
	flags "github.com/jessevdk/go-flags"
)

const (
	defaultConfigFilename     = "kasbot-server.conf"
	defaultLogDirname         = "logs"
	defaultLogFilename        = "kasbot-server.log"
	defaultSQLiteFilename     = "kasbot.db"
	defaultDbType             = dal.DBTypeSQLite
	sampleConfigFilename      = "sample-kasbot-server.conf"
	defaultLogLevel           = "info"
	defaultMaxClients         = 1000
	defaultMaxWebsockets      = 100
	defaultMaxConcurrentReqs  = 20
	defaultDbAddress          = "127.0.0.1:3306"
	defaultDatabaseName       = "kasbot"
	defaultRequestsPerSecond  = 5
	defaultStatsInterval      = 30 * time.Second
	defaultDebounceInterval   = 60 * time.Second
	defaultRequestTimeout     = 15 * time.Second
	defaultStatsRecordRefresh = 10
	defaultBoundaryRule       = "additive"
)

var (
	defaultHomeDir    = btcutil.AppDataDir("kasbot-server", false)
	defaultConfigFile = filepath.Join(defaultHomeDir, defaultConfigFilename)
	defaultLogDir     = filepath.Join(defaultHomeDir, defaultLogDirname)
	defaultCertFile   = filepath.Join(defaultHomeDir, "kasbot.cert")
	defaultKeyFile    = filepath.Join(defaultHomeDir, "kasbot.key")
	knownDbTypes      = []string{dal.DBTypeMySQL, dal.DBTypeSQLite}
	knownBoundaries   = map[string]emission.BoundaryRule{
		"additive": emission.BoundaryAdditive,
		"legacy":   emission.BoundaryLegacy,
	}
	netParams = &chaincfg.MainNetParams
)

// config defines the configuration options for kasbot-server.
//
// See loadConfig for details on the configuration load process.
type config struct {
	// General
	ConfigFile  string                `short:"C" long:"configfile" description:"Path to configuration file"`
	AppDataDir  *utils.ExplicitString `short:"A" long:"appdata" description:"Application data directory for config, database and logs"`
	LogDir      *utils.ExplicitString `long:"logdir" description:"Directory to log output."`
	DebugLevel  string                `short:"d" long:"debuglevel" description:"Logging level for all subsystems {trace, debug, info, warn, error, critical} -- You may also specify <subsystem>=<level>,<subsystem2>=<level>,... to set the log level for individual subsystems -- Use show to list available subsystems"`
	ShowVersion bool                  `short:"V" long:"version" description:"Display version information and exit"`
	TestNet     bool                  `long:"testnet" description:"Use the test network"`
	ProfilePort string                `long:"profileport" description:"Enable HTTP profiling on given port -- NOTE port must be between 1024 and 65536"`

	// Database
	DbType              string                `long:"dbtype" description:"Database backend to use for the data {mysql, sqlite}"`
	DbUsername          string                `long:"dbusername" description:"Username which is used to connect with the mysql database"`
	DbPassword          string                `long:"dbpassword" default-mask:"-" description:"Password which is used to connect with the mysql database"`
	DbAddress           string                `long:"dbaddress" description:"IP address and port of the mysql database (default: 127.0.0.1:3306)"`
	DbName              string                `long:"dbname" description:"Name of the mysql database (default: kasbot)"`
	SQLitePath          *utils.ExplicitString `long:"sqlitepath" description:"Path of the sqlite database file"`
	DisableAutoCreateDB bool                  `long:"noautocreatedb" description:"Disable creating database and table automatically"`

	// Upstream services
	IndexerURL        string        `long:"indexerurl" description:"Base URL of the REST indexer (default: network specific)"`
	Proxy             string        `long:"proxy" description:"Connect to the indexer via SOCKS5 proxy (eg. 127.0.0.1:9050)"`
	ProxyUser         string        `long:"proxyuser" description:"Username for proxy server"`
	ProxyPass         string        `long:"proxypass" default-mask:"-" description:"Password for proxy server"`
	RequestsPerSecond float64       `long:"requestspersecond" description:"Max number of requests per second sent to the indexer, 0 disables the limit"`
	StatsInterval     time.Duration `long:"statsinterval" description:"Interval between two refreshes of the network statistics"`
	MarketURL         string        `long:"marketurl" description:"Base URL of the CoinGecko compatible market API"`
	MarketCacheTTL    time.Duration `long:"marketcachettl" description:"How long market answers are cached"`

	// Emission
	EmissionTable string `long:"emissiontable" description:"TOML or JSON file with an alternative emission schedule"`
	BoundaryRule  string `long:"boundaryrule" description:"How a phase crossed by an interval is counted {additive, legacy}"`

	// Wallet and tipping
	WalletURL       string `long:"walleturl" description:"Base URL of the custodial wallet service (default: network specific)"`
	WalletNamespace string `long:"walletnamespace" default-mask:"-" description:"UUID namespace used to derive the wallet of a chat user"`
	WalletEntropy   string `long:"walletentropy" default-mask:"-" description:"Server side secret mixed into wallet passwords"`
	DisableTipping  bool   `long:"notipping" description:"Disable the wallet and tipping commands"`

	// Gateway
	GatewayUser       string        `long:"gatewayuser" description:"Username of the chat adapters"`
	GatewayPass       string        `long:"gatewaypass" default-mask:"-" description:"Password of the chat adapters"`
	Listeners         []string      `long:"listen" description:"Add an interface/port to listen for chat adapter connections (HTTP/ws)"`
	ListenerPort      string        `long:"listenerport" description:"Port the gateway listens on when no listener is given"`
	DisableTLS        bool          `long:"notls" description:"Disable TLS for the gateway -- NOTE: This is only allowed if the gateway is bound to localhost"`
	Cert              string        `long:"cert" description:"File containing the certificate of the gateway"`
	Key               string        `long:"key" description:"File containing the certificate key of the gateway"`
	ExternalIPs       []string      `long:"externalip" description:"Add an ip to the hosts of the generated certificate"`
	MaxClients        int           `long:"maxclients" description:"Max number of concurrent HTTP clients"`
	MaxWebsockets     int           `long:"maxwebsockets" description:"Max number of websocket connections"`
	MaxConcurrentReqs int           `long:"maxconcurrentreqs" description:"Max number of requests processed concurrently per websocket"`
	RequestTimeout    time.Duration `long:"requesttimeout" description:"Time a command may spend on upstream calls"`
	Blacklists        []string      `long:"blacklist" description:"Add an IP network or IP that will be banned. (eg. 192.168.1.0/24 or ::1)"`
	blacklists        []*net.IPNet
	Whitelists        []string `long:"whitelist" description:"Add an IP network or IP that will not be banned. (eg. 192.168.1.0/24 or ::1)"`
	whitelists        []*net.IPNet

	// Tuning
	DebounceInterval    time.Duration `long:"debounceinterval" description:"Minimum interval between two accepted commands of a user"`
	DebounceCommands    []string      `long:"debounce" description:"Override the interval of one command (eg. price=30s)"`
	debounceIntervals   map[string]time.Duration
	StatsRecordInterval int `long:"statsrecordinterval" description:"Number of statistics refreshes between two persisted snapshots"`

	boundaryRule emission.BoundaryRule
	walletNS     uuid.UUID
}

// newConfigParser returns a new command line flags parser.
func newConfigParser(cfg *config, options flags.Options) *flags.Parser {
	parser := flags.NewParser(cfg, options)
	return parser
}

// createDefaultConfigFile copies the sample config file next to the binary to
// the given destination path and populates it with a randomly generated
// gateway username and password and wallet secrets.
func createDefaultConfigFile(destinationPath string) error {
	// Create the destination directory if it does not exists
	err := os.MkdirAll(filepath.Dir(destinationPath), 0700)
	if err != nil {
		return err
	}

	// We assume sample config file path is same as binary
	path, err := filepath.Abs(filepath.Dir(os.Args[0]))
	if err != nil {
		return err
	}
	sampleConfigPath := filepath.Join(path, sampleConfigFilename)

	generatedUser, err := randomString(20)
	if err != nil {
		return err
	}
	generatedPass, err := randomString(20)
	if err != nil {
		return err
	}
	entropy := make([]byte, 32)
	if _, err = rand.Read(entropy); err != nil {
		return err
	}

	src, err := os.Open(sampleConfigPath)
	if err != nil {
		return err
	}
	defer src.Close()

	dest, err := os.OpenFile(destinationPath,
		os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0600)
	if err != nil {
		return err
	}
	defer dest.Close()

	return rewriteSampleConfig(src, dest, map[string]string{
		"gatewayuser":     generatedUser,
		"gatewaypass":     generatedPass,
		"walletnamespace": uuid.NewString(),
		"walletentropy":   hex.EncodeToString(entropy),
	})
}

// rewriteSampleConfig copies every line of src to dest, replacing the
// commented or empty assignment of each key in values.
func rewriteSampleConfig(src io.Reader, dest io.Writer, values map[string]string) error {
	reader := bufio.NewReader(src)
	var err error
	for err != io.EOF {
		var line string
		line, err = reader.ReadString('\n')
		if err != nil && err != io.EOF {
			return err
		}

		trimmed := strings.TrimLeft(line, "; ")
		for key, value := range values {
			if strings.HasPrefix(trimmed, key+"=") {
				line = key + "=" + value + "\n"
				break
			}
		}

		if _, err := io.WriteString(dest, line); err != nil {
			return err
		}
	}
	return nil
}

func randomString(n int) (string, error) {
	randomBytes := make([]byte, n)
	if _, err := rand.Read(randomBytes); err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(randomBytes), nil
}

// cleanAndExpandPath expands environment variables and leading ~ in the
// passed path, cleans the result, and returns it.
func cleanAndExpandPath(path string) string {
	// Expand initial ~ to OS specific home directory.
	if strings.HasPrefix(path, "~") {
		homeDir := filepath.Dir(defaultHomeDir)
		path = strings.Replace(path, "~", homeDir, 1)
	}

	// NOTE: The os.ExpandEnv doesn't work with Windows-style %VARIABLE%,
	// but the variables can still be expanded via POSIX-style $VARIABLE.
	return filepath.Clean(os.ExpandEnv(path))
}

// supportedSubsystems returns a sorted slice of the supported subsystems for
// logging purposes.
func supportedSubsystems() []string {
	subsystems := make([]string, 0, len(subsystemLoggers))
	for subsysID := range subsystemLoggers {
		subsystems = append(subsystems, subsysID)
	}

	// Sort the subsystems for stable display.
	sort.Strings(subsystems)
	return subsystems
}

// validLogLevel returns whether or not logLevel is a valid debug log level.
func validLogLevel(logLevel string) bool {
	switch logLevel {
	case "trace":
		fallthrough
	case "debug":
		fallthrough
	case "info":
		fallthrough
	case "warn":
		fallthrough
	case "error":
		fallthrough
	case "critical":
		return true
	}
	return false
}

// validDbType returns whether or not dbType is a supported database type.
func validDbType(dbType string) bool {
	for _, knownType := range knownDbTypes {
		if dbType == knownType {
			return true
		}
	}

	return false
}

// parseAndSetDebugLevels attempts to parse the specified debug level and set
// the levels accordingly.  An appropriate error is returned if anything is
// invalid.
func parseAndSetDebugLevels(debugLevel string) error {
	// When the specified string doesn't have any delimters, treat it as
	// the log level for all subsystems.
	if !strings.Contains(debugLevel, ",") && !strings.Contains(debugLevel, "=") {
		if !validLogLevel(debugLevel) {
			str := "The specified debug level [%v] is invalid"
			return fmt.Errorf(str, debugLevel)
		}

		setLogLevels(debugLevel)

		return nil
	}

	// Split the specified string into subsystem/level pairs while detecting
	// issues and update the log levels accordingly.
	for _, logLevelPair := range strings.Split(debugLevel, ",") {
		if !strings.Contains(logLevelPair, "=") {
			str := "The specified debug level contains an invalid " +
				"subsystem/level pair [%v]"
			return fmt.Errorf(str, logLevelPair)
		}

		fields := strings.Split(logLevelPair, "=")
		subsysID, logLevel := fields[0], fields[1]

		if _, exists := subsystemLoggers[subsysID]; !exists {
			str := "The specified subsystem [%v] is invalid -- " +
				"supported subsytems %v"
			return fmt.Errorf(str, subsysID, supportedSubsystems())
		}

		if !validLogLevel(logLevel) {
			str := "The specified debug level [%v] is invalid"
			return fmt.Errorf(str, logLevel)
		}

		setLogLevel(subsysID, logLevel)
	}

	return nil
}

// removeDuplicateAddresses returns a new slice with all duplicate entries in
// addrs removed.
func removeDuplicateAddresses(addrs []string) []string {
	result := make([]string, 0, len(addrs))
	seen := map[string]struct{}{}
	for _, val := range addrs {
		if _, ok := seen[val]; !ok {
			result = append(result, val)
			seen[val] = struct{}{}
		}
	}
	return result
}

// normalizeAddress returns addr with the passed default port appended if
// there is not already a port specified.
func normalizeAddress(addr, defaultPort string) string {
	_, _, err := net.SplitHostPort(addr)
	if err != nil {
		return net.JoinHostPort(addr, defaultPort)
	}
	return addr
}

// normalizeAddresses returns a new slice with all the passed addresses
// normalized with the given default port, and all duplicates removed.
func normalizeAddresses(addrs []string, defaultPort string) []string {
	for i, addr := range addrs {
		addrs[i] = normalizeAddress(addr, defaultPort)
	}

	return removeDuplicateAddresses(addrs)
}

// parseIPNets converts IPs and CIDR networks to a list of networks.  A bare
// IP becomes a single host network.
func parseIPNets(kind string, values []string) ([]*net.IPNet, error) {
	if len(values) == 0 {
		return nil, nil
	}
	ipNets := make([]*net.IPNet, 0, len(values))
	for _, addr := range values {
		_, ipnet, err := net.ParseCIDR(addr)
		if err != nil {
			ip := net.ParseIP(addr)
			if ip == nil {
				return nil, fmt.Errorf("The %s value of '%s' is invalid", kind, addr)
			}
			var bits int
			if ip.To4() == nil {
				// IPv6
				bits = 128
			} else {
				bits = 32
			}
			ipnet = &net.IPNet{
				IP:   ip,
				Mask: net.CIDRMask(bits, bits),
			}
		}
		ipNets = append(ipNets, ipnet)
	}
	return ipNets, nil
}

// parseDebounceCommands parses command=duration pairs.
func parseDebounceCommands(pairs []string) (map[string]time.Duration, error) {
	intervals := make(map[string]time.Duration, len(pairs))
	for _, pair := range pairs {
		fields := strings.SplitN(pair, "=", 2)
		if len(fields) != 2 || strings.TrimSpace(fields[0]) == "" {
			return nil, fmt.Errorf("The debounce value of '%s' is not a command=duration pair", pair)
		}
		interval, err := time.ParseDuration(strings.TrimSpace(fields[1]))
		if err != nil || interval < 0 {
			return nil, fmt.Errorf("The debounce interval of '%s' is invalid", pair)
		}
		intervals[strings.TrimSpace(fields[0])] = interval
	}
	return intervals, nil
}

func parseBoundaryRule(s string) (emission.BoundaryRule, error) {
	rule, ok := knownBoundaries[strings.ToLower(strings.TrimSpace(s))]
	if !ok {
		return 0, fmt.Errorf("The boundary rule [%v] is invalid -- supported rules additive, legacy", s)
	}
	return rule, nil
}

// dbConfig returns the database settings of the configuration.
func (cfg *config) dbConfig() *dal.DBConfig {
	return &dal.DBConfig{
		Type:         cfg.DbType,
		Username:     cfg.DbUsername,
		Password:     cfg.DbPassword,
		Address:      cfg.DbAddress,
		DatabaseName: cfg.DbName,
		Path:         cfg.SQLitePath.Value,
	}
}

// loadConfig initializes and parses the config using a config file and command
// line options.
//
// The configuration proceeds as follows:
//  1. Start with a default config with sane settings
//  2. Pre-parse the command line to check for an alternative config file
//  3. Load configuration file overwriting defaults with any specified options
//  4. Parse CLI options and overwrite/add any specified options
//
// The above results in kasbot-server functioning properly without any config
// settings while still allowing the user to override settings with config
// files and command line options.  Command line options always take
// precedence.
func loadConfig() (*config, []string, error) {
	cfg := config{
		ConfigFile:          defaultConfigFile,
		AppDataDir:          utils.NewExplicitString(defaultHomeDir),
		LogDir:              utils.NewExplicitString(defaultLogDir),
		DebugLevel:          defaultLogLevel,
		DbType:              defaultDbType,
		DbName:              defaultDatabaseName,
		SQLitePath:          utils.NewExplicitString(filepath.Join(defaultHomeDir, defaultSQLiteFilename)),
		RequestsPerSecond:   defaultRequestsPerSecond,
		StatsInterval:       defaultStatsInterval,
		BoundaryRule:        defaultBoundaryRule,
		Cert:                defaultCertFile,
		Key:                 defaultKeyFile,
		MaxClients:          defaultMaxClients,
		MaxWebsockets:       defaultMaxWebsockets,
		MaxConcurrentReqs:   defaultMaxConcurrentReqs,
		RequestTimeout:      defaultRequestTimeout,
		DebounceInterval:    defaultDebounceInterval,
		StatsRecordInterval: defaultStatsRecordRefresh,
	}

	// Pre-parse the command line options to see if an alternative config
	// file or the version flag was specified.  Any errors aside from the
	// help message error can be ignored here since they will be caught by
	// the final parse below.
	preCfg := cfg
	preParser := newConfigParser(&preCfg, flags.HelpFlag)
	_, err := preParser.Parse()
	if err != nil {
		if e, ok := err.(*flags.Error); ok && e.Type == flags.ErrHelp {
			fmt.Fprintln(os.Stderr, err)
			return nil, nil, err
		}
	}

	// Show the version and exit if the version flag was specified.
	appName := filepath.Base(os.Args[0])
	appName = strings.TrimSuffix(appName, filepath.Ext(appName))
	usageMessage := fmt.Sprintf("Use %s -h to show usage", appName)
	if preCfg.ShowVersion {
		fmt.Println(appName, "version", version())
		os.Exit(0)
	}

	// Create the default config file on first run.
	if preCfg.ConfigFile == defaultConfigFile && !fileExists(preCfg.ConfigFile) {
		err := createDefaultConfigFile(preCfg.ConfigFile)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error creating a default config file: %v\n", err)
		}
	}

	// Load additional config from file.
	var configFileError error
	parser := newConfigParser(&cfg, flags.Default)
	err = flags.NewIniParser(parser).ParseFile(preCfg.ConfigFile)
	if err != nil {
		if _, ok := err.(*os.PathError); !ok {
			fmt.Fprintf(os.Stderr, "Error parsing config "+
				"file: %v\n", err)
			fmt.Fprintln(os.Stderr, usageMessage)
			return nil, nil, err
		}
		configFileError = err
	}

	// Parse command line options again to ensure they take precedence.
	remainingArgs, err := parser.Parse()
	if err != nil {
		if e, ok := err.(*flags.Error); !ok || e.Type != flags.ErrHelp {
			fmt.Fprintln(os.Stderr, usageMessage)
		}
		return nil, nil, err
	}

	funcName := "loadConfig"
	if err := cfg.validate(funcName); err != nil {
		fmt.Fprintln(os.Stderr, err)
		fmt.Fprintln(os.Stderr, usageMessage)
		return nil, nil, err
	}

	// Special show command to list supported subsystems and exit.
	if cfg.DebugLevel == "show" {
		fmt.Println("Supported subsystems", supportedSubsystems())
		os.Exit(0)
	}

	// Create the home directory if it doesn't already exist.
	err = os.MkdirAll(cfg.AppDataDir.Value, 0700)
	if err != nil {
		// Show a nicer error message if it's because a symlink is
		// linked to a directory that does not exist (probably because
		// it's not mounted).
		if e, ok := err.(*os.PathError); ok && os.IsExist(err) {
			if link, lerr := os.Readlink(e.Path); lerr == nil {
				str := "is symlink %s -> %s mounted?"
				err = fmt.Errorf(str, e.Path, link)
			}
		}

		str := "%s: Failed to create home directory: %v"
		err := fmt.Errorf(str, funcName, err)
		fmt.Fprintln(os.Stderr, err)
		return nil, nil, err
	}

	if cfg.DbType == dal.DBTypeSQLite && cfg.SQLitePath.Value != dal.MemoryPath {
		if err := os.MkdirAll(filepath.Dir(cfg.SQLitePath.Value), 0700); err != nil {
			err := fmt.Errorf("%s: Failed to create database directory: %v", funcName, err)
			fmt.Fprintln(os.Stderr, err)
			return nil, nil, err
		}
	}

	// Initialize log rotation. After log rotation has been initialized, the
	// logger variables may be used.
	initLogRotator(filepath.Join(cfg.LogDir.Value, defaultLogFilename))

	// Parse, validate, and set debug log level(s).
	if err := parseAndSetDebugLevels(cfg.DebugLevel); err != nil {
		err := fmt.Errorf("%s: %v", funcName, err.Error())
		fmt.Fprintln(os.Stderr, err)
		fmt.Fprintln(os.Stderr, usageMessage)
		return nil, nil, err
	}

	// Show version at startup.
	kbotLog.Infof("Version %s", version())
	kbotLog.Infof("Network %s, emission boundary rule %v", netParams.Name, cfg.boundaryRule)

	if cfg.GatewayUser == "" || cfg.GatewayPass == "" {
		kbotLog.Warnf("Gateway credentials are not configured, authentication is disabled")
	}
	if cfg.DisableTLS {
		kbotLog.Infof("TLS certificate for the gateway is disabled")
	}
	if cfg.DisableTipping {
		kbotLog.Infof("Wallet and tipping commands are disabled")
	}
	if len(cfg.Blacklists) > 0 {
		kbotLog.Infof("IP blacklist %s", cfg.Blacklists)
	}
	if len(cfg.Whitelists) > 0 {
		kbotLog.Infof("IP whitelist %s", cfg.Whitelists)
	}

	// Warn about missing config file only after all other configuration is
	// done.  This prevents the warning on help messages and invalid
	// options.  Note this should go directly before the return.
	if configFileError != nil {
		kbotLog.Warnf("%v", configFileError)
	}

	chaincfg.BotBackendVersion = version()

	return &cfg, remainingArgs, nil
}

// validate checks the parsed options and fills in the values derived from
// them.  It does not touch the file system nor the loggers.
func (cfg *config) validate(funcName string) error {
	// Multiple networks can't be selected simultaneously.
	if cfg.TestNet {
		netParams = &chaincfg.TestNetParams
		cfg.DbName = cfg.DbName + "_" + netParams.Name
	} else {
		netParams = &chaincfg.MainNetParams
	}
	chaincfg.ActiveNetParams = netParams

	// If the app data directory was given, the default log directory and
	// database follow it.
	cfg.AppDataDir.Value = cleanAndExpandPath(cfg.AppDataDir.Value)
	if cfg.AppDataDir.ExplicitlySet() {
		if !cfg.LogDir.ExplicitlySet() {
			cfg.LogDir.Value = filepath.Join(cfg.AppDataDir.Value, defaultLogDirname)
		}
		if !cfg.SQLitePath.ExplicitlySet() {
			cfg.SQLitePath.Value = filepath.Join(cfg.AppDataDir.Value, defaultSQLiteFilename)
		}
	}
	cfg.LogDir.Value = cleanAndExpandPath(cfg.LogDir.Value)
	if cfg.TestNet && !cfg.SQLitePath.ExplicitlySet() {
		dir, file := filepath.Split(cfg.SQLitePath.Value)
		cfg.SQLitePath.Value = filepath.Join(dir, netParams.Name, file)
	}
	if cfg.SQLitePath.Value != dal.MemoryPath {
		cfg.SQLitePath.Value = cleanAndExpandPath(cfg.SQLitePath.Value)
	}

	if !validDbType(cfg.DbType) {
		str := "%s: The specified database type [%v] is invalid -- " +
			"supported types %v"
		return fmt.Errorf(str, funcName, cfg.DbType, knownDbTypes)
	}
	if cfg.DbType == dal.DBTypeMySQL {
		if cfg.DbUsername == "" || cfg.DbPassword == "" {
			return fmt.Errorf("%s: database username or password not configured, please add them in "+
				"configuration file or specify them using --dbusername and --dbpassword", funcName)
		}
		if cfg.DbAddress == "" {
			cfg.DbAddress = defaultDbAddress
		}
		if cfg.DbName == "" {
			return fmt.Errorf("%s: nil dbname", funcName)
		}
	}

	rule, err := parseBoundaryRule(cfg.BoundaryRule)
	if err != nil {
		return fmt.Errorf("%s: %v", funcName, err)
	}
	cfg.boundaryRule = rule
	if cfg.EmissionTable != "" {
		cfg.EmissionTable = cleanAndExpandPath(cfg.EmissionTable)
	}

	if cfg.IndexerURL == "" {
		cfg.IndexerURL = netParams.RESTAPIURL
	}
	if cfg.WalletURL == "" {
		cfg.WalletURL = netParams.WalletAPIURL
	}
	if cfg.RequestsPerSecond < 0 {
		return fmt.Errorf("%s: requestspersecond must not be negative", funcName)
	}
	if cfg.StatsInterval <= 0 {
		cfg.StatsInterval = defaultStatsInterval
	}

	if !cfg.DisableTipping {
		if cfg.WalletNamespace == "" || cfg.WalletEntropy == "" {
			return fmt.Errorf("%s: walletnamespace and walletentropy should be configured "+
				"to enable tipping, or add --notipping", funcName)
		}
		ns, err := uuid.Parse(cfg.WalletNamespace)
		if err != nil {
			return fmt.Errorf("%s: walletnamespace is not a valid UUID: %v", funcName, err)
		}
		cfg.walletNS = ns
	}

	if cfg.ListenerPort == "" {
		cfg.ListenerPort = netParams.DefaultGatewayPort
	}
	// Add the default listener if none were specified. The default
	// listener is all addresses on the listen port for the network
	// we are to connect to.
	if len(cfg.Listeners) == 0 {
		cfg.Listeners = []string{
			net.JoinHostPort("", cfg.ListenerPort),
		}
	}
	cfg.Listeners = normalizeAddresses(cfg.Listeners, cfg.ListenerPort)
	cfg.Cert = cleanAndExpandPath(cfg.Cert)
	cfg.Key = cleanAndExpandPath(cfg.Key)

	if cfg.blacklists, err = parseIPNets("blacklist", cfg.Blacklists); err != nil {
		return fmt.Errorf("%s: %v", funcName, err)
	}
	if cfg.whitelists, err = parseIPNets("whitelist", cfg.Whitelists); err != nil {
		return fmt.Errorf("%s: %v", funcName, err)
	}

	if cfg.DebounceInterval < 0 {
		return fmt.Errorf("%s: debounceinterval must not be negative", funcName)
	}
	if cfg.debounceIntervals, err = parseDebounceCommands(cfg.DebounceCommands); err != nil {
		return fmt.Errorf("%s: %v", funcName, err)
	}
	if cfg.StatsRecordInterval <= 0 {
		cfg.StatsRecordInterval = defaultStatsRecordRefresh
	}

	// Validate profile port number
	if cfg.ProfilePort != "" {
		profilePort, err := strconv.Atoi(cfg.ProfilePort)
		if err != nil || profilePort < 1024 || profilePort > 65535 {
			str := "%s: The profile port must be between 1024 and 65535"
			return fmt.Errorf(str, funcName)
		}
	}

	return nil
}

// fileExists reports whether the named file or directory exists.
func fileExists(name string) bool {
	if _, err := os.Stat(name); err != nil {
		if os.IsNotExist(err) {
			return false
		}
	}
	return true
}
