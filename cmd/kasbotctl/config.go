package main

import (
	"fmt"
	"net"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/kasbot/kasbot-server/chaincfg"

	"github.com/btcsuite/btcd/btcutil"
	flags "github.com/jessevdk/go-flags"
)

var (
	serverHomeDir      = btcutil.AppDataDir("kasbot-server", false)
	kasbotctlHomeDir   = btcutil.AppDataDir("kasbotctl", false)
	defaultConfigFile  = filepath.Join(kasbotctlHomeDir, "kasbotctl.conf")
	serverConfigFile   = filepath.Join(serverHomeDir, "kasbot-server.conf")
	defaultGateway     = "localhost"
	defaultGatewayCert = filepath.Join(serverHomeDir, "kasbot.cert")
)

// config defines the configuration options for kasbotctl.
//
// See loadConfig for details on the configuration load process.
type config struct {
	ConfigFile    string `short:"C" long:"configfile" description:"Path to configuration file"`
	ListCommands  bool   `short:"l" long:"listcommands" description:"List all of the supported commands and exit"`
	NoTLS         bool   `long:"notls" description:"Disable TLS"`
	Proxy         string `long:"proxy" description:"Connect via SOCKS5 proxy (eg. 127.0.0.1:9050)"`
	ProxyPass     string `long:"proxypass" default-mask:"-" description:"Password for proxy server"`
	ProxyUser     string `long:"proxyuser" description:"Username for proxy server"`
	Gateway       string `short:"s" long:"gateway" description:"Gateway to connect to"`
	GatewayCert   string `short:"c" long:"gatewaycert" description:"Gateway certificate chain for validation"`
	GatewayPass   string `short:"P" long:"gatewaypass" default-mask:"-" description:"Gateway password"`
	GatewayUser   string `short:"u" long:"gatewayuser" description:"Gateway username"`
	TestNet       bool   `long:"testnet" description:"Connect to the gateway of the test network"`
	TLSSkipVerify bool   `long:"skipverify" description:"Do not verify tls certificates (not recommended!)"`
	ShowVersion   bool   `short:"V" long:"version" description:"Display version information and exit"`
}

// createDefaultConfigFile creates a basic config file at the given destination
// path.  For this it reads the config file of the gateway and extracts the
// gateway user and password from it.
func createDefaultConfigFile(destinationPath, serverConfigPath string) error {
	content, err := os.ReadFile(serverConfigPath)
	if err != nil {
		return err
	}

	userSubmatches := regexp.MustCompile(`(?m)^\s*gatewayuser=([^\s]+)`).FindSubmatch(content)
	if userSubmatches == nil {
		// No user found, nothing to do
		return nil
	}
	passSubmatches := regexp.MustCompile(`(?m)^\s*gatewaypass=([^\s]+)`).FindSubmatch(content)
	if passSubmatches == nil {
		// No password found, nothing to do
		return nil
	}

	// Create the destination directory if it does not exists
	err = os.MkdirAll(filepath.Dir(destinationPath), 0700)
	if err != nil {
		return err
	}

	destString := fmt.Sprintf("gatewayuser=%s\ngatewaypass=%s\n",
		string(userSubmatches[1]), string(passSubmatches[1]))
	return os.WriteFile(destinationPath, []byte(destString), 0600)
}

// cleanAndExpandPath expands environement variables and leading ~ in the
// passed path, cleans the result, and returns it.
func cleanAndExpandPath(path string) string {
	// Expand initial ~ to OS specific home directory.
	if strings.HasPrefix(path, "~") {
		homeDir := filepath.Dir(kasbotctlHomeDir)
		path = strings.Replace(path, "~", homeDir, 1)
	}

	// NOTE: The os.ExpandEnv doesn't work with Windows-style %VARIABLE%,
	// but they variables can still be expanded via POSIX-style $VARIABLE.
	return filepath.Clean(os.ExpandEnv(path))
}

// normalizeAddress returns addr with the default gateway port of the network
// appended if there is not already a port specified.
func normalizeAddress(addr string, testNet bool) string {
	_, _, err := net.SplitHostPort(addr)
	if err != nil {
		defaultPort := chaincfg.MainNetParams.DefaultGatewayPort
		if testNet {
			defaultPort = chaincfg.TestNetParams.DefaultGatewayPort
		}
		return net.JoinHostPort(addr, defaultPort)
	}
	return addr
}

// loadConfig initializes and parses the config using a config file and command
// line options.
func loadConfig() (*config, []string, error) {
	// Default config.
	cfg := config{
		ConfigFile:  defaultConfigFile,
		Gateway:     defaultGateway,
		GatewayCert: defaultGatewayCert,
	}

	// Pre-parse the command line options to see if an alternative config
	// file, the version flag, or the list commands flag was specified.  Any
	// errors aside from the help message error can be ignored here since
	// they will be caught by the final parse below.
	preCfg := cfg
	preParser := flags.NewParser(&preCfg, flags.HelpFlag)
	_, err := preParser.Parse()
	if err != nil {
		if e, ok := err.(*flags.Error); ok && e.Type == flags.ErrHelp {
			fmt.Fprintln(os.Stderr, err)
			fmt.Fprintln(os.Stderr, "")
			fmt.Fprintln(os.Stderr, "Parameters are given by name as "+
				"name=value, values that are valid JSON are sent "+
				"as such.")
			return nil, nil, err
		}
	}

	// Show the version and exit if the version flag was specified.
	appName := filepath.Base(os.Args[0])
	appName = strings.TrimSuffix(appName, filepath.Ext(appName))
	usageMessage := fmt.Sprintf("Use %s -h to show options", appName)
	if preCfg.ShowVersion {
		fmt.Println(appName, "version", version())
		os.Exit(0)
	}

	// Show the available commands and exit if the associated flag was
	// specified.
	if preCfg.ListCommands {
		listCommands()
		os.Exit(0)
	}

	if preCfg.ConfigFile == defaultConfigFile {
		if _, err := os.Stat(preCfg.ConfigFile); os.IsNotExist(err) {
			// Use config file for the gateway to prepopulate user and
			// password.
			err := createDefaultConfigFile(preCfg.ConfigFile, serverConfigFile)
			if err != nil && !os.IsNotExist(err) {
				fmt.Fprintf(os.Stderr, "Error creating a default config file: %v\n", err)
			}
		}
	}

	// Load additional config from file.
	parser := flags.NewParser(&cfg, flags.Default)
	err = flags.NewIniParser(parser).ParseFile(preCfg.ConfigFile)
	if err != nil {
		if _, ok := err.(*os.PathError); !ok {
			fmt.Fprintf(os.Stderr, "Error parsing config file: %v\n",
				err)
			fmt.Fprintln(os.Stderr, usageMessage)
			return nil, nil, err
		}
	}

	// Parse command line options again to ensure they take precedence.
	remainingArgs, err := parser.Parse()
	if err != nil {
		if e, ok := err.(*flags.Error); !ok || e.Type != flags.ErrHelp {
			fmt.Fprintln(os.Stderr, usageMessage)
		}
		return nil, nil, err
	}

	// Handle environment variable expansion in the certificate path.
	cfg.GatewayCert = cleanAndExpandPath(cfg.GatewayCert)

	// Add default port to the gateway address if needed.
	cfg.Gateway = normalizeAddress(cfg.Gateway, cfg.TestNet)

	return &cfg, remainingArgs, nil
}
