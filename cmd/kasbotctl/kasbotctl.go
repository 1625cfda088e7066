package main

import (
	"bufio"
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/kasbot/kasbot-server/botjson"
)

const (
	// unusableFlags are the command usage flags which this utility are not
	// able to use.  In particular it doesn't support websockets and
	// consequently notifications.
	unusableFlags = botjson.UFWebsocketOnly | botjson.UFNotification

	appVersion = "0.4.2"
)

func version() string {
	return appVersion
}

// commandUsage display the usage for a specific command.
func commandUsage(method string) {
	usage, err := botjson.MethodUsageText(method)
	if err != nil {
		// This should never happen since the method was already checked
		// before calling this function, but be safe.
		fmt.Fprintln(os.Stderr, "Failed to obtain command usage:", err)
		return
	}

	fmt.Fprintln(os.Stderr, "Usage:")
	fmt.Fprintf(os.Stderr, "  %s\n", usage)
}

// usage displays the general usage when the help flag is not displayed and
// and an invalid command was specified.  The commandUsage function is used
// instead when a valid command was specified.
func usage(errorMessage string) {
	appName := "kasbotctl"
	fmt.Fprintln(os.Stderr, errorMessage)
	fmt.Fprintln(os.Stderr, "Usage:")
	fmt.Fprintf(os.Stderr, "  %s [OPTIONS] <command> <name=value...>\n\n",
		appName)
	fmt.Fprintln(os.Stderr, "Use "+appName+" -h to show options")
	fmt.Fprintln(os.Stderr, "Use "+appName+" -l to list available commands")
}

// listCommands prints the usage of every command this utility can send.
func listCommands() {
	for _, method := range botjson.RegisteredCmdMethods() {
		flags, err := botjson.MethodUsageFlags(method)
		if err != nil || flags&unusableFlags != 0 {
			continue
		}
		usage, err := botjson.MethodUsageText(method)
		if err != nil {
			continue
		}
		fmt.Println(usage)
	}
}

// parseParams converts name=value arguments to by-name parameters.  A value
// of "-" is read from the next line of stdin.
func parseParams(args []string, stdin io.Reader) (map[string]string, error) {
	params := make(map[string]string, len(args))
	var bio *bufio.Reader
	for _, arg := range args {
		name, value, ok := strings.Cut(arg, "=")
		if !ok || name == "" {
			return nil, fmt.Errorf("parameter %q is not a name=value pair", arg)
		}
		if value == "-" {
			if bio == nil {
				bio = bufio.NewReader(stdin)
			}
			line, err := bio.ReadString('\n')
			if err != nil && !(errors.Is(err, io.EOF) && line != "") {
				return nil, fmt.Errorf("failed to read data from stdin for %q: %v", name, err)
			}
			value = strings.TrimRight(line, "\r\n")
		}
		if _, dup := params[name]; dup {
			return nil, fmt.Errorf("parameter %q given twice", name)
		}
		params[name] = value
	}
	return params, nil
}

// formatResult returns the text to print for a result.  Strings are shown
// unquoted and objects indented.
func formatResult(result []byte) (string, error) {
	if len(result) == 0 || bytes.Equal(result, []byte("null")) {
		return "", nil
	}
	if result[0] == '"' {
		var str string
		if err := json.Unmarshal(result, &str); err != nil {
			return "", err
		}
		return str, nil
	}
	if result[0] == '{' || result[0] == '[' {
		var dst bytes.Buffer
		if err := json.Indent(&dst, result, "", "  "); err != nil {
			return "", err
		}
		return dst.String(), nil
	}
	return string(result), nil
}

func main() {
	cfg, args, err := loadConfig()
	if err != nil {
		os.Exit(1)
	}
	if len(args) < 1 {
		usage("No command specified")
		os.Exit(1)
	}

	// Ensure the specified method identifies a valid registered command and
	// is one of the usable types.
	method := args[0]
	usageFlags, err := botjson.MethodUsageFlags(method)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Unrecognized command '%s'\n", method)
		fmt.Fprintln(os.Stderr, "Use kasbotctl -l to list available commands")
		os.Exit(1)
	}
	if usageFlags&unusableFlags != 0 {
		fmt.Fprintf(os.Stderr, "The '%s' command can only be used via "+
			"websockets\n", method)
		fmt.Fprintln(os.Stderr, "Use kasbotctl -l to list available commands")
		os.Exit(1)
	}

	params, err := parseParams(args[1:], os.Stdin)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	cmd, err := botjson.NewCmd(method, params)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		commandUsage(method)
		os.Exit(1)
	}

	marshalledJSON, err := botjson.MarshalCmd(1, cmd)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	// Send the JSON-RPC request to the gateway using the user-specified
	// connection configuration.
	result, err := sendPostRequest(marshalledJSON, cfg)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	text, err := formatResult(result)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	if text != "" {
		fmt.Println(text)
	}
}
