package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/opd-ai/xdccget"
	"github.com/opd-ai/xdccget/progress"
	"github.com/opd-ai/xdccget/transport"
	"github.com/sirupsen/logrus"
)

// Exit statuses.
const (
	exitOK       = 0
	exitFailure  = 1
	exitArgument = 2
)

// CLI configuration
type CLIConfig struct {
	bot          string
	packages     string
	server       string
	channel      string
	nickname     string
	dir          string
	proxy        string
	charset      string
	dialTimeout  time.Duration
	stallTimeout time.Duration
	sendAcks     bool
	allowPartial bool
	progressMode string
	logLevel     string
	help         bool
}

// parseCLIFlags parses command-line flags into a configuration. Short and
// long forms of a flag share one value.
func parseCLIFlags(fs *flag.FlagSet, args []string) (*CLIConfig, error) {
	config := &CLIConfig{}

	// Request
	fs.StringVar(&config.bot, "b", "", "XDCC bot name (required)")
	fs.StringVar(&config.bot, "bot", "", "XDCC bot name (required)")
	fs.StringVar(&config.packages, "p", "", "Comma separated pack numbers, e.g. 1,2,#3 (required)")
	fs.StringVar(&config.packages, "package", "", "Comma separated pack numbers, e.g. 1,2,#3 (required)")
	fs.StringVar(&config.server, "s", xdccget.DefaultServer, "IRC server host:port")
	fs.StringVar(&config.server, "server", xdccget.DefaultServer, "IRC server host:port")
	fs.StringVar(&config.channel, "c", xdccget.DefaultChannel, "Channel to join")
	fs.StringVar(&config.channel, "channel", xdccget.DefaultChannel, "Channel to join")
	fs.StringVar(&config.nickname, "n", xdccget.DefaultNickname, "Nickname to register")
	fs.StringVar(&config.nickname, "nickname", xdccget.DefaultNickname, "Nickname to register")

	// Transfers
	fs.StringVar(&config.dir, "d", ".", "Download directory")
	fs.StringVar(&config.dir, "dir", ".", "Download directory")
	fs.StringVar(&config.proxy, "proxy", "", "Proxy URL (socks5://, socks4:// or http://)")
	fs.StringVar(&config.charset, "charset", "", "Control connection charset (default UTF-8)")
	fs.DurationVar(&config.dialTimeout, "dial-timeout", 30*time.Second, "Connection timeout")
	fs.DurationVar(&config.stallTimeout, "stall-timeout", 0, "Abort a transfer idle for this long (0 disables)")
	fs.BoolVar(&config.sendAcks, "acks", false, "Send DCC acknowledgements")
	fs.BoolVar(&config.allowPartial, "allow-partial", false, "Exit 0 even if some transfers fail")

	// Output
	fs.StringVar(&config.progressMode, "progress", "bars", "Progress display (bars, log, none)")
	fs.StringVar(&config.logLevel, "log-level", "info", "Log level (debug, info, warn, error); warn unless set when progress is bars")

	// Help
	fs.BoolVar(&config.help, "h", false, "Show help message")
	fs.BoolVar(&config.help, "help", false, "Show help message")

	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	if fs.NArg() > 0 {
		return nil, fmt.Errorf("%w: unexpected arguments: %s", xdccget.ErrInvalidArgument, strings.Join(fs.Args(), " "))
	}

	// Info lines on stderr would tear the bar rendering.
	if config.progressMode == "bars" && !flagSet(fs, "log-level") {
		config.logLevel = "warn"
	}
	return config, nil
}

// flagSet reports whether name was given on the command line.
func flagSet(fs *flag.FlagSet, name string) bool {
	set := false
	fs.Visit(func(f *flag.Flag) {
		if f.Name == name {
			set = true
		}
	})
	return set
}

// printUsage prints the usage information.
func printUsage(w io.Writer, fs *flag.FlagSet) {
	fmt.Fprintln(w, "xdccget - download packs from an XDCC bot")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Usage:")
	fmt.Fprintf(w, "  %s -b <bot> -p <packs> [options]\n", fs.Name())
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Options:")
	fs.SetOutput(w)
	fs.PrintDefaults()
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Examples:")
	fmt.Fprintln(w, "  # Fetch packs 12 and 13 from a bot on the default network")
	fmt.Fprintf(w, "  %s -b 'Bot|XDCC' -p 12,13\n", fs.Name())
	fmt.Fprintln(w)
	fmt.Fprintln(w, "  # Use another server and a SOCKS5 proxy")
	fmt.Fprintf(w, "  %s -s irc.example.net:6667 -c books -b Librarian -p 4 -proxy socks5://127.0.0.1:9050\n", fs.Name())
}

// validateCLIConfig validates the CLI configuration.
func validateCLIConfig(config *CLIConfig) error {
	if config.bot == "" {
		return fmt.Errorf("%w: bot name is required (-b)", xdccget.ErrInvalidArgument)
	}

	if config.packages == "" {
		return fmt.Errorf("%w: at least one package is required (-p)", xdccget.ErrInvalidArgument)
	}

	if config.dialTimeout <= 0 {
		return fmt.Errorf("%w: dial timeout must be positive", xdccget.ErrInvalidArgument)
	}

	if config.stallTimeout < 0 {
		return fmt.Errorf("%w: stall timeout cannot be negative", xdccget.ErrInvalidArgument)
	}

	switch config.progressMode {
	case "bars", "log", "none":
	default:
		return fmt.Errorf("%w: unknown progress mode %q", xdccget.ErrInvalidArgument, config.progressMode)
	}

	if _, err := logrus.ParseLevel(config.logLevel); err != nil {
		return fmt.Errorf("%w: %w", xdccget.ErrInvalidArgument, err)
	}

	return nil
}

// createRequest converts the CLI configuration into a session request.
func createRequest(config *CLIConfig) (xdccget.Request, error) {
	packages, err := xdccget.ParsePackages(config.packages)
	if err != nil {
		return xdccget.Request{}, err
	}
	return xdccget.NewRequest(config.server, config.channel, config.nickname, config.bot, packages)
}

// createOptions converts the CLI configuration into session options.
func createOptions(config *CLIConfig, out io.Writer) (*xdccget.Options, error) {
	opts := xdccget.NewOptions()
	opts.Dir = config.dir
	opts.DialTimeout = config.dialTimeout
	opts.StallTimeout = config.stallTimeout
	opts.Charset = config.charset
	opts.SendAcks = config.sendAcks

	proxyConfig, err := transport.ParseProxyURL(config.proxy)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", xdccget.ErrInvalidArgument, err)
	}
	opts.Proxy = proxyConfig

	switch config.progressMode {
	case "bars":
		opts.Reporter = progress.NewBars(out)
	case "log":
		opts.Reporter = progress.NewLogReporter(logrus.WithField("component", "progress"), 10)
	default:
		opts.Reporter = progress.Nop()
	}

	return opts, nil
}

// setupLogging configures the global logger.
func setupLogging(level string, out io.Writer) {
	logrus.SetOutput(out)
	logrus.SetFormatter(&logrus.TextFormatter{
		FullTimestamp: true,
	})
	if parsed, err := logrus.ParseLevel(level); err == nil {
		logrus.SetLevel(parsed)
	}
}

// setupSignalHandling cancels the session on interrupt so transfers are
// closed before exit.
func setupSignalHandling(cancel context.CancelFunc) {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		sig := <-sigChan
		logrus.WithFields(logrus.Fields{
			"function": "setupSignalHandling",
			"signal":   sig.String(),
		}).Warn("Received signal, shutting down")
		cancel()
	}()
}

// run executes the command and returns the process exit status.
func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("xdccget", flag.ContinueOnError)
	fs.SetOutput(io.Discard)

	config, err := parseCLIFlags(fs, args)
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			printUsage(stdout, fs)
			return exitOK
		}
		fmt.Fprintf(stderr, "Argument error: %v\n", err)
		fmt.Fprintln(stderr, "Use -help for usage information.")
		return exitArgument
	}

	if config.help {
		printUsage(stdout, fs)
		return exitOK
	}

	if err := validateCLIConfig(config); err != nil {
		fmt.Fprintf(stderr, "Argument error: %v\n", err)
		fmt.Fprintln(stderr, "Use -help for usage information.")
		return exitArgument
	}

	setupLogging(config.logLevel, stderr)

	req, err := createRequest(config)
	if err != nil {
		fmt.Fprintf(stderr, "Argument error: %v\n", err)
		return exitArgument
	}

	opts, err := createOptions(config, stderr)
	if err != nil {
		fmt.Fprintf(stderr, "Argument error: %v\n", err)
		return exitArgument
	}

	session, err := xdccget.NewSession(req, opts)
	if err != nil {
		fmt.Fprintf(stderr, "Argument error: %v\n", err)
		return exitArgument
	}

	summary, err := session.Run(ctx)
	return report(stdout, stderr, summary, err, config.allowPartial)
}

// report prints the session outcome and maps it to an exit status.
func report(stdout, stderr io.Writer, summary *xdccget.Summary, err error, allowPartial bool) int {
	if summary != nil {
		for _, result := range summary.Results {
			if result.OK() {
				fmt.Fprintf(stdout, "ok     %s (%d bytes)\n", result.Path, result.Transferred)
			} else {
				fmt.Fprintf(stdout, "failed %s: %v\n", result.FileName, result.Err)
			}
		}
		fmt.Fprintf(stdout, "%d of %d packs received\n", summary.Completed(), summary.Requested)
	}

	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return exitFailure
	}
	if summary != nil && summary.Failed() > 0 && !allowPartial {
		return exitFailure
	}
	return exitOK
}

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	setupSignalHandling(cancel)

	code := run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	cancel()
	os.Exit(code)
}
