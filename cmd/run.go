package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/tidwall/sjson"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/luma/rosapi/catalog"
	"github.com/luma/rosapi/client"
	"github.com/luma/rosapi/internal/env"
)

var (
	runHost     string
	runPort     int
	runUser     string
	runPassword string
	runTimeout  time.Duration
	runTLS      bool
	runDebug    bool
	runList     bool
)

func init() {
	flags := RunCmd.Flags()

	flags.StringVarP(&runHost, "host", "a", client.DefaultHost, "The device to connect to")
	flags.IntVarP(&runPort, "port", "p", 0, "The API port, 8728 or 8729 with --tls when unset")
	flags.StringVarP(&runUser, "user", "u", "admin", "The user to log in as")
	flags.StringVar(&runPassword, "password", "", "The password to log in with")
	flags.DurationVar(&runTimeout, "timeout", client.DefaultTimeout, "How long to wait for the connection and login")
	flags.BoolVar(&runTLS, "tls", false, "Connect to the api-ssl service")
	flags.BoolVar(&runDebug, "debug", false, "Log every sentence sent and received")
	flags.BoolVar(&runList, "list", false, "List the named commands and exit")
}

var RunCmd = &cobra.Command{
	Use:   "run <name|/command/path> [=key=value|?key=value ...]",
	Short: "Run one command and print the records as JSON",
	Long: `Run one command and print the records as JSON

Usage
	rosctl run interfaces
	rosctl run /ip/address/print ?interface=ether1
	rosctl run /ip/address/add =address=10.0.0.1/24 =interface=ether1

`,
	RunE: func(cmd *cobra.Command, args []string) (err error) {
		if runList {
			fmt.Fprintln(cmd.OutOrStdout(), strings.Join(catalog.Names(), "\n"))
			return nil
		}

		words, err := commandWords(args)
		if err != nil {
			return err
		}

		ctx, signalStop := signal.NotifyContext(context.Background(), os.Interrupt)
		defer signalStop()

		conf, err := env.LoadConfig(ctx)
		if err != nil {
			return err
		}

		applyRunFlags(cmd, conf)

		log, err := env.MakeLogger(conf.Debug)
		if err != nil {
			return err
		}
		defer log.Sync() //nolint:errcheck

		opts := conf.ClientOptions()
		opts.Log = log

		conn := client.New(opts)
		conn.OnError(func(err error) {
			log.Error("Connection error", zap.Error(err))
		})

		if err := conn.Connect(ctx); err != nil {
			return err
		}

		defer func() {
			err = multierr.Append(err, conn.Close())
		}()

		reply, err := conn.Run(ctx, words...)
		if err != nil {
			return err
		}

		out, err := recordsJSON(reply.Data, reply.Done)
		if err != nil {
			return err
		}

		fmt.Fprintln(cmd.OutOrStdout(), out)
		return nil
	},
}

// commandWords resolves a catalog name, or passes a raw command through.
func commandWords(args []string) ([]string, error) {
	if len(args) == 0 {
		return nil, fmt.Errorf("a command name or path is required, see --list")
	}

	if strings.HasPrefix(args[0], "/") {
		return args, nil
	}

	words, ok := catalog.Lookup(args[0])
	if !ok {
		return nil, fmt.Errorf("unknown command %q, see --list", args[0])
	}

	return append(words, args[1:]...), nil
}

func applyRunFlags(cmd *cobra.Command, conf *env.Config) {
	flags := cmd.Flags()

	if flags.Changed("host") {
		conf.Host = runHost
	}
	if flags.Changed("port") {
		conf.Port = runPort
	}
	if flags.Changed("user") {
		conf.Username = runUser
	}
	if flags.Changed("password") {
		conf.Password = runPassword
	}
	if flags.Changed("timeout") {
		conf.Timeout = runTimeout
	}
	if flags.Changed("tls") {
		conf.TLS = runTLS
	}
	if flags.Changed("debug") {
		conf.Debug = runDebug
	}
}

// recordsJSON renders the records as a JSON array. A command that returns a
// value in `!done`, such as add, is rendered as that object instead.
func recordsJSON(data []map[string]string, done map[string]string) (string, error) {
	if len(data) == 0 && len(done) > 0 {
		return sjson.Set("{}", "done", done)
	}

	out := "[]"

	for _, record := range data {
		var err error

		out, err = sjson.Set(out, "-1", record)
		if err != nil {
			return "", err
		}
	}

	return out, nil
}
