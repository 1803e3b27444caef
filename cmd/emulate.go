package cmd

import (
	"context"
	"errors"
	"io/ioutil"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	ginzap "github.com/gin-contrib/zap"
	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/luma/rosapi/internal/env"
	"github.com/luma/rosapi/storage"
	"github.com/luma/rosapi/transport"
)

var (
	// The host to listen on
	host string

	// The port to listen for http requests on
	httpPort string

	// The port to listen for API clients on
	port int

	emulateUser     string
	emulatePassword string
	stateFile       string
	trace           bool
	debugHTTP       bool
)

func init() {
	flags := EmulateCmd.PersistentFlags()

	flags.IntVarP(&port, "port", "p", 8728, "The port to listen for API connections on")
	flags.StringVar(&httpPort, "http-port", "8780", "The port to listen to HTTP requests on")
	flags.StringVarP(&host, "host", "a", "127.0.0.1", "The host to listen on")
	flags.StringVarP(&emulateUser, "user", "u", "admin", "The user the emulator accepts")
	flags.StringVar(&emulatePassword, "password", "", "The password the emulator accepts")
	flags.StringVar(&stateFile, "state", "", "A JSON file with the menus to start from")
	flags.BoolVar(&trace, "trace", false, "Log every sentence received and sent")
	flags.BoolVar(&debugHTTP, "debug-http", false, "Run the HTTP server in gin debug mode")
}

var EmulateCmd = &cobra.Command{
	Use:   "emulate",
	Short: "Start an emulated RouterOS device",
	Long: `Start an emulated RouterOS device

It speaks the management API on --port and serves its state as JSON on
--http-port under /state.

Usage
	rosctl emulate --password secret

`,
	RunE: func(cmd *cobra.Command, args []string) (err error) {
		ctx, signalStop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer signalStop()

		log, err := env.MakeLogger(trace)
		if err != nil {
			return err
		}

		store, err := loadStore(stateFile)
		if err != nil {
			return err
		}
		defer store.Close()

		router := setupRouter(debugHTTP, log)

		// Ping test
		router.GET("/ping", func(c *gin.Context) {
			c.String(http.StatusOK, "pong")
		})

		router.GET("/state", func(c *gin.Context) {
			state, err := store.Backup()
			if err != nil {
				c.String(http.StatusInternalServerError, err.Error())
				return
			}

			c.Data(http.StatusOK, "application/json", state)
		})

		s := &http.Server{
			Addr:    net.JoinHostPort(host, httpPort),
			Handler: router,
		}

		// Initializing the server in a goroutine so that
		// it won't block the graceful shutdown handling below
		go func() {
			if err := s.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Error("Http server errored", zap.Error(err))
			}
		}()

		tcp := transport.NewTCP(transport.Options{
			Host:      host,
			Port:      port,
			Reuseport: true,
			Trace:     trace,
			Username:  emulateUser,
			Password:  emulatePassword,
			Store:     store,
			Log:       log.Named("transport"),
		})

		if err := tcp.Start(ctx); err != nil {
			return err
		}

		log.Info("Listening",
			zap.String("host", host),
			zap.Int("port", port),
			zap.String("httpPort", httpPort),
			zap.String("user", emulateUser))

		// Listen for the interrupt signal.
		<-ctx.Done()

		// Restore default behavior on the interrupt signal and notify user of shutdown.
		signalStop()
		log.Info("Shutting down gracefully, press Ctrl+C again to force")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		s.SetKeepAlivesEnabled(false)

		if err := s.Shutdown(shutdownCtx); err != nil {
			log.Error("Http server forced to shutdown", zap.Error(err))
		}

		if err := tcp.Close(); err != nil {
			log.Error("TCP server forced to shutdown", zap.Error(err))
		}

		log.Info("Exiting")
		return nil
	},
}

func loadStore(path string) (*storage.InmemoryStore, error) {
	state := []byte(storage.DefaultState)

	if path != "" {
		var err error
		if state, err = ioutil.ReadFile(path); err != nil {
			return nil, err
		}
	}

	store := storage.NewInmemoryStore()
	if err := store.Restore(state); err != nil {
		return nil, err
	}

	return store, nil
}

func setupRouter(debugHTTP bool, log *zap.Logger) *gin.Engine {
	gin.DisableConsoleColor()
	if !debugHTTP {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()

	r.Use(ginzap.GinzapWithConfig(log, &ginzap.Config{
		TimeFormat: time.RFC3339,
		UTC:        true,
		SkipPaths:  []string{"/ping"},
	}))

	// Logs all panic to error log
	//   - stack means whether output the stack info.
	r.Use(ginzap.RecoveryWithZap(log, true))

	return r
}
