package main

import (
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/mockwire/mockwire/internal/errx"
	"github.com/mockwire/mockwire/pkg/engine"
	"github.com/mockwire/mockwire/pkg/logging"
	mocknet "github.com/mockwire/mockwire/pkg/net"
	"github.com/mockwire/mockwire/pkg/rulefile"
)

var proxyCmd = &cobra.Command{
	Use:   "proxy --rules <file>",
	Short: "Run the live interception proxy",
	Long: `Run the live-context adapter: a forward HTTP proxy answering matched
requests from the rules file and forwarding everything else to the real
network.

Rules file (YAML):

  rules:
    - name: submit-ok
      method: POST
      url: "*/api/submit"
      status: 200
      headers:
        Content-Type: application/json
      body: '{"ok":true}'
      delay_ms: 50
    - name: assets
      url: "*/static/*"
      passthrough: true

Later rules shadow earlier ones for overlapping patterns.`,
	Example: `  mockwire proxy --rules mocks.yaml
  mockwire proxy --rules mocks.yaml --listen 127.0.0.1:8080 --event-log events.jsonl
  HTTP_PROXY=http://127.0.0.1:8080 curl http://api.example.com/api/submit -d '{}'`,
	RunE: runProxy,
}

func init() {
	proxyCmd.Flags().String("listen", "127.0.0.1:8080", "Address to listen on")
	proxyCmd.Flags().String("rules", "", "Rules file (required)")
	proxyCmd.Flags().String("event-log", "", "Append structured events to a JSONL file")
	proxyCmd.Flags().String("event-db", "", "Record structured events to an SQLite database")
	proxyCmd.MarkFlagRequired("rules")

	viper.BindPFlag("proxy.listen", proxyCmd.Flags().Lookup("listen"))
	viper.BindPFlag("proxy.rules", proxyCmd.Flags().Lookup("rules"))
	viper.BindPFlag("proxy.event-log", proxyCmd.Flags().Lookup("event-log"))
	viper.BindPFlag("proxy.event-db", proxyCmd.Flags().Lookup("event-db"))

	rootCmd.AddCommand(proxyCmd)
}

func runProxy(cmd *cobra.Command, args []string) error {
	listen, _ := cmd.Flags().GetString("listen")
	rulesPath, _ := cmd.Flags().GetString("rules")
	eventLog, _ := cmd.Flags().GetString("event-log")
	eventDB, _ := cmd.Flags().GetString("event-db")

	handlers, err := rulefile.Load(rulesPath)
	if err != nil {
		return errx.Wrap(ErrLoadRules, err)
	}

	var sinks []logging.Sink
	if eventLog != "" {
		w, err := logging.NewJSONLWriter(eventLog)
		if err != nil {
			return errx.Wrap(ErrOpenEventLog, err)
		}
		sinks = append(sinks, w)
	}
	if eventDB != "" {
		s, err := logging.NewSQLiteSink(eventDB)
		if err != nil {
			return errx.Wrap(ErrOpenEventDB, err)
		}
		sinks = append(sinks, s)
	}

	engineID := "eng-" + uuid.New().String()[:8]
	opts := []engine.Option{
		engine.WithID(engineID),
		engine.WithBaseline(handlers...),
	}
	if len(sinks) > 0 {
		emitter := logging.NewEmitter(logging.EmitterConfig{EngineID: engineID}, sinks...)
		defer emitter.Close()
		opts = append(opts, engine.WithEmitter(emitter))
	}

	proxy := mocknet.NewProxy(&mocknet.ProxyConfig{BindAddr: listen}, opts...)

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := proxy.Start(ctx); err != nil {
		return errx.Wrap(ErrStartProxy, err)
	}
	defer proxy.Stop()

	slog.Info("proxy ready",
		"addr", proxy.Addr(), "rules", rulesPath, "handlers", len(handlers))
	fmt.Fprintf(os.Stderr, "Route clients through http://%s (e.g. HTTP_PROXY=http://%s)\n",
		proxy.Addr(), proxy.Addr())

	<-ctx.Done()
	slog.Info("shutting down")
	return nil
}
