package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os/signal"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/bjaus/monitor"
	"github.com/bjaus/monitor/metrics"
	"github.com/bjaus/monitor/plugins"
)

type consoleOptions struct {
	*rootOptions
	user        string
	group       string
	botName     string
	metricsAddr string
}

func newConsoleCmd(root *rootOptions) *cobra.Command {
	opts := &consoleOptions{rootOptions: root}

	cmd := &cobra.Command{
		Use:   "console",
		Short: "Chat with the bot on stdin/stdout",
		Long: `Reads one message per line from stdin and prints replies to stdout.

Lines starting with "{" are parsed as JSON objects with the fields
type, chat_type, group, sender and text. Any other line is a text message
from --user (in --group, when set).`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return opts.run(ctx, cmd.InOrStdin(), cmd.OutOrStdout(), cmd.ErrOrStderr())
		},
	}

	cmd.Flags().StringVar(&opts.user, "user", "console", "sender of plain text lines")
	cmd.Flags().StringVar(&opts.group, "group", "", "group of plain text lines (direct chat when empty)")
	cmd.Flags().StringVar(&opts.botName, "bot-name", "", "bot name used for @-mentions (overrides config)")
	cmd.Flags().StringVar(&opts.metricsAddr, "metrics-addr", "", "serve Prometheus metrics on this address")
	return cmd
}

func (o *consoleOptions) run(ctx context.Context, in io.Reader, out, stderr io.Writer) error {
	cfg, log, err := o.loadConfig(stderr)
	if err != nil {
		return err
	}
	if o.botName != "" {
		cfg.BotName = o.botName
	}

	m := metrics.New()
	r := monitor.New(append(m.Options(), monitor.WithConfig(cfg), monitor.WithLogger(log))...)
	plugins.Register(r)

	if o.metricsAddr != "" {
		shutdown := serveMetrics(o.metricsAddr, metrics.Handler(metrics.NewRegistry(m)), log)
		defer shutdown()
	}

	ch := &consoleChannel{out: out}
	src := monitor.JSONSource("console", monitor.FieldMap{}, ch)

	scanner := bufio.NewScanner(in)
	for scanner.Scan() {
		if ctx.Err() != nil {
			return nil
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if strings.HasPrefix(line, "{") {
			err = r.Process(ctx, src, []byte(line))
		} else {
			err = r.Handle(ctx, o.message(line, ch))
		}
		if err != nil {
			log.Error().Err(err).Msg("Message dropped")
		}
	}
	return scanner.Err()
}

func (o *consoleOptions) message(text string, ch monitor.Channel) *monitor.Message {
	msg := &monitor.Message{Kind: monitor.ChatDirect, Sender: o.user, Text: text, Channel: ch}
	if o.group != "" {
		msg.Kind = monitor.ChatGroup
		msg.Group = o.group
	}
	return msg
}

// consoleChannel prints replies as "[target] text".
type consoleChannel struct {
	mu  sync.Mutex
	out io.Writer
}

func (c *consoleChannel) SendText(_ context.Context, target, text string, opts ...monitor.SendOption) error {
	o := monitor.ApplySendOptions(opts...)
	var mentions string
	for _, u := range o.Mentions {
		mentions += "@" + u + " "
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	_, err := fmt.Fprintf(c.out, "[%s] %s%s\n", target, mentions, text)
	return err
}

func serveMetrics(addr string, h http.Handler, log zerolog.Logger) (shutdown func()) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", h)
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	done := make(chan struct{})
	go func() {
		defer close(done)
		log.Info().Str("addr", addr).Msg("Serving metrics")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error().Err(err).Msg("Metrics server failed")
		}
	}()

	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctx)
		<-done
	}
}
