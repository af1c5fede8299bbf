// Command domsyncctl loads a domsync page, fires events against it and
// prints the resulting mirror.
//
// Usage:
//
//	domsyncctl -url http://localhost:8080 -path /counter -do value:step=3 -do click:inc
//	domsyncctl -path /counter -do msg:set=10 -format diff
//	domsyncctl -path /notes -format markdown
//
// Steps run in order:
//
//	click:<id>            fire "click" on element <id>
//	event:<id>:<name>     fire event <name> on element <id>
//	long:<id>             fire "click" over the websocket channel
//	msg:<key>=<message>   send a document message
//	value:<id>=<value>    set an input value in the mirror
//	check:<id>=<bool>     set a checkbox in the mirror
//	wait:<duration>       listen for server pushes for a while
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/hazyhaar/domsync/client"
	"github.com/hazyhaar/domsync/internal/config"
)

type steps []string

func (s *steps) String() string     { return strings.Join(*s, ",") }
func (s *steps) Set(v string) error { *s = append(*s, v); return nil }

type options struct {
	base    string
	path    string
	format  string
	color   string
	timeout time.Duration
	steps   steps
}

func main() {
	var o options
	flag.StringVar(&o.base, "url", "http://localhost:8080", "domsync server base URL")
	flag.StringVar(&o.path, "path", "/", "page path to load")
	flag.StringVar(&o.format, "format", "html", "output: html, markdown, diff")
	flag.StringVar(&o.color, "color", "auto", "colour diff output: auto, always, never")
	flag.DurationVar(&o.timeout, "timeout", 30*time.Second, "overall timeout")
	flag.Var(&o.steps, "do", "step to run (repeatable)")
	logLevel := flag.String("log-level", "warn", "log level: debug, info, warn, error")
	flag.Parse()

	level, err := config.ParseLevel(*logLevel)
	if err != nil {
		fmt.Fprintln(os.Stderr, "domsyncctl:", err)
		os.Exit(2)
	}
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithTimeout(ctx, o.timeout)
	defer cancel()

	if err := run(ctx, os.Stdout, logger, o); err != nil {
		fmt.Fprintln(os.Stderr, "domsyncctl:", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, w io.Writer, logger *slog.Logger, o options) error {
	c, err := client.New(o.base, client.WithLogger(logger))
	if err != nil {
		return err
	}
	if err := c.Load(ctx, o.path); err != nil {
		return err
	}
	defer c.Close(context.WithoutCancel(ctx))

	before, err := snapshot(c)
	if err != nil {
		return err
	}
	for _, s := range o.steps {
		if err := runStep(ctx, c, s); err != nil {
			return fmt.Errorf("step %q: %w", s, err)
		}
	}
	after, err := snapshot(c)
	if err != nil {
		return err
	}

	switch o.format {
	case "html":
		_, err = io.WriteString(w, after+"\n")
	case "markdown", "md":
		var md string
		if md, err = renderMarkdown(after); err == nil {
			_, err = io.WriteString(w, md+"\n")
		}
	case "diff":
		err = renderDiff(w, before, after, useColor(o.color, w))
	default:
		err = fmt.Errorf("unknown format %q", o.format)
	}
	return err
}

func snapshot(c *client.Client) (string, error) {
	var s string
	err := c.View(func(m *client.Mirror) { s = m.HTML() })
	return s, err
}

func runStep(ctx context.Context, c *client.Client, step string) error {
	verb, arg, ok := strings.Cut(step, ":")
	if !ok {
		return fmt.Errorf("missing ':'")
	}
	switch verb {
	case "click":
		return c.Trigger(ctx, arg, "click", "")
	case "event":
		id, name, ok := strings.Cut(arg, ":")
		if !ok {
			return fmt.Errorf("want event:<id>:<name>")
		}
		return c.Trigger(ctx, id, name, "")
	case "long":
		return c.TriggerLong(ctx, arg, "click", "")
	case "msg":
		key, msg, _ := strings.Cut(arg, "=")
		return c.Message(ctx, key, msg)
	case "value":
		id, v, _ := strings.Cut(arg, "=")
		var serr error
		if err := c.View(func(m *client.Mirror) { serr = m.SetValue(id, v) }); err != nil {
			return err
		}
		return serr
	case "check":
		id, v, _ := strings.Cut(arg, "=")
		on, err := strconv.ParseBool(v)
		if err != nil {
			return err
		}
		var serr error
		if err := c.View(func(m *client.Mirror) { serr = m.SetChecked(id, on) }); err != nil {
			return err
		}
		return serr
	case "wait":
		d, err := time.ParseDuration(arg)
		if err != nil {
			return err
		}
		wctx, cancel := context.WithTimeout(ctx, d)
		defer cancel()
		return c.ListenServerEvents(wctx)
	}
	return fmt.Errorf("unknown step %q", verb)
}
