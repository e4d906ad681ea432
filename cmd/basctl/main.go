// Command basctl drives a running controller over its HTTP API.
//
//	basctl [global flags] <command> [args]
//
// Commands: login, state, set-mode, override, macros, macro, schedule, schedule-add, logs.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"

	"building_automation/internal/engine"

	"github.com/spf13/pflag"
	"gopkg.in/yaml.v3"
)

// Exit codes.
const (
	exitOK = iota
	exitError
	exitUsage
	exitInvalidMode
	exitRejectedOverride
	exitUnknownMacro
	exitOverlappingWindow
	exitInvalidTarget
	exitUnauthorized
)

var errUsage = errors.New("usage")

var codeExits = map[string]int{
	engine.CodeInvalidMode:       exitInvalidMode,
	engine.CodeRejectedOverride:  exitRejectedOverride,
	engine.CodeUnknownMacro:      exitUnknownMacro,
	engine.CodeOverlappingWindow: exitOverlappingWindow,
	engine.CodeInvalidTarget:     exitInvalidTarget,
}

func main() {
	os.Exit(run(context.Background(), os.Args[1:], os.Stdout, os.Stderr))
}

type globals struct {
	server string
	token  string
	output string
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	g := globals{}
	fs := pflag.NewFlagSet("basctl", pflag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.SetInterspersed(false)
	fs.StringVarP(&g.server, "server", "s", envOr("BAS_SERVER", "http://localhost:8080"), "controller base URL")
	fs.StringVarP(&g.token, "token", "t", os.Getenv("BAS_TOKEN"), "bearer token (see: basctl login)")
	fs.StringVarP(&g.output, "output", "o", "yaml", "output format: yaml or json")
	fs.Usage = func() {
		fmt.Fprintln(stderr, "usage: basctl [flags] <login|state|set-mode|override|macros|macro|schedule|schedule-add|logs> [args]")
		fs.PrintDefaults()
	}
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return exitOK
		}
		return exitUsage
	}
	if fs.NArg() == 0 || (g.output != "yaml" && g.output != "json") {
		fs.Usage()
		return exitUsage
	}

	c := newClient(g.server, g.token)
	out, err := dispatch(ctx, c, fs.Arg(0), fs.Args()[1:], stderr)
	if err != nil {
		fmt.Fprintln(stderr, "basctl:", err)
		return exitCode(err)
	}
	if err := render(stdout, g.output, out); err != nil {
		fmt.Fprintln(stderr, "basctl:", err)
		return exitError
	}
	return exitOK
}

func dispatch(ctx context.Context, c *client, cmd string, args []string, stderr io.Writer) (any, error) {
	switch cmd {
	case "login":
		fs := newSubFlags(cmd, stderr)
		user := fs.StringP("user", "u", "", "username")
		pass := fs.StringP("password", "p", "", "password")
		if err := fs.Parse(args); err != nil || *user == "" || *pass == "" {
			return nil, fmt.Errorf("%w: login -u USER -p PASSWORD", errUsage)
		}
		return c.do(ctx, http.MethodPost, "/auth/sign-in", nil, map[string]string{"username": *user, "password": *pass})

	case "state":
		return c.do(ctx, http.MethodGet, "/api/v1/bas/state", nil, nil)

	case "set-mode", "mode":
		if len(args) != 1 {
			return nil, fmt.Errorf("%w: set-mode <MANUAL|AUTO|SCHEDULE|ENERGY_SAVING>", errUsage)
		}
		return c.do(ctx, http.MethodPost, "/api/v1/bas/mode", nil, map[string]string{"mode": args[0]})

	case "override":
		fs := newSubFlags(cmd, stderr)
		lighting := fs.IntP("lighting", "l", 0, "lighting level 0..100")
		temp := fs.Float64P("temp", "T", 0, "setpoint in °C")
		door := fs.StringP("door", "d", "", "locked or unlocked")
		if err := fs.Parse(args); err != nil {
			return nil, fmt.Errorf("%w: %v", errUsage, err)
		}
		body := map[string]any{}
		if fs.Changed("lighting") {
			body["lighting"] = *lighting
		}
		if fs.Changed("temp") {
			body["temperature_c"] = *temp
		}
		if fs.Changed("door") {
			body["door_lock"] = *door
		}
		if len(body) == 0 {
			return nil, fmt.Errorf("%w: override needs at least one of --lighting, --temp, --door", errUsage)
		}
		return c.do(ctx, http.MethodPost, "/api/v1/bas/override", nil, body)

	case "macros":
		return c.do(ctx, http.MethodGet, "/api/v1/bas/macros", nil, nil)

	case "macro":
		if len(args) != 1 {
			return nil, fmt.Errorf("%w: macro <name>", errUsage)
		}
		return c.do(ctx, http.MethodPost, "/api/v1/bas/macros/"+url.PathEscape(args[0]), nil, nil)

	case "schedule":
		return c.do(ctx, http.MethodGet, "/api/v1/bas/schedule", nil, nil)

	case "schedule-add":
		fs := newSubFlags(cmd, stderr)
		name := fs.String("name", "", "rule name")
		start := fs.String("start", "", "window start HH:MM")
		end := fs.String("end", "", "window end HH:MM (before start crosses midnight)")
		lighting := fs.IntP("lighting", "l", 0, "lighting level 0..100")
		temp := fs.Float64P("temp", "T", 0, "setpoint in °C")
		door := fs.StringP("door", "d", "locked", "locked or unlocked")
		if err := fs.Parse(args); err != nil || *start == "" || *end == "" || !fs.Changed("temp") {
			return nil, fmt.Errorf("%w: schedule-add --start HH:MM --end HH:MM --temp C [--lighting N] [--door D] [--name N]", errUsage)
		}
		return c.do(ctx, http.MethodPost, "/api/v1/bas/schedule", nil, map[string]any{
			"name":          *name,
			"start":         *start,
			"end":           *end,
			"lighting":      *lighting,
			"temperature_c": *temp,
			"door_lock":     *door,
		})

	case "logs":
		fs := newSubFlags(cmd, stderr)
		from := fs.String("from", "", "start (RFC3339 or YYYY-MM-DD)")
		to := fs.String("to", "", "end (RFC3339 or YYYY-MM-DD, inclusive)")
		typ := fs.String("type", "", "event type")
		if err := fs.Parse(args); err != nil {
			return nil, fmt.Errorf("%w: %v", errUsage, err)
		}
		q := url.Values{}
		for k, v := range map[string]string{"from": *from, "to": *to, "type": *typ} {
			if v != "" {
				q.Set(k, v)
			}
		}
		return c.do(ctx, http.MethodGet, "/api/v1/logs", q, nil)
	}
	return nil, fmt.Errorf("%w: unknown command %q", errUsage, cmd)
}

func newSubFlags(name string, stderr io.Writer) *pflag.FlagSet {
	fs := pflag.NewFlagSet(name, pflag.ContinueOnError)
	fs.SetOutput(stderr)
	return fs
}

func exitCode(err error) int {
	if errors.Is(err, errUsage) {
		return exitUsage
	}
	var apiErr *apiError
	if errors.As(err, &apiErr) {
		if apiErr.Status == http.StatusUnauthorized {
			return exitUnauthorized
		}
		if code, ok := codeExits[apiErr.Code]; ok {
			return code
		}
	}
	return exitError
}

func render(w io.Writer, format string, v any) error {
	if format == "json" {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	}
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(v); err != nil {
		return err
	}
	return enc.Close()
}

func envOr(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}
