package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/urfave/cli/v3"
	"gopkg.in/yaml.v3"

	"github.com/comigor/calendar-agent/internal/agent"
	"github.com/comigor/calendar-agent/internal/calendar"
	"github.com/comigor/calendar-agent/internal/config"
	"github.com/comigor/calendar-agent/internal/geo"
	"github.com/comigor/calendar-agent/internal/llm"
	"github.com/comigor/calendar-agent/internal/logger"
	"github.com/comigor/calendar-agent/internal/planner"
	"github.com/comigor/calendar-agent/internal/search"
	"github.com/comigor/calendar-agent/internal/server"
	"github.com/comigor/calendar-agent/internal/session"
	"github.com/comigor/calendar-agent/internal/weather"
	"github.com/comigor/calendar-agent/pkg/tools"
)

var version = "dev"

func main() {
	cmd := &cli.Command{
		Name:    "calendar-agent",
		Usage:   "Slovak-speaking calendar assistant for a print shop",
		Version: version,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "path to the YAML configuration file",
				Sources: cli.EnvVars("CONFIG_PATH"),
			},
			&cli.StringFlag{
				Name:  "log-level",
				Usage: "override log.level (debug, info, warn, error)",
			},
		},
		Commands: []*cli.Command{
			{
				Name:   "serve",
				Usage:  "run the HTTP API and MCP endpoint",
				Action: serve,
			},
			{
				Name:   "chat",
				Usage:  "talk to the agent from the terminal",
				Action: chat,
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "session", Value: "cli", Usage: "session id to continue"},
				},
			},
			{
				Name:   "config",
				Usage:  "print the effective configuration with secrets redacted",
				Action: dumpConfig,
			},
		},
		Action: serve,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := cmd.Run(ctx, os.Args); err != nil {
		logger.L.Error("fatal", "error", err)
		os.Exit(1)
	}
}

func loadConfig(cmd *cli.Command) (*config.Config, error) {
	cfg, err := config.LoadFile(cmd.String("config"))
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	if lvl := cmd.String("log-level"); lvl != "" {
		cfg.Log.Level = lvl
	}
	logger.Init(cfg.Log.Level, cfg.Log.Format)
	return cfg, nil
}

// app is the fully wired agent with everything that needs closing.
type app struct {
	cfg      *config.Config
	agent    *agent.Agent
	calendar *calendar.Client
	weather  *weather.Client
	geo      *geo.Locator
	planner  *planner.Service
	tools    *tools.ToolManager
	store    session.Store
	remote   *tools.Remote
}

func (a *app) Close() error {
	return errors.Join(a.remote.Close(), a.store.Close())
}

func build(ctx context.Context, cfg *config.Config) (*app, error) {
	store, err := session.Open(cfg.Session)
	if err != nil {
		return nil, fmt.Errorf("failed to open session store: %w", err)
	}

	cal := calendar.NewClient(cfg.Calendar)
	wx := weather.NewClient(cfg.Weather)
	if !cal.Configured() {
		logger.L.Warn("calendar script url not set, calendar tools will fail")
	}

	llmClient := llm.NewClient(cfg.LLM)
	plan := planner.NewService(cal, llmClient, cfg.LLM, wx.Location())

	tm := tools.NewToolManager()
	deps := tools.Deps{Calendar: cal, Planner: plan}
	if wx.Configured() {
		deps.Weather = wx
	} else {
		logger.L.Warn("weather api key not set, weather tools disabled")
	}
	if cfg.Search.BaseURL != "" {
		deps.Search = search.FromConfig(cfg.Search)
	} else {
		logger.L.Info("search base url not set, web_search disabled")
	}
	tools.RegisterBuiltins(tm, deps)
	remote := tools.ConnectMCP(ctx, cfg.MCPServers, tm)

	logger.L.Info("tools registered", "count", len(tm.List()), "mcp_servers", len(remote.Clients))

	return &app{
		cfg:      cfg,
		agent:    agent.New(llmClient, cfg.LLM, tm, store, agent.WithPrompts(remote.Prompts...)),
		calendar: cal,
		weather:  wx,
		geo:      geo.NewLocator(cfg.Geo),
		planner:  plan,
		tools:    tm,
		store:    store,
		remote:   remote,
	}, nil
}

func serve(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	a, err := build(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() {
		if err := a.Close(); err != nil {
			logger.L.Warn("shutdown cleanup failed", "error", err)
		}
	}()

	srv := server.New(cfg, server.Deps{
		Chat:     a.agent,
		Calendar: a.calendar,
		Weather:  a.weather,
		Geo:      a.geo,
		Planner:  a.planner,
		Tools:    a.tools,
	}, version)
	return srv.Run(ctx)
}

func chat(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	a, err := build(ctx, cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	return repl(ctx, a.agent, cmd.String("session"), os.Stdin, os.Stdout)
}

// repl reads one message per line. "/reset" clears the session.
func repl(ctx context.Context, c server.Chat, sessionID string, in io.Reader, out io.Writer) error {
	sc := bufio.NewScanner(in)
	fmt.Fprint(out, "> ")
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		switch {
		case line == "":
		case line == "/reset":
			if err := c.Reset(ctx, sessionID); err != nil {
				return err
			}
			fmt.Fprintln(out, "(konverzácia vymazaná)")
		default:
			res, err := c.HandleTurn(ctx, sessionID, line)
			if err != nil {
				fmt.Fprintf(out, "chyba: %v\n", err)
				break
			}
			for _, call := range res.ToolCalls {
				fmt.Fprintf(out, "  [%s]\n", call.Name)
			}
			fmt.Fprintln(out, res.Reply)
		}
		if ctx.Err() != nil {
			return nil
		}
		fmt.Fprint(out, "> ")
	}
	return sc.Err()
}

func redact(s string) string {
	if s == "" {
		return ""
	}
	return "***"
}

func dumpConfig(_ context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	cfg.LLM.APIKey = redact(cfg.LLM.APIKey)
	cfg.Weather.APIKey = redact(cfg.Weather.APIKey)
	for i := range cfg.MCPServers {
		for k := range cfg.MCPServers[i].Headers {
			cfg.MCPServers[i].Headers[k] = redact(cfg.MCPServers[i].Headers[k])
		}
	}
	enc := yaml.NewEncoder(os.Stdout)
	enc.SetIndent(2)
	defer enc.Close()
	return enc.Encode(cfg)
}
