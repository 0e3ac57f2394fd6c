package main

import (
	"context"
	"flag"
	"log"
	"net/http"
	"os"
	"time"

	"github.com/cardwise/warden/internal/api"
	"github.com/cardwise/warden/internal/app"
	"github.com/cardwise/warden/internal/config"
)

func main() {
	if err := runFn(os.Args[1:], os.Getenv, listenAndServe, newServer); err != nil {
		fatalf("server error: %v", err)
	}
}

var runFn = run
var fatalf = log.Fatalf

func newServer(addr string, cfg config.Config) (*http.Server, error) {
	a, err := app.New(context.Background(), cfg)
	if err != nil {
		return nil, err
	}

	h := &api.Handler{
		Orchestrator: a.Orchestrator,
		Policies:     a.Policies,
		Audit:        a.Audit,
	}
	return &http.Server{
		Addr:              addr,
		Handler:           api.NewRouter(h),
		ReadHeaderTimeout: 5 * time.Second,
	}, nil
}

type envFn func(string) string
type listenFn func(*http.Server) error
type serverFactory func(addr string, cfg config.Config) (*http.Server, error)

func run(args []string, getenv envFn, listen listenFn, factory serverFactory) error {
	fs := flag.NewFlagSet("warden-gateway", flag.ContinueOnError)
	configPath := fs.String("config", "", "path to warden config file")
	if err := fs.Parse(args); err != nil {
		return err
	}

	cfgFile := *configPath
	if cfgFile == "" {
		cfgFile = getenv("WARDEN_CONFIG_PATH")
	}

	var cfg config.Config
	if cfgFile != "" {
		loaded, err := config.Load(cfgFile)
		if err != nil {
			return err
		}
		cfg = loaded
	}

	addr := firstNonEmpty(getenv("WARDEN_LISTEN_ADDR"), cfg.ListenAddr, ":8080")
	cfg.ListenAddr = addr
	if path := getenv("WARDEN_POLICY_PATH"); path != "" {
		cfg.PolicyPath = path
	}

	server, err := factory(addr, cfg)
	if err != nil {
		return err
	}

	log.Printf("warden-gateway listening on %s", addr)
	if err := listen(server); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

func listenAndServe(server *http.Server) error {
	return server.ListenAndServe()
}

func firstNonEmpty(values ...string) string {
	for _, value := range values {
		if value != "" {
			return value
		}
	}
	return ""
}
