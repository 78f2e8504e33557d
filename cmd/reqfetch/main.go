// Command reqfetch fetches URLs through a reqsched scheduler and prints one
// line per result.
//
//	reqfetch -config reqsched.yaml -priority 2 https://a.example https://b.example
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	lg "github.com/Andrej220/go-utils/zlog"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	rs "github.com/Andrej220/go-utils/reqsched"
)

type cliFlags struct {
	configPath  string
	method      string
	metricsAddr string
	// priority is nil unless -priority was given, so the config default
	// stays in effect.
	priority *int
	urls     []string
}

func parseFlags(args []string) (cliFlags, error) {
	fs := flag.NewFlagSet("reqfetch", flag.ContinueOnError)
	var (
		f        cliFlags
		priority int
	)
	fs.StringVar(&f.configPath, "config", "", "YAML config file")
	fs.IntVar(&priority, "priority", 0, "priority of every request; lower runs first (default: config defaultPriority)")
	fs.StringVar(&f.method, "method", http.MethodGet, "HTTP method")
	fs.StringVar(&f.metricsAddr, "metrics", "", "serve Prometheus metrics on this address")
	if err := fs.Parse(args); err != nil {
		return cliFlags{}, err
	}
	fs.Visit(func(fl *flag.Flag) {
		if fl.Name == "priority" {
			f.priority = rs.Prio(priority)
		}
	})
	f.urls = fs.Args()
	return f, nil
}

func main() {
	f, err := parseFlags(os.Args[1:])
	if err != nil {
		os.Exit(2)
	}
	if err := run(f); err != nil {
		fmt.Fprintln(os.Stderr, "reqfetch:", err)
		os.Exit(1)
	}
}

func run(f cliFlags) error {
	if len(f.urls) == 0 {
		return errors.New("no URLs given")
	}

	cfg := rs.DefaultConfig()
	if f.configPath != "" {
		var err error
		if cfg, err = rs.LoadConfig(f.configPath); err != nil {
			return err
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	logger := lg.FromContext(ctx)

	reg := prometheus.NewRegistry()
	metrics, err := rs.NewPromMetrics("reqfetch", reg)
	if err != nil {
		return err
	}
	if f.metricsAddr != "" {
		srv := &http.Server{Addr: f.metricsAddr, Handler: promhttp.HandlerFor(reg, promhttp.HandlerOpts{})}
		go func() {
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("Metrics server failed", lg.Any("error", err))
			}
		}()
		defer srv.Close()
	}

	s, err := rs.New(ctx, cfg, rs.NewHTTPTransport(&http.Client{}), metrics)
	if err != nil {
		return err
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = s.Stop(shutdownCtx)
	}()

	var (
		wg     sync.WaitGroup
		mu     sync.Mutex
		failed int
	)
	for _, u := range f.urls {
		fut, err := s.Fetch(ctx, u, &rs.Options{Method: f.method, Priority: f.priority})
		if err != nil {
			fmt.Fprintf(os.Stderr, "%s: %v\n", u, err)
			mu.Lock()
			failed++
			mu.Unlock()
			continue
		}
		wg.Add(1)
		go func(u string, fut *rs.Future) {
			defer wg.Done()
			resp, err := fut.Result()
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				failed++
				fmt.Printf("ERR %s %v\n", u, err)
				return
			}
			fmt.Printf("%d %s %d bytes\n", resp.Status, u, len(resp.Body))
		}(u, fut)
	}
	wg.Wait()

	if failed > 0 {
		return fmt.Errorf("%d of %d requests failed", failed, len(f.urls))
	}
	return nil
}
