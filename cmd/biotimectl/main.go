// biotimectl is the management companion to the kiosk: directory health and
// search, local template cache inspection, prefetching and removal. Nothing
// here touches the fingerprint sensor.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/spf13/pflag"

	"github.com/grosvenor-hsc/biotime/pkg/capture"
	"github.com/grosvenor-hsc/biotime/pkg/config"
	"github.com/grosvenor-hsc/biotime/pkg/directory"
	"github.com/grosvenor-hsc/biotime/pkg/options"
	"github.com/grosvenor-hsc/biotime/pkg/templatestore"
	"github.com/grosvenor-hsc/biotime/pkg/workflow"
)

const usage = `usage: biotimectl [flags] <command>

commands:
  health            check directory service reachability
  search <query>    search the remote directory
  fetch <name>      download and cache the template for a directory entry
  push <name>       re-upload the cached template to the directory
  list              list locally enrolled names
  remove <name>     delete an enrollment remotely and locally
`

func main() {
	var (
		configPath string
		verbose    bool
	)
	pflag.StringVar(&configPath, "config", "biotime.yaml", "path to configuration file")
	pflag.BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
	pflag.Parse()

	lvl := new(slog.LevelVar)
	if verbose {
		lvl.Set(slog.LevelDebug)
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: lvl,
	}))

	if pflag.NArg() == 0 {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}

	if err := run(logger, configPath, pflag.Args()); err != nil {
		logger.Error("command failed", "error", err)
		os.Exit(1)
	}
}

func run(logger *slog.Logger, configPath string, args []string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	opts := []options.Option{
		options.WithLogger(logger),
		options.WithRequestTimeout(time.Duration(cfg.RequestTimeoutSeconds) * time.Second),
		options.WithThreshold(cfg.MatchThreshold),
	}

	client, err := directory.NewClient(directory.Config{
		BaseURL:             cfg.BaseURL,
		APIToken:            cfg.APIToken,
		HMACSecret:          cfg.HMACSecret(),
		GatewayClientID:     cfg.GatewayClientID,
		GatewayClientSecret: cfg.GatewayClientSecret,
	}, opts...)
	if err != nil {
		return err
	}

	store, err := templatestore.New(cfg.TemplateDir, opts...)
	if err != nil {
		return err
	}

	// No sensor on the management path; workflows that need one are not
	// reachable from this tool.
	flow := workflow.New(client, store, capture.NewOrchestrator(nil), cfg.SiteID, cfg.DeviceID, opts...)

	ctx := context.Background()

	switch cmd, rest := args[0], args[1:]; cmd {
	case "health":
		fmt.Println(client.CheckHealth(ctx))
		return nil

	case "search":
		if len(rest) == 0 {
			return fmt.Errorf("search: missing query")
		}
		entries, err := client.SearchEmployees(ctx, strings.Join(rest, " "))
		if err != nil {
			return err
		}
		if len(entries) == 0 {
			fmt.Println("no matching users")
			return nil
		}
		for _, e := range entries {
			fmt.Printf("%d\t%s\t%s\n", e.ID, e.Name, e.Ref)
		}
		return nil

	case "fetch":
		if len(rest) == 0 {
			return fmt.Errorf("fetch: missing name")
		}
		return fetchTemplate(ctx, client, store, strings.Join(rest, " "))

	case "push":
		if len(rest) == 0 {
			return fmt.Errorf("push: missing name")
		}
		name := strings.Join(rest, " ")
		result, err := flow.PushTemplate(ctx, name)
		if err != nil {
			return err
		}
		fmt.Printf("pushed template for %s (enrollment %d, status %s)\n",
			result.Name, result.EnrollmentID, result.Status)
		return nil

	case "list":
		names := store.Names()
		if len(names) == 0 {
			fmt.Println("no templates enrolled")
			return nil
		}
		for _, name := range names {
			if id, ok := store.Binding(name); ok {
				fmt.Printf("%s\t(enrollment %d)\n", name, id)
			} else {
				fmt.Printf("%s\t(no binding)\n", name)
			}
		}
		return nil

	case "remove":
		if len(rest) == 0 {
			return fmt.Errorf("remove: missing name")
		}
		name := strings.Join(rest, " ")
		if err := flow.Remove(ctx, name); err != nil {
			return err
		}
		fmt.Printf("removed %s\n", name)
		return nil

	default:
		fmt.Fprint(os.Stderr, usage)
		return fmt.Errorf("unknown command %q", cmd)
	}
}

// fetchTemplate hydrates the local cache for one directory entry, adopting
// its id as the enrollment binding when none is stored yet.
func fetchTemplate(ctx context.Context, client *directory.Client, store *templatestore.Store, name string) error {
	entries, err := client.SearchEmployees(ctx, name)
	if err != nil {
		return err
	}
	if len(entries) == 0 {
		return fmt.Errorf("fetch: no directory entry for %q", name)
	}
	selected, err := workflow.SelectEntry(entries, name)
	if err != nil {
		return err
	}

	template, err := client.FetchTemplate(ctx, selected.ID)
	if err != nil {
		return err
	}
	if err := store.Put(selected.Name, template); err != nil {
		return err
	}
	if _, ok := store.Binding(selected.Name); !ok {
		if err := store.SetBinding(selected.Name, selected.ID); err != nil {
			return err
		}
	}

	fmt.Printf("cached template for %s (enrollment %d)\n", selected.Name, selected.ID)
	return nil
}
