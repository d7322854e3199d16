// Package sync implements the `specsync sync` command: reconcile one
// service/stage's gateway-exported OpenAPI document against the
// documentation platform.
package sync

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/hashicorp/go-hclog"
	"github.com/spf13/afero"

	"github.com/specsync/specsync/internal/cmd/base"
	"github.com/specsync/specsync/internal/config"
	"github.com/specsync/specsync/pkg/envconfig"
	"github.com/specsync/specsync/pkg/openapi"
	"github.com/specsync/specsync/pkg/reconcile"
	"github.com/specsync/specsync/pkg/remote"
	"github.com/specsync/specsync/pkg/statestore"
)

type Command struct {
	*base.Command

	flagDomain  string
	flagService string
	flagStage   string

	flagOpenAPI   string
	flagState     string
	flagEnvConfig string

	flagSpecID        string
	flagCollectionUID string

	flagWait      bool
	flagForcePush bool
	flagDryRun    bool

	flagPollTimeout  time.Duration
	flagPollInterval time.Duration

	flagAPIKey    string
	flagWorkspace string
	flagBaseURL   string
	flagLogLevel  string
}

func (c *Command) Synopsis() string {
	return "Reconcile an OpenAPI document with the documentation platform"
}

func (c *Command) Help() string {
	return `Usage: specsync sync -domain=<domain> -service=<service> -stage=<stage> -openapi=<file>

  Resolves (creating if absent) the remote spec and generated collection for
  the given service identity, pushes the document's content when it changed
  since the last run, and drives the platform's asynchronous generation or
  synchronization task. Resolved identifiers are cached in a local state
  file; the cache is advisory and safe to delete.

  The platform API key and workspace are read from ` + config.EnvAPIKey + ` and
  ` + config.EnvWorkspaceID + ` unless passed as flags.
` + c.Flags().Help()
}

func (c *Command) Flags() *base.FlagSet {
	f := base.NewFlagSet(flag.NewFlagSet("sync", flag.ExitOnError))

	f.StringVar(&c.flagDomain, "domain", "", "(Required) Owning domain of the service.")
	f.StringVar(&c.flagService, "service", "", "(Required) Service name.")
	f.StringVar(&c.flagStage, "stage", "", "(Required) Deployment stage.")

	f.StringVar(&c.flagOpenAPI, "openapi", "",
		"(Required) Path to the gateway-exported OpenAPI document (JSON).")
	f.StringVar(&c.flagState, "state", ".specsync/state.json",
		"Path to the local state file.")
	f.StringVar(&c.flagEnvConfig, "env-config", "",
		"Optional path to the multi-environment service configuration (YAML).")

	f.StringVar(&c.flagSpecID, "spec-id", "",
		"Operator override for the remote spec identifier.")
	f.StringVar(&c.flagCollectionUID, "collection-uid", "",
		"Operator override for the remote collection identifier.")

	f.BoolVar(&c.flagWait, "wait", false,
		"Poll the synchronization task to completion. Generation is always polled.")
	f.BoolVar(&c.flagForcePush, "force-push", false,
		"Push spec content even when the fingerprint is unchanged.")
	f.BoolVar(&c.flagDryRun, "dry-run", false,
		"Resolve identifiers read-only and report what would change.")

	f.DurationVar(&c.flagPollTimeout, "poll-timeout", 2*time.Minute,
		"Overall deadline when polling a task.")
	f.DurationVar(&c.flagPollInterval, "poll-interval", 3*time.Second,
		"Fixed interval between task status fetches.")

	f.StringVar(&c.flagAPIKey, "api-key", "",
		"Platform API key. Falls back to "+config.EnvAPIKey+".")
	f.StringVar(&c.flagWorkspace, "workspace", "",
		"Platform workspace identifier. Falls back to "+config.EnvWorkspaceID+".")
	f.StringVar(&c.flagBaseURL, "base-url", "",
		"Platform API base URL. Falls back to "+config.EnvBaseURL+".")
	f.StringVar(&c.flagLogLevel, "log-level", "",
		"Log level (trace, debug, info, warn, error).")

	return f
}

func (c *Command) Run(args []string) int {
	log, ui := c.Log, c.UI

	flags := c.Flags()
	if err := flags.Parse(args); err != nil {
		ui.Error(fmt.Sprintf("error parsing flags: %v", err))
		return 1
	}
	if c.flagLogLevel != "" {
		log.SetLevel(hclog.LevelFromString(c.flagLogLevel))
	}

	if c.flagOpenAPI == "" {
		ui.Error("openapi flag is required")
		return 1
	}
	identity := statestore.Identity{
		Domain:  c.flagDomain,
		Service: c.flagService,
		Stage:   c.flagStage,
	}
	if err := identity.Validate(); err != nil {
		ui.Error(fmt.Sprintf("invalid identity: %v", err))
		return 1
	}

	cfg := config.FromEnv()
	if c.flagAPIKey != "" {
		cfg.APIKey = c.flagAPIKey
	}
	if c.flagWorkspace != "" {
		cfg.WorkspaceID = c.flagWorkspace
	}
	if c.flagBaseURL != "" {
		cfg.BaseURL = c.flagBaseURL
	}
	if err := cfg.Validate(); err != nil {
		ui.Error(err.Error())
		return 1
	}

	raw, err := os.ReadFile(c.flagOpenAPI)
	if err != nil {
		ui.Error(fmt.Sprintf("error reading OpenAPI document: %v", err))
		return 1
	}
	doc, err := openapi.ParseDocument(raw)
	if err != nil {
		ui.Error(err.Error())
		return 1
	}

	fs := afero.NewOsFs()

	var envCfg *envconfig.Config
	if c.flagEnvConfig != "" {
		envCfg, err = envconfig.Load(fs, c.flagEnvConfig)
		if err != nil {
			ui.Error(err.Error())
			return 1
		}
		if envCfg == nil {
			log.Warn("environment config not found, proceeding without enrichment",
				"path", c.flagEnvConfig)
		}
	}

	client, err := remote.NewClient(remote.Config{
		BaseURL:     cfg.BaseURL,
		APIKey:      cfg.APIKey,
		WorkspaceID: cfg.WorkspaceID,
	}, log)
	if err != nil {
		ui.Error(err.Error())
		return 1
	}

	engine, err := reconcile.NewEngine(reconcile.Config{
		Client: client,
		Store:  statestore.NewStore(fs, c.flagState, log),
		Logger: log,
	})
	if err != nil {
		ui.Error(err.Error())
		return 1
	}

	result, err := engine.Reconcile(context.Background(), reconcile.Input{
		Identity:              identity,
		Document:              doc,
		EnvConfig:             envCfg,
		SpecIDOverride:        c.flagSpecID,
		CollectionUIDOverride: c.flagCollectionUID,
		WaitForSync:           c.flagWait,
		ForcePush:             c.flagForcePush,
		DryRun:                c.flagDryRun,
		Poll: remote.PollOptions{
			Timeout:  c.flagPollTimeout,
			Interval: c.flagPollInterval,
		},
	})
	if err != nil {
		ui.Error(fmt.Sprintf("reconciliation failed: %v", err))
		return 1
	}

	c.printSummary(identity, result)
	return 0
}

func (c *Command) printSummary(identity statestore.Identity, result *reconcile.Result) {
	ui := c.UI

	prefix := ""
	if result.DryRun {
		prefix = "[dry-run] "
	}

	ui.Info(fmt.Sprintf("%sReconciled %s", prefix, identity.Key()))
	if result.SpecID != "" {
		verb := "resolved"
		if result.SpecCreated {
			verb = "created"
		}
		ui.Info(fmt.Sprintf("  spec %s (%s)", result.SpecID, verb))
	} else {
		ui.Info("  spec would be created")
	}
	switch {
	case result.Pushed:
		ui.Info("  content pushed")
	case result.SpecID != "":
		ui.Info("  content unchanged, push skipped")
	}
	if result.CollectionUID != "" {
		verb := "synchronized"
		if result.Generated {
			verb = "generated"
		}
		ui.Info(fmt.Sprintf("  collection %s (%s)", result.CollectionUID, verb))
	}
	if len(result.Environments) > 0 {
		ui.Info(fmt.Sprintf("  environments upserted: %d", len(result.Environments)))
	}
}
