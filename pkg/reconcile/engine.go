package reconcile

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/hashicorp/go-hclog"
	"github.com/hashicorp/go-multierror"

	"github.com/specsync/specsync/pkg/envconfig"
	"github.com/specsync/specsync/pkg/openapi"
	"github.com/specsync/specsync/pkg/remote"
	"github.com/specsync/specsync/pkg/statestore"
)

// specRootFile is the path of the spec's root file on the platform.
const specRootFile = "index.json"

// maxDocumentBytes bounds the serialized document size accepted before any
// remote call is made.
const maxDocumentBytes = 10 << 20

// Config assembles an Engine. All collaborators are required except Logger.
type Config struct {
	Client *remote.Client
	Store  *statestore.Store
	Logger hclog.Logger
}

// Engine runs one reconciliation per invocation. It is not safe for
// concurrent use against the same state file.
type Engine struct {
	client      *remote.Client
	store       *statestore.Store
	transformer *openapi.Transformer
	enricher    *openapi.Enricher
	log         hclog.Logger

	// OnEnvironmentFallback, when set, observes each environment-update
	// failure that fell back to creation.
	OnEnvironmentFallback func(name string, err error)
}

// NewEngine creates an Engine from cfg.
func NewEngine(cfg Config) (*Engine, error) {
	if cfg.Client == nil {
		return nil, fmt.Errorf("reconcile: remote client is required")
	}
	if cfg.Store == nil {
		return nil, fmt.Errorf("reconcile: state store is required")
	}
	log := cfg.Logger
	if log == nil {
		log = hclog.NewNullLogger()
	}
	log = log.Named("engine")

	return &Engine{
		client:      cfg.Client,
		store:       cfg.Store,
		transformer: openapi.NewTransformer(log),
		enricher:    openapi.NewEnricher(log),
		log:         log,
	}, nil
}

// Input is one reconciliation request.
type Input struct {
	Identity statestore.Identity

	// Document is the raw gateway-exported OpenAPI document.
	Document openapi.Document

	// EnvConfig enables multi-environment enrichment and environment
	// provisioning when non-nil.
	EnvConfig *envconfig.Config

	// SpecIDOverride and CollectionUIDOverride short-circuit resolution.
	SpecIDOverride        string
	CollectionUIDOverride string

	// WaitForSync polls the synchronization task to a terminal state.
	// Generation tasks are always polled regardless: the generated
	// collection's identifier is only obtainable from the completed task.
	WaitForSync bool

	// ForcePush pushes spec content even when the fingerprint is
	// unchanged.
	ForcePush bool

	// DryRun resolves identifiers through read-only lookups and reports
	// the mutations that a real run would perform.
	DryRun bool

	Poll remote.PollOptions
}

func (in *Input) validate() error {
	var result *multierror.Error
	if err := in.Identity.Validate(); err != nil {
		result = multierror.Append(result, fmt.Errorf("invalid identity: %w", err))
	}
	if in.Document == nil {
		result = multierror.Append(result, fmt.Errorf("document is required"))
	}
	return result.ErrorOrNil()
}

// Result reports what one reconciliation did.
type Result struct {
	SpecID        string
	CollectionUID string
	SpecCreated   bool
	Pushed        bool
	Generated     bool
	Synced        bool
	Environments  map[string]string
	DryRun        bool
}

// TaskFailedError is a terminal non-success task, carrying the task's
// detail payload verbatim.
type TaskFailedError struct {
	Operation string
	Payload   remote.TaskPayload
}

func (e *TaskFailedError) Error() string {
	detail, err := json.Marshal(e.Payload)
	if err != nil {
		detail = []byte(fmt.Sprintf("%v", e.Payload))
	}
	return fmt.Sprintf("%s task finished with status %q: %s",
		e.Operation, e.Payload.Status(), detail)
}

// Reconcile runs the full resolution algorithm for one identity. Remote
// failures propagate as fatal; state persisted before the failure point
// stays on disk, and the name-lookup fallbacks make reruns safe even when
// identifiers were never cached.
func (e *Engine) Reconcile(ctx context.Context, in Input) (*Result, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}

	log := e.log.With("identity", in.Identity.Key())

	doc := e.transformer.Transform(in.Document)
	if in.EnvConfig != nil {
		doc = e.enricher.Enrich(doc, in.Identity.Service, in.EnvConfig)
	}

	content, err := doc.Serialize()
	if err != nil {
		return nil, err
	}
	if len(content) > maxDocumentBytes {
		return nil, fmt.Errorf("document too large: %d bytes exceeds the %d byte limit",
			len(content), maxDocumentBytes)
	}
	fingerprint := openapi.Fingerprint(content)

	state := e.store.Load()
	entry := state.Entry(in.Identity)
	result := &Result{DryRun: in.DryRun}

	// Step 1: resolve the spec.
	name := AssetName(in.Identity)
	if err := e.resolveSpec(ctx, in, entry, state, name, string(content), result, log); err != nil {
		return nil, err
	}
	if result.SpecID == "" {
		// Dry run against a workspace with no matching spec; nothing
		// further can be resolved without creating it.
		return result, nil
	}

	// Step 2: push content when the fingerprint changed.
	if err := e.pushContent(ctx, in, entry, state, fingerprint, string(content), result, log); err != nil {
		return nil, err
	}

	// Steps 3-5: resolve the collection and drive its task.
	if err := e.resolveCollection(ctx, in, entry, state, name, result, log); err != nil {
		return nil, err
	}

	// Step 6: provision per-stage environments.
	if in.EnvConfig != nil && !in.DryRun {
		if svc, ok := in.EnvConfig.Service(in.Identity.Service); ok {
			resolved, err := e.upsertEnvironments(ctx, in.Identity, svc, entry)
			if err != nil {
				return nil, err
			}
			result.Environments = resolved
		}
	}

	// Step 7: final persist.
	if !in.DryRun {
		if err := e.store.Save(state); err != nil {
			return nil, err
		}
	}
	return result, nil
}

// resolveSpec computes the spec identifier by precedence: operator override,
// cached state, remote lookup by name, creation. A newly created spec is
// persisted immediately so a crash later in the run cannot lose the mapping.
func (e *Engine) resolveSpec(ctx context.Context, in Input, entry *statestore.Entry, state *statestore.Document, name, content string, result *Result, log hclog.Logger) error {
	switch {
	case in.SpecIDOverride != "":
		log.Info("using operator-supplied spec id", "spec_id", in.SpecIDOverride)
		entry.SpecID = in.SpecIDOverride

	case entry.SpecID != "":
		log.Debug("using cached spec id", "spec_id", entry.SpecID)

	default:
		spec, err := e.client.FindSpecByName(ctx, name)
		if err != nil {
			return err
		}
		if spec != nil {
			log.Info("resolved spec by name", "name", name, "spec_id", spec.ID)
			entry.SpecID = spec.ID
			break
		}

		if in.DryRun {
			log.Info("dry run: would create spec", "name", name)
			return nil
		}

		created, err := e.client.CreateSpec(ctx, name, specRootFile, content)
		if err != nil {
			return err
		}
		entry.SpecID = created.ID
		entry.LastSpecSHA = openapi.Fingerprint([]byte(content))
		result.SpecCreated = true
		result.Pushed = true
		if err := e.store.Save(state); err != nil {
			return fmt.Errorf("failed to persist newly created spec id: %w", err)
		}
	}

	result.SpecID = entry.SpecID
	return nil
}

// pushContent updates the spec's root file unless the content fingerprint
// matches the last successful push. Skipping on a fingerprint match is this
// implementation's policy for the documented idempotency goal; ForcePush
// restores unconditional pushing.
func (e *Engine) pushContent(ctx context.Context, in Input, entry *statestore.Entry, state *statestore.Document, fingerprint, content string, result *Result, log hclog.Logger) error {
	if result.SpecCreated {
		// Content went up inline with the create.
		return nil
	}
	if !in.ForcePush && entry.LastSpecSHA == fingerprint {
		log.Info("spec content unchanged, skipping push", "sha", fingerprint)
		return nil
	}
	if in.DryRun {
		log.Info("dry run: would push spec content", "spec_id", entry.SpecID, "sha", fingerprint)
		return nil
	}

	if err := e.client.UpdateSpecFile(ctx, entry.SpecID, specRootFile, content); err != nil {
		return err
	}
	entry.LastSpecSHA = fingerprint
	result.Pushed = true
	if err := e.store.Save(state); err != nil {
		return fmt.Errorf("failed to persist content fingerprint: %w", err)
	}
	return nil
}

// resolveCollection computes the collection identifier by precedence,
// stopping at the first tier that produces one, then synchronizes it with
// the spec; with no identifier it generates a fresh collection instead.
func (e *Engine) resolveCollection(ctx context.Context, in Input, entry *statestore.Entry, state *statestore.Document, name string, result *Result, log hclog.Logger) error {
	uid, err := e.lookupCollectionUID(ctx, in, entry, name, log)
	if err != nil {
		return err
	}

	if uid != "" {
		if in.DryRun {
			log.Info("dry run: would synchronize collection with spec",
				"collection_uid", uid, "spec_id", entry.SpecID)
			result.CollectionUID = uid
			return nil
		}
		if err := e.syncCollection(ctx, in, uid, entry.SpecID, log); err != nil {
			return err
		}
		result.Synced = true
	} else {
		if in.DryRun {
			log.Info("dry run: would generate collection from spec",
				"spec_id", entry.SpecID, "name", name)
			return nil
		}
		uid, err = e.generateCollection(ctx, in, entry.SpecID, name, log)
		if err != nil {
			return err
		}
		result.Generated = true
	}

	entry.CollectionUID = uid
	result.CollectionUID = uid
	if err := e.store.Save(state); err != nil {
		return fmt.Errorf("failed to persist collection uid: %w", err)
	}
	return nil
}

// lookupCollectionUID walks the resolution tiers: operator override, cached
// state, the spec's own generated-collections list (exact name match, else
// the sole entry), and finally a workspace name lookup. Only the first
// matching tier executes a remote call.
func (e *Engine) lookupCollectionUID(ctx context.Context, in Input, entry *statestore.Entry, name string, log hclog.Logger) (string, error) {
	if in.CollectionUIDOverride != "" {
		log.Info("using operator-supplied collection uid", "collection_uid", in.CollectionUIDOverride)
		return in.CollectionUIDOverride, nil
	}
	if entry.CollectionUID != "" {
		log.Debug("using cached collection uid", "collection_uid", entry.CollectionUID)
		return entry.CollectionUID, nil
	}

	generated, err := e.client.ListSpecCollections(ctx, entry.SpecID)
	if err != nil {
		return "", err
	}
	for _, col := range generated {
		if col.Name == name {
			log.Info("resolved collection from spec's generated collections",
				"collection_uid", col.UID)
			return col.UID, nil
		}
	}
	if len(generated) == 1 {
		log.Info("resolved sole generated collection", "collection_uid", generated[0].UID)
		return generated[0].UID, nil
	}

	col, err := e.client.FindCollectionByName(ctx, name)
	if err != nil {
		return "", err
	}
	if col != nil {
		log.Info("resolved collection by name", "name", name, "collection_uid", col.UID)
		return col.UID, nil
	}
	return "", nil
}

// syncCollection issues the synchronize request and, when the caller asked
// for it, polls the task to a terminal state.
func (e *Engine) syncCollection(ctx context.Context, in Input, uid, specID string, log hclog.Logger) error {
	task, err := e.client.SyncCollection(ctx, uid, specID)
	if err != nil {
		return err
	}
	if !in.WaitForSync {
		log.Info("collection sync running asynchronously", "task", task.Locator())
		return nil
	}

	payload, err := e.client.PollTask(ctx, task.Locator(), in.Poll)
	if err != nil {
		return err
	}
	if !payload.Succeeded() {
		return &TaskFailedError{Operation: "collection sync", Payload: payload}
	}
	log.Info("collection sync completed", "collection_uid", uid)
	return nil
}

// generateCollection issues the generate request and always polls it to
// completion: the generated collection's identifier is only obtainable from
// the completed task payload.
func (e *Engine) generateCollection(ctx context.Context, in Input, specID, name string, log hclog.Logger) (string, error) {
	task, err := e.client.GenerateCollection(ctx, specID, name, remote.DefaultGenerationOptions())
	if err != nil {
		return "", err
	}

	payload, err := e.client.PollTask(ctx, task.Locator(), in.Poll)
	if err != nil {
		return "", err
	}
	if !payload.Succeeded() {
		return "", &TaskFailedError{Operation: "collection generation", Payload: payload}
	}

	if uid, strategy, ok := extractCollectionUID(payload); ok {
		log.Info("extracted generated collection uid",
			"collection_uid", uid, "strategy", strategy)
		return uid, nil
	}

	// The payload carried no recognizable identifier; the collection
	// exists by now, so a fresh name lookup is the last resort.
	col, err := e.client.FindCollectionByName(ctx, name)
	if err != nil {
		return "", err
	}
	if col == nil {
		return "", fmt.Errorf("generated collection %q not found: task payload carried no identifier and name lookup returned nothing", name)
	}
	log.Info("resolved generated collection by name lookup", "collection_uid", col.UID)
	return col.UID, nil
}
