package reconcile

import (
	"strings"

	"github.com/mitchellh/mapstructure"

	"github.com/specsync/specsync/pkg/remote"
)

// ExtractStrategy probes a completed generation task payload for the
// generated collection's identifier. Strategies are pure and applied in
// order; the first hit wins. A final remote name lookup (not a strategy,
// since it needs a network call) backstops them in the engine.
type ExtractStrategy struct {
	Name    string
	Extract func(remote.TaskPayload) (string, bool)
}

// collectionExtractStrategies is the ordered strategy list: a resource entry
// whose URL contains the collection path segment, then the known alternate
// result shapes the platform has produced over time.
var collectionExtractStrategies = []ExtractStrategy{
	{Name: "resource-url", Extract: extractFromResources},
	{Name: "result-collection", Extract: extractFromResult},
	{Name: "details", Extract: extractFromDetails},
	{Name: "top-level", Extract: extractFromTopLevel},
}

// extractCollectionUID applies the strategies in order, returning the
// identifier and the name of the strategy that produced it.
func extractCollectionUID(payload remote.TaskPayload) (uid, strategy string, ok bool) {
	for _, s := range collectionExtractStrategies {
		if uid, ok := s.Extract(payload); ok {
			return uid, s.Name, true
		}
	}
	return "", "", false
}

// extractFromResources scans the payload's resources list for an entry whose
// URL contains "/collections/". The identifier is the entry's uid or id
// field, falling back to the URL segment after the collection path.
func extractFromResources(payload remote.TaskPayload) (string, bool) {
	var probe struct {
		Resources []struct {
			URL string `mapstructure:"url"`
			UID string `mapstructure:"uid"`
			ID  string `mapstructure:"id"`
		} `mapstructure:"resources"`
	}
	if err := mapstructure.Decode(map[string]interface{}(payload), &probe); err != nil {
		return "", false
	}

	for _, res := range probe.Resources {
		if !strings.Contains(res.URL, "/collections/") {
			continue
		}
		if res.UID != "" {
			return res.UID, true
		}
		if res.ID != "" {
			return res.ID, true
		}
		if uid := collectionUIDFromURL(res.URL); uid != "" {
			return uid, true
		}
	}
	return "", false
}

func collectionUIDFromURL(url string) string {
	_, rest, found := strings.Cut(url, "/collections/")
	if !found {
		return ""
	}
	uid, _, _ := strings.Cut(rest, "/")
	return strings.TrimSpace(uid)
}

func extractFromResult(payload remote.TaskPayload) (string, bool) {
	var probe struct {
		Result struct {
			Collection struct {
				UID string `mapstructure:"uid"`
				ID  string `mapstructure:"id"`
			} `mapstructure:"collection"`
		} `mapstructure:"result"`
	}
	if err := mapstructure.Decode(map[string]interface{}(payload), &probe); err != nil {
		return "", false
	}
	if probe.Result.Collection.UID != "" {
		return probe.Result.Collection.UID, true
	}
	if probe.Result.Collection.ID != "" {
		return probe.Result.Collection.ID, true
	}
	return "", false
}

func extractFromDetails(payload remote.TaskPayload) (string, bool) {
	var probe struct {
		Details struct {
			CollectionUID string `mapstructure:"collectionUid"`
			UID           string `mapstructure:"uid"`
		} `mapstructure:"details"`
	}
	if err := mapstructure.Decode(map[string]interface{}(payload), &probe); err != nil {
		return "", false
	}
	if probe.Details.CollectionUID != "" {
		return probe.Details.CollectionUID, true
	}
	if probe.Details.UID != "" {
		return probe.Details.UID, true
	}
	return "", false
}

func extractFromTopLevel(payload remote.TaskPayload) (string, bool) {
	var probe struct {
		Collection struct {
			UID string `mapstructure:"uid"`
			ID  string `mapstructure:"id"`
		} `mapstructure:"collection"`
		CollectionUID string `mapstructure:"collectionUid"`
	}
	if err := mapstructure.Decode(map[string]interface{}(payload), &probe); err != nil {
		return "", false
	}
	if probe.Collection.UID != "" {
		return probe.Collection.UID, true
	}
	if probe.Collection.ID != "" {
		return probe.Collection.ID, true
	}
	if probe.CollectionUID != "" {
		return probe.CollectionUID, true
	}
	return "", false
}
