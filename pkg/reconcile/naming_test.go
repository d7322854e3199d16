package reconcile

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/specsync/specsync/pkg/statestore"
)

func TestAssetName(t *testing.T) {
	id := statestore.Identity{Domain: "payments", Service: "order api", Stage: "prod"}
	assert.Equal(t, "[PAYMENTS] order_api #main", AssetName(id))

	// stage is not part of the shared spec/collection name
	other := statestore.Identity{Domain: "payments", Service: "order api", Stage: "dev"}
	assert.Equal(t, AssetName(id), AssetName(other))
}

func TestEnvironmentName(t *testing.T) {
	id := statestore.Identity{Domain: "Payments", Service: "order api", Stage: "prod"}
	assert.Equal(t, "[Payments] order_api #dev", EnvironmentName(id, "dev"))
}
