package badger

import (
	"context"
	"testing"

	"github.com/poiesic/sanket/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecordSink_WriteAndRead(t *testing.T) {
	stores := newTestStores(t, core.MetricCosine)
	ctx := context.Background()

	records := []core.AccidentRecord{
		{State: "Odisha", Year: 2021, Provenance: core.Provenance{Version: "v1", FirstRow: 12, LastRow: 12}},
		{State: "Jharkhand", Year: 2020, Provenance: core.Provenance{Version: "v1", FirstRow: 3, LastRow: 3}},
		{State: "Telangana", Year: 2022, Provenance: core.Provenance{Version: "v1", FirstRow: 300, LastRow: 300}},
	}
	require.NoError(t, stores.Records.WriteRecords(ctx, "v1", records))
	require.NoError(t, stores.Records.WriteRecords(ctx, "v2", records[:1]))

	got, err := stores.Records.ReadRecords(ctx, "v1")
	require.NoError(t, err)
	require.Len(t, got, 3)
	// Big-endian row keys keep numeric order.
	assert.Equal(t, "Jharkhand", got[0].State)
	assert.Equal(t, "Odisha", got[1].State)
	assert.Equal(t, "Telangana", got[2].State)

	// Rewriting the same version replaces rather than duplicates.
	require.NoError(t, stores.Records.WriteRecords(ctx, "v1", records))
	got, err = stores.Records.ReadRecords(ctx, "v1")
	require.NoError(t, err)
	assert.Len(t, got, 3)
}
