/*
 * Copyright 2025 Carver Automation Corporation.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package docstore

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/carverauto/lookupd/pkg/models"
)

func storedRecord(uri, name string, expires time.Time) *models.Record {
	rec := models.NewRecord()
	rec.Set(models.KeyType, models.StringValue(models.TypeService))
	rec.Set("service-name", models.StringValue(name))
	rec.SetURI(uri)
	rec.SetState(models.StateRegistered)
	rec.SetExpires(expires)

	return rec
}

// runServiceContract exercises the Service behavior every backend must share.
func runServiceContract(t *testing.T, store Service) {
	t.Helper()

	ctx := context.Background()
	expires := time.Now().Add(10 * time.Minute).UTC().Truncate(time.Second)

	recA := storedRecord("lookup/service/a", "svc-a", expires)
	require.NoError(t, store.Insert(ctx, "identity-a", recA))

	t.Run("insert enforces identity reservation", func(t *testing.T) {
		dup := storedRecord("lookup/service/a2", "svc-a", expires)
		assert.ErrorIs(t, store.Insert(ctx, "identity-a", dup), ErrIdentityTaken)
	})

	t.Run("get returns stored record", func(t *testing.T) {
		got, err := store.Get(ctx, "lookup/service/a")
		require.NoError(t, err)
		require.NotNil(t, got)
		assert.Equal(t, "lookup/service/a", got.URI())
	})

	t.Run("get absent is nil nil", func(t *testing.T) {
		got, err := store.Get(ctx, "lookup/service/missing")
		require.NoError(t, err)
		assert.Nil(t, got)
	})

	t.Run("findOne matches identity query", func(t *testing.T) {
		q := models.NewQuery()
		q.Add("service-name", models.OperatorAll, models.StringValue("svc-a"))

		got, err := store.FindOne(ctx, q)
		require.NoError(t, err)
		require.NotNil(t, got)
		assert.Equal(t, "lookup/service/a", got.URI())

		miss := models.NewQuery()
		miss.Add("service-name", models.OperatorAll, models.StringValue("nobody"))

		got, err = store.FindOne(ctx, miss)
		require.NoError(t, err)
		assert.Nil(t, got)
	})

	t.Run("update replaces and errors on absent", func(t *testing.T) {
		renewed := recA.Clone()
		renewed.SetState(models.StateRenewed)
		require.NoError(t, store.Update(ctx, recA.URI(), renewed))

		got, err := store.Get(ctx, recA.URI())
		require.NoError(t, err)
		assert.Equal(t, models.StateRenewed, got.State())

		assert.ErrorIs(t, store.Update(ctx, "lookup/service/missing", renewed), ErrNoSuchRecord)
	})

	t.Run("removeIfExpired honors renewal", func(t *testing.T) {
		stale := storedRecord("lookup/service/stale", "svc-stale", time.Now().Add(-time.Minute).UTC())
		require.NoError(t, store.Insert(ctx, "identity-stale", stale))

		// Still live relative to an old cutoff: kept.
		kept, err := store.RemoveIfExpired(ctx, stale.URI(), time.Now().Add(-time.Hour))
		require.NoError(t, err)
		assert.Nil(t, kept)

		removed, err := store.RemoveIfExpired(ctx, stale.URI(), time.Now())
		require.NoError(t, err)
		require.NotNil(t, removed)
		assert.Equal(t, stale.URI(), removed.URI())

		// Idempotent: the record is already gone.
		again, err := store.RemoveIfExpired(ctx, stale.URI(), time.Now())
		require.NoError(t, err)
		assert.Nil(t, again)
	})

	t.Run("releaseIdentity frees the reservation for its holder only", func(t *testing.T) {
		rec := storedRecord("lookup/service/rel", "svc-rel", expires)
		require.NoError(t, store.Insert(ctx, "identity-rel", rec))

		// Wrong uri: reservation stays.
		require.NoError(t, store.ReleaseIdentity(ctx, "identity-rel", "lookup/service/other"))
		assert.ErrorIs(t, store.Insert(ctx, "identity-rel", rec), ErrIdentityTaken)

		require.NoError(t, store.ReleaseIdentity(ctx, "identity-rel", rec.URI()))

		// Releasing touched only the reservation, never the record.
		still, err := store.Get(ctx, rec.URI())
		require.NoError(t, err)
		require.NotNil(t, still)

		fresh := storedRecord("lookup/service/rel2", "svc-rel", expires)
		assert.NoError(t, store.Insert(ctx, "identity-rel", fresh))
	})

	t.Run("reserveIdentity claims without a record", func(t *testing.T) {
		require.NoError(t, store.ReserveIdentity(ctx, "identity-res", "lookup/service/res"))

		// Re-reserving for the holder is a no-op; another uri is refused.
		require.NoError(t, store.ReserveIdentity(ctx, "identity-res", "lookup/service/res"))
		assert.ErrorIs(t, store.ReserveIdentity(ctx, "identity-res", "lookup/service/other"), ErrIdentityTaken)

		require.NoError(t, store.ReleaseIdentity(ctx, "identity-res", "lookup/service/res"))
		assert.NoError(t, store.ReserveIdentity(ctx, "identity-res", "lookup/service/other"))
		require.NoError(t, store.ReleaseIdentity(ctx, "identity-res", ""))
	})

	t.Run("rangeScan filters on expiry", func(t *testing.T) {
		in, err := store.RangeScan(ctx, expires.Add(-time.Minute), expires.Add(time.Minute))
		require.NoError(t, err)
		require.NotEmpty(t, in)

		// Both bounds are inclusive.
		edge, err := store.RangeScan(ctx, expires, expires)
		require.NoError(t, err)

		uris := make([]string, 0, len(edge))
		for _, rec := range edge {
			uris = append(uris, rec.URI())
		}

		assert.Contains(t, uris, "lookup/service/a")

		out, err := store.RangeScan(ctx, expires.Add(time.Hour), expires.Add(2*time.Hour))
		require.NoError(t, err)
		assert.Empty(t, out)
	})

	t.Run("delete returns the record and tolerates absence", func(t *testing.T) {
		deleted, err := store.Delete(ctx, recA.URI())
		require.NoError(t, err)
		require.NotNil(t, deleted)
		assert.Equal(t, recA.URI(), deleted.URI())

		missing, err := store.Delete(ctx, recA.URI())
		require.NoError(t, err)
		assert.Nil(t, missing)
	})
}

func TestMemoryStoreContract(t *testing.T) {
	store := NewMemoryStore()
	defer func() { _ = store.Close() }()

	runServiceContract(t, store)
}

func TestMemoryStoreListIsDeterministic(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	expires := time.Now().Add(time.Hour)
	require.NoError(t, store.Insert(ctx, "id-b", storedRecord("lookup/host/b", "b", expires)))
	require.NoError(t, store.Insert(ctx, "id-a", storedRecord("lookup/host/a", "a", expires)))

	records, err := store.List(ctx)
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, "lookup/host/a", records[0].URI())
	assert.Equal(t, "lookup/host/b", records[1].URI())
}
