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

package registry

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/carverauto/lookupd/pkg/docstore"
	"github.com/carverauto/lookupd/pkg/logger"
	"github.com/carverauto/lookupd/pkg/models"
)

type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func newTestClock() *testClock {
	return &testClock{now: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.now = c.now.Add(d)
}

func newTestStore(t *testing.T, db docstore.Service, notifier Notifier) (*Store, *testClock) {
	t.Helper()

	clock := newTestClock()

	leases := NewLeaseManager()
	leases.now = clock.Now

	s := NewStore(db, leases, notifier, "lookup", logger.NewTestLogger())
	s.now = clock.Now

	return s, clock
}

func serviceRecord(name string) *models.Record {
	rec := models.NewRecord()
	rec.Set(models.KeyType, models.StringValue(models.TypeService))
	rec.Set("service-name", models.StringValue(name))
	rec.Set("service-locator", models.StringsValue([]string{"tcp://" + name + ":8090"}))
	rec.Set(models.KeyTTL, models.StringValue("PT10M"))

	return rec
}

func TestPublishAssignsURIAndLifecycleFields(t *testing.T) {
	s, clock := newTestStore(t, docstore.NewMemoryStore(), nil)

	stored, err := s.Publish(context.Background(), serviceRecord("web"))
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(stored.URI(), "lookup/service/"))
	assert.Equal(t, models.StateRegistered, stored.State())

	expires, ok := stored.Expires()
	require.True(t, ok)
	assert.Equal(t, clock.Now().Add(10*time.Minute), expires)

	// Input record must not be mutated by registration.
	fresh := serviceRecord("web")
	assert.Empty(t, fresh.URI())
}

func TestPublishRejectsMissingType(t *testing.T) {
	s, _ := newTestStore(t, docstore.NewMemoryStore(), nil)

	rec := models.NewRecord()
	rec.Set("service-name", models.StringValue("web"))
	rec.Set(models.KeyTTL, models.StringValue("PT10M"))

	_, err := s.Publish(context.Background(), rec)
	assert.ErrorIs(t, err, ErrMissingRecordType)
}

func TestPublishRejectsInvalidLease(t *testing.T) {
	s, _ := newTestStore(t, docstore.NewMemoryStore(), nil)

	rec := serviceRecord("web")
	rec.Set(models.KeyTTL, models.StringValue("P1Y"))

	_, err := s.Publish(context.Background(), rec)
	assert.ErrorIs(t, err, ErrLeaseInvalid)
}

func TestPublishRejectsLiveDuplicate(t *testing.T) {
	s, _ := newTestStore(t, docstore.NewMemoryStore(), nil)

	_, err := s.Publish(context.Background(), serviceRecord("web"))
	require.NoError(t, err)

	// Same identity fields, different insertion order.
	dup := models.NewRecord()
	dup.Set("service-locator", models.StringsValue([]string{"tcp://web:8090"}))
	dup.Set("service-name", models.StringValue("web"))
	dup.Set(models.KeyType, models.StringValue(models.TypeService))
	dup.Set(models.KeyTTL, models.StringValue("PT2H"))

	_, err = s.Publish(context.Background(), dup)
	assert.ErrorIs(t, err, ErrDuplicateEntry)
}

func TestPublishAllowsDistinctIdentities(t *testing.T) {
	s, _ := newTestStore(t, docstore.NewMemoryStore(), nil)

	first, err := s.Publish(context.Background(), serviceRecord("web"))
	require.NoError(t, err)

	second, err := s.Publish(context.Background(), serviceRecord("db"))
	require.NoError(t, err)

	assert.NotEqual(t, first.URI(), second.URI())
}

func TestPublishReclaimsExpiredIdentity(t *testing.T) {
	s, clock := newTestStore(t, docstore.NewMemoryStore(), nil)

	first, err := s.Publish(context.Background(), serviceRecord("web"))
	require.NoError(t, err)

	// Lease lapses but the sweep has not run, so the reservation is stale.
	clock.Advance(11 * time.Minute)

	second, err := s.Publish(context.Background(), serviceRecord("web"))
	require.NoError(t, err)
	assert.NotEqual(t, first.URI(), second.URI())
}

func TestConcurrentPublishSingleWinner(t *testing.T) {
	s, _ := newTestStore(t, docstore.NewMemoryStore(), nil)

	const attempts = 16

	var (
		wg         sync.WaitGroup
		mu         sync.Mutex
		wins, dups int
	)

	for i := 0; i < attempts; i++ {
		wg.Add(1)

		go func() {
			defer wg.Done()

			_, err := s.Publish(context.Background(), serviceRecord("web"))

			mu.Lock()
			defer mu.Unlock()

			switch {
			case err == nil:
				wins++
			case errors.Is(err, ErrDuplicateEntry):
				dups++
			}
		}()
	}

	wg.Wait()

	assert.Equal(t, 1, wins)
	assert.Equal(t, attempts-1, dups)
}

func TestUpdateRenewsAndMerges(t *testing.T) {
	s, clock := newTestStore(t, docstore.NewMemoryStore(), nil)

	stored, err := s.Publish(context.Background(), serviceRecord("web"))
	require.NoError(t, err)

	clock.Advance(5 * time.Minute)

	fields := models.NewRecord()
	fields.Set("service-version", models.StringValue("2.1"))
	fields.Set(models.KeyURI, models.StringValue("lookup/service/forged"))

	renewed, err := s.Update(context.Background(), stored.URI(), fields)
	require.NoError(t, err)

	assert.Equal(t, stored.URI(), renewed.URI(), "uri is immutable across renewals")
	assert.Equal(t, models.StateRenewed, renewed.State())

	v, ok := renewed.Get("service-version")
	require.True(t, ok)
	assert.Equal(t, "2.1", v.Canonical())

	expires, ok := renewed.Expires()
	require.True(t, ok)
	assert.Equal(t, clock.Now().Add(10*time.Minute), expires)
}

func TestUpdateMigratesIdentityReservation(t *testing.T) {
	s, _ := newTestStore(t, docstore.NewMemoryStore(), nil)
	ctx := context.Background()

	stored, err := s.Publish(ctx, serviceRecord("alpha"))
	require.NoError(t, err)

	fields := models.NewRecord()
	fields.Set("service-name", models.StringValue("beta"))
	fields.Set("service-locator", models.StringsValue([]string{"tcp://beta:8090"}))

	_, err = s.Update(ctx, stored.URI(), fields)
	require.NoError(t, err)

	// The reservation moved with the record: registering the new identity
	// afresh collides with the renamed record.
	_, err = s.Publish(ctx, serviceRecord("beta"))
	assert.ErrorIs(t, err, ErrDuplicateEntry)

	// The previous identity is free again.
	again, err := s.Publish(ctx, serviceRecord("alpha"))
	require.NoError(t, err)
	assert.NotEqual(t, stored.URI(), again.URI())
}

func TestUpdateRejectsCollidingIdentity(t *testing.T) {
	s, _ := newTestStore(t, docstore.NewMemoryStore(), nil)
	ctx := context.Background()

	alpha, err := s.Publish(ctx, serviceRecord("alpha"))
	require.NoError(t, err)

	_, err = s.Publish(ctx, serviceRecord("beta"))
	require.NoError(t, err)

	fields := models.NewRecord()
	fields.Set("service-name", models.StringValue("beta"))
	fields.Set("service-locator", models.StringsValue([]string{"tcp://beta:8090"}))

	_, err = s.Update(ctx, alpha.URI(), fields)
	require.ErrorIs(t, err, ErrDuplicateEntry)

	// The failed renewal left no partial state behind.
	current, err := s.GetByURI(ctx, alpha.URI())
	require.NoError(t, err)
	require.NotNil(t, current)
	assert.Equal(t, models.StateRegistered, current.State())

	v, ok := current.Get("service-name")
	require.True(t, ok)
	assert.Equal(t, "alpha", v.Canonical())
}

func TestUpdateReclaimsStaleIdentityHolder(t *testing.T) {
	s, clock := newTestStore(t, docstore.NewMemoryStore(), nil)
	ctx := context.Background()

	_, err := s.Publish(ctx, serviceRecord("beta"))
	require.NoError(t, err)

	durable := serviceRecord("alpha")
	durable.Set(models.KeyTTL, models.StringValue("PT2H"))

	alpha, err := s.Publish(ctx, durable)
	require.NoError(t, err)

	// beta's lease lapses but the sweep has not reclaimed it.
	clock.Advance(11 * time.Minute)

	fields := models.NewRecord()
	fields.Set("service-name", models.StringValue("beta"))
	fields.Set("service-locator", models.StringsValue([]string{"tcp://beta:8090"}))

	renewed, err := s.Update(ctx, alpha.URI(), fields)
	require.NoError(t, err)
	assert.Equal(t, models.StateRenewed, renewed.State())
}

func TestUpdateUnknownURI(t *testing.T) {
	s, _ := newTestStore(t, docstore.NewMemoryStore(), nil)

	_, err := s.Update(context.Background(), "lookup/service/missing", nil)
	assert.ErrorIs(t, err, ErrRecordNotFound)
}

func TestUpdateExpiredRecordFails(t *testing.T) {
	s, clock := newTestStore(t, docstore.NewMemoryStore(), nil)

	stored, err := s.Publish(context.Background(), serviceRecord("web"))
	require.NoError(t, err)

	clock.Advance(11 * time.Minute)

	_, err = s.Update(context.Background(), stored.URI(), nil)
	assert.ErrorIs(t, err, ErrRecordNotFound)
}

func TestBulkRenewAllOrNothing(t *testing.T) {
	s, clock := newTestStore(t, docstore.NewMemoryStore(), nil)

	web, err := s.Publish(context.Background(), serviceRecord("web"))
	require.NoError(t, err)

	db, err := s.Publish(context.Background(), serviceRecord("db"))
	require.NoError(t, err)

	clock.Advance(2 * time.Minute)

	count, err := s.BulkRenew(context.Background(), map[string]*models.Record{
		web.URI():                nil,
		db.URI():                 nil,
		"lookup/service/missing": nil,
	})
	require.ErrorIs(t, err, ErrStoreFailure)
	assert.Zero(t, count)

	// Nothing was renewed: the original leases still stand.
	current, err := s.GetByURI(context.Background(), web.URI())
	require.NoError(t, err)
	assert.Equal(t, models.StateRegistered, current.State())
}

func TestBulkRenewAppliesAll(t *testing.T) {
	s, clock := newTestStore(t, docstore.NewMemoryStore(), nil)

	web, err := s.Publish(context.Background(), serviceRecord("web"))
	require.NoError(t, err)

	db, err := s.Publish(context.Background(), serviceRecord("db"))
	require.NoError(t, err)

	clock.Advance(2 * time.Minute)

	count, err := s.BulkRenew(context.Background(), map[string]*models.Record{
		web.URI(): nil,
		db.URI():  nil,
	})
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	for _, uri := range []string{web.URI(), db.URI()} {
		current, err := s.GetByURI(context.Background(), uri)
		require.NoError(t, err)
		assert.Equal(t, models.StateRenewed, current.State())

		expires, ok := current.Expires()
		require.True(t, ok)
		assert.Equal(t, clock.Now().Add(10*time.Minute), expires)
	}
}

func TestDeleteFreesIdentity(t *testing.T) {
	s, _ := newTestStore(t, docstore.NewMemoryStore(), nil)

	stored, err := s.Publish(context.Background(), serviceRecord("web"))
	require.NoError(t, err)

	deleted, err := s.Delete(context.Background(), stored.URI())
	require.NoError(t, err)
	assert.Equal(t, models.StateDeleted, deleted.State())

	gone, err := s.GetByURI(context.Background(), stored.URI())
	require.NoError(t, err)
	assert.Nil(t, gone)

	// The identity is free again immediately.
	again, err := s.Publish(context.Background(), serviceRecord("web"))
	require.NoError(t, err)
	assert.NotEqual(t, stored.URI(), again.URI())
}

func TestDeleteUnknownURI(t *testing.T) {
	s, _ := newTestStore(t, docstore.NewMemoryStore(), nil)

	_, err := s.Delete(context.Background(), "lookup/service/missing")
	assert.ErrorIs(t, err, ErrRecordNotFound)
}

func TestDeleteExpiredIsIdempotent(t *testing.T) {
	s, clock := newTestStore(t, docstore.NewMemoryStore(), nil)

	expired, err := s.Publish(context.Background(), serviceRecord("web"))
	require.NoError(t, err)

	longLived := serviceRecord("db")
	longLived.Set(models.KeyTTL, models.StringValue("PT2H"))

	survivor, err := s.Publish(context.Background(), longLived)
	require.NoError(t, err)

	clock.Advance(11 * time.Minute)

	removed, err := s.DeleteExpired(context.Background(), clock.Now())
	require.NoError(t, err)
	assert.Equal(t, 1, removed)

	removed, err = s.DeleteExpired(context.Background(), clock.Now())
	require.NoError(t, err)
	assert.Zero(t, removed, "second sweep with the same cutoff removes nothing")

	gone, err := s.GetByURI(context.Background(), expired.URI())
	require.NoError(t, err)
	assert.Nil(t, gone)

	kept, err := s.GetByURI(context.Background(), survivor.URI())
	require.NoError(t, err)
	require.NotNil(t, kept)

	// The swept identity is free for re-registration.
	_, err = s.Publish(context.Background(), serviceRecord("web"))
	assert.NoError(t, err)
}

func TestDeleteExpiredSkipsRenewedRecords(t *testing.T) {
	ctrl := gomock.NewController(t)
	db := docstore.NewMockService(ctrl)

	s, clock := newTestStore(t, db, nil)

	rec := serviceRecord("web")
	rec.SetURI("lookup/service/abc")
	rec.SetExpires(clock.Now().Add(-time.Minute))

	cutoff := clock.Now()

	db.EXPECT().RangeScan(gomock.Any(), time.Time{}, cutoff).Return([]*models.Record{rec}, nil)
	// Renewed between scan and removal: the store reports it as untouched.
	db.EXPECT().RemoveIfExpired(gomock.Any(), "lookup/service/abc", cutoff).Return(nil, nil)

	removed, err := s.DeleteExpired(context.Background(), cutoff)
	require.NoError(t, err)
	assert.Zero(t, removed)
}

func TestStoreFailuresAreWrapped(t *testing.T) {
	ctrl := gomock.NewController(t)
	db := docstore.NewMockService(ctrl)

	s, _ := newTestStore(t, db, nil)
	boom := errors.New("backend unavailable")

	db.EXPECT().Get(gomock.Any(), "lookup/service/x").Return(nil, boom)

	_, err := s.GetByURI(context.Background(), "lookup/service/x")
	require.ErrorIs(t, err, ErrStoreFailure)
	assert.Contains(t, err.Error(), "backend unavailable")

	db.EXPECT().Insert(gomock.Any(), gomock.Any(), gomock.Any()).Return(boom)

	_, err = s.Publish(context.Background(), serviceRecord("web"))
	assert.ErrorIs(t, err, ErrStoreFailure)
}

func TestIdentityQuerySkipsReservedFields(t *testing.T) {
	rec := serviceRecord("web")
	rec.SetURI("lookup/service/abc")
	rec.SetState(models.StateRegistered)
	rec.SetExpires(time.Now())

	q := IdentityQuery(rec)
	require.Equal(t, models.OperatorAll, q.Operator())

	for _, c := range q.Constraints() {
		assert.False(t, models.IsReservedKey(c.Key), "reserved key %q leaked into identity", c.Key)
	}

	// type participates in identity; ttl, uri, state, expires do not.
	keys := make([]string, 0, q.Len())
	for _, c := range q.Constraints() {
		keys = append(keys, c.Key)
	}

	assert.ElementsMatch(t, []string{models.KeyType, "service-name", "service-locator"}, keys)
}

func TestIdentityKeyIsOrderInsensitive(t *testing.T) {
	a := serviceRecord("web")

	b := models.NewRecord()
	b.Set("service-locator", models.StringsValue([]string{"tcp://web:8090"}))
	b.Set(models.KeyTTL, models.StringValue("PT30M"))
	b.Set("service-name", models.StringValue("web"))
	b.Set(models.KeyType, models.StringValue(models.TypeService))

	assert.Equal(t, IdentityKey(a), IdentityKey(b))
}

type recordingNotifier struct {
	mu   sync.Mutex
	seen []*models.Record
}

func (n *recordingNotifier) Publish(_ context.Context, rec *models.Record) {
	n.mu.Lock()
	defer n.mu.Unlock()

	n.seen = append(n.seen, rec)
}

func (n *recordingNotifier) states() []string {
	n.mu.Lock()
	defer n.mu.Unlock()

	out := make([]string, 0, len(n.seen))
	for _, rec := range n.seen {
		out = append(out, rec.State())
	}

	return out
}

func TestWritesNotifySubscriptions(t *testing.T) {
	notifier := &recordingNotifier{}
	s, _ := newTestStore(t, docstore.NewMemoryStore(), notifier)

	stored, err := s.Publish(context.Background(), serviceRecord("web"))
	require.NoError(t, err)

	_, err = s.Update(context.Background(), stored.URI(), nil)
	require.NoError(t, err)

	assert.Equal(t, []string{models.StateRegistered, models.StateRenewed}, notifier.states())
}

func TestRegistrationLifecycleEndToEnd(t *testing.T) {
	s, clock := newTestStore(t, docstore.NewMemoryStore(), nil)
	ctx := context.Background()

	// Register, look back up, renew, expire, re-register under the same
	// identity; every step observes the state left by the previous one.
	stored, err := s.Publish(ctx, serviceRecord("web"))
	require.NoError(t, err)

	found, err := s.GetByURI(ctx, stored.URI())
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.Equal(t, models.StateRegistered, found.State())

	clock.Advance(5 * time.Minute)

	renewed, err := s.Update(ctx, stored.URI(), nil)
	require.NoError(t, err)
	assert.True(t, renewed.IsLive(clock.Now()))

	clock.Advance(11 * time.Minute)

	removed, err := s.DeleteExpired(ctx, clock.Now())
	require.NoError(t, err)
	assert.Equal(t, 1, removed)

	reborn, err := s.Publish(ctx, serviceRecord("web"))
	require.NoError(t, err)
	assert.NotEqual(t, stored.URI(), reborn.URI())

	window, err := s.FindInTimeRange(ctx, clock.Now(), clock.Now().Add(time.Hour))
	require.NoError(t, err)
	require.Len(t, window, 1)
	assert.Equal(t, reborn.URI(), window[0].URI())
}
