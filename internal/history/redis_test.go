package history

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redismock/v9"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"medsearch-service/internal/models"
)

func TestRedisStore_RoundTripWithMiniredis(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	store := NewRedisStore(rdb, "")
	ctx := context.Background()

	for _, i := range []int{2, 7, 1, 5} {
		require.NoError(t, store.Insert(ctx, query(i, models.CategoryUnified)))
	}

	got, err := store.FindSorted(ctx, 3)
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, []string{"q-007", "q-005", "q-002"}, []string{got[0].ID, got[1].ID, got[2].ID})
	assert.True(t, got[0].Timestamp.Equal(query(7, models.CategoryUnified).Timestamp))
	assert.Equal(t, models.CategoryUnified, got[0].Category)

	require.NoError(t, store.Ping(ctx))
	assert.Equal(t, "redis", store.Name())
}

func TestRedisStore_SkipsForeignMembers(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	ctx := context.Background()
	_, err := mr.ZAdd("medication_searches", 1e18, "not-json")
	require.NoError(t, err)

	store := NewRedisStore(rdb, "medication_searches")
	require.NoError(t, store.Insert(ctx, query(1, models.CategoryWeb)))

	got, err := store.FindSorted(ctx, 10)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "q-001", got[0].ID)
}

func TestRedisStore_CommandsWithRedismock(t *testing.T) {
	rdb, mock := redismock.NewClientMock()
	store := NewRedisStore(rdb, "history")
	ctx := context.Background()

	q := query(3, models.CategoryCatalog)
	data, err := json.Marshal(q)
	require.NoError(t, err)

	mock.ExpectZAdd("history", redis.Z{Score: float64(q.Timestamp.UnixMicro()), Member: string(data)}).SetVal(1)
	mock.ExpectZRevRange("history", 0, 49).SetVal([]string{string(data)})

	require.NoError(t, store.Insert(ctx, q))
	got, err := store.FindSorted(ctx, 50)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, q.ID, got[0].ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRedisStore_Errors(t *testing.T) {
	rdb, mock := redismock.NewClientMock()
	store := NewRedisStore(rdb, "history")
	ctx := context.Background()

	q := query(1, models.CategoryCatalog)
	data, _ := json.Marshal(q)
	mock.ExpectZAdd("history", redis.Z{Score: float64(q.Timestamp.UnixMicro()), Member: string(data)}).
		SetErr(errors.New("READONLY You can't write against a read only replica"))
	mock.ExpectZRevRange("history", 0, 9).SetErr(errors.New("connection reset"))

	assert.ErrorContains(t, store.Insert(ctx, q), "READONLY")
	_, err := store.FindSorted(ctx, 10)
	assert.ErrorContains(t, err, "connection reset")
}
