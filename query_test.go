package firedoc

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/kartikbazzad/firedoc/store"
	"github.com/kartikbazzad/firedoc/store/memstore"
)

func newTestCollection(t *testing.T, opts ...Option) (*Collection, *memstore.Store) {
	t.Helper()
	ms := memstore.New()
	col, err := New(ms, "users", opts...)
	require.NoError(t, err)
	return col, ms
}

func seedUsers(t *testing.T, col *Collection) {
	t.Helper()
	ctx := context.Background()
	users := []map[string]interface{}{
		{"name": "alice", "age": 25, "role": "user", "tags": []interface{}{"go", "db"}},
		{"name": "bob", "age": 30, "role": "admin", "tags": []interface{}{"go"}},
		{"name": "carol", "age": 35, "role": "user", "tags": []interface{}{"infra"}},
		{"name": "dave", "age": 40, "role": "admin", "tags": []interface{}{"db"}},
	}
	for i, u := range users {
		require.NoError(t, col.Set(ctx, u["name"].(string), u), "seed %d", i)
	}
}

func TestQueryChainReturnsNewBuilder(t *testing.T) {
	col, _ := newTestCollection(t)

	base := col.Query()
	withFilter := base.Where("age", OpGreater, 30)

	baseCompiled, err := base.Compile()
	require.NoError(t, err)
	require.Empty(t, baseCompiled, "base builder must stay unchanged")

	filtered, err := withFilter.Compile()
	require.NoError(t, err)
	require.Len(t, filtered, 1)
}

func TestQueryChainsDoNotAlias(t *testing.T) {
	col, _ := newTestCollection(t)

	base := col.Query().OrderBy("age", Ascending)
	left := base.Limit(1)
	right := base.Limit(2)

	leftCompiled, err := left.Compile()
	require.NoError(t, err)
	rightCompiled, err := right.Compile()
	require.NoError(t, err)

	require.Equal(t, 1, leftCompiled[1].N)
	require.Equal(t, 2, rightCompiled[1].N)
}

func TestCompilePreservesOrder(t *testing.T) {
	col, _ := newTestCollection(t)

	q := col.Query().
		Where("role", OpEqual, "admin").
		OrderBy("age", Descending).
		StartAfter(40).
		Limit(5)

	compiled, err := q.Compile()
	require.NoError(t, err)
	require.Len(t, compiled, 4)

	require.Equal(t, store.KindWhere, compiled[0].Kind)
	require.Equal(t, "role", compiled[0].Path)
	require.Equal(t, "==", compiled[0].Op)

	require.Equal(t, store.KindOrderBy, compiled[1].Kind)
	require.True(t, compiled[1].Desc)

	require.Equal(t, store.KindStartAfter, compiled[2].Kind)
	require.Equal(t, []interface{}{40}, compiled[2].Values)

	require.Equal(t, store.KindLimit, compiled[3].Kind)
	require.Equal(t, 5, compiled[3].N)
}

func TestCompileSnapshotAnchor(t *testing.T) {
	col, _ := newTestCollection(t)
	seedUsers(t, col)
	ctx := context.Background()

	snaps, err := col.Query().OrderBy("age", Ascending).Limit(1).Fetch(ctx)
	require.NoError(t, err)
	require.Len(t, snaps, 1)

	compiled, err := col.Query().OrderBy("age", Ascending).StartAfter(snaps[0]).Compile()
	require.NoError(t, err)
	require.Len(t, compiled, 2)
	require.NotNil(t, compiled[1].Anchor)
	require.Empty(t, compiled[1].Values)
}

func TestFetchAllProjectsData(t *testing.T) {
	col, _ := newTestCollection(t)
	seedUsers(t, col)
	ctx := context.Background()

	docs, err := col.Query().
		Where("role", OpEqual, "admin").
		OrderBy("age", Ascending).
		FetchAll(ctx)
	require.NoError(t, err)
	require.Len(t, docs, 2)
	require.Equal(t, "bob", docs[0]["name"])
	require.Equal(t, "dave", docs[1]["name"])
}

func TestFetchAllEmptyResult(t *testing.T) {
	col, _ := newTestCollection(t)
	seedUsers(t, col)

	docs, err := col.Query().Where("age", OpGreater, 100).FetchAll(context.Background())
	require.NoError(t, err)
	require.NotNil(t, docs)
	require.Empty(t, docs)
}

func TestQueryCursorPagination(t *testing.T) {
	col, _ := newTestCollection(t)
	seedUsers(t, col)
	ctx := context.Background()

	page1, err := col.Query().OrderBy("age", Ascending).Limit(2).Fetch(ctx)
	require.NoError(t, err)
	require.Len(t, page1, 2)
	require.Equal(t, "alice", page1[0].Data()["name"])
	require.Equal(t, "bob", page1[1].Data()["name"])

	page2, err := col.Query().
		OrderBy("age", Ascending).
		StartAfter(page1[1]).
		Limit(2).
		FetchAll(ctx)
	require.NoError(t, err)
	require.Len(t, page2, 2)
	require.Equal(t, "carol", page2[0]["name"])
	require.Equal(t, "dave", page2[1]["name"])
}

func TestQueryLimitToLast(t *testing.T) {
	col, _ := newTestCollection(t)
	seedUsers(t, col)

	docs, err := col.Query().OrderBy("age", Ascending).LimitToLast(2).FetchAll(context.Background())
	require.NoError(t, err)
	require.Len(t, docs, 2)
	require.Equal(t, "carol", docs[0]["name"])
	require.Equal(t, "dave", docs[1]["name"])
}
