package memstore

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/kartikbazzad/firedoc/store"
)

func seed(t *testing.T, s *Store) store.CollectionRef {
	t.Helper()
	ctx := context.Background()
	col := s.Collection("users")
	docs := []struct {
		id   string
		data map[string]interface{}
	}{
		{"1", map[string]interface{}{"name": "alice", "age": 25, "role": "user", "tags": []interface{}{"go", "db"}}},
		{"2", map[string]interface{}{"name": "bob", "age": 30, "role": "admin", "tags": []interface{}{"go"}}},
		{"3", map[string]interface{}{"name": "carol", "age": 35, "role": "user", "tags": []interface{}{"infra"}}},
		{"4", map[string]interface{}{"name": "dave", "age": 40, "role": "admin", "tags": []interface{}{"db"}}},
	}
	for _, d := range docs {
		require.NoError(t, col.Doc(d.id).Set(ctx, d.data, store.SetOptions{}))
	}
	return col
}

func run(t *testing.T, col store.CollectionRef, cs ...store.Constraint) []store.Snapshot {
	t.Helper()
	snaps, err := col.Query(cs).Run(context.Background())
	require.NoError(t, err)
	return snaps
}

func names(snaps []store.Snapshot) []string {
	out := make([]string, len(snaps))
	for i, s := range snaps {
		out[i] = s.Data()["name"].(string)
	}
	return out
}

func TestQueryOperators(t *testing.T) {
	col := seed(t, New())

	cases := []struct {
		op    string
		path  string
		value interface{}
		want  []string
	}{
		{"==", "role", "admin", []string{"bob", "dave"}},
		{"!=", "role", "admin", []string{"alice", "carol"}},
		{"<", "age", 30, []string{"alice"}},
		{"<=", "age", 30, []string{"alice", "bob"}},
		{">", "age", 35, []string{"dave"}},
		{">=", "age", 35, []string{"carol", "dave"}},
		{"array-contains", "tags", "go", []string{"alice", "bob"}},
		{"array-contains-any", "tags", []interface{}{"db", "infra"}, []string{"alice", "carol", "dave"}},
		{"in", "age", []interface{}{25, 40}, []string{"alice", "dave"}},
		{"not-in", "age", []interface{}{25, 40}, []string{"bob", "carol"}},
	}
	for _, tc := range cases {
		t.Run(fmt.Sprintf("%s %s", tc.path, tc.op), func(t *testing.T) {
			snaps := run(t, col, store.Constraint{
				Kind:  store.KindWhere,
				Path:  tc.path,
				Op:    tc.op,
				Value: tc.value,
			})
			require.Equal(t, tc.want, names(snaps))
		})
	}
}

func TestQueryMissingFieldNeverMatches(t *testing.T) {
	s := New()
	ctx := context.Background()
	col := s.Collection("users")
	require.NoError(t, col.Doc("1").Set(ctx, map[string]interface{}{"name": "alice"}, store.SetOptions{}))

	snaps := run(t, col, store.Constraint{Kind: store.KindWhere, Path: "age", Op: "!=", Value: 10})
	require.Empty(t, snaps)
}

func TestQueryOrderAndLimit(t *testing.T) {
	col := seed(t, New())

	desc := run(t, col,
		store.Constraint{Kind: store.KindOrderBy, Path: "age", Desc: true},
		store.Constraint{Kind: store.KindLimit, N: 2},
	)
	require.Equal(t, []string{"dave", "carol"}, names(desc))

	last := run(t, col,
		store.Constraint{Kind: store.KindOrderBy, Path: "age"},
		store.Constraint{Kind: store.KindLimitToLast, N: 2},
	)
	require.Equal(t, []string{"carol", "dave"}, names(last))
}

func TestQueryCompositeOrder(t *testing.T) {
	col := seed(t, New())

	snaps := run(t, col,
		store.Constraint{Kind: store.KindOrderBy, Path: "role"},
		store.Constraint{Kind: store.KindOrderBy, Path: "age", Desc: true},
	)
	require.Equal(t, []string{"dave", "bob", "carol", "alice"}, names(snaps))
}

func TestQueryOrderDropsDocumentsMissingTheField(t *testing.T) {
	s := New()
	ctx := context.Background()
	col := s.Collection("users")
	require.NoError(t, col.Doc("1").Set(ctx, map[string]interface{}{"name": "alice", "age": 25}, store.SetOptions{}))
	require.NoError(t, col.Doc("2").Set(ctx, map[string]interface{}{"name": "bob"}, store.SetOptions{}))

	snaps := run(t, col, store.Constraint{Kind: store.KindOrderBy, Path: "age"})
	require.Equal(t, []string{"alice"}, names(snaps))
}

func TestQueryValueCursors(t *testing.T) {
	col := seed(t, New())
	order := store.Constraint{Kind: store.KindOrderBy, Path: "age"}

	require.Equal(t, []string{"bob", "carol", "dave"},
		names(run(t, col, order, store.Constraint{Kind: store.KindStartAt, Values: []interface{}{30}})))
	require.Equal(t, []string{"carol", "dave"},
		names(run(t, col, order, store.Constraint{Kind: store.KindStartAfter, Values: []interface{}{30}})))
	require.Equal(t, []string{"alice", "bob"},
		names(run(t, col, order, store.Constraint{Kind: store.KindEndAt, Values: []interface{}{30}})))
	require.Equal(t, []string{"alice"},
		names(run(t, col, order, store.Constraint{Kind: store.KindEndBefore, Values: []interface{}{30}})))
}

func TestQuerySnapshotCursor(t *testing.T) {
	col := seed(t, New())
	order := store.Constraint{Kind: store.KindOrderBy, Path: "age"}

	page1 := run(t, col, order, store.Constraint{Kind: store.KindLimit, N: 2})
	require.Equal(t, []string{"alice", "bob"}, names(page1))

	page2 := run(t, col, order, store.Constraint{Kind: store.KindStartAfter, Anchor: page1[1]})
	require.Equal(t, []string{"carol", "dave"}, names(page2))
}

func TestSetMergeAllDeepMerges(t *testing.T) {
	s := New()
	ctx := context.Background()
	doc := s.Collection("users").Doc("1")

	require.NoError(t, doc.Set(ctx, map[string]interface{}{
		"name": "alice",
		"settings": map[string]interface{}{
			"theme": "light",
			"notifications": map[string]interface{}{"email": true},
		},
	}, store.SetOptions{}))

	require.NoError(t, doc.Set(ctx, map[string]interface{}{
		"settings": map[string]interface{}{
			"notifications": map[string]interface{}{"push": false},
		},
	}, store.SetOptions{MergeAll: true}))

	snap, err := doc.Get(ctx)
	require.NoError(t, err)
	settings := snap.Data()["settings"].(map[string]interface{})
	require.Equal(t, "light", settings["theme"])
	notifications := settings["notifications"].(map[string]interface{})
	require.Equal(t, true, notifications["email"])
	require.Equal(t, false, notifications["push"])
}

func TestSetMergeFieldsProjects(t *testing.T) {
	s := New()
	ctx := context.Background()
	doc := s.Collection("users").Doc("1")

	require.NoError(t, doc.Set(ctx, map[string]interface{}{"name": "alice", "role": "user"}, store.SetOptions{}))
	require.NoError(t, doc.Set(ctx, map[string]interface{}{
		"name": "alicia",
		"role": "admin",
	}, store.SetOptions{MergeFields: []string{"name"}}))

	snap, err := doc.Get(ctx)
	require.NoError(t, err)
	require.Equal(t, "alicia", snap.Data()["name"])
	require.Equal(t, "user", snap.Data()["role"])
}

func TestSetFullOverwrite(t *testing.T) {
	s := New()
	ctx := context.Background()
	doc := s.Collection("users").Doc("1")

	require.NoError(t, doc.Set(ctx, map[string]interface{}{"name": "alice", "role": "user"}, store.SetOptions{}))
	require.NoError(t, doc.Set(ctx, map[string]interface{}{"name": "alicia"}, store.SetOptions{}))

	snap, err := doc.Get(ctx)
	require.NoError(t, err)
	_, hasRole := snap.Data()["role"]
	require.False(t, hasRole, "full set replaces the whole document")
}

func TestServerTimestampOnSet(t *testing.T) {
	s := New()
	fixed := time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC)
	s.SetClock(func() time.Time { return fixed })
	ctx := context.Background()

	doc := s.Collection("users").Doc("1")
	require.NoError(t, doc.Set(ctx, map[string]interface{}{
		"name":      "alice",
		"createdAt": s.Sentinels().ServerTimestamp(),
	}, store.SetOptions{}))

	snap, err := doc.Get(ctx)
	require.NoError(t, err)
	require.Equal(t, fixed, snap.Data()["createdAt"])
}

func TestUpdateMissingDocumentIsNotFound(t *testing.T) {
	s := New()
	err := s.Collection("users").Doc("ghost").Update(context.Background(), map[string]interface{}{"x": 1})
	require.Error(t, err)
	require.Equal(t, codes.NotFound, status.Code(err))
}

func TestAddGeneratesDistinctIDs(t *testing.T) {
	s := New()
	ctx := context.Background()
	col := s.Collection("users")

	first, err := col.Add(ctx, map[string]interface{}{"n": 1})
	require.NoError(t, err)
	second, err := col.Add(ctx, map[string]interface{}{"n": 2})
	require.NoError(t, err)
	require.NotEqual(t, first.ID(), second.ID())
}

func TestNestedCollectionsAreIsolated(t *testing.T) {
	s := New()
	ctx := context.Background()

	users := s.Collection("users")
	alicePosts := users.Doc("alice").Collection("posts")
	bobPosts := users.Doc("bob").Collection("posts")

	require.NoError(t, alicePosts.Doc("p1").Set(ctx, map[string]interface{}{"title": "hi"}, store.SetOptions{}))

	snap, err := bobPosts.Doc("p1").Get(ctx)
	require.NoError(t, err)
	require.False(t, snap.Exists())

	snap, err = alicePosts.Doc("p1").Get(ctx)
	require.NoError(t, err)
	require.True(t, snap.Exists())
	require.Equal(t, "users/alice/posts/p1", snap.Ref().Path())
}

func TestSnapshotDataIsACopy(t *testing.T) {
	s := New()
	ctx := context.Background()
	doc := s.Collection("users").Doc("1")
	require.NoError(t, doc.Set(ctx, map[string]interface{}{"name": "alice"}, store.SetOptions{}))

	snap, err := doc.Get(ctx)
	require.NoError(t, err)
	snap.Data()["name"] = "mutated"

	again, err := doc.Get(ctx)
	require.NoError(t, err)
	require.Equal(t, "alice", again.Data()["name"])
}
