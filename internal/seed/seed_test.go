package seed

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cybermarket/internal/model"
	"cybermarket/internal/repository"
)

func TestLoad(t *testing.T) {
	f, err := Load(filepath.Join("testdata", "founders.yaml"))
	require.NoError(t, err)

	require.Len(t, f.Merchants, 2)
	assert.Equal(t, "acme", f.Merchants[0].Storename)
	assert.Equal(t, []string{"WELCOME00001", "WELCOME00002"}, f.Merchants[0].Invitations)
	assert.Empty(t, f.Merchants[1].Invitations)
}

func TestParse_Rejects(t *testing.T) {
	cases := map[string]string{
		"unknown key":     "merchants:\n  - storename: a\n    email: a@x\n    password: p\n    owner: me\n",
		"missing email":   "merchants:\n  - storename: a\n    password: p\n",
		"duplicate store": "merchants:\n  - {storename: a, email: a@x, password: p}\n  - {storename: a, email: b@x, password: p}\n",
	}
	for name, doc := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := Parse([]byte(doc))
			assert.Error(t, err)
		})
	}
}

func TestParse_Empty(t *testing.T) {
	f, err := Parse(nil)
	require.NoError(t, err)
	assert.Empty(t, f.Merchants)
}

func TestApply_Idempotent(t *testing.T) {
	store, err := repository.NewSQLiteStore(filepath.Join(t.TempDir(), "seed.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	ctx := context.Background()

	f, err := Load(filepath.Join("testdata", "founders.yaml"))
	require.NoError(t, err)

	res, err := Apply(ctx, store, f)
	require.NoError(t, err)
	assert.Equal(t, Result{Created: 2, Invitations: 2}, res)

	res, err = Apply(ctx, store, f)
	require.NoError(t, err)
	assert.Equal(t, Result{Skipped: 2}, res)

	merchants, err := store.ListMerchants(ctx)
	require.NoError(t, err)
	assert.Len(t, merchants, 2)

	ok, err := store.ConsumeInvitation(ctx, "acme", "WELCOME00001")
	require.NoError(t, err)
	assert.True(t, ok)

	// the founder can invite a second-generation store
	next := &model.Merchant{Storename: "gen2", Email: "gen2@x.com", Password: "pw"}
	require.NoError(t, store.CreateMerchant(ctx, next, &model.Invitation{Issuer: "acme", Code: "WELCOME00002"}))
}
