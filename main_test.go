package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meinhoongagan/homeservice-app/config"
	"github.com/meinhoongagan/homeservice-app/store"
)

func TestOpenStore(t *testing.T) {
	docs, err := openStore(&config.Config{StoreDriver: "memory"}, store.NewBroadcaster(), false)
	require.NoError(t, err)
	assert.NotNil(t, docs)
}

func TestOpenStore_MigrateMemoryExits(t *testing.T) {
	docs, err := openStore(&config.Config{StoreDriver: "memory"}, store.NewBroadcaster(), true)
	require.NoError(t, err)
	assert.Nil(t, docs, "nothing to serve after a migrate run")
}

func TestOpenStore_Errors(t *testing.T) {
	_, err := openStore(&config.Config{StoreDriver: "postgres"}, store.NewBroadcaster(), false)
	assert.ErrorContains(t, err, "DATABASE_URL is not set")

	_, err = openStore(&config.Config{StoreDriver: "sqlite"}, store.NewBroadcaster(), false)
	assert.ErrorContains(t, err, "unknown STORE_DRIVER")
}
