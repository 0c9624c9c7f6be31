package cache

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/holiman/uint256"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mrz1836/dnawallet/internal/chain"
)

const ethAddr = "0x742d35Cc6634C0532925a3b844Bc454e4438f44e"

func TestBalanceCache_PutGet(t *testing.T) {
	c := New()
	c.Put(chain.TypeETH, &chain.Balance{Address: ethAddr, Ticker: "ETH", Value: uint256.NewInt(1500), Decimals: 18})

	e, ok, age := c.Get(chain.TypeETH, ethAddr, "ETH")
	require.True(t, ok)
	assert.Equal(t, "1500", e.Value)
	assert.Equal(t, int32(18), e.Decimals)
	assert.Less(t, age, time.Minute)

	_, ok, _ = c.Get(chain.TypeCell, ethAddr, "ETH")
	assert.False(t, ok, "chain is part of the key")
	_, ok, _ = c.Get(chain.TypeETH, ethAddr, "USDC")
	assert.False(t, ok, "ticker is part of the key")

	c.Put(chain.TypeETH, nil)
	c.Put(chain.TypeETH, &chain.Balance{Address: "x"})
	assert.Equal(t, 1, c.Len())
}

func TestBalanceCache_Prune(t *testing.T) {
	c := New()
	c.Entries[Key(chain.TypeCell, "old", "CELL")] = Entry{UpdatedAt: time.Now().Add(-48 * time.Hour)}
	c.Entries[Key(chain.TypeCell, "new", "CELL")] = Entry{UpdatedAt: time.Now()}

	assert.Equal(t, 1, c.Prune(DefaultMaxAge))
	assert.Equal(t, 1, c.Len())
}

func TestFileStorage(t *testing.T) {
	dir := t.TempDir()
	storage := NewFileStorage(filepath.Join(dir, "nested", "balances.json"))

	t.Run("missing file is empty", func(t *testing.T) {
		c, err := storage.Load()
		require.NoError(t, err)
		assert.Equal(t, 0, c.Len())
	})

	t.Run("save and load", func(t *testing.T) {
		c := New()
		c.Put(chain.TypeCell, &chain.Balance{Address: "cellAddr", Ticker: "CELL", Value: uint256.NewInt(7), Decimals: 18})
		require.NoError(t, storage.Save(c))

		info, err := os.Stat(storage.Path())
		require.NoError(t, err)
		assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())

		loaded, err := storage.Load()
		require.NoError(t, err)
		e, ok, _ := loaded.Get(chain.TypeCell, "cellAddr", "CELL")
		require.True(t, ok)
		assert.Equal(t, "7", e.Value)
	})

	t.Run("corrupt file is moved aside", func(t *testing.T) {
		require.NoError(t, os.WriteFile(storage.Path(), []byte("{not json"), 0o600))

		c, err := storage.Load()
		require.ErrorIs(t, err, ErrCorruptCache)
		assert.Equal(t, 0, c.Len())

		matches, err := filepath.Glob(storage.Path() + ".corrupt.*")
		require.NoError(t, err)
		assert.Len(t, matches, 1)
	})
}
