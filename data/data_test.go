package data

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestToID(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Pikachu", "pikachu"},
		{"Stealth Rock", "stealthrock"},
		{"Flabébé", "flabebe"},
		{"Tauros-Paldea-Blaze", "taurospaldeablaze"},
		{"Mr. Mime", "mrmime"},
		{"move: Electric Terrain", "moveelectricterrain"},
		{"", ""},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, ToID(tt.in))
			assert.Equal(t, ToID(tt.in), ToID(ToID(tt.in)))
		})
	}
}

func TestLoadStore(t *testing.T) {
	store, err := LoadStore("testdata/pokedex.json", "testdata/moves.json")
	require.NoError(t, err)

	species, moves := store.Len()
	assert.Equal(t, 3, species)
	assert.Equal(t, 5, moves)

	p, ok := store.Species("Flabebe")
	require.True(t, ok, "accent-insensitive lookup")
	assert.Equal(t, "Flabébé", p.Name)

	g, ok := store.Species("garchomp")
	require.True(t, ok)
	assert.Equal(t, []string{"Dragon", "Ground"}, g.Types)
	assert.Equal(t, 600, g.BST())

	tb, ok := store.Move("Thunderbolt")
	require.True(t, ok)
	assert.Equal(t, Special, tb.Category)
	assert.Equal(t, 90, tb.BasePower)
	assert.Equal(t, 100, tb.Accuracy)

	sd, ok := store.Move("Swords Dance")
	require.True(t, ok)
	assert.Equal(t, 0, sd.Accuracy, "accuracy true decodes as never-miss")
	assert.Equal(t, map[string]int{"atk": 2}, sd.Boosts)

	rec, _ := store.Move("recover")
	assert.True(t, rec.Heal)

	tw, _ := store.Move("Thunder Wave")
	assert.Equal(t, "par", tw.Status)

	qa, _ := store.Move("quickattack")
	assert.Equal(t, 1, qa.Priority)

	_, ok = store.Move("Hyper Beam")
	assert.False(t, ok)
	_, ok = store.Species("Missingno")
	assert.False(t, ok)
}

func TestLoadStore_MissingFile(t *testing.T) {
	_, err := LoadStore("testdata/nope.json", "testdata/moves.json")
	assert.Error(t, err)
}
