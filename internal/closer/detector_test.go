package closer

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFavorableSample_MatchingNibbles(t *testing.T) {
	// 0x77: "77" en hex, nibbles iguales
	hash := make([]byte, 32)
	hash[31] = 0x77
	assert.True(t, FavorableSample(hash))

	// 0x00 también califica
	assert.True(t, FavorableSample(make([]byte, 32)))
}

func TestFavorableSample_DifferentNibbles(t *testing.T) {
	hash := make([]byte, 32)
	hash[31] = 0x7A
	assert.False(t, FavorableSample(hash))

	hash[31] = 0x01
	assert.False(t, FavorableSample(hash))
}

func TestFavorableSample_OnlyLastByteMatters(t *testing.T) {
	hash := make([]byte, 32)
	for i := range hash {
		hash[i] = 0xAB // nibbles distintos en todo el hash
	}
	hash[31] = 0xCC
	assert.True(t, FavorableSample(hash))
}

func TestFavorableSample_ShortInputFailsClosed(t *testing.T) {
	assert.False(t, FavorableSample(nil))
	assert.False(t, FavorableSample([]byte{}))

	// un blockhash truncado nunca califica, aunque su último byte lo haría
	assert.False(t, FavorableSample([]byte{0x77}))
	assert.False(t, FavorableSample(make([]byte, 31)))
}

func TestFavorableSample_Distribution(t *testing.T) {
	// exactamente 16 de los 256 valores del último byte son favorables
	favorable := 0
	hash := make([]byte, 32)
	for b := 0; b < 256; b++ {
		hash[31] = byte(b)
		if FavorableSample(hash) {
			favorable++
		}
	}
	assert.Equal(t, 16, favorable)
}
