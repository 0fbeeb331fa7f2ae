package postgres

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJournalPack(t *testing.T) {
	j, err := NewJournal(nil, 64)
	require.NoError(t, err)

	t.Run("small snapshot stays plain", func(t *testing.T) {
		algo, plain, packed := j.pack([]byte(`{"status":"draft"}`))
		assert.Equal(t, CompressionNone, algo)
		assert.JSONEq(t, `{"status":"draft"}`, string(plain))
		assert.Nil(t, packed)
	})

	t.Run("large snapshot is compressed and round-trips", func(t *testing.T) {
		big := []byte(`{"notes":"` + string(bytes.Repeat([]byte("line picked; "), 200)) + `"}`)

		algo, plain, packed := j.pack(big)
		require.Equal(t, CompressionZstd, algo)
		assert.Nil(t, plain)
		assert.Less(t, len(packed), len(big))

		restored, err := j.decoder.DecodeAll(packed, nil)
		require.NoError(t, err)
		assert.Equal(t, big, restored)
	})
}

func TestRequestFingerprint(t *testing.T) {
	a := RequestFingerprint([]byte(`{"lines":{}}`))

	assert.Len(t, a, 64)
	assert.Equal(t, a, RequestFingerprint([]byte(`{"lines":{}}`)))
	assert.NotEqual(t, a, RequestFingerprint([]byte(`{"lines":{"x":1}}`)))
}
