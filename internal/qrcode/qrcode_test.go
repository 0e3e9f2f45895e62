package qrcode

import (
	"encoding/base64"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDataURIEncodesValidGAN(t *testing.T) {
	uri, err := DataURI("7783320001001000")
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(uri, "data:image/png;base64,"))

	png, err := base64.StdEncoding.DecodeString(strings.TrimPrefix(uri, "data:image/png;base64,"))
	require.NoError(t, err)
	assert.Equal(t, "\x89PNG", string(png[:4]))
}

func TestDataURIRejectsInvalidGAN(t *testing.T) {
	for _, gan := range []string{"", "123", "7783-3200-0100-1000", "not a gan"} {
		_, err := DataURI(gan)
		assert.Error(t, err, gan)
	}
}

func TestDataURIIsDeterministic(t *testing.T) {
	first, err := DataURI("7783320001001000")
	require.NoError(t, err)
	second, err := DataURI("7783320001001000")
	require.NoError(t, err)
	assert.Equal(t, first, second)
}
