package storage

import (
	"bytes"
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalStorage_RoundTrip(t *testing.T) {
	ctx := context.Background()
	s, err := NewLocalStorage(Config{BasePath: t.TempDir(), BaseURL: "https://cdn.example.com/files/"})
	require.NoError(t, err)

	key := TicketQRKey("0b6f7c1e-8d0e-4f7e-9a51-2b7f3f0d9a11")
	require.NoError(t, s.Save(ctx, key, bytes.NewReader([]byte("png")), "image/png"))

	ok, err := s.Exists(ctx, key)
	require.NoError(t, err)
	assert.True(t, ok)

	rc, err := s.Get(ctx, key)
	require.NoError(t, err)
	data, _ := io.ReadAll(rc)
	rc.Close()
	assert.Equal(t, "png", string(data))

	url, err := s.URL(ctx, key, time.Hour)
	require.NoError(t, err)
	assert.Equal(t, "https://cdn.example.com/files/"+key, url)

	require.NoError(t, s.Delete(ctx, key))
	_, err = s.Get(ctx, key)
	assert.True(t, errors.Is(err, ErrObjectNotFound))
}

func TestLocalStorage_KeysStayInsideBase(t *testing.T) {
	base := t.TempDir()
	s, err := NewLocalStorage(Config{BasePath: base})
	require.NoError(t, err)

	full, err := s.fullPath("../../etc/passwd")
	require.NoError(t, err)
	assert.Contains(t, full, base)

	_, err = s.fullPath("/")
	assert.Error(t, err)
}
