package storage_test

import (
	"testing"

	"github.com/mautops/pulse-analytics/internal/config"
	"github.com/mautops/pulse-analytics/internal/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewMinioUploader_Disabled(t *testing.T) {
	u, err := storage.NewMinioUploader(config.UploadConfig{})
	require.NoError(t, err)
	assert.Nil(t, u)
}

func TestNewMinioUploader_Configured(t *testing.T) {
	u, err := storage.NewMinioUploader(config.UploadConfig{
		Endpoint:  "localhost:9000",
		AccessKey: "minio",
		SecretKey: "minio123",
		Prefix:    "/analysis/",
	})
	require.NoError(t, err)
	require.NotNil(t, u)
	assert.Equal(t, "analysis/predictions_20260302.csv", u.ObjectName("/tmp/results/predictions_20260302.csv"))
}

func TestObjectName(t *testing.T) {
	assert.Equal(t, "a.json", storage.ObjectName("", "results/a.json"))
	assert.Equal(t, "x/y/a.json", storage.ObjectName("x/y", "a.json"))
}

func TestContentType(t *testing.T) {
	assert.Equal(t, "application/json", storage.ContentType("r.json"))
	assert.Equal(t, "text/csv", storage.ContentType("r.CSV"))
	assert.Equal(t, "application/yaml", storage.ContentType("r.yaml"))
	assert.Equal(t, "application/octet-stream", storage.ContentType("r.unknownext"))
}
