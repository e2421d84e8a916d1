package maintenance

import (
	"archive/zip"
	"bytes"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/peternagy/consultadmin/internal/types"
)

func sampleBackup() types.Backup {
	id := primitive.NewObjectID()
	created := primitive.NewDateTimeFromTime(time.Date(2025, 1, 10, 8, 30, 0, 0, time.UTC))
	return types.Backup{
		Database:  "consultadmin",
		CreatedAt: time.Date(2025, 1, 15, 9, 0, 0, 0, time.UTC),
		Collections: map[string][]bson.M{
			"leads": {
				{"_id": id, "name": "Asha", "status": "new", "score": int32(7), "createdAt": created},
				{"_id": primitive.NewObjectID(), "name": "Ben", "status": "converted", "score": int32(9), "createdAt": created},
			},
			"b2bleads": {
				{"_id": primitive.NewObjectID(), "company": "Northbridge", "expectedValue": 12500.5, "seats": int64(40)},
			},
			"destinations": {},
		},
	}
}

func TestArchiveRoundTrip(t *testing.T) {
	in := sampleBackup()

	var buf bytes.Buffer
	manifest, err := WriteArchive(&buf, in)
	require.NoError(t, err)

	assert.Equal(t, ArchiveVersion, manifest.Version)
	assert.Equal(t, []types.ArchiveManifestCollection{
		{Name: "b2bleads", DocCount: 1},
		{Name: "destinations", DocCount: 0},
		{Name: "leads", DocCount: 2},
	}, manifest.Collections)

	out, err := ReadArchive(bytes.NewReader(buf.Bytes()), int64(buf.Len()))
	require.NoError(t, err)

	assert.Equal(t, in.Database, out.Database)
	assert.True(t, in.CreatedAt.Equal(out.CreatedAt))
	assert.Equal(t, in.DocumentCounts(), out.DocumentCounts())
	assert.Equal(t, in.Collections["leads"], out.Collections["leads"])
	assert.Equal(t, in.Collections["b2bleads"], out.Collections["b2bleads"])
	assert.Empty(t, out.Collections["destinations"])
}

func TestArchivePreservesTypes(t *testing.T) {
	in := sampleBackup()

	var buf bytes.Buffer
	_, err := WriteArchive(&buf, in)
	require.NoError(t, err)
	out, err := ReadArchive(bytes.NewReader(buf.Bytes()), int64(buf.Len()))
	require.NoError(t, err)

	lead := out.Collections["leads"][0]
	assert.IsType(t, primitive.ObjectID{}, lead["_id"])
	assert.IsType(t, primitive.DateTime(0), lead["createdAt"])
	assert.IsType(t, int32(0), lead["score"])

	b2b := out.Collections["b2bleads"][0]
	assert.IsType(t, float64(0), b2b["expectedValue"])
	assert.IsType(t, int64(0), b2b["seats"])
}

func TestArchiveRoundTripsLargeDocument(t *testing.T) {
	// 13MB of binary grows past 17MB once base64'd into Extended JSON.
	payload := bytes.Repeat([]byte{0xAB, 0x01, 0x7F}, 13*1024*1024/3)
	in := types.Backup{
		Database:  "consultadmin",
		CreatedAt: time.Date(2025, 1, 15, 9, 0, 0, 0, time.UTC),
		Collections: map[string][]bson.M{
			"attachments": {
				{"_id": "brochure", "data": primitive.Binary{Subtype: 0x00, Data: payload}},
				{"_id": "small", "data": primitive.Binary{Data: []byte("ok")}},
			},
		},
	}

	var buf bytes.Buffer
	_, err := WriteArchive(&buf, in)
	require.NoError(t, err)

	out, err := ReadArchive(bytes.NewReader(buf.Bytes()), int64(buf.Len()))
	require.NoError(t, err)

	docs := out.Collections["attachments"]
	require.Len(t, docs, 2)
	big, ok := docs[0]["data"].(primitive.Binary)
	require.True(t, ok)
	assert.Equal(t, len(payload), len(big.Data))
	assert.True(t, bytes.Equal(payload, big.Data))
	assert.Equal(t, "small", docs[1]["_id"])
}

func TestReadArchiveRejectsBadInput(t *testing.T) {
	t.Run("not a zip", func(t *testing.T) {
		data := []byte("definitely not an archive")
		_, err := ReadArchive(bytes.NewReader(data), int64(len(data)))
		assert.Error(t, err)
	})

	t.Run("missing manifest", func(t *testing.T) {
		data := zipWith(t, map[string]string{"collections/leads.ndjson": ""})
		_, err := ReadArchive(bytes.NewReader(data), int64(len(data)))
		assert.ErrorContains(t, err, "manifest")
	})

	t.Run("unsupported version", func(t *testing.T) {
		data := zipWith(t, map[string]string{
			"manifest.json": `{"version":"2.0","database":"x","collections":[]}`,
		})
		_, err := ReadArchive(bytes.NewReader(data), int64(len(data)))
		assert.ErrorContains(t, err, "unsupported archive version")
	})

	t.Run("count mismatch", func(t *testing.T) {
		data := zipWith(t, map[string]string{
			"manifest.json":            `{"version":"1.0","database":"x","collections":[{"name":"leads","docCount":2}]}`,
			"collections/leads.ndjson": `{"name":"only one"}` + "\n",
		})
		_, err := ReadArchive(bytes.NewReader(data), int64(len(data)))
		assert.ErrorContains(t, err, "manifest says 2")
	})

	t.Run("missing collection file", func(t *testing.T) {
		data := zipWith(t, map[string]string{
			"manifest.json": `{"version":"1.0","database":"x","collections":[{"name":"leads","docCount":0}]}`,
		})
		_, err := ReadArchive(bytes.NewReader(data), int64(len(data)))
		assert.ErrorContains(t, err, "missing documents for leads")
	})
}

func TestSaveAndLoadArchive(t *testing.T) {
	path := filepath.Join(t.TempDir(), "backup.zip")
	in := sampleBackup()

	_, err := SaveArchive(path, in)
	require.NoError(t, err)

	out, err := LoadArchive(path)
	require.NoError(t, err)
	assert.Equal(t, in.DocumentCounts(), out.DocumentCounts())

	// existing files are never overwritten
	_, err = SaveArchive(path, in)
	assert.Error(t, err)
}

func zipWith(t *testing.T, entries map[string]string) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for name, body := range entries {
		w, err := zw.Create(name)
		require.NoError(t, err)
		_, err = w.Write([]byte(body))
		require.NoError(t, err)
	}
	require.NoError(t, zw.Close())
	return buf.Bytes()
}
