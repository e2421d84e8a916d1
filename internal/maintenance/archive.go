package maintenance

import (
	"archive/zip"
	"bufio"
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"go.mongodb.org/mongo-driver/bson"

	"github.com/peternagy/consultadmin/internal/types"
)

// ArchiveVersion is written into every manifest.
const ArchiveVersion = "1.0"

const (
	manifestName     = "manifest.json"
	collectionPrefix = "collections/"
)

func documentsPath(collection string) string {
	return collectionPrefix + collection + ".ndjson"
}

// WriteArchive writes b to w as a zip holding manifest.json and one
// canonical Extended JSON NDJSON file per collection.
func WriteArchive(w io.Writer, b types.Backup) (types.ArchiveManifest, error) {
	zw := zip.NewWriter(w)

	manifest := types.ArchiveManifest{
		Version:     ArchiveVersion,
		Database:    b.Database,
		CreatedAt:   b.CreatedAt,
		Collections: []types.ArchiveManifestCollection{},
	}

	names := make([]string, 0, len(b.Collections))
	for name := range b.Collections {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		docs := b.Collections[name]
		fw, err := zw.Create(documentsPath(name))
		if err != nil {
			return manifest, fmt.Errorf("failed to create archive entry for %s: %w", name, err)
		}
		bw := bufio.NewWriter(fw)
		for i, doc := range docs {
			line, err := bson.MarshalExtJSON(doc, true, false)
			if err != nil {
				return manifest, fmt.Errorf("failed to encode %s document %d: %w", name, i, err)
			}
			bw.Write(line)
			bw.WriteByte('\n')
		}
		if err := bw.Flush(); err != nil {
			return manifest, fmt.Errorf("failed to write %s documents: %w", name, err)
		}
		manifest.Collections = append(manifest.Collections, types.ArchiveManifestCollection{Name: name, DocCount: len(docs)})
	}

	mw, err := zw.Create(manifestName)
	if err != nil {
		return manifest, fmt.Errorf("failed to create manifest: %w", err)
	}
	enc := json.NewEncoder(mw)
	enc.SetIndent("", "  ")
	if err := enc.Encode(manifest); err != nil {
		return manifest, fmt.Errorf("failed to write manifest: %w", err)
	}

	if err := zw.Close(); err != nil {
		return manifest, fmt.Errorf("failed to finalize archive: %w", err)
	}
	return manifest, nil
}

// ReadArchive parses an archive written by WriteArchive. Document counts
// must match the manifest.
func ReadArchive(r io.ReaderAt, size int64) (types.Backup, error) {
	zr, err := zip.NewReader(r, size)
	if err != nil {
		return types.Backup{}, fmt.Errorf("failed to open archive: %w", err)
	}

	files := make(map[string]*zip.File, len(zr.File))
	for _, f := range zr.File {
		files[f.Name] = f
	}

	mf, ok := files[manifestName]
	if !ok {
		return types.Backup{}, errors.New("archive has no manifest.json")
	}
	var manifest types.ArchiveManifest
	if err := readJSON(mf, &manifest); err != nil {
		return types.Backup{}, fmt.Errorf("failed to read manifest: %w", err)
	}
	if !strings.HasPrefix(manifest.Version, "1.") {
		return types.Backup{}, fmt.Errorf("unsupported archive version %q", manifest.Version)
	}

	backup := types.Backup{
		Database:    manifest.Database,
		CreatedAt:   manifest.CreatedAt,
		Collections: make(map[string][]bson.M, len(manifest.Collections)),
	}
	for _, coll := range manifest.Collections {
		f, ok := files[documentsPath(coll.Name)]
		if !ok {
			return types.Backup{}, fmt.Errorf("archive is missing documents for %s", coll.Name)
		}
		docs, err := readDocuments(f)
		if err != nil {
			return types.Backup{}, fmt.Errorf("failed to read %s: %w", coll.Name, err)
		}
		if len(docs) != coll.DocCount {
			return types.Backup{}, fmt.Errorf("%s has %d documents, manifest says %d", coll.Name, len(docs), coll.DocCount)
		}
		backup.Collections[coll.Name] = docs
	}
	return backup, nil
}

// SaveArchive writes b to a new file at path.
func SaveArchive(path string, b types.Backup) (types.ArchiveManifest, error) {
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o600)
	if err != nil {
		return types.ArchiveManifest{}, fmt.Errorf("failed to create file: %w", err)
	}
	manifest, err := WriteArchive(f, b)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		os.Remove(path)
		return types.ArchiveManifest{}, err
	}
	return manifest, nil
}

// LoadArchive reads an archive file from path.
func LoadArchive(path string) (types.Backup, error) {
	f, err := os.Open(path)
	if err != nil {
		return types.Backup{}, fmt.Errorf("failed to open file: %w", err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return types.Backup{}, fmt.Errorf("failed to stat file: %w", err)
	}
	return ReadArchive(f, info.Size())
}

func readJSON(f *zip.File, v any) error {
	rc, err := f.Open()
	if err != nil {
		return err
	}
	defer rc.Close()
	return json.NewDecoder(rc).Decode(v)
}

func readDocuments(f *zip.File) ([]bson.M, error) {
	rc, err := f.Open()
	if err != nil {
		return nil, err
	}
	defer rc.Close()

	// Extended JSON of a 16MB document can be several times larger than the
	// BSON, so lines are read without a length cap.
	r := bufio.NewReaderSize(rc, 64*1024)
	docs := []bson.M{}
	for line := 1; ; line++ {
		raw, err := r.ReadBytes('\n')
		if err != nil && !errors.Is(err, io.EOF) {
			return nil, err
		}
		if raw = bytes.TrimRight(raw, "\r\n"); len(raw) > 0 {
			var doc bson.M
			if uerr := bson.UnmarshalExtJSON(raw, true, &doc); uerr != nil {
				return nil, fmt.Errorf("line %d: %w", line, uerr)
			}
			docs = append(docs, doc)
		}
		if err != nil {
			return docs, nil
		}
	}
}
