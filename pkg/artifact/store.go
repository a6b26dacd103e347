package artifact

import (
	"bytes"
	"encoding/binary"
	"io"
	"os"

	"github.com/cespare/xxhash/v2"
	gojson "github.com/goccy/go-json"
	"github.com/klauspost/compress/gzip"
	"go.uber.org/zap"

	"github.com/tabflow/tabflow/pkg/tferrors"
)

// File format: 4-byte magic, 8-byte little-endian xxhash64 of the
// compressed payload, then the gzip-compressed JSON body. The checksum
// turns silent corruption into a loud ErrorTypeArtifactCorrupt.
var fileMagic = []byte("TFA1")

// Store persists artifacts to a single file.
type Store struct {
	path   string
	logger *zap.Logger
}

// NewStore creates a file-backed artifact store
func NewStore(path string, logger *zap.Logger) *Store {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Store{path: path, logger: logger}
}

// Path returns the backing file path
func (s *Store) Path() string {
	return s.path
}

// Save validates and persists the artifact. The write goes through a
// temporary file and rename so a crash never leaves a half-written
// artifact behind.
func (s *Store) Save(a *Artifact) error {
	if err := a.Validate(); err != nil {
		return err
	}

	payload, err := gojson.Marshal(a)
	if err != nil {
		return tferrors.Wrap(err, tferrors.ErrorTypeInternal, "failed to marshal artifact")
	}

	var body bytes.Buffer
	zw := gzip.NewWriter(&body)
	if _, err := zw.Write(payload); err != nil {
		return tferrors.Wrap(err, tferrors.ErrorTypeInternal, "failed to compress artifact")
	}
	if err := zw.Close(); err != nil {
		return tferrors.Wrap(err, tferrors.ErrorTypeInternal, "failed to compress artifact")
	}

	var buf bytes.Buffer
	buf.Write(fileMagic)
	var sum [8]byte
	binary.LittleEndian.PutUint64(sum[:], xxhash.Sum64(body.Bytes()))
	buf.Write(sum[:])
	buf.Write(body.Bytes())

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, buf.Bytes(), 0o644); err != nil {
		return tferrors.Wrap(err, tferrors.ErrorTypeFile, "failed to write artifact file").
			WithDetail("path", s.path)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return tferrors.Wrap(err, tferrors.ErrorTypeFile, "failed to finalize artifact file").
			WithDetail("path", s.path)
	}

	s.logger.Info("artifact saved",
		zap.String("path", s.path),
		zap.Int("total_dim", a.TotalDim),
		zap.Int("numeric_features", len(a.NumericFeatureNames)),
		zap.Int("categorical_features", len(a.CategoricalFeatureNames)))

	return nil
}

// Load reads the artifact back and validates it. A missing file yields
// ErrorTypeArtifactNotFound; a bad magic, checksum mismatch, undecodable
// body, or structurally inconsistent artifact yields
// ErrorTypeArtifactCorrupt.
func (s *Store) Load() (*Artifact, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, tferrors.Wrap(err, tferrors.ErrorTypeArtifactNotFound, "no artifact found; run training first").
				WithDetail("path", s.path)
		}
		return nil, tferrors.Wrap(err, tferrors.ErrorTypeFile, "failed to read artifact file").
			WithDetail("path", s.path)
	}

	if len(data) < len(fileMagic)+8 || !bytes.Equal(data[:len(fileMagic)], fileMagic) {
		return nil, tferrors.New(tferrors.ErrorTypeArtifactCorrupt, "artifact file header is invalid").
			WithDetail("path", s.path)
	}

	want := binary.LittleEndian.Uint64(data[len(fileMagic) : len(fileMagic)+8])
	body := data[len(fileMagic)+8:]
	if xxhash.Sum64(body) != want {
		return nil, tferrors.New(tferrors.ErrorTypeArtifactCorrupt, "artifact checksum mismatch").
			WithDetail("path", s.path)
	}

	zr, err := gzip.NewReader(bytes.NewReader(body))
	if err != nil {
		return nil, tferrors.Wrap(err, tferrors.ErrorTypeArtifactCorrupt, "artifact body is not valid gzip").
			WithDetail("path", s.path)
	}
	payload, err := io.ReadAll(zr)
	if err != nil {
		return nil, tferrors.Wrap(err, tferrors.ErrorTypeArtifactCorrupt, "failed to decompress artifact").
			WithDetail("path", s.path)
	}
	if err := zr.Close(); err != nil {
		return nil, tferrors.Wrap(err, tferrors.ErrorTypeArtifactCorrupt, "failed to decompress artifact").
			WithDetail("path", s.path)
	}

	var a Artifact
	if err := gojson.Unmarshal(payload, &a); err != nil {
		return nil, tferrors.Wrap(err, tferrors.ErrorTypeArtifactCorrupt, "artifact payload undecodable").
			WithDetail("path", s.path)
	}

	if err := a.Validate(); err != nil {
		return nil, err
	}

	s.logger.Debug("artifact loaded",
		zap.String("path", s.path),
		zap.Int("total_dim", a.TotalDim))

	return &a, nil
}
