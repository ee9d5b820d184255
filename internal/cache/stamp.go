package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"time"

	"karaoke/internal/fileutil"
)

// headDigestBytes bounds how much of the source file feeds the digest.
// Hashing full-length videos on every cache check would dominate runtime;
// size + mtime cover the remainder of the identity.
const headDigestBytes = 4 << 20

// Stamp records the identity of the source file and the stage parameters an
// artifact was produced from. An artifact is reused only when a matching
// stamp sits next to it, so stale or partially written outputs from
// interrupted runs are never silently trusted.
type Stamp struct {
	Source        string    `json:"source"`
	SourceSize    int64     `json:"source_size"`
	SourceModTime time.Time `json:"source_mod_time"`
	SourceDigest  string    `json:"source_digest"`
	ParamsDigest  string    `json:"params_digest"`
	CreatedAt     time.Time `json:"created_at"`
}

// StampPath returns the sidecar stamp location for an artifact.
func StampPath(artifact string) string {
	return artifact + ".stamp"
}

// Write records a stamp for artifact derived from source with the given
// stage parameters. Call only after the artifact is fully written.
func Write(artifact, source string, params map[string]string) error {
	stamp, err := buildStamp(source, params)
	if err != nil {
		return err
	}
	data, err := json.MarshalIndent(stamp, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal stamp: %w", err)
	}
	if err := os.WriteFile(StampPath(artifact), data, 0o644); err != nil {
		return fmt.Errorf("write stamp: %w", err)
	}
	return nil
}

// Fresh reports whether artifact can be reused for source with the given
// stage parameters: the artifact must be a non-empty file and its stamp must
// match the source identity and parameter digest.
func Fresh(artifact, source string, params map[string]string) bool {
	if !fileutil.ExistsNonEmpty(artifact) {
		return false
	}
	data, err := os.ReadFile(StampPath(artifact))
	if err != nil {
		return false
	}
	var recorded Stamp
	if err := json.Unmarshal(data, &recorded); err != nil {
		return false
	}
	current, err := buildStamp(source, params)
	if err != nil {
		return false
	}
	return recorded.SourceSize == current.SourceSize &&
		recorded.SourceModTime.Equal(current.SourceModTime) &&
		recorded.SourceDigest == current.SourceDigest &&
		recorded.ParamsDigest == current.ParamsDigest
}

// Invalidate removes the stamp for an artifact, forcing recomputation.
func Invalidate(artifact string) error {
	err := os.Remove(StampPath(artifact))
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove stamp: %w", err)
	}
	return nil
}

func buildStamp(source string, params map[string]string) (Stamp, error) {
	info, err := os.Stat(source)
	if err != nil {
		return Stamp{}, fmt.Errorf("stat source: %w", err)
	}
	digest, err := headDigest(source)
	if err != nil {
		return Stamp{}, err
	}
	return Stamp{
		Source:        source,
		SourceSize:    info.Size(),
		SourceModTime: info.ModTime().UTC().Truncate(time.Second),
		SourceDigest:  digest,
		ParamsDigest:  paramsDigest(params),
		CreatedAt:     time.Now().UTC(),
	}, nil
}

func headDigest(path string) (string, error) {
	file, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("open source: %w", err)
	}
	defer file.Close()

	hasher := sha256.New()
	if _, err := io.CopyN(hasher, file, headDigestBytes); err != nil && err != io.EOF {
		return "", fmt.Errorf("hash source: %w", err)
	}
	return hex.EncodeToString(hasher.Sum(nil)), nil
}

func paramsDigest(params map[string]string) string {
	keys := make([]string, 0, len(params))
	for key := range params {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	var builder strings.Builder
	for _, key := range keys {
		builder.WriteString(key)
		builder.WriteByte('=')
		builder.WriteString(params[key])
		builder.WriteByte('\n')
	}
	sum := sha256.Sum256([]byte(builder.String()))
	return hex.EncodeToString(sum[:])
}
