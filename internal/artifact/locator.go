package artifact

import (
	"errors"
	"io/fs"
	"log"
	"os"
	"path/filepath"
	"strings"
)

// ErrNotFound means no resolution strategy produced an existing file.
// Callers must treat it as fatal and dump the raw download payload for
// operator diagnosis.
var ErrNotFound = errors.New("downloaded artifact not found on disk")

// Field names different provider generations used for the local path.
var pathFields = []string{"file_path", "path", "local_path", "download_path", "file", "name"}

// Resolve recovers the absolute on-disk path of a downloaded file from
// a download response whose shape is not contractually fixed. The
// strategies run in order, first hit wins: direct field probe,
// recursive structural search, directory sweep, raw-content flush.
func Resolve(data any, dir, filename string) (string, error) {
	ext := strings.ToLower(filepath.Ext(filename))

	if m, ok := data.(map[string]any); ok {
		for _, key := range pathFields {
			val, ok := m[key].(string)
			if !ok || val == "" {
				continue
			}
			if p := existing(val, dir); p != "" {
				return p, nil
			}
		}
	}

	if p := searchPayload(data, dir, ext); p != "" {
		return p, nil
	}

	if p := sweepDir(dir, filename, ext); p != "" {
		return p, nil
	}

	if p, err := flushBody(data, dir, filename); p != "" || err != nil {
		return p, err
	}

	return "", ErrNotFound
}

// existing resolves a candidate value to an absolute path of an
// existing file, trying it relative to dir first, then as given.
func existing(val, dir string) string {
	for _, candidate := range []string{filepath.Join(dir, val), val} {
		if st, err := os.Stat(candidate); err == nil && !st.IsDir() {
			if abs, err := filepath.Abs(candidate); err == nil {
				return abs
			}
		}
	}
	return ""
}

// searchPayload walks nested maps and slices depth-first looking for
// any string that ends with the expected extension and resolves to an
// existing file. Some provider versions nest the path, e.g.
// {"files":[{"file_path": ...}]}.
func searchPayload(obj any, dir, ext string) string {
	switch v := obj.(type) {
	case map[string]any:
		for _, item := range v {
			if s, ok := item.(string); ok {
				if strings.HasSuffix(strings.ToLower(s), ext) {
					if p := existing(s, dir); p != "" {
						return p
					}
				}
				continue
			}
			if found := searchPayload(item, dir, ext); found != "" {
				return found
			}
		}
	case []any:
		for _, item := range v {
			if found := searchPayload(item, dir, ext); found != "" {
				return found
			}
		}
	}
	return ""
}

// sweepDir recursively walks dir preferring an exact filename match,
// otherwise accepting the first file carrying the expected extension.
func sweepDir(dir, filename, ext string) string {
	log.Printf("🔎 Looking recursively under %s for '%s' or any %s file", dir, filename, ext)
	var fallback string
	found := ""
	_ = filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return nil
		}
		if d.Name() == filename {
			found = path
			return fs.SkipAll
		}
		if fallback == "" && strings.HasSuffix(strings.ToLower(d.Name()), ext) {
			fallback = path
		}
		return nil
	})
	if found == "" {
		found = fallback
	}
	if found == "" {
		return ""
	}
	abs, err := filepath.Abs(found)
	if err != nil {
		return ""
	}
	return abs
}

// flushBody writes inline response content to dir/filename when the
// provider returned the raw bytes instead of a path.
func flushBody(data any, dir, filename string) (string, error) {
	m, ok := data.(map[string]any)
	if !ok {
		return "", nil
	}
	body, found := m["body"]
	if !found {
		body, found = m["content"]
	}
	if !found || body == nil {
		return "", nil
	}

	var raw []byte
	switch b := body.(type) {
	case []byte:
		raw = b
	case string:
		if b == "" {
			return "", nil
		}
		raw = []byte(b)
	default:
		return "", nil
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}
	out := filepath.Join(dir, filename)
	if err := os.WriteFile(out, raw, 0o644); err != nil {
		return "", err
	}
	return filepath.Abs(out)
}
