package catalog

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/GriffinCanCode/librarian/internal/shared/types"
	"github.com/bytedance/sonic"
	"github.com/goccy/go-yaml"
	"github.com/pelletier/go-toml/v2"
)

// DescriptorNames are looked up in order inside an app directory
var DescriptorNames = []string{"metadata.yaml", "metadata.yml", "metadata.toml", "metadata.json"}

// WrittenDescriptorName is the descriptor the install pipeline leaves behind
const WrittenDescriptorName = "metadata.json"

var errNoDescriptor = errors.New("no metadata descriptor")

// findDescriptor returns the first descriptor present in dir
func findDescriptor(dir string) (string, error) {
	for _, name := range DescriptorNames {
		p := filepath.Join(dir, name)
		if info, err := os.Stat(p); err == nil && info.Mode().IsRegular() {
			return p, nil
		}
	}
	return "", errNoDescriptor
}

// ReadDescriptor parses the app descriptor in dir into a flat map
func ReadDescriptor(dir string) (types.AppMetadata, error) {
	path, err := findDescriptor(dir)
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", filepath.Base(path), err)
	}

	raw := make(map[string]interface{})
	switch filepath.Ext(path) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, &raw)
	case ".toml":
		err = toml.Unmarshal(data, &raw)
	default:
		err = sonic.Unmarshal(data, &raw)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", filepath.Base(path), err)
	}

	meta := make(types.AppMetadata, len(raw))
	for key, value := range raw {
		if s, ok := scalarString(value); ok {
			meta[key] = s
		}
	}
	return meta, nil
}

// WriteDescriptor stores meta as metadata.json in dir unless a descriptor
// is already there
func WriteDescriptor(dir string, meta types.AppMetadata) error {
	if _, err := findDescriptor(dir); err == nil {
		return nil
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}

	data, err := sonic.MarshalIndent(meta, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal descriptor: %w", err)
	}
	return os.WriteFile(filepath.Join(dir, WrittenDescriptorName), data, 0o644)
}

// scalarString flattens descriptor values. Nested tables and lists are not
// part of the descriptor format and are dropped.
func scalarString(v interface{}) (string, bool) {
	switch t := v.(type) {
	case nil:
		return "", false
	case string:
		return t, true
	case bool:
		return strconv.FormatBool(t), true
	case int:
		return strconv.Itoa(t), true
	case int64:
		return strconv.FormatInt(t, 10), true
	case uint64:
		return strconv.FormatUint(t, 10), true
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64), true
	case time.Time:
		return t.Format(time.RFC3339), true
	case fmt.Stringer:
		return t.String(), true
	default:
		return "", false
	}
}

func isNotExist(err error) bool {
	return errors.Is(err, fs.ErrNotExist) || errors.Is(err, errNoDescriptor)
}
