package types

import (
	"fmt"
	"strconv"
	"strings"
)

// Descriptor keys recognized in an app's metadata file
const (
	MetaID                = "id"
	MetaName              = "name"
	MetaSummary           = "summary"
	MetaDescription       = "description"
	MetaVersion           = "version"
	MetaDownloadSize      = "download_size"
	MetaDiskSize          = "disk_size"
	MetaFileName          = "file_name"
	MetaExecutable        = "executable"
	MetaArguments         = "arguments"
	MetaPlatform          = "platform"
	MetaOS                = "os"
	MetaWebsite           = "website"
	MetaImageURL          = "image_url"
	MetaImageLandscapeURL = "image_landscape_url"
	MetaDownloadURL       = "download_url"
	MetaSHA256            = "sha256"
	MetaRequiresNetwork   = "requires_network"
)

// AppMetadata is the flat key/value descriptor of a catalog entry.
// It is read-only once loaded.
type AppMetadata map[string]string

// Get returns the trimmed value of key and whether it was non-empty
func (m AppMetadata) Get(key string) (string, bool) {
	v, ok := m[key]
	if !ok {
		return "", false
	}
	v = strings.TrimSpace(v)
	return v, v != ""
}

// GetOr returns the value of key or fallback when absent
func (m AppMetadata) GetOr(key, fallback string) string {
	if v, ok := m.Get(key); ok {
		return v
	}
	return fallback
}

// Require returns the value of key or an InvalidMetadata error
func (m AppMetadata) Require(key string) (string, error) {
	v, ok := m.Get(key)
	if !ok {
		return "", NewError(CodeInvalidMetadata, fmt.Sprintf("missing required field %q", key), ErrInvalidMetadata)
	}
	return v, nil
}

// RequireSize parses key as an unsigned byte count
func (m AppMetadata) RequireSize(key string) (uint64, error) {
	v, err := m.Require(key)
	if err != nil {
		return 0, err
	}
	n, err := strconv.ParseUint(v, 10, 64)
	if err != nil {
		return 0, NewError(CodeInvalidMetadata, fmt.Sprintf("field %q is not a byte count: %q", key, v), ErrInvalidMetadata)
	}
	return n, nil
}

// Bool reports whether key holds a true-ish value
func (m AppMetadata) Bool(key string) bool {
	v, ok := m.Get(key)
	if !ok {
		return false
	}
	b, err := strconv.ParseBool(v)
	return err == nil && b
}

// Platform returns the platform tag, falling back to def
func (m AppMetadata) Platform(def string) string {
	if v, ok := m.Get(MetaPlatform); ok {
		return v
	}
	return m.GetOr(MetaOS, def)
}

// InstallFields are the descriptor values that drive disk layout
type InstallFields struct {
	DownloadSize uint64
	DiskSize     uint64
	Version      string
	FileName     string
}

// InstallFields validates and extracts the fields install depends on.
// None of them are ever defaulted.
func (m AppMetadata) InstallFields() (InstallFields, error) {
	var f InstallFields
	var err error

	if f.DownloadSize, err = m.RequireSize(MetaDownloadSize); err != nil {
		return f, err
	}
	if f.DiskSize, err = m.RequireSize(MetaDiskSize); err != nil {
		return f, err
	}
	if f.Version, err = m.Require(MetaVersion); err != nil {
		return f, err
	}
	if f.FileName, err = m.Require(MetaFileName); err != nil {
		return f, err
	}
	if strings.ContainsAny(f.FileName, `/\`) || f.FileName == ".." {
		return f, NewError(CodeInvalidMetadata, fmt.Sprintf("file name %q must not contain path separators", f.FileName), ErrInvalidMetadata)
	}
	return f, nil
}
