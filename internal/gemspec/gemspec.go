// Package gemspec decodes uploaded gem archives into structured metadata.
//
// A gem is an outer (uncompressed) tar archive holding three streams:
//
//	metadata.gz       — gzip-compressed YAML gemspec
//	data.tar.gz       — gzip-compressed tar of the package payload
//	checksums.yaml.gz — gzip-compressed YAML of SHA-256 sums (optional,
//	                    verified when present)
//
// Parse is a pure transform over bytes: any structural deviation — missing
// stream, corrupt compression, checksum mismatch, malformed YAML, invalid
// name/version/dependency — is reported as an error wrapping ErrMalformed,
// never a panic. Nothing here touches storage.
package gemspec

import (
	"archive/tar"
	"bytes"
	"compress/gzip"
	"errors"
	"fmt"
	"io"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/gem-registry/gem-registry/pkg/checksum"
)

// ErrMalformed is wrapped by every parse failure so callers can classify the
// whole family with errors.Is.
var ErrMalformed = errors.New("malformed gem")

const (
	// MaxGemSize caps how much of an upload the parser will read (64MB)
	MaxGemSize = 64 * 1024 * 1024

	metadataEntry  = "metadata.gz"
	dataEntry      = "data.tar.gz"
	checksumsEntry = "checksums.yaml.gz"

	// DefaultDependencyKind applies when a gemspec omits the dependency type
	DefaultDependencyKind = "runtime"
)

// Dependency is one parsed dependency edge
type Dependency struct {
	Name         string
	Requirements string
	Kind         string // "runtime" or "development"
}

// Metadata is the structured result of parsing a gem archive
type Metadata struct {
	Name         string
	Number       string
	Platform     string
	Summary      string
	Description  string
	Homepage     string
	Dependencies []Dependency
}

// Parse decodes and validates a gem archive
func Parse(data []byte) (*Metadata, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: empty upload", ErrMalformed)
	}
	if len(data) > MaxGemSize {
		return nil, fmt.Errorf("%w: gem exceeds maximum size of %d bytes", ErrMalformed, MaxGemSize)
	}

	streams, err := readOuterTar(data)
	if err != nil {
		return nil, err
	}

	metadataGz, ok := streams[metadataEntry]
	if !ok {
		return nil, fmt.Errorf("%w: missing %s", ErrMalformed, metadataEntry)
	}
	dataGz, ok := streams[dataEntry]
	if !ok {
		return nil, fmt.Errorf("%w: missing %s", ErrMalformed, dataEntry)
	}

	if sums, ok := streams[checksumsEntry]; ok {
		if err := verifyChecksums(sums, metadataGz, dataGz); err != nil {
			return nil, err
		}
	}

	// The payload is not unpacked here, but its compression and tar framing
	// must be intact before anything is persisted.
	if err := verifyPayload(dataGz); err != nil {
		return nil, err
	}

	metadataYAML, err := gunzip(metadataGz)
	if err != nil {
		return nil, fmt.Errorf("%w: corrupt %s: %v", ErrMalformed, metadataEntry, err)
	}

	meta, err := decodeMetadata(metadataYAML)
	if err != nil {
		return nil, err
	}

	if err := meta.validate(); err != nil {
		return nil, err
	}

	return meta, nil
}

// readOuterTar collects the top-level entries of the outer archive
func readOuterTar(data []byte) (map[string][]byte, error) {
	streams := make(map[string][]byte)

	tr := tar.NewReader(bytes.NewReader(data))
	for {
		header, err := tr.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%w: invalid outer tar: %v", ErrMalformed, err)
		}

		content, err := io.ReadAll(io.LimitReader(tr, MaxGemSize+1))
		if err != nil {
			return nil, fmt.Errorf("%w: unreadable entry %s: %v", ErrMalformed, header.Name, err)
		}
		if len(content) > MaxGemSize {
			return nil, fmt.Errorf("%w: entry %s exceeds maximum size", ErrMalformed, header.Name)
		}
		streams[header.Name] = content
	}

	if len(streams) == 0 {
		return nil, fmt.Errorf("%w: archive is empty", ErrMalformed)
	}

	return streams, nil
}

func gunzip(data []byte) ([]byte, error) {
	gz, err := gzip.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	defer gz.Close()

	out, err := io.ReadAll(io.LimitReader(gz, MaxGemSize+1))
	if err != nil {
		return nil, err
	}
	if len(out) > MaxGemSize {
		return nil, fmt.Errorf("decompressed stream exceeds maximum size")
	}
	return out, nil
}

// verifyPayload walks the payload tar to the end so corrupt compression or
// framing is caught before any rows are written
func verifyPayload(dataGz []byte) error {
	gz, err := gzip.NewReader(bytes.NewReader(dataGz))
	if err != nil {
		return fmt.Errorf("%w: corrupt %s: %v", ErrMalformed, dataEntry, err)
	}
	defer gz.Close()

	tr := tar.NewReader(io.LimitReader(gz, MaxGemSize+1))
	for {
		_, err := tr.Next()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return fmt.Errorf("%w: corrupt payload tar: %v", ErrMalformed, err)
		}
		if _, err := io.Copy(io.Discard, tr); err != nil {
			return fmt.Errorf("%w: corrupt payload tar: %v", ErrMalformed, err)
		}
	}
}

// checksumsDoc mirrors the checksums.yaml.gz layout: algorithm → entry → hex digest
type checksumsDoc struct {
	SHA256 map[string]string `yaml:"SHA256"`
}

func verifyChecksums(sumsGz, metadataGz, dataGz []byte) error {
	sumsYAML, err := gunzip(sumsGz)
	if err != nil {
		return fmt.Errorf("%w: corrupt %s: %v", ErrMalformed, checksumsEntry, err)
	}

	var doc checksumsDoc
	if err := yaml.Unmarshal(sumsYAML, &doc); err != nil {
		return fmt.Errorf("%w: invalid checksums document: %v", ErrMalformed, err)
	}

	expected := map[string][]byte{
		metadataEntry: metadataGz,
		dataEntry:     dataGz,
	}
	for entry, content := range expected {
		want, ok := doc.SHA256[entry]
		if !ok {
			continue
		}
		match, err := checksum.VerifySHA256(bytes.NewReader(content), want)
		if err != nil {
			return fmt.Errorf("%w: checksum verification failed for %s: %v", ErrMalformed, entry, err)
		}
		if !match {
			return fmt.Errorf("%w: checksum mismatch for %s", ErrMalformed, entry)
		}
	}

	return nil
}

func (m *Metadata) validate() error {
	if m.Name == "" {
		return fmt.Errorf("%w: gemspec has no name", ErrMalformed)
	}
	if !ValidName(m.Name) {
		return fmt.Errorf("%w: invalid gem name %q", ErrMalformed, m.Name)
	}
	if m.Number == "" {
		return fmt.Errorf("%w: gemspec has no version", ErrMalformed)
	}
	if !ValidNumber(m.Number) {
		return fmt.Errorf("%w: invalid version number %q", ErrMalformed, m.Number)
	}

	// A single unparsable dependency fails the whole gem: a malformed
	// constraint would make the dependency graph unresolvable downstream.
	for _, dep := range m.Dependencies {
		if !ValidName(dep.Name) {
			return fmt.Errorf("%w: invalid dependency name %q", ErrMalformed, dep.Name)
		}
		if dep.Kind != "runtime" && dep.Kind != "development" {
			return fmt.Errorf("%w: invalid dependency kind %q for %s", ErrMalformed, dep.Kind, dep.Name)
		}
		if err := ValidateRequirements(dep.Requirements); err != nil {
			return fmt.Errorf("%w: dependency %s: %v", ErrMalformed, dep.Name, err)
		}
	}

	return nil
}

// DescriptionOrSummary returns the long description, falling back to the summary
func (m *Metadata) DescriptionOrSummary() string {
	if strings.TrimSpace(m.Description) != "" {
		return m.Description
	}
	return m.Summary
}
