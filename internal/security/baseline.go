package security

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/artagon/artagon-common/internal/maven"
	"github.com/artagon/artagon-common/internal/utils/logger"
)

// Format selects the checksum baseline layout.
type Format string

const (
	FormatCSV        Format = "csv"
	FormatProperties Format = "properties"

	// NoKey marks a trust record without a usable signature.
	NoKey = "noKey"
)

// ParseFormat validates a --checksum-format value.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case FormatCSV, FormatProperties:
		return f, nil
	default:
		return "", configError("invalid checksum format %q: use csv or properties", s)
	}
}

// ChecksumRecord is one artifact digest.
type ChecksumRecord struct {
	Coord  maven.Coordinate
	Digest string
}

// TrustRecord is the signing key recorded for group:artifact.
type TrustRecord struct {
	Key         string
	Fingerprint string // uppercase hex, or NoKey
	Flag        string
}

// Line renders the trust list entry.
func (t TrustRecord) Line() string {
	if t.Fingerprint == "" || t.Fingerprint == NoKey {
		return t.Key + " = " + NoKey
	}
	line := t.Key + " = 0x" + t.Fingerprint
	if t.Flag != "" {
		line += ", " + t.Flag
	}
	return line
}

// Baseline is the freshly computed checksum and trust content of one project.
// Records must be added in coordinate order; rendering does not re-sort.
type Baseline struct {
	Name      string
	Format    Format
	Checksums []ChecksumRecord
	Trust     []TrustRecord

	trustIndex map[string]int
}

// NewBaseline starts an empty baseline.
func NewBaseline(name string, format Format) *Baseline {
	return &Baseline{Name: name, Format: format, trustIndex: map[string]int{}}
}

// AddChecksum appends a digest row.
func (b *Baseline) AddChecksum(c maven.Coordinate, digest string) {
	b.Checksums = append(b.Checksums, ChecksumRecord{Coord: c, Digest: digest})
}

// AddTrust records the key for rec.Key. The first fingerprint seen for a key
// wins; a later fingerprint replaces an earlier noKey.
func (b *Baseline) AddTrust(rec TrustRecord) {
	if rec.Fingerprint == "" {
		rec.Fingerprint = NoKey
	}
	if b.trustIndex == nil {
		b.trustIndex = map[string]int{}
	}
	i, ok := b.trustIndex[rec.Key]
	if !ok {
		b.trustIndex[rec.Key] = len(b.Trust)
		b.Trust = append(b.Trust, rec)
		return
	}
	existing := b.Trust[i]
	switch {
	case existing.Fingerprint == NoKey && rec.Fingerprint != NoKey:
		b.Trust[i] = rec
	case rec.Fingerprint != NoKey && existing.Fingerprint != rec.Fingerprint:
		logger.Logger().Warnf("%s is signed by more than one key (%s, %s); keeping %s",
			rec.Key, existing.Fingerprint, rec.Fingerprint, existing.Fingerprint)
	}
}

// Files are the paths a baseline occupies under a security directory.
type Files struct {
	Checksums string
	Trust     string
}

// FilesIn returns the baseline file paths under dir.
func (b *Baseline) FilesIn(dir string) Files {
	ext := ".csv"
	if b.Format == FormatProperties {
		ext = ".properties"
	}
	return Files{
		Checksums: filepath.Join(dir, b.Name+"-checksums"+ext),
		Trust:     filepath.Join(dir, b.Name+"-pgp-trusted-keys.list"),
	}
}

// RenderChecksums produces the checksum file content.
func (b *Baseline) RenderChecksums() []byte {
	var buf bytes.Buffer
	fmt.Fprintf(&buf, "# Dependency checksums for %s\n", b.Name)
	fmt.Fprintf(&buf, "# Generated by 'artagon security update'; do not edit.\n")
	if b.Format == FormatProperties {
		fmt.Fprintf(&buf, "# Format: group:artifact:version=sha256\n")
		for _, r := range b.Checksums {
			key := r.Coord.GAV()
			if r.Coord.Classifier != "" {
				key += ":" + r.Coord.Classifier
			}
			fmt.Fprintf(&buf, "%s=%s\n", key, r.Digest)
		}
		return buf.Bytes()
	}
	fmt.Fprintf(&buf, "# Format: filename,sha256\n")
	for _, r := range b.Checksums {
		fmt.Fprintf(&buf, "%s,%s\n", r.Coord.FileName(), r.Digest)
	}
	return buf.Bytes()
}

// RenderTrust produces the trusted key list content.
func (b *Baseline) RenderTrust() []byte {
	var buf bytes.Buffer
	fmt.Fprintf(&buf, "# PGP signing keys for %s dependencies\n", b.Name)
	fmt.Fprintf(&buf, "# Generated by 'artagon security update'; do not edit.\n")
	fmt.Fprintf(&buf, "# Format: group:artifact = 0x<fingerprint>[, flag] | noKey\n")
	for _, t := range b.Trust {
		fmt.Fprintln(&buf, t.Line())
	}
	return buf.Bytes()
}

func (b *Baseline) contents(dir string) ([]string, map[string][]byte) {
	files := b.FilesIn(dir)
	return []string{files.Checksums, files.Trust}, map[string][]byte{
		files.Checksums: b.RenderChecksums(),
		files.Trust:     b.RenderTrust(),
	}
}

var companionAlgorithms = []Algorithm{SHA256, SHA512}

// Update replaces both baseline files in dir, then their .sha256 and .sha512
// companions. It returns every path written.
func (b *Baseline) Update(dir string) ([]string, error) {
	log := logger.Logger()
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("creating %s: %w", dir, err)
	}

	order, content := b.contents(dir)
	var written []string
	for _, path := range order {
		if err := writeFileAtomic(path, content[path]); err != nil {
			return written, err
		}
		written = append(written, path)
		log.Infof("wrote %s", path)
	}
	for _, path := range order {
		for _, algo := range companionAlgorithms {
			digest, err := DigestBytes(content[path], algo)
			if err != nil {
				return written, err
			}
			companion := path + "." + string(algo)
			if err := writeFileAtomic(companion, []byte(digest+"\n")); err != nil {
				return written, err
			}
			written = append(written, companion)
		}
	}
	return written, nil
}

// Verify compares the committed files in dir with the computed content byte
// for byte, and checks that each companion digest matches the committed file.
// Any difference is a *MismatchError naming every stale file.
func (b *Baseline) Verify(dir string) error {
	order, content := b.contents(dir)
	var stale []StaleFile
	for _, path := range order {
		committed, err := os.ReadFile(path)
		switch {
		case errors.Is(err, os.ErrNotExist):
			stale = append(stale, StaleFile{Path: path, Reason: "missing"})
			continue
		case err != nil:
			return fmt.Errorf("reading %s: %w", path, err)
		}
		if !bytes.Equal(committed, content[path]) {
			stale = append(stale, StaleFile{Path: path, Reason: "content differs from the resolved dependency tree"})
		}

		for _, algo := range companionAlgorithms {
			companion := path + "." + string(algo)
			want, err := DigestBytes(committed, algo)
			if err != nil {
				return err
			}
			got, err := os.ReadFile(companion)
			if errors.Is(err, os.ErrNotExist) {
				stale = append(stale, StaleFile{Path: companion, Reason: "missing"})
				continue
			}
			if err != nil {
				return fmt.Errorf("reading %s: %w", companion, err)
			}
			if strings.TrimSpace(string(got)) != want {
				stale = append(stale, StaleFile{Path: companion, Reason: "digest does not match " + filepath.Base(path)})
			}
		}
	}
	if len(stale) > 0 {
		return &MismatchError{Stale: stale}
	}
	return nil
}

func writeFileAtomic(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*")
	if err != nil {
		return fmt.Errorf("creating temp file for %s: %w", path, err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("writing %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	if err := os.Chmod(tmpName, 0644); err != nil {
		return fmt.Errorf("setting mode on %s: %w", path, err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("replacing %s: %w", path, err)
	}
	return nil
}
