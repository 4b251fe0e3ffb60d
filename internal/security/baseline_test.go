package security

import (
	"bytes"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/artagon/artagon-common/internal/maven"
)

var (
	fooCoord = maven.Coordinate{Group: "com.example", Artifact: "foo", Packaging: "jar", Version: "1.0.0", Scope: "compile"}
	barCoord = maven.Coordinate{Group: "com.example", Artifact: "bar", Packaging: "jar", Version: "2.0.0", Scope: "compile"}
)

const (
	fooDigest = "2cf24dba5fb0a30e26e83b2ac5b9e29e1b161e5c1fa7425e73043362938b9824"
	barDigest = "fcde2b2edba56bf408601fb721fe9b5c338d10ee429ea04fae5511b68fbf8fb9"
)

func sampleBaseline(format Format) *Baseline {
	b := NewBaseline("demo", format)
	b.AddChecksum(barCoord, barDigest)
	b.AddChecksum(fooCoord, fooDigest)
	b.AddTrust(TrustRecord{Key: barCoord.Key(), Fingerprint: "0123456789ABCDEF0123456789ABCDEF01234567", Flag: "rotated"})
	b.AddTrust(TrustRecord{Key: fooCoord.Key(), Fingerprint: NoKey})
	return b
}

func dataRows(content []byte) []string {
	var rows []string
	for _, line := range strings.Split(string(content), "\n") {
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		rows = append(rows, line)
	}
	return rows
}

func TestParseFormat(t *testing.T) {
	for _, in := range []string{"csv", "CSV", " properties "} {
		if _, err := ParseFormat(in); err != nil {
			t.Errorf("ParseFormat(%q) failed: %v", in, err)
		}
	}
	if _, err := ParseFormat("xml"); !errors.Is(err, ErrConfig) {
		t.Errorf("expected ErrConfig, got %v", err)
	}
}

func TestRenderChecksumsCSV(t *testing.T) {
	content := sampleBaseline(FormatCSV).RenderChecksums()
	rows := dataRows(content)
	want := []string{"bar-2.0.0.jar," + barDigest, "foo-1.0.0.jar," + fooDigest}
	if strings.Join(rows, "\n") != strings.Join(want, "\n") {
		t.Errorf("rows = %v, want %v", rows, want)
	}
	if !bytes.HasPrefix(content, []byte("#")) {
		t.Error("CSV must start with header comments")
	}
}

func TestRenderChecksumsProperties(t *testing.T) {
	b := sampleBaseline(FormatProperties)
	b.AddChecksum(maven.Coordinate{Group: "io.netty", Artifact: "epoll", Packaging: "jar", Classifier: "linux-x86_64", Version: "4.1"}, "aa")
	rows := dataRows(b.RenderChecksums())
	want := []string{
		"com.example:bar:2.0.0=" + barDigest,
		"com.example:foo:1.0.0=" + fooDigest,
		"io.netty:epoll:4.1:linux-x86_64=aa",
	}
	if strings.Join(rows, "\n") != strings.Join(want, "\n") {
		t.Errorf("rows = %v, want %v", rows, want)
	}
}

func TestRenderTrust(t *testing.T) {
	rows := dataRows(sampleBaseline(FormatCSV).RenderTrust())
	want := []string{
		"com.example:bar = 0x0123456789ABCDEF0123456789ABCDEF01234567, rotated",
		"com.example:foo = noKey",
	}
	if strings.Join(rows, "\n") != strings.Join(want, "\n") {
		t.Errorf("rows = %v, want %v", rows, want)
	}
}

func TestAddTrustKeepsOneRecordPerKey(t *testing.T) {
	b := NewBaseline("demo", FormatCSV)
	b.AddTrust(TrustRecord{Key: "com.example:foo", Fingerprint: NoKey})
	b.AddTrust(TrustRecord{Key: "com.example:foo", Fingerprint: "AAAA"})
	b.AddTrust(TrustRecord{Key: "com.example:foo", Fingerprint: "BBBB"})
	b.AddTrust(TrustRecord{Key: "com.example:foo", Fingerprint: NoKey})

	if len(b.Trust) != 1 {
		t.Fatalf("expected one record, got %+v", b.Trust)
	}
	if b.Trust[0].Fingerprint != "AAAA" {
		t.Errorf("expected first real fingerprint to win, got %s", b.Trust[0].Fingerprint)
	}

	var literal Baseline
	literal.AddTrust(TrustRecord{Key: "g:a"})
	if literal.Trust[0].Line() != "g:a = noKey" {
		t.Errorf("zero-value baseline line = %q", literal.Trust[0].Line())
	}
}

func TestUpdateWritesFilesAndCompanions(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "security")
	b := sampleBaseline(FormatCSV)

	written, err := b.Update(dir)
	if err != nil {
		t.Fatalf("Update failed: %v", err)
	}
	if len(written) != 6 {
		t.Fatalf("expected 2 baselines and 4 companions, got %v", written)
	}

	files := b.FilesIn(dir)
	if filepath.Base(files.Checksums) != "demo-checksums.csv" || filepath.Base(files.Trust) != "demo-pgp-trusted-keys.list" {
		t.Errorf("unexpected file names %+v", files)
	}

	content, _ := os.ReadFile(files.Checksums)
	want, _ := DigestBytes(content, SHA256)
	companion, err := os.ReadFile(files.Checksums + ".sha256")
	if err != nil {
		t.Fatalf("reading companion: %v", err)
	}
	if string(companion) != want+"\n" {
		t.Errorf("companion = %q, want %q", companion, want+"\n")
	}
}

func TestUpdateIsIdempotent(t *testing.T) {
	dir := t.TempDir()
	if _, err := sampleBaseline(FormatCSV).Update(dir); err != nil {
		t.Fatalf("first Update failed: %v", err)
	}
	first := snapshotDir(t, dir)

	if _, err := sampleBaseline(FormatCSV).Update(dir); err != nil {
		t.Fatalf("second Update failed: %v", err)
	}
	second := snapshotDir(t, dir)

	if len(first) != len(second) {
		t.Fatalf("file sets differ: %d vs %d", len(first), len(second))
	}
	for name, data := range first {
		if !bytes.Equal(data, second[name]) {
			t.Errorf("%s changed between identical updates", name)
		}
	}
}

func TestVerify(t *testing.T) {
	dir := t.TempDir()
	b := sampleBaseline(FormatCSV)
	if _, err := b.Update(dir); err != nil {
		t.Fatalf("Update failed: %v", err)
	}
	if err := sampleBaseline(FormatCSV).Verify(dir); err != nil {
		t.Fatalf("Verify after Update failed: %v", err)
	}

	files := b.FilesIn(dir)

	t.Run("missing row", func(t *testing.T) {
		smaller := NewBaseline("demo", FormatCSV)
		smaller.AddChecksum(barCoord, barDigest)
		smaller.AddTrust(TrustRecord{Key: barCoord.Key(), Fingerprint: "0123456789ABCDEF0123456789ABCDEF01234567", Flag: "rotated"})
		smaller.AddTrust(TrustRecord{Key: fooCoord.Key(), Fingerprint: NoKey})
		if _, err := smaller.Update(dir); err != nil {
			t.Fatal(err)
		}
		t.Cleanup(func() { b.Update(dir) })

		err := sampleBaseline(FormatCSV).Verify(dir)
		assertStale(t, err, files.Checksums)
	})

	t.Run("edited digest", func(t *testing.T) {
		content, _ := os.ReadFile(files.Checksums)
		edited := bytes.Replace(content, []byte(fooDigest), []byte(strings.Repeat("0", 64)), 1)
		writeFile(t, files.Checksums, edited)
		t.Cleanup(func() { b.Update(dir) })

		err := sampleBaseline(FormatCSV).Verify(dir)
		assertStale(t, err, files.Checksums)
		if !strings.Contains(err.Error(), "artagon security update") {
			t.Errorf("error should tell the operator how to fix it: %v", err)
		}
	})

	t.Run("stale companion", func(t *testing.T) {
		writeFile(t, files.Trust+".sha512", []byte("deadbeef\n"))
		t.Cleanup(func() { b.Update(dir) })

		err := sampleBaseline(FormatCSV).Verify(dir)
		assertStale(t, err, files.Trust+".sha512")
	})

	t.Run("missing files", func(t *testing.T) {
		err := sampleBaseline(FormatCSV).Verify(t.TempDir())
		var mismatch *MismatchError
		if !errors.As(err, &mismatch) {
			t.Fatalf("expected MismatchError, got %v", err)
		}
		if len(mismatch.Stale) != 2 || mismatch.Stale[0].Reason != "missing" {
			t.Errorf("unexpected stale list %+v", mismatch.Stale)
		}
	})
}

func TestDiff(t *testing.T) {
	dir := t.TempDir()
	if _, err := sampleBaseline(FormatCSV).Update(dir); err != nil {
		t.Fatal(err)
	}

	same, err := sampleBaseline(FormatCSV).Diff(dir)
	if err != nil {
		t.Fatalf("Diff failed: %v", err)
	}
	if !same.Equal {
		t.Errorf("expected no drift, got %+v", same)
	}

	next := NewBaseline("demo", FormatCSV)
	next.AddChecksum(barCoord, strings.Repeat("1", 64))
	next.AddChecksum(maven.Coordinate{Group: "com.example", Artifact: "baz", Packaging: "jar", Version: "0.9"}, strings.Repeat("2", 64))
	next.AddTrust(TrustRecord{Key: barCoord.Key(), Fingerprint: "0123456789ABCDEF0123456789ABCDEF01234567", Flag: "rotated"})
	next.AddTrust(TrustRecord{Key: "com.example:baz", Fingerprint: NoKey})

	result, err := next.Diff(dir)
	if err != nil {
		t.Fatalf("Diff failed: %v", err)
	}
	if result.Equal {
		t.Fatal("expected drift")
	}

	checksums := result.Files[0]
	if _, ok := checksums.Added["baz-0.9.jar"]; !ok {
		t.Errorf("expected baz to be added: %+v", checksums)
	}
	if _, ok := checksums.Removed["foo-1.0.0.jar"]; !ok {
		t.Errorf("expected foo to be removed: %+v", checksums)
	}
	if len(checksums.Changed) != 1 || checksums.Changed[0].Key != "bar-2.0.0.jar" {
		t.Errorf("expected bar to change: %+v", checksums.Changed)
	}

	var text bytes.Buffer
	if err := result.RenderText(&text); err != nil {
		t.Fatal(err)
	}
	for _, want := range []string{"+ baz-0.9.jar", "- foo-1.0.0.jar", "~ bar-2.0.0.jar", "+ com.example:baz noKey"} {
		if !strings.Contains(text.String(), want) {
			t.Errorf("text report missing %q:\n%s", want, text.String())
		}
	}

	encoded, err := json.Marshal(result)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(encoded), `"equal":false`) {
		t.Errorf("unexpected JSON %s", encoded)
	}
}

func TestDiffReportsHeaderEdits(t *testing.T) {
	dir := t.TempDir()
	b := sampleBaseline(FormatCSV)
	if _, err := b.Update(dir); err != nil {
		t.Fatal(err)
	}
	path := b.FilesIn(dir).Checksums
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, append([]byte("# edited\n"), data...), 0644); err != nil {
		t.Fatal(err)
	}

	assertStale(t, b.Verify(dir), path)

	result, err := b.Diff(dir)
	if err != nil {
		t.Fatalf("Diff failed: %v", err)
	}
	if result.Equal {
		t.Fatal("Diff must agree with Verify when only the header changed")
	}
	fd := result.Files[0]
	if !fd.ContentDiffers || len(fd.Added)+len(fd.Removed)+len(fd.Changed) != 0 {
		t.Errorf("expected content-only drift, got %+v", fd)
	}
	if !result.Files[1].Equal() {
		t.Errorf("trust file should be up to date: %+v", result.Files[1])
	}

	var text bytes.Buffer
	if err := result.RenderText(&text); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(text.String(), "header or formatting differs") {
		t.Errorf("text report missing content drift:\n%s", text.String())
	}
	encoded, err := json.Marshal(result)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(encoded), `"content_differs":true`) {
		t.Errorf("unexpected JSON %s", encoded)
	}
}

func assertStale(t *testing.T, err error, path string) {
	t.Helper()
	if !errors.Is(err, ErrBaselineMismatch) {
		t.Fatalf("expected ErrBaselineMismatch, got %v", err)
	}
	if !strings.Contains(err.Error(), path) {
		t.Errorf("error should name %s, got %v", path, err)
	}
}

func snapshotDir(t *testing.T, dir string) map[string][]byte {
	t.Helper()
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	files := map[string][]byte{}
	for _, e := range entries {
		data, err := os.ReadFile(filepath.Join(dir, e.Name()))
		if err != nil {
			t.Fatal(err)
		}
		files[e.Name()] = data
	}
	return files
}
