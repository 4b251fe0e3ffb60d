package security

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"

	"github.com/artagon/artagon-common/internal/maven"
)

// genBaseline generates baselines with distinct coordinates in sorted order.
func genBaseline() gopter.Gen {
	return gopter.CombineGens(
		gen.OneConstOf(FormatCSV, FormatProperties),
		gen.SliceOf(gen.UInt32()),
		gen.SliceOf(gen.OneConstOf("", "0xA1B2C3D4E5F60718293A4B5C6D7E8F9012345678")),
	).Map(func(vals []interface{}) *Baseline {
		b := NewBaseline("prop", vals[0].(Format))
		seeds := vals[1].([]uint32)
		keys := vals[2].([]string)
		for i, seed := range seeds {
			c := maven.Coordinate{
				Group:     "org.example",
				Artifact:  fmt.Sprintf("lib%04d", i),
				Packaging: "jar",
				Version:   "1.0.0",
			}
			digest, _ := DigestBytes([]byte(fmt.Sprint(seed)), SHA256)
			b.AddChecksum(c, digest)
			fpr := NoKey
			if i < len(keys) && keys[i] != "" {
				fpr = keys[i]
			}
			b.AddTrust(TrustRecord{Key: c.Key(), Fingerprint: fpr})
		}
		return b
	})
}

// TestBaselineUpdateVerifyProperty checks that a freshly written baseline
// verifies and that rewriting it leaves every byte in place.
func TestBaselineUpdateVerifyProperty(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 50
	properties := gopter.NewProperties(parameters)

	properties.Property("update then verify succeeds and update is idempotent", prop.ForAll(
		func(b *Baseline) bool {
			dir, err := os.MkdirTemp("", "baseline-prop-*")
			if err != nil {
				return false
			}
			defer os.RemoveAll(dir)

			files, err := b.Update(dir)
			if err != nil {
				return false
			}
			if err := b.Verify(dir); err != nil {
				return false
			}
			before := map[string][]byte{}
			for _, f := range files {
				data, err := os.ReadFile(f)
				if err != nil {
					return false
				}
				before[f] = data
			}
			if _, err := b.Update(dir); err != nil {
				return false
			}
			for f, data := range before {
				after, err := os.ReadFile(filepath.Clean(f))
				if err != nil || !bytes.Equal(after, data) {
					return false
				}
			}
			return true
		},
		genBaseline(),
	))

	properties.TestingRun(t)
}
