package algebra

import (
	"encoding/hex"
	"flag"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
)

var update = flag.Bool("update", false, "rewrite golden files")

// TestGoldenDigests pins digests and fingerprints of a few trees.
// Run with -update to rewrite the files under testdata.
// This catches accidental drift in the mixer, the label digest or the
// fingerprint encoding.
func TestGoldenDigests(t *testing.T) {
	cases := []struct {
		name string
		h    Hash
	}{
		{"empty", NewEmpty()},
		{"label", NewLabel("Point")},
		{"named_point", Named("Point", NewRaw(1), NewRaw(2))},
		{"record_fields", Named("Person", NewUnordered(
			NewOrdered(NewLabel("name"), NewLabel("ada")),
			NewOrdered(NewLabel("age"), NewRaw(36)),
		))},
		{"ordered_ab", NewOrdered(NewLabel("a"), NewLabel("b"))},
		{"ordered_ba", NewOrdered(NewLabel("b"), NewLabel("a"))},
	}

	goldenDir := filepath.Join("testdata")

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			digest := strconv.FormatInt(Digest(tc.h), 10)
			fp := Fingerprint(tc.h)
			fpHex := hex.EncodeToString(fp[:])

			goldenPath := filepath.Join(goldenDir, tc.name+".golden")
			if *update {
				content := digest + "\n" + fpHex + "\n"
				if err := os.WriteFile(goldenPath, []byte(content), 0o644); err != nil {
					t.Fatalf("write golden file: %v", err)
				}
				return
			}
			expected, err := os.ReadFile(goldenPath)
			if err != nil {
				t.Fatalf("read golden file %s (run with -update to create): %v", goldenPath, err)
			}

			lines := strings.Split(strings.TrimSpace(string(expected)), "\n")
			if len(lines) != 2 {
				t.Fatalf("golden file %s: expected 2 lines, got %d", goldenPath, len(lines))
			}
			if digest != lines[0] {
				t.Errorf("digest mismatch:\n  got:  %s\n  want: %s", digest, lines[0])
			}
			if fpHex != lines[1] {
				t.Errorf("fingerprint mismatch:\n  got:  %s\n  want: %s", fpHex, lines[1])
			}
		})
	}
}
