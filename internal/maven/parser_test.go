package maven

import (
	"errors"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestParseDependencyListOutputFile(t *testing.T) {
	input := `
The following files have been resolved:
   com.example:foo:jar:1.0.0:compile
   com.example:bar:jar:2.0.0:compile -- module com.example.bar
   org.slf4j:slf4j-api:jar:2.0.9:runtime (optional) -- module org.slf4j [auto]
   com.example:bom:pom:3.0.0:import
   io.netty:netty-transport-native-epoll:jar:linux-x86_64:4.1.100.Final:runtime

`
	got, err := ParseDependencyList(strings.NewReader(input))
	if err != nil {
		t.Fatalf("ParseDependencyList failed: %v", err)
	}

	want := []Coordinate{
		{Group: "com.example", Artifact: "foo", Packaging: "jar", Version: "1.0.0", Scope: "compile"},
		{Group: "com.example", Artifact: "bar", Packaging: "jar", Version: "2.0.0", Scope: "compile"},
		{Group: "org.slf4j", Artifact: "slf4j-api", Packaging: "jar", Version: "2.0.9", Scope: "runtime"},
		{Group: "com.example", Artifact: "bom", Packaging: "pom", Version: "3.0.0", Scope: "import"},
		{Group: "io.netty", Artifact: "netty-transport-native-epoll", Packaging: "jar", Classifier: "linux-x86_64", Version: "4.1.100.Final", Scope: "runtime"},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("coordinates mismatch (-want +got):\n%s", diff)
	}
}

func TestParseDependencyListConsoleOutput(t *testing.T) {
	input := `[INFO] Scanning for projects...
[INFO] --- maven-dependency-plugin:3.6.1:list (default-cli) @ demo ---
[INFO]
[INFO] The following files have been resolved:
[INFO]    com.example:foo:jar:1.0.0:compile
[WARNING] The POM for com.example:legacy:jar:0.1 is missing, no dependency information available
[INFO] BUILD SUCCESS
`
	got, err := ParseDependencyList(strings.NewReader(input))
	if err != nil {
		t.Fatalf("ParseDependencyList failed: %v", err)
	}
	if len(got) != 1 || got[0].GAV() != "com.example:foo:1.0.0" {
		t.Errorf("unexpected coordinates %+v", got)
	}
}

func TestParseDependencyListRejectsMalformedCoordinates(t *testing.T) {
	tests := []struct {
		name string
		line string
	}{
		{name: "too few fields", line: "   com.example:foo:jar:1.0.0"},
		{name: "too many fields", line: "   com.example:foo:jar:tests:1.0.0:compile:/tmp/foo.jar"},
		{name: "empty field", line: "   com.example::jar:1.0.0:compile"},
		{name: "trailing garbage", line: "   com.example:foo:jar:1.0.0:compile surprise"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			input := "The following files have been resolved:\n" + tt.line + "\n"
			_, err := ParseDependencyList(strings.NewReader(input))
			if !errors.Is(err, ErrUnparseableLine) {
				t.Fatalf("expected ErrUnparseableLine, got %v", err)
			}
			if !strings.Contains(err.Error(), "line 2") {
				t.Errorf("error should name the line number, got %v", err)
			}
		})
	}
}

func TestParseDependencyListEmpty(t *testing.T) {
	got, err := ParseDependencyList(strings.NewReader("The following files have been resolved:\n   none\n"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 0 {
		t.Errorf("expected no coordinates, got %+v", got)
	}
}

// FuzzParseDependencyList checks the parser never panics and that every
// accepted coordinate has its required fields.
func FuzzParseDependencyList(f *testing.F) {
	f.Add("   com.example:foo:jar:1.0.0:compile\n")
	f.Add("[INFO]    com.example:foo:jar:tests:1.0.0:test -- module foo\n")
	f.Add("com.example:foo:jar:1.0.0:compile (optional)\n")
	f.Add("a:b:c\n")
	f.Add("::::\n")
	f.Add("[ERROR] a:b:c:d:e\n")
	f.Add("")
	f.Add(strings.Repeat("x:", 5000))

	f.Fuzz(func(t *testing.T, input string) {
		coords, err := ParseDependencyList(strings.NewReader(input))
		if err != nil {
			if coords != nil {
				t.Error("expected nil coordinates on error")
			}
			return
		}
		for _, c := range coords {
			if c.Group == "" || c.Artifact == "" || c.Packaging == "" || c.Version == "" || c.Scope == "" {
				t.Errorf("accepted incomplete coordinate %+v", c)
			}
		}
	})
}
