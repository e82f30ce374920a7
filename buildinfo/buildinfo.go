package buildinfo

import (
	"fmt"
	"strings"
)

var (
	// Version is set with -ldflags at build time.
	Version = "dev"
	// GitCommit is set with -ldflags at build time.
	GitCommit = "unknown"
	// BuildDate is set with -ldflags at build time.
	BuildDate = "unknown"
)

// Field is a named piece of build information.
type Field struct {
	Name  string
	Value string
}

// Fields returns the build information of the running binary.
func Fields() []Field {
	return []Field{
		{Name: "version", Value: Version},
		{Name: "git commit", Value: GitCommit},
		{Name: "build date", Value: BuildDate},
	}
}

// Summary returns the build information as indented lines, ready to log.
func Summary() string {
	var b strings.Builder
	for i, f := range Fields() {
		if i > 0 {
			b.WriteString("\n")
		}
		fmt.Fprintf(&b, "\t%s:\t%s", f.Name, f.Value)
	}
	return b.String()
}
