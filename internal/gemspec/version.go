// version.go implements the gem version-ordering grammar and requirement
// checks. Version numbers are dot-separated segments: numeric segments compare
// numerically, non-numeric segments compare lexicographically, a numeric
// segment outranks a non-numeric one, and a shorter version is padded with
// zero segments for trailing comparison (so "1.0" == "1.0.0").
package gemspec

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	goversion "github.com/hashicorp/go-version"
)

var (
	namePattern   = regexp.MustCompile(`^[A-Za-z0-9_\-\.]+$`)
	numberPattern = regexp.MustCompile(`^[0-9]+(\.[0-9A-Za-z]+)*$`)
)

// ValidName reports whether a gem name uses only identifier-safe characters
func ValidName(name string) bool {
	return namePattern.MatchString(name)
}

// ValidNumber reports whether a version number conforms to the ordering grammar
func ValidNumber(number string) bool {
	return numberPattern.MatchString(number)
}

// CompareNumbers compares two version numbers under the ordering grammar.
// Returns 1 if a > b, -1 if a < b, 0 if equal.
func CompareNumbers(a, b string) int {
	aSegs := strings.Split(a, ".")
	bSegs := strings.Split(b, ".")

	n := len(aSegs)
	if len(bSegs) > n {
		n = len(bSegs)
	}

	for i := 0; i < n; i++ {
		aSeg, bSeg := "0", "0"
		if i < len(aSegs) {
			aSeg = aSegs[i]
		}
		if i < len(bSegs) {
			bSeg = bSegs[i]
		}

		if c := compareSegment(aSeg, bSeg); c != 0 {
			return c
		}
	}

	return 0
}

func compareSegment(a, b string) int {
	aNum, aErr := strconv.Atoi(a)
	bNum, bErr := strconv.Atoi(b)

	switch {
	case aErr == nil && bErr == nil:
		switch {
		case aNum > bNum:
			return 1
		case aNum < bNum:
			return -1
		}
		return 0
	case aErr == nil:
		// numeric outranks non-numeric ("1.0.0" > "1.0.a")
		return 1
	case bErr == nil:
		return -1
	}

	return strings.Compare(a, b)
}

// ValidateRequirements checks that a dependency requirement string parses into
// comparable constraints. The empty requirement is normalized to ">= 0".
func ValidateRequirements(requirements string) error {
	if _, err := goversion.NewConstraint(NormalizeRequirements(requirements)); err != nil {
		return fmt.Errorf("unparsable requirement %q: %w", requirements, err)
	}
	return nil
}

// NormalizeRequirements maps an empty requirement to the match-anything form
func NormalizeRequirements(requirements string) string {
	if strings.TrimSpace(requirements) == "" {
		return ">= 0"
	}
	return requirements
}

// Satisfies reports whether a version number satisfies a requirement string.
// Numbers the constraint library cannot represent never satisfy anything.
func Satisfies(number, requirements string) bool {
	constraint, err := goversion.NewConstraint(NormalizeRequirements(requirements))
	if err != nil {
		return false
	}
	v, err := goversion.NewVersion(number)
	if err != nil {
		return false
	}
	return constraint.Check(v)
}
