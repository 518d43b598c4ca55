package tree

import (
	"regexp"
	"strings"

	"github.com/Masterminds/semver/v3"
)

var pessimisticRegex = regexp.MustCompile(`~>\s*([0-9][0-9A-Za-z.\-]*)`)

// selectVersion picks which of several declared versions of one package a
// requirement refers to: an exact match first, then the highest version
// satisfying the requirement, then the highest version overall.
func selectVersion(versions []string, requirement string) int {
	requirement = strings.TrimSpace(requirement)
	for i, v := range versions {
		if v == requirement {
			return i
		}
	}

	parsed := make([]*semver.Version, len(versions))
	for i, v := range versions {
		if sv, err := semver.NewVersion(v); err == nil {
			parsed[i] = sv
		}
	}

	if c, err := semver.NewConstraint(normalizeConstraint(requirement)); err == nil {
		if best := highest(parsed, c); best >= 0 {
			return best
		}
	}
	if best := highest(parsed, nil); best >= 0 {
		return best
	}
	return 0
}

func highest(versions []*semver.Version, c *semver.Constraints) int {
	best := -1
	for i, v := range versions {
		if v == nil || (c != nil && !c.Check(v)) {
			continue
		}
		if best < 0 || v.GreaterThan(versions[best]) {
			best = i
		}
	}
	return best
}

// normalizeConstraint rewrites the requirement dialects found in lock files
// (Ruby/CocoaPods "~>", NuGet interval notation, parenthesized lists) into
// Masterminds constraint syntax.
func normalizeConstraint(requirement string) string {
	r := strings.TrimSpace(requirement)
	if isInterval(r) {
		return intervalConstraint(r)
	}
	r = strings.TrimPrefix(r, "(")
	r = strings.TrimSuffix(r, ")")
	if r == "" || r == "*" || strings.EqualFold(r, "any") {
		return "*"
	}

	return pessimisticRegex.ReplaceAllStringFunc(r, func(m string) string {
		version := pessimisticRegex.FindStringSubmatch(m)[1]
		if strings.Count(version, ".") <= 1 {
			return "^" + version
		}
		return "~" + version
	})
}

func isInterval(r string) bool {
	if len(r) < 2 || (r[0] != '[' && r[0] != '(') {
		return false
	}
	next := strings.TrimSpace(r[1:])
	return next != "" && (next[0] == ',' || (next[0] >= '0' && next[0] <= '9'))
}

// intervalConstraint converts "[1.0, 2.0)" style ranges
func intervalConstraint(r string) string {
	lowerInclusive := strings.HasPrefix(r, "[")
	upperInclusive := strings.HasSuffix(r, "]")
	body := strings.Trim(r, "[]()")
	parts := strings.SplitN(body, ",", 2)
	if len(parts) == 1 {
		return "=" + strings.TrimSpace(parts[0])
	}

	var out []string
	if lower := strings.TrimSpace(parts[0]); lower != "" {
		op := ">"
		if lowerInclusive {
			op = ">="
		}
		out = append(out, op+lower)
	}
	if upper := strings.TrimSpace(parts[1]); upper != "" {
		op := "<"
		if upperInclusive {
			op = "<="
		}
		out = append(out, op+upper)
	}
	if len(out) == 0 {
		return "*"
	}
	return strings.Join(out, ", ")
}
