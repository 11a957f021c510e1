// internal/nodeid/parser.go
package nodeid

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

var (
	addressRegex = regexp.MustCompile(`^([a-zA-Z0-9_-]+)(?:\[([^\]]*)\])?$`)
	coordRegex   = regexp.MustCompile(`^([a-zA-Z0-9_-]+)=(\d+)$`)
)

// isValidName rejects names that are technically matched but meaningless.
func isValidName(name string) bool {
	return name != "-" && name != "_"
}

// Parse creates a new Address by parsing its canonical string representation.
func Parse(rawID string) (*Address, error) {
	if rawID == "" {
		return nil, fmt.Errorf("identifier cannot be empty")
	}

	matches := addressRegex.FindStringSubmatch(rawID)
	if matches == nil {
		return nil, fmt.Errorf("invalid instance identifier format: %q", rawID)
	}
	if !isValidName(matches[1]) {
		return nil, fmt.Errorf("invalid node name: %q", matches[1])
	}

	addr := &Address{Node: matches[1]}
	if !strings.Contains(rawID, "[") {
		return addr, nil
	}
	if matches[2] == "" {
		return nil, fmt.Errorf("identifier %q has an empty coordinate list", rawID)
	}

	seen := make(map[string]struct{})
	for _, part := range strings.Split(matches[2], ",") {
		cm := coordRegex.FindStringSubmatch(part)
		if cm == nil {
			return nil, fmt.Errorf("invalid coordinate %q in %q", part, rawID)
		}
		if !isValidName(cm[1]) {
			return nil, fmt.Errorf("invalid source name: %q", cm[1])
		}
		if _, dup := seen[cm[1]]; dup {
			return nil, fmt.Errorf("duplicate coordinate for source %q in %q", cm[1], rawID)
		}
		seen[cm[1]] = struct{}{}

		index, err := strconv.Atoi(cm[2])
		if err != nil {
			// Unreachable due to regex `\d+`
			return nil, fmt.Errorf("internal error parsing index: %w", err)
		}
		addr.Coords = append(addr.Coords, Coord{Source: cm[1], Index: index})
	}
	return addr, nil
}

// MustParse is like Parse but panics on error. It is meant for tests and
// constant identifiers.
func MustParse(rawID string) *Address {
	addr, err := Parse(rawID)
	if err != nil {
		panic(err)
	}
	return addr
}
