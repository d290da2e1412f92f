package commands

import (
	"errors"
	"fmt"
	"io"
	"strings"
	"unicode"
)

// ErrTaskRefRequired indicates no task reference was provided.
var ErrTaskRefRequired = errors.New("task reference required")

// ParseTaskRef parses the task reference from the first positional arg and
// returns it with the remaining args.
//
// A reference is a full task id or an id prefix as shown by the list
// command. It may not contain whitespace, URL delimiters or escapes, and
// may not be a dot segment.
func ParseTaskRef(args []string) (string, []string, error) {
	if len(args) == 0 {
		return "", nil, ErrTaskRefRequired
	}

	ref := strings.TrimSpace(args[0])
	if ref == "" {
		return "", nil, ErrTaskRefRequired
	}
	if ref == "." || ref == ".." {
		return "", nil, fmt.Errorf("invalid task reference: %s", args[0])
	}
	for _, r := range ref {
		if unicode.IsSpace(r) || strings.ContainsRune("/?#%", r) {
			return "", nil, fmt.Errorf("invalid task reference: %s", args[0])
		}
	}
	return ref, args[1:], nil
}

// taskRoute returns the route for a task reference, or the collection
// route when args hold no usable reference.
func taskRoute(args []string, suffix string) string {
	ref, _, err := ParseTaskRef(args)
	if err != nil {
		return "/tasks"
	}
	return "/tasks/" + ref + suffix
}

// refError prints a task reference parse failure.
func refError(errOut io.Writer, err error) int {
	return usageError(errOut, "%v", err)
}
