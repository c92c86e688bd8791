package bot

import (
	"fmt"
	"strconv"
	"strings"
)

// TriggerArgs holds the parsed arguments of /trigger add.
type TriggerArgs struct {
	Pattern       string
	CaseSensitive bool
	IsRegex       bool
}

// ParseSubcommand splits command arguments into a lowercased subcommand and
// the remaining argument string.
func ParseSubcommand(args string) (string, string) {
	sub, rest, _ := strings.Cut(strings.TrimSpace(args), " ")
	return strings.ToLower(sub), strings.TrimSpace(rest)
}

// ParseTriggerArgs parses arguments for /trigger add.
// Format: [-c] [-r] [--] <pattern...>
// The pattern keeps its inner whitespace.
func ParseTriggerArgs(args string) (TriggerArgs, error) {
	var out TriggerArgs
	s := strings.TrimSpace(args)

flags:
	for s != "" {
		tok, rest, _ := strings.Cut(s, " ")
		switch tok {
		case "-c":
			out.CaseSensitive = true
		case "-r":
			out.IsRegex = true
		case "-cr", "-rc":
			out.CaseSensitive = true
			out.IsRegex = true
		case "--":
			s = strings.TrimLeft(rest, " ")
			break flags
		default:
			break flags
		}
		s = strings.TrimLeft(rest, " ")
	}

	if s == "" {
		return TriggerArgs{}, fmt.Errorf("usage: /trigger add [-c] [-r] <pattern>")
	}
	out.Pattern = s
	return out, nil
}

// ParseIDArg extracts a numeric ID from a command argument string.
func ParseIDArg(args string) (int64, error) {
	s := strings.TrimSpace(args)
	if s == "" {
		return 0, fmt.Errorf("trigger ID is required")
	}
	first := strings.TrimPrefix(strings.ToUpper(strings.Fields(s)[0]), "T")
	id, err := strconv.ParseInt(first, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid trigger ID %q", s)
	}
	return id, nil
}

// ParseNames splits a list of names, normalizes each one and drops empty
// entries and duplicates while keeping the input order.
func ParseNames(args string, normalize func(string) string) []string {
	var out []string
	seen := make(map[string]struct{})
	for _, f := range strings.Fields(strings.ReplaceAll(args, ",", " ")) {
		n := normalize(f)
		if n == "" {
			continue
		}
		if _, ok := seen[n]; ok {
			continue
		}
		seen[n] = struct{}{}
		out = append(out, n)
	}
	return out
}
