// Package flagx contains helpers for parsing a subset of the command
// line without tripping over flags owned by other components.
package flagx

import (
	"flag"
	"os"
	"strings"
)

// FilterArgs keeps only the flags named in allowed (with their values)
// from args. Both "-f value" and "--flag=value" forms are recognised; a
// token following an allowed flag is treated as its value unless it
// starts with a dash. Everything else, including positional arguments,
// is dropped.
func FilterArgs(args []string, allowed []string) []string {
	set := make(map[string]struct{}, len(allowed))
	for _, f := range allowed {
		set[f] = struct{}{}
	}

	filtered := make([]string, 0, len(args))
	for i := 0; i < len(args); i++ {
		arg := args[i]

		if strings.HasPrefix(arg, "-") && strings.Contains(arg, "=") {
			name := strings.SplitN(arg, "=", 2)[0]
			if _, ok := set[name]; ok {
				filtered = append(filtered, arg)
			}
			continue
		}

		if _, ok := set[arg]; ok {
			filtered = append(filtered, arg)
			if i+1 < len(args) && !strings.HasPrefix(args[i+1], "-") {
				filtered = append(filtered, args[i+1])
				i++
			}
		}
	}
	return filtered
}

// ExcludeArgs is the complement of FilterArgs: it strips the flags
// named in excluded (and their values) from args, leaving positional
// arguments and unrelated flags intact.
func ExcludeArgs(args []string, excluded []string) []string {
	set := make(map[string]struct{}, len(excluded))
	for _, f := range excluded {
		set[f] = struct{}{}
	}

	remaining := make([]string, 0, len(args))
	for i := 0; i < len(args); i++ {
		arg := args[i]

		if strings.HasPrefix(arg, "-") && strings.Contains(arg, "=") {
			name := strings.SplitN(arg, "=", 2)[0]
			if _, ok := set[name]; ok {
				continue
			}
			remaining = append(remaining, arg)
			continue
		}

		if _, ok := set[arg]; ok {
			if i+1 < len(args) && !strings.HasPrefix(args[i+1], "-") {
				i++
			}
			continue
		}
		remaining = append(remaining, arg)
	}
	return remaining
}

// JsonConfigFlags returns the config file path given via -c or -config,
// or an empty string when neither flag is present. Other arguments are
// ignored so callers can parse their own flags independently.
func JsonConfigFlags() string {
	var config string

	args := FilterArgs(os.Args[1:], []string{"-c", "-config"})

	fs := flag.NewFlagSet("json", flag.ContinueOnError)
	fs.StringVar(&config, "config", "", "Path to config file")
	fs.StringVar(&config, "c", "", "Path to config file (short)")
	_ = fs.Parse(args)

	return config
}
