package main

import (
	"flag"
	"fmt"
	"io"
	"log"
	"log/slog"
	"os"
	"slices"
	"strings"

	"github.com/mjl-/imapdecode/config"
	"github.com/mjl-/imapdecode/imapparse"
	"github.com/mjl-/imapdecode/mlog"
)

func envString(k, def string) string {
	s := os.Getenv(k)
	if s == "" {
		return def
	}
	return s
}

var commands = []struct {
	cmd string
	fn  func(c *cmd)
}{
	{"parse", cmdParse},
	{"format", cmdFormat},
	{"bodystructure", cmdBodystructure},
	{"decode", cmdDecode},
	{"transcript list", cmdTranscriptList},
	{"transcript get", cmdTranscriptGet},
	{"config describe", cmdConfigDescribe},
	{"config test", cmdConfigTest},
	{"version", cmdVersion},
	{"help", cmdHelp},

	// Not listed.
	{"helpall", cmdHelpall},
}

var cmds []cmd

func init() {
	for _, xc := range commands {
		c := cmd{words: strings.Split(xc.cmd, " "), fn: xc.fn}
		cmds = append(cmds, c)
	}
}

type cmd struct {
	words []string
	fn    func(c *cmd)

	// Set before calling command.
	flag     *flag.FlagSet
	flagArgs []string
	_gather  bool // Set when using Parse to gather usage for a command.

	// Set by invoked command or Parse.
	unlisted bool   // If set, command is not listed until at least some words are matched from command.
	params   string // Arguments to command. Multiple lines possible.
	help     string // Additional explanation. First line is synopsis, the rest is only printed for an explicit help/usage for that command.
	args     []string

	log mlog.Log
}

func (c *cmd) Parse() []string {
	// To gather params and usage information, we just run the command but cause this
	// panic after the command has registered its flags and set its params and help
	// information. This is then caught and that info printed.
	if c._gather {
		panic("gather")
	}

	c.flag.Usage = c.Usage
	c.flag.Parse(c.flagArgs)
	c.args = c.flag.Args()
	return c.args
}

func (c *cmd) gather() {
	c.flag = flag.NewFlagSet("imapdecode "+strings.Join(c.words, " "), flag.ExitOnError)
	c._gather = true
	defer func() {
		x := recover()
		// panic generated by Parse.
		if x != "gather" {
			panic(x)
		}
	}()
	c.fn(c)
}

func (c *cmd) makeUsage() string {
	var r strings.Builder
	cs := "imapdecode " + strings.Join(c.words, " ")
	for i, line := range strings.Split(strings.TrimSpace(c.params), "\n") {
		s := ""
		if i == 0 {
			s = "usage:"
		}
		if line != "" {
			line = " " + line
		}
		fmt.Fprintf(&r, "%6s %s%s\n", s, cs, line)
	}
	c.flag.SetOutput(&r)
	c.flag.PrintDefaults()
	return r.String()
}

func (c *cmd) printUsage() {
	fmt.Fprint(os.Stderr, c.makeUsage())
	if c.help != "" {
		fmt.Fprint(os.Stderr, "\n"+c.help+"\n")
	}
}

func (c *cmd) Usage() {
	c.printUsage()
	os.Exit(2)
}

func cmdHelp(c *cmd) {
	c.params = "[command ...]"
	c.help = `Prints help about matching commands.

If multiple commands match, they are listed along with the first line of their help text.
If a single command matches, its usage and full help text is printed.
`
	args := c.Parse()
	if len(args) == 0 {
		c.Usage()
	}

	prefix := func(l, pre []string) bool {
		if len(pre) > len(l) {
			return false
		}
		return slices.Equal(pre, l[:len(pre)])
	}

	var partial []cmd
	for _, c := range cmds {
		if slices.Equal(c.words, args) {
			c.gather()
			fmt.Print(c.makeUsage())
			if c.help != "" {
				fmt.Print("\n" + c.help + "\n")
			}
			return
		} else if prefix(c.words, args) {
			partial = append(partial, c)
		}
	}
	if len(partial) == 0 {
		fmt.Fprintf(os.Stderr, "%s: unknown command\n", strings.Join(args, " "))
		os.Exit(2)
	}
	for _, c := range partial {
		c.gather()
		line := "imapdecode " + strings.Join(c.words, " ")
		fmt.Printf("%s\n", line)
		if c.help != "" {
			fmt.Printf("\t%s\n", strings.Split(c.help, "\n")[0])
		}
	}
}

func cmdHelpall(c *cmd) {
	c.unlisted = true
	c.help = `Print all detailed usage and help information for all listed commands.

Used to generate documentation.
`
	args := c.Parse()
	if len(args) != 0 {
		c.Usage()
	}

	n := 0
	for _, c := range cmds {
		c.gather()
		if c.unlisted {
			continue
		}
		if n > 0 {
			fmt.Fprintf(os.Stderr, "\n")
		}
		n++

		fmt.Fprintf(os.Stderr, "# imapdecode %s\n\n", strings.Join(c.words, " "))
		if c.help != "" {
			fmt.Fprintln(os.Stderr, c.help+"\n")
		}
		s := c.makeUsage()
		s = "\t" + strings.ReplaceAll(s, "\n", "\n\t")
		fmt.Fprintln(os.Stderr, s)
	}
}

func usage(l []cmd, unlisted bool) {
	var lines []string
	if !unlisted {
		lines = append(lines, "imapdecode [-config imapdecode.conf] [-loglevel level] ...")
	}
	for _, c := range l {
		c.gather()
		if c.unlisted && !unlisted {
			continue
		}
		for _, line := range strings.Split(c.params, "\n") {
			x := append([]string{"imapdecode"}, c.words...)
			if line != "" {
				x = append(x, line)
			}
			lines = append(lines, strings.Join(x, " "))
		}
	}
	for i, line := range lines {
		pre := "       "
		if i == 0 {
			pre = "usage: "
		}
		fmt.Fprintln(os.Stderr, pre+line)
	}
	os.Exit(2)
}

var configPath string
var loglevel string // Empty means the level from the config file is used.

// Loaded configuration, or the defaults when no config file is set.
var conf = config.Default()

// mustLoadConfig loads the config file if one was specified, and applies the
// log levels, with a -loglevel from the command-line taking precedence.
func mustLoadConfig() {
	if configPath != "" {
		c, err := config.Load(configPath)
		xcheckf(err, "loading config")
		conf = c
	}
	if loglevel != "" {
		level, ok := mlog.Levels[loglevel]
		if !ok {
			log.Fatalf("unknown loglevel %q", loglevel)
		}
		conf.Log[""] = level
	}
	mlog.SetConfig(conf.Log)
}

func main() {
	log.SetFlags(0)

	flag.StringVar(&configPath, "config", envString("IMAPDECODECONF", ""), "configuration file, defaults to $IMAPDECODECONF, built-in defaults are used if empty")
	flag.StringVar(&loglevel, "loglevel", "", "if non-empty, overrides the log level from the configuration file")

	flag.Usage = func() { usage(cmds, false) }
	flag.Parse()
	args := flag.Args()
	if len(args) == 0 {
		usage(cmds, false)
	}

	var partial []cmd
next:
	for _, c := range cmds {
		for i, w := range c.words {
			if i >= len(args) || w != args[i] {
				if i > 0 {
					partial = append(partial, c)
				}
				continue next
			}
		}
		c.flag = flag.NewFlagSet("imapdecode "+strings.Join(c.words, " "), flag.ExitOnError)
		c.flagArgs = args[len(c.words):]
		c.log = mlog.New(strings.Join(c.words, ""), nil)
		c.fn(&c)
		return
	}
	if len(partial) > 0 {
		usage(partial, true)
	}
	usage(cmds, false)
}

func xcheckf(err error, format string, args ...any) {
	if err == nil {
		return
	}
	msg := fmt.Sprintf(format, args...)
	log.Fatalf("%s: %s", msg, err)
}

// readInput returns the command-line arguments joined by spaces, or if there
// are none, all of stdin with a single trailing line ending removed.
func readInput(args []string, stdin io.Reader) (string, error) {
	if len(args) > 0 {
		return strings.Join(args, " "), nil
	}
	buf, err := io.ReadAll(stdin)
	if err != nil {
		return "", err
	}
	s := string(buf)
	if strings.HasSuffix(s, "\r\n") {
		s = s[:len(s)-2]
	} else if strings.HasSuffix(s, "\n") {
		s = s[:len(s)-1]
	}
	return s, nil
}

func cmdParse(c *cmd) {
	c.params = "[-depth n] [-tag] [response]"
	c.help = `Parses a response and prints the values, one per line.

The response is taken from the arguments, or read from stdin. Each value is
printed with its type. The elements of lists and the parts of attribute
specifiers are printed indented below them. With -tag, the first word is
treated as a tag and skipped.

A response that cannot be parsed causes an error with the offset of the
problem, and a non-zero exit status.
`
	var depth int
	var tag bool
	c.flag.IntVar(&depth, "depth", 0, "maximum nesting depth, 0 for the default, negative for no limit")
	c.flag.BoolVar(&tag, "tag", false, "skip the tag at the start of the response")
	args := c.Parse()
	mustLoadConfig()
	if depth == 0 {
		depth = conf.MaxDepth
	}

	s, err := readInput(args, os.Stdin)
	xcheckf(err, "reading input")
	if tag {
		_, s, _ = strings.Cut(s, " ")
	}
	l, err := imapparse.Parser{MaxDepth: depth}.Parse(s)
	xcheckf(err, "parse")
	c.log.Debug("parsed", slog.Int("values", len(l)))
	for _, v := range l {
		printValue(os.Stdout, v, "")
	}
}

// printValue writes v with its type, followed by its elements indented.
func printValue(w io.Writer, v imapparse.Value, indent string) {
	switch x := v.(type) {
	case imapparse.Atom:
		if x == imapparse.NIL {
			fmt.Fprintf(w, "%snil\n", indent)
		} else {
			fmt.Fprintf(w, "%satom %s\n", indent, x)
		}
	case imapparse.Flag:
		fmt.Fprintf(w, "%sflag %s\n", indent, x)
	case imapparse.Str:
		fmt.Fprintf(w, "%sstring %q\n", indent, string(x))
	case imapparse.List:
		fmt.Fprintf(w, "%slist (%d)\n", indent, len(x))
		for _, e := range x {
			printValue(w, e, indent+"\t")
		}
	case *imapparse.AttributeSpec:
		fmt.Fprintf(w, "%sspec %s\n", indent, x.Primary)
		if x.MsgText != nil {
			fmt.Fprintf(w, "%s\tmsgtext\n", indent)
			printValue(w, x.MsgText, indent+"\t\t")
		}
		if x.HeaderList != nil {
			fmt.Fprintf(w, "%s\theaders\n", indent)
			printValue(w, x.HeaderList, indent+"\t\t")
		}
		if x.Range != "" {
			fmt.Fprintf(w, "%s\trange %s\n", indent, x.Range)
		}
	default:
		fmt.Fprintf(w, "%s%T %s\n", indent, v, v)
	}
}

func cmdFormat(c *cmd) {
	c.params = "[response]"
	c.help = `Parses a response and prints it in canonical form.

Strings without special characters are printed quoted, others as literals.
Elements are separated by a single space.
`
	args := c.Parse()
	mustLoadConfig()

	s, err := readInput(args, os.Stdin)
	xcheckf(err, "reading input")
	l, err := imapparse.Parser{MaxDepth: conf.MaxDepth}.Parse(s)
	xcheckf(err, "parse")
	fmt.Println(imapparse.Format(l))
}

func cmdBodystructure(c *cmd) {
	c.params = "[text]"
	c.help = `Prints the first parenthesized group of the text.

Useful for extracting a BODYSTRUCTURE from a FETCH response. Parentheses in
quoted strings and literals are skipped. If no balanced group is found, the
exit status is 1.
`
	args := c.Parse()
	mustLoadConfig()

	s, err := readInput(args, os.Stdin)
	xcheckf(err, "reading input")
	bs, ok := imapparse.FirstBodyStructure(s)
	if !ok {
		c.log.Info("no balanced parenthesized group found")
		os.Exit(1)
	}
	fmt.Println(bs)
}

func cmdConfigDescribe(c *cmd) {
	c.params = ">imapdecode.conf"
	c.help = `Prints an annotated configuration file.

If -config is set, the values from that file are printed, otherwise the
defaults.
`
	if len(c.Parse()) != 0 {
		c.Usage()
	}
	mustLoadConfig()

	err := config.Describe(conf)
	xcheckf(err, "describing config")
}

func cmdConfigTest(c *cmd) {
	c.params = "[file]"
	c.help = `Parses and validates a configuration file.

The file from the argument, or else from -config is checked. If valid, the
command exits with status 0. If not, the error is printed.
`
	args := c.Parse()
	if len(args) > 1 {
		c.Usage()
	}
	path := configPath
	if len(args) == 1 {
		path = args[0]
	}
	if path == "" {
		log.Fatalf("no config file specified")
	}

	_, err := config.Load(path)
	xcheckf(err, "config")
	fmt.Println("config OK")
}

func cmdVersion(c *cmd) {
	c.help = "Prints this imapdecode version."
	if len(c.Parse()) != 0 {
		c.Usage()
	}
	fmt.Println(version)
}

