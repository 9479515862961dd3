/*
Genrec is a generic LL(1) grammar processor.

It reads an EBNF-style grammar description, builds its production tree,
optionally analyzes it for LL(1) admissibility, and either recognizes a
target input file against it (printing any syntax-directed translation
output along the way) or emits a recursive-descent recognizer in a
generic C-like target language.

Usage:

	genrec [flags] <grammar_file> [<string_file>]

The flags are:

	-c	Run LL(1) analysis (left recursion + conflicts).
	-f	Print FIRST sets to stdout.
	-l	Print FOLLOW sets to stdout.
	-g	Emit a generated recognizer in the target host language.
	-o	Destination file for -g (default stdout).
	-v	Verbose trace: every rule entry and terminal match.
	--cache	Path to a FIRST/FOLLOW cache file; reused across runs when the
		grammar file's contents are unchanged.
	-h	Help and exit.

At least one of -c, -f, -l, -g, or <string_file> must be given.
*/
package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/chzyer/readline"
	"github.com/spf13/pflag"

	"github.com/dekarrin/genrec/internal/genrec/codegen"
	"github.com/dekarrin/genrec/internal/genrec/gramcache"
	"github.com/dekarrin/genrec/internal/genrec/gramlex"
	"github.com/dekarrin/genrec/internal/genrec/grammar"
	"github.com/dekarrin/genrec/internal/genrec/lextarget"
	"github.com/dekarrin/genrec/internal/genrec/outengine"
	"github.com/dekarrin/genrec/internal/genrec/recognize"
	"github.com/dekarrin/genrec/internal/genrec/setengine"
	"github.com/dekarrin/genrec/internal/genrec/termset"
	"github.com/dekarrin/genrec/internal/version"
)

const (
	// ExitSuccess indicates a successful program execution.
	ExitSuccess = iota

	// ExitUsageError indicates bad arguments or flag combinations.
	ExitUsageError

	// ExitGrammarError indicates the grammar file could not be parsed or
	// validated.
	ExitGrammarError

	// ExitRecognitionError indicates the target input was rejected.
	ExitRecognitionError
)

const progName = "genrec"

// rcFile is the optional operator-defaults config genrec looks for in the
// current directory, following the teacher's TOML-config pattern. It never
// changes grammar semantics, only CLI ergonomics.
type rcFile struct {
	DefaultOutput string `toml:"default_output"`
	TraceColor    bool   `toml:"trace_color"`
}

var (
	returnCode = ExitSuccess

	flagCheck   = pflag.BoolP("check", "c", false, "run LL(1) analysis (left recursion + conflicts)")
	flagFirst   = pflag.BoolP("first", "f", false, "print FIRST sets")
	flagFollow  = pflag.BoolP("follow", "l", false, "print FOLLOW sets")
	flagGen     = pflag.BoolP("generate", "g", false, "emit a generated recognizer")
	flagOut     = pflag.StringP("output", "o", "", "destination file for -g (default stdout)")
	flagVerbose = pflag.BoolP("verbose", "v", false, "verbose recognition trace")
	flagVersion = pflag.Bool("version", false, "print version and exit")
	flagCache   = pflag.String("cache", "", "path to a FIRST/FOLLOW cache file to read/write across runs")
)

func main() {
	defer func() {
		if panicErr := recover(); panicErr != nil {
			panic(fmt.Sprintf("unrecoverable panic occurred: %v", panicErr))
		} else {
			os.Exit(returnCode)
		}
	}()

	pflag.Parse()

	if *flagVersion {
		fmt.Printf("%s %s\n", progName, version.Current)
		return
	}

	var rc rcFile
	if _, err := toml.DecodeFile(".genrecrc.toml", &rc); err == nil {
		if *flagOut == "" && rc.DefaultOutput != "" {
			*flagOut = rc.DefaultOutput
		}
	}

	args := pflag.Args()
	if len(args) < 1 {
		fmt.Fprintf(os.Stderr, "%s: error: missing <grammar_file>\n", progName)
		returnCode = ExitUsageError
		return
	}
	grammarFile := args[0]
	var stringFile string
	if len(args) > 1 {
		stringFile = args[1]
	}

	if !*flagCheck && !*flagFirst && !*flagFollow && !*flagGen && stringFile == "" {
		fmt.Fprintf(os.Stderr, "%s: error: at least one of -c, -f, -l, -g, or <string_file> is required\n", progName)
		returnCode = ExitUsageError
		return
	}

	grammarSrc, err := os.ReadFile(grammarFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%s: error: %v\n", progName, err)
		returnCode = ExitGrammarError
		return
	}

	// The target lexer is an injected collaborator (spec.md §6.3); genrec's
	// own CLI supplies the reference toy lexer so the tool is runnable
	// standalone. A grammar file with #name references beyond ident/number/
	// EOF cannot be parsed by this default; embedding genrec as a library
	// with a purpose-built lextarget.Lexer is the intended path for that.
	toyForParse := lextarget.NewToy(strings.NewReader(""))

	parser := grammar.NewParser(gramlex.New(strings.NewReader(string(grammarSrc))), toyForParse)
	reg, err := parser.Parse()
	if err != nil {
		fmt.Fprintf(os.Stderr, "%s: %s: error: %v\n", progName, grammarFile, err)
		returnCode = ExitGrammarError
		return
	}

	fingerprint := gramcache.Fingerprint(grammarSrc)
	cacheHit := false
	if *flagCache != "" {
		if cached, err := gramcache.Load(*flagCache); err == nil && cached.Fingerprint == fingerprint {
			cached.Apply(reg)
			cacheHit = true
		}
	}

	if !cacheHit {
		if err := setengine.Compute(reg); err != nil {
			fmt.Fprintf(os.Stderr, "%s: %s: error: %v\n", progName, grammarFile, err)
			returnCode = ExitGrammarError
			return
		}
		if *flagCache != "" {
			if err := gramcache.Save(*flagCache, gramcache.FromRegistry(reg, fingerprint)); err != nil {
				fmt.Fprintf(os.Stderr, "%s: warning: could not write grammar cache: %v\n", progName, err)
			}
		}
	}

	if *flagCheck {
		if !runCheck(reg, toyForParse, grammarFile) {
			returnCode = ExitGrammarError
			return
		}
	}

	if *flagFirst {
		printFirstSets(reg, toyForParse)
	}

	if *flagFollow {
		printFollowSets(reg, toyForParse)
	}

	if *flagGen {
		if !runGenerate(reg, toyForParse, *flagOut, grammarFile) {
			returnCode = ExitGrammarError
			return
		}
	}

	if stringFile != "" {
		if !runRecognize(reg, toyForParse, stringFile, *flagVerbose) {
			returnCode = ExitRecognitionError
			return
		}
	} else if fi, err := os.Stdin.Stat(); err == nil && fi.Mode()&os.ModeCharDevice != 0 {
		runInteractive(reg, toyForParse)
	}
}

func runCheck(reg *grammar.Registry, target lextarget.Lexer, grammarFile string) bool {
	ok := true
	if reg.Len() <= 64 {
		if err := setengine.CheckLeftRecursion(reg); err != nil {
			fmt.Fprintf(os.Stderr, "%s: %s: error: %v\n", progName, grammarFile, err)
			ok = false
		}
	}
	for _, c := range setengine.CheckConflicts(reg) {
		fmt.Fprintf(os.Stderr, "%s: %s: error: %s\n", progName, grammarFile, c.Render(target))
		ok = false
	}
	return ok
}

func printFirstSets(reg *grammar.Registry, target lextarget.Lexer) {
	for _, r := range reg.Rules() {
		fmt.Printf("FIRST(%s) = %s\n", r.Name, renderSet(r.FirstSet, target))
	}
}

func printFollowSets(reg *grammar.Registry, target lextarget.Lexer) {
	for _, r := range reg.Rules() {
		fmt.Printf("FOLLOW(%s) = %s\n", r.Name, renderSet(r.Follow, target))
	}
}

// renderSet renders s as spec.md §6.1's `{ terminal-print-forms[, epsilon] }`
// form, using target to resolve each terminal id to its printable spelling.
func renderSet(s termset.Set, target lextarget.Lexer) string {
	members := s.Members()
	parts := make([]string, len(members))
	for i, id := range members {
		parts[i] = target.IDToPrint(id)
	}
	if s.HasEpsilon() {
		parts = append(parts, "epsilon")
	}
	return "{ " + strings.Join(parts, ", ") + " }"
}

func runGenerate(reg *grammar.Registry, target lextarget.Lexer, outPath, grammarFile string) bool {
	gen := codegen.New(reg, target)
	src, err := gen.Generate()
	if err != nil {
		fmt.Fprintf(os.Stderr, "%s: %s: error: %v\n", progName, grammarFile, err)
		return false
	}

	if outPath == "" {
		fmt.Print(src)
		return true
	}
	if err := os.WriteFile(outPath, []byte(src), 0o644); err != nil {
		fmt.Fprintf(os.Stderr, "%s: error: %v\n", progName, err)
		return false
	}
	return true
}

func runRecognize(reg *grammar.Registry, target *lextarget.Toy, stringFile string, verbose bool) bool {
	sf, err := os.Open(stringFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%s: error: %v\n", progName, err)
		return false
	}
	defer sf.Close()

	// Reuse the same Toy that parsed the grammar, re-pointed at the target
	// input, so literal terminal ids assigned during parsing (spec.md §6.2's
	// keyword auto-registration) stay valid at recognition time instead of
	// being silently re-derived from scratch by a second, empty Toy.
	target.SetReader(sf)
	out := outengine.New(os.Stdout)
	rec := recognize.New(reg, target, out, progName)
	if verbose {
		rec.SetTrace(os.Stderr)
	}

	ok, err := rec.Run()
	if err != nil {
		fmt.Fprintf(os.Stderr, "%s: %s: error: %v\n", progName, stringFile, err)
		return false
	}
	return ok
}

// runInteractive is a supplement to batch-file recognition: when -c/-f/-l/-g
// were given without a <string_file> and stdin is a tty, read successive
// lines via readline and recognize each independently.
func runInteractive(reg *grammar.Registry, target *lextarget.Toy) {
	rl, err := readline.New("genrec> ")
	if err != nil {
		return
	}
	defer rl.Close()

	for {
		line, err := rl.Readline()
		if err != nil {
			return
		}
		if strings.TrimSpace(line) == "" {
			continue
		}
		// Reuse the parse-time Toy, not a fresh one, for the same reason as
		// runRecognize: literal terminal ids must stay stable across calls.
		target.SetReader(strings.NewReader(line))
		out := outengine.New(os.Stdout)
		rec := recognize.New(reg, target, out, progName)
		ok, err := rec.Run()
		if err != nil {
			fmt.Printf("reject: %v\n", err)
			continue
		}
		if ok {
			fmt.Println("accept")
		} else {
			fmt.Println("reject")
		}
	}
}
