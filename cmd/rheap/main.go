package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/term"

	"github.com/wippyai/rbridge/heap"
)

func main() {
	var (
		threshold   = flag.Int("threshold", heap.DefaultAltrepThreshold, "Length at which vectors become lazy")
		pages       = flag.Uint("pages", heap.DefaultMemoryLimitPages, "Memory limit in 64KiB pages")
		workers     = flag.Int("workers", 0, "Materialization workers (0 = GOMAXPROCS)")
		torture     = flag.Bool("torture", false, "Collect before every allocation")
		script      = flag.String("script", "", "File with commands, one per line")
		verbose     = flag.Bool("v", false, "Debug logging")
		interactive = flag.Bool("i", false, "Interactive mode with TUI")
	)
	flag.Usage = func() {
		fmt.Fprintln(os.Stderr, "Usage: rheap [flags] ['cmd; cmd; ...']")
		fmt.Fprintln(os.Stderr, "       rheap -script <file>")
		fmt.Fprintln(os.Stderr, "       rheap -i  (interactive mode)")
		fmt.Fprintln(os.Stderr)
		flag.PrintDefaults()
		fmt.Fprintln(os.Stderr)
		fmt.Fprintln(os.Stderr, usage)
	}
	flag.Parse()

	logger := zap.NewNop()
	if *verbose {
		l, err := zap.NewDevelopment()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		logger = l
	}
	defer logger.Sync()
	heap.SetLogger(logger)

	cfg := &heap.Config{
		AltrepThreshold:  *threshold,
		MemoryLimitPages: uint32(*pages),
		Workers:          *workers,
		Torture:          *torture,
		FinalizeOnClose:  true,
	}
	if err := run(cfg, *script, *interactive, flag.Args()); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(cfg *heap.Config, scriptFile string, interactive bool, args []string) error {
	ctx := context.Background()

	h, err := heap.NewWithConfig(ctx, cfg)
	if err != nil {
		return fmt.Errorf("create heap: %w", err)
	}
	s := newSession(ctx, h)
	defer func() {
		s.close()
		_ = h.Close(ctx)
		for _, note := range s.notes {
			fmt.Println(note)
		}
	}()

	var in io.Reader
	switch {
	case interactive:
		return runInteractive(s)
	case scriptFile != "":
		f, err := os.Open(scriptFile)
		if err != nil {
			return fmt.Errorf("open script: %w", err)
		}
		defer f.Close()
		in = f
	case len(args) > 0:
		in = strings.NewReader(strings.ReplaceAll(strings.Join(args, " "), ";", "\n"))
	case !term.IsTerminal(int(os.Stdin.Fd())):
		in = os.Stdin
	default:
		return runInteractive(s)
	}

	if failed := runScript(os.Stdout, s, in); failed > 0 {
		return fmt.Errorf("%d command(s) failed", failed)
	}
	return nil
}

// runScript executes commands line by line and returns the number that
// failed. Blank lines and lines starting with # are skipped.
func runScript(w io.Writer, s *session, r io.Reader) int {
	failed := 0
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		if line == "quit" || line == "exit" {
			break
		}
		fmt.Fprintf(w, "> %s\n", line)
		out, err := s.exec(line)
		if out != "" {
			fmt.Fprintln(w, out)
		}
		if err != nil {
			fmt.Fprintf(w, "error: %v\n", err)
			failed++
		}
	}
	if err := sc.Err(); err != nil {
		fmt.Fprintf(w, "error: %v\n", err)
		failed++
	}
	return failed
}
