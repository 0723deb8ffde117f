package main

import (
	"bufio"
	"fmt"
	"os"

	log "github.com/sirupsen/logrus"

	"github.com/sdcio/xpath3/values"
	"github.com/sdcio/xpath3/vm"
	"github.com/sdcio/xpath3/xpath"
)

// stats tallies how many of a batch of expressions compiled and ran
// without error, for smoke-testing a pile of expressions pulled out of
// some larger document corpus, e.g.:
//
//	find ... -name "*.yang" | xargs perl -lne '/must "(.*)"/ && print $1'
type stats struct {
	total  int
	failed int
}

func (s *stats) String() string {
	if s.total == 0 {
		return "Pass-Ratio: n/a, Total: 0"
	}
	passRatio := float32(s.total-s.failed) * 100 / float32(s.total)
	return fmt.Sprintf("Pass-Ratio: %.2f%%, Total: %d, Pass: %d, Failed: %d",
		passRatio, s.total, s.total-s.failed, s.failed)
}

func main() {
	if len(os.Args) > 1 {
		runFile(os.Args[1])
		return
	}
	runREPL()
}

// runFile batch-evaluates one context-free expression per line.
func runFile(path string) {
	f, err := os.Open(path)
	if err != nil {
		log.WithError(err).Fatal("xpath: could not open expression file")
	}
	defer f.Close()

	s := &stats{}
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := scanner.Text()
		if line == "" {
			continue
		}
		s.total++
		if err := runOne(line); err != nil {
			log.WithError(err).WithField("expr", line).Error("xpath: evaluation failed")
			s.failed++
		}
	}
	fmt.Println(s)
}

// runREPL reads one expression per line from stdin and prints its
// result sequence.
func runREPL() {
	scanner := bufio.NewScanner(os.Stdin)
	for scanner.Scan() {
		line := scanner.Text()
		if line == "" {
			continue
		}
		if err := runOne(line); err != nil {
			log.WithError(err).WithField("expr", line).Error("xpath: evaluation failed")
		}
	}
}

func runOne(expr string) error {
	prog, err := xpath.Compile(expr, nil)
	if err != nil {
		return err
	}
	seq, err := prog.Eval(&vm.Dynamic{})
	if err != nil {
		return err
	}
	fmt.Println(formatSequence(seq))
	return nil
}

func formatSequence(seq values.Sequence) string {
	if len(seq) == 0 {
		return "()"
	}
	out := ""
	for i, it := range seq {
		if i > 0 {
			out += ", "
		}
		switch v := it.(type) {
		case values.AtomicItem:
			out += v.Value.String()
		case values.NodeItem:
			out += v.Value.Name().Local
		}
	}
	return out
}
