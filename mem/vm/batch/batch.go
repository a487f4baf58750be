// Package batch runs the text workflow of the translator: an init file that
// loads the tables, a query stream of raw addresses, and an output line of
// physical addresses.
package batch

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/sarchlab/segvm/mem/vm"
	"github.com/sarchlab/segvm/mem/vm/mmu"
)

// Policy decides what a batch does with a translation that fails.
type Policy int

// Policies for failed translations.
const (
	// PolicyAbort stops the batch at the first failure. Nothing is written.
	PolicyAbort Policy = iota

	// PolicySentinel writes the sentinel for addresses that are out of
	// bounds or not initialized and keeps going. Other failures still abort.
	PolicySentinel
)

// DefaultSentinel is written in place of a failed translation under
// PolicySentinel unless Options says otherwise.
const DefaultSentinel = -1

// ParsePolicy reads a policy name, "abort" or "sentinel".
func ParsePolicy(s string) (Policy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "abort":
		return PolicyAbort, nil
	case "sentinel":
		return PolicySentinel, nil
	default:
		return 0, fmt.Errorf("unknown policy %q", s)
	}
}

func (p Policy) String() string {
	switch p {
	case PolicyAbort:
		return "abort"
	case PolicySentinel:
		return "sentinel"
	default:
		return "Policy(" + strconv.Itoa(int(p)) + ")"
	}
}

// A Progress is told when an address starts and when it has been handled.
type Progress interface {
	IncrementInProgress(amount uint64)
	MoveInProgressToFinished(amount uint64)
}

// Options configure a batch run.
type Options struct {
	Policy   Policy
	Sentinel int64

	// Progress is optional.
	Progress Progress
}

// DefaultOptions aborts on the first failure and uses DefaultSentinel.
func DefaultOptions() Options {
	return Options{
		Policy:   PolicyAbort,
		Sentinel: DefaultSentinel,
	}
}

// LoadInit reads the init stream. The first line holds segment-table
// triples and the second line page-table triples. A missing line is an
// empty table.
func LoadInit(
	r io.Reader,
) ([]vm.SegmentTableEntry, []vm.PageTableEntry, error) {
	reader := bufio.NewReader(r)

	segmentLine, err := readLine(reader)
	if err != nil {
		return nil, nil, err
	}

	pageLine, err := readLine(reader)
	if err != nil {
		return nil, nil, err
	}

	segments, err := vm.ParseSegmentTableLine(segmentLine)
	if err != nil {
		return nil, nil, fmt.Errorf("segment table: %w", err)
	}

	pages, err := vm.ParsePageTableLine(pageLine)
	if err != nil {
		return nil, nil, fmt.Errorf("page table: %w", err)
	}

	return segments, pages, nil
}

func readLine(r *bufio.Reader) (string, error) {
	line, err := r.ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", err
	}

	return line, nil
}

// Run translates every whitespace-separated decimal address of queries, in
// order, and writes the results space-separated on one newline-terminated
// line. When the batch aborts, the error names the failing address and
// nothing is written.
func Run(
	t mmu.Translator,
	queries io.Reader,
	out io.Writer,
	opts Options,
) error {
	scanner := bufio.NewScanner(queries)
	scanner.Split(bufio.ScanWords)

	results := make([]string, 0)

	for index := 0; scanner.Scan(); index++ {
		token := scanner.Text()

		if opts.Progress != nil {
			opts.Progress.IncrementInProgress(1)
		}

		result, err := translateToken(t, token, opts)

		if opts.Progress != nil {
			opts.Progress.MoveInProgressToFinished(1)
		}

		if err != nil {
			return fmt.Errorf("address #%d (%s): %w", index, token, err)
		}

		results = append(results, result)
	}

	err := scanner.Err()
	if err != nil {
		return err
	}

	_, err = io.WriteString(out, strings.Join(results, " ")+"\n")

	return err
}

func translateToken(
	t mmu.Translator,
	token string,
	opts Options,
) (string, error) {
	va, err := vm.ParseVirtualAddress(token)
	if err != nil {
		return "", err
	}

	physical, err := t.Translate(va)
	if err == nil {
		return strconv.FormatUint(uint64(physical), 10), nil
	}

	if opts.Policy == PolicySentinel && isSkippable(err) {
		return strconv.FormatInt(opts.Sentinel, 10), nil
	}

	return "", err
}

func isSkippable(err error) bool {
	return errors.Is(err, vm.ErrVirtualAddressOutOfBounds) ||
		errors.Is(err, vm.ErrMemoryNotInitialized)
}
