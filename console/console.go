// Package console implements the operator-facing command line of
// SPEC_FULL.md §4.10: a Reader-backed line loop that parses operator input
// into command.Command values and pushes them onto a match's command.Queue,
// grounded in the teacher's server/console/console.go (Reader-backed loop,
// history, logger-routed output, go-prompt for interactive sessions).
package console

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sort"
	"strconv"
	"strings"

	prompt "github.com/c-bata/go-prompt"

	"github.com/s4lvi/historyengine-sub002/command"
	"github.com/s4lvi/historyengine-sub002/matrix"
)

const (
	defaultPromptPrefix = "> "
	maxHistoryEntries   = 128
)

// Console reads operator commands from an io.Reader (os.Stdin by default)
// and pushes parsed command.Command values onto a queue. It does not run
// commands itself; the match's own tick loop drains the queue.
type Console struct {
	queue   *command.Queue
	log     *slog.Logger
	reader  io.Reader
	history []string
}

// New returns a Console that pushes parsed commands onto q.
func New(q *command.Queue, log *slog.Logger) *Console {
	if log == nil {
		log = slog.Default()
	}
	return &Console{queue: q, log: log, reader: os.Stdin}
}

// WithReader overrides the input source (for tests; production use reads
// os.Stdin).
func (c *Console) WithReader(r io.Reader) *Console {
	if r != nil {
		c.reader = r
	}
	return c
}

// Run consumes lines until ctx is cancelled or the reader reaches EOF. When
// the reader is os.Stdin, it runs an interactive go-prompt session with
// command-name completion; otherwise it scans line by line, which is what
// tests and piped input use.
func (c *Console) Run(ctx context.Context) {
	if c.reader != os.Stdin {
		c.runScanner(ctx)
		return
	}
	c.runInteractive(ctx)
}

func (c *Console) runScanner(ctx context.Context) {
	scanner := bufio.NewScanner(c.reader)
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}
		if !scanner.Scan() {
			if err := scanner.Err(); err != nil {
				c.log.Error("console input error", "err", err)
			}
			return
		}
		c.execute(strings.TrimSpace(scanner.Text()))
	}
}

func (c *Console) runInteractive(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}
		line := prompt.Input(defaultPromptPrefix, c.complete,
			prompt.OptionTitle("territory console"),
			prompt.OptionHistory(c.history),
			prompt.OptionPrefix(defaultPromptPrefix),
			prompt.OptionCompletionOnDown(),
			prompt.OptionMaxSuggestion(12),
		)
		c.execute(strings.TrimSpace(line))
	}
}

func (c *Console) execute(line string) {
	if line == "" {
		return
	}
	c.history = append(c.history, line)
	if len(c.history) > maxHistoryEntries {
		c.history = c.history[len(c.history)-maxHistoryEntries:]
	}
	cmd, err := parseLine(line)
	if err != nil {
		c.log.Error("console command rejected", "line", line, "err", err)
		return
	}
	result := make(chan error, 1)
	cmd.Result = result
	c.queue.Push(cmd)
	if err := <-result; err != nil {
		c.log.Error("command failed", "line", line, "err", err)
	}
}

var commandNames = []string{"found", "build", "attack", "reinforce", "retreat", "clear"}

func (c *Console) complete(doc prompt.Document) []prompt.Suggest {
	word := doc.GetWordBeforeCursor()
	suggestions := make([]prompt.Suggest, 0, len(commandNames))
	for _, name := range commandNames {
		suggestions = append(suggestions, prompt.Suggest{Text: name})
	}
	sort.Slice(suggestions, func(i, j int) bool { return suggestions[i].Text < suggestions[j].Text })
	return prompt.FilterHasPrefix(suggestions, word, true)
}

// parseLine turns one operator-typed line into a command.Command per
// SPEC_FULL.md §4.10's console grammar:
//
//	found <owner> <x> <y>
//	build <owner> <x> <y> <name> <town|tower|capital>
//	attack <owner> <x0,y0;x1,y1[;x2,y2...]> <percent> [corridorHalfWidth]
//	reinforce <owner> <arrowID> <percentDelta>
//	retreat <owner> <arrowID>
//	clear <owner> <arrowID>
func parseLine(line string) (command.Command, error) {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return command.Command{}, fmt.Errorf("console: empty command")
	}
	owner := ""
	if len(fields) > 1 {
		owner = fields[1]
	}
	switch strings.ToLower(fields[0]) {
	case "found":
		if len(fields) != 4 {
			return command.Command{}, fmt.Errorf("console: usage: found <owner> <x> <y>")
		}
		x, y, err := parseXY(fields[2], fields[3])
		if err != nil {
			return command.Command{}, err
		}
		return command.Command{Kind: command.FoundNation, Owner: owner, X: x, Y: y}, nil

	case "build":
		if len(fields) != 6 {
			return command.Command{}, fmt.Errorf("console: usage: build <owner> <x> <y> <name> <town|tower|capital>")
		}
		x, y, err := parseXY(fields[2], fields[3])
		if err != nil {
			return command.Command{}, err
		}
		typ, err := parseCityType(fields[5])
		if err != nil {
			return command.Command{}, err
		}
		return command.Command{Kind: command.BuildCity, Owner: owner, X: x, Y: y, Name: fields[4], Type: typ}, nil

	case "attack":
		if len(fields) < 4 {
			return command.Command{}, fmt.Errorf("console: usage: attack <owner> <x0,y0;x1,y1;...> <percent> [corridorHalfWidth]")
		}
		path, err := parsePath(fields[2])
		if err != nil {
			return command.Command{}, err
		}
		percent, err := strconv.ParseFloat(fields[3], 64)
		if err != nil {
			return command.Command{}, fmt.Errorf("console: bad percent %q: %w", fields[3], err)
		}
		half := 0.0
		if len(fields) >= 5 {
			half, err = strconv.ParseFloat(fields[4], 64)
			if err != nil {
				return command.Command{}, fmt.Errorf("console: bad corridorHalfWidth %q: %w", fields[4], err)
			}
		}
		return command.Command{Kind: command.IssueAttack, Owner: owner, Path: path, Percent: percent, CorridorHalfWidth: half}, nil

	case "reinforce":
		if len(fields) != 4 {
			return command.Command{}, fmt.Errorf("console: usage: reinforce <owner> <arrowID> <percentDelta>")
		}
		id, err := matrix.ParseArrowID(fields[2])
		if err != nil {
			return command.Command{}, err
		}
		delta, err := strconv.ParseFloat(fields[3], 64)
		if err != nil {
			return command.Command{}, fmt.Errorf("console: bad percentDelta %q: %w", fields[3], err)
		}
		return command.Command{Kind: command.ReinforceArrow, Owner: owner, ArrowID: id, PercentDelta: delta}, nil

	case "retreat":
		if len(fields) != 3 {
			return command.Command{}, fmt.Errorf("console: usage: retreat <owner> <arrowID>")
		}
		id, err := matrix.ParseArrowID(fields[2])
		if err != nil {
			return command.Command{}, err
		}
		return command.Command{Kind: command.RetreatArrow, Owner: owner, ArrowID: id}, nil

	case "clear":
		if len(fields) != 3 {
			return command.Command{}, fmt.Errorf("console: usage: clear <owner> <arrowID>")
		}
		id, err := matrix.ParseArrowID(fields[2])
		if err != nil {
			return command.Command{}, err
		}
		return command.Command{Kind: command.ClearArrow, Owner: owner, ArrowID: id}, nil

	default:
		return command.Command{}, fmt.Errorf("console: unknown command %q", fields[0])
	}
}

func parseXY(xs, ys string) (int, int, error) {
	x, err := strconv.Atoi(xs)
	if err != nil {
		return 0, 0, fmt.Errorf("console: bad x %q: %w", xs, err)
	}
	y, err := strconv.Atoi(ys)
	if err != nil {
		return 0, 0, fmt.Errorf("console: bad y %q: %w", ys, err)
	}
	return x, y, nil
}

func parseCityType(s string) (matrix.CityType, error) {
	switch strings.ToLower(s) {
	case "town":
		return matrix.CityTown, nil
	case "tower":
		return matrix.CityTower, nil
	case "capital":
		return matrix.CityCapital, nil
	default:
		return 0, fmt.Errorf("console: unknown city type %q", s)
	}
}

func parsePath(s string) ([]matrix.Point, error) {
	waypoints := strings.Split(s, ";")
	path := make([]matrix.Point, 0, len(waypoints))
	for _, wp := range waypoints {
		coords := strings.Split(wp, ",")
		if len(coords) != 2 {
			return nil, fmt.Errorf("console: bad waypoint %q", wp)
		}
		x, y, err := parseXY(coords[0], coords[1])
		if err != nil {
			return nil, err
		}
		path = append(path, matrix.Point{X: x, Y: y})
	}
	if len(path) < 2 {
		return nil, fmt.Errorf("console: path needs at least two waypoints")
	}
	return path, nil
}
