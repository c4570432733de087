package console

import (
	"context"
	"strings"
	"testing"

	"github.com/s4lvi/historyengine-sub002/command"
	"github.com/s4lvi/historyengine-sub002/matrix"
)

func TestParseLineFoundNation(t *testing.T) {
	c, err := parseLine("found alice 5 6")
	if err != nil {
		t.Fatalf("parseLine: %v", err)
	}
	if c.Kind != command.FoundNation || c.Owner != "alice" || c.X != 5 || c.Y != 6 {
		t.Fatalf("unexpected command: %+v", c)
	}
}

func TestParseLineBuildCity(t *testing.T) {
	c, err := parseLine("build alice 5 6 Anchorhold capital")
	if err != nil {
		t.Fatalf("parseLine: %v", err)
	}
	if c.Kind != command.BuildCity || c.Name != "Anchorhold" || c.Type != matrix.CityCapital {
		t.Fatalf("unexpected command: %+v", c)
	}
}

func TestParseLineIssueAttackMultiWaypoint(t *testing.T) {
	c, err := parseLine("attack alice 1,1;10,10;20,5 0.5 3")
	if err != nil {
		t.Fatalf("parseLine: %v", err)
	}
	if c.Kind != command.IssueAttack || len(c.Path) != 3 || c.Percent != 0.5 || c.CorridorHalfWidth != 3 {
		t.Fatalf("unexpected command: %+v", c)
	}
	if c.Path[1].X != 10 || c.Path[1].Y != 10 {
		t.Fatalf("unexpected waypoint: %+v", c.Path[1])
	}
}

func TestParseLineRejectsUnknownCommand(t *testing.T) {
	if _, err := parseLine("conquer alice 1 1"); err == nil {
		t.Fatal("expected an error for an unknown command")
	}
}

func TestParseLineRejectsShortPath(t *testing.T) {
	if _, err := parseLine("attack alice 1,1 0.5"); err == nil {
		t.Fatal("expected an error for a single-waypoint path")
	}
}

func TestConsoleExecutePushesParsedCommandAndWaitsForResult(t *testing.T) {
	q := command.NewQueue()
	c := New(q, nil)

	done := make(chan struct{})
	go func() {
		c.execute("found alice 1 1")
		close(done)
	}()

	pending := q.Drain()
	for len(pending) == 0 {
		pending = q.Drain()
	}
	if len(pending) != 1 || pending[0].Kind != command.FoundNation {
		t.Fatalf("unexpected pending commands: %+v", pending)
	}
	pending[0].Result <- nil
	<-done
}

func TestRunScannerProcessesPipedLines(t *testing.T) {
	q := command.NewQueue()
	c := New(q, nil).WithReader(strings.NewReader("found alice 1 1\nfound bob 2 2\n"))

	results := make(chan error, 2)
	go func() {
		for i := 0; i < 2; i++ {
			cmds := q.Drain()
			for len(cmds) == 0 {
				cmds = q.Drain()
			}
			for _, cmd := range cmds {
				cmd.Result <- nil
				results <- nil
			}
		}
	}()

	c.Run(context.Background())
	<-results
	<-results
}
