package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/google/uuid"
	"github.com/phrazzld/vocab-drill/internal/domain/session"
	"github.com/phrazzld/vocab-drill/internal/service/quiz"
)

const (
	quitCommand = ":q"
	skipCommand = ":s"
)

// drill is one interactive session. It keeps only the working set; every
// answer goes straight to the service.
type drill struct {
	svc  quiz.Service
	user uuid.UUID
	in   *bufio.Scanner
	out  io.Writer

	answered int
	correct  int
}

func newDrill(svc quiz.Service, user uuid.UUID, in io.Reader, out io.Writer) *drill {
	return &drill{svc: svc, user: user, in: bufio.NewScanner(in), out: out}
}

func (d *drill) listLevels(ctx context.Context) error {
	summaries, err := d.svc.FetchLevels(ctx, d.user)
	if err != nil {
		return err
	}
	if len(summaries) == 0 {
		fmt.Fprintln(d.out, "No levels imported yet.")
		return nil
	}
	fmt.Fprintf(d.out, "%-12s %6s %6s %6s %6s\n", "LEVEL", "TOTAL", "PASSED", "FAILED", "DONE")
	for _, s := range summaries {
		fmt.Fprintf(d.out, "%-12s %6d %6d %6d %5d%%\n", s.LevelID, s.Total, s.Passed, s.Failed, s.Percentage)
	}
	return nil
}

// run asks questions until stdin ends or the user quits, then prints the
// level summary.
func (d *drill) run(ctx context.Context, levelID string) error {
	ws, err := d.svc.Session(ctx, d.user, levelID)
	if err != nil {
		return err
	}
	if ws.Len() == 0 {
		fmt.Fprintf(d.out, "Level %s has no questions.\n", levelID)
		return nil
	}
	fmt.Fprintf(d.out, "Drilling %s. Type %s to skip, %s to quit.\n", levelID, skipCommand, quitCommand)

	mode := ws.Mode
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		item, ok := ws.Current()
		if !ok {
			break
		}
		if ws.Mode != mode {
			if ws.Mode == session.ModeReviewAll {
				fmt.Fprintln(d.out, "\nEverything passed. Reviewing the level.")
			}
			mode = ws.Mode
		}

		d.ask(item)
		line, ok := d.readLine()
		if !ok || line == quitCommand {
			break
		}
		if line == skipCommand {
			ws = skip(ws)
			continue
		}

		res, err := d.svc.SubmitAnswer(ctx, d.user, quiz.Submission{
			QuestionID: item.Question.ID,
			Answer:     line,
		})
		if err != nil {
			return err
		}
		d.answered++
		if res.Correct {
			d.correct++
			fmt.Fprintln(d.out, "Correct!")
		} else {
			fmt.Fprintf(d.out, "Wrong, the answer is: %s\n", item.Question.CanonicalAnswer)
		}

		ws, err = d.svc.Advance(ctx, d.user, levelID, ws, res.Correct)
		if err != nil {
			return err
		}
	}

	return d.summary(ctx, levelID)
}

func (d *drill) ask(item session.Item) {
	q := item.Question
	fmt.Fprintf(d.out, "\n%s\n", q.BlankSentence)
	if q.EnglishSentence != "" {
		fmt.Fprintf(d.out, "  (%s)\n", q.EnglishSentence)
	}
	if q.EnglishTranslation != "" {
		fmt.Fprintf(d.out, "  hint: %s\n", q.EnglishTranslation)
	}
	fmt.Fprint(d.out, "> ")
}

func (d *drill) readLine() (string, bool) {
	if !d.in.Scan() {
		return "", false
	}
	return strings.TrimSpace(d.in.Text()), true
}

func (d *drill) summary(ctx context.Context, levelID string) error {
	s, err := d.svc.LevelSummary(ctx, d.user, levelID)
	if err != nil {
		return err
	}
	fmt.Fprintf(d.out, "\nAnswered %d, %d correct.\n", d.answered, d.correct)
	fmt.Fprintf(d.out, "%s: %d/%d passed, %d failed, %d remaining (%d%%)\n",
		s.LevelID, s.Passed, s.Total, s.Failed, s.Remaining, s.Percentage)
	return nil
}

// skip moves the current item to the back of the set without recording
// anything.
func skip(ws session.WorkingSet) session.WorkingSet {
	if ws.Len() < 2 {
		return ws
	}
	items := make([]session.Item, 0, ws.Len())
	items = append(items, ws.Items[:ws.Position]...)
	items = append(items, ws.Items[ws.Position+1:]...)
	items = append(items, ws.Items[ws.Position])
	pos := ws.Position
	if pos >= len(items)-1 {
		pos = 0
	}
	return session.WorkingSet{Mode: ws.Mode, Items: items, Position: pos}
}
