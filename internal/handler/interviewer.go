package handler

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"
	"sync"
)

// QuestionType enumerates the shapes of question a wait.human node may pose
// (spec §6.1).
type QuestionType string

const (
	QuestionYesNo         QuestionType = "YES_NO"
	QuestionMultipleChoice QuestionType = "MULTIPLE_CHOICE"
	QuestionFreeform       QuestionType = "FREEFORM"
	QuestionConfirmation   QuestionType = "CONFIRMATION"
)

// Question is posed to an Interviewer.
type Question struct {
	StageID string
	Text    string
	Type    QuestionType
	Options []string
}

// Answer is an Interviewer's response.
type Answer struct {
	Selected string
	Freeform string
}

// Interviewer is the injected human-decision collaborator for wait.human
// nodes (spec §6.1).
type Interviewer interface {
	Ask(ctx context.Context, q Question) (Answer, error)
	AskMultiple(ctx context.Context, qs []Question) ([]Answer, error)
}

// AutoApproveInterviewer picks the first option (or "yes" for a YES_NO
// question) without any external input. Useful for unattended runs and
// tests.
type AutoApproveInterviewer struct{}

// Ask returns the first option, or "yes" if none are given.
func (AutoApproveInterviewer) Ask(_ context.Context, q Question) (Answer, error) {
	if q.Type == QuestionYesNo || q.Type == QuestionConfirmation {
		return Answer{Selected: "yes"}, nil
	}
	if len(q.Options) > 0 {
		return Answer{Selected: q.Options[0]}, nil
	}
	return Answer{Selected: "yes"}, nil
}

// AskMultiple delegates each question to Ask in order.
func (a AutoApproveInterviewer) AskMultiple(ctx context.Context, qs []Question) ([]Answer, error) {
	out := make([]Answer, len(qs))
	for i, q := range qs {
		ans, err := a.Ask(ctx, q)
		if err != nil {
			return nil, err
		}
		out[i] = ans
	}
	return out, nil
}

// QueueInterviewer pops pre-supplied answers in FIFO order, for scripted
// test runs.
type QueueInterviewer struct {
	mu      sync.Mutex
	answers []Answer
}

// NewQueueInterviewer returns a QueueInterviewer pre-loaded with answers.
func NewQueueInterviewer(answers ...Answer) *QueueInterviewer {
	return &QueueInterviewer{answers: answers}
}

// Ask pops and returns the next queued answer.
func (q *QueueInterviewer) Ask(_ context.Context, _ Question) (Answer, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.answers) == 0 {
		return Answer{}, fmt.Errorf("queue interviewer: no answers queued")
	}
	ans := q.answers[0]
	q.answers = q.answers[1:]
	return ans, nil
}

// AskMultiple pops one answer per question.
func (q *QueueInterviewer) AskMultiple(ctx context.Context, qs []Question) ([]Answer, error) {
	out := make([]Answer, len(qs))
	for i, qq := range qs {
		ans, err := q.Ask(ctx, qq)
		if err != nil {
			return nil, err
		}
		out[i] = ans
	}
	return out, nil
}

// CallbackInterviewer delegates to a caller-supplied function, for embedding
// attractor inside a host application with its own UI.
type CallbackInterviewer struct {
	Func func(ctx context.Context, q Question) (Answer, error)
}

// Ask calls Func.
func (c CallbackInterviewer) Ask(ctx context.Context, q Question) (Answer, error) {
	return c.Func(ctx, q)
}

// AskMultiple calls Func once per question.
func (c CallbackInterviewer) AskMultiple(ctx context.Context, qs []Question) ([]Answer, error) {
	out := make([]Answer, len(qs))
	for i, q := range qs {
		ans, err := c.Func(ctx, q)
		if err != nil {
			return nil, err
		}
		out[i] = ans
	}
	return out, nil
}

// QARecord is one recorded question/answer pair.
type QARecord struct {
	Question Question
	Answer   Answer
}

// RecordingInterviewer wraps another Interviewer and appends every Q/A pair
// it observes to a shared log, for audit trails and replay.
type RecordingInterviewer struct {
	Inner Interviewer

	mu  sync.Mutex
	log []QARecord
}

// NewRecordingInterviewer wraps inner.
func NewRecordingInterviewer(inner Interviewer) *RecordingInterviewer {
	return &RecordingInterviewer{Inner: inner}
}

// Ask delegates to Inner and records the pair.
func (r *RecordingInterviewer) Ask(ctx context.Context, q Question) (Answer, error) {
	ans, err := r.Inner.Ask(ctx, q)
	if err != nil {
		return ans, err
	}
	r.mu.Lock()
	r.log = append(r.log, QARecord{Question: q, Answer: ans})
	r.mu.Unlock()
	return ans, nil
}

// AskMultiple delegates to Inner and records each pair.
func (r *RecordingInterviewer) AskMultiple(ctx context.Context, qs []Question) ([]Answer, error) {
	answers, err := r.Inner.AskMultiple(ctx, qs)
	if err != nil {
		return nil, err
	}
	r.mu.Lock()
	for i, q := range qs {
		if i < len(answers) {
			r.log = append(r.log, QARecord{Question: q, Answer: answers[i]})
		}
	}
	r.mu.Unlock()
	return answers, nil
}

// Log returns a copy of every recorded Q/A pair, in order.
func (r *RecordingInterviewer) Log() []QARecord {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]QARecord, len(r.log))
	copy(out, r.log)
	return out
}

// TerminalInterviewer reads answers from an io.Reader and writes prompts to
// an io.Writer; it need not be a real TTY, which keeps it testable.
type TerminalInterviewer struct {
	In  *bufio.Reader
	Out io.Writer
}

// NewTerminalInterviewer wraps r/w.
func NewTerminalInterviewer(r io.Reader, w io.Writer) *TerminalInterviewer {
	return &TerminalInterviewer{In: bufio.NewReader(r), Out: w}
}

// Ask writes the question and options to Out, then reads a line from In.
func (t *TerminalInterviewer) Ask(_ context.Context, q Question) (Answer, error) {
	fmt.Fprintf(t.Out, "%s\n", q.Text)
	for i, opt := range q.Options {
		fmt.Fprintf(t.Out, "  %d) %s\n", i+1, opt)
	}
	fmt.Fprint(t.Out, "> ")
	line, err := t.In.ReadString('\n')
	if err != nil && err != io.EOF {
		return Answer{}, fmt.Errorf("terminal interviewer: %w", err)
	}
	line = strings.TrimSpace(line)
	if q.Type == QuestionFreeform {
		return Answer{Freeform: line}, nil
	}
	return Answer{Selected: line}, nil
}

// AskMultiple asks each question in turn.
func (t *TerminalInterviewer) AskMultiple(ctx context.Context, qs []Question) ([]Answer, error) {
	out := make([]Answer, len(qs))
	for i, q := range qs {
		ans, err := t.Ask(ctx, q)
		if err != nil {
			return nil, err
		}
		out[i] = ans
	}
	return out, nil
}
