package render

import (
	"image/color"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"golang.org/x/term"
)

type DefaultRenderer struct {
	// Out and Fd default to standard output.
	Out io.Writer
	Fd  int

	buffer       strings.Builder
	restoreState *term.State
	decorations  []*decoration
}

type decoration struct {
	X, Y    uint16
	Content string
	Frames  int // remaining frames until removed
}

func NewDefault() *DefaultRenderer {
	return &DefaultRenderer{Out: os.Stdout, Fd: int(os.Stdout.Fd())}
}

func (r *DefaultRenderer) Init() error {
	state, err := term.MakeRaw(r.Fd)
	if nil != err {
		return err
	}
	r.restoreState = state

	r.buffer.WriteString("\033[?1049h") // Enable alternate buffer
	r.buffer.WriteString("\033[?25l")   // Make the cursor invisible
	r.buffer.WriteString("\033[J")      // Clear the screen
	return r.flush()
}

func (r *DefaultRenderer) Deinit() error {
	r.buffer.WriteString("\033[?1049l") // Disable alternate buffer
	r.buffer.WriteString("\033[?25h")   // Make the cursor visible
	if err := r.flush(); nil != err {
		return err
	}
	if nil == r.restoreState {
		return nil
	}
	return term.Restore(r.Fd, r.restoreState)
}

func (r *DefaultRenderer) Size() (int, int, error) {
	return term.GetSize(r.Fd)
}

func (r *DefaultRenderer) AddDecoration(col, row uint16, content string, frames int) {
	r.decorations = append(r.decorations, &decoration{
		X:       col,
		Y:       row,
		Content: content,
		Frames:  frames,
	})
	r.Fill(row, col, content)
}

func (r *DefaultRenderer) tickDecorations() {
	nd := make([]*decoration, 0, len(r.decorations))
	for _, d := range r.decorations {
		if d.Frames == 0 {
			r.Fill(d.Y, d.X, strings.Repeat(" ", visibleWidth(d.Content)))
			continue
		}
		nd = append(nd, d)
		d.Frames--
	}
	r.decorations = nd
}

func (r *DefaultRenderer) RenderLoop(period time.Duration, render func() bool) {
	cont := true
	for cont {
		deadline := time.Now().Add(period)

		cont = render()

		r.tickDecorations()
		r.flush()

		time.Sleep(time.Until(deadline))
	}
}

func (r *DefaultRenderer) Fill(row, column uint16, message string) {
	r.buffer.WriteString("\033[")
	r.buffer.WriteString(strconv.FormatInt(int64(row), 10))
	r.buffer.WriteString(";")
	r.buffer.WriteString(strconv.FormatInt(int64(column), 10))
	r.buffer.WriteString("H")
	r.buffer.WriteString(message)
}

func (r *DefaultRenderer) FillColor(row, column uint16, c color.RGBA, message string) {
	r.buffer.WriteString("\033[")
	r.buffer.WriteString(strconv.FormatInt(int64(row), 10))
	r.buffer.WriteString(";")
	r.buffer.WriteString(strconv.FormatInt(int64(column), 10))
	r.buffer.WriteString("H\033[38;2;")
	r.buffer.WriteString(strconv.FormatInt(int64(c.R), 10))
	r.buffer.WriteString(";")
	r.buffer.WriteString(strconv.FormatInt(int64(c.G), 10))
	r.buffer.WriteString(";")
	r.buffer.WriteString(strconv.FormatInt(int64(c.B), 10))
	r.buffer.WriteString("m")
	r.buffer.WriteString(message)
	r.buffer.WriteString("\033[0m")
}

func (r *DefaultRenderer) flush() error {
	_, err := io.WriteString(r.Out, r.buffer.String())
	r.buffer.Reset()
	return err
}

// visibleWidth counts the runes of s outside escape sequences.
func visibleWidth(s string) int {
	n, esc := 0, false
	for _, c := range s {
		switch {
		case c == '\033':
			esc = true
		case esc:
			if (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') {
				esc = false
			}
		default:
			n++
		}
	}
	return n
}
