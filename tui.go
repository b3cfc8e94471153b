//go:build !gui

package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	cli "github.com/urfave/cli/v3"
	"go.uber.org/zap"

	"github.com/metcalfc/folio/internal/book"
	"github.com/metcalfc/folio/internal/config"
	"github.com/metcalfc/folio/internal/display"
	"github.com/metcalfc/folio/internal/layout"
)

// The terminal belongs to the reader, console logging would corrupt it.
const consoleWhileReading = false

// Terminal cells are mapped to pixels at a fixed base font so changing the
// font size zooms the text instead of doing nothing.
const (
	baseFontSize = 16.0
	cellWidth    = baseFontSize * layout.CharWidthFactor
	cellHeight   = baseFontSize * layout.LineSpacing
	// status line and help line
	chromeRows = 2
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true)

	headingStyle = lipgloss.NewStyle().
			Bold(true).
			Underline(true)

	tocStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#888888"))

	selectedStyle = lipgloss.NewStyle().
			Reverse(true)

	statusStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#888888")).
			Padding(0, 1)

	messageStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FFAA00")).
			Bold(true)
)

// terminalViewport converts a terminal size in cells to the pixel viewport
// the layout works with. Half a cell is added so rounding in the layout
// never loses a whole line or character.
func terminalViewport(cols, rows int) (width, height float64) {
	rows = max(rows-chromeRows, 1)
	return (float64(cols) + 0.5) * cellWidth, (float64(rows) + 0.5) * cellHeight
}

type keyMap struct {
	Next, Prev         key.Binding
	First, Last        key.Binding
	NextChap, PrevChap key.Binding
	Contents           key.Binding
	Select, Follow     key.Binding
	Bigger, Smaller    key.Binding
	OneCol, TwoCols    key.Binding
	Mark, Marks        key.Binding
	Read               key.Binding
	Help, Quit         key.Binding
}

func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Next, k.Prev, k.NextChap, k.Contents, k.Help, k.Quit}
}

func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Next, k.Prev, k.First, k.Last},
		{k.NextChap, k.PrevChap, k.Contents, k.Select, k.Follow},
		{k.Bigger, k.Smaller, k.OneCol, k.TwoCols},
		{k.Mark, k.Marks, k.Read, k.Help, k.Quit},
	}
}

var keys = keyMap{
	Next:     key.NewBinding(key.WithKeys("right", "pgdown", " ", "l"), key.WithHelp("→", "next page")),
	Prev:     key.NewBinding(key.WithKeys("left", "pgup", "h"), key.WithHelp("←", "prev page")),
	First:    key.NewBinding(key.WithKeys("home", "g"), key.WithHelp("home", "first page")),
	Last:     key.NewBinding(key.WithKeys("end", "G"), key.WithHelp("end", "last page")),
	NextChap: key.NewBinding(key.WithKeys("n"), key.WithHelp("n", "next chapter")),
	PrevChap: key.NewBinding(key.WithKeys("p"), key.WithHelp("p", "prev chapter")),
	Contents: key.NewBinding(key.WithKeys("t"), key.WithHelp("t", "contents")),
	Select:   key.NewBinding(key.WithKeys("tab"), key.WithHelp("tab", "select entry")),
	Follow:   key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "open entry")),
	Bigger:   key.NewBinding(key.WithKeys("+", "="), key.WithHelp("+", "larger font")),
	Smaller:  key.NewBinding(key.WithKeys("-"), key.WithHelp("-", "smaller font")),
	OneCol:   key.NewBinding(key.WithKeys("1"), key.WithHelp("1", "one column")),
	TwoCols:  key.NewBinding(key.WithKeys("2"), key.WithHelp("2", "two columns")),
	Mark:     key.NewBinding(key.WithKeys("b"), key.WithHelp("b", "bookmark")),
	Marks:    key.NewBinding(key.WithKeys("B"), key.WithHelp("B", "next bookmark")),
	Read:     key.NewBinding(key.WithKeys("f"), key.WithHelp("f", "mark read")),
	Help:     key.NewBinding(key.WithKeys("?"), key.WithHelp("?", "help")),
	Quit:     key.NewBinding(key.WithKeys("q", "Q", "ctrl+c"), key.WithHelp("q", "quit")),
}

// configMsg carries a reloaded configuration into the program.
type configMsg struct{ cfg *config.Config }

type model struct {
	r    *reading
	help help.Model

	width, height int
	title         string
	// selected is the TOC entry block chosen with tab, -1 for none
	selected   int
	markedRead bool
	message    string
	quitting   bool
}

func newModel(r *reading, cols, rows int) model {
	return model{
		r:        r,
		help:     help.New(),
		width:    cols,
		height:   rows,
		title:    bookTitle(r.ctl.Sequence()),
		selected: -1,
	}
}

func (m model) Init() tea.Cmd {
	return nil
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.help.Width = msg.Width
		m.r.resize(terminalViewport(msg.Width, msg.Height))
		return m, nil

	case configMsg:
		m.r.reconfigure(msg.cfg)
		m.message = "configuration reloaded"
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)
	}
	return m, nil
}

func (m model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	ctl := m.r.ctl
	before := ctl.View().Page
	m.message = ""

	switch {
	case key.Matches(msg, keys.Quit):
		m.quitting = true
		return m, tea.Quit
	case key.Matches(msg, keys.Next):
		ctl.NextPage()
	case key.Matches(msg, keys.Prev):
		ctl.PrevPage()
	case key.Matches(msg, keys.First):
		ctl.FirstPage()
	case key.Matches(msg, keys.Last):
		ctl.LastPage()
	case key.Matches(msg, keys.NextChap):
		ctl.NextChapter()
	case key.Matches(msg, keys.PrevChap):
		ctl.PrevChapter()
	case key.Matches(msg, keys.Contents):
		ctl.GotoContents()
	case key.Matches(msg, keys.Select):
		m.selected = nextEntry(tocEntries(ctl.Sequence(), ctl.View()), m.selected)
	case key.Matches(msg, keys.Follow):
		if m.selected >= 0 {
			if _, ok := ctl.GotoTocEntry(m.selected); !ok {
				m.message = "not a contents entry"
			}
		}
	case key.Matches(msg, keys.Bigger):
		m.r.zoom(1)
	case key.Matches(msg, keys.Smaller):
		m.r.zoom(-1)
	case key.Matches(msg, keys.OneCol):
		m.r.setColumns(1)
	case key.Matches(msg, keys.TwoCols):
		m.r.setColumns(2)
	case key.Matches(msg, keys.Mark):
		if bm, err := ctl.AddBookmark(""); err != nil {
			m.message = err.Error()
		} else {
			m.message = "bookmark added: " + bm.Label
		}
	case key.Matches(msg, keys.Marks):
		label, err := m.r.cycleBookmark()
		switch {
		case err != nil:
			m.message = err.Error()
		case label == "":
			m.message = "no bookmarks"
		default:
			m.message = label
		}
	case key.Matches(msg, keys.Read):
		m.markedRead = !m.markedRead
		ctl.MarkRead(m.markedRead)
		if err := ctl.SaveNow(); err != nil {
			m.message = err.Error()
		}
	case key.Matches(msg, keys.Help):
		m.help.ShowAll = !m.help.ShowAll
	}

	if ctl.View().Page != before {
		m.selected = -1
	}
	return m, nil
}

func (m model) View() string {
	if m.quitting {
		return ""
	}
	v := m.r.ctl.View()
	seq := m.r.ctl.Sequence()

	status := statusStyle.Render(statusText(m.title, v))
	if m.message != "" {
		status += messageStyle.Render(m.message)
	}
	helpView := m.help.View(keys)

	rows := max(m.height-chromeRows-lipgloss.Height(helpView)+1, 1)
	var body string
	if v.Empty() || seq == nil {
		body = lipgloss.NewStyle().Height(rows).Render("No text to read.")
	} else {
		body = m.renderPage(seq, v.Layout, v.Params, rows)
	}
	return lipgloss.JoinVertical(lipgloss.Left, status, body, helpView)
}

func (m model) renderPage(seq *book.Sequence, page layout.Page, p layout.Params, rows int) string {
	colCells := max(int(p.ColumnWidth/cellWidth), 1)
	gapWidth := display.ColumnGap / cellWidth
	gap := strings.Repeat(" ", int(gapWidth))

	cols := make([]string, 0, 2*len(page.Columns))
	for i, col := range page.Columns {
		if i > 0 {
			cols = append(cols, gap)
		}
		var sb strings.Builder
		for j, l := range columnLines(seq, col, p) {
			if j >= rows {
				break
			}
			if j > 0 {
				sb.WriteString("\n")
			}
			sb.WriteString(m.styleLine(l))
		}
		cols = append(cols, lipgloss.NewStyle().Width(colCells).Height(rows).Render(sb.String()))
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, cols...)
}

func (m model) styleLine(l textLine) string {
	switch {
	case l.Block < 0:
		return ""
	case l.Block == m.selected:
		return selectedStyle.Render(l.Text)
	case l.Kind == book.Title || l.Kind == book.TocHeading:
		return titleStyle.Render(l.Text)
	case l.Kind == book.ChapterHeading:
		return headingStyle.Render(l.Text)
	case l.Kind == book.TocEntry:
		return tocStyle.Render(l.Text)
	}
	return l.Text
}

func readBook(ctx context.Context, cmd *cli.Command) (err error) {
	file, err := bookArg(ctx, cmd)
	if err != nil {
		return err
	}
	env := envFromContext(ctx)

	// real size arrives with the first WindowSizeMsg
	const cols, rows = 80, 24
	w, h := terminalViewport(cols, rows)
	r, err := openReading(env, file, w, h)
	if err != nil {
		return err
	}
	defer func() {
		if er := r.close(); er != nil {
			err = fmt.Errorf("unable to close book: %w", er)
		}
	}()

	p := tea.NewProgram(newModel(r, cols, rows), tea.WithAltScreen(), tea.WithContext(ctx))

	if env.cfgFile != "" {
		wctx, cancel := context.WithCancel(ctx)
		defer cancel()
		if err := config.Watch(wctx, env.cfgFile, env.log, func(c *config.Config) { p.Send(configMsg{c}) }); err != nil {
			env.log.Warn("Configuration changes will not be picked up", zap.Error(err))
		}
	}

	if _, err := p.Run(); err != nil {
		return fmt.Errorf("reader failed: %w", err)
	}
	return nil
}
