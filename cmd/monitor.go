package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/kamal-hamza/bricklayer/internal/adapters/headless"
	"github.com/kamal-hamza/bricklayer/internal/core/domain"
	"github.com/kamal-hamza/bricklayer/internal/core/ports"
	"github.com/kamal-hamza/bricklayer/internal/core/services"
	"github.com/kamal-hamza/bricklayer/pkg/ui"
)

const (
	monitorTick    = 500 * time.Millisecond
	monitorLogSize = 8
)

var monitorPoll bool

var monitorCmd = &cobra.Command{
	Use:   "monitor [model files...]",
	Short: "Watch model files reload without opening a window",
	Long: `Load the given models without a GPU and show a live table of every slot.

Models are parsed and fingerprinted, textures are decoded, and every change
on disk goes through the same reload path as the viewer. Use it to check
that an exporter writes files the viewer will accept.

Controls:
  - ↑/↓ : Navigate
  - r   : Reload the selected slot now
  - q   : Quit`,
	RunE: runMonitor,
}

func init() {
	monitorCmd.Flags().BoolVar(&monitorPoll, "poll", false, "Detect changes by polling instead of file system events")
}

func runMonitor(cmd *cobra.Command, args []string) error {
	paths, err := resolveModelPaths(args, os.Stdin, false)
	if err != nil {
		return err
	}

	store, err := services.NewAssetStore(paths)
	if err != nil {
		return err
	}

	renderer := headless.NewRenderer()
	sess, err := startSession(store, renderer, monitorPoll)
	if err != nil {
		return err
	}
	defer sess.Close()

	m := newMonitorModel(store, sess.reloader, renderer, sess.source)
	for _, f := range sess.startup.TextureFailures {
		m.record(f)
	}

	p := tea.NewProgram(m)
	_, err = p.Run()
	return err
}

// --- TUI Model ---

type tickMsg time.Time

type monitorModel struct {
	table    table.Model
	store    *services.AssetStore
	reloader *services.ReloadService
	renderer *headless.Renderer
	source   ports.ChangeSource
	events   []string
}

func newMonitorModel(store *services.AssetStore, reloader *services.ReloadService, renderer *headless.Renderer, source ports.ChangeSource) *monitorModel {
	columns := []table.Column{
		{Title: "#", Width: 3},
		{Title: "Model", Width: 28},
		{Title: "Gen", Width: 4},
		{Title: "Verts", Width: 7},
		{Title: "Hash", Width: 10},
		{Title: "Texture", Width: 14},
		{Title: "Status", Width: 30},
	}

	t := table.New(
		table.WithColumns(columns),
		table.WithFocused(true),
		table.WithHeight(min(store.Len(), 12)+1),
	)

	s := table.DefaultStyles()
	s.Header = s.Header.
		BorderStyle(lipgloss.NormalBorder()).
		BorderForeground(ui.ColorMuted).
		BorderBottom(true).
		Bold(true)
	s.Selected = s.Selected.
		Foreground(ui.ColorDefault).
		Background(ui.ColorPrimary).
		Bold(true)
	t.SetStyles(s)

	m := &monitorModel{
		table:    t,
		store:    store,
		reloader: reloader,
		renderer: renderer,
		source:   source,
	}
	m.refresh()
	return m
}

func tick() tea.Cmd {
	return tea.Tick(monitorTick, func(t time.Time) tea.Msg { return tickMsg(t) })
}

func (m *monitorModel) Init() tea.Cmd { return tick() }

func (m *monitorModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd
	switch msg := msg.(type) {
	case tickMsg:
		m.apply(m.source.Drain())
		return m, tick()

	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			return m, tea.Quit

		case "r":
			if slot, err := m.store.Snapshot(m.table.Cursor()); err == nil {
				events := []domain.ChangeEvent{{Slot: slot.Index, Kind: domain.KindModel}}
				if slot.HasTexture {
					events = append(events, domain.ChangeEvent{Slot: slot.Index, Kind: domain.KindTexture})
				}
				m.apply(events)
			}
		}
	}

	m.table, cmd = m.table.Update(msg)
	return m, cmd
}

func (m *monitorModel) View() string {
	var b strings.Builder
	b.WriteString("\n")
	b.WriteString(ui.StyleTitle.Render(" Bricklayer Monitor "))
	b.WriteString("\n\n")
	b.WriteString(m.table.View())
	b.WriteString("\n\n")

	if len(m.events) == 0 {
		b.WriteString(ui.FormatMuted(" Waiting for changes..."))
		b.WriteString("\n")
	}
	for _, e := range m.events {
		b.WriteString(" " + e + "\n")
	}

	models, textures := m.renderer.Live()
	b.WriteString("\n")
	b.WriteString(ui.FormatMuted(fmt.Sprintf(" %d models, %d textures live   [r] Reload  [q] Quit", models, textures)))
	b.WriteString("\n")
	return b.String()
}

func (m *monitorModel) apply(events []domain.ChangeEvent) {
	for _, r := range m.reloader.Apply(events) {
		m.record(r)
	}
	m.refresh()
}

// record keeps the most recent reload outcomes, newest last
func (m *monitorModel) record(r services.ReloadResult) {
	stamp := time.Now().Format("15:04:05")
	var line string
	if r.Success {
		line = ui.FormatSuccess(fmt.Sprintf("%s slot %d %s reloaded", stamp, r.Slot, r.Kind))
	} else {
		line = ui.FormatError(fmt.Sprintf("%s slot %d %s: %v", stamp, r.Slot, r.Kind, r.Error))
	}

	m.events = append(m.events, line)
	if len(m.events) > monitorLogSize {
		m.events = m.events[len(m.events)-monitorLogSize:]
	}
}

func (m *monitorModel) refresh() {
	rows := make([]table.Row, 0, m.store.Len())
	for _, slot := range m.store.Slots() {
		rows = append(rows, m.row(slot))
	}
	m.table.SetRows(rows)
}

func (m *monitorModel) row(slot domain.Slot) table.Row {
	verts, hash := "-", "-"
	if info, ok := m.renderer.Model(slot.Model); ok {
		verts = fmt.Sprintf("%d", info.Vertices)
		hash = info.Hash[:8]
	}

	texture := "none"
	switch {
	case !slot.HasTexture:
		texture = "n/a"
	case slot.Texture != 0:
		if info, ok := m.renderer.Texture(slot.Texture); ok {
			texture = fmt.Sprintf("%dx%d", info.Width, info.Height)
		}
	}

	status := "ok"
	if slot.LastError != nil {
		status = slot.LastError.Error()
	}

	return table.Row{
		fmt.Sprintf("%d", slot.Index),
		safeTruncate(filepath.Base(slot.ModelPath), 28),
		fmt.Sprintf("%d", slot.Generation),
		verts,
		hash,
		texture,
		safeTruncate(status, 30),
	}
}

// --- Helpers ---

func safeTruncate(s string, maxLen int) string {
	runes := []rune(s)
	if len(runes) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return string(runes[:maxLen])
	}
	return string(runes[:maxLen-3]) + "..."
}
