package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"hearaid/internal/config"
	"hearaid/internal/dsp/wdrc"
)

var (
	titleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FFFDF5")).
			Background(lipgloss.Color("#25A065")).
			Padding(0, 1).
			Bold(true)

	infoStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FFFDF5"))

	labelStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#25A065")).
			Bold(true)

	meterFillStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#25A065"))

	meterHotStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#D94F4F"))
)

// Controller is the engine surface the monitor drives: live band
// readings plus the stepped master volume.
type Controller interface {
	BandMetrics(dst []wdrc.BandMetrics) int
	NumBands() int
	VolumeUp() int
	VolumeDown() int
	VolumeLevel() int
}

const (
	meterWidth    = 40
	refreshPeriod = 100 * time.Millisecond

	// Display ranges for the meters.
	envelopeFloorDB  = -80.0
	reductionScaleDB = 30.0
)

// MonitorModel is the Bubble Tea model showing per-band envelope and
// gain-reduction meters with volume control.
type MonitorModel struct {
	controller Controller
	bands      []wdrc.BandMetrics
	volume     int
	ready      bool
}

type tickMsg time.Time

func tick() tea.Cmd {
	return tea.Tick(refreshPeriod, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

// NewMonitorModel creates a monitor bound to the given controller.
func NewMonitorModel(controller Controller) MonitorModel {
	return MonitorModel{
		controller: controller,
		bands:      make([]wdrc.BandMetrics, controller.NumBands()),
		volume:     controller.VolumeLevel(),
	}
}

// Init starts the refresh loop.
func (m MonitorModel) Init() tea.Cmd {
	return tick()
}

// Update handles input and refresh ticks.
func (m MonitorModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tickMsg:
		n := m.controller.BandMetrics(m.bands)
		m.bands = m.bands[:n]
		m.volume = m.controller.VolumeLevel()
		m.ready = true
		return m, tick()

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, key.NewBinding(key.WithKeys("q", "ctrl+c"))):
			return m, tea.Quit

		case key.Matches(msg, key.NewBinding(key.WithKeys("+", "="))):
			m.volume = m.controller.VolumeUp()

		case key.Matches(msg, key.NewBinding(key.WithKeys("-", "_"))):
			m.volume = m.controller.VolumeDown()
		}
	}

	return m, nil
}

// View renders the band meters and the volume indicator.
func (m MonitorModel) View() string {
	if !m.ready {
		return "Waiting for audio..."
	}

	var sb strings.Builder

	sb.WriteString(titleStyle.Render("hearaid monitor"))
	sb.WriteString("\n\n")

	for _, band := range m.bands {
		sb.WriteString(labelStyle.Render(fmt.Sprintf("%5.0f-%-5.0f Hz", band.LowHz, band.HighHz)))
		sb.WriteString("\n")
		sb.WriteString(fmt.Sprintf("  env %6.1f dB %s\n",
			band.EnvelopeDB, renderEnvelopeMeter(band.EnvelopeDB)))
		sb.WriteString(fmt.Sprintf("  red %6.1f dB %s\n",
			band.GainReductionDB, renderReductionMeter(band.GainReductionDB)))
		sb.WriteString("\n")
	}

	sb.WriteString(labelStyle.Render("volume"))
	sb.WriteString(" ")
	sb.WriteString(renderVolume(m.volume))
	sb.WriteString("\n\n")
	sb.WriteString(infoStyle.Render("+/-: Volume • q: Quit"))

	return sb.String()
}

// renderEnvelopeMeter maps envelopeFloorDB..0 dB onto the meter width.
func renderEnvelopeMeter(envelopeDB float64) string {
	frac := (envelopeDB - envelopeFloorDB) / -envelopeFloorDB
	return renderBar(frac, meterFillStyle)
}

// renderReductionMeter maps 0..reductionScaleDB of gain reduction onto
// the meter width.
func renderReductionMeter(reductionDB float64) string {
	return renderBar(reductionDB/reductionScaleDB, meterHotStyle)
}

func renderBar(frac float64, style lipgloss.Style) string {
	if frac < 0 {
		frac = 0
	}
	if frac > 1 {
		frac = 1
	}
	filled := int(frac * meterWidth)

	return style.Render(strings.Repeat("█", filled)) +
		strings.Repeat("░", meterWidth-filled)
}

func renderVolume(level int) string {
	var sb strings.Builder
	for i := 0; i < config.NumGainLevels; i++ {
		if i <= level && level > 0 {
			sb.WriteString(meterFillStyle.Render("▮"))
		} else if i == 0 && level == 0 {
			sb.WriteString(meterHotStyle.Render("▯"))
		} else {
			sb.WriteString("▯")
		}
	}
	sb.WriteString(fmt.Sprintf(" %d/%d", level, config.NumGainLevels-1))
	return sb.String()
}

// StartMonitorUI launches the Bubble Tea monitor over the controller.
func StartMonitorUI(controller Controller) error {
	p := tea.NewProgram(
		NewMonitorModel(controller),
		tea.WithAltScreen(),
	)
	_, err := p.Run()
	return err
}
