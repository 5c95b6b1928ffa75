package app

import (
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/bigmoostache/context-pilot/internal/config"
	"github.com/bigmoostache/context-pilot/internal/styles"
)

// Config view rows.
const (
	configRowProvider = iota
	configRowModel
	configRowCount
)

var providerNames = []string{"anthropic", "grok"}

func (m *Model) handleConfigKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc", "ctrl+h":
		m.showConfig = false
		return m, nil

	case "up", "k":
		if m.configRow > 0 {
			m.configRow--
		}
		return m, nil

	case "down", "j":
		if m.configRow < configRowCount-1 {
			m.configRow++
		}
		return m, nil

	case "left", "h":
		m.cycleConfig(-1)
		return m, nil

	case "right", "l", "tab":
		m.cycleConfig(1)
		return m, nil

	case "enter":
		m.showConfig = false
		if err := config.Save(m.cfg); err != nil {
			m.status = "save config: " + err.Error()
		} else {
			m.status = "using " + m.cfg.Provider.Default + "/" + m.cfg.ActiveModel()
		}
		return m, nil

	case "ctrl+c":
		m.Close()
		return m, tea.Quit
	}
	return m, nil
}

// cycleConfig steps the focused row left or right.
func (m *Model) cycleConfig(dir int) {
	switch m.configRow {
	case configRowProvider:
		i := indexOf(providerNames, m.cfg.Provider.Default)
		m.cfg.Provider.Default = providerNames[wrap(i+dir, len(providerNames))]

	case configRowModel:
		models := m.activeModels()
		if len(models.Models) == 0 {
			return
		}
		i := indexOf(models.Models, models.Model)
		models.Model = models.Models[wrap(i+dir, len(models.Models))]
	}
}

// activeModels returns the model config of the selected provider.
func (m *Model) activeModels() *config.ModelsConfig {
	if m.cfg.Provider.Default == "grok" {
		return &m.cfg.Provider.Grok
	}
	return &m.cfg.Provider.Anthropic
}

func (m *Model) renderConfigView(width, height int) string {
	var b strings.Builder

	b.WriteString(styles.Title.Render("Provider configuration"))
	b.WriteString("\n\n")

	b.WriteString(m.renderConfigRow(configRowProvider, "provider", providerNames, m.cfg.Provider.Default))
	models := m.activeModels()
	b.WriteString(m.renderConfigRow(configRowModel, "model", models.Models, models.Model))

	b.WriteString("\n")
	b.WriteString(styles.TokenCount.Render("←/→ change · ↑/↓ move · enter: save · esc: cancel"))

	return lipgloss.NewStyle().Width(width).Height(height).Padding(1, 2).Render(b.String())
}

func (m *Model) renderConfigRow(row int, label string, options []string, selected string) string {
	cursor := "  "
	if m.configRow == row {
		cursor = "▸ "
	}

	rendered := make([]string, 0, len(options))
	for _, opt := range options {
		if opt == selected {
			rendered = append(rendered, styles.SourceID.Render("["+opt+"]"))
		} else {
			rendered = append(rendered, styles.TokenCount.Render(opt))
		}
	}
	return cursor + label + ": " + strings.Join(rendered, " ") + "\n"
}

func indexOf(list []string, v string) int {
	for i, item := range list {
		if item == v {
			return i
		}
	}
	return 0
}

func wrap(i, n int) int {
	return ((i % n) + n) % n
}
