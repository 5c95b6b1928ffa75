package app

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/bigmoostache/context-pilot/internal/state"
	"github.com/bigmoostache/context-pilot/internal/styles"
)

const (
	sidebarWidth = 34
	inputHeight  = 3
	statusHeight = 1
)

// View renders the entire application UI.
func (m *Model) View() string {
	if !m.ready {
		return "Loading..."
	}

	var main string
	if m.showConfig {
		main = m.renderConfigView(m.viewport.Width, m.viewport.Height)
	} else {
		main = m.viewport.View()
	}

	right := lipgloss.JoinVertical(lipgloss.Left,
		main,
		m.input.View(),
		m.renderStatus(),
	)
	if !m.cfg.UI.ShowSidebar {
		return right
	}
	sidebar := m.renderSidebar(sidebarWidth, m.height)
	return lipgloss.JoinHorizontal(lipgloss.Top, sidebar, " ", right)
}

// renderSidebar lists the context sources with ids, staleness and
// token cost, plus the git summary and the running total.
func (m *Model) renderSidebar(width, height int) string {
	var b strings.Builder

	b.WriteString(styles.SidebarHeader.Width(width).Render("context-pilot"))
	b.WriteString("\n")

	if m.gitOK {
		b.WriteString(styles.GitBranch.Render(styles.Truncate(m.git.String(), width)))
	} else {
		b.WriteString(styles.TokenCount.Render("no git repository"))
	}
	b.WriteString("\n\n")

	for _, src := range m.st.Sources {
		marker := "  "
		if src.ID == m.highlight {
			marker = "▸ "
		}
		id := styles.SourceID.Render(src.ID)
		title := styles.Truncate(src.Title(), width-14)

		line := fmt.Sprintf("%s%s %s", marker, id, title)
		if m.cfg.UI.ShowTokenCounts {
			line += " " + styles.TokenCount.Render(formatTokens(src.TokenCount))
		}
		if src.Deprecated {
			line = styles.SourceStale.Render(line)
		} else {
			line = styles.SourceFresh.Render(line)
		}
		b.WriteString(line)
		b.WriteString("\n")
	}

	if m.cfg.UI.ShowTokenCounts {
		b.WriteString("\n")
		b.WriteString(styles.TokenCount.Render(
			fmt.Sprintf("total ~%s tokens", formatTokens(m.st.TotalTokens()))))
		if m.usageIn > 0 || m.usageOut > 0 {
			b.WriteString("\n")
			b.WriteString(styles.TokenCount.Render(
				fmt.Sprintf("last turn %d in / %d out", m.usageIn, m.usageOut)))
		}
	}

	return lipgloss.NewStyle().Width(width).Height(height).Render(b.String())
}

// refreshViewport re-renders the conversation. follow keeps the view
// glued to the bottom while streaming.
func (m *Model) refreshViewport(follow bool) {
	if !m.ready {
		return
	}
	m.viewport.SetContent(m.renderConversation(m.viewport.Width))
	if follow {
		m.viewport.GotoBottom()
	}
}

func (m *Model) renderConversation(width int) string {
	var b strings.Builder
	for _, msg := range m.st.Messages {
		if msg.Status == state.StatusDeleted {
			continue
		}
		b.WriteString(m.renderMessage(msg, width))
		b.WriteString("\n")
	}
	if m.streaming {
		b.WriteString(styles.Streaming.Render("▌"))
	}
	return b.String()
}

func (m *Model) renderMessage(msg *state.Message, width int) string {
	var b strings.Builder

	switch {
	case len(msg.ToolResults) > 0:
		for _, tr := range msg.ToolResults {
			label := "tool result"
			if tr.IsError {
				label = "tool error"
			}
			b.WriteString(styles.ToolCallLine.Render(
				fmt.Sprintf("%s %s: %s", msg.ID, label, styles.Truncate(styles.FirstLine(tr.Content), width-20))))
			b.WriteString("\n")
		}
		return b.String()

	case msg.Role == "assistant":
		b.WriteString(styles.AssistantLabel.Render(msg.ID + " assistant"))
		if msg.Status == state.StatusSummarized {
			b.WriteString(styles.TokenCount.Render(" (summarized)"))
		}
		b.WriteString("\n")
		b.WriteString(m.renderMarkdown(msg.EffectiveContent()))
		for _, use := range msg.ToolUses {
			b.WriteString(styles.ToolCallLine.Render("→ " + use.Name))
			b.WriteString("\n")
		}
		return b.String()

	default:
		b.WriteString(styles.UserLabel.Render(msg.ID + " you"))
		b.WriteString("\n")
		b.WriteString(msg.EffectiveContent())
		b.WriteString("\n")
		return b.String()
	}
}

// renderMarkdown renders assistant output through glamour, falling
// back to the raw text when rendering fails.
func (m *Model) renderMarkdown(content string) string {
	if content == "" {
		return ""
	}
	if m.renderer != nil {
		if out, err := m.renderer.Render(content); err == nil {
			return out
		}
	}
	return content + "\n"
}

func (m *Model) renderStatus() string {
	left := m.status
	if left == "" {
		if m.streaming {
			left = "streaming… (Esc to stop)"
		} else {
			left = "enter: send · ctrl+h: config · ctrl+k: cleanup · ctrl+y: copy · ctrl+c: quit"
		}
	}
	return styles.StatusBar.Width(m.viewport.Width).Render(styles.Truncate(left, m.viewport.Width))
}

// formatTokens renders a token count compactly ("980", "1.2k").
func formatTokens(n int) string {
	if n < 1000 {
		return fmt.Sprintf("%d", n)
	}
	return fmt.Sprintf("%.1fk", float64(n)/1000)
}
