package chat

import (
	"strings"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/sahilm/fuzzy"

	"github.com/samsaffron/term-chat/internal/ui"
)

const maxDialogItems = 12

// DialogItem represents an item in a dialog list
type DialogItem struct {
	ID       string
	Label    string
	Current  bool
	Category string
}

// DialogModel is the model picker opened by /model.
type DialogModel struct {
	open     bool
	items    []DialogItem
	filtered []DialogItem
	cursor   int
	query    string
	styles   *ui.Styles

	up     key.Binding
	down   key.Binding
	choose key.Binding
	cancel key.Binding
}

func NewDialogModel(styles *ui.Styles) *DialogModel {
	return &DialogModel{
		styles: styles,
		up:     key.NewBinding(key.WithKeys("up", "ctrl+p")),
		down:   key.NewBinding(key.WithKeys("down", "ctrl+n")),
		choose: key.NewBinding(key.WithKeys("enter")),
		cancel: key.NewBinding(key.WithKeys("esc")),
	}
}

func (d *DialogModel) IsOpen() bool {
	return d.open
}

func (d *DialogModel) Close() {
	d.open = false
	d.items = nil
	d.filtered = nil
	d.cursor = 0
	d.query = ""
}

// ShowModelPicker lists every suggested provider:model pair, with the
// cursor on current.
func (d *DialogModel) ShowModelPicker(current string, providers []ProviderInfo) {
	d.Close()
	d.open = true

	for _, p := range providers {
		for _, model := range p.Models {
			id := p.Name + ":" + model
			d.items = append(d.items, DialogItem{
				ID:       id,
				Label:    id,
				Category: p.Name,
				Current:  id == current,
			})
		}
	}
	d.filtered = d.items

	for i, item := range d.filtered {
		if item.Current {
			d.cursor = i
			break
		}
	}
}

// Selected returns the currently highlighted item
func (d *DialogModel) Selected() *DialogItem {
	if len(d.filtered) == 0 {
		return nil
	}
	if d.cursor >= len(d.filtered) {
		d.cursor = len(d.filtered) - 1
	}
	return &d.filtered[d.cursor]
}

func (d *DialogModel) Query() string {
	return d.query
}

// SetQuery filters the list; typing a full "provider:model" that is not in
// the list still lets the user pick it.
func (d *DialogModel) SetQuery(query string) {
	d.query = query
	if query == "" {
		d.filtered = d.items
	} else {
		labels := make([]string, len(d.items))
		for i, item := range d.items {
			labels[i] = item.Label
		}
		d.filtered = nil
		for _, match := range fuzzy.Find(query, labels) {
			d.filtered = append(d.filtered, d.items[match.Index])
		}
		if len(d.filtered) == 0 && strings.Contains(query, ":") {
			d.filtered = []DialogItem{{ID: query, Label: query}}
		}
	}
	d.cursor = 0
}

// Update handles a key while the picker is open. It returns the chosen
// item id once the user presses enter.
func (d *DialogModel) Update(msg tea.KeyMsg) (chosen string) {
	switch {
	case key.Matches(msg, d.cancel):
		d.Close()
	case key.Matches(msg, d.choose):
		if item := d.Selected(); item != nil {
			chosen = item.ID
		}
		d.Close()
	case key.Matches(msg, d.up):
		if d.cursor > 0 {
			d.cursor--
		}
	case key.Matches(msg, d.down):
		if d.cursor < len(d.filtered)-1 {
			d.cursor++
		}
	case msg.Type == tea.KeyBackspace:
		if d.query != "" {
			r := []rune(d.query)
			d.SetQuery(string(r[:len(r)-1]))
		}
	case msg.Type == tea.KeyRunes:
		d.SetQuery(d.query + string(msg.Runes))
	}
	return chosen
}

func (d *DialogModel) View() string {
	if !d.open {
		return ""
	}

	theme := d.styles.Theme()
	borderStyle := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(theme.Border).
		Padding(0, 1)
	itemStyle := lipgloss.NewStyle().Foreground(theme.Secondary)
	selectedStyle := lipgloss.NewStyle().Foreground(theme.Primary).Bold(true)
	mutedStyle := lipgloss.NewStyle().Foreground(theme.Muted)

	var b strings.Builder
	b.WriteString(selectedStyle.Render("Select model"))
	b.WriteString("\n")
	b.WriteString(mutedStyle.Render("filter: " + d.query + "_"))
	b.WriteString("\n\n")

	if len(d.filtered) == 0 {
		b.WriteString(mutedStyle.Render("no matches"))
	}

	start := 0
	if d.cursor >= maxDialogItems {
		start = d.cursor - maxDialogItems + 1
	}
	end := min(start+maxDialogItems, len(d.filtered))
	for i := start; i < end; i++ {
		item := d.filtered[i]
		if i == d.cursor {
			b.WriteString(selectedStyle.Render("❯ " + item.Label))
		} else {
			b.WriteString("  " + itemStyle.Render(item.Label))
		}
		if item.Current {
			b.WriteString(mutedStyle.Render(" (current)"))
		}
		if i < end-1 {
			b.WriteString("\n")
		}
	}

	b.WriteString("\n\n")
	b.WriteString(mutedStyle.Render("↑/↓ navigate · enter select · esc cancel"))
	return borderStyle.Render(b.String())
}
