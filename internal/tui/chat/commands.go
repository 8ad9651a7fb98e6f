package chat

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/sahilm/fuzzy"

	"github.com/samsaffron/term-chat/internal/config"
	"github.com/samsaffron/term-chat/internal/conversation"
	"github.com/samsaffron/term-chat/internal/llm"
)

// Command represents a slash command
type Command struct {
	Name        string
	Aliases     []string
	Description string
	Usage       string
	// TakesArgs allows text after the command name.
	TakesArgs bool
}

// AllCommands returns all available slash commands
func AllCommands() []Command {
	return []Command{
		{
			Name:        "help",
			Aliases:     []string{"h", "?"},
			Description: "Show commands and keys",
			Usage:       "/help",
		},
		{
			Name:        "clear",
			Aliases:     []string{"c", "new"},
			Description: "Start a new conversation",
			Usage:       "/clear",
		},
		{
			Name:        "copy",
			Description: "Copy the whole conversation as markdown",
			Usage:       "/copy",
		},
		{
			Name:        "model",
			Aliases:     []string{"m"},
			Description: "Switch provider/model",
			Usage:       "/model [provider:model]",
			TakesArgs:   true,
		},
		{
			Name:        "quit",
			Aliases:     []string{"q", "exit"},
			Description: "Exit chat",
			Usage:       "/quit",
		},
	}
}

// CommandSource implements fuzzy.Source for command searching
type CommandSource []Command

func (c CommandSource) String(i int) string {
	return c[i].Name
}

func (c CommandSource) Len() int {
	return len(c)
}

// FilterCommands returns commands matching the query using fuzzy search
func FilterCommands(query string) []Command {
	commands := AllCommands()
	query = strings.ToLower(strings.TrimPrefix(query, "/"))
	if query == "" {
		return commands
	}

	if cmd, ok := lookupCommand(query); ok {
		return []Command{cmd}
	}

	var result []Command
	for _, match := range fuzzy.FindFrom(query, CommandSource(commands)) {
		result = append(result, commands[match.Index])
	}
	return result
}

// lookupCommand matches an exact name or alias.
func lookupCommand(name string) (Command, bool) {
	for _, c := range AllCommands() {
		if c.Name == name {
			return c, true
		}
		for _, alias := range c.Aliases {
			if alias == name {
				return c, true
			}
		}
	}
	return Command{}, false
}

// ParseCommand recognises input that names a slash command exactly.
// Anything else, including unknown "/..." text and commands given
// arguments they do not take, is a message. A leading "//" never parses.
func ParseCommand(input string) (Command, []string, bool) {
	input = strings.TrimSpace(input)
	if !strings.HasPrefix(input, "/") || strings.HasPrefix(input, "//") {
		return Command{}, nil, false
	}
	parts := strings.Fields(input)
	cmd, ok := lookupCommand(strings.ToLower(strings.TrimPrefix(parts[0], "/")))
	if !ok {
		return Command{}, nil, false
	}
	args := parts[1:]
	if len(args) > 0 && !cmd.TakesArgs {
		return Command{}, nil, false
	}
	return cmd, args, true
}

// messageText undoes the "//" escape so "//help" is sent as "/help".
func messageText(input string) string {
	trimmed := strings.TrimLeft(input, " \t\n")
	if strings.HasPrefix(trimmed, "//") {
		return trimmed[1:]
	}
	return input
}

// ExecuteCommand runs a parsed slash command.
func (m *Model) ExecuteCommand(cmd Command, args []string) (tea.Model, tea.Cmd) {
	m.textarea.Reset()
	m.completions = nil

	switch cmd.Name {
	case "help":
		return m.cmdHelp()
	case "clear":
		return m.resetConversation()
	case "copy":
		return m.cmdCopy()
	case "model":
		return m.cmdModel(args)
	case "quit":
		return m.quit()
	default:
		return m.showNotice(fmt.Sprintf("Command /%s is not implemented.", cmd.Name))
	}
}

func (m *Model) showNotice(text string) (tea.Model, tea.Cmd) {
	m.notice = text
	m.layout()
	return m, nil
}

func (m *Model) cmdHelp() (tea.Model, tea.Cmd) {
	m.showHelp = true
	m.blurInput()
	return m, nil
}

// helpMarkdown lists commands and keys for the help overlay.
func helpMarkdown() string {
	var b strings.Builder
	b.WriteString("## Commands\n\n")
	for _, cmd := range AllCommands() {
		fmt.Fprintf(&b, "- `%s`", cmd.Usage)
		if len(cmd.Aliases) > 0 {
			fmt.Fprintf(&b, " (aliases: %s)", strings.Join(cmd.Aliases, ", "))
		}
		fmt.Fprintf(&b, " - %s\n", cmd.Description)
	}
	b.WriteString("\nOther text starting with `/` is sent as a message. Start with `//` to send a command name literally.\n")

	b.WriteString("\n## Keys\n\n")
	b.WriteString("- `Enter` send, `Ctrl+J` or `Alt+Enter` newline\n")
	b.WriteString("- `Esc` cancel a streaming reply, or leave the input\n")
	b.WriteString("- `i` back to the input\n")
	b.WriteString("- `j`/`k`, `PgUp`/`PgDn` scroll\n")
	b.WriteString("- `[`/`]` select a turn, `y` copy it\n")
	b.WriteString("- `Ctrl+E` expand the input, `Ctrl+R` new conversation\n")
	b.WriteString("- `Ctrl+C` quit\n")
	return b.String()
}

func (m *Model) cmdCopy() (tea.Model, tea.Cmd) {
	text := conversation.Transcript(m.session.History())
	if strings.TrimSpace(text) == "" {
		return m.showNotice("Nothing to copy yet.")
	}
	return m.copyText(text)
}

func (m *Model) cmdModel(args []string) (tea.Model, tea.Cmd) {
	if len(args) == 0 {
		m.dialog.ShowModelPicker(m.providerModel, availableProviders())
		m.blurInput()
		return m, nil
	}

	arg := args[0]
	if strings.Contains(arg, ":") {
		return m.switchModel(arg)
	}
	if match := fuzzyMatchModel(arg); match != "" {
		return m.switchModel(match)
	}
	provider, _, _ := strings.Cut(m.providerModel, ":")
	return m.switchModel(provider + ":" + arg)
}

func (m *Model) switchModel(providerModel string) (tea.Model, tea.Cmd) {
	if m.newClient == nil {
		return m.showNotice("Switching models is not available here.")
	}
	client, err := m.newClient(providerModel)
	if err != nil {
		return m.showNotice(fmt.Sprintf("Cannot switch to %s: %v", providerModel, err))
	}
	m.session.SwitchClient(client)
	m.providerModel = providerModel
	m.logger.Info("model switched", "model", providerModel)
	m.refresh()
	return m.showNotice("Switched to " + client.Name())
}

// ProviderInfo holds provider and model information
type ProviderInfo struct {
	Name   string
	Models []string
}

func availableProviders() []ProviderInfo {
	var out []ProviderInfo
	for _, name := range config.KnownProviders() {
		out = append(out, ProviderInfo{Name: name, Models: llm.SuggestedModels(name)})
	}
	return out
}

// fuzzyMatchModel finds the best "provider:model" for a bare model query,
// or returns "".
func fuzzyMatchModel(query string) string {
	query = strings.ToLower(query)

	var combined, names []string
	for _, p := range availableProviders() {
		for _, model := range p.Models {
			combined = append(combined, p.Name+":"+model)
			names = append(names, model)
		}
	}

	// Substring matches win; shorter names are more specific.
	best := -1
	for i, name := range names {
		if strings.Contains(strings.ToLower(name), query) && (best < 0 || len(name) < len(names[best])) {
			best = i
		}
	}
	if best >= 0 {
		return combined[best]
	}

	if matches := fuzzy.Find(query, names); len(matches) > 0 {
		return combined[matches[0].Index]
	}
	return ""
}
