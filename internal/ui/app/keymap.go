package app

import (
	"fmt"
	"os"

	"github.com/charmbracelet/bubbles/key"
	"gopkg.in/yaml.v3"
)

// keyMap is the app-level binding set. Every binding can be rebound from the
// keymap file; unknown names in the file are rejected so typos surface at
// startup instead of silently doing nothing.
type keyMap struct {
	Tab      key.Binding
	Help     key.Binding
	Quit     key.Binding
	Back     key.Binding
	Enter    key.Binding
	Next     key.Binding
	Prev     key.Binding
	Jump     key.Binding
	Finalize key.Binding
	Timer    key.Binding
	CheckIn  key.Binding
}

func defaultKeys() keyMap {
	return keyMap{
		Tab:      key.NewBinding(key.WithKeys("tab"), key.WithHelp("tab", "trocar aba")),
		Help:     key.NewBinding(key.WithKeys("?"), key.WithHelp("?", "ajuda")),
		Quit:     key.NewBinding(key.WithKeys("ctrl+c", "q"), key.WithHelp("q", "sair")),
		Back:     key.NewBinding(key.WithKeys("esc"), key.WithHelp("esc", "voltar")),
		Enter:    key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "abrir")),
		Next:     key.NewBinding(key.WithKeys("j", "down"), key.WithHelp("j/k", "questão")),
		Prev:     key.NewBinding(key.WithKeys("k", "up"), key.WithHelp("j/k", "questão")),
		Jump:     key.NewBinding(key.WithKeys("g"), key.WithHelp("g<n>", "ir à questão")),
		Finalize: key.NewBinding(key.WithKeys("f"), key.WithHelp("f", "finalizar")),
		Timer:    key.NewBinding(key.WithKeys("t"), key.WithHelp("t", "cronômetro")),
		CheckIn:  key.NewBinding(key.WithKeys("c"), key.WithHelp("c", "check-in")),
	}
}

func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Tab, k.Help, k.Quit}
}

func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Tab, k.Enter, k.Back},
		{k.Next, k.Prev, k.Jump},
		{k.Finalize, k.Timer, k.CheckIn},
		{k.Help, k.Quit},
	}
}

// loadKeymap applies rebindings from a YAML file of the form
//
//	finalize: ["F"]
//	next: ["j", "down", "n"]
//
// onto the defaults. A missing file is not an error; a file that names an
// unknown binding is.
func loadKeymap(path string) (keyMap, error) {
	keys := defaultKeys()
	if path == "" {
		return keys, nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return keys, nil
		}
		return keys, fmt.Errorf("keymap %s: %w", path, err)
	}
	var overrides map[string][]string
	if err := yaml.Unmarshal(raw, &overrides); err != nil {
		return keys, fmt.Errorf("keymap %s: %w", path, err)
	}

	slots := map[string]*key.Binding{
		"tab":      &keys.Tab,
		"help":     &keys.Help,
		"quit":     &keys.Quit,
		"back":     &keys.Back,
		"enter":    &keys.Enter,
		"next":     &keys.Next,
		"prev":     &keys.Prev,
		"jump":     &keys.Jump,
		"finalize": &keys.Finalize,
		"timer":    &keys.Timer,
		"checkin":  &keys.CheckIn,
	}
	for name, combo := range overrides {
		slot, ok := slots[name]
		if !ok {
			return keys, fmt.Errorf("keymap %s: unknown binding %q", path, name)
		}
		if len(combo) == 0 {
			return keys, fmt.Errorf("keymap %s: binding %q has no keys", path, name)
		}
		slot.SetKeys(combo...)
		help := slot.Help()
		slot.SetHelp(combo[0], help.Desc)
	}
	return keys, nil
}
