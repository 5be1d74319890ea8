// Package commands defines the bot's slash command surface: a YAML manifest
// embedded in the binary, a dispatcher, and the handlers behind each command.
package commands

import (
	_ "embed"
	"fmt"

	"github.com/bwmarrin/discordgo"
	"gopkg.in/yaml.v3"
)

//go:embed commands.yaml
var manifestYAML []byte

// CommandSpec is one slash command declared in the manifest.
type CommandSpec struct {
	Name        string       `yaml:"name"`
	Description string       `yaml:"description"`
	Options     []OptionSpec `yaml:"options,omitempty"`
}

// OptionSpec is one option of a slash command.
type OptionSpec struct {
	Name        string `yaml:"name"`
	Description string `yaml:"description"`
	Type        string `yaml:"type"` // "string" or "integer"
	Required    bool   `yaml:"required,omitempty"`
}

// Manifest is the declared slash command set.
type Manifest struct {
	Commands []CommandSpec `yaml:"commands"`
}

// LoadManifest parses the embedded command manifest.
func LoadManifest() (*Manifest, error) {
	var m Manifest
	if err := yaml.Unmarshal(manifestYAML, &m); err != nil {
		return nil, fmt.Errorf("parse command manifest: %w", err)
	}
	if len(m.Commands) == 0 {
		return nil, fmt.Errorf("command manifest declares no commands")
	}
	for _, c := range m.Commands {
		if c.Name == "" || c.Description == "" {
			return nil, fmt.Errorf("command manifest entry missing name or description: %+v", c)
		}
		for _, o := range c.Options {
			if _, err := optionType(o.Type); err != nil {
				return nil, fmt.Errorf("command %s option %s: %w", c.Name, o.Name, err)
			}
		}
	}
	return &m, nil
}

// ToApplicationCommands converts the manifest into the Discord registration
// payload.
func (m *Manifest) ToApplicationCommands() []*discordgo.ApplicationCommand {
	out := make([]*discordgo.ApplicationCommand, 0, len(m.Commands))
	for _, c := range m.Commands {
		cmd := &discordgo.ApplicationCommand{
			Name:        c.Name,
			Description: c.Description,
		}
		for _, o := range c.Options {
			t, _ := optionType(o.Type)
			cmd.Options = append(cmd.Options, &discordgo.ApplicationCommandOption{
				Name:        o.Name,
				Description: o.Description,
				Type:        t,
				Required:    o.Required,
			})
		}
		out = append(out, cmd)
	}
	return out
}

func optionType(s string) (discordgo.ApplicationCommandOptionType, error) {
	switch s {
	case "string":
		return discordgo.ApplicationCommandOptionString, nil
	case "integer":
		return discordgo.ApplicationCommandOptionInteger, nil
	default:
		return 0, fmt.Errorf("unsupported option type %q", s)
	}
}
