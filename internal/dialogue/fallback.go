// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package dialogue

import (
	_ "embed"
	"fmt"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed fallback.yaml
var defaultCatalogYAML []byte

// QuestOptionText is the text of the reserved work-request option.
const QuestOptionText = "Is there any work for me?"

// catalogFile is the on-disk shape of a fallback catalog.
type catalogFile struct {
	Default    catalogEntryFile            `yaml:"default"`
	Characters map[string]catalogEntryFile `yaml:"characters"`
}

type catalogEntryFile struct {
	Name     string             `yaml:"name"`
	Greeting string             `yaml:"greeting"`
	Farewell string             `yaml:"farewell"`
	Options  []catalogOptionDef `yaml:"options"`
}

type catalogOptionDef struct {
	ID        int    `yaml:"id"`
	Text      string `yaml:"text"`
	Tone      string `yaml:"tone"`
	RollCheck any    `yaml:"roll_check"`
}

// CatalogEntry is the canned content for one character.
type CatalogEntry struct {
	Name     string
	Greeting string
	Farewell string
	Options  []Option
}

// FallbackCatalog is static dialogue used when generation is unavailable.
// Lookups are case-insensitive and never fail: unknown characters get the
// default entry. It is read-only after loading and safe for concurrent use.
type FallbackCatalog struct {
	def     CatalogEntry
	entries map[string]CatalogEntry
}

// LoadFallbackCatalog parses a YAML catalog. The default entry must offer at
// least one option and no option may carry a roll check.
func LoadFallbackCatalog(data []byte) (*FallbackCatalog, error) {
	var file catalogFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, ErrInvalidCatalog("invalid YAML", err)
	}

	def, err := buildEntry("default", file.Default)
	if err != nil {
		return nil, err
	}
	if len(def.Options) == 0 {
		return nil, ErrInvalidCatalog("default entry has no options", nil)
	}
	if def.Greeting == "" {
		def.Greeting = "{name} looks at you."
	}
	if def.Farewell == "" {
		def.Farewell = "{name} nods as you take your leave."
	}

	entries := make(map[string]CatalogEntry, len(file.Characters))
	for id, raw := range file.Characters {
		entry, err := buildEntry(id, raw)
		if err != nil {
			return nil, err
		}
		if len(entry.Options) == 0 {
			entry.Options = def.Options
		}
		if entry.Greeting == "" {
			entry.Greeting = def.Greeting
		}
		if entry.Farewell == "" {
			entry.Farewell = def.Farewell
		}
		entries[strings.ToLower(id)] = entry
	}

	return &FallbackCatalog{def: def, entries: entries}, nil
}

func buildEntry(id string, raw catalogEntryFile) (CatalogEntry, error) {
	opts := make([]Option, 0, len(raw.Options)+1)
	for _, o := range raw.Options {
		if o.RollCheck != nil {
			return CatalogEntry{}, ErrInvalidCatalog(
				fmt.Sprintf("option %d of %q carries a roll check", o.ID, id), nil)
		}
		if strings.TrimSpace(o.Text) == "" {
			return CatalogEntry{}, ErrInvalidCatalog(
				fmt.Sprintf("option %d of %q has no text", o.ID, id), nil)
		}
		if o.ID == QuestOptionID {
			return CatalogEntry{}, ErrInvalidCatalog(
				fmt.Sprintf("option id %d of %q is reserved", o.ID, id), nil)
		}
		opts = append(opts, Option{ID: o.ID, Text: o.Text, Tone: ParseTone(o.Tone)})
	}
	return CatalogEntry{
		Name:     raw.Name,
		Greeting: raw.Greeting,
		Farewell: raw.Farewell,
		Options:  opts,
	}, nil
}

// MustLoadFallbackCatalog is LoadFallbackCatalog that panics on error.
func MustLoadFallbackCatalog(data []byte) *FallbackCatalog {
	c, err := LoadFallbackCatalog(data)
	if err != nil {
		panic(err)
	}
	return c
}

// DefaultFallbackCatalog returns the catalog embedded in the binary.
func DefaultFallbackCatalog() *FallbackCatalog {
	return MustLoadFallbackCatalog(defaultCatalogYAML)
}

// Has reports whether characterID has its own entry.
func (c *FallbackCatalog) Has(characterID string) bool {
	_, ok := c.entries[strings.ToLower(characterID)]
	return ok
}

// Characters returns the ids with their own entry, sorted.
func (c *FallbackCatalog) Characters() []string {
	ids := make([]string, 0, len(c.entries))
	for id := range c.entries {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Entry returns the entry for characterID, or the default entry.
func (c *FallbackCatalog) Entry(characterID string) CatalogEntry {
	if e, ok := c.entries[strings.ToLower(characterID)]; ok {
		return e
	}
	return c.def
}

// Options returns a fresh, non-empty option list for characterID with the
// work-request option appended.
func (c *FallbackCatalog) Options(characterID string) []Option {
	opts := copyOptions(c.Entry(characterID).Options)
	return append(opts, Option{ID: QuestOptionID, Text: QuestOptionText, Tone: ToneNeutral})
}

// Greeting returns the fallback greeting line for characterID.
func (c *FallbackCatalog) Greeting(characterID, displayName string) string {
	return c.fill(c.Entry(characterID).Greeting, characterID, displayName)
}

// Farewell returns the farewell line for characterID.
func (c *FallbackCatalog) Farewell(characterID, displayName string) string {
	return c.fill(c.Entry(characterID).Farewell, characterID, displayName)
}

// DisplayName picks the name to show for a character.
func (c *FallbackCatalog) DisplayName(characterID, displayName string) string {
	if displayName != "" {
		return displayName
	}
	if e, ok := c.entries[strings.ToLower(characterID)]; ok && e.Name != "" {
		return e.Name
	}
	return titleCase(characterID)
}

func (c *FallbackCatalog) fill(template, characterID, displayName string) string {
	return strings.ReplaceAll(template, "{name}", c.DisplayName(characterID, displayName))
}
