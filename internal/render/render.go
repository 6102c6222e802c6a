// Package render turns a raw Archidekt deck record into output artifacts.
//
// Rendering is pure and deterministic: the same deck record always produces
// byte-identical artifacts for every format, which is what makes the
// engine's compare-before-write meaningful.
package render

import (
	"fmt"
	"strings"

	"github.com/ramonehamilton/archidekt-mirror/internal/archidekt"
)

// Format identifies one output artifact format.
type Format string

const (
	// FormatArchidekt is the annotated text list with category labels.
	FormatArchidekt Format = "archidekt"
	// FormatBasic is the plain "<qty> <name>" list with a sideboard block.
	FormatBasic Format = "basic"
	// FormatJSON is the flattened JSON projection of the deck record.
	FormatJSON Format = "json"
	// FormatRawJSON is the near-verbatim JSON projection of the deck record.
	FormatRawJSON Format = "rawJson"
)

// ParseFormat parses a config-supplied format name.
func ParseFormat(s string) (Format, error) {
	switch Format(s) {
	case FormatArchidekt, FormatBasic, FormatJSON, FormatRawJSON:
		return Format(s), nil
	default:
		return "", fmt.Errorf("unknown output format: %q", s)
	}
}

// Suffix returns the artifact filename suffix for this format, appended to a
// deck's filename stem.
func (f Format) Suffix() string {
	switch f {
	case FormatArchidekt:
		return ".txt"
	case FormatBasic:
		return ".basic.txt"
	case FormatJSON:
		return ".json"
	case FormatRawJSON:
		return ".raw.json"
	default:
		return "." + string(f)
	}
}

// AllSuffixes lists every suffix an artifact may ever have been written
// under. Reconciliation deletes all of them for a stale deck, regardless of
// which formats the current configuration requests.
func AllSuffixes() []string {
	return []string{
		FormatArchidekt.Suffix(),
		FormatBasic.Suffix(),
		FormatJSON.Suffix(),
		FormatRawJSON.Suffix(),
	}
}

// formatNames maps Archidekt's numeric deck format ids to display names.
var formatNames = map[int]string{
	1:  "Standard",
	2:  "Modern",
	3:  "Commander / EDH",
	4:  "Legacy",
	5:  "Vintage",
	6:  "Pauper",
	7:  "Custom",
	8:  "Frontier",
	9:  "Future Standard",
	10: "Penny Dreadful",
	11: "1v1 Commander",
	12: "Duel Commander",
	13: "Brawl",
	14: "Oathbreaker",
	15: "Pioneer",
	16: "Historic",
	17: "Pauper EDH",
	18: "Alchemy",
	19: "Explorer",
	20: "Historic Brawl",
	21: "Gladiator",
	22: "Premodern",
	23: "PreDH",
	24: "Timeless",
	25: "Canadian Highlander",
}

// FormatName returns the human-readable name for a numeric deck format id.
func FormatName(id int) string {
	if name, ok := formatNames[id]; ok {
		return name
	}
	return fmt.Sprintf("Unknown (%d)", id)
}

// splitCardSeparator divides the faces of a split or multi-face card title.
const splitCardSeparator = " // "

// sideboardCategory is the well-known category name that routes a card to
// the sideboard block in basic format.
const sideboardCategory = "Sideboard"

// Render produces the artifact bytes for each requested format.
func Render(deck *archidekt.Deck, formats []Format) (map[Format][]byte, error) {
	if deck == nil {
		return nil, fmt.Errorf("deck is nil")
	}

	artifacts := make(map[Format][]byte, len(formats))
	for _, format := range formats {
		switch format {
		case FormatArchidekt:
			artifacts[format] = renderArchidekt(deck)
		case FormatBasic:
			artifacts[format] = renderBasic(deck)
		case FormatJSON:
			data, err := renderJSON(deck)
			if err != nil {
				return nil, fmt.Errorf("failed to render deck %d as json: %w", deck.ID, err)
			}
			artifacts[format] = data
		case FormatRawJSON:
			data, err := renderRawJSON(deck)
			if err != nil {
				return nil, fmt.Errorf("failed to render deck %d as rawJson: %w", deck.ID, err)
			}
			artifacts[format] = data
		default:
			return nil, fmt.Errorf("unsupported output format: %s", format)
		}
	}

	return artifacts, nil
}

// categoryLabels builds the per-deck table of annotated category labels.
// A category name seen more than once keeps its first-seen flags.
func categoryLabels(deck *archidekt.Deck) map[string]string {
	labels := make(map[string]string, len(deck.Categories))
	for _, category := range deck.Categories {
		if _, seen := labels[category.Name]; seen {
			continue
		}

		label := category.Name
		if !category.IncludedInDeck {
			label += "{noDeck}"
		}
		if !category.IncludedInPrice {
			label += "{noPrice}"
		}
		if category.IsPremier {
			label += "{top}"
		}
		labels[category.Name] = label
	}
	return labels
}

// renderArchidekt emits the annotated text list.
// Format: "4x Lightning Bolt (m21) *F* [Burn,Removal{noPrice}]"
func renderArchidekt(deck *archidekt.Deck) []byte {
	labels := categoryLabels(deck)

	var sb strings.Builder
	fmt.Fprintf(&sb, "# %s\n", deck.Name)
	fmt.Fprintf(&sb, "# %s\n", FormatName(deck.Format))

	for _, card := range deck.Cards {
		fmt.Fprintf(&sb, "%dx %s (%s) ", card.Quantity, card.Card.OracleCard.Name, card.Card.Edition.Code)
		if card.Foil() {
			sb.WriteString("*F* ")
		}
		if len(card.Categories) > 0 {
			parts := make([]string, 0, len(card.Categories))
			for _, name := range card.Categories {
				label, ok := labels[name]
				if !ok {
					// Category name the deck never declared.
					label = name
				}
				parts = append(parts, label)
			}
			fmt.Fprintf(&sb, "[%s]", strings.Join(parts, ","))
		}
		sb.WriteString("\n")
	}

	return []byte(sb.String())
}

// renderBasic emits the plain decklist: mainboard lines, a blank line, then
// sideboard lines. Classification uses only the card's primary category; a
// card with no categories is mainboard-eligible.
func renderBasic(deck *archidekt.Deck) []byte {
	excluded := make(map[string]bool)
	for _, category := range deck.Categories {
		if !category.IncludedInDeck {
			excluded[category.Name] = true
		}
	}

	var mainboard, sideboard strings.Builder
	for _, card := range deck.Cards {
		title := card.Card.OracleCard.Name
		if i := strings.Index(title, splitCardSeparator); i >= 0 {
			title = title[:i]
		}

		var primary string
		if len(card.Categories) > 0 {
			primary = card.Categories[0]
		}

		switch {
		case primary == sideboardCategory:
			fmt.Fprintf(&sideboard, "%d %s\n", card.Quantity, title)
		case excluded[primary]:
			// Not part of the playable deck.
		default:
			fmt.Fprintf(&mainboard, "%d %s\n", card.Quantity, title)
		}
	}

	return []byte(mainboard.String() + "\n" + sideboard.String())
}
