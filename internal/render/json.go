package render

import (
	"encoding/json"

	"github.com/ramonehamilton/archidekt-mirror/internal/archidekt"
)

// The JSON projections drop fields that churn between runs without carrying
// deck information (view counters, market prices, marketplace ids). What
// remains serializes in fixed struct-field order so artifacts stay diffable
// and the idempotent write can compare bytes.

// rawDeckExport is the rawJson projection: the deck record minus volatile
// fields, structure otherwise preserved.
type rawDeckExport struct {
	ID          int                  `json:"id"`
	Name        string               `json:"name"`
	Format      int                  `json:"deckFormat"`
	CreatedAt   string               `json:"createdAt,omitempty"`
	UpdatedAt   string               `json:"updatedAt,omitempty"`
	Description string               `json:"description,omitempty"`
	Private     bool                 `json:"private"`
	Owner       archidekt.Owner      `json:"owner"`
	Categories  []archidekt.Category `json:"categories"`
	Cards       []rawCardExport      `json:"cards"`
}

type rawCardExport struct {
	Quantity   int               `json:"quantity"`
	Modifier   string            `json:"modifier,omitempty"`
	Label      string            `json:"label,omitempty"`
	Categories []string          `json:"categories"`
	Card       rawPrintingExport `json:"card"`
}

type rawPrintingExport struct {
	UID             string               `json:"uid,omitempty"`
	Artist          string               `json:"artist,omitempty"`
	Flavor          string               `json:"flavor,omitempty"`
	Rarity          string               `json:"rarity,omitempty"`
	CollectorNumber string               `json:"collectorNumber,omitempty"`
	Edition         archidekt.Edition    `json:"edition"`
	OracleCard      archidekt.OracleCard `json:"oracleCard"`
}

// deckExport is the json projection: on top of the rawJson stripping, the
// owner is reduced to identity and each card is flattened to its oracle name
// and salt plus printing identity.
type deckExport struct {
	ID          int                  `json:"id"`
	Name        string               `json:"name"`
	Format      int                  `json:"deckFormat"`
	CreatedAt   string               `json:"createdAt,omitempty"`
	UpdatedAt   string               `json:"updatedAt,omitempty"`
	Description string               `json:"description,omitempty"`
	Private     bool                 `json:"private"`
	Owner       ownerExport          `json:"owner"`
	Categories  []archidekt.Category `json:"categories"`
	Cards       []cardExport         `json:"cards"`
}

type ownerExport struct {
	ID       int    `json:"id"`
	Username string `json:"username"`
}

type cardExport struct {
	Quantity        int               `json:"quantity"`
	Modifier        string            `json:"modifier,omitempty"`
	Label           string            `json:"label,omitempty"`
	Categories      []string          `json:"categories"`
	Name            string            `json:"name"`
	Salt            float64           `json:"salt,omitempty"`
	CollectorNumber string            `json:"collectorNumber,omitempty"`
	Edition         archidekt.Edition `json:"edition"`
}

func renderRawJSON(deck *archidekt.Deck) ([]byte, error) {
	export := rawDeckExport{
		ID:          deck.ID,
		Name:        deck.Name,
		Format:      deck.Format,
		CreatedAt:   deck.CreatedAt,
		UpdatedAt:   deck.UpdatedAt,
		Description: deck.Description,
		Private:     deck.Private,
		Owner:       deck.Owner,
		Categories:  deck.Categories,
		Cards:       make([]rawCardExport, 0, len(deck.Cards)),
	}

	for _, card := range deck.Cards {
		export.Cards = append(export.Cards, rawCardExport{
			Quantity:   card.Quantity,
			Modifier:   card.Modifier,
			Label:      card.Label,
			Categories: card.Categories,
			Card: rawPrintingExport{
				UID:             card.Card.UID,
				Artist:          card.Card.Artist,
				Flavor:          card.Card.Flavor,
				Rarity:          card.Card.Rarity,
				CollectorNumber: card.Card.CollectorNumber,
				Edition:         card.Card.Edition,
				OracleCard:      card.Card.OracleCard,
			},
		})
	}

	return marshalIndented(export)
}

func renderJSON(deck *archidekt.Deck) ([]byte, error) {
	export := deckExport{
		ID:          deck.ID,
		Name:        deck.Name,
		Format:      deck.Format,
		CreatedAt:   deck.CreatedAt,
		UpdatedAt:   deck.UpdatedAt,
		Description: deck.Description,
		Private:     deck.Private,
		Owner: ownerExport{
			ID:       deck.Owner.ID,
			Username: deck.Owner.Username,
		},
		Categories: deck.Categories,
		Cards:      make([]cardExport, 0, len(deck.Cards)),
	}

	for _, card := range deck.Cards {
		export.Cards = append(export.Cards, cardExport{
			Quantity:        card.Quantity,
			Modifier:        card.Modifier,
			Label:           card.Label,
			Categories:      card.Categories,
			Name:            card.Card.OracleCard.Name,
			Salt:            card.Card.OracleCard.Salt,
			CollectorNumber: card.Card.CollectorNumber,
			Edition:         card.Card.Edition,
		})
	}

	return marshalIndented(export)
}

func marshalIndented(v interface{}) ([]byte, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, err
	}
	return append(data, '\n'), nil
}
