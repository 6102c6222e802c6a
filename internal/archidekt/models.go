package archidekt

import (
	"errors"
	"fmt"
	"strings"
)

// User represents an Archidekt user profile.
type User struct {
	ID           int    `json:"id"`
	Username     string `json:"username"`
	Avatar       string `json:"avatar,omitempty"`
	Frame        string `json:"frame,omitempty"`
	CCImage      string `json:"ccImage,omitempty"`
	ReferrerEnum string `json:"referrerEnum,omitempty"`
}

// DeckStub is the lightweight deck record returned by listings and folders.
// It carries identity and placement only; the full record comes from GetDeck.
type DeckStub struct {
	ID        int    `json:"id"`
	Name      string `json:"name"`
	Format    int    `json:"deckFormat"`
	Private   bool   `json:"private"`
	UpdatedAt string `json:"updatedAt,omitempty"`
}

// deckPage is one page of the paginated deck listing.
type deckPage struct {
	Count    int        `json:"count"`
	Next     *string    `json:"next"`
	Previous *string    `json:"previous"`
	Results  []DeckStub `json:"results"`
}

// FolderRef is a reference to a folder from its parent or children.
type FolderRef struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

// Folder represents one node of the remote folder tree.
type Folder struct {
	ID           int         `json:"id"`
	Name         string      `json:"name"`
	Private      bool        `json:"private"`
	ParentFolder *FolderRef  `json:"parentFolder"`
	Decks        []DeckStub  `json:"decks"`
	SubFolders   []FolderRef `json:"subfolders"`
}

// Deck is the full deck record (small projection).
type Deck struct {
	ID          int        `json:"id"`
	Name        string     `json:"name"`
	Format      int        `json:"deckFormat"`
	CreatedAt   string     `json:"createdAt,omitempty"`
	UpdatedAt   string     `json:"updatedAt,omitempty"`
	Description string     `json:"description,omitempty"`
	ViewCount   int        `json:"viewCount,omitempty"`
	Private     bool       `json:"private"`
	Owner       Owner      `json:"owner"`
	Categories  []Category `json:"categories"`
	Cards       []DeckCard `json:"cards"`
}

// Owner is the deck owner as embedded in a deck record.
type Owner struct {
	ID           int    `json:"id"`
	Username     string `json:"username"`
	Avatar       string `json:"avatar,omitempty"`
	Frame        string `json:"frame,omitempty"`
	CCImage      string `json:"ccImage,omitempty"`
	ReferrerEnum string `json:"referrerEnum,omitempty"`
}

// Category is a deck category with its inclusion flags.
type Category struct {
	ID              int    `json:"id,omitempty"`
	Name            string `json:"name"`
	IncludedInDeck  bool   `json:"includedInDeck"`
	IncludedInPrice bool   `json:"includedInPrice"`
	IsPremier       bool   `json:"isPremier"`
}

// DeckCard is one card entry in a deck. Categories holds category names in
// deck order; the first entry is the card's primary category.
type DeckCard struct {
	ID         int      `json:"id,omitempty"`
	Quantity   int      `json:"quantity"`
	Modifier   string   `json:"modifier,omitempty"`
	Label      string   `json:"label,omitempty"`
	Categories []string `json:"categories"`
	Card       Printing `json:"card"`
}

// Foil reports whether this entry is the foil printing.
func (c *DeckCard) Foil() bool {
	return c.Modifier == "Foil"
}

// Printing is a concrete printing of an oracle card in a specific edition.
type Printing struct {
	ID              int        `json:"id,omitempty"`
	UID             string     `json:"uid,omitempty"`
	Artist          string     `json:"artist,omitempty"`
	Flavor          string     `json:"flavor,omitempty"`
	Rarity          string     `json:"rarity,omitempty"`
	CollectorNumber string     `json:"collectorNumber,omitempty"`
	TCGProductID    int        `json:"tcgProductId,omitempty"`
	CardmarketID    int        `json:"cardmarketId,omitempty"`
	MTGOFoilID      int        `json:"mtgoFoilId,omitempty"`
	MTGONormalID    int        `json:"mtgoNormalId,omitempty"`
	MultiverseID    int        `json:"multiverseid,omitempty"`
	Prices          Prices     `json:"prices"`
	Edition         Edition    `json:"edition"`
	OracleCard      OracleCard `json:"oracleCard"`
}

// Prices holds per-marketplace market prices for a printing.
type Prices struct {
	CK       float64 `json:"ck,omitempty"`
	CKFoil   float64 `json:"ckfoil,omitempty"`
	TCG      float64 `json:"tcg,omitempty"`
	TCGFoil  float64 `json:"tcgfoil,omitempty"`
	CM       float64 `json:"cm,omitempty"`
	CMFoil   float64 `json:"cmfoil,omitempty"`
	MTGO     float64 `json:"mtgo,omitempty"`
	MTGOFoil float64 `json:"mtgofoil,omitempty"`
}

// Edition identifies the set a printing belongs to.
type Edition struct {
	Code string `json:"editioncode"`
	Name string `json:"editionname,omitempty"`
	Date string `json:"editiondate,omitempty"`
}

// OracleCard is the edition-independent card data.
type OracleCard struct {
	ID            int      `json:"id,omitempty"`
	Name          string   `json:"name"`
	Salt          float64  `json:"salt,omitempty"`
	CMC           float64  `json:"cmc,omitempty"`
	ManaCost      string   `json:"manaCost,omitempty"`
	ColorIdentity []string `json:"colorIdentity,omitempty"`
	Types         []string `json:"types,omitempty"`
	SubTypes      []string `json:"subTypes,omitempty"`
	SuperTypes    []string `json:"superTypes,omitempty"`
	Text          string   `json:"text,omitempty"`
	Layout        string   `json:"layout,omitempty"`
}

// APIError represents an error response body from the Archidekt API.
type APIError struct {
	StatusCode int    `json:"-"`
	Detail     string `json:"detail"`
}

// Error implements the error interface for APIError.
func (e *APIError) Error() string {
	return fmt.Sprintf("archidekt API error (status %d): %s", e.StatusCode, e.Detail)
}

// NotFoundError represents a 404 response from the API.
type NotFoundError struct {
	URL string
}

// Error implements the error interface for NotFoundError.
func (e *NotFoundError) Error() string {
	return fmt.Sprintf("resource not found: %s", e.URL)
}

// IsNotFound returns true if the error is a NotFoundError.
func IsNotFound(err error) bool {
	var nf *NotFoundError
	return errors.As(err, &nf)
}

// IsAuthDenied reports whether the error is the API's
// authentication-required response, returned for private folders.
func IsAuthDenied(err error) bool {
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		return false
	}
	return strings.Contains(apiErr.Detail, "Authentication credentials")
}
