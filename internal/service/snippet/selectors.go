// Package snippet pulls post text out of captured X/Twitter page HTML.
package snippet

// Key names a page layout.
type Key string

const (
	KeyHome     Key = "home"
	KeyMentions Key = "mentions"
	KeyTweet    Key = "tweet"
	KeyMessages Key = "messages"
)

// Variant is one CSS selector tried against a page.
type Variant struct {
	Label    string `json:"label"`
	Selector string `json:"selector"`
}

// Entry lists the selectors for one layout in the order they are tried.
type Entry struct {
	Name      Key
	MaxItems  int
	Primary   Variant
	Fallbacks []Variant
}

func (e Entry) variants() []Variant {
	return append([]Variant{e.Primary}, e.Fallbacks...)
}

const (
	timelineText = `div[data-testid="cellInnerDiv"] div[data-testid="tweetText"]`
	articleLang  = `article[data-testid="tweet"] div[lang]`
)

// SelectorMap is keyed by page layout.
var SelectorMap = map[Key]Entry{
	KeyHome: {
		Name:      KeyHome,
		MaxItems:  30,
		Primary:   Variant{Label: "Timeline primary", Selector: timelineText},
		Fallbacks: []Variant{{Label: "Timeline fallback", Selector: articleLang}},
	},
	KeyMentions: {
		Name:      KeyMentions,
		MaxItems:  30,
		Primary:   Variant{Label: "Mentions primary", Selector: timelineText},
		Fallbacks: []Variant{{Label: "Mentions fallback", Selector: articleLang}},
	},
	KeyTweet: {
		Name:      KeyTweet,
		MaxItems:  1,
		Primary:   Variant{Label: "Tweet primary", Selector: `article[data-testid="tweet"] div[data-testid="tweetText"]`},
		Fallbacks: []Variant{{Label: "Tweet fallback", Selector: `article[role="article"] div[lang]`}},
	},
	KeyMessages: {
		Name:     KeyMessages,
		MaxItems: 30,
		Primary:  Variant{Label: "DM primary", Selector: `[data-testid*="messageEntry"] div[dir="auto"]`},
		// mirrored text nodes can sit next to the composer
		Fallbacks: []Variant{{Label: "DM fallback", Selector: `[role="textbox"] ~ div[dir="auto"]`}},
	},
}
